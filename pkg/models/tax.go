package models

import "time"

// TaxState is the reporting state of a rep-year earnings record.
type TaxState string

const (
	TaxBelowWarning TaxState = "below_warning"
	TaxApproaching  TaxState = "approaching"
	TaxPendingInfo  TaxState = "over_threshold_pending_info"
	TaxCompliant    TaxState = "compliant"
)

// TaxRecord accumulates sold-referral earnings for one rep in one
// calendar year. Year is an opaque partition key supplied by the caller.
type TaxRecord struct {
	RepID             string    `json:"rep_id"`
	Year              int       `json:"year"`
	Earnings          int64     `json:"earnings"`
	State             TaxState  `json:"state"`
	HasTaxInfo        bool      `json:"has_tax_info"`
	BackupWithholding bool      `json:"backup_withholding"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TaxInfoRequest carries a rep's tax information submission. A taxpayer
// identifier is optional; when absent, backup withholding applies.
type TaxInfoRequest struct {
	LegalName      string `json:"legal_name" validate:"required"`
	MailingAddress string `json:"mailing_address" validate:"required"`
	TaxpayerID     string `json:"taxpayer_id,omitempty"`
}
