package models

import "time"

// ReferralStatus represents a referral's position in the sales pipeline.
type ReferralStatus string

const (
	StatusSubmitted ReferralStatus = "submitted"
	StatusContacted ReferralStatus = "contacted"
	StatusQuoted    ReferralStatus = "quoted"
	StatusSold      ReferralStatus = "sold"
)

// statusOrder maps each pipeline status to its canonical forward position.
var statusOrder = map[ReferralStatus]int{
	StatusSubmitted: 0,
	StatusContacted: 1,
	StatusQuoted:    2,
	StatusSold:      3,
}

// Valid reports whether the status is one of the four pipeline values.
func (s ReferralStatus) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// Order returns the canonical pipeline position (0-3), or -1 for an
// unknown status.
func (s ReferralStatus) Order() int {
	if o, ok := statusOrder[s]; ok {
		return o
	}
	return -1
}

// AtLeast reports whether the status has reached the given pipeline stage.
func (s ReferralStatus) AtLeast(other ReferralStatus) bool {
	return s.Valid() && other.Valid() && s.Order() >= other.Order()
}

// AllStatuses returns the pipeline statuses in canonical forward order.
func AllStatuses() []ReferralStatus {
	return []ReferralStatus{StatusSubmitted, StatusContacted, StatusQuoted, StatusSold}
}

// Referral represents one referred prospect moving through the pipeline.
// Referrals are never physically deleted, only status-transitioned.
type Referral struct {
	ID         string         `json:"id"`
	ReferrerID string         `json:"referrer_id"`
	RepID      string         `json:"rep_id"`
	Name       string         `json:"name"`
	Phone      string         `json:"phone,omitempty"`
	Email      string         `json:"email,omitempty"`
	Status     ReferralStatus `json:"status"`
	Value      int64          `json:"value"`
	Notes      string         `json:"notes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// HasContactMethod reports whether at least one contact method is present.
func (r *Referral) HasContactMethod() bool {
	return r.Phone != "" || r.Email != ""
}

// ReferralFilter narrows store listings.
type ReferralFilter struct {
	RepID      string
	ReferrerID string
	Status     ReferralStatus
}

// StatusChange is one entry in a referral's transition history.
type StatusChange struct {
	ID         int            `json:"id"`
	ReferralID string         `json:"referral_id"`
	ActorID    string         `json:"actor_id"`
	OldStatus  ReferralStatus `json:"old_status"`
	NewStatus  ReferralStatus `json:"new_status"`
	Reason     string         `json:"reason,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SubmitReferralRequest is the payload for creating a referral.
type SubmitReferralRequest struct {
	ReferrerID string `json:"referrer_id" validate:"required"`
	RepID      string `json:"rep_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Value      int64  `json:"value" validate:"gte=0"`
	Notes      string `json:"notes,omitempty"`
}

// UpdateStatusRequest is the payload for a status transition.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=submitted contacted quoted sold"`
	Reason string `json:"reason,omitempty"`
}

// ErrorResponse is the standard API error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
