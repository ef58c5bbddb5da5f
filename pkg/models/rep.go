package models

import "time"

// RepRole represents the role of a payee account.
type RepRole string

const (
	RoleRep   RepRole = "rep"
	RoleAdmin RepRole = "admin"
)

// Rep is a payee who owns referrers and accrues commissions.
type Rep struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Role       RepRole   `json:"role"`
	Active     bool      `json:"active"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// RepStats holds derived per-rep referral statistics. Nothing here is
// stored; it is recomputed from the rep's referral history.
type RepStats struct {
	TotalReferrals int                    `json:"total_referrals"`
	StatusCounts   map[ReferralStatus]int `json:"status_counts"`
	ConversionRate float64                `json:"conversion_rate"`
}

// IncentiveState is the derived commission picture for a rep.
type IncentiveState struct {
	Tier1Active     bool         `json:"tier1_active"`
	Tier2Unlocked   bool         `json:"tier2_unlocked"`
	Tier3Unlocked   bool         `json:"tier3_unlocked"`
	TotalEarnings   int64        `json:"total_earnings"`
	PendingEarnings int64        `json:"pending_earnings"`
	Progress        TierProgress `json:"progress"`
}

// TierProgress tracks how close a rep is to unlocking the deeper tiers.
type TierProgress struct {
	ContactedCount    int `json:"contacted_count"`
	ContactedRequired int `json:"contacted_required"`
	SoldCount         int `json:"sold_count"`
	SoldRequired      int `json:"sold_required"`
}
