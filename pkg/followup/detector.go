package followup

import (
	"time"

	"github.com/referlink/backend/pkg/models"
)

// Detector flags referrals that have sat in "submitted" long enough to
// need a follow-up. It is pure: it never mutates a referral or advances
// its status, and repeated calls over unchanged input return the same
// answer. Dedupe of the resulting reminders belongs to the notification
// queue, not here.
type Detector struct {
	threshold time.Duration
}

// NewDetector creates a detector with the given staleness window in days.
func NewDetector(afterDays int) *Detector {
	return &Detector{threshold: time.Duration(afterDays) * 24 * time.Hour}
}

// Threshold returns the staleness window.
func (d *Detector) Threshold() time.Duration {
	return d.threshold
}

// IsFollowUpNeeded reports whether the referral needs a follow-up: still
// "submitted" and at least the threshold old. The boundary is inclusive.
func (d *Detector) IsFollowUpNeeded(ref models.Referral, now time.Time) bool {
	if ref.Status != models.StatusSubmitted {
		return false
	}
	return now.Sub(ref.CreatedAt) >= d.threshold
}

// ScanForStale returns the subset of referrals needing follow-up. The
// input is a snapshot; concurrent status transitions elsewhere are fine.
func (d *Detector) ScanForStale(refs []models.Referral, now time.Time) []models.Referral {
	var stale []models.Referral
	for _, r := range refs {
		if d.IsFollowUpNeeded(r, now) {
			stale = append(stale, r)
		}
	}
	return stale
}
