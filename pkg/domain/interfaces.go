package domain

import (
	"context"
	"time"

	"github.com/referlink/backend/pkg/models"
)

// Clock abstracts "now" so staleness and threshold logic is
// deterministically testable.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return ClockFunc(time.Now)
}

// ReferralStore defines data access for referral records. The engine does
// not own the schema; it only reads and writes through this interface.
type ReferralStore interface {
	ListReferrals(ctx context.Context, filter models.ReferralFilter) ([]models.Referral, error)
	GetReferral(ctx context.Context, id string) (*models.Referral, error)
	SaveReferral(ctx context.Context, ref *models.Referral) error
	AppendStatusChange(ctx context.Context, change *models.StatusChange) error
	ListStatusHistory(ctx context.Context, referralID string) ([]models.StatusChange, error)
}

// NotificationStore persists the notification queue so it survives
// process restarts.
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	Get(ctx context.Context, id string) (*models.Notification, error)
	ListFor(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
	Delete(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int, error)
	MarkSent(ctx context.Context, id string, status models.NotificationStatus, sentAt time.Time) error
	// HasOutstandingFollowUp reports whether an unread follow-up
	// notification already exists for the referral.
	HasOutstandingFollowUp(ctx context.Context, referralID string) (bool, error)
	// ClaimDedupeKey records a one-shot trigger key. It returns true the
	// first time a key is claimed and false on every later attempt.
	ClaimDedupeKey(ctx context.Context, key string) (bool, error)
	// HasDedupeKey reports whether a trigger key was already claimed.
	HasDedupeKey(ctx context.Context, key string) (bool, error)
}

// TaxStore persists per rep-year earnings records.
type TaxStore interface {
	GetTaxRecord(ctx context.Context, repID string, year int) (*models.TaxRecord, error)
	SaveTaxRecord(ctx context.Context, rec *models.TaxRecord) error
}

// RepStore supplies rep/payee accounts.
type RepStore interface {
	GetRep(ctx context.Context, id string) (*models.Rep, error)
}

// DeliveryResult is what a channel provider reports back.
type DeliveryResult struct {
	Success   bool
	MessageID string
	Error     string
}

// EmailProvider is the external email collaborator.
type EmailProvider interface {
	SendEmail(ctx context.Context, to, toName, subject, bodyHTML, actionURL string) (*DeliveryResult, error)
}

// SMSProvider is the external SMS collaborator.
type SMSProvider interface {
	SendSMS(ctx context.Context, to, message string) (*DeliveryResult, error)
}

// CacheRepository defines caching operations
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}
