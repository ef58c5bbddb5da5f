package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/logger"
	"github.com/referlink/backend/pkg/metrics"
	"github.com/referlink/backend/pkg/models"
	"github.com/referlink/backend/pkg/phone"
)

// dispatchTimeout bounds one notification's channel deliveries.
const dispatchTimeout = 30 * time.Second

// Service owns the notification queue and fans deliveries out across
// channels. Enqueueing is synchronous and fast; delivery happens on a
// bounded worker pool so no caller ever blocks on a provider.
type Service struct {
	store   domain.NotificationStore
	email   domain.EmailProvider
	sms     domain.SMSProvider
	clock   domain.Clock
	log     logger.Logger
	metrics *metrics.Metrics

	pending chan string
	wg      sync.WaitGroup
	stop    chan struct{}
	once    sync.Once
}

// Options configures the dispatcher pool.
type Options struct {
	Workers   int
	QueueSize int
}

// NewService creates the notification service. email, sms and m may be
// nil; a nil provider simply fails that channel with a logged error.
func NewService(store domain.NotificationStore, email domain.EmailProvider, sms domain.SMSProvider,
	clock domain.Clock, log logger.Logger, m *metrics.Metrics, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if log == nil {
		log = logger.Default()
	}
	if clock == nil {
		clock = domain.SystemClock()
	}

	return &Service{
		store:   store,
		email:   email,
		sms:     sms,
		clock:   clock,
		log:     log,
		metrics: m,
		pending: make(chan string, opts.QueueSize),
		stop:    make(chan struct{}),
	}
}

// Start launches the dispatch workers.
func (s *Service) Start(workers int) {
	if workers <= 0 {
		workers = 4
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// Stop drains the workers. In-flight deliveries complete; queued entries
// stay pending in the store and are picked up on the next enqueue cycle.
func (s *Service) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Service) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case id := <-s.pending:
			ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
			if _, err := s.Dispatch(ctx, id); err != nil && !domain.IsNotFound(err) {
				s.log.Error("notification dispatch failed", "notification_id", id, "error", err)
			}
			cancel()
		}
	}
}

// Enqueue persists a notification and hands it to the dispatch pool.
// The caller returns as soon as the row is durable.
func (s *Service) Enqueue(ctx context.Context, n *models.Notification) error {
	if len(n.Recipients) == 0 {
		return domain.NewValidationError("notification requires at least one recipient")
	}
	if len(n.Channels) == 0 {
		n.Channels = []models.Channel{models.ChannelInApp}
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Priority == "" {
		n.Priority = models.PriorityNormal
	}
	n.Status = models.NotificationPending
	n.Read = false
	n.CreatedAt = s.clock.Now()

	if err := s.store.Insert(ctx, n); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	select {
	case s.pending <- n.ID:
	default:
		// Pool saturated. The row is durable and stays pending; it will
		// surface in-app regardless and can be re-dispatched manually.
		s.log.Warn("dispatch queue full, notification left pending", "notification_id", n.ID)
	}

	if s.metrics != nil {
		s.metrics.RecordNotificationEnqueued(string(n.Type))
	}
	return nil
}

// Dispatch attempts delivery on every requested channel independently.
// A failure on one channel never blocks the others. Once all attempted
// channels resolve the notification is stamped sent, regardless of
// individual failures; failures are logged, not retried.
func (s *Service) Dispatch(ctx context.Context, id string) ([]models.DispatchResult, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status == models.NotificationSent {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		results []models.DispatchResult
		wg      sync.WaitGroup
	)
	record := func(r models.DispatchResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordNotificationDispatched(string(r.Channel), r.Success)
		}
	}

	for _, ch := range n.Channels {
		wg.Add(1)
		go func(ch models.Channel) {
			defer wg.Done()
			switch ch {
			case models.ChannelInApp:
				// In-app delivery is satisfied by the row existing in the
				// queue and being retrievable.
				for _, rcpt := range n.Recipients {
					record(models.DispatchResult{Channel: ch, Recipient: rcpt.ID, Success: true})
				}
			case models.ChannelEmail:
				s.deliverEmail(ctx, n, record)
			case models.ChannelSMS:
				s.deliverSMS(ctx, n, record)
			default:
				record(models.DispatchResult{Channel: ch, Success: false, Error: "unknown channel"})
			}
		}(ch)
	}
	wg.Wait()

	// Honor a dismiss that raced with delivery: if the row is gone there
	// is nothing left to stamp.
	if _, err := s.store.Get(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			s.log.Info("notification dismissed during dispatch", "notification_id", id)
			return results, nil
		}
		return results, err
	}

	if err := s.store.MarkSent(ctx, id, models.NotificationSent, s.clock.Now()); err != nil {
		return results, fmt.Errorf("failed to stamp notification sent: %w", err)
	}
	return results, nil
}

func (s *Service) deliverEmail(ctx context.Context, n *models.Notification, record func(models.DispatchResult)) {
	for _, rcpt := range n.Recipients {
		if rcpt.Email == "" {
			s.log.Warn("recipient has no email address, skipping channel",
				"notification_id", n.ID, "recipient_id", rcpt.ID)
			record(models.DispatchResult{Channel: models.ChannelEmail, Recipient: rcpt.ID,
				Success: false, Error: "no email address on file"})
			continue
		}
		if s.email == nil {
			record(models.DispatchResult{Channel: models.ChannelEmail, Recipient: rcpt.ID,
				Success: false, Error: "email provider not configured"})
			continue
		}

		res, err := s.email.SendEmail(ctx, rcpt.Email, rcpt.Name, n.Title, emailBody(n), n.ActionURL)
		if err != nil {
			s.log.Error("email delivery failed", "notification_id", n.ID,
				"recipient_id", rcpt.ID, "error", err)
			record(models.DispatchResult{Channel: models.ChannelEmail, Recipient: rcpt.ID,
				Success: false, Error: err.Error()})
			continue
		}
		record(models.DispatchResult{Channel: models.ChannelEmail, Recipient: rcpt.ID,
			Success: res.Success, MessageID: res.MessageID, Error: res.Error})
	}
}

func (s *Service) deliverSMS(ctx context.Context, n *models.Notification, record func(models.DispatchResult)) {
	for _, rcpt := range n.Recipients {
		if rcpt.Phone == "" {
			s.log.Warn("recipient has no phone number, skipping channel",
				"notification_id", n.ID, "recipient_id", rcpt.ID)
			record(models.DispatchResult{Channel: models.ChannelSMS, Recipient: rcpt.ID,
				Success: false, Error: "no phone number on file"})
			continue
		}
		if s.sms == nil {
			record(models.DispatchResult{Channel: models.ChannelSMS, Recipient: rcpt.ID,
				Success: false, Error: "sms provider not configured"})
			continue
		}

		to, err := phone.ToE164(rcpt.Phone, "")
		if err != nil {
			record(models.DispatchResult{Channel: models.ChannelSMS, Recipient: rcpt.ID,
				Success: false, Error: err.Error()})
			continue
		}

		res, err := s.sms.SendSMS(ctx, to, smsBody(n))
		if err != nil {
			s.log.Error("sms delivery failed", "notification_id", n.ID,
				"recipient_id", rcpt.ID, "error", err)
			record(models.DispatchResult{Channel: models.ChannelSMS, Recipient: rcpt.ID,
				Success: false, Error: err.Error()})
			continue
		}
		record(models.DispatchResult{Channel: models.ChannelSMS, Recipient: rcpt.ID,
			Success: res.Success, MessageID: res.MessageID, Error: res.Error})
	}
}

// ListFor returns a recipient's notifications, newest first.
func (s *Service) ListFor(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	return s.store.ListFor(ctx, recipientID, limit)
}

// Dismiss hard-deletes one notification from the queue. A dismiss racing
// an in-flight dispatch is honored best effort: started provider calls
// complete, but the row never gets a sent stamp.
func (s *Service) Dismiss(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// MarkAllRead flips the read flag on the recipient's unread
// notifications without removing them.
func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	return s.store.MarkAllRead(ctx, recipientID)
}

// ClaimTrigger claims a one-shot trigger key (milestone unlock, tax
// threshold cross). The queue owns dedupe so trigger sources stay pure.
func (s *Service) ClaimTrigger(ctx context.Context, key string) (bool, error) {
	return s.store.ClaimDedupeKey(ctx, key)
}

// TriggerClaimed reports whether a one-shot trigger key already fired.
func (s *Service) TriggerClaimed(ctx context.Context, key string) (bool, error) {
	return s.store.HasDedupeKey(ctx, key)
}

// HasOutstandingFollowUp reports whether an unresolved follow-up is
// already queued for a referral.
func (s *Service) HasOutstandingFollowUp(ctx context.Context, referralID string) (bool, error) {
	return s.store.HasOutstandingFollowUp(ctx, referralID)
}

func emailBody(n *models.Notification) string {
	body := fmt.Sprintf(`<html><body><h2>%s</h2><p>%s</p>`, n.Title, n.Message)
	if n.ActionURL != "" {
		label := n.ActionLabel
		if label == "" {
			label = "View details"
		}
		body += fmt.Sprintf(`<p><a href="%s">%s</a></p>`, n.ActionURL, label)
	}
	body += `</body></html>`
	return body
}

func smsBody(n *models.Notification) string {
	msg := n.Title + ": " + n.Message
	if n.ActionURL != "" {
		msg += " " + n.ActionURL
	}
	return msg
}
