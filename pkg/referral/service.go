package referral

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/incentive"
	"github.com/referlink/backend/pkg/logger"
	"github.com/referlink/backend/pkg/metrics"
	"github.com/referlink/backend/pkg/models"
	"github.com/referlink/backend/pkg/notify"
	"github.com/referlink/backend/pkg/phone"
	"github.com/referlink/backend/pkg/tax"
)

// Service owns referral submission and the status state machine. Every
// mutation of a referral's status goes through Transition; referrals are
// never deleted.
type Service struct {
	store       domain.ReferralStore
	reps        domain.RepStore
	notifier    *notify.Service
	incentives  *incentive.Service
	taxes       *tax.Service
	clock       domain.Clock
	log         logger.Logger
	metrics     *metrics.Metrics
	validate    *validator.Validate
	frontendURL string
}

// NewService creates a new referral service.
func NewService(store domain.ReferralStore, reps domain.RepStore, notifier *notify.Service,
	incentives *incentive.Service, taxes *tax.Service, clock domain.Clock,
	log logger.Logger, m *metrics.Metrics, frontendURL string) *Service {
	if log == nil {
		log = logger.Default()
	}
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Service{
		store:       store,
		reps:        reps,
		notifier:    notifier,
		incentives:  incentives,
		taxes:       taxes,
		clock:       clock,
		log:         log,
		metrics:     m,
		validate:    validator.New(),
		frontendURL: frontendURL,
	}
}

// Submit creates a new referral in "submitted". At least one contact
// method is required; a supplied phone number must parse.
func (s *Service) Submit(ctx context.Context, req models.SubmitReferralRequest) (*models.Referral, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if req.Phone == "" && req.Email == "" {
		return nil, domain.NewValidationError("referral requires at least one contact method (phone or email)")
	}
	if req.Phone != "" {
		normalized, err := phone.ToE164(req.Phone, "")
		if err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("invalid phone number: %v", err))
		}
		req.Phone = normalized
	}

	now := s.clock.Now()
	ref := &models.Referral{
		ID:         uuid.NewString(),
		ReferrerID: req.ReferrerID,
		RepID:      req.RepID,
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		Status:     models.StatusSubmitted,
		Value:      req.Value,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.SaveReferral(ctx, ref); err != nil {
		return nil, fmt.Errorf("failed to save referral: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordReferralSubmitted()
	}
	s.log.Info("referral submitted", "referral_id", ref.ID, "rep_id", ref.RepID)
	return ref, nil
}

// Transition applies a status change. Any move between the four pipeline
// values is accepted (backward moves are administrative overrides);
// anything outside the enum is rejected before any state mutates. A
// successful transition stamps updated_at, appends history, notifies the
// owning rep, and a move into "sold" feeds the incentive calculator and
// tax tracker.
func (s *Service) Transition(ctx context.Context, referralID, actorID string, req models.UpdateStatusRequest) (*models.Referral, error) {
	newStatus := models.ReferralStatus(req.Status)
	if !newStatus.Valid() {
		return nil, domain.NewInvalidStatusError(req.Status)
	}

	ref, err := s.store.GetReferral(ctx, referralID)
	if err != nil {
		return nil, err
	}

	if ref.Status == newStatus {
		return ref, nil
	}

	oldStatus := ref.Status
	now := s.clock.Now()
	ref.Status = newStatus
	ref.UpdatedAt = now

	if err := s.store.SaveReferral(ctx, ref); err != nil {
		return nil, fmt.Errorf("failed to save transition: %w", err)
	}

	if err := s.store.AppendStatusChange(ctx, &models.StatusChange{
		ReferralID: ref.ID,
		ActorID:    actorID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		Reason:     req.Reason,
		CreatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("failed to record status history: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(newStatus))
	}

	if err := s.notifyStatusChange(ctx, ref, oldStatus); err != nil {
		s.log.Error("failed to enqueue status-change notification",
			"referral_id", ref.ID, "error", err)
	}

	if newStatus == models.StatusSold {
		if err := s.incentives.HandleSale(ctx, ref.RepID); err != nil {
			s.log.Error("failed to recompute incentives after sale",
				"rep_id", ref.RepID, "error", err)
		}
		if _, err := s.taxes.UpdateYearlyEarnings(ctx, ref.RepID, now.Year(), ref.Value); err != nil {
			s.log.Error("failed to update yearly earnings after sale",
				"rep_id", ref.RepID, "error", err)
		}
	} else {
		// A move into contacted/quoted can complete the tier unlock just
		// as a sale can, so this must recompute, not merely invalidate.
		if err := s.incentives.Recompute(ctx, ref.RepID); err != nil {
			s.log.Error("failed to recompute incentives after transition",
				"rep_id", ref.RepID, "error", err)
		}
	}

	s.log.Info("referral transitioned", "referral_id", ref.ID,
		"from", string(oldStatus), "to", string(newStatus), "actor_id", actorID)
	return ref, nil
}

func (s *Service) notifyStatusChange(ctx context.Context, ref *models.Referral, oldStatus models.ReferralStatus) error {
	rep, err := s.reps.GetRep(ctx, ref.RepID)
	if err != nil {
		return err
	}

	priority := models.PriorityNormal
	if ref.Status == models.StatusSold {
		priority = models.PriorityHigh
	}

	return s.notifier.Enqueue(ctx, &models.Notification{
		Type:       models.TypeStatusChange,
		Title:      fmt.Sprintf("Referral %s is now %s", ref.Name, ref.Status),
		Message:    fmt.Sprintf("%s moved from %s to %s.", ref.Name, oldStatus, ref.Status),
		ReferralID: ref.ID,
		ActionURL:  fmt.Sprintf("%s/referrals/%s", s.frontendURL, ref.ID),
		Recipients: []models.Recipient{{
			ID: rep.ID, Name: rep.Name, Email: rep.Email, Phone: rep.Phone, Role: rep.Role,
		}},
		Channels: []models.Channel{models.ChannelInApp, models.ChannelEmail},
		Priority: priority,
	})
}

// List returns referrals matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter models.ReferralFilter) ([]models.Referral, error) {
	return s.store.ListReferrals(ctx, filter)
}

// Get fetches one referral.
func (s *Service) Get(ctx context.Context, id string) (*models.Referral, error) {
	return s.store.GetReferral(ctx, id)
}

// History returns a referral's transition log, newest first.
func (s *Service) History(ctx context.Context, referralID string) ([]models.StatusChange, error) {
	if _, err := s.store.GetReferral(ctx, referralID); err != nil {
		return nil, err
	}
	return s.store.ListStatusHistory(ctx, referralID)
}

// Stats derives per-status counts and the conversion rate for a rep.
func (s *Service) Stats(ctx context.Context, repID string) (*models.RepStats, error) {
	refs, err := s.store.ListReferrals(ctx, models.ReferralFilter{RepID: repID})
	if err != nil {
		return nil, fmt.Errorf("failed to load referrals: %w", err)
	}

	counts := make(map[models.ReferralStatus]int, 4)
	for _, status := range models.AllStatuses() {
		counts[status] = 0
	}
	for _, r := range refs {
		counts[r.Status]++
	}

	return &models.RepStats{
		TotalReferrals: len(refs),
		StatusCounts:   counts,
		ConversionRate: incentive.ConversionRate(counts[models.StatusSold], len(refs)),
	}, nil
}
