package tax

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/referlink/backend/config"
	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/logger"
	"github.com/referlink/backend/pkg/metrics"
	"github.com/referlink/backend/pkg/models"
	"github.com/referlink/backend/pkg/notify"
)

// Service tracks per rep-year sold-referral earnings against the
// reporting threshold. State moves one way only:
// below_warning -> approaching -> over_threshold_pending_info -> compliant.
type Service struct {
	store    domain.TaxStore
	reps     domain.RepStore
	notifier *notify.Service
	cfg      config.ProgramConfig
	clock    domain.Clock
	log      logger.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new tax threshold tracker.
func NewService(store domain.TaxStore, reps domain.RepStore, notifier *notify.Service,
	cfg config.ProgramConfig, clock domain.Clock, log logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Default()
	}
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Service{
		store:    store,
		reps:     reps,
		notifier: notifier,
		cfg:      cfg,
		clock:    clock,
		log:      log,
		metrics:  m,
		validate: validator.New(),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Service) repYearLock(repID string, year int) *sync.Mutex {
	key := fmt.Sprintf("%s:%d", repID, year)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func thresholdKey(repID string, year int) string {
	return fmt.Sprintf("tax-threshold:%s:%d", repID, year)
}

// UpdateYearlyEarnings adds one sold referral's value to the rep-year
// total and applies any resulting state transition. Crossing the
// threshold emits exactly one tax-threshold notification per rep-year.
func (s *Service) UpdateYearlyEarnings(ctx context.Context, repID string, year int, amount int64) (*models.TaxRecord, error) {
	lock := s.repYearLock(repID, year)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.load(ctx, repID, year)
	if err != nil {
		return nil, err
	}

	rec.Earnings += amount
	return s.apply(ctx, rec)
}

// Reconcile sets the rep-year total to an absolute figure computed from
// the referral history. The sweep uses this to repair drift; totals never
// shrink.
func (s *Service) Reconcile(ctx context.Context, repID string, year int, total int64) (*models.TaxRecord, error) {
	lock := s.repYearLock(repID, year)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.load(ctx, repID, year)
	if err != nil {
		return nil, err
	}
	if total <= rec.Earnings {
		return rec, nil
	}

	rec.Earnings = total
	return s.apply(ctx, rec)
}

func (s *Service) load(ctx context.Context, repID string, year int) (*models.TaxRecord, error) {
	rec, err := s.store.GetTaxRecord(ctx, repID, year)
	if domain.IsNotFound(err) {
		return &models.TaxRecord{
			RepID: repID,
			Year:  year,
			State: models.TaxBelowWarning,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// apply recomputes the record's state from its earnings and persists it.
// Caller holds the rep-year lock.
func (s *Service) apply(ctx context.Context, rec *models.TaxRecord) (*models.TaxRecord, error) {
	crossed := false
	switch {
	case rec.State == models.TaxCompliant:
		// Terminal for this rep-year.
	case rec.Earnings >= s.cfg.TaxThreshold:
		if rec.State != models.TaxPendingInfo {
			crossed = true
		}
		rec.State = models.TaxPendingInfo
	case rec.Earnings >= s.cfg.TaxApproaching:
		rec.State = models.TaxApproaching
	default:
		rec.State = models.TaxBelowWarning
	}

	rec.UpdatedAt = s.clock.Now()
	if err := s.store.SaveTaxRecord(ctx, rec); err != nil {
		return nil, err
	}

	if crossed {
		if err := s.fireThresholdOnce(ctx, rec); err != nil {
			s.log.Error("failed to emit tax threshold notification",
				"rep_id", rec.RepID, "year", rec.Year, "error", err)
		}
	}
	return rec, nil
}

func (s *Service) fireThresholdOnce(ctx context.Context, rec *models.TaxRecord) error {
	claimed, err := s.notifier.ClaimTrigger(ctx, thresholdKey(rec.RepID, rec.Year))
	if err != nil {
		return err
	}
	if !claimed {
		// Re-crossing an already-crossed threshold is an expected no-op.
		return nil
	}

	rep, err := s.reps.GetRep(ctx, rec.RepID)
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordTaxThresholdCrossed()
	}

	priority := models.PriorityHigh
	if rec.HasTaxInfo {
		priority = models.PriorityNormal
	}

	return s.notifier.Enqueue(ctx, &models.Notification{
		Type:  models.TypeTaxThreshold,
		Title: "Tax information required",
		Message: fmt.Sprintf("Your %d referral earnings reached %d. Please submit your tax information so payouts can continue.",
			rec.Year, rec.Earnings),
		Recipients: []models.Recipient{{
			ID: rep.ID, Name: rep.Name, Email: rep.Email, Phone: rep.Phone, Role: rep.Role,
		}},
		Channels: []models.Channel{models.ChannelInApp, models.ChannelEmail},
		Priority: priority,
	})
}

// ProvideTaxInfo records a rep's tax details for a year. Valid only from
// over_threshold_pending_info; once compliant, the state is terminal for
// that rep-year.
func (s *Service) ProvideTaxInfo(ctx context.Context, repID string, year int, info models.TaxInfoRequest) (*models.TaxRecord, error) {
	if err := s.validate.Struct(info); err != nil {
		return nil, domain.NewValidationError("tax info requires legal name and mailing address")
	}

	lock := s.repYearLock(repID, year)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.load(ctx, repID, year)
	if err != nil {
		return nil, err
	}
	if rec.State != models.TaxPendingInfo {
		return nil, domain.NewInvalidStateError(
			fmt.Sprintf("tax info can only be provided while over the reporting threshold (current state: %s)", rec.State))
	}

	rec.HasTaxInfo = true
	// No taxpayer ID means backup withholding applies. Informational
	// only; no money moves here.
	rec.BackupWithholding = info.TaxpayerID == ""
	rec.State = models.TaxCompliant
	rec.UpdatedAt = s.clock.Now()

	if err := s.store.SaveTaxRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetState returns the rep-year record, or a fresh below_warning record
// when no earnings have been recorded yet.
func (s *Service) GetState(ctx context.Context, repID string, year int) (*models.TaxRecord, error) {
	return s.load(ctx, repID, year)
}
