package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/followup"
	"github.com/referlink/backend/pkg/logger"
	"github.com/referlink/backend/pkg/metrics"
	"github.com/referlink/backend/pkg/models"
	"github.com/referlink/backend/pkg/notify"
	"github.com/referlink/backend/pkg/tax"
)

// Sweeper is the single proactive component in the engine: a periodic
// pass that flags stale referrals and reconciles yearly tax totals. All
// other triggers fire reactively from status transitions.
type Sweeper struct {
	store       domain.ReferralStore
	reps        domain.RepStore
	detector    *followup.Detector
	notifier    *notify.Service
	taxes       *tax.Service
	clock       domain.Clock
	log         logger.Logger
	metrics     *metrics.Metrics
	frontendURL string
}

// NewSweeper creates a sweeper.
func NewSweeper(store domain.ReferralStore, reps domain.RepStore, detector *followup.Detector,
	notifier *notify.Service, taxes *tax.Service, clock domain.Clock,
	log logger.Logger, m *metrics.Metrics, frontendURL string) *Sweeper {
	if log == nil {
		log = logger.Default()
	}
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Sweeper{
		store:       store,
		reps:        reps,
		detector:    detector,
		notifier:    notifier,
		taxes:       taxes,
		clock:       clock,
		log:         log,
		metrics:     m,
		frontendURL: frontendURL,
	}
}

// Run executes one full sweep: staleness scan then tax reconciliation.
// Safe to run concurrently with status transitions; it reads snapshots
// and the queue suppresses duplicate reminders.
func (s *Sweeper) Run(ctx context.Context) error {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordSweepDuration(time.Since(start))
		}
	}()

	if err := s.scanStale(ctx); err != nil {
		return fmt.Errorf("staleness scan failed: %w", err)
	}
	if err := s.reconcileTax(ctx); err != nil {
		return fmt.Errorf("tax reconciliation failed: %w", err)
	}
	return nil
}

func (s *Sweeper) scanStale(ctx context.Context) error {
	refs, err := s.store.ListReferrals(ctx, models.ReferralFilter{Status: models.StatusSubmitted})
	if err != nil {
		return err
	}

	now := s.clock.Now()
	stale := s.detector.ScanForStale(refs, now)
	if len(stale) == 0 {
		s.log.Debug("sweep found no stale referrals")
		return nil
	}

	flagged := 0
	for _, ref := range stale {
		// One outstanding reminder per referral; re-scans must not pile
		// duplicates onto the queue.
		outstanding, err := s.notifier.HasOutstandingFollowUp(ctx, ref.ID)
		if err != nil {
			s.log.Error("failed to check outstanding follow-up", "referral_id", ref.ID, "error", err)
			continue
		}
		if outstanding {
			continue
		}

		rep, err := s.reps.GetRep(ctx, ref.RepID)
		if err != nil {
			s.log.Error("failed to load rep for follow-up", "rep_id", ref.RepID, "error", err)
			continue
		}

		days := int(now.Sub(ref.CreatedAt).Hours() / 24)
		err = s.notifier.Enqueue(ctx, &models.Notification{
			Type:        models.TypeFollowUp,
			Title:       fmt.Sprintf("Follow up with %s", ref.Name),
			Message:     fmt.Sprintf("%s was referred %d days ago and hasn't been contacted yet.", ref.Name, days),
			ReferralID:  ref.ID,
			ActionURL:   fmt.Sprintf("%s/reps/%s/referrals/intake", s.frontendURL, rep.ID),
			ActionLabel: "Open referral",
			Recipients: []models.Recipient{{
				ID: rep.ID, Name: rep.Name, Email: rep.Email, Phone: rep.Phone, Role: rep.Role,
			}},
			Channels: []models.Channel{models.ChannelInApp, models.ChannelEmail, models.ChannelSMS},
			Priority: models.PriorityHigh,
		})
		if err != nil {
			s.log.Error("failed to enqueue follow-up", "referral_id", ref.ID, "error", err)
			continue
		}

		flagged++
		if s.metrics != nil {
			s.metrics.RecordFollowUpFlagged()
		}
	}

	s.log.Info("staleness scan complete", "stale", len(stale), "flagged", flagged)
	return nil
}

// reconcileTax recomputes this year's sold totals per rep from referral
// history and pushes them through the tracker. Totals never shrink, so
// reactive updates and the sweep can overlap safely.
func (s *Sweeper) reconcileTax(ctx context.Context) error {
	sold, err := s.store.ListReferrals(ctx, models.ReferralFilter{Status: models.StatusSold})
	if err != nil {
		return err
	}

	year := s.clock.Now().Year()
	totals := make(map[string]int64)
	for _, ref := range sold {
		if s.soldYear(ctx, ref) != year {
			continue
		}
		totals[ref.RepID] += ref.Value
	}

	for repID, total := range totals {
		if _, err := s.taxes.Reconcile(ctx, repID, year, total); err != nil {
			s.log.Error("failed to reconcile tax record", "rep_id", repID, "year", year, "error", err)
		}
	}

	s.log.Info("tax reconciliation complete", "year", year, "reps", len(totals))
	return nil
}

// soldYear attributes a sale to the year of the history row that moved
// the referral into "sold". updated_at moves on any later administrative
// correction, so it cannot date the sale; it is only the fallback when
// no history row exists.
func (s *Sweeper) soldYear(ctx context.Context, ref models.Referral) int {
	history, err := s.store.ListStatusHistory(ctx, ref.ID)
	if err != nil {
		s.log.Error("failed to load status history", "referral_id", ref.ID, "error", err)
		return ref.UpdatedAt.Year()
	}
	// History is newest first. The earliest "sold" entry is the original
	// sale; a backward-then-forward correction must not move the revenue
	// into the year of the correction.
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].NewStatus == models.StatusSold {
			return history[i].CreatedAt.Year()
		}
	}
	return ref.UpdatedAt.Year()
}
