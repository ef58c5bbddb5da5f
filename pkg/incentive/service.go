package incentive

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/referlink/backend/config"
	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/logger"
	"github.com/referlink/backend/pkg/metrics"
	"github.com/referlink/backend/pkg/models"
	"github.com/referlink/backend/pkg/notify"
)

// cacheTTL bounds how long a cached incentive snapshot may serve reads.
const cacheTTL = 5 * time.Minute

// Service computes per-rep commission state: tier-1 payouts, tier-2/3
// unlock progress and the one-shot milestone notification.
type Service struct {
	store    domain.ReferralStore
	reps     domain.RepStore
	notifier *notify.Service
	cache    domain.CacheRepository
	cfg      config.ProgramConfig
	log      logger.Logger
	metrics  *metrics.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new incentive service. cache and m may be nil.
func NewService(store domain.ReferralStore, reps domain.RepStore, notifier *notify.Service,
	cache domain.CacheRepository, cfg config.ProgramConfig, log logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		store:    store,
		reps:     reps,
		notifier: notifier,
		cache:    cache,
		cfg:      cfg,
		log:      log,
		metrics:  m,
		locks:    make(map[string]*sync.Mutex),
	}
}

// repLock returns the serialization lock for one rep. Reps are
// independent, so there is no global lock.
func (s *Service) repLock(repID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[repID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[repID] = l
	}
	return l
}

func milestoneKey(repID string) string {
	return "milestone:" + repID
}

func cacheKey(repID string) string {
	return "incentive:" + repID
}

// Compute derives the rep's full incentive state from lifetime referral
// history. Recomputation is idempotent: the milestone notification fires
// exactly once per rep no matter how often this runs, and an unlock is
// never revoked.
func (s *Service) Compute(ctx context.Context, repID string) (*models.IncentiveState, error) {
	lock := s.repLock(repID)
	lock.Lock()
	defer lock.Unlock()

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey(repID)); err == nil && raw != "" {
			var state models.IncentiveState
			if err := json.Unmarshal([]byte(raw), &state); err == nil {
				return &state, nil
			}
		}
	}

	state, err := s.compute(ctx, repID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(state); err == nil {
			if err := s.cache.Set(ctx, cacheKey(repID), string(raw), cacheTTL); err != nil {
				s.log.Warn("failed to cache incentive state", "rep_id", repID, "error", err)
			}
		}
	}
	return state, nil
}

func (s *Service) compute(ctx context.Context, repID string) (*models.IncentiveState, error) {
	refs, err := s.store.ListReferrals(ctx, models.ReferralFilter{RepID: repID})
	if err != nil {
		return nil, fmt.Errorf("failed to load referrals: %w", err)
	}

	var contactedOrBeyond, sold, nonSold int
	for _, r := range refs {
		if r.Status.AtLeast(models.StatusContacted) {
			contactedOrBeyond++
		}
		if r.Status == models.StatusSold {
			sold++
		} else {
			nonSold++
		}
	}

	unlocked := contactedOrBeyond >= s.cfg.ContactedRequired && sold >= s.cfg.ClosedRequired

	if unlocked {
		if err := s.fireMilestoneOnce(ctx, repID); err != nil {
			// The unlock itself stands; only the notification failed.
			s.log.Error("failed to emit milestone notification", "rep_id", repID, "error", err)
		}
	} else {
		// Unlocks are monotonic. A previously claimed milestone keeps the
		// tiers open even if an administrative rollback shrank the counts.
		already, err := s.notifier.TriggerClaimed(ctx, milestoneKey(repID))
		if err != nil {
			return nil, err
		}
		unlocked = already
	}

	return &models.IncentiveState{
		Tier1Active:     len(refs) > 0,
		Tier2Unlocked:   unlocked,
		Tier3Unlocked:   unlocked,
		TotalEarnings:   int64(sold) * s.cfg.Tier1Amount,
		PendingEarnings: int64(nonSold) * s.cfg.Tier1Amount,
		Progress: models.TierProgress{
			ContactedCount:    contactedOrBeyond,
			ContactedRequired: s.cfg.ContactedRequired,
			SoldCount:         sold,
			SoldRequired:      s.cfg.ClosedRequired,
		},
	}, nil
}

func (s *Service) fireMilestoneOnce(ctx context.Context, repID string) error {
	already, err := s.notifier.TriggerClaimed(ctx, milestoneKey(repID))
	if err != nil {
		return err
	}
	if already {
		// Already fired for this rep; expected no-op.
		return nil
	}

	rep, err := s.reps.GetRep(ctx, repID)
	if err != nil {
		return err
	}

	// Enqueue before claiming the key. A failure here leaves the key
	// unclaimed so the next recompute retries; callers hold the per-rep
	// lock, so two fires for the same rep cannot interleave.
	err = s.notifier.Enqueue(ctx, &models.Notification{
		Type:    models.TypeMilestone,
		Title:   "Multi-level commissions unlocked",
		Message: fmt.Sprintf("Congratulations %s! You've unlocked tier 2 and tier 3 commissions on your downstream referrals.", rep.Name),
		Recipients: []models.Recipient{{
			ID: rep.ID, Name: rep.Name, Email: rep.Email, Phone: rep.Phone, Role: rep.Role,
		}},
		Channels: []models.Channel{models.ChannelInApp, models.ChannelEmail},
		Priority: models.PriorityHigh,
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordMilestoneUnlocked()
	}

	if _, err := s.notifier.ClaimTrigger(ctx, milestoneKey(repID)); err != nil {
		return err
	}
	return nil
}

// Recompute drops the cached snapshot and re-derives the rep's state.
// Status transitions call this so an unlock completed by the move emits
// its milestone notification from the call that caused it, not from some
// later read.
func (s *Service) Recompute(ctx context.Context, repID string) error {
	s.Invalidate(ctx, repID)
	_, err := s.Compute(ctx, repID)
	return err
}

// HandleSale recomputes a rep's incentive state after a referral is sold.
// Called synchronously from the status transition.
func (s *Service) HandleSale(ctx context.Context, repID string) error {
	return s.Recompute(ctx, repID)
}

// Invalidate drops the cached snapshot for a rep. Safe to call with no
// cache configured.
func (s *Service) Invalidate(ctx context.Context, repID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(repID)); err != nil {
		s.log.Warn("failed to invalidate incentive cache", "rep_id", repID, "error", err)
	}
}

// ConversionRate returns sold/total as a percentage rounded half-up to
// one decimal place.
func ConversionRate(sold, total int) float64 {
	if total == 0 {
		return 0
	}
	rate := float64(sold) / float64(total) * 100
	return math.Floor(rate*10+0.5) / 10
}
