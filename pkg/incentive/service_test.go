package incentive

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	goredis "github.com/redis/go-redis/v9"
	"github.com/referlink/backend/config"
	"github.com/referlink/backend/pkg/cache"
	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/models"
	"github.com/referlink/backend/pkg/notify"
	"github.com/referlink/backend/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProgramConfig() config.ProgramConfig {
	return config.ProgramConfig{
		FollowUpAfterDays:     3,
		Tier1Amount:           125,
		Tier2Amount:           50,
		Tier3Amount:           10,
		ContactedRequired:     10,
		ClosedRequired:        5,
		TaxThreshold:          599,
		TaxApproaching:        500,
		BackupWithholdingRate: 24,
	}
}

func setupTestService(t *testing.T, c domain.CacheRepository) (*Service, *store.Store) {
	st, err := store.Open("sqlite3", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	notifier := notify.NewService(st, nil, nil, nil, nil, nil, notify.Options{})
	return NewService(st, st, notifier, c, testProgramConfig(), nil, nil), st
}

func seedRep(t *testing.T, st *store.Store, repID string) {
	t.Helper()
	require.NoError(t, st.SaveRep(context.Background(), &models.Rep{
		ID:         repID,
		Name:       "Dana Reyes",
		Email:      "dana@example.com",
		Role:       models.RoleRep,
		Active:     true,
		EnrolledAt: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
	}))
}

// seedReferrals inserts counts of referrals per status for one rep.
func seedReferrals(t *testing.T, st *store.Store, repID string, byStatus map[models.ReferralStatus]int) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for status, count := range byStatus {
		for i := 0; i < count; i++ {
			require.NoError(t, st.SaveReferral(ctx, &models.Referral{
				ID:         uuid.NewString(),
				ReferrerID: "referrer-1",
				RepID:      repID,
				Name:       "Customer",
				Email:      "customer@example.com",
				Status:     status,
				Value:      150,
				CreatedAt:  now,
				UpdatedAt:  now,
			}))
		}
	}
}

func milestoneCount(t *testing.T, st *store.Store, repID string) int {
	t.Helper()
	list, err := st.ListFor(context.Background(), repID, 0)
	require.NoError(t, err)
	count := 0
	for _, n := range list {
		if n.Type == models.TypeMilestone {
			count++
		}
	}
	return count
}

func TestCompute(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - No referrals means nothing active", func(t *testing.T) {
		svc, st := setupTestService(t, nil)
		seedRep(t, st, "rep-1")

		state, err := svc.Compute(ctx, "rep-1")
		require.NoError(t, err)
		assert.False(t, state.Tier1Active)
		assert.False(t, state.Tier2Unlocked)
		assert.Zero(t, state.TotalEarnings)
		assert.Zero(t, state.PendingEarnings)
	})

	t.Run("Success - Progress short of both requirements stays locked", func(t *testing.T) {
		svc, st := setupTestService(t, nil)
		seedRep(t, st, "rep-1")
		seedReferrals(t, st, "rep-1", map[models.ReferralStatus]int{
			models.StatusContacted: 6,
			models.StatusSold:      3,
		})

		state, err := svc.Compute(ctx, "rep-1")
		require.NoError(t, err)
		assert.True(t, state.Tier1Active)
		assert.False(t, state.Tier2Unlocked)
		assert.False(t, state.Tier3Unlocked)
		assert.Equal(t, 9, state.Progress.ContactedCount) // sold counts as contacted-or-beyond
		assert.Equal(t, 3, state.Progress.SoldCount)
		assert.Equal(t, int64(3*125), state.TotalEarnings)
		assert.Equal(t, int64(6*125), state.PendingEarnings)
	})

	t.Run("Success - Meeting both requirements unlocks tiers 2 and 3 with one notification", func(t *testing.T) {
		svc, st := setupTestService(t, nil)
		seedRep(t, st, "rep-1")
		seedReferrals(t, st, "rep-1", map[models.ReferralStatus]int{
			models.StatusContacted: 5,
			models.StatusSold:      5,
		})

		state, err := svc.Compute(ctx, "rep-1")
		require.NoError(t, err)
		assert.True(t, state.Tier2Unlocked)
		assert.True(t, state.Tier3Unlocked)
		assert.Equal(t, 10, state.Progress.ContactedCount)
		assert.Equal(t, 1, milestoneCount(t, st, "rep-1"))

		// Recomputation is idempotent: still unlocked, still one notification.
		state, err = svc.Compute(ctx, "rep-1")
		require.NoError(t, err)
		assert.True(t, state.Tier2Unlocked)
		assert.Equal(t, 1, milestoneCount(t, st, "rep-1"))
	})

	t.Run("Success - Contacted alone is not enough", func(t *testing.T) {
		svc, st := setupTestService(t, nil)
		seedRep(t, st, "rep-1")
		seedReferrals(t, st, "rep-1", map[models.ReferralStatus]int{
			models.StatusContacted: 15,
			models.StatusSold:      4,
		})

		state, err := svc.Compute(ctx, "rep-1")
		require.NoError(t, err)
		assert.False(t, state.Tier2Unlocked)
		assert.Equal(t, 0, milestoneCount(t, st, "rep-1"))
	})

	t.Run("Success - Unlock survives an administrative rollback", func(t *testing.T) {
		svc, st := setupTestService(t, nil)
		seedRep(t, st, "rep-1")
		seedReferrals(t, st, "rep-1", map[models.ReferralStatus]int{
			models.StatusContacted: 5,
			models.StatusSold:      5,
		})

		state, err := svc.Compute(ctx, "rep-1")
		require.NoError(t, err)
		require.True(t, state.Tier2Unlocked)

		// Roll one sale back to quoted; counts drop below the requirement.
		refs, err := st.ListReferrals(ctx, models.ReferralFilter{RepID: "rep-1", Status: models.StatusSold})
		require.NoError(t, err)
		rolled := refs[0]
		rolled.Status = models.StatusQuoted
		require.NoError(t, st.SaveReferral(ctx, &rolled))

		state, err = svc.Compute(ctx, "rep-1")
		require.NoError(t, err)
		assert.True(t, state.Tier2Unlocked, "unlocks are monotonic")
		assert.True(t, state.Tier3Unlocked)
		assert.Equal(t, 4, state.Progress.SoldCount)
		assert.Equal(t, 1, milestoneCount(t, st, "rep-1"))
	})

	t.Run("Success - Milestone retries after a failed emit", func(t *testing.T) {
		svc, st := setupTestService(t, nil)
		// No rep record yet, so the first recompute cannot build the
		// notification even though the unlock predicate holds.
		seedReferrals(t, st, "rep-1", map[models.ReferralStatus]int{
			models.StatusContacted: 5,
			models.StatusSold:      5,
		})

		state, err := svc.Compute(ctx, "rep-1")
		require.NoError(t, err)
		assert.True(t, state.Tier2Unlocked)
		assert.Equal(t, 0, milestoneCount(t, st, "rep-1"))

		// The failed attempt must not consume the one-shot trigger; once
		// the rep exists the next recompute emits it.
		seedRep(t, st, "rep-1")
		_, err = svc.Compute(ctx, "rep-1")
		require.NoError(t, err)
		assert.Equal(t, 1, milestoneCount(t, st, "rep-1"))

		// Still exactly once thereafter.
		_, err = svc.Compute(ctx, "rep-1")
		require.NoError(t, err)
		assert.Equal(t, 1, milestoneCount(t, st, "rep-1"))
	})

	t.Run("Success - Reps are independent", func(t *testing.T) {
		svc, st := setupTestService(t, nil)
		seedRep(t, st, "rep-1")
		seedRep(t, st, "rep-2")
		seedReferrals(t, st, "rep-1", map[models.ReferralStatus]int{
			models.StatusContacted: 5,
			models.StatusSold:      5,
		})
		seedReferrals(t, st, "rep-2", map[models.ReferralStatus]int{
			models.StatusContacted: 2,
		})

		s1, err := svc.Compute(ctx, "rep-1")
		require.NoError(t, err)
		s2, err := svc.Compute(ctx, "rep-2")
		require.NoError(t, err)
		assert.True(t, s1.Tier2Unlocked)
		assert.False(t, s2.Tier2Unlocked)
	})
}

func TestComputeWithCache(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := &cache.Client{Redis: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	defer client.Close()

	svc, st := setupTestService(t, client)
	seedRep(t, st, "rep-1")
	seedReferrals(t, st, "rep-1", map[models.ReferralStatus]int{models.StatusSold: 2})

	first, err := svc.Compute(ctx, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, int64(250), first.TotalEarnings)

	// A stale snapshot serves until invalidated.
	seedReferrals(t, st, "rep-1", map[models.ReferralStatus]int{models.StatusSold: 1})
	cached, err := svc.Compute(ctx, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, int64(250), cached.TotalEarnings)

	svc.Invalidate(ctx, "rep-1")
	fresh, err := svc.Compute(ctx, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, int64(375), fresh.TotalEarnings)
}

func TestHandleSale(t *testing.T) {
	ctx := context.Background()
	svc, st := setupTestService(t, nil)
	seedRep(t, st, "rep-1")
	seedReferrals(t, st, "rep-1", map[models.ReferralStatus]int{
		models.StatusContacted: 5,
		models.StatusSold:      5,
	})

	require.NoError(t, svc.HandleSale(ctx, "rep-1"))
	assert.Equal(t, 1, milestoneCount(t, st, "rep-1"))

	// A second sale event recomputes without a second milestone.
	require.NoError(t, svc.HandleSale(ctx, "rep-1"))
	assert.Equal(t, 1, milestoneCount(t, st, "rep-1"))
}

func TestConversionRate(t *testing.T) {
	assert.Equal(t, 0.0, ConversionRate(0, 0))
	assert.Equal(t, 0.0, ConversionRate(0, 7))
	assert.Equal(t, 100.0, ConversionRate(5, 5))
	assert.Equal(t, 33.3, ConversionRate(1, 3))
	assert.Equal(t, 66.7, ConversionRate(2, 3))
	assert.Equal(t, 12.5, ConversionRate(1, 8))
}
