package followup

import (
	"testing"
	"time"

	"github.com/referlink/backend/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestIsFollowUpNeeded(t *testing.T) {
	detector := NewDetector(3)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	t.Run("Success - Exactly at threshold is stale", func(t *testing.T) {
		ref := models.Referral{
			Status:    models.StatusSubmitted,
			CreatedAt: now.Add(-3 * 24 * time.Hour),
		}
		assert.True(t, detector.IsFollowUpNeeded(ref, now))
	})

	t.Run("Success - One second under threshold is not stale", func(t *testing.T) {
		ref := models.Referral{
			Status:    models.StatusSubmitted,
			CreatedAt: now.Add(-3*24*time.Hour + time.Second),
		}
		assert.False(t, detector.IsFollowUpNeeded(ref, now))
	})

	t.Run("Success - Well past threshold is stale", func(t *testing.T) {
		ref := models.Referral{
			Status:    models.StatusSubmitted,
			CreatedAt: now.Add(-10 * 24 * time.Hour),
		}
		assert.True(t, detector.IsFollowUpNeeded(ref, now))
	})

	t.Run("Success - Contacted referral is never stale", func(t *testing.T) {
		ref := models.Referral{
			Status:    models.StatusContacted,
			CreatedAt: now.Add(-30 * 24 * time.Hour),
		}
		assert.False(t, detector.IsFollowUpNeeded(ref, now))
	})

	t.Run("Success - Sold referral is never stale", func(t *testing.T) {
		ref := models.Referral{
			Status:    models.StatusSold,
			CreatedAt: now.Add(-30 * 24 * time.Hour),
		}
		assert.False(t, detector.IsFollowUpNeeded(ref, now))
	})

	t.Run("Success - Repeated calls give the same answer", func(t *testing.T) {
		ref := models.Referral{
			Status:    models.StatusSubmitted,
			CreatedAt: now.Add(-4 * 24 * time.Hour),
		}
		first := detector.IsFollowUpNeeded(ref, now)
		second := detector.IsFollowUpNeeded(ref, now)
		assert.Equal(t, first, second)
		assert.Equal(t, models.StatusSubmitted, ref.Status) // never mutated
	})
}

func TestScanForStale(t *testing.T) {
	detector := NewDetector(3)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	refs := []models.Referral{
		{ID: "stale-1", Status: models.StatusSubmitted, CreatedAt: now.Add(-5 * 24 * time.Hour)},
		{ID: "fresh", Status: models.StatusSubmitted, CreatedAt: now.Add(-1 * 24 * time.Hour)},
		{ID: "contacted", Status: models.StatusContacted, CreatedAt: now.Add(-5 * 24 * time.Hour)},
		{ID: "stale-2", Status: models.StatusSubmitted, CreatedAt: now.Add(-3 * 24 * time.Hour)},
	}

	stale := detector.ScanForStale(refs, now)
	assert.Len(t, stale, 2)
	assert.Equal(t, "stale-1", stale[0].ID)
	assert.Equal(t, "stale-2", stale[1].ID)
}

func TestThreshold(t *testing.T) {
	assert.Equal(t, 72*time.Hour, NewDetector(3).Threshold())
	assert.Equal(t, 24*time.Hour, NewDetector(1).Threshold())
}
