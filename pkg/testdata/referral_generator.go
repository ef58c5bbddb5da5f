package testdata

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/referlink/backend/pkg/models"
)

// ReferralGeneratorConfig configures referral generation parameters
type ReferralGeneratorConfig struct {
	RepID       string
	ReferrerID  string
	Count       int
	Status      models.ReferralStatus
	MinValue    int64   // whole currency units
	MaxValue    int64   // whole currency units
	EmailChance float64 // 0.0-1.0 (probability of having email)
	PhoneChance float64
	MaxAgeDays  int // created_at spread backward from now
}

// DefaultConfig returns sensible defaults for seeding a dev environment.
func DefaultConfig(repID string) ReferralGeneratorConfig {
	return ReferralGeneratorConfig{
		RepID:       repID,
		ReferrerID:  uuid.NewString(),
		Count:       25,
		Status:      models.StatusSubmitted,
		MinValue:    80,
		MaxValue:    450,
		EmailChance: 0.8,
		PhoneChance: 0.9,
		MaxAgeDays:  14,
	}
}

// GenerateReferrals produces fake referrals for tests and seed data. Every
// record has at least one contact method regardless of the configured
// chances.
func GenerateReferrals(cfg ReferralGeneratorConfig) []models.Referral {
	if cfg.Count <= 0 {
		return nil
	}
	if cfg.MaxValue <= cfg.MinValue {
		cfg.MaxValue = cfg.MinValue + 1
	}
	if !cfg.Status.Valid() {
		cfg.Status = models.StatusSubmitted
	}

	now := time.Now().UTC()
	refs := make([]models.Referral, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		ref := models.Referral{
			ID:         uuid.NewString(),
			ReferrerID: cfg.ReferrerID,
			RepID:      cfg.RepID,
			Name:       gofakeit.Name(),
			Status:     cfg.Status,
			Value:      cfg.MinValue + rand.Int63n(cfg.MaxValue-cfg.MinValue),
			Notes:      gofakeit.Sentence(8),
		}

		if rand.Float64() < cfg.EmailChance {
			ref.Email = gofakeit.Email()
		}
		if rand.Float64() < cfg.PhoneChance || ref.Email == "" {
			ref.Phone = fmt.Sprintf("+1303555%04d", rand.Intn(10000))
		}

		age := time.Duration(0)
		if cfg.MaxAgeDays > 0 {
			age = time.Duration(rand.Intn(cfg.MaxAgeDays*24)) * time.Hour
		}
		ref.CreatedAt = now.Add(-age)
		ref.UpdatedAt = ref.CreatedAt

		refs = append(refs, ref)
	}
	return refs
}

// GenerateRep produces a fake rep account.
func GenerateRep() *models.Rep {
	return &models.Rep{
		ID:         uuid.NewString(),
		Name:       gofakeit.Name(),
		Email:      gofakeit.Email(),
		Phone:      fmt.Sprintf("+1720555%04d", rand.Intn(10000)),
		Role:       models.RoleRep,
		Active:     true,
		EnrolledAt: time.Now().UTC().AddDate(0, -6, 0),
	}
}
