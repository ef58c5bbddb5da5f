package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/models"
)

// GetTaxRecord fetches the earnings record for one rep-year.
func (s *Store) GetTaxRecord(ctx context.Context, repID string, year int) (*models.TaxRecord, error) {
	query := s.rebind(`SELECT rep_id, year, earnings, state, has_tax_info, backup_withholding, updated_at
		FROM tax_records WHERE rep_id = ? AND year = ?`)

	var rec models.TaxRecord
	err := s.db.QueryRowContext(ctx, query, repID, year).Scan(&rec.RepID, &rec.Year,
		&rec.Earnings, &rec.State, &rec.HasTaxInfo, &rec.BackupWithholding, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("tax record")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tax record: %w", err)
	}
	return &rec, nil
}

// SaveTaxRecord inserts or updates a rep-year earnings record.
func (s *Store) SaveTaxRecord(ctx context.Context, rec *models.TaxRecord) error {
	query := s.rebind(`INSERT INTO tax_records (rep_id, year, earnings, state, has_tax_info, backup_withholding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (rep_id, year) DO UPDATE SET
			earnings = excluded.earnings,
			state = excluded.state,
			has_tax_info = excluded.has_tax_info,
			backup_withholding = excluded.backup_withholding,
			updated_at = excluded.updated_at`)

	_, err := s.db.ExecContext(ctx, query, rec.RepID, rec.Year, rec.Earnings,
		string(rec.State), rec.HasTaxInfo, rec.BackupWithholding, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save tax record: %w", err)
	}
	return nil
}
