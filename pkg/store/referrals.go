package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/models"
)

// ListReferrals returns referrals matching the filter, newest first.
func (s *Store) ListReferrals(ctx context.Context, filter models.ReferralFilter) ([]models.Referral, error) {
	query := `SELECT id, referrer_id, rep_id, name, phone, email, status, value, notes, created_at, updated_at
		FROM referrals WHERE 1=1`
	args := []interface{}{}

	if filter.RepID != "" {
		query += " AND rep_id = ?"
		args = append(args, filter.RepID)
	}
	if filter.ReferrerID != "" {
		query += " AND referrer_id = ?"
		args = append(args, filter.ReferrerID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query referrals: %w", err)
	}
	defer rows.Close()

	var out []models.Referral
	for rows.Next() {
		var r models.Referral
		if err := rows.Scan(&r.ID, &r.ReferrerID, &r.RepID, &r.Name, &r.Phone, &r.Email,
			&r.Status, &r.Value, &r.Notes, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan referral: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetReferral fetches one referral by id.
func (s *Store) GetReferral(ctx context.Context, id string) (*models.Referral, error) {
	query := s.rebind(`SELECT id, referrer_id, rep_id, name, phone, email, status, value, notes, created_at, updated_at
		FROM referrals WHERE id = ?`)

	var r models.Referral
	err := s.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.ReferrerID, &r.RepID, &r.Name,
		&r.Phone, &r.Email, &r.Status, &r.Value, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("referral")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch referral: %w", err)
	}
	return &r, nil
}

// SaveReferral inserts or updates a referral record.
func (s *Store) SaveReferral(ctx context.Context, ref *models.Referral) error {
	query := s.rebind(`INSERT INTO referrals (id, referrer_id, rep_id, name, phone, email, status, value, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			referrer_id = excluded.referrer_id,
			rep_id = excluded.rep_id,
			name = excluded.name,
			phone = excluded.phone,
			email = excluded.email,
			status = excluded.status,
			value = excluded.value,
			notes = excluded.notes,
			updated_at = excluded.updated_at`)

	_, err := s.db.ExecContext(ctx, query, ref.ID, ref.ReferrerID, ref.RepID, ref.Name,
		ref.Phone, ref.Email, string(ref.Status), ref.Value, ref.Notes, ref.CreatedAt, ref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save referral: %w", err)
	}
	return nil
}

// AppendStatusChange records one transition in the referral's history.
func (s *Store) AppendStatusChange(ctx context.Context, change *models.StatusChange) error {
	query := s.rebind(`INSERT INTO referral_status_history (referral_id, actor_id, old_status, new_status, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query, change.ReferralID, change.ActorID,
		string(change.OldStatus), string(change.NewStatus), change.Reason, change.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// ListStatusHistory returns a referral's transitions, newest first.
func (s *Store) ListStatusHistory(ctx context.Context, referralID string) ([]models.StatusChange, error) {
	query := s.rebind(`SELECT id, referral_id, actor_id, old_status, new_status, reason, created_at
		FROM referral_status_history WHERE referral_id = ? ORDER BY created_at DESC, id DESC`)

	rows, err := s.db.QueryContext(ctx, query, referralID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var out []models.StatusChange
	for rows.Next() {
		var c models.StatusChange
		if err := rows.Scan(&c.ID, &c.ReferralID, &c.ActorID, &c.OldStatus, &c.NewStatus, &c.Reason, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
