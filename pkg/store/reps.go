package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/models"
)

// GetRep fetches one rep account by id.
func (s *Store) GetRep(ctx context.Context, id string) (*models.Rep, error) {
	query := s.rebind(`SELECT id, name, email, phone, role, active, enrolled_at FROM reps WHERE id = ?`)

	var rep models.Rep
	err := s.db.QueryRowContext(ctx, query, id).Scan(&rep.ID, &rep.Name, &rep.Email,
		&rep.Phone, &rep.Role, &rep.Active, &rep.EnrolledAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("rep")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rep: %w", err)
	}
	return &rep, nil
}

// SaveRep inserts or updates a rep account.
func (s *Store) SaveRep(ctx context.Context, rep *models.Rep) error {
	query := s.rebind(`INSERT INTO reps (id, name, email, phone, role, active, enrolled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			role = excluded.role,
			active = excluded.active`)

	_, err := s.db.ExecContext(ctx, query, rep.ID, rep.Name, rep.Email, rep.Phone,
		string(rep.Role), rep.Active, rep.EnrolledAt)
	if err != nil {
		return fmt.Errorf("failed to save rep: %w", err)
	}
	return nil
}
