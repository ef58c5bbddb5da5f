package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/referlink/backend/pkg/domain"
	"github.com/referlink/backend/pkg/models"
)

// Insert persists a new notification in the queue.
func (s *Store) Insert(ctx context.Context, n *models.Notification) error {
	recipients, err := json.Marshal(n.Recipients)
	if err != nil {
		return fmt.Errorf("failed to encode recipients: %w", err)
	}
	channels, err := json.Marshal(n.Channels)
	if err != nil {
		return fmt.Errorf("failed to encode channels: %w", err)
	}

	query := s.rebind(`INSERT INTO notifications
		(id, type, title, message, action_url, action_label, referral_id, recipients, channels, priority, read, status, created_at, scheduled_for, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = s.db.ExecContext(ctx, query, n.ID, string(n.Type), n.Title, n.Message,
		n.ActionURL, n.ActionLabel, n.ReferralID, string(recipients), string(channels),
		string(n.Priority), n.Read, string(n.Status), n.CreatedAt, n.ScheduledFor, n.SentAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

const notificationColumns = `id, type, title, message, action_url, action_label, referral_id, recipients, channels, priority, read, status, created_at, scheduled_for, sent_at`

func scanNotification(scan func(dest ...interface{}) error) (*models.Notification, error) {
	var n models.Notification
	var recipients, channels string
	var scheduledFor, sentAt sql.NullTime

	err := scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.ActionURL, &n.ActionLabel,
		&n.ReferralID, &recipients, &channels, &n.Priority, &n.Read, &n.Status,
		&n.CreatedAt, &scheduledFor, &sentAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(recipients), &n.Recipients); err != nil {
		return nil, fmt.Errorf("failed to decode recipients: %w", err)
	}
	if err := json.Unmarshal([]byte(channels), &n.Channels); err != nil {
		return nil, fmt.Errorf("failed to decode channels: %w", err)
	}
	if scheduledFor.Valid {
		t := scheduledFor.Time
		n.ScheduledFor = &t
	}
	if sentAt.Valid {
		t := sentAt.Time
		n.SentAt = &t
	}
	return &n, nil
}

// Get fetches one notification by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Notification, error) {
	query := s.rebind(`SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`)
	row := s.db.QueryRowContext(ctx, query, id)

	n, err := scanNotification(row.Scan)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("notification")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notification: %w", err)
	}
	return n, nil
}

// ListFor returns the notifications addressed to a recipient, newest
// first. limit <= 0 means no truncation.
func (s *Store) ListFor(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	// Recipients are stored as a JSON array; matching on the quoted id is
	// portable between sqlite and postgres without JSON operators.
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE recipients LIKE ? ORDER BY created_at DESC`
	args := []interface{}{`%"id":"` + recipientID + `"%`}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// Delete removes a notification from the retrievable set entirely.
func (s *Store) Delete(ctx context.Context, id string) error {
	query := s.rebind(`DELETE FROM notifications WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError("notification")
	}
	return nil
}

// MarkAllRead flips the read flag on every unread notification addressed
// to the recipient and returns how many rows changed. Entries stay in the
// queue; only Dismiss removes them.
func (s *Store) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	query := s.rebind(`UPDATE notifications SET read = TRUE WHERE read = FALSE AND recipients LIKE ?`)
	res, err := s.db.ExecContext(ctx, query, `%"id":"`+recipientID+`"%`)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check update result: %w", err)
	}
	return int(affected), nil
}

// MarkSent stamps the delivery outcome once all channel attempts have
// resolved.
func (s *Store) MarkSent(ctx context.Context, id string, status models.NotificationStatus, sentAt time.Time) error {
	query := s.rebind(`UPDATE notifications SET status = ?, sent_at = ? WHERE id = ?`)
	_, err := s.db.ExecContext(ctx, query, string(status), sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// HasOutstandingFollowUp reports whether an unread follow-up notification
// already exists for the referral. The staleness sweep uses this to avoid
// piling reminders onto the same referral.
func (s *Store) HasOutstandingFollowUp(ctx context.Context, referralID string) (bool, error) {
	query := s.rebind(`SELECT COUNT(1) FROM notifications
		WHERE referral_id = ? AND type = ? AND read = FALSE`)

	var count int
	err := s.db.QueryRowContext(ctx, query, referralID, string(models.TypeFollowUp)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check outstanding follow-up: %w", err)
	}
	return count > 0, nil
}

// ClaimDedupeKey records a one-shot trigger key. The first caller wins;
// every later claim of the same key returns false.
func (s *Store) ClaimDedupeKey(ctx context.Context, key string) (bool, error) {
	query := s.rebind(`INSERT INTO notification_dedupe (key, claimed_at) VALUES (?, ?)
		ON CONFLICT (key) DO NOTHING`)

	res, err := s.db.ExecContext(ctx, query, key, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to claim dedupe key: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claim result: %w", err)
	}
	return affected > 0, nil
}

// HasDedupeKey reports whether a trigger key was already claimed.
func (s *Store) HasDedupeKey(ctx context.Context, key string) (bool, error) {
	query := s.rebind(`SELECT COUNT(1) FROM notification_dedupe WHERE key = ?`)

	var count int
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check dedupe key: %w", err)
	}
	return count > 0, nil
}
