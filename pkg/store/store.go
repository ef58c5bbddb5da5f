package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Store implements the engine's persistence interfaces on database/sql.
// Postgres (lib/pq) in production, sqlite (mattn/go-sqlite3) in tests and
// local development.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and bootstraps the schema.
func Open(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed opening %s connection: %w", driver, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed pinging database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed creating schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks if the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	historyID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == "postgres" {
		historyID = "SERIAL PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS referrals (
			id         TEXT PRIMARY KEY,
			referrer_id TEXT NOT NULL,
			rep_id     TEXT NOT NULL,
			name       TEXT NOT NULL,
			phone      TEXT NOT NULL DEFAULT '',
			email      TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL,
			value      BIGINT NOT NULL,
			notes      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS referral_status_history (
			id         %s,
			referral_id TEXT NOT NULL,
			actor_id   TEXT NOT NULL,
			old_status TEXT NOT NULL,
			new_status TEXT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`, historyID),
		`CREATE TABLE IF NOT EXISTS notifications (
			id           TEXT PRIMARY KEY,
			type         TEXT NOT NULL,
			title        TEXT NOT NULL,
			message      TEXT NOT NULL,
			action_url   TEXT NOT NULL DEFAULT '',
			action_label TEXT NOT NULL DEFAULT '',
			referral_id  TEXT NOT NULL DEFAULT '',
			recipients   TEXT NOT NULL,
			channels     TEXT NOT NULL,
			priority     TEXT NOT NULL,
			read         BOOLEAN NOT NULL DEFAULT FALSE,
			status       TEXT NOT NULL,
			created_at   TIMESTAMP NOT NULL,
			scheduled_for TIMESTAMP,
			sent_at      TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notification_dedupe (
			key        TEXT PRIMARY KEY,
			claimed_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tax_records (
			rep_id             TEXT NOT NULL,
			year               INTEGER NOT NULL,
			earnings           BIGINT NOT NULL DEFAULT 0,
			state              TEXT NOT NULL,
			has_tax_info       BOOLEAN NOT NULL DEFAULT FALSE,
			backup_withholding BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at         TIMESTAMP NOT NULL,
			PRIMARY KEY (rep_id, year)
		)`,
		`CREATE TABLE IF NOT EXISTS reps (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			email       TEXT NOT NULL DEFAULT '',
			phone       TEXT NOT NULL DEFAULT '',
			role        TEXT NOT NULL DEFAULT 'rep',
			active      BOOLEAN NOT NULL DEFAULT TRUE,
			enrolled_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_referrals_rep ON referrals (rep_id)`,
		`CREATE INDEX IF NOT EXISTS idx_referrals_status ON referrals (status)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_referral ON notifications (referral_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// rebind converts ?-style placeholders to $N for the postgres driver.
// sqlite accepts ? as-is.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
