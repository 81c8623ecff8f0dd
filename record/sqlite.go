package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"paymentpanel/record/migrations"
)

// SQLiteStore persists opportunities in SQLite
type SQLiteStore struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}

// OpenSQLite opens the database at path and applies embedded migrations
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite handle
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateOpportunity inserts one opportunity
func (s *SQLiteStore) CreateOpportunity(ctx context.Context, opp Opportunity) error {
	id := strings.TrimSpace(opp.ID)
	if id == "" {
		return fmt.Errorf("opportunity id is required")
	}
	now := time.Now().UTC()
	if opp.CreatedAt.IsZero() {
		opp.CreatedAt = now
	}
	if opp.UpdatedAt.IsZero() {
		opp.UpdatedAt = opp.CreatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO opportunities (
		   id, name, amount, currency, payment_status, payment_link_url,
		   reference_id, last_sync_at, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		strings.TrimSpace(opp.Name),
		opp.Amount,
		strings.ToLower(opp.Currency),
		opp.PaymentStatus,
		opp.PaymentLinkURL,
		opp.ReferenceID,
		toMillis(opp.LastSyncAt),
		toMillis(opp.CreatedAt),
		toMillis(opp.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create opportunity: %w", err)
	}
	return nil
}

// GetOpportunity returns one opportunity by id
func (s *SQLiteStore) GetOpportunity(ctx context.Context, id string) (Opportunity, error) {
	row := s.db.QueryRowContext(ctx, selectOpportunity+` WHERE id = ?`, id)
	return scanOpportunity(row)
}

// FindByReference returns the opportunity whose payment link has referenceID
func (s *SQLiteStore) FindByReference(ctx context.Context, referenceID string) (Opportunity, error) {
	if strings.TrimSpace(referenceID) == "" {
		return Opportunity{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, selectOpportunity+` WHERE reference_id = ? LIMIT 1`, referenceID)
	return scanOpportunity(row)
}

// UpdatePaymentLink writes the link fields of one opportunity together
func (s *SQLiteStore) UpdatePaymentLink(ctx context.Context, id string, link PaymentLink) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE opportunities
		 SET payment_link_url = ?, reference_id = ?, payment_status = ?, last_sync_at = ?, updated_at = ?
		 WHERE id = ?`,
		link.URL, link.ReferenceID, link.Status, toMillis(link.SyncedAt), toMillis(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update payment link: %w", err)
	}
	return requireAffected(res)
}

// UpdatePaymentStatus sets the canonical payment status of one opportunity
func (s *SQLiteStore) UpdatePaymentStatus(ctx context.Context, id, status string, syncedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE opportunities SET payment_status = ?, last_sync_at = ?, updated_at = ? WHERE id = ?`,
		status, toMillis(syncedAt), toMillis(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return requireAffected(res)
}

const selectOpportunity = `SELECT id, name, amount, currency, payment_status, payment_link_url,
  reference_id, last_sync_at, created_at, updated_at FROM opportunities`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(row rowScanner) (Opportunity, error) {
	var (
		opp                            Opportunity
		lastSync, createdAt, updatedAt int64
	)
	err := row.Scan(
		&opp.ID, &opp.Name, &opp.Amount, &opp.Currency, &opp.PaymentStatus,
		&opp.PaymentLinkURL, &opp.ReferenceID, &lastSync, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Opportunity{}, ErrNotFound
		}
		return Opportunity{}, fmt.Errorf("scan opportunity: %w", err)
	}
	opp.LastSyncAt = fromMillis(lastSync)
	opp.CreatedAt = fromMillis(createdAt)
	opp.UpdatedAt = fromMillis(updatedAt)
	return opp, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
