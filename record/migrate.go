package record

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"paymentpanel/logger"
)

const (
	migrationsTable = "schema_migrations"
	sectionUp       = "-- +migrate Up"
	sectionDown     = "-- +migrate Down"
)

// migration is one embedded schema file reduced to its up section
type migration struct {
	name string
	up   string
}

// loadMigrations reads every .sql file of fsys in name order. Files with an
// empty up section are skipped.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	slices.Sort(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		up := strings.TrimSpace(upSection(string(content)))
		if up == "" {
			continue
		}
		out = append(out, migration{name: path.Base(name), up: up})
	}
	return out, nil
}

// upSection returns the SQL between the up and down markers. Content
// without an up marker is treated as up-only.
func upSection(content string) string {
	_, after, found := strings.Cut(content, sectionUp)
	if !found {
		return content
	}
	before, _, _ := strings.Cut(after, sectionDown)
	return before
}

// appliedMigrations returns the names already recorded in the migrations table
func appliedMigrations(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM "+migrationsTable)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// runMigration executes m and records it in one transaction
func runMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return fmt.Errorf("exec migration %s: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+migrationsTable+" (name, applied_at) VALUES (?, ?)",
		m.name, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record migration %s: %w", m.name, err)
	}
	return tx.Commit()
}

// applyMigrations brings db up to date with fsys and returns how many files ran
func applyMigrations(ctx context.Context, db *sql.DB, fsys fs.FS) (int, error) {
	pending, err := loadMigrations(fsys)
	if err != nil {
		return 0, err
	}

	if _, err := db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS "+migrationsTable+" (name TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)",
	); err != nil {
		return 0, fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, m := range pending {
		if applied[m.name] {
			continue
		}
		if err := runMigration(ctx, db, m); err != nil {
			return ran, err
		}
		logger.FromContext(ctx).Info("Schema migration applied", "migration", m.name)
		ran++
	}
	return ran, nil
}
