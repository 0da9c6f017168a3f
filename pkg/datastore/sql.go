// Package datastore provides client-local key-value storage backed by SQLite.
package datastore

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NicolasHaas/gopanel/pkg/crypto"
)

const dbTimeLayout = "2006-01-02 15:04:05"

// SQLite stores key-value pairs in a single table. When a sealer is
// configured, values are encrypted at rest and bound to their key.
type SQLite struct {
	DB     *sql.DB
	sealer *crypto.Sealer
}

// Option configures a SQLite store.
type Option func(*SQLite)

// WithSealer encrypts stored values with s.
func WithSealer(s *crypto.Sealer) Option {
	return func(st *SQLite) { st.sealer = s }
}

// Open opens (or creates) a SQLite database and runs migrations.
func Open(dbPath string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("datastore: open DB: %w", err)
	}

	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: set WAL: %w", err)
	}
	// GUI and CLI may share the file
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: set busy_timeout: %w", err)
	}

	s := &SQLite{DB: db}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datastore: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.DB.Close()
}

func (s *SQLite) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS local_storage (
		key        TEXT NOT NULL PRIMARY KEY CHECK(length(key) > 0),
		value      TEXT NOT NULL,
		sealed     INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	);
	`
	if err := s.ensureSchemaMigrations(ctx); err != nil {
		return err
	}
	currentVersion, err := s.getSchemaVersion(ctx)
	if err != nil {
		return err
	}

	migrations := []struct {
		version    int
		statements []string
	}{
		{
			version:    1,
			statements: []string{schema},
		},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		for _, stmt := range m.statements {
			if err := s.execMigration(ctx, stmt); err != nil {
				return err
			}
		}
		if err := s.setSchemaVersion(ctx, m.version); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) ensureSchemaMigrations(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("datastore: create schema_migrations: %w", err)
	}
	var count int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return fmt.Errorf("datastore: check schema_migrations: %w", err)
	}
	if count == 0 {
		if _, err := s.DB.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (0)"); err != nil {
			return fmt.Errorf("datastore: init schema_migrations: %w", err)
		}
	}
	return nil
}

func (s *SQLite) getSchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.DB.QueryRowContext(ctx, "SELECT version FROM schema_migrations LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("datastore: read schema version: %w", err)
	}
	return version, nil
}

func (s *SQLite) setSchemaVersion(ctx context.Context, version int) error {
	if _, err := s.DB.ExecContext(ctx, "UPDATE schema_migrations SET version = ?", version); err != nil {
		return fmt.Errorf("datastore: update schema version: %w", err)
	}
	return nil
}

func (s *SQLite) execMigration(ctx context.Context, stmt string) error {
	if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("datastore: migrate: %w", err)
	}
	return nil
}

func formatDBTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

// Get returns the value stored under key.
func (s *SQLite) Get(key string) (string, bool, error) {
	var value string
	var sealed bool
	err := s.DB.QueryRowContext(context.Background(), "SELECT value, sealed FROM local_storage WHERE key = ?", key).
		Scan(&value, &sealed)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("datastore: get %s: %w", key, err)
	}
	if !sealed {
		return value, true, nil
	}
	if s.sealer == nil {
		return "", false, fmt.Errorf("datastore: get %s: value is sealed and no key is configured", key)
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return "", false, fmt.Errorf("datastore: get %s: %w", key, err)
	}
	plain, err := s.sealer.Open(key, raw)
	if err != nil {
		return "", false, fmt.Errorf("datastore: get %s: %w", key, err)
	}
	return string(plain), true, nil
}

// Set stores value under key, sealing it when a sealer is configured.
func (s *SQLite) Set(key, value string) error {
	stored, sealed := value, false
	if s.sealer != nil {
		raw, err := s.sealer.Seal(key, []byte(value))
		if err != nil {
			return fmt.Errorf("datastore: set %s: %w", key, err)
		}
		stored, sealed = base64.StdEncoding.EncodeToString(raw), true
	}
	_, err := s.DB.ExecContext(context.Background(), `
		INSERT INTO local_storage (key, value, sealed, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, sealed = excluded.sealed, updated_at = excluded.updated_at`,
		key, stored, sealed, formatDBTime(time.Now()))
	if err != nil {
		return fmt.Errorf("datastore: set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys in a single transaction.
func (s *SQLite) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx := context.Background()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("datastore: delete: %w", err)
	}
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM local_storage WHERE key = ?", key); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("datastore: delete %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("datastore: delete: %w", err)
	}
	return nil
}
