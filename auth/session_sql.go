package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kroma-labs/smoelen/sqlx"
)

const (
	sessionSchema = `CREATE TABLE IF NOT EXISTS session (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`
	sessionSelect = `SELECT value FROM session WHERE key = ?`
	sessionUpsert = `INSERT INTO session (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	sessionDelete = `DELETE FROM session WHERE key = ?`
)

// SQLStore keeps the session in a "session" table. Any driver that
// understands INSERT ... ON CONFLICT works; the CLI uses SQLite. Tracing
// and metrics come from the instrumented db.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps db. Call Migrate before first use.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQLStore opens driverName/dsn and creates the table.
func OpenSQLStore(ctx context.Context, driverName, dsn string, opts ...sqlx.Option) (*SQLStore, error) {
	db, err := sqlx.Open(driverName, dsn, opts...)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	s := NewSQLStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the session table when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sessionSchema); err != nil {
		return fmt.Errorf("migrate session table: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.db.Rebind(sessionSelect), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("sql get %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(sessionUpsert), key, value); err != nil {
		return fmt.Errorf("sql set %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(sessionDelete), key); err != nil {
		return fmt.Errorf("sql delete %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
