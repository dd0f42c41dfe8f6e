package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DB is a *sqlx.DB whose GetContext, ExecContext and PingContext are
// traced and timed.
type DB struct {
	*sqlx.DB
	cfg *config
}

// Open opens driverName/dsn without connecting.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{DB: db, cfg: newConfig(opts...)}, nil
}

// NewDB wraps an open *sql.DB, for example one from go-sqlmock.
func NewDB(db *sql.DB, driverName string, opts ...Option) *DB {
	return &DB{DB: sqlx.NewDb(db, driverName), cfg: newConfig(opts...)}
}

// GetContext scans at most one row into dest. sql.ErrNoRows is returned
// as is and does not mark the span as failed.
func (db *DB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return db.instrument(ctx, "sqlx.Get", query, db.cfg.queryAttributes(query), func(ctx context.Context) error {
		return db.DB.GetContext(ctx, dest, query, args...)
	})
}

// ExecContext runs a statement that returns no rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := db.instrument(ctx, "sqlx.Exec", query, db.cfg.queryAttributes(query), func(ctx context.Context) error {
		var err error
		result, err = db.DB.ExecContext(ctx, query, args...)
		return err
	})
	return result, err
}

// PingContext verifies the connection.
func (db *DB) PingContext(ctx context.Context) error {
	return db.instrument(ctx, "PING", "", db.cfg.baseAttributes(), db.DB.PingContext)
}

// Rebind rewrites ? placeholders for the driver.
func (db *DB) Rebind(query string) string {
	return db.DB.Rebind(query)
}

// DriverName returns the driver the database was opened with.
func (db *DB) DriverName() string {
	return db.DB.DriverName()
}

func (db *DB) instrument(
	ctx context.Context,
	method, query string,
	attrs []attribute.KeyValue,
	call func(context.Context) error,
) error {
	start := time.Now()
	operation := extractOperation(query)
	if operation == "" {
		operation = method
	}

	ctx, span := db.cfg.Tracer.Start(ctx, spanName(method, query),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	err := call(ctx)

	failed := err
	if errors.Is(err, sql.ErrNoRows) {
		failed = nil
	}
	db.cfg.Metrics.recordQueryDuration(ctx, time.Since(start), operation, db.cfg.baseAttributes(), failed)

	if failed != nil {
		span.RecordError(failed)
		span.SetStatus(codes.Error, failed.Error())
	}
	return err
}
