// Package sqlx wraps github.com/jmoiron/sqlx with OpenTelemetry tracing
// and query-duration metrics.
//
// Only the calls the session store needs are instrumented: GetContext,
// ExecContext and PingContext. Everything else is reachable through the
// embedded *sqlx.DB, untraced.
//
//	db, err := sqlx.Open("sqlite", path,
//	    sqlx.WithDBSystem("sqlite"),
//	    sqlx.WithQuerySanitizer(sqlx.DefaultQuerySanitizer),
//	)
//
//	var value string
//	err = db.GetContext(ctx, &value, db.Rebind("SELECT value FROM session WHERE key = ?"), key)
//
// Every call produces a client span named after the method and the
// statement's first word ("sqlx.Get: SELECT") carrying db.system, db.name,
// db.operation and, unless disabled, db.statement. Durations are recorded
// in the db.client.operation.duration histogram.
package sqlx
