package sqlx

import (
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

var (
	stringLiteralRegex  = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)
	numericLiteralRegex = regexp.MustCompile(`\b\d+\.?\d*\b`)
	hexLiteralRegex     = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)
)

// extractOperation returns the statement's first word, upper-cased, or ""
// for an empty statement.
func extractOperation(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	if i := strings.IndexAny(query, " \t\n\r"); i >= 0 {
		query = query[:i]
	}
	return strings.ToUpper(query)
}

// spanName is "<method>: <OPERATION>", or just method when the statement
// is empty.
func spanName(method, query string) string {
	if op := extractOperation(query); op != "" {
		return method + ": " + op
	}
	return method
}

func (cfg *config) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if cfg.DBSystem != "" {
		attrs = append(attrs, attribute.String("db.system", cfg.DBSystem))
	}
	if cfg.DBName != "" {
		attrs = append(attrs, attribute.String("db.name", cfg.DBName))
	}
	return attrs
}

func (cfg *config) queryAttributes(query string) []attribute.KeyValue {
	attrs := cfg.baseAttributes()

	if !cfg.DisableQuery && query != "" {
		statement := query
		if cfg.QuerySanitizer != nil {
			statement = cfg.QuerySanitizer(query)
		}
		attrs = append(attrs, attribute.String("db.statement", statement))
	}
	if op := extractOperation(query); op != "" {
		attrs = append(attrs, attribute.String("db.operation", op))
	}
	return attrs
}

// DefaultQuerySanitizer replaces string, numeric and hex literals with
// placeholders so values never reach a trace.
func DefaultQuerySanitizer(query string) string {
	query = stringLiteralRegex.ReplaceAllString(query, "'?'")
	query = numericLiteralRegex.ReplaceAllString(query, "?")
	return hexLiteralRegex.ReplaceAllString(query, "?")
}
