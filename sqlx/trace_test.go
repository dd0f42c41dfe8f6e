package sqlx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractOperation(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "given a select, then SELECT", query: "select value from session", want: "SELECT"},
		{name: "given leading whitespace, then it is ignored", query: "\n\tINSERT INTO t", want: "INSERT"},
		{name: "given a single word, then that word", query: "vacuum", want: "VACUUM"},
		{name: "given nothing, then empty", query: "  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractOperation(tt.query))
		})
	}
}

func TestSpanName(t *testing.T) {
	assert.Equal(t, "sqlx.Get: SELECT", spanName("sqlx.Get", "SELECT 1"))
	assert.Equal(t, "PING", spanName("PING", ""))
}

func TestDefaultQuerySanitizer(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "given string literals, then masked",
			query: `SELECT value FROM session WHERE key = 'token'`,
			want:  `SELECT value FROM session WHERE key = '?'`,
		},
		{
			name:  "given escaped quotes, then the whole literal is masked",
			query: `UPDATE session SET value = 'it\'s'`,
			want:  `UPDATE session SET value = '?'`,
		},
		{
			name:  "given numbers, then masked",
			query: `SELECT * FROM session LIMIT 10 OFFSET 2.5`,
			want:  `SELECT * FROM session LIMIT ? OFFSET ?`,
		},
		{
			name:  "given placeholders, then unchanged",
			query: `DELETE FROM session WHERE key = ?`,
			want:  `DELETE FROM session WHERE key = ?`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultQuerySanitizer(tt.query))
		})
	}
}
