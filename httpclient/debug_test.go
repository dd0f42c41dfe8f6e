package httpclient

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurlCommand(t *testing.T) {
	tests := []struct {
		name   string
		method string
		url    string
		header map[string]string
		body   []byte
		want   string
	}{
		{
			name:   "given a GET, then omits the method flag",
			method: http.MethodGet,
			url:    "http://api.local/albums",
			want:   "curl 'http://api.local/albums'",
		},
		{
			name:   "given a POST with body and headers, then renders sorted headers and data",
			method: http.MethodPost,
			url:    "http://api.local/albums",
			header: map[string]string{"Content-Type": "application/json", "Authorization": "Bearer t0k"},
			body:   []byte(`{"name":"it's"}`),
			want: `curl -X POST 'http://api.local/albums' -H 'Authorization: Bearer ***' ` +
				`-H 'Content-Type: application/json' --data-binary '{"name":"it'\''s"}'`,
		},
		{
			name:   "given an authorization value without a scheme, then masks all of it",
			method: http.MethodDelete,
			url:    "http://api.local/items/1",
			header: map[string]string{"Authorization": "raw"},
			want:   "curl -X DELETE 'http://api.local/items/1' -H 'Authorization: ***'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, tt.url, nil)
			require.NoError(t, err)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, curlCommand(req, tt.body))
		})
	}
}

func TestDebugLogging(t *testing.T) {
	tests := []struct {
		name      string
		mock      *MockTransport
		wantLines []string
	}{
		{
			name: "given a successful request, then logs request and response at debug",
			mock: NewMockTransport().StubResponse(http.StatusOK, "ok"),
			wantLines: []string{
				`"level":"debug"`, `"message":"http request"`,
				`"message":"http response"`, `"status":200`,
			},
		},
		{
			name: "given a client error, then logs the response at warn",
			mock: NewMockTransport().StubResponse(http.StatusNotFound, ""),
			wantLines: []string{
				`"level":"warn"`, `"status":404`,
			},
		},
		{
			name: "given a transport failure, then logs the failure",
			mock: NewMockTransport().StubError(errors.New("refused")),
			wantLines: []string{
				`"message":"http request failed"`, `"error_type":"unknown"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			client := newTestClient(tt.mock, WithDebug(true), WithLogger(zerolog.New(&buf)))

			_, _ = Request[any, any](context.Background(), client, FullRequest{
				Path:  "/albums",
				Query: QueryParams{"signature": "s3cr3t"},
			})

			out := buf.String()
			for _, want := range tt.wantLines {
				assert.Contains(t, out, want)
			}
			assert.False(t, strings.Contains(out, "s3cr3t"), "signature leaked into logs")
		})
	}
}

func TestLogResponse_Duration(t *testing.T) {
	var buf bytes.Buffer
	req, _ := http.NewRequest(http.MethodGet, "http://api.local/albums", nil)
	resp := &http.Response{StatusCode: http.StatusOK, ContentLength: 2}

	logResponse(zerolog.New(&buf), req, resp, 1500*time.Millisecond)

	assert.Contains(t, buf.String(), `"duration":1500`)
}
