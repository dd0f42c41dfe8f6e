package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
)

// MockTransport is a scriptable http.RoundTripper for tests. Stubs are
// matched in registration order; the first match wins, then the default
// stub applies.
type MockTransport struct {
	mu       sync.Mutex
	stubs    []stub
	fallback *stub
	calls    []RecordedRequest
	hook     func(*http.Request)
}

// RecordedRequest is a request seen by the mock, with its body captured.
type RecordedRequest struct {
	*http.Request
	Body []byte
}

type stub struct {
	match   func(*http.Request) bool
	handler func(*http.Request) (*http.Response, error)
}

// NewMockTransport returns a mock with no stubs.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func staticHandler(status int, header http.Header, body []byte) func(*http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode:    status,
			Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
			Proto:         "HTTP/1.1",
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        header.Clone(),
			Body:          io.NopCloser(bytes.NewReader(body)),
			ContentLength: int64(len(body)),
			Request:       req,
		}, nil
	}
}

func jsonHeader() http.Header {
	return http.Header{"Content-Type": []string{"application/json"}}
}

// StubResponse answers every unmatched request with status and body.
func (m *MockTransport) StubResponse(status int, body string) *MockTransport {
	return m.setFallback(staticHandler(status, make(http.Header), []byte(body)))
}

// StubJSON answers every unmatched request with v encoded as JSON.
func (m *MockTransport) StubJSON(status int, v any) *MockTransport {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mock transport: encode stub: %v", err))
	}
	return m.setFallback(staticHandler(status, jsonHeader(), b))
}

// StubError fails every unmatched request with err.
func (m *MockTransport) StubError(err error) *MockTransport {
	return m.setFallback(func(*http.Request) (*http.Response, error) { return nil, err })
}

// StubPath answers requests for path.
func (m *MockTransport) StubPath(path string, status int, body string) *MockTransport {
	return m.StubFunc(func(r *http.Request) bool { return r.URL.Path == path }, status, body)
}

// StubRoute answers requests matching method and path with a JSON body.
func (m *MockTransport) StubRoute(method, path string, status int, body string) *MockTransport {
	return m.StubHandler(func(r *http.Request) bool {
		return r.Method == method && r.URL.Path == path
	}, staticHandler(status, jsonHeader(), []byte(body)))
}

// StubFunc answers requests accepted by match.
func (m *MockTransport) StubFunc(match func(*http.Request) bool, status int, body string) *MockTransport {
	return m.StubHandler(match, staticHandler(status, make(http.Header), []byte(body)))
}

// StubFuncError fails requests accepted by match with err.
func (m *MockTransport) StubFuncError(match func(*http.Request) bool, err error) *MockTransport {
	return m.StubHandler(match, func(*http.Request) (*http.Response, error) { return nil, err })
}

// StubHandler delegates requests accepted by match to handler.
func (m *MockTransport) StubHandler(
	match func(*http.Request) bool,
	handler func(*http.Request) (*http.Response, error),
) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = append(m.stubs, stub{match: match, handler: handler})
	return m
}

// OnRequest registers a hook run before each request is answered.
func (m *MockTransport) OnRequest(fn func(*http.Request)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = fn
	return m
}

func (m *MockTransport) setFallback(h func(*http.Request) (*http.Response, error)) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &stub{handler: h}
	return m
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		body = b
		req.Body = io.NopCloser(bytes.NewReader(b))
	}

	m.mu.Lock()
	m.calls = append(m.calls, RecordedRequest{Request: req, Body: body})
	hook := m.hook
	handler := m.lookup(req)
	m.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("mock transport: no stub for %s %s", req.Method, req.URL)
	}
	return handler(req)
}

func (m *MockTransport) lookup(req *http.Request) func(*http.Request) (*http.Response, error) {
	for _, s := range m.stubs {
		if s.match(req) {
			return s.handler
		}
	}
	if m.fallback != nil {
		return m.fallback.handler
	}
	return nil
}

// Requests returns every request seen so far.
func (m *MockTransport) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.calls...)
}

// RequestCount returns how many requests were seen.
func (m *MockTransport) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastRequest returns the most recent request, or nil.
func (m *MockTransport) LastRequest() *RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	last := m.calls[len(m.calls)-1]
	return &last
}

// Reset drops all stubs and recorded requests.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = nil
	m.fallback = nil
	m.calls = nil
	m.hook = nil
}
