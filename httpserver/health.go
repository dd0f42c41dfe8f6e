package httpserver

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status              string `json:"status"`
	Latency             string `json:"latency"`
	Message             string `json:"message,omitempty"`
	ConsecutiveFailures int    `json:"consecutive_failures,omitempty"`
}

// HealthResponse is the data of a probe response.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

type checkState struct {
	check    HealthCheck
	failures int
}

// HealthHandler serves /livez and /readyz.
//
// The gateway registers readiness checks for the session store and the
// photo API; liveness has no checks and only proves the process answers.
type HealthHandler struct {
	serviceName string
	version     string
	startTime   time.Time

	mu        sync.Mutex
	liveness  map[string]*checkState
	readiness map[string]*checkState
}

// HealthOption configures a HealthHandler.
type HealthOption func(*HealthHandler)

// withHealthServiceName is applied by the server through WithHealth.
func withHealthServiceName(name string) HealthOption {
	return func(h *HealthHandler) {
		h.serviceName = name
	}
}

// WithVersion sets the version reported in probe responses.
func WithVersion(version string) HealthOption {
	return func(h *HealthHandler) {
		h.version = version
	}
}

// NewHealthHandler creates a HealthHandler. Prefer WithHealth, which fills in
// the server's name.
func NewHealthHandler(opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{
		serviceName: DefaultServiceName,
		version:     "dev",
		startTime:   time.Now(),
		liveness:    make(map[string]*checkState),
		readiness:   make(map[string]*checkState),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddLivenessCheck registers a check for /livez.
func (h *HealthHandler) AddLivenessCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness[name] = &checkState{check: check}
}

// AddReadinessCheck registers a check for /readyz.
func (h *HealthHandler) AddReadinessCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness[name] = &checkState{check: check}
}

// LiveHandler answers 200 when every liveness check passes, 503 otherwise.
func (h *HealthHandler) LiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, h.liveness)
	})
}

// ReadyHandler answers 200 when every readiness check passes, 503 otherwise.
func (h *HealthHandler) ReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, h.readiness)
	})
}

func (h *HealthHandler) serve(w http.ResponseWriter, r *http.Request, checks map[string]*checkState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]CheckResult, len(checks))
	var errs []Error

	for _, name := range names {
		state := checks[name]
		start := time.Now()
		err := state.check(r.Context())

		result := CheckResult{Status: "ok", Latency: time.Since(start).String()}
		if err != nil {
			state.failures++
			result.Status = "fail"
			result.Message = err.Error()
			result.ConsecutiveFailures = state.failures
			errs = append(errs, Error{Field: name, Message: err.Error()})
		} else {
			state.failures = 0
		}
		results[name] = result
	}

	data := HealthResponse{
		Status:    "ok",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    results,
	}

	if len(errs) > 0 {
		data.Status = "fail"
		WriteJSON(w, http.StatusServiceUnavailable, Response[HealthResponse]{
			Data:    data,
			Errors:  errs,
			Message: "one or more checks failed",
		})
		return
	}
	WriteSuccess(w, http.StatusOK, data, "all checks passed")
}
