package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRequestFailed matches every *RequestFailedError via errors.Is.
var ErrRequestFailed = errors.New("httpclient: request failed")

// RequestFailedError is returned alongside the envelope when the server
// answers with a non-2xx status.
type RequestFailedError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string

	// Payload is the decoded error body (*E), the decode error when the
	// body could not be parsed, or nil when the response was not parsed.
	Payload any

	// Body is the raw response body.
	Body []byte

	Response *http.Response
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

func (e *RequestFailedError) Unwrap() error {
	return ErrRequestFailed
}

// AsRequestFailed unwraps err into a *RequestFailedError.
func AsRequestFailed(err error) (*RequestFailedError, bool) {
	var rf *RequestFailedError
	if errors.As(err, &rf) {
		return rf, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not
// a *RequestFailedError.
func StatusCode(err error) int {
	if rf, ok := AsRequestFailed(err); ok {
		return rf.StatusCode
	}
	return 0
}
