package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// Response is the typed envelope returned by Request.
//
// It embeds the raw *http.Response (status, headers). The body has already
// been read and closed; use Bytes or String for the raw content.
//
// At most one of Data, Error and DecodeErr is set:
//   - 2xx and the body parsed: Data
//   - non-2xx and the body parsed: Error
//   - the body could not be parsed: DecodeErr
//
// With FormatNone all three stay nil.
type Response[T, E any] struct {
	*http.Response

	Data      *T
	Error     *E
	DecodeErr error

	body        []byte
	curlCommand string
}

// ErrNoData is returned by Result when a response carries no parsed data.
var ErrNoData = errors.New("httpclient: response has no data")

// Result returns the parsed success payload. A body that failed to parse
// yields DecodeErr; an envelope without data yields ErrNoData.
func (r *Response[T, E]) Result() (T, error) {
	var zero T
	if r == nil {
		return zero, ErrNoData
	}
	if r.DecodeErr != nil {
		return zero, r.DecodeErr
	}
	if r.Data == nil {
		return zero, ErrNoData
	}
	return *r.Data, nil
}

// OK reports whether the status code is 2xx.
func (r *Response[T, E]) OK() bool {
	return r.Response != nil && isSuccess(r.StatusCode)
}

// Bytes returns the raw response body.
func (r *Response[T, E]) Bytes() []byte {
	return r.body
}

// String returns the raw response body as a string.
func (r *Response[T, E]) String() string {
	return string(r.body)
}

// CurlCommand returns the equivalent cURL command when the client was
// built WithCurl.
func (r *Response[T, E]) CurlCommand() string {
	return r.curlCommand
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

var (
	errTextTarget  = errors.New("text format requires a string type")
	errBytesTarget = errors.New("bytes format requires a []byte type")
)

// decodeInto parses body per format into a new value of type V.
func decodeInto[V any](format ResponseFormat, body []byte) (*V, error) {
	out := new(V)

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("decode json response: %w", err)
		}
	case FormatText:
		s, ok := any(out).(*string)
		if !ok {
			return nil, errTextTarget
		}
		*s = string(body)
	case FormatBytes:
		b, ok := any(out).(*[]byte)
		if !ok {
			return nil, errBytesTarget
		}
		*b = body
	default:
		return nil, fmt.Errorf("unknown response format %q", format)
	}

	return out, nil
}

// parse fills the envelope from the cached body.
func (r *Response[T, E]) parse(format ResponseFormat) {
	if format == FormatNone {
		return
	}

	if r.OK() {
		r.Data, r.DecodeErr = decodeInto[T](format, r.body)
		return
	}
	r.Error, r.DecodeErr = decodeInto[E](format, r.body)
}

// failure builds the error returned with a non-2xx envelope.
func (r *Response[T, E]) failure() *RequestFailedError {
	rf := &RequestFailedError{
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Body:       r.body,
		Response:   r.Response,
	}
	if req := r.Request; req != nil {
		rf.Method = req.Method
		rf.URL = req.URL.String()
	}

	switch {
	case r.Error != nil:
		rf.Payload = r.Error
	case r.DecodeErr != nil:
		rf.Payload = r.DecodeErr
	}
	return rf
}
