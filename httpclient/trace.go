package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http/httptrace"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Values of the error.type attribute for requests that got no response.
const (
	ErrorTypeTimeout           = "timeout"
	ErrorTypeCancelled         = "cancelled"
	ErrorTypeConnectionRefused = "connection_refused"
	ErrorTypeConnectionReset   = "connection_reset"
	ErrorTypeDNS               = "dns_error"
	ErrorTypeTLS               = "tls_error"
	ErrorTypeRateLimited       = "rate_limited"
	ErrorTypeCircuitOpen       = "circuit_open"
	ErrorTypeEOF               = "eof"
	ErrorTypeUnknown           = "unknown"
)

// networkTrace collects connection timings from httptrace hooks.
type networkTrace struct {
	mu sync.Mutex

	dnsStart, dnsDone         time.Time
	connectStart, connectDone time.Time
	tlsStart, tlsDone         time.Time
	wroteRequest, firstByte   time.Time

	reused bool
	remote string
}

func (nt *networkTrace) mark(t *time.Time) {
	nt.mu.Lock()
	*t = time.Now()
	nt.mu.Unlock()
}

func (nt *networkTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart:          func(httptrace.DNSStartInfo) { nt.mark(&nt.dnsStart) },
		DNSDone:           func(httptrace.DNSDoneInfo) { nt.mark(&nt.dnsDone) },
		ConnectStart:      func(_, _ string) { nt.mark(&nt.connectStart) },
		ConnectDone:       func(_, _ string, _ error) { nt.mark(&nt.connectDone) },
		TLSHandshakeStart: func() { nt.mark(&nt.tlsStart) },
		TLSHandshakeDone:  func(tls.ConnectionState, error) { nt.mark(&nt.tlsDone) },
		WroteRequest:      func(httptrace.WroteRequestInfo) { nt.mark(&nt.wroteRequest) },
		GotFirstResponseByte: func() {
			nt.mark(&nt.firstByte)
		},
		GotConn: func(info httptrace.GotConnInfo) {
			nt.mu.Lock()
			defer nt.mu.Unlock()
			nt.reused = info.Reused
			if info.Conn != nil && info.Conn.RemoteAddr() != nil {
				nt.remote = info.Conn.RemoteAddr().String()
			}
		},
	}
}

// addEvents records the collected phases as span events.
func (nt *networkTrace) addEvents(span trace.Span) {
	nt.mu.Lock()
	defer nt.mu.Unlock()

	phase := func(name string, start, end time.Time) {
		if d, ok := elapsed(start, end); ok {
			span.AddEvent(name, trace.WithTimestamp(end),
				trace.WithAttributes(attribute.Int64(name+".duration_ms", d.Milliseconds())))
		}
	}
	phase("dns", nt.dnsStart, nt.dnsDone)
	phase("connect", nt.connectStart, nt.connectDone)
	phase("tls", nt.tlsStart, nt.tlsDone)
	phase("ttfb", nt.wroteRequest, nt.firstByte)

	span.SetAttributes(attribute.Bool("http.connection.reused", nt.reused))
	if nt.remote != "" {
		span.SetAttributes(attribute.String("network.peer.address", nt.remote))
	}
}

// classifyError maps a transport error to an error.type value.
func classifyError(err error) string {
	var (
		netErr  net.Error
		dnsErr  *net.DNSError
		certErr *tls.CertificateVerificationError
		recErr  tls.RecordHeaderError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return ErrorTypeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, ErrRateLimited):
		return ErrorTypeRateLimited
	case errors.As(err, &dnsErr):
		return ErrorTypeDNS
	case errors.As(err, &certErr), errors.As(err, &recErr):
		return ErrorTypeTLS
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrorTypeConnectionRefused
	case errors.Is(err, syscall.ECONNRESET):
		return ErrorTypeConnectionReset
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return ErrorTypeEOF
	case errors.As(err, &netErr) && netErr.Timeout():
		return ErrorTypeTimeout
	case isCircuitOpen(err):
		return ErrorTypeCircuitOpen
	default:
		return ErrorTypeUnknown
	}
}

func setSpanError(span trace.Span, err error, errorType string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.type", errorType))
}
