package errors

// Network helpers for mapping transport failures and HTTP statuses to ErrorCode and retry semantics

import (
	"context"
	stderrs "errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// httpStatusCode maps a non-success HTTP status to an ErrorCode
// 5xx and 429 are transient; everything else is a permanent fetch failure
func httpStatusCode(status int) ErrorCode {
	switch {
	case status == http.StatusNotFound:
		return ErrorCodeNotFound
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= http.StatusInternalServerError:
		return ErrorCodeUnavailable
	default:
		return ErrorCodeFetch
	}
}

// FromHTTPStatus builds an error for an unexpected HTTP status
func FromHTTPStatus(status int, url string) error {
	return Newf(httpStatusCode(status), "unexpected status %d for %s", status, url)
}

// FromTransport wraps a client.Do error; transient network conditions map to Unavailable
// If err is nil, returns nil
func FromTransport(err error, msg string) error {
	if err == nil {
		return nil
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return Wrap(err, ErrorCodeCanceled, msg)
	}
	if isTransientNet(err) {
		return Wrap(err, ErrorCodeUnavailable, msg)
	}
	return Wrap(err, ErrorCodeFetch, msg)
}

// IsRetryable reports whether an error represents a transient condition worth retrying.
// It honors the Unavailable code first and then falls back to inspecting the root cause
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Do not retry local cancellations/timeouts; let the caller decide higher-level retries
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch CodeOf(err) {
	case ErrorCodeUnavailable:
		return true
	case ErrorCodeUnknown:
		return isTransientNet(err)
	default:
		return false
	}
}

func isTransientNet(err error) bool {
	var ne net.Error
	if stderrs.As(err, &ne) && ne.Timeout() {
		return true
	}
	if stderrs.Is(err, syscall.ECONNRESET) || stderrs.Is(err, syscall.ECONNREFUSED) ||
		stderrs.Is(err, syscall.EPIPE) {
		return true
	}

	// Fallback: text patterns from net/http when the body is cut mid-stream
	s := strings.ToLower(Root(err).Error())
	switch {
	case strings.Contains(s, "unexpected eof"),
		strings.Contains(s, "connection reset by peer"),
		strings.Contains(s, "server closed idle connection"),
		strings.Contains(s, "tls handshake timeout"):
		return true
	default:
		return false
	}
}
