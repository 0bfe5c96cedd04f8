package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

// HTTPStatusError is returned by the capability fetcher when a request
// completes with a non-2xx status. It carries the status code so the
// classifier can distinguish transient server failures from client errors.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s from %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// HTTPErrorClassifier implements spider.ErrorClassifier for HTTP and
// network-level failures of capability fetches.
//
// Transient: timeouts, connection-level failures, DNS hiccups, 5xx and 429
// responses. Fatal: malformed URLs, other 4xx responses, context
// cancellation.
type HTTPErrorClassifier struct{}

// NewHTTPErrorClassifier creates a new HTTP error classifier.
func NewHTTPErrorClassifier() *HTTPErrorClassifier {
	return &HTTPErrorClassifier{}
}

// IsTransient determines if an error is temporary and retryable.
func (c *HTTPErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Cancellation is a caller decision, never retried.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return c.isTransientStatus(statusErr.StatusCode)
	}

	// A malformed URL will not get better on retry, but a url.Error can
	// also wrap a plain network failure.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		return c.IsTransient(urlErr.Err)
	}

	if c.isNetworkError(err) {
		return true
	}

	return c.isConnectionError(err)
}

// isTransientStatus reports whether an HTTP status is worth another attempt.
func (c *HTTPErrorClassifier) isTransientStatus(code int) bool {
	if code >= 500 {
		return true
	}
	// Rate limiting and premature timeouts.
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// isNetworkError checks for network-level errors.
func (c *HTTPErrorClassifier) isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		// Per-request timeout, the service may just be slow right now.
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Temporary() || opErr.Timeout() {
			return true
		}
		if opErr.Err != nil {
			if errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
				errors.Is(opErr.Err, syscall.ECONNRESET) ||
				errors.Is(opErr.Err, syscall.ENETUNREACH) ||
				errors.Is(opErr.Err, syscall.EHOSTUNREACH) {
				return true
			}
		}
	}

	return false
}

// isConnectionError falls back to message matching for failures that reach
// us as plain strings (the http package wraps some transport errors that way).
func (c *HTTPErrorClassifier) isConnectionError(err error) bool {
	errMsg := strings.ToLower(err.Error())

	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"broken pipe",
		"unexpected eof",
		"server closed",
		"tls handshake timeout",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}
