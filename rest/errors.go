package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/containerd/errdefs"
)

// TransportError is returned when a unary call fails, either because no
// response was received or because the server answered with a non-2xx status.
type TransportError struct {
	Method string
	Path   string
	// Response is nil when no response was received.
	Response *Response
	Err      error
}

func (e *TransportError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("HTTP %d: %s", e.Response.StatusCode, e.Response.Status)
	}
	if e.Timeout() {
		return "request timeout"
	}
	if e.Err == nil {
		return "request failed: no response received"
	}
	return "request failed: no response received: " + e.Err.Error()
}

// Unwrap exposes the underlying error and an errdefs classification.
func (e *TransportError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if class := e.class(); class != nil {
		errs = append(errs, class)
	}
	return errs
}

// StatusCode returns the HTTP status, or 0 when no response was received.
func (e *TransportError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// Timeout reports whether the request timed out before a response arrived.
func (e *TransportError) Timeout() bool {
	if e.Response != nil || e.Err == nil {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

func (e *TransportError) class() error {
	if e.Response == nil {
		if e.Timeout() {
			if errors.Is(e.Err, context.DeadlineExceeded) {
				return nil
			}
			return context.DeadlineExceeded
		}
		return errdefs.ErrUnavailable
	}
	switch code := e.Response.StatusCode; {
	case code == http.StatusUnauthorized:
		return errdefs.ErrUnauthenticated
	case code == http.StatusForbidden:
		return errdefs.ErrPermissionDenied
	case code == http.StatusNotFound:
		return errdefs.ErrNotFound
	case code == http.StatusConflict:
		return errdefs.ErrConflict
	case code == http.StatusTooManyRequests:
		return errdefs.ErrResourceExhausted
	case code >= 500:
		return errdefs.ErrUnavailable
	case code >= 400:
		return errdefs.ErrInvalidArgument
	default:
		return errdefs.ErrUnknown
	}
}

// IsNoResponse reports whether err is a TransportError for a call that never
// received a response (network failure or timeout).
func IsNoResponse(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Response == nil
}
