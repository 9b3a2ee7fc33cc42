package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kursadbilgin/dispatch-console/internal/domain"
)

// Kind separates requests that never completed from requests the backend answered with an error.
type Kind string

const (
	KindNetworkFailure Kind = "network_failure"
	KindServerError    Kind = "server_error"
)

func (k Kind) String() string { return string(k) }

// Error describes a failed backend call. Message holds the server-provided text verbatim.
type Error struct {
	Kind       Kind
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "backend "+e.Operation+" failed")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

// Is matches domain.ErrNotFound for a 404 answer.
func (e *Error) Is(target error) bool {
	return e != nil && target == domain.ErrNotFound && e.StatusCode == http.StatusNotFound
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Detail returns the text shown to the operator: the server body when present, else the cause.
func (e *Error) Detail() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	if e.StatusCode > 0 {
		return http.StatusText(e.StatusCode)
	}
	return "request failed"
}

// Detail extracts operator-facing text from any error returned by Client.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var backendErr *Error
	if errors.As(err, &backendErr) {
		return backendErr.Detail()
	}
	return err.Error()
}

func IsNetworkFailure(err error) bool {
	var backendErr *Error
	return errors.As(err, &backendErr) && backendErr.Kind == KindNetworkFailure
}

func IsServerError(err error) bool {
	var backendErr *Error
	return errors.As(err, &backendErr) && backendErr.Kind == KindServerError
}

// IsTransient reports whether repeating the call later may succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var backendErr *Error
	if errors.As(err, &backendErr) {
		if backendErr.Kind == KindServerError {
			return isTransientHTTPStatus(backendErr.StatusCode)
		}
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}
