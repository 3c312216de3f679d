// Package apierror classifies transport and schema failures from the
// platform APIs into a small closed taxonomy. Everything above the adapters
// consumes only this taxonomy: retry decisions, backoff hints, and logging
// all key off the Kind.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Kind is the error category.
type Kind string

const (
	KindNetworkTimeout    Kind = "network_timeout"
	KindHTTPStatus        Kind = "http_status"
	KindRateLimited       Kind = "rate_limited"
	KindValidationFailure Kind = "validation_failure"
	KindConfigMissing     Kind = "config_missing"
	KindUnknown           Kind = "unknown"
)

// Error is a classified platform API error. StatusCode is set for
// KindHTTPStatus; RetryAfter for KindRateLimited when the platform supplied
// a Retry-After header; Payload carries the offending response body for
// KindValidationFailure.
type Error struct {
	Kind       Kind
	Platform   domain.Platform
	StatusCode int
	RetryAfter time.Duration
	Payload    []byte
	Err        error
}

func (e *Error) Error() string {
	prefix := strings.ToLower(e.Platform.Name())
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("%s: http status %d", prefix, e.StatusCode)
	case KindRateLimited:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("%s: rate limited, retry after %s", prefix, e.RetryAfter)
		}
		return fmt.Sprintf("%s: rate limited", prefix)
	case KindValidationFailure:
		return fmt.Sprintf("%s: response validation failed: %v", prefix, e.Err)
	case KindNetworkTimeout:
		return fmt.Sprintf("%s: network timeout: %v", prefix, e.Err)
	case KindConfigMissing:
		return fmt.Sprintf("%s: configuration missing: %v", prefix, e.Err)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus builds an Error for a non-2xx response. Status 429 classifies
// as KindRateLimited with the given retryAfter.
func HTTPStatus(platform domain.Platform, code int, retryAfter time.Duration, body []byte) *Error {
	if code == 429 {
		return &Error{
			Kind:       KindRateLimited,
			Platform:   platform,
			StatusCode: code,
			RetryAfter: retryAfter,
			Err:        domain.ErrRateLimited,
		}
	}
	return &Error{Kind: KindHTTPStatus, Platform: platform, StatusCode: code, Payload: body}
}

// Validation builds a KindValidationFailure Error carrying the offending
// payload.
func Validation(platform domain.Platform, payload []byte, cause error) *Error {
	return &Error{Kind: KindValidationFailure, Platform: platform, Payload: payload, Err: cause}
}

// ConfigMissing builds a KindConfigMissing Error.
func ConfigMissing(platform domain.Platform, cause error) *Error {
	return &Error{Kind: KindConfigMissing, Platform: platform, Err: cause}
}

// Classify maps an arbitrary transport error into the taxonomy. Already
// classified errors pass through unchanged.
func Classify(err error, platform domain.Platform) *Error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindNetworkTimeout, Platform: platform, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindNetworkTimeout, Platform: platform, Err: err}
	}

	return &Error{Kind: KindUnknown, Platform: platform, Err: err}
}

// Retryable reports whether the error is worth retrying: network timeouts,
// rate limits, and 5xx responses.
func Retryable(err error) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.Kind {
	case KindNetworkTimeout, KindRateLimited:
		return true
	case KindHTTPStatus:
		return ae.StatusCode >= 500
	}
	return false
}

// IsNotFound reports whether the error is an HTTP 404 response.
func IsNotFound(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindHTTPStatus && ae.StatusCode == http.StatusNotFound
}

// RetryAfterHeader parses a response's Retry-After header as whole seconds.
func RetryAfterHeader(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// SuggestedDelay returns the backoff hint for a retryable error: the
// platform's Retry-After (default 60s) when rate limited, 5s for 5xx, and
// 2s for timeouts. Zero for everything else.
func SuggestedDelay(err error) time.Duration {
	var ae *Error
	if !errors.As(err, &ae) {
		return 0
	}
	switch ae.Kind {
	case KindRateLimited:
		if ae.RetryAfter > 0 {
			return ae.RetryAfter
		}
		return 60 * time.Second
	case KindHTTPStatus:
		if ae.StatusCode >= 500 {
			return 5 * time.Second
		}
	case KindNetworkTimeout:
		return 2 * time.Second
	}
	return 0
}
