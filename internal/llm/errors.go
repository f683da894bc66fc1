package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrSchemaViolation means the model answered but the output is not
	// valid JSON for the requested schema, or breaks a stage rule.
	ErrSchemaViolation = errors.New("llm output violates schema")
	// ErrUpstreamTimeout means the completion did not finish before its deadline.
	ErrUpstreamTimeout = errors.New("llm upstream timeout")
	// ErrUpstreamError covers every other completion backend failure.
	ErrUpstreamError = errors.New("llm upstream error")
)

// Classify maps a provider error onto one of the package sentinels. Errors
// already carrying a sentinel are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrSchemaViolation),
		errors.Is(err, ErrUpstreamTimeout),
		errors.Is(err, ErrUpstreamError):
		return err
	case isTimeout(err):
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstreamError, err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return statusCode(err) == http.StatusGatewayTimeout
}

// IsRetryable reports whether a failed completion is worth another attempt:
// rate limits, overloaded backends and 5xx responses.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrSchemaViolation) {
		return false
	}
	if code := statusCode(err); code != 0 {
		return code == http.StatusTooManyRequests || code >= 500
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "overloaded")
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// StatusError is returned by HTTP-based providers for non-200 responses.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}
