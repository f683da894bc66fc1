package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ziadkadry99/supportdesk/internal/llm"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
	"github.com/ziadkadry99/supportdesk/internal/vectordb"
)

// Stable failure kinds reported to clients.
const (
	KindSchemaViolation  = "schema_violation"
	KindUpstreamTimeout  = "upstream_timeout"
	KindUpstreamError    = "upstream_error"
	KindStoreUnavailable = "store_unavailable"
	KindNotFound         = "not_found"
	KindCanceled         = "canceled"
	KindInternal         = "internal"
)

// StageError reports which stage stopped a Process call and why.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Kind returns the stable failure kind of the underlying error.
func (e *StageError) Kind() string {
	return KindOf(e.Err)
}

// KindOf maps an error onto a stable failure kind.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, llm.ErrSchemaViolation):
		return KindSchemaViolation
	case errors.Is(err, llm.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindUpstreamTimeout
	case errors.Is(err, llm.ErrUpstreamError):
		return KindUpstreamError
	case errors.Is(err, vectordb.ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, tickets.ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", llm.ErrSchemaViolation, fmt.Sprintf(format, args...))
}
