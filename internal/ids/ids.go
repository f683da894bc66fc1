// Package ids generates opaque identifiers and timestamps for tickets,
// customers and knowledge documents.
package ids

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefixes used across the service.
const (
	PrefixTicket   = "t"
	PrefixCustomer = "c"
	PrefixDocument = "doc"
)

// New returns an identifier of the form "<prefix>_<8 hex chars>".
func New(prefix string) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "_" + hex[:8]
}

// NewLong returns "<prefix>_<32 hex chars>", a full random UUID. It is used
// where a caller cannot retry on collision, such as a batch of knowledge
// chunks inserted at once.
func NewLong(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Now returns the current time in UTC truncated to milliseconds, so values
// survive a round trip through SQL drivers unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ISO formats t as an ISO8601 UTC timestamp with millisecond precision.
func ISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
