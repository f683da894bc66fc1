// Package audit keeps an append-only activity trail per ticket: when it
// was created and the outcome of each processing run. Stage payloads are
// never stored, only the summary fields needed to follow a ticket's history.
package audit

import (
	"context"
	"time"
)

// Action describes what happened to a ticket.
type Action string

const (
	ActionCreated       Action = "created"
	ActionProcessed     Action = "processed"
	ActionProcessFailed Action = "process_failed"
)

// Entry is a single activity record.
type Entry struct {
	ID        string         `json:"id"`
	TicketID  string         `json:"ticket_id"`
	Timestamp time.Time      `json:"timestamp"`
	Action    Action         `json:"action"`
	Stage     string         `json:"stage,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Summary   string         `json:"summary"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Log records and lists ticket activity. Implementations are safe for
// concurrent use.
type Log interface {
	// Log appends an entry. ID and Timestamp are filled when empty.
	Log(ctx context.Context, entry Entry) error
	// ForTicket returns up to limit entries for a ticket, oldest first.
	ForTicket(ctx context.Context, ticketID string, limit int) ([]Entry, error)
}

// DefaultLimit is used when ForTicket is called with a non-positive limit.
const DefaultLimit = 100
