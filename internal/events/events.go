// Package events publishes ticket lifecycle events for downstream consumers.
// Events carry identifiers and outcome summaries only, never stage payloads.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/ziadkadry99/supportdesk/internal/ids"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

// Type names a lifecycle event.
type Type string

const (
	TicketCreated       Type = "ticket.created"
	TicketProcessed     Type = "ticket.processed"
	TicketProcessFailed Type = "ticket.process_failed"
)

// Event is a single lifecycle notification.
type Event struct {
	Type      Type      `json:"type"`
	TicketID  string    `json:"ticket_id"`
	At        time.Time `json:"at"`
	Priority  string    `json:"priority,omitempty"`
	Risk      string    `json:"risk,omitempty"`
	Escalated *bool     `json:"escalated,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Kind      string    `json:"kind,omitempty"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// CreatedHook returns a ticket creation hook publishing TicketCreated.
func CreatedHook(p Publisher) tickets.CreateHook {
	return func(ctx context.Context, t *tickets.Ticket) {
		publish(ctx, p, Event{Type: TicketCreated, TicketID: t.ID, Priority: t.Priority})
	}
}

// Processed publishes TicketProcessed.
func Processed(ctx context.Context, p Publisher, ticketID, risk string, escalated bool) {
	publish(ctx, p, Event{Type: TicketProcessed, TicketID: ticketID, Risk: risk, Escalated: &escalated})
}

// ProcessFailed publishes TicketProcessFailed.
func ProcessFailed(ctx context.Context, p Publisher, ticketID, stage, kind string) {
	publish(ctx, p, Event{Type: TicketProcessFailed, TicketID: ticketID, Stage: stage, Kind: kind})
}

// publish never fails the caller; delivery problems are logged.
func publish(ctx context.Context, p Publisher, e Event) {
	if e.At.IsZero() {
		e.At = ids.Now()
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.Warn("publishing event", "type", e.Type, "ticket_id", e.TicketID, "error", err)
	}
}
