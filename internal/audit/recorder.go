package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

// TicketCreated returns a ticket creation hook that records a created entry.
func TicketCreated(l Log) tickets.CreateHook {
	return func(ctx context.Context, t *tickets.Ticket) {
		err := l.Log(ctx, Entry{
			TicketID: t.ID,
			Action:   ActionCreated,
			Summary:  fmt.Sprintf("ticket opened by %s via %s", t.CustomerName, orUnknown(t.Channel)),
			Detail: map[string]any{
				"priority":    t.Priority,
				"ticket_type": t.TicketType,
				"sla":         t.SLA,
			},
		})
		if err != nil {
			slog.Warn("recording ticket creation", "ticket_id", t.ID, "error", err)
		}
	}
}

// Processed records a successful pipeline run.
func Processed(ctx context.Context, l Log, ticketID, risk string, escalated bool) {
	summary := fmt.Sprintf("triaged with %s risk", risk)
	if escalated {
		summary += ", escalated to a human"
	}
	err := l.Log(ctx, Entry{
		TicketID: ticketID,
		Action:   ActionProcessed,
		Summary:  summary,
		Detail: map[string]any{
			"risk":            risk,
			"should_escalate": escalated,
		},
	})
	if err != nil {
		slog.Warn("recording ticket processing", "ticket_id", ticketID, "error", err)
	}
}

// ProcessFailed records a pipeline run that stopped at stage.
func ProcessFailed(ctx context.Context, l Log, ticketID, stage, kind string) {
	err := l.Log(ctx, Entry{
		TicketID: ticketID,
		Action:   ActionProcessFailed,
		Stage:    stage,
		Kind:     kind,
		Summary:  fmt.Sprintf("processing failed at %s stage (%s)", stage, kind),
	})
	if err != nil {
		slog.Warn("recording ticket processing failure", "ticket_id", ticketID, "error", err)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown channel"
	}
	return s
}
