// Package notifications alerts human responders when the pipeline decides a
// ticket needs escalation.
package notifications

import "time"

// Severity indicates the importance of a notification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// TypeEscalation is the only notification type sent today.
const TypeEscalation = "ticket.escalated"

// Notification is the JSON body posted to each webhook.
type Notification struct {
	Type         string    `json:"type"`
	Severity     Severity  `json:"severity"`
	TicketID     string    `json:"ticket_id"`
	Risk         string    `json:"risk"`
	Diagnosis    string    `json:"diagnosis"`
	ContextNote  string    `json:"human_context_note,omitempty"`
	InternalNote string    `json:"internal_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Webhook is one delivery target. Notifications below SeverityFilter are
// not sent to it.
type Webhook struct {
	URL            string
	SeverityFilter Severity
}
