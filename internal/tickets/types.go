package tickets

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrValidation is returned when ticket fields are missing or not allowed.
	ErrValidation = errors.New("invalid ticket")
	// ErrNotFound is returned when no ticket has the requested id.
	ErrNotFound = errors.New("ticket not found")
)

// Ticket is a customer support request. Tickets are immutable once created.
type Ticket struct {
	ID               string    `json:"id"`
	CustomerID       string    `json:"customer_id"`
	CustomerName     string    `json:"customer_name"`
	ProductPurchased string    `json:"product_purchased"`
	TicketType       string    `json:"ticket_type"`
	Subject          string    `json:"subject"`
	Description      string    `json:"description"`
	Priority         string    `json:"priority"`
	Channel          string    `json:"channel"`
	SLA              string    `json:"sla"`
	Tags             []string  `json:"tags"`
	CreatedAt        time.Time `json:"created_at"`
}

// Fields are the caller-supplied values for a new ticket.
type Fields struct {
	CustomerID       string `json:"customer_id"`
	CustomerName     string `json:"customer_name"`
	ProductPurchased string `json:"product_purchased"`
	TicketType       string `json:"ticket_type"`
	Subject          string `json:"subject"`
	Description      string `json:"description"`
	Priority         string `json:"priority"`
	Channel          string `json:"channel"`
}

// Store registers and retrieves tickets. Implementations are safe for
// concurrent use.
type Store interface {
	// Create validates fields, assigns an id and creation time, and
	// registers the ticket. Nothing is registered on failure.
	Create(ctx context.Context, f Fields) (*Ticket, error)
	// Get returns the ticket with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (*Ticket, error)
	// Count returns the number of registered tickets.
	Count(ctx context.Context) (int, error)
	// List returns up to limit tickets, newest first.
	List(ctx context.Context, limit int) ([]Ticket, error)
}

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 50

// maxIDAttempts bounds regeneration of colliding ids.
const maxIDAttempts = 5
