package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/ziadkadry99/supportdesk/internal/server"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

// recentLimit caps the ticket list shown on the dashboard.
const recentLimit = 10

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	Tickets  int `json:"tickets"`
	KBChunks int `json:"kb_chunks"`
}

// optionsResponse lists the values offered by the ticket form.
type optionsResponse struct {
	TicketTypes []string `json:"ticket_types"`
	Priorities  []string `json:"priorities"`
	Channels    []string `json:"channels"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	n, err := d.tickets.Count(r.Context())
	if err != nil {
		slog.Error("dashboard: counting tickets", "error", err)
		server.WriteError(w, http.StatusInternalServerError, "could not count tickets")
		return
	}

	stats := statsResponse{Tickets: n}
	if d.chunks != nil {
		stats.KBChunks = d.chunks.Count()
	}
	server.WriteJSON(w, http.StatusOK, stats)
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	list, err := d.tickets.List(r.Context(), recentLimit)
	if err != nil {
		slog.Error("dashboard: listing tickets", "error", err)
		server.WriteError(w, http.StatusInternalServerError, "could not list tickets")
		return
	}
	if list == nil {
		list = []tickets.Ticket{}
	}
	server.WriteJSON(w, http.StatusOK, list)
}

func (d *Dashboard) handleOptions(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, optionsResponse{
		TicketTypes: nonNil(d.options.Types),
		Priorities:  nonNil(d.options.Priorities),
		Channels:    nonNil(d.options.Channels),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
