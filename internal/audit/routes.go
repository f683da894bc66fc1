package audit

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/supportdesk/internal/server"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

// RegisterRoutes mounts the ticket history endpoint.
func RegisterRoutes(r chi.Router, log Log, store tickets.Store) {
	r.Get("/tickets/{id}/history", handleHistory(log, store))
}

func handleHistory(log Log, store tickets.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := store.Get(r.Context(), id); err != nil {
			if errors.Is(err, tickets.ErrNotFound) {
				server.WriteError(w, http.StatusNotFound, "ticket not found")
				return
			}
			slog.Error("loading ticket for history", "ticket_id", id, "error", err)
			server.WriteError(w, http.StatusInternalServerError, "could not load ticket")
			return
		}

		limit := DefaultLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		entries, err := log.ForTicket(r.Context(), id, limit)
		if err != nil {
			slog.Error("loading ticket history", "ticket_id", id, "error", err)
			server.WriteError(w, http.StatusInternalServerError, "could not load history")
			return
		}
		server.WriteJSON(w, http.StatusOK, entries)
	}
}
