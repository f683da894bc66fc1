package tickets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/supportdesk/internal/server"
)

// RegisterRoutes mounts the ticket API routes.
func RegisterRoutes(r chi.Router, store Store) {
	r.Post("/tickets", handleCreate(store))
	r.Get("/tickets", handleList(store))
	r.Get("/tickets/{id}", handleGet(store))
}

func handleCreate(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f Fields
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			server.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		t, err := store.Create(r.Context(), f)
		if errors.Is(err, ErrValidation) {
			server.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			slog.Error("creating ticket", "error", err)
			server.WriteError(w, http.StatusInternalServerError, "could not create ticket")
			return
		}

		server.WriteJSON(w, http.StatusCreated, map[string]string{"ticket_id": t.ID})
	}
}

func handleList(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := DefaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		list, err := store.List(r.Context(), limit)
		if err != nil {
			slog.Error("listing tickets", "error", err)
			server.WriteError(w, http.StatusInternalServerError, "could not list tickets")
			return
		}
		server.WriteJSON(w, http.StatusOK, list)
	}
}

func handleGet(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			server.WriteError(w, http.StatusNotFound, "ticket not found")
			return
		}
		if err != nil {
			slog.Error("getting ticket", "error", err)
			server.WriteError(w, http.StatusInternalServerError, "could not load ticket")
			return
		}
		server.WriteJSON(w, http.StatusOK, t)
	}
}
