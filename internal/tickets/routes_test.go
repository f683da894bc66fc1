package tickets

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func setupRouter(t *testing.T) (chi.Router, Store) {
	t.Helper()
	store := NewMemoryStore(nil)
	r := chi.NewRouter()
	RegisterRoutes(r, store)
	return r, store
}

func TestRoute_CreateTicket(t *testing.T) {
	r, store := setupRouter(t)

	body, _ := json.Marshal(janeFields)
	req := httptest.NewRequest("POST", "/tickets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !ticketIDPattern.MatchString(resp["ticket_id"]) {
		t.Fatalf("unexpected ticket_id %q", resp["ticket_id"])
	}
	if _, err := store.Get(req.Context(), resp["ticket_id"]); err != nil {
		t.Errorf("created ticket not retrievable: %v", err)
	}
}

func TestRoute_CreateTicketValidation(t *testing.T) {
	r, _ := setupRouter(t)

	for _, body := range []string{`{"subject":"no name"}`, `not json`} {
		req := httptest.NewRequest("POST", "/tickets", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
			t.Errorf("body %q: expected JSON error, got %s", body, w.Body.String())
		}
	}
}

func TestRoute_GetTicket(t *testing.T) {
	r, store := setupRouter(t)
	created, err := store.Create(httptest.NewRequest("GET", "/", nil).Context(), janeFields)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest("GET", "/tickets/"+created.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got Ticket
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.CustomerName != "Jane" || got.Subject != janeFields.Subject {
		t.Errorf("unexpected ticket: %+v", got)
	}
}

func TestRoute_GetNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest("GET", "/tickets/t_missing0", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRoute_ListTickets(t *testing.T) {
	r, store := setupRouter(t)
	ctx := httptest.NewRequest("GET", "/", nil).Context()
	for i := 0; i < 3; i++ {
		if _, err := store.Create(ctx, janeFields); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/tickets?limit=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list []Ticket
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 tickets, got %d", len(list))
	}
}
