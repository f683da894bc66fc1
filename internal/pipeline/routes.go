package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/supportdesk/internal/server"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

// RegisterRoutes mounts the ticket processing routes.
func RegisterRoutes(r chi.Router, p *Processor) {
	r.Post("/tickets/{id}/process", handleProcess(p))
	r.Get("/tickets/{id}/process", handleProcess(p))
}

// failureResponse is the body of a failed processing request. It never
// carries backend error text.
type failureResponse struct {
	Error string `json:"error"`
	Stage Stage  `json:"stage,omitempty"`
	Kind  string `json:"kind"`
}

func handleProcess(p *Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res, err := p.ProcessByID(r.Context(), id)
		if err != nil {
			status, body := describeFailure(err)
			if status == http.StatusInternalServerError {
				slog.Error("processing ticket", "ticket_id", id, "error", err)
			}
			server.WriteJSON(w, status, body)
			return
		}
		server.WriteJSON(w, http.StatusOK, res)
	}
}

// describeFailure maps a processing error to an HTTP status and a stable body.
func describeFailure(err error) (int, failureResponse) {
	if errors.Is(err, tickets.ErrNotFound) {
		return http.StatusNotFound, failureResponse{Error: "ticket not found", Kind: KindNotFound}
	}

	var se *StageError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError, failureResponse{Error: "processing failed", Kind: KindInternal}
	}

	kind := se.Kind()
	body := failureResponse{Stage: se.Stage, Kind: kind}
	switch kind {
	case KindSchemaViolation:
		body.Error = fmt.Sprintf("%s stage returned invalid output", se.Stage)
		return http.StatusBadGateway, body
	case KindUpstreamError:
		body.Error = fmt.Sprintf("%s stage backend failed", se.Stage)
		return http.StatusBadGateway, body
	case KindUpstreamTimeout:
		body.Error = fmt.Sprintf("%s stage timed out", se.Stage)
		return http.StatusGatewayTimeout, body
	default:
		body.Error = fmt.Sprintf("%s stage failed", se.Stage)
		return http.StatusInternalServerError, body
	}
}
