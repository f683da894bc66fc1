package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/supportdesk/internal/pipeline"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// processRequest is the incoming WebSocket message format.
type processRequest struct {
	Type     string `json:"type"` // "process"
	TicketID string `json:"ticket_id"`
}

// processMessage is the outgoing WebSocket message format.
type processMessage struct {
	Type     string `json:"type"` // "transition", "result" or "error"
	TicketID string `json:"ticket_id,omitempty"`
	State    string `json:"state,omitempty"`
	Output   any    `json:"output,omitempty"`
	Result   any    `json:"result,omitempty"`
	// MessageHTML is the customer message rendered from markdown.
	MessageHTML string `json:"message_html,omitempty"`
	Stage       string `json:"stage,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Content     string `json:"content,omitempty"`
}

// session is one websocket connection. Writes are serialized because the
// read loop and an in-flight run both send messages.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) send(msg processMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		slog.Warn("dashboard: websocket write", "error", err)
	}
}

// handleWebSocket reads process requests and runs one ticket at a time in
// the background. Closing the socket cancels the run in flight.
func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("dashboard: websocket upgrade", "error", err)
		return
	}
	sess := &session{conn: conn}

	ctx, cancel := context.WithCancel(r.Context())
	var running sync.WaitGroup
	busy := make(chan struct{}, 1)
	defer func() {
		cancel()
		running.Wait()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("dashboard: websocket read", "error", err)
			}
			return
		}

		var req processRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			sess.send(processMessage{Type: "error", Content: "invalid message format"})
			continue
		}

		switch {
		case req.Type != "process":
			sess.send(processMessage{Type: "error", Content: "unknown message type: " + req.Type})
		case req.TicketID == "":
			sess.send(processMessage{Type: "error", Content: "ticket_id is required"})
		default:
			select {
			case busy <- struct{}{}:
				running.Add(1)
				go func(id string) {
					defer running.Done()
					defer func() { <-busy }()
					d.process(ctx, sess, id)
				}(req.TicketID)
			default:
				sess.send(processMessage{Type: "error", TicketID: req.TicketID, Content: "another ticket is still processing"})
			}
		}
	}
}

// process runs the pipeline for one ticket, streaming each transition.
func (d *Dashboard) process(ctx context.Context, sess *session, ticketID string) {
	if d.processTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.processTimeout)
		defer cancel()
	}
	if d.processor == nil {
		sess.send(processMessage{Type: "error", TicketID: ticketID, Content: "pipeline not configured"})
		return
	}

	t, err := d.tickets.Get(ctx, ticketID)
	if errors.Is(err, tickets.ErrNotFound) {
		sess.send(processMessage{Type: "error", TicketID: ticketID, Kind: pipeline.KindNotFound, Content: "ticket not found"})
		return
	}
	if err != nil {
		slog.Error("dashboard: loading ticket", "ticket_id", ticketID, "error", err)
		sess.send(processMessage{Type: "error", TicketID: ticketID, Kind: pipeline.KindInternal, Content: "could not load ticket"})
		return
	}

	stream := func(_ context.Context, tr pipeline.Transition) {
		if tr.To == pipeline.StateFailed || tr.To == pipeline.StateCommunicationDone {
			return
		}
		sess.send(processMessage{Type: "transition", TicketID: ticketID, State: string(tr.To), Output: tr.Output})
	}

	res, err := d.processor.ProcessObserved(ctx, t, stream)
	if err != nil {
		msg := processMessage{Type: "error", TicketID: ticketID, Kind: pipeline.KindOf(err), Content: "processing failed"}
		var se *pipeline.StageError
		if errors.As(err, &se) {
			msg.Stage = string(se.Stage)
			msg.Content = "processing failed at " + msg.Stage + " stage"
		}
		sess.send(msg)
		return
	}

	sess.send(processMessage{
		Type:        "result",
		TicketID:    ticketID,
		State:       string(pipeline.StateCommunicationDone),
		Result:      res,
		MessageHTML: d.renderMarkdown(res.Communication.CustomerMessage),
	})
}
