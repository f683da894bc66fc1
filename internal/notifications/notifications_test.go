package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ziadkadry99/supportdesk/internal/config"
	"github.com/ziadkadry99/supportdesk/internal/pipeline"
)

// hookRecorder is a webhook endpoint that keeps every body it receives.
type hookRecorder struct {
	mu     sync.Mutex
	bodies []Notification
	status int
}

func (h *hookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var n Notification
	_ = json.Unmarshal(data, &n)
	h.mu.Lock()
	h.bodies = append(h.bodies, n)
	h.mu.Unlock()
	if h.status != 0 {
		w.WriteHeader(h.status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *hookRecorder) received() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Notification(nil), h.bodies...)
}

func newHook(t *testing.T, status int) (*hookRecorder, string) {
	t.Helper()
	rec := &hookRecorder{status: status}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return rec, srv.URL
}

func escalated(risk string, escalate bool) pipeline.Transition {
	return pipeline.Transition{
		TicketID: "t_1",
		From:     pipeline.StateDiagnosisDone,
		To:       pipeline.StateCommunicationDone,
		At:       time.Now(),
		Result: &pipeline.Result{
			Diagnosis: pipeline.DiagnosisResult{
				Diagnosis:        "Payment gateway rejects the card",
				Steps:            []string{"Check gateway logs"},
				Risk:             risk,
				ShouldEscalate:   escalate,
				HumanContextNote: "Customer was double charged",
			},
			Communication: pipeline.CommunicationResult{
				CustomerMessage: "We are looking into it.",
				InternalNote:    "Refund pending",
			},
		},
	}
}

func TestDispatcherWebhook(t *testing.T) {
	rec, url := newHook(t, 0)
	d := NewDispatcher(config.NotificationsConfig{
		EscalationWebhooks: []config.WebhookConfig{{URL: url}},
	})
	if !d.Enabled() {
		t.Fatal("expected dispatcher to be enabled")
	}

	sent := d.Dispatch(context.Background(), Notification{
		Type:     TypeEscalation,
		Severity: SeverityWarning,
		TicketID: "t_1",
		Risk:     "medium",
	})
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}

	got := rec.received()
	if len(got) != 1 {
		t.Fatalf("expected 1 webhook call, got %d", len(got))
	}
	if got[0].TicketID != "t_1" || got[0].Type != TypeEscalation {
		t.Errorf("unexpected payload %+v", got[0])
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be stamped")
	}
}

func TestDispatcherSeverityFiltering(t *testing.T) {
	all, allURL := newHook(t, 0)
	critical, criticalURL := newHook(t, 0)
	d := NewDispatcher(config.NotificationsConfig{
		EscalationWebhooks: []config.WebhookConfig{
			{URL: allURL},
			{URL: criticalURL, SeverityFilter: "critical"},
		},
	})

	d.Dispatch(context.Background(), Notification{Severity: SeverityWarning, TicketID: "t_1"})
	d.Dispatch(context.Background(), Notification{Severity: SeverityCritical, TicketID: "t_2"})

	if n := len(all.received()); n != 2 {
		t.Errorf("unfiltered hook got %d calls, want 2", n)
	}
	got := critical.received()
	if len(got) != 1 || got[0].TicketID != "t_2" {
		t.Errorf("critical hook got %+v, want only t_2", got)
	}
}

func TestDispatcherFailedDelivery(t *testing.T) {
	_, badURL := newHook(t, http.StatusInternalServerError)
	good, goodURL := newHook(t, 0)
	d := NewDispatcher(config.NotificationsConfig{
		EscalationWebhooks: []config.WebhookConfig{{URL: badURL}, {URL: goodURL}},
	})

	sent := d.Dispatch(context.Background(), Notification{Severity: SeverityInfo, TicketID: "t_1"})
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}
	if len(good.received()) != 1 {
		t.Error("a failing webhook must not stop delivery to the others")
	}
}

func TestEscalationObserver(t *testing.T) {
	tests := []struct {
		name     string
		tr       pipeline.Transition
		wantSent bool
		severity Severity
	}{
		{"high risk escalation", escalated("high", true), true, SeverityCritical},
		{"medium risk escalation", escalated("medium", true), true, SeverityWarning},
		{"no escalation", escalated("high", false), false, ""},
		{"intermediate transition", pipeline.Transition{TicketID: "t_1", To: pipeline.StateRetrievalDone}, false, ""},
		{"failed run", pipeline.Transition{TicketID: "t_1", To: pipeline.StateFailed}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, url := newHook(t, 0)
			obs := EscalationObserver(NewDispatcher(config.NotificationsConfig{
				EscalationWebhooks: []config.WebhookConfig{{URL: url}},
			}))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			obs(ctx, tt.tr)

			got := rec.received()
			if !tt.wantSent {
				if len(got) != 0 {
					t.Fatalf("expected no webhook call, got %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected 1 webhook call, got %d", len(got))
			}
			n := got[0]
			if n.Severity != tt.severity {
				t.Errorf("severity = %q, want %q", n.Severity, tt.severity)
			}
			if n.ContextNote != "Customer was double charged" || n.InternalNote != "Refund pending" {
				t.Errorf("notes not carried: %+v", n)
			}
		})
	}
}

func TestSeverityMatches(t *testing.T) {
	tests := []struct {
		actual Severity
		filter Severity
		want   bool
	}{
		{SeverityInfo, SeverityInfo, true},
		{SeverityInfo, SeverityWarning, false},
		{SeverityWarning, SeverityInfo, true},
		{SeverityCritical, SeverityWarning, true},
		{SeverityWarning, SeverityCritical, false},
		{SeverityInfo, "", true},
	}
	for _, tt := range tests {
		if got := severityMatches(tt.actual, tt.filter); got != tt.want {
			t.Errorf("severityMatches(%q, %q) = %v, want %v", tt.actual, tt.filter, got, tt.want)
		}
	}
}
