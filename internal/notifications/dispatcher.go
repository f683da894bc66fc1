package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ziadkadry99/supportdesk/internal/config"
	"github.com/ziadkadry99/supportdesk/internal/ids"
	"github.com/ziadkadry99/supportdesk/internal/pipeline"
)

const defaultTimeout = 10 * time.Second

// Dispatcher delivers notifications to webhook subscribers.
type Dispatcher struct {
	webhooks []Webhook
	client   *http.Client
}

// NewDispatcher creates a Dispatcher for the configured webhooks.
func NewDispatcher(cfg config.NotificationsConfig) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hooks := make([]Webhook, 0, len(cfg.EscalationWebhooks))
	for _, w := range cfg.EscalationWebhooks {
		hooks = append(hooks, Webhook{URL: w.URL, SeverityFilter: Severity(w.SeverityFilter)})
	}
	return &Dispatcher{
		webhooks: hooks,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether any webhook is configured.
func (d *Dispatcher) Enabled() bool { return len(d.webhooks) > 0 }

// Dispatch sends n to every webhook whose filter it passes and returns how
// many deliveries succeeded. Failed deliveries are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) int {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = ids.Now()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		slog.Error("encoding notification", "ticket_id", n.TicketID, "error", err)
		return 0
	}

	sent := 0
	for _, w := range d.webhooks {
		if !severityMatches(n.Severity, w.SeverityFilter) {
			continue
		}
		if err := d.SendWebhook(ctx, w.URL, payload); err != nil {
			slog.Warn("delivering notification", "ticket_id", n.TicketID, "url", w.URL, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// SendWebhook POSTs payload to the given URL.
func (d *Dispatcher) SendWebhook(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// EscalationObserver returns a pipeline observer that notifies the
// dispatcher's webhooks whenever a completed run recommends escalation.
func EscalationObserver(d *Dispatcher) pipeline.Observer {
	return func(ctx context.Context, tr pipeline.Transition) {
		if tr.To != pipeline.StateCommunicationDone || tr.Result == nil {
			return
		}
		diag := tr.Result.Diagnosis
		if !diag.ShouldEscalate {
			return
		}
		d.Dispatch(context.WithoutCancel(ctx), Notification{
			Type:         TypeEscalation,
			Severity:     severityForRisk(diag.Risk),
			TicketID:     tr.TicketID,
			Risk:         diag.Risk,
			Diagnosis:    diag.Diagnosis,
			ContextNote:  diag.HumanContextNote,
			InternalNote: tr.Result.Communication.InternalNote,
		})
	}
}

func severityForRisk(risk string) Severity {
	switch risk {
	case pipeline.RiskHigh:
		return SeverityCritical
	case pipeline.RiskMedium:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// severityMatches returns true if the notification severity meets or exceeds the filter threshold.
func severityMatches(actual, filter Severity) bool {
	levels := map[Severity]int{
		SeverityInfo:     0,
		SeverityWarning:  1,
		SeverityCritical: 2,
	}
	return levels[actual] >= levels[filter]
}
