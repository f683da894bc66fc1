package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/supportdesk/internal/llm"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

func setupRouter(t *testing.T, provider llm.Provider) (chi.Router, string) {
	t.Helper()
	store := tickets.NewMemoryStore(nil)
	tk, err := store.Create(context.Background(), tickets.Fields{
		CustomerName: "Jane",
		Subject:      "Upload fails",
		Description:  "Upload fails at 3MB",
	})
	require.NoError(t, err)

	cfg := testPipelineConfig()
	cfg.StageTimeout = 20 * time.Millisecond
	p := New(provider, &fakeSearcher{hits: sampleHits}, store, "scripted-model", cfg)

	r := chi.NewRouter()
	RegisterRoutes(r, p)
	return r, tk.ID
}

func TestRoute_Process(t *testing.T) {
	r, id := setupRouter(t, newScriptedProvider())

	for _, method := range []string{http.MethodPost, http.MethodGet} {
		req := httptest.NewRequest(method, "/tickets/"+id+"/process", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Contains(t, body, "retrieval")
		require.Contains(t, body, "diagnosis")
		require.Contains(t, body, "communication")
	}
}

func TestRoute_ProcessFailures(t *testing.T) {
	tests := []struct {
		name     string
		handler  func(ctx context.Context, req llm.CompletionRequest) (string, error)
		ticketID string
		status   int
		kind     string
		stage    string
	}{
		{
			name:     "unknown ticket",
			ticketID: "t_missing",
			status:   http.StatusNotFound,
			kind:     KindNotFound,
		},
		{
			name: "schema violation",
			handler: func(context.Context, llm.CompletionRequest) (string, error) {
				return `{"diagnosis":"d","steps":["s"],"risk":"severe","should_escalate":false}`, nil
			},
			status: http.StatusBadGateway,
			kind:   KindSchemaViolation,
			stage:  "diagnosis",
		},
		{
			name: "upstream error",
			handler: func(context.Context, llm.CompletionRequest) (string, error) {
				return "", &llm.StatusError{Provider: "scripted", StatusCode: 503, Body: "secret backend detail"}
			},
			status: http.StatusBadGateway,
			kind:   KindUpstreamError,
			stage:  "diagnosis",
		},
		{
			name: "timeout",
			handler: func(ctx context.Context, _ llm.CompletionRequest) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
			status: http.StatusGatewayTimeout,
			kind:   KindUpstreamTimeout,
			stage:  "diagnosis",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newScriptedProvider()
			if tt.handler != nil {
				provider.handlers[diagnosisSchema.Name] = tt.handler
			}
			r, id := setupRouter(t, provider)
			if tt.ticketID != "" {
				id = tt.ticketID
			}

			req := httptest.NewRequest(http.MethodPost, "/tickets/"+id+"/process", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
			require.NotContains(t, w.Body.String(), "secret backend detail")

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, tt.kind, body["kind"])
			require.Equal(t, tt.stage, body["stage"])
			require.False(t, strings.TrimSpace(body["error"]) == "")
		})
	}
}
