package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/supportdesk/internal/audit"
	"github.com/ziadkadry99/supportdesk/internal/config"
	"github.com/ziadkadry99/supportdesk/internal/embeddings"
	"github.com/ziadkadry99/supportdesk/internal/events"
	"github.com/ziadkadry99/supportdesk/internal/knowledge"
	"github.com/ziadkadry99/supportdesk/internal/llm"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
	"github.com/ziadkadry99/supportdesk/internal/vectordb"
)

const (
	retrievalReply     = `{"answer_short":"Uploads are capped at 2MB.","confidence":0.8,"resolution_suggested":true,"explainers":["the FAQ states the limit"]}`
	diagnosisReply     = `{"diagnosis":"The file exceeds the upload limit","steps":["Compress the file","Ask support for a higher limit"],"risk":"low","should_escalate":false}`
	communicationReply = `{"customer_message":"Hi Jane, uploads are limited to 2MB. Compressing the file will get you going.","internal_note":""}`
)

// scriptedProvider answers each stage by schema name. Handlers default to
// the canned replies above.
type scriptedProvider struct {
	mu       sync.Mutex
	handlers map[string]func(ctx context.Context, req llm.CompletionRequest) (string, error)
	calls    []string
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{handlers: map[string]func(context.Context, llm.CompletionRequest) (string, error){}}
}

func (s *scriptedProvider) reply(schema, content string) {
	s.handlers[schema] = func(context.Context, llm.CompletionRequest) (string, error) { return content, nil }
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	name := req.Schema.Name
	s.mu.Lock()
	s.calls = append(s.calls, name)
	h := s.handlers[name]
	s.mu.Unlock()

	var content string
	var err error
	switch {
	case h != nil:
		content, err = h(ctx, req)
	case name == retrievalSchema.Name:
		content = retrievalReply
	case name == diagnosisSchema.Name:
		content = diagnosisReply
	case name == communicationSchema.Name:
		content = communicationReply
	default:
		return nil, fmt.Errorf("unexpected schema %q", name)
	}
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Content: content, Model: "scripted-model", InputTokens: 100, OutputTokens: 20}, nil
}

func (s *scriptedProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fakeSearcher struct {
	hits []vectordb.Hit
	err  error
}

func (f *fakeSearcher) Search(context.Context, string, int) ([]vectordb.Hit, error) {
	return f.hits, f.err
}

var sampleHits = []vectordb.Hit{
	{Document: vectordb.Document{ID: "doc_faq_1", Text: "We limit uploads to 2MB by default.", Source: "faq"}, Score: 0.91},
}

func testPipelineConfig() config.PipelineConfig {
	return config.DefaultConfig().Pipeline
}

func testTicket() *tickets.Ticket {
	return &tickets.Ticket{
		ID:           "t_0001",
		CustomerID:   "c_0001",
		CustomerName: "Jane",
		TicketType:   "bug",
		Subject:      "Upload fails",
		Description:  "Upload fails at 3MB",
		Priority:     "high",
		Channel:      "web",
		SLA:          "24 hours",
	}
}

func newTestProcessor(provider llm.Provider, searcher Searcher, opts ...Option) *Processor {
	return New(provider, searcher, tickets.NewMemoryStore(nil), "scripted-model", testPipelineConfig(), opts...)
}

func requireStageError(t *testing.T, err error, stage Stage, kind string) {
	t.Helper()
	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, stage, se.Stage)
	require.Equal(t, kind, se.Kind())
}

func TestProcess_Success(t *testing.T) {
	provider := newScriptedProvider()
	var states []State
	p := newTestProcessor(provider, &fakeSearcher{hits: sampleHits}, WithObserver(func(_ context.Context, tr Transition) {
		states = append(states, tr.To)
	}))

	res, err := p.Process(context.Background(), testTicket())
	require.NoError(t, err)
	require.NotNil(t, res)

	require.Equal(t, "Uploads are capped at 2MB.", res.Retrieval.AnswerShort)
	require.Equal(t, sampleHits, res.Retrieval.Sources)
	require.InDelta(t, 0.8, res.Retrieval.Confidence, 1e-9)
	require.True(t, res.Retrieval.ResolutionSuggested)
	require.Equal(t, RiskLow, res.Diagnosis.Risk)
	require.Len(t, res.Diagnosis.Steps, 2)
	require.NotEmpty(t, res.Communication.CustomerMessage)

	require.Equal(t, []State{StateStart, StateRetrievalDone, StateDiagnosisDone, StateCommunicationDone}, states)
	require.Equal(t, []string{retrievalSchema.Name, diagnosisSchema.Name, communicationSchema.Name}, provider.calls)
}

func TestProcess_EmptyEvidenceNeverSuggestsResolution(t *testing.T) {
	for name, searcher := range map[string]*fakeSearcher{
		"no hits":           {},
		"store unavailable": {err: fmt.Errorf("%w: backend down", vectordb.ErrStoreUnavailable)},
	} {
		t.Run(name, func(t *testing.T) {
			provider := newScriptedProvider()
			provider.reply(retrievalSchema.Name, `{"answer_short":"Probably a size limit.","confidence":0.95,"resolution_suggested":true}`)

			res, err := newTestProcessor(provider, searcher).Process(context.Background(), testTicket())
			require.NoError(t, err)
			require.False(t, res.Retrieval.ResolutionSuggested)
			require.LessOrEqual(t, res.Retrieval.Confidence, 0.2)
			require.Empty(t, res.Retrieval.Sources)
		})
	}
}

func TestProcess_SearchFailureOtherThanUnavailable(t *testing.T) {
	provider := newScriptedProvider()
	p := newTestProcessor(provider, &fakeSearcher{err: errors.New("bad query")})

	_, err := p.Process(context.Background(), testTicket())
	requireStageError(t, err, StageRetrieval, KindInternal)
	require.Zero(t, provider.callCount())
}

func TestProcess_ConfidenceClamped(t *testing.T) {
	tests := []struct {
		reply string
		want  float64
	}{
		{`{"answer_short":"a","confidence":7,"resolution_suggested":true}`, 1},
		{`{"answer_short":"a","confidence":-0.5,"resolution_suggested":true}`, 0},
	}
	for _, tt := range tests {
		provider := newScriptedProvider()
		provider.reply(retrievalSchema.Name, tt.reply)

		res, err := newTestProcessor(provider, &fakeSearcher{hits: sampleHits}).Process(context.Background(), testTicket())
		require.NoError(t, err)
		require.Equal(t, tt.want, res.Retrieval.Confidence)
	}
}

func TestProcess_SchemaViolations(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		reply  string
		stage  Stage
	}{
		{"retrieval not json", retrievalSchema.Name, "I think the upload is too big.", StageRetrieval},
		{"retrieval missing confidence", retrievalSchema.Name, `{"answer_short":"a","resolution_suggested":false}`, StageRetrieval},
		{"retrieval empty answer", retrievalSchema.Name, `{"answer_short":"  ","confidence":0.5,"resolution_suggested":false}`, StageRetrieval},
		{"risk outside enum", diagnosisSchema.Name, `{"diagnosis":"d","steps":["s"],"risk":"critical","should_escalate":false}`, StageDiagnosis},
		{"risk wrong case", diagnosisSchema.Name, `{"diagnosis":"d","steps":["s"],"risk":"High","should_escalate":true}`, StageDiagnosis},
		{"no steps and no escalation", diagnosisSchema.Name, `{"diagnosis":"d","steps":[],"risk":"low","should_escalate":false}`, StageDiagnosis},
		{"empty customer message", communicationSchema.Name, `{"customer_message":"","internal_note":"n"}`, StageCommunication},
		{"missing customer message", communicationSchema.Name, `{"internal_note":"n"}`, StageCommunication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newScriptedProvider()
			provider.reply(tt.schema, tt.reply)
			var last Transition
			p := newTestProcessor(provider, &fakeSearcher{hits: sampleHits}, WithObserver(func(_ context.Context, tr Transition) {
				last = tr
			}))

			res, err := p.Process(context.Background(), testTicket())
			require.Nil(t, res)
			require.ErrorIs(t, err, llm.ErrSchemaViolation)
			requireStageError(t, err, tt.stage, KindSchemaViolation)
			require.Equal(t, StateFailed, last.To)
			require.NotNil(t, last.Err)
		})
	}
}

func TestProcess_StopsAtFailedStage(t *testing.T) {
	provider := newScriptedProvider()
	provider.reply(diagnosisSchema.Name, `{"diagnosis":"d","steps":["s"],"risk":"extreme","should_escalate":false}`)

	_, err := newTestProcessor(provider, &fakeSearcher{hits: sampleHits}).Process(context.Background(), testTicket())
	require.Error(t, err)
	require.Equal(t, []string{retrievalSchema.Name, diagnosisSchema.Name}, provider.calls)
}

func TestProcess_HighRiskForcesEscalation(t *testing.T) {
	provider := newScriptedProvider()
	provider.reply(diagnosisSchema.Name, `{"diagnosis":"Data loss on upload","steps":["Stop retries"],"risk":"high","should_escalate":false,"human_context_note":"Possible storage corruption, check bucket health"}`)

	res, err := newTestProcessor(provider, &fakeSearcher{hits: sampleHits}).Process(context.Background(), testTicket())
	require.NoError(t, err)
	require.True(t, res.Diagnosis.ShouldEscalate)
	require.Equal(t, "Possible storage corruption, check bucket health", res.Communication.InternalNote)
}

func TestProcess_HighRiskRuleDisabled(t *testing.T) {
	provider := newScriptedProvider()
	provider.reply(diagnosisSchema.Name, `{"diagnosis":"d","steps":["s"],"risk":"high","should_escalate":false}`)
	cfg := testPipelineConfig()
	cfg.EscalateOnHighRisk = false

	p := New(provider, &fakeSearcher{hits: sampleHits}, nil, "scripted-model", cfg)
	res, err := p.Process(context.Background(), testTicket())
	require.NoError(t, err)
	require.False(t, res.Diagnosis.ShouldEscalate)
}

func TestProcess_EscalationAlwaysHasInternalNote(t *testing.T) {
	provider := newScriptedProvider()
	provider.reply(diagnosisSchema.Name, `{"diagnosis":"Upload service rejects large files","steps":[],"risk":"medium","should_escalate":true,"human_context_note":null}`)
	provider.reply(communicationSchema.Name, `{"customer_message":"We've passed this to an engineer."}`)

	res, err := newTestProcessor(provider, &fakeSearcher{hits: sampleHits}).Process(context.Background(), testTicket())
	require.NoError(t, err)
	require.True(t, res.Diagnosis.ShouldEscalate)
	require.Empty(t, res.Diagnosis.Steps)
	require.Contains(t, res.Communication.InternalNote, "t_0001")
	require.Contains(t, res.Communication.InternalNote, "Upload service rejects large files")
}

func TestProcess_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler func(ctx context.Context, req llm.CompletionRequest) (string, error)
		kind    string
		is      error
	}{
		{
			name: "backend error",
			handler: func(context.Context, llm.CompletionRequest) (string, error) {
				return "", &llm.StatusError{Provider: "scripted", StatusCode: 500, Body: "boom"}
			},
			kind: KindUpstreamError,
			is:   llm.ErrUpstreamError,
		},
		{
			name: "stage timeout",
			handler: func(ctx context.Context, _ llm.CompletionRequest) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
			kind: KindUpstreamTimeout,
			is:   llm.ErrUpstreamTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newScriptedProvider()
			provider.handlers[diagnosisSchema.Name] = tt.handler
			cfg := testPipelineConfig()
			cfg.StageTimeout = 20 * time.Millisecond

			p := New(provider, &fakeSearcher{hits: sampleHits}, nil, "scripted-model", cfg)
			_, err := p.Process(context.Background(), testTicket())
			require.ErrorIs(t, err, tt.is)
			requireStageError(t, err, StageDiagnosis, tt.kind)
		})
	}
}

func TestProcess_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := newScriptedProvider()
	provider.handlers[retrievalSchema.Name] = func(ctx context.Context, _ llm.CompletionRequest) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}

	_, err := newTestProcessor(provider, &fakeSearcher{hits: sampleHits}).Process(ctx, testTicket())
	require.ErrorIs(t, err, context.Canceled)
	requireStageError(t, err, StageRetrieval, KindCanceled)
	require.Equal(t, 1, provider.callCount())
}

func TestProcessByID_NotFound(t *testing.T) {
	provider := newScriptedProvider()
	p := newTestProcessor(provider, &fakeSearcher{})

	_, err := p.ProcessByID(context.Background(), "t_missing")
	require.ErrorIs(t, err, tickets.ErrNotFound)
	require.Equal(t, KindNotFound, KindOf(err))
	require.Zero(t, provider.callCount())
}

func TestProcessBatch(t *testing.T) {
	ctx := context.Background()
	store := tickets.NewMemoryStore(nil)
	var ids []string
	for i := 0; i < 4; i++ {
		tk, err := store.Create(ctx, tickets.Fields{CustomerName: fmt.Sprintf("Customer %d", i), Subject: "Upload fails"})
		require.NoError(t, err)
		ids = append(ids, tk.ID)
	}
	ids = append(ids, "t_missing")

	p := New(newScriptedProvider(), &fakeSearcher{hits: sampleHits}, store, "scripted-model", testPipelineConfig())

	var mu sync.Mutex
	done := 0
	results := p.ProcessBatch(ctx, ids, 2, func(BatchResult) {
		mu.Lock()
		done++
		mu.Unlock()
	})

	require.Len(t, results, len(ids))
	require.Equal(t, len(ids), done)
	for i, r := range results {
		require.Equal(t, ids[i], r.TicketID)
		if r.TicketID == "t_missing" {
			require.ErrorIs(t, r.Err, tickets.ErrNotFound)
			require.Nil(t, r.Result)
			continue
		}
		require.NoError(t, r.Err)
		require.NotEmpty(t, r.Result.Communication.CustomerMessage)
	}
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturePublisher) Publish(_ context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func TestRecordOutcomes(t *testing.T) {
	ctx := context.Background()
	log := audit.NewMemoryLog()
	pub := &capturePublisher{}

	provider := newScriptedProvider()
	p := newTestProcessor(provider, &fakeSearcher{hits: sampleHits}, WithObserver(RecordOutcomes(log, pub)))

	_, err := p.Process(ctx, testTicket())
	require.NoError(t, err)

	provider.reply(communicationSchema.Name, `{"customer_message":""}`)
	_, err = p.Process(ctx, testTicket())
	require.Error(t, err)

	entries, err := log.ForTicket(ctx, "t_0001", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, audit.ActionProcessed, entries[0].Action)
	require.Equal(t, audit.ActionProcessFailed, entries[1].Action)
	require.Equal(t, string(StageCommunication), entries[1].Stage)
	require.Equal(t, KindSchemaViolation, entries[1].Kind)

	require.Len(t, pub.events, 2)
	require.Equal(t, events.TicketProcessed, pub.events[0].Type)
	require.Equal(t, RiskLow, pub.events[0].Risk)
	require.Equal(t, events.TicketProcessFailed, pub.events[1].Type)
}

func TestScenario_UploadCreateProcess(t *testing.T) {
	ctx := context.Background()

	store, err := vectordb.NewChromemStore(embeddings.NewHashEmbedder(embeddings.LocalDimensions))
	require.NoError(t, err)
	kb := knowledge.NewService(store, knowledge.Options{})

	n, err := kb.Upload(ctx, "Uploads are capped at 2MB.\n\nContact support for increases.", "faq")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	ticketStore := tickets.NewMemoryStore(nil)
	tk, err := ticketStore.Create(ctx, tickets.Fields{
		CustomerName: "Jane",
		TicketType:   "bug",
		Subject:      "Upload fails",
		Description:  "Upload fails at 3MB",
		Priority:     "high",
		Channel:      "web",
	})
	require.NoError(t, err)
	require.NotEmpty(t, tk.ID)

	p := New(newScriptedProvider(), kb, ticketStore, "scripted-model", testPipelineConfig())
	res, err := p.ProcessByID(ctx, tk.ID)
	require.NoError(t, err)
	require.NotEmpty(t, res.Communication.CustomerMessage)
	require.Contains(t, []string{RiskLow, RiskMedium, RiskHigh}, res.Diagnosis.Risk)
	require.NotEmpty(t, res.Retrieval.Sources)
}
