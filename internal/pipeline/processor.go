package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/supportdesk/internal/config"
	"github.com/ziadkadry99/supportdesk/internal/ids"
	"github.com/ziadkadry99/supportdesk/internal/llm"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

// Processor runs tickets through the retrieval, diagnosis and
// communication stages. It holds no per-ticket state and is safe for
// concurrent use.
type Processor struct {
	provider  llm.Provider
	searcher  Searcher
	store     tickets.Store
	model     string
	cfg       config.PipelineConfig
	observers []Observer
}

// Option configures a Processor.
type Option func(*Processor)

// WithObserver registers an observer notified of every transition.
func WithObserver(o Observer) Option {
	return func(p *Processor) {
		p.observers = append(p.observers, o)
	}
}

// New creates a Processor. The ticket store is only needed by ProcessByID
// and ProcessBatch.
func New(provider llm.Provider, searcher Searcher, store tickets.Store, model string, cfg config.PipelineConfig, opts ...Option) *Processor {
	p := &Processor{
		provider: provider,
		searcher: searcher,
		store:    store,
		model:    model,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs all three stages for t. It returns either a complete result
// or a *StageError naming the stage that failed.
func (p *Processor) Process(ctx context.Context, t *tickets.Ticket) (*Result, error) {
	return p.ProcessObserved(ctx, t, nil)
}

// ProcessObserved is Process with an extra observer for this call only.
func (p *Processor) ProcessObserved(ctx context.Context, t *tickets.Ticket, obs Observer) (*Result, error) {
	run := &run{p: p, ctx: ctx, ticketID: t.ID, state: StateStart, extra: obs}
	start := time.Now()
	run.emit(StateStart, nil)

	retrieval, err := p.retrieve(ctx, t)
	if err != nil {
		return nil, run.fail(StageRetrieval, err)
	}
	run.emit(StateRetrievalDone, retrieval)

	diagnosis, err := p.diagnose(ctx, t, retrieval)
	if err != nil {
		return nil, run.fail(StageDiagnosis, err)
	}
	run.emit(StateDiagnosisDone, diagnosis)

	communication, err := p.communicate(ctx, t, retrieval, diagnosis)
	if err != nil {
		return nil, run.fail(StageCommunication, err)
	}

	result := &Result{
		Retrieval:     *retrieval,
		Diagnosis:     *diagnosis,
		Communication: *communication,
	}
	run.finish(result)

	slog.Info("ticket processed",
		"ticket_id", t.ID,
		"risk", diagnosis.Risk,
		"escalated", diagnosis.ShouldEscalate,
		"confidence", retrieval.Confidence,
		"sources", len(retrieval.Sources),
		"elapsed", time.Since(start),
	)
	return result, nil
}

// ProcessByID loads the ticket from the store and processes it. A missing
// ticket returns tickets.ErrNotFound before any stage runs.
func (p *Processor) ProcessByID(ctx context.Context, id string) (*Result, error) {
	t, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading ticket %s: %w", id, err)
	}
	return p.Process(ctx, t)
}

// ProcessBatch processes the given tickets with at most parallel running
// at once. Each ticket succeeds or fails independently; onDone, when not
// nil, is called as each one finishes. Results keep the order of ids.
func (p *Processor) ProcessBatch(ctx context.Context, ticketIDs []string, parallel int, onDone func(BatchResult)) []BatchResult {
	if parallel <= 0 {
		parallel = 1
	}
	results := make([]BatchResult, len(ticketIDs))

	var g errgroup.Group
	g.SetLimit(parallel)
	for i, id := range ticketIDs {
		g.Go(func() error {
			res, err := p.ProcessByID(ctx, id)
			results[i] = BatchResult{TicketID: id, Result: res, Err: err}
			if err != nil {
				slog.Warn("batch ticket failed", "ticket_id", id, "kind", KindOf(err), "error", err)
			}
			if onDone != nil {
				onDone(results[i])
			}
			return nil
		})
	}
	g.Wait()
	return results
}

// run tracks the state of one Process call.
type run struct {
	p        *Processor
	ctx      context.Context
	ticketID string
	state    State
	extra    Observer
}

func (r *run) emit(to State, output any) {
	r.notify(Transition{TicketID: r.ticketID, From: r.state, To: to, At: ids.Now(), Output: output})
	r.state = to
}

func (r *run) finish(result *Result) {
	r.notify(Transition{
		TicketID: r.ticketID,
		From:     r.state,
		To:       StateCommunicationDone,
		At:       ids.Now(),
		Output:   &result.Communication,
		Result:   result,
	})
	r.state = StateCommunicationDone
}

func (r *run) fail(stage Stage, err error) *StageError {
	se := &StageError{Stage: stage, Err: err}
	slog.Warn("ticket processing failed",
		"ticket_id", r.ticketID,
		"stage", stage,
		"kind", se.Kind(),
		"error", err,
	)
	r.notify(Transition{TicketID: r.ticketID, From: r.state, To: StateFailed, At: ids.Now(), Err: se})
	r.state = StateFailed
	return se
}

func (r *run) notify(tr Transition) {
	slog.Debug("pipeline transition", "ticket_id", tr.TicketID, "from", tr.From, "to", tr.To)
	for _, o := range r.p.observers {
		o(r.ctx, tr)
	}
	if r.extra != nil {
		r.extra(r.ctx, tr)
	}
}
