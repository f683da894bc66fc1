package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/supportdesk/internal/llm"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
	"github.com/ziadkadry99/supportdesk/internal/vectordb"
)

// complete runs one stage completion under the stage timeout and decodes
// it against schema into out. Errors carry an llm sentinel.
func (p *Processor) complete(ctx context.Context, stage Stage, schema *llm.Schema, messages []llm.Message, out any) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	start := time.Now()
	resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		JSONMode:    true,
		Schema:      schema,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return llm.Classify(err)
	}

	in, outTokens := resp.InputTokens, resp.OutputTokens
	if in == 0 && outTokens == 0 {
		for _, m := range messages {
			in += llm.EstimateTokens(m.Content)
		}
		outTokens = llm.EstimateTokens(resp.Content)
	}
	slog.Debug("stage completion",
		"stage", stage,
		"provider", p.provider.Name(),
		"model", resp.Model,
		"input_tokens", in,
		"output_tokens", outTokens,
		"cost_usd", llm.EstimateCost(p.model, in, outTokens),
		"elapsed", time.Since(start),
	)

	return llm.Decode(resp.Content, schema, out)
}

func (p *Processor) retrieve(ctx context.Context, t *tickets.Ticket) (*RetrievalResult, error) {
	hits, err := p.searcher.Search(ctx, searchQuery(t), p.cfg.TopK)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, vectordb.ErrStoreUnavailable):
		slog.Warn("knowledge search unavailable, continuing without evidence", "ticket_id", t.ID, "error", err)
		hits = nil
	default:
		return nil, fmt.Errorf("searching knowledge: %w", err)
	}

	var out retrievalOutput
	if err := p.complete(ctx, StageRetrieval, retrievalSchema, buildRetrievalMessages(t, hits), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.AnswerShort) == "" {
		return nil, violation("answer_short is empty")
	}

	res := &RetrievalResult{
		AnswerShort:         out.AnswerShort,
		Sources:             hits,
		Confidence:          clamp01(out.Confidence),
		ResolutionSuggested: out.ResolutionSuggested,
		Explainers:          out.Explainers,
	}
	if len(hits) == 0 {
		res.Sources = []vectordb.Hit{}
		res.ResolutionSuggested = false
		res.Confidence = min(res.Confidence, p.cfg.LowEvidenceConfidence)
	}
	return res, nil
}

func (p *Processor) diagnose(ctx context.Context, t *tickets.Ticket, r *RetrievalResult) (*DiagnosisResult, error) {
	var out diagnosisOutput
	if err := p.complete(ctx, StageDiagnosis, diagnosisSchema, buildDiagnosisMessages(t, r), &out); err != nil {
		return nil, err
	}

	switch out.Risk {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return nil, violation("risk %q is not one of low, medium, high", out.Risk)
	}
	if strings.TrimSpace(out.Diagnosis) == "" {
		return nil, violation("diagnosis is empty")
	}

	res := &DiagnosisResult{
		Diagnosis:        out.Diagnosis,
		Steps:            nonBlank(out.Steps),
		Risk:             out.Risk,
		ShouldEscalate:   out.ShouldEscalate,
		HumanContextNote: strings.TrimSpace(out.HumanContextNote),
	}
	if res.Risk == RiskHigh && p.cfg.EscalateOnHighRisk {
		res.ShouldEscalate = true
	}
	if len(res.Steps) == 0 && !res.ShouldEscalate {
		return nil, violation("no steps given and not escalated")
	}
	if res.Steps == nil {
		res.Steps = []string{}
	}
	return res, nil
}

func (p *Processor) communicate(ctx context.Context, t *tickets.Ticket, r *RetrievalResult, d *DiagnosisResult) (*CommunicationResult, error) {
	var out communicationOutput
	if err := p.complete(ctx, StageCommunication, communicationSchema, buildCommunicationMessages(t, r, d), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.CustomerMessage) == "" {
		return nil, violation("customer_message is empty")
	}

	res := &CommunicationResult{
		CustomerMessage: out.CustomerMessage,
		InternalNote:    strings.TrimSpace(out.InternalNote),
	}
	if d.ShouldEscalate && res.InternalNote == "" {
		res.InternalNote = escalationNote(t, d)
	}
	return res, nil
}

func escalationNote(t *tickets.Ticket, d *DiagnosisResult) string {
	if d.HumanContextNote != "" {
		return d.HumanContextNote
	}
	return fmt.Sprintf("Escalated %s-priority ticket %s (%s risk, SLA %s): %s",
		orNone(t.Priority), t.ID, d.Risk, t.SLA, d.Diagnosis)
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

func nonBlank(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
