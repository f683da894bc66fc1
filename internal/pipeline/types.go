// Package pipeline triages a ticket through three sequential LLM stages:
// knowledge retrieval, technical diagnosis and customer communication.
package pipeline

import (
	"context"
	"time"

	"github.com/ziadkadry99/supportdesk/internal/vectordb"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageRetrieval     Stage = "retrieval"
	StageDiagnosis     Stage = "diagnosis"
	StageCommunication Stage = "communication"
)

// State is a position in the processing workflow.
type State string

const (
	StateStart             State = "start"
	StateRetrievalDone     State = "retrieval_done"
	StateDiagnosisDone     State = "diagnosis_done"
	StateCommunicationDone State = "communication_done"
	StateFailed            State = "failed"
)

// Risk levels a diagnosis may assign.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// RetrievalResult is the knowledge-grounded answer for a ticket.
type RetrievalResult struct {
	AnswerShort         string         `json:"answer_short"`
	Sources             []vectordb.Hit `json:"sources"`
	Confidence          float64        `json:"confidence"`
	ResolutionSuggested bool           `json:"resolution_suggested"`
	Explainers          []string       `json:"explainers,omitempty"`
}

// DiagnosisResult is the technical assessment of a ticket.
type DiagnosisResult struct {
	Diagnosis        string   `json:"diagnosis"`
	Steps            []string `json:"steps"`
	Risk             string   `json:"risk"`
	ShouldEscalate   bool     `json:"should_escalate"`
	HumanContextNote string   `json:"human_context_note,omitempty"`
}

// CommunicationResult is the reply drafted for the customer.
type CommunicationResult struct {
	CustomerMessage string `json:"customer_message"`
	InternalNote    string `json:"internal_note,omitempty"`
}

// Result holds the outputs of all three stages. It is only ever returned
// complete.
type Result struct {
	Retrieval     RetrievalResult     `json:"retrieval"`
	Diagnosis     DiagnosisResult     `json:"diagnosis"`
	Communication CommunicationResult `json:"communication"`
}

// Searcher finds knowledge relevant to a query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]vectordb.Hit, error)
}

// Transition reports a state change of one Process call.
type Transition struct {
	TicketID string
	From     State
	To       State
	At       time.Time
	// Output is the stage result that completed with this transition, if any.
	Output any
	// Result is set on the transition into StateCommunicationDone.
	Result *Result
	// Err is set on the transition into StateFailed.
	Err *StageError
}

// Observer is notified of every transition, synchronously and in order.
type Observer func(ctx context.Context, tr Transition)

// BatchResult is the outcome for one ticket of ProcessBatch.
type BatchResult struct {
	TicketID string
	Result   *Result
	Err      error
}
