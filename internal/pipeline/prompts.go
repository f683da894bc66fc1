package pipeline

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/supportdesk/internal/llm"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
	"github.com/ziadkadry99/supportdesk/internal/vectordb"
)

const retrievalSystemPrompt = `You are the knowledge base assistant of a customer support team. Answer the customer's question using only the evidence provided. If the evidence does not cover the question, say so, keep confidence low and do not suggest a resolution. Respond with a JSON object only.`

const diagnosisSystemPrompt = `You are a technical support specialist. Diagnose the customer's issue from the knowledge base answer and suggest conservative, safe remediation steps. Escalate to a human when the steps are risky, uncertain or outside what support can do. Respond with a JSON object only.`

const communicationSystemPrompt = `You are an empathetic customer communicator. Write a warm, concise reply to the customer that acknowledges the problem, explains the next steps in plain language and respects the ticket's SLA. Never promise what the diagnosis does not support. Respond with a JSON object only.`

// Model-facing output shapes. Tags drive the JSON schema sent to the model.

type retrievalOutput struct {
	AnswerShort         string   `json:"answer_short" description:"Short answer to the customer's question, grounded in the evidence"`
	Confidence          float64  `json:"confidence" description:"Confidence in the answer between 0 and 1"`
	ResolutionSuggested bool     `json:"resolution_suggested" description:"Whether the evidence suggests a concrete resolution"`
	Explainers          []string `json:"explainers,omitempty" description:"Short notes on how the evidence supports the answer"`
}

type diagnosisOutput struct {
	Diagnosis        string   `json:"diagnosis" description:"Likely cause of the issue"`
	Steps            []string `json:"steps" description:"Ordered remediation steps"`
	Risk             string   `json:"risk" enum:"low,medium,high" description:"Risk of the remediation or of the issue itself"`
	ShouldEscalate   bool     `json:"should_escalate" description:"Whether a human engineer must take over"`
	HumanContextNote string   `json:"human_context_note,omitempty" description:"Context for the human taking over, when escalating"`
}

type communicationOutput struct {
	CustomerMessage string `json:"customer_message" description:"Reply to send to the customer"`
	InternalNote    string `json:"internal_note,omitempty" description:"Note for the support team, not shown to the customer"`
}

var (
	retrievalSchema     = llm.SchemaFor("retrieval_result", "Knowledge base answer for a support ticket", retrievalOutput{})
	diagnosisSchema     = llm.SchemaFor("diagnosis_result", "Technical diagnosis of a support ticket", diagnosisOutput{})
	communicationSchema = llm.SchemaFor("communication_result", "Customer reply for a support ticket", communicationOutput{})
)

func searchQuery(t *tickets.Ticket) string {
	return t.Subject + "\n" + t.Description
}

func buildRetrievalMessages(t *tickets.Ticket, hits []vectordb.Hit) []llm.Message {
	var sb strings.Builder
	sb.WriteString("Answer this customer query using the knowledge base.\n\n")
	writeTicket(&sb, t)
	sb.WriteString("\nEvidence:\n")
	if len(hits) == 0 {
		sb.WriteString("(no matching knowledge base entries)\n")
	} else {
		sb.WriteString(vectordb.FormatHits(hits))
	}
	sb.WriteString(`
Return a JSON object with:
- answer_short: string
- confidence: number between 0 and 1
- resolution_suggested: boolean
- explainers: optional list of strings`)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: retrievalSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}
}

func buildDiagnosisMessages(t *tickets.Ticket, r *RetrievalResult) []llm.Message {
	var sb strings.Builder
	sb.WriteString("Diagnose the issue and suggest steps based on the knowledge base answer.\n\n")
	fmt.Fprintf(&sb, "Ticket subject: %s\nTicket type: %s\nPriority: %s\n\n", t.Subject, orNone(t.TicketType), orNone(t.Priority))
	writeRetrieval(&sb, r)
	sb.WriteString(`
Return a JSON object with:
- diagnosis: string
- steps: list of strings
- risk: one of "low", "medium", "high"
- should_escalate: boolean
- human_context_note: optional string`)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: diagnosisSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}
}

func buildCommunicationMessages(t *tickets.Ticket, r *RetrievalResult, d *DiagnosisResult) []llm.Message {
	var sb strings.Builder
	sb.WriteString("Write the customer-facing message and an internal note.\n\n")
	writeTicket(&sb, t)
	sb.WriteString("\n")
	writeRetrieval(&sb, r)
	sb.WriteString("\nDiagnosis:\n")
	fmt.Fprintf(&sb, "Cause: %s\nRisk: %s\nEscalated to a human: %t\n", d.Diagnosis, d.Risk, d.ShouldEscalate)
	for i, step := range d.Steps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	if d.HumanContextNote != "" {
		fmt.Fprintf(&sb, "Context for the team: %s\n", d.HumanContextNote)
	}
	sb.WriteString(`
Return a JSON object with:
- customer_message: string
- internal_note: optional string`)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: communicationSystemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}
}

func writeTicket(sb *strings.Builder, t *tickets.Ticket) {
	fmt.Fprintf(sb, "Ticket %s\n", t.ID)
	fmt.Fprintf(sb, "Customer: %s\n", t.CustomerName)
	if t.ProductPurchased != "" {
		fmt.Fprintf(sb, "Product: %s\n", t.ProductPurchased)
	}
	fmt.Fprintf(sb, "Type: %s\nPriority: %s\nChannel: %s\nSLA: %s\n", orNone(t.TicketType), orNone(t.Priority), orNone(t.Channel), t.SLA)
	fmt.Fprintf(sb, "Subject: %s\nDescription: %s\n", t.Subject, t.Description)
}

func writeRetrieval(sb *strings.Builder, r *RetrievalResult) {
	sb.WriteString("Knowledge base answer:\n")
	fmt.Fprintf(sb, "Answer: %s\nConfidence: %.2f\nResolution suggested: %t\n", r.AnswerShort, r.Confidence, r.ResolutionSuggested)
	for _, e := range r.Explainers {
		fmt.Fprintf(sb, "- %s\n", e)
	}
	if len(r.Sources) > 0 {
		ids := make([]string, len(r.Sources))
		for i, s := range r.Sources {
			ids[i] = s.ID
		}
		fmt.Fprintf(sb, "Sources: %s\n", strings.Join(ids, ", "))
	}
}

func orNone(s string) string {
	if s == "" {
		return "unspecified"
	}
	return s
}
