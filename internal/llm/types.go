package llm

import "github.com/sashabaranov/go-openai/jsonschema"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
}

// Schema names a JSON schema the completion must conform to.
type Schema struct {
	Name        string
	Description string
	Definition  jsonschema.Definition
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
	// Schema, when set, asks the provider for structured output. Providers
	// without native support fall back to JSON mode plus an instruction.
	Schema *Schema
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
