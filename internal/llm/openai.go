package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	groqBaseURL       = "https://api.groq.com/openai/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	minimaxBaseURL    = "https://api.minimax.io/v1"
)

// OpenAIProvider implements Provider using the OpenAI Chat Completions API.
// Groq, OpenRouter and MiniMax expose the same API under another base URL.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
	// nativeSchema is true when the backend accepts response_format json_schema.
	nativeSchema bool
	minTemp      float64
	maxTemp      float64
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client:       openai.NewClient(apiKey),
		model:        model,
		name:         "openai",
		nativeSchema: true,
		maxTemp:      2.0,
	}
}

// NewGroqProvider creates a provider for Groq's OpenAI-compatible endpoint.
func NewGroqProvider(apiKey string, model string) *OpenAIProvider {
	return newCompatibleProvider("groq", groqBaseURL, apiKey, model, true)
}

// NewOpenRouterProvider creates a provider for OpenRouter.
func NewOpenRouterProvider(apiKey string, model string) *OpenAIProvider {
	return newCompatibleProvider("openrouter", openRouterBaseURL, apiKey, model, true)
}

// NewMinimaxProvider creates a provider for the MiniMax API.
func NewMinimaxProvider(apiKey string, model string) *OpenAIProvider {
	p := newCompatibleProvider("minimax", minimaxBaseURL, apiKey, model, false)
	// MiniMax requires temperature in (0.0, 1.0].
	p.minTemp = 0.01
	p.maxTemp = 1.0
	return p
}

func newCompatibleProvider(name, baseURL, apiKey, model string, nativeSchema bool) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(cfg),
		model:        model,
		name:         name,
		nativeSchema: nativeSchema,
		maxTemp:      2.0,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	temp := req.Temperature
	if temp < p.minTemp {
		temp = p.minTemp
	} else if temp > p.maxTemp {
		temp = p.maxTemp
	}

	msgs := req.Messages
	if req.Schema != nil && !p.nativeSchema {
		msgs = withSchemaInstruction(msgs, req.Schema)
	}

	var messages []openai.ChatCompletionMessage
	for _, msg := range msgs {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(temp),
	}

	switch {
	case req.Schema != nil && p.nativeSchema:
		def := req.Schema.Definition
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Schema:      &def,
				// Optional properties are not expressible in strict mode.
				Strict: false,
			},
		}
	case req.JSONMode || req.Schema != nil:
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", p.name, err)
	}

	var content, finishReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:      content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: finishReason,
	}, nil
}

// withSchemaInstruction appends a system message describing the expected
// JSON shape for backends that only support json_object mode.
func withSchemaInstruction(msgs []Message, schema *Schema) []Message {
	raw, err := json.Marshal(schema.Definition)
	if err != nil {
		return msgs
	}
	out := make([]Message, 0, len(msgs)+1)
	out = append(out, msgs...)
	out = append(out, Message{
		Role:    RoleSystem,
		Content: fmt.Sprintf("Respond with a single JSON object matching this JSON schema:\n%s", raw),
	})
	return out
}
