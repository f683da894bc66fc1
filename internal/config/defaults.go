package config

import "time"

// defaultModels maps each provider to the model used when none is configured.
var defaultModels = map[ProviderType]string{
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderGroq:       "openai/gpt-oss-120b",
	ProviderOpenRouter: "openai/gpt-4o-mini",
	ProviderMiniMax:    "MiniMax-M2.5",
	ProviderOllama:     "llama3",
}

// defaultEmbeddingModels maps each embedding provider to its default model.
var defaultEmbeddingModels = map[ProviderType]string{
	ProviderOpenAI: "text-embedding-3-small",
	ProviderOllama: "nomic-embed-text",
	ProviderLocal:  "hash-256",
}

// DefaultModel returns the default completion model for a provider.
func DefaultModel(provider ProviderType) string {
	return defaultModels[provider]
}

// DefaultEmbeddingModel returns the default embedding model for a provider.
func DefaultEmbeddingModel(provider ProviderType) string {
	return defaultEmbeddingModels[provider]
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderGroq,
		Model:             defaultModels[ProviderGroq],
		EmbeddingProvider: ProviderLocal,
		EmbeddingModel:    defaultEmbeddingModels[ProviderLocal],
		DataDir:           "data",
		TicketStore:       StoreSQLite,
		MaxConcurrency:    4,
		Server: ServerConfig{
			Port:            8080,
			AllowAllOrigins: true,
		},
		Pipeline: PipelineConfig{
			TopK:                  6,
			StageTimeout:          60 * time.Second,
			LowEvidenceConfidence: 0.2,
			EscalateOnHighRisk:    true,
			Temperature:           0.3,
			MaxTokens:             512,
		},
		LLM: LLMConfig{
			MaxRetries:        1,
			RetryBackoff:      2 * time.Second,
			RequestsPerMinute: 30,
		},
		Knowledge: KnowledgeConfig{
			SearchTimeout:  10 * time.Second,
			QueryCacheSize: 512,
		},
		Tickets: TicketsConfig{
			Types:              []string{"bug", "feature_request", "billing", "technical", "general"},
			Priorities:         []string{"low", "medium", "high", "urgent"},
			Channels:           []string{"email", "chat", "phone", "web"},
			UnknownFieldPolicy: UnknownTag,
			DefaultSLA:         "48 hours",
			SLAByPriority: map[string]string{
				"urgent": "4 hours",
				"high":   "24 hours",
			},
		},
		Events: EventsConfig{
			Topic: "supportdesk.tickets",
		},
		Notifications: NotificationsConfig{
			Timeout: 10 * time.Second,
		},
	}
}
