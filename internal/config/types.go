package config

import "time"

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderGroq       ProviderType = "groq"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderMiniMax    ProviderType = "minimax"
	ProviderOllama     ProviderType = "ollama"
	// ProviderLocal embeds text with a deterministic feature hash. It needs
	// no network and is meant for demos and tests.
	ProviderLocal ProviderType = "local"
)

// StoreKind selects the ticket store backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreSQLite   StoreKind = "sqlite"
	StorePostgres StoreKind = "postgres"
)

// UnknownPolicy controls what the ticket store does with values outside
// an allow-list.
type UnknownPolicy string

const (
	UnknownReject UnknownPolicy = "reject"
	UnknownTag    UnknownPolicy = "tag"
)

// Config is the top-level supportdesk configuration, corresponding to .supportdesk.yml.
type Config struct {
	Provider          ProviderType        `yaml:"provider" koanf:"provider"`
	Model             string              `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType        `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string              `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir           string              `yaml:"data_dir" koanf:"data_dir"`
	TicketStore       StoreKind           `yaml:"ticket_store" koanf:"ticket_store"`
	PostgresDSN       string              `yaml:"postgres_dsn" koanf:"postgres_dsn"`
	MaxConcurrency    int                 `yaml:"max_concurrency" koanf:"max_concurrency"`
	Server            ServerConfig        `yaml:"server" koanf:"server"`
	Pipeline          PipelineConfig      `yaml:"pipeline" koanf:"pipeline"`
	LLM               LLMConfig           `yaml:"llm" koanf:"llm"`
	Knowledge         KnowledgeConfig     `yaml:"knowledge" koanf:"knowledge"`
	Tickets           TicketsConfig       `yaml:"tickets" koanf:"tickets"`
	Events            EventsConfig        `yaml:"events" koanf:"events"`
	Notifications     NotificationsConfig `yaml:"notifications" koanf:"notifications"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// PipelineConfig tunes the three-stage triage pipeline.
type PipelineConfig struct {
	TopK                  int           `yaml:"top_k" koanf:"top_k"`
	StageTimeout          time.Duration `yaml:"stage_timeout" koanf:"stage_timeout"`
	LowEvidenceConfidence float64       `yaml:"low_evidence_confidence" koanf:"low_evidence_confidence"`
	EscalateOnHighRisk    bool          `yaml:"escalate_on_high_risk" koanf:"escalate_on_high_risk"`
	Temperature           float64       `yaml:"temperature" koanf:"temperature"`
	MaxTokens             int           `yaml:"max_tokens" koanf:"max_tokens"`
}

// LLMConfig holds completion-backend resilience settings.
type LLMConfig struct {
	MaxRetries        int           `yaml:"max_retries" koanf:"max_retries"`
	RetryBackoff      time.Duration `yaml:"retry_backoff" koanf:"retry_backoff"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// KnowledgeConfig holds knowledge-base settings.
type KnowledgeConfig struct {
	SearchTimeout  time.Duration `yaml:"search_timeout" koanf:"search_timeout"`
	QueryCacheSize int           `yaml:"query_cache_size" koanf:"query_cache_size"`
}

// TicketsConfig holds allow-lists and SLA labels for ticket normalization.
type TicketsConfig struct {
	Types              []string          `yaml:"types" koanf:"types"`
	Priorities         []string          `yaml:"priorities" koanf:"priorities"`
	Channels           []string          `yaml:"channels" koanf:"channels"`
	UnknownFieldPolicy UnknownPolicy     `yaml:"unknown_field_policy" koanf:"unknown_field_policy"`
	DefaultSLA         string            `yaml:"default_sla" koanf:"default_sla"`
	SLAByPriority      map[string]string `yaml:"sla_by_priority" koanf:"sla_by_priority"`
}

// EventsConfig configures the ticket lifecycle event publisher. Publishing is
// disabled when Brokers is empty.
type EventsConfig struct {
	Brokers []string `yaml:"brokers" koanf:"brokers"`
	Topic   string   `yaml:"topic" koanf:"topic"`
}

// NotificationsConfig lists the webhooks alerted when a ticket is escalated.
type NotificationsConfig struct {
	EscalationWebhooks []WebhookConfig `yaml:"escalation_webhooks" koanf:"escalation_webhooks"`
	Timeout            time.Duration   `yaml:"timeout" koanf:"timeout"`
}

// WebhookConfig is one escalation webhook. SeverityFilter is info, warning
// or critical; empty means every escalation is sent.
type WebhookConfig struct {
	URL            string `yaml:"url" koanf:"url"`
	SeverityFilter string `yaml:"severity_filter" koanf:"severity_filter"`
}
