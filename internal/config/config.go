package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides. Nested keys
// use a double underscore: SUPPORTDESK_PIPELINE__TOP_K -> pipeline.top_k.
const EnvPrefix = "SUPPORTDESK_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SUPPORTDESK_*). A .env file in the
// working directory is loaded into the process environment first.
func Load(path string) (*Config, error) {
	// Missing .env is the common case.
	_ = godotenv.Load()

	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Models follow the provider unless pinned explicitly.
	if !k.Exists("model") {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	if !k.Exists("embedding_model") {
		cfg.EmbeddingModel = DefaultEmbeddingModel(cfg.EmbeddingProvider)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI:     true,
	ProviderGroq:       true,
	ProviderOpenRouter: true,
	ProviderMiniMax:    true,
	ProviderOllama:     true,
}

var validEmbeddingProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
	ProviderLocal:  true,
}

var validStores = map[StoreKind]bool{
	StoreMemory:   true,
	StoreSQLite:   true,
	StorePostgres: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of openai, groq, openrouter, minimax, ollama", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if !validEmbeddingProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q: must be one of openai, ollama, local", c.EmbeddingProvider)
	}

	if !validStores[c.TicketStore] {
		return fmt.Errorf("invalid ticket_store %q: must be one of memory, sqlite, postgres", c.TicketStore)
	}
	if c.TicketStore == StorePostgres && c.PostgresDSN == "" {
		return fmt.Errorf("postgres_dsn is required when ticket_store is postgres")
	}
	if c.TicketStore == StoreSQLite && c.DataDir == "" {
		return fmt.Errorf("data_dir is required when ticket_store is sqlite")
	}

	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be non-negative")
	}
	if c.Pipeline.TopK <= 0 {
		return fmt.Errorf("pipeline.top_k must be positive")
	}
	if c.Pipeline.StageTimeout <= 0 {
		return fmt.Errorf("pipeline.stage_timeout must be positive")
	}
	if c.Pipeline.LowEvidenceConfidence < 0 || c.Pipeline.LowEvidenceConfidence > 1 {
		return fmt.Errorf("pipeline.low_evidence_confidence must be within [0,1]")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be non-negative")
	}
	if c.Knowledge.SearchTimeout <= 0 {
		return fmt.Errorf("knowledge.search_timeout must be positive")
	}

	for i, w := range c.Notifications.EscalationWebhooks {
		if w.URL == "" {
			return fmt.Errorf("notifications.escalation_webhooks[%d].url is required", i)
		}
		switch w.SeverityFilter {
		case "", "info", "warning", "critical":
		default:
			return fmt.Errorf("invalid notifications.escalation_webhooks[%d].severity_filter %q: must be info, warning or critical", i, w.SeverityFilter)
		}
	}

	switch c.Tickets.UnknownFieldPolicy {
	case UnknownReject, UnknownTag:
	default:
		return fmt.Errorf("invalid tickets.unknown_field_policy %q: must be reject or tag", c.Tickets.UnknownFieldPolicy)
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGroq:
		return "GROQ_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderMiniMax:
		return "MINIMAX_API_KEY"
	default:
		return ""
	}
}
