package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to supportdesk! Let's configure the triage service.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Completion provider.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"groq", "openai", "openrouter", "minimax", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: DefaultModel(cfg.Provider),
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 2. Embeddings.
	embedPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{
			"local  - offline feature hashing, good for demos",
			"openai - text-embedding-3-small",
			"ollama - nomic-embed-text on a local Ollama",
		},
	}
	embedIdx, _, err := embedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding selection: %w", err)
	}
	cfg.EmbeddingProvider = []ProviderType{ProviderLocal, ProviderOpenAI, ProviderOllama}[embedIdx]
	cfg.EmbeddingModel = DefaultEmbeddingModel(cfg.EmbeddingProvider)

	// 3. Ticket store.
	storePrompt := promptui.Select{
		Label: "Where should tickets live",
		Items: []string{"sqlite", "memory", "postgres"},
	}
	_, storeStr, err := storePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("store selection: %w", err)
	}
	cfg.TicketStore = StoreKind(storeStr)

	if cfg.TicketStore == StorePostgres {
		dsnPrompt := promptui.Prompt{
			Label:   "Postgres DSN",
			Default: "postgres://localhost:5432/supportdesk?sslmode=disable",
		}
		if cfg.PostgresDSN, err = dsnPrompt.Run(); err != nil {
			return nil, fmt.Errorf("postgres dsn: %w", err)
		}
	}

	dataPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 4. Optional Kafka brokers.
	brokersPrompt := promptui.Prompt{
		Label:   "Kafka brokers for ticket events (comma-separated, blank to disable)",
		Default: "",
	}
	brokersStr, err := brokersPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("kafka brokers: %w", err)
	}
	cfg.Events.Brokers = splitAndTrim(brokersStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: set %s in your environment or .env before running supportdesk server.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
