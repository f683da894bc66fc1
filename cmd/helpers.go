package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ziadkadry99/supportdesk/internal/audit"
	"github.com/ziadkadry99/supportdesk/internal/config"
	"github.com/ziadkadry99/supportdesk/internal/db"
	"github.com/ziadkadry99/supportdesk/internal/embeddings"
	"github.com/ziadkadry99/supportdesk/internal/events"
	"github.com/ziadkadry99/supportdesk/internal/knowledge"
	"github.com/ziadkadry99/supportdesk/internal/llm"
	"github.com/ziadkadry99/supportdesk/internal/notifications"
	"github.com/ziadkadry99/supportdesk/internal/pipeline"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
	"github.com/ziadkadry99/supportdesk/internal/vectordb"
)

// app holds the wired services shared by the subcommands.
type app struct {
	cfg       *config.Config
	database  *db.DB
	index     *vectordb.ChromemStore
	kb        *knowledge.Service
	tickets   tickets.Store
	history   audit.Log
	events    events.Publisher
	processor *pipeline.Processor
}

// appOptions choose which parts of the app a command needs.
type appOptions struct {
	// pipeline builds the LLM provider and processor. It needs API keys.
	pipeline bool
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `supportdesk init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openApp wires the stores, knowledge base and, optionally, the pipeline.
func openApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	if err := a.openKnowledge(ctx); err != nil {
		return nil, err
	}
	if err := a.openTickets(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if opts.pipeline {
		provider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating LLM provider: %w", err)
		}
		popts := []pipeline.Option{
			pipeline.WithObserver(pipeline.RecordOutcomes(a.history, a.events)),
		}
		if d := notifications.NewDispatcher(cfg.Notifications); d.Enabled() {
			popts = append(popts, pipeline.WithObserver(notifications.EscalationObserver(d)))
		}
		a.processor = pipeline.New(provider, a.kb, a.tickets, cfg.Model, cfg.Pipeline, popts...)
	}
	return a, nil
}

// processTimeout bounds one full triage run: three stages plus search, with
// slack for retries.
func (a *app) processTimeout() time.Duration {
	return 4*a.cfg.Pipeline.StageTimeout + a.cfg.Knowledge.SearchTimeout
}

func (a *app) vectorDir() string {
	return filepath.Join(a.cfg.DataDir, "vectordb")
}

func (a *app) openKnowledge(ctx context.Context) error {
	embedder, err := createEmbedderFromConfig(a.cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	a.index, err = vectordb.NewChromemStore(embedder)
	if err != nil {
		return fmt.Errorf("creating vector store: %w", err)
	}
	if err := a.index.Load(ctx, a.vectorDir()); err != nil {
		return fmt.Errorf("loading knowledge index from %s: %w", a.vectorDir(), err)
	}

	a.kb = knowledge.NewService(a.index, knowledge.Options{
		PersistDir:    a.vectorDir(),
		SearchTimeout: a.cfg.Knowledge.SearchTimeout,
	})
	return nil
}

func (a *app) openTickets(ctx context.Context) error {
	normalizer := tickets.NewNormalizer(a.cfg.Tickets)

	var store tickets.Store
	switch a.cfg.TicketStore {
	case config.StoreMemory:
		store = tickets.NewMemoryStore(normalizer)
		a.history = audit.NewMemoryLog()
	case config.StoreSQLite, config.StorePostgres:
		database, err := openDatabase(ctx, a.cfg)
		if err != nil {
			return err
		}
		a.database = database
		store = tickets.NewSQLStore(database, normalizer)
		a.history = audit.NewStore(database)
	default:
		return fmt.Errorf("unknown ticket store %q", a.cfg.TicketStore)
	}

	a.events = events.New(a.cfg.Events)
	a.tickets = tickets.WithCreateHooks(store,
		audit.TicketCreated(a.history),
		events.CreatedHook(a.events),
	)
	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.TicketStore == config.StorePostgres {
		database, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return database, nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	dbPath := filepath.Join(cfg.DataDir, "supportdesk.db")
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}
	return database, nil
}

// Close releases the database and event publisher.
func (a *app) Close() {
	var errs []error
	if a.events != nil {
		errs = append(errs, a.events.Close())
	}
	if a.database != nil {
		errs = append(errs, a.database.Close())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("closing resources", "error", err)
	}
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config,
// wrapped in a query cache when one is configured.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	embedder, err := embeddings.New(string(cfg.EmbeddingProvider), cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	if cfg.Knowledge.QueryCacheSize <= 0 {
		return embedder, nil
	}
	return embeddings.NewCachedEmbedder(embedder, cfg.Knowledge.QueryCacheSize)
}

// createLLMProviderFromConfig creates an LLM provider based on config
// settings, rate limited and retried per the llm section.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.LLM.RequestsPerMinute > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.LLM.RequestsPerMinute)
	}
	return llm.NewRetryingProvider(provider, cfg.LLM.MaxRetries, cfg.LLM.RetryBackoff), nil
}
