package dashboard

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"github.com/ziadkadry99/supportdesk/internal/config"
	"github.com/ziadkadry99/supportdesk/internal/pipeline"
	"github.com/ziadkadry99/supportdesk/internal/tickets"
)

// ChunkCounter reports how many knowledge chunks are indexed.
type ChunkCounter interface {
	Count() int
}

// Dashboard serves the agent-facing triage page and streams pipeline
// progress over a websocket.
type Dashboard struct {
	tickets   tickets.Store
	chunks    ChunkCounter
	processor *pipeline.Processor
	options   config.TicketsConfig
	md        goldmark.Markdown
	// processTimeout bounds one websocket process request. Zero leaves
	// only the per-stage timeouts.
	processTimeout time.Duration
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithProcessTimeout bounds each ticket processed over the websocket.
func WithProcessTimeout(d time.Duration) Option {
	return func(db *Dashboard) { db.processTimeout = d }
}

// New creates a new Dashboard. The ticket allow-lists feed the form's
// dropdowns.
func New(store tickets.Store, chunks ChunkCounter, processor *pipeline.Processor, options config.TicketsConfig, opts ...Option) *Dashboard {
	d := &Dashboard{
		tickets:   store,
		chunks:    chunks,
		processor: processor,
		options:   options,
		md:        newMarkdown(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/stats", d.handleStats)
	r.Get("/api/dashboard/recent", d.handleRecent)
	r.Get("/api/dashboard/options", d.handleOptions)
	r.Get("/ws/process", d.handleWebSocket)
}
