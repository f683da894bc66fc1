// Package knowledge ingests free text into the knowledge base and serves
// similarity searches over it.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ziadkadry99/supportdesk/internal/ids"
	"github.com/ziadkadry99/supportdesk/internal/vectordb"
)

// ErrEmptyUpload is returned when an upload holds no non-blank paragraph.
var ErrEmptyUpload = errors.New("upload contains no text")

// defaultSource labels uploads that have neither a source nor a filename.
const defaultSource = "upload"

// Options configure a Service.
type Options struct {
	// PersistDir, when set, receives an index snapshot after every upload.
	PersistDir string
	// SearchTimeout bounds each Search call. Zero means no extra bound.
	SearchTimeout time.Duration
}

// Service chunks uploads into documents and searches them.
type Service struct {
	store vectordb.KnowledgeStore
	opts  Options
}

// NewService creates a Service over the given store.
func NewService(store vectordb.KnowledgeStore, opts Options) *Service {
	return &Service{store: store, opts: opts}
}

// Chunk splits text into paragraphs on blank lines, trimming each and
// dropping empty ones.
func Chunk(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var chunks []string
	for _, part := range strings.Split(text, "\n\n") {
		if p := strings.TrimSpace(part); p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks
}

// Upload chunks text and indexes every chunk under source. It returns the
// number of chunks ingested.
func (s *Service) Upload(ctx context.Context, text, source string) (int, error) {
	chunks := Chunk(text)
	if len(chunks) == 0 {
		return 0, ErrEmptyUpload
	}
	if source = strings.TrimSpace(source); source == "" {
		source = defaultSource
	}

	docs := make([]vectordb.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = vectordb.Document{
			ID:         ids.NewLong(ids.PrefixDocument),
			Text:       c,
			Source:     source,
			ChunkIndex: i,
		}
	}

	if err := s.store.AddDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("indexing %d chunks from %s: %w", len(docs), source, err)
	}
	s.persist(ctx)

	slog.Info("knowledge ingested", "source", source, "chunks", len(docs))
	return len(docs), nil
}

// UploadFile ingests file content, using filename as the source when
// source is blank.
func (s *Service) UploadFile(ctx context.Context, filename string, data []byte, source string) (int, error) {
	if strings.TrimSpace(source) == "" {
		source = filename
	}
	return s.Upload(ctx, string(data), source)
}

// Search returns up to topK hits for query, bounded by the search timeout.
// Deadline expiry is reported as vectordb.ErrStoreUnavailable.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]vectordb.Hit, error) {
	if s.opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SearchTimeout)
		defer cancel()
	}

	hits, err := s.store.Search(ctx, query, topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, vectordb.ErrStoreUnavailable) {
			return nil, fmt.Errorf("%w: %w", vectordb.ErrStoreUnavailable, err)
		}
		return nil, err
	}
	return hits, nil
}

// Count returns the number of indexed chunks.
func (s *Service) Count() int {
	return s.store.Count()
}

// demoDocuments are the sample FAQ and runbook entries loaded by Seed.
var demoDocuments = []vectordb.Document{
	{
		ID:     "doc_faq_1",
		Text:   "We limit uploads to 2MB by default. To increase the limit, change the upload_max_size in config.",
		Source: "faq",
	},
	{
		ID:     "doc_faq_2",
		Text:   "If you see HTTP 500 on image uploads, first check server logs for memory errors and ensure image processing library versions match.",
		Source: "runbook",
	},
}

// Seed loads the demo documents. Seeding an already seeded store is a no-op.
func (s *Service) Seed(ctx context.Context) (int, error) {
	err := s.store.AddDocuments(ctx, demoDocuments)
	if errors.Is(err, vectordb.ErrInvalidDocument) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("seeding demo knowledge: %w", err)
	}
	s.persist(ctx)
	return len(demoDocuments), nil
}

func (s *Service) persist(ctx context.Context) {
	if s.opts.PersistDir == "" {
		return
	}
	if err := s.store.Persist(ctx, s.opts.PersistDir); err != nil {
		slog.Warn("persisting knowledge index", "dir", s.opts.PersistDir, "error", err)
	}
}
