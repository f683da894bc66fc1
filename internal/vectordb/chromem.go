package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/supportdesk/internal/embeddings"
)

const (
	collectionName = "knowledge_base"
	snapshotFile   = "knowledge.gob.gz"
)

// ChromemStore implements KnowledgeStore using chromem-go.
type ChromemStore struct {
	// mu serializes writers so the duplicate check and the insert are atomic.
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedder:   embedder,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(docs))
	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("%w: document %d has no id", ErrInvalidDocument, i)
		}
		if strings.TrimSpace(doc.Text) == "" {
			return fmt.Errorf("%w: document %s has empty text", ErrInvalidDocument, doc.ID)
		}
		if seen[doc.ID] {
			return fmt.Errorf("%w: duplicate id %s in batch", ErrInvalidDocument, doc.ID)
		}
		seen[doc.ID] = true
		if _, err := s.collection.GetByID(ctx, doc.ID); err == nil {
			return fmt.Errorf("%w: id %s already exists", ErrInvalidDocument, doc.ID)
		}

		chromDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Text,
			Metadata: metadataToMap(doc),
		}
	}

	// Embed the whole batch up front so a failed embedding inserts nothing.
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embedding %d documents: %w", ErrStoreUnavailable, len(docs), err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: %s returned %d embeddings for %d documents", ErrStoreUnavailable, s.embedder.Name(), len(vectors), len(docs))
	}
	for i := range chromDocs {
		if len(vectors[i]) == 0 {
			return fmt.Errorf("%w: empty embedding for document %s", ErrStoreUnavailable, chromDocs[i].ID)
		}
		chromDocs[i].Embedding = vectors[i]
	}

	if err := s.collection.AddDocuments(ctx, chromDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	s.mu.RLock()
	col := s.collection
	s.mu.RUnlock()

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := col.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: chromem query: %w", ErrStoreUnavailable, err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			Document: mapToDocument(r.ID, r.Content, r.Metadata),
			Score:    r.Similarity,
		}
	}
	return hits, nil
}

// Persist writes a compressed snapshot to dir, creating it if needed.
func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.db.ExportToFile(filepath.Join(dir, snapshotFile), true, ""); err != nil {
		return fmt.Errorf("export to file: %w", err)
	}
	return nil
}

// Load restores a snapshot from dir. A missing snapshot leaves the store empty.
func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	path := filepath.Join(dir, snapshotFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col, err := s.db.GetOrCreateCollection(collectionName, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("collection %q after import: %w", collectionName, err)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Count()
}

// metadataToMap converts document fields to a flat map[string]string for chromem.
func metadataToMap(d Document) map[string]string {
	return map[string]string{
		"source":      d.Source,
		"chunk_index": strconv.Itoa(d.ChunkIndex),
	}
}

// mapToDocument rebuilds a Document from a chromem result.
func mapToDocument(id, content string, m map[string]string) Document {
	chunkIndex, _ := strconv.Atoi(m["chunk_index"])
	return Document{
		ID:         id,
		Text:       content,
		Source:     m["source"],
		ChunkIndex: chunkIndex,
	}
}
