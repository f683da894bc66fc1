package vectordb

import (
	"context"
	"errors"
)

var (
	// ErrStoreUnavailable wraps failures of the embedding or index backend.
	ErrStoreUnavailable = errors.New("knowledge store unavailable")
	// ErrInvalidDocument is returned for empty text, missing IDs or duplicate IDs.
	ErrInvalidDocument = errors.New("invalid knowledge document")
)

// KnowledgeStore indexes knowledge documents for similarity search.
type KnowledgeStore interface {
	// AddDocuments indexes documents. They are searchable once it returns.
	// A rejected batch adds nothing.
	AddDocuments(ctx context.Context, docs []Document) error

	// Search returns at most topK hits ordered by descending score.
	Search(ctx context.Context, query string, topK int) ([]Hit, error)

	// Persist saves the index to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the index from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the total number of documents in the store.
	Count() int
}
