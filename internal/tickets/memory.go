package tickets

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/ziadkadry99/supportdesk/internal/ids"
)

// MemoryStore keeps tickets in a map. It is lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	tickets    map[string]*Ticket
	normalizer *Normalizer
	newID      func() string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(n *Normalizer) *MemoryStore {
	if n == nil {
		n = DefaultNormalizer()
	}
	return &MemoryStore{
		tickets:    make(map[string]*Ticket),
		normalizer: n,
		newID:      func() string { return ids.New(ids.PrefixTicket) },
	}
}

func (s *MemoryStore) Create(ctx context.Context, f Fields) (*Ticket, error) {
	t, err := s.normalizer.Build(f)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := s.newID()
		if _, taken := s.tickets[id]; taken {
			continue
		}
		t.ID = id
		t.CreatedAt = ids.Now()
		s.tickets[id] = t
		return clone(t), nil
	}
	return nil, fmt.Errorf("allocating ticket id: %d collisions", maxIDAttempts)
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return clone(t), nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets), nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	out := make([]Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, *clone(t))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(t *Ticket) *Ticket {
	out := *t
	out.Tags = slices.Clone(t.Tags)
	return &out
}
