package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/supportdesk/internal/db"
	"github.com/ziadkadry99/supportdesk/internal/ids"
)

// Store persists activity entries in the ticket_activity table.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log inserts a new entry. If entry.ID is empty a UUID is generated.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	fill(&entry)

	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshalling activity detail: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO ticket_activity (
			id, ticket_id, action, stage, kind, summary, detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		entry.ID,
		entry.TicketID,
		string(entry.Action),
		entry.Stage,
		entry.Kind,
		entry.Summary,
		string(detail),
		ids.ISO(entry.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}
	return nil
}

// ForTicket lists a ticket's activity, oldest first.
func (s *Store) ForTicket(ctx context.Context, ticketID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT id, ticket_id, action, stage, kind, summary, detail, created_at
		FROM ticket_activity WHERE ticket_id = ?
		ORDER BY created_at ASC, id ASC LIMIT ?`), ticketID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e          Entry
			action     string
			detailJSON string
			ts         string
		)
		if err := rows.Scan(&e.ID, &e.TicketID, &action, &e.Stage, &e.Kind, &e.Summary, &detailJSON, &ts); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		e.Action = Action(action)
		if t, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
			e.Timestamp = t
		}
		if err := json.Unmarshal([]byte(detailJSON), &e.Detail); err != nil {
			e.Detail = nil
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MemoryLog keeps activity in memory, for the in-memory ticket store.
type MemoryLog struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewMemoryLog creates an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{entries: make(map[string][]Entry)}
}

func (m *MemoryLog) Log(ctx context.Context, entry Entry) error {
	fill(&entry)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.TicketID] = append(m.entries[entry.TicketID], entry)
	return nil
}

func (m *MemoryLog) ForTicket(ctx context.Context, ticketID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	m.mu.RLock()
	out := append([]Entry{}, m.entries[ticketID]...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func fill(e *Entry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = ids.Now()
	}
}
