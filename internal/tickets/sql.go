package tickets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/supportdesk/internal/db"
	"github.com/ziadkadry99/supportdesk/internal/ids"
)

// SQLStore persists tickets in SQLite or Postgres.
type SQLStore struct {
	db         *db.DB
	normalizer *Normalizer
	newID      func() string
}

// NewSQLStore creates a Store backed by the given database.
func NewSQLStore(database *db.DB, n *Normalizer) *SQLStore {
	if n == nil {
		n = DefaultNormalizer()
	}
	return &SQLStore{
		db:         database,
		normalizer: n,
		newID:      func() string { return ids.New(ids.PrefixTicket) },
	}
}

const ticketColumns = `id, customer_id, customer_name, product_purchased, ticket_type,
	subject, description, priority, channel, sla, tags, created_at`

func (s *SQLStore) Create(ctx context.Context, f Fields) (*Ticket, error) {
	t, err := s.normalizer.Build(f)
	if err != nil {
		return nil, err
	}

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshalling tags: %w", err)
	}

	query := s.db.Rebind(`INSERT INTO tickets (` + ticketColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		t.ID = s.newID()
		t.CreatedAt = ids.Now()

		res, err := s.db.ExecContext(ctx, query,
			t.ID, t.CustomerID, t.CustomerName, t.ProductPurchased, t.TicketType,
			t.Subject, t.Description, t.Priority, t.Channel, t.SLA, string(tags),
			ids.ISO(t.CreatedAt),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting ticket: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			continue
		}
		return t, nil
	}
	return nil, fmt.Errorf("allocating ticket id: %d collisions", maxIDAttempts)
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Ticket, error) {
	row := s.db.QueryRowContext(ctx,
		s.db.Rebind(`SELECT `+ticketColumns+` FROM tickets WHERE id = ?`), id)

	t, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying ticket: %w", err)
	}
	return t, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting tickets: %w", err)
	}
	return n, nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT `+ticketColumns+` FROM tickets
		ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	out := []Ticket{}
	for rows.Next() {
		t, err := scanInto(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Ticket, error) {
	var (
		t         Ticket
		tagsJSON  string
		createdAt string
	)
	err := sc.Scan(
		&t.ID, &t.CustomerID, &t.CustomerName, &t.ProductPurchased, &t.TicketType,
		&t.Subject, &t.Description, &t.Priority, &t.Channel, &t.SLA, &tagsJSON, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &t.Tags); err != nil || t.Tags == nil {
		t.Tags = []string{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		t.CreatedAt = ts
	}
	return &t, nil
}
