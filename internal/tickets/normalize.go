package tickets

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/supportdesk/internal/config"
	"github.com/ziadkadry99/supportdesk/internal/ids"
)

// Normalizer cleans ticket fields and checks categorical values against
// allow-lists. An empty allow-list accepts any value.
type Normalizer struct {
	types         map[string]bool
	priorities    map[string]bool
	channels      map[string]bool
	policy        config.UnknownPolicy
	defaultSLA    string
	slaByPriority map[string]string
}

// NewNormalizer builds a Normalizer from ticket configuration.
func NewNormalizer(cfg config.TicketsConfig) *Normalizer {
	policy := cfg.UnknownFieldPolicy
	if policy == "" {
		policy = config.UnknownTag
	}
	return &Normalizer{
		types:         allowList(cfg.Types),
		priorities:    allowList(cfg.Priorities),
		channels:      allowList(cfg.Channels),
		policy:        policy,
		defaultSLA:    cfg.DefaultSLA,
		slaByPriority: cfg.SLAByPriority,
	}
}

// DefaultNormalizer uses the built-in allow-lists and SLA labels.
func DefaultNormalizer() *Normalizer {
	return NewNormalizer(config.DefaultConfig().Tickets)
}

func allowList(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return m
}

// Build validates and normalizes f into a ticket without an id or
// creation time.
func (n *Normalizer) Build(f Fields) (*Ticket, error) {
	name := strings.TrimSpace(f.CustomerName)
	if name == "" {
		return nil, fmt.Errorf("%w: customer_name is required", ErrValidation)
	}

	t := &Ticket{
		CustomerID:       strings.TrimSpace(f.CustomerID),
		CustomerName:     name,
		ProductPurchased: strings.TrimSpace(f.ProductPurchased),
		Subject:          strings.TrimSpace(f.Subject),
		Description:      strings.TrimSpace(f.Description),
		Tags:             []string{},
	}
	if t.CustomerID == "" {
		t.CustomerID = ids.New(ids.PrefixCustomer)
	}

	var err error
	if t.TicketType, err = n.check("ticket_type", f.TicketType, n.types, t); err != nil {
		return nil, err
	}
	if t.Priority, err = n.check("priority", f.Priority, n.priorities, t); err != nil {
		return nil, err
	}
	if t.Channel, err = n.check("channel", f.Channel, n.channels, t); err != nil {
		return nil, err
	}

	t.SLA = n.defaultSLA
	if sla, ok := n.slaByPriority[t.Priority]; ok {
		t.SLA = sla
	}
	return t, nil
}

func (n *Normalizer) check(field, value string, allowed map[string]bool, t *Ticket) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" || allowed == nil || allowed[v] {
		return v, nil
	}
	if n.policy == config.UnknownReject {
		return "", fmt.Errorf("%w: %s %q is not allowed", ErrValidation, field, value)
	}
	t.Tags = append(t.Tags, "unrecognized_"+field)
	return v, nil
}
