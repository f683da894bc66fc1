package tickets

import "context"

// CreateHook runs after a ticket has been registered. Hooks must not fail
// the creation; they log their own errors.
type CreateHook func(ctx context.Context, t *Ticket)

type hookedStore struct {
	Store
	hooks []CreateHook
}

// WithCreateHooks returns a Store that runs hooks after every successful Create.
func WithCreateHooks(store Store, hooks ...CreateHook) Store {
	if len(hooks) == 0 {
		return store
	}
	return &hookedStore{Store: store, hooks: hooks}
}

func (s *hookedStore) Create(ctx context.Context, f Fields) (*Ticket, error) {
	t, err := s.Store.Create(ctx, f)
	if err != nil {
		return nil, err
	}
	for _, hook := range s.hooks {
		hook(ctx, t)
	}
	return t, nil
}
