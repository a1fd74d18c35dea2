package query

import (
	"context"
	"sync"
)

type MutationOptions[In, Out any] struct {
	// Invalidate lists keys marked stale after every successful run.
	Invalidate []Key
	// InvalidateFor adds keys that depend on the input, such as the detail
	// key of the edited record.
	InvalidateFor func(in In) []Key
	OnSuccess     func(out Out)
	OnError       func(err error)
}

// Mutation runs one kind of write. It never touches cached payloads; a
// successful run only marks its declared keys stale.
type Mutation[In, Out any] struct {
	cache *Cache
	run   func(ctx context.Context, in In) (Out, error)
	opts  MutationOptions[In, Out]

	mu      sync.Mutex
	pending int
	closed  bool
}

func NewMutation[In, Out any](cache *Cache, run func(ctx context.Context, in In) (Out, error), opts MutationOptions[In, Out]) *Mutation[In, Out] {
	return &Mutation[In, Out]{cache: cache, run: run, opts: opts}
}

func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	m.mu.Lock()
	m.pending++
	m.mu.Unlock()

	out, err := m.run(ctx, in)

	m.mu.Lock()
	m.pending--
	closed := m.closed
	m.mu.Unlock()

	m.cache.metrics.ObserveMutation(err)

	if err != nil {
		if !closed && m.opts.OnError != nil {
			m.opts.OnError(err)
		}
		return out, err
	}

	keys := append([]Key{}, m.opts.Invalidate...)
	if m.opts.InvalidateFor != nil {
		keys = append(keys, m.opts.InvalidateFor(in)...)
	}
	if len(keys) > 0 {
		m.cache.Invalidate(keys...)
	}

	if !closed && m.opts.OnSuccess != nil {
		m.opts.OnSuccess(out)
	}
	return out, nil
}

func (m *Mutation[In, Out]) IsPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending > 0
}

// Close stops callbacks for runs that finish afterwards. Invalidation still
// happens since other observers depend on it.
func (m *Mutation[In, Out]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}
