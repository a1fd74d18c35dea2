package query

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const DefaultStaleTime = 5 * time.Minute

type Options struct {
	Enabled              bool
	StaleTime            time.Duration
	RefetchOnMount       bool
	RefetchOnWindowFocus bool
}

func DefaultOptions() Options {
	return Options{
		Enabled:              true,
		StaleTime:            DefaultStaleTime,
		RefetchOnMount:       true,
		RefetchOnWindowFocus: false,
	}
}

type State[T any] struct {
	Data    T
	HasData bool
	// Err is the last load failure. It survives until a load succeeds and
	// never clears Data.
	Err        error
	IsLoading  bool
	IsFetching bool
	UpdatedAt  time.Time
}

type Fetcher[T any] func(ctx context.Context) (T, error)

// Query observes one key at a time. All loads run in the background; use
// Wait or Get to block until the current key has settled.
type Query[T any] struct {
	cache  *Cache
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	key      Key
	fetch    Fetcher[T]
	mounted  bool
	gen      uint64
	state    State[T]
	closed   bool
	// pending counts the loads of generation gen; settled closes when it
	// drops to zero or the generation is superseded.
	pending int
	settled chan struct{}
	subs    map[int]func(State[T])
	nextSub int
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func New[T any](cache *Cache, opts Options) *Query[T] {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Query[T]{
		cache:   cache,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		settled: closedChan(),
		subs:    map[int]func(State[T]){},
	}
	cache.attach(q)
	return q
}

// SetKey points the query at key. A nil fetch means there is nothing to
// load, the equivalent of a null path. Setting the same key again is a no-op.
func (q *Query[T]) SetKey(key Key, fetch Fetcher[T]) {
	cached, cachedAt, hasCached := q.cache.Peek(key)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.mounted && q.key.Equal(key) && (q.fetch == nil) == (fetch == nil) {
		q.mu.Unlock()
		return
	}

	firstMount := !q.mounted
	q.mounted = true
	q.key = key
	q.fetch = fetch
	q.gen++
	if q.pending > 0 {
		close(q.settled)
		q.pending = 0
		q.settled = closedChan()
	}

	load := q.opts.Enabled && fetch != nil

	q.state = State[T]{}
	if v, ok := cached.(T); load && hasCached && ok {
		q.state.Data = v
		q.state.HasData = true
		q.state.UpdatedAt = cachedAt
	}

	if load && firstMount && !q.opts.RefetchOnMount && q.state.HasData {
		load = false
	}
	snapshot := q.state
	q.mu.Unlock()

	if load {
		q.start(q.opts.StaleTime)
		return
	}
	q.publish(snapshot)
}

// Refetch loads the current key regardless of freshness. Concurrent loads
// of the key are still shared.
func (q *Query[T]) Refetch() {
	q.start(0)
}

func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

func (q *Query[T]) Key() Key {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key
}

// Wait blocks until the current key has no load in flight. Loads still
// running for keys the query has moved away from are not waited for.
func (q *Query[T]) Wait(ctx context.Context) error {
	q.mu.Lock()
	settled := q.settled
	q.mu.Unlock()

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get waits for the current key and returns its data or the load error.
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	if err := q.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	s := q.State()
	return s.Data, s.Err
}

// Subscribe calls fn after every state change until the returned func is
// called or the query is closed.
func (q *Query[T]) Subscribe(fn func(State[T])) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.subs, id)
	}
}

// Close detaches the query. Loads already running finish but their results
// are dropped.
func (q *Query[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.subs = map[int]func(State[T]){}
	q.mu.Unlock()

	q.cache.detach(q)
	q.cancel()
}

func (q *Query[T]) start(staleTime time.Duration) {
	q.mu.Lock()
	if q.closed || !q.opts.Enabled || q.fetch == nil {
		q.mu.Unlock()
		return
	}
	gen, key, fetch := q.gen, q.key, q.fetch
	q.state.IsFetching = true
	q.state.IsLoading = !q.state.HasData
	if q.pending == 0 {
		q.settled = make(chan struct{})
	}
	q.pending++
	snapshot := q.state
	q.mu.Unlock()

	q.publish(snapshot)

	go func() {
		data, at, err := q.cache.Fetch(q.ctx, key, staleTime, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
		q.finish(gen, data, at, err)
	}()
}

func (q *Query[T]) finish(gen uint64, data any, at time.Time, err error) {
	q.mu.Lock()
	// The key moved on while this load ran; SetKey already released its
	// waiters.
	if gen != q.gen {
		q.mu.Unlock()
		return
	}
	q.pending--
	if q.pending == 0 {
		defer close(q.settled)
	}

	if q.closed {
		q.mu.Unlock()
		return
	}

	q.state.IsFetching = false
	q.state.IsLoading = false
	if err == nil {
		v, ok := data.(T)
		if !ok && data != nil {
			err = fmt.Errorf("query %s: cached %T is not %T", q.key, data, v)
		} else {
			q.state.Data = v
			q.state.HasData = true
			q.state.UpdatedAt = at
			q.state.Err = nil
		}
	}
	if err != nil {
		q.state.Err = err
	}
	snapshot := q.state
	q.mu.Unlock()

	q.publish(snapshot)
}

func (q *Query[T]) publish(s State[T]) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	subs := make([]func(State[T]), 0, len(q.subs))
	for _, fn := range q.subs {
		subs = append(subs, fn)
	}
	q.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

func (q *Query[T]) currentKey() (Key, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key, q.mounted && !q.closed
}

func (q *Query[T]) invalidated() {
	q.start(q.opts.StaleTime)
}

func (q *Query[T]) focused() {
	if q.opts.RefetchOnWindowFocus {
		q.start(q.opts.StaleTime)
	}
}
