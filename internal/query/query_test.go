package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitIdle(t *testing.T, q interface{ Wait(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))
}

func TestQueryLoadsOnMount(t *testing.T) {
	cache, _, _ := newTestCache()
	q := New[[]string](cache, DefaultOptions())
	defer q.Close()

	q.SetKey(Key{"customers"}, func(context.Context) ([]string, error) {
		return []string{"Anh Tuấn", "Chị Lan"}, nil
	})

	got, err := q.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Anh Tuấn", "Chị Lan"}, got)

	state := q.State()
	require.True(t, state.HasData)
	require.False(t, state.IsLoading)
	require.False(t, state.IsFetching)
	require.Equal(t, epoch, state.UpdatedAt)
}

func TestQueryDisabledNeverLoads(t *testing.T) {
	cache, _, _ := newTestCache()
	var calls atomic.Int32

	opts := DefaultOptions()
	opts.Enabled = false
	q := New[int](cache, opts)
	defer q.Close()

	q.SetKey(Key{"customers", "search", "a"}, func(context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	})
	q.Refetch()
	waitIdle(t, q)

	require.Zero(t, calls.Load())
	require.False(t, q.State().HasData)
	require.Zero(t, q.State().Data)
}

func TestQueryNilFetcherNeverLoads(t *testing.T) {
	cache, _, _ := newTestCache()
	q := New[int](cache, DefaultOptions())
	defer q.Close()

	q.SetKey(Key{"customer", nil}, nil)
	q.Refetch()
	waitIdle(t, q)

	require.False(t, q.State().HasData)
	require.False(t, q.State().IsLoading)
}

func TestQueriesShareOneLoad(t *testing.T) {
	cache, _, _ := newTestCache()
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "summary", nil
	}

	a := New[string](cache, DefaultOptions())
	b := New[string](cache, DefaultOptions())
	defer a.Close()
	defer b.Close()

	a.SetKey(Key{"invoices", "summary"}, fetch)
	b.SetKey(Key{"invoices", "summary"}, fetch)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)

	waitIdle(t, a)
	waitIdle(t, b)
	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, "summary", a.State().Data)
	require.Equal(t, "summary", b.State().Data)
}

func TestQueryUsesFreshCacheOnRemount(t *testing.T) {
	cache, clk, _ := newTestCache()
	var calls atomic.Int32
	fetch := func(context.Context) (int, error) { return int(calls.Add(1)), nil }

	first := New[int](cache, DefaultOptions())
	first.SetKey(Key{"product", 1}, fetch)
	waitIdle(t, first)
	first.Close()

	second := New[int](cache, DefaultOptions())
	defer second.Close()
	second.SetKey(Key{"product", 1}, fetch)
	waitIdle(t, second)
	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, 1, second.State().Data)

	clk.Advance(DefaultStaleTime)
	second.Refetch()
	waitIdle(t, second)
	require.EqualValues(t, 2, calls.Load())
	require.Equal(t, 2, second.State().Data)
}

func TestQueryRefetchOnMountDisabled(t *testing.T) {
	cache, clk, _ := newTestCache()
	var calls atomic.Int32
	fetch := func(context.Context) (int, error) { return int(calls.Add(1)), nil }

	warm := New[int](cache, DefaultOptions())
	warm.SetKey(Key{"products"}, fetch)
	waitIdle(t, warm)
	warm.Close()
	clk.Advance(time.Hour)

	opts := DefaultOptions()
	opts.RefetchOnMount = false
	q := New[int](cache, opts)
	defer q.Close()
	q.SetKey(Key{"products"}, fetch)
	waitIdle(t, q)

	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, 1, q.State().Data)
}

func TestQueryKeepsDataOnError(t *testing.T) {
	cache, _, _ := newTestCache()
	boom := errors.New("server down")
	var fail atomic.Bool
	fetch := func(context.Context) (string, error) {
		if fail.Load() {
			return "", boom
		}
		return "v1", nil
	}

	q := New[string](cache, DefaultOptions())
	defer q.Close()
	q.SetKey(Key{"invoice", 7}, fetch)
	waitIdle(t, q)

	fail.Store(true)
	q.Refetch()
	_, err := q.Get(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, "v1", q.State().Data)
	require.True(t, q.State().HasData)

	fail.Store(false)
	q.Refetch()
	got, err := q.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "v1", got)
	require.NoError(t, q.State().Err)
}

func TestQueryDiscardsResponsesForOldKey(t *testing.T) {
	cache, _, _ := newTestCache()
	releaseOld := make(chan struct{})

	q := New[string](cache, DefaultOptions())
	defer q.Close()

	q.SetKey(Key{"customers", "search", "ng"}, func(context.Context) (string, error) {
		<-releaseOld
		return "old", nil
	})
	q.SetKey(Key{"customers", "search", "nguyen"}, func(context.Context) (string, error) {
		return "new", nil
	})

	require.Eventually(t, func() bool { return q.State().Data == "new" }, time.Second, 5*time.Millisecond)
	close(releaseOld)
	waitIdle(t, q)

	require.Equal(t, "new", q.State().Data)
	require.Equal(t, Key{"customers", "search", "nguyen"}, q.Key())
}

func TestQueryWaitIgnoresLoadsForOldKey(t *testing.T) {
	cache, _, _ := newTestCache()
	releaseOld := make(chan struct{})
	defer close(releaseOld)

	q := New[string](cache, DefaultOptions())
	defer q.Close()

	q.SetKey(Key{"customers", "search", "ng"}, func(context.Context) (string, error) {
		<-releaseOld
		return "old", nil
	})
	q.SetKey(Key{"customers", "search", "nguyen"}, func(context.Context) (string, error) {
		return "new", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := q.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "new", got)
	require.False(t, q.State().IsFetching)
}

func TestQueryNoUpdatesAfterClose(t *testing.T) {
	cache, _, _ := newTestCache()
	release := make(chan struct{})
	q := New[string](cache, DefaultOptions())

	var mu sync.Mutex
	var seen []State[string]
	q.Subscribe(func(s State[string]) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	})

	q.SetKey(Key{"invoice", 1}, func(context.Context) (string, error) {
		<-release
		return "late", nil
	})
	q.Close()
	close(release)
	waitIdle(t, q)

	mu.Lock()
	defer mu.Unlock()
	for _, s := range seen {
		assert.False(t, s.HasData)
	}
	require.False(t, q.State().HasData)
}

func TestQueryRefetchesWhenInvalidated(t *testing.T) {
	cache, _, _ := newTestCache()
	var calls atomic.Int32
	q := New[int](cache, DefaultOptions())
	defer q.Close()

	q.SetKey(Key{"customers", "search", map[string]any{"page": 1}}, func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	})
	waitIdle(t, q)

	cache.Invalidate(Key{"customers"})
	require.Eventually(t, func() bool { return q.State().Data == 2 }, time.Second, 5*time.Millisecond)

	cache.Invalidate(Key{"customer", 1})
	waitIdle(t, q)
	require.EqualValues(t, 2, calls.Load())
}

func TestQueryFocusRefetch(t *testing.T) {
	cache, clk, _ := newTestCache()
	var calls atomic.Int32
	fetch := func(context.Context) (int, error) { return int(calls.Add(1)), nil }

	opts := DefaultOptions()
	opts.RefetchOnWindowFocus = true
	focus := New[int](cache, opts)
	defer focus.Close()
	plain := New[int](cache, DefaultOptions())
	defer plain.Close()

	focus.SetKey(Key{"dashboard", "a"}, fetch)
	plain.SetKey(Key{"dashboard", "b"}, fetch)
	waitIdle(t, focus)
	waitIdle(t, plain)
	before := plain.State().Data

	cache.NotifyFocus()
	waitIdle(t, focus)
	require.EqualValues(t, 2, calls.Load())

	clk.Advance(DefaultStaleTime)
	cache.NotifyFocus()
	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	waitIdle(t, plain)
	require.Equal(t, before, plain.State().Data)
}

func TestMutationInvalidatesOnSuccessOnly(t *testing.T) {
	cache, _, m := newTestCache()
	ctx := context.Background()
	var reads atomic.Int32

	read := func(key Key) {
		_, _, err := cache.Fetch(ctx, key, time.Hour, counting(&reads, "x"))
		require.NoError(t, err)
	}
	read(Key{"customers", "search", map[string]any{"page": 1}})
	read(Key{"customer", 4})
	read(Key{"products"})
	require.EqualValues(t, 3, reads.Load())

	boom := errors.New("phone already exists")
	var fail atomic.Bool
	var succeeded, failed atomic.Int32

	edit := NewMutation(cache, func(_ context.Context, id int) (string, error) {
		if fail.Load() {
			return "", boom
		}
		return "saved", nil
	}, MutationOptions[int, string]{
		Invalidate:    []Key{{"customers"}},
		InvalidateFor: func(id int) []Key { return []Key{{"customer", id}} },
		OnSuccess:     func(string) { succeeded.Add(1) },
		OnError:       func(error) { failed.Add(1) },
	})

	fail.Store(true)
	_, err := edit.Mutate(ctx, 4)
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 1, failed.Load())
	read(Key{"customers", "search", map[string]any{"page": 1}})
	read(Key{"customer", 4})
	require.EqualValues(t, 3, reads.Load())

	fail.Store(false)
	out, err := edit.Mutate(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, "saved", out)
	require.EqualValues(t, 1, succeeded.Load())

	read(Key{"customers", "search", map[string]any{"page": 1}})
	read(Key{"customer", 4})
	read(Key{"products"})
	require.EqualValues(t, 5, reads.Load())

	require.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("error")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Invalidations))
}

func TestMutationPendingAndClose(t *testing.T) {
	cache, _, _ := newTestCache()
	started := make(chan struct{})
	release := make(chan struct{})
	var callbacks atomic.Int32

	create := NewMutation(cache, func(context.Context, string) (int, error) {
		close(started)
		<-release
		return 1, nil
	}, MutationOptions[string, int]{
		OnSuccess: func(int) { callbacks.Add(1) },
	})
	require.False(t, create.IsPending())

	done := make(chan error, 1)
	go func() {
		_, err := create.Mutate(context.Background(), "IMP202403010001")
		done <- err
	}()

	<-started
	require.True(t, create.IsPending())
	create.Close()
	close(release)
	require.NoError(t, <-done)

	require.False(t, create.IsPending())
	require.Zero(t, callbacks.Load())
}
