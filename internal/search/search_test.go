package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"steelpos/internal/query"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct {
	term          string
	limit, offset int
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []call
	total int
	fail  error
}

func (b *fakeBackend) load(_ context.Context, term string, limit, offset int) (Page[string], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call{term, limit, offset})
	if b.fail != nil {
		return Page[string]{}, b.fail
	}
	var items []string
	for i := offset; i < b.total && i < offset+limit; i++ {
		items = append(items, fmt.Sprintf("%s-%d", term, i))
	}
	return Page[string]{Items: items, Total: b.total}, nil
}

func (b *fakeBackend) recorded() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]call(nil), b.calls...)
}

func newSearch(t *testing.T, b *fakeBackend, minLength int) (*Search[string], *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(time.Now())
	cache := query.NewCache(clk, nil, zap.NewNop())
	s := New(cache, Config[string]{
		Key:       query.Key{"products", "variants", "search"},
		Limit:     20,
		MinLength: minLength,
		Clock:     clk,
		StaleTime: 2 * time.Minute,
		Load:      b.load,
	})
	t.Cleanup(s.Close)
	return s, clk
}

func settle(t *testing.T, s *Search[string], phase Phase) Snapshot[string] {
	t.Helper()
	require.Eventually(t, func() bool { return s.Snapshot().Phase == phase }, time.Second, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	return s.Snapshot()
}

func TestVariantSearchPaginatesUntilTotal(t *testing.T) {
	b := &fakeBackend{total: 40}
	s, _ := newSearch(t, b, 1)

	s.Submit("thép")
	snap := settle(t, s, PhaseResults)
	require.Len(t, snap.Results, 20)
	require.True(t, snap.HasMore)

	sentinel := s.Sentinel()
	sentinel.Visible(true)
	snap = settle(t, s, PhaseExhausted)
	require.Len(t, snap.Results, 40)
	require.Equal(t, "thép-39", snap.Results[39])
	require.False(t, snap.HasMore)

	sentinel.Visible(false)
	s.Sentinel().Visible(true)
	s.LoadMore()

	require.Equal(t, []call{{"thép", 20, 0}, {"thép", 20, 20}}, b.recorded())
}

func TestShortPageExhausts(t *testing.T) {
	b := &fakeBackend{total: 25}
	s, _ := newSearch(t, b, 1)

	s.Submit("hộp")
	settle(t, s, PhaseResults)
	s.LoadMore()
	snap := settle(t, s, PhaseExhausted)
	require.Len(t, snap.Results, 25)
	require.Equal(t, 25, snap.Total)
}

func TestDebouncedTypingLoadsOnce(t *testing.T) {
	b := &fakeBackend{total: 3}
	s, clk := newSearch(t, b, 1)

	for _, v := range []string{"t", "th", "thé", "thép"} {
		s.SetTerm(v)
		clk.Advance(100 * time.Millisecond)
	}
	require.Empty(t, b.recorded())

	clk.Advance(200 * time.Millisecond)
	snap := settle(t, s, PhaseExhausted)
	require.Equal(t, "thép", snap.Term)
	require.Equal(t, []call{{"thép", 20, 0}}, b.recorded())
}

func TestTermChangeReplacesResults(t *testing.T) {
	b := &fakeBackend{total: 30}

	var mu sync.Mutex
	var phases []Phase
	clk := testclock.NewClock(time.Now())
	s := New(query.NewCache(clk, nil, zap.NewNop()), Config[string]{
		Key:   query.Key{"products", "variants", "search"},
		Limit: 20,
		Clock: clk,
		Load:  b.load,
		OnChange: func(snap Snapshot[string]) {
			mu.Lock()
			defer mu.Unlock()
			phases = append(phases, snap.Phase)
			if snap.Phase == PhaseLoading {
				assert.Empty(t, snap.Results)
			}
		},
	})
	defer s.Close()

	s.Submit("thép")
	settle(t, s, PhaseResults)
	s.LoadMore()
	settle(t, s, PhaseExhausted)

	s.Submit("tôn")
	snap := settle(t, s, PhaseResults)
	require.Len(t, snap.Results, 20)
	require.Equal(t, "tôn-0", snap.Results[0])

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []Phase{
		PhaseLoading, PhaseResults,
		PhaseLoadingMore, PhaseExhausted,
		PhaseLoading, PhaseResults,
	}, phases)
}

func TestTermBelowMinimumStaysIdle(t *testing.T) {
	b := &fakeBackend{total: 5}
	s, _ := newSearch(t, b, 2)

	s.Submit("n")
	snap := settle(t, s, PhaseIdle)
	require.Empty(t, snap.Results)
	require.Empty(t, b.recorded())

	s.Submit("  ng ")
	snap = settle(t, s, PhaseExhausted)
	require.Equal(t, "ng", snap.Term)
	require.Len(t, snap.Results, 5)
}

func TestNoMatchesIsEmpty(t *testing.T) {
	s, _ := newSearch(t, &fakeBackend{}, 1)
	s.Submit("inox")
	snap := settle(t, s, PhaseEmpty)
	require.False(t, snap.HasMore)
	require.NoError(t, snap.Err)
}

func TestLoadMoreFailureKeepsResults(t *testing.T) {
	b := &fakeBackend{total: 60}
	s, _ := newSearch(t, b, 1)

	s.Submit("thép")
	settle(t, s, PhaseResults)

	b.mu.Lock()
	b.fail = errors.New("timeout")
	b.mu.Unlock()

	s.LoadMore()
	require.Eventually(t, func() bool { return s.Snapshot().Err != nil }, time.Second, 5*time.Millisecond)
	snap := settle(t, s, PhaseResults)
	require.Len(t, snap.Results, 20)
	require.True(t, snap.HasMore)
}

func TestCachedFirstPageIsReused(t *testing.T) {
	b := &fakeBackend{total: 3}
	s, _ := newSearch(t, b, 1)

	s.Submit("thép")
	settle(t, s, PhaseExhausted)
	s.Submit("tôn")
	settle(t, s, PhaseExhausted)
	s.Submit("thép")
	snap := settle(t, s, PhaseExhausted)

	require.Equal(t, "thép", snap.Term)
	require.Len(t, b.recorded(), 2)
}

func TestSlowOldTermDoesNotHoldNewTerm(t *testing.T) {
	b := &fakeBackend{total: 3}
	release := make(chan struct{})
	defer close(release)

	clk := testclock.NewClock(time.Now())
	s := New(query.NewCache(clk, nil, zap.NewNop()), Config[string]{
		Key:   query.Key{"products", "variants", "search"},
		Limit: 20,
		Clock: clk,
		Load: func(ctx context.Context, term string, limit, offset int) (Page[string], error) {
			if term == "thép tấm" {
				select {
				case <-release:
				case <-ctx.Done():
					return Page[string]{}, ctx.Err()
				}
			}
			return b.load(ctx, term, limit, offset)
		},
	})
	t.Cleanup(s.Close)

	s.Submit("thép tấm")
	require.Eventually(t, func() bool { return s.Snapshot().Phase == PhaseLoading }, time.Second, 5*time.Millisecond)
	s.Submit("thép hộp")

	require.Eventually(t, func() bool { return s.Snapshot().Phase == PhaseExhausted }, time.Second, 5*time.Millisecond)
	snap := s.Snapshot()
	assert.Equal(t, "thép hộp", snap.Term)
	assert.Equal(t, []string{"thép hộp-0", "thép hộp-1", "thép hộp-2"}, snap.Results)
}

func TestSubmitRetriesFailedTerm(t *testing.T) {
	b := &fakeBackend{total: 3, fail: errors.New("boom")}
	s, _ := newSearch(t, b, 1)

	s.Submit("thép")
	require.Eventually(t, func() bool { return s.Snapshot().Err != nil }, time.Second, 5*time.Millisecond)
	snap := settle(t, s, PhaseEmpty)
	require.EqualError(t, snap.Err, "boom")

	b.mu.Lock()
	b.fail = nil
	b.mu.Unlock()

	s.Submit("thép")
	snap = settle(t, s, PhaseExhausted)
	require.NoError(t, snap.Err)
	require.Len(t, snap.Results, 3)
	require.Len(t, b.recorded(), 2)
}

func TestRefetchReloadsFromFirstPage(t *testing.T) {
	b := &fakeBackend{total: 40}
	s, _ := newSearch(t, b, 1)

	s.Submit("thép")
	settle(t, s, PhaseResults)
	s.LoadMore()
	settle(t, s, PhaseExhausted)

	b.mu.Lock()
	b.total = 5
	b.mu.Unlock()

	s.Refetch()
	require.Eventually(t, func() bool { return len(b.recorded()) == 3 }, time.Second, 5*time.Millisecond)
	snap := settle(t, s, PhaseExhausted)
	require.Len(t, snap.Results, 5)
	require.Equal(t, []call{{"thép", 20, 0}, {"thép", 20, 20}, {"thép", 20, 0}}, b.recorded())
}
