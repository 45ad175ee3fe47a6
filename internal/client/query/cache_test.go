package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashcards/internal/client/events"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	hook  func(ctx context.Context, key Key, call int) (any, error)
}

func newCounting(hook func(ctx context.Context, key Key, call int) (any, error)) *countingFetcher {
	return &countingFetcher{calls: make(map[string]int), hook: hook}
}

func (f *countingFetcher) Fetch(ctx context.Context, key Key) (any, error) {
	f.mu.Lock()
	f.calls[key.String()]++
	n := f.calls[key.String()]
	f.mu.Unlock()

	if f.hook != nil {
		return f.hook(ctx, key, n)
	}
	return n, nil
}

func (f *countingFetcher) count(key Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key.String()]
}

func nextEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return events.Event{}
}

func assertNoEvent(t *testing.T, ch <-chan events.Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s for %v", ev.Type, EventKey(ev))
	default:
	}
}

func TestKey_HasPrefix(t *testing.T) {
	tests := []struct {
		key, prefix Key
		want        bool
	}{
		{CardsKey("d1"), DecksKey(), true},
		{CardsKey("d1"), DeckKey("d1"), true},
		{CardsKey("d1"), DeckKey("d2"), false},
		{DeckKey("d1"), CardsKey("d1"), false},
		{CardKey("d1", "c1"), CardsKey("d1"), true},
		{DecksKey(), Key{}, true},
		{DeckKey("d10"), DeckKey("d1"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.key.HasPrefix(tt.prefix), "%s has prefix %s", tt.key, tt.prefix)
	}
}

func TestKey_Enabled(t *testing.T) {
	assert.True(t, CardsKey("d1").Enabled())
	assert.False(t, DeckKey("").Enabled())
	assert.False(t, CardKey("d1", "").Enabled())
	assert.False(t, Key{}.Enabled())
}

func TestFetch_ConcurrentReadersShareOneFetch(t *testing.T) {
	gate := make(chan struct{})
	f := newCounting(func(ctx context.Context, key Key, n int) (any, error) {
		<-gate
		return "decks", nil
	})
	c := New(f)
	defer c.Close()

	var wg sync.WaitGroup
	results := make([]any, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), DecksKey())
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	require.Eventually(t, func() bool { return f.count(DecksKey()) == 1 }, time.Second, time.Millisecond)
	// A non-blocking read during the flight joins it too.
	assert.Equal(t, StatusLoading, c.Read(DecksKey()).Status)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, f.count(DecksKey()))
	for _, v := range results {
		assert.Equal(t, "decks", v)
	}
}

func TestRead_StartsBackgroundFetch(t *testing.T) {
	f := newCounting(nil)
	c := New(f)
	defer c.Close()

	sub := c.Subscribe(DecksKey())
	defer sub.Close()

	e := c.Read(DecksKey())
	assert.Equal(t, StatusLoading, e.Status)
	assert.False(t, e.HasValue)

	assert.Equal(t, events.EventQueryLoading, nextEvent(t, sub.Events()).Type)
	assert.Equal(t, events.EventQuerySuccess, nextEvent(t, sub.Events()).Type)

	e = c.Read(DecksKey())
	assert.True(t, e.Fresh())
	assert.Equal(t, 1, e.Value)
	assert.False(t, e.FetchedAt.IsZero())
	assert.Equal(t, 1, f.count(DecksKey()), "fresh read must not refetch")
}

func TestInvalidate_MarksPrefixOnly(t *testing.T) {
	f := newCounting(nil)
	c := New(f)
	defer c.Close()
	ctx := context.Background()

	keys := []Key{DecksKey(), DeckKey("d1"), CardsKey("d1"), CardsKey("d2")}
	for _, k := range keys {
		_, err := c.Fetch(ctx, k)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, c.Invalidate(CardsKey("d1")))
	assert.True(t, c.Peek(CardsKey("d1")).Stale)
	assert.False(t, c.Peek(CardsKey("d2")).Stale)
	assert.False(t, c.Peek(DeckKey("d1")).Stale)
	assert.False(t, c.Peek(DecksKey()).Stale)

	assert.Equal(t, 2, c.Invalidate(DeckKey("d1")))
	assert.False(t, c.Peek(CardsKey("d2")).Stale)

	assert.Equal(t, 4, c.Invalidate(DecksKey()))
	for _, k := range keys {
		assert.True(t, c.Peek(k).Stale, "%s", k)
		assert.Equal(t, 1, f.count(k), "invalidate must not refetch %s", k)
	}

	v, err := c.Fetch(ctx, CardsKey("d2"))
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.False(t, c.Peek(CardsKey("d2")).Stale)
}

func TestInvalidate_PublishesConcreteKeys(t *testing.T) {
	c := New(newCounting(nil))
	defer c.Close()
	ctx := context.Background()

	_, _ = c.Fetch(ctx, CardsKey("d1"))
	_, _ = c.Fetch(ctx, CardKey("d1", "c1"))

	sub := c.Subscribe(DeckKey("d1"))
	defer sub.Close()

	c.Invalidate(DecksKey())
	got := map[string]bool{}
	for range 2 {
		ev := nextEvent(t, sub.Events())
		require.Equal(t, events.EventQueryInvalidated, ev.Type)
		got[EventKey(ev).String()] = true
	}
	assert.Equal(t, map[string]bool{"decks/d1/cards": true, "decks/d1/cards/c1": true}, got)
}

func TestFetch_ErrorIsIsolatedAndRetried(t *testing.T) {
	boom := errors.New("boom")
	f := newCounting(func(ctx context.Context, key Key, n int) (any, error) {
		if key.Equal(CardsKey("d1")) && n == 1 {
			return nil, boom
		}
		return key.String(), nil
	})
	c := New(f)
	defer c.Close()
	ctx := context.Background()

	_, err := c.Fetch(ctx, CardsKey("d1"))
	assert.ErrorIs(t, err, boom)
	_, err = c.Fetch(ctx, CardsKey("d2"))
	require.NoError(t, err)

	failed := c.Peek(CardsKey("d1"))
	assert.Equal(t, StatusError, failed.Status)
	assert.ErrorIs(t, failed.Err, boom)
	assert.False(t, failed.HasValue)
	assert.Equal(t, StatusIdle, c.Peek(CardsKey("d2")).Status)

	v, err := c.Fetch(ctx, CardsKey("d1"))
	require.NoError(t, err)
	assert.Equal(t, "decks/d1/cards", v)
	retried := c.Peek(CardsKey("d1"))
	assert.Equal(t, StatusIdle, retried.Status)
	assert.NoError(t, retried.Err)
}

func TestRead_InvalidatedDuringFetchStaysStale(t *testing.T) {
	gate := make(chan struct{})
	f := newCounting(func(ctx context.Context, key Key, n int) (any, error) {
		if n == 1 {
			<-gate
		}
		return n, nil
	})
	c := New(f)
	defer c.Close()
	k := DecksKey()

	require.Equal(t, StatusLoading, c.Read(k).Status)
	require.Equal(t, 1, c.Invalidate(k))
	assert.Equal(t, StatusLoading, c.Read(k).Status)
	require.Eventually(t, func() bool { return f.count(k) == 1 }, time.Second, time.Millisecond)

	close(gate)
	require.Eventually(t, func() bool { return c.Peek(k).HasValue }, time.Second, time.Millisecond)
	assert.Equal(t, 1, f.count(k), "read during flight must join it")

	e := c.Peek(k)
	assert.Equal(t, 1, e.Value)
	assert.True(t, e.Stale)

	v, err := c.Fetch(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.False(t, c.Peek(k).Stale)
}

func TestFetch_RetriesWhenSupersededByInvalidation(t *testing.T) {
	gate := make(chan struct{})
	f := newCounting(func(ctx context.Context, key Key, n int) (any, error) {
		if n == 1 {
			<-gate
		}
		return n, nil
	})
	c := New(f)
	defer c.Close()
	k := CardsKey("d1")

	type result struct {
		v   any
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := c.Fetch(context.Background(), k)
		done <- result{v, err}
	}()

	require.Eventually(t, func() bool { return f.count(k) == 1 }, time.Second, time.Millisecond)
	c.Invalidate(DeckKey("d1"))
	close(gate)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.v)
	assert.Equal(t, 2, f.count(k))
}

func TestDisabledQueryNeverFetches(t *testing.T) {
	f := newCounting(nil)
	c := New(f)
	defer c.Close()

	e := c.Read(CardsKey(""))
	assert.True(t, e.Disabled)
	assert.Equal(t, StatusIdle, e.Status)

	_, err := c.Fetch(context.Background(), DeckKey(""))
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Empty(t, c.Keys())
}

func TestFetch_CallerCancelDoesNotCancelFetch(t *testing.T) {
	gate := make(chan struct{})
	f := newCounting(func(ctx context.Context, key Key, n int) (any, error) {
		<-gate
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return "decks", nil
	})
	c := New(f)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, DecksKey())
		errc <- err
	}()

	require.Eventually(t, func() bool { return f.count(DecksKey()) == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(gate)
	require.Eventually(t, func() bool { return c.Peek(DecksKey()).HasValue }, time.Second, time.Millisecond)
	assert.Equal(t, "decks", c.Peek(DecksKey()).Value)
}

func TestSubscribe_FiltersByPrefix(t *testing.T) {
	c := New(newCounting(nil))
	defer c.Close()
	ctx := context.Background()

	sub := c.Subscribe(CardsKey("d1"))

	_, err := c.Fetch(ctx, CardsKey("d1"))
	require.NoError(t, err)
	_, err = c.Fetch(ctx, CardsKey("d2"))
	require.NoError(t, err)
	_, err = c.Fetch(ctx, DeckKey("d1"))
	require.NoError(t, err)

	ev := nextEvent(t, sub.Events())
	assert.Equal(t, events.EventQueryLoading, ev.Type)
	assert.Equal(t, CardsKey("d1"), EventKey(ev))
	assert.Equal(t, events.EventQuerySuccess, nextEvent(t, sub.Events()).Type)
	assertNoEvent(t, sub.Events())

	c.Clear()
	assert.Equal(t, events.EventQueryCleared, nextEvent(t, sub.Events()).Type)

	sub.Close()
	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestClear_DropsInFlightResult(t *testing.T) {
	gate := make(chan struct{})
	f := newCounting(func(ctx context.Context, key Key, n int) (any, error) {
		<-gate
		return "old session", nil
	})
	c := New(f)

	c.Read(DecksKey())
	require.Eventually(t, func() bool { return f.count(DecksKey()) == 1 }, time.Second, time.Millisecond)
	c.Clear()
	close(gate)
	c.Close()

	assert.Empty(t, c.Keys())
	assert.False(t, c.Peek(DecksKey()).HasValue)
}

func TestClose_CancelsFetches(t *testing.T) {
	f := newCounting(func(ctx context.Context, key Key, n int) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := New(f)

	c.Read(DecksKey())
	require.Eventually(t, func() bool { return f.count(DecksKey()) == 1 }, time.Second, time.Millisecond)
	c.Close()

	_, err := c.Fetch(context.Background(), DecksKey())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, StatusError, c.Peek(DecksKey()).Status)
}
