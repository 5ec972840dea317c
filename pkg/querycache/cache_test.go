package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDedupsConcurrentCalls(t *testing.T) {
	cache := New[string](nil)
	key := Key{"model", "fix", "text"}

	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) (string, error) {
		calls.Add(1)
		close(started)
		<-release
		return "result", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := cache.Fetch(context.Background(), key, fn, time.Minute)
			require.NoError(t, err)
			results[i] = v
		}()
	}

	<-started
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "queryFn must run exactly once")
	assert.Equal(t, "result", results[0])
	assert.Equal(t, "result", results[1])
}

func TestFetchStaleness(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := New[string](nil, WithClock[string](func() time.Time { return now }))
	key := Key{"doc", "body"}

	var calls atomic.Int64
	fn := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "value", nil
	}

	// Miss, executes fn and persists.
	_, err := cache.Fetch(context.Background(), key, fn, time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), calls.Load())

	// Young entry: served from storage.
	now = now.Add(30 * time.Second)
	_, err = cache.Fetch(context.Background(), key, fn, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load(), "fresh entry must not re-execute")

	// Old entry: executes fn again.
	now = now.Add(31 * time.Second)
	_, err = cache.Fetch(context.Background(), key, fn, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load(), "stale entry must re-execute")
}

func TestFetchErrorClearsInFlight(t *testing.T) {
	cache := New[string](nil)
	key := Key{"fails"}

	boom := errors.New("backend down")
	_, err := cache.Fetch(context.Background(), key, func(ctx context.Context) (string, error) {
		return "", boom
	}, time.Minute)
	require.ErrorIs(t, err, boom)

	// A failed flight must not wedge the key: the next call executes again.
	v, err := cache.Fetch(context.Background(), key, func(ctx context.Context) (string, error) {
		return "recovered", nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (Entry, bool, error) {
	return Entry{}, false, errors.New("store unavailable")
}
func (failingStore) Set(context.Context, string, Entry) error  { return errors.New("store unavailable") }
func (failingStore) Delete(context.Context, string) error      { return errors.New("store unavailable") }
func (failingStore) DeletePrefix(context.Context, string) error {
	return errors.New("store unavailable")
}
func (failingStore) Clear(context.Context) error { return errors.New("store unavailable") }

func TestFetchDegradesWithoutStorage(t *testing.T) {
	cache := New[string](failingStore{})
	key := Key{"x"}

	var calls atomic.Int64
	fn := func(ctx context.Context) (string, error) {
		calls.Add(1)
		return "ok", nil
	}
	for i := 0; i < 3; i++ {
		v, err := cache.Fetch(context.Background(), key, fn, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	}
	// Storage failure degrades to always-miss; every call executes.
	assert.Equal(t, int64(3), calls.Load())
}

func TestInvalidatePrefixScope(t *testing.T) {
	store := NewMemoryStore()
	cache := New[string](store)
	ctx := context.Background()

	require.NoError(t, cache.SetCache(ctx, Key{"doc1", "a"}, "v1"))
	require.NoError(t, cache.SetCache(ctx, Key{"doc1", "a", "x"}, "v2"))
	require.NoError(t, cache.SetCache(ctx, Key{"doc1", "ab"}, "v3"))
	require.NoError(t, cache.SetCache(ctx, Key{"doc2", "a"}, "v4"))

	require.NoError(t, cache.Invalidate(ctx, Key{"doc1", "a"}))

	if _, ok := cache.GetCached(ctx, Key{"doc1", "a"}); ok {
		t.Error("exact key must be invalidated")
	}
	if _, ok := cache.GetCached(ctx, Key{"doc1", "a", "x"}); ok {
		t.Error("extended key must be invalidated")
	}
	if _, ok := cache.GetCached(ctx, Key{"doc1", "ab"}); !ok {
		t.Error("sibling key sharing a string prefix must survive")
	}
	if _, ok := cache.GetCached(ctx, Key{"doc2", "a"}); !ok {
		t.Error("unrelated key must survive")
	}
}

func TestClear(t *testing.T) {
	store := NewMemoryStore()
	cache := New[string](store)
	ctx := context.Background()

	require.NoError(t, cache.SetCache(ctx, Key{"a"}, "1"))
	require.NoError(t, cache.SetCache(ctx, Key{"b"}, "2"))
	require.NoError(t, cache.Clear(ctx))
	assert.Zero(t, store.Len())
}

func TestGetCachedIgnoresStaleness(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := New[string](nil, WithClock[string](func() time.Time { return now }))
	ctx := context.Background()
	key := Key{"old"}

	require.NoError(t, cache.SetCache(ctx, key, "ancient"))
	now = now.Add(24 * time.Hour)

	v, ok := cache.GetCached(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "ancient", v)
}

func TestPrefetchWarmsCache(t *testing.T) {
	cache := New[string](nil)
	key := Key{"warm"}

	done := make(chan struct{})
	cache.Prefetch(context.Background(), key, func(ctx context.Context) (string, error) {
		defer close(done)
		return "warmed", nil
	}, time.Minute)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("prefetch never ran")
	}

	// Poll briefly: persistence happens inside the prefetch flight.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if v, ok := cache.GetCached(context.Background(), key); ok {
			assert.Equal(t, "warmed", v)
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("prefetched value never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPrefetchSurvivesCallerCancel(t *testing.T) {
	cache := New[string](nil)
	key := Key{"warm", "cancelled"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	cache.Prefetch(ctx, key, func(ctx context.Context) (string, error) {
		done <- ctx.Err()
		return "warmed", nil
	}, time.Minute)
	// Fire-and-forget: the caller moves on immediately.
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err, "prefetch context must outlive the caller's cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("prefetch never ran")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if v, ok := cache.GetCached(context.Background(), key); ok {
			assert.Equal(t, "warmed", v)
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("prefetched value never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
