package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache() (*Cache, *fakeClock) {
	clk := newFakeClock()
	return New(WithClock(clk.Now)), clk
}

func TestSetGet(t *testing.T) {
	c, _ := newTestCache()

	c.Set("teams:list", []string{"a", "b"}, time.Minute)
	v, ok := c.Get("teams:list")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestGetAfterExpiry(t *testing.T) {
	c, clk := newTestCache()

	c.Set("k", 1, time.Minute)

	clk.Advance(time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry is still valid at exactly its expiry")

	clk.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Size, "stale entry is removed lazily")
}

func TestSetDefaultTTL(t *testing.T) {
	clk := newFakeClock()
	c := New(WithClock(clk.Now), WithDefaultTTL(30*time.Second))
	assert.Equal(t, 30*time.Second, c.DefaultTTL())

	c.Set("k", "v", 0)
	clk.Advance(29 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clk.Advance(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	c, clk := newTestCache()

	c.Set("k", "old", time.Second)
	c.Set("k", "new", time.Hour)
	clk.Advance(time.Minute)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestEntryInvariant(t *testing.T) {
	c, _ := newTestCache()
	c.Set("k", "v", -time.Second)

	c.mu.RLock()
	e := c.items["k"]
	c.mu.RUnlock()
	assert.True(t, e.ExpiresAt.After(e.CreatedAt))
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache()
	c.Set("k", "v", time.Minute)

	assert.True(t, c.Delete("k"))
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.False(t, c.Delete("k"))
}

func TestDeletePrefix(t *testing.T) {
	c, _ := newTestCache()
	for _, k := range []string{"teams:get:1:aaa", "teams:get:1:bbb", "teams:get:10:aaa", "teams:list:aaa"} {
		c.Set(k, k, time.Minute)
	}

	assert.Equal(t, 2, c.DeletePrefix("teams:get:1:"))
	assert.Equal(t, []string{"teams:get:10:aaa", "teams:list:aaa"}, c.Stats().Keys)
	assert.Equal(t, 0, c.DeletePrefix("teams:get:1:"))
}

func TestClear(t *testing.T) {
	c, _ := newTestCache()
	keys := []string{"teams:list", "dashboard:stats", "teams:get:1"}
	for _, k := range keys {
		c.Set(k, k, time.Minute)
	}

	c.Clear()

	for _, k := range keys {
		_, ok := c.Get(k)
		assert.False(t, ok, k)
	}
	assert.Equal(t, 0, c.Stats().Size)
}

func TestClearExpired(t *testing.T) {
	c, clk := newTestCache()
	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)

	clk.Advance(time.Minute)
	assert.Equal(t, 1, c.ClearExpired())
	assert.Equal(t, []string{"long"}, c.Stats().Keys)
	assert.Equal(t, 0, c.ClearExpired())
}

func TestCachedCall(t *testing.T) {
	t.Run("second call within ttl is a hit", func(t *testing.T) {
		c, clk := newTestCache()
		calls := 0
		producer := func(context.Context) (any, error) {
			calls++
			return []int{1}, nil
		}

		first, err := c.CachedCall(context.Background(), "teams:list", time.Minute, producer)
		require.NoError(t, err)
		clk.Advance(30 * time.Second)
		second, err := c.CachedCall(context.Background(), "teams:list", time.Minute, producer)
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.Equal(t, first, second)
	})

	t.Run("errors propagate and are not cached", func(t *testing.T) {
		c, _ := newTestCache()
		boom := errors.New("upstream unavailable")

		_, err := c.CachedCall(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
		_, ok := c.Get("k")
		assert.False(t, ok)

		called := false
		v, err := c.CachedCall(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
			called = true
			return "ok", nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, "ok", v)
	})

	t.Run("context reaches the producer", func(t *testing.T) {
		c, _ := newTestCache()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.CachedCall(ctx, "k", time.Minute, func(ctx context.Context) (any, error) {
			return nil, ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCachedCallScenario(t *testing.T) {
	c, clk := newTestCache()
	fetches := 0
	fetchTeams := func(context.Context) (any, error) {
		fetches++
		return []map[string]any{{"id": 1}}, nil
	}
	ttl := 5 * time.Minute

	_, err := c.CachedCall(context.Background(), "teams:list", ttl, fetchTeams)
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)

	clk.Advance(60 * time.Second)
	v, err := c.CachedCall(context.Background(), "teams:list", ttl, fetchTeams)
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)
	assert.Equal(t, []map[string]any{{"id": 1}}, v)

	clk.Advance(5 * time.Minute)
	_, err = c.CachedCall(context.Background(), "teams:list", ttl, fetchTeams)
	require.NoError(t, err)
	assert.Equal(t, 2, fetches)
}

func TestFetch(t *testing.T) {
	c, _ := newTestCache()
	calls := 0
	producer := func(context.Context) ([]string, error) {
		calls++
		return []string{"x"}, nil
	}

	got, err := Fetch(context.Background(), c, "k", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)

	got, err = Fetch(context.Background(), c, "k", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)
	assert.Equal(t, 1, calls)

	c.Set("k", 42, time.Minute)
	got, err = Fetch(context.Background(), c, "k", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)
	assert.Equal(t, 2, calls, "wrong-typed entry is refetched")
}

func TestStats(t *testing.T) {
	c, _ := newTestCache()
	c.Set("b", "xy", time.Minute)
	c.Set("a", map[string]int{"n": 1}, time.Minute)
	c.Get("a")
	c.Get("nope")

	s := c.Stats()
	assert.Equal(t, 2, s.Size)
	assert.Equal(t, []string{"a", "b"}, s.Keys)
	// "a" + {"n":1} and "b" + "xy"
	assert.Equal(t, 1+7+1+4, s.ApproximateMemoryUsage)
	assert.EqualValues(t, 1, s.Hits)
	assert.EqualValues(t, 1, s.Misses)
}

func TestJanitor(t *testing.T) {
	c := New()
	c.Set("gone", 1, time.Millisecond)
	c.Set("kept", 2, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartJanitor(ctx, 5*time.Millisecond)
	c.StartJanitor(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return c.Stats().Size == 1
	}, time.Second, 5*time.Millisecond)

	c.Close()
	c.Close()
	assert.Equal(t, []string{"kept"}, c.Stats().Keys)
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := "k"
				if j%2 == 0 {
					key = "other"
				}
				c.Set(key, i, time.Minute)
				c.Get(key)
				if j%50 == 0 {
					c.Delete(key)
					c.ClearExpired()
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats().Size, 2)
}
