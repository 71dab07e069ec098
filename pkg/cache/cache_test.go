package cache_test

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/perlparse/pkg/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type tree struct{ name string }

func TestPutThenGetReturnsSameValue(t *testing.T) {
	t.Parallel()

	c := cache.New[*tree]()
	want := &tree{name: "root"}
	c.Put("file:///a.pl", "print 1;", want)

	got, ok := c.Get("file:///a.pl", "print 1;")
	require.True(t, ok)
	assert.Same(t, want, got)
	assert.Equal(t, 1, c.Len())
}

func TestGetWithDifferentContentEvicts(t *testing.T) {
	t.Parallel()

	c := cache.New[*tree]()
	c.Put("a.pl", "print 1;", &tree{})

	got, ok := c.Get("a.pl", "print 2;")
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 0, c.Len())

	_, ok = c.Get("a.pl", "print 1;")
	assert.False(t, ok, "stale entry must be gone after a mismatch")
}

func TestGetMissingKey(t *testing.T) {
	t.Parallel()

	c := cache.New[int]()
	v, ok := c.Get("nope", "")
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestPutOverwrites(t *testing.T) {
	t.Parallel()

	c := cache.New[string]()
	c.Put("k", "one", "first")
	c.Put("k", "two", "second")

	_, ok := c.Get("k", "one")
	assert.False(t, ok)

	c.Put("k", "two", "second")
	v, ok := c.Get("k", "two")
	require.True(t, ok)
	assert.Equal(t, "second", v)
	assert.Equal(t, 1, c.Len())
}

func TestTTLExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.New[string](cache.WithTTL(time.Minute), cache.WithClock(clock.Now))
	c.Put("k", "src", "v")

	clock.Advance(59 * time.Second)
	_, ok := c.Get("k", "src")
	require.True(t, ok)

	// the hit refreshed the access time
	clock.Advance(59 * time.Second)
	_, ok = c.Get("k", "src")
	require.True(t, ok)

	clock.Advance(time.Minute)
	_, ok = c.Get("k", "src")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.New[string](cache.WithTTL(0), cache.WithClock(clock.Now))
	c.Put("k", "src", "v")
	clock.Advance(24 * time.Hour)

	_, ok := c.Get("k", "src")
	assert.True(t, ok)
}

func TestCleanupRemovesOnlyExpired(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.New[int](cache.WithTTL(time.Minute), cache.WithClock(clock.Now))
	c.Put("old", "a", 1)
	clock.Advance(45 * time.Second)
	c.Put("new", "b", 2)
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, c.Cleanup())
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("new", "b")
	assert.True(t, ok)
}

func TestCapacityEvictsLeastRecentlyAccessed(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.New[string](
		cache.WithShards(1),
		cache.WithMaxEntries(2),
		cache.WithClock(clock.Now),
	)

	c.Put("a", "a", "A")
	clock.Advance(time.Second)
	c.Put("b", "b", "B")
	clock.Advance(time.Second)

	_, ok := c.Get("a", "a")
	require.True(t, ok)
	clock.Advance(time.Second)

	c.Put("c", "c", "C")
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("b", "b")
	assert.False(t, ok, "b was least recently accessed")
	_, ok = c.Get("a", "a")
	assert.True(t, ok)
	_, ok = c.Get("c", "c")
	assert.True(t, ok)
}

func TestCapacityIsExactAcrossShards(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.New[int](cache.WithMaxEntries(10), cache.WithShards(4), cache.WithClock(clock.Now))
	for i := 0; i < 100; i++ {
		c.Put("key-"+strconv.Itoa(i), "content", i)
		clock.Advance(time.Millisecond)
	}
	assert.LessOrEqual(t, c.Len(), 10)
}

func TestCapacityIsGlobal(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := cache.New[int](cache.WithMaxEntries(100), cache.WithShards(16), cache.WithClock(clock.Now))
	for i := 0; i < 100; i++ {
		c.Put("file-"+strconv.Itoa(i)+".pl", "content", i)
		clock.Advance(time.Millisecond)
	}
	require.Equal(t, 100, c.Len(), "no eviction before the cache is full")
	for i := 0; i < 100; i++ {
		_, ok := c.Get("file-"+strconv.Itoa(i)+".pl", "content")
		require.True(t, ok, "file-%d.pl", i)
		clock.Advance(time.Millisecond)
	}

	// file-0.pl is now the least recently accessed entry in any shard.
	c.Put("extra.pl", "content", -1)
	assert.Equal(t, 100, c.Len())
	_, ok := c.Get("file-0.pl", "content")
	assert.False(t, ok)
	_, ok = c.Get("extra.pl", "content")
	assert.True(t, ok)
	_, ok = c.Get("file-1.pl", "content")
	assert.True(t, ok)
}

func TestMoreShardsThanEntries(t *testing.T) {
	t.Parallel()

	c := cache.New[int](cache.WithMaxEntries(1), cache.WithShards(16))
	c.Put("a", "x", 1)
	c.Put("b", "x", 2)
	assert.Equal(t, 1, c.Len())
}

func TestDelete(t *testing.T) {
	t.Parallel()

	c := cache.New[int]()
	c.Put("k", "x", 1)
	c.Delete("k")
	c.Delete("missing")
	assert.Equal(t, 0, c.Len())
}

func TestHashDistinguishesContent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, cache.Hash("abc"), cache.Hash("abc"))
	assert.NotEqual(t, cache.Hash("abc"), cache.Hash("abd"))
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := cache.New[int](cache.WithMaxEntries(64))
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := "doc-" + strconv.Itoa((w*200+i)%50)
				content := strconv.Itoa(i % 3)
				c.Put(key, content, i)
				c.Get(key, content)
				if i%50 == 0 {
					c.Cleanup()
				}
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 64)
}
