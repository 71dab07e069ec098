// Package cache holds parsed trees keyed by document identity and
// validated against a hash of the exact content they were built from.
//
// A hit requires the stored hash to equal the hash of the queried
// content; a mismatch removes the entry on read, so callers never need to
// invalidate explicitly. Entries are bounded by count (least recently
// accessed goes first) and by a time-to-live measured from the last
// access. The map is split into shards with one mutex each so traffic for
// one document does not wait behind another; the count bound covers all
// shards together.
package cache

import (
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Defaults.
const (
	DefaultMaxEntries = 100
	DefaultTTL        = 5 * time.Minute
	DefaultShards     = 16
)

// Digest is the content hash stored with each entry.
type Digest [blake2b.Size256]byte

// Hash returns the digest of content.
func Hash(content string) Digest {
	return blake2b.Sum256([]byte(content))
}

// Options configures a Cache.
type Options struct {
	// MaxEntries bounds the number of entries in the whole cache. The
	// bound is global: a shard may hold all of them, and eviction picks
	// the least recently accessed entry of any shard.
	MaxEntries int

	// TTL removes entries not accessed for this long. Zero disables
	// expiry.
	TTL time.Duration

	// Shards is the number of independently locked partitions.
	Shards int

	// Now is the clock used for access times.
	Now func() time.Time
}

// Option modifies Options.
type Option func(*Options)

// WithMaxEntries sets Options.MaxEntries. Values below one are ignored.
func WithMaxEntries(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxEntries = n
		}
	}
}

// WithTTL sets Options.TTL. Negative values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl >= 0 {
			o.TTL = ttl
		}
	}
}

// WithShards sets Options.Shards. Values below one are ignored.
func WithShards(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Shards = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// DefaultOptions returns the options New uses when none are given.
func DefaultOptions() Options {
	return Options{
		MaxEntries: DefaultMaxEntries,
		TTL:        DefaultTTL,
		Shards:     DefaultShards,
		Now:        time.Now,
	}
}

type entry[V any] struct {
	digest   Digest
	value    V
	accessed time.Time
}

type shard[V any] struct {
	mu      sync.Mutex
	entries map[string]*entry[V]
}

// Cache is a sharded, content-validated map from keys to values. It is
// safe for concurrent use.
type Cache[V any] struct {
	shards     []*shard[V]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	// evictMu serializes eviction passes.
	evictMu sync.Mutex
}

// New creates a cache.
func New[V any](opts ...Option) *Cache[V] {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	n := o.Shards
	if n > o.MaxEntries {
		n = o.MaxEntries
	}
	c := &Cache[V]{
		shards:     make([]*shard[V], n),
		maxEntries: o.MaxEntries,
		ttl:        o.TTL,
		now:        o.Now,
	}
	for i := range c.shards {
		c.shards[i] = &shard[V]{entries: make(map[string]*entry[V])}
	}
	return c
}

func (c *Cache[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

func (c *Cache[V]) expired(e *entry[V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.accessed) >= c.ttl
}

// Get returns the value stored for key if it was built from content and
// has not expired. A stale or expired entry is removed.
func (c *Cache[V]) Get(key, content string) (V, bool) {
	var zero V
	s := c.shardFor(key)
	digest := Hash(content)
	now := c.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return zero, false
	}
	if e.digest != digest || c.expired(e, now) {
		delete(s.entries, key)
		return zero, false
	}
	e.accessed = now
	return e.value, true
}

// Put stores value for key as built from content, replacing any previous
// entry for key.
func (c *Cache[V]) Put(key, content string, value V) {
	s := c.shardFor(key)
	e := &entry[V]{digest: Hash(content), value: value, accessed: c.now()}

	s.mu.Lock()
	_, replaced := s.entries[key]
	s.entries[key] = e
	s.mu.Unlock()

	if !replaced {
		c.makeRoom(key)
	}
}

// makeRoom drops expired entries and then the least recently accessed
// ones until the cache is within its bound. The entry for keep is never
// chosen. No shard lock may be held by the caller.
func (c *Cache[V]) makeRoom(keep string) {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	if c.Len() <= c.maxEntries {
		return
	}
	c.Cleanup()
	for c.Len() > c.maxEntries {
		if !c.evictOldest(keep) {
			return
		}
	}
}

// evictOldest removes the least recently accessed entry other than keep.
// Shards are locked one at a time.
func (c *Cache[V]) evictOldest(keep string) bool {
	var (
		victimShard *shard[V]
		victimKey   string
		victim      *entry[V]
	)
	for _, s := range c.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if key == keep {
				continue
			}
			if victim == nil || e.accessed.Before(victim.accessed) {
				victimShard, victimKey, victim = s, key, e
			}
		}
		s.mu.Unlock()
	}
	if victim == nil {
		return false
	}

	victimShard.mu.Lock()
	defer victimShard.mu.Unlock()
	// A concurrent Put may have replaced it; the caller loops.
	if victimShard.entries[victimKey] == victim {
		delete(victimShard.entries, victimKey)
	}
	return true
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Cleanup removes every expired entry and returns how many were removed.
func (c *Cache[V]) Cleanup() int {
	now := c.now()
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if c.expired(e, now) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of stored entries, expired ones included until
// they are next touched.
func (c *Cache[V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}
