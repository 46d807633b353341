package feed

import (
	"sort"
	"sync"
	"time"

	"github.com/roach88/postr/internal/domain"
)

// Cache defaults. The TTL keeps a session's repeated pagination cheap
// without serving stale timelines for long; the cap bounds per-author
// memory.
const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultCacheMaxPosts = 100
)

type cacheEntry struct {
	posts      []domain.Post
	capturedAt time.Time
}

// TimelineCache is a per-author, time-boxed store of recent posts.
//
// Thread-safety: safe for concurrent use. Each key behaves as an
// atomic get/put cell with last-writer-wins semantics; concurrent
// writers may race but can never corrupt an entry.
type TimelineCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	ttl      time.Duration
	maxPosts int
	now      func() time.Time
}

// CacheOption configures a TimelineCache.
type CacheOption func(*TimelineCache)

// WithCacheTTL overrides the entry time-to-live.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *TimelineCache) { c.ttl = ttl }
}

// WithCacheMaxPosts overrides the per-author retained post cap.
func WithCacheMaxPosts(n int) CacheOption {
	return func(c *TimelineCache) { c.maxPosts = n }
}

// WithCacheClock overrides the wall clock. Used by tests to control
// entry expiry deterministically.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *TimelineCache) { c.now = now }
}

// NewTimelineCache creates an empty cache with the default TTL and
// per-author cap.
func NewTimelineCache(opts ...CacheOption) *TimelineCache {
	c := &TimelineCache{
		entries:  make(map[string]cacheEntry),
		ttl:      DefaultCacheTTL,
		maxPosts: DefaultCacheMaxPosts,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached timeline for authorID, or false if there is
// no entry or the entry has aged past the TTL. Expired entries are
// left in place; Put overwrites them.
func (c *TimelineCache) Get(authorID string) ([]domain.Post, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[authorID]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.capturedAt) >= c.ttl {
		return nil, false
	}
	return e.posts, true
}

// Put stores posts for authorID, sorted newest-first by creation time
// and truncated to the retained cap, and returns the stored slice.
// The input slice is not retained.
func (c *TimelineCache) Put(authorID string, posts []domain.Post) []domain.Post {
	sorted := make([]domain.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > c.maxPosts {
		sorted = sorted[:c.maxPosts]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[authorID] = cacheEntry{posts: sorted, capturedAt: c.now()}
	return sorted
}

// Invalidate removes a single author's entry.
func (c *TimelineCache) Invalidate(authorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, authorID)
}

// InvalidateAll clears every entry.
func (c *TimelineCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of entries, fresh or expired.
func (c *TimelineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
