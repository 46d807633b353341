package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/postr/internal/domain"
	"github.com/roach88/postr/internal/policy"
)

// Request asks for one page of a user's home feed.
type Request struct {
	UserID   string
	Cursor   *Cursor // nil for the first page
	PageSize int
	Depth    int // 1-based page number, drives degradation
}

// Result is one page of merged feed output.
type Result struct {
	Posts      []domain.Post
	NextCursor *Cursor // nil at end of feed
	Level      policy.Level

	// FailedAuthors counts per-author fetches that errored and were
	// recovered as empty contributions.
	FailedAuthors int
}

// Engine merges followed authors' timelines into a single paginated
// feed (fan-out-on-read).
//
// INVARIANTS:
//   - For a fixed snapshot of per-author timelines, output order is
//     total and deterministic: descending CreatedAt, ties broken by
//     descending ID.
//   - Chained cursors over an unchanged snapshot never duplicate or
//     skip a post.
//   - A failed author fetch contributes an empty timeline; it never
//     aborts the page.
type Engine struct {
	source domain.TimelineSource
	graph  domain.SocialGraph
	cache  *TimelineCache
	pol    *policy.Policy
	log    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCache substitutes the timeline cache (e.g. one with a shorter
// TTL or a test clock).
func WithCache(c *TimelineCache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// WithPolicy substitutes the degradation policy.
func WithPolicy(p *policy.Policy) EngineOption {
	return func(e *Engine) { e.pol = p }
}

// WithLogger substitutes the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an Engine over the given collaborators with the
// default cache and policy.
func NewEngine(source domain.TimelineSource, graph domain.SocialGraph, opts ...EngineOption) *Engine {
	e := &Engine{
		source: source,
		graph:  graph,
		cache:  NewTimelineCache(),
		pol:    policy.Default(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch assembles one feed page.
//
// Author timelines are fetched concurrently but merged into a fixed
// order, so completion order never leaks into the result.
func (e *Engine) Fetch(ctx context.Context, req Request) (Result, error) {
	if req.PageSize <= 0 {
		return Result{}, fmt.Errorf("fetch feed: page size must be positive, got %d", req.PageSize)
	}

	level := e.pol.Level(req.Depth)

	followed, err := e.graph.FollowedAuthorIDs(ctx, req.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch feed: resolve followed authors: %w", err)
	}

	candidates := e.pol.Narrow(followed, level)
	e.log.Debug("feed fan-out",
		"user", req.UserID,
		"depth", req.Depth,
		"level", int(level),
		"followed", len(followed),
		"candidates", len(candidates))

	timelines := make([][]domain.Post, len(candidates))
	var failed int

	var wg sync.WaitGroup
	var mu sync.Mutex // guards failed
	for i, authorID := range candidates {
		wg.Add(1)
		go func(i int, authorID string) {
			defer wg.Done()
			posts, err := e.authorTimeline(ctx, authorID)
			if err != nil {
				// Policy: a broken author must not break the feed.
				e.log.Warn("author fetch failed, contributing empty", "author", authorID, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			timelines[i] = posts
		}(i, authorID)
	}
	wg.Wait()

	merged := mergeTimelines(timelines, req.Cursor)

	res := Result{Level: level, FailedAuthors: failed}
	if len(merged) > req.PageSize {
		last := merged[req.PageSize-1]
		res.Posts = merged[:req.PageSize]
		res.NextCursor = &Cursor{Time: last.CreatedAt, ID: last.ID}
	} else {
		res.Posts = merged
	}
	return res, nil
}

// authorTimeline returns the cached timeline if fresh, otherwise
// fetches, sorts newest-first (time only; raw fetch order breaks
// remaining ties), truncates and caches.
func (e *Engine) authorTimeline(ctx context.Context, authorID string) ([]domain.Post, error) {
	if posts, ok := e.cache.Get(authorID); ok {
		e.log.Debug("timeline cache hit", "author", authorID)
		return posts, nil
	}
	e.log.Debug("timeline cache miss", "author", authorID)

	posts, err := e.source.FetchAuthorTimeline(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return e.cache.Put(authorID, posts), nil
}

// mergeTimelines flattens per-author timelines, applies the cursor
// filter and imposes the global total order.
func mergeTimelines(timelines [][]domain.Post, cursor *Cursor) []domain.Post {
	var all []domain.Post
	for _, tl := range timelines {
		all = append(all, tl...)
	}

	if cursor != nil {
		kept := all[:0:0]
		for i := range all {
			if cursor.Admits(&all[i]) {
				kept = append(kept, all[i])
			}
		}
		all = kept
	}

	// Feed order is the inverse of Post.Less: newest first, equal
	// timestamps tie-broken by descending id.
	sort.Slice(all, func(i, j int) bool {
		return all[j].Less(&all[i])
	})
	return all
}

// InvalidateCache drops one author's cached timeline.
func (e *Engine) InvalidateCache(authorID string) {
	e.cache.Invalidate(authorID)
}

// InvalidateAll drops every cached timeline.
func (e *Engine) InvalidateAll() {
	e.cache.InvalidateAll()
}
