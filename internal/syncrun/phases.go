package syncrun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/postr/internal/domain"
)

// Default retention applied by PruneStalePosts.
const (
	DefaultRetention   = 30 * 24 * time.Hour
	DefaultMaxRows     = 5000
	DefaultPullLimit   = 100
	sourceHomeTimeline = "home_timeline"
)

// PushComposedPosts drains the outbox of offline-composed posts to the
// remote, keeping client-generated ids. Accepted rows are removed; a
// rejected row stays queued for the next cycle.
type PushComposedPosts struct {
	Remote domain.Publisher
	Log    *slog.Logger
}

func (p *PushComposedPosts) Name() string { return "push_composed_posts" }

func (p *PushComposedPosts) Run(ctx context.Context, sc *Context) error {
	queued, err := sc.Store.ReadOutbox(ctx)
	if err != nil {
		return fmt.Errorf("push composed posts: %w", err)
	}

	var firstErr error
	for _, post := range queued {
		post.AuthorID = sc.UserID
		post.Content = domain.NormalizeContent(post.Content)
		if err := p.Remote.PublishPost(ctx, post); err != nil {
			// Leave the row queued; later rows still get their try.
			p.logger().Warn("outbox publish failed", "post", post.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := sc.Store.DeleteOutbox(ctx, post.ID); err != nil {
			return fmt.Errorf("push composed posts: %w", err)
		}
	}
	if firstErr != nil {
		return fmt.Errorf("push composed posts: %w", firstErr)
	}
	return nil
}

func (p *PushComposedPosts) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// PullHomeTimeline refreshes followed authors' posts into the local
// store. A single author's failed fetch is skipped, not fatal; the
// phase only errors when the graph itself is unreachable or the store
// rejects writes.
type PullHomeTimeline struct {
	Graph  domain.SocialGraph
	Source domain.TimelineSource
	Limit  int // per-author post cap; 0 means DefaultPullLimit
	Log    *slog.Logger
}

func (p *PullHomeTimeline) Name() string { return "pull_home_timeline" }

func (p *PullHomeTimeline) Run(ctx context.Context, sc *Context) error {
	followed, err := p.Graph.FollowedAuthorIDs(ctx, sc.UserID)
	if err != nil {
		return fmt.Errorf("pull home timeline: %w", err)
	}
	if err := sc.Store.ReplaceFollows(ctx, sc.UserID, followed); err != nil {
		return fmt.Errorf("pull home timeline: %w", err)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPullLimit
	}

	for _, authorID := range followed {
		posts, err := p.Source.FetchAuthorTimeline(ctx, authorID)
		if err != nil {
			p.logger().Warn("author pull failed, skipping", "author", authorID, "error", err)
			continue
		}
		if len(posts) > limit {
			posts = posts[:limit]
		}
		for _, post := range posts {
			if err := sc.Store.UpsertPost(ctx, post, sc.Now); err != nil {
				return fmt.Errorf("pull home timeline: %w", err)
			}
		}
	}

	if err := sc.Store.SetSyncState(ctx, sourceHomeTimeline, sc.Now, ""); err != nil {
		return fmt.Errorf("pull home timeline: %w", err)
	}
	return nil
}

func (p *PullHomeTimeline) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// PruneStalePosts deletes synced posts past the retention window and
// beyond the row cap, keeping the newest.
type PruneStalePosts struct {
	Retention time.Duration // 0 means DefaultRetention
	MaxRows   int           // 0 means DefaultMaxRows
	Log       *slog.Logger
}

func (p *PruneStalePosts) Name() string { return "prune_stale_posts" }

func (p *PruneStalePosts) Run(ctx context.Context, sc *Context) error {
	retention := p.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	maxRows := p.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	deleted, err := sc.Store.DeleteOldPosts(ctx, sc.Now.Add(-retention), maxRows)
	if err != nil {
		return fmt.Errorf("prune stale posts: %w", err)
	}
	if deleted > 0 {
		p.logger().Info("pruned stale posts", "deleted", deleted)
	}
	return nil
}

func (p *PruneStalePosts) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}
