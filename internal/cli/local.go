package cli

import (
	"context"

	"github.com/roach88/postr/internal/domain"
	"github.com/roach88/postr/internal/store"
)

// localGraph serves the follow list from the local mirror, so the
// feed command works offline between sync cycles.
type localGraph struct {
	store *store.Store
}

func (g *localGraph) FollowedAuthorIDs(ctx context.Context, userID string) ([]string, error) {
	return g.store.ReadFollows(ctx, userID)
}

// localSource serves author timelines from synced posts.
type localSource struct {
	store *store.Store
	limit int
}

func (s *localSource) FetchAuthorTimeline(ctx context.Context, authorID string) ([]domain.Post, error) {
	return s.store.ReadAuthorPosts(ctx, authorID, s.limit)
}
