package domain

import "context"

// TimelineSource fetches a single author's recent posts from the
// remote source of truth.
type TimelineSource interface {
	// FetchAuthorTimeline returns the author's recent posts in no
	// particular order. A failure is recovered by callers as an empty
	// contribution, never as an aborted aggregation.
	FetchAuthorTimeline(ctx context.Context, authorID string) ([]Post, error)
}

// SocialGraph resolves follow relationships.
type SocialGraph interface {
	// FollowedAuthorIDs returns the authors userID follows. The order
	// is meaningful: load-shedding truncates this list from the front.
	FollowedAuthorIDs(ctx context.Context, userID string) ([]string, error)
}

// Mutator is the remote mutation boundary. Every call may fail; the
// caller owns the optimistic local state and rolls it back on failure.
type Mutator interface {
	React(ctx context.Context, postID string, action ReactionAction) error
	Repost(ctx context.Context, postID string) error
	ToggleBookmark(ctx context.Context, postID string) error
	VotePoll(ctx context.Context, postID string, choiceIndex int) error
}

// Publisher accepts locally composed posts during sync.
type Publisher interface {
	// PublishPost ships an offline-composed post, keeping its
	// client-generated id.
	PublishPost(ctx context.Context, post Post) error
}
