package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/postr/internal/domain"
)

// timeFormat is the canonical stored timestamp form: RFC 3339 in UTC
// with fixed-width nanoseconds, so stored strings sort lexically in
// chronological order. The ORDER BY clauses rely on this.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// UpsertPost inserts or replaces a synced post. Replacing keeps the
// local copy converged on whatever the server sent last.
func (s *Store) UpsertPost(ctx context.Context, p domain.Post, syncedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts
		(id, author_id, content, created_at,
		 like_count, dislike_count, laugh_count, repost_count, comment_count,
		 user_reaction, is_reposted, is_bookmarked, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			like_count = excluded.like_count,
			dislike_count = excluded.dislike_count,
			laugh_count = excluded.laugh_count,
			repost_count = excluded.repost_count,
			comment_count = excluded.comment_count,
			user_reaction = excluded.user_reaction,
			is_reposted = excluded.is_reposted,
			is_bookmarked = excluded.is_bookmarked,
			synced_at = excluded.synced_at
	`,
		p.ID,
		p.AuthorID,
		p.Content,
		p.CreatedAt.UTC().Format(timeFormat),
		p.Counts.Likes,
		p.Counts.Dislikes,
		p.Counts.Laughs,
		p.Counts.Reposts,
		p.Counts.Comments,
		string(p.UserReaction),
		boolToInt(p.IsReposted),
		boolToInt(p.IsBookmarked),
		syncedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("upsert post: %w", err)
	}
	return nil
}

// DeleteOldPosts removes posts created before the retention cutoff and
// any excess rows beyond maxRows, keeping the most recent. Returns the
// number of rows deleted.
func (s *Store) DeleteOldPosts(ctx context.Context, cutoff time.Time, maxRows int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM posts WHERE created_at < ?
	`, cutoff.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("delete old posts: %w", err)
	}
	aged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete old posts: %w", err)
	}

	res, err = s.db.ExecContext(ctx, `
		DELETE FROM posts WHERE id NOT IN (
			SELECT id FROM posts ORDER BY created_at DESC, id DESC LIMIT ?
		)
	`, maxRows)
	if err != nil {
		return 0, fmt.Errorf("delete excess posts: %w", err)
	}
	excess, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete excess posts: %w", err)
	}

	return aged + excess, nil
}

// EnqueueOutbox appends an offline-composed post to the outbox.
// Idempotent on id: re-queuing the same composition is a no-op.
func (s *Store) EnqueueOutbox(ctx context.Context, p domain.Post, queuedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (id, content, created_at, queued_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		p.ID,
		p.Content,
		p.CreatedAt.UTC().Format(timeFormat),
		queuedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("enqueue outbox: %w", err)
	}
	return nil
}

// DeleteOutbox removes an outbox row after the server accepted it.
func (s *Store) DeleteOutbox(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete outbox: %w", err)
	}
	return nil
}

// ReplaceFollows overwrites the local mirror of userID's follow list,
// preserving the given order.
func (s *Store) ReplaceFollows(ctx context.Context, userID string, authorIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace follows: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM follows WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("replace follows: %w", err)
	}
	for i, authorID := range authorIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO follows (user_id, author_id, position) VALUES (?, ?, ?)
		`, userID, authorID, i); err != nil {
			return fmt.Errorf("replace follows: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace follows: %w", err)
	}
	return nil
}

// SetSyncState records progress for a named sync source.
func (s *Store) SetSyncState(ctx context.Context, source string, syncedAt time.Time, cursor string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (source, last_synced_at, cursor)
		VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			last_synced_at = excluded.last_synced_at,
			cursor = excluded.cursor
	`, source, syncedAt.UTC().Format(timeFormat), cursor)
	if err != nil {
		return fmt.Errorf("set sync state: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
