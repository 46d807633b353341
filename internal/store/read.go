package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/postr/internal/domain"
)

// ReadAuthorPosts returns up to limit of an author's posts, newest
// first with ids breaking timestamp ties, matching feed order.
//
// Returns an empty slice (not nil) when the author has no rows.
func (s *Store) ReadAuthorPosts(ctx context.Context, authorID string, limit int) ([]domain.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, content, created_at,
		       like_count, dislike_count, laugh_count, repost_count, comment_count,
		       user_reaction, is_reposted, is_bookmarked
		FROM posts
		WHERE author_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query author posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// ReadRecentPosts returns up to limit posts across every author in
// feed order. Used by the CLI for local inspection.
func (s *Store) ReadRecentPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, content, created_at,
		       like_count, dislike_count, laugh_count, repost_count, comment_count,
		       user_reaction, is_reposted, is_bookmarked
		FROM posts
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// ReadOutbox returns every queued offline composition, oldest first,
// so drain order matches compose order.
func (s *Store) ReadOutbox(ctx context.Context) ([]domain.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, created_at
		FROM outbox
		ORDER BY queued_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		var p domain.Post
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		t, err := time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse outbox created_at: %w", err)
		}
		p.CreatedAt = t
		p.UserReaction = domain.ReactionNone
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return posts, nil
}

// ReadFollows returns userID's follow list in server order.
func (s *Store) ReadFollows(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT author_id FROM follows WHERE user_id = ? ORDER BY position ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query follows: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan follow row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate follow rows: %w", err)
	}
	return ids, nil
}

// SyncState returns the recorded progress for a source. ok is false
// when the source has never synced.
func (s *Store) SyncState(ctx context.Context, source string) (syncedAt time.Time, cursor string, ok bool, err error) {
	var raw string
	err = s.db.QueryRowContext(ctx, `
		SELECT last_synced_at, cursor FROM sync_state WHERE source = ?
	`, source).Scan(&raw, &cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, "", false, nil
	}
	if err != nil {
		return time.Time{}, "", false, fmt.Errorf("query sync state: %w", err)
	}
	syncedAt, err = time.Parse(timeFormat, raw)
	if err != nil {
		return time.Time{}, "", false, fmt.Errorf("parse sync state time: %w", err)
	}
	return syncedAt, cursor, true, nil
}

// CountPosts returns the number of synced posts.
func (s *Store) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func scanPosts(rows *sql.Rows) ([]domain.Post, error) {
	posts := []domain.Post{}
	for rows.Next() {
		var p domain.Post
		var createdAt, reaction string
		var reposted, bookmarked int
		if err := rows.Scan(
			&p.ID,
			&p.AuthorID,
			&p.Content,
			&createdAt,
			&p.Counts.Likes,
			&p.Counts.Dislikes,
			&p.Counts.Laughs,
			&p.Counts.Reposts,
			&p.Counts.Comments,
			&reaction,
			&reposted,
			&bookmarked,
		); err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		t, err := time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse post created_at: %w", err)
		}
		p.CreatedAt = t
		p.UserReaction = domain.ReactionAction(reaction)
		p.IsReposted = reposted != 0
		p.IsBookmarked = bookmarked != 0
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post rows: %w", err)
	}
	return posts, nil
}
