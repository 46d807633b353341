// Package react manages user-facing counters and flags (reactions,
// reposts, bookmarks, poll votes) optimistically: the local snapshot
// is mutated and published before the remote call, and restored
// exactly if the call fails.
package react

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/postr/internal/domain"
	"github.com/roach88/postr/internal/events"
)

// Snapshot is the per-post optimistic state.
type Snapshot struct {
	Counts        domain.Counts
	Reaction      domain.ReactionAction
	Reposted      bool
	Bookmarked    bool
	PollVoteIndex int // -1 when the viewer has not voted
}

type record struct {
	mu   sync.Mutex // serializes the full apply/remote/settle span
	snap Snapshot

	// published is the snapshot visible to readers. It is re-stored
	// at every local apply and rollback so reads never wait for an
	// in-flight remote call.
	published atomic.Pointer[Snapshot]
}

func (r *record) store(snap Snapshot) {
	r.snap = snap
	s := snap
	r.published.Store(&s)
}

// Coordinator owns optimistic state per post id.
//
// Mutations on one post are serialized: the per-record lock is held
// across the optimistic apply, the remote call and the commit or
// rollback, so overlapping toggles observe each other's settled
// outcome instead of racing rollback snapshots. Reads return a copy
// of the latest published snapshot and never block on a remote call.
type Coordinator struct {
	mu      sync.Mutex // guards records map shape only
	records map[string]*record

	remote domain.Mutator
	bus    *events.Bus
	log    *slog.Logger
}

// New creates a Coordinator publishing to bus. bus may be nil when no
// observer is interested.
func New(remote domain.Mutator, bus *events.Bus, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		records: make(map[string]*record),
		remote:  remote,
		bus:     bus,
		log:     log,
	}
}

// Initialize seeds state for a post the first time it is observed.
// Idempotent: if a record already exists, even one modified by a user
// action, the late snapshot is ignored.
func (c *Coordinator) Initialize(postID string, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[postID]; ok {
		return
	}
	if snap.Reaction == "" {
		snap.Reaction = domain.ReactionNone
	}
	r := &record{}
	r.store(snap)
	c.records[postID] = r
}

// Snapshot returns a copy of the latest published state and whether
// the post has been observed. It never blocks on an in-flight remote
// call.
func (c *Coordinator) Snapshot(postID string) (Snapshot, bool) {
	c.mu.Lock()
	r, ok := c.records[postID]
	c.mu.Unlock()
	if !ok {
		return Snapshot{Reaction: domain.ReactionNone, PollVoteIndex: -1}, false
	}
	return *r.published.Load(), true
}

// get returns the record for postID, creating a zero-state one if the
// post was never initialized.
func (c *Coordinator) get(postID string) *record {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[postID]
	if !ok {
		r = &record{}
		r.store(Snapshot{Reaction: domain.ReactionNone, PollVoteIndex: -1})
		c.records[postID] = r
	}
	return r
}

// ToggleReaction applies a reaction locally, publishes the new state
// and then confirms with the remote. Re-selecting the current
// reaction clears it. On remote failure the pre-toggle state is
// restored and the error is returned.
func (c *Coordinator) ToggleReaction(ctx context.Context, postID string, action domain.ReactionAction) error {
	if !action.Valid() || action == domain.ReactionNone {
		return fmt.Errorf("toggle reaction: invalid action %q", action)
	}

	r := c.get(postID)
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.snap

	next := action
	if r.snap.Reaction == action {
		next = domain.ReactionNone
	}
	applied := prev
	applyReactionDelta(&applied.Counts, prev.Reaction, -1)
	applyReactionDelta(&applied.Counts, next, +1)
	applied.Reaction = next
	r.store(applied)
	c.publish(postID, applied)

	if err := c.remote.React(ctx, postID, next); err != nil {
		r.store(prev)
		c.publish(postID, prev)
		c.log.Warn("reaction rolled back", "post", postID, "action", action, "error", err)
		return fmt.Errorf("toggle reaction: %w", err)
	}
	return nil
}

// ToggleRepost flips the viewer's repost flag and counter.
func (c *Coordinator) ToggleRepost(ctx context.Context, postID string) error {
	r := c.get(postID)
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.snap

	applied := prev
	if prev.Reposted {
		applied.Counts.Reposts--
	} else {
		applied.Counts.Reposts++
	}
	applied.Reposted = !prev.Reposted
	r.store(applied)
	c.publish(postID, applied)

	if err := c.remote.Repost(ctx, postID); err != nil {
		r.store(prev)
		c.publish(postID, prev)
		c.log.Warn("repost rolled back", "post", postID, "error", err)
		return fmt.Errorf("toggle repost: %w", err)
	}
	return nil
}

// ToggleBookmark flips the viewer's bookmark flag. Bookmarks have no
// public counter.
func (c *Coordinator) ToggleBookmark(ctx context.Context, postID string) error {
	r := c.get(postID)
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.snap

	applied := prev
	applied.Bookmarked = !prev.Bookmarked
	r.store(applied)
	c.publish(postID, applied)

	if err := c.remote.ToggleBookmark(ctx, postID); err != nil {
		r.store(prev)
		c.publish(postID, prev)
		c.log.Warn("bookmark rolled back", "post", postID, "error", err)
		return fmt.Errorf("toggle bookmark: %w", err)
	}
	return nil
}

// VotePoll records the viewer's poll vote. Voting twice for the same
// choice is a no-op locally and remotely; switching choices moves the
// vote.
func (c *Coordinator) VotePoll(ctx context.Context, postID string, choiceIndex int) error {
	if choiceIndex < 0 {
		return fmt.Errorf("vote poll: negative choice index %d", choiceIndex)
	}

	r := c.get(postID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snap.PollVoteIndex == choiceIndex {
		return nil
	}

	prev := r.snap

	applied := prev
	applied.PollVoteIndex = choiceIndex
	r.store(applied)
	c.publish(postID, applied)

	if err := c.remote.VotePoll(ctx, postID, choiceIndex); err != nil {
		r.store(prev)
		c.publish(postID, prev)
		c.log.Warn("poll vote rolled back", "post", postID, "choice", choiceIndex, "error", err)
		return fmt.Errorf("vote poll: %w", err)
	}
	return nil
}

func (c *Coordinator) publish(postID string, snap Snapshot) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.CountUpdate{
		PostID:     postID,
		Counts:     snap.Counts,
		Reaction:   snap.Reaction,
		Reposted:   snap.Reposted,
		Bookmarked: snap.Bookmarked,
	})
}

// applyReactionDelta adjusts the counter bucket matching action by
// delta. ReactionNone touches no bucket.
func applyReactionDelta(c *domain.Counts, action domain.ReactionAction, delta int) {
	switch action {
	case domain.ReactionLike:
		c.Likes += delta
	case domain.ReactionDislike:
		c.Dislikes += delta
	case domain.ReactionLaugh:
		c.Laughs += delta
	}
}
