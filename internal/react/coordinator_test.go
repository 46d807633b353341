package react

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/postr/internal/domain"
	"github.com/roach88/postr/internal/events"
	"github.com/roach88/postr/internal/testutil"
)

func seeded(t *testing.T, remote domain.Mutator) *Coordinator {
	t.Helper()
	c := New(remote, nil, nil)
	c.Initialize("p1", Snapshot{
		Counts:        domain.Counts{Likes: 10, Dislikes: 2, Laughs: 1, Reposts: 4},
		Reaction:      domain.ReactionNone,
		PollVoteIndex: -1,
	})
	return c
}

func TestCoordinator_Initialize_SecondCallIgnored(t *testing.T) {
	c := New(&testutil.Mutator{}, nil, nil)

	c.Initialize("p1", Snapshot{Counts: domain.Counts{Likes: 10}})
	c.Initialize("p1", Snapshot{Counts: domain.Counts{Likes: 999}})

	snap, ok := c.Snapshot("p1")
	require.True(t, ok)
	assert.Equal(t, 10, snap.Counts.Likes, "late snapshot must not clobber stored state")
}

func TestCoordinator_Initialize_DoesNotClobberUserAction(t *testing.T) {
	remote := &testutil.Mutator{}
	c := New(remote, nil, nil)
	c.Initialize("p1", Snapshot{Counts: domain.Counts{Likes: 10}})

	require.NoError(t, c.ToggleReaction(context.Background(), "p1", domain.ReactionLike))

	// A late initial snapshot arrives after the user already reacted.
	c.Initialize("p1", Snapshot{Counts: domain.Counts{Likes: 10}})

	snap, _ := c.Snapshot("p1")
	assert.Equal(t, domain.ReactionLike, snap.Reaction)
	assert.Equal(t, 11, snap.Counts.Likes)
}

func TestCoordinator_ToggleReaction_ApplyThenClear(t *testing.T) {
	remote := &testutil.Mutator{}
	c := seeded(t, remote)

	require.NoError(t, c.ToggleReaction(context.Background(), "p1", domain.ReactionLike))
	snap, _ := c.Snapshot("p1")
	assert.Equal(t, domain.ReactionLike, snap.Reaction)
	assert.Equal(t, 11, snap.Counts.Likes)

	// Re-selecting the same action clears it.
	require.NoError(t, c.ToggleReaction(context.Background(), "p1", domain.ReactionLike))
	snap, _ = c.Snapshot("p1")
	assert.Equal(t, domain.ReactionNone, snap.Reaction)
	assert.Equal(t, 10, snap.Counts.Likes)

	assert.Equal(t, []string{"react:p1:LIKE", "react:p1:NONE"}, remote.CallLog())
}

func TestCoordinator_ToggleReaction_SwitchMovesBuckets(t *testing.T) {
	remote := &testutil.Mutator{}
	c := seeded(t, remote)

	require.NoError(t, c.ToggleReaction(context.Background(), "p1", domain.ReactionLike))
	require.NoError(t, c.ToggleReaction(context.Background(), "p1", domain.ReactionLaugh))

	snap, _ := c.Snapshot("p1")
	assert.Equal(t, domain.ReactionLaugh, snap.Reaction)
	assert.Equal(t, 10, snap.Counts.Likes, "like bucket released")
	assert.Equal(t, 2, snap.Counts.Laughs, "laugh bucket taken")
}

func TestCoordinator_ToggleReaction_RemoteFailureRollsBack(t *testing.T) {
	remote := &testutil.Mutator{ErrReact: errors.New("boom")}
	c := seeded(t, remote)

	err := c.ToggleReaction(context.Background(), "p1", domain.ReactionLike)
	require.Error(t, err, "remote failure propagates to the caller")

	snap, _ := c.Snapshot("p1")
	assert.Equal(t, domain.ReactionNone, snap.Reaction)
	assert.Equal(t, 10, snap.Counts.Likes, "counters restored exactly")
}

func TestCoordinator_ToggleReaction_RejectsInvalidAction(t *testing.T) {
	c := seeded(t, &testutil.Mutator{})

	assert.Error(t, c.ToggleReaction(context.Background(), "p1", domain.ReactionNone))
	assert.Error(t, c.ToggleReaction(context.Background(), "p1", domain.ReactionAction("WINK")))
}

func TestCoordinator_ToggleRepost_AppliesAndReverts(t *testing.T) {
	remote := &testutil.Mutator{}
	c := seeded(t, remote)

	require.NoError(t, c.ToggleRepost(context.Background(), "p1"))
	snap, _ := c.Snapshot("p1")
	assert.True(t, snap.Reposted)
	assert.Equal(t, 5, snap.Counts.Reposts)

	require.NoError(t, c.ToggleRepost(context.Background(), "p1"))
	snap, _ = c.Snapshot("p1")
	assert.False(t, snap.Reposted)
	assert.Equal(t, 4, snap.Counts.Reposts)
}

func TestCoordinator_ToggleRepost_RemoteFailureRollsBack(t *testing.T) {
	remote := &testutil.Mutator{ErrRepost: errors.New("boom")}
	c := seeded(t, remote)

	err := c.ToggleRepost(context.Background(), "p1")
	require.Error(t, err)

	snap, _ := c.Snapshot("p1")
	assert.False(t, snap.Reposted, "flag restored")
	assert.Equal(t, 4, snap.Counts.Reposts, "counter restored")
}

func TestCoordinator_ToggleBookmark(t *testing.T) {
	remote := &testutil.Mutator{}
	c := seeded(t, remote)

	require.NoError(t, c.ToggleBookmark(context.Background(), "p1"))
	snap, _ := c.Snapshot("p1")
	assert.True(t, snap.Bookmarked)

	remote.ErrBookmark = errors.New("boom")
	require.Error(t, c.ToggleBookmark(context.Background(), "p1"))
	snap, _ = c.Snapshot("p1")
	assert.True(t, snap.Bookmarked, "failed un-bookmark rolled back")
}

func TestCoordinator_VotePoll(t *testing.T) {
	remote := &testutil.Mutator{}
	c := seeded(t, remote)

	require.NoError(t, c.VotePoll(context.Background(), "p1", 1))
	snap, _ := c.Snapshot("p1")
	assert.Equal(t, 1, snap.PollVoteIndex)

	// Voting the same choice again is a no-op, locally and remotely.
	require.NoError(t, c.VotePoll(context.Background(), "p1", 1))
	assert.Equal(t, []string{"vote:p1"}, remote.CallLog())

	// Switching choices moves the vote.
	require.NoError(t, c.VotePoll(context.Background(), "p1", 2))
	snap, _ = c.Snapshot("p1")
	assert.Equal(t, 2, snap.PollVoteIndex)
}

func TestCoordinator_VotePoll_RemoteFailureRollsBack(t *testing.T) {
	remote := &testutil.Mutator{ErrVote: errors.New("boom")}
	c := seeded(t, remote)

	require.Error(t, c.VotePoll(context.Background(), "p1", 0))
	snap, _ := c.Snapshot("p1")
	assert.Equal(t, -1, snap.PollVoteIndex)
}

func TestCoordinator_PublishesOnBus(t *testing.T) {
	bus := events.NewBus(8)
	ch, cancel := bus.Subscribe()
	defer cancel()

	c := New(&testutil.Mutator{}, bus, nil)
	c.Initialize("p1", Snapshot{Counts: domain.Counts{Likes: 1}})
	require.NoError(t, c.ToggleReaction(context.Background(), "p1", domain.ReactionLike))

	got := <-ch
	assert.Equal(t, "p1", got.PostID)
	assert.Equal(t, 2, got.Counts.Likes)
	assert.Equal(t, domain.ReactionLike, got.Reaction)
}

func TestCoordinator_UninitializedEntityStartsFromZero(t *testing.T) {
	remote := &testutil.Mutator{}
	c := New(remote, nil, nil)

	require.NoError(t, c.ToggleReaction(context.Background(), "px", domain.ReactionLaugh))

	snap, ok := c.Snapshot("px")
	require.True(t, ok)
	assert.Equal(t, 1, snap.Counts.Laughs)
	assert.Equal(t, domain.ReactionLaugh, snap.Reaction)
}

func TestCoordinator_ConcurrentTogglesSerializePerEntity(t *testing.T) {
	remote := &testutil.Mutator{}
	c := seeded(t, remote)

	// An even number of like-toggles must land back on NONE with the
	// original count, whatever the interleaving.
	const toggles = 8
	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.ToggleReaction(context.Background(), "p1", domain.ReactionLike)
		}()
	}
	wg.Wait()

	snap, _ := c.Snapshot("p1")
	assert.Equal(t, domain.ReactionNone, snap.Reaction)
	assert.Equal(t, 10, snap.Counts.Likes)
}
