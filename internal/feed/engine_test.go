package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/postr/internal/domain"
	"github.com/roach88/postr/internal/policy"
	"github.com/roach88/postr/internal/testutil"
)

var feedBase = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// at builds a timestamp t seconds after the shared base.
func at(seconds int) time.Time {
	return feedBase.Add(time.Duration(seconds) * time.Second)
}

func newTestEngine(source *testutil.Source, graph *testutil.Graph, opts ...EngineOption) *Engine {
	return NewEngine(source, graph, opts...)
}

func TestEngine_Fetch_MergesAcrossAuthors(t *testing.T) {
	// Followed authors A, B, C; A posts at t=10 and t=5; B posts at
	// t=8; C is silent. Page size 2 at depth 1.
	source := &testutil.Source{Timelines: map[string][]domain.Post{
		"A": {tsPost("idA1", "A", at(10)), tsPost("idA2", "A", at(5))},
		"B": {tsPost("idB", "B", at(8))},
		"C": {},
	}}
	graph := &testutil.Graph{Follows: map[string][]string{"u1": {"A", "B", "C"}}}
	engine := newTestEngine(source, graph)

	res, err := engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 2, Depth: 1})
	require.NoError(t, err)

	require.Len(t, res.Posts, 2)
	assert.Equal(t, "idA1", res.Posts[0].ID)
	assert.Equal(t, "idB", res.Posts[1].ID)
	assert.Equal(t, policy.LevelFull, res.Level)
	require.NotNil(t, res.NextCursor)
	assert.True(t, res.NextCursor.Time.Equal(at(8)))
	assert.Equal(t, "idB", res.NextCursor.ID)
}

func TestEngine_Fetch_EqualTimestampsTieBreakByID(t *testing.T) {
	// Same instant everywhere: the lexically greater id sorts first.
	source := &testutil.Source{Timelines: map[string][]domain.Post{
		"A": {tsPost("aaa", "A", at(10)), tsPost("zzz", "A", at(10))},
		"B": {tsPost("mmm", "B", at(10))},
	}}
	graph := &testutil.Graph{Follows: map[string][]string{"u1": {"A", "B"}}}
	engine := newTestEngine(source, graph)

	res, err := engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 10, Depth: 1})
	require.NoError(t, err)

	require.Len(t, res.Posts, 3)
	assert.Equal(t, "zzz", res.Posts[0].ID)
	assert.Equal(t, "mmm", res.Posts[1].ID)
	assert.Equal(t, "aaa", res.Posts[2].ID)
	assert.Nil(t, res.NextCursor, "exact page fill with nothing left omits the cursor")
}

func TestEngine_Fetch_CursorChainsWithoutDuplicatesOrGaps(t *testing.T) {
	// 25 posts across three authors, some sharing timestamps, paged
	// by 4. Every post must appear exactly once, in global order.
	timelines := map[string][]domain.Post{}
	authors := []string{"A", "B", "C"}
	var all []string
	for i := 0; i < 25; i++ {
		author := authors[i%len(authors)]
		id := fmt.Sprintf("p%02d", i)
		// Integer division gives groups of five sharing a timestamp.
		post := tsPost(id, author, at(100-(i/5)))
		timelines[author] = append(timelines[author], post)
		all = append(all, id)
	}
	source := &testutil.Source{Timelines: timelines}
	graph := &testutil.Graph{Follows: map[string][]string{"u1": authors}}
	engine := newTestEngine(source, graph)

	seen := map[string]bool{}
	var ordered []domain.Post
	var cursor *Cursor
	for page := 0; ; page++ {
		require.Less(t, page, 10, "runaway pagination")
		res, err := engine.Fetch(context.Background(), Request{
			UserID:   "u1",
			Cursor:   cursor,
			PageSize: 4,
			Depth:    1,
		})
		require.NoError(t, err)

		for _, p := range res.Posts {
			assert.False(t, seen[p.ID], "post %s emitted twice", p.ID)
			seen[p.ID] = true
			ordered = append(ordered, p)
		}
		if res.NextCursor == nil {
			break
		}
		cursor = res.NextCursor
	}

	require.Len(t, ordered, len(all), "every post appears exactly once")
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		older := cur.CreatedAt.Before(prev.CreatedAt) ||
			(cur.CreatedAt.Equal(prev.CreatedAt) && cur.ID < prev.ID)
		assert.True(t, older, "order broken between %s and %s", prev.ID, cur.ID)
	}
}

func TestEngine_Fetch_FailedAuthorContributesEmpty(t *testing.T) {
	source := &testutil.Source{
		Timelines: map[string][]domain.Post{
			"A": {tsPost("idA", "A", at(10))},
		},
		Errs: map[string]error{"B": errors.New("author service down")},
	}
	graph := &testutil.Graph{Follows: map[string][]string{"u1": {"A", "B"}}}
	engine := newTestEngine(source, graph)

	res, err := engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 10, Depth: 1})
	require.NoError(t, err, "one broken author must not abort the page")

	require.Len(t, res.Posts, 1)
	assert.Equal(t, "idA", res.Posts[0].ID)
	assert.Equal(t, 1, res.FailedAuthors)
}

func TestEngine_Fetch_GraphFailureIsFatal(t *testing.T) {
	source := &testutil.Source{}
	graph := &testutil.Graph{Err: errors.New("graph unreachable")}
	engine := newTestEngine(source, graph)

	_, err := engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 10, Depth: 1})
	assert.Error(t, err)
}

func TestEngine_Fetch_InvalidPageSize(t *testing.T) {
	engine := newTestEngine(&testutil.Source{}, &testutil.Graph{})

	_, err := engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 0, Depth: 1})
	assert.Error(t, err)
}

func TestEngine_Fetch_DegradationBands(t *testing.T) {
	source := &testutil.Source{}
	graph := &testutil.Graph{Follows: map[string][]string{"u1": {"A"}}}
	engine := newTestEngine(source, graph)

	cases := []struct {
		depth int
		want  policy.Level
	}{
		{1, policy.LevelFull},
		{3, policy.LevelFull},
		{4, policy.LevelPartial},
		{6, policy.LevelPartial},
		{7, policy.LevelHigh},
		{50, policy.LevelHigh},
	}
	for _, tc := range cases {
		res, err := engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 5, Depth: tc.depth})
		require.NoError(t, err)
		assert.Equal(t, tc.want, res.Level, "depth %d", tc.depth)
	}
}

func TestEngine_Fetch_HighDegradationNarrowsFanOut(t *testing.T) {
	// 60 followed authors; at level 2 only the first 50 are consulted.
	var follows []string
	timelines := map[string][]domain.Post{}
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("a%02d", i)
		follows = append(follows, id)
		timelines[id] = []domain.Post{tsPost("p-"+id, id, at(i))}
	}
	source := &testutil.Source{Timelines: timelines}
	graph := &testutil.Graph{Follows: map[string][]string{"u1": follows}}
	engine := newTestEngine(source, graph)

	_, err := engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 100, Depth: 9})
	require.NoError(t, err)

	assert.Equal(t, 0, source.Fetches("a50"), "author beyond the cap must not be fetched")
	assert.Equal(t, 1, source.Fetches("a49"))
}

func TestEngine_Fetch_KillSwitchOverridesDepth(t *testing.T) {
	var follows []string
	timelines := map[string][]domain.Post{}
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("a%02d", i)
		follows = append(follows, id)
		timelines[id] = []domain.Post{tsPost("p-"+id, id, at(i))}
	}
	source := &testutil.Source{Timelines: timelines}
	graph := &testutil.Graph{Follows: map[string][]string{"u1": follows}}

	pol := policy.Default()
	pol.SetKillSwitch(true)
	engine := newTestEngine(source, graph, WithPolicy(pol))

	res, err := engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 100, Depth: 1})
	require.NoError(t, err)

	assert.Equal(t, policy.LevelFull, res.Level, "depth still reports its own band")
	assert.Len(t, res.Posts, 10, "kill switch caps fan-out at 10 authors")
	assert.Equal(t, 0, source.Fetches("a10"))
}

func TestEngine_Fetch_ServesFromCacheWithinTTL(t *testing.T) {
	source := &testutil.Source{Timelines: map[string][]domain.Post{
		"A": {tsPost("idA", "A", at(10))},
	}}
	graph := &testutil.Graph{Follows: map[string][]string{"u1": {"A"}}}

	clock := testutil.NewClock(feedBase)
	cache := NewTimelineCache(WithCacheClock(clock.Now))
	engine := newTestEngine(source, graph, WithCache(cache))

	for i := 0; i < 3; i++ {
		_, err := engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 5, Depth: 1})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, source.Fetches("A"), "fresh cache entry short-circuits the fetch")

	clock.Advance(DefaultCacheTTL + time.Second)
	_, err := engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 5, Depth: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, source.Fetches("A"), "expired entry refetches")
}

func TestEngine_InvalidateCacheForcesRefetch(t *testing.T) {
	source := &testutil.Source{Timelines: map[string][]domain.Post{
		"A": {tsPost("idA", "A", at(10))},
	}}
	graph := &testutil.Graph{Follows: map[string][]string{"u1": {"A"}}}
	engine := newTestEngine(source, graph)

	_, err := engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 5, Depth: 1})
	require.NoError(t, err)
	engine.InvalidateCache("A")
	_, err = engine.Fetch(context.Background(), Request{UserID: "u1", PageSize: 5, Depth: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, source.Fetches("A"))
}
