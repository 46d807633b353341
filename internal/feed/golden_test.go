package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/postr/internal/domain"
	"github.com/roach88/postr/internal/testutil"
)

// goldenPost is the stable serialized form of a merged post.
type goldenPost struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"`
}

type goldenPage struct {
	Posts      []goldenPost `json:"posts"`
	NextCursor string       `json:"next_cursor,omitempty"`
	Level      int          `json:"degradation_level"`
}

// TestEngine_Fetch_GoldenPagination locks the merged page shape and
// cursor chain for a fixed multi-author snapshot.
func TestEngine_Fetch_GoldenPagination(t *testing.T) {
	source := &testutil.Source{Timelines: map[string][]domain.Post{
		"A": {tsPost("idA1", "A", at(10)), tsPost("idA2", "A", at(5))},
		"B": {tsPost("idB", "B", at(8))},
		"C": {},
	}}
	graph := &testutil.Graph{Follows: map[string][]string{"u1": {"A", "B", "C"}}}
	engine := newTestEngine(source, graph)

	var pages []goldenPage
	var cursor *Cursor
	for {
		res, err := engine.Fetch(context.Background(), Request{
			UserID:   "u1",
			Cursor:   cursor,
			PageSize: 2,
			Depth:    1,
		})
		require.NoError(t, err)

		page := goldenPage{Level: int(res.Level), Posts: []goldenPost{}}
		for _, p := range res.Posts {
			page.Posts = append(page.Posts, goldenPost{
				ID:        p.ID,
				AuthorID:  p.AuthorID,
				CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		if res.NextCursor != nil {
			page.NextCursor = res.NextCursor.Encode()
		}
		pages = append(pages, page)

		if res.NextCursor == nil {
			break
		}
		cursor = res.NextCursor
	}

	data, err := json.MarshalIndent(pages, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "feed_pagination", append(data, '\n'))
}
