package feed

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/postr/internal/domain"
)

// Cursor marks the last emitted post of a feed page.
//
// A cursor strictly partitions a globally sorted candidate set:
// a post is "remaining" iff it is strictly older than the cursor
// timestamp, or has the same timestamp and a lexically smaller id.
// Re-issuing the same cursor over an unchanged snapshot yields a
// disjoint continuation with no gaps.
type Cursor struct {
	Time time.Time
	ID   string
}

// Admits reports whether p lies strictly after the cursor boundary,
// i.e. belongs to the remaining set. The boundary is the last emitted
// post, so "remaining" is exactly "sorts after it in feed order".
func (c Cursor) Admits(p *domain.Post) bool {
	boundary := domain.Post{ID: c.ID, CreatedAt: c.Time}
	return p.Less(&boundary)
}

// Encode renders the cursor as an opaque token safe to pass through
// CLI flags and query strings.
func (c Cursor) Encode() string {
	raw := c.Time.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a token produced by Encode.
func ParseCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("parse cursor: %w", err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return Cursor{}, fmt.Errorf("parse cursor: missing separator")
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, fmt.Errorf("parse cursor: %w", err)
	}
	if id == "" {
		return Cursor{}, fmt.Errorf("parse cursor: empty post id")
	}
	return Cursor{Time: t, ID: id}, nil
}
