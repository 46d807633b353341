package domain

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// ReactionAction is the viewer's reaction to a post.
// ReactionNone is the zero value and means "no reaction".
type ReactionAction string

const (
	ReactionNone    ReactionAction = "NONE"
	ReactionLike    ReactionAction = "LIKE"
	ReactionDislike ReactionAction = "DISLIKE"
	ReactionLaugh   ReactionAction = "LAUGH"
)

// Valid reports whether a is one of the known reaction actions.
func (a ReactionAction) Valid() bool {
	switch a {
	case ReactionNone, ReactionLike, ReactionDislike, ReactionLaugh:
		return true
	}
	return false
}

// MediaType distinguishes attached media kinds.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Media is a single attachment on a post.
type Media struct {
	Type MediaType `json:"type"`
	URL  string    `json:"url"`
}

// PollChoice is one option in a poll with its running vote count.
type PollChoice struct {
	Text      string `json:"text"`
	VoteCount int    `json:"vote_count"`
}

// Poll is an optional poll attached to a post.
//
// UserVoteIndex is -1 when the viewer has not voted.
type Poll struct {
	Question      string       `json:"question"`
	Choices       []PollChoice `json:"choices"`
	UserVoteIndex int          `json:"user_vote_index"`
	TotalVotes    int          `json:"total_votes"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

// Counts is the counter snapshot carried on a post and mutated
// optimistically by the reaction coordinator.
type Counts struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
	Laughs   int `json:"laughs"`
	Reposts  int `json:"reposts"`
	Comments int `json:"comments"`
}

// Post is a single timeline entry.
//
// INVARIANTS:
//   - ID is globally unique and order-comparable as a string; equal
//     CreatedAt timestamps are tie-broken by descending ID everywhere
//     a total order is required.
//   - CreatedAt is the authoring time; it never changes after creation.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	Media []Media `json:"media,omitempty"`
	Poll  *Poll   `json:"poll,omitempty"`

	Counts Counts `json:"counts"`

	// Viewer-scoped state.
	UserReaction ReactionAction `json:"user_reaction"`
	IsReposted   bool           `json:"is_reposted"`
	IsBookmarked bool           `json:"is_bookmarked"`
}

// Less reports whether p sorts after other in feed order, i.e. p is
// strictly older. Feed order is descending (CreatedAt, ID).
func (p *Post) Less(other *Post) bool {
	if !p.CreatedAt.Equal(other.CreatedAt) {
		return p.CreatedAt.Before(other.CreatedAt)
	}
	return p.ID < other.ID
}

// NewID generates a client-side identifier for entities composed
// offline, so the id stays stable from creation through sync.
func NewID() string {
	return uuid.NewString()
}

// NormalizeContent canonicalizes user-entered text to NFC before it is
// stored or shipped. Visually identical strings from different input
// methods must compare equal.
func NormalizeContent(s string) string {
	return norm.NFC.String(s)
}
