package testutil

import (
	"context"
	"sync"

	"github.com/roach88/postr/internal/domain"
)

// Graph is a scripted domain.SocialGraph.
type Graph struct {
	mu      sync.Mutex
	Follows map[string][]string
	Err     error
	Calls   int
}

func (g *Graph) FollowedAuthorIDs(ctx context.Context, userID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	if g.Err != nil {
		return nil, g.Err
	}
	return g.Follows[userID], nil
}

// Source is a scripted domain.TimelineSource. Errs marks authors
// whose fetch fails; FetchCount tracks per-author fetches so cache
// behavior can be asserted.
type Source struct {
	mu         sync.Mutex
	Timelines  map[string][]domain.Post
	Errs       map[string]error
	FetchCount map[string]int
}

func (s *Source) FetchAuthorTimeline(ctx context.Context, authorID string) ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FetchCount == nil {
		s.FetchCount = make(map[string]int)
	}
	s.FetchCount[authorID]++
	if err := s.Errs[authorID]; err != nil {
		return nil, err
	}
	return s.Timelines[authorID], nil
}

// Fetches returns how many times authorID was fetched.
func (s *Source) Fetches(authorID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.FetchCount[authorID]
}

// Mutator is a scripted domain.Mutator. Each Err* field fails the
// matching call; Calls records call order as "op:post" strings.
type Mutator struct {
	mu          sync.Mutex
	ErrReact    error
	ErrRepost   error
	ErrBookmark error
	ErrVote     error
	Calls       []string
}

func (m *Mutator) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CallLog returns a copy of the recorded calls.
func (m *Mutator) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	copy(out, m.Calls)
	return out
}

func (m *Mutator) React(ctx context.Context, postID string, action domain.ReactionAction) error {
	m.record("react:" + postID + ":" + string(action))
	return m.ErrReact
}

func (m *Mutator) Repost(ctx context.Context, postID string) error {
	m.record("repost:" + postID)
	return m.ErrRepost
}

func (m *Mutator) ToggleBookmark(ctx context.Context, postID string) error {
	m.record("bookmark:" + postID)
	return m.ErrBookmark
}

func (m *Mutator) VotePoll(ctx context.Context, postID string, choiceIndex int) error {
	m.record("vote:" + postID)
	return m.ErrVote
}

// Publisher is a scripted domain.Publisher. RejectIDs fail their
// publish; accepted posts accumulate in Published.
type Publisher struct {
	mu        sync.Mutex
	RejectIDs map[string]error
	Published []domain.Post
}

func (p *Publisher) PublishPost(ctx context.Context, post domain.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.RejectIDs[post.ID]; err != nil {
		return err
	}
	p.Published = append(p.Published, post)
	return nil
}

// PublishedIDs returns the ids of accepted posts in publish order.
func (p *Publisher) PublishedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, len(p.Published))
	for i, post := range p.Published {
		ids[i] = post.ID
	}
	return ids
}
