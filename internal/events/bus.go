// Package events carries typed change notifications from the mutation
// coordinator (and the realtime subscriber) to observers such as the
// feed layer or a UI binding. It replaces an implicit global emitter
// with an explicitly constructed, injectable bus.
package events

import (
	"sync"

	"github.com/roach88/postr/internal/domain"
)

// CountUpdate announces the current counter/flag snapshot for a post.
// The viewer-scoped fields (Reaction, Reposted, Bookmarked) are only
// meaningful on updates published by the mutation coordinator;
// server-pushed updates carry counters alone.
type CountUpdate struct {
	PostID     string                `json:"post_id"`
	Counts     domain.Counts         `json:"counts"`
	Reaction   domain.ReactionAction `json:"reaction"`
	Reposted   bool                  `json:"reposted"`
	Bookmarked bool                  `json:"bookmarked"`
}

// Bus fan-outs CountUpdate events to subscribers.
//
// Publish never blocks: a subscriber that falls behind its buffer
// misses events rather than stalling the mutation path. Observers
// needing a full picture should re-read the coordinator snapshot.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan CountUpdate
	next int
	buf  int
}

// NewBus creates a bus whose subscriber channels buffer up to buf
// events; buf < 1 is treated as 1.
func NewBus(buf int) *Bus {
	if buf < 1 {
		buf = 1
	}
	return &Bus{subs: make(map[int]chan CountUpdate), buf: buf}
}

// Subscribe registers a new observer. The returned cancel func
// unregisters it and closes the channel.
func (b *Bus) Subscribe() (<-chan CountUpdate, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan CountUpdate, b.buf)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers u to every subscriber with room in its buffer.
func (b *Bus) Publish(u CountUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
