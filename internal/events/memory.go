package events

import (
	"context"
	"sync"
)

// MemoryBroker delivers events within a single process
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
}

type memorySub struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

func (s *memorySub) close() {
	s.once.Do(func() {
		close(s.done)
		close(s.ch)
	})
}

// NewMemoryBroker creates an in-process broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*memorySub]struct{})}
}

// Publish delivers event to every current subscriber of documentID
func (b *MemoryBroker) Publish(ctx context.Context, documentID string, event Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[documentID] {
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a listener for documentID
func (b *MemoryBroker) Subscribe(ctx context.Context, documentID string) (<-chan Event, func(), error) {
	sub := &memorySub{ch: make(chan Event, subscriberBuffer), done: make(chan struct{})}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.close()
		return sub.ch, func() {}, nil
	}
	if b.subs[documentID] == nil {
		b.subs[documentID] = make(map[*memorySub]struct{})
	}
	b.subs[documentID][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set := b.subs[documentID]; set != nil {
			delete(set, sub)
			if len(set) == 0 {
				delete(b.subs, documentID)
			}
		}
		b.mu.Unlock()
		sub.close()
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()

	return sub.ch, cancel, nil
}

// Close drops all subscribers
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]map[*memorySub]struct{})
	b.closed = true
	b.mu.Unlock()

	for _, set := range subs {
		for sub := range set {
			sub.close()
		}
	}
	return nil
}
