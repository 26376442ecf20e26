// Package broadcast provides an in-process fan-out primitive for observed
// state: every subscriber receives every published value in publish order,
// optionally starting from the most recent value.
package broadcast

import (
	"context"
	"sync"
)

// Broadcaster fans published values out to any number of subscribers. Each
// subscriber has its own ordered queue and pump goroutine, so one slow
// consumer never stalls the publisher or reorders another consumer's view.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber[T]
	nextID uint64
	latest T
	seeded bool
	replay bool
	closed bool
}

type subscriber[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []T
	done  bool
	out   chan T
}

// New creates a broadcaster. With replay enabled, a new subscriber first
// receives the most recently published value (if any) before live updates.
func New[T any](replay bool) *Broadcaster[T] {
	return &Broadcaster[T]{
		subs:   make(map[uint64]*subscriber[T]),
		replay: replay,
	}
}

// Publish appends v to every subscriber's queue and records it as the
// latest value. Publish never blocks on consumers.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.latest = v
	b.seeded = true
	for _, s := range b.subs {
		s.push(v)
	}
}

// Latest returns the most recently published value, if any.
func (b *Broadcaster[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.seeded
}

// Subscribe registers a new subscriber whose channel receives every value
// published after (and, with replay, at) the time of the call. The channel
// closes when ctx is cancelled or the broadcaster is closed.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	s := &subscriber[T]{out: make(chan T)}
	s.cond = sync.NewCond(&s.mu)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.out)
		return s.out
	}
	id := b.nextID
	b.nextID++
	if b.replay && b.seeded {
		s.queue = append(s.queue, b.latest)
	}
	b.subs[id] = s
	b.mu.Unlock()

	stop := context.AfterFunc(ctx, s.finish)
	go func() {
		s.pump(ctx)
		stop()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()
	return s.out
}

// Close stops all subscribers after their queued values drain.
// Close is idempotent.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := make([]*subscriber[T], 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.finish()
	}
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	if !s.done {
		s.queue = append(s.queue, v)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

func (s *subscriber[T]) finish() {
	s.mu.Lock()
	s.done = true
	s.cond.Signal()
	s.mu.Unlock()
}

// pump delivers queued values in order until the subscriber is finished and
// drained, or ctx is cancelled mid-send.
func (s *subscriber[T]) pump(ctx context.Context) {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.done {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		v := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- v:
		case <-ctx.Done():
			return
		}
	}
}
