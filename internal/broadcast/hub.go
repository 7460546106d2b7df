// Package broadcast fans values out to any number of subscribers.
//
// Each subscriber owns a bounded buffer. Publishing never blocks: when a
// subscriber's buffer is full, its oldest undelivered value is discarded to
// make room for the new one.
package broadcast

import "sync"

const DefaultBuffer = 16

type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	closed bool
}

type Subscription[T any] struct {
	hub     *Hub[T]
	ch      chan T
	once    sync.Once
	dropped uint64
}

func New[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe registers a new subscriber with room for buffer undelivered
// values. Values published before the call are not seen. Subscribing to a
// closed hub returns a subscription whose channel is already closed.
func (h *Hub[T]) Subscribe(buffer int) *Subscription[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &Subscription[T]{hub: h, ch: make(chan T, buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// Publish delivers v to every current subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for s := range h.subs {
		s.push(v)
	}
}

// Close closes every subscriber channel after its buffered values.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.once.Do(func() { close(s.ch) })
	}
	h.subs = nil
}

// push must be called with the hub lock held.
func (s *Subscription[T]) push(v T) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped++
		default:
		}
	}
}

// C returns the channel values are delivered on. It is closed when the hub
// closes or the subscription is cancelled.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Dropped returns how many values were discarded because the subscriber fell
// behind.
func (s *Subscription[T]) Dropped() uint64 {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.dropped
}

// Cancel removes the subscription from the hub and closes its channel.
func (s *Subscription[T]) Cancel() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if s.hub.subs != nil {
		delete(s.hub.subs, s)
	}
	s.once.Do(func() { close(s.ch) })
}
