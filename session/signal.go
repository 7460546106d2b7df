package session

import "sync"

// Signal is a re-armable broadcast used to cancel whatever the actor is
// currently waiting on. Every waiter that captured Done before Fire is woken;
// waiters that capture Done afterwards wait for the next Fire.
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

func (s *Signal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// Fire wakes all current waiters. Firing with no waiters has no effect.
func (s *Signal) Fire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.ch)
	s.ch = make(chan struct{})
}
