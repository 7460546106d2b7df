package pendinglogin

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/verishda/verishda/internal/errors"
)

// NowTimeFunc can be overridden in tests.
var NowTimeFunc = time.Now

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.Mutex
	pending map[string]*Entry

	onExpire func(n int)
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory pending login repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		pending:  make(map[string]*Entry),
		stopChan: make(chan struct{}),
	}
}

// OnExpire registers a callback invoked after each sweep that expired entries.
func (r *InMemoryRepo) OnExpire(fn func(n int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = fn
}

func (r *InMemoryRepo) Register(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.ErrEmptyCorrelator
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pending[id]; exists {
		return nil, errors.ErrLoginConflict
	}
	e := newEntry(NowTimeFunc())
	r.pending[id] = e
	return e, nil
}

func (r *InMemoryRepo) Take(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.pending[id]
	if !exists {
		return nil, false
	}
	delete(r.pending, id)
	return e, true
}

func (r *InMemoryRepo) Release(id string, e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, exists := r.pending[id]; exists && current == e {
		delete(r.pending, id)
	}
}

func (r *InMemoryRepo) ExpireBefore(t time.Time) int {
	r.mu.Lock()
	var expired []*Entry
	for id, e := range r.pending {
		if e.CreatedAt.Before(t) {
			delete(r.pending, id)
			expired = append(expired, e)
		}
	}
	onExpire := r.onExpire
	r.mu.Unlock()

	for _, e := range expired {
		e.Fail("pending login expired")
	}
	if len(expired) > 0 {
		log.Debug().Int("count", len(expired)).Msg("expired pending logins")
		if onExpire != nil {
			onExpire(len(expired))
		}
	}
	return len(expired)
}

func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// StartCleanup starts the background sweep that expires entries older than
// ttl every interval. Call Stop to end it.
func (r *InMemoryRepo) StartCleanup(ctx context.Context, ttl, interval time.Duration) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.C:
				r.ExpireBefore(NowTimeFunc().Add(-ttl))
			}
		}
	}()
}

// Stop stops the background sweep and waits for it to exit.
// Safe to call multiple times.
func (r *InMemoryRepo) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
}
