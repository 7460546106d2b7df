package pendinglogin

import (
	"context"
	"sync"
	"time"

	"github.com/verishda/verishda/internal/errors"
)

// Entry is the single-use rendezvous between a native client waiting on a
// login request stream and the browser redirect that carries the code.
type Entry struct {
	CreatedAt time.Time

	code     chan string
	done     chan struct{}
	failed   chan struct{}
	doneOnce sync.Once
	failOnce sync.Once
	failErr  error
}

func newEntry(now time.Time) *Entry {
	return &Entry{
		CreatedAt: now,
		code:      make(chan string),
		done:      make(chan struct{}),
		failed:    make(chan struct{}),
	}
}

// Deliver hands code to the waiting subscriber. It blocks until the
// subscriber receives it, and returns ErrReceiverGone when the subscriber
// stopped waiting first.
func (e *Entry) Deliver(ctx context.Context, code string) error {
	select {
	case <-e.done:
		return errors.ErrReceiverGone
	default:
	}
	select {
	case e.code <- code:
		return nil
	case <-e.done:
		return errors.ErrReceiverGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until a code is delivered. It returns ErrLoginAbandoned when the
// entry is failed, for example by expiry.
func (e *Entry) Wait(ctx context.Context) (string, error) {
	select {
	case c := <-e.code:
		return c, nil
	case <-e.failed:
		return "", e.failErr
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Fail wakes the subscriber with an error wrapping ErrLoginAbandoned.
func (e *Entry) Fail(reason string) {
	e.failOnce.Do(func() {
		e.failErr = errors.Wrapf(errors.ErrLoginAbandoned, "%s", reason)
		close(e.failed)
	})
}

// Close marks the subscriber side as gone. Pending and later deliveries fail
// with ErrReceiverGone.
func (e *Entry) Close() {
	e.doneOnce.Do(func() { close(e.done) })
}
