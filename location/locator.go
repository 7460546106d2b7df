package location

import (
	"context"
	"sync"

	"github.com/verishda/verishda/internal/errors"
)

// Locator is a source of the device position. Implementations wrap a platform
// sensor; Start must be called before PollLocation.
type Locator interface {
	Start(ctx context.Context) error
	Stop() error
	PollLocation(ctx context.Context) (Coordinate, error)
}

// StaticLocator always reports the same coordinate. It stands in for a sensor
// on machines that have none.
type StaticLocator struct {
	mu      sync.Mutex
	at      Coordinate
	started bool
}

var _ Locator = (*StaticLocator)(nil)

func NewStaticLocator(at Coordinate) *StaticLocator {
	return &StaticLocator{at: at}
}

func (l *StaticLocator) Start(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = true
	return nil
}

func (l *StaticLocator) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = false
	return nil
}

// Move changes the reported coordinate.
func (l *StaticLocator) Move(to Coordinate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.at = to
}

func (l *StaticLocator) PollLocation(ctx context.Context) (Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return Coordinate{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started {
		return Coordinate{}, errors.ErrLocatorStopped
	}
	return l.at, nil
}
