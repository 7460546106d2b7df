// Package geofence turns periodic location samples into enter and exit
// transitions for a set of circular sites.
package geofence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/verishda/verishda/internal/errors"
	"github.com/verishda/verishda/location"
)

const transitionBuffer = 32

type Geofence struct {
	ID     string
	Circle location.GeoCircle
}

type Direction int

const (
	Entered Direction = iota
	Exited
)

func (d Direction) String() string {
	if d == Entered {
		return "entered"
	}
	return "exited"
}

type Transition struct {
	GeofenceID string
	Direction  Direction
}

// Tracker owns a geofence set and the subset of it the device currently
// occupies. All methods are safe for concurrent use.
type Tracker struct {
	locator location.Locator
	logger  zerolog.Logger

	mu        sync.Mutex
	geofences []Geofence
	occupied  map[string]struct{}

	transitions chan Transition

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTracker(locator location.Locator) *Tracker {
	return &Tracker{
		locator:     locator,
		logger:      log.With().Str("component", "geofence").Logger(),
		occupied:    make(map[string]struct{}),
		transitions: make(chan Transition, transitionBuffer),
	}
}

// ReplaceGeofences swaps the whole geofence set. Occupancy of sites that are
// no longer present is resolved on the next poll.
func (t *Tracker) ReplaceGeofences(geofences []Geofence) {
	fences := make([]Geofence, len(geofences))
	copy(fences, geofences)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.geofences = fences
}

// Occupied returns the ids of the occupied geofences in sorted order.
func (t *Tracker) Occupied() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.occupied))
	for id := range t.occupied {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Transitions delivers every transition produced by Poll. When nobody reads,
// transitions beyond the buffer are dropped.
func (t *Tracker) Transitions() <-chan Transition {
	return t.transitions
}

// Poll evaluates c against the current geofence set and returns the
// transitions it caused.
func (t *Tracker) Poll(c location.Coordinate) []Transition {
	t.mu.Lock()
	var out []Transition
	for _, g := range t.geofences {
		_, wasInside := t.occupied[g.ID]
		inside := g.Circle.IsInside(c)
		switch {
		case inside && !wasInside:
			t.occupied[g.ID] = struct{}{}
			out = append(out, Transition{GeofenceID: g.ID, Direction: Entered})
		case !inside && wasInside:
			delete(t.occupied, g.ID)
			out = append(out, Transition{GeofenceID: g.ID, Direction: Exited})
		}
	}
	t.mu.Unlock()

	for _, tr := range out {
		t.logger.Info().Str("geofence", tr.GeofenceID).Stringer("direction", tr.Direction).Msg("geofence transition")
		select {
		case t.transitions <- tr:
		default:
			t.logger.Warn().Str("geofence", tr.GeofenceID).Msg("transition dropped, no reader")
		}
	}
	return out
}

// Start starts the locator and polls it every interval until Stop. Starting a
// running tracker is a no-op that returns ErrAlreadyStarted.
func (t *Tracker) Start(interval time.Duration) error {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.cancel != nil {
		t.logger.Warn().Msg("tracker already started")
		return errors.ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := t.locator.Start(ctx); err != nil {
		cancel()
		return errors.Wrapf(err, "starting locator")
	}

	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(ctx, interval, t.done)
	return nil
}

// Stop halts polling and stops the locator. Stopping an idle tracker is a
// no-op that returns ErrNotStarted.
func (t *Tracker) Stop() error {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.cancel == nil {
		t.logger.Debug().Msg("tracker not started")
		return errors.ErrNotStarted
	}

	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil

	if err := t.locator.Stop(); err != nil {
		return errors.Wrapf(err, "stopping locator")
	}
	return nil
}

// Running reports whether the polling task is active.
func (t *Tracker) Running() bool {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	return t.cancel != nil
}

// run polls on every tick. The ticker drops ticks while a round is still in
// progress, so slow locators skip rounds rather than queue them.
func (t *Tracker) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c, err := t.locator.PollLocation(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				t.logger.Err(err).Msg("polling location failed")
				continue
			}
			t.Poll(c)
		}
	}
}
