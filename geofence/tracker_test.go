package geofence_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/verishda/verishda/geofence"
	"github.com/verishda/verishda/internal/errors"
	"github.com/verishda/verishda/location"
	"go.uber.org/goleak"
)

var (
	office  = location.Coordinate{Latitude: 48.48870120526846, Longitude: 9.218084635543407}
	nearby  = location.Coordinate{Latitude: 48.4901237487793, Longitude: 9.21942138671875}
	faraway = location.Coordinate{Latitude: 52.52, Longitude: 13.405}
)

type countingLocator struct {
	*location.StaticLocator
	polls   atomic.Int32
	stops   atomic.Int32
	failing atomic.Bool
}

func (l *countingLocator) PollLocation(ctx context.Context) (location.Coordinate, error) {
	l.polls.Add(1)
	if l.failing.Load() {
		return location.Coordinate{}, context.DeadlineExceeded
	}
	return l.StaticLocator.PollLocation(ctx)
}

func (l *countingLocator) Stop() error {
	l.stops.Add(1)
	return l.StaticLocator.Stop()
}

func fences() []geofence.Geofence {
	return []geofence.Geofence{
		{ID: "office", Circle: location.GeoCircle{Center: office, Radius: 100}},
		{ID: "campus", Circle: location.GeoCircle{Center: office, Radius: 1000}},
	}
}

func TestTrackerPoll(t *testing.T) {
	t.Run("entering emits entered transitions", func(t *testing.T) {
		tr := geofence.NewTracker(location.NewStaticLocator(office))
		tr.ReplaceGeofences(fences())

		got := tr.Poll(office)
		require.ElementsMatch(t, []geofence.Transition{
			{GeofenceID: "office", Direction: geofence.Entered},
			{GeofenceID: "campus", Direction: geofence.Entered},
		}, got)
		require.Equal(t, []string{"campus", "office"}, tr.Occupied())
	})

	t.Run("same position twice emits nothing", func(t *testing.T) {
		tr := geofence.NewTracker(location.NewStaticLocator(office))
		tr.ReplaceGeofences(fences())
		tr.Poll(office)
		require.Empty(t, tr.Poll(office))
	})

	t.Run("moving out of the small fence only", func(t *testing.T) {
		tr := geofence.NewTracker(location.NewStaticLocator(office))
		tr.ReplaceGeofences(fences())
		tr.Poll(office)

		got := tr.Poll(nearby)
		require.Equal(t, []geofence.Transition{{GeofenceID: "office", Direction: geofence.Exited}}, got)
		require.Equal(t, []string{"campus"}, tr.Occupied())
	})

	t.Run("leaving everything", func(t *testing.T) {
		tr := geofence.NewTracker(location.NewStaticLocator(office))
		tr.ReplaceGeofences(fences())
		tr.Poll(office)
		got := tr.Poll(faraway)
		require.Len(t, got, 2)
		for _, g := range got {
			require.Equal(t, geofence.Exited, g.Direction)
		}
		require.Empty(t, tr.Occupied())
	})

	t.Run("transitions are published on the channel", func(t *testing.T) {
		tr := geofence.NewTracker(location.NewStaticLocator(office))
		tr.ReplaceGeofences(fences()[:1])
		tr.Poll(office)
		select {
		case got := <-tr.Transitions():
			require.Equal(t, geofence.Transition{GeofenceID: "office", Direction: geofence.Entered}, got)
		default:
			t.Fatal("expected a transition")
		}
	})

	t.Run("replacing geofences keeps occupancy until next poll", func(t *testing.T) {
		tr := geofence.NewTracker(location.NewStaticLocator(office))
		tr.ReplaceGeofences(fences())
		tr.Poll(office)

		tr.ReplaceGeofences(fences()[1:])
		require.Equal(t, []string{"campus", "office"}, tr.Occupied())
		require.Empty(t, tr.Poll(office))
	})
}

func TestTrackerStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	loc := &countingLocator{StaticLocator: location.NewStaticLocator(office)}
	tr := geofence.NewTracker(loc)
	tr.ReplaceGeofences(fences())

	require.ErrorIs(t, tr.Stop(), errors.ErrNotStarted)
	require.Zero(t, loc.stops.Load())

	require.NoError(t, tr.Start(5*time.Millisecond))
	require.ErrorIs(t, tr.Start(5*time.Millisecond), errors.ErrAlreadyStarted)
	require.True(t, tr.Running())

	require.Eventually(t, func() bool {
		return len(tr.Occupied()) == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, tr.Stop())
	require.False(t, tr.Running())
	require.Equal(t, int32(1), loc.stops.Load())

	polls := loc.polls.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, polls, loc.polls.Load())
}

func TestTrackerSurvivesLocatorFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	loc := &countingLocator{StaticLocator: location.NewStaticLocator(office)}
	loc.failing.Store(true)
	tr := geofence.NewTracker(loc)
	tr.ReplaceGeofences(fences())

	require.NoError(t, tr.Start(2*time.Millisecond))
	require.Eventually(t, func() bool { return loc.polls.Load() >= 3 }, time.Second, 2*time.Millisecond)
	require.Empty(t, tr.Occupied())

	loc.failing.Store(false)
	require.Eventually(t, func() bool { return len(tr.Occupied()) == 2 }, time.Second, 2*time.Millisecond)
	require.NoError(t, tr.Stop())
}
