package location_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/verishda/verishda/internal/errors"
	"github.com/verishda/verishda/location"
)

var (
	officeEntrance = location.Coordinate{Latitude: 48.48870120526846, Longitude: 9.218084635543407}
	officeParking  = location.Coordinate{Latitude: 48.4901237487793, Longitude: 9.21942138671875}
)

func TestSquaredDistance(t *testing.T) {
	t.Run("real pair is between 100 and 200 meters apart", func(t *testing.T) {
		d := math.Sqrt(location.SquaredDistance(officeEntrance, officeParking))
		require.Greater(t, d, 100.0)
		require.Less(t, d, 200.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		require.InDelta(t,
			location.SquaredDistance(officeEntrance, officeParking),
			location.SquaredDistance(officeParking, officeEntrance),
			1e-6)
	})

	t.Run("zero for equal points", func(t *testing.T) {
		require.Zero(t, location.SquaredDistance(officeEntrance, officeEntrance))
	})

	t.Run("positive for distinct points", func(t *testing.T) {
		p := location.Coordinate{Latitude: officeEntrance.Latitude, Longitude: officeEntrance.Longitude + 1e-6}
		require.Greater(t, location.SquaredDistance(officeEntrance, p), 0.0)
	})
}

func TestGeoCircleIsInside(t *testing.T) {
	d := math.Sqrt(location.SquaredDistance(officeEntrance, officeParking))

	testCases := []struct {
		name   string
		radius float64
		inside bool
	}{
		{name: "radius larger than distance", radius: d + 0.01, inside: true},
		{name: "radius smaller than distance", radius: d - 0.01, inside: false},
		{name: "zero radius", radius: 0, inside: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := location.GeoCircle{Center: officeEntrance, Radius: tc.radius}
			require.Equal(t, tc.inside, c.IsInside(officeParking))
		})
	}

	t.Run("boundary counts as outside", func(t *testing.T) {
		c := location.GeoCircle{Center: officeEntrance, Radius: 0}
		require.False(t, c.IsInside(officeEntrance))
	})

	t.Run("center is inside any positive radius", func(t *testing.T) {
		c := location.GeoCircle{Center: officeEntrance, Radius: 0.001}
		require.True(t, c.IsInside(officeEntrance))
	})
}

func TestStaticLocator(t *testing.T) {
	ctx := context.Background()
	l := location.NewStaticLocator(officeEntrance)

	_, err := l.PollLocation(ctx)
	require.ErrorIs(t, err, errors.ErrLocatorStopped)

	require.NoError(t, l.Start(ctx))
	got, err := l.PollLocation(ctx)
	require.NoError(t, err)
	require.Equal(t, officeEntrance, got)

	l.Move(officeParking)
	got, err = l.PollLocation(ctx)
	require.NoError(t, err)
	require.Equal(t, officeParking, got)

	require.NoError(t, l.Stop())
	_, err = l.PollLocation(ctx)
	require.ErrorIs(t, err, errors.ErrLocatorStopped)
}
