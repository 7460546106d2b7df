package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/verishda/verishda/geofence"
	"github.com/verishda/verishda/internal/errors"
)

// RunGeofencing couples the tracker to the session: it polls the location
// while the session is authenticated and reports presence whenever a site is
// entered. It returns once the actor shuts down or ctx is cancelled.
func RunGeofencing(ctx context.Context, h Handle, tracker *geofence.Tracker, interval time.Duration) {
	logger := log.With().Str("component", "geofencing").Logger()

	sub := h.Subscribe(0)
	defer sub.Cancel()
	defer stopTracker(tracker)

	if state, err := h.State(ctx); err == nil && state == StateAuthenticated {
		startTracker(tracker, interval)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			switch ev.(type) {
			case LoginSuccessful:
				startTracker(tracker, interval)
			case LoggingIn, LoggedOut, Terminating:
				stopTracker(tracker)
			}
		case tr := <-tracker.Transitions():
			if tr.Direction != geofence.Entered {
				continue
			}
			if err := h.ReportPresence(); err != nil {
				logger.Debug().Err(err).Msg("presence not reported")
			}
		}
	}
}

func startTracker(tracker *geofence.Tracker, interval time.Duration) {
	if err := tracker.Start(interval); err != nil && !errors.Is(err, errors.ErrAlreadyStarted) {
		log.Err(err).Msg("failed to start geofence tracking")
	}
}

func stopTracker(tracker *geofence.Tracker) {
	if err := tracker.Stop(); err != nil && !errors.Is(err, errors.ErrNotStarted) {
		log.Err(err).Msg("failed to stop geofence tracking")
	}
}
