package main

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/verishda/verishda/session"
)

func TestParsePlan(t *testing.T) {
	t.Run("valid plan", func(t *testing.T) {
		plan, err := parsePlan("p-W.")
		require.NoError(t, err)
		require.Equal(t, []session.Announcement{
			session.PresenceAnnounced,
			session.NotAnnounced,
			session.WeeklyPresenceAnnounced,
			session.NotAnnounced,
		}, plan)
	})

	t.Run("invalid entry", func(t *testing.T) {
		_, err := parsePlan("px")
		require.ErrorContains(t, err, "position 2")
	})
}
