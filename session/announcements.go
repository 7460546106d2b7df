package session

import (
	"time"

	"github.com/verishda/verishda/backend"
)

// Announcement is the user's plan for one day of the announcement calendar.
type Announcement int

const (
	NotAnnounced Announcement = iota
	PresenceAnnounced
	WeeklyPresenceAnnounced
)

// announcementsFrom maps calendar entries to dated backend announcements.
// Entry i is for today plus i days; days without an announcement are left out.
func announcementsFrom(today time.Time, entries []Announcement) []backend.PresenceAnnouncement {
	start := backend.DateOf(today)
	out := make([]backend.PresenceAnnouncement, 0, len(entries))
	for i, e := range entries {
		var kind backend.AnnouncementKind
		switch e {
		case PresenceAnnounced:
			kind = backend.SingularAnnouncement
		case WeeklyPresenceAnnounced:
			kind = backend.RecurringAnnouncement
		default:
			continue
		}
		out = append(out, backend.PresenceAnnouncement{Date: start.AddDays(i), Kind: kind})
	}
	return out
}
