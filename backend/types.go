package backend

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

type Site struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

type Presence struct {
	UserID           string                 `json:"user_id"`
	LoggedAsName     string                 `json:"logged_as_name"`
	IsSelf           bool                   `json:"is_self"`
	IsFavorite       bool                   `json:"is_favorite"`
	CurrentlyPresent bool                   `json:"currently_present"`
	Announcements    []PresenceAnnouncement `json:"announcements"`
}

type AnnouncementKind string

const (
	SingularAnnouncement  AnnouncementKind = "SingularAnnouncement"
	RecurringAnnouncement AnnouncementKind = "RecurringAnnouncement"
)

type PresenceAnnouncement struct {
	Date Date             `json:"date"`
	Kind AnnouncementKind `json:"kind"`
}

// PresenceQuery narrows the presences returned for a site. An empty Term
// means no text filter.
type PresenceQuery struct {
	SiteID        string
	FavoritesOnly bool
	Term          string
}

// Date is a calendar date without time of day or zone, encoded as YYYY-MM-DD.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
