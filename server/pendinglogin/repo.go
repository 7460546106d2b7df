package pendinglogin

import "time"

// Repo correlates pending logins by the id the native client chose. Every
// operation is atomic with respect to the others.
type Repo interface {
	// Register inserts a new entry for id. If id is already pending it
	// returns ErrLoginConflict and leaves the existing entry untouched.
	Register(id string) (*Entry, error)
	// Take removes and returns the entry for id. Of concurrent callers for
	// the same id at most one receives it.
	Take(id string) (*Entry, bool)
	// Release removes id only while it still maps to e.
	Release(id string, e *Entry)
	// ExpireBefore fails and removes every entry created before t.
	ExpireBefore(t time.Time) int
	Len() int
}
