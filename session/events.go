package session

import "github.com/verishda/verishda/backend"

// Event is published on the actor's broadcast stream. Consumers switch on the
// concrete type.
type Event interface {
	event()
}

type InitializationFinished struct{}

type InitializationFailed struct {
	Err error
}

type LoggingIn struct{}

type LoginSuccessful struct{}

type LoggedOut struct{}

type Terminating struct{}

// SitesUpdated carries the current site list. SelectedIndex is the position
// of the selected site in Sites, or -1.
type SitesUpdated struct {
	Sites         []backend.Site
	SelectedIndex int
}

type PresencesChanged struct {
	Presences []backend.Presence
}

// LoginURLOpened carries the provider URL the user has to visit. Front ends
// without a browser print it.
type LoginURLOpened struct {
	URL string
}

func (InitializationFinished) event() {}
func (InitializationFailed) event()   {}
func (LoggingIn) event()              {}
func (LoginSuccessful) event()        {}
func (LoggedOut) event()              {}
func (Terminating) event()            {}
func (SitesUpdated) event()           {}
func (PresencesChanged) event()       {}
func (LoginURLOpened) event()         {}
