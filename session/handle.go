package session

import (
	"context"

	"github.com/verishda/verishda/backend"
	"github.com/verishda/verishda/internal/broadcast"
	"github.com/verishda/verishda/internal/errors"
)

// Handle sends commands to an Actor. It is a small value that can be copied
// freely; it holds no reference back to its users.
type Handle struct {
	cmds     chan<- command
	stopping <-chan struct{}
	done     <-chan struct{}
	hub      *broadcast.Hub[Event]
}

// Subscribe returns a new event stream. Subscribe before Run to observe
// initialization events.
func (h Handle) Subscribe(buffer int) *broadcast.Subscription[Event] {
	return h.hub.Subscribe(buffer)
}

// Done is closed once the actor has shut down.
func (h Handle) Done() <-chan struct{} {
	return h.done
}

func (h Handle) StartLogin() error {
	return h.send(startLogin{})
}

func (h Handle) CancelCurrentOperation() error {
	return h.send(cancelCurrentOperation{})
}

func (h Handle) ExchangeCodeForToken(code, verifier string) error {
	return h.send(exchangeCodeForToken{code: code, verifier: verifier})
}

func (h Handle) ReplaceCredentials(creds Credentials) error {
	return h.send(replaceCredentials{creds: creds})
}

func (h Handle) Logout() error {
	return h.send(logout{})
}

func (h Handle) RefreshPresences() error {
	return h.send(refreshPresences{})
}

// ReportPresence announces the occupied sites to the backend, then refreshes
// presences.
func (h Handle) ReportPresence() error {
	return h.send(reportPresence{})
}

// SetSite selects the site whose presences are shown. An empty id selects
// none.
func (h Handle) SetSite(siteID string) error {
	return h.send(setSite{siteID: siteID})
}

func (h Handle) SetPersonFilter(filter PersonFilter) error {
	return h.send(setPersonFilter{filter: filter})
}

// PublishAnnouncements publishes the calendar for siteID. Entry i is for
// today plus i days.
func (h Handle) PublishAnnouncements(siteID string, entries []Announcement) error {
	list := make([]Announcement, len(entries))
	copy(list, entries)
	return h.send(publishAnnouncements{siteID: siteID, entries: list})
}

func (h Handle) ChangeFavorite(userID string, favorite bool) error {
	return h.send(changeFavorite{userID: userID, favorite: favorite})
}

func (h Handle) StartTokenRefresh() error {
	return h.send(startTokenRefresh{})
}

func (h Handle) Quit() error {
	return h.send(quit{})
}

// State returns the actor's current session state.
func (h Handle) State(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := h.send(stateQuery{reply: reply}); err != nil {
		return 0, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return 0, errors.ErrActorStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// FetchPresences queries the presences of the selected site through the
// actor and returns them instead of publishing an event.
func (h Handle) FetchPresences(ctx context.Context) ([]backend.Presence, error) {
	reply := make(chan presenceReply, 1)
	if err := h.send(presenceQuery{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.presences, r.err
	case <-h.done:
		return nil, errors.ErrActorStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h Handle) send(c command) error {
	select {
	case <-h.stopping:
		return errors.ErrActorStopped
	default:
	}
	select {
	case h.cmds <- c:
		return nil
	case <-h.stopping:
		return errors.ErrActorStopped
	}
}

type command interface {
	command()
}

type startLogin struct{}

type cancelCurrentOperation struct{}

type exchangeCodeForToken struct {
	code     string
	verifier string
	attempt  uint64
}

type replaceCredentials struct {
	creds Credentials
}

type logout struct{}

type refreshPresences struct{}

type reportPresence struct{}

type setSite struct {
	siteID string
}

type setPersonFilter struct {
	filter PersonFilter
}

type publishAnnouncements struct {
	siteID  string
	entries []Announcement
}

type changeFavorite struct {
	userID   string
	favorite bool
}

type startTokenRefresh struct{}

type quit struct{}

// loginAborted is sent by the rendezvous waiter when no code arrived.
type loginAborted struct {
	attempt uint64
	err     error
}

// reconnectResult is sent by the reconnect loop when it ends.
type reconnectResult struct {
	gen       uint64
	creds     *Credentials
	err       error
	cancelled bool
}

type stateQuery struct {
	reply chan<- State
}

type presenceQuery struct {
	reply chan<- presenceReply
}

type presenceReply struct {
	presences []backend.Presence
	err       error
}

func (startLogin) command()             {}
func (cancelCurrentOperation) command() {}
func (exchangeCodeForToken) command()   {}
func (replaceCredentials) command()     {}
func (logout) command()                 {}
func (refreshPresences) command()       {}
func (reportPresence) command()         {}
func (setSite) command()                {}
func (setPersonFilter) command()        {}
func (publishAnnouncements) command()   {}
func (changeFavorite) command()         {}
func (startTokenRefresh) command()      {}
func (quit) command()                   {}
func (loginAborted) command()           {}
func (reconnectResult) command()        {}
func (stateQuery) command()             {}
func (presenceQuery) command()          {}
