package session

import (
	"strings"
	"time"
)

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateLoggedOut
	StateLoggingIn
	StateAuthenticated
	StateReauthenticating
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateLoggedOut:
		return "logged_out"
	case StateLoggingIn:
		return "logging_in"
	case StateAuthenticated:
		return "authenticated"
	case StateReauthenticating:
		return "reauthenticating"
	default:
		return "unknown"
	}
}

// Credentials are the tokens of an authenticated session. ExpiresAt already
// includes a safety margin, so a refresh happens before the provider would
// reject the access token.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (c Credentials) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// PersonFilter narrows the presences shown for the selected site.
type PersonFilter struct {
	FavoritesOnly bool
	Term          string
}

func (f PersonFilter) normalized() PersonFilter {
	return PersonFilter{FavoritesOnly: f.FavoritesOnly, Term: strings.TrimSpace(f.Term)}
}
