package errors

import (
	"errors"
	"fmt"
)

// Common error types for the presence tracker
var (
	// Session errors
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidGrant   = errors.New("invalid grant")
	ErrActorStopped   = errors.New("session actor stopped")
	ErrNotInitialized = errors.New("session not initialized")

	// Login rendezvous errors
	ErrLoginConflict   = errors.New("login request already exists")
	ErrNoPendingLogin  = errors.New("no pending login with this id")
	ErrReceiverGone    = errors.New("login terminated before code could be sent")
	ErrLoginAbandoned  = errors.New("login abandoned")
	ErrEmptyCorrelator = errors.New("correlation id cannot be empty")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("already started")
	ErrNotStarted     = errors.New("not started")

	// Location errors
	ErrLocatorStopped = errors.New("locator is not started")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
