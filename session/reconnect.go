package session

import (
	"context"
	"time"

	"github.com/verishda/verishda/internal/errors"
)

// startTokenRefresh enters Reauthenticating and starts the reconnect loop.
// Only one loop runs at a time.
func (a *Actor) startTokenRefresh() {
	if !a.initialized() {
		a.logger.Warn().Err(errors.ErrNotInitialized).Msg("token refresh ignored")
		return
	}
	if a.creds == nil {
		a.logger.Debug().Msg("no credentials to refresh")
		return
	}
	if a.reconnectCancel != nil {
		a.logger.Debug().Msg("reconnect already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.reconnectGen++
	a.reconnectCancel = cancel
	a.setState(StateReauthenticating)
	a.publish(LoggingIn{})

	// A backend that stays unreachable after a successful refresh would
	// otherwise restart the loop immediately, over and over.
	var delay time.Duration
	if !a.lastReconnect.IsZero() {
		delay = a.settings.ReconnectInterval - NowTimeFunc().Sub(a.lastReconnect)
	}

	a.wg.Add(1)
	go a.reconnect(ctx, a.reconnectGen, a.creds.RefreshToken, delay, a.cancelSignal.Done())
}

// stopReconnect ends a running reconnect loop without a result.
func (a *Actor) stopReconnect() {
	if a.reconnectCancel == nil {
		return
	}
	a.reconnectCancel()
	a.reconnectCancel = nil
	a.reconnectGen++
}

func (a *Actor) reconnectFinished(ctx context.Context, r reconnectResult) {
	if r.gen != a.reconnectGen || a.reconnectCancel == nil {
		return
	}
	a.reconnectCancel()
	a.reconnectCancel = nil

	switch {
	case r.creds != nil:
		a.logger.Info().Msg("reconnected")
		a.lastReconnect = NowTimeFunc()
		a.authenticated(ctx, *r.creds)
	case r.cancelled:
		a.logger.Info().Msg("reconnect cancelled")
		a.logout()
	default:
		a.logger.Warn().Err(r.err).Msg("refresh token rejected")
		a.logout()
	}
}

// reconnect retries the token refresh every ReconnectInterval until it
// succeeds, the provider rejects the refresh token, or the cancellation
// signal fires. Ticks missed while a refresh is in flight are dropped.
func (a *Actor) reconnect(ctx context.Context, gen uint64, refreshToken string, delay time.Duration, cancelled <-chan struct{}) {
	defer a.wg.Done()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-cancelled:
			timer.Stop()
			a.sendInternal(reconnectResult{gen: gen, cancelled: true})
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-a.stopping:
			timer.Stop()
			return
		}
	}

	ticker := time.NewTicker(a.settings.ReconnectInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, a.settings.RequestTimeout)
		creds, err := a.auth.Refresh(reqCtx, refreshToken)
		cancel()

		switch {
		case err == nil:
			a.sendInternal(reconnectResult{gen: gen, creds: &creds})
			return
		case ctx.Err() != nil:
			return
		case IsTerminalRefreshError(err):
			a.sendInternal(reconnectResult{gen: gen, err: err})
			return
		}
		a.logger.Warn().Err(err).Int("attempt", attempt).Msg("token refresh failed, retrying")

		select {
		case <-ticker.C:
		case <-cancelled:
			a.sendInternal(reconnectResult{gen: gen, cancelled: true})
			return
		case <-ctx.Done():
			return
		case <-a.stopping:
			return
		}
	}
}
