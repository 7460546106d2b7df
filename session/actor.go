// Package session owns the signed-in state of the presence client: login,
// token lifecycle, site and presence refreshes. All state lives in a single
// goroutine (the actor); callers talk to it through a Handle and listen to
// its events.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/verishda/verishda/backend"
	"github.com/verishda/verishda/geofence"
	"github.com/verishda/verishda/internal/broadcast"
	"github.com/verishda/verishda/internal/config"
	"github.com/verishda/verishda/internal/errors"
	"github.com/verishda/verishda/location"
	"github.com/verishda/verishda/rendezvous"
	"golang.org/x/oauth2"
)

type Settings struct {
	SiteRefreshInterval     time.Duration
	PresenceRefreshInterval time.Duration
	ReconnectInterval       time.Duration
	RequestTimeout          time.Duration
	GeofenceRadius          float64
	CommandBuffer           int
}

func DefaultSettings() Settings {
	return Settings{
		SiteRefreshInterval:     5 * time.Minute,
		PresenceRefreshInterval: time.Minute,
		ReconnectInterval:       10 * time.Second,
		RequestTimeout:          30 * time.Second,
		GeofenceRadius:          100,
		CommandBuffer:           64,
	}
}

// Options are the collaborators of an Actor.
type Options struct {
	Settings Settings
	// Discover connects to the identity provider during initialization.
	Discover func(ctx context.Context) (Authenticator, error)
	// Backend builds the backend client. token yields the current access
	// token and must only be called from backend calls made by the actor.
	Backend    func(token backend.TokenFunc) (backend.API, error)
	Rendezvous Rendezvous
	Browser    BrowserOpener
	Tracker    *geofence.Tracker
}

type Actor struct {
	settings   Settings
	discover   func(ctx context.Context) (Authenticator, error)
	newBackend func(token backend.TokenFunc) (backend.API, error)
	rendezvous Rendezvous
	browser    BrowserOpener
	tracker    *geofence.Tracker
	logger     zerolog.Logger

	cmds         chan command
	stopping     chan struct{}
	done         chan struct{}
	hub          *broadcast.Hub[Event]
	cancelSignal *Signal
	wg           sync.WaitGroup

	// Everything below is owned by the Run goroutine.
	state           State
	auth            Authenticator
	api             backend.API
	creds           *Credentials
	site            string
	sites           []backend.Site
	filter          PersonFilter
	followups       []command
	loginAttempt    uint64
	loginWaiting    bool
	reconnectGen    uint64
	reconnectCancel context.CancelFunc
	lastReconnect   time.Time
}

func New(opts Options) *Actor {
	s := opts.Settings
	d := DefaultSettings()
	if s.SiteRefreshInterval <= 0 {
		s.SiteRefreshInterval = d.SiteRefreshInterval
	}
	if s.PresenceRefreshInterval <= 0 {
		s.PresenceRefreshInterval = d.PresenceRefreshInterval
	}
	if s.ReconnectInterval <= 0 {
		s.ReconnectInterval = d.ReconnectInterval
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = d.RequestTimeout
	}
	if s.GeofenceRadius <= 0 {
		s.GeofenceRadius = d.GeofenceRadius
	}
	if s.CommandBuffer <= 0 {
		s.CommandBuffer = d.CommandBuffer
	}
	browser := opts.Browser
	if browser == nil {
		browser = NoBrowser{}
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = geofence.NewTracker(location.NewStaticLocator(location.Coordinate{}))
	}

	return &Actor{
		settings:     s,
		discover:     opts.Discover,
		newBackend:   opts.Backend,
		rendezvous:   opts.Rendezvous,
		browser:      browser,
		tracker:      tracker,
		logger:       log.With().Str("component", "session").Logger(),
		cmds:         make(chan command, s.CommandBuffer),
		stopping:     make(chan struct{}),
		done:         make(chan struct{}),
		hub:          broadcast.New[Event](),
		cancelSignal: NewSignal(),
		state:        StateUninitialized,
	}
}

// NewFromConfig wires an Actor to the OpenID Connect issuer, the HTTP backend
// and the websocket rendezvous named by cfg.
func NewFromConfig(cfg config.Client, tracker *geofence.Tracker, browser BrowserOpener) *Actor {
	return New(Options{
		Settings: Settings{
			SiteRefreshInterval:     cfg.SiteRefreshInterval,
			PresenceRefreshInterval: cfg.PresenceRefreshInterval,
			ReconnectInterval:       cfg.ReconnectInterval,
			GeofenceRadius:          cfg.GeofenceRadiusMeters,
		},
		Discover: func(ctx context.Context) (Authenticator, error) {
			return Discover(ctx, cfg.IssuerURL, cfg.ClientID, rendezvous.RedirectURL(cfg.APIBaseURL))
		},
		Backend: func(token backend.TokenFunc) (backend.API, error) {
			return backend.NewHTTPClient(cfg.APIBaseURL, token, nil)
		},
		Rendezvous: WebsocketRendezvous{Client: rendezvous.NewClient(cfg.APIBaseURL)},
		Browser:    browser,
		Tracker:    tracker,
	})
}

func (a *Actor) Handle() Handle {
	return Handle{cmds: a.cmds, stopping: a.stopping, done: a.done, hub: a.hub}
}

// Run initializes the actor and processes commands until Quit or until ctx
// is cancelled.
func (a *Actor) Run(ctx context.Context) error {
	defer close(a.done)

	a.initialize(ctx)

	siteTicker := time.NewTicker(a.settings.SiteRefreshInterval)
	defer siteTicker.Stop()
	presenceTicker := time.NewTicker(a.settings.PresenceRefreshInterval)
	defer presenceTicker.Stop()

	for {
		for len(a.followups) > 0 {
			c := a.followups[0]
			a.followups = a.followups[1:]
			if a.handle(ctx, c) {
				a.shutdown()
				return nil
			}
		}

		select {
		case <-ctx.Done():
			a.shutdown()
			return ctx.Err()
		case c := <-a.cmds:
			if a.handle(ctx, c) {
				a.shutdown()
				return nil
			}
		case <-siteTicker.C:
			if a.state == StateAuthenticated {
				a.refreshSites(ctx)
			}
		case <-presenceTicker.C:
			if a.state == StateAuthenticated {
				a.reportPresence(ctx)
			}
		}
	}
}

func (a *Actor) initialize(ctx context.Context) {
	a.setState(StateInitializing)

	auth, api, err := a.connect(ctx)
	if err != nil {
		a.logger.Err(err).Msg("initialization failed")
		a.setState(StateUninitialized)
		a.publish(InitializationFailed{Err: err})
		return
	}
	a.auth = auth
	a.api = api
	a.setState(StateLoggedOut)
	a.publish(InitializationFinished{})
}

func (a *Actor) connect(ctx context.Context) (Authenticator, backend.API, error) {
	if a.discover == nil || a.newBackend == nil || a.rendezvous == nil {
		return nil, nil, errors.Wrapf(errors.ErrNotInitialized, "incomplete actor options")
	}
	auth, err := a.discover(ctx)
	if err != nil {
		return nil, nil, err
	}
	api, err := a.newBackend(a.accessToken)
	if err != nil {
		return nil, nil, err
	}
	return auth, api, nil
}

func (a *Actor) shutdown() {
	a.publish(Terminating{})
	a.cancelSignal.Fire()
	a.stopReconnect()
	close(a.stopping)
	a.wg.Wait()
	a.hub.Close()
}

// handle processes one command and reports whether the actor should stop.
func (a *Actor) handle(ctx context.Context, c command) bool {
	switch c := c.(type) {
	case startLogin:
		a.startLogin(ctx)
	case cancelCurrentOperation:
		a.cancelCurrentOperation()
	case exchangeCodeForToken:
		a.exchangeCodeForToken(ctx, c)
	case loginAborted:
		a.loginAborted(c)
	case replaceCredentials:
		a.replaceCredentials(ctx, c.creds)
	case logout:
		a.logout()
	case refreshPresences:
		a.refreshPresences(ctx)
	case reportPresence:
		a.reportPresence(ctx)
	case setSite:
		if c.siteID == a.site {
			return false
		}
		a.site = c.siteID
		a.refreshPresences(ctx)
	case setPersonFilter:
		a.filter = c.filter.normalized()
		a.refreshPresences(ctx)
	case publishAnnouncements:
		a.publishAnnouncements(ctx, c)
	case changeFavorite:
		a.changeFavorite(ctx, c)
	case startTokenRefresh:
		a.startTokenRefresh()
	case reconnectResult:
		a.reconnectFinished(ctx, c)
	case stateQuery:
		c.reply <- a.state
	case presenceQuery:
		presences, err := a.queryPresences(ctx)
		c.reply <- presenceReply{presences: presences, err: err}
	case quit:
		return true
	default:
		a.logger.Error().Msgf("unknown command %T", c)
	}
	return false
}

func (a *Actor) setState(s State) {
	if a.state != s {
		a.logger.Debug().Stringer("from", a.state).Stringer("to", s).Msg("session state")
	}
	a.state = s
}

func (a *Actor) publish(e Event) {
	a.hub.Publish(e)
}

// enqueue schedules a command generated by the actor itself. It runs before
// the next external command. A command already queued is not queued twice.
func (a *Actor) enqueue(c command) {
	for _, queued := range a.followups {
		if queued == c {
			return
		}
	}
	a.followups = append(a.followups, c)
}

// recovering reports whether a failed backend call has queued a logout or
// token refresh that has not run yet.
func (a *Actor) recovering() bool {
	return len(a.followups) > 0
}

// sendInternal delivers a command from a background task. It gives up when
// the actor is shutting down.
func (a *Actor) sendInternal(c command) {
	select {
	case a.cmds <- c:
	case <-a.stopping:
	}
}

func (a *Actor) accessToken() string {
	if a.creds == nil {
		return ""
	}
	return a.creds.AccessToken
}

func (a *Actor) startLogin(ctx context.Context) {
	if a.state == StateLoggingIn {
		a.logger.Warn().Msg("login already in progress")
		return
	}
	if a.auth == nil {
		a.logger.Err(errors.ErrNotInitialized).Msg("cannot start login")
		return
	}

	verifier := oauth2.GenerateVerifier()
	correlationID := uuid.NewString()

	stream, err := a.rendezvous.Subscribe(ctx, correlationID)
	if err != nil {
		a.logger.Err(err).Msg("failed to open login request")
		if a.state == StateLoggedOut {
			a.publish(LoggedOut{})
		}
		return
	}

	a.stopReconnect()
	url := a.auth.AuthCodeURL(correlationID, verifier)
	if err := a.browser.OpenURL(url); err != nil {
		a.logger.Warn().Err(err).Msg("failed to open browser")
	}

	a.loginAttempt++
	a.loginWaiting = true
	a.setState(StateLoggingIn)
	a.publish(LoggingIn{})
	a.publish(LoginURLOpened{URL: url})

	a.wg.Add(1)
	go a.awaitCode(a.loginAttempt, stream, verifier, a.cancelSignal.Done())
}

// awaitCode waits on the rendezvous stream until the code arrives, the
// cancellation signal fires or the actor stops.
func (a *Actor) awaitCode(attempt uint64, stream CodeStream, verifier string, cancelled <-chan struct{}) {
	defer a.wg.Done()
	defer stream.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-cancelled:
		case <-a.stopping:
		case <-ctx.Done():
		}
		cancel()
	}()

	code, err := stream.Receive(ctx)
	if err != nil {
		a.sendInternal(loginAborted{attempt: attempt, err: err})
		return
	}
	a.sendInternal(exchangeCodeForToken{code: code, verifier: verifier, attempt: attempt})
}

func (a *Actor) loginAborted(c loginAborted) {
	if c.attempt != a.loginAttempt {
		return
	}
	a.loginWaiting = false
	a.logger.Info().Err(c.err).Msg("login aborted")
	if a.state == StateLoggingIn {
		a.creds = nil
		a.setState(StateLoggedOut)
		a.publish(LoggedOut{})
	}
}

func (a *Actor) cancelCurrentOperation() {
	a.cancelSignal.Fire()
	if a.state == StateLoggingIn && !a.loginWaiting {
		a.creds = nil
		a.setState(StateLoggedOut)
		a.publish(LoggedOut{})
	}
}

func (a *Actor) exchangeCodeForToken(ctx context.Context, c exchangeCodeForToken) {
	if c.attempt != 0 {
		if c.attempt != a.loginAttempt {
			return
		}
		a.loginWaiting = false
	}
	if a.state != StateLoggingIn {
		a.logger.Warn().Stringer("state", a.state).Msg("ignoring authorization code outside of login")
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.settings.RequestTimeout)
	defer cancel()
	creds, err := a.auth.Exchange(reqCtx, c.code, c.verifier)
	if err != nil {
		a.logger.Err(err).Msg("code exchange failed")
		return
	}
	a.authenticated(ctx, creds)
}

func (a *Actor) replaceCredentials(ctx context.Context, creds Credentials) {
	if !a.initialized() {
		a.logger.Warn().Err(errors.ErrNotInitialized).Msg("credentials ignored")
		return
	}
	a.stopReconnect()
	a.authenticated(ctx, creds)
}

func (a *Actor) initialized() bool {
	return a.auth != nil && a.api != nil
}

// authenticated installs creds and refreshes the data that depends on them.
func (a *Actor) authenticated(ctx context.Context, creds Credentials) {
	a.creds = &creds
	a.setState(StateAuthenticated)
	a.publish(LoginSuccessful{})
	a.refreshSites(ctx)
	a.refreshPresences(ctx)
}

func (a *Actor) logout() {
	a.cancelSignal.Fire()
	a.stopReconnect()
	a.loginAttempt++
	a.loginWaiting = false
	a.creds = nil
	a.setState(StateLoggedOut)
	a.publish(LoggedOut{})
}

// withBackend runs fn after making sure the credentials are fresh. Failures
// are logged and mapped to follow-up commands: 401 logs out, an unreachable
// backend starts the reconnect loop.
func (a *Actor) withBackend(ctx context.Context, op string, fn func(ctx context.Context, api backend.API) error) error {
	if a.recovering() {
		return errors.Wrapf(errors.ErrNotLoggedIn, "session recovery pending")
	}
	if err := a.ensureFreshCredentials(ctx); err != nil {
		a.logger.Debug().Err(err).Str("op", op).Msg("backend call skipped")
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.settings.RequestTimeout)
	defer cancel()
	err := fn(reqCtx, a.api)
	if err == nil {
		return nil
	}

	a.logger.Err(err).Str("op", op).Msg("backend call failed")
	switch {
	case errors.Is(err, errors.ErrUnauthorized):
		a.enqueue(logout{})
	case backend.IsTransportError(err):
		a.enqueue(startTokenRefresh{})
	}
	return err
}

// ensureFreshCredentials refreshes expired credentials once, inline. A failed
// refresh logs the session out.
func (a *Actor) ensureFreshCredentials(ctx context.Context) error {
	if a.creds == nil {
		return errors.ErrNotLoggedIn
	}
	if !a.creds.Expired(NowTimeFunc()) {
		return nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.settings.RequestTimeout)
	defer cancel()
	creds, err := a.auth.Refresh(reqCtx, a.creds.RefreshToken)
	if err != nil {
		a.logger.Err(err).Msg("token refresh failed")
		a.stopReconnect()
		a.creds = nil
		a.setState(StateLoggedOut)
		a.publish(LoggedOut{})
		return errors.Wrapf(errors.ErrNotLoggedIn, "refresh failed: %v", err)
	}
	a.creds = &creds
	return nil
}

func (a *Actor) refreshSites(ctx context.Context) {
	if a.state != StateAuthenticated {
		return
	}
	var sites []backend.Site
	err := a.withBackend(ctx, "get_sites", func(ctx context.Context, api backend.API) error {
		var err error
		sites, err = api.GetSites(ctx)
		return err
	})
	if err != nil {
		return
	}

	fences := make([]geofence.Geofence, 0, len(sites))
	for _, s := range sites {
		fences = append(fences, geofence.Geofence{
			ID: s.ID,
			Circle: location.GeoCircle{
				Center: location.Coordinate{Latitude: s.Latitude, Longitude: s.Longitude},
				Radius: a.settings.GeofenceRadius,
			},
		})
	}
	a.tracker.ReplaceGeofences(fences)
	a.sites = sites
	a.publish(SitesUpdated{Sites: sites, SelectedIndex: a.selectedIndex()})
}

func (a *Actor) selectedIndex() int {
	for i, s := range a.sites {
		if s.ID == a.site {
			return i
		}
	}
	return -1
}

// reportPresence says hello on every occupied site, then refreshes presences.
func (a *Actor) reportPresence(ctx context.Context) {
	if a.state != StateAuthenticated {
		return
	}
	for _, siteID := range a.tracker.Occupied() {
		err := a.withBackend(ctx, "post_hello", func(ctx context.Context, api backend.API) error {
			return api.PostHello(ctx, siteID)
		})
		if err != nil && a.recovering() {
			return
		}
	}
	a.refreshPresences(ctx)
}

func (a *Actor) refreshPresences(ctx context.Context) {
	if a.state != StateAuthenticated || a.site == "" {
		return
	}
	presences, err := a.queryPresences(ctx)
	if err != nil {
		return
	}
	a.publish(PresencesChanged{Presences: presences})
}

func (a *Actor) queryPresences(ctx context.Context) ([]backend.Presence, error) {
	if a.state != StateAuthenticated {
		return nil, errors.Wrapf(errors.ErrNotLoggedIn, "state %s", a.state)
	}
	if a.site == "" {
		return nil, nil
	}
	var presences []backend.Presence
	err := a.withBackend(ctx, "get_presence", func(ctx context.Context, api backend.API) error {
		var err error
		presences, err = api.GetPresence(ctx, backend.PresenceQuery{
			SiteID:        a.site,
			FavoritesOnly: a.filter.FavoritesOnly,
			Term:          a.filter.Term,
		})
		return err
	})
	return presences, err
}

func (a *Actor) publishAnnouncements(ctx context.Context, c publishAnnouncements) {
	if a.state != StateAuthenticated {
		a.logger.Warn().Stringer("state", a.state).Msg("cannot publish announcements")
		return
	}
	list := announcementsFrom(NowTimeFunc(), c.entries)
	_ = a.withBackend(ctx, "put_announcements", func(ctx context.Context, api backend.API) error {
		return api.PutAnnouncements(ctx, c.siteID, list)
	})
}

func (a *Actor) changeFavorite(ctx context.Context, c changeFavorite) {
	if a.state != StateAuthenticated {
		a.logger.Warn().Stringer("state", a.state).Msg("cannot change favorite")
		return
	}
	err := a.withBackend(ctx, "change_favorite", func(ctx context.Context, api backend.API) error {
		if c.favorite {
			return api.PutFavorite(ctx, c.userID)
		}
		return api.DeleteFavorite(ctx, c.userID)
	})
	if err != nil {
		return
	}
	a.refreshPresences(ctx)
}
