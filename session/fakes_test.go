package session_test

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/verishda/verishda/backend"
	"github.com/verishda/verishda/geofence"
	"github.com/verishda/verishda/internal/broadcast"
	"github.com/verishda/verishda/internal/errors"
	"github.com/verishda/verishda/location"
	"github.com/verishda/verishda/session"
)

const eventTimeout = 2 * time.Second

var office = location.Coordinate{Latitude: 48.48870120526846, Longitude: 9.218084635543407}

func credentials(n int) session.Credentials {
	return session.Credentials{
		AccessToken:  fmt.Sprintf("access-%d", n),
		RefreshToken: fmt.Sprintf("refresh-%d", n),
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

type exchangeCall struct {
	Code     string
	Verifier string
}

type fakeAuth struct {
	mu           sync.Mutex
	states       []string
	verifiers    []string
	exchanges    []exchangeCall
	exchangeErr  error
	refreshes    int
	refreshFn    func(ctx context.Context, refreshToken string) (session.Credentials, error)
	refreshToken []string
}

func (a *fakeAuth) AuthCodeURL(state, verifier string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states = append(a.states, state)
	a.verifiers = append(a.verifiers, verifier)
	return "https://idp.test/authorize?state=" + url.QueryEscape(state)
}

func (a *fakeAuth) Exchange(_ context.Context, code, verifier string) (session.Credentials, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exchanges = append(a.exchanges, exchangeCall{Code: code, Verifier: verifier})
	if a.exchangeErr != nil {
		return session.Credentials{}, a.exchangeErr
	}
	return credentials(1), nil
}

func (a *fakeAuth) Refresh(ctx context.Context, refreshToken string) (session.Credentials, error) {
	a.mu.Lock()
	a.refreshes++
	a.refreshToken = append(a.refreshToken, refreshToken)
	fn := a.refreshFn
	a.mu.Unlock()
	if fn == nil {
		return credentials(2), nil
	}
	return fn(ctx, refreshToken)
}

func (a *fakeAuth) setRefresh(fn func(ctx context.Context, refreshToken string) (session.Credentials, error)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshFn = fn
}

func (a *fakeAuth) setExchangeErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.exchangeErr = err
}

func (a *fakeAuth) refreshCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshes
}

func (a *fakeAuth) exchangeCalls() []exchangeCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]exchangeCall(nil), a.exchanges...)
}

func (a *fakeAuth) lastLogin() (state, verifier string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.states) == 0 {
		return "", ""
	}
	return a.states[len(a.states)-1], a.verifiers[len(a.verifiers)-1]
}

type backendCall struct {
	Op    string
	Arg   string
	Token string
}

type fakeBackend struct {
	mu            sync.Mutex
	token         backend.TokenFunc
	calls         []backendCall
	failOnce      map[string]error
	failAlways    map[string]error
	sites         []backend.Site
	announcements []backend.PresenceAnnouncement
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		failOnce:   make(map[string]error),
		failAlways: make(map[string]error),
		sites: []backend.Site{
			{ID: "hq", Name: "Headquarters", Latitude: office.Latitude, Longitude: office.Longitude},
			{ID: "lab", Name: "Lab", Latitude: 52.52, Longitude: 13.405},
		},
	}
}

func (b *fakeBackend) record(op, arg string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, backendCall{Op: op, Arg: arg, Token: b.token()})
	if err, ok := b.failOnce[op]; ok {
		delete(b.failOnce, op)
		return err
	}
	return b.failAlways[op]
}

func (b *fakeBackend) GetSites(context.Context) ([]backend.Site, error) {
	if err := b.record("get_sites", ""); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.Site(nil), b.sites...), nil
}

func (b *fakeBackend) PostHello(_ context.Context, siteID string) error {
	return b.record("post_hello", siteID)
}

func (b *fakeBackend) GetPresence(_ context.Context, q backend.PresenceQuery) ([]backend.Presence, error) {
	arg := fmt.Sprintf("%s|%t|%s", q.SiteID, q.FavoritesOnly, q.Term)
	if err := b.record("get_presence", arg); err != nil {
		return nil, err
	}
	return []backend.Presence{{UserID: "u1", LoggedAsName: "Ada", CurrentlyPresent: true}}, nil
}

func (b *fakeBackend) PutFavorite(_ context.Context, userID string) error {
	return b.record("put_favorite", userID)
}

func (b *fakeBackend) DeleteFavorite(_ context.Context, userID string) error {
	return b.record("delete_favorite", userID)
}

func (b *fakeBackend) PutAnnouncements(_ context.Context, siteID string, announcements []backend.PresenceAnnouncement) error {
	if err := b.record("put_announcements", siteID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.announcements = announcements
	return nil
}

func (b *fakeBackend) fail(op string, err error, once bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if once {
		b.failOnce[op] = err
		return
	}
	b.failAlways[op] = err
}

func (b *fakeBackend) callsTo(op string) []backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []backendCall
	for _, c := range b.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBackend) lastAnnouncements() []backend.PresenceAnnouncement {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.announcements
}

type fakeStream struct {
	codes  chan string
	closed chan struct{}
	once   sync.Once
}

func (s *fakeStream) Receive(ctx context.Context) (string, error) {
	select {
	case code := <-s.codes:
		return code, nil
	case <-s.closed:
		return "", errors.ErrLoginAbandoned
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

type fakeRendezvous struct {
	mu      sync.Mutex
	ids     []string
	err     error
	streams chan *fakeStream
}

func (r *fakeRendezvous) Subscribe(_ context.Context, correlationID string) (session.CodeStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, correlationID)
	if r.err != nil {
		return nil, r.err
	}
	s := &fakeStream{codes: make(chan string, 1), closed: make(chan struct{})}
	r.streams <- s
	return s, nil
}

func (r *fakeRendezvous) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *fakeRendezvous) correlationIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type fakeBrowser struct {
	mu   sync.Mutex
	urls []string
}

func (b *fakeBrowser) OpenURL(u string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.urls = append(b.urls, u)
	return nil
}

func (b *fakeBrowser) opened() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.urls...)
}

type testFixture struct {
	actor   *session.Actor
	handle  session.Handle
	events  *broadcast.Subscription[session.Event]
	auth    *fakeAuth
	backend *fakeBackend
	rv      *fakeRendezvous
	browser *fakeBrowser
	tracker *geofence.Tracker
	locator *location.StaticLocator
}

// setupTestFixture starts an actor wired to fakes. configure may adjust the
// options before the actor is built.
func setupTestFixture(t *testing.T, configure ...func(*session.Options)) *testFixture {
	t.Helper()

	f := &testFixture{
		auth:    &fakeAuth{},
		backend: newFakeBackend(),
		rv:      &fakeRendezvous{streams: make(chan *fakeStream, 4)},
		browser: &fakeBrowser{},
		locator: location.NewStaticLocator(office),
	}
	f.tracker = geofence.NewTracker(f.locator)

	opts := session.Options{
		Settings: session.Settings{ReconnectInterval: 20 * time.Millisecond},
		Discover: func(context.Context) (session.Authenticator, error) {
			return f.auth, nil
		},
		Backend: func(token backend.TokenFunc) (backend.API, error) {
			f.backend.mu.Lock()
			defer f.backend.mu.Unlock()
			f.backend.token = token
			return f.backend, nil
		},
		Rendezvous: f.rv,
		Browser:    f.browser,
		Tracker:    f.tracker,
	}
	for _, c := range configure {
		c(&opts)
	}

	f.actor = session.New(opts)
	f.handle = f.actor.Handle()
	f.events = f.handle.Subscribe(64)

	errCh := make(chan error, 1)
	go func() { errCh <- f.actor.Run(context.Background()) }()

	t.Cleanup(func() {
		_ = f.handle.Quit()
		select {
		case <-f.handle.Done():
		case <-time.After(eventTimeout):
			t.Error("actor did not stop")
		}
		_ = f.tracker.Stop()
	})
	return f
}

// nextEvent returns the next published event.
func (f *testFixture) nextEvent(t *testing.T) session.Event {
	t.Helper()
	select {
	case ev, ok := <-f.events.C():
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(eventTimeout):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

// waitEvent skips events until one of type E arrives and returns everything
// seen before it.
func waitEvent[E session.Event](t *testing.T, f *testFixture) (E, []session.Event) {
	t.Helper()
	var skipped []session.Event
	for {
		ev := f.nextEvent(t)
		if e, ok := ev.(E); ok {
			return e, skipped
		}
		skipped = append(skipped, ev)
	}
}

func (f *testFixture) state(t *testing.T) session.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	s, err := f.handle.State(ctx)
	require.NoError(t, err)
	return s
}

// authenticate installs fresh credentials and waits until the initial site
// refresh has been published.
func (f *testFixture) authenticate(t *testing.T) {
	t.Helper()
	waitEvent[session.InitializationFinished](t, f)
	require.NoError(t, f.handle.ReplaceCredentials(credentials(1)))
	waitEvent[session.LoginSuccessful](t, f)
	waitEvent[session.SitesUpdated](t, f)
}

// startLogin starts a login and returns the rendezvous stream it opened.
func (f *testFixture) startLogin(t *testing.T) *fakeStream {
	t.Helper()
	require.NoError(t, f.handle.StartLogin())
	waitEvent[session.LoggingIn](t, f)
	select {
	case s := <-f.rv.streams:
		return s
	case <-time.After(eventTimeout):
		t.Fatal("no rendezvous stream opened")
		return nil
	}
}

func containsType[E session.Event](events []session.Event) bool {
	for _, ev := range events {
		if _, ok := ev.(E); ok {
			return true
		}
	}
	return false
}
