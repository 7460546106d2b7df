package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/verishda/verishda/geofence"
	"github.com/verishda/verishda/internal/broadcast"
	"github.com/verishda/verishda/internal/config"
	"github.com/verishda/verishda/location"
	"github.com/verishda/verishda/session"
)

var (
	noBrowser bool
	latitude  float64
	longitude float64
)

var rootCmd = &cobra.Command{
	Use:   "verishda",
	Short: "Verishda - see who is in the office",
	Long: `Verishda tells your colleagues when you are at one of your company's sites
and shows you who else is there.

Configuration is read from the environment or a .env file:
  ISSUER_URL, CLIENT_ID, API_BASE_URL, LOCATION_POLL_INTERVAL,
  SITE_REFRESH_INTERVAL, PRESENCE_REFRESH_INTERVAL, RECONNECT_INTERVAL,
  GEOFENCE_RADIUS_METERS, LOG_LEVEL

Commands:
  run         Stay logged in, report presence and print updates
  presence    Print who is at a site
  favorite    Add or remove a favorite colleague
  announce    Announce the days you plan to be at a site
  login-url   Print the redirect URL the identity provider must allow`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noBrowser, "no-browser", false, "print the login URL instead of opening a browser")
	rootCmd.PersistentFlags().Float64Var(&latitude, "lat", 0, "latitude reported as the device position")
	rootCmd.PersistentFlags().Float64Var(&longitude, "lon", 0, "longitude reported as the device position")
}

// client is a running session actor with its configuration.
type client struct {
	cfg     config.Client
	actor   *session.Actor
	handle  session.Handle
	events  *broadcast.Subscription[session.Event]
	tracker *geofence.Tracker
	done    chan error
}

func startClient(ctx context.Context) (*client, error) {
	cfg, err := config.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("config.NewClient: %w", err)
	}
	setupLogging(cfg.LogLevel)

	var browser session.BrowserOpener = session.SystemBrowser{}
	if noBrowser {
		browser = session.NoBrowser{}
	}
	tracker := geofence.NewTracker(location.NewStaticLocator(location.Coordinate{Latitude: latitude, Longitude: longitude}))
	actor := session.NewFromConfig(cfg, tracker, browser)

	c := &client{
		cfg:     cfg,
		actor:   actor,
		handle:  actor.Handle(),
		tracker: tracker,
		done:    make(chan error, 1),
	}
	c.events = c.handle.Subscribe(64)
	go func() { c.done <- actor.Run(ctx) }()
	return c, nil
}

// login starts the login once the actor is initialized and waits until it
// completes.
func (c *client) login(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.events.C():
			if !ok {
				return fmt.Errorf("session ended")
			}
			switch e := ev.(type) {
			case session.InitializationFinished:
				if err := c.handle.StartLogin(); err != nil {
					return err
				}
			case session.InitializationFailed:
				return fmt.Errorf("initialization failed: %w", e.Err)
			case session.LoginURLOpened:
				fmt.Fprintf(os.Stderr, "Log in at %s\n", e.URL)
			case session.LoggedOut:
				return fmt.Errorf("login did not complete")
			case session.LoginSuccessful:
				return nil
			}
		}
	}
}

// stop quits the actor and waits for it.
func (c *client) stop() {
	if err := c.handle.Quit(); err != nil {
		log.Debug().Err(err).Msg("quit")
	}
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("session did not stop in time")
	}
}

func setupLogging(level string) {
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
}
