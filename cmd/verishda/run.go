package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/verishda/verishda/session"
)

var (
	runSite          string
	runTerm          string
	runFavoritesOnly bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stay logged in, report presence and print updates",
	Long: `Log in and keep the session alive. While logged in, the device position
given by --lat and --lon is checked against the company's sites and presence
is reported whenever a site is entered. Presence updates for --site are
printed as they arrive. Stop with Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := startClient(context.Background())
		if err != nil {
			return err
		}
		defer c.stop()

		go session.RunGeofencing(ctx, c.handle, c.tracker, c.cfg.LocationPollInterval)

		if err := c.login(ctx); err != nil {
			return err
		}
		if err := c.handle.SetPersonFilter(session.PersonFilter{FavoritesOnly: runFavoritesOnly, Term: runTerm}); err != nil {
			return err
		}
		if err := c.handle.SetSite(runSite); err != nil {
			return err
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-c.events.C():
				if !ok {
					return nil
				}
				printEvent(ev)
			}
		}
	},
}

func init() {
	runCmd.Flags().StringVar(&runSite, "site", "", "site whose presences are shown")
	runCmd.Flags().StringVar(&runTerm, "term", "", "only show colleagues matching this term")
	runCmd.Flags().BoolVar(&runFavoritesOnly, "favorites-only", false, "only show favorite colleagues")
	rootCmd.AddCommand(runCmd)
}

func printEvent(ev session.Event) {
	switch e := ev.(type) {
	case session.SitesUpdated:
		for i, s := range e.Sites {
			marker := " "
			if i == e.SelectedIndex {
				marker = "*"
			}
			fmt.Printf("%s %-12s %s\n", marker, s.ID, s.Name)
		}
	case session.PresencesChanged:
		printPresences(e.Presences)
	case session.LoginURLOpened:
		fmt.Fprintf(os.Stderr, "Log in at %s\n", e.URL)
	case session.LoggingIn:
		log.Info().Msg("logging in")
	case session.LoginSuccessful:
		log.Info().Msg("logged in")
	case session.LoggedOut:
		log.Warn().Msg("logged out")
	}
}
