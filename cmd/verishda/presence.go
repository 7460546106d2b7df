package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/verishda/verishda/backend"
	"github.com/verishda/verishda/session"
)

var (
	presenceTerm          string
	presenceFavoritesOnly bool
)

var presenceCmd = &cobra.Command{
	Use:   "presence SITE",
	Short: "Print who is at a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd.Context(), func(ctx context.Context, c *client) error {
			if err := c.handle.SetPersonFilter(session.PersonFilter{FavoritesOnly: presenceFavoritesOnly, Term: presenceTerm}); err != nil {
				return err
			}
			if err := c.handle.SetSite(args[0]); err != nil {
				return err
			}
			presences, err := c.handle.FetchPresences(ctx)
			if err != nil {
				return err
			}
			printPresences(presences)
			return nil
		})
	},
}

func init() {
	presenceCmd.Flags().StringVar(&presenceTerm, "term", "", "only show colleagues matching this term")
	presenceCmd.Flags().BoolVar(&presenceFavoritesOnly, "favorites-only", false, "only show favorite colleagues")
	rootCmd.AddCommand(presenceCmd)
}

// withLogin runs fn against a logged in session and shuts it down afterwards.
func withLogin(ctx context.Context, fn func(ctx context.Context, c *client) error) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	c, err := startClient(context.Background())
	if err != nil {
		return err
	}
	defer c.stop()

	if err := c.login(ctx); err != nil {
		return err
	}
	return fn(ctx, c)
}

func printPresences(presences []backend.Presence) {
	if len(presences) == 0 {
		fmt.Println("nobody here")
		return
	}
	for _, p := range presences {
		var flags []string
		if p.CurrentlyPresent {
			flags = append(flags, "present")
		}
		if p.IsFavorite {
			flags = append(flags, "favorite")
		}
		if p.IsSelf {
			flags = append(flags, "you")
		}
		var days []string
		for _, a := range p.Announcements {
			d := a.Date.String()
			if a.Kind == backend.RecurringAnnouncement {
				d += " (weekly)"
			}
			days = append(days, d)
		}
		fmt.Printf("%-24s %-10s %-24s %s\n", p.LoggedAsName, p.UserID, strings.Join(flags, ","), strings.Join(days, ", "))
	}
}
