package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/verishda/verishda/session"
)

var announceCmd = &cobra.Command{
	Use:   "announce SITE PLAN",
	Short: "Announce the days you plan to be at a site",
	Long: `Announce your plans for the coming days. PLAN has one letter per day,
starting today:
  p   present on that day
  w   present on that weekday every week
  -   no announcement

Example: verishda announce hq p-w-p`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := parsePlan(args[1])
		if err != nil {
			return err
		}
		return withLogin(cmd.Context(), func(ctx context.Context, c *client) error {
			if err := c.handle.PublishAnnouncements(args[0], plan); err != nil {
				return err
			}
			_, err := c.handle.State(ctx)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(announceCmd)
}

func parsePlan(s string) ([]session.Announcement, error) {
	plan := make([]session.Announcement, 0, len(s))
	for i, r := range s {
		switch r {
		case 'p', 'P':
			plan = append(plan, session.PresenceAnnounced)
		case 'w', 'W':
			plan = append(plan, session.WeeklyPresenceAnnounced)
		case '-', '.':
			plan = append(plan, session.NotAnnounced)
		default:
			return nil, fmt.Errorf("invalid plan entry %q at position %d", r, i+1)
		}
	}
	return plan, nil
}
