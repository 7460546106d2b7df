package main

import (
	"context"

	"github.com/spf13/cobra"
)

var favoriteRemove bool

var favoriteCmd = &cobra.Command{
	Use:   "favorite USER_ID",
	Short: "Add or remove a favorite colleague",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogin(cmd.Context(), func(ctx context.Context, c *client) error {
			if err := c.handle.ChangeFavorite(args[0], !favoriteRemove); err != nil {
				return err
			}
			// State answers after the change has been processed.
			_, err := c.handle.State(ctx)
			return err
		})
	},
}

func init() {
	favoriteCmd.Flags().BoolVar(&favoriteRemove, "remove", false, "remove the colleague from your favorites")
	rootCmd.AddCommand(favoriteCmd)
}
