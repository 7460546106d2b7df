package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/verishda/verishda/internal/config"
	"github.com/verishda/verishda/rendezvous"
)

var loginURLCmd = &cobra.Command{
	Use:   "login-url",
	Short: "Print the redirect URL the identity provider must allow",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewClient(cmd.Context())
		if err != nil {
			return fmt.Errorf("config.NewClient: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendezvous.RedirectURL(cfg.APIBaseURL))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginURLCmd)
}
