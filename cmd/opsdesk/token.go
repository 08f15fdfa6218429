package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsdesk-api/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token <auth-user-id>",
	Short: "Mint a session token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}

		token, err := auth.NewManager(cfg.Auth).Issue(args[0], time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
