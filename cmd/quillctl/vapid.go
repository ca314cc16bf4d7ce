package main

import (
	"fmt"

	"quill/internal/notifications"

	"github.com/spf13/cobra"
)

func newVAPIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid",
		Short: "Print a fresh VAPID key pair for web push",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, priv, err := notifications.GenerateVAPIDKeys()
			if err != nil {
				return fmt.Errorf("generate vapid keys: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", pub, priv)
			return nil
		},
	}
}
