package main

import (
	"github.com/spf13/cobra"
)

const serviceName = "authd"

// NewRootCmd creates the root command for the authd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "authd - account registration and credential issuance",
		Long: `authd registers accounts, authenticates logins and issues
session credentials: a short-lived signed access token and an opaque
refresh token. Configuration is read from the environment.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewKeygenCmd())

	return cmd
}
