package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the PageKeep CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagekeep",
		Short: "PageKeep - content platform backend service",
		Long: `PageKeep is the database-backed backend service of a content
platform: user accounts, sessions, and an append-only login audit trail,
served over a bounded-concurrency RPC interface.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
