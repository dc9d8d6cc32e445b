package main

import (
	"github.com/spf13/cobra"
)

// Version information set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "par-server",
	Short:         "OAuth 2.0 pushed authorization request server",
	Long:          `Accepts pushed authorization requests (RFC 9126) and redeems the one-time request_uri references it issues.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file (default: $CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd, purgeCmd, hashSecretCmd)
}
