// Broadctl is a command-line utility for Broadlink smart-home devices.
//
// It provides device discovery, IR/RF code learning and sending, plug and
// power-strip switching, sensor reads, AP-mode WiFi provisioning, and a
// REST API server exposing the same surface. Devices are controlled over
// the local network; no cloud account is involved.
//
// Usage:
//
//	broadctl [command] [flags]
//
// See 'broadctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/broadctl/internal/logging"
	"github.com/muurk/broadctl/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "broadctl",
	Short: "Broadlink Device Control Utility",
	Long: `A standalone utility for Broadlink smart-home devices.

Provides discovery, IR/RF learning, code sending, plug switching, sensor
reads, and WiFi provisioning over the local network. Set ` + logging.LogLevelEnvVar + `
to debug to see the raw frames.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("broadctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
