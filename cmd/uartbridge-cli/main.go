// Uartbridge-cli talks to uartbridge daemons on the local network.
//
// It finds bridges with mDNS, reads and writes their serial lines over CoAP,
// and can stream a bridge's serial traffic in an interactive monitor.
//
// Usage:
//
//	uartbridge-cli [command] [flags]
//
// See 'uartbridge-cli --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/uartbridge/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "uartbridge-cli",
	Short: "uartbridge client",
	Long: `Discover uartbridge daemons and use their serial lines over CoAP.

Commands that talk to a bridge use --bridge when given. Otherwise the first
bridge found with mDNS is used, or the one named by --name.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version, and the bridge version when one is reachable",
	RunE:  runVersion,
}
