// Uartbridge is the bridge daemon. It joins the configured wireless network,
// answers CoAP requests on UDP and relays them to a half-duplex RS-485
// serial line.
//
// Usage:
//
//	uartbridge [serve] [flags]
//
// Running without a command starts the daemon.
// See 'uartbridge --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/uartbridge/internal/config"
	"github.com/muurk/uartbridge/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "uartbridge",
	Short: "CoAP to RS-485 bridge daemon",
	Long: `Bridge a half-duplex RS-485 serial line to the network.

The daemon keeps the wireless link up, listens for CoAP requests on UDP and
relays them to the serial line:

  GET  /version   bridge version
  GET  /uart      next bytes read from the line
  POST /uart      write the payload to the line

If no command is specified, the daemon starts.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, silent); overrides UARTBRIDGE_LOG_LEVEL")

	addServeFlags(rootCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("uartbridge %s\n", version.Full())
	},
}
