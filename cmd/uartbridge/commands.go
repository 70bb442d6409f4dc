package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/muurk/uartbridge/internal/bridge"
	"github.com/muurk/uartbridge/internal/config"
	"github.com/muurk/uartbridge/internal/logging"
)

// Serve flags
var (
	port   uint16
	device string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge daemon",
	Long: `Run the bridge until interrupted.

Configuration comes from the build-time defaults, then the --config file,
then the flags below. A failure to open the serial line, configure the radio
or bind the socket stops the daemon with a non-zero exit status so the
service manager can restart it.`,
	Example: `  # Run with /etc/uartbridge/config.yaml
  uartbridge serve

  # Different port and adapter, verbose logging
  uartbridge serve --port 5683 --device /dev/ttyUSB0 --log-level debug`,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().Uint16Var(&port, "port", config.DefaultPort, "UDP port to listen on")
	cmd.Flags().StringVar(&device, "device", "", "Serial device (e.g. /dev/ttyUSB0)")
}

// loadConfig reads the config file and applies flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		cfg.Network.Port = port
	}
	if f := cmd.Flags().Lookup("device"); f != nil && f.Changed {
		cfg.Serial.Device = device
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fallback := cfg.LogLevel
	if fallback == "" {
		fallback = "info"
	}
	logger, err := logging.New(logLevel, fallback)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := bridge.New(cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.Run(ctx)
}

// Config command and flags
var (
	initSSID     string
	initHostname string
	initTxEnable string
	initWired    bool
	initForce    bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or inspect the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a new configuration file",
	Long: `Write a configuration file with the build-time defaults and the given
network settings. The passphrase is prompted for without echo and the file
is written with 0600 permissions.`,
	Example: `  # Interactive
  sudo uartbridge config init

  # Wired bridge, RTS drives the transceiver
  uartbridge config init --config ./bridge.yaml --wired --device /dev/ttyUSB0 --tx-enable rts`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().StringVar(&initSSID, "ssid", "", "Wireless network name (prompted when empty)")
	configInitCmd.Flags().StringVar(&initHostname, "hostname", "", "mDNS instance name, keep equal to the system hostname")
	configInitCmd.Flags().StringVar(&initTxEnable, "tx-enable", "", "Transmit-enable output (rts, gpio, none)")
	configInitCmd.Flags().BoolVar(&initWired, "wired", false, "Do not manage a wireless radio")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
	addServeFlags(configInitCmd)
	addServeFlags(configShowCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if initHostname != "" {
		cfg.Network.Hostname = initHostname
	}
	if initTxEnable != "" {
		cfg.Serial.TxEnable = initTxEnable
	}

	if initWired {
		cfg.Radio.Driver = config.RadioNone
		cfg.Link.Interface = ""
	} else {
		in := bufio.NewReader(os.Stdin)
		if initSSID == "" {
			initSSID, err = prompt(in, "Wireless network (SSID): ")
			if err != nil {
				return err
			}
		}
		cfg.Network.SSID = initSSID

		pass, err := promptSecret(in, "Passphrase (empty for an open network): ")
		if err != nil {
			return err
		}
		cfg.Network.Passphrase = pass
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Print(string(data))

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "\nWarning: configuration is not valid:\n%v\n", err)
	}
	return nil
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(in *bufio.Reader, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(in, label)
	}

	fmt.Print(label)
	secret, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(secret), nil
}
