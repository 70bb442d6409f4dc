package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/uartbridge/internal/client"
	"github.com/muurk/uartbridge/internal/discovery"
	"github.com/muurk/uartbridge/internal/logging"
	"github.com/muurk/uartbridge/internal/ui"
	"github.com/muurk/uartbridge/internal/version"
)

// Common flags
var (
	bridgeAddr  string
	bridgeName  string
	timeout     time.Duration
	retries     int
	scanTimeout time.Duration
	logLevel    string
)

// Command flags
var (
	writeHex    bool
	pollTimeout time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&bridgeAddr, "bridge", "", "Bridge address host:port (skips discovery)")
	rootCmd.PersistentFlags().StringVar(&bridgeName, "name", "", "mDNS instance name of the bridge to use")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", client.DefaultTimeout, "Time to wait for each response")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", client.DefaultMaxRetries, "Retransmissions before giving up")
	rootCmd.PersistentFlags().DurationVar(&scanTimeout, "scan-timeout", discovery.DefaultScanTimeout, "How long to browse for bridges")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	writeCmd.Flags().BoolVar(&writeHex, "hex", false, "Treat the argument as hex (e.g. 01a0ff)")
	monitorCmd.Flags().DurationVar(&pollTimeout, "poll", 30*time.Second, "How long each read waits for data")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(monitorCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find bridges on the local network",
	Example: `  uartbridge-cli scan
  uartbridge-cli scan --scan-timeout 15s`,
	RunE: runScan,
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read the next bytes from the bridge's serial line",
	Long: `Read the next bytes from the bridge's serial line.

The bridge answers once at least one byte has arrived, so raise --timeout
for quiet lines.`,
	RunE: runRead,
}

var writeCmd = &cobra.Command{
	Use:   "write <data>",
	Short: "Write bytes to the bridge's serial line",
	Example: `  uartbridge-cli write 'PING\r\n'
  uartbridge-cli write --hex 0103000a0001a5c8 --bridge 192.168.1.40:9001`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the bridge's serial line interactively",
	RunE:  runMonitor,
}

// newLogger is silent unless asked otherwise.
func newLogger() (*zap.Logger, error) {
	return logging.New(logLevel, logging.Silent)
}

// resolveBridge returns --bridge, or the address of a bridge found with mDNS.
func resolveBridge(ctx context.Context) (string, error) {
	if bridgeAddr != "" {
		return bridgeAddr, nil
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	b, err := scanner.Find(ctx, bridgeName)
	if err != nil {
		return "", fmt.Errorf("no bridge given and discovery failed: %w", err)
	}
	return b.Addr(), nil
}

func newClient(ctx context.Context) (*client.Client, error) {
	addr, err := resolveBridge(ctx)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	c := client.New(addr)
	c.Timeout = timeout
	c.MaxRetries = retries
	c.Logger = logger
	return c, nil
}

// troubleshoot returns hints for a failed request.
func troubleshoot(err error) []string {
	var status *client.StatusError
	switch {
	case errors.Is(err, client.ErrTimeout):
		return []string{
			"check that the bridge is powered and joined to the network",
			"for reads, nothing may have arrived on the serial line yet",
			"raise --timeout or --retries",
		}
	case errors.As(err, &status):
		return []string{"the bridge answered " + status.Code.String()}
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.Println(ui.SubtitleStyle.Render(fmt.Sprintf("Browsing %s for %s...", discovery.ServiceType, scanTimeout)))

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	bridges, err := scanner.Scan(cmd.Context())
	if err != nil {
		p.PrintError("Scan failed", err)
		return err
	}
	p.PrintBridges(bridges)
	return nil
}

func runVersion(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	details := []ui.Detail{{Key: "CLI", Value: version.Full()}}

	if bridgeAddr == "" && bridgeName == "" {
		p.PrintSuccess("uartbridge-cli", details...)
		return nil
	}

	c, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	v, err := c.Version(cmd.Context())
	if err != nil {
		p.PrintError("Version request failed", err, troubleshoot(err)...)
		return err
	}
	details = append(details, ui.Detail{Key: "Bridge", Value: v}, ui.Detail{Key: "Address", Value: c.Addr})
	p.PrintSuccess("uartbridge-cli", details...)
	return nil
}

func runRead(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	data, err := c.Read(cmd.Context())
	if err != nil {
		p.PrintError("Read failed", err, troubleshoot(err)...)
		return err
	}
	p.PrintSuccess("Read", describe(c.Addr, data)...)
	return nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	payload, err := parsePayload(args[0], writeHex)
	if err != nil {
		return err
	}

	c, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	if err := c.Write(cmd.Context(), payload); err != nil {
		p.PrintError("Write failed", err, troubleshoot(err)...)
		return err
	}
	p.PrintSuccess("Written", describe(c.Addr, payload)...)
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	// Each poll gets its own deadline; a single attempt per poll.
	c.Timeout = pollTimeout
	c.MaxRetries = 0

	model := ui.NewMonitorModel(cmd.Context(), pollReader{c}, ui.MonitorConfig{
		Addr:        c.Addr,
		PollTimeout: pollTimeout + time.Second,
	})
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// pollReader treats a poll that saw no data as an empty read.
type pollReader struct {
	c *client.Client
}

func (r pollReader) Read(ctx context.Context) ([]byte, error) {
	data, err := r.c.Read(ctx)
	if errors.Is(err, client.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return nil, nil
	}
	return data, err
}

// parsePayload decodes a hex string, or a text string with Go escapes.
func parsePayload(arg string, isHex bool) ([]byte, error) {
	if isHex {
		clean := strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(arg)
		data, err := hex.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("invalid hex payload: %w", err)
		}
		return data, nil
	}

	text, err := strconv.Unquote(`"` + strings.ReplaceAll(arg, `"`, `\"`) + `"`)
	if err != nil {
		return nil, fmt.Errorf("invalid escape in payload: %w", err)
	}
	return []byte(text), nil
}

func describe(addr string, data []byte) []ui.Detail {
	return []ui.Detail{
		{Key: "Bridge", Value: addr},
		{Key: "Bytes", Value: strconv.Itoa(len(data))},
		{Key: "Hex", Value: logging.HexDump(data)},
		{Key: "ASCII", Value: logging.ASCIIDump(data)},
	}
}
