// Package ui renders terminal output for the uartbridge CLI.
//
// It uses Lipgloss for static output and Bubble Tea for the one interactive
// screen.
//
//   - Result: success, warning and failure boxes, printed through a Printer
//   - PrintBridges: one card per bridge found by an mDNS scan
//   - MonitorModel: a live view of the bytes a bridge reads off its serial
//     line, polling GET /uart one request at a time
//
// Example:
//
//	p := ui.NewPrinter(nil)
//	if err := c.Write(ctx, payload); err != nil {
//	    p.PrintError("Write failed", err, "check the bridge address")
//	    return err
//	}
//	p.PrintSuccess("Written", ui.Detail{Key: "Bytes", Value: "12"})
//
// Logging stays off unless UARTBRIDGE_LOG_LEVEL is set, so zap output does
// not interleave with rendered components.
package ui
