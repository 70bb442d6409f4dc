// Package logging builds the structured logger used by the bridge.
//
// The logger is constructed exactly once, in main, before any task starts.
// It is then handed to every component through its Config; nothing in the
// bridge reaches for a package-level logger. Components accept a nil logger
// and fall back to a no-op one, which keeps tests quiet by default.
//
// # Log Levels
//
//   - Debug: datagram hex dumps, link samples, radio command traffic
//   - Info: requests, link transitions, radio state changes
//   - Warn: malformed datagrams, disconnects, dropped replies
//   - Error: serial transport failures, bind failures, radio failures
//
// # Configuration
//
//	logger, err := logging.New(flagLevel, "info")
//	if err != nil {
//	    return err
//	}
//	defer logging.Sync(logger)
//
// An empty level falls back to the UARTBRIDGE_LOG_LEVEL environment variable
// and then to the given fallback. The special level "silent" disables output.
//
// # Output Format
//
// Logs are written to stdout in zap's console format:
//
//	2026-10-19T10:30:45.123+0200  INFO  server/server.go:88  request handled
//	  {"peer": "192.168.1.20:5683", "method": "GET", "path": "uart"}
package logging
