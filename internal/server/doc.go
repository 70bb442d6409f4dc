// Package server implements the bridge's CoAP-over-UDP server loop.
//
// The loop has two levels. The outer level waits for the network link and
// binds a UDP socket once it is up; the inner level receives one datagram
// at a time, decodes it, hands it to the router and sends back whatever
// response the router produces.
//
// Datagrams are processed strictly in arrival order on a single goroutine.
// This is what serialises access to the serial controller: a GET /uart that
// is waiting for bytes holds up every later request.
//
// # Failure Handling
//
//   - Link down: nothing is bound; the link is re-checked every second.
//   - Bind failure: fatal. Run returns the error and the daemon exits.
//   - Malformed datagram: logged at warn level and dropped, no reply.
//   - Encode or send failure: logged, the loop continues.
//   - Socket failure after bind: the socket is closed and the loop goes
//     back to waiting for the link.
//
// # Usage Example
//
//	srv := server.New(server.Config{Port: 9001, Logger: logger},
//	    linkDriver, router.New(version.Version, logger), ctrl)
//	if err := srv.Run(ctx); err != nil {
//	    return err
//	}
//
// # Logging
//
// At debug level every datagram and response is hex dumped, truncated to
// 256 bytes.
package server
