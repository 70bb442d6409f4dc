// Package client talks to a bridge over CoAP.
//
// Every call sends one confirmable request on a fresh UDP socket and waits
// for the matching response:
//
//	c := client.New("192.168.1.40:9001")
//	v, err := c.Version(ctx)
//	err = c.Write(ctx, []byte{0x01, 0x03, 0x00, 0x00})
//	data, err := c.Read(ctx)
//
// Responses outside the 2.xx class come back as *StatusError, so callers
// can tell a 4.00 (payload too large) from a 5.00 (serial failure).
//
// Retransmission is off by default. The bridge does not deduplicate
// message IDs, so a retransmitted POST reaches the serial line twice.
package client
