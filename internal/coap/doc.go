// Package coap is the bridge's boundary to the CoAP wire format (RFC 7252).
//
// Parsing and serialisation are delegated to go-coap's UDP coder; this
// package reduces a message to the handful of fields the bridge routes on
// and builds responses whose envelope matches the request:
//
//	CON request  -> ACK response (piggybacked), same message ID and token
//	NON request  -> NON response, same message ID and token
//	ACK or RST   -> no response
//
// The bridge does not keep message-layer state. Duplicate detection,
// separate responses and block-wise transfers are not implemented.
package coap
