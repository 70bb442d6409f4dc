// Package discovery announces and finds bridges with multicast DNS.
//
// A running bridge advertises itself as a "_coap._udp" service in the
// "local." domain, using its DHCP hostname as the instance name. Its TXT
// records identify it among other CoAP services:
//
//	service=uartbridge
//	version=1.2.0
//	mtu=128
//
// The CLI uses Scanner to list bridges, or to pick one when no address was
// given on the command line.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	bridges, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, b := range bridges {
//	    fmt.Println(b)
//	}
//
// # Network Requirements
//
//   - UDP port 5353 must be reachable (mDNS)
//   - Bridge and client must be on the same multicast domain
package discovery
