package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Bridge is a uartbridge found on the local network.
type Bridge struct {
	// Instance is the mDNS instance name, the bridge's configured hostname
	Instance string

	// Hostname is the mDNS host (e.g., "uartbridge.local.")
	Hostname string

	// IP is the address to send requests to, IPv4 when available
	IP string

	// Port is the CoAP port
	Port int

	// Metadata holds the TXT records: service, version, mtu
	Metadata map[string]string

	// DiscoveredAt is when the bridge answered
	DiscoveredAt time.Time
}

// String returns a human-readable description of the bridge
func (b *Bridge) String() string {
	return fmt.Sprintf("%s (%s) at %s", b.Instance, b.Version(), b.Addr())
}

// Addr returns the host:port to send CoAP requests to
func (b *Bridge) Addr() string {
	return net.JoinHostPort(b.IP, strconv.Itoa(b.Port))
}

// Version returns the advertised bridge version, or "unknown"
func (b *Bridge) Version() string {
	if v := b.GetMetadata(TxtVersion); v != "" {
		return v
	}
	return "unknown"
}

// MTU returns the advertised transfer unit, or 0 if absent or invalid
func (b *Bridge) MTU() int {
	mtu, err := strconv.Atoi(b.GetMetadata(TxtMTU))
	if err != nil {
		return 0
	}
	return mtu
}

// GetMetadata retrieves a TXT value by key, or returns empty string if not found
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}
