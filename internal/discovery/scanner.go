package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type bridges advertise
	ServiceType = "_coap._udp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// ServiceName is the TXT service value that marks a uartbridge among
	// other CoAP services
	ServiceName = "uartbridge"

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is assumed when an entry carries no port
	DefaultPort = 9001
)

// TXT record keys.
const (
	TxtService = "service"
	TxtVersion = "version"
	TxtMTU     = "mtu"
)

// Scanner handles mDNS bridge discovery
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers all bridges on the local network until the timeout
// elapses or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context) ([]*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var bridges []*Bridge
	err := s.browse(ctx, func(b *Bridge) bool {
		bridges = append(bridges, b)
		return true
	})
	if err != nil {
		return nil, err
	}
	return bridges, nil
}

// Find returns the first bridge whose instance name matches instance, or
// the first bridge at all when instance is empty.
func (s *Scanner) Find(ctx context.Context, instance string) (*Bridge, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var found *Bridge
	err := s.browse(ctx, func(b *Bridge) bool {
		if instance != "" && b.Instance != instance {
			return true
		}
		found = b
		cancel()
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		if instance == "" {
			return nil, fmt.Errorf("no bridge found within %v", s.Timeout)
		}
		return nil, fmt.Errorf("bridge %s not found within %v", instance, s.Timeout)
	}
	return found, nil
}

// browse calls visit for every bridge seen until ctx ends or visit returns
// false. It returns once the resolver has closed its entry channel.
func (s *Scanner) browse(ctx context.Context, visit func(*Bridge) bool) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	go func() {
		defer close(done)
		keep := true
		for entry := range entries {
			if !keep {
				continue
			}
			if b := parseServiceEntry(entry); b != nil {
				keep = visit(b)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Bridge.
// Returns nil if the entry is not a uartbridge.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Bridge {
	metadata := parseText(entry.Text)
	if metadata[TxtService] != ServiceName {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Bridge{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// parseText splits "key=value" TXT records. A key without '=' maps to "".
func parseText(text []string) map[string]string {
	metadata := make(map[string]string, len(text))
	for _, txt := range text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}
