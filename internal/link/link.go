// Package link tracks whether the host's network link is usable.
//
// The server loop must not bind its socket until the link is up. Driver
// samples the network interfaces once a second and publishes the result
// through IsLinkUp, which is safe to call from any goroutine.
package link

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/uartbridge/internal/logging"
)

// DefaultPollInterval is how often the link is sampled.
const DefaultPollInterval = time.Second

// Probe reports whether the link is usable.
type Probe func() (bool, error)

// Config configures a Driver.
type Config struct {
	// Interface to watch. Empty means any non-loopback interface.
	Interface    string
	PollInterval time.Duration
	// Probe replaces interface sampling; used by tests.
	Probe  Probe
	Logger *zap.Logger
}

// Driver publishes link state.
type Driver struct {
	probe    Probe
	interval time.Duration
	iface    string
	logger   *zap.Logger
	up       atomic.Bool
}

// NewDriver creates a Driver. The link starts out down.
func NewDriver(cfg Config) *Driver {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	probe := cfg.Probe
	if probe == nil {
		probe = InterfaceProbe(cfg.Interface)
	}
	return &Driver{
		probe:    probe,
		interval: cfg.PollInterval,
		iface:    cfg.Interface,
		logger:   logging.OrNop(cfg.Logger).Named("link"),
	}
}

// IsLinkUp reports the most recent sample.
func (d *Driver) IsLinkUp() bool {
	return d.up.Load()
}

// Run samples the link until ctx is cancelled. It always returns nil.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		d.sample()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (d *Driver) sample() {
	up, err := d.probe()
	if err != nil {
		d.logger.Debug("link probe failed", zap.Error(err))
		up = false
	}
	if d.up.Swap(up) == up {
		return
	}
	if up {
		d.logger.Info("network link up", zap.String("interface", d.iface))
	} else {
		d.logger.Warn("network link down", zap.String("interface", d.iface))
	}
}

// InterfaceProbe returns a Probe that reports the link up when the named
// interface (or, if name is empty, any non-loopback interface) is up and
// has a global unicast address.
func InterfaceProbe(name string) Probe {
	return func() (bool, error) {
		if name != "" {
			iface, err := net.InterfaceByName(name)
			if err != nil {
				return false, fmt.Errorf("looking up %s: %w", name, err)
			}
			return usable(iface)
		}

		ifaces, err := net.Interfaces()
		if err != nil {
			return false, fmt.Errorf("listing interfaces: %w", err)
		}
		for i := range ifaces {
			if ifaces[i].Flags&net.FlagLoopback != 0 {
				continue
			}
			if ok, _ := usable(&ifaces[i]); ok {
				return true, nil
			}
		}
		return false, nil
	}
}

func usable(iface *net.Interface) (bool, error) {
	if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagRunning == 0 {
		return false, nil
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return false, fmt.Errorf("addresses of %s: %w", iface.Name, err)
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.IsGlobalUnicast() {
			return true, nil
		}
	}
	return false, nil
}
