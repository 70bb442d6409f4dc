// Package bridge assembles the daemon from its parts and runs them.
//
// A Bridge owns the serial controller, the wireless supervisor, the link
// driver, the CoAP server loop and the mDNS advertiser. Run starts each of
// them in its own goroutine under one errgroup: if any of them fails, the
// others are cancelled and Run returns the error, and the daemon exits
// non-zero for its service manager to restart.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/uartbridge/internal/config"
	"github.com/muurk/uartbridge/internal/discovery"
	"github.com/muurk/uartbridge/internal/link"
	"github.com/muurk/uartbridge/internal/logging"
	"github.com/muurk/uartbridge/internal/router"
	"github.com/muurk/uartbridge/internal/server"
	"github.com/muurk/uartbridge/internal/uart"
	"github.com/muurk/uartbridge/internal/version"
	"github.com/muurk/uartbridge/internal/wifi"
)

// Controller is the serial line owned by the bridge.
type Controller interface {
	router.Controller
	io.Closer
}

// Parts overrides the hardware-facing pieces of a Bridge.
type Parts struct {
	Controller Controller
	// Radio is ignored when the configured radio driver is "none".
	Radio     wifi.Radio
	LinkProbe link.Probe
	Listen    server.ListenFunc
}

// Bridge is a running uartbridge.
type Bridge struct {
	logger     *zap.Logger
	hostname   string
	ctrl       Controller
	radio      wifi.Radio
	supervisor *wifi.Supervisor
	link       *link.Driver
	server     *server.Server
	advertiser *discovery.Advertiser
}

// New opens the serial line and the radio described by cfg.
func New(cfg *config.Config, logger *zap.Logger) (*Bridge, error) {
	ctrl, err := uart.Open(SerialOptions(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial line: %w", err)
	}

	parts := Parts{Controller: ctrl}
	if cfg.Radio.Driver == config.RadioWPA {
		parts.Radio = wifi.NewWPARadio(cfg.Radio.ControlSocket, logger)
	}
	return Assemble(cfg, logger, parts), nil
}

// Assemble builds a Bridge from already opened parts.
func Assemble(cfg *config.Config, logger *zap.Logger, parts Parts) *Bridge {
	logger = logging.OrNop(logger)

	b := &Bridge{
		logger:   logger,
		hostname: cfg.Network.Hostname,
		ctrl:     parts.Controller,
		link: link.NewDriver(link.Config{
			Interface:    cfg.Link.Interface,
			PollInterval: cfg.Link.PollInterval,
			Probe:        parts.LinkProbe,
			Logger:       logger,
		}),
	}

	if cfg.Radio.Driver != config.RadioNone && parts.Radio != nil {
		b.radio = parts.Radio
		b.supervisor = wifi.NewSupervisor(parts.Radio, SupervisorConfig(cfg, logger))
	}

	b.server = server.New(server.Config{
		Port:             cfg.Network.Port,
		LinkPollInterval: cfg.Link.PollInterval,
		Logger:           logger,
		Listen:           parts.Listen,
	}, b.link, router.New(version.Version, logger), parts.Controller)

	if cfg.Discovery.Enabled {
		b.advertiser = discovery.NewAdvertiser(discovery.AdvertiserConfig{
			Instance:     cfg.Network.Hostname,
			Port:         int(cfg.Network.Port),
			Version:      version.Version,
			MTU:          uart.MaxTransferUnit,
			Service:      cfg.Discovery.Service,
			Domain:       cfg.Discovery.Domain,
			PollInterval: cfg.Link.PollInterval,
			Logger:       logger,
		}, b.link)
	}

	return b
}

// Run runs every task until ctx is cancelled or one of them fails.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("bridge starting", zap.String("version", version.Full()))
	checkHostname(b.logger, b.hostname, os.Hostname)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.link.Run(ctx) })
	if b.supervisor != nil {
		g.Go(func() error { return b.supervisor.Run(ctx) })
	} else {
		b.logger.Info("no radio configured, relying on a wired link")
	}
	g.Go(func() error { return b.server.Run(ctx) })
	if b.advertiser != nil {
		g.Go(func() error { return b.advertiser.Run(ctx) })
	}

	err := g.Wait()
	if err != nil {
		b.logger.Error("bridge stopped", zap.Error(err))
	} else {
		b.logger.Info("bridge stopped")
	}
	return err
}

// checkHostname warns when the configured hostname is not the system one.
// DHCP requests are sent by the OS network stack with the system hostname;
// the bridge only uses the configured name as its mDNS instance.
func checkHostname(logger *zap.Logger, configured string, system func() (string, error)) {
	name, err := system()
	if err != nil {
		logger.Warn("failed to read system hostname", zap.Error(err))
		return
	}
	if short, _, _ := strings.Cut(name, "."); !strings.EqualFold(short, configured) {
		logger.Warn("configured hostname differs from the system hostname; DHCP uses the system hostname, the configured one is only advertised over mDNS",
			zap.String("configured", configured),
			zap.String("system", name))
	}
}

// Addr returns the CoAP server's bound address, or nil while unbound.
func (b *Bridge) Addr() net.Addr {
	return b.server.Addr()
}

// Close releases the serial line, its transmit-enable and the radio.
func (b *Bridge) Close() error {
	var errs []error
	if b.ctrl != nil {
		errs = append(errs, b.ctrl.Close())
	}
	if closer, ok := b.radio.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

// SerialOptions maps the serial section of cfg onto uart.OpenOptions.
func SerialOptions(cfg *config.Config, logger *zap.Logger) uart.OpenOptions {
	s := cfg.Serial
	return uart.OpenOptions{
		Serial: uart.SerialOptions{
			Device:       s.Device,
			BaudRate:     s.BaudRate,
			DataBits:     s.DataBits,
			Parity:       s.Parity,
			StopBits:     s.StopBits,
			PollInterval: s.PollInterval,
		},
		TxEnable:      s.TxEnable,
		GPIOChip:      s.GPIOChip,
		GPIOLine:      s.GPIOLine,
		GPIOActiveLow: s.GPIOActiveLow,
		Options: uart.Options{
			ReadTimeout:  s.ReadTimeout,
			WriteTimeout: s.WriteTimeout,
			Logger:       logger,
		},
	}
}

// SupervisorConfig maps the network and radio sections of cfg onto
// wifi.Config.
func SupervisorConfig(cfg *config.Config, logger *zap.Logger) wifi.Config {
	return wifi.Config{
		Client: wifi.ClientConfig{
			SSID:       cfg.Network.SSID,
			Passphrase: cfg.Network.Passphrase,
		},
		Cooldown:          cfg.Radio.Cooldown,
		BackoffMultiplier: cfg.Radio.BackoffMultiplier,
		MaxBackoff:        cfg.Radio.MaxBackoff,
		MaxRetries:        cfg.Radio.MaxRetries,
		Logger:            logger,
	}
}
