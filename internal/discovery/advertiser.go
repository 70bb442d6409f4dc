package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/uartbridge/internal/logging"
)

// LinkState reports whether the network link is usable.
type LinkState interface {
	IsLinkUp() bool
}

// AdvertiserConfig describes what the bridge announces.
type AdvertiserConfig struct {
	Instance string // mDNS instance name, normally the DHCP hostname
	Port     int
	Version  string
	MTU      int

	// Service and Domain default to ServiceType and ServiceDomain.
	Service string
	Domain  string

	// PollInterval is how often a down link is re-checked.
	PollInterval time.Duration
	Logger       *zap.Logger
}

type registration interface {
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (registration, error)

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface) (registration, error) {
	return zeroconf.Register(instance, service, domain, port, text, ifaces)
}

// Advertiser announces the bridge over mDNS while it runs.
type Advertiser struct {
	cfg      AdvertiserConfig
	link     LinkState
	logger   *zap.Logger
	register registerFunc
}

// NewAdvertiser creates an Advertiser that registers once link is up.
func NewAdvertiser(cfg AdvertiserConfig, link LinkState) *Advertiser {
	if cfg.Service == "" {
		cfg.Service = ServiceType
	}
	if cfg.Domain == "" {
		cfg.Domain = ServiceDomain
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Advertiser{
		cfg:      cfg,
		link:     link,
		logger:   logging.OrNop(cfg.Logger).Named("mdns"),
		register: zeroconfRegister,
	}
}

// Text returns the TXT records the bridge publishes.
func (a *Advertiser) Text() []string {
	return []string{
		TxtService + "=" + ServiceName,
		TxtVersion + "=" + a.cfg.Version,
		TxtMTU + "=" + strconv.Itoa(a.cfg.MTU),
	}
}

// Run registers the service once the link is up and withdraws it when ctx
// is cancelled. Discovery is a convenience, so a failed registration is
// logged and Run keeps the bridge running by returning nil.
func (a *Advertiser) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()
	for !a.link.IsLinkUp() {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}

	server, err := a.register(a.cfg.Instance, a.cfg.Service, a.cfg.Domain, a.cfg.Port, a.Text(), nil)
	if err != nil {
		a.logger.Error("mDNS registration failed", zap.Error(fmt.Errorf("registering %s: %w", a.cfg.Instance, err)))
		return nil
	}
	a.logger.Info("advertising",
		zap.String("instance", a.cfg.Instance),
		zap.String("service", a.cfg.Service),
		zap.Int("port", a.cfg.Port))

	<-ctx.Done()
	server.Shutdown()
	a.logger.Debug("advertisement withdrawn")
	return nil
}
