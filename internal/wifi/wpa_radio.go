package wifi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/uartbridge/internal/logging"
)

const defaultConnectTimeout = 30 * time.Second

// wpa_supplicant events the radio reacts to.
const (
	eventConnected       = "CTRL-EVENT-CONNECTED"
	eventDisconnected    = "CTRL-EVENT-DISCONNECTED"
	eventNetworkNotFound = "CTRL-EVENT-NETWORK-NOT-FOUND"
	eventTempDisabled    = "CTRL-EVENT-SSID-TEMP-DISABLED"
)

// WPARadio drives wpa_supplicant through its control socket, typically
// /var/run/wpa_supplicant/wlan0.
//
// Starting the radio means reaching wpa_supplicant, registering for events
// and adding the configured network. Connecting selects that network and
// waits for the association.
type WPARadio struct {
	path           string
	connectTimeout time.Duration
	logger         *zap.Logger

	mu      sync.Mutex
	client  ClientConfig
	ctrl    *ctrlConn
	events  *ctrlConn
	network string
}

// NewWPARadio creates a radio for the control socket at path.
func NewWPARadio(path string, logger *zap.Logger) *WPARadio {
	return &WPARadio{
		path:           path,
		connectTimeout: defaultConnectTimeout,
		logger:         logging.OrNop(logger).Named("wpa"),
	}
}

// SetConfiguration validates and stores the client credentials. They are
// applied to wpa_supplicant by Start.
func (r *WPARadio) SetConfiguration(cfg ClientConfig) error {
	if cfg.SSID == "" {
		return errors.New("SSID is required")
	}
	if len(cfg.SSID) > 32 {
		return fmt.Errorf("SSID is %d bytes, maximum is 32", len(cfg.SSID))
	}
	if n := len(cfg.Passphrase); n != 0 && (n < 8 || n > 63) {
		return fmt.Errorf("passphrase must be 8 to 63 characters, got %d", n)
	}
	if strings.ContainsAny(cfg.SSID+cfg.Passphrase, "\"\n") {
		return errors.New("SSID and passphrase must not contain quotes or newlines")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = cfg
	return nil
}

// Started reports whether Start has completed on a live connection.
func (r *WPARadio) Started(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctrl != nil && r.network != "", nil
}

// Start connects to wpa_supplicant and adds the configured network. A
// network left over from an earlier Start is removed first.
func (r *WPARadio) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.network != "" {
		r.closeLocked()
	}
	if r.ctrl == nil {
		if err := r.attachLocked(ctx); err != nil {
			return err
		}
	}

	network, err := addNetwork(ctx, r.ctrl, r.client)
	if network != "" {
		r.network = network
	}
	if err != nil {
		r.closeLocked()
		return err
	}
	r.logger.Debug("network added", zap.String("id", network))
	return nil
}

// attachLocked opens the command socket and the event socket.
func (r *WPARadio) attachLocked(ctx context.Context) error {
	ctrl, err := dialCtrl(r.path)
	if err != nil {
		return err
	}
	if reply, err := ctrl.request(ctx, "PING"); err != nil || reply != "PONG" {
		ctrl.Close()
		if err == nil {
			err = &CommandError{Command: "PING", Reply: reply}
		}
		return err
	}

	events, err := dialCtrl(r.path)
	if err != nil {
		ctrl.Close()
		return err
	}
	if err := events.expectOK(ctx, "ATTACH"); err != nil {
		ctrl.Close()
		events.Close()
		return err
	}

	r.ctrl, r.events = ctrl, events
	return nil
}

// addNetwork returns the new network id whenever ADD_NETWORK succeeded,
// even if configuring it failed afterwards.
func addNetwork(ctx context.Context, ctrl *ctrlConn, cfg ClientConfig) (string, error) {
	reply, err := ctrl.request(ctx, "ADD_NETWORK")
	if err != nil {
		return "", err
	}
	if _, err := strconv.Atoi(reply); err != nil {
		return "", &CommandError{Command: "ADD_NETWORK", Reply: reply}
	}
	id := reply

	cmds := []string{fmt.Sprintf("SET_NETWORK %s ssid \"%s\"", id, cfg.SSID)}
	if cfg.Passphrase != "" {
		cmds = append(cmds, fmt.Sprintf("SET_NETWORK %s psk \"%s\"", id, cfg.Passphrase))
	} else {
		cmds = append(cmds, fmt.Sprintf("SET_NETWORK %s key_mgmt NONE", id))
	}
	cmds = append(cmds, "ENABLE_NETWORK "+id)

	for _, cmd := range cmds {
		if err := ctrl.expectOK(ctx, cmd); err != nil {
			return id, err
		}
	}
	return id, nil
}

// Connected reports whether wpa_supplicant has completed association,
// whichever network it is associated with. It attaches to wpa_supplicant
// if needed so an existing association can be watched without touching it.
func (r *WPARadio) Connected(ctx context.Context) (bool, error) {
	r.mu.Lock()
	if r.ctrl == nil {
		if err := r.attachLocked(ctx); err != nil {
			r.mu.Unlock()
			return false, err
		}
	}
	ctrl := r.ctrl
	r.mu.Unlock()

	reply, err := ctrl.request(ctx, "STATUS")
	if err != nil {
		r.reset()
		return false, err
	}
	return parseStatus(reply)["wpa_state"] == "COMPLETED", nil
}

// Connect selects the configured network and waits for association.
func (r *WPARadio) Connect(ctx context.Context) error {
	r.mu.Lock()
	ctrl, events, network := r.ctrl, r.events, r.network
	r.mu.Unlock()
	if ctrl == nil {
		return errors.New("radio not started")
	}

	if err := ctrl.expectOK(ctx, "SELECT_NETWORK "+network); err != nil {
		return err
	}
	if err := ctrl.expectOK(ctx, "RECONNECT"); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.connectTimeout)
	defer cancel()
	for {
		ev, err := events.event(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("no association within %v", r.connectTimeout)
			}
			return err
		}
		r.logger.Debug("event", zap.String("event", ev))
		switch {
		case strings.HasPrefix(ev, eventConnected):
			return nil
		case strings.HasPrefix(ev, eventNetworkNotFound):
			return errors.New("network not found")
		case strings.HasPrefix(ev, eventTempDisabled):
			return fmt.Errorf("network temporarily disabled: %s", ev)
		}
	}
}

// WaitForDisconnect blocks until wpa_supplicant reports a disconnect.
func (r *WPARadio) WaitForDisconnect(ctx context.Context) error {
	r.mu.Lock()
	events := r.events
	r.mu.Unlock()
	if events == nil {
		return nil
	}

	for {
		ev, err := events.event(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.reset()
			}
			return err
		}
		r.logger.Debug("event", zap.String("event", ev))
		if strings.HasPrefix(ev, eventDisconnected) {
			return nil
		}
	}
}

// Close detaches from wpa_supplicant and releases both sockets.
func (r *WPARadio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

// reset drops the connection so the next Started call reports false and
// the supervisor starts over.
func (r *WPARadio) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *WPARadio) closeLocked() error {
	var errs []error
	if r.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = r.events.expectOK(ctx, "DETACH")
		cancel()
		errs = append(errs, r.events.Close())
	}
	if r.ctrl != nil {
		if r.network != "" {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = r.ctrl.expectOK(ctx, "REMOVE_NETWORK "+r.network)
			cancel()
		}
		errs = append(errs, r.ctrl.Close())
	}
	r.ctrl, r.events, r.network = nil, nil, ""
	return errors.Join(errs...)
}
