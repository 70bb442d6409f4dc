package wifi

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/muurk/uartbridge/internal/logging"
)

// DefaultCooldown is the pause after a disconnect and between failed
// attempts.
const DefaultCooldown = 5 * time.Second

// ErrRetriesExhausted is returned by Run when MaxRetries consecutive
// attempts have failed.
var ErrRetriesExhausted = errors.New("wifi: retries exhausted")

// ClientConfig holds the credentials of the network to join.
type ClientConfig struct {
	SSID       string
	Passphrase string
}

// Radio is a station-mode wireless interface.
type Radio interface {
	// Connected reports whether the radio is associated with a network.
	Connected(ctx context.Context) (bool, error)
	// Started reports whether the radio has been started.
	Started(ctx context.Context) (bool, error)
	// SetConfiguration applies client credentials. An error here means the
	// configuration itself is unusable.
	SetConfiguration(cfg ClientConfig) error
	Start(ctx context.Context) error
	Connect(ctx context.Context) error
	// WaitForDisconnect blocks until the radio loses its association.
	WaitForDisconnect(ctx context.Context) error
}

// Config configures a Supervisor.
type Config struct {
	Client ClientConfig

	// Cooldown defaults to DefaultCooldown.
	Cooldown time.Duration
	// BackoffMultiplier grows the delay between consecutive failures.
	// Values below 1 are treated as 1, a fixed delay.
	BackoffMultiplier float64
	// MaxBackoff caps the delay. Defaults to Cooldown.
	MaxBackoff time.Duration
	// MaxRetries ends Run with ErrRetriesExhausted after that many
	// consecutive failures. Zero retries forever.
	MaxRetries int

	Logger *zap.Logger
}

// Supervisor keeps a Radio connected.
type Supervisor struct {
	radio  Radio
	cfg    Config
	logger *zap.Logger
	state  atomic.Int32
}

// NewSupervisor creates a Supervisor for radio.
func NewSupervisor(radio Radio, cfg Config) *Supervisor {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 1
	}
	if cfg.MaxBackoff < cfg.Cooldown {
		cfg.MaxBackoff = cfg.Cooldown
	}
	return &Supervisor{
		radio:  radio,
		cfg:    cfg,
		logger: logging.OrNop(cfg.Logger).Named("wifi"),
	}
}

// State returns the current radio state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(state State) {
	if prev := State(s.state.Swap(int32(state))); prev != state {
		s.logger.Debug("radio state", zap.Stringer("from", prev), zap.Stringer("to", state))
	}
}

// Run supervises the radio until ctx is cancelled, which returns nil. It
// returns an error only for failures that retrying cannot fix: an unusable
// client configuration or exhausted retries.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("starting connection supervisor", zap.String("ssid", s.cfg.Client.SSID))

	r := s.newRetrier()

	for ctx.Err() == nil {
		connected, err := s.radio.Connected(ctx)
		if err != nil {
			s.logger.Warn("failed to query radio status", zap.Error(err))
			if err := r.wait(ctx); err != nil {
				return err
			}
			continue
		}

		if connected {
			s.setState(StateConnected)
			if err := s.radio.WaitForDisconnect(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("lost track of radio events", zap.Error(err))
			}
			if ctx.Err() != nil {
				break
			}
			s.setState(StateDisconnected)
			s.logger.Warn("disconnected from network", zap.Duration("cooldown", s.cfg.Cooldown))
			if !sleep(ctx, s.cfg.Cooldown) {
				break
			}
		}

		started, err := s.radio.Started(ctx)
		if err != nil {
			s.logger.Warn("failed to query radio status", zap.Error(err))
			if err := r.wait(ctx); err != nil {
				return err
			}
			continue
		}

		if !started {
			s.setState(StateStarting)
			if err := s.radio.SetConfiguration(s.cfg.Client); err != nil {
				return fmt.Errorf("configuring radio: %w", err)
			}
			s.logger.Info("starting radio")
			if err := s.radio.Start(ctx); err != nil {
				if ctx.Err() != nil {
					break
				}
				s.logger.Error("failed to start radio", zap.Error(err))
				if err := r.wait(ctx); err != nil {
					return err
				}
				continue
			}
			s.setState(StateStarted)
			s.logger.Info("radio started")
		}

		s.logger.Info("connecting", zap.String("ssid", s.cfg.Client.SSID))
		s.setState(StateConnecting)
		if err := s.radio.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			s.setState(StateDisconnected)
			s.logger.Error("failed to connect", zap.Error(err))
			if err := r.wait(ctx); err != nil {
				return err
			}
			continue
		}

		s.setState(StateConnected)
		s.logger.Info("connected to network", zap.String("ssid", s.cfg.Client.SSID))
		r.reset()
	}

	s.logger.Info("connection supervisor stopped")
	return nil
}

func (s *Supervisor) newRetrier() *retrier {
	r := &retrier{
		policy: &backoff.ExponentialBackOff{
			InitialInterval:     s.cfg.Cooldown,
			RandomizationFactor: 0,
			Multiplier:          s.cfg.BackoffMultiplier,
			MaxInterval:         s.cfg.MaxBackoff,
			MaxElapsedTime:      0,
			Clock:               backoff.SystemClock,
		},
		max: s.cfg.MaxRetries,
	}
	r.policy.Reset()
	return r
}

// retrier counts consecutive failures and spaces retries.
type retrier struct {
	policy   *backoff.ExponentialBackOff
	max      int
	failures int
}

// wait sleeps for the next retry delay. It returns ErrRetriesExhausted once
// the failure budget is spent and nil otherwise, including when ctx ends.
func (r *retrier) wait(ctx context.Context) error {
	r.failures++
	if r.max > 0 && r.failures >= r.max {
		return fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, r.failures)
	}
	delay := r.policy.NextBackOff()
	if delay == backoff.Stop {
		delay = r.policy.MaxInterval
	}
	sleep(ctx, delay)
	return nil
}

func (r *retrier) reset() {
	r.failures = 0
	r.policy.Reset()
}

// sleep waits for d and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
