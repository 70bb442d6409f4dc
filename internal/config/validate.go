package config

import (
	"errors"
	"fmt"
)

var (
	validParity   = map[string]bool{"none": true, "odd": true, "even": true, "mark": true, "space": true}
	validStopBits = map[string]bool{"1": true, "1.5": true, "2": true}
	validTxEnable = map[string]bool{TxEnableRTS: true, TxEnableGPIO: true, TxEnableNone: true}
	validRadio    = map[string]bool{RadioWPA: true, RadioNone: true}
)

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Network.Port == 0 {
		add("network.port must be between 1 and 65535")
	}

	s := c.Serial
	if s.Device == "" {
		add("serial.device is required")
	}
	if s.BaudRate <= 0 {
		add("serial.baud_rate must be positive, got %d", s.BaudRate)
	}
	if s.DataBits < 5 || s.DataBits > 8 {
		add("serial.data_bits must be 5..8, got %d", s.DataBits)
	}
	if !validParity[s.Parity] {
		add("serial.parity %q is not one of none, odd, even, mark, space", s.Parity)
	}
	if !validStopBits[s.StopBits] {
		add("serial.stop_bits %q is not one of 1, 1.5, 2", s.StopBits)
	}
	if !validTxEnable[s.TxEnable] {
		add("serial.tx_enable %q is not one of rts, gpio, none", s.TxEnable)
	}
	if s.TxEnable == TxEnableGPIO {
		if s.GPIOChip == "" {
			add("serial.gpio_chip is required when tx_enable is gpio")
		}
		if s.GPIOLine < 0 {
			add("serial.gpio_line must not be negative, got %d", s.GPIOLine)
		}
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.PollInterval < 0 {
		add("serial timeouts must not be negative")
	}

	r := c.Radio
	if !validRadio[r.Driver] {
		add("radio.driver %q is not one of wpa, none", r.Driver)
	}
	if r.Driver == RadioWPA {
		if c.Network.SSID == "" {
			add("network.ssid is required when radio.driver is wpa")
		}
		if r.ControlSocket == "" {
			add("radio.control_socket is required when radio.driver is wpa")
		}
	}
	if r.Cooldown <= 0 {
		add("radio.cooldown must be positive")
	}
	if r.BackoffMultiplier < 1 {
		add("radio.backoff_multiplier must be at least 1, got %g", r.BackoffMultiplier)
	}
	if r.MaxRetries < 0 {
		add("radio.max_retries must not be negative")
	}

	if c.Link.PollInterval <= 0 {
		add("link.poll_interval must be positive")
	}

	if c.Discovery.Enabled && c.Discovery.Service == "" {
		add("discovery.service is required when discovery is enabled")
	}

	return errors.Join(errs...)
}
