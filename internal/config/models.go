package config

import (
	"strconv"
	"time"
)

// Build-time parameters. Override them with ldflags:
//
//	go build -ldflags="-X github.com/muurk/uartbridge/internal/config.WifiSSID=plant-floor \
//	                   -X github.com/muurk/uartbridge/internal/config.ServerPort=5683"
var (
	WifiSSID     = ""
	WifiPassword = ""
	DHCPHostname = "uartbridge"
	ServerPort   = "9001"
)

const (
	// DefaultPort is used when ServerPort does not parse as a port number.
	DefaultPort uint16 = 9001

	// SchemaVersion is the only config file version this build understands.
	SchemaVersion = 1
)

// Transmit-enable modes.
const (
	TxEnableRTS  = "rts"
	TxEnableGPIO = "gpio"
	TxEnableNone = "none"
)

// Radio drivers.
const (
	RadioWPA  = "wpa"
	RadioNone = "none"
)

// Config is the complete bridge configuration. It is loaded once at start-up
// and treated as read-only afterwards.
type Config struct {
	Version   int             `yaml:"version"`
	Network   NetworkConfig   `yaml:"network"`
	Serial    SerialConfig    `yaml:"serial"`
	Radio     RadioConfig     `yaml:"radio"`
	Link      LinkConfig      `yaml:"link"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	LogLevel  string          `yaml:"log_level,omitempty"`
}

// NetworkConfig holds the wireless credentials and the CoAP listen port.
type NetworkConfig struct {
	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase,omitempty"`

	// Hostname is the mDNS instance name. The DHCP client hostname belongs
	// to the OS network stack and should be set to the same value there.
	Hostname string `yaml:"hostname"`
	Port     uint16 `yaml:"port"`
}

// SerialConfig describes the serial line and its transmit-enable output.
type SerialConfig struct {
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`    // none, odd, even, mark, space
	StopBits string `yaml:"stop_bits"` // 1, 1.5, 2

	TxEnable      string `yaml:"tx_enable"` // rts, gpio, none
	GPIOChip      string `yaml:"gpio_chip,omitempty"`
	GPIOLine      int    `yaml:"gpio_line,omitempty"`
	GPIOActiveLow bool   `yaml:"gpio_active_low,omitempty"`

	// Zero means wait forever.
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`

	// PollInterval is the port read timeout used to check for cancellation.
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

// RadioConfig selects the wireless driver and its retry policy.
type RadioConfig struct {
	Driver        string        `yaml:"driver"` // wpa, none
	ControlSocket string        `yaml:"control_socket,omitempty"`
	Cooldown      time.Duration `yaml:"cooldown"`

	// Retry policy for failed starts and connects. The defaults give a fixed
	// delay equal to Cooldown.
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	MaxBackoff        time.Duration `yaml:"max_backoff,omitempty"`
	MaxRetries        int           `yaml:"max_retries,omitempty"` // 0 = forever
}

// LinkConfig controls how link state is sampled.
type LinkConfig struct {
	Interface    string        `yaml:"interface,omitempty"` // empty = any non-loopback interface
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DiscoveryConfig controls mDNS advertisement.
type DiscoveryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
	Domain  string `yaml:"domain"`
}

// ParsePort parses a port number, falling back to DefaultPort when s is not
// a valid uint16.
func ParsePort(s string) uint16 {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return DefaultPort
	}
	return uint16(port)
}

// Default returns the configuration built from the build-time parameters.
func Default() *Config {
	return &Config{
		Version: SchemaVersion,
		Network: NetworkConfig{
			SSID:       WifiSSID,
			Passphrase: WifiPassword,
			Hostname:   DHCPHostname,
			Port:       ParsePort(ServerPort),
		},
		Serial: SerialConfig{
			Device:       "/dev/ttyS0",
			BaudRate:     115200,
			DataBits:     8,
			Parity:       "none",
			StopBits:     "1",
			TxEnable:     TxEnableGPIO,
			GPIOChip:     "gpiochip0",
			GPIOLine:     18,
			PollInterval: 100 * time.Millisecond,
		},
		Radio: RadioConfig{
			Driver:            RadioWPA,
			ControlSocket:     "/var/run/wpa_supplicant/wlan0",
			Cooldown:          5 * time.Second,
			BackoffMultiplier: 1,
		},
		Link: LinkConfig{
			Interface:    "wlan0",
			PollInterval: time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
			Service: "_coap._udp",
			Domain:  "local.",
		},
	}
}

// Redacted returns a copy safe for printing, with the passphrase masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Network.Passphrase != "" {
		out.Network.Passphrase = "********"
	}
	return &out
}
