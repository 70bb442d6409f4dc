// Package config provides the bridge configuration.
//
// Configuration is layered. The lowest layer is a set of build-time
// parameters (WifiSSID, WifiPassword, DHCPHostname, ServerPort) injected with
// ldflags, so a bridge can be flashed with its credentials baked in. A YAML
// file, by default /etc/uartbridge/config.yaml, is merged over them, and
// command-line flags win over both.
//
// The resulting Config is built once in main and passed to the components
// that need it. Nothing in the bridge modifies it after start-up.
//
// # Hostname
//
// Network.Hostname names the bridge on mDNS. DHCP leases are requested by the
// operating system's DHCP client, which sends the system hostname, so the two
// should be kept equal; the daemon logs a warning at start-up when they are
// not.
//
// # Security
//
// The file may contain the wireless passphrase, so Save always writes it with
// 0600 permissions. Use Redacted before printing a Config.
//
// # Usage Example
//
//	cfg, err := config.Load(config.DefaultPath)
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return fmt.Errorf("invalid configuration: %w", err)
//	}
package config
