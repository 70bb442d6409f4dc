// Package wifi keeps the bridge's wireless uplink connected.
//
// Supervisor is a retry loop around a Radio:
//
//  1. While connected, wait for the disconnect event, then pause for the
//     cool-down (5 s by default).
//  2. If the radio is not started, apply the client configuration and
//     start it. An unusable configuration ends Run with an error; a failed
//     start is retried after the retry delay.
//  3. Connect. A failure is logged and retried after the retry delay.
//
// The retry delay comes from an exponential back-off whose defaults give a
// fixed delay equal to the cool-down. Run only returns an error for
// conditions that retrying cannot fix, and returns nil when its context is
// cancelled.
//
// WPARadio implements Radio on top of a running wpa_supplicant, using its
// datagram control socket:
//
//	radio := wifi.NewWPARadio("/var/run/wpa_supplicant/wlan0", logger)
//	defer radio.Close()
//
//	sup := wifi.NewSupervisor(radio, wifi.Config{
//	    Client: wifi.ClientConfig{SSID: "plant-floor", Passphrase: secret},
//	    Logger: logger,
//	})
//	err := sup.Run(ctx)
package wifi
