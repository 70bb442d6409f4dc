// Package uart drives a half-duplex serial line such as an RS-485 bus.
//
// A half-duplex transceiver shares one pair of wires between both
// directions. Before sending, the host raises the transceiver's
// driver-enable input; after the last stop bit has left the shift register
// it must lower it again, or every other node on the bus is locked out.
//
// Controller encapsulates that discipline:
//
//	ctrl, err := uart.Open(uart.OpenOptions{
//	    Serial:   uart.SerialOptions{Device: "/dev/ttyS0", BaudRate: 115200},
//	    TxEnable: uart.TxEnableGPIO,
//	    GPIOChip: "gpiochip0",
//	    GPIOLine: 18,
//	})
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Close()
//
//	n, err := ctrl.Write(ctx, frame)
//
// Write asserts the enable, writes every byte, waits for the port to drain,
// and deasserts the enable on every return path, including errors and
// timeouts. Read never touches the enable line.
//
// # Transmit Enable
//
// Three drivers are provided:
//   - gpio: a line on a Linux GPIO character device (go-gpiocdev)
//   - rts: the serial port's own RTS output, common on USB adapters
//   - none: transceivers that switch direction automatically
//
// # Limits
//
// Transfers are bounded by MaxTransferUnit (128 bytes). Oversized writes
// fail with ErrPayloadTooLarge before any hardware is touched.
package uart
