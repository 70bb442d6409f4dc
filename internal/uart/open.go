package uart

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Transmit-enable kinds accepted by Open.
const (
	TxEnableRTS  = "rts"
	TxEnableGPIO = "gpio"
	TxEnableNone = "none"
)

// OpenOptions combines the serial, transmit-enable and timeout settings.
type OpenOptions struct {
	Serial SerialOptions

	TxEnable      string
	GPIOChip      string
	GPIOLine      int
	GPIOActiveLow bool

	Options
}

// Open opens the serial device and its transmit-enable line and returns a
// Controller owning both. Close the Controller to release them.
func Open(opts OpenOptions) (*Controller, error) {
	port, err := OpenSerial(opts.Serial)
	if err != nil {
		return nil, err
	}

	txEnable, err := openTxEnable(port, opts)
	if err != nil {
		port.Close()
		return nil, err
	}

	c := New(port, txEnable, opts.Options)
	c.closers = append(c.closers, port)
	if closer, ok := txEnable.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
	return c, nil
}

func openTxEnable(port serial.Port, opts OpenOptions) (TxEnable, error) {
	switch opts.TxEnable {
	case TxEnableRTS:
		rts := RTSLine{Port: port}
		if err := rts.Deassert(); err != nil {
			return nil, fmt.Errorf("releasing RTS on %s: %w", opts.Serial.Device, err)
		}
		return rts, nil
	case TxEnableGPIO:
		return OpenGPIO(opts.GPIOChip, opts.GPIOLine, opts.GPIOActiveLow)
	case TxEnableNone, "":
		return NoTxEnable{}, nil
	default:
		return nil, fmt.Errorf("unknown transmit-enable kind %q", opts.TxEnable)
	}
}
