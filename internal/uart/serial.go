package uart

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// defaultPollInterval is the port read timeout used when none is configured.
const defaultPollInterval = 100 * time.Millisecond

// SerialOptions describes how to open a serial device.
type SerialOptions struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   string
	StopBits string

	// PollInterval is how long a single port read blocks before the
	// Controller re-checks its context.
	PollInterval time.Duration
}

// OpenSerial opens and configures a serial device.
func OpenSerial(opts SerialOptions) (serial.Port, error) {
	mode, err := opts.mode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(opts.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", opts.Device, err)
	}

	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	if err := port.SetReadTimeout(poll); err != nil {
		port.Close()
		return nil, fmt.Errorf("setting read timeout on %s: %w", opts.Device, err)
	}

	return port, nil
}

func (o SerialOptions) mode() (*serial.Mode, error) {
	parity, err := ParseParity(o.Parity)
	if err != nil {
		return nil, err
	}
	stopBits, err := ParseStopBits(o.StopBits)
	if err != nil {
		return nil, err
	}

	baud := o.BaudRate
	if baud == 0 {
		baud = 115200
	}
	dataBits := o.DataBits
	if dataBits == 0 {
		dataBits = 8
	}

	return &serial.Mode{
		BaudRate: baud,
		DataBits: dataBits,
		Parity:   parity,
		StopBits: stopBits,
	}, nil
}

// ParseParity maps a parity name to its go.bug.st/serial value. An empty
// name means no parity.
func ParseParity(s string) (serial.Parity, error) {
	switch s {
	case "", "none":
		return serial.NoParity, nil
	case "odd":
		return serial.OddParity, nil
	case "even":
		return serial.EvenParity, nil
	case "mark":
		return serial.MarkParity, nil
	case "space":
		return serial.SpaceParity, nil
	default:
		return serial.NoParity, fmt.Errorf("unknown parity %q", s)
	}
}

// ParseStopBits maps "1", "1.5" or "2" to its go.bug.st/serial value.
func ParseStopBits(s string) (serial.StopBits, error) {
	switch s {
	case "", "1":
		return serial.OneStopBit, nil
	case "1.5":
		return serial.OnePointFiveStopBits, nil
	case "2":
		return serial.TwoStopBits, nil
	default:
		return serial.OneStopBit, fmt.Errorf("unknown stop bits %q", s)
	}
}
