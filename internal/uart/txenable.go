package uart

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// NoTxEnable is used with auto-direction transceivers.
type NoTxEnable struct{}

func (NoTxEnable) Assert() error   { return nil }
func (NoTxEnable) Deassert() error { return nil }

// RTSSetter is implemented by serial ports that expose the RTS line.
type RTSSetter interface {
	SetRTS(rts bool) error
}

// RTSLine uses the port's RTS output as the transmit-enable, the usual
// wiring for USB RS-485 adapters.
type RTSLine struct {
	Port RTSSetter
}

func (l RTSLine) Assert() error   { return l.Port.SetRTS(true) }
func (l RTSLine) Deassert() error { return l.Port.SetRTS(false) }

// GPIOLine drives the transmit-enable from a GPIO character device line.
type GPIOLine struct {
	line *gpiocdev.Line
}

// OpenGPIO requests offset on chip (for example "gpiochip0") as an output,
// initially inactive.
func OpenGPIO(chip string, offset int, activeLow bool) (*GPIOLine, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer("uartbridge-txen"),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("requesting %s line %d: %w", chip, offset, err)
	}
	return &GPIOLine{line: line}, nil
}

func (g *GPIOLine) Assert() error   { return g.line.SetValue(1) }
func (g *GPIOLine) Deassert() error { return g.line.SetValue(0) }

// Close drives the line inactive and releases it.
func (g *GPIOLine) Close() error {
	_ = g.line.SetValue(0)
	return g.line.Close()
}
