package uart

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge is returned by Write for payloads over MaxTransferUnit.
	// No hardware is touched when it is returned.
	ErrPayloadTooLarge = fmt.Errorf("payload exceeds %d byte transfer unit", MaxTransferUnit)

	// ErrTimeout is returned when a read or write outlives its configured timeout.
	ErrTimeout = errors.New("serial operation timed out")

	// ErrHangup is reported by Read when the port keeps returning no data
	// without waiting for its poll interval, as a tty does after hangup.
	ErrHangup = errors.New("serial port hung up")
)

// Error is a transport failure on the serial line or its transmit-enable
// output. Op names the step that failed: "read", "write", "drain",
// "assert" or "deassert".
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("uart %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
