package uart

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/uartbridge/internal/logging"
)

// MaxTransferUnit bounds both the read buffer and accepted write payloads.
const MaxTransferUnit = 128

const (
	// An empty read faster than this did not wait for the poll timeout.
	immediateReadThreshold = 500 * time.Microsecond
	maxImmediateEmptyReads = 64
)

// Port is the serial line. Read must return (0, nil) when its internal poll
// timeout expires without data, as go.bug.st/serial ports do.
type Port interface {
	io.Reader
	io.Writer
	// Drain blocks until every queued byte has been shifted out.
	Drain() error
	// ResetOutputBuffer discards queued output, aborting a blocked Write.
	ResetOutputBuffer() error
}

// TxEnable drives the transceiver's driver-enable input.
type TxEnable interface {
	Assert() error
	Deassert() error
}

// Options tunes a Controller. Zero timeouts mean wait forever.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *zap.Logger
}

// Controller performs half-duplex transfers on a serial line.
//
// The transmit-enable output is asserted only while a write is in flight and
// is deasserted before Write returns, whatever the outcome. A Controller has
// a single owner and is not safe for concurrent use.
type Controller struct {
	port         Port
	txEnable     TxEnable
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger
	closers      []io.Closer
}

// New creates a Controller over port. A nil txEnable is treated as an
// auto-direction transceiver with no enable line.
func New(port Port, txEnable TxEnable, opts Options) *Controller {
	if txEnable == nil {
		txEnable = NoTxEnable{}
	}
	return &Controller{
		port:         port,
		txEnable:     txEnable,
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
		logger:       logging.OrNop(opts.Logger),
	}
}

// Read waits until at least one byte arrives and copies it into buf. At most
// MaxTransferUnit bytes are read. The transmit-enable line is not touched.
func (c *Controller) Read(ctx context.Context, buf []byte) (int, error) {
	if len(buf) > MaxTransferUnit {
		buf = buf[:MaxTransferUnit]
	}
	if len(buf) == 0 {
		return 0, nil
	}

	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}

	immediate := 0
	for {
		if err := ctx.Err(); err != nil {
			return 0, contextError(err)
		}
		start := time.Now()
		n, err := c.port.Read(buf)
		if err != nil {
			return n, &Error{Op: "read", Err: err}
		}
		if n > 0 {
			c.logger.Debug("serial rx", logging.Bytes("data", buf[:n]))
			return n, nil
		}

		// A poll timeout blocks for the poll interval. Empty reads that
		// return at once mean the device is gone.
		if time.Since(start) >= immediateReadThreshold {
			immediate = 0
			continue
		}
		immediate++
		if immediate >= maxImmediateEmptyReads {
			c.logger.Warn("serial port returns no data without blocking", zap.Int("reads", immediate))
			return 0, &Error{Op: "read", Err: ErrHangup}
		}
	}
}

// Write transmits p and returns the number of bytes accepted.
//
// The sequence is: assert enable, write every byte, drain on success, and
// deassert enable on every path. A deassert failure is joined to the
// returned error.
func (c *Controller) Write(ctx context.Context, p []byte) (n int, err error) {
	if len(p) > MaxTransferUnit {
		return 0, ErrPayloadTooLarge
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}

	if err := c.txEnable.Assert(); err != nil {
		return 0, errors.Join(&Error{Op: "assert", Err: err}, c.deassert())
	}
	defer func() {
		err = errors.Join(err, c.deassert())
	}()

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := c.transmit(p)
		done <- result{n, err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			c.logger.Debug("serial tx", logging.Bytes("data", p))
		}
		return r.n, r.err
	case <-ctx.Done():
		// Abort the transfer and wait for it; the enable line must not be
		// released while the port still owns the bus.
		_ = c.port.ResetOutputBuffer()
		r := <-done
		if r.err == nil {
			return r.n, nil
		}
		return r.n, contextError(ctx.Err())
	}
}

// Close releases the port and the transmit-enable line when they own
// operating system resources.
func (c *Controller) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i].Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Controller) transmit(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := c.port.Write(p[written:])
		written += n
		if err != nil {
			return written, &Error{Op: "write", Err: err}
		}
		if n == 0 {
			return written, &Error{Op: "write", Err: io.ErrShortWrite}
		}
	}
	if err := c.port.Drain(); err != nil {
		return written, &Error{Op: "drain", Err: err}
	}
	return written, nil
}

func (c *Controller) deassert() error {
	if err := c.txEnable.Deassert(); err != nil {
		c.logger.Error("failed to release transmit enable", zap.Error(err))
		return &Error{Op: "deassert", Err: err}
	}
	return nil
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
