package client

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"go.uber.org/zap"

	"github.com/muurk/uartbridge/internal/coap"
	"github.com/muurk/uartbridge/internal/logging"
)

const (
	// DefaultTimeout is how long to wait for the first response. RFC 7252
	// uses 2 s; a bridge answering GET /uart may legitimately take longer.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRetries is zero because the bridge keeps no record of
	// message IDs; a retransmitted POST would be written to the line twice.
	DefaultMaxRetries = 0

	responseBufferSize = 2048
	tokenLength        = 4
)

// ErrTimeout is returned when the bridge does not answer.
var ErrTimeout = errors.New("no response from bridge")

// StatusError is a response with a non-success status.
type StatusError struct {
	Code    codes.Code
	Payload []byte
}

func (e *StatusError) Error() string {
	if len(e.Payload) > 0 {
		return fmt.Sprintf("bridge returned %v: %s", e.Code, e.Payload)
	}
	return fmt.Sprintf("bridge returned %v", e.Code)
}

// Client sends confirmable CoAP requests to one bridge.
type Client struct {
	// Addr is the bridge's host:port
	Addr string

	// Timeout is the wait for the first attempt; each retransmission
	// doubles it
	Timeout time.Duration

	// MaxRetries is the number of retransmissions after the first attempt
	MaxRetries int

	Logger *zap.Logger
}

// New creates a Client for the bridge at addr with default settings.
func New(addr string) *Client {
	return &Client{
		Addr:       addr,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// Version returns the bridge's version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.Do(ctx, codes.GET, "version", nil)
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

// Read returns the bytes the bridge read from its serial line. The bridge
// answers only once at least one byte has arrived.
func (c *Client) Read(ctx context.Context) ([]byte, error) {
	resp, err := c.Do(ctx, codes.GET, "uart", nil)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// Write sends p to the bridge's serial line.
func (c *Client) Write(ctx context.Context, p []byte) error {
	_, err := c.Do(ctx, codes.POST, "uart", p)
	return err
}

// Do sends one request and waits for its response. Responses with a class
// other than 2.xx are returned as *StatusError.
func (c *Client) Do(ctx context.Context, method codes.Code, path string, payload []byte) (*coap.Response, error) {
	logger := logging.OrNop(c.Logger)

	conn, err := net.Dial("udp", c.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to reach bridge at %s: %w", c.Addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.SetReadDeadline(time.Now()) })
	defer stop()

	req := &coap.Request{
		Envelope: coap.Envelope{
			Type:      message.Confirmable,
			MessageID: uint16(rand.UintN(1 << 16)),
			Token:     newToken(),
		},
		Code:    method,
		Path:    path,
		Payload: payload,
	}
	data, err := coap.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	policy := &backoff.ExponentialBackOff{
		InitialInterval:     timeout,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         timeout * 8,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	policy.Reset()

	buf := make([]byte, responseBufferSize)
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		logger.Debug("sending request",
			zap.String("addr", c.Addr),
			zap.Stringer("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			logging.Bytes("data", data))

		if _, err := conn.Write(data); err != nil {
			return nil, fmt.Errorf("sending request: %w", err)
		}

		resp, err := c.await(ctx, conn, req, buf, time.Now().Add(policy.NextBackOff()))
		if err == nil {
			if class(resp.Status) != 2 {
				return resp, &StatusError{Code: resp.Status, Payload: resp.Payload}
			}
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, ErrTimeout) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w at %s", ErrTimeout, c.Addr)
}

// await reads until a response matching req arrives or deadline passes.
func (c *Client) await(ctx context.Context, conn net.Conn, req *coap.Request, buf []byte, deadline time.Time) (*coap.Response, error) {
	bounded := false
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline, bounded = d, true
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	for {
		n, err := conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if bounded {
					<-ctx.Done()
					return nil, ctx.Err()
				}
				return nil, ErrTimeout
			}
			return nil, fmt.Errorf("receiving response: %w", err)
		}

		resp, err := coap.DecodeResponse(buf[:n])
		if err != nil {
			continue
		}
		switch {
		case resp.Type == message.Reset && resp.MessageID == req.MessageID:
			return nil, errors.New("bridge rejected the request")
		case resp.Status == codes.Empty:
			// Empty ACK announcing a separate response; keep waiting.
			continue
		case !bytes.Equal(resp.Token, req.Token):
			continue
		case resp.Type == message.Acknowledgement && resp.MessageID != req.MessageID:
			continue
		}
		return resp, nil
	}
}

func newToken() []byte {
	token := make([]byte, tokenLength)
	crand.Read(token)
	return token
}

// class returns the response class, the digit before the dot in 2.05.
func class(code codes.Code) int {
	return int(code) >> 5
}
