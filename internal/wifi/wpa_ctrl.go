package wifi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultCommandTimeout = 5 * time.Second
	ctrlReplySize         = 4096
)

var ctrlSeq atomic.Uint32

// CommandError is a control command that wpa_supplicant rejected.
type CommandError struct {
	Command string
	Reply   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("wpa_supplicant %s: %s", e.Command, e.Reply)
}

// ctrlConn is one datagram connection to a wpa_supplicant control socket.
// Replies and unsolicited events ("<N>CTRL-EVENT-...") share the socket.
type ctrlConn struct {
	conn  *net.UnixConn
	local string

	mu  sync.Mutex
	buf []byte
}

func dialCtrl(path string) (*ctrlConn, error) {
	local := filepath.Join(os.TempDir(),
		fmt.Sprintf("uartbridge-wpa-%d-%d", os.Getpid(), ctrlSeq.Add(1)))
	os.Remove(local)

	conn, err := net.DialUnix("unixgram",
		&net.UnixAddr{Name: local, Net: "unixgram"},
		&net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return nil, fmt.Errorf("connecting to wpa_supplicant at %s: %w", path, err)
	}
	return &ctrlConn{conn: conn, local: local, buf: make([]byte, ctrlReplySize)}, nil
}

// request sends cmd and returns its reply, skipping interleaved events.
func (c *ctrlConn) request(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultCommandTimeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return "", err
	}
	defer c.conn.SetDeadline(time.Time{})

	if _, err := c.conn.Write([]byte(cmd)); err != nil {
		return "", fmt.Errorf("sending %s: %w", verb(cmd), err)
	}
	for {
		n, err := c.conn.Read(c.buf)
		if err != nil {
			return "", fmt.Errorf("waiting for %s reply: %w", verb(cmd), err)
		}
		reply := string(c.buf[:n])
		if strings.HasPrefix(reply, "<") {
			continue
		}
		return strings.TrimRight(reply, "\n"), nil
	}
}

// expectOK sends cmd and fails unless wpa_supplicant replies OK.
func (c *ctrlConn) expectOK(ctx context.Context, cmd string) error {
	reply, err := c.request(ctx, cmd)
	if err != nil {
		return err
	}
	if reply != "OK" {
		return &CommandError{Command: verb(cmd), Reply: reply}
	}
	return nil
}

// event waits for the next unsolicited event and returns it without its
// priority prefix.
func (c *ctrlConn) event(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		c.conn.SetReadDeadline(time.Now())
	})
	defer func() {
		stop()
		c.conn.SetReadDeadline(time.Time{})
	}()

	for {
		n, err := c.conn.Read(c.buf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", fmt.Errorf("reading wpa_supplicant events: %w", err)
		}
		msg := string(c.buf[:n])
		if !strings.HasPrefix(msg, "<") {
			continue
		}
		if i := strings.IndexByte(msg, '>'); i >= 0 {
			msg = msg[i+1:]
		}
		return strings.TrimRight(msg, "\n"), nil
	}
}

func (c *ctrlConn) Close() error {
	err := c.conn.Close()
	if rmErr := os.Remove(c.local); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	return err
}

// verb returns the command name without its arguments, so that passphrases
// never reach error messages or logs.
func verb(cmd string) string {
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		return cmd[:i]
	}
	return cmd
}

// parseStatus parses the key=value lines of a STATUS reply.
func parseStatus(reply string) map[string]string {
	status := make(map[string]string)
	for _, line := range strings.Split(reply, "\n") {
		if key, value, ok := strings.Cut(line, "="); ok {
			status[key] = value
		}
	}
	return status
}
