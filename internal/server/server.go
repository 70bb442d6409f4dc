package server

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/uartbridge/internal/coap"
	"github.com/muurk/uartbridge/internal/logging"
	"github.com/muurk/uartbridge/internal/router"
)

const (
	// DefaultBufferSize is the receive buffer for one datagram.
	DefaultBufferSize = 4096
	// DefaultLinkPollInterval is how often a down link is re-checked.
	DefaultLinkPollInterval = time.Second
)

// LinkState reports whether the network link is usable.
type LinkState interface {
	IsLinkUp() bool
}

// Handler turns a request into a response. A nil response means nothing
// is sent.
type Handler interface {
	Handle(ctx context.Context, req *coap.Request, ctrl router.Controller) *coap.Response
}

// ListenFunc opens the server socket.
type ListenFunc func(ctx context.Context, network, address string) (net.PacketConn, error)

// Config holds the server configuration
type Config struct {
	Host             string // empty listens on all addresses
	Port             uint16
	LinkPollInterval time.Duration
	BufferSize       int
	Logger           *zap.Logger

	// Listen defaults to net.ListenConfig.ListenPacket.
	Listen ListenFunc
}

// Server is the bridge's CoAP server loop.
type Server struct {
	config  Config
	link    LinkState
	handler Handler
	ctrl    router.Controller
	logger  *zap.Logger

	mu   sync.Mutex
	addr net.Addr
}

// New creates a Server that answers requests with handler, giving it
// exclusive use of ctrl.
func New(config Config, link LinkState, handler Handler, ctrl router.Controller) *Server {
	if config.LinkPollInterval <= 0 {
		config.LinkPollInterval = DefaultLinkPollInterval
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}
	if config.Listen == nil {
		var lc net.ListenConfig
		config.Listen = lc.ListenPacket
	}
	return &Server{
		config:  config,
		link:    link,
		handler: handler,
		ctrl:    ctrl,
		logger:  logging.OrNop(config.Logger).Named("server"),
	}
}

// Addr returns the bound address, or nil while the server is not bound.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) setAddr(addr net.Addr) {
	s.mu.Lock()
	s.addr = addr
	s.mu.Unlock()
}

// Run serves until ctx is cancelled, which returns nil.
//
// No socket is bound while the link is down. Failing to bind is fatal and
// returned; a socket that fails after binding is closed and the server goes
// back to waiting for the link.
func (s *Server) Run(ctx context.Context) error {
	address := net.JoinHostPort(s.config.Host, strconv.Itoa(int(s.config.Port)))
	waiting := false

	for ctx.Err() == nil {
		if !s.link.IsLinkUp() {
			if !waiting {
				s.logger.Info("waiting for network link")
				waiting = true
			}
			if !sleep(ctx, s.config.LinkPollInterval) {
				break
			}
			continue
		}
		waiting = false

		conn, err := s.config.Listen(ctx, "udp", address)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("failed to bind %s: %w", address, err)
		}

		if err := s.serve(ctx, conn); err != nil {
			s.logger.Error("socket failed, rebinding", zap.Error(err))
		}
	}
	return nil
}

// serve reads datagrams from conn until it fails or ctx is cancelled.
func (s *Server) serve(ctx context.Context, conn net.PacketConn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	s.setAddr(conn.LocalAddr())
	defer s.setAddr(nil)
	s.logger.Info("listening", zap.Stringer("addr", conn.LocalAddr()))

	buf := make([]byte, s.config.BufferSize)
	for {
		n, src, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiving datagram: %w", err)
		}
		s.dispatch(ctx, conn, buf[:n], src)
	}
}

// dispatch handles one datagram. Failures are logged and never end the loop.
func (s *Server) dispatch(ctx context.Context, conn net.PacketConn, data []byte, src net.Addr) {
	s.logger.Debug("datagram received",
		logging.Peer(src),
		zap.Int("size", len(data)),
		logging.Bytes("data", data))

	req, err := coap.DecodeRequest(data, src)
	if err != nil {
		s.logger.Warn("dropping malformed datagram", logging.Peer(src), zap.Error(err))
		return
	}

	resp := s.handler.Handle(ctx, req, s.ctrl)
	if resp == nil {
		return
	}

	out, err := coap.EncodeResponse(resp)
	if err != nil {
		s.logger.Error("failed to encode response", logging.Peer(src), zap.Error(err))
		return
	}
	if _, err := conn.WriteTo(out, src); err != nil {
		s.logger.Error("failed to send response", logging.Peer(src), zap.Error(err))
		return
	}
	s.logger.Debug("response sent",
		logging.Peer(src),
		zap.Stringer("status", resp.Status),
		logging.Bytes("data", out))
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
