// Package router maps CoAP requests onto serial controller operations.
//
// The resource table is fixed:
//
//	GET  version  2.05 with the bridge version
//	GET  uart     2.05 with up to 128 bytes read from the serial line
//	POST uart     2.05 after writing the payload to the serial line
//
// Unknown paths are answered with 4.04 and other methods with 4.05.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/plgd-dev/go-coap/v3/message/codes"
	"go.uber.org/zap"

	"github.com/muurk/uartbridge/internal/coap"
	"github.com/muurk/uartbridge/internal/logging"
	"github.com/muurk/uartbridge/internal/uart"
)

// Resource paths.
const (
	PathUART    = "uart"
	PathVersion = "version"
)

// Controller is the serial line as seen by the router.
type Controller interface {
	Read(ctx context.Context, buf []byte) (int, error)
	Write(ctx context.Context, p []byte) (int, error)
}

// Router dispatches requests. It holds no per-request state.
type Router struct {
	version []byte
	logger  *zap.Logger
}

// New creates a Router serving version on GET /version.
func New(version string, logger *zap.Logger) *Router {
	return &Router{
		version: []byte(version),
		logger:  logging.OrNop(logger),
	}
}

// Handle serves req using ctrl and returns the response to send, or nil if
// the request's message type cannot be answered.
func (r *Router) Handle(ctx context.Context, req *coap.Request, ctrl Controller) *coap.Response {
	resp := coap.NewResponse(req)
	if resp == nil {
		r.logger.Debug("ignoring message that cannot be answered",
			logging.Peer(req.Source),
			zap.Stringer("type", req.Type))
		return nil
	}

	log := r.logger.With(
		logging.Peer(req.Source),
		zap.Stringer("method", req.Code),
		zap.String("path", req.Path))
	log.Info("request")

	var err error
	switch req.Method {
	case coap.MethodGet:
		err = r.get(ctx, req, resp, ctrl)
	case coap.MethodPost:
		err = r.post(ctx, req, resp, ctrl)
	default:
		resp.Status = codes.MethodNotAllowed
	}

	if resp.Status >= codes.BadRequest {
		log.Error("request failed", zap.Stringer("status", resp.Status), zap.Error(err))
	}
	return resp
}

func (r *Router) get(ctx context.Context, req *coap.Request, resp *coap.Response, ctrl Controller) error {
	switch req.Path {
	case PathUART:
		buf := make([]byte, uart.MaxTransferUnit)
		n, err := ctrl.Read(ctx, buf)
		if err != nil {
			resp.Status = failureStatus(err)
			return err
		}
		resp.Payload = buf[:n]
	case PathVersion:
		resp.Payload = r.version
	default:
		resp.Status = codes.NotFound
	}
	return nil
}

func (r *Router) post(ctx context.Context, req *coap.Request, resp *coap.Response, ctrl Controller) error {
	if req.Path != PathUART {
		resp.Status = codes.NotFound
		return nil
	}

	// Checked here as well as in the controller so that an oversized
	// payload never reaches the hardware.
	if len(req.Payload) > uart.MaxTransferUnit {
		resp.Status = codes.BadRequest
		return fmt.Errorf("payload of %d bytes: %w", len(req.Payload), uart.ErrPayloadTooLarge)
	}

	if _, err := ctrl.Write(ctx, req.Payload); err != nil {
		resp.Status = failureStatus(err)
		return err
	}
	resp.Status = codes.Content
	return nil
}

func failureStatus(err error) codes.Code {
	switch {
	case errors.Is(err, uart.ErrTimeout):
		return codes.GatewayTimeout
	case errors.Is(err, uart.ErrPayloadTooLarge):
		return codes.BadRequest
	default:
		return codes.InternalServerError
	}
}
