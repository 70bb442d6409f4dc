package coap

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/udp/coder"
)

// ErrMalformed wraps every decode failure.
var ErrMalformed = errors.New("malformed CoAP message")

// maxOptions bounds the options decoded from one datagram.
const maxOptions = 16

func decode(data []byte) (message.Message, error) {
	msg := message.Message{
		Options: make(message.Options, 0, maxOptions),
	}
	if _, err := coder.DefaultCoder.Decode(data, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return msg, nil
}

func encode(msg message.Message) ([]byte, error) {
	size, err := coder.DefaultCoder.Size(msg)
	if err != nil {
		return nil, fmt.Errorf("sizing CoAP message: %w", err)
	}
	buf := make([]byte, size)
	n, err := coder.DefaultCoder.Encode(msg, buf)
	if err != nil {
		return nil, fmt.Errorf("encoding CoAP message: %w", err)
	}
	return buf[:n], nil
}

func envelopeOf(msg message.Message) Envelope {
	return Envelope{
		Type:      msg.Type,
		MessageID: uint16(msg.MessageID),
		Token:     clone(msg.Token),
	}
}

func (e Envelope) apply(msg *message.Message) {
	msg.Type = e.Type
	msg.MessageID = int32(e.MessageID)
	msg.Token = e.Token
}

// DecodeRequest parses a datagram received from src.
func DecodeRequest(data []byte, src net.Addr) (*Request, error) {
	msg, err := decode(data)
	if err != nil {
		return nil, err
	}

	var segments []string
	for _, opt := range msg.Options {
		if opt.ID == message.URIPath {
			segments = append(segments, string(opt.Value))
		}
	}

	return &Request{
		Envelope: envelopeOf(msg),
		Code:     msg.Code,
		Method:   methodFromCode(msg.Code),
		Path:     strings.Join(segments, "/"),
		Payload:  clone(msg.Payload),
		Source:   src,
	}, nil
}

// EncodeRequest serialises req. Path is split into URI-Path options.
func EncodeRequest(req *Request) ([]byte, error) {
	msg := message.Message{
		Code:    req.Code,
		Payload: req.Payload,
	}
	req.Envelope.apply(&msg)
	for _, segment := range SplitPath(req.Path) {
		msg.Options = append(msg.Options, message.Option{
			ID:    message.URIPath,
			Value: []byte(segment),
		})
	}
	return encode(msg)
}

// DecodeResponse parses a datagram carrying a response.
func DecodeResponse(data []byte) (*Response, error) {
	msg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if msg.Code != codes.Empty && msg.Code < codes.Created {
		return nil, fmt.Errorf("%w: code %v is not a response", ErrMalformed, msg.Code)
	}
	return &Response{
		Envelope: envelopeOf(msg),
		Status:   msg.Code,
		Payload:  clone(msg.Payload),
	}, nil
}

// EncodeResponse serialises resp.
func EncodeResponse(resp *Response) ([]byte, error) {
	msg := message.Message{
		Code:    resp.Status,
		Payload: resp.Payload,
	}
	resp.Envelope.apply(&msg)
	return encode(msg)
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}
