package coap

import (
	"net"
	"strings"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
)

// Method is the request method as far as the bridge cares.
type Method int

const (
	MethodOther Method = iota
	MethodGet
	MethodPost
)

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	default:
		return "OTHER"
	}
}

func methodFromCode(code codes.Code) Method {
	switch code {
	case codes.GET:
		return MethodGet
	case codes.POST:
		return MethodPost
	default:
		return MethodOther
	}
}

// Envelope is the part of a message a response must echo: type, message ID
// and token.
type Envelope struct {
	Type      message.Type
	MessageID uint16
	Token     []byte
}

// Request is a decoded CoAP request. Its byte slices are owned by the
// Request and do not alias the datagram buffer.
type Request struct {
	Envelope
	Code    codes.Code
	Method  Method
	Path    string // URI-Path segments joined with "/", no leading slash
	Payload []byte
	Source  net.Addr
}

// Response is a CoAP response ready to be encoded.
type Response struct {
	Envelope
	Status  codes.Code
	Payload []byte
}

// NewResponse builds the response envelope for req with status 2.05
// Content. A confirmable request is answered with a piggybacked ACK and a
// non-confirmable one with a NON; both echo the message ID and token.
// Acknowledgements and resets cannot be answered and yield nil.
func NewResponse(req *Request) *Response {
	var typ message.Type
	switch req.Type {
	case message.Confirmable:
		typ = message.Acknowledgement
	case message.NonConfirmable:
		typ = message.NonConfirmable
	default:
		return nil
	}
	return &Response{
		Envelope: Envelope{
			Type:      typ,
			MessageID: req.MessageID,
			Token:     req.Token,
		},
		Status: codes.Content,
	}
}

// SplitPath splits a path into URI-Path segments, ignoring leading,
// trailing and repeated slashes.
func SplitPath(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
