package coap

import (
	"bytes"
	"errors"
	"net"
	"testing"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
)

// CON GET /version, message ID 0x1234, token 0xab.
var getVersion = []byte{0x41, 0x01, 0x12, 0x34, 0xab, 0xb7, 'v', 'e', 'r', 's', 'i', 'o', 'n'}

func TestDecodeRequestWire(t *testing.T) {
	src := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 20), Port: 5683}
	buf := append([]byte(nil), getVersion...)

	req, err := DecodeRequest(buf, src)
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}

	if req.Method != MethodGet {
		t.Errorf("Method = %v, want GET", req.Method)
	}
	if req.Path != "version" {
		t.Errorf("Path = %q, want version", req.Path)
	}
	if req.Type != message.Confirmable || req.MessageID != 0x1234 {
		t.Errorf("envelope = %v/%#x, want CON/0x1234", req.Type, req.MessageID)
	}
	if !bytes.Equal(req.Token, []byte{0xab}) {
		t.Errorf("Token = %x, want ab", req.Token)
	}
	if req.Source != src {
		t.Errorf("Source = %v, want %v", req.Source, src)
	}

	// Decoded values must not alias the datagram buffer.
	for i := range buf {
		buf[i] = 0
	}
	if req.Path != "version" || !bytes.Equal(req.Token, []byte{0xab}) {
		t.Error("request aliases the datagram buffer")
	}
}

func TestRequestRoundTrip(t *testing.T) {
	in := &Request{
		Envelope: Envelope{Type: message.NonConfirmable, MessageID: 7, Token: []byte{1, 2, 3, 4}},
		Code:     codes.POST,
		Path:     "/a/b/",
		Payload:  []byte{0x00, 0xff, 0x10},
	}

	data, err := EncodeRequest(in)
	if err != nil {
		t.Fatalf("EncodeRequest() error = %v", err)
	}
	out, err := DecodeRequest(data, nil)
	if err != nil {
		t.Fatalf("DecodeRequest() error = %v", err)
	}

	if out.Method != MethodPost || out.Path != "a/b" {
		t.Errorf("decoded %v %q, want POST a/b", out.Method, out.Path)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Errorf("Payload = %x, want %x", out.Payload, in.Payload)
	}
	if out.MessageID != 7 || out.Type != message.NonConfirmable || !bytes.Equal(out.Token, in.Token) {
		t.Errorf("envelope = %+v, want %+v", out.Envelope, in.Envelope)
	}
}

func TestDecodeRequestMethods(t *testing.T) {
	tests := []struct {
		code codes.Code
		want Method
	}{
		{codes.GET, MethodGet},
		{codes.POST, MethodPost},
		{codes.PUT, MethodOther},
		{codes.DELETE, MethodOther},
	}

	for _, tt := range tests {
		data, err := EncodeRequest(&Request{
			Envelope: Envelope{Type: message.Confirmable, MessageID: 1},
			Code:     tt.code,
			Path:     "uart",
		})
		if err != nil {
			t.Fatalf("EncodeRequest(%v) error = %v", tt.code, err)
		}
		req, err := DecodeRequest(data, nil)
		if err != nil {
			t.Fatalf("DecodeRequest(%v) error = %v", tt.code, err)
		}
		if req.Method != tt.want {
			t.Errorf("code %v decoded as %v, want %v", tt.code, req.Method, tt.want)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte{0x40, 0x01}},
		{"wrong version", []byte{0x81, 0x01, 0x00, 0x01, 0xab}},
		{"token length past end", []byte{0x48, 0x01, 0x00, 0x01, 0xab}},
		{"reserved version bits", []byte{0xff, 0xff, 0xff, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest(tt.data, nil)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("DecodeRequest() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	tests := []struct {
		name     string
		reqType  message.Type
		wantType message.Type
		wantNil  bool
	}{
		{"confirmable gets ack", message.Confirmable, message.Acknowledgement, false},
		{"non-confirmable gets non", message.NonConfirmable, message.NonConfirmable, false},
		{"ack gets nothing", message.Acknowledgement, 0, true},
		{"reset gets nothing", message.Reset, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &Request{Envelope: Envelope{Type: tt.reqType, MessageID: 42, Token: []byte{9}}}
			resp := NewResponse(req)

			if tt.wantNil {
				if resp != nil {
					t.Errorf("NewResponse() = %+v, want nil", resp)
				}
				return
			}
			if resp == nil {
				t.Fatal("NewResponse() = nil")
			}
			if resp.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", resp.Type, tt.wantType)
			}
			if resp.MessageID != 42 || !bytes.Equal(resp.Token, []byte{9}) {
				t.Errorf("envelope = %+v, want message ID 42 and token 09", resp.Envelope)
			}
			if resp.Status != codes.Content {
				t.Errorf("Status = %v, want 2.05 Content", resp.Status)
			}
		})
	}
}

func TestEncodeResponseWire(t *testing.T) {
	req, err := DecodeRequest(getVersion, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp := NewResponse(req)
	resp.Payload = []byte("1.0")

	data, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse() error = %v", err)
	}

	want := []byte{0x61, 0x45, 0x12, 0x34, 0xab, 0xff, '1', '.', '0'}
	if !bytes.Equal(data, want) {
		t.Errorf("EncodeResponse() = % x, want % x", data, want)
	}

	decoded, err := DecodeResponse(data)
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if decoded.Status != codes.Content || string(decoded.Payload) != "1.0" {
		t.Errorf("DecodeResponse() = %v %q, want 2.05 1.0", decoded.Status, decoded.Payload)
	}
}

func TestDecodeResponseRejectsRequests(t *testing.T) {
	if _, err := DecodeResponse(getVersion); !errors.Is(err, ErrMalformed) {
		t.Errorf("DecodeResponse(request) error = %v, want ErrMalformed", err)
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"uart", []string{"uart"}},
		{"/uart", []string{"uart"}},
		{"a//b/", []string{"a", "b"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := SplitPath(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("SplitPath(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitPath(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}
