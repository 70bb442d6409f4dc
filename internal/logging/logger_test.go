package logging

import (
	"net"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewSilent(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	logger, err := New("", Silent)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("silent logger should not be enabled at any level")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "error")

	logger, err := New("", "debug")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("env level error should disable info")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("env level error should enable error")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("chatty", ""); err == nil {
		t.Error("New() with unknown level should fail")
	}
}

func TestHexDump(t *testing.T) {
	if got := HexDump(nil); got != "" {
		t.Errorf("HexDump(nil) = %q, want empty", got)
	}
	if got := HexDump([]byte{0x01, 0xab}); got != "01ab" {
		t.Errorf("HexDump() = %q, want 01ab", got)
	}

	long := make([]byte, 300)
	got := HexDump(long)
	if !strings.HasSuffix(got, "...") || len(got) != 2*maxDumpBytes+3 {
		t.Errorf("HexDump(300 bytes) length = %d, want truncated dump", len(got))
	}
}

func TestASCIIDump(t *testing.T) {
	if got := ASCIIDump([]byte("ok\r\n\x00A")); got != "ok...A" {
		t.Errorf("ASCIIDump() = %q, want %q", got, "ok...A")
	}
}

func TestPeer(t *testing.T) {
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 5683}
	field := Peer(addr)
	if field.Key != "peer" || field.String != "10.0.0.7:5683" {
		t.Errorf("Peer() = %+v, want peer=10.0.0.7:5683", field)
	}
	if Peer(nil).Type != zapcore.SkipType {
		t.Error("Peer(nil) should be skipped")
	}
}
