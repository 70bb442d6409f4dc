package uart

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"
)

// recorder collects hardware events from the fakes in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakePort struct {
	rec *recorder

	reads    [][]byte // returned in order; nil entries simulate poll timeouts
	readErr  error
	writeErr error
	drainErr error
	chunk    int // bytes accepted per Write call, 0 = all
	hungUp   bool // empty reads return at once, like a tty after hangup

	block   chan struct{} // when set, Write blocks until closed
	written []byte
}

func (p *fakePort) Read(buf []byte) (int, error) {
	if len(p.reads) == 0 {
		if p.readErr != nil {
			return 0, p.readErr
		}
		if p.hungUp {
			return 0, nil
		}
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	next := p.reads[0]
	p.reads = p.reads[1:]
	return copy(buf, next), nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.rec.add("write")
	if p.block != nil {
		<-p.block
		return 0, errors.New("output flushed")
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	n := len(b)
	if p.chunk > 0 && n > p.chunk {
		n = p.chunk
	}
	p.written = append(p.written, b[:n]...)
	return n, nil
}

func (p *fakePort) Drain() error {
	p.rec.add("drain")
	return p.drainErr
}

func (p *fakePort) ResetOutputBuffer() error {
	p.rec.add("reset")
	if p.block != nil {
		close(p.block)
	}
	return nil
}

type fakeTxEnable struct {
	rec         *recorder
	assertErr   error
	deassertErr error
}

func (e *fakeTxEnable) Assert() error {
	e.rec.add("assert")
	return e.assertErr
}

func (e *fakeTxEnable) Deassert() error {
	e.rec.add("deassert")
	return e.deassertErr
}

func newFakes() (*recorder, *fakePort, *fakeTxEnable) {
	rec := &recorder{}
	return rec, &fakePort{rec: rec}, &fakeTxEnable{rec: rec}
}

func TestWriteSequence(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name       string
		setup      func(*fakePort, *fakeTxEnable)
		payload    []byte
		wantN      int
		wantErrOp  string
		wantEvents []string
	}{
		{
			name:       "success",
			setup:      func(*fakePort, *fakeTxEnable) {},
			payload:    []byte("hello"),
			wantN:      5,
			wantEvents: []string{"assert", "write", "drain", "deassert"},
		},
		{
			name:       "partial writes are completed",
			setup:      func(p *fakePort, _ *fakeTxEnable) { p.chunk = 2 },
			payload:    []byte("hello"),
			wantN:      5,
			wantEvents: []string{"assert", "write", "write", "write", "drain", "deassert"},
		},
		{
			name:       "write failure skips drain",
			setup:      func(p *fakePort, _ *fakeTxEnable) { p.writeErr = errBoom },
			payload:    []byte{0x01},
			wantErrOp:  "write",
			wantEvents: []string{"assert", "write", "deassert"},
		},
		{
			name:       "drain failure",
			setup:      func(p *fakePort, _ *fakeTxEnable) { p.drainErr = errBoom },
			payload:    []byte{0x01},
			wantN:      1,
			wantErrOp:  "drain",
			wantEvents: []string{"assert", "write", "drain", "deassert"},
		},
		{
			name:       "assert failure still releases enable",
			setup:      func(_ *fakePort, e *fakeTxEnable) { e.assertErr = errBoom },
			payload:    []byte{0x01},
			wantErrOp:  "assert",
			wantEvents: []string{"assert", "deassert"},
		},
		{
			name:       "deassert failure is reported",
			setup:      func(_ *fakePort, e *fakeTxEnable) { e.deassertErr = errBoom },
			payload:    []byte{0x01},
			wantN:      1,
			wantErrOp:  "deassert",
			wantEvents: []string{"assert", "write", "drain", "deassert"},
		},
		{
			name:       "empty payload",
			setup:      func(*fakePort, *fakeTxEnable) {},
			payload:    nil,
			wantEvents: []string{"assert", "drain", "deassert"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, port, tx := newFakes()
			tt.setup(port, tx)
			ctrl := New(port, tx, Options{})

			n, err := ctrl.Write(context.Background(), tt.payload)

			if n != tt.wantN {
				t.Errorf("Write() n = %d, want %d", n, tt.wantN)
			}
			if tt.wantErrOp == "" && err != nil {
				t.Errorf("Write() error = %v, want nil", err)
			}
			if tt.wantErrOp != "" {
				var uerr *Error
				if !errors.As(err, &uerr) {
					t.Fatalf("Write() error = %v, want *Error", err)
				}
				if uerr.Op != tt.wantErrOp {
					t.Errorf("Write() error op = %q, want %q", uerr.Op, tt.wantErrOp)
				}
			}
			if got := rec.list(); !reflect.DeepEqual(got, tt.wantEvents) {
				t.Errorf("events = %v, want %v", got, tt.wantEvents)
			}
		})
	}
}

func TestWriteJoinsWriteAndDeassertErrors(t *testing.T) {
	_, port, tx := newFakes()
	port.writeErr = io.ErrClosedPipe
	tx.deassertErr = errors.New("line busy")
	ctrl := New(port, tx, Options{})

	_, err := ctrl.Write(context.Background(), []byte{0x01})

	if !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Write() error = %v, want write error", err)
	}
	if !errors.Is(err, tx.deassertErr) {
		t.Errorf("Write() error = %v, want deassert error joined", err)
	}
}

func TestWriteRejectsOversizedPayload(t *testing.T) {
	rec, port, tx := newFakes()
	ctrl := New(port, tx, Options{})

	n, err := ctrl.Write(context.Background(), make([]byte, MaxTransferUnit+1))

	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Write() error = %v, want ErrPayloadTooLarge", err)
	}
	if n != 0 {
		t.Errorf("Write() n = %d, want 0", n)
	}
	if events := rec.list(); len(events) != 0 {
		t.Errorf("hardware touched: %v", events)
	}
}

func TestWriteAcceptsExactlyMTU(t *testing.T) {
	_, port, tx := newFakes()
	ctrl := New(port, tx, Options{})

	n, err := ctrl.Write(context.Background(), make([]byte, MaxTransferUnit))
	if err != nil || n != MaxTransferUnit {
		t.Errorf("Write(MTU) = %d, %v, want %d, nil", n, err, MaxTransferUnit)
	}
}

func TestWriteCancelledContext(t *testing.T) {
	rec, port, tx := newFakes()
	ctrl := New(port, tx, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ctrl.Write(ctx, []byte{0x01}); !errors.Is(err, context.Canceled) {
		t.Errorf("Write() error = %v, want context.Canceled", err)
	}
	if events := rec.list(); len(events) != 0 {
		t.Errorf("hardware touched: %v", events)
	}
}

func TestWriteTimeoutReleasesEnableAfterAbort(t *testing.T) {
	rec, port, tx := newFakes()
	port.block = make(chan struct{})
	ctrl := New(port, tx, Options{WriteTimeout: 20 * time.Millisecond})

	_, err := ctrl.Write(context.Background(), []byte{0x01})

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Write() error = %v, want ErrTimeout", err)
	}
	want := []string{"assert", "write", "reset", "deassert"}
	if got := rec.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestRead(t *testing.T) {
	rec, port, tx := newFakes()
	port.reads = [][]byte{nil, nil, []byte("pong")}
	ctrl := New(port, tx, Options{})

	buf := make([]byte, MaxTransferUnit)
	n, err := ctrl.Read(context.Background(), buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(buf[:n]) != "pong" {
		t.Errorf("Read() = %q, want pong", buf[:n])
	}
	if events := rec.list(); len(events) != 0 {
		t.Errorf("Read() touched enable: %v", events)
	}
}

func TestReadBoundedByMTU(t *testing.T) {
	_, port, tx := newFakes()
	port.reads = [][]byte{make([]byte, 300)}
	ctrl := New(port, tx, Options{})

	n, err := ctrl.Read(context.Background(), make([]byte, 512))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != MaxTransferUnit {
		t.Errorf("Read() n = %d, want %d", n, MaxTransferUnit)
	}
}

func TestReadErrors(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		_, port, tx := newFakes()
		port.readErr = io.ErrUnexpectedEOF
		ctrl := New(port, tx, Options{})

		_, err := ctrl.Read(context.Background(), make([]byte, 8))
		var uerr *Error
		if !errors.As(err, &uerr) || uerr.Op != "read" {
			t.Errorf("Read() error = %v, want *Error{Op: read}", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		_, port, tx := newFakes()
		ctrl := New(port, tx, Options{ReadTimeout: 10 * time.Millisecond})

		_, err := ctrl.Read(context.Background(), make([]byte, 8))
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("Read() error = %v, want ErrTimeout", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		_, port, tx := newFakes()
		ctrl := New(port, tx, Options{})
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)

		_, err := ctrl.Read(ctx, make([]byte, 8))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Read() error = %v, want context.Canceled", err)
		}
	})
}

func TestReadDetectsHangup(t *testing.T) {
	_, port, tx := newFakes()
	port.hungUp = true
	ctrl := New(port, tx, Options{ReadTimeout: 5 * time.Second})

	start := time.Now()
	_, err := ctrl.Read(context.Background(), make([]byte, 8))
	if !errors.Is(err, ErrHangup) {
		t.Fatalf("Read() error = %v, want ErrHangup", err)
	}
	var uerr *Error
	if !errors.As(err, &uerr) || uerr.Op != "read" {
		t.Errorf("Read() error = %v, want *Error{Op: read}", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Errorf("Read() took %v, want it to give up well before the read timeout", elapsed)
	}
}

type closeCounter struct{ closed int }

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestClose(t *testing.T) {
	_, port, tx := newFakes()
	ctrl := New(port, tx, Options{})
	first, second := &closeCounter{}, &closeCounter{}
	ctrl.closers = []io.Closer{first, second}

	if err := ctrl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := ctrl.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if first.closed != 1 || second.closed != 1 {
		t.Errorf("closers called %d/%d times, want once each", first.closed, second.closed)
	}
}
