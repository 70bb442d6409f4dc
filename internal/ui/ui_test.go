package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/uartbridge/internal/discovery"
)

type stubReader struct {
	data []byte
	err  error
}

func (r stubReader) Read(context.Context) ([]byte, error) { return r.data, r.err }

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestMonitor(r Reader) MonitorModel {
	return NewMonitorModel(context.Background(), r, MonitorConfig{Addr: "10.0.0.7:9001"})
}

func update(t *testing.T, m MonitorModel, msg tea.Msg) (MonitorModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(MonitorModel)
	if !ok {
		t.Fatalf("Update() returned %T, want MonitorModel", next)
	}
	return mm, cmd
}

func TestMonitorRecordsFrames(t *testing.T) {
	m := newTestMonitor(stubReader{})
	at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	m, cmd := update(t, m, frameMsg{data: []byte{0xde, 0xad}, at: at})
	if m.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", m.Frames())
	}
	if cmd == nil {
		t.Error("frame should schedule the next read")
	}
	if view := m.View(); !strings.Contains(view, "dead") || !strings.Contains(view, "12:00:00.000") {
		t.Errorf("View() missing frame:\n%s", view)
	}

	m, _ = update(t, m, keyPress("a"))
	if view := m.View(); !strings.Contains(view, "..") || !strings.Contains(view, "ascii") {
		t.Errorf("View() after toggle missing ascii dump:\n%s", view)
	}

	m, _ = update(t, m, frameMsg{at: at})
	if m.Frames() != 1 {
		t.Errorf("empty poll counted as frame, Frames() = %d", m.Frames())
	}

	m, _ = update(t, m, keyPress("c"))
	if strings.Contains(m.View(), "12:00:00.000") {
		t.Error("clear left frames in the view")
	}
}

func TestMonitorKeepsBoundedScrollback(t *testing.T) {
	m := newTestMonitor(stubReader{})
	for i := 0; i < maxFrames+10; i++ {
		m, _ = update(t, m, frameMsg{data: []byte{byte(i)}, at: time.Now()})
	}
	if len(m.frames) != maxFrames {
		t.Errorf("kept %d frames, want %d", len(m.frames), maxFrames)
	}
	if m.Frames() != maxFrames+10 {
		t.Errorf("Frames() = %d, want %d", m.Frames(), maxFrames+10)
	}
}

func TestMonitorPauseStopsReading(t *testing.T) {
	m := newTestMonitor(stubReader{})

	m, _ = update(t, m, keyPress("p"))
	if !m.paused {
		t.Fatal("p did not pause")
	}
	m, _ = update(t, m, frameMsg{data: []byte{1}, at: time.Now()})
	if m.reading {
		t.Error("read scheduled while paused")
	}
	if !strings.Contains(m.View(), "paused") {
		t.Error("View() does not show paused")
	}

	m, _ = update(t, m, keyPress("p"))
	if m.paused || !m.reading {
		t.Errorf("unpause: paused=%v reading=%v, want false/true", m.paused, m.reading)
	}
}

func TestMonitorShowsReadErrors(t *testing.T) {
	m := newTestMonitor(stubReader{})

	m, cmd := update(t, m, readErrMsg{err: errors.New("bridge unreachable")})
	if m.Err() == nil {
		t.Fatal("Err() = nil after a failed read")
	}
	if cmd == nil {
		t.Error("read error should schedule a retry")
	}
	if !strings.Contains(m.View(), "bridge unreachable") {
		t.Error("View() does not show the read error")
	}

	m, _ = update(t, m, retryMsg{})
	if !m.reading {
		t.Error("retry did not start a read")
	}
	m, _ = update(t, m, frameMsg{at: time.Now()})
	if m.Err() != nil {
		t.Errorf("Err() = %v after a successful poll, want nil", m.Err())
	}
}

func TestMonitorReadCommand(t *testing.T) {
	m := newTestMonitor(stubReader{data: []byte("hi")})
	msg := m.read()()
	got, ok := msg.(frameMsg)
	if !ok || string(got.data) != "hi" {
		t.Errorf("read() = %#v, want frame hi", msg)
	}

	m = newTestMonitor(stubReader{err: errors.New("boom")})
	if _, ok := m.read()().(readErrMsg); !ok {
		t.Error("read() should report reader errors")
	}
}

func TestMonitorQuit(t *testing.T) {
	m := newTestMonitor(stubReader{})
	_, cmd := update(t, m, keyPress("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestResultRender(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   []string
	}{
		{"success", Result{Type: ResultSuccess, Title: "Written", Details: []Detail{{"Bytes", "12"}}}, []string{"Written", "Bytes:", "12"}},
		{"failure", Result{Type: ResultFailure, Title: "Read failed", Error: errors.New("timeout"), Troubleshooting: []string{"check power"}}, []string{"FAILED", "timeout", "check power"}},
		{"warning", Result{Type: ResultWarning, Title: "Nothing"}, []string{"WARNING", "Nothing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.result.Render()
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("Render() missing %q:\n%s", want, got)
				}
			}
		})
	}
}

func TestPrintBridges(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintBridges(nil)
	if !strings.Contains(buf.String(), "No bridges found") {
		t.Errorf("empty scan output = %q", buf.String())
	}

	buf.Reset()
	p.PrintBridges([]*discovery.Bridge{{
		Instance: "bench-1",
		IP:       "10.0.0.7",
		Port:     9001,
		Metadata: map[string]string{discovery.TxtVersion: "1.2.0"},
	}})
	for _, want := range []string{"bench-1", "10.0.0.7:9001", "1.2.0"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("PrintBridges() output missing %q:\n%s", want, buf.String())
		}
	}
}
