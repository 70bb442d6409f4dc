package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/uartbridge/internal/logging"
)

const (
	// maxFrames bounds the scrollback kept by the monitor.
	maxFrames = 500

	defaultRetryDelay = time.Second
)

// Reader fetches the next chunk of serial data from a bridge. An empty chunk
// with a nil error means nothing arrived before the poll timed out.
type Reader interface {
	Read(ctx context.Context) ([]byte, error)
}

// Messages
type frameMsg struct {
	data []byte
	at   time.Time
}

type readErrMsg struct{ err error }

type retryMsg struct{}

type frame struct {
	data []byte
	at   time.Time
}

type monitorKeyMap struct {
	Pause key.Binding
	Hex   key.Binding
	Clear key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Hex, k.Clear, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Pause, k.Hex}, {k.Clear, k.Quit}}
}

// MonitorConfig configures a MonitorModel.
type MonitorConfig struct {
	Addr        string // shown in the title
	PollTimeout time.Duration
	RetryDelay  time.Duration
}

// MonitorModel streams serial data read from a bridge into a scrolling view.
//
// Only one read is outstanding at a time. Reads stop while paused and
// resume when unpaused.
type MonitorModel struct {
	ctx    context.Context
	reader Reader
	config MonitorConfig

	frames  []frame
	total   int // bytes received
	count   int // frames received
	lastErr error
	paused  bool
	ascii   bool
	reading bool

	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     monitorKeyMap
}

// NewMonitorModel creates a monitor reading from r. Reads are bounded by ctx.
func NewMonitorModel(ctx context.Context, r Reader, cfg MonitorConfig) MonitorModel {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	width, height := GetTerminalSize()
	vp := viewport.New(width, viewportHeight(height))

	return MonitorModel{
		ctx:      ctx,
		reader:   r,
		config:   cfg,
		viewport: vp,
		spinner:  s,
		help:     help.New(),
		reading:  true, // Init issues the first read
		keys: monitorKeyMap{
			Pause: key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause")),
			Hex:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "hex/ascii")),
			Clear: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
			Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
		},
	}
}

// title, status bar and help
func viewportHeight(height int) int {
	if h := height - 5; h > 3 {
		return h
	}
	return 3
}

// Init starts the first read.
func (m MonitorModel) Init() tea.Cmd {
	return tea.Batch(m.read(), m.spinner.Tick)
}

// Frames returns the number of frames received so far.
func (m MonitorModel) Frames() int { return m.count }

// Err returns the most recent read error, cleared by the next frame.
func (m MonitorModel) Err() error { return m.lastErr }

// Update implements tea.Model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			if !m.paused && !m.reading {
				m.reading = true
				cmds = append(cmds, m.read())
			}
		case key.Matches(msg, m.keys.Hex):
			m.ascii = !m.ascii
			m.refresh()
		case key.Matches(msg, m.keys.Clear):
			m.frames = nil
			m.refresh()
		}

	case tea.WindowSizeMsg:
		m.viewport.Width = clampWidth(msg.Width)
		m.viewport.Height = viewportHeight(msg.Height)
		m.refresh()

	case frameMsg:
		m.reading = false
		m.lastErr = nil
		if len(msg.data) > 0 {
			m.count++
			m.total += len(msg.data)
			m.frames = append(m.frames, frame(msg))
			if len(m.frames) > maxFrames {
				m.frames = m.frames[len(m.frames)-maxFrames:]
			}
			m.refresh()
		}
		if !m.paused {
			m.reading = true
			cmds = append(cmds, m.read())
		}

	case readErrMsg:
		m.reading = false
		m.lastErr = msg.err
		cmds = append(cmds, tea.Tick(m.config.RetryDelay, func(time.Time) tea.Msg {
			return retryMsg{}
		}))

	case retryMsg:
		if !m.paused && !m.reading {
			m.reading = true
			cmds = append(cmds, m.read())
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m MonitorModel) read() tea.Cmd {
	ctx, r, timeout := m.ctx, m.reader, m.config.PollTimeout
	return func() tea.Msg {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		data, err := r.Read(ctx)
		if err != nil {
			return readErrMsg{err: err}
		}
		return frameMsg{data: data, at: time.Now()}
	}
}

func (m *MonitorModel) refresh() {
	lines := make([]string, len(m.frames))
	for i, f := range m.frames {
		lines[i] = m.renderFrame(f)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m MonitorModel) renderFrame(f frame) string {
	dump := logging.HexDump(f.data)
	if m.ascii {
		dump = logging.ASCIIDump(f.data)
	}
	return TimestampStyle.Render(f.at.Format("15:04:05.000")) + " " +
		FrameSizeStyle.Render(fmt.Sprintf("[%3d]", len(f.data))) + " " +
		FrameDataStyle.Render(dump)
}

// View implements tea.Model
func (m MonitorModel) View() string {
	title := TitleStyle.Render("UART monitor") + " " + SubtitleStyle.Render(m.config.Addr)

	var status string
	switch {
	case m.lastErr != nil:
		status = ErrorMessageStyle.Render("read failed: " + m.lastErr.Error())
	case m.paused:
		status = WarningTitleStyle.Render("paused")
	default:
		status = m.spinner.View() + " listening"
	}
	mode := "hex"
	if m.ascii {
		mode = "ascii"
	}
	status += StatusBarStyle.Render(fmt.Sprintf("%d frames  %d bytes  %s", m.count, m.total, mode))

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.viewport.View(),
		status,
		m.help.View(m.keys),
	)
}
