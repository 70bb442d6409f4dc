package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/uartbridge/internal/discovery"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Detail is one key/value line in a result box. Details render in order.
type Detail struct {
	Key   string
	Value string
}

// Result is a bordered box summarising the outcome of a command.
type Result struct {
	Type            ResultType
	Title           string
	Details         []Detail
	Error           error    // failure only
	Troubleshooting []string // failure only
	Width           int
}

// Render returns the styled result box.
func (r *Result) Render() string {
	var (
		color lipgloss.TerminalColor
		head  string
	)
	switch r.Type {
	case ResultFailure:
		color = ErrorColor
		head = ErrorTitleStyle.Render(fmt.Sprintf("%s  FAILED  %s", FailureMarker, r.Title))
	case ResultWarning:
		color = WarningColor
		head = WarningTitleStyle.Render(fmt.Sprintf("%s  WARNING  %s", WarningMarker, r.Title))
	default:
		color = SuccessColor
		head = SuccessTitleStyle.Render(fmt.Sprintf("%s  %s", SuccessMarker, r.Title))
	}

	lines := []string{"", head, ""}
	for _, d := range r.Details {
		lines = append(lines, DetailKeyStyle.Render(d.Key+":")+" "+DetailValueStyle.Render(d.Value))
	}
	if len(r.Details) > 0 {
		lines = append(lines, "")
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("Error: "+r.Error.Error()), "")
	}
	if len(r.Troubleshooting) > 0 {
		lines = append(lines, TroubleshootingTitleStyle.Render("Troubleshooting:"))
		for _, tip := range r.Troubleshooting {
			lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
		}
		lines = append(lines, "")
	}

	return boxStyle(color, r.Width).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}

// Printer writes rendered components to an output stream.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer. A nil w writes to stdout.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Println writes content followed by a newline.
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintSuccess prints a success box.
func (p *Printer) PrintSuccess(title string, details ...Detail) {
	p.Println((&Result{Type: ResultSuccess, Title: title, Details: details, Width: p.width}).Render())
}

// PrintWarning prints a warning box.
func (p *Printer) PrintWarning(title string, details ...Detail) {
	p.Println((&Result{Type: ResultWarning, Title: title, Details: details, Width: p.width}).Render())
}

// PrintError prints a failure box with optional troubleshooting tips.
func (p *Printer) PrintError(title string, err error, troubleshooting ...string) {
	p.Println((&Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           p.width,
	}).Render())
}

// PrintBridges prints one card per discovered bridge.
func (p *Printer) PrintBridges(bridges []*discovery.Bridge) {
	if len(bridges) == 0 {
		p.PrintWarning("No bridges found",
			Detail{"Service", discovery.ServiceType},
			Detail{"Hint", "check that the bridge is powered and on this network"})
		return
	}

	p.Println(TitleStyle.Render(fmt.Sprintf("Found %d bridge(s)", len(bridges))))
	for _, b := range bridges {
		details := []Detail{
			{"Address", b.Addr()},
			{"Host", b.Hostname},
			{"Version", b.Version()},
			{"MTU", b.GetMetadata(discovery.TxtMTU)},
		}
		var lines []string
		lines = append(lines, TitleStyle.Render(b.Instance))
		for _, d := range details {
			if d.Value == "" {
				continue
			}
			lines = append(lines, DetailKeyStyle.Render(d.Key+":")+" "+DetailValueStyle.Render(d.Value))
		}
		card := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Width(p.width-4).
			Padding(0, 1).
			Render(strings.Join(lines, "\n"))
		p.Println(card)
	}
}
