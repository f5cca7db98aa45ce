package progress

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
)

type Reporter struct {
	out     io.Writer
	heading lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
}

func NewReporter(out io.Writer) *Reporter {
	renderer := lipgloss.NewRenderer(out)

	return &Reporter{
		out:     out,
		heading: renderer.NewStyle().Bold(true),
		success: renderer.NewStyle().Foreground(lipgloss.Color("2")),
		failure: renderer.NewStyle().Foreground(lipgloss.Color("1")),
		muted:   renderer.NewStyle().Faint(true),
	}
}

// Discard returns a reporter that writes nowhere.
func Discard() *Reporter {
	return NewReporter(io.Discard)
}

func (p *Reporter) Heading(s string) {
	slog.Debug("progress heading", "status", s)
	p.println(p.heading.Render("==> " + s))
}

func (p *Reporter) Progress(s string, args ...any) {
	status := fmt.Sprintf(s, args...)
	slog.Debug("progress", "status", status)
	p.println("    " + status)
}

func (p *Reporter) BasicProgress(s string) {
	p.Progress("%s", s)
}

func (p *Reporter) Success(s string, args ...any) {
	status := fmt.Sprintf(s, args...)
	slog.Info(status)
	p.println(p.success.Render("  ✓ " + status))
}

func (p *Reporter) Failure(s string, args ...any) {
	status := fmt.Sprintf(s, args...)
	slog.Warn(status)
	p.println(p.failure.Render("  ✗ " + status))
}

// Simulated reports an action that dry-run mode did not perform.
func (p *Reporter) Simulated(s string, args ...any) {
	status := fmt.Sprintf(s, args...)
	slog.Info("simulated action", "action", status)
	p.println(p.muted.Render("    [DRY RUN] " + status))
}

type Result struct {
	Success string
	Failure string
}

// Sends a failure progress if err is not nil, else a success progress
func (p *Reporter) Result(err error, result Result) {
	if err != nil {
		p.Failure("%s: %v", result.Failure, err)
	} else {
		p.Success("%s", result.Success)
	}
}

func (p *Reporter) println(s string) {
	fmt.Fprintln(p.out, s)
}
