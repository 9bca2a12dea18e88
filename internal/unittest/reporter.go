package unittest

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Reporter receives progress while tests execute.
type Reporter interface {
	// ReportDatapackStart is called before the tests of a datapack are sent.
	ReportDatapackStart(name string, tests int)
	// ReportTestResult is called once per test, including skipped ones.
	ReportTestResult(datapack string, result TestResult)
	// ReportDatapackResult is called when a datapack is done.
	ReportDatapackResult(result *DatapackResult)
}

var (
	passStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	skipStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
)

// ConsoleReporter prints one line per test. Safe for concurrent datapacks.
type ConsoleReporter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// NewConsoleReporter writes to w. verbose adds durations and datapack totals.
func NewConsoleReporter(w io.Writer, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{w: w, verbose: verbose}
}

func (r *ConsoleReporter) ReportDatapackStart(name string, tests int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s %s\n", titleStyle.Render(name), faintStyle.Render(fmt.Sprintf("(%d tests)", tests)))
}

func (r *ConsoleReporter) ReportTestResult(datapack string, result TestResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := fmt.Sprintf("  %s %s", outcomeLabel(result.Outcome), result.ID)
	if r.verbose && result.Outcome != OutcomeSkip {
		line += " " + faintStyle.Render(fmt.Sprintf("(%v)", result.Duration))
	}
	if result.Diagnostic != "" {
		line += ": " + result.Diagnostic
	}
	fmt.Fprintln(r.w, line)
}

func (r *ConsoleReporter) ReportDatapackResult(result *DatapackResult) {
	if !r.verbose {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "  %d passed, %d failed, %d skipped\n",
		result.Count(OutcomePass), result.Count(OutcomeFail), result.Count(OutcomeSkip))
}

func outcomeLabel(o Outcome) string {
	switch o {
	case OutcomePass:
		return passStyle.Render(string(o))
	case OutcomeFail:
		return failStyle.Render(string(o))
	default:
		return skipStyle.Render(string(o))
	}
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) ReportDatapackStart(string, int)      {}
func (NopReporter) ReportTestResult(string, TestResult)  {}
func (NopReporter) ReportDatapackResult(*DatapackResult) {}
