// Package suite drives report-producing suites over a set of datapacks and
// writes their results into one markdown document.
package suite

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"mcreport/internal/report"
	"mcreport/pkg/logging"
)

// Suite produces a report over a list of datapack directories.
type Suite interface {
	// Name is the heading of the suite's report section and the name used to select it.
	Name() string
	// Run analyses the datapacks. Test failures are reported through the
	// result; an error means the suite could not produce a result at all.
	Run(ctx context.Context, datapacks []string) (*report.Result, error)
}

// Options selects what a run covers.
type Options struct {
	// Datapacks are the datapack root directories, in report order.
	Datapacks []string
	// Selected limits the run to suites with these names. Empty runs all suites.
	Selected []string
}

// Outcome is the aggregate of a run.
type Outcome struct {
	Passed  bool
	Results []*report.Result
}

// ErrUnknownSuite is returned when a selected name matches no suite.
var ErrUnknownSuite = errors.New("unknown suite")

// Names returns the names of the given suites.
func Names(suites []Suite) []string {
	names := make([]string, len(suites))
	for i, s := range suites {
		names[i] = s.Name()
	}
	return names
}

// Select filters suites by name, preserving their order.
func Select(suites []Suite, selected []string) ([]Suite, error) {
	if len(selected) == 0 {
		return suites, nil
	}

	names := Names(suites)
	for _, name := range selected {
		if !slices.Contains(names, name) {
			return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownSuite, name, names)
		}
	}

	var out []Suite
	for _, s := range suites {
		if slices.Contains(selected, s.Name()) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Run executes the selected suites in order and writes each result to doc.
// The run passes only if every suite passes. When a suite returns an error
// the sections already written stay in the document and the error is returned.
func Run(ctx context.Context, suites []Suite, opts Options, doc *report.Document) (*Outcome, error) {
	selected, err := Select(suites, opts.Selected)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Passed: true}
	doc.Header(2, "Tests")

	for _, s := range selected {
		logging.Info("Suite", "Running test: %s", s.Name())

		result, err := s.Run(ctx, opts.Datapacks)
		if err != nil {
			outcome.Passed = false
			return outcome, fmt.Errorf("suite %s: %w", s.Name(), err)
		}
		if result.Name == "" {
			result.Name = s.Name()
		}
		if !result.Passed {
			outcome.Passed = false
		}
		outcome.Results = append(outcome.Results, result)

		Write(doc, result)
		if err := doc.Err(); err != nil {
			return outcome, fmt.Errorf("failed to write report: %w", err)
		}
	}

	return outcome, nil
}

// Write renders one suite result: heading, summary table and, when it has
// rows, a collapsible details table.
func Write(doc *report.Document, result *report.Result) {
	doc.Header(3, result.Name)
	doc.Table(result.Summary)
	doc.NewLine(1)
	if result.Details.Len() > 0 {
		doc.Details("Details", result.Details)
	}
}
