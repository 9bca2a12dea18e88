package unittest

import (
	"fmt"
	"regexp"
	"time"

	"mcreport/internal/datapack"
)

// Outcome is the verdict of one test function.
type Outcome string

const (
	OutcomePass Outcome = "PASS"
	OutcomeFail Outcome = "FAIL"
	OutcomeSkip Outcome = "SKIP"
)

// TestResult is the outcome of one test function.
type TestResult struct {
	ID      datapack.CallID `json:"id"`
	Outcome Outcome         `json:"outcome"`
	// Diagnostic explains a FAIL or SKIP.
	Diagnostic string `json:"diagnostic,omitempty"`
	// Attempts counts the status observations made.
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// DatapackResult holds the test results of one datapack in execution order.
type DatapackResult struct {
	Name    string       `json:"name"`
	Results []TestResult `json:"results"`
}

// IDs returns the ids of the tests with outcome o, in execution order.
func (d *DatapackResult) IDs(o Outcome) []string {
	var ids []string
	for _, r := range d.Results {
		if r.Outcome == o {
			ids = append(ids, string(r.ID))
		}
	}
	return ids
}

// Count returns how many tests ended with outcome o.
func (d *DatapackResult) Count(o Outcome) int {
	n := 0
	for _, r := range d.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Failed reports whether any test failed.
func (d *DatapackResult) Failed() bool {
	return d.Count(OutcomeFail) > 0
}

// ContentFilter selects test files by their contents. Patterns are searched
// anywhere in the file. A file passes when it matches at least one include
// (or there are none) and no exclude.
type ContentFilter struct {
	Includes []string `yaml:"includes,omitempty" json:"includes,omitempty"`
	Excludes []string `yaml:"excludes,omitempty" json:"excludes,omitempty"`
}

// ContentMatcher is a compiled ContentFilter.
type ContentMatcher struct {
	includes []*regexp.Regexp
	excludes []*regexp.Regexp
}

// Compile validates the patterns.
func (f ContentFilter) Compile() (*ContentMatcher, error) {
	m := &ContentMatcher{}
	for _, p := range f.Includes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid content include %q: %w", p, err)
		}
		m.includes = append(m.includes, re)
	}
	for _, p := range f.Excludes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid content exclude %q: %w", p, err)
		}
		m.excludes = append(m.excludes, re)
	}
	return m, nil
}

// Match reports whether content passes the filter. A nil matcher accepts everything.
func (m *ContentMatcher) Match(content []byte) bool {
	if m == nil {
		return true
	}
	if len(m.includes) > 0 {
		found := false
		for _, re := range m.includes {
			if re.Match(content) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, re := range m.excludes {
		if re.Match(content) {
			return false
		}
	}
	return true
}
