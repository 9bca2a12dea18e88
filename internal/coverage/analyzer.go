// Package coverage measures which production functions of a datapack are
// exercised by its test functions, using a static call graph built from
// function file contents.
//
// A non-test function is testable when no other non-test function calls it:
// helpers reached only through production code are not entry points and get
// no coverage credit of their own. A testable function is covered when at
// least one test function calls it.
package coverage

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"mcreport/internal/callscan"
	"mcreport/internal/datapack"
	"mcreport/internal/report"
	"mcreport/pkg/logging"
)

// Name is the suite name of the analyzer.
const Name = "Coverage Test"

const noPercent = "-"

// Options configures an Analyzer.
type Options struct {
	// All selects every function considered by the analysis.
	All datapack.Filter
	// Tests selects the test functions among them.
	Tests datapack.Filter
	// Scanner detects calls. Nil uses a fresh callscan.CachedScanner per run.
	Scanner callscan.Scanner
	// Workers bounds how many datapacks are analysed at once. Values below 1 mean 1.
	Workers int
	// Datapack controls datapack validation.
	Datapack datapack.Options
}

// Analyzer is the coverage suite.
type Analyzer struct {
	opts  Options
	all   *datapack.Matcher
	tests *datapack.Matcher
}

// DatapackCoverage is the coverage of one datapack.
type DatapackCoverage struct {
	Name string `json:"name"`
	// Testable functions: non-test functions no other non-test function calls.
	Testable []datapack.CallID `json:"testable"`
	// Covered testable functions, called from at least one test.
	Covered []datapack.CallID `json:"covered"`
	// Uncalled testable functions.
	Uncalled []datapack.CallID `json:"uncalled"`
	// CalledElsewhere are non-test functions excluded because production code calls them.
	CalledElsewhere []datapack.CallID `json:"called_elsewhere"`
}

// Percent returns the rounded share of covered testable functions. ok is false
// when the datapack has no testable function.
func (c *DatapackCoverage) Percent() (percent int, ok bool) {
	if len(c.Testable) == 0 {
		return 0, false
	}
	ratio := float64(len(c.Covered)) / float64(len(c.Testable)) * 100
	return int(math.RoundToEven(ratio)), true
}

// PercentString renders Percent as "N%" or "-".
func (c *DatapackCoverage) PercentString() string {
	p, ok := c.Percent()
	if !ok {
		return noPercent
	}
	return strconv.Itoa(p) + "%"
}

// New compiles the filters and returns an Analyzer.
func New(opts Options) (*Analyzer, error) {
	all, err := opts.All.Compile()
	if err != nil {
		return nil, fmt.Errorf("coverage function filter: %w", err)
	}
	tests, err := opts.Tests.Compile()
	if err != nil {
		return nil, fmt.Errorf("coverage test filter: %w", err)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Analyzer{opts: opts, all: all, tests: tests}, nil
}

// Name implements suite.Suite.
func (a *Analyzer) Name() string {
	return Name
}

// Run implements suite.Suite. Coverage is informational: the result always passes.
func (a *Analyzer) Run(ctx context.Context, dirs []string) (*report.Result, error) {
	coverages, err := a.Analyze(ctx, dirs)
	if err != nil {
		return nil, err
	}

	summary := report.NewTable("Datapack", "Tested", "Total", "Percent")
	details := report.NewTable("Datapack", "Uncalled")
	for _, c := range coverages {
		summary.Append(c.Name, len(c.Covered), len(c.Testable), c.PercentString())
		if len(c.Uncalled) > 0 {
			details.Append(c.Name, report.Cell(idStrings(c.Uncalled)))
		}
	}
	summary.SortBy(percentKey, true)

	return &report.Result{Name: Name, Summary: summary, Passed: true, Details: details}, nil
}

// percentKey sorts datapacks without a percentage below 0%.
func percentKey(row []string) float64 {
	p, err := strconv.Atoi(strings.TrimSuffix(row[len(row)-1], "%"))
	if err != nil {
		return -1
	}
	return float64(p)
}

// Analyze computes the coverage of every datapack, in input order. All
// datapacks are validated before any is analysed.
func (a *Analyzer) Analyze(ctx context.Context, dirs []string) ([]*DatapackCoverage, error) {
	packs := make([]*datapack.Datapack, len(dirs))
	for i, dir := range dirs {
		dp, err := datapack.Open(dir, a.opts.Datapack)
		if err != nil {
			return nil, err
		}
		packs[i] = dp
	}

	sc := a.opts.Scanner
	if sc == nil {
		sc = callscan.NewCachedScanner()
	}

	out := make([]*DatapackCoverage, len(packs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i, dp := range packs {
		g.Go(func() error {
			c, err := a.analyzeDatapack(gctx, dp, sc)
			if err != nil {
				return fmt.Errorf("datapack %s: %w", dp.Name, err)
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Analyzer) analyzeDatapack(ctx context.Context, dp *datapack.Datapack, sc callscan.Scanner) (*DatapackCoverage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	allFns, err := a.locate(dp.Path, a.all)
	if err != nil {
		return nil, err
	}
	testFns, err := a.locate(dp.Path, a.tests)
	if err != nil {
		return nil, err
	}

	nonTest := allFns.Difference(testFns)
	nonTestIDs := nonTest.IDs()
	testIDs := testFns.IDs()

	calledElsewhere := datapack.Set{}
	for _, id := range nonTestIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, otherID := range nonTestIDs {
			if otherID == id {
				continue
			}
			if sc.References(id, nonTest[otherID].File) {
				logging.Debug("Coverage", "%s calls %s, not testable", otherID, id)
				calledElsewhere[id] = nonTest[id]
				break
			}
		}
	}
	testable := nonTest.Difference(calledElsewhere)

	covered := datapack.Set{}
	for _, id := range testable.IDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, testID := range testIDs {
			if sc.References(id, testFns[testID].File) {
				covered[id] = testable[id]
				break
			}
		}
	}
	uncalled := testable.Difference(covered)

	c := &DatapackCoverage{
		Name:            dp.Name,
		Testable:        testable.IDs(),
		Covered:         covered.IDs(),
		Uncalled:        uncalled.IDs(),
		CalledElsewhere: calledElsewhere.IDs(),
	}
	logging.Info("Coverage", "%s: %d of %d testable functions covered (%s)",
		c.Name, len(c.Covered), len(c.Testable), c.PercentString())
	return c, nil
}

func (a *Analyzer) locate(root string, m *datapack.Matcher) (datapack.Set, error) {
	var fns []datapack.FunctionPath
	err := datapack.Walk(root, m, func(fp datapack.FunctionPath) error {
		fns = append(fns, fp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return datapack.NewSet(fns), nil
}

func idStrings(ids []datapack.CallID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
