// Package unittest runs datapack test functions on a live server over RCON
// and reports a PASS, FAIL or SKIP outcome for each of them.
//
// A test function signals its verdict through a scoreboard value read back
// with a status command: 1 means passed, 2 and 3 mean the test is still
// running, anything else means it failed.
package unittest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"mcreport/internal/datapack"
	"mcreport/internal/remote"
	"mcreport/internal/report"
	"mcreport/pkg/logging"
)

// Name is the suite name of the runner.
const Name = "Unit Tests"

const (
	// DefaultStatusCommand reads the pass flag the test library maintains.
	DefaultStatusCommand = "scoreboard players get $passed unittest"
	DefaultPollAttempts  = 3
	DefaultPollInterval  = time.Second

	reloadCommand = "reload"
	interrupted   = "interrupted"
	aborted       = "session aborted"
)

const (
	statusPassed  = 1
	statusRunning = 2
	statusWaiting = 3
)

var statusPattern = regexp.MustCompile(`has (-?\d+)`)

// Options configures a Runner. Every field is explicit; zero values are
// rejected where they would make the run meaningless.
type Options struct {
	// Tests selects the test functions of a datapack.
	Tests datapack.Filter
	// Content further selects test files by their contents. Rejected files are skipped.
	Content ContentFilter
	Dialer  remote.Dialer
	// Actor, when set, runs every test as that entity.
	Actor string
	// StatusCommand reads the scoreboard value holding a test's verdict.
	StatusCommand string
	// PollAttempts is the total number of status observations per test.
	PollAttempts int
	// PollInterval is the wait between two observations of a running test.
	PollInterval time.Duration
	// Parallel bounds how many datapacks run at once. Values below 1 mean 1.
	Parallel int
	// Reporter receives progress. Nil means NopReporter.
	Reporter Reporter
	Datapack datapack.Options
}

// Runner is the unit test suite.
type Runner struct {
	opts    Options
	tests   *datapack.Matcher
	content *ContentMatcher
}

// New validates opts and returns a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Dialer == nil {
		return nil, errors.New("unit tests need a dialer")
	}
	if opts.StatusCommand == "" {
		return nil, errors.New("unit tests need a status command")
	}
	if opts.PollAttempts < 1 {
		return nil, fmt.Errorf("poll attempts must be at least 1, got %d", opts.PollAttempts)
	}
	if opts.PollInterval < 0 {
		return nil, fmt.Errorf("poll interval must not be negative, got %v", opts.PollInterval)
	}
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}
	if opts.Reporter == nil {
		opts.Reporter = NopReporter{}
	}

	tests, err := opts.Tests.Compile()
	if err != nil {
		return nil, fmt.Errorf("unit test filter: %w", err)
	}
	content, err := opts.Content.Compile()
	if err != nil {
		return nil, fmt.Errorf("unit test content filter: %w", err)
	}
	return &Runner{opts: opts, tests: tests, content: content}, nil
}

// Name implements suite.Suite.
func (r *Runner) Name() string {
	return Name
}

// Run implements suite.Suite. It passes when no test failed.
func (r *Runner) Run(ctx context.Context, dirs []string) (*report.Result, error) {
	results, err := r.Execute(ctx, dirs)
	if err != nil {
		return nil, err
	}

	summary := report.NewTable("Datapack", "Failed", "Passed", "Skipped")
	details := report.NewTable("Datapack", "Failed", "Skipped")
	passed := true
	for _, res := range results {
		if len(res.Results) == 0 {
			continue
		}
		failed, skipped := res.Count(OutcomeFail), res.Count(OutcomeSkip)
		summary.Append(res.Name, failed, res.Count(OutcomePass), skipped)
		if failed+skipped > 0 {
			details.Append(res.Name, report.Cell(res.IDs(OutcomeFail)), report.Cell(res.IDs(OutcomeSkip)))
		}
		if failed > 0 {
			passed = false
		}
	}

	return &report.Result{Name: Name, Summary: summary, Passed: passed, Details: details}, nil
}

// Execute runs the tests of every datapack and returns one result per
// datapack, in input order. All datapacks are validated before any session
// is opened. Test failures are part of the results, never errors.
func (r *Runner) Execute(ctx context.Context, dirs []string) ([]*DatapackResult, error) {
	packs := make([]*datapack.Datapack, len(dirs))
	for i, dir := range dirs {
		dp, err := datapack.Open(dir, r.opts.Datapack)
		if err != nil {
			return nil, err
		}
		packs[i] = dp
	}

	out := make([]*DatapackResult, len(packs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallel)
	for i, dp := range packs {
		g.Go(func() error {
			res, err := r.runDatapack(gctx, dp)
			if err != nil {
				return fmt.Errorf("datapack %s: %w", dp.Name, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// runDatapack returns an error only when the datapack's tests cannot be
// listed. Everything that happens on the server ends up in the result.
func (r *Runner) runDatapack(ctx context.Context, dp *datapack.Datapack) (*DatapackResult, error) {
	res := &DatapackResult{Name: dp.Name}

	var fns []datapack.FunctionPath
	err := datapack.Walk(dp.Path, r.tests, func(fp datapack.FunctionPath) error {
		fns = append(fns, fp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	set := datapack.NewSet(fns)

	var queued []datapack.CallID
	var skipped []TestResult
	for _, id := range set.IDs() {
		content, err := os.ReadFile(set[id].File)
		if err != nil {
			logging.Warn("UnitTest", "Cannot read %s: %v", set[id].File, err)
			skipped = append(skipped, TestResult{ID: id, Outcome: OutcomeSkip, Diagnostic: "unreadable test file"})
			continue
		}
		if !r.content.Match(content) {
			logging.Debug("UnitTest", "%s rejected by content filter", id)
			skipped = append(skipped, TestResult{ID: id, Outcome: OutcomeSkip, Diagnostic: "filtered by content"})
			continue
		}
		queued = append(queued, id)
	}

	if len(queued)+len(skipped) == 0 {
		logging.Debug("UnitTest", "%s has no tests", dp.Name)
		return res, nil
	}

	r.opts.Reporter.ReportDatapackStart(dp.Name, len(queued)+len(skipped))
	for _, s := range skipped {
		r.record(res, s)
	}
	if len(queued) > 0 {
		r.runSession(ctx, res, queued)
	}
	r.opts.Reporter.ReportDatapackResult(res)
	logging.Info("UnitTest", "%s: %d passed, %d failed, %d skipped", dp.Name,
		res.Count(OutcomePass), res.Count(OutcomeFail), res.Count(OutcomeSkip))
	return res, nil
}

// runSession executes queued on one session, in order.
func (r *Runner) runSession(ctx context.Context, res *DatapackResult, queued []datapack.CallID) {
	sess, err := r.opts.Dialer.Dial(ctx)
	if err != nil {
		logging.Error("UnitTest", err, "Failed to open session for %s", res.Name)
		r.failAll(res, queued, err.Error())
		return
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logging.Warn("UnitTest", "Failed to close session for %s: %v", res.Name, err)
		}
	}()

	if _, err := sess.Command(ctx, reloadCommand); err != nil {
		logging.Error("UnitTest", err, "Reload failed for %s", res.Name)
		r.failAll(res, queued, err.Error())
		return
	}

	for i, id := range queued {
		if ctx.Err() != nil {
			r.skipAll(res, queued[i:], interrupted)
			return
		}
		result, ok := r.runTest(ctx, sess, id)
		r.record(res, result)
		if !ok {
			reason := aborted
			if ctx.Err() != nil {
				reason = interrupted
			}
			r.skipAll(res, queued[i+1:], reason)
			return
		}
	}
}

// runTest invokes one test and polls for its verdict. ok is false when the
// session can no longer be used.
func (r *Runner) runTest(ctx context.Context, sess remote.Session, id datapack.CallID) (result TestResult, ok bool) {
	start := time.Now()
	result = TestResult{ID: id, Outcome: OutcomeFail}
	defer func() { result.Duration = time.Since(start) }()

	transportFailure := func(err error) (TestResult, bool) {
		if ctx.Err() != nil {
			result.Diagnostic = interrupted
		} else {
			result.Diagnostic = err.Error()
		}
		return result, false
	}

	if _, err := sess.Command(ctx, r.invocation(id)); err != nil {
		return transportFailure(err)
	}

	for attempt := 1; ; attempt++ {
		reply, err := sess.Command(ctx, r.opts.StatusCommand)
		if err != nil {
			return transportFailure(err)
		}
		result.Attempts = attempt

		status, parsed := parseStatus(reply)
		switch {
		case !parsed:
			result.Diagnostic = fmt.Sprintf("unreadable status: %s", reply)
			return result, true
		case status == statusPassed:
			result.Outcome = OutcomePass
			return result, true
		case status != statusRunning && status != statusWaiting:
			result.Diagnostic = fmt.Sprintf("status %d: %s", status, reply)
			return result, true
		case attempt >= r.opts.PollAttempts:
			result.Diagnostic = fmt.Sprintf("no result after %d attempts (status %d): %s", attempt, status, reply)
			return result, true
		}

		logging.Debug("UnitTest", "%s still running (status %d), attempt %d of %d", id, status, attempt, r.opts.PollAttempts)
		if err := wait(ctx, r.opts.PollInterval); err != nil {
			result.Diagnostic = interrupted
			return result, false
		}
	}
}

func (r *Runner) invocation(id datapack.CallID) string {
	if r.opts.Actor != "" {
		return fmt.Sprintf("execute as %s run function %s", r.opts.Actor, id)
	}
	return "function " + string(id)
}

func (r *Runner) record(res *DatapackResult, result TestResult) {
	res.Results = append(res.Results, result)
	r.opts.Reporter.ReportTestResult(res.Name, result)
}

func (r *Runner) failAll(res *DatapackResult, ids []datapack.CallID, diagnostic string) {
	for _, id := range ids {
		r.record(res, TestResult{ID: id, Outcome: OutcomeFail, Diagnostic: diagnostic})
	}
}

func (r *Runner) skipAll(res *DatapackResult, ids []datapack.CallID, diagnostic string) {
	for _, id := range ids {
		r.record(res, TestResult{ID: id, Outcome: OutcomeSkip, Diagnostic: diagnostic})
	}
}

// parseStatus extracts n from a "... has n ..." scoreboard reply.
func parseStatus(reply string) (int, bool) {
	m := statusPattern.FindStringSubmatch(reply)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
