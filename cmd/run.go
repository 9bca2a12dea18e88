package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"mcreport/internal/coverage"
	"mcreport/internal/report"
	"mcreport/internal/suite"
	"mcreport/internal/unittest"
	"mcreport/pkg/logging"
)

var (
	runOutput        string
	runTests         []string
	runAppend        bool
	runCopy          bool
	runFailOnFailure bool
	runActor         string
	runVerbose       bool
	runRCON          rconFlags
)

// errSuitesFailed makes the process exit non-zero under the fail-on-failure policy.
var errSuitesFailed = errors.New("one or more suites failed")

// copyToClipboard is swapped in tests.
var copyToClipboard = clipboard.WriteAll

var runCmd = &cobra.Command{
	Use:   "run <datapack>...",
	Short: "Run the report suites over datapacks and write a markdown report",
	Long: `Runs the report suites over one or more datapack directories and writes
the results to a markdown file.

Suites:
  Unit Tests     Runs every test function on a live server over RCON
  Coverage Test  Measures which entry-point functions the tests call

By default the command exits successfully even when tests fail, so that the
report can be published from CI. Use --fail-on-failure (or
MCREPORT_FAIL_ON_FAILURE=true) to exit non-zero instead.

The connection settings are only checked when Unit Tests is selected, so a
coverage-only run works without a reachable server.

Example usage:
  mcreport run ./datapacks/foo ./datapacks/bar
  mcreport run ./foo --tests "Coverage Test" --output coverage.md
  mcreport run ./foo --host mc.example.org --port 25575 --fail-on-failure
  mcreport run ./foo --append --copy`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Output file path (default report.md)")
	runCmd.Flags().StringSliceVar(&runTests, "tests", nil, "Suites to run, all when not specified")
	runCmd.Flags().BoolVar(&runAppend, "append", false, "Append to the output file instead of overwriting it")
	runCmd.Flags().BoolVar(&runCopy, "copy", false, "Also copy the generated markdown to the clipboard")
	runCmd.Flags().BoolVar(&runFailOnFailure, "fail-on-failure", false, "Exit non-zero when any suite fails")
	runCmd.Flags().StringVar(&runActor, "actor", "", "Entity selector to run tests as, e.g. @p")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print test durations and per-datapack totals")
	runRCON.register(runCmd.Flags())

	_ = runCmd.RegisterFlagCompletionFunc("tests", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{unittest.Name, coverage.Name}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("output") {
		cfg.Report.Output = runOutput
	}
	if cmd.Flags().Changed("tests") {
		cfg.Report.Tests = runTests
	}
	if cmd.Flags().Changed("append") {
		cfg.Report.Append = runAppend
	}
	if cmd.Flags().Changed("fail-on-failure") {
		cfg.Report.FailOnFailure = runFailOnFailure
	}
	if cmd.Flags().Changed("actor") {
		cfg.UnitTests.Actor = runActor
	}
	runRCON.apply(cmd, &cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if needsServer(cfg.Report.Tests) {
		if err := cfg.ValidateRCON(); err != nil {
			return err
		}
		if err := cfg.ResolvePassword(); err != nil {
			logging.Warn("CLI", "Could not read RCON password from keyring: %v", err)
		}
	}

	suites, err := newSuites(&cfg, unittest.NewConsoleReporter(cmd.ErrOrStderr(), runVerbose))
	if err != nil {
		return err
	}
	if _, err := suite.Select(suites, cfg.Report.Tests); err != nil {
		return err
	}

	var mirrors []io.Writer
	var copied bytes.Buffer
	if runCopy {
		mirrors = append(mirrors, &copied)
	}

	logging.Info("CLI", "Outputting to %s", cfg.Report.Output)
	doc, err := report.OpenDocument(cfg.Report.Output, cfg.Report.Append, mirrors...)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	outcome, runErr := suite.Run(ctx, suites, suite.Options{Datapacks: args, Selected: cfg.Report.Tests}, doc)
	if err := doc.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to write report: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	if runCopy {
		if err := copyToClipboard(copied.String()); err != nil {
			logging.Warn("CLI", "Could not copy report to clipboard: %v", err)
		} else {
			logging.Info("CLI", "Report copied to clipboard")
		}
	}

	status := "passed"
	if !outcome.Passed {
		status = "failed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s: %s\n", cfg.Report.Output, status)

	if cfg.Report.ExitPolicy().ExitCode(outcome.Passed) != 0 {
		return errSuitesFailed
	}
	return nil
}
