package config

import (
	"mcreport/internal/datapack"
	"mcreport/internal/remote"
	"mcreport/internal/unittest"
)

const (
	// UnitTestPattern matches test_*.mcfunction files below a functions/test directory.
	UnitTestPattern = `.*/functions/test/(.*/)?test_[^/]*\.mcfunction`
	// ClientTestPattern matches client_test_*.mcfunction files below a functions/test directory.
	ClientTestPattern = `.*/functions/test/(.*/)?client_test_[^/]*\.mcfunction`
	// ClientPattern matches any path mentioning client.
	ClientPattern = `.*client`
	// TestSetupPattern marks a function as a unittest library test case.
	TestSetupPattern = `function unittest:api/test_suite/setup`

	defaultOutput = "report.md"
)

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		RCON: remote.Config{
			Host:    "localhost",
			Port:    remote.DefaultPort,
			Timeout: remote.DefaultTimeout,
		},
		Datapack: datapack.DefaultOptions(),
		Coverage: CoverageConfig{
			All:     datapack.Filter{Excludes: []string{ClientPattern}},
			Tests:   datapack.Filter{Includes: []string{UnitTestPattern, ClientTestPattern}},
			Workers: 4,
		},
		UnitTests: UnitTestConfig{
			Tests: datapack.Filter{
				Includes: []string{UnitTestPattern},
				Excludes: []string{ClientPattern, `.*/unittest/`, `.*/_[^/]*\.mcfunction`},
			},
			Content:       unittest.ContentFilter{Includes: []string{TestSetupPattern}},
			StatusCommand: unittest.DefaultStatusCommand,
			PollAttempts:  unittest.DefaultPollAttempts,
			PollInterval:  unittest.DefaultPollInterval,
			Parallel:      1,
		},
		Report: ReportConfig{
			Output: defaultOutput,
		},
	}
}
