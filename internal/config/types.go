package config

import (
	"time"

	"mcreport/internal/datapack"
	"mcreport/internal/remote"
	"mcreport/internal/suite"
	"mcreport/internal/unittest"
)

// Config is the top-level configuration structure for mcreport.
type Config struct {
	RCON      remote.Config    `yaml:"rcon"`
	Datapack  datapack.Options `yaml:"datapack"`
	Coverage  CoverageConfig   `yaml:"coverage"`
	UnitTests UnitTestConfig   `yaml:"unitTests"`
	Report    ReportConfig     `yaml:"report"`
}

// CoverageConfig configures the coverage analyzer.
type CoverageConfig struct {
	All     datapack.Filter `yaml:"all"`     // Functions considered at all
	Tests   datapack.Filter `yaml:"tests"`   // Test functions among them
	Workers int             `yaml:"workers"` // Datapacks analysed concurrently
}

// UnitTestConfig configures in-game test execution.
type UnitTestConfig struct {
	Tests         datapack.Filter        `yaml:"tests"`
	Content       unittest.ContentFilter `yaml:"content"`
	Actor         string                 `yaml:"actor,omitempty"` // Entity selector tests run as
	StatusCommand string                 `yaml:"statusCommand"`
	PollAttempts  int                    `yaml:"pollAttempts"`
	PollInterval  time.Duration          `yaml:"pollInterval"`
	Parallel      int                    `yaml:"parallel"` // Datapacks tested concurrently, each on its own session
}

// ReportConfig configures the generated document and the exit status.
type ReportConfig struct {
	Output        string   `yaml:"output"`
	Append        bool     `yaml:"append"`
	Tests         []string `yaml:"tests,omitempty"` // Suite names to run, empty for all
	FailOnFailure bool     `yaml:"failOnFailure" env:"MCREPORT_FAIL_ON_FAILURE"`
}

// ExitPolicy maps FailOnFailure onto a suite.ExitPolicy.
func (r ReportConfig) ExitPolicy() suite.ExitPolicy {
	if r.FailOnFailure {
		return suite.PolicyFailOnFailure
	}
	return suite.PolicyAlwaysSucceed
}
