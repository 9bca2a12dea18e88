package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"mcreport/internal/coverage"
	"mcreport/internal/remote"
	"mcreport/internal/unittest"
	"mcreport/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd
var lookupPassword = func(address string) (string, error) {
	return remote.NewKeyringStore().Get(address)
}

const (
	userConfigDir    = ".config/mcreport"
	projectConfigDir = ".mcreport"
	configFileName   = "config.yaml"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig layers the default, user, project and explicit configuration
// files and the environment. explicitPath may be empty; when set the file
// must exist.
func LoadConfig(explicitPath string) (Config, error) {
	config := DefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine user config path: %v", err)
	} else if err := overlayIfExists(&config, userConfigPath); err != nil {
		return Config{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine project config path: %v", err)
	} else if err := overlayIfExists(&config, projectConfigPath); err != nil {
		return Config{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	if explicitPath != "" {
		if err := overlayFile(&config, explicitPath); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", explicitPath, err)
		}
	}

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("error reading environment: %w", err)
	}

	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func overlayIfExists(config *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return overlayFile(config, path)
}

// overlayFile decodes a YAML file on top of config. Keys absent from the file
// keep their current value.
func overlayFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return err
	}
	logging.Debug("Config", "Loaded %s", path)
	return nil
}

// ResolvePassword fills an empty RCON password from the OS keyring. A missing
// keyring entry is not an error: the server may not need a password.
func (c *Config) ResolvePassword() error {
	if c.RCON.Password != "" {
		return nil
	}
	pwd, err := lookupPassword(c.RCON.Address())
	if err != nil {
		if errors.Is(err, remote.ErrNoCredential) {
			logging.Debug("Config", "No stored password for %s", c.RCON.Address())
			return nil
		}
		return err
	}
	c.RCON.Password = pwd
	return nil
}

// Validate checks value ranges and compiles every pattern. The connection
// settings are checked separately by ValidateRCON, since only runs that talk
// to a server need them.
func (c *Config) Validate() error {
	var errs []error
	if c.Coverage.Workers < 1 {
		errs = append(errs, fmt.Errorf("coverage workers must be at least 1, got %d", c.Coverage.Workers))
	}
	if c.UnitTests.PollAttempts < 1 {
		errs = append(errs, fmt.Errorf("unit test poll attempts must be at least 1, got %d", c.UnitTests.PollAttempts))
	}
	if c.UnitTests.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("unit test poll interval must be positive, got %v", c.UnitTests.PollInterval))
	}
	if c.UnitTests.Parallel < 1 {
		errs = append(errs, fmt.Errorf("unit test parallelism must be at least 1, got %d", c.UnitTests.Parallel))
	}
	if c.UnitTests.StatusCommand == "" {
		errs = append(errs, errors.New("unit test status command must be set"))
	}
	filters := []struct {
		name    string
		compile func() error
	}{
		{"coverage.all", func() error { _, err := c.Coverage.All.Compile(); return err }},
		{"coverage.tests", func() error { _, err := c.Coverage.Tests.Compile(); return err }},
		{"unitTests.tests", func() error { _, err := c.UnitTests.Tests.Compile(); return err }},
		{"unitTests.content", func() error { _, err := c.UnitTests.Content.Compile(); return err }},
	}
	for _, f := range filters {
		if err := f.compile(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
		}
	}
	return joinInvalid(errs)
}

// ValidateRCON checks the server connection settings.
func (c *Config) ValidateRCON() error {
	var errs []error
	if c.RCON.Port < 1 || c.RCON.Port > 65535 {
		errs = append(errs, fmt.Errorf("rcon port %d out of range", c.RCON.Port))
	}
	if c.RCON.Host == "" {
		errs = append(errs, errors.New("rcon host must be set"))
	}
	if c.RCON.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("rcon timeout must be positive, got %v", c.RCON.Timeout))
	}
	return joinInvalid(errs)
}

func joinInvalid(errs []error) error {
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// CoverageOptions builds the analyzer options.
func (c *Config) CoverageOptions() coverage.Options {
	return coverage.Options{
		All:      c.Coverage.All,
		Tests:    c.Coverage.Tests,
		Workers:  c.Coverage.Workers,
		Datapack: c.Datapack,
	}
}

// UnitTestOptions builds the runner options around a dialer and reporter.
func (c *Config) UnitTestOptions(dialer remote.Dialer, reporter unittest.Reporter) unittest.Options {
	return unittest.Options{
		Tests:         c.UnitTests.Tests,
		Content:       c.UnitTests.Content,
		Dialer:        dialer,
		Actor:         c.UnitTests.Actor,
		StatusCommand: c.UnitTests.StatusCommand,
		PollAttempts:  c.UnitTests.PollAttempts,
		PollInterval:  c.UnitTests.PollInterval,
		Parallel:      c.UnitTests.Parallel,
		Reporter:      reporter,
		Datapack:      c.Datapack,
	}
}
