package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcreport/internal/remote"
	"mcreport/internal/suite"
)

// mockPaths points the user and project config lookups at files below a
// temporary directory and restores them when the test ends.
func mockPaths(t *testing.T) (userPath, projectPath string) {
	t.Helper()
	tempDir := t.TempDir()
	userPath = filepath.Join(tempDir, "home", userConfigDir, configFileName)
	projectPath = filepath.Join(tempDir, "work", projectConfigDir, configFileName)

	originalGetUserConfigPath := getUserConfigPath
	originalGetProjectConfigPath := getProjectConfigPath
	t.Cleanup(func() {
		getUserConfigPath = originalGetUserConfigPath
		getProjectConfigPath = originalGetProjectConfigPath
	})
	getUserConfigPath = func() (string, error) { return userPath, nil }
	getProjectConfigPath = func() (string, error) { return projectPath, nil }
	return userPath, projectPath
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"RCON_HOST", "RCON_PORT", "RCON_PWD", "RCON_TIMEOUT", "MCREPORT_FAIL_ON_FAILURE"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	mockPaths(t)
	clearEnv(t)

	loaded, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
	assert.NoError(t, loaded.Validate())
}

func TestLoadConfig_Layering(t *testing.T) {
	userPath, projectPath := mockPaths(t)
	clearEnv(t)

	writeFile(t, userPath, `
rcon:
  host: mc.example.org
  timeout: 30s
unitTests:
  actor: "@p"
`)
	writeFile(t, projectPath, `
rcon:
  port: 25580
coverage:
  tests:
    includes:
      - '.*/functions/spec/'
`)
	explicit := filepath.Join(t.TempDir(), "ci.yaml")
	writeFile(t, explicit, `
report:
  output: out/coverage.md
  failOnFailure: true
`)

	loaded, err := LoadConfig(explicit)
	require.NoError(t, err)

	assert.Equal(t, "mc.example.org", loaded.RCON.Host)
	assert.Equal(t, 25580, loaded.RCON.Port)
	assert.Equal(t, 30*time.Second, loaded.RCON.Timeout)
	assert.Equal(t, "@p", loaded.UnitTests.Actor)
	assert.Equal(t, []string{".*/functions/spec/"}, loaded.Coverage.Tests.Includes)
	assert.Equal(t, DefaultConfig().Coverage.All, loaded.Coverage.All, "untouched keys keep defaults")
	assert.Equal(t, "out/coverage.md", loaded.Report.Output)
	assert.Equal(t, suite.PolicyFailOnFailure, loaded.Report.ExitPolicy())
}

func TestLoadConfig_EnvironmentOverridesFiles(t *testing.T) {
	userPath, _ := mockPaths(t)
	clearEnv(t)

	writeFile(t, userPath, "rcon:\n  host: from-file\n  port: 1234\n")
	t.Setenv("RCON_HOST", "from-env")
	t.Setenv("RCON_PWD", "hunter2")
	t.Setenv("RCON_TIMEOUT", "2s")
	t.Setenv("MCREPORT_FAIL_ON_FAILURE", "true")

	loaded, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", loaded.RCON.Host)
	assert.Equal(t, 1234, loaded.RCON.Port)
	assert.Equal(t, "hunter2", loaded.RCON.Password)
	assert.Equal(t, 2*time.Second, loaded.RCON.Timeout)
	assert.True(t, loaded.Report.FailOnFailure)
}

func TestLoadConfig_PasswordNotReadFromYAML(t *testing.T) {
	userPath, _ := mockPaths(t)
	clearEnv(t)

	writeFile(t, userPath, "rcon:\n  password: leaked\n")
	loaded, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, loaded.RCON.Password)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		mockPaths(t)
		clearEnv(t)
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed project file", func(t *testing.T) {
		_, projectPath := mockPaths(t)
		clearEnv(t)
		writeFile(t, projectPath, "rcon: [not, a, map]\n")
		_, err := LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("bad env value", func(t *testing.T) {
		mockPaths(t)
		clearEnv(t)
		t.Setenv("RCON_PORT", "not-a-number")
		_, err := LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("unresolvable user path is only a warning", func(t *testing.T) {
		mockPaths(t)
		clearEnv(t)
		getUserConfigPath = func() (string, error) { return "", errors.New("no home") }
		_, err := LoadConfig("")
		assert.NoError(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no workers", func(c *Config) { c.Coverage.Workers = 0 }},
		{"no attempts", func(c *Config) { c.UnitTests.PollAttempts = 0 }},
		{"no interval", func(c *Config) { c.UnitTests.PollInterval = 0 }},
		{"no parallelism", func(c *Config) { c.UnitTests.Parallel = 0 }},
		{"no status command", func(c *Config) { c.UnitTests.StatusCommand = "" }},
		{"bad coverage pattern", func(c *Config) { c.Coverage.Tests.Includes = []string{"("} }},
		{"bad content pattern", func(c *Config) { c.UnitTests.Content.Includes = []string{"["} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestValidateRCON(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.RCON.Port = 0 }},
		{"port too high", func(c *Config) { c.RCON.Port = 70000 }},
		{"no host", func(c *Config) { c.RCON.Host = "" }},
		{"no timeout", func(c *Config) { c.RCON.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			assert.ErrorIs(t, c.ValidateRCON(), ErrInvalidConfig)
			assert.NoError(t, c.Validate(), "connection settings do not affect offline validation")
		})
	}

	c := DefaultConfig()
	assert.NoError(t, c.ValidateRCON())
}

func TestResolvePassword(t *testing.T) {
	original := lookupPassword
	t.Cleanup(func() { lookupPassword = original })

	var asked string
	lookupPassword = func(address string) (string, error) {
		asked = address
		return "stored", nil
	}

	c := DefaultConfig()
	require.NoError(t, c.ResolvePassword())
	assert.Equal(t, "localhost:25575", asked)
	assert.Equal(t, "stored", c.RCON.Password)

	asked = ""
	c.RCON.Password = "explicit"
	require.NoError(t, c.ResolvePassword())
	assert.Empty(t, asked, "explicit passwords skip the keyring")

	lookupPassword = func(string) (string, error) { return "", remote.ErrNoCredential }
	c = DefaultConfig()
	require.NoError(t, c.ResolvePassword())
	assert.Empty(t, c.RCON.Password)

	lookupPassword = func(string) (string, error) { return "", errors.New("keyring locked") }
	assert.Error(t, c.ResolvePassword())
}

func TestOptionsBuilders(t *testing.T) {
	c := DefaultConfig()
	c.UnitTests.Actor = "@a"

	cov := c.CoverageOptions()
	assert.Equal(t, c.Coverage.Tests, cov.Tests)
	assert.Equal(t, c.Coverage.Workers, cov.Workers)
	assert.True(t, cov.Datapack.LanternLoad)

	ut := c.UnitTestOptions(nil, nil)
	assert.Equal(t, "@a", ut.Actor)
	assert.Equal(t, c.UnitTests.PollAttempts, ut.PollAttempts)
	assert.Equal(t, c.UnitTests.Content, ut.Content)
}
