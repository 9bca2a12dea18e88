package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"mcreport/internal/datapack/datapacktest"
)

// isolate points config discovery at an empty home and working directory and
// clears the environment the loader reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	for _, name := range []string{"RCON_HOST", "RCON_PORT", "RCON_PWD", "RCON_TIMEOUT", "MCREPORT_FAIL_ON_FAILURE"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	keyring.MockInit()
	return dir
}

// resetFlags restores every flag below cmd to its default so that global
// commands can be executed more than once.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() {
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), err
}

func coveragePack(t *testing.T, dir string) string {
	t.Helper()
	p := datapacktest.NewIn(t, dir, "foo", "ns")
	p.Function("ns:api/a", "say a")
	p.Function("ns:test/test_a", "function ns:api/a")
	return p.Root
}

func TestRun_CoverageOnly(t *testing.T) {
	dir := isolate(t)
	pack := coveragePack(t, dir)
	output := filepath.Join(dir, "out", "coverage.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(output), 0o755))

	stdout, err := executeCommand(t, "run", pack, "--tests", "Coverage Test", "-o", output)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Report written to "+output+": passed")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "### Coverage Test")
	assert.Contains(t, text, "Foo")
	assert.Contains(t, text, "50%")
	assert.Contains(t, text, "ns:load")
	assert.NotContains(t, text, "### Unit Tests")
}

func TestRun_CoverageOnlyIgnoresConnectionSettings(t *testing.T) {
	dir := isolate(t)
	pack := coveragePack(t, dir)

	_, err := executeCommand(t, "run", pack, "--tests", "Coverage Test", "--host", "", "--port", "70000")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "report.md"))
}

func TestRun_Append(t *testing.T) {
	dir := isolate(t)
	pack := coveragePack(t, dir)
	output := filepath.Join(dir, "report.md")
	require.NoError(t, os.WriteFile(output, []byte("# Release notes\n"), 0o644))

	_, err := executeCommand(t, "run", pack, "--tests", "Coverage Test", "--append")
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Regexp(t, `^# Release notes\n`, string(data))
	assert.Contains(t, string(data), "### Coverage Test")
}

func TestRun_Copy(t *testing.T) {
	dir := isolate(t)
	pack := coveragePack(t, dir)

	original := copyToClipboard
	t.Cleanup(func() { copyToClipboard = original })
	var copied string
	copyToClipboard = func(text string) error {
		copied = text
		return nil
	}

	_, err := executeCommand(t, "run", pack, "--tests", "Coverage Test", "--copy")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "report.md"))
	require.NoError(t, err)
	assert.Equal(t, string(data), copied)
}

func TestRun_CopyFailureIsNotFatal(t *testing.T) {
	dir := isolate(t)
	pack := coveragePack(t, dir)

	original := copyToClipboard
	t.Cleanup(func() { copyToClipboard = original })
	copyToClipboard = func(string) error { return errors.New("no clipboard") }

	_, err := executeCommand(t, "run", pack, "--tests", "Coverage Test", "--copy")
	assert.NoError(t, err)
}

func TestRun_ExitPolicy(t *testing.T) {
	dir := isolate(t)
	p := datapacktest.NewIn(t, dir, "foo", "ns")
	p.Function("ns:test/test_a", "function unittest:api/test_suite/setup", "say hi")
	// Nothing listens on port 1, so every unit test fails to connect.
	t.Setenv("RCON_PWD", "secret")
	args := []string{"run", p.Root, "--tests", "Unit Tests", "--host", "127.0.0.1", "--port", "1"}

	stdout, err := executeCommand(t, args...)
	require.NoError(t, err, "tests failing does not fail the command by default")
	assert.Contains(t, stdout, ": failed")

	_, err = executeCommand(t, append(args, "--fail-on-failure")...)
	assert.ErrorIs(t, err, errSuitesFailed)

	t.Setenv("MCREPORT_FAIL_ON_FAILURE", "true")
	_, err = executeCommand(t, args...)
	assert.ErrorIs(t, err, errSuitesFailed)
}

func TestRun_Errors(t *testing.T) {
	t.Run("unknown suite writes nothing", func(t *testing.T) {
		dir := isolate(t)
		pack := coveragePack(t, dir)
		_, err := executeCommand(t, "run", pack, "--tests", "Lint")
		require.Error(t, err)
		assert.NoFileExists(t, filepath.Join(dir, "report.md"))
	})

	t.Run("invalid datapack", func(t *testing.T) {
		dir := isolate(t)
		_, err := executeCommand(t, "run", filepath.Join(dir, "missing"), "--tests", "Coverage Test")
		assert.Error(t, err)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		dir := isolate(t)
		pack := coveragePack(t, dir)
		_, err := executeCommand(t, "run", pack, "--port", "70000")
		assert.Error(t, err)
	})

	t.Run("no datapacks", func(t *testing.T) {
		isolate(t)
		_, err := executeCommand(t, "run")
		assert.Error(t, err)
	})
}

func TestFunctions(t *testing.T) {
	dir := isolate(t)
	pack := coveragePack(t, dir)

	stdout, err := executeCommand(t, "functions", pack)
	require.NoError(t, err)
	assert.Equal(t, "ns:api/a\nns:load\nns:test/test_a\n", stdout)

	stdout, err = executeCommand(t, "functions", pack, "--tests-only")
	require.NoError(t, err)
	assert.Equal(t, "ns:test/test_a\n", stdout)

	_, err = executeCommand(t, "functions", filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

type memoryStore map[string]string

func (m memoryStore) Set(address, password string) error {
	m[address] = password
	return nil
}

func (m memoryStore) Delete(address string) error {
	delete(m, address)
	return nil
}

func TestPassword(t *testing.T) {
	isolate(t)
	store := memoryStore{}
	original := passwordStore
	t.Cleanup(func() { passwordStore = original })
	passwordStore = func() credentialStore { return store }

	stdout, err := executeCommand(t, "password", "set", "--password", "hunter2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "localhost:25575")
	assert.Equal(t, "hunter2", store["localhost:25575"])

	rootCmd.SetIn(bytes.NewBufferString("from-stdin\n"))
	_, err = executeCommand(t, "password", "set", "--host", "mc.example.org", "--port", "25580")
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", store["mc.example.org:25580"])

	_, err = executeCommand(t, "password", "clear", "--host", "mc.example.org", "--port", "25580")
	require.NoError(t, err)
	assert.NotContains(t, store, "mc.example.org:25580")

	rootCmd.SetIn(bytes.NewBufferString("\n"))
	_, err = executeCommand(t, "password", "set")
	assert.Error(t, err, "empty passwords are rejected")
}
