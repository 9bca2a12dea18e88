package cmd

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mcreport/internal/config"
	"mcreport/internal/coverage"
	"mcreport/internal/remote"
	"mcreport/internal/suite"
	"mcreport/internal/unittest"
	"mcreport/pkg/logging"
)

// rconFlags are the connection flags shared by commands that talk to a server.
type rconFlags struct {
	host string
	port int
}

func (f *rconFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.host, "host", "", "RCON host (default from configuration, localhost)")
	flags.IntVar(&f.port, "port", 0, "RCON port (default from configuration, 25575)")
}

func (f *rconFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.RCON.Host = f.host
	}
	if cmd.Flags().Changed("port") {
		cfg.RCON.Port = f.port
	}
}

// loadConfig loads the layered configuration including --config.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Error("CLI", err, "Failed to load configuration")
		return config.Config{}, err
	}
	return cfg, nil
}

// newSuites builds the report suites in report order: unit tests, then coverage.
func newSuites(cfg *config.Config, reporter unittest.Reporter) ([]suite.Suite, error) {
	runner, err := unittest.New(cfg.UnitTestOptions(remote.NewRCONDialer(cfg.RCON), reporter))
	if err != nil {
		return nil, err
	}
	analyzer, err := coverage.New(cfg.CoverageOptions())
	if err != nil {
		return nil, err
	}
	return []suite.Suite{runner, analyzer}, nil
}

// needsServer reports whether the selected suites talk to a server.
func needsServer(selected []string) bool {
	return len(selected) == 0 || slices.Contains(selected, unittest.Name)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logging.Warn("CLI", "Received interrupt signal, stopping")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
