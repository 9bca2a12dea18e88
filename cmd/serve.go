package cmd

import (
	"github.com/spf13/cobra"

	"mcreport/internal/agent"
	"mcreport/internal/unittest"
	"mcreport/pkg/logging"
)

var serveRCON rconFlags

// serveCmd exposes the report suites to AI assistants over MCP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report suites over MCP (stdio transport)",
	Long: `Starts an MCP server on stdin and stdout so that AI assistants can run the
report suites and inspect datapacks.

Tools:
  list_suites     Names of the available suites
  run_suites      Runs suites over datapacks and returns the markdown report
  list_functions  Lists the call ids of a datapack's functions

Logs are written to stderr. Configure the command in your assistant's MCP
settings, for example:

  {"command": "mcreport", "args": ["serve"]}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveRCON.register(serveCmd.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	serveRCON.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidateRCON(); err != nil {
		return err
	}
	if err := cfg.ResolvePassword(); err != nil {
		logging.Warn("CLI", "Could not read RCON password from keyring: %v", err)
	}

	suites, err := newSuites(&cfg, unittest.NopReporter{})
	if err != nil {
		return err
	}

	srv := agent.NewServer(agent.Options{
		Suites:   suites,
		Datapack: cfg.Datapack,
		Tests:    cfg.Coverage.Tests,
		Version:  rootCmd.Version,
	})
	return srv.ServeStdio()
}
