package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"mcreport/pkg/logging"
)

var (
	configPath string
	debug      bool
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcreport",
	Short: "Report test coverage and in-game unit test results for Minecraft datapacks",
	Long: `mcreport analyses Minecraft datapacks and writes a markdown report.

It measures how many of a datapack's entry-point functions are called by its
test functions, and runs those tests on a live server over RCON, reporting
PASS, FAIL or SKIP for each of them.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid datapacks, failed connections)
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if debug {
			level = logging.LevelDebug
		}
		// stdout carries reports and, for serve, the MCP stream.
		logging.InitForCLI(level, os.Stderr)
		return nil
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcreport version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file layered over the user and project configuration")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
