package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mcreport/internal/datapack"
)

var functionsTestsOnly bool

var functionsCmd = &cobra.Command{
	Use:   "functions <datapack>",
	Short: "List the function call ids of a datapack",
	Long: `Validates a datapack and prints the call id of every function it defines,
one per line, sorted.

With --tests-only only the functions selected by the coverage test filter
are listed, which is useful to check which files the coverage suite treats
as tests.`,
	Args: cobra.ExactArgs(1),
	RunE: runFunctions,
}

func init() {
	rootCmd.AddCommand(functionsCmd)

	functionsCmd.Flags().BoolVar(&functionsTestsOnly, "tests-only", false, "Only list test functions")
}

func runFunctions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dp, err := datapack.Open(args[0], cfg.Datapack)
	if err != nil {
		return err
	}

	var filter datapack.Filter
	if functionsTestsOnly {
		filter = cfg.Coverage.Tests
	}
	fns, err := datapack.Locate(dp.Path, filter)
	if err != nil {
		return err
	}

	for _, id := range datapack.NewSet(fns).IDs() {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
