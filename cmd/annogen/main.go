package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/annogen/cmd/annogen/commands"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/logger"
)

var rootCmd = &cobra.Command{
	Use:   "annogen",
	Short: "annogen - annotation-driven C++ code generator",
	Long: `annogen - annotation-driven C++ code generator.

annogen parses C++ headers, reads the annotations attached to namespaces,
classes, structs, fields, methods, functions and enums, and writes generated
companion headers with accessors and reflection registration.

Available commands:
  generate - Generate artifacts for annotated headers
  check    - Verify that generated artifacts are up to date
  watch    - Regenerate artifacts whenever a header changes
  entities - Print the entity model parsed from a header
  am       - Manage annogen configuration

Examples:
  annogen generate Source -o Generated
  annogen check Source
  annogen entities Source/Light.hpp --format yaml
  annogen am init`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Commands loading the configuration reinitialize from it
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(verbosity, jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.EntitiesCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err.Error())
		for _, hint := range errors.GetAllHints(err) {
			pterm.Info.Println(hint)
		}
		logger.Cleanup()
		os.Exit(1)
	}
}
