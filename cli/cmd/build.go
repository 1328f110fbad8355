package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/jsbundle/cli/bundler"
)

var buildReport bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the bundle",
	Long: `Concatenate the manifest into a single script.

Each file is read in manifest order, its import lines are removed and its
export keywords are stripped. Files that do not exist are skipped with a
warning. The bundle is written in one go, replacing any previous bundle;
its directory must already exist.

Examples:
  jsbundle build
  jsbundle build --root ./game --out dist/game.js
  jsbundle build --strict --report
  jsbundle build --report -o json`,
	PreRunE: loadProject,
	RunE:    runBuild,
}

func init() {
	addBuildFlags(buildCmd)
	buildCmd.Flags().BoolVar(&buildReport, "report", false, "print a per-file size report")
}

func runBuild(cmd *cobra.Command, args []string) error {
	result, err := newBundler().Build(cmd.Context(), cfg.Manifest)
	if err != nil {
		return err
	}

	if buildReport {
		return printReport(cmd, result)
	}
	return nil
}

// printReport renders a build result in the selected output format
func printReport(cmd *cobra.Command, result *bundler.Result) error {
	f := GetFormatter()
	if f.Quiet {
		return nil
	}
	if f.Structured() {
		return f.Print(result)
	}
	bundler.DisplayReport(cmd.OutOrStdout(), result, true)
	return nil
}
