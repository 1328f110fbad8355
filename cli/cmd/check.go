package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/jsbundle/cli/bundler"
)

// checkOutput is the structured form of a check
type checkOutput struct {
	Output   string          `json:"output" yaml:"output"`
	OK       bool            `json:"ok" yaml:"ok"`
	Errors   []string        `json:"errors" yaml:"errors"`
	Warnings []string        `json:"warnings" yaml:"warnings"`
	Bundle   *bundler.Result `json:"bundle" yaml:"bundle"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Build in memory and report syntax errors",
	Long: `Render the bundle without writing it and parse the result as a classic
script. Reports syntax errors such as a class declared in two files, which
would otherwise only surface in the browser.

Exits non-zero when errors are found.

Examples:
  jsbundle check
  jsbundle check -o json`,
	PreRunE: loadProject,
	RunE:    runCheck,
}

func init() {
	addBuildFlags(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	b := newBundler()
	code, result, err := b.Render(cmd.Context(), cfg.Manifest)
	if err != nil {
		return err
	}

	check := bundler.Check(code, b.Output())

	f := GetFormatter()
	if f.Structured() {
		if err := f.Print(checkOutput{
			Output:   b.Output(),
			OK:       check.OK(),
			Errors:   check.Errors,
			Warnings: check.Warnings,
			Bundle:   result,
		}); err != nil {
			return err
		}
	} else if !f.Quiet {
		bundler.DisplayCheck(cmd.OutOrStdout(), b.Output(), check)
	}

	if !check.OK() {
		return fmt.Errorf("%s has %d syntax errors", b.Output(), len(check.Errors))
	}
	return nil
}
