package bundler

import (
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// CheckResult holds the diagnostics esbuild produced for a bundle
type CheckResult struct {
	Errors   []string `json:"errors" yaml:"errors"`
	Warnings []string `json:"warnings" yaml:"warnings"`
}

// OK reports whether the bundle parsed without errors
func (r *CheckResult) OK() bool {
	return len(r.Errors) == 0
}

// String joins the formatted errors for use in an error message
func (r *CheckResult) String() string {
	return strings.TrimSpace(strings.Join(r.Errors, "\n"))
}

// Check parses a bundle as a classic script with esbuild. The code is not
// rewritten; the transform output is discarded and only diagnostics are kept.
// sourcefile names the bundle in the formatted messages.
func Check(code []byte, sourcefile string) *CheckResult {
	result := api.Transform(string(code), api.TransformOptions{
		Loader:     api.LoaderJS,
		Sourcefile: sourcefile,
		Target:     api.ESNext,
		LogLevel:   api.LogLevelSilent,
	})

	return &CheckResult{
		Errors: api.FormatMessages(result.Errors, api.FormatMessagesOptions{
			Kind: api.ErrorMessage,
		}),
		Warnings: api.FormatMessages(result.Warnings, api.FormatMessagesOptions{
			Kind: api.WarningMessage,
		}),
	}
}
