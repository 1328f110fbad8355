package bundler

import (
	"fmt"
	"io"
	"strings"
)

// DisplayReport prints a per-file breakdown of a bundle
func DisplayReport(w io.Writer, result *Result, showDetails bool) {
	_, _ = fmt.Fprintf(w, "\n=== Bundle: %s ===\n", result.Output)
	_, _ = fmt.Fprintf(w, "Total bundle size: %s (%d of %d files)\n",
		formatBytesHuman(result.TotalBytes), result.Bundled(), len(result.Files))

	if len(result.Files) > 0 {
		_, _ = fmt.Fprintln(w, "\nBundle breakdown:")

		// The manifest order is the load order, keep it
		maxFiles := 10
		if showDetails {
			maxFiles = len(result.Files)
		}

		maxPathLen := 0
		for i, file := range result.Files {
			if i >= maxFiles {
				break
			}
			displayPath := truncatePath(file.Path, 50)
			if len(displayPath) > maxPathLen {
				maxPathLen = len(displayPath)
			}
		}

		for i, file := range result.Files {
			if i >= maxFiles {
				remaining := len(result.Files) - maxFiles
				_, _ = fmt.Fprintf(w, "  ... and %d more files\n", remaining)
				break
			}

			displayPath := truncatePath(file.Path, 50)
			padding := strings.Repeat(" ", maxPathLen-len(displayPath))
			if !file.Found {
				_, _ = fmt.Fprintf(w, "  %s%s  %8s\n", displayPath, padding, "missing")
				continue
			}
			_, _ = fmt.Fprintf(w, "  %s%s  %8s  %5.1f%%\n",
				displayPath,
				padding,
				formatBytesHuman(file.OutputBytes),
				Share(file, result.TotalBytes),
			)
		}
	}

	if missing := result.Missing(); len(missing) > 0 {
		_, _ = fmt.Fprintln(w, "\nNot found:")
		for _, path := range missing {
			_, _ = fmt.Fprintf(w, "  - %s\n", path)
		}
	}

	_, _ = fmt.Fprintln(w)
}

// DisplayCheck prints esbuild diagnostics for a bundle
func DisplayCheck(w io.Writer, name string, result *CheckResult) {
	for _, msg := range result.Errors {
		_, _ = fmt.Fprint(w, msg)
	}
	for _, msg := range result.Warnings {
		_, _ = fmt.Fprint(w, msg)
	}
	if result.OK() {
		_, _ = fmt.Fprintf(w, "%s: no syntax errors (%d warnings)\n", name, len(result.Warnings))
		return
	}
	_, _ = fmt.Fprintf(w, "%s: %d errors, %d warnings\n", name, len(result.Errors), len(result.Warnings))
}

// Share returns the percentage of the bundle a file accounts for
func Share(file FileReport, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(file.OutputBytes) / float64(total) * 100
}

// formatBytesHuman formats bytes in human-readable format
func formatBytesHuman(bytes int) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)
	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// truncatePath shortens a path if it's too long
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}
