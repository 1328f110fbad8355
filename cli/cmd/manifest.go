package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/jsbundle/cli/output"
	"github.com/fluxbase-eu/jsbundle/cli/util"
)

// manifestEntry is one row of `jsbundle manifest`
type manifestEntry struct {
	Order int    `json:"order" yaml:"order"`
	Path  string `json:"path" yaml:"path"`
	Found bool   `json:"found" yaml:"found"`
	Size  int64  `json:"size" yaml:"size"`
}

var manifestCmd = &cobra.Command{
	Use:     "manifest",
	Aliases: []string{"ls"},
	Short:   "List manifest entries in load order",
	Long: `List every manifest entry in the order it is bundled, with whether the
file exists and its size.

Examples:
  jsbundle manifest
  jsbundle manifest -o json`,
	PreRunE: loadProject,
	RunE:    runManifest,
}

func init() {
	addBuildFlags(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	entries, err := scanManifest()
	if err != nil {
		return err
	}

	f := GetFormatter()
	if f.Structured() {
		return f.Print(entries)
	}

	data := output.TableData{
		Headers: []string{"#", "PATH", "STATUS", "SIZE"},
		Rows:    make([][]string, 0, len(entries)),
	}
	for _, e := range entries {
		status, size := "missing", "-"
		if e.Found {
			status, size = "ok", util.FormatBytes(e.Size)
		}
		data.Rows = append(data.Rows, []string{strconv.Itoa(e.Order), e.Path, status, size})
	}
	f.PrintTable(data)
	return nil
}

// scanManifest stats every manifest entry without reading it
func scanManifest() ([]manifestEntry, error) {
	b := newBundler()
	entries := make([]manifestEntry, 0, len(cfg.Manifest))
	for i, entry := range cfg.Manifest {
		e := manifestEntry{Order: i + 1, Path: entry}
		info, err := os.Stat(b.SourcePath(entry))
		switch {
		case err == nil:
			e.Found = true
			e.Size = info.Size()
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to stat %s: %w", entry, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
