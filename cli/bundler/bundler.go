// Package bundler concatenates a hand-ordered manifest of JavaScript files into
// a single classic script, stripping module syntax on the way.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

var (
	// ErrIOFailure wraps every read or write failure that aborts a build.
	ErrIOFailure = errors.New("bundle I/O failure")

	// ErrMissingInputs is returned in strict mode when manifest entries do not exist.
	ErrMissingInputs = errors.New("manifest entries not found")
)

// Bundler builds a bundle from a manifest
type Bundler struct {
	fs     afero.Fs
	root   string
	output string
	strict bool
	logger zerolog.Logger
}

// Option configures a Bundler
type Option func(*Bundler)

// WithFs sets the filesystem the bundler reads from and writes to.
func WithFs(fsys afero.Fs) Option {
	return func(b *Bundler) {
		b.fs = fsys
	}
}

// WithRoot sets the directory manifest paths and the output path are relative to.
func WithRoot(root string) Option {
	return func(b *Bundler) {
		b.root = root
	}
}

// WithStrict makes missing manifest entries fail the build.
func WithStrict(strict bool) Option {
	return func(b *Bundler) {
		b.strict = strict
	}
}

// WithLogger sets the logger used for missing-file warnings and the final confirmation.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Bundler) {
		b.logger = logger
	}
}

// NewBundler creates a bundler writing to output. An empty output means DefaultOutput.
func NewBundler(output string, opts ...Option) *Bundler {
	if output == "" {
		output = DefaultOutput
	}

	b := &Bundler{
		fs:     afero.NewOsFs(),
		root:   ".",
		output: output,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Output returns the configured output path as given (not joined with the root).
func (b *Bundler) Output() string {
	return b.output
}

// OutputPath returns the path the bundle is written to.
func (b *Bundler) OutputPath() string {
	return b.resolve(b.output)
}

// SourcePath returns where a manifest entry is read from.
func (b *Bundler) SourcePath(entry string) string {
	return b.resolve(entry)
}

func (b *Bundler) resolve(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.root, p)
}

// Render produces the bundle text for manifest without writing it.
// Entries that do not exist are logged and skipped.
func (b *Bundler) Render(ctx context.Context, manifest []string) ([]byte, *Result, error) {
	start := time.Now()
	result := &Result{
		Output: b.output,
		Files:  make([]FileReport, 0, len(manifest)),
	}

	var out strings.Builder
	out.WriteString(preamble)

	for _, entry := range manifest {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		path := b.resolve(entry)
		if _, err := b.fs.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				b.logger.Warn().Str("path", entry).Msgf("File not found: %s", entry)
				result.Files = append(result.Files, FileReport{Path: entry})
				continue
			}
			return nil, nil, fmt.Errorf("%w: failed to stat %s: %w", ErrIOFailure, entry, err)
		}

		data, err := afero.ReadFile(b.fs, path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: failed to read %s: %w", ErrIOFailure, entry, err)
		}

		content := Transform(string(data))
		before := out.Len()
		out.WriteString(Header(entry))
		out.WriteString(content)
		out.WriteString("\n\n")

		result.Files = append(result.Files, FileReport{
			Path:        entry,
			Found:       true,
			InputBytes:  len(data),
			OutputBytes: out.Len() - before,
		})
	}

	if b.strict {
		if missing := result.Missing(); len(missing) > 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingInputs, strings.Join(missing, ", "))
		}
	}

	result.TotalBytes = out.Len()
	result.Duration = time.Since(start)
	return []byte(out.String()), result, nil
}

// Build renders manifest and writes the bundle to the output path in a single
// write, replacing any previous bundle. The output directory is not created.
func (b *Bundler) Build(ctx context.Context, manifest []string) (*Result, error) {
	start := time.Now()
	data, result, err := b.Render(ctx, manifest)
	if err != nil {
		return nil, err
	}

	if err := afero.WriteFile(b.fs, b.OutputPath(), data, 0644); err != nil {
		return nil, fmt.Errorf("%w: failed to write bundle %s: %w", ErrIOFailure, b.output, err)
	}

	result.Duration = time.Since(start)
	b.logger.Info().
		Str("output", b.output).
		Int("files", result.Bundled()).
		Int("missing", len(result.Files)-result.Bundled()).
		Int("bytes", result.TotalBytes).
		Msgf("Bundle created at %s", b.output)

	return result, nil
}
