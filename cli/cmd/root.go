// Package cmd provides the Cobra commands for the jsbundle CLI.
package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fluxbase-eu/jsbundle/cli/bundler"
	cliconfig "github.com/fluxbase-eu/jsbundle/cli/config"
	"github.com/fluxbase-eu/jsbundle/cli/output"
	"github.com/fluxbase-eu/jsbundle/internal/logging"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile   string
	outputFmt string
	noHeaders bool
	quiet     bool
	debug     bool
	logFormat string

	// Build flags shared by every command that produces a bundle
	rootDir    string
	outPath    string
	strictMode bool

	// Shared across commands
	cfg       *cliconfig.Config
	formatter *output.Formatter
	logger    = zerolog.Nop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "jsbundle",
	Short: "jsbundle - bundle ordered browser scripts into one file",
	Long: `jsbundle concatenates a hand-ordered list of JavaScript files into a single
classic script. Module syntax is stripped, every file gets a header comment,
and an error overlay snippet is prepended so runtime errors show up on screen.

Features:
  - Build: write the bundle (default js/bundle.js)
  - Check: parse the bundle and report syntax errors
  - Watch/Serve: rebuild on change, live reload in the browser
  - Publish: upload the bundle to S3-compatible storage

Get started:
  jsbundle config init   Write jsbundle.yaml with the default manifest
  jsbundle build         Build the bundle
  jsbundle --help        Show available commands`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Silence errors only when --quiet is used
		cmd.SilenceErrors = quiet
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./jsbundle.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format: console, json (default from config)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(publishCmd)
}

// initLogging installs a logger from the flags alone so that config loading
// can log. loadProject replaces it once the config is known.
func initLogging() {
	format := logFormat
	if format == "" {
		format = logging.FormatConsole
	}
	l, err := logging.Setup(rootCmd.ErrOrStderr(), format, logLevel(""))
	if err == nil {
		logger = l
	}
}

// logLevel applies --debug and --quiet on top of the configured level
func logLevel(configured string) string {
	switch {
	case debug:
		return "debug"
	case quiet:
		return "warn"
	case configured == "":
		return "info"
	default:
		return configured
	}
}

// addBuildFlags registers the flags that override bundle settings
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rootDir, "root", "", "directory manifest and output paths are relative to")
	cmd.Flags().StringVar(&outPath, "out", "", "bundle path (default js/bundle.js)")
	cmd.Flags().BoolVar(&strictMode, "strict", false, "fail when a manifest entry is missing")
}

// loadProject loads the configuration, applies flag overrides, and sets up
// logging and the output formatter. Used as PreRunE.
func loadProject(cmd *cobra.Command, args []string) error {
	loaded, err := cliconfig.Load(viper.New(), cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Lookup("root") != nil && flags.Changed("root") {
		loaded.Root = rootDir
	}
	if flags.Lookup("out") != nil && flags.Changed("out") {
		loaded.Output = outPath
	}
	if flags.Lookup("strict") != nil && flags.Changed("strict") {
		loaded.Strict = strictMode
	}
	if logFormat != "" {
		loaded.Log.Format = logFormat
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	l, err := logging.Setup(cmd.ErrOrStderr(), loaded.Log.Format, logLevel(loaded.Log.Level))
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return err
	}

	cfg = loaded
	logger = l
	formatter = output.NewFormatter(cmd.OutOrStdout(), format, noHeaders, quiet)

	logger.Debug().
		Str("root", cfg.Root).
		Str("output", cfg.Output).
		Int("manifest", len(cfg.Manifest)).
		Msg("Project loaded")

	return nil
}

// newBundler creates a bundler from the loaded configuration
func newBundler() *bundler.Bundler {
	return bundler.NewBundler(cfg.Output,
		bundler.WithRoot(cfg.Root),
		bundler.WithStrict(cfg.Strict),
		bundler.WithLogger(logger),
	)
}

// GetFormatter returns the output formatter (for use by subcommands)
func GetFormatter() *output.Formatter {
	if formatter == nil {
		format, _ := output.ParseFormat(outputFmt)
		formatter = output.NewFormatter(rootCmd.OutOrStdout(), format, noHeaders, quiet)
	}
	return formatter
}

// GetConfig returns the project config (for use by subcommands)
func GetConfig() *cliconfig.Config {
	return cfg
}

// IsDebug returns true if debug mode is enabled
func IsDebug() bool {
	return debug
}
