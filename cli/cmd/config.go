package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	cliconfig "github.com/fluxbase-eu/jsbundle/cli/config"
	"github.com/fluxbase-eu/jsbundle/cli/util"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage project configuration",
	Long:  `View and create the jsbundle project configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new configuration file",
	Long: `Create jsbundle.yaml with default settings, including the default manifest.
Credentials are never written to the file.

Examples:
  jsbundle config init
  jsbundle config init --config build/jsbundle.yaml`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"view"},
	Short:   "Display the effective configuration",
	Long: `Show the configuration after defaults, the config file, environment
variables and flags are applied. Credentials are masked.

Examples:
  jsbundle config show
  jsbundle config show --output json`,
	PreRunE: loadProject,
	RunE:    runConfigShow,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := cfgFile
	if configPath == "" {
		configPath = cliconfig.DefaultConfigFile
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", configPath, err)
	}

	if err := cliconfig.New().Save(configPath); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", configPath)
		fmt.Fprintln(cmd.OutOrStdout(), "Edit the manifest list, then run 'jsbundle build'.")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg

	// Mask credentials in output
	shown.Publish.AccessKey = util.MaskToken(shown.Publish.AccessKey)
	if shown.Publish.SecretKey != "" {
		shown.Publish.SecretKey = "****"
	}

	return GetFormatter().Print(&shown)
}
