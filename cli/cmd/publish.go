package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cliconfig "github.com/fluxbase-eu/jsbundle/cli/config"
	"github.com/fluxbase-eu/jsbundle/cli/util"
	"github.com/fluxbase-eu/jsbundle/internal/publish"
)

var (
	publishNoBuild   bool
	publishAccessKey string
	publishSecretKey string

	keychain = cliconfig.NewKeychainStore()
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Build and upload the bundle to S3-compatible storage",
	Long: `Build the bundle and upload it to the configured bucket. The object key
defaults to the bundle file name.

Credentials come from publish.access_key/publish.secret_key (or the
JSBUNDLE_PUBLISH_ACCESS_KEY/JSBUNDLE_PUBLISH_SECRET_KEY environment
variables), or from the system keychain when publish.credential_store is
"keychain" (see 'jsbundle publish login').

Examples:
  jsbundle publish
  jsbundle publish --no-build -o json`,
	PreRunE: loadProject,
	RunE:    runPublish,
}

var publishLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store publish credentials in the system keychain",
	Long: `Save the access and secret key for the configured endpoint and bucket in
the system keychain. Set publish.credential_store to "keychain" to use them.

Examples:
  jsbundle publish login
  jsbundle publish login --access-key AKIA... --secret-key ...`,
	PreRunE: loadProject,
	RunE:    runPublishLogin,
}

var publishLogoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Remove publish credentials from the system keychain",
	PreRunE: loadProject,
	RunE:    runPublishLogout,
}

func init() {
	addBuildFlags(publishCmd)
	publishCmd.Flags().BoolVar(&publishNoBuild, "no-build", false, "upload the existing bundle without rebuilding")

	publishLoginCmd.Flags().StringVar(&publishAccessKey, "access-key", "", "access key (prompted when omitted)")
	publishLoginCmd.Flags().StringVar(&publishSecretKey, "secret-key", "", "secret key (prompted when omitted)")

	publishCmd.AddCommand(publishLoginCmd)
	publishCmd.AddCommand(publishLogoutCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	target := cfg.Publish
	if err := target.ResolveCredentials(keychain); err != nil {
		return err
	}

	b := newBundler()
	if !publishNoBuild {
		if _, err := b.Build(cmd.Context(), cfg.Manifest); err != nil {
			return err
		}
	}

	p, err := publish.New(&target, publish.WithLogger(logger))
	if err != nil {
		return err
	}

	upload, err := p.Publish(cmd.Context(), b.OutputPath())
	if err != nil {
		return err
	}

	f := GetFormatter()
	if f.Structured() {
		return f.Print(upload)
	}
	f.PrintSuccess(fmt.Sprintf("Published %s (%s)", upload.URL, util.FormatBytes(upload.Size)))
	return nil
}

func runPublishLogin(cmd *cobra.Command, args []string) error {
	if cfg.Publish.Endpoint == "" || cfg.Publish.Bucket == "" {
		return fmt.Errorf("publish.endpoint and publish.bucket must be set before login")
	}
	if !keychain.IsAvailable() {
		return fmt.Errorf("system keychain is not available")
	}

	creds := &cliconfig.Credentials{
		AccessKey: publishAccessKey,
		SecretKey: publishSecretKey,
	}

	if creds.AccessKey == "" || creds.SecretKey == "" {
		if !util.IsInteractive() {
			return fmt.Errorf("--access-key and --secret-key are required when not running interactively")
		}
	}

	var err error
	if creds.AccessKey == "" {
		creds.AccessKey, err = util.ReadLine(cmd.InOrStdin(), "Access key: ")
		if err != nil {
			return fmt.Errorf("failed to read access key: %w", err)
		}
	}
	if creds.SecretKey == "" {
		creds.SecretKey, err = util.ReadPassword("Secret key: ")
		if err != nil {
			return fmt.Errorf("failed to read secret key: %w", err)
		}
	}

	if err := keychain.Save(cfg.Publish.Account(), creds); err != nil {
		return err
	}

	f := GetFormatter()
	f.PrintSuccess(fmt.Sprintf("Saved credentials for %s (access key %s)", cfg.Publish.Account(), util.MaskToken(creds.AccessKey)))
	if cfg.Publish.CredentialStore != "keychain" {
		f.PrintSuccess("Set publish.credential_store: keychain in jsbundle.yaml to use them.")
	}
	return nil
}

func runPublishLogout(cmd *cobra.Command, args []string) error {
	if err := keychain.Delete(cfg.Publish.Account()); err != nil {
		return err
	}
	GetFormatter().PrintSuccess(fmt.Sprintf("Removed credentials for %s", cfg.Publish.Account()))
	return nil
}
