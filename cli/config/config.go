// Package config provides project configuration for jsbundle.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fluxbase-eu/jsbundle/cli/bundler"
)

// DefaultConfigName is the config file name without extension
const DefaultConfigName = "jsbundle"

// DefaultConfigFile is the file written by `jsbundle config init`
const DefaultConfigFile = DefaultConfigName + ".yaml"

// Config represents the project configuration
type Config struct {
	// Root is the directory manifest and output paths are relative to
	Root string `mapstructure:"root" yaml:"root"`

	// Output is the bundle path
	Output string `mapstructure:"output" yaml:"output"`

	// Manifest lists source files in load order
	Manifest []string `mapstructure:"manifest" yaml:"manifest"`

	// Strict fails the build when a manifest entry is missing
	Strict bool `mapstructure:"strict" yaml:"strict"`

	Watch   WatchConfig   `mapstructure:"watch" yaml:"watch"`
	Serve   ServeConfig   `mapstructure:"serve" yaml:"serve"`
	Publish PublishConfig `mapstructure:"publish" yaml:"publish"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// WatchConfig contains rebuild-on-change settings
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// ServeConfig contains development server settings
type ServeConfig struct {
	Address    string `mapstructure:"address" yaml:"address"`
	LiveReload bool   `mapstructure:"live_reload" yaml:"live_reload"`
	Metrics    bool   `mapstructure:"metrics" yaml:"metrics"`
}

// PublishConfig contains S3-compatible upload settings
type PublishConfig struct {
	Endpoint     string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Region       string `mapstructure:"region" yaml:"region,omitempty"`
	Bucket       string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Key          string `mapstructure:"key" yaml:"key,omitempty"`
	UseSSL       bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	CacheControl string `mapstructure:"cache_control" yaml:"cache_control,omitempty"`

	// CredentialStore is "file" or "keychain"
	CredentialStore string `mapstructure:"credential_store" yaml:"credential_store"`
	AccessKey       string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey       string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// New returns a configuration populated with defaults
func New() *Config {
	return &Config{
		Root:     ".",
		Output:   bundler.DefaultOutput,
		Manifest: bundler.DefaultManifest(),
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
		Serve: ServeConfig{
			Address:    "127.0.0.1:8000",
			LiveReload: true,
			Metrics:    true,
		},
		Publish: PublishConfig{
			Region:          "us-east-1",
			UseSSL:          true,
			CacheControl:    "no-cache",
			CredentialStore: "file",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from configFile, or from jsbundle.yaml in the
// current directory or ./config when configFile is empty. A missing default
// file is not an error. Environment variables prefixed JSBUNDLE_ override
// file values (JSBUNDLE_SERVE_ADDRESS for serve.address).
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	// Load .env file if it exists (for publish credentials)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix("JSBUNDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads environment variables from the first .env file found
func loadEnvFile() error {
	for _, location := range []string{".env", ".env.local"} {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Debug().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// setDefaults registers every key so environment overrides apply on Unmarshal
func setDefaults(v *viper.Viper) {
	d := New()

	v.SetDefault("root", d.Root)
	v.SetDefault("output", d.Output)
	v.SetDefault("manifest", d.Manifest)
	v.SetDefault("strict", d.Strict)

	v.SetDefault("watch.debounce", d.Watch.Debounce.String())

	v.SetDefault("serve.address", d.Serve.Address)
	v.SetDefault("serve.live_reload", d.Serve.LiveReload)
	v.SetDefault("serve.metrics", d.Serve.Metrics)

	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.region", d.Publish.Region)
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.key", "")
	v.SetDefault("publish.use_ssl", d.Publish.UseSSL)
	v.SetDefault("publish.cache_control", d.Publish.CacheControl)
	v.SetDefault("publish.credential_store", d.Publish.CredentialStore)
	v.SetDefault("publish.access_key", "")
	v.SetDefault("publish.secret_key", "")

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Validate checks the settings every command relies on. Publish settings are
// checked separately by PublishConfig.Validate.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root cannot be empty")
	}

	if c.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}

	for i, entry := range c.Manifest {
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("manifest entry %d is empty", i)
		}
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce cannot be negative")
	}

	if c.Serve.Address == "" {
		return fmt.Errorf("serve.address cannot be empty")
	}

	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}

	if c.Publish.CredentialStore != "file" && c.Publish.CredentialStore != "keychain" {
		return fmt.Errorf("publish.credential_store must be 'file' or 'keychain'")
	}

	return nil
}

// Validate checks that an upload can be attempted
func (p *PublishConfig) Validate() error {
	if p.Endpoint == "" {
		return fmt.Errorf("publish.endpoint is required")
	}
	if strings.Contains(p.Endpoint, "://") {
		return fmt.Errorf("publish.endpoint must be a host[:port] without scheme, got %q", p.Endpoint)
	}
	if p.Bucket == "" {
		return fmt.Errorf("publish.bucket is required")
	}
	if p.AccessKey == "" || p.SecretKey == "" {
		return fmt.Errorf("publish credentials are incomplete")
	}
	return nil
}

// Account identifies the credentials of this target in the keychain
func (p *PublishConfig) Account() string {
	return p.Endpoint + "/" + p.Bucket
}

// OutputPath returns the bundle path joined with the root
func (c *Config) OutputPath() string {
	if filepath.IsAbs(c.Output) {
		return c.Output
	}
	return filepath.Join(c.Root, filepath.FromSlash(c.Output))
}

// Save writes the configuration as YAML. Credentials are never written.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultConfigFile
	}

	clean := *c
	clean.Publish.AccessKey = ""
	clean.Publish.SecretKey = ""

	data, err := yaml.Marshal(&clean)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil { //nolint:gosec // project file, no secrets
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
