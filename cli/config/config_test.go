package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/fluxbase-eu/jsbundle/cli/bundler"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jsbundle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, bundler.DefaultOutput, cfg.Output)
	assert.Equal(t, bundler.DefaultManifest(), cfg.Manifest)
	assert.False(t, cfg.Strict)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "127.0.0.1:8000", cfg.Serve.Address)
	assert.True(t, cfg.Serve.LiveReload)
	assert.Equal(t, "file", cfg.Publish.CredentialStore)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
root: ./web
output: dist/game.js
strict: true
manifest:
  - js/a.js
  - js/b.js
watch:
  debounce: 1s
serve:
  address: ":9000"
  live_reload: false
publish:
  endpoint: s3.example.com
  bucket: games
log:
  format: json
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "./web", cfg.Root)
	assert.Equal(t, "dist/game.js", cfg.Output)
	assert.True(t, cfg.Strict)
	assert.Equal(t, []string{"js/a.js", "js/b.js"}, cfg.Manifest)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, ":9000", cfg.Serve.Address)
	assert.False(t, cfg.Serve.LiveReload)
	assert.Equal(t, "s3.example.com", cfg.Publish.Endpoint)
	assert.Equal(t, "games", cfg.Publish.Bucket)
	assert.True(t, cfg.Publish.UseSSL, "unset keys keep their defaults")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, filepath.Join("web", "dist", "game.js"), cfg.OutputPath())
}

func TestLoad_EmptyManifest(t *testing.T) {
	path := writeConfig(t, "manifest: []\n")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Manifest)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "output: from-file.js\n")
	t.Setenv("JSBUNDLE_OUTPUT", "from-env.js")
	t.Setenv("JSBUNDLE_SERVE_ADDRESS", ":7000")
	t.Setenv("JSBUNDLE_PUBLISH_SECRET_KEY", "s3cret")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.js", cfg.Output)
	assert.Equal(t, ":7000", cfg.Serve.Address)
	assert.Equal(t, "s3cret", cfg.Publish.SecretKey)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, "log:\n  format: xml\n")

	_, err := Load(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format must be 'console' or 'json'")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "empty root",
			mutate: func(c *Config) { c.Root = "" },
			errMsg: "root cannot be empty",
		},
		{
			name:   "empty output",
			mutate: func(c *Config) { c.Output = "" },
			errMsg: "output cannot be empty",
		},
		{
			name:   "blank manifest entry",
			mutate: func(c *Config) { c.Manifest = []string{"js/a.js", "  "} },
			errMsg: "manifest entry 1 is empty",
		},
		{
			name:   "negative debounce",
			mutate: func(c *Config) { c.Watch.Debounce = -time.Second },
			errMsg: "watch.debounce cannot be negative",
		},
		{
			name:   "empty serve address",
			mutate: func(c *Config) { c.Serve.Address = "" },
			errMsg: "serve.address cannot be empty",
		},
		{
			name:   "unknown credential store",
			mutate: func(c *Config) { c.Publish.CredentialStore = "vault" },
			errMsg: "publish.credential_store must be 'file' or 'keychain'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPublishConfig_Validate(t *testing.T) {
	valid := PublishConfig{
		Endpoint:  "s3.example.com",
		Bucket:    "games",
		AccessKey: "AKIA",
		SecretKey: "secret",
	}

	tests := []struct {
		name   string
		mutate func(p *PublishConfig)
		errMsg string
	}{
		{name: "valid", mutate: func(p *PublishConfig) {}},
		{name: "missing endpoint", mutate: func(p *PublishConfig) { p.Endpoint = "" }, errMsg: "publish.endpoint is required"},
		{name: "endpoint with scheme", mutate: func(p *PublishConfig) { p.Endpoint = "https://s3.example.com" }, errMsg: "without scheme"},
		{name: "missing bucket", mutate: func(p *PublishConfig) { p.Bucket = "" }, errMsg: "publish.bucket is required"},
		{name: "missing secret", mutate: func(p *PublishConfig) { p.SecretKey = "" }, errMsg: "credentials are incomplete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	cfg := New()
	cfg.Output = "dist/bundle.js"
	cfg.Manifest = []string{"js/one.js", "js/two.js"}
	cfg.Publish.AccessKey = "AKIA"
	cfg.Publish.SecretKey = "secret"

	path := filepath.Join(t.TempDir(), "jsbundle.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.NotContains(t, string(data), "AKIA")

	loaded, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Output, loaded.Output)
	assert.Equal(t, cfg.Manifest, loaded.Manifest)
	assert.Equal(t, cfg.Watch.Debounce, loaded.Watch.Debounce)
	assert.Empty(t, loaded.Publish.SecretKey)
}

func TestResolveCredentials(t *testing.T) {
	keyring.MockInit()
	store := NewKeychainStore()

	p := &PublishConfig{
		Endpoint:        "s3.example.com",
		Bucket:          "games",
		CredentialStore: "keychain",
	}

	err := p.ResolveCredentials(store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jsbundle publish login")

	require.NoError(t, store.Save(p.Account(), &Credentials{AccessKey: "AKIA", SecretKey: "from-keychain"}))
	require.NoError(t, p.ResolveCredentials(store))
	assert.Equal(t, "AKIA", p.AccessKey)
	assert.Equal(t, "from-keychain", p.SecretKey)

	override := &PublishConfig{
		Endpoint:        "s3.example.com",
		Bucket:          "games",
		CredentialStore: "keychain",
		SecretKey:       "from-env",
	}
	require.NoError(t, override.ResolveCredentials(store))
	assert.Equal(t, "AKIA", override.AccessKey)
	assert.Equal(t, "from-env", override.SecretKey)

	require.NoError(t, store.Delete(p.Account()))
	creds, err := store.Load(p.Account())
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestResolveCredentials_FileStoreIgnoresKeychain(t *testing.T) {
	keyring.MockInit()
	p := &PublishConfig{CredentialStore: "file"}
	require.NoError(t, p.ResolveCredentials(NewKeychainStore()))
	assert.Empty(t, p.SecretKey)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24)
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
