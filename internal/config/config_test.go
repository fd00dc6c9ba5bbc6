package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meysam81/go-bus/gitlab"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("busctl", pflag.ContinueOnError)
	InitFlags(fs)
	fs.Int("port", 0, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "busctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, zapcore.InfoLevel, cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.APIToken.IsEmpty())
	assert.Equal(t, 10*time.Minute, cfg.OAuth.StateTTL)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, []string{"localhost:6379"}, cfg.Storage.Redis.Addrs)
	assert.Equal(t, gitlab.DefaultBaseURL, cfg.GitLab.BaseURL)
	assert.Equal(t, gitlab.PrivateToken, cfg.GitLab.TokenType)
	assert.Equal(t, 100*time.Millisecond, cfg.GitLab.RetryBackoff)
	assert.True(t, cfg.Audit.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
server:
  port: 9000
  api_token: s3cret-api-token
oauth:
  state_ttl: 5m
  providers:
    github:
      client_id: gh-id
      client_secret: gh-secret
      redirect_uri: http://localhost:9000/auth/github/callback
      scopes: [read:user, user:email]
    okta:
      client_id: okta-id
      domain: dev-1.okta.com
    gitee:
      disabled: true
storage:
  type: redis
  redis:
    addrs: [redis-1:6379, redis-2:6379]
    password: redis-pass
  encryption_key: 0123456789abcdef
gitlab:
  base_url: https://gitlab.example.com/api/v4
  token: glpat-xyz
  token_type: oauth
  retry_count: 3
  rate_limit: 2.5
  webhook_secret: hook
audit:
  redact_email: true
  metadata_keys: [client_ip]
`)

	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, zapcore.DebugLevel, cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "s3cret-api-token", cfg.Server.APIToken.Value())
	assert.Equal(t, 5*time.Minute, cfg.OAuth.StateTTL)

	gh := cfg.OAuth.Providers["github"]
	assert.Equal(t, "gh-id", gh.ClientID)
	assert.Equal(t, "gh-secret", gh.ClientSecret)
	assert.Equal(t, []string{"read:user", "user:email"}, gh.Scopes)
	assert.Equal(t, "dev-1.okta.com", cfg.OAuth.Providers["okta"].Domain)

	enabled := cfg.OAuth.Enabled()
	assert.Len(t, enabled, 2)
	assert.NotContains(t, enabled, "gitee")

	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, []string{"redis-1:6379", "redis-2:6379"}, cfg.Storage.Redis.Addrs)
	assert.Equal(t, "redis-pass", cfg.Storage.Redis.Password.Value())
	assert.Equal(t, "0123456789abcdef", cfg.Storage.EncryptionKey.Value())

	assert.Equal(t, "glpat-xyz", cfg.GitLab.Token.Value())
	assert.Equal(t, gitlab.OAuthToken, cfg.GitLab.TokenType)
	assert.Equal(t, 3, cfg.GitLab.RetryCount)
	assert.InDelta(t, 2.5, cfg.GitLab.RateLimit, 0.0001)
	assert.Equal(t, "hook", cfg.GitLab.WebhookSecret.Value())

	assert.True(t, cfg.Audit.RedactEmail)
	assert.Equal(t, []string{"client_ip"}, cfg.Audit.MetadataKeys)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: warn
server:
  port: 9000
gitlab:
  token: from-file
`)
	t.Setenv("BUSCTL_SERVER_PORT", "9100")
	t.Setenv("BUSCTL_GITLAB_TOKEN", "from-env")
	t.Setenv("BUSCTL_LOGGING_FORMAT", "json")

	cfg, err := Load(newFlags(t, "--config", path, "--port", "9200", "--log-level", "error"))
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, zapcore.ErrorLevel, cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "from-env", cfg.GitLab.Token.Value())
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	path := writeConfig(t, "storage:\n  type: redis\n")

	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, StorageRedis, cfg.Storage.Type)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad level", "logging:\n  level: loud\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"bad storage", "storage:\n  type: etcd\n"},
		{"short key", "storage:\n  encryption_key: short\n"},
		{"bad token type", "gitlab:\n  token_type: deploy\n"},
		{"negative retries", "gitlab:\n  retry_count: -1\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"missing client id", "oauth:\n  providers:\n    github:\n      client_secret: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newFlags(t, "--config", writeConfig(t, tt.body)))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestSecretsAreRedacted(t *testing.T) {
	path := writeConfig(t, "gitlab:\n  token: glpat-xyz\n")
	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)
	assert.NotContains(t, cfg.GitLab.Token.String(), "glpat")
}

func TestGetVersionInfo(t *testing.T) {
	assert.Contains(t, GetVersionInfo(), "busctl version dev")
}
