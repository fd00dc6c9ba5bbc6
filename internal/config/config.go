// Package config loads busctl settings from a YAML file, BUSCTL_ environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/meysam81/go-bus/auth/oauth"
	"github.com/meysam81/go-bus/gitlab"
	"github.com/meysam81/go-bus/secret"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Version information, set with -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string.
func GetVersionInfo() string {
	return fmt.Sprintf("busctl version %s, commit %s, built at %s", version, commit, date)
}

const envPrefix = "BUSCTL"

// Storage backends.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
	OAuth   OAuthConfig   `mapstructure:"oauth"`
	Storage StorageConfig `mapstructure:"storage"`
	GitLab  GitLabConfig  `mapstructure:"gitlab"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

type LoggingConfig struct {
	Level             zapcore.Level `mapstructure:"level"`
	Format            string        `mapstructure:"format"`
	DisableStacktrace bool          `mapstructure:"disable_stacktrace"`
	OutputPath        string        `mapstructure:"output_path"`
	AppendToFile      bool          `mapstructure:"append_to_file"`
	DisableConsole    bool          `mapstructure:"disable_console"`
}

type ServerConfig struct {
	Host            string         `mapstructure:"host"`
	Port            int            `mapstructure:"port"`
	SessionKey      *secret.String `mapstructure:"session_key"`
	SessionName     string         `mapstructure:"session_name"`
	SecureCookies   bool           `mapstructure:"secure_cookies"`
	APIToken        *secret.String `mapstructure:"api_token"`
	ShutdownTimeout time.Duration  `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ProviderConfig is the application registration at one provider.
type ProviderConfig struct {
	oauth.AppConfig `mapstructure:",squash"`
	Disabled        bool `mapstructure:"disabled"`
}

type OAuthConfig struct {
	StateTTL         time.Duration             `mapstructure:"state_ttl"`
	TokenTTL         time.Duration             `mapstructure:"token_ttl"`
	IgnoreCheckState bool                      `mapstructure:"ignore_check_state"`
	Providers        map[string]ProviderConfig `mapstructure:"providers"`
}

// Enabled returns the provider configurations that are not disabled.
func (o OAuthConfig) Enabled() map[string]oauth.AppConfig {
	out := make(map[string]oauth.AppConfig, len(o.Providers))
	for name, p := range o.Providers {
		if !p.Disabled {
			out[name] = p.AppConfig
		}
	}
	return out
}

type RedisConfig struct {
	Addrs    []string       `mapstructure:"addrs"`
	Password *secret.String `mapstructure:"password"`
	DB       int            `mapstructure:"db"`
	Prefix   string         `mapstructure:"prefix"`
}

type StorageConfig struct {
	Type  string      `mapstructure:"type"`
	Redis RedisConfig `mapstructure:"redis"`

	// EncryptionKey seals stored provider tokens when set.
	EncryptionKey *secret.String `mapstructure:"encryption_key"`
}

type GitLabConfig struct {
	BaseURL       string           `mapstructure:"base_url"`
	Token         *secret.String   `mapstructure:"token"`
	TokenType     gitlab.TokenType `mapstructure:"token_type"`
	Timeout       time.Duration    `mapstructure:"timeout"`
	RetryCount    int              `mapstructure:"retry_count"`
	RetryBackoff  time.Duration    `mapstructure:"retry_backoff"`
	RateLimit     float64          `mapstructure:"rate_limit"` // requests per second, 0 disables
	Burst         int              `mapstructure:"burst"`
	WebhookSecret *secret.String   `mapstructure:"webhook_secret"`
}

type AuditConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	RedactEmail    bool     `mapstructure:"redact_email"`
	RedactUsername bool     `mapstructure:"redact_username"`
	RedactIP       bool     `mapstructure:"redact_ip"`
	MetadataKeys   []string `mapstructure:"metadata_keys"`
}

var defaults = map[string]any{
	"logging.level":              "info",
	"logging.format":             "console",
	"logging.disable_stacktrace": false,
	"logging.output_path":        "",
	"logging.append_to_file":     true,
	"logging.disable_console":    false,

	"server.host":             "127.0.0.1",
	"server.port":             8080,
	"server.session_key":      "",
	"server.session_name":     "bus_session",
	"server.secure_cookies":   false,
	"server.api_token":        "",
	"server.shutdown_timeout": "10s",

	"oauth.state_ttl":          "10m",
	"oauth.token_ttl":          "0s",
	"oauth.ignore_check_state": false,

	"storage.type":           StorageMemory,
	"storage.redis.addrs":    []string{"localhost:6379"},
	"storage.redis.password": "",
	"storage.redis.db":       0,
	"storage.redis.prefix":   "bus:",
	"storage.encryption_key": "",

	"gitlab.base_url":       gitlab.DefaultBaseURL,
	"gitlab.token":          "",
	"gitlab.token_type":     "private",
	"gitlab.timeout":        "30s",
	"gitlab.retry_count":    0,
	"gitlab.retry_backoff":  "100ms",
	"gitlab.rate_limit":     0.0,
	"gitlab.burst":          1,
	"gitlab.webhook_secret": "",

	"audit.enabled":         true,
	"audit.redact_email":    false,
	"audit.redact_username": false,
	"audit.redact_ip":       false,
	"audit.metadata_keys":   []string{},
}

// flagKeys maps command-line flags to the settings they override.
var flagKeys = map[string]string{
	"log-level":         "logging.level",
	"log-format":        "logging.format",
	"listen":            "server.host",
	"port":              "server.port",
	"storage":           "storage.type",
	"redis-addr":        "storage.redis.addrs",
	"gitlab-url":        "gitlab.base_url",
	"gitlab-token":      "gitlab.token",
	"gitlab-token-type": "gitlab.token_type",
}

// InitFlags registers the flags Load understands on fs.
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to the config file (default ./busctl.yaml)")
	fs.String("log-level", "", "Log level (debug|info|warn|error)")
	fs.String("log-format", "", "Log format (console|json)")
	fs.String("storage", "", "State and token storage (memory|redis)")
	fs.StringSlice("redis-addr", nil, "Redis addresses")
	fs.String("gitlab-url", "", "GitLab API root")
	fs.String("gitlab-token", "", "GitLab access token")
	fs.String("gitlab-token-type", "", "GitLab token type (private|oauth|job)")
}

// Load reads the configuration. Flags in fs that were set on the command line
// override the environment, which overrides the config file. A missing config
// file is not an error unless --config names it.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var configFile string
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
		configFile, _ = fs.GetString("config")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("busctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/busctl")
		v.AddConfigPath("/etc/busctl")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		secretHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

var secretType = reflect.TypeOf((*secret.String)(nil))

func secretHook(from, to reflect.Type, data any) (any, error) {
	if to != secretType || from.Kind() != reflect.String {
		return data, nil
	}
	return secret.New(data.(string)), nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if len(c.Storage.Redis.Addrs) == 0 {
			return errors.New("storage.redis.addrs is required for redis storage")
		}
	default:
		return fmt.Errorf("storage.type must be memory or redis, got %q", c.Storage.Type)
	}
	if n := c.Storage.EncryptionKey.Len(); n > 0 && n < 16 {
		return errors.New("storage.encryption_key must be at least 16 characters")
	}

	if c.GitLab.RetryCount < 0 {
		return errors.New("gitlab.retry_count must not be negative")
	}
	if c.GitLab.RateLimit < 0 {
		return errors.New("gitlab.rate_limit must not be negative")
	}

	for name, p := range c.OAuth.Providers {
		if p.Disabled {
			continue
		}
		if p.ClientID == "" {
			return fmt.Errorf("oauth.providers.%s.client_id is required", name)
		}
	}
	return nil
}
