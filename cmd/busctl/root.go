package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/meysam81/go-bus/audit"
	"github.com/meysam81/go-bus/auth/oauth"
	"github.com/meysam81/go-bus/gitlab"
	"github.com/meysam81/go-bus/internal/config"
	"github.com/meysam81/go-bus/internal/logger"
	"github.com/meysam81/go-bus/provider"
	"github.com/meysam81/go-bus/storage"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

const providerTimeout = 30 * time.Second

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
	output string
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:           "busctl",
		Short:         "Social login, GitLab and JPEG-LS tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	config.InitFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", "json", "Output format (json|yaml)")

	cmd.AddCommand(
		newVersionCmd(a),
		newProvidersCmd(a),
		newAuthorizeCmd(a),
		newLoginCmd(a),
		newRefreshCmd(a),
		newLogoutCmd(a),
		newJPEGCmd(a),
		newGitLabCmd(a),
		newServeCmd(a),
	)
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Version must work without a valid config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(a.out, config.GetVersionInfo())
			return err
		},
	}
}

func (a *app) init(cmd *cobra.Command) error {
	switch a.output {
	case "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q", a.output)
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.GetLogger()
	return nil
}

// print writes v in the selected output format. YAML output keeps the JSON
// field names.
func (a *app) print(v any) error {
	if a.output == "yaml" {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stores builds the state and token stores. The returned func releases the
// backend connection.
func (a *app) stores(ctx context.Context) (storage.StateStore, storage.TokenStore, func() error, error) {
	var (
		states  storage.StateStore
		tokens  storage.TokenStore
		cleanup = func() error { return nil }
	)

	switch a.cfg.Storage.Type {
	case config.StorageRedis:
		rc := a.cfg.Storage.Redis
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    rc.Addrs,
			Password: rc.Password.Value(),
			DB:       rc.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		states = storage.NewRedisStateStore(client, rc.Prefix)
		tokens = storage.NewRedisTokenStore(client, rc.Prefix)
		cleanup = client.Close
	default:
		states = storage.NewInMemoryStateStore()
		tokens = storage.NewInMemoryTokenStore()
	}

	if key := a.cfg.Storage.EncryptionKey; !key.IsEmpty() {
		b := key.Bytes()
		cipher, err := storage.NewSecretBoxCipher(b)
		clear(b)
		if err != nil {
			_ = cleanup()
			return nil, nil, nil, err
		}
		tokens = storage.NewEncryptedTokenStore(tokens, cipher)
	}
	return states, tokens, cleanup, nil
}

// auditLogger returns the sink for login audit events.
func (a *app) auditLogger() audit.Logger {
	ac := a.cfg.Audit
	if !ac.Enabled {
		return audit.Discard()
	}
	return audit.NewZapLogger(a.logger, &audit.Redaction{
		Email:        ac.RedactEmail,
		Username:     ac.RedactUsername,
		IPAddress:    ac.RedactIP,
		MetadataKeys: ac.MetadataKeys,
	})
}

// loginFlow constructs every enabled provider and wraps the login client
// with auditing.
func (a *app) loginFlow(ctx context.Context, ignoreState bool) (*audit.ClientWrapper, func() error, error) {
	enabled := a.cfg.OAuth.Enabled()
	if len(enabled) == 0 {
		return nil, nil, errors.New("no oauth providers are configured")
	}
	names := make([]string, 0, len(enabled))
	for name := range enabled {
		names = append(names, name)
	}
	sort.Strings(names)

	httpClient := &http.Client{Timeout: providerTimeout}
	providers := make([]oauth.Provider, 0, len(names))
	for _, name := range names {
		p, err := provider.New(ctx, name, enabled[name], provider.WithHTTPClient(httpClient))
		if err != nil {
			return nil, nil, fmt.Errorf("provider %s: %w", name, err)
		}
		providers = append(providers, p)
	}

	states, tokens, cleanup, err := a.stores(ctx)
	if err != nil {
		return nil, nil, err
	}
	client, err := oauth.NewClient(oauth.Config{
		Providers:        providers,
		StateStore:       states,
		TokenStore:       tokens,
		StateTTL:         a.cfg.OAuth.StateTTL,
		TokenTTL:         a.cfg.OAuth.TokenTTL,
		IgnoreCheckState: ignoreState || a.cfg.OAuth.IgnoreCheckState,
	})
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}

	a.logger.Debug("login flow ready",
		zap.Strings("providers", names),
		zap.String("storage", a.cfg.Storage.Type))
	return audit.NewClientWrapper(client, a.auditLogger(), audit.ContextSource), cleanup, nil
}

func (a *app) gitlabClient() (*gitlab.Client, error) {
	g := a.cfg.GitLab
	opts := []gitlab.ClientOption{
		gitlab.WithBaseURL(g.BaseURL),
		gitlab.WithTokenType(g.TokenType),
		gitlab.WithTimeout(g.Timeout),
		gitlab.WithRetry(g.RetryCount, g.RetryBackoff),
		gitlab.WithLogger(a.logger),
	}
	if g.RateLimit > 0 {
		opts = append(opts, gitlab.WithRateLimit(rate.Limit(g.RateLimit), max(g.Burst, 1)))
	}
	return gitlab.NewClient(g.Token.Value(), opts...)
}
