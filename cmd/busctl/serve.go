package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/sessions"
	"github.com/meysam81/go-bus/gitlab"
	"github.com/meysam81/go-bus/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the login endpoints, the GitLab webhook and the API",
		Long: `Serve over HTTP:

  GET  /auth/{provider}/authorize   redirect to the provider
  GET  /auth/{provider}/callback    complete the login
  POST /auth/{provider}/logout      end the session
  GET  /auth/me                     the logged-in identity
  POST /hooks/gitlab                GitLab webhook receiver
  /api/v1/...                       JSON API, requires server.api_token`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("listen", "", "Host to listen on")
	cmd.Flags().Int("port", 0, "Port to listen on")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	deps := server.Deps{Logger: a.logger}

	if len(a.cfg.OAuth.Enabled()) > 0 {
		key := a.cfg.Server.SessionKey
		if key.Len() < 32 {
			return errors.New("server.session_key must be at least 32 characters to serve logins")
		}
		flow, cleanup, err := a.loginFlow(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()

		store := sessions.NewCookieStore(key.Bytes())
		store.Options = &sessions.Options{
			Path:     "/",
			MaxAge:   86400 * 7,
			HttpOnly: true,
			Secure:   a.cfg.Server.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		}
		deps.Login = flow
		deps.Sessions = store
	} else {
		a.logger.Warn("no oauth providers configured, login routes are disabled")
	}

	client, err := a.gitlabClient()
	if err != nil {
		return err
	}
	deps.GitLab = client

	hooks := gitlab.NewWebHookManager(a.cfg.GitLab.WebhookSecret.Value(), a.logger)
	hooks.AddListener(server.NewLogListener(a.logger))
	deps.Hooks = hooks
	if a.cfg.GitLab.WebhookSecret.IsEmpty() {
		a.logger.Warn("gitlab.webhook_secret is empty, webhook deliveries are not authenticated")
	}

	srv, err := server.New(a.cfg.Server, deps)
	if err != nil {
		return err
	}
	a.logger.Info("serving", zap.String("address", a.cfg.Server.Addr()))
	return srv.Run(ctx)
}
