package main

import (
	"net/url"

	"github.com/meysam81/go-bus/auth/oauth"
	"github.com/meysam81/go-bus/internal/config"
	"github.com/meysam81/go-bus/provider"
	"github.com/spf13/cobra"
)

type providerInfo struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the supported login providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled := a.cfg.OAuth.Enabled()
			names := provider.Names()
			infos := make([]providerInfo, len(names))
			for i, name := range names {
				_, ok := enabled[name]
				infos[i] = providerInfo{Name: name, Configured: ok}
			}
			return a.print(infos)
		},
	}
}

type authorizeOutput struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	State    string `json:"state"`
}

func newAuthorizeCmd(a *app) *cobra.Command {
	var redirect string
	cmd := &cobra.Command{
		Use:   "authorize <provider>",
		Short: "Print the authorization URL of a provider",
		Long: `Print the authorization URL of a provider and the state it carries.

With memory storage the state does not outlive this process; complete the
login with "busctl login --skip-state-check" or use redis storage.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flow, cleanup, err := a.loginFlow(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			if a.cfg.Storage.Type == config.StorageMemory {
				a.logger.Warn("state is kept in memory and is lost when busctl exits")
			}

			target, err := flow.Authorize(ctx, args[0], oauth.AuthorizeOptions{RedirectURL: redirect})
			if err != nil {
				return err
			}
			out := authorizeOutput{Provider: args[0], URL: target}
			if u, err := url.Parse(target); err == nil {
				out.State = u.Query().Get("state")
			}
			return a.print(out)
		},
	}
	cmd.Flags().StringVar(&redirect, "redirect", "", "Post-login redirect kept with the state")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var (
		cb          oauth.Callback
		skipState   bool
		showSecrets bool
	)
	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Exchange an authorization code and print the user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flow, cleanup, err := a.loginFlow(ctx, skipState)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := flow.Login(ctx, args[0], &cb)
			if err != nil {
				_ = a.print(oauth.NewMessage(nil, err))
				return err
			}
			user := *result.User
			if !showSecrets {
				user.Token = nil
			}
			return a.print(oauth.NewMessage(&user, nil))
		},
	}
	cmd.Flags().StringVar(&cb.Code, "code", "", "Authorization code")
	cmd.Flags().StringVar(&cb.AuthCode, "auth-code", "", "Alipay auth_code")
	cmd.Flags().StringVar(&cb.AuthorizationCode, "authorization-code", "", "Huawei authorization_code")
	cmd.Flags().StringVar(&cb.State, "state", "", "State returned by the provider")
	cmd.Flags().BoolVar(&skipState, "skip-state-check", false, "Do not verify the state (disables CSRF protection)")
	cmd.Flags().BoolVar(&showSecrets, "show-token", false, "Include the access token in the output")
	return cmd
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <provider> <uuid>",
		Short: "Refresh the stored token of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flow, cleanup, err := a.loginFlow(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			token, err := flow.RefreshStored(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return a.print(token)
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout <provider> <uuid>",
		Short: "Revoke and delete the stored token of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flow, cleanup, err := a.loginFlow(ctx, false)
			if err != nil {
				return err
			}
			defer cleanup()

			return flow.Logout(ctx, args[0], args[1])
		},
	}
}
