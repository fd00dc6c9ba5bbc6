package provider

import (
	"context"
	"sort"

	"github.com/meysam81/go-bus/auth/oauth"
)

type factory func(ctx context.Context, cfg oauth.AppConfig, opts ...Option) (oauth.Provider, error)

// plain adapts a constructor that cannot fail.
func plain[P oauth.Provider](fn func(oauth.AppConfig, ...Option) P) factory {
	return func(_ context.Context, cfg oauth.AppConfig, opts ...Option) (oauth.Provider, error) {
		return fn(cfg, opts...), nil
	}
}

// discovered adapts a constructor that performs OIDC discovery.
func discovered(fn func(context.Context, oauth.AppConfig, ...Option) (*BaseOIDCProvider, error)) factory {
	return func(ctx context.Context, cfg oauth.AppConfig, opts ...Option) (oauth.Provider, error) {
		p, err := fn(ctx, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func newGenericOIDCProvider(ctx context.Context, cfg oauth.AppConfig, opts ...Option) (*BaseOIDCProvider, error) {
	return NewOIDCProvider(ctx, oauth.SourceOIDC, cfg.Issuer, cfg, []string{"openid", "profile", "email"}, opts...)
}

var factories = map[string]factory{
	oauth.SourceGitHub:           plain(NewGitHubProvider),
	oauth.SourceGitee:            plain(NewGiteeProvider),
	oauth.SourceGitLab:           plain(NewGitLabProvider),
	oauth.SourceGoogle:           plain(NewGoogleProvider),
	oauth.SourceMicrosoft:        plain(NewMicrosoftProvider),
	oauth.SourceFacebook:         plain(NewFacebookProvider),
	oauth.SourceLinkedIn:         plain(NewLinkedInProvider),
	oauth.SourceDiscord:          plain(NewDiscordProvider),
	oauth.SourceSlack:            plain(NewSlackProvider),
	oauth.SourceLine:             plain(NewLineProvider),
	oauth.SourceAmazon:           plain(NewAmazonProvider),
	oauth.SourceTwitter:          plain(NewTwitterProvider),
	oauth.SourcePinterest:        plain(NewPinterestProvider),
	oauth.SourceStackOverflow:    plain(NewStackOverflowProvider),
	oauth.SourceAliyun:           plain(NewAliyunProvider),
	oauth.SourceWeibo:            plain(NewWeiboProvider),
	oauth.SourceDingTalk:         plain(NewDingTalkProvider),
	oauth.SourceBaidu:            plain(NewBaiduProvider),
	oauth.SourceCSDN:             plain(NewCSDNProvider),
	oauth.SourceCoding:           plain(NewCodingProvider),
	oauth.SourceTencentCloud:     plain(NewTencentCloudProvider),
	oauth.SourceOSChina:          plain(NewOSChinaProvider),
	oauth.SourceAlipay:           plain(NewAlipayProvider),
	oauth.SourceQQ:               plain(NewQQProvider),
	oauth.SourceWeChatOpen:       plain(NewWeChatOpenProvider),
	oauth.SourceWeChatMP:         plain(NewWeChatMPProvider),
	oauth.SourceWeChatEnterprise: plain(NewWeChatEnterpriseProvider),
	oauth.SourceTaobao:           plain(NewTaobaoProvider),
	oauth.SourceDouyin:           plain(NewDouyinProvider),
	oauth.SourceToutiao:          plain(NewToutiaoProvider),
	oauth.SourceMi:               plain(NewMiProvider),
	oauth.SourceTeambition:       plain(NewTeambitionProvider),
	oauth.SourceRenren:           plain(NewRenrenProvider),
	oauth.SourceHuawei:           plain(NewHuaweiProvider),
	oauth.SourceKujiale:          plain(NewKujialeProvider),
	oauth.SourceMeituan:          plain(NewMeituanProvider),
	oauth.SourceEleme:            plain(NewElemeProvider),
	oauth.SourceJD:               plain(NewJDProvider),
	oauth.SourceXimalaya:         plain(NewXimalayaProvider),
	oauth.SourceFeishu:           plain(NewFeishuProvider),
	oauth.SourceOkta:             discovered(NewOktaProvider),
	oauth.SourceAuth0:            discovered(NewAuth0Provider),
	oauth.SourceApple:            discovered(NewAppleProvider),
	oauth.SourceOIDC:             discovered(newGenericOIDCProvider),
}

// New validates cfg for the named provider and constructs it. OIDC providers
// (okta, auth0, apple, oidc) perform discovery with ctx.
func New(ctx context.Context, name string, cfg oauth.AppConfig, opts ...Option) (oauth.Provider, error) {
	f, ok := factories[name]
	if !ok {
		return nil, oauth.ErrProviderNotFound.WithProvider(name)
	}
	if err := cfg.Validate(name); err != nil {
		return nil, err
	}
	return f(ctx, cfg, opts...)
}

// Names returns the registered provider names in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
