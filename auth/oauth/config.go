package oauth

import (
	"net/url"
	"strings"
)

// Registered provider names.
const (
	SourceGitHub           = "github"
	SourceGitee            = "gitee"
	SourceGitLab           = "gitlab"
	SourceGoogle           = "google"
	SourceMicrosoft        = "microsoft"
	SourceFacebook         = "facebook"
	SourceLinkedIn         = "linkedin"
	SourceDiscord          = "discord"
	SourceSlack            = "slack"
	SourceOkta             = "okta"
	SourceLine             = "line"
	SourceAmazon           = "amazon"
	SourceTwitter          = "twitter"
	SourcePinterest        = "pinterest"
	SourceStackOverflow    = "stack_overflow"
	SourceAliyun           = "aliyun"
	SourceApple            = "apple"
	SourceAuth0            = "auth0"
	SourceOIDC             = "oidc"
	SourceWeibo            = "weibo"
	SourceDingTalk         = "dingtalk"
	SourceBaidu            = "baidu"
	SourceCSDN             = "csdn"
	SourceCoding           = "coding"
	SourceTencentCloud     = "tencent_cloud"
	SourceOSChina          = "oschina"
	SourceAlipay           = "alipay"
	SourceQQ               = "qq"
	SourceWeChatOpen       = "wechat_open"
	SourceWeChatMP         = "wechat_mp"
	SourceWeChatEnterprise = "wechat_enterprise"
	SourceTaobao           = "taobao"
	SourceDouyin           = "douyin"
	SourceToutiao          = "toutiao"
	SourceMi               = "mi"
	SourceTeambition       = "teambition"
	SourceRenren           = "renren"
	SourceHuawei           = "huawei"
	SourceKujiale          = "kujiale"
	SourceMeituan          = "meituan"
	SourceEleme            = "eleme"
	SourceJD               = "jd"
	SourceXimalaya         = "ximalaya"
	SourceFeishu           = "feishu"
)

// AppConfig holds the application credentials registered with a provider
// together with the provider-specific extras some platforms require.
type AppConfig struct {
	ClientID     string   `json:"client_id" mapstructure:"client_id"`
	ClientSecret string   `json:"client_secret" mapstructure:"client_secret"`
	RedirectURI  string   `json:"redirect_uri" mapstructure:"redirect_uri"`
	Scopes       []string `json:"scopes,omitempty" mapstructure:"scopes"`

	// AlipayPublicKey is Alipay's RSA public key (base64 X.509). For Alipay the
	// ClientSecret holds the application's PKCS#8 private key.
	AlipayPublicKey string `json:"alipay_public_key,omitempty" mapstructure:"alipay_public_key"`

	// StackOverflowKey is the Stack Apps request key.
	StackOverflowKey string `json:"stack_overflow_key,omitempty" mapstructure:"stack_overflow_key"`

	// AgentID is the WeChat Enterprise application id.
	AgentID string `json:"agent_id,omitempty" mapstructure:"agent_id"`

	// CodingGroupName is the team domain prefix on coding.net.
	CodingGroupName string `json:"coding_group_name,omitempty" mapstructure:"coding_group_name"`

	// DeviceID and ClientOSType are sent by Ximalaya.
	DeviceID     string `json:"device_id,omitempty" mapstructure:"device_id"`
	ClientOSType int    `json:"client_os_type,omitempty" mapstructure:"client_os_type"`

	// UnionID asks QQ to return the union id with the open id.
	UnionID bool `json:"union_id,omitempty" mapstructure:"union_id"`

	// Domain is the tenant host for Okta; AuthServerID defaults to "default".
	Domain       string `json:"domain,omitempty" mapstructure:"domain"`
	AuthServerID string `json:"auth_server_id,omitempty" mapstructure:"auth_server_id"`

	// Tenant selects the Microsoft identity tenant; defaults to "common".
	Tenant string `json:"tenant,omitempty" mapstructure:"tenant"`

	// Issuer is the discovery URL for generic OIDC providers.
	Issuer string `json:"issuer,omitempty" mapstructure:"issuer"`

	// TeamID and KeyID sign Apple's client secret.
	TeamID string `json:"team_id,omitempty" mapstructure:"team_id"`
	KeyID  string `json:"key_id,omitempty" mapstructure:"key_id"`
}

// Validate checks that cfg carries everything the named provider needs.
func (cfg *AppConfig) Validate(source string) error {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURI == "" {
		return ErrParameterIncomplete.WithProvider(source)
	}

	switch source {
	case SourceAlipay:
		if cfg.AlipayPublicKey == "" {
			return ErrParameterIncomplete.WithProvider(source)
		}
	case SourceStackOverflow:
		if cfg.StackOverflowKey == "" {
			return ErrParameterIncomplete.WithProvider(source)
		}
	case SourceWeChatEnterprise:
		if cfg.AgentID == "" {
			return ErrParameterIncomplete.WithProvider(source)
		}
	case SourceCoding:
		if cfg.CodingGroupName == "" {
			return ErrParameterIncomplete.WithProvider(source)
		}
	case SourceOkta, SourceAuth0:
		if cfg.Domain == "" {
			return ErrParameterIncomplete.WithProvider(source)
		}
	case SourceOIDC:
		if cfg.Issuer == "" {
			return ErrParameterIncomplete.WithProvider(source)
		}
	case SourceApple:
		if cfg.TeamID == "" || cfg.KeyID == "" {
			return ErrParameterIncomplete.WithProvider(source)
		}
	}

	u, err := url.Parse(cfg.RedirectURI)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrIllegalRedirectURI.WithProvider(source)
	}

	switch source {
	case SourceFacebook:
		if u.Scheme != "https" {
			return ErrIllegalRedirectURI.WithProvider(source)
		}
	case SourceAlipay:
		host := strings.ToLower(u.Hostname())
		if host == "localhost" || host == "127.0.0.1" {
			return ErrIllegalRedirectURI.WithProvider(source)
		}
	}

	return nil
}
