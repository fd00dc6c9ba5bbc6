package oauth

import (
	"strings"
	"time"
)

// AccToken is the normalized token returned from a successful code exchange.
// Callers are expected to persist it themselves or configure a TokenStore.
type AccToken struct {
	AccessToken          string `json:"access_token"`
	RefreshToken         string `json:"refresh_token,omitempty"`
	ExpireIn             int    `json:"expire_in,omitempty"` // seconds
	RefreshTokenExpireIn int    `json:"refresh_token_expire_in,omitempty"`
	TokenType            string `json:"token_type,omitempty"`
	Scope                string `json:"scope,omitempty"`
	IDToken              string `json:"id_token,omitempty"`

	UID     string `json:"uid,omitempty"`
	OpenID  string `json:"open_id,omitempty"`
	UnionID string `json:"union_id,omitempty"`
	UserID  string `json:"user_id,omitempty"`

	// AccessCode is used by providers (DingTalk, WeChat Enterprise) whose
	// user lookup is keyed by the callback code rather than a user token.
	AccessCode   string `json:"access_code,omitempty"`
	Code         string `json:"code,omitempty"`
	MacKey       string `json:"mac_key,omitempty"`
	MacAlgorithm string `json:"mac_algorithm,omitempty"`

	IssuedAt time.Time      `json:"issued_at,omitempty"`
	Raw      map[string]any `json:"raw,omitempty"`
}

// Expiry returns the absolute expiry of the access token, or the zero time when
// the provider did not report one.
func (t *AccToken) Expiry() time.Time {
	if t.ExpireIn <= 0 || t.IssuedAt.IsZero() {
		return time.Time{}
	}
	return t.IssuedAt.Add(time.Duration(t.ExpireIn) * time.Second)
}

// Property is the normalized user profile returned from GetUserInfo.
type Property struct {
	UUID     string         `json:"uuid"`
	Username string         `json:"username,omitempty"`
	Nickname string         `json:"nickname,omitempty"`
	Avatar   string         `json:"avatar,omitempty"`
	Blog     string         `json:"blog,omitempty"`
	Company  string         `json:"company,omitempty"`
	Location string         `json:"location,omitempty"`
	Email    string         `json:"email,omitempty"`
	Remark   string         `json:"remark,omitempty"`
	Gender   Gender         `json:"gender"`
	Source   string         `json:"source"`
	Token    *AccToken      `json:"token,omitempty"`
	Raw      map[string]any `json:"raw,omitempty"`
}

// Gender is the user's gender as reported by the provider.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// ParseGender maps the many provider encodings onto Gender. Numeric codes follow
// the WeChat convention: 1 is male, 2 (or 0) is female.
func ParseGender(code string) Gender {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "1", "m", "male", "男":
		return GenderMale
	case "0", "2", "f", "female", "女":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// GenderFromHuawei maps Huawei's encoding, where 1 is female and 0 is male.
func GenderFromHuawei(code int) Gender {
	switch code {
	case 0:
		return GenderMale
	case 1:
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// Message is the generic result of a login attempt, suitable for returning to a
// browser or API caller.
type Message struct {
	ErrCode string    `json:"errcode"`
	ErrMsg  string    `json:"errmsg,omitempty"`
	Data    *Property `json:"data,omitempty"`
}

// NewMessage converts a login outcome into a Message. Errors that are not an
// *Error collapse into CodeFailure.
func NewMessage(user *Property, err error) *Message {
	if err == nil {
		return &Message{ErrCode: CodeSuccess, Data: user}
	}
	code := CodeFailure
	if oe, ok := AsError(err); ok {
		code = oe.Code
	}
	return &Message{ErrCode: code, ErrMsg: err.Error()}
}

// Success reports whether the message carries a successful login.
func (m *Message) Success() bool {
	return m.ErrCode == CodeSuccess
}
