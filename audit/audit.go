// Package audit records social-login events: authorization redirects,
// callbacks, token refreshes and revocations. Events carry the provider, the
// resolved user and the request origin so that a login trail can be rebuilt
// from the logs.
package audit

import (
	"context"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Logger records audit events. Implementations must be safe for concurrent use.
// A failure to log must never fail the audited operation.
type Logger interface {
	Log(ctx context.Context, event *Event) error
}

// EventType identifies what happened.
type EventType string

const (
	EventAuthorize EventType = "oauth.authorize"
	EventLogin     EventType = "oauth.login"
	EventLogout    EventType = "oauth.logout"
	EventRefresh   EventType = "oauth.token_refresh"
	EventRevoke    EventType = "oauth.token_revoke"

	EventSessionCreate EventType = "session.create"
	EventSessionDelete EventType = "session.delete"
)

// Result is the outcome of an event.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	// ResultDenied marks callbacks rejected before any provider call, such as
	// an unknown or replayed state.
	ResultDenied Result = "denied"
)

// Event is a single audit record.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"event_type"`
	Result    Result    `json:"event_result"`

	Actor  *Actor  `json:"actor,omitempty"`
	Source *Source `json:"source,omitempty"`

	// ErrorCode is the *oauth.Error code when the operation failed.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Actor is the user an event concerns.
type Actor struct {
	UUID     string `json:"uuid,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Source describes where the request came from.
type Source struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// SourceExtractor pulls request information out of the context, typically
// placed there by HTTP middleware.
type SourceExtractor func(ctx context.Context) *Source

type sourceKey struct{}

// WithSource stores src in ctx for ContextSource.
func WithSource(ctx context.Context, src *Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

// ContextSource is a SourceExtractor reading what WithSource stored.
func ContextSource(ctx context.Context) *Source {
	src, _ := ctx.Value(sourceKey{}).(*Source)
	return src
}

// Redaction masks personal data and credentials before an event is written.
type Redaction struct {
	Email     bool
	Username  bool
	IPAddress bool

	// MetadataKeys are replaced with "[REDACTED]". Token-bearing keys
	// (access_token, refresh_token, id_token, code) are always masked.
	MetadataKeys []string
}

// alwaysRedacted never reach a log in clear text.
var alwaysRedacted = []string{"access_token", "refresh_token", "id_token", "code", "code_verifier"}

const redactedValue = "[REDACTED]"

// Apply returns a redacted copy of event; the original is not modified.
func (r *Redaction) Apply(event *Event) *Event {
	out := *event

	if event.Actor != nil {
		actor := *event.Actor
		if r != nil && r.Email && actor.Email != "" {
			actor.Email = maskEmail(actor.Email)
		}
		if r != nil && r.Username && actor.Username != "" {
			actor.Username = maskString(actor.Username)
		}
		out.Actor = &actor
	}

	if event.Source != nil {
		src := *event.Source
		if r != nil && r.IPAddress && src.IPAddress != "" {
			src.IPAddress = maskIP(src.IPAddress)
		}
		out.Source = &src
	}

	if event.Metadata != nil {
		md := make(map[string]any, len(event.Metadata))
		for k, v := range event.Metadata {
			if slices.Contains(alwaysRedacted, k) || (r != nil && slices.Contains(r.MetadataKeys, k)) {
				md[k] = redactedValue
				continue
			}
			md[k] = v
		}
		out.Metadata = md
	}

	return &out
}

// maskEmail keeps the first letter and the domain: "u***@example.com".
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// maskString keeps the first and last rune: "o***t".
func maskString(s string) string {
	r := []rune(s)
	switch {
	case len(r) < 2:
		return "***"
	case len(r) == 2:
		return string(r[0]) + "*"
	default:
		return string(r[0]) + "***" + string(r[len(r)-1])
	}
}

// maskIP hides the host part: the last two octets of IPv4, everything after
// the /48 prefix of IPv6.
func maskIP(addr string) string {
	ip := net.ParseIP(addr)
	if ip == nil {
		return "***"
	}
	if v4 := ip.To4(); v4 != nil {
		return strconv.Itoa(int(v4[0])) + "." + strconv.Itoa(int(v4[1])) + ".*.*"
	}
	groups := strings.SplitN(ip.String(), ":", 4)
	if len(groups) < 4 {
		return "***"
	}
	return strings.Join(groups[:3], ":") + ":*"
}

type discard struct{}

func (discard) Log(context.Context, *Event) error { return nil }

// Discard returns a Logger that drops every event.
func Discard() Logger {
	return discard{}
}
