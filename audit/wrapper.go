package audit

import (
	"context"
	"errors"
	"time"

	"github.com/meysam81/go-bus/auth/oauth"
)

// ClientWrapper wraps an *oauth.Client and records an event for every
// operation. It exposes the same methods and can replace the client anywhere.
type ClientWrapper struct {
	client     *oauth.Client
	logger     Logger
	sourceFunc SourceExtractor
	now        func() time.Time
}

// NewClientWrapper creates an auditing wrapper. A nil logger discards events
// and a nil sourceFunc falls back to ContextSource.
func NewClientWrapper(client *oauth.Client, logger Logger, sourceFunc SourceExtractor) *ClientWrapper {
	if logger == nil {
		logger = Discard()
	}
	if sourceFunc == nil {
		sourceFunc = ContextSource
	}
	return &ClientWrapper{
		client:     client,
		logger:     logger,
		sourceFunc: sourceFunc,
		now:        time.Now,
	}
}

// Client returns the wrapped client.
func (w *ClientWrapper) Client() *oauth.Client {
	return w.client
}

func (w *ClientWrapper) Authorize(ctx context.Context, provider string, opts oauth.AuthorizeOptions) (string, error) {
	start := w.now()
	url, err := w.client.Authorize(ctx, provider, opts)

	event := w.newEvent(ctx, start, EventAuthorize, provider, err)
	if opts.RedirectURL != "" {
		event.Metadata = map[string]any{"redirect_url": opts.RedirectURL}
	}
	w.record(ctx, event)
	return url, err
}

func (w *ClientWrapper) Login(ctx context.Context, provider string, cb *oauth.Callback) (*oauth.LoginResult, error) {
	start := w.now()
	result, err := w.client.Login(ctx, provider, cb)

	event := w.newEvent(ctx, start, EventLogin, provider, err)
	if errors.Is(err, oauth.ErrIllegalState) || errors.Is(err, oauth.ErrIllegalCode) {
		event.Result = ResultDenied
	}
	if result != nil && result.User != nil {
		event.Actor.UUID = result.User.UUID
		event.Actor.Username = result.User.Username
		event.Actor.Email = result.User.Email
	}
	w.record(ctx, event)
	return result, err
}

func (w *ClientWrapper) Refresh(ctx context.Context, provider string, token *oauth.AccToken) (*oauth.AccToken, error) {
	start := w.now()
	fresh, err := w.client.Refresh(ctx, provider, token)

	event := w.newEvent(ctx, start, EventRefresh, provider, err)
	if token != nil {
		event.Actor.UUID = firstNonEmpty(token.UID, token.OpenID, token.UserID)
	}
	w.record(ctx, event)
	return fresh, err
}

func (w *ClientWrapper) RefreshStored(ctx context.Context, provider, uuid string) (*oauth.AccToken, error) {
	start := w.now()
	fresh, err := w.client.RefreshStored(ctx, provider, uuid)

	event := w.newEvent(ctx, start, EventRefresh, provider, err)
	event.Actor.UUID = uuid
	w.record(ctx, event)
	return fresh, err
}

func (w *ClientWrapper) Revoke(ctx context.Context, provider string, token *oauth.AccToken) error {
	start := w.now()
	err := w.client.Revoke(ctx, provider, token)
	w.record(ctx, w.newEvent(ctx, start, EventRevoke, provider, err))
	return err
}

func (w *ClientWrapper) Logout(ctx context.Context, provider, uuid string) error {
	start := w.now()
	err := w.client.Logout(ctx, provider, uuid)

	event := w.newEvent(ctx, start, EventLogout, provider, err)
	event.Actor.UUID = uuid
	w.record(ctx, event)
	return err
}

func (w *ClientWrapper) newEvent(ctx context.Context, start time.Time, typ EventType, provider string, err error) *Event {
	event := &Event{
		Timestamp: start.UTC(),
		Type:      typ,
		Result:    ResultSuccess,
		Actor:     &Actor{Provider: provider},
		Source:    w.sourceFunc(ctx),
	}
	if err != nil {
		event.Result = ResultFailure
		event.Error = err.Error()
		if oe, ok := oauth.AsError(err); ok {
			event.ErrorCode = oe.Code
		}
	}
	return event
}

func (w *ClientWrapper) record(ctx context.Context, event *Event) {
	_ = w.logger.Log(ctx, event)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
