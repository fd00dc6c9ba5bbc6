package oauth

import (
	"errors"
	"fmt"
)

// Normalized error codes. Provider errors keep the provider's own code.
const (
	CodeSuccess             = "success"
	CodeFailure             = "failure"
	CodeParameterIncomplete = "parameter_incomplete"
	CodeIllegalRedirectURI  = "illegal_redirect_uri"
	CodeIllegalCode         = "illegal_code"
	CodeIllegalState        = "illegal_state"
	CodeUnsupported         = "unsupported"
	CodeProviderNotFound    = "provider_not_found"
	CodeIllegalToken        = "illegal_token"
)

var (
	// ErrParameterIncomplete is returned when required app credentials are missing.
	ErrParameterIncomplete = &Error{Code: CodeParameterIncomplete, Message: "required configuration is incomplete"}

	// ErrIllegalRedirectURI is returned when the redirect URI is rejected for a provider.
	ErrIllegalRedirectURI = &Error{Code: CodeIllegalRedirectURI, Message: "illegal redirect uri"}

	// ErrIllegalCode is returned when the callback carries no authorization code.
	ErrIllegalCode = &Error{Code: CodeIllegalCode, Message: "illegal authorization code"}

	// ErrIllegalState is returned when the callback state is missing, unknown or reused.
	ErrIllegalState = &Error{Code: CodeIllegalState, Message: "illegal state"}

	// ErrUnsupported is returned when a provider lacks the requested capability.
	ErrUnsupported = &Error{Code: CodeUnsupported, Message: "operation not supported by provider"}

	// ErrProviderNotFound is returned when a provider isn't configured.
	ErrProviderNotFound = &Error{Code: CodeProviderNotFound, Message: "provider not found"}

	// ErrIllegalToken is returned when a token lacks the value an operation needs,
	// such as refreshing without a refresh token.
	ErrIllegalToken = &Error{Code: CodeIllegalToken, Message: "token is missing a required value"}
)

// Error is the single error type reported by providers. Code is either one of
// the normalized codes above or the code returned by the remote platform.
type Error struct {
	Code     string
	Message  string
	Provider string
	Err      error
}

// NewError creates a provider error.
func NewError(provider, code, message string) *Error {
	if code == "" {
		code = CodeFailure
	}
	return &Error{Code: code, Message: message, Provider: provider}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, msg, e.Code)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithProvider returns a copy of e attributed to provider.
func (e *Error) WithProvider(provider string) *Error {
	cp := *e
	cp.Provider = provider
	return &cp
}

// AsError unwraps err into an *Error when possible.
func AsError(err error) (*Error, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}
