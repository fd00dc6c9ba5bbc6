package audit

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(redaction *Redaction) (*ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return NewZapLogger(zap.New(core), redaction), logs
}

func TestZapLogger_Log(t *testing.T) {
	logger, logs := newObservedLogger(nil)

	err := logger.Log(context.Background(), &Event{
		Timestamp: time.Now().UTC(),
		Type:      EventLogin,
		Result:    ResultSuccess,
		Actor:     &Actor{UUID: "583231", Username: "octocat", Provider: "github"},
		Source:    &Source{IPAddress: "10.0.0.1"},
	})
	if err != nil {
		t.Fatalf("Log() returned error: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.InfoLevel {
		t.Errorf("Expected info level, got %v", entry.Level)
	}
	if entry.LoggerName != "audit" {
		t.Errorf("Expected logger name audit, got %q", entry.LoggerName)
	}

	fields := entry.ContextMap()
	if fields["event_type"] != string(EventLogin) {
		t.Errorf("event_type = %v, want %v", fields["event_type"], EventLogin)
	}
	actor, ok := fields["actor"].(map[string]any)
	if !ok {
		t.Fatalf("Expected actor object, got %T", fields["actor"])
	}
	if actor["uuid"] != "583231" || actor["provider"] != "github" {
		t.Errorf("Unexpected actor fields: %v", actor)
	}
}

func TestZapLogger_FailureIsWarn(t *testing.T) {
	logger, logs := newObservedLogger(nil)

	_ = logger.Log(context.Background(), &Event{
		Type:      EventLogin,
		Result:    ResultDenied,
		Actor:     &Actor{Provider: "qq"},
		ErrorCode: "illegal_state",
		Error:     "qq: illegal state (illegal_state)",
	})

	entries := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 warn entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["error_code"] != "illegal_state" {
		t.Errorf("Expected error_code field, got %v", entries[0].ContextMap())
	}
}

func TestZapLogger_Redaction(t *testing.T) {
	logger, logs := newObservedLogger(&Redaction{Email: true})

	_ = logger.Log(context.Background(), &Event{
		Type:     EventLogin,
		Result:   ResultSuccess,
		Actor:    &Actor{Email: "test@example.com", Provider: "gitee"},
		Metadata: map[string]any{"refresh_token": "r-123"},
	})

	fields := logs.All()[0].ContextMap()
	actor := fields["actor"].(map[string]any)
	if actor["email"] != "t***@example.com" {
		t.Errorf("Expected redacted email, got %v", actor["email"])
	}
	md := fields["metadata"].(map[string]any)
	if md["refresh_token"] != redactedValue {
		t.Errorf("Expected redacted refresh token, got %v", md["refresh_token"])
	}
}

func TestZapLogger_LogNil(t *testing.T) {
	logger, logs := newObservedLogger(nil)

	if err := logger.Log(context.Background(), nil); err != nil {
		t.Errorf("Log(nil) returned error: %v", err)
	}
	if logs.Len() != 0 {
		t.Errorf("Log(nil) wrote %d entries", logs.Len())
	}
}

func TestNewZapLogger_NilLogger(t *testing.T) {
	logger := NewZapLogger(nil, nil)
	if err := logger.Log(context.Background(), &Event{Type: EventLogout, Result: ResultSuccess}); err != nil {
		t.Errorf("Log() returned error: %v", err)
	}
}
