package audit

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger writes events as structured zap entries. Successful events are
// logged at info level, failures and denials at warn.
type ZapLogger struct {
	logger    *zap.Logger
	redaction *Redaction
}

// NewZapLogger creates a Logger on top of logger. A nil redaction still masks
// token-bearing metadata.
func NewZapLogger(logger *zap.Logger, redaction *Redaction) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{
		logger:    logger.Named("audit"),
		redaction: redaction,
	}
}

func (z *ZapLogger) Log(ctx context.Context, event *Event) error {
	if event == nil {
		return nil
	}
	e := z.redaction.Apply(event)

	fields := []zap.Field{
		zap.String("event_type", string(e.Type)),
		zap.String("event_result", string(e.Result)),
		zap.Time("timestamp", e.Timestamp),
	}
	if e.Actor != nil {
		fields = append(fields, zap.Object("actor", actorMarshaler(*e.Actor)))
	}
	if e.Source != nil {
		fields = append(fields, zap.Object("source", sourceMarshaler(*e.Source)))
	}
	if e.ErrorCode != "" {
		fields = append(fields, zap.String("error_code", e.ErrorCode))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	if len(e.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", e.Metadata))
	}

	if e.Result == ResultSuccess {
		z.logger.Info("audit event", fields...)
	} else {
		z.logger.Warn("audit event", fields...)
	}
	return nil
}

type actorMarshaler Actor

func (a actorMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("provider", a.Provider)
	if a.UUID != "" {
		enc.AddString("uuid", a.UUID)
	}
	if a.Username != "" {
		enc.AddString("username", a.Username)
	}
	if a.Email != "" {
		enc.AddString("email", a.Email)
	}
	return nil
}

type sourceMarshaler Source

func (s sourceMarshaler) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if s.IPAddress != "" {
		enc.AddString("ip_address", s.IPAddress)
	}
	if s.UserAgent != "" {
		enc.AddString("user_agent", s.UserAgent)
	}
	if s.RequestID != "" {
		enc.AddString("request_id", s.RequestID)
	}
	return nil
}
