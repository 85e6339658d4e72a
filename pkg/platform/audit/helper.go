package audit

import (
	"context"
	"log/slog"
	"time"

	"bloodlink/pkg/requestcontext"
)

// Emitter persists audit events. Satisfied by the memory and postgres stores.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger provides structured audit logging with optional event emission.
// A nil *Logger is valid and does nothing.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
}

// NewLogger creates an audit logger.
// textLogger is used for structured logging; emitter is optional for event persistence.
func NewLogger(textLogger *slog.Logger, emitter Emitter) *Logger {
	return &Logger{
		textLogger: textLogger,
		emitter:    emitter,
	}
}

// Log logs an audit event to text and optionally emits it to the audit store.
// request_id is taken from the context. The "subject", "actor_id" and
// "reason" attributes are lifted into the stored event.
//
//	auditLogger.Log(ctx, audit.EventDonorRegistered, "subject", donor.ID.String())
func (l *Logger) Log(ctx context.Context, action Action, attributes ...any) {
	if l == nil {
		return
	}
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}

	l.logToText(ctx, string(action), attributes)
	l.emitToStore(ctx, action, requestID, attributes)
}

func (l *Logger) logToText(ctx context.Context, event string, attributes []any) {
	if l.textLogger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	l.textLogger.InfoContext(ctx, event, args...)
}

func (l *Logger) emitToStore(ctx context.Context, action Action, requestID string, attributes []any) {
	if l.emitter == nil {
		return
	}

	err := l.emitter.Emit(ctx, Event{
		Timestamp: timestamp(ctx),
		Subject:   extractString(attributes, "subject"),
		Action:    string(action),
		ActorID:   extractString(attributes, "actor_id"),
		RequestID: requestID,
		Reason:    extractString(attributes, "reason"),
	})
	if err != nil && l.textLogger != nil {
		l.textLogger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"event", string(action),
		)
	}
}

func timestamp(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC()
}

// extractString returns the string value following key in a slog-style
// key/value list. Non-string values are ignored.
func extractString(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		k, ok := attributes[i].(string)
		if !ok || k != key {
			continue
		}
		switch v := attributes[i+1].(type) {
		case string:
			return v
		case interface{ String() string }:
			return v.String()
		}
	}
	return ""
}
