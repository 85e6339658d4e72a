package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bloodlink/pkg/requestcontext"
)

// mockEmitter is a test double for the Emitter interface.
type mockEmitter struct {
	events    []Event
	shouldErr bool
}

func (m *mockEmitter) Emit(_ context.Context, event Event) error {
	if m.shouldErr {
		return errors.New("emit failed")
	}
	m.events = append(m.events, event)
	return nil
}

type stringer string

func (s stringer) String() string { return string(s) }

// LoggerSuite tests the audit Logger helper.
//
// Justification: The Logger has conditional enrichment (request_id from context)
// and error handling paths that are unreachable via handler tests.
type LoggerSuite struct {
	suite.Suite
	emitter *mockEmitter
	buf     *bytes.Buffer
	logger  *Logger
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerSuite))
}

func (s *LoggerSuite) SetupTest() {
	s.emitter = &mockEmitter{}
	s.buf = &bytes.Buffer{}
	textLogger := slog.New(slog.NewJSONHandler(s.buf, nil))
	s.logger = NewLogger(textLogger, s.emitter)
}

func (s *LoggerSuite) TestLogEnrichesWithRequestID() {
	ctx := requestcontext.WithRequestID(context.Background(), "req-12345")

	s.logger.Log(ctx, EventDonorRegistered, "subject", "donor-1")

	s.Require().Len(s.emitter.events, 1)
	s.Equal("req-12345", s.emitter.events[0].RequestID)
	s.Contains(s.buf.String(), `"request_id":"req-12345"`)
}

func (s *LoggerSuite) TestLogLiftsKnownAttributes() {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	s.logger.Log(ctx, EventRequestRejected,
		"subject", stringer("req-9"),
		"actor_id", "admin-7",
		"reason", "duplicate",
		"blood_group", "O-",
	)

	s.Require().Len(s.emitter.events, 1)
	ev := s.emitter.events[0]
	s.Equal("emergency_request_rejected", ev.Action)
	s.Equal("req-9", ev.Subject)
	s.Equal("admin-7", ev.ActorID)
	s.Equal("duplicate", ev.Reason)
	s.Equal(now, ev.Timestamp)
}

func (s *LoggerSuite) TestLogMarksAuditLogType() {
	s.logger.Log(context.Background(), EventDonationRecorded, "subject", "donor-1")

	s.Contains(s.buf.String(), `"log_type":"audit"`)
	s.Contains(s.buf.String(), `"event":"donation_recorded"`)
}

func (s *LoggerSuite) TestEmitFailureIsLoggedNotReturned() {
	s.emitter.shouldErr = true

	s.NotPanics(func() {
		s.logger.Log(context.Background(), EventDonorUpdated, "subject", "donor-1")
	})
	s.Contains(s.buf.String(), "failed to emit audit event")
}

func (s *LoggerSuite) TestNilLoggerIsNoop() {
	var l *Logger
	s.NotPanics(func() {
		l.Log(context.Background(), EventDonorUpdated)
	})
}

func (s *LoggerSuite) TestNoEmitterOnlyLogs() {
	l := NewLogger(slog.New(slog.NewJSONHandler(s.buf, nil)), nil)
	l.Log(context.Background(), EventRequestCreated, "subject", "req-1")

	s.Empty(s.emitter.events)
	s.Contains(s.buf.String(), "emergency_request_created")
}
