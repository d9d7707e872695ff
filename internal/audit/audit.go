package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event types emitted by the auth API.
const (
	TypeLogin         = "login"
	TypeRegister      = "register"
	TypeDevLogin      = "dev_login"
	TypeVerify        = "verify"
	TypeResetRequest  = "password_reset_request"
	TypeResetComplete = "password_reset"
)

// Event records one authentication outcome. Tokens and passwords never
// appear in it.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	IP        string            `json:"ip,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Success   bool              `json:"success"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives events from a [Dispatcher].
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// ChannelSink hands events to a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}

// LogSink writes events as structured log entries. Failures log at warning
// level.
type LogSink struct {
	Logger logrus.FieldLogger
}

func (s LogSink) Emit(_ context.Context, event Event) {
	entry := s.Logger.WithFields(logrus.Fields{
		"event":   event.Type,
		"success": event.Success,
	})
	if event.UserID != "" {
		entry = entry.WithField("userID", event.UserID)
	}
	if event.IP != "" {
		entry = entry.WithField("ip", event.IP)
	}
	if event.RequestID != "" {
		entry = entry.WithField("requestID", event.RequestID)
	}
	if event.Success {
		entry.Infoln("Audit")
		return
	}
	entry.WithField("reason", event.Reason).Warnln("Audit")
}
