package devserver

import (
	"context"
	"io"
	"sync"

	"github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/sirupsen/logrus"
)

// ResetNotifier delivers password reset links.
type ResetNotifier interface {
	SendReset(ctx context.Context, email, link string) error
}

// LogNotifier writes reset links to the log instead of sending mail.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

// SendReset implements [ResetNotifier].
func (n LogNotifier) SendReset(_ context.Context, email, link string) error {
	logger := n.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"email": email,
		"link":  link,
	}).Infoln("Password reset requested")
	return nil
}

// MemoryNotifier records the last link sent per email.
type MemoryNotifier struct {
	mu    sync.Mutex
	links map[string]string
}

// SendReset implements [ResetNotifier].
func (n *MemoryNotifier) SendReset(_ context.Context, email, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.links == nil {
		n.links = make(map[string]string)
	}
	n.links[email] = link
	return nil
}

// Link returns the last link sent to email.
func (n *MemoryNotifier) Link(email string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	link, ok := n.links[email]
	return link, ok
}

// AuditEvent is one authentication outcome.
type AuditEvent = audit.Event

// AuditSink receives audit events off the request path.
type AuditSink = audit.Sink

// Audit event types.
const (
	AuditLogin         = audit.TypeLogin
	AuditRegister      = audit.TypeRegister
	AuditDevLogin      = audit.TypeDevLogin
	AuditVerify        = audit.TypeVerify
	AuditResetRequest  = audit.TypeResetRequest
	AuditResetComplete = audit.TypeResetComplete
)

// NewJSONAuditSink writes audit events to w as JSON lines.
func NewJSONAuditSink(w io.Writer) AuditSink { return audit.NewJSONWriterSink(w) }

// NewLogAuditSink writes audit events as log entries.
func NewLogAuditSink(l logrus.FieldLogger) AuditSink { return audit.LogSink{Logger: l} }
