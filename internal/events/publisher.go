// Package events publishes audit events for organizer displays and tooling.
package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects emitted by the service.
const (
	SubjectAttemptStarted   = "event.attempt.started"
	SubjectAttemptCompleted = "event.attempt.completed"
	SubjectViolation        = "event.proctor.violation"
	SubjectLockout          = "event.proctor.lockout"
	SubjectUnlock           = "event.proctor.unlock"
)

// Publisher emits best-effort audit events; failures are logged, never
// propagated.
type Publisher interface {
	Publish(subject string, payload any)
}

// NATSPublisher publishes JSON payloads to NATS.
type NATSPublisher struct {
	conn *nats.Conn
	log  *zap.Logger
}

func Connect(url string, log *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn, log: log}, nil
}

func (p *NATSPublisher) Publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Warn("marshal event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn("publish event", zap.String("subject", subject), zap.Error(err))
	}
}

// Close flushes and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// Nop discards all events; used when NATS is not configured.
type Nop struct{}

func (Nop) Publish(string, any) {}
