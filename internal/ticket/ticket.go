// Package ticket handles the side effects of ticket creation: a SQLite audit
// log and optional outbound notifiers (Slack message, GitHub issue). Session
// state itself stays in the session store; this package only records what was
// issued.
package ticket

import (
	"context"
	"log"
	"time"
)

// recordType tags every audit entry with the workflow it belongs to.
const recordType = "quality_inspection"

// Record describes one issued ticket.
type Record struct {
	ID        int64     `json:"id"`
	Number    string    `json:"number"`
	SessionID string    `json:"session_id"`
	Type      string    `json:"type"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Notifier delivers a ticket record to an external system.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, rec Record) error
}

// Manager persists ticket records and fans them out to notifiers.
// Notification is best effort and runs off the request path; a failed
// notifier never fails ticket creation.
type Manager struct {
	log       *Log // nil disables the audit log
	notifiers []Notifier
}

// NewManager builds a Manager. Pass a nil log to skip auditing.
func NewManager(auditLog *Log, notifiers ...Notifier) *Manager {
	return &Manager{log: auditLog, notifiers: notifiers}
}

// Record implements chat.TicketRecorder.
func (m *Manager) Record(_ context.Context, sessionID, number string, issuedAt time.Time) {
	rec := Record{
		Number:    number,
		SessionID: sessionID,
		Type:      recordType,
		IssuedAt:  issuedAt,
	}

	if m.log != nil {
		if err := m.log.Insert(&rec); err != nil {
			log.Printf("Ticket audit log insert failed for %s: %v", number, err)
		}
	}

	for _, n := range m.notifiers {
		go func(n Notifier) {
			// Detached from the request context on purpose: the HTTP
			// response does not wait for notification delivery.
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := n.Notify(ctx, rec); err != nil {
				log.Printf("Ticket notifier %s failed for %s: %v", n.Name(), number, err)
			}
		}(n)
	}
}

// Close releases the audit log.
func (m *Manager) Close() error {
	if m.log != nil {
		return m.log.Close()
	}
	return nil
}
