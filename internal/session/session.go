// Package session provides the in-memory session store for Inspecta.
//
// A session holds one user's conversation state: the message log, the current
// attachment set, the ticket counter, feedback entries, and the one-shot flags
// that gate the ticket affordance. Sessions are keyed by an opaque identifier
// supplied by the client and live for the lifetime of the process.
package session

import (
	"time"

	"github.com/inspecta-dev/inspecta/internal/classify"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a session's conversation log.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Attachment is an uploaded file associated with the current turn. The bytes
// live in the upload store; the session only carries the reference.
type Attachment struct {
	Filename string            `json:"filename"`
	Category classify.Category `json:"category"`
	MimeType string            `json:"mime_type"`
}

// Feedback is a single user feedback entry.
type Feedback struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the full per-conversation state.
//
// TicketCreated and TicketButtonClicked are one-shot flags: both reset to
// false when a new attachment is uploaded or the session is cleared.
// TicketCounter is monotone and survives Clear.
type Session struct {
	ID                  string       `json:"id"`
	Messages            []Message    `json:"messages"`
	Attachments         []Attachment `json:"attachments"`
	TicketCounter       int          `json:"ticket_counter"`
	Feedback            []Feedback   `json:"feedback"`
	TicketCreated       bool         `json:"ticket_created"`
	TicketButtonClicked bool         `json:"ticket_button_clicked"`
	FeedbackSubmitted   bool         `json:"feedback_submitted"`
	LastInteraction     time.Time    `json:"last_interaction"`
}

// clone returns a deep copy safe to hand out after the lock is released.
func (s *Session) clone() Session {
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Attachments = append([]Attachment(nil), s.Attachments...)
	out.Feedback = append([]Feedback(nil), s.Feedback...)
	return out
}
