// Package chat implements the conversational core of Inspecta: uploads,
// chat turns against the generation backend, ticket creation, feedback,
// and session lifecycle. The HTTP server and the Telegram channel both
// drive this service.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inspecta-dev/inspecta/internal/classify"
	"github.com/inspecta-dev/inspecta/internal/gateway"
	"github.com/inspecta-dev/inspecta/internal/hazard"
	"github.com/inspecta-dev/inspecta/internal/session"
)

// Fixed response strings for degraded turns.
const (
	unavailableMessage = "I apologize, but the AI model is currently unavailable."
	errorMessage       = "An error occurred while processing your request."
)

// ErrNoFeedback is returned when a feedback export finds no entries.
var ErrNoFeedback = errors.New("no feedback data available")

// FileStore moves attachment bytes by filename.
type FileStore interface {
	Save(filename string, data []byte) error
	Read(filename string) ([]byte, error)
	Delete(filename string) error
}

// TicketRecorder receives a notification for every issued ticket. The audit
// log and the outbound notifiers hang off this.
type TicketRecorder interface {
	Record(ctx context.Context, sessionID, number string, issuedAt time.Time)
}

// Service is the conversational core. Generator may be nil when the backend
// failed to initialize; chat turns then degrade with a fixed message.
type Service struct {
	store     *session.Store
	files     FileStore
	generator gateway.Generator
	tickets   TicketRecorder // nil disables ticket side effects
	timeout   time.Duration
	now       func() time.Time
}

// NewService wires the conversational core together. timeout bounds each
// generation call; zero means no bound beyond the caller's context.
func NewService(store *session.Store, files FileStore, gen gateway.Generator, tickets TicketRecorder, timeout time.Duration) *Service {
	return &Service{
		store:     store,
		files:     files,
		generator: gen,
		tickets:   tickets,
		timeout:   timeout,
		now:       time.Now,
	}
}

// SetClock overrides the service's time source. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Store exposes the underlying session store for read-only handlers.
func (s *Service) Store() *session.Store {
	return s.store
}

// InitSession creates the session when absent and returns a snapshot.
func (s *Service) InitSession(id string) session.Session {
	return s.store.GetOrCreate(id)
}

// Result is the outcome of one chat turn.
type Result struct {
	Response            string
	IsVoiceInput        bool
	ShowTicketButton    bool
	TicketCreated       bool
	FeedbackSubmitted   bool
	TicketButtonClicked bool
	Err                 error // non-nil on a degraded turn
}

// Chat runs one conversational turn: record the user message, assemble the
// multi-part prompt from the session's attachments, call the generation
// backend, derive the affordance signal, and record the assistant reply.
//
// The whole turn runs under the session's lock so a concurrent clear,
// upload, or ticket creation cannot interleave. The user message is
// committed before the backend call on purpose: history reflects what was
// asked even when generation fails.
func (s *Service) Chat(ctx context.Context, id, text string, isVoice bool) Result {
	res := Result{IsVoiceInput: isVoice}

	s.store.Do(id, func(sess *session.Session) error {
		s.appendLocked(sess, session.RoleUser, text)

		parts, hasImage := assembleParts(s.files, sess.Attachments, text)

		if s.generator == nil {
			res.Response = unavailableMessage
			res.Err = gateway.ErrUnavailable
		} else {
			genCtx := ctx
			if s.timeout > 0 {
				var cancel context.CancelFunc
				genCtx, cancel = context.WithTimeout(ctx, s.timeout)
				defer cancel()
			}

			reply, err := s.generator.Generate(genCtx, parts)
			if err != nil {
				log.Printf("Chat generation failed for session %s: %v", id, err)
				res.Response = errorMessage
				res.Err = err
			} else {
				res.Response = reply
				res.ShowTicketButton = hazard.ShowTicketButton(reply, hasImage, sess.TicketButtonClicked)
				s.appendLocked(sess, session.RoleAssistant, reply)
			}
		}

		res.TicketCreated = sess.TicketCreated
		res.FeedbackSubmitted = sess.FeedbackSubmitted
		res.TicketButtonClicked = sess.TicketButtonClicked
		return nil
	})

	return res
}

// appendLocked records a message on a session already held under its lock.
func (s *Service) appendLocked(sess *session.Session, role session.Role, content string) {
	sess.Messages = append(sess.Messages, session.Message{
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	})
	sess.LastInteraction = s.now()
}

// Upload stores the uploaded bytes under a server-assigned collision-resistant
// name and installs the file as the session's single current attachment.
// Displaced attachments are released from storage only after the new state is
// installed, so an in-flight prompt assembly never reads a just-deleted file.
func (s *Service) Upload(id, originalName string, data []byte) (session.Attachment, error) {
	stored := storedFilename(s.now(), originalName)
	category, mimeType := classify.Classify(stored)

	if err := s.files.Save(stored, data); err != nil {
		return session.Attachment{}, fmt.Errorf("saving upload: %w", err)
	}

	att := session.Attachment{
		Filename: stored,
		Category: category,
		MimeType: mimeType,
	}
	displaced := s.store.ReplaceAttachments(id, []session.Attachment{att})
	for _, name := range displaced {
		if err := s.files.Delete(name); err != nil {
			log.Printf("Releasing displaced attachment %s: %v", name, err)
		}
	}
	return att, nil
}

// storedFilename builds the server-assigned upload name: a unix-timestamp
// prefix plus a short random component, keeping the client's base name for
// extension-driven classification.
func storedFilename(now time.Time, originalName string) string {
	base := filepath.Base(strings.TrimSpace(originalName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "upload"
	}
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%d_%s_%s", now.Unix(), uuid.New().String()[:8], base)
}

// CreateTicket issues the next ticket number for the session and fans the
// record out to the recorder (audit log, notifiers). Both one-shot flags are
// set, suppressing the affordance until the next upload or clear.
func (s *Service) CreateTicket(ctx context.Context, id string) (number, message string) {
	number = s.store.CreateTicket(id)
	if s.tickets != nil {
		s.tickets.Record(ctx, id, number, s.now())
	}
	return number, fmt.Sprintf("Quality Inspection Ticket %s created successfully!", number)
}

// Clear empties the session's conversation and attachment state and releases
// the backing files. The ticket counter and feedback entries survive.
func (s *Service) Clear(id string) {
	for _, name := range s.store.Clear(id) {
		if err := s.files.Delete(name); err != nil {
			log.Printf("Releasing cleared attachment %s: %v", name, err)
		}
	}
}

// SubmitFeedback records a feedback entry for the session.
func (s *Service) SubmitFeedback(id string, rating int, comment string) {
	s.store.RecordFeedback(id, rating, comment)
}

// ExportFeedbackCSV renders the session's feedback entries as CSV with a
// Timestamp,Rating,Comment header. The comment field is always quoted. It
// fails with ErrNoFeedback when the session is absent or has no entries.
func (s *Service) ExportFeedbackCSV(id string) (csvText, filename string, err error) {
	sess, ok := s.store.Snapshot(id)
	if !ok || len(sess.Feedback) == 0 {
		return "", "", ErrNoFeedback
	}

	var b strings.Builder
	b.WriteString("Timestamp,Rating,Comment\n")
	for _, fb := range sess.Feedback {
		fmt.Fprintf(&b, "%s,%d,\"%s\"\n", fb.Timestamp.Format(time.RFC3339), fb.Rating, fb.Comment)
	}
	return b.String(), fmt.Sprintf("feedback_%s.csv", id), nil
}

// CheckIdle reports whether the session has been idle for at least the
// threshold. A session that was never created reports not idle with zero
// elapsed time: polling clients may race session creation.
func (s *Service) CheckIdle(id string, threshold time.Duration) (isIdle bool, idle time.Duration) {
	d, err := s.store.IdleDuration(id)
	if err != nil {
		return false, 0
	}
	return d >= threshold, d
}
