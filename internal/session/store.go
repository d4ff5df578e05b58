package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSessionNotFound is returned by read-only probes that do not auto-create.
var ErrSessionNotFound = errors.New("session not found")

// Store manages all sessions. Lookups on mutating operations are
// create-or-fetch: a session always exists before any operation touches it.
//
// Mutations on a single session are serialized by a per-session mutex;
// operations on different sessions never contend. Use Do to run a compound
// operation (e.g. a whole chat turn) as one critical section.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// SetClock overrides the store's time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// lookup returns the entry for id, creating it with zeroed defaults when
// absent. It never overwrites existing state.
func (s *Store) lookup(id string) *entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e
	}
	e = &entry{sess: &Session{
		ID:              id,
		LastInteraction: s.now(),
	}}
	s.entries[id] = e
	return e
}

// probe returns the entry for id without creating it.
func (s *Store) probe(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Do runs fn under the session's lock, creating the session first when
// absent. The lock covers the whole call, so a compound operation such as
// "append message, assemble prompt, await generation, append response" cannot
// interleave with a concurrent clear, upload, or ticket creation on the same
// session. An error from fn is returned unchanged.
func (s *Store) Do(id string, fn func(*Session) error) error {
	e := s.lookup(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.sess)
}

// GetOrCreate returns a snapshot of the session, creating it when absent.
func (s *Store) GetOrCreate(id string) Session {
	e := s.lookup(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.clone()
}

// Snapshot returns a copy of the session without creating it. The second
// return is false when the session has never been referenced.
func (s *Store) Snapshot(id string) (Session, bool) {
	e, ok := s.probe(id)
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.clone(), true
}

// ReplaceAttachments discards the session's previous attachment set and
// installs atts in its place. Both one-shot ticket flags reset to false.
// It returns the filenames of the displaced attachments so the caller can
// release their backing storage after the new state is installed.
func (s *Store) ReplaceAttachments(id string, atts []Attachment) (displaced []string) {
	s.Do(id, func(sess *Session) error {
		for _, a := range sess.Attachments {
			displaced = append(displaced, a.Filename)
		}
		sess.Attachments = append([]Attachment(nil), atts...)
		sess.TicketCreated = false
		sess.TicketButtonClicked = false
		sess.LastInteraction = s.now()
		return nil
	})
	return displaced
}

// AppendMessage appends a message to the session's log in chronological
// order and returns the stored message.
func (s *Store) AppendMessage(id string, role Role, content string) Message {
	var msg Message
	s.Do(id, func(sess *Session) error {
		msg = sess.append(role, content, s.now())
		return nil
	})
	return msg
}

// append records a message on an already-locked session. Used by Store
// helpers and by compound operations running inside Do.
func (s *Session) append(role Role, content string, now time.Time) Message {
	msg := Message{Role: role, Content: content, Timestamp: now}
	s.Messages = append(s.Messages, msg)
	s.LastInteraction = now
	return msg
}

// Clear empties the session's messages and attachments and resets the
// one-shot ticket flags. The ticket counter and feedback entries survive.
// It returns the filenames of the removed attachments for storage release.
func (s *Store) Clear(id string) (displaced []string) {
	s.Do(id, func(sess *Session) error {
		for _, a := range sess.Attachments {
			displaced = append(displaced, a.Filename)
		}
		sess.Messages = nil
		sess.Attachments = nil
		sess.TicketCreated = false
		sess.TicketButtonClicked = false
		sess.LastInteraction = s.now()
		return nil
	})
	return displaced
}

// CreateTicket increments the session's ticket counter and returns the
// formatted ticket number ("Q001", "Q002", ...). It also sets TicketCreated
// and TicketButtonClicked, suppressing the affordance until the next upload
// or clear.
func (s *Store) CreateTicket(id string) string {
	var number string
	s.Do(id, func(sess *Session) error {
		sess.TicketCounter++
		sess.TicketCreated = true
		sess.TicketButtonClicked = true
		sess.LastInteraction = s.now()
		number = FormatTicketNumber(sess.TicketCounter)
		return nil
	})
	return number
}

// FormatTicketNumber renders a counter value as a ticket identifier.
func FormatTicketNumber(counter int) string {
	return fmt.Sprintf("Q%03d", counter)
}

// RecordFeedback appends a feedback entry and marks the session as having
// submitted feedback.
func (s *Store) RecordFeedback(id string, rating int, comment string) {
	s.Do(id, func(sess *Session) error {
		sess.Feedback = append(sess.Feedback, Feedback{
			Rating:    rating,
			Comment:   comment,
			Timestamp: s.now(),
		})
		sess.FeedbackSubmitted = true
		sess.LastInteraction = s.now()
		return nil
	})
}

// IdleDuration returns the time elapsed since the session's last
// interaction. Unlike the mutating operations this is a strict read-only
// probe: it reports ErrSessionNotFound instead of creating the session.
func (s *Store) IdleDuration(id string) (time.Duration, error) {
	e, ok := s.probe(id)
	if !ok {
		return 0, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.now().Sub(e.sess.LastInteraction), nil
}
