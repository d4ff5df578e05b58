package session_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/inspecta-dev/inspecta/internal/classify"
	"github.com/inspecta-dev/inspecta/internal/session"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*session.Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	store := session.NewStore()
	store.SetClock(clock.Now)
	return store, clock
}

func imageAttachment(name string) session.Attachment {
	return session.Attachment{
		Filename: name,
		Category: classify.CategoryImage,
		MimeType: "image/png",
	}
}

// ---------------------------------------------------------------------------
// GetOrCreate
// ---------------------------------------------------------------------------

func TestGetOrCreate_NewSession(t *testing.T) {
	store, clock := newTestStore(t)

	sess := store.GetOrCreate("sess-1")
	if sess.ID != "sess-1" {
		t.Errorf("ID = %q; want sess-1", sess.ID)
	}
	if len(sess.Messages) != 0 || len(sess.Attachments) != 0 || len(sess.Feedback) != 0 {
		t.Error("new session should have empty sequences")
	}
	if sess.TicketCounter != 0 {
		t.Errorf("TicketCounter = %d; want 0", sess.TicketCounter)
	}
	if sess.TicketCreated || sess.TicketButtonClicked || sess.FeedbackSubmitted {
		t.Error("new session should have all flags false")
	}
	if !sess.LastInteraction.Equal(clock.Now()) {
		t.Errorf("LastInteraction = %v; want %v", sess.LastInteraction, clock.Now())
	}
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	store, _ := newTestStore(t)

	store.AppendMessage("sess-1", session.RoleUser, "hello")
	sess := store.GetOrCreate("sess-1")
	if len(sess.Messages) != 1 {
		t.Fatalf("GetOrCreate overwrote existing state: %d messages; want 1", len(sess.Messages))
	}
}

func TestSnapshot_NonCreating(t *testing.T) {
	store, _ := newTestStore(t)

	if _, ok := store.Snapshot("ghost"); ok {
		t.Fatal("Snapshot created a session")
	}
	if _, ok := store.Snapshot("ghost"); ok {
		t.Fatal("Snapshot reported a session it should not have created")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	store, _ := newTestStore(t)

	store.AppendMessage("sess-1", session.RoleUser, "hello")
	snap, ok := store.Snapshot("sess-1")
	if !ok {
		t.Fatal("Snapshot: session missing")
	}
	snap.Messages[0].Content = "mutated"

	again, _ := store.Snapshot("sess-1")
	if again.Messages[0].Content != "hello" {
		t.Error("mutating a snapshot leaked into the store")
	}
}

// ---------------------------------------------------------------------------
// Attachments and one-shot flags
// ---------------------------------------------------------------------------

func TestReplaceAttachments_ReplacesWholeSet(t *testing.T) {
	store, _ := newTestStore(t)

	store.ReplaceAttachments("sess-1", []session.Attachment{imageAttachment("a.png")})
	displaced := store.ReplaceAttachments("sess-1", []session.Attachment{imageAttachment("b.png")})

	if len(displaced) != 1 || displaced[0] != "a.png" {
		t.Errorf("displaced = %v; want [a.png]", displaced)
	}
	sess, _ := store.Snapshot("sess-1")
	if len(sess.Attachments) != 1 || sess.Attachments[0].Filename != "b.png" {
		t.Errorf("attachments = %v; want single b.png", sess.Attachments)
	}
}

func TestReplaceAttachments_ResetsOneShotFlags(t *testing.T) {
	store, _ := newTestStore(t)

	store.CreateTicket("sess-1")
	sess, _ := store.Snapshot("sess-1")
	if !sess.TicketCreated || !sess.TicketButtonClicked {
		t.Fatal("CreateTicket should set both one-shot flags")
	}

	store.ReplaceAttachments("sess-1", []session.Attachment{imageAttachment("new.png")})
	sess, _ = store.Snapshot("sess-1")
	if sess.TicketCreated || sess.TicketButtonClicked {
		t.Error("upload should reset TicketCreated and TicketButtonClicked")
	}
	if sess.TicketCounter != 1 {
		t.Errorf("TicketCounter = %d; want 1 (upload must not touch the counter)", sess.TicketCounter)
	}
}

// ---------------------------------------------------------------------------
// Clear
// ---------------------------------------------------------------------------

func TestClear_PreservesCounterAndFeedback(t *testing.T) {
	store, _ := newTestStore(t)

	store.AppendMessage("sess-1", session.RoleUser, "is this broken?")
	store.AppendMessage("sess-1", session.RoleAssistant, "there is a crack")
	store.ReplaceAttachments("sess-1", []session.Attachment{imageAttachment("part.png")})
	store.CreateTicket("sess-1")
	store.RecordFeedback("sess-1", 5, "great")

	displaced := store.Clear("sess-1")
	if len(displaced) != 1 || displaced[0] != "part.png" {
		t.Errorf("displaced = %v; want [part.png]", displaced)
	}

	sess, _ := store.Snapshot("sess-1")
	if len(sess.Messages) != 0 || len(sess.Attachments) != 0 {
		t.Error("Clear should empty messages and attachments")
	}
	if sess.TicketCounter != 1 {
		t.Errorf("TicketCounter = %d after Clear; want 1", sess.TicketCounter)
	}
	if len(sess.Feedback) != 1 {
		t.Errorf("Feedback has %d entries after Clear; want 1", len(sess.Feedback))
	}
	if sess.TicketCreated || sess.TicketButtonClicked {
		t.Error("Clear should reset the one-shot ticket flags")
	}
	if !sess.FeedbackSubmitted {
		t.Error("Clear should not reset FeedbackSubmitted")
	}
}

// ---------------------------------------------------------------------------
// Tickets
// ---------------------------------------------------------------------------

func TestCreateTicket_NumberingAndFormat(t *testing.T) {
	store, _ := newTestStore(t)

	for n := 1; n <= 12; n++ {
		got := store.CreateTicket("sess-1")
		want := fmt.Sprintf("Q%03d", n)
		if got != want {
			t.Errorf("ticket %d = %q; want %q", n, got, want)
		}
	}
}

func TestCreateTicket_CounterSurvivesClear(t *testing.T) {
	store, _ := newTestStore(t)

	store.CreateTicket("sess-1")
	store.CreateTicket("sess-1")
	store.Clear("sess-1")

	if got := store.CreateTicket("sess-1"); got != "Q003" {
		t.Errorf("ticket after clear = %q; want Q003", got)
	}
}

func TestCreateTicket_IndependentPerSession(t *testing.T) {
	store, _ := newTestStore(t)

	store.CreateTicket("a")
	store.CreateTicket("a")
	if got := store.CreateTicket("b"); got != "Q001" {
		t.Errorf("first ticket for session b = %q; want Q001", got)
	}
}

// ---------------------------------------------------------------------------
// Feedback
// ---------------------------------------------------------------------------

func TestRecordFeedback(t *testing.T) {
	store, clock := newTestStore(t)

	store.RecordFeedback("sess-1", 4, "helpful")
	store.RecordFeedback("sess-1", 2, "")

	sess, _ := store.Snapshot("sess-1")
	if !sess.FeedbackSubmitted {
		t.Error("FeedbackSubmitted = false; want true")
	}
	if len(sess.Feedback) != 2 {
		t.Fatalf("len(Feedback) = %d; want 2", len(sess.Feedback))
	}
	if sess.Feedback[0].Rating != 4 || sess.Feedback[0].Comment != "helpful" {
		t.Errorf("Feedback[0] = %+v", sess.Feedback[0])
	}
	if !sess.Feedback[1].Timestamp.Equal(clock.Now()) {
		t.Errorf("Feedback timestamp = %v; want %v", sess.Feedback[1].Timestamp, clock.Now())
	}
}

// ---------------------------------------------------------------------------
// Idle
// ---------------------------------------------------------------------------

func TestIdleDuration(t *testing.T) {
	store, clock := newTestStore(t)

	store.GetOrCreate("sess-1")
	clock.Advance(31 * time.Second)

	idle, err := store.IdleDuration("sess-1")
	if err != nil {
		t.Fatalf("IdleDuration: %v", err)
	}
	if idle != 31*time.Second {
		t.Errorf("idle = %v; want 31s", idle)
	}
}

func TestIdleDuration_NotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.IdleDuration("ghost")
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("err = %v; want ErrSessionNotFound", err)
	}
}

func TestIdleDuration_ResetByInteraction(t *testing.T) {
	store, clock := newTestStore(t)

	store.GetOrCreate("sess-1")
	clock.Advance(45 * time.Second)
	store.AppendMessage("sess-1", session.RoleUser, "still here")
	clock.Advance(29 * time.Second)

	idle, err := store.IdleDuration("sess-1")
	if err != nil {
		t.Fatalf("IdleDuration: %v", err)
	}
	if idle != 29*time.Second {
		t.Errorf("idle = %v; want 29s", idle)
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestConcurrentTickets_NoLostUpdates(t *testing.T) {
	store := session.NewStore()

	const workers = 16
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				store.CreateTicket("shared")
			}
		}()
	}
	wg.Wait()

	sess, _ := store.Snapshot("shared")
	if sess.TicketCounter != workers*perWorker {
		t.Errorf("TicketCounter = %d; want %d", sess.TicketCounter, workers*perWorker)
	}
}

func TestDo_CompoundOperationIsAtomic(t *testing.T) {
	store := session.NewStore()

	// A writer inside Do must not observe interleaved clears.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			store.Clear("shared")
		}
	}()

	for i := 0; i < 100; i++ {
		err := store.Do("shared", func(sess *session.Session) error {
			sess.Attachments = []session.Attachment{imageAttachment("x.png")}
			if len(sess.Attachments) != 1 {
				return errors.New("attachment vanished mid-operation")
			}
			sess.Attachments = nil
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	<-done
}
