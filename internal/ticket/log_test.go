package ticket_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/inspecta-dev/inspecta/internal/ticket"
)

func newTestLog(t *testing.T) *ticket.Log {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tickets.db")
	l, err := ticket.OpenLog(dbPath)
	if err != nil {
		t.Fatalf("OpenLog(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpenLog_InvalidPath(t *testing.T) {
	if _, err := ticket.OpenLog("/no/such/dir/tickets.db"); err == nil {
		t.Fatal("expected error for invalid path, got nil")
	}
}

func TestInsertAndBySession(t *testing.T) {
	l := newTestLog(t)

	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []*ticket.Record{
		{Number: "Q001", SessionID: "sess-1", Type: "quality_inspection", IssuedAt: issued},
		{Number: "Q002", SessionID: "sess-1", Type: "quality_inspection", IssuedAt: issued.Add(time.Minute)},
		{Number: "Q001", SessionID: "sess-2", Type: "quality_inspection", IssuedAt: issued},
	}
	for _, rec := range recs {
		if err := l.Insert(rec); err != nil {
			t.Fatalf("Insert(%s): %v", rec.Number, err)
		}
		if rec.ID == 0 {
			t.Errorf("Insert(%s) did not assign an ID", rec.Number)
		}
	}

	got, err := l.BySession("sess-1")
	if err != nil {
		t.Fatalf("BySession: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d; want 2", len(got))
	}
	if got[0].Number != "Q001" || got[1].Number != "Q002" {
		t.Errorf("order = %s,%s; want Q001,Q002", got[0].Number, got[1].Number)
	}
	if got[0].SessionID != "sess-1" {
		t.Errorf("session = %q", got[0].SessionID)
	}
}

func TestManager_RecordWritesAuditLog(t *testing.T) {
	l := newTestLog(t)
	m := ticket.NewManager(l)

	m.Record(context.Background(), "sess-1", "Q001", time.Now().UTC())

	got, err := l.BySession("sess-1")
	if err != nil {
		t.Fatalf("BySession: %v", err)
	}
	if len(got) != 1 || got[0].Number != "Q001" || got[0].Type != "quality_inspection" {
		t.Errorf("audit entries = %+v", got)
	}
}
