package journal

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordCommand(t *testing.T) {
	s := openTestStore(t)

	if err := s.RecordCommand("cmd-1", "connect", nil); err != nil {
		t.Fatalf("RecordCommand: %v", err)
	}
	if err := s.RecordCommand("cmd-2", "pause", errors.New("no application running")); err != nil {
		t.Fatalf("RecordCommand with error: %v", err)
	}

	rows, err := s.db.Query(`SELECT command_id, name, error FROM commands ORDER BY id`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	type rec struct{ id, name, msg string }
	var got []rec
	for rows.Next() {
		var r rec
		if err := rows.Scan(&r.id, &r.name, &r.msg); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}

	want := []rec{
		{"cmd-1", "connect", ""},
		{"cmd-2", "pause", "no application running"},
	}
	if len(got) != len(want) {
		t.Fatalf("rows = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRecordTransition(t *testing.T) {
	s := openTestStore(t)

	if err := s.RecordTransition("connect", "idle", "connected"); err != nil {
		t.Fatalf("RecordTransition: %v", err)
	}

	var trigger, source, dest string
	row := s.db.QueryRow(`SELECT "trigger", source, dest FROM transitions`)
	if err := row.Scan(&trigger, &source, &dest); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if trigger != "connect" || source != "idle" || dest != "connected" {
		t.Fatalf("row = %s %s %s", trigger, source, dest)
	}
}

func TestOpenReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.RecordTransition("connect", "idle", "connected"); err != nil {
		t.Fatalf("RecordTransition: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	var n int
	if err := s2.db.QueryRow(`SELECT COUNT(*) FROM transitions`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("transitions after reopen = %d, want 1", n)
	}
}

func TestCloseNil(t *testing.T) {
	var s *Store
	if err := s.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
