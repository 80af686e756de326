package restyle

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestJournal_RoundTrip(t *testing.T) {
	journal, err := OpenJournal(filepath.Join(t.TempDir(), "restyle.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()

	record := &SessionRecord{
		ID:           "20240101T000000.000000000-1234",
		Branch:       "feature/x",
		OriginalTip:  "4e3915789cbbdf31daee75b053cc88b5f486086e",
		TargetBase:   "development",
		WorktreePath: "/tmp/restyle-feature_x-1234",
		Ok:           true,
		StartedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := journal.Put(record); err != nil {
		t.Fatal(err)
	}

	got, err := journal.Get(record.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(record, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	// updating in place replaces, not duplicates
	record.Ok = false
	record.RewrittenHead = "0f064f9c95c92b166e148f6fdac0bda3e8a7dcaf"
	if err := journal.Put(record); err != nil {
		t.Fatal(err)
	}

	records, err := journal.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Ok || records[0].RewrittenHead != record.RewrittenHead {
		t.Fatalf("updated record not persisted: %+v", records[0])
	}
}

func TestJournal_GetMissing(t *testing.T) {
	journal, err := OpenJournal(filepath.Join(t.TempDir(), "restyle.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()

	got, err := journal.Get("no-such-id")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("missing record = %+v, want nil", got)
	}
}

func TestNewSessionID_Unique(t *testing.T) {
	a := newSessionID()
	time.Sleep(time.Millisecond)
	b := newSessionID()

	if a == b {
		t.Fatalf("session ids collide: %s", a)
	}
}
