package restyle

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var sampleChanges = []FileChange{
	{Status: Added, NewPath: "library/new.c"},
	{Status: Modified, OldPath: "library/aes.c", NewPath: "library/aes.c"},
	{Status: Deleted, OldPath: "library/old.c"},
	{Status: Renamed, OldPath: "library/f.c", NewPath: "library/g.c"},
}

func TestNewSidePaths(t *testing.T) {
	got := newSidePaths(sampleChanges)
	want := []string{"library/new.c", "library/aes.c", "library/g.c"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("newSidePaths mismatch (-want +got):\n%s", diff)
	}
}

func TestRemovedPaths(t *testing.T) {
	got := removedPaths(sampleChanges)
	// Rename old sides are excluded: pre-deleting them would stage a
	// rename/delete conflict the replay cannot resolve.
	want := []string{"library/old.c"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("removedPaths mismatch (-want +got):\n%s", diff)
	}
}

func TestChangeStatus_String(t *testing.T) {
	cases := map[ChangeStatus]string{
		Added:    "added",
		Modified: "modified",
		Deleted:  "deleted",
		Renamed:  "renamed",
	}

	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", status, got, want)
		}
	}
}
