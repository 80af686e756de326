// errors

package restyle

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBranchName     = errors.New("empty branch name")
	ErrRefNotFound         = errors.New("reference not found")
	ErrUnsafeTemplateRef   = errors.New("reference is not safe for template substitution")
	ErrTargetUnresolved    = errors.New("target base cannot be resolved, fetch it manually and retry")
	ErrDirtyWorktree       = errors.New("original checkout has uncommitted changes")
	ErrBranchNotCheckedOut = errors.New("branch is not the current checkout")
	ErrNoLinesConfigured   = errors.New("no maintained lines configured and no explicit target given")
	ErrTooManyPlaceholders = errors.New("template contains more than one {} placeholder")
	ErrInconsistentRef     = errors.New("expected reference does not contain the divergence ancestor")
	ErrNilJournal          = errors.New("nil journal")
	ErrEmptyTransformTool  = errors.New("empty transform tool command")
)

// EnvironmentError reports a required external tool that is missing or below
// the minimum supported version. It is checked before any other work and maps
// to a distinct exit status in the command line driver.
type EnvironmentError struct {
	Tool   string
	Reason string
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("environment: %s: %s", e.Tool, e.Reason)
}

// ConflictError reports an unexpected status from the version control back
// end while replaying a commit. The forced prefer-incoming policy plus the
// explicit pre-deletion of removed files should make this impossible in
// practice, so it is always fatal.
type ConflictError struct {
	Commit string
	Err    error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("replay of commit %s failed: %v", e.Commit, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// BackupExistsError reports a backup branch that already exists pointing at a
// different commit than the one being backed up. The existing branch is left
// untouched.
type BackupExistsError struct {
	Name     string
	Existing string
	Want     string
}

func (e *BackupExistsError) Error() string {
	return fmt.Sprintf("backup branch %s already exists at %s, want %s", e.Name, e.Existing, e.Want)
}

// VerifyMismatchError reports a matched commit pair that is not content
// equivalent, or a commit present on only one side of the comparison.
type VerifyMismatchError struct {
	Entry RangeDiffEntry
}

func (e *VerifyMismatchError) Error() string {
	switch e.Entry.Marker {
	case '<':
		return fmt.Sprintf("commit %d (%s) only present in expected history: %s",
			e.Entry.LeftIndex, e.Entry.LeftHash, e.Entry.Subject)
	case '>':
		return fmt.Sprintf("commit %d (%s) only present in rewritten history: %s",
			e.Entry.RightIndex, e.Entry.RightHash, e.Entry.Subject)
	default:
		return fmt.Sprintf("commit pair %d (%s) / %d (%s) differs in content: %s",
			e.Entry.LeftIndex, e.Entry.LeftHash, e.Entry.RightIndex, e.Entry.RightHash, e.Entry.Subject)
	}
}
