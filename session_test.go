package restyle

import "testing"

func TestSessionTransitions(t *testing.T) {
	legal := []struct{ from, to sessionState }{
		{stateInit, stateWorktreeReady},
		{stateWorktreeReady, stateRebasing},
		{stateRebasing, statePerCommit},
		{statePerCommit, stateFinalizing},
		{stateFinalizing, stateUpdateOriginal},
		{stateFinalizing, stateLeaveDetached},
		{stateUpdateOriginal, stateCleanup},
		{stateLeaveDetached, stateCleanup},
		{stateCleanup, stateDone},
		{stateCleanup, stateFailed},
	}

	for _, tc := range legal {
		if !legalTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to sessionState }{
		{stateInit, stateRebasing},
		{stateInit, stateFinalizing},
		{stateRebasing, stateFinalizing},
		{statePerCommit, stateUpdateOriginal},
		{stateUpdateOriginal, stateLeaveDetached},
		{stateCleanup, stateInit},
		{stateDone, stateCleanup},
		{stateFailed, stateInit},
	}

	for _, tc := range illegal {
		if legalTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be illegal", tc.from, tc.to)
		}
	}
}

// unwinding to cleanup is legal from every in-flight state, so "cleanup
// always runs" holds structurally.
func TestSessionTransitions_CleanupAlwaysReachable(t *testing.T) {
	inflight := []sessionState{
		stateInit, stateWorktreeReady, stateRebasing, statePerCommit,
		stateFinalizing, stateUpdateOriginal, stateLeaveDetached,
	}

	for _, s := range inflight {
		if !legalTransition(s, stateCleanup) {
			t.Errorf("%s -> cleanup should be legal", s)
		}
	}
}

func TestNewRewriteSession_RequiresBranch(t *testing.T) {
	if _, err := NewRewriteSession(nil, nil, nil, RewriteOptions{}); err != ErrEmptyBranchName {
		t.Fatalf("err = %v, want %v", err, ErrEmptyBranchName)
	}
}
