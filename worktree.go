package restyle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Worktree is a disposable, isolated checkout owned by a single rewrite
// session. All destructive replay work happens inside it, so the caller's
// own checkout is never at risk.
type Worktree struct {
	// Path of the checkout on disk.
	Path string
	// Branch is the working branch checked out in it, empty for detached.
	Branch string
	// Retain skips removal on [Worktree.Close], for diagnostics.
	Retain bool

	repo    *Repo
	runner  *Runner
	created bool
}

// worktreePath derives a deterministic, collision free location for a
// disposable checkout: path unsafe separators in the branch name are
// substituted and the process id appended, so concurrent runs cannot collide.
func worktreePath(branch string, pid int) string {
	name := strings.ReplaceAll(branch, "/", "_")

	return filepath.Join(os.TempDir(), fmt.Sprintf("restyle-%s-%d", name, pid))
}

// OpenWorktree creates a brand new checkout of rev. The checkout is detached
// unless workingBranch is nonempty, in which case a new branch of that name
// is created there instead.
func OpenWorktree(ctx context.Context, repo *Repo, branch string, rev string, workingBranch string) (*Worktree, error) {
	if branch == "" {
		return nil, ErrEmptyBranchName
	}

	path := worktreePath(branch, os.Getpid())

	args := []string{"worktree", "add"}
	if workingBranch != "" {
		args = append(args, "-b", workingBranch)
	} else {
		args = append(args, "--detach")
	}
	args = append(args, path, rev)

	if _, err := repo.Runner().Run(ctx, args...); err != nil {
		return nil, fmt.Errorf("failed to create worktree at %s: %w", path, err)
	}

	logger.Info("worktree created", "path", path, "rev", rev, "branch", workingBranch)

	return &Worktree{
		Path:    path,
		Branch:  workingBranch,
		repo:    repo,
		runner:  repo.Runner().WithDir(path),
		created: true,
	}, nil
}

// Runner returns a runner rooted at the worktree.
func (w *Worktree) Runner() *Runner {
	return w.runner
}

// Close removes the checkout. It is idempotent: closing a worktree that was
// never created, or closing twice, is a no-op. With Retain set the checkout
// is kept and its location logged.
func (w *Worktree) Close(ctx context.Context) error {
	if w == nil || !w.created {
		return nil
	}

	if w.Retain {
		logger.Warn("retaining worktree for diagnostics", "path", w.Path)
		w.created = false
		return nil
	}

	if _, err := w.repo.Runner().Run(ctx, "worktree", "remove", "--force", w.Path); err != nil {
		// the checkout may already be gone; prune the bookkeeping and
		// sweep whatever is left.
		logger.Warn("worktree remove failed, pruning", "path", w.Path, "err", err)
		_, _ = w.repo.Runner().Run(ctx, "worktree", "prune")
		if rmerr := os.RemoveAll(w.Path); rmerr != nil {
			return fmt.Errorf("failed to remove worktree %s: %w", w.Path, rmerr)
		}
	}

	w.created = false

	logger.Info("worktree removed", "path", w.Path)

	return nil
}
