package restyle

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// RefKind classifies a user supplied reference. Only non symbolic kinds are
// safe to substitute into a branch name template, because a symbolic alias
// such as HEAD points at different commits over time.
type RefKind int

const (
	RefNone RefKind = iota
	RefLocalBranch
	RefRemoteBranch
	RefTag
	RefRawID
)

func (k RefKind) String() string {
	switch k {
	case RefLocalBranch:
		return "local branch"
	case RefRemoteBranch:
		return "remote branch"
	case RefTag:
		return "tag"
	case RefRawID:
		return "raw commit id"
	default:
		return "none"
	}
}

// SafeForTemplate reports whether a reference of this kind may be used as a
// template substitution.
func (k RefKind) SafeForTemplate() bool {
	switch k {
	case RefLocalBranch, RefRemoteBranch, RefTag, RefRawID:
		return true
	default:
		return false
	}
}

// Repo combines a go-git repository for read side inspection with a [Runner]
// for the mutating operations go-git does not provide.
type Repo struct {
	gitrepo *git.Repository
	runner  *Runner

	// Root is the top level directory of the caller's checkout.
	Root string
	// GitDir is the common git directory shared by all worktrees.
	GitDir string
}

// OpenRepo opens the repository containing dir.
func OpenRepo(ctx context.Context, dir string) (*Repo, error) {
	runner := NewRunner(dir)

	root, err := runner.Run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("failed to locate repository root: %w", err)
	}

	gitdir, err := runner.Run(ctx, "rev-parse", "--git-common-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to locate git dir: %w", err)
	}
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(root, gitdir)
	}

	gitrepo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", root, err)
	}

	return &Repo{
		gitrepo: gitrepo,
		runner:  NewRunner(root),
		Root:    root,
		GitDir:  filepath.Clean(gitdir),
	}, nil
}

// Runner returns the runner rooted at the caller's checkout.
func (r *Repo) Runner() *Runner {
	return r.runner
}

// Resolve resolves a revision to a commit hash, [ErrRefNotFound] if it cannot
// be resolved.
func (r *Repo) Resolve(ref string) (plumbing.Hash, error) {
	h, err := r.gitrepo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%s: %w: %v", ref, ErrRefNotFound, err)
	}

	return *h, nil
}

// CommitObject loads the commit for the given hash.
func (r *Repo) CommitObject(h plumbing.Hash) (*object.Commit, error) {
	c, err := r.gitrepo.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", h, err)
	}

	return c, nil
}

// Classify determines the [RefKind] of ref. Symbolic aliases such as HEAD, @,
// and reflog expressions classify as [RefNone].
func (r *Repo) Classify(ref string) RefKind {
	if ref == "" || ref == "HEAD" || ref == "@" || strings.Contains(ref, "@{") {
		return RefNone
	}

	storage := r.gitrepo.Storer

	if rr, err := storage.Reference(plumbing.NewBranchReferenceName(ref)); err == nil && !rr.Hash().IsZero() {
		return RefLocalBranch
	}
	if strings.Contains(ref, "/") {
		parts := strings.SplitN(ref, "/", 2)
		if rr, err := storage.Reference(plumbing.NewRemoteReferenceName(parts[0], parts[1])); err == nil && !rr.Hash().IsZero() {
			return RefRemoteBranch
		}
	}
	if rr, err := storage.Reference(plumbing.NewTagReferenceName(ref)); err == nil && !rr.Hash().IsZero() {
		return RefTag
	}

	if h, err := DecodeHashHex(ref); err == nil {
		if _, err := r.gitrepo.CommitObject(h); err == nil {
			return RefRawID
		}
	}

	return RefNone
}

// IsAncestor reports whether ancestor is an ancestor of descendant.
func (r *Repo) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	return r.runner.Test(ctx, "merge-base", "--is-ancestor", ancestor, descendant)
}

// CurrentBranch returns the short name of the checked out branch, or the
// empty string for a detached checkout.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.runner.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to determine current branch: %w", err)
	}
	if out == "HEAD" {
		// detached
		return "", nil
	}

	return out, nil
}

// IsClean reports whether the caller's checkout has no uncommitted changes,
// staged or unstaged. Untracked files do not count as dirt.
func (r *Repo) IsClean(ctx context.Context) (bool, error) {
	lines, err := r.runner.Lines(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, fmt.Errorf("failed to check working copy status: %w", err)
	}

	return len(lines) == 0, nil
}

// Fetch fetches a single ref by exact name from the given remote.
func (r *Repo) Fetch(ctx context.Context, remote, ref string) error {
	logger.Info("fetching", "remote", remote, "ref", ref)

	if _, err := r.runner.Run(ctx, "fetch", "--", remote, ref); err != nil {
		return fmt.Errorf("failed to fetch %s from %s: %w", ref, remote, err)
	}

	return nil
}

// CreateBranch creates branch name at the given commit without checking it
// out. The branch must not already exist.
func (r *Repo) CreateBranch(ctx context.Context, name string, h plumbing.Hash) error {
	if name == "" {
		return ErrEmptyBranchName
	}

	if _, err := r.runner.Run(ctx, "branch", "--", name, h.String()); err != nil {
		return fmt.Errorf("failed to create branch %s at %s: %w", name, h, err)
	}

	return nil
}

// BranchHash returns the commit a local branch points at, or
// [plumbing.ZeroHash] with found false if the branch does not exist.
func (r *Repo) BranchHash(name string) (plumbing.Hash, bool) {
	ref, err := r.gitrepo.Storer.Reference(plumbing.NewBranchReferenceName(name))
	if err != nil || ref.Hash().IsZero() {
		return plumbing.ZeroHash, false
	}

	return ref.Hash(), true
}
