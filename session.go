package restyle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// sessionState is the explicit progression of a rewrite session. Legal
// transitions are listed in sessionTransitions; anything else is a
// programming invariant violation.
type sessionState int

const (
	stateInit sessionState = iota
	stateWorktreeReady
	stateRebasing
	statePerCommit
	stateFinalizing
	stateUpdateOriginal
	stateLeaveDetached
	stateCleanup
	stateDone
	stateFailed
)

func (s sessionState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateWorktreeReady:
		return "worktree-ready"
	case stateRebasing:
		return "rebasing"
	case statePerCommit:
		return "per-commit"
	case stateFinalizing:
		return "finalizing"
	case stateUpdateOriginal:
		return "update-original"
	case stateLeaveDetached:
		return "leave-detached"
	case stateCleanup:
		return "cleanup"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// every state may unwind to cleanup, so cleanup is structurally guaranteed.
var sessionTransitions = map[sessionState][]sessionState{
	stateInit:           {stateWorktreeReady, stateCleanup},
	stateWorktreeReady:  {stateRebasing, stateCleanup},
	stateRebasing:       {statePerCommit, stateCleanup},
	statePerCommit:      {stateFinalizing, stateCleanup},
	stateFinalizing:     {stateUpdateOriginal, stateLeaveDetached, stateCleanup},
	stateUpdateOriginal: {stateCleanup},
	stateLeaveDetached:  {stateCleanup},
	stateCleanup:        {stateDone, stateFailed},
}

func legalTransition(from, to sessionState) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// RewriteOptions are the inputs of one rewrite session.
type RewriteOptions struct {
	// Branch to rewrite.
	Branch string
	// Target is an optional explicit base; when empty the target is
	// inferred by ancestry over the configured lines.
	Target string
	// Remote to fetch missing commits from, optional.
	Remote string
	// BackupTemplate names a backup branch created before any mutation.
	// A single {} placeholder is substituted with Branch.
	BackupTemplate string
	// WorkingBranchTemplate names a new branch the rewritten history is
	// left on. Same placeholder rule. Empty leaves the result detached.
	WorkingBranchTemplate string
	// UpdateOriginal advances the original branch to the rewritten head
	// on success. Requires the branch to be the clean, current checkout
	// at session start.
	UpdateOriginal bool
	// RetainWorktree keeps the disposable checkout for diagnostics.
	RetainWorktree bool
}

// RewriteResult reports where the rewritten history ended up.
type RewriteResult struct {
	RewrittenHead   plumbing.Hash
	Commits         int
	Line            string
	BackupBranch    string
	WorkingBranch   string
	UpdatedOriginal bool
}

// RewriteSession replays the commits of one branch onto a new base, applying
// the content transform to every touched eligible file. A session runs once;
// ok starts true and latches false on the first error.
type RewriteSession struct {
	repo *Repo
	cfg  *Config
	opts RewriteOptions

	state       sessionState
	ok          bool
	worktree    *Worktree
	transformer *Transformer
	journal     *Journal
	recordID    string

	target         *Target
	preBase        plumbing.Hash
	orderedCommits []plumbing.Hash
	rewrittenHead  plumbing.Hash
}

// NewRewriteSession validates the inputs and prepares a session. The journal
// may be nil; journal failures never fail a rewrite.
func NewRewriteSession(repo *Repo, cfg *Config, journal *Journal, opts RewriteOptions) (*RewriteSession, error) {
	if opts.Branch == "" {
		return nil, ErrEmptyBranchName
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &RewriteSession{
		repo:    repo,
		cfg:     cfg,
		opts:    opts,
		state:   stateInit,
		ok:      true,
		journal: journal,
	}, nil
}

func (s *RewriteSession) advance(next sessionState) {
	if !legalTransition(s.state, next) {
		panic(fmt.Sprintf("illegal session transition %s -> %s", s.state, next))
	}

	logger.Debug("session state", "from", s.state, "to", next)
	s.state = next
}

var errSessionReused = errors.New("rewrite session already run")

// Run executes the whole session. Cleanup of the disposable worktree is
// structurally guaranteed, success or failure.
func (s *RewriteSession) Run(ctx context.Context) (*RewriteResult, error) {
	if s.state != stateInit {
		return nil, errSessionReused
	}

	// environment gate comes before any other work.
	if err := s.repo.Runner().CheckGitVersion(ctx); err != nil {
		s.ok = false
		return nil, err
	}
	if err := NewTransformer(s.cfg.Tool, s.repo.Root).CheckVersion(ctx); err != nil {
		s.ok = false
		return nil, err
	}

	result, runerr := s.run(ctx)

	s.advance(stateCleanup)
	closeerr := s.worktree.Close(ctx)
	s.finishJournal()

	if runerr != nil {
		s.advance(stateFailed)
		return nil, runerr
	}
	if closeerr != nil {
		s.advance(stateFailed)
		return nil, closeerr
	}

	s.advance(stateDone)

	return result, nil
}

func (s *RewriteSession) run(ctx context.Context) (result *RewriteResult, err error) {
	defer func() {
		if err != nil {
			s.ok = false
		}
	}()

	result = &RewriteResult{}

	tip, err := s.repo.Resolve(s.opts.Branch)
	if err != nil {
		return nil, err
	}

	// the in-place precondition is checked exactly once, here, before any
	// mutation: zero partial effect on abort.
	if s.opts.UpdateOriginal {
		current, err := s.repo.CurrentBranch(ctx)
		if err != nil {
			return nil, err
		}
		if current != s.opts.Branch {
			return nil, fmt.Errorf("%s: %w", s.opts.Branch, ErrBranchNotCheckedOut)
		}
		clean, err := s.repo.IsClean(ctx)
		if err != nil {
			return nil, err
		}
		if !clean {
			return nil, fmt.Errorf("%s: %w", s.opts.Branch, ErrDirtyWorktree)
		}
	}

	if s.opts.BackupTemplate != "" {
		name, err := s.repo.CreateBackup(ctx, s.opts.BackupTemplate, s.opts.Branch)
		if err != nil {
			return nil, err
		}
		result.BackupBranch = name
	}

	workingBranch := ""
	if s.opts.WorkingBranchTemplate != "" {
		if kind := s.repo.Classify(s.opts.Branch); !kind.SafeForTemplate() {
			return nil, fmt.Errorf("%s classifies as %s: %w", s.opts.Branch, kind, ErrUnsafeTemplateRef)
		}
		workingBranch, err = expandTemplate(s.opts.WorkingBranchTemplate, s.opts.Branch)
		if err != nil {
			return nil, err
		}
	}
	result.WorkingBranch = workingBranch

	resolver := &TargetResolver{Repo: s.repo, Remote: s.opts.Remote, Lines: s.cfg.Lines}
	s.target, err = resolver.ResolveTarget(ctx, tip.String(), s.opts.Target)
	if err != nil {
		return nil, err
	}
	result.Line = s.target.Line

	// the commit immediately preceding the target's divergence point:
	// history below it is shared with the branch, minimizing the replay
	// set.
	s.preBase, err = s.repo.Resolve(s.target.Base + "^")
	if err != nil {
		return nil, fmt.Errorf("parent of target base %s: %w", s.target.Base, err)
	}

	s.worktree, err = OpenWorktree(ctx, s.repo, s.opts.Branch, tip.String(), workingBranch)
	if err != nil {
		return nil, err
	}
	s.worktree.Retain = s.opts.RetainWorktree
	s.advance(stateWorktreeReady)

	s.startJournal(tip)

	s.transformer = NewTransformer(s.cfg.Tool, s.worktree.Path)

	s.advance(stateRebasing)
	if err := s.rebaseOntoPreBase(ctx); err != nil {
		return nil, err
	}
	result.Commits = len(s.orderedCommits)

	s.advance(statePerCommit)
	if err := s.replayCommits(ctx); err != nil {
		return nil, err
	}

	s.advance(stateFinalizing)
	head, err := s.worktree.Runner().Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to record rewritten head: %w", err)
	}
	s.rewrittenHead, err = DecodeHashHex(head)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rewritten head %q: %w", head, err)
	}
	result.RewrittenHead = s.rewrittenHead

	if s.opts.UpdateOriginal {
		s.advance(stateUpdateOriginal)
		// the branch is the verified-clean current checkout, so a hard
		// reset is one atomic pointer move plus the tree update.
		if _, err := s.repo.Runner().Run(ctx, "reset", "--hard", s.rewrittenHead.String()); err != nil {
			return nil, fmt.Errorf("failed to advance %s to %s: %w", s.opts.Branch, s.rewrittenHead, err)
		}
		result.UpdatedOriginal = true
		logger.Info("original branch updated", "branch", s.opts.Branch, "head", s.rewrittenHead)
	} else {
		s.advance(stateLeaveDetached)
		switch {
		case workingBranch != "":
			logger.Info("rewritten history left on working branch", "branch", workingBranch, "head", s.rewrittenHead)
		default:
			logger.Info("rewritten history left unattached",
				"head", s.rewrittenHead,
				"attach", fmt.Sprintf("git branch <name> %s", s.rewrittenHead))
		}
	}

	return result, nil
}

// rebaseOntoPreBase relocates the branch tip onto the commit immediately
// preceding the target's divergence point and fixes ordered_commits as
// everything newly added by that relocation. The set never changes for the
// rest of the session.
func (s *RewriteSession) rebaseOntoPreBase(ctx context.Context) error {
	wr := s.worktree.Runner()

	if _, err := wr.Run(ctx, "rebase", s.preBase.String()); err != nil {
		// leave the worktree in a removable state.
		_, _ = wr.Run(ctx, "rebase", "--abort")
		return &ConflictError{Commit: s.opts.Branch, Err: err}
	}

	lines, err := wr.Lines(ctx, "rev-list", "--reverse", s.preBase.String()+"..HEAD")
	if err != nil {
		return fmt.Errorf("failed to list commits to replay: %w", err)
	}

	s.orderedCommits = make([]plumbing.Hash, 0, len(lines))
	for _, line := range lines {
		h, err := DecodeHashHex(line)
		if err != nil {
			return fmt.Errorf("failed to decode commit id %q: %w", line, err)
		}
		s.orderedCommits = append(s.orderedCommits, h)
	}

	logger.Info("replay set fixed", "commits", len(s.orderedCommits), "prebase", s.preBase, "base", s.target.BaseHash)

	return nil
}

// replayCommits transplants every commit in order onto the evolving HEAD of
// the isolated checkout, starting from the target base.
func (s *RewriteSession) replayCommits(ctx context.Context) error {
	wr := s.worktree.Runner()

	if _, err := wr.Run(ctx, "reset", "--hard", s.target.BaseHash.String()); err != nil {
		return fmt.Errorf("failed to move worktree onto target base %s: %w", s.target.BaseHash, err)
	}

	n := len(s.orderedCommits)

	for i, c := range s.orderedCommits {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		newhead, err := s.replayOne(ctx, c)
		if err != nil {
			return err
		}

		logger.Info("processing commit", "id", i, "total", n, "hash", c, "newcommit", newhead)
	}

	return nil
}

func (s *RewriteSession) replayOne(ctx context.Context, c plumbing.Hash) (string, error) {
	wr := s.worktree.Runner()

	commit, err := s.repo.CommitObject(c)
	if err != nil {
		return "", err
	}

	changes, err := FileChanges(ctx, commit)
	if err != nil {
		return "", err
	}

	// pre-delete every path the commit deletes outright: the
	// prefer-incoming policy cannot resolve modify/delete conflicts on
	// its own. Rename old sides are left to git's rename detection,
	// staging their deletion would turn the replay into a rename/delete
	// conflict.
	if removed := removedPaths(changes); len(removed) > 0 {
		args := append([]string{"rm", "--quiet", "--force", "--ignore-unmatch", "--"}, removed...)
		if _, err := wr.Run(ctx, args...); err != nil {
			return "", &ConflictError{Commit: c.String(), Err: err}
		}
	}

	if _, err := wr.Run(ctx, "cherry-pick", "--no-commit", "-X", "theirs", c.String()); err != nil {
		return "", &ConflictError{Commit: c.String(), Err: err}
	}

	// a no-op replay is still recorded, and an empty message preserved:
	// one-to-one commit correspondence with the original sequence.
	if _, err := wr.Run(ctx, "commit",
		"--allow-empty", "--allow-empty-message", "--no-verify",
		"-C", c.String()); err != nil {
		return "", &ConflictError{Commit: c.String(), Err: err}
	}

	// force the touched paths to the commit's own content byte for byte,
	// in case conflict resolution mixed in unrelated hunks from the base.
	touched := newSidePaths(changes)
	if len(touched) > 0 {
		args := append([]string{"checkout", c.String(), "--"}, touched...)
		if _, err := wr.Run(ctx, args...); err != nil {
			return "", &ConflictError{Commit: c.String(), Err: err}
		}
		if err := s.amendHead(ctx); err != nil {
			return "", &ConflictError{Commit: c.String(), Err: err}
		}
	}

	if eligible := s.cfg.Filter.FilterPaths(touched); len(eligible) > 0 {
		passes, err := s.transformer.Apply(ctx, eligible)
		if err != nil {
			return "", fmt.Errorf("transform of commit %s: %w", c, err)
		}
		logger.Debug("transformed", "hash", c, "files", len(eligible), "passes", passes)

		args := append([]string{"add", "--"}, eligible...)
		if _, err := wr.Run(ctx, args...); err != nil {
			return "", &ConflictError{Commit: c.String(), Err: err}
		}
		if err := s.amendHead(ctx); err != nil {
			return "", &ConflictError{Commit: c.String(), Err: err}
		}
	}

	return wr.Run(ctx, "rev-parse", "HEAD")
}

// amendHead folds the staged correction into the just created commit,
// keeping message and author metadata unchanged.
func (s *RewriteSession) amendHead(ctx context.Context) error {
	_, err := s.worktree.Runner().Run(ctx, "commit", "--amend",
		"--no-edit", "--allow-empty", "--allow-empty-message", "--no-verify")

	return err
}

func (s *RewriteSession) startJournal(tip plumbing.Hash) {
	if s.journal == nil {
		return
	}

	s.recordID = newSessionID()
	record := &SessionRecord{
		ID:           s.recordID,
		Branch:       s.opts.Branch,
		OriginalTip:  tip.String(),
		WorktreePath: s.worktree.Path,
		TargetBase:   s.target.Base,
		Ok:           true,
		StartedAt:    time.Now(),
	}

	if err := s.journal.Put(record); err != nil {
		logger.Warn("failed to journal session start", "err", err)
		s.recordID = ""
	}
}

func (s *RewriteSession) finishJournal() {
	if s.journal == nil || s.recordID == "" {
		return
	}

	record, err := s.journal.Get(s.recordID)
	if err != nil || record == nil {
		logger.Warn("failed to load session journal record", "id", s.recordID, "err", err)
		return
	}

	record.Ok = s.ok
	record.FinishedAt = time.Now()
	if !s.rewrittenHead.IsZero() {
		record.RewrittenHead = s.rewrittenHead.String()
	}
	if s.worktree != nil && s.worktree.Retain {
		record.WorktreeRetained = true
	}

	if err := s.journal.Put(record); err != nil {
		logger.Warn("failed to journal session end", "err", err)
	}
}
