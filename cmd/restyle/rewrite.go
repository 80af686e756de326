package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fardream/restyle"
	"github.com/fardream/restyle/cmd"
)

type rewriteCmd struct {
	*cobra.Command

	root *rootCmd

	opts restyle.RewriteOptions
}

func newRewriteCmd(root *rootCmd) *rewriteCmd {
	r := &rewriteCmd{
		Command: &cobra.Command{
			Use:   "rewrite",
			Short: "replay a branch onto the new style base, restyling every commit",
			Args:  cobra.NoArgs,
		},
		root: root,
	}

	r.Flags().StringVarP(&r.opts.Branch, "branch", "b", r.opts.Branch, "branch or commit to rewrite")
	cmd.OrPanic(r.MarkFlagRequired("branch"))
	r.Flags().StringVarP(&r.opts.Target, "target", "t", r.opts.Target, "explicit target to rewrite onto, skips ancestry inference")
	r.Flags().StringVarP(&r.opts.Remote, "remote", "r", r.opts.Remote, "remote to fetch missing commits from")
	r.Flags().StringVar(&r.opts.BackupTemplate, "backup", r.opts.BackupTemplate, "backup branch name template, {} is replaced with the branch name")
	r.Flags().StringVar(&r.opts.WorkingBranchTemplate, "working-branch", r.opts.WorkingBranchTemplate, "working branch name template for the rewritten history")
	r.Flags().BoolVarP(&r.opts.UpdateOriginal, "update", "u", r.opts.UpdateOriginal, "advance the original branch to the rewritten head on success")
	r.Flags().BoolVar(&r.opts.RetainWorktree, "retain-worktree", r.opts.RetainWorktree, "keep the disposable worktree for diagnostics")

	r.RunE = r.run

	return r
}

func (r *rewriteCmd) run(*cobra.Command, []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	config, err := r.root.config()
	if err != nil {
		return err
	}

	repo, err := restyle.OpenRepo(ctx, ".")
	if err != nil {
		return err
	}

	journal, err := restyle.OpenJournal(restyle.JournalPath(repo))
	if err != nil {
		// the journal is bookkeeping only, never a reason to refuse a
		// rewrite.
		fmt.Fprintf(r.ErrOrStderr(), "journal unavailable: %v\n", err)
		journal = nil
	}
	defer journal.Close()

	session, err := restyle.NewRewriteSession(repo, config, journal, r.opts)
	if err != nil {
		return err
	}

	result, err := session.Run(ctx)
	if err != nil {
		return err
	}

	switch {
	case result.UpdatedOriginal:
		fmt.Fprintf(r.ErrOrStderr(), "updated %s to the rewritten head\n", r.opts.Branch)
	case result.WorkingBranch != "":
		fmt.Fprintf(r.ErrOrStderr(), "rewritten history is on branch %s\n", result.WorkingBranch)
	default:
		fmt.Fprintf(r.ErrOrStderr(),
			"rewritten history is unattached; run `git branch <name> %s` to keep it\n",
			result.RewrittenHead)
	}

	fmt.Fprintln(r.OutOrStdout(), result.RewrittenHead)

	return nil
}
