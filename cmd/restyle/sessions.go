package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fardream/restyle"
)

type sessionsCmd struct {
	*cobra.Command

	root *rootCmd
}

func newSessionsCmd(root *rootCmd) *sessionsCmd {
	s := &sessionsCmd{
		Command: &cobra.Command{
			Use:   "sessions",
			Short: "list journaled rewrite sessions and any leftover worktrees",
			Args:  cobra.NoArgs,
		},
		root: root,
	}

	s.RunE = s.run

	return s
}

func (s *sessionsCmd) run(*cobra.Command, []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	repo, err := restyle.OpenRepo(ctx, ".")
	if err != nil {
		return err
	}

	journal, err := restyle.OpenJournal(restyle.JournalPath(repo))
	if err != nil {
		return err
	}
	defer journal.Close()

	records, err := journal.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(s.OutOrStdout(), 2, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBRANCH\tOK\tREWRITTEN HEAD\tWORKTREE")

	for _, r := range records {
		worktree := ""
		if _, err := os.Stat(r.WorktreePath); err == nil {
			worktree = r.WorktreePath + " (still on disk)"
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n", r.ID, r.Branch, r.Ok, r.RewrittenHead, worktree)
	}

	return w.Flush()
}
