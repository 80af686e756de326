package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fardream/restyle"
	"github.com/fardream/restyle/cmd"
)

type backupCmd struct {
	*cobra.Command

	root *rootCmd

	template string
	ref      string
}

func newBackupCmd(root *rootCmd) *backupCmd {
	b := &backupCmd{
		Command: &cobra.Command{
			Use:   "backup",
			Short: "snapshot a reference into a backup branch without mutating anything else",
			Args:  cobra.NoArgs,
		},
		root:     root,
		template: "old-code-style/{}",
	}

	b.Flags().StringVar(&b.template, "template", b.template, "backup branch name template, {} is replaced with the reference name")
	b.Flags().StringVar(&b.ref, "ref", b.ref, "branch, tag, or commit id to back up")
	cmd.OrPanic(b.MarkFlagRequired("ref"))

	b.RunE = b.run

	return b
}

func (b *backupCmd) run(*cobra.Command, []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	repo, err := restyle.OpenRepo(ctx, ".")
	if err != nil {
		return err
	}

	name, err := repo.CreateBackup(ctx, b.template, b.ref)
	if err != nil {
		return err
	}

	fmt.Fprintln(b.OutOrStdout(), name)

	return nil
}
