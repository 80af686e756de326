package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fardream/restyle"
	"github.com/fardream/restyle/cmd"
)

type verifyCmd struct {
	*cobra.Command

	root *rootCmd

	opts restyle.VerifyOptions
}

func newVerifyCmd(root *rootCmd) *verifyCmd {
	v := &verifyCmd{
		Command: &cobra.Command{
			Use:   "verify",
			Short: "check a rewritten history against a trusted reference, mutating nothing",
			Args:  cobra.NoArgs,
		},
		root: root,
	}

	v.Flags().StringVar(&v.opts.Rewritten, "rewritten", v.opts.Rewritten, "rewritten reference to check")
	cmd.OrPanic(v.MarkFlagRequired("rewritten"))
	v.Flags().StringVar(&v.opts.Expected, "expected", v.opts.Expected, "trusted, known good reference")
	cmd.OrPanic(v.MarkFlagRequired("expected"))
	v.Flags().StringVar(&v.opts.Marker, "marker", v.opts.Marker, "divergence marker commit on the expected line")
	cmd.OrPanic(v.MarkFlagRequired("marker"))

	v.RunE = v.run

	return v
}

func (v *verifyCmd) run(*cobra.Command, []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	repo, err := restyle.OpenRepo(ctx, ".")
	if err != nil {
		return err
	}

	result, err := restyle.Verify(ctx, repo, v.opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(v.OutOrStdout(), "%d commit pairs content-equivalent above %s\n", len(result.Entries), result.Ancestor)

	return nil
}
