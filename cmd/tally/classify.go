package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/engine"
)

func classifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Apply active rules to unresolved transactions",
		Long: `Run every unresolved transaction through the active rules in priority
order. Matching transactions take the rule's category and vendor; the rest
stay unresolved for review. Safe to re-run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := handler.HandleInterrupts(cmd.Context(), "Classification")

			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			unresolved, err := a.Store.GetUnresolvedCount(ctx)
			if err != nil {
				return err
			}

			var engineOpts []engine.Option
			if unresolved > 0 {
				bar := cli.NewProgressBar(cmd.ErrOrStderr(), unresolved, "Classifying")
				engineOpts = append(engineOpts, engine.WithProgress(cli.ProgressFunc(bar)))
			}

			result, err := a.Engine(engineOpts...).ClassifyAll(ctx)
			if err != nil {
				if handler.WasInterrupted() {
					return nil
				}
				return err
			}
			printClassifyResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}
