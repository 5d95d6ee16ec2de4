package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/review"
	"github.com/Veraticus/tally/internal/tui"
	"github.com/Veraticus/tally/internal/tui/themes"
)

func reviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Categorize unresolved transactions interactively",
		Long: `Walk through every unresolved transaction, oldest first.

For each one, pick a category, name the vendor, and optionally save a rule
so similar transactions are categorized automatically next time.

  enter  choose         tab     skip
  esc    undo last      ctrl+q  quit (decisions so far are kept)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			session, err := a.StartReview(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if session.State() == review.StateComplete {
				fmt.Fprintln(out, cli.FormatSuccess("Nothing to review: every transaction is categorized"))
				return nil
			}

			summary, err := tui.Run(ctx, session, tui.WithTheme(themes.GetTheme(a.Settings.ReviewTheme)))
			if err != nil {
				return err
			}

			fmt.Fprintln(out, cli.FormatTitle("Review summary"))
			fmt.Fprintf(out, "  Resolved: %d\n  Skipped:  %d\n  Undone:   %d\n", summary.Resolved, summary.Skipped, summary.Undone)
			if summary.Complete {
				fmt.Fprintln(out, cli.FormatSuccess("Reached the end of the queue"))
				return nil
			}
			fmt.Fprintln(out, cli.FormatInfo("Decisions so far are saved. Run 'tally review' to continue."))
			return nil
		},
	}
}
