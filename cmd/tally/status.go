package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
)

func statusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what the ledger holds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			s, err := a.Status(ctx)
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Database:      %s (schema v%d)\n", s.DatabasePath, s.SchemaVersion)
			fmt.Fprintf(&b, "Accounts:      %d\n", s.Accounts)
			fmt.Fprintf(&b, "Imports:       %d\n", s.ImportBatches)
			fmt.Fprintf(&b, "Transactions:  %d\n", s.Transactions)
			fmt.Fprintf(&b, "Unresolved:    %d\n", s.Unresolved)
			fmt.Fprintf(&b, "Active rules:  %d", s.ActiveRules)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderBox(cli.LedgerIcon+" Ledger status", b.String()))
			if s.Unresolved > 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("Run 'tally review' to categorize unresolved transactions."))
			}
			return nil
		},
	}
}
