package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
)

func formatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported statement formats",
		Long: `List registered statement formats in detection order. When importing
without --format, the first format that supports the account's kind and
recognizes the file wins.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			rows := [][]string{}
			for _, f := range a.Registry.Formats() {
				kinds := make([]string, len(f.AccountKinds))
				for i, k := range f.AccountKinds {
					kinds[i] = string(k)
				}
				rows = append(rows, []string{f.Key, f.Name, strings.Join(kinds, ", ")})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderTable([]string{"KEY", "NAME", "ACCOUNT KINDS"}, rows))

			for _, s := range a.Registry.Shadowed() {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%s and %s both accept %s accounts; %s is only used when %s does not recognize the file",
					s.Earlier, s.Later, s.Kind, s.Later, s.Earlier)))
			}
			return nil
		},
	}
}
