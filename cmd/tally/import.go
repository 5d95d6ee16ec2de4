package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/app"
	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/engine"
)

func importCmd(opts *rootOptions) *cobra.Command {
	var account, formatKey string
	var noClassify bool

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import statement files into an account",
		Long: `Import one or more statement files into an account.

The format is detected from the file unless --format names one. A file that
was already imported into the account is a no-op, and rows already present
from an overlapping statement are skipped. Each file is imported on its own:
one bad file does not undo the others.

After importing, active rules are applied to unresolved transactions unless
--no-classify is given.`,
		Example: `  tally import ~/Downloads/stmt.csv --account "BofA Checking"
  tally import jan.csv feb.csv mar.csv --account Visa --format bofa_credit_card`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := handler.HandleInterrupts(cmd.Context(), "Import")

			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var progress func(done, total int)
			if len(args) > 1 {
				bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(args), "Importing")
				progress = cli.ProgressFunc(bar)
			}

			results, err := a.ImportFiles(ctx, args, account, formatKey, progress)
			out := cmd.OutOrStdout()
			failed := printImportResults(out, results)
			if err != nil {
				if handler.WasInterrupted() {
					return nil
				}
				return err
			}

			if !noClassify {
				result, err := a.Engine().ClassifyAll(ctx)
				if err != nil {
					if handler.WasInterrupted() {
						return nil
					}
					return fmt.Errorf("classification failed: %w", err)
				}
				printClassifyResult(out, result)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed to import", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&account, "account", "a", "", "account to import into (required)")
	cmd.Flags().StringVarP(&formatKey, "format", "f", "", "format key; skips detection (see 'tally formats')")
	cmd.Flags().BoolVar(&noClassify, "no-classify", false, "do not apply rules after importing")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

// printImportResults writes one line per file and returns how many failed.
func printImportResults(w io.Writer, results []app.FileResult) int {
	failed := 0
	for _, r := range results {
		name := filepath.Base(r.Path)
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintln(w, cli.FormatError(fmt.Sprintf("%s: %s", name, describeError(r.Err))))
		case r.Outcome.DuplicateFile:
			fmt.Fprintln(w, cli.FormatWarning(fmt.Sprintf("%s: already imported (batch #%d), nothing to do", name, r.Outcome.BatchID)))
		default:
			o := r.Outcome
			line := fmt.Sprintf("%s: %d imported, %d already present", name, o.Imported, o.Skipped)
			if o.Malformed > 0 {
				line += fmt.Sprintf(", %d malformed rows skipped", o.Malformed)
			}
			fmt.Fprintln(w, cli.FormatSuccess(line)+" "+cli.SubtleStyle.Render("("+o.Format+")"))
		}
	}
	return failed
}

func describeError(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	switch {
	case errors.Is(err, common.ErrUnknownAccount):
		return "unknown account"
	case errors.Is(err, common.ErrNoMatchingFormat):
		return "no format recognizes this file; pass --format"
	case errors.Is(err, common.ErrUnknownFormat):
		return "unknown format; see 'tally formats'"
	}
	return err.Error()
}

func printClassifyResult(w io.Writer, result *engine.ClassifyResult) {
	fmt.Fprintln(w, cli.FormatInfo(fmt.Sprintf("Rules categorized %d transactions, %d still unresolved", result.Categorized, result.StillUnresolved)))
	if result.StillUnresolved > 0 {
		fmt.Fprintln(w, cli.SubtleStyle.Render("Run 'tally review' to categorize the rest."))
	}
}
