package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

func accountsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
		Long: `Accounts own imported transactions. An account's kind decides which
statement formats are tried when importing into it.`,
	}

	cmd.AddCommand(addAccountCmd(opts))
	cmd.AddCommand(listAccountsCmd(opts))

	return cmd
}

func addAccountCmd(opts *rootOptions) *cobra.Command {
	var kind, institution, lastFour string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account",
		Example: `  tally accounts add "BofA Checking" --kind checking --institution "Bank of America"
  tally accounts add Payroll --kind payroll`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			accountKind, err := model.ParseAccountKind(kind)
			if err != nil {
				return common.NewUserError("kind must be one of "+kindList(), err)
			}

			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			account := &model.Account{
				Name:        strings.TrimSpace(args[0]),
				Kind:        accountKind,
				Institution: institution,
				LastFour:    lastFour,
			}
			if err := a.Store.CreateAccount(ctx, account); err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("account %q already exists", account.Name), err)
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s account %s", account.Kind, account.Name)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", string(model.KindChecking), "account kind ("+kindList()+")")
	cmd.Flags().StringVar(&institution, "institution", "", "institution name")
	cmd.Flags().StringVar(&lastFour, "last-four", "", "last four digits of the account number")

	return cmd
}

func listAccountsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			accounts, err := a.Store.GetAccounts(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(accounts) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No accounts yet. Add one with: tally accounts add <name> --kind checking"))
				return nil
			}

			rows := make([][]string, 0, len(accounts))
			for _, acct := range accounts {
				rows = append(rows, []string{acct.Name, string(acct.Kind), acct.Institution, acct.LastFour})
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"NAME", "KIND", "INSTITUTION", "LAST FOUR"}, rows))
			return nil
		},
	}
}

func kindList() string {
	names := make([]string, len(model.AccountKinds))
	for i, k := range model.AccountKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
