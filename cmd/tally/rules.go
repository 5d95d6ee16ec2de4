package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/pattern"
)

func rulesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
		Long: `Rules map description patterns to a category and vendor.

Active rules are tried highest priority first; among equal priorities the
older rule wins. The first matching rule categorizes the transaction.`,
	}

	cmd.AddCommand(addRuleCmd(opts))
	cmd.AddCommand(listRulesCmd(opts))
	cmd.AddCommand(deactivateRuleCmd(opts))

	return cmd
}

func addRuleCmd(opts *rootOptions) *cobra.Command {
	var categoryName, kind, vendor string
	var priority int

	cmd := &cobra.Command{
		Use:   "add <pattern>",
		Short: "Add a rule",
		Example: `  tally rules add "AMAZON" --category "Office Expense" --vendor Amazon
  tally rules add "^SQ \*" --kind regex --category Meals --priority 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			spec, err := pattern.ValidateSpec(model.RuleSpec{Pattern: args[0], Kind: model.MatchKind(kind)})
			if err != nil {
				return common.NewUserError("invalid rule pattern", err)
			}

			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			category, err := a.Store.GetCategoryByName(ctx, categoryName)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no category named %q", categoryName), common.ErrInvalidCategory)
				}
				return err
			}
			if !category.IsActive {
				return common.NewUserError(fmt.Sprintf("category %q is inactive", categoryName), common.ErrInvalidCategory)
			}

			if !cmd.Flags().Changed("priority") {
				priority = a.Settings.DefaultRulePriority
			}

			rule := &model.Rule{
				Pattern:    spec.Pattern,
				Kind:       spec.Kind,
				CategoryID: category.ID,
				Vendor:     vendor,
				Priority:   priority,
				IsActive:   true,
			}
			if err := a.Store.CreateRule(ctx, rule); err != nil {
				return err
			}

			common.LogInfo("Rule created", common.Fields{"rule_id": rule.ID, "pattern": rule.Pattern})
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added rule #%d: %s %q → %s", rule.ID, rule.Kind, rule.Pattern, category.Name)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&categoryName, "category", "c", "", "category to assign (required)")
	cmd.Flags().StringVarP(&kind, "kind", "k", string(model.MatchContains), "match kind (contains, starts_with, regex)")
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor to assign")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "rule priority; higher runs first (default from rules.default_priority)")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func listRulesCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var rules []model.Rule
			if all {
				rules, err = a.Store.GetRules(ctx)
			} else {
				rules, err = a.Store.GetActiveRules(ctx)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rules) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No rules yet."))
				return nil
			}

			headers := []string{"ID", "PRIORITY", "KIND", "PATTERN", "CATEGORY", "VENDOR", "HITS"}
			if all {
				headers = append(headers, "ACTIVE")
			}
			rows := make([][]string, 0, len(rules))
			for _, r := range rules {
				row := []string{
					strconv.FormatInt(r.ID, 10),
					strconv.Itoa(r.Priority),
					string(r.Kind),
					r.Pattern,
					r.Category,
					r.Vendor,
					strconv.Itoa(r.HitCount),
				}
				if all {
					row = append(row, strconv.FormatBool(r.IsActive))
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(out, cli.RenderTable(headers, rows))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include inactive rules")

	return cmd
}

func deactivateRuleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("%q is not a rule ID", args[0]), err)
			}

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Store.DeactivateRule(ctx, id); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no rule #%d", id), err)
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deactivated rule #%d", id)))
			return nil
		},
	}
}
