package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

func categoriesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long: `Categories are the targets of rules and review decisions. A default
Schedule C oriented set is created with the database.`,
	}

	cmd.AddCommand(listCategoriesCmd(opts))
	cmd.AddCommand(addCategoryCmd(opts))
	cmd.AddCommand(deactivateCategoryCmd(opts))

	return cmd
}

func listCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			categories, err := a.Store.GetCategories(ctx)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(categories))
			for _, c := range categories {
				rows = append(rows, []string{c.Name, string(c.Type), c.TaxLine, c.FormLine})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"NAME", "TYPE", "TAX LINE", "FORM LINE"}, rows))
			return nil
		},
	}
}

func addCategoryCmd(opts *rootOptions) *cobra.Command {
	var kind, taxLine, formLine, description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			categoryType := model.CategoryType(kind)
			if categoryType != model.CategoryTypeIncome && categoryType != model.CategoryTypeExpense {
				return common.NewUserError("type must be income or expense", common.ErrInvalidCategory)
			}

			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			category := &model.Category{
				Name:        args[0],
				Type:        categoryType,
				TaxLine:     taxLine,
				FormLine:    formLine,
				Description: description,
			}
			if err := a.Store.CreateCategory(ctx, category); err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("category %q already exists", category.Name), err)
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Added category "+category.Name))
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", string(model.CategoryTypeExpense), "category type (income, expense)")
	cmd.Flags().StringVar(&taxLine, "tax-line", "", "tax form line, e.g. \"Line 18\"")
	cmd.Flags().StringVar(&formLine, "form-line", "", "entity return line, e.g. \"1120S-19\"")
	cmd.Flags().StringVarP(&description, "description", "d", "", "what belongs in the category")

	return cmd
}

func deactivateCategoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <name>",
		Short: "Deactivate a category",
		Long: `Deactivated categories keep their transactions but can no longer be
chosen during review.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			category, err := a.Store.GetCategoryByName(ctx, args[0])
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no category named %q", args[0]), err)
				}
				return err
			}
			if err := a.Store.DeactivateCategory(ctx, category.ID); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deactivated category "+category.Name))
			return nil
		},
	}
}
