package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/storage"
)

func checkpointCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage database checkpoints",
		Long: `Create, list, restore and delete snapshots of the ledger database.

A checkpoint is taken automatically before every import unless
import.snapshot is false; only the newest import.max_snapshots automatic
checkpoints are kept.`,
	}

	cmd.AddCommand(checkpointCreateCmd(opts))
	cmd.AddCommand(checkpointListCmd(opts))
	cmd.AddCommand(checkpointRestoreCmd(opts))
	cmd.AddCommand(checkpointDeleteCmd(opts))

	return cmd
}

func checkpointCreateCmd(opts *rootOptions) *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new checkpoint",
		Example: `  tally checkpoint create --tag before-cleanup
  tally checkpoint create -d "before deleting the test account"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if tag == "" {
				tag = "manual-" + time.Now().Format("20060102-150405")
			}

			info, err := a.Checkpoints.Create(ctx, tag, description)
			if err != nil {
				switch {
				case errors.Is(err, storage.ErrCheckpointExists):
					return common.NewUserError(fmt.Sprintf("checkpoint %q already exists", tag), err)
				case errors.Is(err, storage.ErrInvalidCheckpointID):
					return common.NewUserError("checkpoint tags cannot contain path separators", err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Created checkpoint: %s\n", cli.SuccessStyle.Render("✓"), info.ID)
			fmt.Fprintf(out, "  Size: %s, %d transactions, %d rules\n", formatFileSize(info.FileSize), info.Transactions, info.Rules)
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "checkpoint name (default: manual-<timestamp>)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "what the checkpoint is for")

	return cmd
}

func checkpointListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List checkpoints, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			checkpoints, err := a.Checkpoints.List(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(checkpoints) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No checkpoints found"))
				return nil
			}

			rows := make([][]string, 0, len(checkpoints))
			for _, cp := range checkpoints {
				id := cp.ID
				if cp.IsAuto {
					id += " (auto)"
				}
				rows = append(rows, []string{
					id,
					formatRelativeTime(cp.CreatedAt),
					formatFileSize(cp.FileSize),
					strconv.Itoa(cp.Transactions),
					strconv.Itoa(cp.Unresolved),
					cp.Description,
				})
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"ID", "CREATED", "SIZE", "TRANSACTIONS", "UNRESOLVED", "DESCRIPTION"}, rows))
			return nil
		},
	}
}

func checkpointRestoreCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the database with a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			if !force {
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), cmd.OutOrStdout(),
					fmt.Sprintf("Restore checkpoint %s? Changes made since it was taken will be lost.", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Restore canceled"))
					return nil
				}
			}

			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Restore(ctx, id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Restored checkpoint: %s\n", cli.SuccessStyle.Render("✓"), id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	return cmd
}

func checkpointDeleteCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			if !force {
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), cmd.OutOrStdout(),
					fmt.Sprintf("Delete checkpoint %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Delete canceled"))
					return nil
				}
			}

			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Checkpoints.Delete(ctx, id); err != nil {
				if errors.Is(err, storage.ErrCheckpointNotFound) {
					return common.NewUserError("no checkpoint named "+id, err)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted checkpoint: %s\n", cli.SuccessStyle.Render("✓"), id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	return cmd
}
