package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"revoice/internal/jobs"
	"revoice/internal/transcript"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the job queue",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			all, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(all))
			for _, job := range all {
				rows = append(rows, []string{
					job.ID,
					string(job.Status),
					stageCell(job),
					job.OriginalFilename,
					transcript.LanguageName(job.TargetLanguage),
					job.CreatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Stage", "File", "Target", "Created"}, rows, nil))

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatStats(stats))
			return nil
		},
	}
}

func formatStats(stats map[jobs.Status]int) string {
	statuses := make([]string, 0, len(stats))
	for status := range stats {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)

	line := ""
	for i, status := range statuses {
		if i > 0 {
			line += ", "
		}
		line += fmt.Sprintf("%s: %d", status, stats[jobs.Status(status)])
	}
	return line
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			var removed int64
			if completedOnly {
				removed, err = store.ClearCompleted(cmd.Context())
			} else {
				removed, err = store.Clear(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d jobs\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Only remove completed jobs")
	return cmd
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			removed, err := store.ClearFailed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d failed jobs\n", removed)
			return nil
		},
	}
}
