package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"revoice/internal/jobs"
	"revoice/internal/transcript"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job's status and progress log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for {
				job, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("no job with id %s", args[0])
				}

				renderStatus(out, job)
				if !follow || job.Status.IsTerminal() {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(2 * time.Second):
				}
				fmt.Fprintln(out)
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Poll until the job reaches a terminal status")
	return cmd
}

func renderStatus(out io.Writer, job *jobs.Job) {
	rows := [][]string{
		{"ID", job.ID},
		{"Status", string(job.Status)},
		{"Stage", stageCell(job)},
		{"File", job.OriginalFilename},
		{"Languages", fmt.Sprintf("%s -> %s", sourceLabel(job.SourceLanguage), transcript.LanguageName(job.TargetLanguage))},
	}
	if job.OutputFile != "" {
		rows = append(rows, []string{"Output", job.OutputFile})
	}
	if job.ErrorMessage != "" {
		rows = append(rows, []string{"Error", job.ErrorMessage})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

	entries, err := job.StageLog()
	if err != nil || len(entries) == 0 {
		return
	}
	fmt.Fprintln(out, "Progress:")
	for _, entry := range entries {
		fmt.Fprintf(out, "  %s  %s\n", entry.Timestamp.Local().Format("15:04:05"), entry.Message)
	}
}

func stageCell(job *jobs.Job) string {
	if job.CurrentStage == 0 {
		return "not started"
	}
	cell := fmt.Sprintf("%d/%d %s", job.CurrentStage, jobs.StageCount, jobs.StageName(job.CurrentStage))
	if job.StageLabel != "" {
		cell += " (" + job.StageLabel + ")"
	}
	return cell
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
