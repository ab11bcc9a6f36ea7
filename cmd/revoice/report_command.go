package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"revoice/internal/pipeline"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report <job-id>",
		Short: "Show the generated run report for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			job, err := store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("no job with id %s", args[0])
			}
			if job.ReportJSON == "" {
				return fmt.Errorf("job has no report yet (status: %s)", job.Status)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				fmt.Fprintln(out, job.ReportJSON)
				return nil
			}

			var report pipeline.Report
			if err := json.Unmarshal([]byte(job.ReportJSON), &report); err != nil {
				return fmt.Errorf("decode report: %w", err)
			}
			fmt.Fprint(out, report.Render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw report JSON")
	return cmd
}
