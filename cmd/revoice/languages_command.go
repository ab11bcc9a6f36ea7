package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"revoice/internal/transcript"
)

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "languages",
		Short:       "List supported target languages",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			languages := transcript.SupportedLanguages()
			rows := make([][]string, 0, len(languages))
			for _, lang := range languages {
				rows = append(rows, []string{lang.Code, lang.Name, lang.RegionName})
			}
			headers := []string{"Code", "Language", "Region"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}
}
