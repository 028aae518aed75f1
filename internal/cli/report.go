package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/auth0scan/internal/report"
)

func newReportCmd() *cobra.Command {
	var inputPath string
	var summaryPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the text summary from a JSON scan artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" {
				return errors.New("--input is required")
			}

			data, err := os.ReadFile(inputPath)
			if err != nil {
				return err
			}

			var rep report.Report
			if err := json.Unmarshal(data, &rep); err != nil {
				return fmt.Errorf("parse scan artifact: %w", err)
			}

			if summaryPath != "" {
				file, err := os.Create(summaryPath)
				if err != nil {
					return err
				}
				defer file.Close()

				if err := report.RenderText(file, rep); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Summary written to %s\n", summaryPath)
				return nil
			}

			return report.RenderText(cmd.OutOrStdout(), rep)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Path to a JSON scan artifact")
	cmd.Flags().StringVar(&summaryPath, "summary-file", "", "Optional path to store the text summary")
	if err := cmd.MarkFlagRequired("input"); err != nil {
		panic(err)
	}

	return cmd
}
