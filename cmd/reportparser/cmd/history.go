package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"loan-report-dashboard/internal/models"
	"loan-report-dashboard/internal/snapshot"
	"loan-report-dashboard/pkg/errors"
)

var (
	historyDir    string
	historyLatest string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored uploads or the latest snapshot of a report",
	Long: `History reads the snapshot directory written by 'parse --output-dir'.
Without --latest it lists uploads newest first; with --latest it prints the
latest stored report of one type as JSON.

Examples:
  reportparser history --output-dir data
  reportparser history --output-dir data --latest npl`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyDir == "" {
			return errors.ConfigurationError(errors.CodeMissingConfig, "output-dir", "", nil)
		}
		if historyLatest != "" {
			return runLatest(historyDir, historyLatest, cmd.OutOrStdout())
		}
		return runHistory(historyDir, historyLimit, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyDir, "output-dir", "", "snapshot directory (required)")
	historyCmd.Flags().StringVar(&historyLatest, "latest", "", "print the latest snapshot of this report type")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum uploads to list (0 for all)")
}

func runHistory(dir string, limit int, out io.Writer) error {
	entries, err := snapshot.History(dir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No uploads stored.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "UPLOAD\tDATE\tPERIOD\tREPORTS\n")
	for i, entry := range entries {
		if limit > 0 && i == limit {
			break
		}
		period := "-"
		if entry.MonthInfo != nil && entry.MonthInfo.Current != nil {
			period = entry.MonthInfo.Current.FullLabel
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			entry.UploadID,
			entry.UploadDate.Format("2006-01-02 15:04"),
			period,
			strings.Join(entry.ParsedSheets, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if limit > 0 && len(entries) > limit {
		fmt.Fprintf(out, "... and %d older uploads\n", len(entries)-limit)
	}
	return nil
}

func runLatest(dir, reportType string, out io.Writer) error {
	t, err := models.ParseReportType(reportType)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "latest", reportType, err)
	}

	report, err := snapshot.Latest(dir, t)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
