package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"loan-report-dashboard/cmd/reportparser/config"
	"loan-report-dashboard/internal/models"
	"loan-report-dashboard/internal/parsers"
	"loan-report-dashboard/internal/sources"
	"loan-report-dashboard/pkg/errors"
)

var (
	inspectInput  string
	inspectFormat string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "List the sheets of a workbook and the report each one routes to",
	Long: `Inspect opens a workbook without parsing it and shows every sheet with its
row count and the report type its name routes to. When several sheets route
to the same type only the last one is parsed.

Examples:
  reportparser inspect --input laporan.xlsx
  reportparser inspect --input laporan.xlsx --format json`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if inspectFormat != "console" && inspectFormat != "json" {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "format", inspectFormat,
				fmt.Errorf("valid formats: console, json"))
		}
		return validateFileExists(inspectInput, "workbook")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(inspectInput, inspectFormat, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectInput, "input", "i", "", "path to the .xlsx or .xls workbook (required)")
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "console", "output format: console, json")
	inspectCmd.MarkFlagRequired("input")
}

// SheetInfo describes one sheet of an inspected workbook.
type SheetInfo struct {
	Name   string            `json:"name"`
	Rows   int               `json:"rows"`
	Type   models.ReportType `json:"type,omitempty"`
	Parsed bool              `json:"parsed"`
}

// inspectWorkbook routes the sheets of wb the same way parse does.
func inspectWorkbook(parser *parsers.Parser, wb *parsers.Workbook) []SheetInfo {
	routed := parser.RouteSheets(wb.SheetNames())

	infos := make([]SheetInfo, 0, len(wb.Sheets))
	for _, sheet := range wb.Sheets {
		info := SheetInfo{Name: sheet.Name, Rows: len(sheet.Rows)}
		if t, ok := parser.RouteSheet(sheet.Name); ok {
			info.Type = t
			info.Parsed = routed[t] == sheet.Name
		}
		infos = append(infos, info)
	}
	return infos
}

func runInspect(path, format string, out io.Writer) error {
	parserConfig, err := config.CreateParserConfig("")
	if err != nil {
		return err
	}
	parser, err := parsers.NewParser(parserConfig)
	if err != nil {
		return err
	}

	wb, err := sources.LoadWorkbook(path)
	if err != nil {
		return err
	}
	infos := inspectWorkbook(parser, wb)

	if format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "SHEET\tROWS\tREPORT\n")
	for _, info := range infos {
		report := "-"
		if info.Type != "" {
			report = info.Type.Label()
			if !info.Parsed {
				report += " (shadowed by a later sheet)"
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Name, info.Rows, report)
	}
	return tw.Flush()
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, description, "", nil)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, filePath, err)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeDirectoryError, filePath, nil).
			WithSuggestion(fmt.Sprintf("the %s path points to a directory, expected a file", description))
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err)
	}
	file.Close()

	return nil
}
