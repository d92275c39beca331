// Package reporter renders parsed workbooks for people and for other tools.
//
// Supported output formats:
//   - Console: per-report summaries and kanwil tables for terminal display
//   - JSON: the upload response consumed by the dashboard (reports keyed by
//     type plus parsedSheets, missingSheets and monthInfo)
//   - CSV: one line per entity field, for spreadsheet pivoting
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"loan-report-dashboard/internal/models"
	"loan-report-dashboard/internal/parsers"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format" mapstructure:"format"`

	// Detail level options
	IncludeBranches    bool `json:"include_branches" mapstructure:"include_branches"`
	IncludeDiagnostics bool `json:"include_diagnostics" mapstructure:"include_diagnostics"`
	MaxDiagnostics     int  `json:"max_diagnostics" mapstructure:"max_diagnostics"`
	MaxRows            int  `json:"max_rows" mapstructure:"max_rows"`

	// Console formatting options
	TableMaxWidth int `json:"table_max_width" mapstructure:"table_max_width"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter" mapstructure:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers" mapstructure:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:             FormatConsole,
		IncludeBranches:    false,
		IncludeDiagnostics: true,
		MaxDiagnostics:     10,
		MaxRows:            20,
		TableMaxWidth:      120,
		CSVDelimiter:       ',',
		CSVHeaders:         true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.TableMaxWidth < 50 {
		return fmt.Errorf("table max width must be at least 50 characters, got %d", c.TableMaxWidth)
	}

	if c.MaxDiagnostics < 0 || c.MaxRows < 0 {
		return fmt.Errorf("row limits cannot be negative")
	}

	return nil
}

// column is one headline value shown in console tables.
type column struct {
	title   string
	field   string
	percent bool
}

var nplColumns = []column{
	{"Total", "total_current", false},
	{"% Current", "totalPercent_current", true},
	{"% Previous", "totalPercent_previous", true},
	{"Gap", "gap_total", false},
}

// headlineColumns picks the values worth a glance per report type.
var headlineColumns = map[models.ReportType][]column{
	models.ReportNPL:  nplColumns,
	models.ReportKOL2: nplColumns,
	models.ReportCreditRealization: {
		{"KUMK", "kumk_real_current", false},
		{"KUR", "kur_total_current", false},
		{"UMKM", "umkm_real_current", false},
		{"% RKAP", "umkm_pcp_rkap", true},
	},
	models.ReportCreditPosition: {
		{"Posisi", "posisi_current", false},
		{"Realisasi", "realisasi", false},
		{"Gap MTD", "gap_mtd", false},
		{"Gap YoY", "gap_yoy", false},
	},
}

// ReportGenerator renders workbook results in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport renders result and writes it to writer.
func (rg *ReportGenerator) GenerateReport(result *parsers.WorkbookResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("workbook result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(result *parsers.WorkbookResult, writer io.Writer) error {
	fmt.Fprintf(writer, "LOAN PORTFOLIO REPORT\n")
	if result.MonthInfo != nil {
		fmt.Fprintf(writer, "Period:    %s\n", periodLine(result.MonthInfo))
		if !result.MonthInfo.ReferenceDate.IsZero() {
			fmt.Fprintf(writer, "Parsed:    %s\n", result.MonthInfo.ReferenceDate.Format(time.RFC3339))
		}
	}
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== SHEETS ===\n")
	fmt.Fprintf(writer, "Parsed:  %s\n", joinOrDash(result.ParsedSheets))
	fmt.Fprintf(writer, "Missing: %s\n", joinOrDash(result.MissingSheets))
	fmt.Fprintf(writer, "\n")

	for _, t := range models.AllReportTypes {
		report, ok := result.Reports[t]
		if !ok {
			continue
		}
		fmt.Fprintf(writer, "=== %s ===\n", strings.ToUpper(t.Label()))
		if sheet := result.SheetMap[t]; sheet != "" {
			fmt.Fprintf(writer, "Sheet:     %s\n", sheet)
		}
		fmt.Fprintf(writer, "Period:    %s\n", periodLine(&report.MonthInfo))

		if t == models.ReportDailyRealization {
			rg.printDaily(report, writer)
		} else {
			rg.printEntities(t, report, result.Stats[t], writer)
		}

		if rg.config.IncludeDiagnostics {
			rg.printDiagnostics(result.Stats[t], writer)
		}
		fmt.Fprintf(writer, "\n")
	}

	return nil
}

func (rg *ReportGenerator) printEntities(t models.ReportType, report *models.Report, stats *parsers.ParseStats, writer io.Writer) {
	s := report.Stats()
	fmt.Fprintf(writer, "Rows:      %d kanwil, %d cabang\n", s.Kanwil, s.Cabang)

	columns := headlineColumns[t]
	if report.TotalNasional != nil && len(columns) > 0 {
		note := ""
		if stats != nil && stats.Synthesized {
			note = " (synthesized from kanwil rows)"
		}
		fmt.Fprintf(writer, "National:  %s %s%s\n", columns[0].title, formatValue(report.TotalNasional.Value(columns[0].field), columns[0].percent), note)
	}
	if len(report.KanwilData) == 0 || len(columns) == 0 {
		return
	}

	fmt.Fprintf(writer, "\n")
	rg.printTable(columns, report.KanwilData, false, writer)

	if rg.config.IncludeBranches && len(report.CabangData) > 0 {
		fmt.Fprintf(writer, "\nCabang:\n")
		rg.printTable(columns, report.CabangData, true, writer)
	}
}

func (rg *ReportGenerator) printTable(columns []column, entities []models.Entity, withKanwil bool, writer io.Writer) {
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := []string{"Name"}
	if withKanwil {
		header = append(header, "Kanwil")
	}
	for _, c := range columns {
		header = append(header, c.title)
	}
	fmt.Fprintf(tw, "%s\t\n", strings.Join(header, "\t"))

	maxNameWidth := rg.config.TableMaxWidth / 3
	for i, e := range entities {
		if rg.config.MaxRows > 0 && i >= rg.config.MaxRows {
			fmt.Fprintf(tw, "... and %d more\t\n", len(entities)-rg.config.MaxRows)
			break
		}
		cells := []string{truncate(e.Name, maxNameWidth)}
		if withKanwil {
			cells = append(cells, e.Kanwil)
		}
		for _, c := range columns {
			cells = append(cells, formatValue(e.Value(c.field), c.percent))
		}
		fmt.Fprintf(tw, "%s\t\n", strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func (rg *ReportGenerator) printDaily(report *models.Report, writer io.Writer) {
	fmt.Fprintf(writer, "Days:      %d\n", len(report.DailyData))
	if report.MonthlyTotals != nil {
		fmt.Fprintf(writer, "Total:     %s (previous month %s)\n",
			formatValue(report.MonthlyTotals.Current, false),
			formatValue(report.MonthlyTotals.Previous, false))
	}
	if len(report.DailyData) == 0 {
		return
	}

	fmt.Fprintf(writer, "\n")
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Day\tKUR\tKUMK\tKPP Supply\tKPP Demand\tTotal\tTotal Prev\t\n")
	start := 0
	if rg.config.MaxRows > 0 && len(report.DailyData) > rg.config.MaxRows {
		start = len(report.DailyData) - rg.config.MaxRows
		fmt.Fprintf(tw, "(%d earlier days)\t\n", start)
	}
	for _, d := range report.DailyData[start:] {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n", d.Date,
			formatValue(d.Kur, false), formatValue(d.Kumk, false),
			formatValue(d.KppSupply, false), formatValue(d.KppDemand, false),
			formatValue(d.Total, false), formatValue(d.TotalPrevious, false))
	}
	tw.Flush()
}

func (rg *ReportGenerator) printDiagnostics(stats *parsers.ParseStats, writer io.Writer) {
	if stats == nil || !stats.HasDiagnostics() {
		return
	}
	fmt.Fprintf(writer, "Diagnostics: %d\n", len(stats.Diagnostics))
	for _, s := range stats.GetSampleDiagnostics(rg.config.MaxDiagnostics) {
		fmt.Fprintf(writer, "  - %s\n", s)
	}
	if rg.config.MaxDiagnostics > 0 && len(stats.Diagnostics) > rg.config.MaxDiagnostics {
		fmt.Fprintf(writer, "  ... and %d more\n", len(stats.Diagnostics)-rg.config.MaxDiagnostics)
	}
}

// generateJSONReport writes the upload response document.
func (rg *ReportGenerator) generateJSONReport(result *parsers.WorkbookResult, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(rg.filterResultForOutput(result))
}

// generateCSVReport writes one record per entity field.
func (rg *ReportGenerator) generateCSVReport(result *parsers.WorkbookResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{"report", "tier", "name", "kanwil", "field", "value"}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	write := func(t models.ReportType, tier string, e *models.Entity) error {
		for _, field := range e.Fields() {
			record := []string{string(t), tier, e.Name, e.Kanwil, field, formatCSVValue(e.Values[field])}
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write %s record: %w", tier, err)
			}
		}
		return nil
	}

	for _, t := range models.AllReportTypes {
		report, ok := result.Reports[t]
		if !ok {
			continue
		}

		if report.TotalNasional != nil {
			if err := write(t, "national", report.TotalNasional); err != nil {
				return err
			}
		}
		for i := range report.KanwilData {
			if err := write(t, "kanwil", &report.KanwilData[i]); err != nil {
				return err
			}
		}
		for i := range report.CabangData {
			if err := write(t, "cabang", &report.CabangData[i]); err != nil {
				return err
			}
		}
		for _, d := range report.DailyData {
			if err := write(t, "day", dailyEntity(d)); err != nil {
				return err
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// dailyEntity flattens a day row so it shares the entity CSV layout.
func dailyEntity(d models.DailyRecord) *models.Entity {
	e := models.NewEntity(strconv.Itoa(d.Date), "")
	e.Values["kur"] = d.Kur
	e.Values["kumk"] = d.Kumk
	e.Values["smeSwadana"] = d.SmeSwadana
	e.Values["kumkLainnya"] = d.KumkLainnya
	e.Values["kppSupply"] = d.KppSupply
	e.Values["kppDemand"] = d.KppDemand
	e.Values["total"] = d.Total
	e.Values["kur_previous"] = d.KurPrevious
	e.Values["kumk_previous"] = d.KumkPrevious
	e.Values["smeSwadana_previous"] = d.SmeSwadanaPrevious
	e.Values["kumkLainnya_previous"] = d.KumkLainnyaPrevious
	e.Values["kppSupply_previous"] = d.KppSupplyPrevious
	e.Values["kppDemand_previous"] = d.KppDemandPrevious
	e.Values["total_previous"] = d.TotalPrevious
	return e
}

func (rg *ReportGenerator) filterResultForOutput(result *parsers.WorkbookResult) map[string]interface{} {
	reports := make(map[string]*models.Report, len(result.Reports))
	for t, r := range result.Reports {
		reports[string(t)] = r
	}

	output := map[string]interface{}{
		"reports":       reports,
		"parsedSheets":  result.ParsedSheets,
		"missingSheets": result.MissingSheets,
		"monthInfo":     result.MonthInfo,
		"sheets":        result.SheetMap,
	}

	if rg.config.IncludeDiagnostics {
		stats := make(map[string]*parsers.ParseStats, len(result.Stats))
		for t, s := range result.Stats {
			stats[string(t)] = s
		}
		output["stats"] = stats
	}

	return output
}

// Helper functions

func periodLine(info *models.MonthInfo) string {
	if info == nil || info.Current == nil {
		return "-"
	}
	line := info.Current.FullLabel
	if info.Previous != nil {
		line += " (previous: " + info.Previous.FullLabel + ")"
	}
	if info.Day > 0 {
		line += fmt.Sprintf(", day %d", info.Day)
	}
	return line
}

func formatValue(v float64, percent bool) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	if percent {
		return s + "%"
	}
	return s
}

func formatCSVValue(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func truncate(s string, max int) string {
	if max <= 3 || len([]rune(s)) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}
