package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xuri/excelize/v2"

	"loan-report-dashboard/internal/models"
	"loan-report-dashboard/internal/snapshot"
	"loan-report-dashboard/pkg/errors"
	"loan-report-dashboard/pkg/logger"
	"loan-report-dashboard/pkg/ratelimit"
)

func nplRow(index interface{}, name, region string, amount, ratio float64) []interface{} {
	row := []interface{}{index, name, region}
	for i := 0; i < 6; i++ {
		row = append(row, amount, ratio)
	}
	return row
}

// writeNPLWorkbook saves a workbook with one NPL sheet named sheet plus the
// given extra branch rows.
func writeNPLWorkbook(t *testing.T, sheet string, extra ...[]interface{}) string {
	t.Helper()

	rows := [][]interface{}{
		{"LAPORAN NPL KREDIT UMKM"},
		{"", "", "", "Posisi 26des'25", "", "", "", "", "", "Posisi 26jan'26"},
		{},
		{"No", "Kantor", "Kanwil", "KUMK", "%", "KUR", "%", "Total", "%"},
		{},
		{},
		nplRow(1, "KC Jakarta Pusat", "Jakarta I", 120, 0.05),
		nplRow(2, "KC Bogor", "Jakarta 1", 80, 0.05),
		nplRow("", "Total Kanwil Jakarta I", "", 200, 0.05),
		nplRow(3, "KC Denpasar", "Jatim Bali Nusra", 300, 0.03),
		nplRow("", "Total Kanwil Jatim Bali Nusra", "", 300, 0.03),
	}
	rows = append(rows, extra...)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for r, values := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		row := values
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "laporan.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func newTestRunner(t *testing.T, opts parseOptions, maxAttempts int) (*parseRunner, *bytes.Buffer) {
	t.Helper()

	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(nil), ratelimit.Config{
		MaxAttempts: maxAttempts,
		Lockout:     time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	if opts.Format == "" {
		opts.Format = "console"
	}
	if opts.Operator == "" {
		opts.Operator = "teller"
	}

	var out bytes.Buffer
	return &parseRunner{
		opts:    opts,
		limiter: limiter,
		out:     &out,
		status:  &bytes.Buffer{},
		log:     logger.Discard(),
	}, &out
}

func TestParseOptionsValidate(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name          string
		opts          parseOptions
		expectError   bool
		errorContains string
	}{
		{
			name: "valid options",
			opts: parseOptions{Input: "laporan.xlsx", Format: "console", Operator: "teller"},
		},
		{
			name:          "missing input",
			opts:          parseOptions{Format: "console", Operator: "teller"},
			expectError:   true,
			errorContains: "input",
		},
		{
			name:          "missing operator",
			opts:          parseOptions{Input: "laporan.xlsx", Format: "console"},
			expectError:   true,
			errorContains: "operator",
		},
		{
			name:          "invalid output format",
			opts:          parseOptions{Input: "laporan.xlsx", Format: "xml", Operator: "teller"},
			expectError:   true,
			errorContains: "format",
		},
		{
			name:          "malformed cutover",
			opts:          parseOptions{Input: "laporan.xlsx", Format: "json", Operator: "teller", Cutover: "01-2026"},
			expectError:   true,
			errorContains: "cutover",
		},
		{
			name: "valid cutover and type",
			opts: parseOptions{Input: "npl.pdf", Format: "csv", Operator: "teller", Cutover: "2026-02", ReportType: "kol2"},
		},
		{
			name: "daily realization PDF",
			opts: parseOptions{Input: "realisasi.pdf", Format: "console", Operator: "teller", ReportType: "realisasi"},
		},
		{
			name:          "type without PDF table",
			opts:          parseOptions{Input: "posisi.pdf", Format: "console", Operator: "teller", ReportType: "posisi_kredit"},
			expectError:   true,
			errorContains: "type",
		},
		{
			name:          "unknown type",
			opts:          parseOptions{Input: "npl.pdf", Format: "console", Operator: "teller", ReportType: "npl3"},
			expectError:   true,
			errorContains: "type",
		},
		{
			name:          "output directory missing",
			opts:          parseOptions{Input: "laporan.xlsx", Format: "console", Operator: "teller", OutputFile: filepath.Join(tmpDir, "nope", "out.json")},
			expectError:   true,
			errorContains: "directory",
		},
		{
			name: "output directory exists",
			opts: parseOptions{Input: "laporan.xlsx", Format: "console", Operator: "teller", OutputFile: filepath.Join(tmpDir, "out.json")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("expected error to contain '%s', got: %v", tt.errorContains, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateParseFlags(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("input", "laporan.xlsx")
	viper.Set("format", "json")
	viper.Set("operator", "teller")
	viper.Set("strict", true)
	viper.Set("cutover", "2026-02")

	if err := validateParseFlags(&cobra.Command{}, []string{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parseOpts.Input != "laporan.xlsx" || parseOpts.Format != "json" || !parseOpts.Strict || parseOpts.Cutover != "2026-02" {
		t.Errorf("flags not read from viper: %+v", parseOpts)
	}

	viper.Set("format", "yaml")
	if err := validateParseFlags(&cobra.Command{}, []string{}); err == nil {
		t.Error("expected invalid format to be rejected")
	}
}

func TestParseRunnerWorkbook(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	input := writeNPLWorkbook(t, "49c. NPLKC (produk)")
	outputDir := filepath.Join(t.TempDir(), "data")

	runner, out := newTestRunner(t, parseOptions{Input: input, OutputDir: outputDir}, 5)
	if err := runner.run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := out.String()
	for _, want := range []string{"LOAN PORTFOLIO REPORT", "Jakarta I", "Jabanus"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}

	entries, err := snapshot.History(outputDir)
	if err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}

	report, err := snapshot.Latest(outputDir, "npl")
	if err != nil {
		t.Fatalf("failed to load latest npl: %v", err)
	}
	if report.TotalNasional == nil || report.TotalNasional.Value("total_current") != 500 {
		t.Errorf("expected synthesized national total 500, got %+v", report.TotalNasional)
	}
	if !strings.Contains(runner.status.(*bytes.Buffer).String(), "Stored upload") {
		t.Error("expected a status line about the stored upload")
	}
}

func TestParseRunnerOutputFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	input := writeNPLWorkbook(t, "49c NPL")
	outputFile := filepath.Join(t.TempDir(), "laporan.csv")

	runner, out := newTestRunner(t, parseOptions{Input: input, Format: "csv", OutputFile: outputFile}, 5)
	if err := runner.run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Error("expected nothing on stdout when writing to a file")
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "report,tier,name,kanwil,field,value") {
		t.Errorf("unexpected CSV header: %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestParseRunnerStrict(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	input := writeNPLWorkbook(t, "49c. NPLKC (produk)",
		nplRow(4, "KC Atlantis", "Atlantis", 10, 0.01))
	outputDir := filepath.Join(t.TempDir(), "data")

	lenient, _ := newTestRunner(t, parseOptions{Input: input}, 5)
	if err := lenient.run(context.Background()); err != nil {
		t.Fatalf("lenient parse should succeed: %v", err)
	}

	strict, out := newTestRunner(t, parseOptions{Input: input, OutputDir: outputDir, Strict: true}, 5)
	err := strict.run(context.Background())
	if err == nil {
		t.Fatal("expected strict parse to fail")
	}

	var diagErr *errors.DiagnosticsError
	if !errors.As(err, &diagErr) {
		t.Fatalf("expected diagnostics error, got %T", err)
	}
	if len(diagErr.Issues) == 0 {
		t.Error("expected issues to be listed")
	}
	if diagErr.GetExitCode() != 3 {
		t.Errorf("expected exit code 3, got %d", diagErr.GetExitCode())
	}
	if out.Len() == 0 {
		t.Error("expected the report to be rendered before the strict check")
	}
	if _, statErr := os.Stat(filepath.Join(outputDir, "history_index.json")); !os.IsNotExist(statErr) {
		t.Error("strict failure must not publish snapshots")
	}
}

func TestParseRunnerInputErrors(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	tmpDir := t.TempDir()
	csvFile := filepath.Join(tmpDir, "laporan.csv")
	if err := os.WriteFile(csvFile, []byte("a,b"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	pdfFile := filepath.Join(tmpDir, "npl.pdf")
	if err := os.WriteFile(pdfFile, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name     string
		opts     parseOptions
		category errors.ErrorCategory
		code     errors.ErrorCode
	}{
		{
			name:     "missing workbook",
			opts:     parseOptions{Input: filepath.Join(tmpDir, "missing.xlsx")},
			category: errors.CategoryFile,
			code:     errors.CodeFileNotFound,
		},
		{
			name:     "unsupported format",
			opts:     parseOptions{Input: csvFile},
			category: errors.CategoryFile,
			code:     errors.CodeUnsupportedFormat,
		},
		{
			name:     "no routed sheets",
			opts:     parseOptions{Input: writeNPLWorkbook(t, "Rekap")},
			category: errors.CategoryWorkbook,
			code:     errors.CodeNoSheets,
		},
		{
			name:     "pdf without type",
			opts:     parseOptions{Input: pdfFile},
			category: errors.CategoryConfiguration,
			code:     errors.CodeMissingConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, _ := newTestRunner(t, tt.opts, 5)
			err := runner.run(context.Background())

			reportErr, ok := errors.AsReportError(err)
			if !ok {
				t.Fatalf("expected report error, got %v", err)
			}
			if reportErr.Category != tt.category || reportErr.Code != tt.code {
				t.Errorf("expected %s/%s, got %s/%s", tt.category, tt.code, reportErr.Category, reportErr.Code)
			}
		})
	}
}

func TestParseRunnerLockout(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	good := writeNPLWorkbook(t, "49c NPL")
	missing := filepath.Join(t.TempDir(), "missing.xlsx")

	runner, _ := newTestRunner(t, parseOptions{Input: missing}, 2)
	ctx := context.Background()

	// A success in between clears the counter.
	runner.run(ctx)
	runner.opts.Input = good
	if err := runner.run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runner.opts.Input = missing
	runner.run(ctx)
	runner.run(ctx)

	runner.opts.Input = good
	err := runner.run(ctx)
	reportErr, ok := errors.AsReportError(err)
	if !ok || reportErr.Category != errors.CategoryAccess {
		t.Fatalf("expected access error after two failures, got %v", err)
	}
	if reportErr.GetExitCode() != 6 {
		t.Errorf("expected exit code 6, got %d", reportErr.GetExitCode())
	}

	other, _ := newTestRunner(t, parseOptions{Input: good, Operator: "auditor"}, 2)
	other.limiter = runner.limiter
	if err := other.run(ctx); err != nil {
		t.Errorf("other operators should not be locked out: %v", err)
	}
}

func TestParseRunnerConfigErrorsDoNotCount(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	pdfFile := filepath.Join(t.TempDir(), "npl.pdf")
	if err := os.WriteFile(pdfFile, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	runner, _ := newTestRunner(t, parseOptions{Input: pdfFile}, 1)
	for i := 0; i < 3; i++ {
		err := runner.run(context.Background())
		reportErr, ok := errors.AsReportError(err)
		if !ok || reportErr.Category != errors.CategoryConfiguration {
			t.Fatalf("attempt %d: expected configuration error, got %v", i+1, err)
		}
	}
}

func TestCountsAsFailedAttempt(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"file", errors.FileError(errors.CodeFileNotFound, "x.xlsx", nil), true},
		{"workbook", errors.WorkbookError(errors.CodeWorkbookOpen, "x.xlsx", nil), true},
		{"diagnostics", errors.NewDiagnosticsError("x.xlsx", []errors.Issue{{Sheet: "49c", Reason: "bad"}}), true},
		{"configuration", errors.ConfigurationError(errors.CodeInvalidConfig, "format", "xml", nil), false},
		{"storage", errors.StorageError(errors.CodeSnapshotWrite, "data", nil), false},
		{"plain", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countsAsFailedAttempt(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseCommandHelp(t *testing.T) {
	cmd := parseCmd

	for _, name := range []string{"input", "output-dir", "format", "output-file", "strict", "cutover", "type", "operator"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("%s flag not found", name)
		}
	}

	var helpOutput bytes.Buffer
	cmd.SetOut(&helpOutput)
	cmd.Help()

	helpText := helpOutput.String()
	for _, section := range []string{"Usage:", "Examples:", "Flags:", "--input", "--strict", "--cutover"} {
		if !strings.Contains(helpText, section) {
			t.Errorf("help text should contain '%s'", section)
		}
	}
}

func TestPDFReportType(t *testing.T) {
	tests := []struct {
		reportType models.ReportType
		want       bool
	}{
		{models.ReportNPL, true},
		{models.ReportKOL2, true},
		{models.ReportDailyRealization, true},
		{models.ReportCreditRealization, false},
		{models.ReportCreditPosition, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.reportType), func(t *testing.T) {
			if got := pdfReportType(tt.reportType); got != tt.want {
				t.Errorf("pdfReportType(%s) = %v, want %v", tt.reportType, got, tt.want)
			}
		})
	}
}
