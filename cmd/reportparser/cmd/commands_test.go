package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"loan-report-dashboard/cmd/reportparser/config"
	"loan-report-dashboard/internal/parsers"
	"loan-report-dashboard/pkg/errors"
)

func TestValidateFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "valid.xlsx")
	if err := os.WriteFile(validFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name     string
		filePath string
		wantCode errors.ErrorCode
	}{
		{name: "valid file", filePath: validFile},
		{name: "empty path", filePath: "", wantCode: errors.CodeMissingConfig},
		{name: "non-existent file", filePath: "/non/existent/file.xlsx", wantCode: errors.CodeFileNotFound},
		{name: "directory instead of file", filePath: tmpDir, wantCode: errors.CodeDirectoryError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, "workbook")

			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			reportErr, ok := errors.AsReportError(err)
			if !ok {
				t.Fatalf("expected report error, got %v", err)
			}
			if reportErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, reportErr.Code)
			}
		})
	}
}

func TestInspectWorkbook(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	parserConfig, err := config.CreateParserConfig("")
	if err != nil {
		t.Fatalf("failed to create parser config: %v", err)
	}
	parser, err := parsers.NewParser(parserConfig)
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}

	wb := &parsers.Workbook{
		Name: "laporan.xlsx",
		Sheets: []*parsers.Sheet{
			parsers.NewSheet("Cover", [][]interface{}{{"Laporan"}}),
			parsers.NewSheet("49c lama", [][]interface{}{{"a"}, {"b"}}),
			parsers.NewSheet("49c. NPLKC (produk)", [][]interface{}{{"a"}, {"b"}, {"c"}}),
			parsers.NewSheet("22a. Real sub prdk", nil),
		},
	}

	infos := inspectWorkbook(parser, wb)
	if len(infos) != 4 {
		t.Fatalf("expected 4 sheets, got %d", len(infos))
	}

	tests := []struct {
		index  int
		rows   int
		typ    string
		parsed bool
	}{
		{0, 1, "", false},
		{1, 2, "npl", false},
		{2, 3, "npl", true},
		{3, 0, "realisasi", true},
	}
	for _, tt := range tests {
		info := infos[tt.index]
		t.Run(info.Name, func(t *testing.T) {
			if info.Rows != tt.rows {
				t.Errorf("expected %d rows, got %d", tt.rows, info.Rows)
			}
			if string(info.Type) != tt.typ {
				t.Errorf("expected type %q, got %q", tt.typ, info.Type)
			}
			if info.Parsed != tt.parsed {
				t.Errorf("expected parsed %v, got %v", tt.parsed, info.Parsed)
			}
		})
	}
}

func TestRunInspect(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	input := writeNPLWorkbook(t, "49c NPL")

	var out bytes.Buffer
	if err := runInspect(input, "console", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "SHEET") || !strings.Contains(out.String(), "49c NPL") {
		t.Errorf("unexpected inspect output:\n%s", out.String())
	}

	out.Reset()
	if err := runInspect(input, "json", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var infos []SheetInfo
	if err := json.Unmarshal(out.Bytes(), &infos); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(infos) != 1 || infos[0].Type != "npl" || !infos[0].Parsed {
		t.Errorf("unexpected sheet info %+v", infos)
	}
}

func TestHistoryCommands(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	outputDir := filepath.Join(t.TempDir(), "data")

	var out bytes.Buffer
	if err := runHistory(outputDir, 20, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "No uploads stored.") {
		t.Errorf("expected empty history message, got %q", out.String())
	}

	input := writeNPLWorkbook(t, "49c NPL")
	for i := 0; i < 3; i++ {
		runner, _ := newTestRunner(t, parseOptions{Input: input, OutputDir: outputDir}, 5)
		if err := runner.run(context.Background()); err != nil {
			t.Fatalf("upload %d: %v", i+1, err)
		}
	}

	out.Reset()
	if err := runHistory(outputDir, 2, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Januari 2026") || !strings.Contains(text, "NPL") {
		t.Errorf("expected period and report in history:\n%s", text)
	}
	if !strings.Contains(text, "... and 1 older uploads") {
		t.Errorf("expected limit notice:\n%s", text)
	}

	out.Reset()
	if err := runLatest(outputDir, "npl", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var report map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report["type"] != "npl" {
		t.Errorf("expected npl report, got %v", report["type"])
	}

	if err := runLatest(outputDir, "kol2", &out); err == nil {
		t.Error("expected missing kol2 snapshot to fail")
	}
	if err := runLatest(outputDir, "bogus", &out); err == nil {
		t.Error("expected unknown report type to fail")
	}
}

func TestCLIErrorHandler(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	issues := []errors.Issue{
		{Sheet: "49c", Row: 7, Column: 2, Reason: "branch kanwil does not match any regional row", Value: "Atlantis"},
	}

	tests := []struct {
		name     string
		err      error
		wantCode int
		contains []string
	}{
		{
			name:     "nil",
			err:      nil,
			wantCode: 0,
		},
		{
			name:     "file not found",
			err:      errors.FileError(errors.CodeFileNotFound, "laporan.xlsx", os.ErrNotExist),
			wantCode: 2,
			contains: []string{"Error: file not found: laporan.xlsx", "Context:", "file_path: laporan.xlsx", "Suggestion:", "File error help"},
		},
		{
			name:     "wrapped workbook error",
			err:      fmt.Errorf("parse: %w", errors.WorkbookError(errors.CodeNoSheets, "laporan.xlsx", nil)),
			wantCode: 3,
			contains: []string{"no sheet in laporan.xlsx", "reportparser inspect"},
		},
		{
			name:     "strict diagnostics",
			err:      errors.NewDiagnosticsError("laporan.xlsx", issues),
			wantCode: 3,
			contains: []string{"1 parse diagnostics in laporan.xlsx", "49c row 8 col 3", "Atlantis", "--strict"},
		},
		{
			name:     "configuration",
			err:      errors.ConfigurationError(errors.CodeInvalidConfig, "format", "xml", nil),
			wantCode: 4,
			contains: []string{"Configuration error help"},
		},
		{
			name:     "locked out",
			err:      errors.LockedOutError("teller", fmt.Stringer(durationString("14m0s"))),
			wantCode: 6,
			contains: []string{"too many failed attempts for teller", "try again in 14m0s", "Access error help"},
		},
		{
			name:     "generic",
			err:      fmt.Errorf(`unknown flag: --bogus`),
			wantCode: 1,
			contains: []string{"unknown flag: --bogus", "reportparser --help"},
		},
		{
			name:     "generic missing file",
			err:      os.ErrNotExist,
			wantCode: 2,
			contains: []string{"File not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			handler := NewCLIErrorHandler(&out)

			if code := handler.HandleError(tt.err); code != tt.wantCode {
				t.Errorf("expected exit code %d, got %d", tt.wantCode, code)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out.String(), want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, out.String())
				}
			}
		})
	}
}

type durationString string

func (d durationString) String() string { return string(d) }

func TestRootCommand(t *testing.T) {
	for _, name := range []string{"parse", "inspect", "history"} {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("expected subcommand %s", name)
		}
	}

	if rootCmd.PersistentFlags().Lookup("config") == nil || rootCmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("expected global config and verbose flags")
	}

	SetVersionInfo("1.2.0", "abc123", "2026-01-05")
	defer SetVersionInfo("dev", "unknown", "unknown")
	if rootCmd.Version != "1.2.0" {
		t.Errorf("expected version 1.2.0, got %s", rootCmd.Version)
	}
}
