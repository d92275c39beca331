package sources

import (
	"os"
	"path/filepath"
	"testing"

	"loan-report-dashboard/internal/parsers"
	"loan-report-dashboard/pkg/errors"
)

type fakeXLSRow struct {
	first int
	cols  []string
}

func (r fakeXLSRow) FirstCol() int { return r.first }
func (r fakeXLSRow) LastCol() int  { return len(r.cols) }
func (r fakeXLSRow) Col(i int) string {
	if i < r.first || i >= len(r.cols) {
		return ""
	}
	return r.cols[i]
}

func TestConvertXLSRow(t *testing.T) {
	row := convertXLSRow(fakeXLSRow{first: 1, cols: []string{"ignored", " Jakarta I ", "1500", "1.500"}})
	if len(row) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(row))
	}

	tests := []struct {
		index int
		kind  parsers.CellKind
	}{
		{0, parsers.CellBlank},
		{1, parsers.CellText},
		{2, parsers.CellNumber},
		{3, parsers.CellNumber},
	}
	for _, tt := range tests {
		if row[tt.index].Kind != tt.kind {
			t.Errorf("cell %d: expected kind %v, got %v", tt.index, tt.kind, row[tt.index].Kind)
		}
	}
	if row[1].Text != "Jakarta I" {
		t.Errorf("expected trimmed text, got %q", row[1].Text)
	}
	if row[2].Number != 1500 {
		t.Errorf("expected 1500, got %v", row[2].Number)
	}

	if empty := convertXLSRow(fakeXLSRow{}); len(empty) != 0 {
		t.Errorf("expected empty row, got %d cells", len(empty))
	}
}

func TestOpenLegacyWorkbookErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "rusak.xls")
	if err := os.WriteFile(garbage, []byte("not an ole2 container"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		code errors.ErrorCode
	}{
		{"missing file", filepath.Join(dir, "tidak-ada.xls"), errors.CodeFileNotFound},
		{"corrupt workbook", garbage, errors.CodeWorkbookOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenLegacyWorkbook(tt.path)
			re, ok := errors.AsReportError(err)
			if !ok {
				t.Fatalf("expected a report error, got %v", err)
			}
			if re.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, re.Code)
			}
		})
	}
}

func TestLoadWorkbookRejectsPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "npl.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadWorkbook(path)
	re, ok := errors.AsReportError(err)
	if !ok || re.Code != errors.CodeUnsupportedFormat {
		t.Errorf("expected unsupported format, got %v", err)
	}
}
