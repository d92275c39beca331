// Package parsers turns loosely structured loan-portfolio spreadsheets into
// normalized report records.
//
// The exports this package reads are built for people, not machines: merged
// header cells, subtotal rows interleaved with branch rows, numbers typed as
// text in either Indonesian (1.234,56) or English (1,234.56) notation, and
// months given only as "26jan'26" tokens in a header row. Parsing is therefore
// lenient. Malformed content never aborts a parse; it degrades to zero values,
// synthesized periods or dropped rows and is recorded as a Diagnostic.
//
// Layers, bottom up:
//   - number.go: the numeric tokenizer (ParseNumber, ParseNumbersFromLine)
//   - period.go: header date tokens and Excel date-serial month blocks
//   - regions.go, classifier.go: kanwil alias table and row classification
//   - shape.go, extractor.go: report layouts as column-offset descriptors
//   - aggregate.go: synthesized national totals
//   - npl.go, credit.go, daily.go, text.go: one entry point per report type
//   - workbook.go: sheet routing and concurrent multi-sheet parsing
//
// Example usage:
//
//	parser, err := NewParser(DefaultConfig())
//	report, stats := parser.ParseNPL(sheet)
//	result, err := parser.ParseWorkbook(ctx, workbook)
package parsers

import (
	"fmt"

	"loan-report-dashboard/pkg/errors"
)

// Diagnostic reasons.
const (
	ReasonUnparseableNumber = "unparseable number"
	ReasonRowDropped        = "row dropped: too few populated fields"
	ReasonUnresolvedKanwil  = "branch kanwil does not match any regional row"
	ReasonPeriodFallback    = "no header dates found, using current date"
	ReasonNoMonthBlocks     = "no date serials found in header row, using current date"
	ReasonShortTextLine     = "line has fewer numbers than expected"
	ReasonUnknownTextKanwil = "total kanwil line names no known region"
)

// Diagnostic records one recoverable problem. Row and Column are zero-based;
// -1 means the diagnostic does not refer to a single row or column.
type Diagnostic struct {
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("row %d, column %d (%q): %s", d.Row, d.Column, d.Value, d.Reason)
}

// ParseStats holds statistics about one sheet parse.
type ParseStats struct {
	Sheet       string       `json:"sheet"`
	RowsScanned int          `json:"rowsScanned"`
	National    int          `json:"national"`
	Regional    int          `json:"regional"`
	Branches    int          `json:"branches"`
	Days        int          `json:"days,omitempty"`
	Synthesized bool         `json:"synthesized"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// NewParseStats creates a new ParseStats instance
func NewParseStats(sheet string) *ParseStats {
	return &ParseStats{
		Sheet:       sheet,
		Diagnostics: make([]Diagnostic, 0),
	}
}

// AddDiagnostic appends a diagnostic.
func (ps *ParseStats) AddDiagnostic(row, column int, value, reason string) {
	ps.Diagnostics = append(ps.Diagnostics, Diagnostic{
		Row:    row,
		Column: column,
		Value:  value,
		Reason: reason,
	})
}

// HasDiagnostics returns true if the parse recorded any problem
func (ps *ParseStats) HasDiagnostics() bool {
	return len(ps.Diagnostics) > 0
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Sheet %s: scanned %d rows, %d national, %d kanwil, %d cabang, %d diagnostics",
		ps.Sheet, ps.RowsScanned, ps.National, ps.Regional, ps.Branches, len(ps.Diagnostics))
}

// Issues converts the diagnostics for error reporting.
func (ps *ParseStats) Issues() []errors.Issue {
	issues := make([]errors.Issue, len(ps.Diagnostics))
	for i, d := range ps.Diagnostics {
		issues[i] = errors.Issue{
			Sheet:  ps.Sheet,
			Row:    d.Row,
			Column: d.Column,
			Value:  d.Value,
			Reason: d.Reason,
		}
	}
	return issues
}

// GetSampleDiagnostics returns up to maxSamples diagnostics as strings.
func (ps *ParseStats) GetSampleDiagnostics(maxSamples int) []string {
	if len(ps.Diagnostics) == 0 {
		return nil
	}

	limit := len(ps.Diagnostics)
	if maxSamples > 0 && maxSamples < limit {
		limit = maxSamples
	}

	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, ps.Diagnostics[i].String())
	}
	return samples
}
