package parsers

import (
	"strconv"
	"strings"
)

// CellKind distinguishes the three cell shapes a spreadsheet can hand us.
type CellKind int

const (
	CellBlank CellKind = iota
	CellNumber
	CellText
)

// Cell is a single spreadsheet value.
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
}

// Blank returns an empty cell.
func Blank() Cell { return Cell{} }

// Number returns a numeric cell.
func Number(v float64) Cell { return Cell{Kind: CellNumber, Number: v} }

// Text returns a string cell.
func Text(s string) Cell { return Cell{Kind: CellText, Text: s} }

// IsBlank reports whether the cell is empty or whitespace-only text.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case CellBlank:
		return true
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	default:
		return false
	}
}

// String renders the cell the way a spreadsheet displays an unformatted
// value: integral numbers without a fractional part.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// Row is one spreadsheet row. Rows may be ragged.
type Row []Cell

// At returns the cell at column i, or a blank cell when the row is shorter.
func (r Row) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return Blank()
	}
	return r[i]
}

// Label returns the trimmed display text of column i.
func (r Row) Label(i int) string {
	return strings.TrimSpace(r.At(i).String())
}

// Sheet is a named grid of rows.
type Sheet struct {
	Name string
	Rows []Row
}

// Row returns row i, or nil when out of range.
func (s *Sheet) Row(i int) Row {
	if i < 0 || i >= len(s.Rows) {
		return nil
	}
	return s.Rows[i]
}

// NewSheet builds a sheet from loosely typed values. Supported element types
// are nil, string, float64, int and Cell; anything else becomes blank.
func NewSheet(name string, rows [][]interface{}) *Sheet {
	sheet := &Sheet{Name: name, Rows: make([]Row, len(rows))}
	for i, values := range rows {
		row := make(Row, len(values))
		for j, v := range values {
			switch x := v.(type) {
			case Cell:
				row[j] = x
			case string:
				if x == "" {
					row[j] = Blank()
				} else {
					row[j] = Text(x)
				}
			case float64:
				row[j] = Number(x)
			case int:
				row[j] = Number(float64(x))
			default:
				row[j] = Blank()
			}
		}
		sheet.Rows[i] = row
	}
	return sheet
}

// Workbook is an ordered list of sheets.
type Workbook struct {
	Name   string
	Sheets []*Sheet
}

// SheetNames lists sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet returns the sheet with the given name.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}
