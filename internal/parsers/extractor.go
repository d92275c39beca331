package parsers

import (
	"loan-report-dashboard/internal/models"
)

// Extract reads every field of the shape from row. Unparseable cells are
// recorded on stats and read as 0.
func (s *Shape) Extract(row Row, rowIndex int, stats *ParseStats) map[string]float64 {
	values := make(map[string]float64, len(s.Fields))
	for _, f := range s.Fields {
		cell := row.At(f.Offset)
		v, ok := parseCell(cell)
		if !ok && stats != nil {
			stats.AddDiagnostic(rowIndex, f.Offset, cell.String(), ReasonUnparseableNumber)
		}
		if f.Kind == FractionPercent {
			v = scalePercent(v)
		}
		values[f.Name] = v
	}
	return values
}

// Populated counts the non-blank field cells of row.
func (s *Shape) Populated(row Row) int {
	n := 0
	for _, f := range s.Fields {
		if !row.At(f.Offset).IsBlank() {
			n++
		}
	}
	return n
}

// extractEntity applies the short-row rule and builds the entity. The
// national row is exempt from the rule.
func (s *Shape) extractEntity(row Row, rowIndex int, cls Classification, stats *ParseStats) (*models.Entity, bool) {
	if cls.Class != RowNational && s.Populated(row) < s.MinPopulated {
		stats.AddDiagnostic(rowIndex, -1, row.Label(s.NameColumn), ReasonRowDropped)
		return nil, false
	}

	e := models.NewEntity(cls.Name, cls.Kanwil)
	e.Values = s.Extract(row, rowIndex, stats)
	return e, true
}
