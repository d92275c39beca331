package parsers

import (
	"fmt"

	"loan-report-dashboard/internal/models"
)

// FieldKind tells the extractor how to read a column.
type FieldKind int

const (
	// Amount is an additive value; national totals sum it.
	Amount FieldKind = iota
	// Percent is already in percent points; national totals average it.
	Percent
	// FractionPercent is stored as a fraction in the sheet (0.05) and is
	// emitted in percent points (5).
	FractionPercent
)

// IsPercent reports whether the aggregator averages this kind.
func (k FieldKind) IsPercent() bool {
	return k == Percent || k == FractionPercent
}

// FieldSpec binds an output field name to a column.
type FieldSpec struct {
	Name   string
	Offset int
	Kind   FieldKind
}

// Shape describes the layout of one entity report type.
type Shape struct {
	Type         models.ReportType
	DataStartRow int
	IndexColumn  int
	NameColumn   int
	RegionColumn int
	// LabelColumns are searched for "total nasional" / "total kanwil".
	LabelColumns []int
	// RegionalSections enables "Kantor Wilayah" section detection.
	RegionalSections   bool
	SectionNameColumns []int
	Fields             []FieldSpec
	// MinPopulated is the minimum number of non-blank field cells a branch
	// or regional row needs to be kept.
	MinPopulated int
}

// Field returns the descriptor of a named field.
func (s *Shape) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Validate checks that the descriptor is usable.
func (s *Shape) Validate() error {
	if !s.Type.IsValid() {
		return fmt.Errorf("unknown report type %q", s.Type)
	}
	if s.DataStartRow < 0 {
		return fmt.Errorf("data start row cannot be negative, got %d", s.DataStartRow)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("shape %s has no fields", s.Type)
	}
	if len(s.LabelColumns) == 0 {
		return fmt.Errorf("shape %s has no label columns", s.Type)
	}
	if s.MinPopulated < 0 || s.MinPopulated > len(s.Fields) {
		return fmt.Errorf("min populated must be between 0 and %d, got %d", len(s.Fields), s.MinPopulated)
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("shape %s has a field without a name", s.Type)
		}
		if seen[f.Name] {
			return fmt.Errorf("shape %s has duplicate field %s", s.Type, f.Name)
		}
		if f.Offset < 0 {
			return fmt.Errorf("field %s has negative offset", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// nplFields lays out one period of the NPL/KOL2 table: amount and ratio for
// KUMK, KUR and the total.
func nplFields(start int, period string) []FieldSpec {
	return []FieldSpec{
		{Name: "kumk_" + period, Offset: start, Kind: Amount},
		{Name: "kumkPercent_" + period, Offset: start + 1, Kind: FractionPercent},
		{Name: "kur_" + period, Offset: start + 2, Kind: Amount},
		{Name: "kurPercent_" + period, Offset: start + 3, Kind: FractionPercent},
		{Name: "total_" + period, Offset: start + 4, Kind: Amount},
		{Name: "totalPercent_" + period, Offset: start + 5, Kind: FractionPercent},
	}
}

func nplShape(t models.ReportType) *Shape {
	fields := append(nplFields(3, "previous"), nplFields(9, "current")...)
	fields = append(fields,
		FieldSpec{Name: "gap_kumk", Offset: 15, Kind: Amount},
		FieldSpec{Name: "gap_kur", Offset: 16, Kind: Amount},
		FieldSpec{Name: "gap_total", Offset: 17, Kind: Amount},
		FieldSpec{Name: "outstanding_kumk_previous", Offset: 18, Kind: Amount},
		FieldSpec{Name: "outstanding_kur_previous", Offset: 19, Kind: Amount},
		FieldSpec{Name: "outstanding_total_previous", Offset: 20, Kind: Amount},
		FieldSpec{Name: "outstanding_kumk_current", Offset: 21, Kind: Amount},
		FieldSpec{Name: "outstanding_kur_current", Offset: 22, Kind: Amount},
		FieldSpec{Name: "outstanding_total_current", Offset: 23, Kind: Amount},
	)

	return &Shape{
		Type:         t,
		DataStartRow: 6,
		IndexColumn:  0,
		NameColumn:   1,
		RegionColumn: 2,
		LabelColumns: []int{0, 1, 2},
		Fields:       fields,
		// One full period block. Stray numbers in heading rows stay below it.
		MinPopulated: 6,
	}
}

// realizationBlock is one 9-column category block of the credit realization
// report.
func realizationBlock(prefix string, start int, currentName string) []FieldSpec {
	return []FieldSpec{
		{Name: prefix + "_real_prev", Offset: start, Kind: Amount},
		{Name: prefix + "_komitmen", Offset: start + 1, Kind: Amount},
		{Name: prefix + "_rkap", Offset: start + 2, Kind: Amount},
		{Name: currentName, Offset: start + 3, Kind: Amount},
		{Name: prefix + "_pcp_komitmen", Offset: start + 4, Kind: FractionPercent},
		{Name: prefix + "_pcp_rkap", Offset: start + 5, Kind: FractionPercent},
		{Name: prefix + "_gap_prev", Offset: start + 6, Kind: Amount},
		{Name: prefix + "_gap_komitmen", Offset: start + 7, Kind: Amount},
		{Name: prefix + "_gap_rkap", Offset: start + 8, Kind: Amount},
	}
}

// Built-in shapes.
var (
	NPLShape  = nplShape(models.ReportNPL)
	KOL2Shape = nplShape(models.ReportKOL2)

	CreditRealizationShape = &Shape{
		Type:               models.ReportCreditRealization,
		DataStartRow:       5,
		IndexColumn:        0,
		NameColumn:         2,
		RegionColumn:       1,
		LabelColumns:       []int{0, 1, 2},
		RegionalSections:   true,
		SectionNameColumns: []int{1, 2},
		Fields: append(append(
			realizationBlock("kumk", 3, "kumk_real_current"),
			realizationBlock("kur", 12, "kur_total_current")...),
			realizationBlock("umkm", 21, "umkm_real_current")...),
		MinPopulated: 2,
	}

	CreditPositionShape = &Shape{
		Type:               models.ReportCreditPosition,
		DataStartRow:       5,
		IndexColumn:        0,
		NameColumn:         2,
		RegionColumn:       1,
		LabelColumns:       []int{0, 1, 2},
		RegionalSections:   true,
		SectionNameColumns: []int{1, 2},
		Fields: []FieldSpec{
			{Name: "posisi_jan", Offset: 3, Kind: Amount},
			{Name: "realisasi", Offset: 4, Kind: Amount},
			{Name: "runoff", Offset: 5, Kind: Amount},
			{Name: "posisi_current", Offset: 6, Kind: Amount},
			{Name: "gap_mtd", Offset: 7, Kind: Amount},
			{Name: "gap_yoy", Offset: 8, Kind: Amount},
		},
		MinPopulated: 2,
	}
)

// ShapeFor returns the built-in shape for an entity report type.
func ShapeFor(t models.ReportType) (*Shape, bool) {
	switch t {
	case models.ReportNPL:
		return NPLShape, true
	case models.ReportKOL2:
		return KOL2Shape, true
	case models.ReportCreditRealization:
		return CreditRealizationShape, true
	case models.ReportCreditPosition:
		return CreditPositionShape, true
	default:
		return nil, false
	}
}

// DailyShape describes the day-by-day realization report (sheet 22a).
type DailyShape struct {
	HeaderRow    int
	DataStartRow int
	MinSerial    float64
	MaxSerial    float64
	// LegacyFields is the block layout before the cutover month.
	LegacyFields []string
	// Fields is the block layout from the cutover month on.
	Fields []string
}

// DefaultDailyShape is the built-in daily realization layout.
var DefaultDailyShape = &DailyShape{
	HeaderRow:    2,
	DataStartRow: 4,
	MinSerial:    40000,
	MaxSerial:    60000,
	LegacyFields: []string{"kur", "kumk", "smeSwadana", "kumkLainnya", "total"},
	Fields:       []string{"kur", "kumk", "smeSwadana", "kumkLainnya", "kppSupply", "kppDemand", "total"},
}
