package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ReportType identifies one of the supported report layouts.
type ReportType string

const (
	ReportNPL               ReportType = "npl"
	ReportKOL2              ReportType = "kol2"
	ReportDailyRealization  ReportType = "realisasi"
	ReportCreditRealization ReportType = "realisasi_kredit"
	ReportCreditPosition    ReportType = "posisi_kredit"
)

// AllReportTypes lists report types in month-info precedence order.
var AllReportTypes = []ReportType{
	ReportNPL,
	ReportKOL2,
	ReportDailyRealization,
	ReportCreditRealization,
	ReportCreditPosition,
}

// String returns the string representation of ReportType
func (t ReportType) String() string {
	return string(t)
}

// IsValid checks if the report type is known
func (t ReportType) IsValid() bool {
	for _, known := range AllReportTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label is the human-readable name used in upload summaries.
func (t ReportType) Label() string {
	switch t {
	case ReportNPL:
		return "NPL"
	case ReportKOL2:
		return "KOL2"
	case ReportDailyRealization:
		return "Realisasi"
	case ReportCreditRealization:
		return "Realisasi Kredit"
	case ReportCreditPosition:
		return "Posisi Kredit"
	default:
		return string(t)
	}
}

// ParseReportType parses a report type name.
func ParseReportType(s string) (ReportType, error) {
	t := ReportType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown report type: %s", s)
	}
	return t, nil
}

// Entity is one row of the national / kanwil / cabang hierarchy. Values holds
// the report-specific fields keyed by their output name; absent fields read 0.
type Entity struct {
	Name   string
	Kanwil string
	Values map[string]float64
}

// NewEntity creates an entity with an empty value set.
func NewEntity(name, kanwil string) *Entity {
	return &Entity{Name: name, Kanwil: kanwil, Values: make(map[string]float64)}
}

// Value returns the named field, 0 when absent.
func (e *Entity) Value(field string) float64 {
	return e.Values[field]
}

// Fields returns the field names in sorted order.
func (e *Entity) Fields() []string {
	names := make([]string, 0, len(e.Values))
	for name := range e.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON flattens the value map next to name and kanwil.
func (e Entity) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(e.Values)+2)
	for k, v := range e.Values {
		flat[k] = v
	}
	if e.Name != "" {
		flat["name"] = e.Name
	}
	if e.Kanwil != "" {
		flat["kanwil"] = e.Kanwil
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reverses MarshalJSON.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Values = make(map[string]float64, len(raw))
	for k, v := range raw {
		switch k {
		case "name":
			if err := json.Unmarshal(v, &e.Name); err != nil {
				return fmt.Errorf("invalid name: %w", err)
			}
		case "kanwil":
			if err := json.Unmarshal(v, &e.Kanwil); err != nil {
				return fmt.Errorf("invalid kanwil: %w", err)
			}
		default:
			var f float64
			if err := json.Unmarshal(v, &f); err != nil {
				return fmt.Errorf("invalid value for %s: %w", k, err)
			}
			e.Values[k] = f
		}
	}
	return nil
}

// DailyRecord is one day row of the daily realization report.
type DailyRecord struct {
	Date        int     `json:"date"`
	Kur         float64 `json:"kur"`
	Kumk        float64 `json:"kumk"`
	SmeSwadana  float64 `json:"smeSwadana"`
	KumkLainnya float64 `json:"kumkLainnya"`
	KppSupply   float64 `json:"kppSupply"`
	KppDemand   float64 `json:"kppDemand"`
	Total       float64 `json:"total"`

	KurPrevious         float64 `json:"kur_previous"`
	KumkPrevious        float64 `json:"kumk_previous"`
	SmeSwadanaPrevious  float64 `json:"smeSwadana_previous"`
	KumkLainnyaPrevious float64 `json:"kumkLainnya_previous"`
	KppSupplyPrevious   float64 `json:"kppSupply_previous"`
	KppDemandPrevious   float64 `json:"kppDemand_previous"`
	TotalPrevious       float64 `json:"total_previous"`
}

// MonthlyTotals carries the month-to-date totals of the last day row.
type MonthlyTotals struct {
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
}

// Report is the normalized output of one parsed sheet.
type Report struct {
	Type          ReportType     `json:"type"`
	TotalNasional *Entity        `json:"totalNasional"`
	KanwilData    []Entity       `json:"kanwilData"`
	CabangData    []Entity       `json:"cabangData"`
	DailyData     []DailyRecord  `json:"dailyData,omitempty"`
	MonthlyTotals *MonthlyTotals `json:"monthlyTotals,omitempty"`
	MonthInfo     MonthInfo      `json:"monthInfo"`
	ParsedAt      time.Time      `json:"parsedAt"`
}

// NewReport creates an empty report of the given type.
func NewReport(t ReportType) *Report {
	return &Report{
		Type:       t,
		KanwilData: []Entity{},
		CabangData: []Entity{},
	}
}

// FindKanwil returns the regional subtotal with the given name.
func (r *Report) FindKanwil(name string) (*Entity, bool) {
	for i := range r.KanwilData {
		if r.KanwilData[i].Name == name {
			return &r.KanwilData[i], true
		}
	}
	return nil, false
}

// CabangOf returns the branch rows belonging to a kanwil.
func (r *Report) CabangOf(kanwil string) []Entity {
	var out []Entity
	for _, c := range r.CabangData {
		if c.Kanwil == kanwil {
			out = append(out, c)
		}
	}
	return out
}

// Stats counts rows per tier, as reported in upload summaries.
type Stats struct {
	Kanwil int `json:"kanwil"`
	Cabang int `json:"cabang"`
	Days   int `json:"days,omitempty"`
}

// Stats returns row counts for the report.
func (r *Report) Stats() Stats {
	return Stats{Kanwil: len(r.KanwilData), Cabang: len(r.CabangData), Days: len(r.DailyData)}
}
