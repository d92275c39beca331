package parsers

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"loan-report-dashboard/internal/models"
)

var fixedNow = time.Date(2026, time.March, 31, 9, 0, 0, 0, time.UTC)

func newTestParser(t *testing.T, mutate ...func(*Config)) *Parser {
	t.Helper()
	config := DefaultConfig()
	config.Clock = func() time.Time { return fixedNow }
	for _, m := range mutate {
		m(config)
	}
	p, err := NewParser(config)
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	return p
}

// nplRow builds a 15-column NPL row where every amount is amount and every
// ratio is ratio.
func nplRow(index interface{}, name, region string, amount, ratio float64) []interface{} {
	row := []interface{}{index, name, region}
	for i := 0; i < 6; i++ {
		row = append(row, amount, ratio)
	}
	return row
}

func nplHeader() [][]interface{} {
	return [][]interface{}{
		{"LAPORAN NPL KREDIT UMKM"},
		{"", "", "", "Posisi 26des'25", "", "", "", "", "", "Posisi 26jan'26"},
		{},
		{"No", "Kantor", "Kanwil", "KUMK", "%", "KUR", "%", "Total", "%"},
		{},
		{},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func assertValue(t *testing.T, e *models.Entity, field string, want float64) {
	t.Helper()
	if e == nil {
		t.Fatalf("entity is nil, wanted %s=%v", field, want)
	}
	if got := e.Value(field); !almostEqual(got, want) {
		t.Errorf("%s %s: expected %v, got %v", e.Name, field, want, got)
	}
}

func hasReason(stats *ParseStats, reason string) bool {
	for _, d := range stats.Diagnostics {
		if d.Reason == reason {
			return true
		}
	}
	return false
}

func reportJSONWithoutTimestamps(t *testing.T, r *models.Report) string {
	t.Helper()
	clone := *r
	clone.ParsedAt = time.Time{}
	clone.MonthInfo.ReferenceDate = time.Time{}
	data, err := json.Marshal(&clone)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return string(data)
}
