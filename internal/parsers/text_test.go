package parsers

import (
	"testing"
	"time"

	"loan-report-dashboard/internal/models"
)

var nplTextLines = []string{
	"LAPORAN NPL UMKM POSISI 26des'25 DAN 26jan'26",
	"No Kantor Cabang KUMK % KUR % Total %",
	"1 KC Jakarta Pusat Jakarta I 100 5,00 200 3,50 300 4,00 110 5,10 210 3,60 320 4,10",
	"Total Kanwil Jakarta I 100 5,00 200 3,50 300 4,00 110 5,10 210 3,60 320 4,10",
	"2 KC Medan Sumatera 1 50 2,00 60 2,50 110 2,30 55 2,10 65 2,60 120 2,40",
	"3 KC Binjai 5 1,00 6 1,50",
	"Total  Kanwil  Sumatera 1 50 2,00 60 2,50 110 2,30 55 2,10 65 2,60 120 2,40",
	"",
	"Halaman 1 dari 1",
}

func TestParseNPLText(t *testing.T) {
	p := newTestParser(t)
	report, stats := p.ParseNPLText(models.ReportNPL, "npl.pdf", nplTextLines)

	if len(report.KanwilData) != 2 {
		t.Fatalf("expected 2 kanwil rows, got %d", len(report.KanwilData))
	}
	sumatera, ok := report.FindKanwil("Sumatera 1")
	if !ok {
		t.Fatal("expected Sumatera 1 subtotal")
	}
	assertValue(t, sumatera, "kumk_previous", 50)
	assertValue(t, sumatera, "kumkPercent_previous", 2)
	assertValue(t, sumatera, "totalPercent_current", 2.4)

	if len(report.CabangData) != 2 {
		t.Fatalf("expected 2 cabang rows, got %d: %+v", len(report.CabangData), report.CabangData)
	}
	medan := report.CabangData[1]
	if medan.Name != "KC Medan" || medan.Kanwil != "Sumatera 1" {
		t.Errorf("unexpected branch identity %+v", medan)
	}
	assertValue(t, &medan, "kumk_previous", 50)

	pusat := report.CabangData[0]
	if pusat.Name != "KC Jakarta Pusat" || pusat.Kanwil != "Jakarta I" {
		t.Errorf("unexpected branch identity %+v", pusat)
	}

	if !stats.Synthesized {
		t.Error("expected a synthesized national total")
	}
	assertValue(t, report.TotalNasional, "total_current", 440)
	assertValue(t, report.TotalNasional, "kumkPercent_previous", 3.5)

	if !hasReason(stats, ReasonShortTextLine) {
		t.Error("expected a short-line diagnostic for KC Binjai")
	}
	if report.MonthInfo.Current.FullLabel != "Januari 2026" {
		t.Errorf("unexpected current month %+v", report.MonthInfo.Current)
	}
	if report.MonthInfo.Day != 26 {
		t.Errorf("expected report day 26, got %d", report.MonthInfo.Day)
	}
}

func TestParseNPLTextNationalLine(t *testing.T) {
	lines := append([]string{}, nplTextLines...)
	lines = append(lines, "TOTAL NASIONAL 1.000 4,00 2.000 3,00 3.000 3,50 1.100 4,10 2.100 3,10 3.200 3,60")

	p := newTestParser(t)
	report, stats := p.ParseNPLText(models.ReportKOL2, "kol2.pdf", lines)

	if stats.Synthesized {
		t.Error("did not expect a synthesized national total")
	}
	if report.Type != models.ReportKOL2 {
		t.Errorf("expected kol2, got %s", report.Type)
	}
	assertValue(t, report.TotalNasional, "total_current", 3200)
	assertValue(t, report.TotalNasional, "kumk_previous", 1000)
}

func TestSplitNameAndNumbers(t *testing.T) {
	name, rest := splitNameAndNumbers("KC Jakarta Pusat 100 (5,00) 200")
	if name != "KC Jakarta Pusat" || rest != "100 (5,00) 200" {
		t.Errorf("unexpected split (%q, %q)", name, rest)
	}
}

func TestParseNPLTextUnknownKanwilLine(t *testing.T) {
	lines := append([]string{}, nplTextLines...)
	lines = append(lines, "Total Kanwil Atlantis 10 1,00 20 2,00 30 3,00 11 1,10 21 2,10 31 3,10")

	p := newTestParser(t)
	report, stats := p.ParseNPLText(models.ReportNPL, "npl.pdf", lines)

	if len(report.KanwilData) != 2 {
		t.Errorf("expected the unknown region to be skipped, got %d kanwil rows", len(report.KanwilData))
	}
	found := false
	for _, d := range stats.Diagnostics {
		if d.Reason == ReasonUnknownTextKanwil && d.Value == "Total Kanwil Atlantis 10 1,00 20 2,00 30 3,00 11 1,10 21 2,10 31 3,10" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an unknown kanwil diagnostic, got %v", stats.Diagnostics)
	}
}

var dailyTextLines = []string{
	"LAPORAN REALISASI HARIAN 26des'25 26jan'26",
	"Tgl KUR KUMK SME Lainnya Total KUR KUMK SME Lainnya Supply Demand Total",
	"1 10 20 30 40 100 11 21 31 41 5 6 115",
	"2 1 2 3 4 10 12 22 32 42 108 13 23 33 43 7 8 127",
	"3 5 6",
	"TOTAL 22 42 62 82 208 24 44 64 84 12 14 242",
}

func TestParseDailyText(t *testing.T) {
	p := newTestParser(t)
	report, stats := p.ParseDailyText("realisasi.pdf", dailyTextLines)

	if report.Type != models.ReportDailyRealization {
		t.Errorf("expected realisasi, got %s", report.Type)
	}
	if len(report.DailyData) != 2 {
		t.Fatalf("expected 2 day records, got %d: %+v", len(report.DailyData), report.DailyData)
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"day 1 kur", report.DailyData[0].Kur, 11},
		{"day 1 kppSupply", report.DailyData[0].KppSupply, 5},
		{"day 1 kppDemand", report.DailyData[0].KppDemand, 6},
		{"day 1 total", report.DailyData[0].Total, 115},
		{"day 1 kur previous", report.DailyData[0].KurPrevious, 10},
		{"day 1 total previous", report.DailyData[0].TotalPrevious, 100},
		{"day 1 kpp previous", report.DailyData[0].KppSupplyPrevious, 0},
		{"day 2 kumk", report.DailyData[1].Kumk, 23},
		{"day 2 kur previous skips older months", report.DailyData[1].KurPrevious, 12},
		{"day 2 total previous", report.DailyData[1].TotalPrevious, 108},
		{"monthly current", report.MonthlyTotals.Current, 127},
		{"monthly previous", report.MonthlyTotals.Previous, 108},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !almostEqual(tt.got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, tt.got)
			}
		})
	}

	if report.DailyData[1].Date != 2 {
		t.Errorf("expected date 2, got %d", report.DailyData[1].Date)
	}
	if report.MonthInfo.Day != 2 || report.MonthInfo.Current.FullLabel != "Januari 2026" {
		t.Errorf("unexpected month info %+v", report.MonthInfo)
	}
	if !hasReason(stats, ReasonShortTextLine) {
		t.Error("expected a short-line diagnostic for day 3")
	}
}

func TestParseDailyTextBeforeCutover(t *testing.T) {
	p := newTestParser(t, func(c *Config) { c.CutoverYear, c.CutoverMonth = 2026, time.February })
	report, _ := p.ParseDailyText("realisasi.pdf", []string{
		"REALISASI 26des'25 26jan'26",
		"1 10 20 30 40 100 11 21 31 41 103",
	})

	if len(report.DailyData) != 1 {
		t.Fatalf("expected 1 day record, got %d", len(report.DailyData))
	}
	day := report.DailyData[0]
	if day.KppSupply != 0 || day.KppDemand != 0 {
		t.Errorf("expected no KPP values before the cutover, got %+v", day)
	}
	if day.Total != 103 || day.KumkLainnya != 41 || day.TotalPrevious != 100 {
		t.Errorf("unexpected legacy block values %+v", day)
	}
}
