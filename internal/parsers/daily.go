package parsers

import (
	"loan-report-dashboard/internal/models"
	"loan-report-dashboard/pkg/logger"
)

// ParseDailyRealization parses the day-by-day realization sheet (22a). Each
// month in the header row owns a block of columns; the last two blocks are
// read as previous and current month.
func (p *Parser) ParseDailyRealization(sheet *Sheet) (*models.Report, *ParseStats) {
	shape := DefaultDailyShape
	stats := NewParseStats(sheet.Name)
	report := models.NewReport(models.ReportDailyRealization)
	now := p.now()

	var current, previous *MonthBlock
	blocks := ScanMonthBlocks(sheet.Row(shape.HeaderRow), shape.MinSerial, shape.MaxSerial)
	switch n := len(blocks); {
	case n >= 2:
		previous, current = &blocks[n-2], &blocks[n-1]
	case n == 1:
		current = &blocks[0]
	}

	info := models.MonthInfo{ReferenceDate: now}
	if current == nil {
		cur, prev := FallbackPeriods(now)
		info.Current, info.Previous = &cur, &prev
		stats.AddDiagnostic(shape.HeaderRow, -1, "", ReasonNoMonthBlocks)
	} else {
		cur := current.Period
		info.Current = &cur
		if previous != nil {
			prev := previous.Period
			info.Previous = &prev
		}
	}

	for i := shape.DataStartRow; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		stats.RowsScanned++

		first := row.At(0)
		if first.Kind != CellNumber || first.Number < 1 || first.Number > 31 {
			continue
		}

		rec := models.DailyRecord{Date: int(first.Number)}
		if current != nil {
			p.readDailyBlock(row, i, *current, false, &rec, stats)
		}
		if previous != nil {
			p.readDailyBlock(row, i, *previous, true, &rec, stats)
		}
		report.DailyData = append(report.DailyData, rec)
	}

	setMonthlyTotals(report)
	stats.Days = len(report.DailyData)
	info.Day = stats.Days
	report.MonthInfo = info
	report.ParsedAt = now

	p.logger.WithFields(logger.Fields{
		"sheet":       sheet.Name,
		"blocks":      len(blocks),
		"days":        stats.Days,
		"diagnostics": len(stats.Diagnostics),
	}).Debug("Parsed daily realization sheet")

	return report, stats
}

// readDailyBlock reads one month block of a day row. Blocks from before the
// cutover month have no KPP columns.
func (p *Parser) readDailyBlock(row Row, rowIndex int, block MonthBlock, previous bool, rec *models.DailyRecord, stats *ParseStats) {
	for j, name := range p.dailyFields(block.Period) {
		col := block.StartCol + j
		cell := row.At(col)
		v, ok := parseCell(cell)
		if !ok {
			stats.AddDiagnostic(rowIndex, col, cell.String(), ReasonUnparseableNumber)
		}
		setDailyField(rec, name, previous, v)
	}
}

// dailyFields returns the block layout of a month.
func (p *Parser) dailyFields(period models.Period) []string {
	if p.config.cutoverReached(period) {
		return DefaultDailyShape.Fields
	}
	return DefaultDailyShape.LegacyFields
}

// setMonthlyTotals copies the last day's totals into the monthly totals.
func setMonthlyTotals(report *models.Report) {
	if n := len(report.DailyData); n > 0 {
		last := report.DailyData[n-1]
		report.MonthlyTotals = &models.MonthlyTotals{
			Previous: last.TotalPrevious,
			Current:  last.Total,
		}
	}
}

func setDailyField(rec *models.DailyRecord, name string, previous bool, v float64) {
	if previous {
		switch name {
		case "kur":
			rec.KurPrevious = v
		case "kumk":
			rec.KumkPrevious = v
		case "smeSwadana":
			rec.SmeSwadanaPrevious = v
		case "kumkLainnya":
			rec.KumkLainnyaPrevious = v
		case "kppSupply":
			rec.KppSupplyPrevious = v
		case "kppDemand":
			rec.KppDemandPrevious = v
		case "total":
			rec.TotalPrevious = v
		}
		return
	}

	switch name {
	case "kur":
		rec.Kur = v
	case "kumk":
		rec.Kumk = v
	case "smeSwadana":
		rec.SmeSwadana = v
	case "kumkLainnya":
		rec.KumkLainnya = v
	case "kppSupply":
		rec.KppSupply = v
	case "kppDemand":
		rec.KppDemand = v
	case "total":
		rec.Total = v
	}
}
