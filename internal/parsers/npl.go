package parsers

import (
	"time"

	"loan-report-dashboard/internal/models"
	"loan-report-dashboard/pkg/errors"
	"loan-report-dashboard/pkg/logger"
)

// Parser parses report sheets. It holds only read-only state and may be
// shared between goroutines.
type Parser struct {
	config   *Config
	regions  *RegionTable
	patterns []compiledPattern
	now      func() time.Time
	logger   logger.Logger
}

// NewParser creates a Parser. A nil config means DefaultConfig().
func NewParser(config *Config) (*Parser, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "parser", err.Error(), err)
	}

	regions := config.Regions
	if regions == nil {
		regions = DefaultRegionTable()
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}

	log := logger.GetGlobalLogger().WithComponent("parser")
	log.WithFields(logger.Fields{
		"header_scan_rows": config.HeaderScanRows,
		"cutover":          time.Date(config.CutoverYear, config.CutoverMonth, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
		"kanwil_count":     len(regions.Canonical()),
	}).Debug("Created parser")

	return &Parser{
		config:   config,
		regions:  regions,
		patterns: config.compilePatterns(),
		now:      now,
		logger:   log,
	}, nil
}

// Regions returns the alias table used by the parser.
func (p *Parser) Regions() *RegionTable {
	return p.regions
}

// ParseNPL parses an NPL sheet (49c).
func (p *Parser) ParseNPL(sheet *Sheet) (*models.Report, *ParseStats) {
	return p.parseEntitySheet(sheet, NPLShape)
}

// ParseKOL2 parses a KOL2 sheet (49b). The layout is identical to NPL.
func (p *Parser) ParseKOL2(sheet *Sheet) (*models.Report, *ParseStats) {
	return p.parseEntitySheet(sheet, KOL2Shape)
}

// Parse dispatches on report type.
func (p *Parser) Parse(t models.ReportType, sheet *Sheet) (*models.Report, *ParseStats, error) {
	if t == models.ReportDailyRealization {
		report, stats := p.ParseDailyRealization(sheet)
		return report, stats, nil
	}

	shape, ok := ShapeFor(t)
	if !ok {
		return nil, nil, errors.New(errors.CategoryParse, errors.CodeUnknownReportType,
			"unknown report type: "+string(t))
	}
	report, stats := p.parseEntitySheet(sheet, shape)
	return report, stats, nil
}

type pendingBranch struct {
	row    int
	kanwil string
}

// parseEntitySheet is the generic national/kanwil/cabang reader driven by a
// shape descriptor.
func (p *Parser) parseEntitySheet(sheet *Sheet, shape *Shape) (*models.Report, *ParseStats) {
	stats := NewParseStats(sheet.Name)
	report := models.NewReport(shape.Type)
	report.MonthInfo = p.headerMonthInfo(sheet, stats)

	classifier := NewClassifier(shape, p.regions)
	var national *models.Entity
	var branches []pendingBranch

	for i := shape.DataStartRow; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		stats.RowsScanned++

		cls := classifier.Classify(row)
		switch cls.Class {
		case RowNational:
			if national != nil {
				continue
			}
			national, _ = shape.extractEntity(row, i, cls, stats)
			stats.National++
		case RowRegional:
			if e, ok := shape.extractEntity(row, i, cls, stats); ok {
				report.KanwilData = append(report.KanwilData, *e)
				stats.Regional++
			}
		case RowBranch:
			if e, ok := shape.extractEntity(row, i, cls, stats); ok {
				report.CabangData = append(report.CabangData, *e)
				branches = append(branches, pendingBranch{row: i, kanwil: e.Kanwil})
				stats.Branches++
			}
		}
	}

	if national == nil {
		national = AggregateNational(shape.Fields, report.KanwilData)
		stats.Synthesized = national != nil
	}
	report.TotalNasional = national

	p.checkBranchKanwil(report, branches, shape.RegionColumn, stats)
	report.ParsedAt = p.now()

	p.logger.WithFields(logger.Fields{
		"sheet":       sheet.Name,
		"type":        shape.Type,
		"kanwil":      stats.Regional,
		"cabang":      stats.Branches,
		"synthesized": stats.Synthesized,
		"diagnostics": len(stats.Diagnostics),
	}).Debug("Parsed sheet")

	return report, stats
}

// headerMonthInfo reads the two compared months from header tokens, falling
// back to the clock.
func (p *Parser) headerMonthInfo(sheet *Sheet, stats *ParseStats) models.MonthInfo {
	now := p.now()
	current, previous, ok := ScanHeaderPeriods(sheet, p.config.HeaderScanRows)
	if !ok {
		current, previous = FallbackPeriods(now)
		stats.AddDiagnostic(-1, -1, "", ReasonPeriodFallback)
	}
	return newMonthInfo(current, previous, now)
}

// newMonthInfo takes the report day from the current header token, or from
// the clock when the header carries no day.
func newMonthInfo(current, previous models.Period, now time.Time) models.MonthInfo {
	day := current.Day
	if day <= 0 {
		day = now.Day()
	}
	return models.MonthInfo{
		Current:       &current,
		Previous:      &previous,
		ReferenceDate: now,
		Day:           day,
	}
}

// checkBranchKanwil records branches whose kanwil has no regional row in the
// same sheet. Sheets without any regional row are not checked.
func (p *Parser) checkBranchKanwil(report *models.Report, branches []pendingBranch, column int, stats *ParseStats) {
	if len(report.KanwilData) == 0 {
		return
	}
	known := make(map[string]bool, len(report.KanwilData))
	for _, k := range report.KanwilData {
		known[k.Name] = true
	}
	for _, b := range branches {
		if !known[b.kanwil] {
			stats.AddDiagnostic(b.row, column, b.kanwil, ReasonUnresolvedKanwil)
		}
	}
}
