package parsers

import (
	"context"

	"golang.org/x/sync/errgroup"

	"loan-report-dashboard/internal/models"
	"loan-report-dashboard/pkg/logger"
)

// WorkbookResult is the outcome of parsing every routed sheet of a workbook.
type WorkbookResult struct {
	Reports       map[models.ReportType]*models.Report
	Stats         map[models.ReportType]*ParseStats
	SheetMap      map[models.ReportType]string
	ParsedSheets  []string
	MissingSheets []string
	MonthInfo     *models.MonthInfo
}

// Diagnostics counts diagnostics over all sheets.
func (r *WorkbookResult) Diagnostics() int {
	n := 0
	for _, s := range r.Stats {
		n += len(s.Diagnostics)
	}
	return n
}

// RouteSheets maps report types to sheet names. For each sheet the first
// matching pattern decides its type; when several sheets route to the same
// type the last one wins.
func (p *Parser) RouteSheets(names []string) map[models.ReportType]string {
	routed := make(map[models.ReportType]string)
	for _, name := range names {
		if t, ok := p.RouteSheet(name); ok {
			routed[t] = name
		}
	}
	return routed
}

// RouteSheet returns the report type a sheet name routes to.
func (p *Parser) RouteSheet(name string) (models.ReportType, bool) {
	for _, cp := range p.patterns {
		if cp.re.MatchString(name) {
			return cp.reportType, true
		}
	}
	return "", false
}

type sheetJob struct {
	reportType models.ReportType
	sheet      *Sheet
	report     *models.Report
	stats      *ParseStats
}

// ParseWorkbook parses every routed sheet concurrently. Each goroutine owns
// its sheet and its result slot, so no locking is needed.
func (p *Parser) ParseWorkbook(ctx context.Context, wb *Workbook) (*WorkbookResult, error) {
	sheetMap := p.RouteSheets(wb.SheetNames())

	var jobs []*sheetJob
	for _, t := range models.AllReportTypes {
		name, ok := sheetMap[t]
		if !ok {
			continue
		}
		sheet, _ := wb.Sheet(name)
		jobs = append(jobs, &sheetJob{reportType: t, sheet: sheet})
	}

	var progress *logger.ProgressTracker
	if p.config.ReportProgress {
		progress = logger.NewProgressTracker(p.logger, "parse_workbook", len(jobs))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, stats, err := p.Parse(job.reportType, job.sheet)
			if progress != nil {
				progress.Step(job.sheet.Name, err)
			}
			if err != nil {
				return err
			}
			job.report, job.stats = report, stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if progress != nil {
		progress.Complete()
	}

	result := &WorkbookResult{
		Reports:  make(map[models.ReportType]*models.Report, len(jobs)),
		Stats:    make(map[models.ReportType]*ParseStats, len(jobs)),
		SheetMap: sheetMap,
	}
	for _, job := range jobs {
		result.Reports[job.reportType] = job.report
		result.Stats[job.reportType] = job.stats
	}
	result.summarize()

	p.logger.WithFields(logger.Fields{
		"workbook":    wb.Name,
		"parsed":      result.ParsedSheets,
		"missing":     result.MissingSheets,
		"diagnostics": result.Diagnostics(),
	}).Info("Parsed workbook")

	return result, nil
}

// SingleResult wraps one report parsed outside a workbook, such as a PDF
// export, so it can be rendered and stored like a workbook result.
func SingleResult(t models.ReportType, source string, report *models.Report, stats *ParseStats) *WorkbookResult {
	result := &WorkbookResult{
		Reports:  map[models.ReportType]*models.Report{t: report},
		Stats:    map[models.ReportType]*ParseStats{t: stats},
		SheetMap: map[models.ReportType]string{t: source},
	}
	result.summarize()
	return result
}

// summarize fills the parsed and missing labels and picks the month info of
// the first available report in precedence order.
func (r *WorkbookResult) summarize() {
	r.ParsedSheets = []string{}
	r.MissingSheets = []string{}
	r.MonthInfo = nil

	for _, t := range models.AllReportTypes {
		report, ok := r.Reports[t]
		if !ok {
			r.MissingSheets = append(r.MissingSheets, t.Label())
			continue
		}
		r.ParsedSheets = append(r.ParsedSheets, t.Label())
		if r.MonthInfo == nil {
			info := report.MonthInfo
			r.MonthInfo = &info
		}
	}
}
