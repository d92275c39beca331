package parsers

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"loan-report-dashboard/internal/models"
	"loan-report-dashboard/pkg/logger"
)

// textFields is the column order of an NPL/KOL2 line in a PDF export. The
// ratios there are already printed in percent points.
var textFields = append(nplFields(0, "previous"), nplFields(6, "current")...)

var (
	branchLinePattern = regexp.MustCompile(`^(\d+)\s+(.+)$`)
	dayLinePattern    = regexp.MustCompile(`^(\d{1,2})\s+(.+)$`)
)

// ParseNPLText reads an NPL or KOL2 table from lines of extracted PDF text.
// Recognized lines are "Total Kanwil <name> ...", "TOTAL NASIONAL ..." and
// branch lines starting with an index number.
func (p *Parser) ParseNPLText(t models.ReportType, source string, lines []string) (*models.Report, *ParseStats) {
	stats := NewParseStats(source)
	report := models.NewReport(t)
	now := p.now()

	trimmed := trimLines(lines)
	report.MonthInfo = p.textMonthInfo(trimmed, now, stats)

	var national *models.Entity
	currentKanwil := ""

	for i, line := range trimmed {
		stats.RowsScanned++
		folded := foldName(line)

		switch {
		case strings.HasPrefix(folded, labelTotalKanwil):
			m, ok := p.regions.Match(line[len(labelTotalKanwil):])
			if !ok {
				stats.AddDiagnostic(i, -1, line, ReasonUnknownTextKanwil)
				continue
			}
			currentKanwil = m.Canonical
			if e, ok := textEntity(m.Rest, i, stats); ok {
				e.Name = m.Canonical
				report.KanwilData = append(report.KanwilData, *e)
				stats.Regional++
			}

		case strings.HasPrefix(folded, labelTotalNasional):
			if national != nil {
				continue
			}
			if e, ok := textEntity(line[len(labelTotalNasional):], i, stats); ok {
				national = e
				stats.National++
			}

		default:
			m := branchLinePattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			kanwil, body := currentKanwil, m[2]
			if rm, ok := p.regions.Match(body); ok {
				kanwil, body = rm.Canonical, rm.Rest
			}
			if kanwil == "" {
				continue
			}
			name, numbers := splitNameAndNumbers(body)
			if e, ok := textEntity(numbers, i, stats); ok {
				e.Name, e.Kanwil = name, kanwil
				report.CabangData = append(report.CabangData, *e)
				stats.Branches++
			}
		}
	}

	if national == nil {
		national = AggregateNational(textFields, report.KanwilData)
		stats.Synthesized = national != nil
	}
	report.TotalNasional = national
	report.ParsedAt = now

	p.logger.WithFields(logger.Fields{
		"source": source,
		"type":   t,
		"lines":  len(trimmed),
		"kanwil": stats.Regional,
		"cabang": stats.Branches,
	}).Debug("Parsed text report")

	return report, stats
}

// ParseDailyText reads the daily realization table from lines of extracted
// PDF text. A day line ends with the current month block; the block before it
// belongs to the previous month and any older numbers are ignored. Block
// layouts follow the KPP cutover like the sheet parser.
func (p *Parser) ParseDailyText(source string, lines []string) (*models.Report, *ParseStats) {
	stats := NewParseStats(source)
	report := models.NewReport(models.ReportDailyRealization)
	now := p.now()

	trimmed := trimLines(lines)
	info := p.textMonthInfo(trimmed, now, stats)
	currentFields := p.dailyFields(*info.Current)
	previousFields := p.dailyFields(*info.Previous)

	for i, line := range trimmed {
		stats.RowsScanned++

		m := dayLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		day, err := strconv.Atoi(m[1])
		if err != nil || day < 1 || day > 31 {
			continue
		}

		numbers := ParseNumbersFromLine(m[2])
		if len(numbers) < len(currentFields) {
			stats.AddDiagnostic(i, -1, m[2], ReasonShortTextLine)
			continue
		}

		rec := models.DailyRecord{Date: day}
		split := len(numbers) - len(currentFields)
		for j, name := range currentFields {
			setDailyField(&rec, name, false, numbers[split+j])
		}
		if split >= len(previousFields) {
			start := split - len(previousFields)
			for j, name := range previousFields {
				setDailyField(&rec, name, true, numbers[start+j])
			}
		}
		report.DailyData = append(report.DailyData, rec)
	}

	setMonthlyTotals(report)
	stats.Days = len(report.DailyData)
	info.Day = stats.Days
	report.MonthInfo = info
	report.ParsedAt = now

	p.logger.WithFields(logger.Fields{
		"source": source,
		"lines":  len(trimmed),
		"days":   stats.Days,
	}).Debug("Parsed daily text report")

	return report, stats
}

// trimLines collapses whitespace and drops empty lines.
func trimLines(lines []string) []string {
	var trimmed []string
	for _, l := range lines {
		if l = collapseSpaces(l); l != "" {
			trimmed = append(trimmed, l)
		}
	}
	return trimmed
}

// textMonthInfo scans the first header lines for period tokens, falling back
// to the clock.
func (p *Parser) textMonthInfo(lines []string, now time.Time, stats *ParseStats) models.MonthInfo {
	header := lines
	if len(header) > p.config.HeaderScanRows {
		header = header[:p.config.HeaderScanRows]
	}
	cur, prev := scanPeriods(header)
	if cur == nil || prev == nil {
		c, pr := FallbackPeriods(now)
		stats.AddDiagnostic(-1, -1, "", ReasonPeriodFallback)
		return newMonthInfo(c, pr, now)
	}
	return newMonthInfo(*cur, *prev, now)
}

// textEntity maps the first twelve numbers of text onto the NPL fields.
func textEntity(text string, lineIndex int, stats *ParseStats) (*models.Entity, bool) {
	numbers := ParseNumbersFromLine(text)
	if len(numbers) < len(textFields) {
		stats.AddDiagnostic(lineIndex, -1, strings.TrimSpace(text), ReasonShortTextLine)
		return nil, false
	}

	e := models.NewEntity("", "")
	for _, f := range textFields {
		e.Values[f.Name] = numbers[f.Offset]
	}
	return e, true
}

// splitNameAndNumbers separates the leading words of a branch line from the
// numeric columns that follow.
func splitNameAndNumbers(body string) (string, string) {
	fields := strings.Fields(body)
	for i, f := range fields {
		if startsNumeric(f) {
			return strings.Join(fields[:i], " "), strings.Join(fields[i:], " ")
		}
	}
	return strings.Join(fields, " "), ""
}

func startsNumeric(token string) bool {
	token = strings.TrimLeft(token, "(-")
	return token != "" && token[0] >= '0' && token[0] <= '9'
}
