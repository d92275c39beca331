package parsers

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"loan-report-dashboard/internal/models"
)

// monthIndex maps three-letter month keys to zero-based months. Indonesian
// abbreviations come first; English ones are accepted where they differ.
var monthIndex = map[string]int{
	"jan": 0,
	"feb": 1,
	"mar": 2,
	"apr": 3,
	"mei": 4, "may": 4,
	"jun": 5,
	"jul": 6,
	"agu": 7, "aug": 7, "ags": 7,
	"sep": 8,
	"okt": 9, "oct": 9,
	"nov": 10,
	"des": 11, "dec": 11,
}

var headerDatePattern = regexp.MustCompile(`(\d{1,2})\s*([a-z]{3})['’]?(\d{2,4})`)

const excelEpochOffset = 25569

// ParseHeaderDate finds the first "26jan'26" style token in text.
func ParseHeaderDate(text string) (models.Period, bool) {
	dates := headerDates(text)
	if len(dates) == 0 {
		return models.Period{}, false
	}
	return dates[0], true
}

// headerDates returns every recognizable date token in text, in order.
func headerDates(text string) []models.Period {
	var dates []models.Period
	for _, m := range headerDatePattern.FindAllStringSubmatch(strings.ToLower(text), -1) {
		month, ok := monthIndex[m[2]]
		if !ok {
			continue
		}

		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		dates = append(dates, models.NewPeriod(day, month, year))
	}
	return dates
}

// scanPeriods applies the header rule to a sequence of texts: the first date
// token is the previous period, the first later token with a different month
// is the current one.
func scanPeriods(texts []string) (current, previous *models.Period) {
	for _, text := range texts {
		for _, p := range headerDates(text) {
			if previous == nil {
				found := p
				previous = &found
				continue
			}
			if p.Month != previous.Month {
				found := p
				current = &found
				return current, previous
			}
		}
	}
	return nil, previous
}

// ScanHeaderPeriods looks for date tokens in the first maxRows rows.
func ScanHeaderPeriods(sheet *Sheet, maxRows int) (current, previous models.Period, found bool) {
	var texts []string
	for i := 0; i < maxRows && i < len(sheet.Rows); i++ {
		for _, cell := range sheet.Rows[i] {
			if cell.Kind == CellText {
				texts = append(texts, cell.Text)
			}
		}
	}

	cur, prev := scanPeriods(texts)
	if cur == nil || prev == nil {
		return models.Period{}, models.Period{}, false
	}
	return *cur, *prev, true
}

// FallbackPeriods synthesizes current = now and previous = the calendar
// month before, with the day clamped to that month's length.
func FallbackPeriods(now time.Time) (current, previous models.Period) {
	current = models.PeriodFromTime(now)

	year, month := now.Year(), now.Month()-1
	if month < time.January {
		month = time.December
		year--
	}
	day := now.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	previous = models.NewPeriod(day, int(month)-1, year)
	return current, previous
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SerialToDate converts an Excel date serial to a UTC date.
func SerialToDate(serial float64) time.Time {
	days := math.Floor(serial - excelEpochOffset)
	return time.Unix(int64(days)*86400, 0).UTC()
}

// MonthBlock is a run of columns in the daily report that belongs to one
// month, anchored at the header cell holding that month's date serial.
type MonthBlock struct {
	StartCol int
	Date     time.Time
	Period   models.Period
}

// ScanMonthBlocks finds date serials in (minSerial, maxSerial) in the header
// row. Later duplicates of a month already seen are ignored.
func ScanMonthBlocks(header Row, minSerial, maxSerial float64) []MonthBlock {
	var blocks []MonthBlock
	seen := make(map[int]bool)

	for col := 1; col < len(header); col++ {
		cell := header[col]
		if cell.Kind != CellNumber || cell.Number <= minSerial || cell.Number >= maxSerial {
			continue
		}

		date := SerialToDate(cell.Number)
		key := date.Year()*12 + int(date.Month())
		if seen[key] {
			continue
		}
		seen[key] = true

		blocks = append(blocks, MonthBlock{
			StartCol: col,
			Date:     date,
			Period:   models.PeriodFromTime(date),
		})
	}
	return blocks
}
