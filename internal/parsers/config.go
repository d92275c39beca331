package parsers

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"loan-report-dashboard/internal/models"
)

// SheetPattern routes sheet names to a report type.
type SheetPattern struct {
	Type    models.ReportType `json:"type" mapstructure:"type"`
	Pattern string            `json:"pattern" mapstructure:"pattern"`
}

// DefaultSheetPatterns are checked in order; the first pattern that matches
// a sheet name decides its report type.
var DefaultSheetPatterns = []SheetPattern{
	{Type: models.ReportCreditRealization, Pattern: `(?i)^44a1`},
	{Type: models.ReportCreditPosition, Pattern: `(?i)^44b`},
	{Type: models.ReportDailyRealization, Pattern: `(?i)^22a`},
	{Type: models.ReportNPL, Pattern: `(?i)^49c`},
	{Type: models.ReportKOL2, Pattern: `(?i)^49b`},
}

// Config holds parser settings.
type Config struct {
	HeaderScanRows int            `json:"header_scan_rows"`
	CutoverYear    int            `json:"cutover_year"`
	CutoverMonth   time.Month     `json:"cutover_month"`
	SheetPatterns  []SheetPattern `json:"sheet_patterns"`
	ReportProgress bool           `json:"report_progress"`

	// Regions resolves kanwil names; nil means DefaultRegionTable.
	Regions *RegionTable `json:"-"`
	// Clock supplies "now" for period fallback; nil means time.Now.
	Clock func() time.Time `json:"-"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	patterns := make([]SheetPattern, len(DefaultSheetPatterns))
	copy(patterns, DefaultSheetPatterns)

	return &Config{
		HeaderScanRows: 10,
		CutoverYear:    2026,
		CutoverMonth:   time.January,
		SheetPatterns:  patterns,
		Regions:        DefaultRegionTable(),
		Clock:          time.Now,
	}
}

// Validate checks if the parser configuration is valid
func (c *Config) Validate() error {
	if c.HeaderScanRows <= 0 {
		return fmt.Errorf("header scan rows must be positive, got %d", c.HeaderScanRows)
	}
	if c.CutoverMonth < time.January || c.CutoverMonth > time.December {
		return fmt.Errorf("cutover month must be between 1 and 12, got %d", c.CutoverMonth)
	}
	if c.CutoverYear < 2000 || c.CutoverYear > 2100 {
		return fmt.Errorf("cutover year out of range: %d", c.CutoverYear)
	}
	if len(c.SheetPatterns) == 0 {
		return fmt.Errorf("at least one sheet pattern is required")
	}
	for _, p := range c.SheetPatterns {
		if !p.Type.IsValid() {
			return fmt.Errorf("sheet pattern has unknown report type %q", p.Type)
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return fmt.Errorf("invalid sheet pattern for %s: %w", p.Type, err)
		}
	}
	return nil
}

// ParseCutover parses a "YYYY-MM" cutover month.
func ParseCutover(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("cutover must look like 2026-01, got %q", s)
	}
	return t.Year(), t.Month(), nil
}

// cutoverReached reports whether the month of p is on or after the cutover.
func (c *Config) cutoverReached(p models.Period) bool {
	cutover := models.NewPeriod(1, int(c.CutoverMonth)-1, c.CutoverYear)
	return !p.Before(cutover)
}

type compiledPattern struct {
	reportType models.ReportType
	re         *regexp.Regexp
}

func (c *Config) compilePatterns() []compiledPattern {
	compiled := make([]compiledPattern, 0, len(c.SheetPatterns))
	for _, p := range c.SheetPatterns {
		compiled = append(compiled, compiledPattern{
			reportType: p.Type,
			re:         regexp.MustCompile(p.Pattern),
		})
	}
	return compiled
}
