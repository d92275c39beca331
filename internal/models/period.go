package models

import (
	"fmt"
	"time"
)

// MonthNames are the Indonesian month names used in dashboard labels.
var MonthNames = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthShortNames are the three-letter Indonesian month abbreviations.
var MonthShortNames = [12]string{
	"Jan", "Feb", "Mar", "Apr", "Mei", "Jun",
	"Jul", "Agu", "Sep", "Okt", "Nov", "Des",
}

// Period is a reporting month. Month is zero-based (0 = January).
type Period struct {
	Day        int    `json:"day,omitempty"`
	Month      int    `json:"month"`
	Year       int    `json:"year"`
	Name       string `json:"name"`
	ShortName  string `json:"shortName"`
	FullLabel  string `json:"fullLabel"`
	ShortLabel string `json:"shortLabel"`
}

// NewPeriod builds a Period with its display labels filled in.
// month is zero-based and must be in [0, 11].
func NewPeriod(day, month, year int) Period {
	name := MonthNames[month]
	short := MonthShortNames[month]
	return Period{
		Day:        day,
		Month:      month,
		Year:       year,
		Name:       name,
		ShortName:  short,
		FullLabel:  fmt.Sprintf("%s %d", name, year),
		ShortLabel: fmt.Sprintf("%s %d", short, year),
	}
}

// PeriodFromTime converts a calendar date to a Period.
func PeriodFromTime(t time.Time) Period {
	return NewPeriod(t.Day(), int(t.Month())-1, t.Year())
}

// Before reports whether p is an earlier month than other. Days are ignored.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// SameMonth reports whether both periods fall in the same calendar month.
func (p Period) SameMonth(other Period) bool {
	return p.Year == other.Year && p.Month == other.Month
}

// MonthInfo describes the two periods a report compares.
type MonthInfo struct {
	Current       *Period   `json:"current"`
	Previous      *Period   `json:"previous"`
	ReferenceDate time.Time `json:"referenceDate"`
	Day           int       `json:"day"`
}
