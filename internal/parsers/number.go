package parsers

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonNumericChars = regexp.MustCompile(`[^\d.,()\-\s]`)

var hundred = decimal.NewFromInt(100)

// ParseNumber converts a cell to a number. It never fails: blank and
// unparseable cells yield 0.
func ParseNumber(c Cell) float64 {
	v, _ := parseCell(c)
	return v
}

// ParseNumberText parses a single text token such as "1.234.567,89",
// "1,234,567.89" or "(1.500)". Unparseable text yields 0.
func ParseNumberText(s string) float64 {
	v, _ := parseNumberText(s)
	return v
}

// ParseNumbersFromLine extracts every number from a line of free text.
// Letters are treated as separators and tokens that do not parse are skipped.
func ParseNumbersFromLine(line string) []float64 {
	cleaned := nonNumericChars.ReplaceAllString(line, " ")

	var numbers []float64
	for _, token := range strings.Fields(cleaned) {
		if v, ok := parseToken(token); ok {
			numbers = append(numbers, v)
		}
	}
	return numbers
}

// parseCell reports ok=false only for non-blank text that is not a number.
func parseCell(c Cell) (float64, bool) {
	switch c.Kind {
	case CellNumber:
		return c.Number, true
	case CellText:
		if strings.TrimSpace(c.Text) == "" {
			return 0, true
		}
		return parseNumberText(c.Text)
	default:
		return 0, true
	}
}

func parseNumberText(s string) (float64, bool) {
	cleaned := nonNumericChars.ReplaceAllString(s, "")
	token := strings.Join(strings.Fields(cleaned), "")
	if token == "" {
		return 0, false
	}
	return parseToken(token)
}

func parseToken(token string) (float64, bool) {
	if !strings.ContainsAny(token, "0123456789") {
		return 0, false
	}
	d, ok := parseDecimal(token)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

func parseDecimal(token string) (decimal.Decimal, bool) {
	negative := false
	if len(token) >= 2 && strings.HasPrefix(token, "(") && strings.HasSuffix(token, ")") {
		negative = true
		token = token[1 : len(token)-1]
	}
	token = strings.NewReplacer("(", "", ")", "").Replace(token)

	d, err := decimal.NewFromString(normalizeSeparators(token))
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Abs().Neg()
	}
	return d, true
}

// normalizeSeparators rewrites a token so that the only separator left is a
// '.' decimal point.
func normalizeSeparators(token string) string {
	dots := strings.Count(token, ".")
	commas := strings.Count(token, ",")

	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(token, ",") > strings.LastIndex(token, ".") {
			// 1.234.567,89
			token = strings.ReplaceAll(token, ".", "")
			return strings.Replace(token, ",", ".", 1)
		}
		// 1,234,567.89
		return strings.ReplaceAll(token, ",", "")

	case dots > 1:
		return strings.ReplaceAll(token, ".", "")

	case dots == 1:
		if len(token)-strings.Index(token, ".")-1 == 3 {
			return strings.Replace(token, ".", "", 1)
		}
		return token

	case commas > 1:
		return strings.ReplaceAll(token, ",", "")

	case commas == 1:
		if len(token)-strings.Index(token, ",")-1 <= 2 {
			return strings.Replace(token, ",", ".", 1)
		}
		return strings.Replace(token, ",", "", 1)
	}

	return token
}

// scalePercent converts a fraction (0.05) to percent points (5) without
// binary rounding noise.
func scalePercent(v float64) float64 {
	return decimal.NewFromFloat(v).Mul(hundred).InexactFloat64()
}
