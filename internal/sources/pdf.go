package sources

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"loan-report-dashboard/pkg/errors"
	"loan-report-dashboard/pkg/logger"
)

// ReadPDFLines extracts the text rows of every page of a PDF, in page order.
// Words on one row are joined by single spaces.
func ReadPDFLines(path string) ([]string, error) {
	if _, err := checkReadable(path); err != nil {
		return nil, err
	}

	lines, err := extractRows(path)
	if err != nil {
		return nil, errors.WorkbookError(errors.CodePDFExtract, path, err)
	}
	if len(lines) == 0 {
		return nil, errors.WorkbookError(errors.CodePDFExtract, path, fmt.Errorf("no text rows found"))
	}

	logger.WithFields(logger.Fields{
		"file":  path,
		"lines": len(lines),
	}).Debug("Extracted PDF text")

	return lines, nil
}

func extractRows(path string) (lines []string, err error) {
	// the pdf reader panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}
