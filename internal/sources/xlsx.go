package sources

import (
	"io"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/xuri/excelize/v2"

	"loan-report-dashboard/internal/parsers"
	"loan-report-dashboard/pkg/errors"
	"loan-report-dashboard/pkg/logger"
)

// rawNumber matches the stored form of a numeric cell as excelize returns it
// with RawCellValue.
var rawNumber = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][-+]?\d+)?$`)

// OpenWorkbook reads every sheet of an xlsx file into memory.
func OpenWorkbook(path string) (*parsers.Workbook, error) {
	if _, err := checkReadable(path); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.WorkbookError(errors.CodeWorkbookOpen, path, err)
	}
	defer f.Close()

	return readWorkbook(filepath.Base(path), f)
}

// ReadWorkbook reads an xlsx workbook from r. name is used for sheet errors
// and as the workbook name.
func ReadWorkbook(name string, r io.Reader) (*parsers.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.WorkbookError(errors.CodeWorkbookOpen, name, err)
	}
	defer f.Close()

	return readWorkbook(name, f)
}

func readWorkbook(name string, f *excelize.File) (*parsers.Workbook, error) {
	wb := &parsers.Workbook{Name: name}

	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, errors.WorkbookError(errors.CodeSheetRead, name, err).
				WithContext("sheet", sheetName)
		}
		wb.Sheets = append(wb.Sheets, convertRows(sheetName, rows))
	}

	logger.WithFields(logger.Fields{
		"workbook": name,
		"sheets":   len(wb.Sheets),
	}).Debug("Loaded workbook")

	return wb, nil
}

// convertRows turns excelize's string grid into typed cells.
func convertRows(name string, rows [][]string) *parsers.Sheet {
	sheet := &parsers.Sheet{Name: name, Rows: make([]parsers.Row, len(rows))}
	for i, values := range rows {
		row := make(parsers.Row, len(values))
		for j, v := range values {
			row[j] = toCell(v)
		}
		sheet.Rows[i] = row
	}
	return sheet
}

func toCell(raw string) parsers.Cell {
	if raw == "" {
		return parsers.Blank()
	}
	if rawNumber.MatchString(raw) {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return parsers.Number(v)
		}
	}
	return parsers.Text(raw)
}
