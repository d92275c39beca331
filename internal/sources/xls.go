package sources

import (
	"path/filepath"
	"strings"

	"github.com/extrame/xls"

	"loan-report-dashboard/internal/parsers"
	"loan-report-dashboard/pkg/errors"
	"loan-report-dashboard/pkg/logger"
)

// xlsCharset is used for BIFF5 strings; BIFF8 files carry UTF-16 text.
const xlsCharset = "utf-8"

// xlsRow is the part of an extrame/xls row the converter reads.
type xlsRow interface {
	FirstCol() int
	LastCol() int
	Col(i int) string
}

// OpenLegacyWorkbook reads every sheet of a legacy .xls file. Cells arrive as
// formatted text, so date headers are only recognized when they are written
// as text tokens.
func OpenLegacyWorkbook(path string) (wb *parsers.Workbook, err error) {
	if _, err := checkReadable(path); err != nil {
		return nil, err
	}

	// extrame/xls panics on some malformed records.
	defer func() {
		if r := recover(); r != nil {
			wb = nil
			err = errors.WorkbookError(errors.CodeWorkbookOpen, path, nil).
				WithContext("panic", r)
		}
	}()

	f, err := xls.Open(path, xlsCharset)
	if err != nil {
		return nil, errors.WorkbookError(errors.CodeWorkbookOpen, path, err)
	}

	wb = &parsers.Workbook{Name: filepath.Base(path)}
	for i := 0; i < f.NumSheets(); i++ {
		sheet := f.GetSheet(i)
		if sheet == nil {
			continue
		}

		rows := make([]parsers.Row, 0, int(sheet.MaxRow)+1)
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			rows = append(rows, convertXLSRow(row))
		}
		wb.Sheets = append(wb.Sheets, &parsers.Sheet{Name: strings.TrimSpace(sheet.Name), Rows: rows})
	}

	logger.WithFields(logger.Fields{
		"workbook": wb.Name,
		"sheets":   len(wb.Sheets),
		"format":   FormatXLS,
	}).Debug("Loaded workbook")

	return wb, nil
}

// convertXLSRow maps a row onto typed cells. Columns before FirstCol are blank.
func convertXLSRow(row xlsRow) parsers.Row {
	last := row.LastCol()
	if last <= 0 {
		return parsers.Row{}
	}

	cells := make(parsers.Row, last)
	for j := 0; j < last; j++ {
		if j < row.FirstCol() {
			cells[j] = parsers.Blank()
			continue
		}
		cells[j] = toCell(strings.TrimSpace(row.Col(j)))
	}
	return cells
}
