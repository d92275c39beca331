// Package sources loads report inputs from disk: xlsx workbooks through
// excelize, legacy xls workbooks through extrame/xls and text PDF exports
// through ledongthuc/pdf.
package sources

import (
	"os"
	"path/filepath"
	"strings"

	"loan-report-dashboard/internal/parsers"
	"loan-report-dashboard/pkg/errors"
)

// Format identifies an input file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatPDF  Format = "pdf"
)

// DetectFormat determines the input format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls":
		return FormatXLS, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", errors.FileError(errors.CodeUnsupportedFormat, path, nil)
	}
}

// checkReadable maps stat failures onto file errors.
func checkReadable(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return nil, errors.FileError(errors.CodeFileNotFound, path, err)
	case os.IsPermission(err):
		return nil, errors.FileError(errors.CodeFilePermission, path, err)
	case err != nil:
		return nil, errors.FileError(errors.CodeFileNotFound, path, err)
	case info.IsDir():
		return nil, errors.FileError(errors.CodeDirectoryError, path, nil)
	}
	return info, nil
}

// LoadWorkbook opens an .xlsx or .xls workbook, picking the reader by
// extension.
func LoadWorkbook(path string) (*parsers.Workbook, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatXLSX:
		return OpenWorkbook(path)
	case FormatXLS:
		return OpenLegacyWorkbook(path)
	default:
		return nil, errors.FileError(errors.CodeUnsupportedFormat, path, nil).
			WithSuggestion("only spreadsheet workbooks have sheets; parse PDF exports with --type")
	}
}
