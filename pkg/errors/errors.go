package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryWorkbook      ErrorCategory = "workbook"
	CategoryParse         ErrorCategory = "parse"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStorage       ErrorCategory = "storage"
	CategoryAccess        ErrorCategory = "access"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound      ErrorCode = "file_not_found"
	CodeFilePermission    ErrorCode = "file_permission"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeDirectoryError    ErrorCode = "directory_error"

	// Workbook errors
	CodeWorkbookOpen ErrorCode = "workbook_open"
	CodeSheetRead    ErrorCode = "sheet_read"
	CodePDFExtract   ErrorCode = "pdf_extract"
	CodeNoSheets     ErrorCode = "no_sheets_routed"

	// Parse errors
	CodeDiagnostics       ErrorCode = "diagnostics"
	CodeUnknownReportType ErrorCode = "unknown_report_type"

	// Configuration errors
	CodeInvalidConfig  ErrorCode = "invalid_config"
	CodeMissingConfig  ErrorCode = "missing_config"
	CodeConfigConflict ErrorCode = "config_conflict"

	// Storage errors
	CodeSnapshotWrite ErrorCode = "snapshot_write"
	CodeSnapshotRead  ErrorCode = "snapshot_read"
	CodeHistoryIndex  ErrorCode = "history_index"
	CodeLockFailed    ErrorCode = "lock_failed"

	// Access errors
	CodeLockedOut ErrorCode = "locked_out"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReportError is the base error type for everything outside the parsing core.
type ReportError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReportError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReportError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReportError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryWorkbook, CategoryParse:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryStorage, CategoryInternal:
		return 5
	case CategoryAccess:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReportError) WithContext(key string, value interface{}) *ReportError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReportError) WithSuggestion(suggestion string) *ReportError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReportError
func New(category ErrorCategory, code ErrorCode, message string) *ReportError {
	return &ReportError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReportError context. A nil err yields nil.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReportError {
	if err == nil {
		return nil
	}

	return &ReportError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func newOrWrap(err error, category ErrorCategory, code ErrorCode, message string) *ReportError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReportError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("unsupported input format: %s", path)
		suggestion = "provide an .xlsx or .xls workbook or a .pdf report export"
	case CodeDirectoryError:
		message = fmt.Sprintf("directory error: %s", path)
		suggestion = "ensure the directory exists and is writable"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	return newOrWrap(err, CategoryFile, code, message).
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// WorkbookError creates an error for a workbook or PDF that could not be read.
func WorkbookError(code ErrorCode, path string, err error) *ReportError {
	var message, suggestion string

	switch code {
	case CodeWorkbookOpen:
		message = fmt.Sprintf("cannot open workbook: %s", path)
		suggestion = "make sure the file is a valid .xlsx export and not password protected"
	case CodeSheetRead:
		message = fmt.Sprintf("cannot read sheet rows from %s", path)
		suggestion = "re-export the workbook from the source system"
	case CodePDFExtract:
		message = fmt.Sprintf("cannot extract text from PDF: %s", path)
		suggestion = "scanned PDFs carry no text layer; export the report as a text PDF or xlsx"
	case CodeNoSheets:
		message = fmt.Sprintf("no sheet in %s matches a known report type", path)
		suggestion = "check sheet names (e.g. 49c, 49b, 22a, 44a1, 44b) or configure sheet patterns"
	default:
		message = fmt.Sprintf("workbook error: %s", path)
		suggestion = "check the workbook and try again"
	}

	return newOrWrap(err, CategoryWorkbook, code, message).
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReportError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	case CodeConfigConflict:
		message = fmt.Sprintf("configuration conflict with setting '%s': %v", setting, value)
		suggestion = "resolve the conflicting settings or use default values"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return newOrWrap(err, CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// StorageError creates an error raised while writing snapshots.
func StorageError(code ErrorCode, target string, err error) *ReportError {
	var message, suggestion string

	switch code {
	case CodeSnapshotWrite:
		message = fmt.Sprintf("failed to write snapshot %s", target)
		suggestion = "check free disk space and write permissions of the output directory"
	case CodeSnapshotRead:
		message = fmt.Sprintf("failed to read snapshot %s", target)
		suggestion = "the snapshot is corrupted; upload the report again"
	case CodeHistoryIndex:
		message = fmt.Sprintf("failed to update history index %s", target)
		suggestion = "the index may be corrupted; move it aside and re-run the upload"
	case CodeLockFailed:
		message = fmt.Sprintf("could not obtain lock %s", target)
		suggestion = "another upload is in progress; retry in a few seconds"
	default:
		message = fmt.Sprintf("storage error: %s", target)
		suggestion = "check the output directory and try again"
	}

	return newOrWrap(err, CategoryStorage, code, message).
		WithSuggestion(suggestion).
		WithContext("target", target)
}

// LockedOutError reports that a key exceeded its attempt budget.
func LockedOutError(key string, remaining fmt.Stringer) *ReportError {
	return New(CategoryAccess, CodeLockedOut, fmt.Sprintf("too many failed attempts for %s", key)).
		WithSuggestion(fmt.Sprintf("try again in %s", remaining)).
		WithContext("key", key)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReportError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	return newOrWrap(err, CategoryInternal, code, message).
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*ReportError        `json:"errors"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ReportError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}
	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}
	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}
	sort.Strings(categories)

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// GetExitCode returns the highest priority exit code from all errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}
	return maxCode
}

// AsReportError extracts a ReportError from an error chain
func AsReportError(err error) (*ReportError, bool) {
	var diagErr *DiagnosticsError
	if errors.As(err, &diagErr) {
		return diagErr.ReportError, true
	}
	var reportErr *ReportError
	if errors.As(err, &reportErr) {
		return reportErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReportError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReportError {
	if err == nil {
		return nil
	}
	if reportErr, ok := AsReportError(err); ok {
		return reportErr
	}
	return Wrap(err, category, code, message)
}

// As forwards to the standard errors.As so callers need a single errors import.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is forwards to the standard errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
