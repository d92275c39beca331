package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"loan-report-dashboard/pkg/errors"
	"loan-report-dashboard/pkg/logger"
)

// maxListedIssues caps the diagnostics printed for a strict-mode failure.
const maxListedIssues = 20

// CLIErrorHandler turns command errors into messages and exit codes.
type CLIErrorHandler struct {
	logger  logger.Logger
	out     io.Writer
	verbose bool
}

// NewCLIErrorHandler creates a handler writing to out.
func NewCLIErrorHandler(out io.Writer) *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		out:     out,
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints err and returns the process exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	var diagErr *errors.DiagnosticsError
	if errors.As(err, &diagErr) {
		fmt.Fprintln(h.out, diagErr.GetDetailedError(maxListedIssues))
		return diagErr.GetExitCode()
	}

	if reportErr, ok := errors.AsReportError(err); ok {
		return h.handleReportError(reportErr)
	}

	return h.handleGenericError(err)
}

// handleReportError prints a ReportError with its context and category help.
func (h *CLIErrorHandler) handleReportError(err *errors.ReportError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %+v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles errors raised outside pkg/errors, mostly by cobra
// flag parsing.
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if isFileNotFoundError(err) {
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if isPermissionError(err) {
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	if isDiskFullError(err) {
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 5
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	fmt.Fprintf(h.out, "Run 'reportparser --help' for usage.\n")
	return 1
}

// getCategoryHelp returns category-specific help text
func getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Only .xlsx, .xlsm and .xls workbooks and .pdf exports are accepted`

	case errors.CategoryWorkbook:
		return `Workbook error help:
• Open the file in a spreadsheet program to confirm it is not corrupted
• Use 'reportparser inspect' to see how sheets are routed
• Sheet names must start with 49c, 49b, 22a, 44a1 or 44b unless patterns are configured`

	case errors.CategoryParse:
		return `Parse error help:
• Each line above names the sheet, row and column that needed a fallback
• Fix the flagged cells in the source export and upload again
• Run without --strict to accept the fallback values`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Use 'reportparser parse --help' to see all available options`

	case errors.CategoryStorage:
		return `Storage error help:
• Check that the output directory is writable and has free space
• If redis.address is configured, make sure Redis is reachable`

	case errors.CategoryAccess:
		return `Access error help:
• Too many uploads from this operator failed in a row
• Wait for the lockout to expire, then fix the input before retrying`

	default:
		return `For more help:
• Use 'reportparser --help' for general help
• Run with --verbose for the underlying error`
	}
}

// Error detection helpers

func isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}

func isDiskFullError(err error) bool {
	if errors.Is(err, syscall.ENOSPC) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full")
}
