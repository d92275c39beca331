package errors

import (
	"fmt"
	"strings"
)

// Issue locates one recoverable problem found while reading a report.
type Issue struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (i Issue) String() string {
	loc := i.Sheet
	if i.Row >= 0 {
		loc += fmt.Sprintf(" row %d", i.Row+1)
	}
	if i.Column >= 0 {
		loc += fmt.Sprintf(" col %d", i.Column+1)
	}
	if i.Value != "" {
		return fmt.Sprintf("%s: %s ('%s')", loc, i.Reason, i.Value)
	}
	return fmt.Sprintf("%s: %s", loc, i.Reason)
}

// DiagnosticsError is returned in strict mode when a parse produced issues.
type DiagnosticsError struct {
	*ReportError
	Issues []Issue `json:"issues"`
}

// NewDiagnosticsError wraps the issues collected from source.
func NewDiagnosticsError(source string, issues []Issue) *DiagnosticsError {
	base := New(CategoryParse, CodeDiagnostics,
		fmt.Sprintf("%d parse diagnostics in %s", len(issues), source)).
		WithSuggestion("fix the flagged cells or re-run without --strict").
		WithContext("source", source).
		WithContext("count", len(issues))

	return &DiagnosticsError{ReportError: base, Issues: issues}
}

// GetDetailedError returns a multi-line description listing at most max issues.
func (e *DiagnosticsError) GetDetailedError(max int) string {
	lines := []string{fmt.Sprintf("ERROR: %s", e.Message)}
	for i, issue := range e.Issues {
		if max > 0 && i == max {
			lines = append(lines, fmt.Sprintf("  ... and %d more", len(e.Issues)-max))
			break
		}
		lines = append(lines, "  → "+issue.String())
	}
	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  → Suggestion: %s", e.Suggestion))
	}
	return strings.Join(lines, "\n")
}
