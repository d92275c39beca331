package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"loan-report-dashboard/internal/parsers"
	"loan-report-dashboard/pkg/errors"
	"loan-report-dashboard/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging and fallbacks: a
// failed JSON or CSV rendering is retried as console output, and a failed
// file write is retried next to the original file.
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("check the report configuration values")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely renders result with fallbacks.
func (srg *SafeReportGenerator) GenerateReportSafely(result *parsers.WorkbookResult, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Starting report generation")

	if result == nil || writer == nil {
		err := errors.InternalError(errors.CodeUnexpectedError, "report_generation",
			fmt.Errorf("result and writer are required"))
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	if err := srg.generateWithFallback(result, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed")
		return err
	}

	srg.logger.Debug("Report generation completed")
	return nil
}

func (srg *SafeReportGenerator) generateWithFallback(result *parsers.WorkbookResult, writer io.Writer) error {
	err := srg.GenerateReport(result, writer)
	if err == nil {
		return nil
	}

	srg.logger.WithError(err).Warn("Primary report generation failed, attempting fallback")

	if srg.shouldAttemptOutputFallback(err, writer) {
		return srg.generateWithOutputFallback(result, writer, err)
	}
	if srg.config.Format != FormatConsole {
		return srg.generateWithFormatFallback(result, writer, err)
	}

	return srg.wrapGenerationError(err)
}

func (srg *SafeReportGenerator) generateWithFormatFallback(result *parsers.WorkbookResult, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: Report generated in fallback format due to error with requested format\n")
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fallbackGenerator.GenerateReport(result, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}

	srg.logger.Info("Report generated using format fallback")
	return nil
}

func (srg *SafeReportGenerator) shouldAttemptOutputFallback(err error, writer io.Writer) bool {
	if file, ok := writer.(*os.File); ok && file.Name() != "" && file != os.Stdout && file != os.Stderr {
		return isFileError(err)
	}
	return false
}

func (srg *SafeReportGenerator) generateWithOutputFallback(result *parsers.WorkbookResult, writer io.Writer, originalErr error) error {
	file := writer.(*os.File)
	originalPath := file.Name()
	backupPath := generateBackupPath(originalPath)

	srg.logger.WithFields(logger.Fields{
		"original_file": originalPath,
		"backup_file":   backupPath,
	}).Info("Attempting output fallback")

	backupFile, err := os.Create(backupPath)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}
	defer backupFile.Close()

	if err := srg.GenerateReport(result, backupFile); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_output_fallback",
			fmt.Errorf("both primary and backup output failed: primary=%v, backup=%v", originalErr, err),
		)
	}

	srg.logger.WithField("backup_file", backupPath).Warn("Report written to backup file")
	return nil
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if reportErr, ok := errors.AsReportError(err); ok {
		return reportErr
	}

	return errors.InternalError(
		errors.CodeUnexpectedError,
		"report_generation",
		err,
	).WithSuggestion("check the output destination and report format settings")
}

// Utility functions

func isFileError(err error) bool {
	return os.IsPermission(err) ||
		os.IsNotExist(err) ||
		os.IsExist(err) ||
		isSpaceError(err) ||
		strings.Contains(err.Error(), os.ErrClosed.Error())
}

func generateBackupPath(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", name, ext))
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}

func isSpaceError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "device full")
}
