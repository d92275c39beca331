package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"loan-report-dashboard/cmd/reportparser/config"
	"loan-report-dashboard/internal/models"
	"loan-report-dashboard/internal/parsers"
	"loan-report-dashboard/internal/reporter"
	"loan-report-dashboard/internal/snapshot"
	"loan-report-dashboard/internal/sources"
	"loan-report-dashboard/pkg/errors"
	"loan-report-dashboard/pkg/logger"
	"loan-report-dashboard/pkg/ratelimit"
)

// parseOptions holds the resolved flags of the parse command.
type parseOptions struct {
	Input      string
	OutputDir  string
	Format     string
	OutputFile string
	Strict     bool
	Cutover    string
	ReportType string
	Operator   string
}

var parseOpts parseOptions

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a loan-portfolio workbook or PDF export",
	Long: `Parse reads an .xlsx or .xls workbook, routes its sheets to report types by name
(49c NPL, 49b KOL2, 22a daily realization, 44a1 credit realization, 44b
credit position) and prints the normalized national, kanwil and cabang
records. A .pdf export holds a single NPL, KOL2 or daily realization table
and needs --type.

With --output-dir the parsed reports are also written as JSON snapshots
together with a history index.

Examples:
  # Print every routed sheet
  reportparser parse --input laporan.xlsx

  # Store snapshots and print JSON
  reportparser parse --input laporan.xlsx --output-dir data --format json

  # Fail when any cell had to be skipped or guessed
  reportparser parse --input laporan.xlsx --strict

  # Treat February 2026 as the first month with KPP columns
  reportparser parse --input laporan.xlsx --cutover 2026-02

  # Parse a PDF export of the NPL table
  reportparser parse --input npl.pdf --type npl

  # Parse a PDF export of the daily realization table
  reportparser parse --input realisasi.pdf --type realisasi`,

	PreRunE: validateParseFlags,
	RunE:    runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseOpts.Input, "input", "i", "", "path to the .xlsx/.xls workbook or .pdf export (required)")
	parseCmd.Flags().StringVar(&parseOpts.OutputDir, "output-dir", "", "directory for JSON snapshots and history (optional)")
	parseCmd.Flags().StringVarP(&parseOpts.Format, "format", "f", "console", "output format: console, json, csv")
	parseCmd.Flags().StringVarP(&parseOpts.OutputFile, "output-file", "o", "", "output file path (default: stdout)")
	parseCmd.Flags().BoolVar(&parseOpts.Strict, "strict", false, "exit non-zero when parsing produced diagnostics")
	parseCmd.Flags().StringVar(&parseOpts.Cutover, "cutover", "", "first month (YYYY-MM) whose daily blocks carry KPP columns")
	parseCmd.Flags().StringVarP(&parseOpts.ReportType, "type", "t", "", "report type of a PDF export: npl, kol2, realisasi")
	parseCmd.Flags().StringVar(&parseOpts.Operator, "operator", "default", "operator name used to count failed attempts")

	parseCmd.MarkFlagRequired("input")

	viper.BindPFlag("input", parseCmd.Flags().Lookup("input"))
	viper.BindPFlag("output-dir", parseCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("format", parseCmd.Flags().Lookup("format"))
	viper.BindPFlag("output-file", parseCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("strict", parseCmd.Flags().Lookup("strict"))
	viper.BindPFlag("cutover", parseCmd.Flags().Lookup("cutover"))
	viper.BindPFlag("type", parseCmd.Flags().Lookup("type"))
	viper.BindPFlag("operator", parseCmd.Flags().Lookup("operator"))
}

func validateParseFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	parseOpts = parseOptions{
		Input:      viper.GetString("input"),
		OutputDir:  viper.GetString("output-dir"),
		Format:     viper.GetString("format"),
		OutputFile: viper.GetString("output-file"),
		Strict:     viper.GetBool("strict"),
		Cutover:    viper.GetString("cutover"),
		ReportType: viper.GetString("type"),
		Operator:   viper.GetString("operator"),
	}
	return parseOpts.validate()
}

func (o parseOptions) validate() error {
	if o.Input == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "input", "", nil)
	}
	if o.Operator == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "operator", "", nil)
	}

	if !reporter.OutputFormat(o.Format).IsValid() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "format", o.Format,
			fmt.Errorf("valid formats: console, json, csv"))
	}

	if o.Cutover != "" {
		if _, _, err := parsers.ParseCutover(o.Cutover); err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "cutover", o.Cutover, err)
		}
	}

	if o.ReportType != "" {
		t, err := models.ParseReportType(o.ReportType)
		if err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "type", o.ReportType, err)
		}
		if !pdfReportType(t) {
			return errors.ConfigurationError(errors.CodeInvalidConfig, "type", o.ReportType,
				fmt.Errorf("only npl, kol2 and realisasi tables can be read from PDF"))
		}
	}

	if o.OutputFile != "" {
		dir := filepath.Dir(o.OutputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return errors.FileError(errors.CodeDirectoryError, dir, err)
			}
		}
	}

	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	rdb, err := config.CreateRedisClient(ctx)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	limiter, err := config.CreateLimiter(rdb, nil)
	if err != nil {
		return err
	}

	runner := &parseRunner{
		opts:    parseOpts,
		limiter: limiter,
		rdb:     rdb,
		out:     cmd.OutOrStdout(),
		status:  cmd.ErrOrStderr(),
		log:     logger.WithComponent("cli"),
	}
	return runner.run(ctx)
}

// parseRunner carries one parse invocation from input to published output.
type parseRunner struct {
	opts    parseOptions
	limiter *ratelimit.Limiter
	rdb     *redis.Client
	out     io.Writer
	status  io.Writer
	log     logger.Logger
}

// run parses, renders, applies strict mode and finally stores snapshots, so
// a strict failure never publishes data. Input and parse failures count
// against the operator; a success clears the count.
func (r *parseRunner) run(ctx context.Context) error {
	key := r.opts.Operator
	if err := r.limiter.Allow(ctx, key); err != nil {
		return err
	}

	err := r.parseAndPublish(ctx)
	if err != nil {
		if countsAsFailedAttempt(err) {
			if ferr := r.limiter.Fail(ctx, key); ferr != nil {
				r.log.WithError(ferr).Warn("Could not record failed attempt")
			}
		}
		return err
	}

	if serr := r.limiter.Succeed(ctx, key); serr != nil {
		r.log.WithError(serr).Warn("Could not reset attempt counter")
	}
	return nil
}

func (r *parseRunner) parseAndPublish(ctx context.Context) error {
	r.log.WithFields(logger.Fields{
		"input":  r.opts.Input,
		"format": r.opts.Format,
		"strict": r.opts.Strict,
	}).Debug("Starting parse")

	result, err := r.parse(ctx)
	if err != nil {
		return err
	}

	if err := r.render(result); err != nil {
		return err
	}

	if r.opts.Strict {
		if issues := collectIssues(result); len(issues) > 0 {
			return errors.NewDiagnosticsError(filepath.Base(r.opts.Input), issues)
		}
	}

	if r.opts.OutputDir != "" {
		return r.store(ctx, result)
	}
	return nil
}

func (r *parseRunner) parse(ctx context.Context) (*parsers.WorkbookResult, error) {
	format, err := sources.DetectFormat(r.opts.Input)
	if err != nil {
		return nil, err
	}

	parserConfig, err := config.CreateParserConfig(r.opts.Cutover)
	if err != nil {
		return nil, err
	}
	parser, err := parsers.NewParser(parserConfig)
	if err != nil {
		return nil, err
	}

	switch format {
	case sources.FormatPDF:
		if r.opts.ReportType == "" {
			return nil, errors.ConfigurationError(errors.CodeMissingConfig, "type", "", nil).
				WithSuggestion("pass --type npl, kol2 or realisasi for PDF exports")
		}
		lines, err := sources.ReadPDFLines(r.opts.Input)
		if err != nil {
			return nil, err
		}
		t := models.ReportType(r.opts.ReportType)
		source := filepath.Base(r.opts.Input)
		var (
			report *models.Report
			stats  *parsers.ParseStats
		)
		if t == models.ReportDailyRealization {
			report, stats = parser.ParseDailyText(source, lines)
		} else {
			report, stats = parser.ParseNPLText(t, source, lines)
		}
		return parsers.SingleResult(t, source, report, stats), nil

	default:
		wb, err := sources.LoadWorkbook(r.opts.Input)
		if err != nil {
			return nil, err
		}
		result, err := parser.ParseWorkbook(ctx, wb)
		if err != nil {
			return nil, errors.WrapIfNeeded(err, errors.CategoryInternal, errors.CodeUnexpectedError, "workbook parsing was interrupted")
		}
		if len(result.Reports) == 0 {
			return nil, errors.WorkbookError(errors.CodeNoSheets, r.opts.Input, nil).
				WithContext("sheets", wb.SheetNames())
		}
		return result, nil
	}
}

func (r *parseRunner) render(result *parsers.WorkbookResult) error {
	reportConfig, err := config.CreateReportConfig(r.opts.Format)
	if err != nil {
		return err
	}
	generator, err := reporter.NewSafeReportGenerator(reportConfig, r.log)
	if err != nil {
		return err
	}

	out := r.out
	if r.opts.OutputFile != "" {
		file, err := os.Create(r.opts.OutputFile)
		if err != nil {
			return errors.FileError(errors.CodeFilePermission, r.opts.OutputFile, err)
		}
		defer file.Close()
		out = file
	}

	return generator.GenerateReportSafely(result, out)
}

func (r *parseRunner) store(ctx context.Context, result *parsers.WorkbookResult) error {
	writer, err := config.CreateSnapshotWriter(r.opts.OutputDir, r.rdb)
	if err != nil {
		return err
	}

	var size int64
	if info, err := os.Stat(r.opts.Input); err == nil {
		size = info.Size()
	}

	meta, err := writer.Write(ctx, snapshot.Upload{
		Filename: filepath.Base(r.opts.Input),
		FileSize: size,
		Result:   result,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(r.status, "Stored upload %s in %s (%d reports)\n", meta.UploadID, writer.Dir(), len(meta.Files))
	return nil
}

// collectIssues gathers diagnostics of every parsed report in type order.
func collectIssues(result *parsers.WorkbookResult) []errors.Issue {
	var issues []errors.Issue
	for _, t := range models.AllReportTypes {
		if stats, ok := result.Stats[t]; ok {
			issues = append(issues, stats.Issues()...)
		}
	}
	return issues
}

// pdfReportType reports whether a PDF export of type t can be parsed.
func pdfReportType(t models.ReportType) bool {
	switch t {
	case models.ReportNPL, models.ReportKOL2, models.ReportDailyRealization:
		return true
	default:
		return false
	}
}

// countsAsFailedAttempt reports whether err was caused by the input rather
// than by configuration or the environment.
func countsAsFailedAttempt(err error) bool {
	reportErr, ok := errors.AsReportError(err)
	if !ok {
		return false
	}
	switch reportErr.Category {
	case errors.CategoryFile, errors.CategoryWorkbook, errors.CategoryParse:
		return true
	default:
		return false
	}
}
