package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"loan-report-dashboard/internal/parsers"
	"loan-report-dashboard/internal/reporter"
	"loan-report-dashboard/internal/snapshot"
	"loan-report-dashboard/pkg/errors"
	"loan-report-dashboard/pkg/logger"
	"loan-report-dashboard/pkg/ratelimit"
)

// AttemptKeyPrefix namespaces failed-attempt counters in Redis.
const AttemptKeyPrefix = "reportparser:attempts:"

// CreateParserConfig builds parser settings from the loaded configuration.
// A non-empty cutover ("YYYY-MM") overrides parser.cutover.
func CreateParserConfig(cutover string) (*parsers.Config, error) {
	config := parsers.DefaultConfig()

	if rows := viper.GetInt("parser.header_scan_rows"); rows != 0 {
		config.HeaderScanRows = rows
	}
	config.ReportProgress = viper.GetBool("parser.progress")

	if cutover == "" {
		cutover = viper.GetString("parser.cutover")
	}
	if cutover != "" {
		year, month, err := parsers.ParseCutover(cutover)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "cutover", cutover, err)
		}
		config.CutoverYear, config.CutoverMonth = year, month
	}

	if viper.IsSet("parser.sheet_patterns") {
		var patterns []parsers.SheetPattern
		if err := viper.UnmarshalKey("parser.sheet_patterns", &patterns); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "parser.sheet_patterns", "", err)
		}
		config.SheetPatterns = patterns
	}

	config.Regions = CreateRegionTable()

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "parser", err.Error(), err)
	}
	return config, nil
}

// CreateRegionTable returns the built-in kanwil table, with regions.canonical
// replacing the canonical names and regions.aliases extending the aliases.
func CreateRegionTable() *parsers.RegionTable {
	canonical := parsers.DefaultKanwilNames
	if names := viper.GetStringSlice("regions.canonical"); len(names) > 0 {
		canonical = names
	}

	aliases := make(map[string]string, len(parsers.DefaultKanwilAliases))
	for alias, target := range parsers.DefaultKanwilAliases {
		aliases[alias] = target
	}
	// viper lower-cases map keys; region lookup folds case anyway.
	for alias, target := range viper.GetStringMapString("regions.aliases") {
		aliases[alias] = target
	}

	return parsers.NewRegionTable(canonical, aliases)
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)

	switch config.Format {
	case reporter.FormatConsole:
		config.IncludeDiagnostics = true
	case reporter.FormatJSON:
		config.IncludeBranches = true
		config.IncludeDiagnostics = true
	case reporter.FormatCSV:
		config.IncludeBranches = true
		config.IncludeDiagnostics = false // CSV carries values only
	}

	if viper.IsSet("report.include_branches") {
		config.IncludeBranches = viper.GetBool("report.include_branches")
	}
	if viper.IsSet("report.max_rows") {
		config.MaxRows = viper.GetInt("report.max_rows")
	}
	if viper.IsSet("report.max_diagnostics") {
		config.MaxDiagnostics = viper.GetInt("report.max_diagnostics")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "report", format, err)
	}
	return config, nil
}

// CreateLoggerConfig reads the log section; verbose forces debug level.
func CreateLoggerConfig(verbose bool) (*logger.Config, error) {
	config := logger.DefaultConfig()
	if level := viper.GetString("log.level"); level != "" {
		config.Level = logger.Level(strings.ToLower(level))
	}
	if format := viper.GetString("log.format"); format != "" {
		config.Format = logger.Format(strings.ToLower(format))
	}
	if output := viper.GetString("log.output"); output != "" {
		config.Output = logger.Output(output)
		config.File = viper.GetString("log.file")
	}
	config.CallerInfo = viper.GetBool("log.caller_info")
	if verbose {
		config.Level = logger.DebugLevel
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", config.Level, err)
	}
	return config, nil
}

// CreateRedisClient connects to redis.address. It returns nil, nil when no
// address is configured.
func CreateRedisClient(ctx context.Context) (*redis.Client, error) {
	addr := viper.GetString("redis.address")
	if addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "redis.address", addr, err).
			WithSuggestion("start redis or remove redis.address to use local locking")
	}

	logger.WithComponent("config").WithField("addr", addr).Debug("Connected to redis")
	return rdb, nil
}

// CreateLimiterConfig overlays the ratelimit section on the defaults.
func CreateLimiterConfig() (ratelimit.Config, error) {
	config := ratelimit.DefaultConfig()
	if err := viper.UnmarshalKey("ratelimit", &config); err != nil {
		return config, errors.ConfigurationError(errors.CodeInvalidConfig, "ratelimit", "", err)
	}
	return config, nil
}

// CreateLimiter builds the attempt limiter, backed by Redis when rdb is set.
func CreateLimiter(rdb *redis.Client, now func() time.Time) (*ratelimit.Limiter, error) {
	config, err := CreateLimiterConfig()
	if err != nil {
		return nil, err
	}

	var store ratelimit.Store
	if rdb != nil {
		store = ratelimit.NewRedisStore(rdb, AttemptKeyPrefix)
	} else {
		store = ratelimit.NewMemoryStore(now)
	}
	return ratelimit.New(store, config)
}

// CreateSnapshotWriter returns a writer for dir. With a Redis client the
// history index is guarded by a distributed lock.
func CreateSnapshotWriter(dir string, rdb *redis.Client) (*snapshot.Writer, error) {
	if dir == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "output-dir", "", nil)
	}

	var opts []snapshot.Option
	if n := viper.GetInt("snapshot.max_history"); n != 0 {
		if n < 0 {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "snapshot.max_history", n,
				fmt.Errorf("must be positive"))
		}
		opts = append(opts, snapshot.WithMaxHistory(n))
	}
	if rdb != nil {
		opts = append(opts, snapshot.WithLocker(snapshot.NewRedisLocker(rdb)))
	}
	return snapshot.NewWriter(dir, opts...), nil
}
