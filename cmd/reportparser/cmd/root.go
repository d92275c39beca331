package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"loan-report-dashboard/cmd/reportparser/config"
	"loan-report-dashboard/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reportparser",
	Short: "Loan-portfolio report parser",
	Long: `Reportparser reads the periodic loan-portfolio exports (NPL, KOL2,
daily realization, credit realization and credit position) and turns them
into normalized national, kanwil and cabang records.

Examples:
  reportparser parse --input laporan.xlsx
  reportparser parse --input laporan.xlsx --output-dir data --format json
  reportparser parse --input npl.pdf --type npl
  reportparser inspect --input laporan.xlsx
  reportparser history --output-dir data`,
	Version:       getVersionString(),
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Errors are returned unprinted so the caller
// can map them to an exit code.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text, json")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads .env, the config file and REPORTPARSER_* variables, then
// installs the global logger.
func initConfig() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(4)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("REPORTPARSER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := setupLogger(); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %s\n", err)
		os.Exit(4)
	}
}

func setupLogger() error {
	logConfig, err := config.CreateLoggerConfig(viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(log)
	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
