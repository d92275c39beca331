package main

import (
	"os"

	"loan-report-dashboard/cmd/reportparser/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.NewCLIErrorHandler(os.Stderr).HandleError(err))
	}
}
