package cmd

import (
	"fmt"
	"os"

	"github.com/skatamatic/blulok-cloud-sub001/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "blulok-fms",
	Short: "BluLok FMS Sync Service",
	Long: `BluLok FMS keeps storage-facility access control in sync with external
facility management systems. It fetches provider snapshots, queues detected
changes for human review and applies accepted changes to users, units and
unit assignments.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with debug level for readable CLI error output.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
