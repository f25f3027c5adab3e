package cmd

import (
	"github.com/spf13/cobra"

	"github.com/solatis/windowkeeper/internal/core/logging"
)

// Version of the windowkeeper binary.
const Version = "0.1.0"

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "windowkeeper",
	Short: "Windowkeeper time-window rule condition engine",
	Long: `Windowkeeper evaluates rule conditions against streaming telemetry and tracks,
per condition, whether a time-bounded pattern of observations has been fulfilled.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.NewLogger(logLevel, logFormat)
		if err != nil {
			return err
		}
		cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.FromContext(cmd.Context()).Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
