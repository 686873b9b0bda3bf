package cmd

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// EnvSettings are process-level defaults read from the environment,
// overridable per run by flags.
type EnvSettings struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"warning"`
}

var (
	logLevel string
	settings EnvSettings
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "genosim",
	Short: "Deterministic genome population simulator",
	Long: `genosim generates a reference-relative catalogue of genetic variants,
samples synthetic individuals from it under configurable population-genetics
models, and persists the result for downstream read simulators and
comparison tools.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	if err := envconfig.Process("genosim", &settings); err != nil {
		logrus.Fatalf("reading environment settings: %v", err)
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", settings.LogLevel,
		"log verbosity (debug, info, warning, error)")
}
