package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anc-caregap-server/internal/config"
	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "trainer",
	Short:         "Fit and inspect the ANC care gap model",
	Long:          "trainer fits the care gap transformer and tree ensemble from a survey export, inspects saved artifacts and exports recorded outcomes as training data.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (defaults to the standard search paths)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level")

	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(exportOutcomesCmd)
}

// loadConfig reads the config file named by --config, or the default search paths.
func loadConfig(cmd *cobra.Command) (*config.Manager, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.NewManagerWithFile(path)
	}
	return config.NewManager()
}

// newLogger writes text logs to stderr so command output on stdout stays clean.
func newLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	return logging.New(domain.LoggingConfig{Level: level, Format: "text", Output: "stderr"})
}
