package fluentrest

import (
	"fmt"
	"os"

	"github.com/edgeflare/fluentrest/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var cfgFile string
var logLevel string
var logger = zap.NewNop()
var rootCmd = &cobra.Command{
	Use:   "fluentrest",
	Short: "fluentrest serves PostgreSQL tables as HAL REST resources",
	Long:  `fluentrest mounts CRUD endpoints over PostgreSQL tables declared in its config file and browses HAL APIs`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(logLevel)
		return err
	},
	Run: func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			fmt.Println(config.Version)
			return
		}
		cmd.Help()
	},
}

func Main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/fluentrest.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "L", "info", "log at this level (debug, info, warn, error, fatal, none)")
	rootCmd.Flags().BoolP("version", "v", false, "Print the version number")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(getCmd)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "none" {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
