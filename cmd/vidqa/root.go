package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zsiec/vidqa/internal/config"
	"github.com/zsiec/vidqa/internal/logger"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "vidqa",
		Short: "Video quality analysis and transcode reporting",
		Long: `vidqa analyzes stream metadata, frame structure, objective quality metrics and ` +
			`artifact signals, and synthesizes a verdict on whether a transcode regressed.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(
		newServeCmd(opts),
		newAnalyzeCmd(opts),
		newProbeCmd(opts),
		newToolsCmd(),
		newVersionCmd(),
	)
	return cmd
}

// load reads the configuration and builds the logger. Offline commands pass
// quiet so that log lines never mix with results on stdout.
func (o *globalOptions) load(quiet bool) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	} else if quiet {
		cfg.Logging.Level = "warn"
	}
	if quiet && cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
