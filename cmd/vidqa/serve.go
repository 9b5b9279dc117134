package main

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zsiec/vidqa/internal/api"
	apperrors "github.com/zsiec/vidqa/internal/errors"
	"github.com/zsiec/vidqa/internal/health"
	"github.com/zsiec/vidqa/internal/logger"
	"github.com/zsiec/vidqa/internal/metrics"
	"github.com/zsiec/vidqa/internal/server"
	"github.com/zsiec/vidqa/pkg/version"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis tools over HTTP",
		Long: `Starts the HTTP API exposing every analysis tool under /api/v1/tools, together with ` +
			`health endpoints and, when enabled, a Prometheus metrics listener.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load(false)
			if err != nil {
				return err
			}

			info := version.GetInfo()
			log.WithField("version", info.Short()).Info("Starting vidqa analysis server")
			log.WithField("config_path", opts.configPath).Debug("Configuration loaded")
			metrics.SetBuildInfo(info.Version, info.GitCommit, runtime.Version())

			a := newApp(cfg, log)
			defer a.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			healthMgr := health.NewManager(log)
			healthMgr.Register(health.NewProbeChecker(a.probe))
			if a.redis != nil {
				healthMgr.RegisterOptional(health.NewRedisChecker(a.redis))
			}

			if cfg.Metrics.Enabled {
				go func() {
					if err := server.StartMetricsServer(ctx, cfg.Metrics, logger.NewLogrusAdapter(logrus.NewEntry(log))); err != nil {
						log.WithError(err).Error("Metrics server error")
					}
				}()
			}

			handlers := api.NewHandlers(a.engine,
				apperrors.NewErrorHandler(log),
				logger.NewLogrusAdapter(logrus.NewEntry(log)),
				cfg.Server.MaxRequestBytes,
			)

			srv := server.New(&cfg.Server, log, healthMgr)
			srv.RegisterRoutes(func(r *mux.Router) { handlers.RegisterRoutes(r) })

			if err := srv.Start(ctx); err != nil {
				log.WithError(err).Error("Server error")
				return err
			}

			log.Info("Server shutdown complete")
			return nil
		},
	}
}
