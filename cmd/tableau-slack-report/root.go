package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/einride/clock-go/pkg/clock"
	report "github.com/einride/tableau-slack-report"
	"github.com/einride/tableau-slack-report/internal/config"
	"github.com/einride/tableau-slack-report/internal/metrics"
	"github.com/einride/tableau-slack-report/internal/server"
	"github.com/einride/tableau-slack-report/pkg/servicestatus"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tableau-slack-report",
		Short:         "Tableau Slack Daily Report Service",
		Long:          "Serves health, status and manual trigger endpoints around the Tableau to Slack report script.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return serve(cmd.Context(), cfg, logger)
		},
	}
	config.RegisterFlags(cmd.PersistentFlags())
	cmd.AddCommand(newTriggerCommand(), newVersionCommand())
	return cmd
}

func newTriggerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Run the report script once and exit with its outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			warnMissingVars(logger, config.NewEnvironment())
			reporter := report.New(&report.Config{
				Script:  cfg.NewScript(),
				Timeout: cfg.Timeout,
				Logger:  logger,
			})
			stop := context.AfterFunc(cmd.Context(), reporter.Close)
			defer stop()
			execution := reporter.Trigger(cmd.Context())
			if !execution.Succeeded() {
				return errors.Errorf("report execution failed: %v", execution.Status)
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", server.ServiceName, servicestatus.Version)
		},
	}
}

func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	logger := report.DefaultLoggerOpts().
		WithOutput(cmd.ErrOrStderr()).
		WithLogLevel(cfg.LogLevel).
		WithJSON(cfg.LogJSON).
		New()
	return cfg, logger, nil
}

func warnMissingVars(logger *zap.Logger, env *config.Environment) {
	missing := env.MissingRequired()
	if len(missing) == 0 {
		return
	}
	logger.Warn("Missing environment variables: " + strings.Join(missing, ", "))
	logger.Warn("Service will start but may not function properly until variables are set")
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	env := config.NewEnvironment()
	warnMissingVars(logger, env)
	systemClock := clock.System()
	record := servicestatus.New(logger.Named("status"), systemClock, servicestatus.Version)
	listeners := []func(report.Execution){record.Observe}
	var metricsHandler http.Handler
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err := metrics.New(reg, env.RequiredSet)
		if err != nil {
			return err
		}
		listeners = append(listeners, m.Observe)
		metricsHandler = metrics.Handler(reg)
	}
	reporter := report.New(&report.Config{
		Script:             cfg.NewScript(),
		ExecutionListeners: listeners,
		Timeout:            cfg.Timeout,
		Clock:              systemClock,
		Logger:             logger.Named("reporter"),
	})
	if err := reporter.Check(ctx); err != nil {
		logger.Warn("report script is not runnable yet", zap.Error(err))
	}
	accessLog, err := server.NewAccessLog(logger)
	if err != nil {
		return errors.Wrap(err, "access log")
	}
	srv := server.New(&server.Config{
		Reporter:    reporter,
		Status:      record,
		Environment: env,
		Clock:       systemClock,
		Logger:      logger.Named("server"),
		AccessLog:   accessLog,
	})
	logger.Info("Starting Tableau Slack Daily Report Web Server...", zap.Stringer("logLevel", cfg.LogLevel))
	logger.Info("Server will be available at http://" + cfg.Addr)
	logger.Info("Health check endpoint: http://" + cfg.Addr + server.PathHealth)
	g, ctx := errgroup.WithContext(ctx)
	runHTTPServer(ctx, g, logger, cfg.ShutdownTimeout, &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	})
	if metricsHandler != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		logger.Info("Metrics endpoint: http://" + cfg.MetricsAddr + "/metrics")
		runHTTPServer(ctx, g, logger, cfg.ShutdownTimeout, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}
	err = g.Wait()
	// Scripts still running once the servers are down would outlive the service.
	reporter.Close()
	return err
}

// runHTTPServer serves s in g until ctx is done, then shuts it down gracefully within shutdownTimeout.
func runHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	logger *zap.Logger,
	shutdownTimeout time.Duration,
	s *http.Server,
) {
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down", zap.String("addr", s.Addr))
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown interrupted in-flight requests", zap.String("addr", s.Addr), zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrapf(err, "serve %s", s.Addr)
		}
		return nil
	})
}
