package fluentrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edgeflare/fluentrest/pkg/config"
	"github.com/edgeflare/fluentrest/pkg/httputil"
	mw "github.com/edgeflare/fluentrest/pkg/httputil/middleware"
	"github.com/edgeflare/fluentrest/pkg/metrics"
	"github.com/edgeflare/fluentrest/pkg/notify"
	"github.com/edgeflare/fluentrest/pkg/pgx"
	"github.com/edgeflare/fluentrest/pkg/rest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Mounts the resources declared in the config file and serves them as HAL over HTTP`,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("database.connString", "c", "", "PostgreSQL connection string")
	f.StringP("server.listenAddr", "l", "", "REST server listen address")
	f.String("server.baseURI", "", "URI of the API index; resources are mounted below it")
	f.String("server.version", "", "API version reported in the version header")
	f.Bool("metrics.enabled", false, "Serve Prometheus metrics")
	f.String("metrics.addr", "", "Metrics server listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.File != "" {
		logger.Info("using config file", zap.String("file", cfg.File))
	}
	if cfg.Database.ConnString == "" {
		return errors.New("PostgreSQL connection string required")
	}
	if len(cfg.Resources) == 0 {
		logger.Warn("no resources configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pools := pgx.NewPoolManager()
	defer pools.Close()
	if err := pools.Add(ctx, pgx.DefaultPool, cfg.Database.ConnString); err != nil {
		return err
	}
	for name, connString := range cfg.Database.Pools {
		if err := pools.Add(ctx, name, connString); err != nil {
			return err
		}
	}

	notifiers := []notify.Notifier{notify.LogNotifier{Logger: logger}}
	if len(cfg.NATS.Servers) > 0 {
		nn, err := notify.ConnectNATS(cfg.NATS)
		if err != nil {
			return err
		}
		defer nn.Close()
		notifiers = append(notifiers, nn)
	}

	svc := rest.NewService(
		rest.WithLogger(logger),
		rest.WithNotifier(notify.Multi(notifiers...)),
		rest.WithMetrics(cfg.Metrics.Enabled),
		rest.WithVersionHeader(cfg.Server.VersionHeader, cfg.Server.Version),
	)

	router := httputil.NewRouter(httputil.WithLogger(logger))
	router.Use(mw.RequestID, mw.CORSWithOptions(nil))
	if logLevel != "none" {
		router.Use(mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger}))
	}

	stores := func(pool string) (rest.Store, error) {
		db, err := pools.DB(pool)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	if _, err := config.Mount(svc, router, cfg.Server.BaseURI, cfg.Resources, stores); err != nil {
		return err
	}

	var wg sync.WaitGroup
	if cfg.Metrics.Enabled {
		metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{
			Logger: logger,
			Addr:   cfg.Metrics.Addr,
			Path:   cfg.Metrics.Path,
		})
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Debug("serving resources",
			zap.String("baseURI", cfg.Server.BaseURI),
			zap.Int("resources", len(cfg.Resources)),
			zap.Strings("pools", pools.List()),
		)
		if err := router.ListenAndServe(cfg.Server.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	wg.Wait()

	logger.Info("server gracefully stopped")
	return nil
}
