// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"adforge/internal/pkg/config"
	"adforge/internal/pkg/logger"
	"adforge/internal/tracing"
)

// AppCtx is handed to the service's wiring function once the shared
// components are up.
type AppCtx struct {
	Mux    *http.ServeMux
	Config config.Config
}

// Worker is a long-running background component (e.g. a kafka consumer)
// managed by the bootstrap lifecycle.
type Worker interface {
	Start(ctx context.Context)
	Stop(ctx context.Context)
}

// AppInfo describes one service binary.
type AppInfo struct {
	ServiceName string
	Port        int
	// RegisterHandlers wires routes and returns the background workers to
	// run and a cleanup to call on shutdown. Either may be nil.
	RegisterHandlers func(appCtx AppCtx) ([]Worker, func())
}

// StartService runs the shared startup and graceful-shutdown sequence:
// config, logging, tracing, HTTP server, workers, then teardown in reverse
// on SIGINT/SIGTERM.
func StartService(info AppInfo) {
	logger.Init(info.ServiceName)

	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer provider")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	mux := http.NewServeMux()
	var workers []Worker
	var cleanup func()
	if info.RegisterHandlers != nil {
		workers, cleanup = info.RegisterHandlers(AppCtx{Mux: mux, Config: cfg})
	}

	for _, w := range workers {
		w.Start(rootCtx)
	}

	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}
	g, gCtx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		logger.Logger.Info().Str("addr", server.Addr).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, w := range workers {
			w.Stop(shutdownCtx)
		}
		if cleanup != nil {
			cleanup()
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error().Err(err).Msg("Tracer provider shutdown failed")
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Logger.Error().Err(err).Msg("Service exited with error")
	}
	logger.Logger.Info().Msgf("%s shut down", info.ServiceName)
}
