package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "Predictelligence/internal/middleware"
	"Predictelligence/internal/usecase"
	pkgch "Predictelligence/pkg/clickhouse"
	"Predictelligence/pkg/config"
	xhttp "Predictelligence/pkg/http"
	applogger "Predictelligence/pkg/logger"
)

// App encapsulates the application lifecycle: warm-up, scheduler, ledger
// fan-out, and the HTTP server.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	pipeline   *usecase.Pipeline
	scheduler  *usecase.Scheduler
	ledgerPipe *mid.LedgerPipeline
	handler    xhttp.Handler
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	pipeline *usecase.Pipeline,
	scheduler *usecase.Scheduler,
	ledgerPipe *mid.LedgerPipeline,
	handler xhttp.Handler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		pipeline:   pipeline,
		scheduler:  scheduler,
		ledgerPipe: ledgerPipe,
		handler:    handler,
		chClient:   chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.ledgerPipe.Start(ctx)

	// Warm the model on embedded historical macro data so the first live
	// requests already see a ready model.
	if a.cfg.Scheduler.WarmStart {
		if err := a.pipeline.WarmUp(ctx); err != nil {
			a.logger.Warn("warm-up failed, starting cold", applogger.Error(err))
		}
	}

	if a.cfg.Scheduler.Enabled {
		// Scheduler startup failure is the one fatal condition: without the
		// tick loop the process must not report itself healthy.
		if err := a.scheduler.Start(ctx); err != nil {
			a.logger.Error("scheduler start failed", applogger.Error(err))
			return err
		}
	} else {
		a.logger.Warn("scheduler disabled, serving warm-up state only")
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsLogging(a.logger, 2*time.Second),
	)
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("serving predictions",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Bool("scheduler", a.cfg.Scheduler.Enabled),
	)

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.scheduler != nil {
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop error", applogger.Error(err))
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}

	a.ledgerPipe.Stop()

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
