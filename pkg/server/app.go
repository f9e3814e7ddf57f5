package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	domrepo "FinScout/internal/domain/repository"
	domsvc "FinScout/internal/domain/service"
	"FinScout/internal/middleware"
	"FinScout/internal/scheduler"
	"FinScout/internal/services/classify"
	"FinScout/internal/usecase"
	"FinScout/pkg/config"
	xhttp "FinScout/pkg/http"
	applogger "FinScout/pkg/logger"
	"FinScout/pkg/queue"
)

// Deps carries everything the assembled application needs. Wire fills it
// and hands it to New.
type Deps struct {
	Config      *config.Config
	Logger      *applogger.Logger
	HTTP        *xhttp.Server
	Scheduler   *scheduler.Scheduler
	Pump        *middleware.TickPump // nil when streaming is disabled
	Queue       *queue.MemoryQueue
	Store       domrepo.SignalStore
	Publisher   domrepo.Publisher
	Research    *usecase.Research
	Review      *usecase.Review
	Performance *usecase.Performance
	Export      *usecase.Export
	Notifier    domsvc.Notifier
	LLM         domsvc.LLM
	Classifier  *classify.Chain
}

// App encapsulates the application lifecycle: the scheduler, the ops API,
// the optional tick stream, and the notification queue. One-shot commands
// use the usecases directly and call Close without ever calling Run.
type App struct {
	Deps
}

// New creates a new App instance with all dependencies.
func New(d Deps) *App {
	return &App{Deps: d}
}

// Run starts loop mode and blocks until the context is canceled or an
// interrupt arrives, then drains everything in dependency order.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l := a.Logger

	if err := a.Queue.Start(); err != nil {
		return fmt.Errorf("start notification queue: %w", err)
	}
	if a.Pump != nil {
		a.Pump.Start(ctx)
	}
	a.Scheduler.Start()
	if err := a.HTTP.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	l.Info("application started",
		applogger.String("environment", a.Config.Environment),
		applogger.Int("watchlist", len(a.Config.Watchlist.Symbols)),
		applogger.Int("port", a.Config.Server.Port),
		applogger.Bool("stream", a.Pump != nil),
	)

	if !a.Config.TestMode {
		if err := a.Notifier.Startup(ctx, len(a.Config.Watchlist.Symbols), a.LLM.Available(ctx)); err != nil {
			l.Warn("startup notification failed", applogger.Error(err))
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		l.Info("shutdown signal received", applogger.String("signal", sig.String()))
	case <-ctx.Done():
		l.Info("context canceled, shutting down")
	}
	return a.shutdown()
}

// shutdown stops intake first, then drains in-flight work, then closes
// the sinks. The scheduler waits for running jobs before returning.
func (a *App) shutdown() error {
	l := a.Logger

	a.Scheduler.Stop()
	if a.Pump != nil {
		a.Pump.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.HTTP.Stop(ctx); err != nil {
		l.Warn("http shutdown error", applogger.Error(err))
	}
	if err := a.Queue.Stop(ctx); err != nil {
		l.Warn("queue drain error", applogger.Error(err))
	}
	a.closeSinks()

	l.Info("shutdown complete")
	return nil
}

// Close releases held resources without running loop mode. Safe to call
// when the queue was never started.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Queue.Stop(ctx); err != nil {
		a.Logger.Warn("queue drain error", applogger.Error(err))
	}
	a.closeSinks()
}

func (a *App) closeSinks() {
	l := a.Logger
	if err := a.Publisher.Close(); err != nil {
		l.Warn("publisher close error", applogger.Error(err))
	}
	if err := a.Store.Close(); err != nil {
		l.Warn("store close error", applogger.Error(err))
	}
}
