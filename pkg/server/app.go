package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinYield/internal/domain/models"
	"FinYield/internal/usecase"
	"FinYield/pkg/cache"
	pkgch "FinYield/pkg/clickhouse"
	"FinYield/pkg/config"
	xhttp "FinYield/pkg/http"
	pkgkafka "FinYield/pkg/kafka"
	"FinYield/pkg/logger"
)

// Runner is one valuation pass.
type Runner interface {
	Run(ctx context.Context) (*models.RunSummary, error)
}

type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

type closer interface {
	Close() error
}

// Deps lists everything the App drives or closes. Consumer, Handler and
// Scheduler may be nil.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	Scheduler  *usecase.Scheduler
	Runner     Runner
	Syncer     Syncer
	Consumer   *pkgkafka.Consumer
	Handler    pkgkafka.MessageHandler
	HTTPServer *xhttp.Server
	ClickHouse *pkgch.Client
	Cache      cache.Service
	Publisher  closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	Deps
}

func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return &App{Deps: d}
}

// Run starts the scheduler, the quote consumer and the HTTP API, then
// blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve is Run with a caller-owned context.
func (a *App) Serve(ctx context.Context) error {
	defer a.close()
	l := a.Logger

	if a.Consumer != nil && a.Handler != nil {
		a.Consumer.RegisterHandler(a.Handler)
		if err := a.Consumer.Start(); err != nil {
			return err
		}
		l.Info("kafka consumer started", logger.String("topic", a.Handler.Topic()))
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Start(); err != nil {
			return err
		}
	}

	schedDone := make(chan struct{})
	schedCtx, cancelSched := context.WithCancel(ctx)
	defer cancelSched()
	go func() {
		defer close(schedDone)
		if a.Scheduler == nil {
			<-schedCtx.Done()
			return
		}
		if err := a.Scheduler.Run(schedCtx); err != nil {
			l.Error("scheduler stopped", logger.Error(err))
		}
	}()
	l.Info("scheduler started",
		logger.Duration("interval", a.Config.Valuation.Interval),
		logger.String("window_start", a.Config.Valuation.Window.Start),
		logger.String("window_stop", a.Config.Valuation.Window.Stop),
	)

	<-ctx.Done()
	l.Info("shutdown signal received")

	cancelSched()
	<-schedDone
	a.shutdown()
	return nil
}

// RunOnce performs a single valuation pass and releases resources.
func (a *App) RunOnce(ctx context.Context) (*models.RunSummary, error) {
	defer a.close()
	return a.Runner.Run(ctx)
}

// SyncIndex refreshes the index series once and releases resources.
func (a *App) SyncIndex(ctx context.Context) (int, error) {
	defer a.close()
	return a.Syncer.Sync(ctx)
}

func (a *App) shutdown() {
	l := a.Logger
	l.Info("shutting down...")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.Error("http shutdown error", logger.Error(err))
		}
	}
	if a.Consumer != nil {
		if err := a.Consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", logger.Error(err))
		}
	}
	l.Info("shutdown complete")
}

// close releases infrastructure clients. The logger digest is flushed
// first while the producer is still open.
func (a *App) close() {
	l := a.Logger
	l.Close()
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			l.Warn("publisher close error", logger.Error(err))
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			l.Warn("redis close error", logger.Error(err))
		}
	}
	if a.ClickHouse != nil {
		if err := a.ClickHouse.Close(); err != nil {
			l.Warn("clickhouse close error", logger.Error(err))
		}
	}
}
