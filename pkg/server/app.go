package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	pkgkafka "SignalDesk/pkg/kafka"
	applogger "SignalDesk/pkg/logger"
)

// Scheduler is a background job runner started after the HTTP server.
type Scheduler interface {
	Start(spec string) error
	Stop(ctx context.Context) error
}

// Sweeper drops idle state on a timer.
type Sweeper interface {
	Sweep() int
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	warmer     Scheduler
	sweeper    Sweeper
}

// New creates a new App around an HTTP server.
func New(cfg *config.Config, log *applogger.Logger, httpServer *xhttp.Server) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{cfg: cfg, log: log, httpServer: httpServer}
}

// SetConsumer attaches a Kafka consumer and the handlers it serves.
func (a *App) SetConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) {
	a.consumer = c
	a.handlers = handlers
}

// SetWarmer attaches the scheduled warm-up job.
func (a *App) SetWarmer(s Scheduler) { a.warmer = s }

// SetSweeper attaches state that is swept once a minute (rate limiter buckets).
func (a *App) SetSweeper(s Sweeper) { a.sweeper = s }

// Run starts the application and blocks until interrupted or the HTTP server fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext is Run with an externally controlled lifetime.
func (a *App) RunContext(ctx context.Context) error {
	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka handlers registered", applogger.Int("handlers", len(a.handlers)))
	}

	if a.warmer != nil && a.cfg.Warmup.Enabled {
		if err := a.warmer.Start(a.cfg.Warmup.Schedule); err != nil {
			a.log.Error("warm-up scheduler error", applogger.Error(err))
		}
	}

	if a.sweeper != nil {
		go a.sweep(ctx)
	}

	errc := a.httpServer.Start()
	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err, ok := <-errc:
		if ok && err != nil {
			runErr = err
		}
	}
	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (a *App) sweep(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.sweeper.Sweep(); n > 0 {
				a.log.Debug("swept idle limiters", applogger.Int("removed", n))
			}
		}
	}
}

// shutdown gracefully stops all services. Infrastructure clients are closed
// by the DI cleanup once Run returns.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	a.log.Info("shutting down...")

	stopErr := a.httpServer.Stop(ctx)
	if stopErr != nil {
		a.log.Error("http shutdown error", applogger.Error(stopErr))
	}
	if a.warmer != nil {
		if err := a.warmer.Stop(ctx); err != nil {
			a.log.Warn("warm-up stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Stop the collector before its producer is closed.
	a.log.RemoveCollector()

	a.log.Info("shutdown complete")
	return stopErr
}
