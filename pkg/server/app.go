package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "AutoValue/pkg/http"
	pkgkafka "AutoValue/pkg/kafka"
	applogger "AutoValue/pkg/logger"
)

const (
	sweepInterval = time.Minute
	limiterIdle   = 10 * time.Minute
)

// Sweeper runs periodic cleanup until ctx is done.
type Sweeper interface {
	Sweep(ctx context.Context, interval time.Duration)
}

// Pruner drops idle state older than maxIdle.
type Pruner interface {
	Prune(maxIdle time.Duration) int
}

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	logger     *applogger.Logger
	httpServer *xhttp.Server

	consumer *pkgkafka.Consumer
	handler  pkgkafka.MessageHandler
	feed     interface{ Close() }
	sweepers []Sweeper
	pruners  []Pruner
	closers  []namedCloser
}

type Option func(*App)

// WithConsumer runs the Kafka consumer with handler. Nil values are ignored.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if c != nil && h != nil {
			a.consumer = c
			a.handler = h
		}
	}
}

// WithFeed closes the live feed on shutdown, before the infrastructure.
func WithFeed(f interface{ Close() }) Option {
	return func(a *App) { a.feed = f }
}

func WithSweeper(s Sweeper) Option {
	return func(a *App) { a.sweepers = append(a.sweepers, s) }
}

func WithPruner(p Pruner) Option {
	return func(a *App) { a.pruners = append(a.pruners, p) }
}

// WithCloser registers a resource closed on shutdown. Closers run in
// registration order after the log collector has been flushed.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) { a.closers = append(a.closers, namedCloser{name: name, c: c}) }
}

// New creates a new App instance with all dependencies.
func New(logger *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	if logger == nil {
		logger = applogger.NewNop()
	}
	a := &App{logger: logger, httpServer: httpServer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done or the
// HTTP listener fails, then shuts everything down.
func (a *App) RunContext(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, s := range a.sweepers {
		go s.Sweep(bgCtx, sweepInterval)
	}
	if len(a.pruners) > 0 {
		go a.prune(bgCtx)
	}

	if a.consumer != nil {
		a.consumer.RegisterHandler(a.handler)
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer start error", applogger.Error(err))
			a.shutdown()
			return fmt.Errorf("start consumer: %w", err)
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.handler.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-a.httpServer.Errors():
		a.logger.Error("http server failed", applogger.Error(err))
		runErr = fmt.Errorf("http server: %w", err)
	}

	cancel()
	a.shutdown()
	return runErr
}

func (a *App) prune(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range a.pruners {
				p.Prune(limiterIdle)
			}
		}
	}
}

// shutdown stops intake first, then flushes logs, then closes infrastructure.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	if a.feed != nil {
		a.feed.Close()
	}

	// the collector publishes through the producer, flush it first
	a.logger.RemoveCollector()

	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
}
