package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "StockInsight/internal/domain/repository"
	"StockInsight/pkg/config"
	xhttp "StockInsight/pkg/http"
	pkgkafka "StockInsight/pkg/kafka"
	applogger "StockInsight/pkg/logger"
)

// Closer is a named resource released on shutdown, in registration order.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	store      domrepo.PayloadStore
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	producer   *pkgkafka.Producer
	closers    []Closer

	janitorDone chan struct{}
}

// New creates a new App instance with all dependencies. consumer and producer
// may be nil when Kafka is disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	store domrepo.PayloadStore,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	handlers ...pkgkafka.MessageHandler,
) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{
		cfg:        cfg,
		log:        l,
		httpServer: httpServer,
		store:      store,
		consumer:   consumer,
		producer:   producer,
		handlers:   handlers,
	}
}

// AddCloser registers a resource to release after the servers have stopped.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, Closer{Name: name, Close: fn})
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.Shutdown(context.Background())
}

// Start launches the consumer, the purge janitor and the HTTP server without
// blocking. ctx bounds the janitor.
func (a *App) Start(ctx context.Context) error {
	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		for _, h := range a.handlers {
			a.log.Info("kafka consumer subscribed", applogger.String("topic", h.Topic()))
		}
	}

	if a.store != nil && a.cfg.Store.PurgeInterval > 0 {
		a.janitorDone = make(chan struct{})
		go a.purgeLoop(ctx, a.cfg.Store.PurgeInterval)
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return err
		}
		a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))
	}
	return nil
}

// purgeLoop drops expired payload rows until ctx is done.
func (a *App) purgeLoop(ctx context.Context, every time.Duration) {
	defer close(a.janitorDone)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.store.PurgeExpired(ctx)
			if err != nil {
				a.log.Warn("purge expired payloads", applogger.Error(err))
				continue
			}
			if n > 0 {
				a.log.Debug("purged expired payloads", applogger.Int64("rows", n))
			}
		}
	}
}

// Shutdown gracefully stops all services. The janitor must already be
// cancelled through the context given to Start.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	// stop ingest before the stores it writes to go away
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.janitorDone != nil {
		select {
		case <-a.janitorDone:
		case <-shutdownCtx.Done():
			a.log.Warn("purge janitor did not stop in time")
		}
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("payload store close error", applogger.Error(err))
		}
	}

	// the producer backs the log collector, so it goes last
	a.log.RemoveCollector()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
