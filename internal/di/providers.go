package di

import (
	"context"
	"fmt"
	"time"

	"StockInsight/internal/chart"
	"StockInsight/internal/domain/repository"
	"StockInsight/internal/handler/api"
	internalrepo "StockInsight/internal/repository"
	"StockInsight/internal/service/forecast"
	"StockInsight/internal/service/ratelimit"
	"StockInsight/internal/service/stream"
	"StockInsight/internal/usecase"
	"StockInsight/pkg/cache"
	pkgch "StockInsight/pkg/clickhouse"
	"StockInsight/pkg/config"
	xhttp "StockInsight/pkg/http"
	pkgkafka "StockInsight/pkg/kafka"
	applogger "StockInsight/pkg/logger"
	"StockInsight/pkg/metrics"
	"StockInsight/pkg/server"
)

// memoryArchiveDepth bounds the in-process signal history per symbol.
const memoryArchiveDepth = 1000

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: "stockinsight",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off. The
// producer also ships aggregated error logs when the collector is enabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Logging.Collector.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.Interval,
			CountThreshold: cfg.Logging.Collector.Threshold,
			Topic:          cfg.Logging.Collector.Topic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when Kafka is off.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideClickHouseClient creates a ClickHouse client and the signal history
// table, or nil when ClickHouse is off.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SignalArchiveSchema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideSQLiteStore opens the durable payload store.
func ProvideSQLiteStore(cfg *config.Config, l *applogger.Logger) (*internalrepo.SQLitePayloadStore, error) {
	s, err := internalrepo.NewSQLitePayloadStore(cfg.Store.SQLitePath, cfg.Store.TTL)
	if err != nil {
		return nil, err
	}
	s.SetLogger(l)
	return s, nil
}

// ProvideCache builds the payload cache for the configured backend. It returns
// nil for "none".
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	redisCache := func() (*cache.RedisCache, error) {
		c, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}

	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize)), nil
	case "redis":
		c, err := redisCache()
		if err != nil {
			return nil, err
		}
		return c, nil
	case "layered":
		l2, err := redisCache()
		if err != nil {
			return nil, err
		}
		return cache.NewLayeredCache(l2, cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize)), nil
	}
	return nil, nil
}

// ProvidePayloadStore fronts the SQLite store with the cache when one is
// configured.
func ProvidePayloadStore(cfg *config.Config, sqlite *internalrepo.SQLitePayloadStore, c cache.Service,
	m repository.Metrics, l *applogger.Logger) repository.PayloadStore {
	if c == nil {
		return sqlite
	}
	cs := internalrepo.NewCachedPayloadStore(sqlite, c, cfg.Cache.TTL, cfg.Cache.Backend, m)
	cs.SetLogger(l)
	return cs
}

// ProvideSignalArchive stores signal history in ClickHouse, or in memory when
// ClickHouse is off.
func ProvideSignalArchive(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.SignalArchive {
	if ch == nil {
		return internalrepo.NewMemorySignalArchive(memoryArchiveDepth)
	}
	a := internalrepo.NewCHSignalArchive(ch, cfg.ClickHouse.Table)
	a.SetLogger(l)
	return a
}

// ProvideSignalPublisher publishes signal events on Kafka when it is enabled.
func ProvideSignalPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.SignalPublisher {
	if producer == nil {
		return internalrepo.NoopSignalPublisher{}
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topics.Signals)
}

// ProvideForecastSource creates the upstream forecast client.
func ProvideForecastSource(cfg *config.Config, l *applogger.Logger) repository.ForecastSource {
	return forecast.NewClient(forecast.Options{
		BaseURL:        cfg.Forecast.BaseURL,
		APIToken:       cfg.Forecast.APIToken,
		Timeout:        cfg.Forecast.Timeout,
		MaxElapsed:     cfg.Forecast.MaxElapsed,
		RequestsPerSec: cfg.Forecast.RequestsPerSec,
	}, l)
}

// ProvideHub creates the websocket fan-out hub.
func ProvideHub(l *applogger.Logger) *stream.Hub {
	return stream.NewHub(l)
}

// ProvideChartService creates the chart use case.
func ProvideChartService(
	cfg *config.Config,
	store repository.PayloadStore,
	source repository.ForecastSource,
	archive repository.SignalArchive,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ChartService {
	d := cfg.Chart.Defaults
	opts := []usecase.ChartServiceOption{
		usecase.WithDefaultToggles(chart.Toggles{SMA: d.SMA, EMA: d.EMA, BB: d.BB, Volume: d.Volume}),
		usecase.WithChartLogger(l),
	}
	if rl, ok := store.(usecase.RefreshLocker); ok {
		opts = append(opts, usecase.WithRefreshLocker(rl, cfg.Forecast.Timeout))
	}
	return usecase.NewChartService(store, source, archive, m, opts...)
}

// ProvidePredictionHandler creates the Kafka ingest handler.
func ProvidePredictionHandler(
	cfg *config.Config,
	store repository.PayloadStore,
	archive repository.SignalArchive,
	pub repository.SignalPublisher,
	hub *stream.Hub,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.PredictionHandler {
	return usecase.NewPredictionHandler(cfg.Kafka.Topics.Predictions, store, archive, pub, hub, m, l)
}

// ProvideChartHandler creates the HTTP handler with dependency health checks.
func ProvideChartHandler(
	svc *usecase.ChartService,
	hub *stream.Hub,
	sqlite *internalrepo.SQLitePayloadStore,
	ch *pkgch.Client,
	l *applogger.Logger,
) *api.ChartHandler {
	h := api.NewChartHandler(svc, hub, l)
	h.AddHealthCheck("sqlite", func(ctx context.Context) error { return sqlite.DB().PingContext(ctx) })
	if ch != nil {
		h.AddHealthCheck("clickhouse", ch.Health)
	}
	return h
}

// ProvideHTTPServer creates the Echo server with rate limiting.
func ProvideHTTPServer(cfg *config.Config, h *api.ChartHandler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS, cfg.Server.CORSOrigins...),
		xhttp.WithLogger(l),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithMiddleware(ratelimit.Middleware(limiter, "/healthz", metricsPath, "/ws/signals")),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	store repository.PayloadStore,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	kh *usecase.PredictionHandler,
	archive repository.SignalArchive,
	pub repository.SignalPublisher,
	hub *stream.Hub,
	ch *pkgch.Client,
) *server.App {
	app := server.New(cfg, l, srv, store, consumer, producer, kh)
	app.AddCloser("signal_hub", func() error { hub.Close(); return nil })
	app.AddCloser("signal_archive", archive.Close)
	app.AddCloser("signal_publisher", pub.Close)
	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	return app
}
