package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"AutoValue/internal/domain/repository"
	"AutoValue/internal/handler/api"
	internalrepo "AutoValue/internal/repository"
	"AutoValue/internal/service/cache"
	"AutoValue/internal/service/feed"
	svcmetrics "AutoValue/internal/service/metrics"
	"AutoValue/internal/service/ratelimit"
	"AutoValue/internal/services/artifacts"
	"AutoValue/internal/usecase"
	pkgch "AutoValue/pkg/clickhouse"
	"AutoValue/pkg/config"
	xhttp "AutoValue/pkg/http"
	pkgkafka "AutoValue/pkg/kafka"
	applogger "AutoValue/pkg/logger"
	"AutoValue/pkg/metrics"
	"AutoValue/pkg/server"
)

const serviceName = "autovalue"

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: serviceName,
	})
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

func ProvideAPIMetrics(reg *prometheus.Registry) *svcmetrics.APIMetrics {
	return svcmetrics.NewAPIMetrics(reg)
}

// ProvideValuator loads the trained pipeline once. A missing artifact is not
// fatal: the service starts and refuses valuations until redeployed.
func ProvideValuator(cfg *config.Config, logger *applogger.Logger) *usecase.Valuator {
	loader := artifacts.NewLoader(logger,
		artifacts.WithDirs(cfg.Model.Dirs...),
		artifacts.WithManifestFile(cfg.Model.ManifestFile),
		artifacts.WithColumnsFile(cfg.Model.ColumnsFile),
		artifacts.WithTimeout(cfg.Model.Timeout),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	predictor, schema := loader.Load(ctx)
	if predictor == nil {
		logger.Warn("price pipeline not found, valuations disabled", applogger.Strings("dirs", cfg.Model.Dirs))
	}
	return usecase.NewValuator(predictor, schema)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogShipping attaches the error-log collector when enabled.
func ProvideLogShipping(cfg *config.Config, logger *applogger.Logger, producer *pkgkafka.Producer) LogShipping {
	if !cfg.Log.Collect.Enabled || producer == nil {
		return LogShipping{}
	}
	logger.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   cfg.Log.Collect.Interval,
		CountThreshold: cfg.Log.Collect.Threshold,
		Topic:          cfg.Kafka.LogsTopic,
		Publisher:      producer,
	})
	return LogShipping{Enabled: true}
}

// LogShipping records whether error logs are shipped to Kafka.
type LogShipping struct{ Enabled bool }

// ProvideClickHouseClient creates a ClickHouse client, or nil when history is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ValuationSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache returns a Redis cache when the backend uses Redis.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	switch cfg.Valuation.CacheBackend {
	case config.CacheRedis, config.CacheLayered:
	default:
		return nil, nil
	}
	rc := cache.NewRedisCache(cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rc, nil
}

// ProvideTTLCache returns the in-process cache when the backend uses one.
func ProvideTTLCache(cfg *config.Config) *cache.TTLCache {
	switch cfg.Valuation.CacheBackend {
	case config.CacheMemory, config.CacheLayered:
		return cache.NewTTLCache()
	default:
		return nil
	}
}

// ProvideResultCache picks the configured backend. Returns a nil interface
// when caching is off.
func ProvideResultCache(cfg *config.Config, rc *cache.RedisCache, tc *cache.TTLCache) cache.BytesCache {
	switch {
	case rc != nil && tc != nil:
		return cache.NewLayeredCache(tc, rc, cfg.Valuation.LocalTTL)
	case rc != nil:
		return rc
	case tc != nil:
		return tc
	default:
		return nil
	}
}

func ProvideValuationStore(ch *pkgch.Client) repository.ValuationStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHValuationStore(ch.DB(), ch.Database())
}

func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.EventsTopic, cfg.Kafka.ResultsTopic)
}

// ProvideFeedHub creates the websocket feed, or nil when disabled.
func ProvideFeedHub(cfg *config.Config, logger *applogger.Logger) *feed.Hub {
	if !cfg.Feed.Enabled {
		return nil
	}
	return feed.NewHub(logger,
		feed.WithPingInterval(cfg.Feed.PingInterval),
		feed.WithSendBuffer(cfg.Feed.SendBuffer),
		feed.WithOrigins(cfg.Server.CORSOrigins),
	)
}

// ProvideValuationService decorates the valuator with the enabled side effects.
func ProvideValuationService(
	cfg *config.Config,
	valuator *usecase.Valuator,
	resultCache cache.BytesCache,
	store repository.ValuationStore,
	publisher repository.EventPublisher,
	hub *feed.Hub,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.ValuationService {
	opts := []usecase.ServiceOption{usecase.WithMetrics(m), usecase.WithLogger(logger)}
	if resultCache != nil {
		opts = append(opts, usecase.WithCache(resultCache, cfg.Valuation.CacheTTL))
	}
	if store != nil {
		opts = append(opts, usecase.WithStore(store))
	}
	if publisher != nil {
		opts = append(opts, usecase.WithPublisher(publisher))
	}
	if hub != nil {
		opts = append(opts, usecase.WithBroadcaster(hub))
	}
	return usecase.NewValuationService(valuator, opts...)
}

// ProvideRateLimiter returns the per-client limiter, or nil when disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.Valuation.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.Valuation.RateLimit.Capacity, cfg.Valuation.RateLimit.RefillPerSec)
}

func ProvideValuationsHandler(
	logger *applogger.Logger,
	svc *usecase.ValuationService,
	hub *feed.Hub,
	m *svcmetrics.APIMetrics,
	limiter *ratelimit.Limiter,
) *api.ValuationsEchoHandler {
	return api.NewValuationsEchoHandler(logger, svc, hub, m, limiter)
}

// ProvideHTTPServer builds the Echo server from config.
func ProvideHTTPServer(cfg *config.Config, h *api.ValuationsEchoHandler, logger *applogger.Logger, reg *prometheus.Registry) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithCORS(cfg.Server.CORSOrigins),
		xhttp.WithLogger(logger),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, reg))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideKafkaConsumer creates the request-stream consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, reg *prometheus.Registry, logger *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerRegisterer(reg),
		pkgkafka.WithConsumerLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook{Logger: logger, Slow: time.Second})
	return consumer, nil
}

// ProvideRequestsHandler answers valuation requests from Kafka, or nil when
// the consumer is disabled.
func ProvideRequestsHandler(
	cfg *config.Config,
	svc *usecase.ValuationService,
	publisher repository.EventPublisher,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.KafkaRequestsHandler {
	if !cfg.Kafka.Consumer.Enabled || publisher == nil {
		return nil
	}
	return usecase.NewKafkaRequestsHandler(cfg.Kafka.RequestsTopic, svc, publisher, m, logger)
}

// ProvideApp creates the application server.
func ProvideApp(
	logger *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	requests *usecase.KafkaRequestsHandler,
	producer *pkgkafka.Producer,
	_ LogShipping,
	ch *pkgch.Client,
	rc *cache.RedisCache,
	tc *cache.TTLCache,
	hub *feed.Hub,
	limiter *ratelimit.Limiter,
) *server.App {
	var opts []server.Option
	if consumer != nil && requests != nil {
		opts = append(opts, server.WithConsumer(consumer, requests))
	}
	if hub != nil {
		opts = append(opts, server.WithFeed(hub))
	}
	if tc != nil {
		opts = append(opts, server.WithSweeper(tc))
	}
	if limiter != nil {
		opts = append(opts, server.WithPruner(limiter))
	}
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka producer", producer))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	if rc != nil {
		opts = append(opts, server.WithCloser("redis", rc))
	}
	return server.New(logger, httpServer, opts...)
}
