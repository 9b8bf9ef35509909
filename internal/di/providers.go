package di

import (
	"context"
	"fmt"
	"time"

	"Predictelligence/internal/domain/repository"
	"Predictelligence/internal/handler/api"
	mid "Predictelligence/internal/middleware"
	internalrepo "Predictelligence/internal/repository"
	"Predictelligence/internal/service/cache"
	"Predictelligence/internal/service/macro"
	"Predictelligence/internal/usecase"
	pkgch "Predictelligence/pkg/clickhouse"
	"Predictelligence/pkg/config"
	xhttp "Predictelligence/pkg/http"
	pkgkafka "Predictelligence/pkg/kafka"
	applogger "Predictelligence/pkg/logger"
	"Predictelligence/pkg/metrics"
	"Predictelligence/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideMacroSource creates the live macro data source.
func ProvideMacroSource(cfg *config.Config, logger *applogger.Logger) repository.MacroSource {
	return macro.NewClient(macro.Config{
		Timeout:    cfg.Macro.Timeout,
		BoeURL:     cfg.Macro.BoeURL,
		OnsURL:     cfg.Macro.OnsURL,
		WeatherURL: cfg.Macro.WeatherURL,
		HpiURL:     cfg.Macro.HpiURL,
	}, logger)
}

// ProvideClickHouseClient creates a ClickHouse client when the durable
// ledger backend is configured; nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Ledger.Backend != "clickhouse" {
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
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.PredictionsSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when enabled; nil otherwise.
// The producer doubles as the sink for aggregated error logs when a log
// topic is configured.
func ProvideKafkaProducer(cfg *config.Config, logger *applogger.Logger) (*pkgkafka.Producer, error) {
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
	if cfg.Kafka.LogTopic != "" {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideLedger builds the ledger pipeline: synchronous memory store plus
// async fan-out to whichever durable sinks are configured.
func ProvideLedger(
	cfg *config.Config,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	m repository.Metrics,
) *mid.LedgerPipeline {
	memory := internalrepo.NewMemoryLedger(cfg.Ledger.MemoryCapacity)

	opts := []mid.Option{mid.WithBufferSize(cfg.Ledger.BufferSize)}
	if chClient != nil {
		opts = append(opts, mid.WithHistorySource(
			internalrepo.NewClickHouseLedger(chClient.DB(), cfg.ClickHouse.Database+".predictions")))
	}
	if producer != nil {
		opts = append(opts, mid.WithArchive(
			internalrepo.NewKafkaLedgerPublisher(producer, cfg.Kafka.Topic)))
	}
	return mid.NewLedgerPipeline(memory, m, opts...)
}

// ProvideCache selects the response cache backend: Redis when configured,
// otherwise an in-process TTL map; nil when caching is disabled.
func ProvideCache(cfg *config.Config) cache.BytesCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	if cfg.Cache.Redis.Enabled {
		return cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return cache.NewTTLCache()
}

// ProvidePipeline assembles the prediction pipeline.
func ProvidePipeline(
	source repository.MacroSource,
	ledger *mid.LedgerPipeline,
	m repository.Metrics,
	cfg *config.Config,
	logger *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(
		source,
		usecase.NewFeatureEngineer(),
		usecase.NewOnlineModel(cfg.Model.LearningRate, cfg.Model.L2Penalty),
		usecase.NewSignalDeriver(),
		ledger,
		m,
		logger,
	)
}

// ProvideScheduler creates the background tick scheduler.
func ProvideScheduler(pipeline *usecase.Pipeline, cfg *config.Config, logger *applogger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(pipeline, cfg.Scheduler.Interval, logger)
}

// ProvideHandler creates the prediction HTTP handler.
func ProvideHandler(
	logger *applogger.Logger,
	pipeline *usecase.Pipeline,
	c cache.BytesCache,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewPredictionHandler(logger, pipeline, c, cfg.Cache.TTL)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	pipeline *usecase.Pipeline,
	scheduler *usecase.Scheduler,
	ledger *mid.LedgerPipeline,
	handler xhttp.Handler,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, logger, pipeline, scheduler, ledger, handler, chClient)
}
