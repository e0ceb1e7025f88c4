package di

import (
	"context"
	"fmt"
	"time"

	"RiskPulse/internal/domain/repository"
	"RiskPulse/internal/handler/api"
	"RiskPulse/internal/pricing"
	internalrepo "RiskPulse/internal/repository"
	"RiskPulse/internal/risk"
	"RiskPulse/internal/service/feed"
	"RiskPulse/internal/simulator"
	"RiskPulse/internal/streaming"
	"RiskPulse/internal/usecase"
	pkgcache "RiskPulse/pkg/cache"
	pkgch "RiskPulse/pkg/clickhouse"
	"RiskPulse/pkg/config"
	pkghttp "RiskPulse/pkg/http"
	pkgkafka "RiskPulse/pkg/kafka"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/metrics"
	"RiskPulse/pkg/queue"
	"RiskPulse/pkg/server"
	"RiskPulse/pkg/ws"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when storage
// is disabled.
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
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideAssessmentStore creates the assessment store: ClickHouse when
// available, otherwise a bounded in-memory buffer.
func ProvideAssessmentStore(chClient *pkgch.Client) (repository.AssessmentStore, error) {
	if chClient == nil {
		return internalrepo.NewMemoryAssessmentStore(10000), nil
	}
	store := internalrepo.NewClickHouseAssessmentStore(chClient)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("assessment schema: %w", err)
	}
	return store, nil
}

// ProvideRedisCache creates a Redis cache, or nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService builds the read cache: layered memory+Redis when
// Redis is available, in-memory only otherwise.
func ProvideCacheService(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc == nil {
		return pkgcache.NewMemoryCache()
	}
	return pkgcache.NewLayeredCache(rc)
}

// ProvideAuditLog creates the audit publisher. With Redis the entry is
// enqueued for the queue consumer; without, entries go to the structured log.
func ProvideAuditLog(rc *pkgcache.RedisCache, logger *applogger.Logger) repository.AuditLog {
	if rc == nil {
		return internalrepo.NewLogAuditLog(logger)
	}
	publisher := queue.NewRedisPublisher(logger, rc.Client())
	return internalrepo.NewQueueAuditLog(publisher)
}

// ProvideAuditQueue creates the audit queue consumer writing entries to
// ClickHouse. Nil when Redis or ClickHouse is unavailable.
func ProvideAuditQueue(cfg *config.Config, rc *pkgcache.RedisCache, chClient *pkgch.Client, logger *applogger.Logger) *queue.RedisQueue {
	if rc == nil || chClient == nil {
		return nil
	}
	store := internalrepo.NewClickHouseAssessmentStore(chClient)
	return queue.NewRedisConsumer(logger, &queue.QueueConfig{
		Workers:    cfg.Redis.Queue.Workers,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}, rc.Client(), []queue.Job{internalrepo.NewAuditJob(store)})
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideHub creates the WebSocket broadcast hub.
func ProvideHub(logger *applogger.Logger) *ws.Hub {
	return ws.NewHub(logger)
}

// ProvideBroadcaster fans risk updates out to WebSocket subscribers and,
// when configured, a Kafka topic.
func ProvideBroadcaster(hub *ws.Hub, producer *pkgkafka.Producer, cfg *config.Config) repository.Broadcaster {
	targets := []repository.Broadcaster{internalrepo.NewWSBroadcaster(hub)}
	if producer != nil {
		targets = append(targets, internalrepo.NewKafkaBroadcaster(producer, cfg.Kafka.UpdatesTopic))
	}
	return internalrepo.NewCompositeBroadcaster(targets...)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRiskEngine creates the scoring engine with configured thresholds.
func ProvideRiskEngine(cfg *config.Config) *risk.Engine {
	return risk.NewEngine(risk.Thresholds{
		Low:    cfg.Risk.Thresholds.Low,
		Medium: cfg.Risk.Thresholds.Medium,
		High:   cfg.Risk.Thresholds.High,
	})
}

// ProvidePricer creates the options pricing model.
func ProvidePricer() *pricing.Black76 {
	return pricing.NewBlack76()
}

// ProvideSimulator creates the synthetic event generator.
func ProvideSimulator(pricer *pricing.Black76) *simulator.Generator {
	return simulator.New(pricer)
}

// ProvideAlertCreator creates the alert collaborator: HTTP client when an
// alert service is configured, structured log fallback otherwise.
func ProvideAlertCreator(cfg *config.Config, logger *applogger.Logger) repository.AlertCreator {
	if cfg.Alerts.ServiceURL == "" {
		return internalrepo.NewLogAlertCreator(logger)
	}
	client := pkghttp.NewClient(pkghttp.WithTimeout(cfg.Alerts.Timeout))
	return internalrepo.NewHTTPAlertClient(client, cfg.Alerts.ServiceURL, cfg.Alerts.APIKey)
}

// ProvideEventProcessor creates the scoring/dispatch use case.
func ProvideEventProcessor(
	engine *risk.Engine,
	store repository.AssessmentStore,
	audit repository.AuditLog,
	alerts repository.AlertCreator,
	broadcast repository.Broadcaster,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.EventProcessor {
	return usecase.NewEventProcessor(engine, store, audit, alerts, broadcast, m, logger)
}

// ProvidePipeline creates the streaming pipeline over the simulator source.
func ProvidePipeline(sim *simulator.Generator, processor *usecase.EventProcessor, cfg *config.Config, logger *applogger.Logger) *streaming.Pipeline {
	return streaming.NewPipeline(sim, processor, logger,
		streaming.WithEngine(cfg.Pipeline.Engine),
		streaming.WithBufferSize(cfg.Pipeline.BufferSize),
	)
}

// ProvideAssessmentQuery creates the read-path use case.
func ProvideAssessmentQuery(store repository.AssessmentStore, c pkgcache.Service, logger *applogger.Logger) *usecase.AssessmentQuery {
	return usecase.NewAssessmentQuery(store, c, logger)
}

// ProvideFeedCollector creates the external feed collector when a feed is
// configured.
func ProvideFeedCollector(cfg *config.Config, processor *usecase.EventProcessor, logger *applogger.Logger) *usecase.FeedCollector {
	if !cfg.Feed.Enabled {
		return nil
	}
	stream := feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Channels,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		logger,
	)
	return usecase.NewFeedCollector(stream, processor, cfg.Feed.ReconnectDelay, logger)
}

// ProvideKafkaConsumer creates the entity events consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaEventsHandler scores events arriving on the events topic.
func ProvideKafkaEventsHandler(cfg *config.Config, processor *usecase.EventProcessor, logger *applogger.Logger) *usecase.KafkaEventsHandler {
	return usecase.NewKafkaEventsHandler(cfg.Kafka.EventsTopic, processor, logger)
}

// ProvideRiskHandler creates the HTTP control surface.
func ProvideRiskHandler(
	logger *applogger.Logger,
	query *usecase.AssessmentQuery,
	processor *usecase.EventProcessor,
	pipeline *streaming.Pipeline,
	engine *risk.Engine,
	pricer *pricing.Black76,
	sim *simulator.Generator,
	store repository.AssessmentStore,
	hub *ws.Hub,
	cfg *config.Config,
) *api.RiskEchoHandler {
	return api.NewRiskEchoHandler(logger, query, processor, pipeline, engine, pricer, sim, store, hub, cfg.Pipeline.Interval)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	pipeline *streaming.Pipeline,
	collector *usecase.FeedCollector,
	consumer *pkgkafka.Consumer,
	eventsHandler *usecase.KafkaEventsHandler,
	auditQueue *queue.RedisQueue,
	hub *ws.Hub,
	handler *api.RiskEchoHandler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	rc *pkgcache.RedisCache,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, logger, pipeline, collector, consumer, eventsHandler, auditQueue, hub, handler, chClient, producer, rc)
}
