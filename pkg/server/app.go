package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"RiskPulse/internal/handler/api"
	"RiskPulse/internal/streaming"
	"RiskPulse/internal/usecase"
	pkgcache "RiskPulse/pkg/cache"
	pkgch "RiskPulse/pkg/clickhouse"
	"RiskPulse/pkg/config"
	xhttp "RiskPulse/pkg/http"
	pkgkafka "RiskPulse/pkg/kafka"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/queue"
	"RiskPulse/pkg/ws"
)

// App encapsulates the application lifecycle: the HTTP control surface, the
// streaming pipeline, optional feed collector and Kafka consumer, and the
// audit queue workers.
type App struct {
	cfg           *config.Config
	logger        *applogger.Logger
	pipeline      *streaming.Pipeline
	collector     *usecase.FeedCollector
	consumer      *pkgkafka.Consumer
	eventsHandler *usecase.KafkaEventsHandler
	auditQueue    *queue.RedisQueue
	hub           *ws.Hub
	handler       *api.RiskEchoHandler
	httpServer    *xhttp.Server
	chClient      *pkgch.Client
	producer      *pkgkafka.Producer
	redis         *pkgcache.RedisCache
}

// New creates an App instance with all dependencies. Optional components
// (collector, consumer, audit queue, infrastructure clients) may be nil.
func New(
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
	redis *pkgcache.RedisCache,
) *App {
	return &App{
		cfg:           cfg,
		logger:        logger,
		pipeline:      pipeline,
		collector:     collector,
		consumer:      consumer,
		eventsHandler: eventsHandler,
		auditQueue:    auditQueue,
		hub:           hub,
		handler:       handler,
		chClient:      chClient,
		producer:      producer,
		redis:         redis,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	if a.auditQueue != nil {
		if err := a.auditQueue.Start(); err != nil {
			a.logger.Error("audit queue start error", applogger.Error(err))
			return err
		}
		a.logger.Info("audit queue started")
	}

	if a.cfg.Pipeline.AutoStart {
		if err := a.pipeline.Launch(ctx, a.cfg.Pipeline.Interval); err != nil {
			a.logger.Error("pipeline start error", applogger.Error(err))
			return err
		}
		a.logger.Info("pipeline started",
			applogger.String("engine", a.pipeline.Engine()),
			applogger.Duration("interval", a.cfg.Pipeline.Interval))
	}

	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.logger.Error("feed collector error", applogger.Error(err))
			}
		}()
		a.logger.Info("feed collector started",
			applogger.Strings("channels", a.cfg.Feed.Channels))
	}

	if a.consumer != nil && a.eventsHandler != nil {
		a.consumer.RegisterHandler(a.eventsHandler)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka consumer started",
			applogger.String("topic", a.eventsHandler.Topic()))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services: ingest first, then the HTTP
// surface, then infrastructure clients.
func (a *App) shutdown(ctx context.Context) error {
	a.pipeline.Stop()

	if a.collector != nil {
		a.collector.Stop()
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.auditQueue != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.auditQueue.Stop(stopCtx); err != nil {
			a.logger.Warn("audit queue stop error", applogger.Error(err))
		}
		cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	a.hub.Close()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
