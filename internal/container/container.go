package container

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anime-shed/reply-assistant-go/internal/config"
	"github.com/anime-shed/reply-assistant-go/internal/factory"
	"github.com/anime-shed/reply-assistant-go/internal/imaging"
	"github.com/anime-shed/reply-assistant-go/internal/logger"
	"github.com/anime-shed/reply-assistant-go/internal/observer"
	"github.com/anime-shed/reply-assistant-go/internal/reply"
	"github.com/anime-shed/reply-assistant-go/internal/repository"
	"github.com/anime-shed/reply-assistant-go/internal/service"
	"github.com/anime-shed/reply-assistant-go/internal/transport"
	"github.com/anime-shed/reply-assistant-go/internal/worker"
	"github.com/anime-shed/reply-assistant-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config       *config.Config
	pool         *worker.Pool
	replyClient  *reply.Client
	metrics      *observer.MetricsObserver
	replyService service.ReplyService
	handler      http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	replyClient, err := reply.NewClient(ctx, reply.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		return nil, err
	}

	pool := worker.NewPool(cfg.MaxWorkers)
	pool.Start()

	metrics := observer.NewMetricsObserver()
	metrics.Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.WatchPool(pool)

	publisher := observer.NewEventPublisher(logger.Logger)
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	replyService := service.NewReplyService(
		imaging.NewPipeline(),
		replyClient,
		repository.NewMemoryAnalysisRepository(cfg.ResultTTL, cfg.ResultCacheSize),
		factory.NewStorageFactory(cfg),
		validation.NewURLValidator(),
		pool,
		publisher,
		service.Options{
			MaxTransmissionSizeMB: cfg.MaxTransmissionSizeMB,
			AnalysisTimeout:       cfg.AnalysisTimeout,
		},
	)

	metricsHandler := promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})

	return &Container{
		config:       cfg,
		pool:         pool,
		replyClient:  replyClient,
		metrics:      metrics,
		replyService: replyService,
		handler:      transport.NewHandler(replyService, metricsHandler, cfg),
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// ReplyClient returns the model client.
func (c *Container) ReplyClient() *reply.Client {
	return c.replyClient
}

// Close stops background workers. Queued jobs still finish.
func (c *Container) Close() {
	c.pool.Close()
}
