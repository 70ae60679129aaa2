package observer

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/reply-assistant-go/internal/logger"
	"github.com/anime-shed/reply-assistant-go/internal/worker"
)

// AnalysisEvent describes one step of a screenshot's trip through the service.
type AnalysisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	AnalysisID     string                 `json:"analysis_id,omitempty"`
	Source         string                 `json:"source,omitempty"`
	Tone           string                 `json:"tone,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorType      string                 `json:"error_type,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of analysis event
type EventType string

const (
	ImageReceived     EventType = "image_received"
	ImageNormalized   EventType = "image_normalized"
	ImageRejected     EventType = "image_rejected"
	AnalysisStarted   EventType = "analysis_started"
	AnalysisCompleted EventType = "analysis_completed"
	AnalysisFailed    EventType = "analysis_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

// LoggingObserver logs analysis events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(l *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: l,
	}
}

// OnEvent handles analysis events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"processing_time": event.ProcessingTime.String(),
		"success":         event.Success,
	}
	if event.AnalysisID != "" {
		fields["analysis_id"] = event.AnalysisID
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.Tone != "" {
		fields["tone"] = event.Tone
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
		fields["error_type"] = event.ErrorType
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case ImageReceived:
		entry.Debug("Screenshot received")
	case ImageNormalized:
		entry.Info("Screenshot normalized")
	case ImageRejected:
		entry.Warn("Screenshot rejected")
	case AnalysisStarted:
		entry.Info("Reply analysis started")
	case AnalysisCompleted:
		entry.Info("Reply analysis completed")
	case AnalysisFailed:
		entry.Error("Reply analysis failed")
	default:
		entry.Info("Analysis event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

const namespace = "reply_assistant"

// MetricsObserver exports event counts and durations to Prometheus.
type MetricsObserver struct {
	registry          *prometheus.Registry
	events            *prometheus.CounterVec
	analysisDuration  *prometheus.HistogramVec
	normalizeDuration prometheus.Histogram
	bytesSaved        prometheus.Counter
	inFlight          prometheus.Gauge
}

// NewMetricsObserver creates a metrics observer with its own registry.
func NewMetricsObserver() *MetricsObserver {
	o := &MetricsObserver{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Total number of pipeline events by type",
			},
			[]string{"event", "error_type"},
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Duration of model requests in seconds",
				Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"tone", "status"},
		),
		normalizeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "normalize_duration_seconds",
				Help:      "Duration of image normalization in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		bytesSaved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "normalize_bytes_saved_total",
				Help:      "Bytes removed from uploads by conversion and compression",
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "analyses_in_flight",
				Help:      "Number of model requests currently running",
			},
		),
	}
	o.registry.MustRegister(o.events, o.analysisDuration, o.normalizeDuration, o.bytesSaved, o.inFlight)
	return o
}

// Registry exposes the collectors for the /metrics endpoint.
func (o *MetricsObserver) Registry() *prometheus.Registry {
	return o.registry
}

// PoolStatsSource reports worker pool activity.
type PoolStatsSource interface {
	Stats() worker.Stats
}

// WatchPool exports the pool's counters. Values are read on every scrape.
func (o *MetricsObserver) WatchPool(pool PoolStatsSource) {
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: "worker_pool", Name: name, Help: help}
	}
	read := func(value func(worker.Stats) float64) func() float64 {
		return func() float64 { return value(pool.Stats()) }
	}

	o.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts("workers", "Configured number of pool workers")),
			read(func(s worker.Stats) float64 { return float64(s.Workers) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts("active_workers", "Workers currently running a job")),
			read(func(s worker.Stats) float64 { return float64(s.ActiveWorkers) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts(opts("queued_jobs", "Jobs waiting for a free worker")),
			read(func(s worker.Stats) float64 { return float64(s.QueuedJobs) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("jobs_total", "Jobs accepted by the pool")),
			read(func(s worker.Stats) float64 { return float64(s.TotalJobs) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts(opts("jobs_completed_total", "Jobs finished by the pool")),
			read(func(s worker.Stats) float64 { return float64(s.CompletedJobs) })),
	)
}

// OnEvent handles analysis events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.events.WithLabelValues(string(event.EventType), event.ErrorType).Inc()

	switch event.EventType {
	case ImageNormalized:
		o.normalizeDuration.Observe(event.ProcessingTime.Seconds())
		if saved, ok := event.Metadata["bytes_saved"].(int64); ok && saved > 0 {
			o.bytesSaved.Add(float64(saved))
		}
	case AnalysisStarted:
		o.inFlight.Inc()
	case AnalysisCompleted:
		o.inFlight.Dec()
		o.analysisDuration.WithLabelValues(event.Tone, "success").Observe(event.ProcessingTime.Seconds())
	case AnalysisFailed:
		o.inFlight.Dec()
		o.analysisDuration.WithLabelValues(event.Tone, "error").Observe(event.ProcessingTime.Seconds())
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	logger    *logrus.Logger
}

// NewEventPublisher creates a new event publisher. A nil logger uses the
// package logger.
func NewEventPublisher(l *logrus.Logger) *EventPublisher {
	if l == nil {
		l = logger.Logger
	}
	return &EventPublisher{
		observers: make([]Observer, 0),
		logger:    l,
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer in subscription order
// before returning. A panicking observer is logged and skipped.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		p.notify(ctx, obs, event)
	}
}

func (p *EventPublisher) notify(ctx context.Context, obs Observer, event AnalysisEvent) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
