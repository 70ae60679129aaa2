package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/reply-assistant-go/internal/worker"
)

type recordingObserver struct {
	name   string
	events []AnalysisEvent
}

func (r *recordingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	r.events = append(r.events, event)
}

func (r *recordingObserver) GetObserverName() string { return r.name }

type panickingObserver struct{}

func (panickingObserver) OnEvent(ctx context.Context, event AnalysisEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string                          { return "panicking" }

func quietLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.DebugLevel)
	return l, &buf
}

func TestEventPublisher_DeliversSynchronously(t *testing.T) {
	l, _ := quietLogger()
	publisher := NewEventPublisher(l)
	rec := &recordingObserver{name: "rec"}
	publisher.Subscribe(rec)

	publisher.NotifyObservers(context.Background(), AnalysisEvent{EventType: ImageReceived})

	if len(rec.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(rec.events))
	}
	if rec.events[0].Timestamp.IsZero() {
		t.Error("Expected publisher to stamp the event")
	}
}

func TestEventPublisher_PanicDoesNotStopOthers(t *testing.T) {
	l, buf := quietLogger()
	publisher := NewEventPublisher(l)
	rec := &recordingObserver{name: "rec"}
	publisher.Subscribe(panickingObserver{})
	publisher.Subscribe(rec)

	publisher.NotifyObservers(context.Background(), AnalysisEvent{EventType: AnalysisStarted})

	if len(rec.events) != 1 {
		t.Errorf("Expected observer after the panicking one to receive the event, got %d", len(rec.events))
	}
	if !strings.Contains(buf.String(), "Observer panicked") {
		t.Error("Expected panic to be logged")
	}
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	l, _ := quietLogger()
	publisher := NewEventPublisher(l)
	rec := &recordingObserver{name: "rec"}
	publisher.Subscribe(rec)
	publisher.Unsubscribe(rec)

	publisher.NotifyObservers(context.Background(), AnalysisEvent{EventType: AnalysisStarted})

	if len(rec.events) != 0 {
		t.Errorf("Expected no events after unsubscribe, got %d", len(rec.events))
	}
}

func TestLoggingObserver_Fields(t *testing.T) {
	l, buf := quietLogger()
	obs := NewLoggingObserver(l)

	obs.OnEvent(context.Background(), AnalysisEvent{
		EventType:    AnalysisFailed,
		AnalysisID:   "abc",
		Tone:         "witty",
		ErrorType:    "transport",
		ErrorMessage: "Server error. Please try again later.",
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q", buf.String())
	}
	if entry["level"] != "error" {
		t.Errorf("Expected error level, got %v", entry["level"])
	}
	if entry["tone"] != "witty" || entry["error_type"] != "transport" {
		t.Errorf("Expected tone and error_type fields, got %v", entry)
	}
}

func TestMetricsObserver_Counts(t *testing.T) {
	obs := NewMetricsObserver()
	ctx := context.Background()

	obs.OnEvent(ctx, AnalysisEvent{EventType: AnalysisStarted, Tone: "casual"})
	obs.OnEvent(ctx, AnalysisEvent{EventType: AnalysisCompleted, Tone: "casual", ProcessingTime: 2 * time.Second})
	obs.OnEvent(ctx, AnalysisEvent{EventType: AnalysisStarted, Tone: "formal"})
	obs.OnEvent(ctx, AnalysisEvent{EventType: AnalysisFailed, Tone: "formal", ErrorType: "parse"})
	obs.OnEvent(ctx, AnalysisEvent{
		EventType:      ImageNormalized,
		ProcessingTime: 40 * time.Millisecond,
		Metadata:       map[string]interface{}{"bytes_saved": int64(1000)},
	})

	if got := testutil.ToFloat64(obs.events.WithLabelValues(string(AnalysisStarted), "")); got != 2 {
		t.Errorf("Expected 2 started events, got %v", got)
	}
	if got := testutil.ToFloat64(obs.events.WithLabelValues(string(AnalysisFailed), "parse")); got != 1 {
		t.Errorf("Expected 1 failed parse event, got %v", got)
	}
	if got := testutil.ToFloat64(obs.inFlight); got != 0 {
		t.Errorf("Expected 0 in flight, got %v", got)
	}
	if got := testutil.ToFloat64(obs.bytesSaved); got != 1000 {
		t.Errorf("Expected 1000 bytes saved, got %v", got)
	}
	if got := testutil.CollectAndCount(obs.analysisDuration); got != 2 {
		t.Errorf("Expected 2 duration series, got %d", got)
	}
}

type stubPool struct {
	stats worker.Stats
}

func (p *stubPool) Stats() worker.Stats { return p.stats }

func TestMetricsObserver_WatchPool(t *testing.T) {
	obs := NewMetricsObserver()
	pool := &stubPool{stats: worker.Stats{Workers: 4, TotalJobs: 7, CompletedJobs: 5, ActiveWorkers: 2, QueuedJobs: 1}}
	obs.WatchPool(pool)

	expected := `
# HELP reply_assistant_worker_pool_active_workers Workers currently running a job
# TYPE reply_assistant_worker_pool_active_workers gauge
reply_assistant_worker_pool_active_workers 2
# HELP reply_assistant_worker_pool_jobs_completed_total Jobs finished by the pool
# TYPE reply_assistant_worker_pool_jobs_completed_total counter
reply_assistant_worker_pool_jobs_completed_total 5
# HELP reply_assistant_worker_pool_jobs_total Jobs accepted by the pool
# TYPE reply_assistant_worker_pool_jobs_total counter
reply_assistant_worker_pool_jobs_total 7
# HELP reply_assistant_worker_pool_queued_jobs Jobs waiting for a free worker
# TYPE reply_assistant_worker_pool_queued_jobs gauge
reply_assistant_worker_pool_queued_jobs 1
# HELP reply_assistant_worker_pool_workers Configured number of pool workers
# TYPE reply_assistant_worker_pool_workers gauge
reply_assistant_worker_pool_workers 4
`
	if err := testutil.GatherAndCompare(obs.Registry(), strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected pool metrics: %v", err)
	}

	pool.stats.ActiveWorkers = 0
	expected = `
# HELP reply_assistant_worker_pool_active_workers Workers currently running a job
# TYPE reply_assistant_worker_pool_active_workers gauge
reply_assistant_worker_pool_active_workers 0
`
	if err := testutil.GatherAndCompare(obs.Registry(), strings.NewReader(expected), "reply_assistant_worker_pool_active_workers"); err != nil {
		t.Errorf("Expected gauges to follow the pool, got %v", err)
	}
}
