// Package metrics holds the Prometheus instruments of the ingestion pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	WorkItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lot_ingest_work_items",
			Help: "Work items tracked by each scrape worker cache, labeled by status.",
		},
		[]string{"worker", "status"},
	)
	ScrapeItemsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lot_ingest_scrape_items_processed_total",
			Help: "Detail pages processed by the scrape workers, labeled by outcome.",
		},
		[]string{"worker", "outcome"},
	)
	TaskQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lot_ingest_task_queue_depth",
			Help: "Jobs waiting in a background task queue.",
		},
		[]string{"queue"},
	)
	TasksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lot_ingest_tasks_processed_total",
			Help: "Background jobs executed, labeled by queue and outcome.",
		},
		[]string{"queue", "outcome"},
	)
	ClassificationCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lot_ingest_classification_calls_total",
			Help: "Classification attempts per lot, labeled by audit status.",
		},
		[]string{"status"},
	)
	BreakerOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lot_ingest_classification_breaker_open",
			Help: "1 while the classification circuit breaker is open.",
		},
	)
	StatusCrawlPages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lot_ingest_status_crawl_pages_total",
			Help: "Result pages fetched by the trade status crawler.",
		},
	)
	StatusCrawlDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lot_ingest_status_crawl_duration_seconds",
			Help:    "Duration of a single bidding result crawl in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	RecoveryLotsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lot_ingest_recovery_lots_submitted_total",
			Help: "Lots resubmitted for classification by the recovery scheduler.",
		},
	)
)

func init() {
	prometheus.MustRegister(WorkItems)
	prometheus.MustRegister(ScrapeItemsProcessed)
	prometheus.MustRegister(TaskQueueDepth)
	prometheus.MustRegister(TasksProcessed)
	prometheus.MustRegister(ClassificationCalls)
	prometheus.MustRegister(BreakerOpen)
	prometheus.MustRegister(StatusCrawlPages)
	prometheus.MustRegister(StatusCrawlDuration)
	prometheus.MustRegister(RecoveryLotsSubmitted)
}

// Server exposes /metrics until its context is cancelled
type Server struct {
	addr   string
	logger *logrus.Logger
	srv    *http.Server
}

// NewServer creates a metrics server listening on addr
func NewServer(addr string, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		addr:   addr,
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Name identifies the server in the pipeline
func (s *Server) Name() string {
	return "metrics"
}

// Run serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithField("address", s.addr).Info("Exposing Prometheus metrics")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Stop shuts the server down
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to shut down metrics server")
	}
}
