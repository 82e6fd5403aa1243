// Package scrape runs the discovery loops and background workers that turn
// registry and platform pages into stored biddings and lots.
package scrape

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/browser"
	"github.com/lisanmuaddib/lot-ingest/pkg/metrics"
	"github.com/lisanmuaddib/lot-ingest/pkg/store"
	"github.com/lisanmuaddib/lot-ingest/pkg/workcache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Handler processes one work item with a browser session
type Handler[T any] interface {
	Handle(ctx context.Context, session browser.Session, item T) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc[T any] func(ctx context.Context, session browser.Session, item T) error

// Handle calls f
func (f HandlerFunc[T]) Handle(ctx context.Context, session browser.Session, item T) error {
	return f(ctx, session, item)
}

// Worker drains the pending items of one cache
type Worker[T any] struct {
	name     string
	cache    *workcache.Cache[string, T]
	provider browser.Provider
	handler  Handler[T]
	limiter  *rate.Limiter
	idle     time.Duration
	report   time.Duration
	logger   *logrus.Logger

	done chan struct{}
	once sync.Once
}

// NewWorker creates a worker named name
func NewWorker[T any](name string, cache *workcache.Cache[string, T], provider browser.Provider, handler Handler[T], config *Config) *Worker[T] {
	return &Worker[T]{
		name:     name,
		cache:    cache,
		provider: provider,
		handler:  handler,
		limiter:  rate.NewLimiter(rate.Every(config.Rate), 1),
		idle:     config.IdleInterval,
		report:   config.ReportInterval,
		logger:   config.Logger,
		done:     make(chan struct{}),
	}
}

// Name returns the worker name
func (w *Worker[T]) Name() string {
	return w.name
}

// Run processes pending items until ctx is cancelled or Stop is called.
// With nothing pending the worker sleeps for the idle interval.
func (w *Worker[T]) Run(ctx context.Context) error {
	log := w.logger.WithField("worker", w.name)
	log.Info("Starting scrape worker")

	lastReport := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		default:
		}

		processed := w.Tick(ctx)

		if time.Since(lastReport) >= w.report {
			w.Report()
			lastReport = time.Now()
		}
		if processed > 0 {
			continue
		}

		timer := time.NewTimer(w.idle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-w.done:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Stop ends Run
func (w *Worker[T]) Stop() {
	w.once.Do(func() {
		close(w.done)
	})
}

// Tick processes the current pending snapshot with one browser session and
// returns how many items were attempted
func (w *Worker[T]) Tick(ctx context.Context) int {
	pending := w.cache.GetPending()
	if len(pending) == 0 {
		return 0
	}
	log := w.logger.WithField("worker", w.name)

	session, err := w.provider.Acquire(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to acquire browser session")
		return 0
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.WithError(err).Warn("Failed to release browser session")
		}
	}()

	log.WithField("pending", len(pending)).Debug("Processing pending items")
	attempted := 0
	for _, item := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := w.limiter.Wait(ctx); err != nil {
			break
		}
		attempted++
		w.process(ctx, session, item)
	}
	return attempted
}

func (w *Worker[T]) process(ctx context.Context, session browser.Session, item workcache.Item[string, T]) {
	log := w.logger.WithFields(logrus.Fields{
		"worker": w.name,
		"key":    item.Key,
	})

	err := w.handler.Handle(ctx, session, item.Payload)
	switch {
	case err == nil:
		w.cache.MarkCompleted(item.Key)
		metrics.ScrapeItemsProcessed.WithLabelValues(w.name, "completed").Inc()
	case errors.Is(err, store.ErrDuplicate):
		log.WithError(err).Warn("Duplicate item skipped")
		w.cache.MarkCompleted(item.Key)
		metrics.ScrapeItemsProcessed.WithLabelValues(w.name, "duplicate").Inc()
	default:
		status := w.cache.MarkFailed(item.Key, err)
		metrics.ScrapeItemsProcessed.WithLabelValues(w.name, "failed").Inc()
		if status == workcache.StatusAbandoned {
			log.WithError(err).WithField("attempts", item.Attempts+1).Error("Item abandoned after repeated failures")
			return
		}
		log.WithError(err).WithField("attempts", item.Attempts+1).Warn("Item failed, will retry")
	}
}

// Counts returns the per-status breakdown of the worker's cache
func (w *Worker[T]) Counts() workcache.Counts {
	return w.cache.Counts()
}

// Report logs the cache breakdown and mirrors it to the work item gauges
func (w *Worker[T]) Report() {
	counts := w.cache.Counts()
	metrics.WorkItems.WithLabelValues(w.name, string(workcache.StatusNew)).Set(float64(counts.New))
	metrics.WorkItems.WithLabelValues(w.name, string(workcache.StatusCompleted)).Set(float64(counts.Completed))
	metrics.WorkItems.WithLabelValues(w.name, string(workcache.StatusAbandoned)).Set(float64(counts.Abandoned))

	w.logger.WithFields(logrus.Fields{
		"worker":    w.name,
		"total":     w.cache.Len(),
		"pending":   counts.New,
		"completed": counts.Completed,
		"abandoned": counts.Abandoned,
	}).Info("Scrape worker status")
}
