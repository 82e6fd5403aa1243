// Package tasks runs deferred background jobs one at a time, each inside
// its own freshly opened scope.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/metrics"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrStopped is returned by Dequeue once the queue has been stopped
var ErrStopped = errors.New("task queue stopped")

// Scope holds the per-job resources. It is opened before a job runs and
// closed right after, so no job ever shares a database session with another.
type Scope interface {
	DB() *gorm.DB
	Close() error
}

// ScopeFactory opens a fresh Scope for one job
type ScopeFactory func(ctx context.Context) (Scope, error)

// Job is a named unit of deferred work
type Job struct {
	Name string
	Run  func(ctx context.Context, scope Scope) error
}

// Queue is an unbounded FIFO of jobs with exactly one consumer
type Queue struct {
	name    string
	scopes  ScopeFactory
	logger  *logrus.Logger
	mu      sync.Mutex
	jobs    []Job
	signal  chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewQueue creates an empty queue
func NewQueue(name string, scopes ScopeFactory, logger *logrus.Logger) *Queue {
	if logger == nil {
		logger = logrus.New()
	}
	return &Queue{
		name:    name,
		scopes:  scopes,
		logger:  logger,
		signal:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Name identifies the queue in the pipeline
func (q *Queue) Name() string {
	return q.name
}

// Enqueue appends a job. It never blocks.
func (q *Queue) Enqueue(job Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	depth := len(q.jobs)
	q.mu.Unlock()

	metrics.TaskQueueDepth.WithLabelValues(q.name).Set(float64(depth))

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Dequeue blocks until a job is available, ctx is done or the queue is stopped.
func (q *Queue) Dequeue(ctx context.Context) (Job, error) {
	for {
		q.mu.Lock()
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs[0] = Job{}
			q.jobs = q.jobs[1:]
			depth := len(q.jobs)
			q.mu.Unlock()
			metrics.TaskQueueDepth.WithLabelValues(q.name).Set(float64(depth))
			return job, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Job{}, ctx.Err()
		case <-q.stopped:
			return Job{}, ErrStopped
		case <-q.signal:
		}
	}
}

// Len returns the number of waiting jobs
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Run consumes jobs until ctx is done or Stop is called. Job failures are
// logged and discarded; there is no automatic retry.
func (q *Queue) Run(ctx context.Context) error {
	q.logger.WithField("queue", q.name).Info("Starting task queue consumer")

	for {
		job, err := q.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrStopped) || errors.Is(err, context.Canceled) {
				q.logger.WithFields(logrus.Fields{
					"queue":   q.name,
					"pending": q.Len(),
				}).Info("Task queue consumer stopped")
				return nil
			}
			return err
		}
		q.execute(ctx, job)
	}
}

// Stop ends the consumer loop; jobs still queued are dropped
func (q *Queue) Stop() {
	q.once.Do(func() {
		close(q.stopped)
	})
}

func (q *Queue) execute(ctx context.Context, job Job) {
	start := time.Now()
	logger := q.logger.WithFields(logrus.Fields{
		"queue": q.name,
		"job":   job.Name,
	})

	err := q.runInScope(ctx, job)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		logger.WithError(err).Error("Background job failed")
	} else {
		logger.WithField("duration", time.Since(start)).Debug("Background job finished")
	}
	metrics.TasksProcessed.WithLabelValues(q.name, outcome).Inc()
}

func (q *Queue) runInScope(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
		}
	}()

	scope, err := q.scopes(ctx)
	if err != nil {
		return fmt.Errorf("failed to open job scope: %w", err)
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil {
			q.logger.WithError(cerr).WithField("job", job.Name).Warn("Failed to close job scope")
		}
	}()

	return job.Run(ctx, scope)
}

type gormScope struct {
	db *gorm.DB
}

func (s *gormScope) DB() *gorm.DB {
	return s.db
}

func (s *gormScope) Close() error {
	return nil
}

// GormScopes opens a new GORM session per job bound to the job context.
// Sessions share the connection pool but no statement state.
func GormScopes(db *gorm.DB) ScopeFactory {
	return func(ctx context.Context) (Scope, error) {
		if db == nil {
			return nil, errors.New("no database configured")
		}
		return &gormScope{db: db.Session(&gorm.Session{NewDB: true, Context: ctx})}, nil
	}
}
