// Package recovery resubmits lots that never got classified.
package recovery

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/lisanmuaddib/lot-ingest/pkg/classify"
	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"github.com/lisanmuaddib/lot-ingest/pkg/metrics"
	"github.com/lisanmuaddib/lot-ingest/pkg/store"
	"github.com/sirupsen/logrus"
)

// Source is the audit tag of classifications started by the scheduler
const Source = "recovery"

// Default configuration values
const (
	DefaultInterval    = time.Hour
	DefaultCooldown    = time.Hour
	DefaultBatchSize   = 20
	DefaultMaxFailures = 3
)

// Config holds the recovery settings.
// Environment variables:
//   - RECOVERY_INTERVAL: minutes between passes (default: 60)
//   - RECOVERY_BATCH_SIZE: lots per pass; a smaller selection waits for the next pass (default: 20)
//   - RECOVERY_MAX_FAILURES: failed attempts after which a lot is left alone (default: 3)
type Config struct {
	Interval    time.Duration
	Cooldown    time.Duration
	BatchSize   int
	MaxFailures int
	Logger      *logrus.Logger
}

// NewConfig creates a Config from environment variables
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{Logger: logrus.New()}
	ints := []struct {
		key string
		dst *int
	}{
		{"RECOVERY_BATCH_SIZE", &config.BatchSize},
		{"RECOVERY_MAX_FAILURES", &config.MaxFailures},
	}
	for _, i := range ints {
		if s := os.Getenv(i.key); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", i.key, err)
			}
			*i.dst = n
		}
	}
	if s := os.Getenv("RECOVERY_INTERVAL"); s != "" {
		minutes, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid RECOVERY_INTERVAL: %w", err)
		}
		config.Interval = time.Duration(minutes) * time.Minute
	}

	config.Validate()
	return config, nil
}

// Validate applies defaults
func (c *Config) Validate() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = DefaultMaxFailures
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
}

// Store selects lots that need another classification attempt
type Store interface {
	UnclassifiedLots(ctx context.Context, criteria store.RecoveryCriteria) ([]models.Lot, error)
}

// Classifier classifies a batch of lots
type Classifier interface {
	ClassifyBatch(ctx context.Context, lotIDs []string, source string) (classify.Summary, error)
}

// Scheduler periodically resubmits unclassified lots in full batches
type Scheduler struct {
	store      Store
	classifier Classifier
	config     *Config
	logger     *logrus.Logger

	done chan struct{}
	once sync.Once
}

// NewScheduler creates a Scheduler
func NewScheduler(st Store, classifier Classifier, config *Config) *Scheduler {
	config.Validate()
	return &Scheduler{
		store:      st,
		classifier: classifier,
		config:     config,
		logger:     config.Logger,
		done:       make(chan struct{}),
	}
}

// Name identifies the scheduler in the pipeline
func (s *Scheduler) Name() string {
	return "recovery"
}

// Run makes a pass every interval until ctx is cancelled or Stop is called
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"interval":   s.config.Interval,
		"batch_size": s.config.BatchSize,
	}).Info("Starting recovery scheduler")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-ticker.C:
			if _, err := s.Pass(ctx); err != nil {
				s.logger.WithError(err).Error("Recovery pass failed")
			}
		}
	}
}

// Stop ends Run
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Pass selects up to one batch of lots and classifies it. A selection
// smaller than a full batch is left for a later pass and 0 is returned.
func (s *Scheduler) Pass(ctx context.Context) (int, error) {
	lots, err := s.store.UnclassifiedLots(ctx, store.RecoveryCriteria{
		Quiet:       s.config.Cooldown,
		MaxFailures: s.config.MaxFailures,
		Limit:       s.config.BatchSize,
	})
	if err != nil {
		return 0, err
	}
	if len(lots) < s.config.BatchSize {
		s.logger.WithFields(logrus.Fields{
			"found":      len(lots),
			"batch_size": s.config.BatchSize,
		}).Info("Not enough lots for a recovery batch, waiting")
		return 0, nil
	}

	ids := make([]string, len(lots))
	for i, lot := range lots {
		ids[i] = lot.ID
	}
	metrics.RecoveryLotsSubmitted.Add(float64(len(ids)))

	summary, err := s.classifier.ClassifyBatch(ctx, ids, Source)
	if err != nil {
		return len(ids), fmt.Errorf("recovery batch failed: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"submitted": len(ids),
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	}).Info("Recovery batch finished")
	return len(ids), nil
}
