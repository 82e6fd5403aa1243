package tradestatus

import (
	"context"
	"fmt"
	"sync"

	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"github.com/lisanmuaddib/lot-ingest/pkg/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Store is the persistence the trade status job needs
type Store interface {
	BiddingsAwaitingOutcome(ctx context.Context, final []string) ([]models.Bidding, error)
	LotsAwaitingOutcome(ctx context.Context, biddingID string, final []string) ([]models.Lot, error)
	UpdateTradeOutcome(ctx context.Context, biddingID, number string, outcome store.TradeOutcome) error
}

// Walker crawls one results page for a set of lot numbers
type Walker interface {
	Crawl(ctx context.Context, pageURL string, targets []string) []LotStatus
}

// Job refreshes the trade outcome of every lot still awaiting one, on a
// cron schedule
type Job struct {
	crawler     Walker
	store       Store
	schedule    string
	concurrency int
	logger      *logrus.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewJob creates a Job
func NewJob(crawler Walker, st Store, config *Config) *Job {
	return &Job{
		crawler:     crawler,
		store:       st,
		schedule:    config.Schedule,
		concurrency: config.Concurrency,
		logger:      config.Logger,
	}
}

// Name identifies the job in the pipeline
func (j *Job) Name() string {
	return "trade-status"
}

// Run runs the crawl on the configured schedule until ctx is cancelled or
// Stop is called
func (j *Job) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))
	if _, err := c.AddFunc(j.schedule, func() {
		if err := j.RunOnce(ctx); err != nil {
			j.logger.WithError(err).Error("Trade status crawl failed")
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule trade status crawl: %w", err)
	}

	j.mu.Lock()
	j.cron, j.cancel = c, cancel
	j.mu.Unlock()

	j.logger.WithField("schedule", j.schedule).Info("Trade status crawl scheduled")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Stop ends a running schedule
func (j *Job) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		j.cancel()
	}
}

// RunOnce crawls every bidding with lots awaiting an outcome and writes the
// statuses found back to the store
func (j *Job) RunOnce(ctx context.Context) error {
	biddings, err := j.store.BiddingsAwaitingOutcome(ctx, FinalStatuses)
	if err != nil {
		return err
	}
	j.logger.WithField("biddings", len(biddings)).Info("Starting trade status crawl")

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for _, b := range biddings {
		g.Go(func() error {
			j.refresh(gCtx, b)
			return nil
		})
	}
	return g.Wait()
}

func (j *Job) refresh(ctx context.Context, b models.Bidding) {
	log := j.logger.WithFields(logrus.Fields{
		"bidding_id": b.ID,
		"url":        b.ResultsURL,
	})

	lots, err := j.store.LotsAwaitingOutcome(ctx, b.ID, FinalStatuses)
	if err != nil {
		log.WithError(err).Error("Failed to load lots awaiting outcome")
		return
	}
	if len(lots) == 0 {
		return
	}
	targets := make([]string, len(lots))
	for i, l := range lots {
		targets[i] = l.Number
	}

	updated := 0
	for _, s := range j.crawler.Crawl(ctx, b.ResultsURL, targets) {
		err := j.store.UpdateTradeOutcome(ctx, b.ID, s.Number, store.TradeOutcome{
			Status:     s.TradeStatus,
			FinalPrice: s.FinalPrice,
			WinnerName: s.WinnerName,
			WinnerINN:  s.WinnerINN,
		})
		if err != nil {
			log.WithField("lot_number", s.Number).WithError(err).Warn("Failed to store trade outcome")
			continue
		}
		updated++
	}
	log.WithFields(logrus.Fields{
		"targets": len(targets),
		"updated": updated,
	}).Info("Trade outcome refreshed")
}
