// Package ingestconfig builds the ingestion pipeline from configuration.
package ingestconfig

import (
	"context"
	"fmt"

	"github.com/lisanmuaddib/lot-ingest/pkg/browser"
	"github.com/lisanmuaddib/lot-ingest/pkg/classify"
	"github.com/lisanmuaddib/lot-ingest/pkg/db"
	"github.com/lisanmuaddib/lot-ingest/pkg/geo"
	"github.com/lisanmuaddib/lot-ingest/pkg/guard"
	"github.com/lisanmuaddib/lot-ingest/pkg/llm/openai"
	"github.com/lisanmuaddib/lot-ingest/pkg/metrics"
	"github.com/lisanmuaddib/lot-ingest/pkg/pipeline"
	"github.com/lisanmuaddib/lot-ingest/pkg/recovery"
	"github.com/lisanmuaddib/lot-ingest/pkg/scrape"
	"github.com/lisanmuaddib/lot-ingest/pkg/sources"
	"github.com/lisanmuaddib/lot-ingest/pkg/store"
	"github.com/lisanmuaddib/lot-ingest/pkg/tasks"
	"github.com/lisanmuaddib/lot-ingest/pkg/tradestatus"
	"github.com/sirupsen/logrus"
)

// Scrape source tag recorded on enrichment jobs queued by the workers
const scrapeSource = "scrape"

// App is the assembled process
type App struct {
	Runner     *pipeline.Runner
	Store      *store.Store
	Classifier *classify.Classifier
	StatusJob  *tradestatus.Job
	provider   browser.Provider
	logger     *logrus.Logger
}

// Logger returns the process logger
func (a *App) Logger() *logrus.Logger {
	return a.logger
}

// Close releases the shared browser
func (a *App) Close() error {
	return a.provider.Close()
}

// Build connects to the database and wires every component into a pipeline
// runner
func Build(config *Config) (*App, error) {
	logger := config.Logger

	sourceConfig, err := sources.LoadConfig(config.SourcesFile)
	if err != nil {
		return nil, err
	}

	gormDB, err := db.SetupDatabase(config.DB, logger)
	if err != nil {
		return nil, err
	}
	st := store.New(gormDB, logger)
	scoped := func(scope tasks.Scope) *store.Store { return st.WithDB(scope.DB()) }

	llmClient, err := openai.NewOpenAIClient(config.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	classifier, err := classify.New(classify.Config{
		Guard: guard.New(guard.Config{
			Interval:          config.ClassifyInterval,
			PaymentCooldown:   config.PaymentCooldown,
			RateLimitCooldown: config.RateLimitCooldown,
			Logger:            logger,
		}),
		LLM:       llmClient,
		Store:     st,
		BatchSize: config.ClassifyBatchSize,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	locator := geo.NewLocator(geo.NewClient(config.Geo).Lookup, logger)

	classifyQueue := tasks.NewQueue("classification", tasks.GormScopes(gormDB), logger)
	geoQueue := tasks.NewQueue("geocoding", tasks.GormScopes(gormDB), logger)
	enrich := scrape.Enrichment{
		Classify: func(ctx context.Context, lotID string) {
			classifier.Enqueue(ctx, classifyQueue, func(scope tasks.Scope) classify.Store { return scoped(scope) }, lotID, scrapeSource)
		},
		Locate: func(ctx context.Context, lotID string, numbers []string) {
			locator.Enqueue(ctx, geoQueue, st, func(scope tasks.Scope) geo.Store { return scoped(scope) }, lotID, numbers, scrapeSource)
		},
	}

	provider, err := browser.NewProvider(config.Browser)
	if err != nil {
		return nil, err
	}

	runner := pipeline.New(logger)
	for i := range sourceConfig.Sources {
		set := scrape.NewSet(&sourceConfig.Sources[i], provider, st, enrich, config.Scrape)
		if err := runner.Register(set.Tasks()...); err != nil {
			provider.Close()
			return nil, err
		}
	}

	statusJob := tradestatus.NewJob(tradestatus.NewCrawler(config.Browser, config.TradeStatus), st, config.TradeStatus)
	err = runner.Register(
		classifyQueue,
		geoQueue,
		statusJob,
		recovery.NewScheduler(st, classifier, config.Recovery),
		metrics.NewServer(config.MetricsAddr, logger),
	)
	if err != nil {
		provider.Close()
		return nil, err
	}

	return &App{
		Runner:     runner,
		Store:      st,
		Classifier: classifier,
		StatusJob:  statusJob,
		provider:   provider,
		logger:     logger,
	}, nil
}
