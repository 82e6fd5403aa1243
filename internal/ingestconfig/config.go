package ingestconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/lisanmuaddib/lot-ingest/pkg/browser"
	"github.com/lisanmuaddib/lot-ingest/pkg/classify"
	"github.com/lisanmuaddib/lot-ingest/pkg/db"
	"github.com/lisanmuaddib/lot-ingest/pkg/geo"
	"github.com/lisanmuaddib/lot-ingest/pkg/guard"
	"github.com/lisanmuaddib/lot-ingest/pkg/llm/openai"
	"github.com/lisanmuaddib/lot-ingest/pkg/recovery"
	"github.com/lisanmuaddib/lot-ingest/pkg/scrape"
	"github.com/lisanmuaddib/lot-ingest/pkg/tradestatus"
	"github.com/sirupsen/logrus"
)

// Default process settings
const (
	DefaultSourcesFile      = "sources.json"
	DefaultMetricsAddr      = ":9090"
	DefaultClassifyInterval = 3 * time.Second
)

// Config gathers the settings of every component.
// Environment variables read here:
//   - SOURCES_FILE: path of the sources JSON file (default: sources.json)
//   - METRICS_ADDR: listen address of the /metrics endpoint (default: :9090)
//   - CLASSIFY_INTERVAL: minimum milliseconds between classification calls (default: 3000)
//   - CLASSIFY_BATCH_SIZE: lots per classification call (default: 10)
//   - BREAKER_PAYMENT_COOLDOWN: minutes the breaker stays open after a payment failure (default: 360)
//   - BREAKER_RATE_LIMIT_COOLDOWN: seconds the breaker stays open after a rate limit (default: 300)
type Config struct {
	SourcesFile       string
	MetricsAddr       string
	ClassifyInterval  time.Duration
	ClassifyBatchSize int
	PaymentCooldown   time.Duration
	RateLimitCooldown time.Duration

	DB          *db.Config
	OpenAI      *openai.OpenAIConfig
	Browser     *browser.Config
	Geo         *geo.Config
	Scrape      *scrape.Config
	TradeStatus *tradestatus.Config
	Recovery    *recovery.Config

	Logger *logrus.Logger
}

// NewConfig reads the process configuration from the environment. The
// logger is handed to every component config.
func NewConfig(logger *logrus.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{
		SourcesFile:       os.Getenv("SOURCES_FILE"),
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
		ClassifyInterval:  DefaultClassifyInterval,
		ClassifyBatchSize: classify.DefaultBatchSize,
		PaymentCooldown:   guard.DefaultPaymentCooldown,
		RateLimitCooldown: guard.DefaultRateLimitCooldown,
		Logger:            logger,
	}

	settings := []struct {
		key   string
		apply func(n int)
	}{
		{"CLASSIFY_INTERVAL", func(n int) { config.ClassifyInterval = time.Duration(n) * time.Millisecond }},
		{"CLASSIFY_BATCH_SIZE", func(n int) { config.ClassifyBatchSize = n }},
		{"BREAKER_PAYMENT_COOLDOWN", func(n int) { config.PaymentCooldown = time.Duration(n) * time.Minute }},
		{"BREAKER_RATE_LIMIT_COOLDOWN", func(n int) { config.RateLimitCooldown = time.Duration(n) * time.Second }},
	}
	for _, s := range settings {
		raw := os.Getenv(s.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", s.key, raw, err)
		}
		s.apply(n)
	}

	var err error
	if config.DB, err = db.NewConfig(); err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}
	if config.OpenAI, err = openai.NewOpenAIConfig(); err != nil {
		return nil, fmt.Errorf("openai config: %w", err)
	}
	if config.Browser, err = browser.NewConfig(); err != nil {
		return nil, fmt.Errorf("browser config: %w", err)
	}
	if config.Geo, err = geo.NewConfig(); err != nil {
		return nil, fmt.Errorf("geo config: %w", err)
	}
	if config.Scrape, err = scrape.NewConfig(); err != nil {
		return nil, fmt.Errorf("scrape config: %w", err)
	}
	if config.TradeStatus, err = tradestatus.NewConfig(); err != nil {
		return nil, fmt.Errorf("trade status config: %w", err)
	}
	if config.Recovery, err = recovery.NewConfig(); err != nil {
		return nil, fmt.Errorf("recovery config: %w", err)
	}

	config.Validate()
	return config, nil
}

// Validate applies defaults and shares the logger with every component
func (c *Config) Validate() {
	if c.SourcesFile == "" {
		c.SourcesFile = DefaultSourcesFile
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = DefaultMetricsAddr
	}
	if c.ClassifyBatchSize <= 0 {
		c.ClassifyBatchSize = classify.DefaultBatchSize
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}

	if c.OpenAI != nil {
		c.OpenAI.Logger = c.Logger
	}
	if c.Browser != nil {
		c.Browser.Logger = c.Logger
	}
	if c.Geo != nil {
		c.Geo.Logger = c.Logger
	}
	if c.Scrape != nil {
		c.Scrape.Logger = c.Logger
	}
	if c.TradeStatus != nil {
		c.TradeStatus.Logger = c.Logger
	}
	if c.Recovery != nil {
		c.Recovery.Logger = c.Logger
	}
}
