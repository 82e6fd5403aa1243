package tradestatus

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Default configuration values
const (
	DefaultSchedule     = "0 */6 * * *"
	DefaultConcurrency  = 2
	DefaultMaxPages     = 50
	DefaultPageInterval = time.Second
)

// Config holds the trade status crawl settings.
// Environment variables:
//   - STATUS_CRAWL_SCHEDULE: cron expression for the periodic crawl (default: every 6 hours)
//   - STATUS_CRAWL_CONCURRENCY: biddings crawled in parallel (default: 2)
//   - STATUS_CRAWL_MAX_PAGES: page cap per bidding (default: 50)
//   - STATUS_CRAWL_PAGE_INTERVAL: pause between postbacks in milliseconds (default: 1000)
type Config struct {
	Schedule     string
	Concurrency  int
	MaxPages     int
	PageInterval time.Duration
	Logger       *logrus.Logger
}

// NewConfig creates a Config from environment variables
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{
		Schedule: os.Getenv("STATUS_CRAWL_SCHEDULE"),
		Logger:   logrus.New(),
	}

	var err error
	if config.Concurrency, err = intEnv("STATUS_CRAWL_CONCURRENCY"); err != nil {
		return nil, err
	}
	if config.MaxPages, err = intEnv("STATUS_CRAWL_MAX_PAGES"); err != nil {
		return nil, err
	}
	ms, err := intEnv("STATUS_CRAWL_PAGE_INTERVAL")
	if err != nil {
		return nil, err
	}
	config.PageInterval = time.Duration(ms) * time.Millisecond

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate applies defaults and checks the schedule
func (c *Config) Validate() error {
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid STATUS_CRAWL_SCHEDULE %q: %w", c.Schedule, err)
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.PageInterval <= 0 {
		c.PageInterval = DefaultPageInterval
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
	return nil
}

func intEnv(key string) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
