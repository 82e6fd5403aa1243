package scrape

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/lisanmuaddib/lot-ingest/pkg/workcache"
	"github.com/sirupsen/logrus"
)

// Default configuration values
const (
	DefaultIdleInterval      = 30 * time.Second
	DefaultReportInterval    = time.Minute
	DefaultDiscoveryInterval = 15 * time.Minute
	DefaultRate              = 2 * time.Second
)

// Config holds the scrape worker settings.
// Environment variables:
//   - SCRAPE_IDLE_INTERVAL: seconds to sleep when no work is pending (default: 30)
//   - SCRAPE_MAX_ATTEMPTS: failed attempts before an item is abandoned (default: 8)
//   - SCRAPE_RATE: minimum milliseconds between two page fetches of one worker (default: 2000)
//   - SCRAPE_DISCOVERY_INTERVAL: seconds between list page passes (default: 900)
//   - SCRAPE_REPORT_INTERVAL: seconds between status reports (default: 60)
type Config struct {
	IdleInterval      time.Duration
	ReportInterval    time.Duration
	DiscoveryInterval time.Duration
	Rate              time.Duration
	MaxAttempts       int
	Logger            *logrus.Logger
}

// NewConfig creates a Config from environment variables
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{Logger: logrus.New()}

	durations := []struct {
		key  string
		unit time.Duration
		dst  *time.Duration
	}{
		{"SCRAPE_IDLE_INTERVAL", time.Second, &config.IdleInterval},
		{"SCRAPE_REPORT_INTERVAL", time.Second, &config.ReportInterval},
		{"SCRAPE_DISCOVERY_INTERVAL", time.Second, &config.DiscoveryInterval},
		{"SCRAPE_RATE", time.Millisecond, &config.Rate},
	}
	for _, d := range durations {
		s := os.Getenv(d.key)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = time.Duration(n) * d.unit
	}

	if s := os.Getenv("SCRAPE_MAX_ATTEMPTS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid SCRAPE_MAX_ATTEMPTS: %w", err)
		}
		config.MaxAttempts = n
	}

	config.Validate()
	return config, nil
}

// Validate applies defaults
func (c *Config) Validate() {
	if c.IdleInterval <= 0 {
		c.IdleInterval = DefaultIdleInterval
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = DefaultReportInterval
	}
	if c.DiscoveryInterval <= 0 {
		c.DiscoveryInterval = DefaultDiscoveryInterval
	}
	if c.Rate <= 0 {
		c.Rate = DefaultRate
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = workcache.DefaultMaxAttempts
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
}
