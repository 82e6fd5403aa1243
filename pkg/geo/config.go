package geo

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Default configuration values
const (
	// DefaultAPIEndpoint is the public cadastral map API
	DefaultAPIEndpoint = "https://pkk.rosreestr.ru"
	// DefaultRequestTimeout is the timeout for a single lookup request
	DefaultRequestTimeout = 30 * time.Second
	// DefaultRequestInterval is the minimum spacing between lookup requests
	DefaultRequestInterval = time.Second
)

// Config holds the coordinate lookup settings.
// Environment variables:
//   - GEO_API_ENDPOINT: base URL of the cadastral map API
//   - GEO_REQUEST_TIMEOUT: request timeout in seconds (default: 30)
//   - GEO_REQUEST_INTERVAL: minimum milliseconds between requests (default: 1000)
type Config struct {
	APIEndpoint     string
	RequestTimeout  time.Duration
	RequestInterval time.Duration
	Logger          *logrus.Logger
}

// NewConfig creates a Config from environment variables
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{
		APIEndpoint: os.Getenv("GEO_API_ENDPOINT"),
		Logger:      logrus.New(),
	}

	if s := os.Getenv("GEO_REQUEST_TIMEOUT"); s != "" {
		seconds, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid GEO_REQUEST_TIMEOUT %q: %w", s, err)
		}
		config.RequestTimeout = time.Duration(seconds) * time.Second
	}
	if s := os.Getenv("GEO_REQUEST_INTERVAL"); s != "" {
		ms, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid GEO_REQUEST_INTERVAL %q: %w", s, err)
		}
		config.RequestInterval = time.Duration(ms) * time.Millisecond
	}

	config.Validate()
	return config, nil
}

// Validate fills defaults
func (c *Config) Validate() {
	if c.APIEndpoint == "" {
		c.APIEndpoint = DefaultAPIEndpoint
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.RequestInterval <= 0 {
		c.RequestInterval = DefaultRequestInterval
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
}
