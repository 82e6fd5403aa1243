package browser

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Mode selects the fetch backend
type Mode string

const (
	// ModeChrome renders pages in headless Chrome
	ModeChrome Mode = "chrome"
	// ModeHTTP fetches raw HTML over plain HTTP
	ModeHTTP Mode = "http"
)

// Default configuration values
const (
	DefaultMode           = ModeHTTP
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultRequestTimeout = 60 * time.Second
)

// Config holds the browser settings.
// Environment variables:
//   - BROWSER_MODE: chrome or http (default: http)
//   - USER_AGENT: User-Agent header sent with every request
//   - BROWSER_TIMEOUT: per-page timeout in seconds (default: 60)
type Config struct {
	Mode           Mode
	UserAgent      string
	RequestTimeout time.Duration
	Headless       bool
	Logger         *logrus.Logger
}

// NewConfig creates a Config from environment variables. The .env file is
// loaded if present, but its absence is not an error.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{
		Mode:           Mode(os.Getenv("BROWSER_MODE")),
		UserAgent:      os.Getenv("USER_AGENT"),
		RequestTimeout: DefaultRequestTimeout,
		Headless:       true,
		Logger:         logrus.New(),
	}

	if s := os.Getenv("BROWSER_TIMEOUT"); s != "" {
		seconds, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid BROWSER_TIMEOUT %q: %w", s, err)
		}
		config.RequestTimeout = time.Duration(seconds) * time.Second
	}
	if s := os.Getenv("BROWSER_HEADLESS"); s == "false" {
		config.Headless = false
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate fills defaults and rejects unknown modes
func (c *Config) Validate() error {
	if c.Mode == "" {
		c.Mode = DefaultMode
	}
	if c.Mode != ModeChrome && c.Mode != ModeHTTP {
		return fmt.Errorf("unknown browser mode %q", c.Mode)
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
	return nil
}
