// Package browser provides page-fetching sessions backed by headless Chrome
// or a plain HTTP collector.
package browser

import (
	"context"
	"fmt"
)

// Session fetches pages. A session is used by one goroutine at a time and
// keeps cookies between fetches.
type Session interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}

// Provider hands out sessions
type Provider interface {
	Acquire(ctx context.Context) (Session, error)
	Close() error
}

// NewProvider builds the provider selected by config.Mode
func NewProvider(config *Config) (Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Mode {
	case ModeChrome:
		return NewChromeProvider(config), nil
	case ModeHTTP:
		return NewHTTPProvider(config), nil
	}
	return nil, fmt.Errorf("unknown browser mode %q", config.Mode)
}
