package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ChromeProvider shares one Chrome process and opens a tab per session
type ChromeProvider struct {
	config      *Config
	logger      *logrus.Logger
	mu          sync.Mutex
	allocator   context.Context
	cancelAlloc context.CancelFunc
}

// NewChromeProvider creates a provider; Chrome starts on the first Acquire
func NewChromeProvider(config *Config) *ChromeProvider {
	return &ChromeProvider{
		config: config,
		logger: config.Logger,
	}
}

// Acquire opens a new browser tab
func (p *ChromeProvider) Acquire(ctx context.Context) (Session, error) {
	p.mu.Lock()
	if p.allocator == nil {
		p.allocator, p.cancelAlloc = chromedp.NewExecAllocator(
			context.Background(),
			append(
				chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", p.config.Headless),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
				chromedp.UserAgent(p.config.UserAgent),
			)...,
		)
		p.logger.Debug("Started headless Chrome allocator")
	}
	allocator := p.allocator
	p.mu.Unlock()

	tab, cancel := chromedp.NewContext(allocator)
	// the first Run on a context launches the browser
	if err := chromedp.Run(tab); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open browser tab: %w", err)
	}
	return &chromeSession{tab: tab, cancel: cancel, config: p.config, logger: p.logger}, nil
}

// Close stops the shared Chrome process
func (p *ChromeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelAlloc != nil {
		p.cancelAlloc()
		p.allocator = nil
		p.cancelAlloc = nil
	}
	return nil
}

type chromeSession struct {
	tab    context.Context
	cancel context.CancelFunc
	config *Config
	logger *logrus.Logger
}

func (s *chromeSession) Fetch(ctx context.Context, url string) (string, error) {
	runCtx, cancel := context.WithTimeout(s.tab, s.config.RequestTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var content string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &content, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("chromedp navigation to %s failed: %w", url, err)
	}
	if content == "" {
		return "", errors.New("empty HTML content returned")
	}

	s.logger.WithFields(logrus.Fields{
		"url":   url,
		"bytes": len(content),
	}).Debug("Rendered page")
	return content, nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}
