package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	colly "github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// Page is a fetched document with the URL it was finally served from
type Page struct {
	URL        *url.URL
	StatusCode int
	Body       []byte
}

// FormSession issues GET and form POST requests through one colly collector,
// so cookies set by the server carry across requests. Create one per crawl.
type FormSession struct {
	collector *colly.Collector
	logger    *logrus.Logger
	last      *Page
	lastErr   error
}

// NewFormSession creates a session bound to ctx; cancelling ctx aborts
// in-flight requests.
func NewFormSession(ctx context.Context, config *Config) *FormSession {
	s := &FormSession{logger: config.Logger}

	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(config.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(config.RequestTimeout)

	c.OnResponse(func(r *colly.Response) {
		s.last = &Page{
			URL:        r.Request.URL,
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		s.lastErr = fmt.Errorf("request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	s.collector = c
	return s
}

// Get fetches rawURL
func (s *FormSession) Get(ctx context.Context, rawURL string) (*Page, error) {
	return s.do(ctx, func() error {
		return s.collector.Visit(rawURL)
	})
}

// PostForm submits values as application/x-www-form-urlencoded to rawURL
func (s *FormSession) PostForm(ctx context.Context, rawURL string, values url.Values) (*Page, error) {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(ctx, func() error {
		return s.collector.Request(http.MethodPost, rawURL, strings.NewReader(values.Encode()), nil, hdr)
	})
}

func (s *FormSession) do(ctx context.Context, request func() error) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.last, s.lastErr = nil, nil

	if err := request(); err != nil {
		if s.lastErr != nil {
			return nil, s.lastErr
		}
		return nil, err
	}
	if s.lastErr != nil {
		return nil, s.lastErr
	}
	if s.last == nil {
		return nil, errors.New("no response received")
	}
	return s.last, nil
}

// HTTPProvider hands out colly-backed sessions for pages that need no JavaScript
type HTTPProvider struct {
	config *Config
}

// NewHTTPProvider creates a provider
func NewHTTPProvider(config *Config) *HTTPProvider {
	return &HTTPProvider{config: config}
}

// Acquire creates a fresh session with its own cookie jar
func (p *HTTPProvider) Acquire(ctx context.Context) (Session, error) {
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &httpSession{form: NewFormSession(sessionCtx, p.config), cancel: cancel}, nil
}

// Close is a no-op; sessions own their resources
func (p *HTTPProvider) Close() error {
	return nil
}

type httpSession struct {
	form   *FormSession
	cancel context.CancelFunc
}

func (s *httpSession) Fetch(ctx context.Context, rawURL string) (string, error) {
	stop := context.AfterFunc(ctx, s.cancel)
	defer stop()

	page, err := s.form.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(page.Body), nil
}

func (s *httpSession) Close() error {
	s.cancel()
	return nil
}
