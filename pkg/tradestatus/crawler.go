// Package tradestatus reads trade outcomes from ASP.NET Web Forms result
// grids by replaying their postback pagination.
package tradestatus

import (
	"bytes"
	"context"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/browser"
	"github.com/lisanmuaddib/lot-ingest/pkg/metrics"
	"github.com/lisanmuaddib/lot-ingest/pkg/sources"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

// Crawler walks the paginated results of one bidding per call
type Crawler struct {
	browser  *browser.Config
	maxPages int
	interval time.Duration
	logger   *logrus.Logger
}

// NewCrawler creates a Crawler
func NewCrawler(browserConfig *browser.Config, config *Config) *Crawler {
	return &Crawler{
		browser:  browserConfig,
		maxPages: config.MaxPages,
		interval: config.PageInterval,
		logger:   config.Logger,
	}
}

// Crawl collects the outcome of the target lots from the results grid at
// pageURL. An empty target list collects every lot. The crawl stops when
// every target is found, when no further page can be opened, when a page is
// served twice, on any fetch or parse error, or at the page cap. It never
// fails; whatever was read so far is returned.
func (c *Crawler) Crawl(ctx context.Context, pageURL string, targets []string) []LotStatus {
	started := time.Now()
	defer func() {
		metrics.StatusCrawlDuration.Observe(time.Since(started).Seconds())
	}()

	want := map[string]bool{}
	for _, t := range targets {
		want[sources.NormalizeLotNumber(t)] = true
	}
	log := c.logger.WithField("url", pageURL)

	session := browser.NewFormSession(ctx, c.browser)
	limiter := rate.NewLimiter(rate.Every(c.interval), 1)

	page, err := session.Get(ctx, pageURL)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch results page")
		return nil
	}

	var results []LotStatus
	found := map[string]bool{}
	visited := map[int]bool{}
	requested := 1

	for fetched := 1; ; fetched++ {
		metrics.StatusCrawlPages.Inc()
		root, err := html.Parse(bytes.NewReader(page.Body))
		if err != nil {
			log.WithError(err).Warn("Failed to parse results page")
			break
		}

		current := requested
		p, hasPager := discoverPager(root)
		if hasPager {
			if n, ok := p.currentPage(); ok {
				current = n
			}
		}
		if visited[current] {
			log.WithFields(logrus.Fields{
				"page":      current,
				"requested": requested,
			}).Warn("Results page served twice, stopping pagination")
			break
		}
		visited[current] = true

		for _, s := range scanPage(root, want) {
			if found[s.Number] {
				continue
			}
			found[s.Number] = true
			results = append(results, ApplyOutcomeRules(s))
		}
		if len(want) > 0 && len(found) >= len(want) {
			break
		}
		if !hasPager {
			break
		}
		next, ok := p.next(current, visited)
		if !ok {
			break
		}
		if fetched >= c.maxPages {
			log.WithField("max_pages", c.maxPages).Warn("Page cap reached, stopping pagination")
			break
		}

		if err := limiter.Wait(ctx); err != nil {
			break
		}
		values := buildForm(root, next)
		page, err = session.PostForm(ctx, formAction(root, page.URL), values)
		if err != nil {
			log.WithFields(logrus.Fields{
				"page":   next.Page,
				"target": next.Target,
			}).WithError(err).Warn("Postback failed")
			break
		}
		requested = next.Page
	}

	log.WithFields(logrus.Fields{
		"pages":   len(visited),
		"found":   len(results),
		"targets": len(want),
	}).Info("Results crawl finished")
	return results
}
