package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lisanmuaddib/lot-ingest/pkg/browser"
	"github.com/lisanmuaddib/lot-ingest/pkg/sources"
	"github.com/lisanmuaddib/lot-ingest/pkg/workcache"
	"github.com/sirupsen/logrus"
)

// cycleCache is a cache taking part in one discovery cycle
type cycleCache interface {
	Counts() workcache.Counts
	PruneCompleted() int
}

// Discoverer walks the list pages of a source and feeds new announcements
// into the announcement cache
type Discoverer struct {
	source   *sources.Source
	provider browser.Provider
	cache    *workcache.Cache[string, sources.AnnouncementRef]
	cycle    []cycleCache
	interval time.Duration
	logger   *logrus.Logger

	done chan struct{}
	once sync.Once
}

// NewDiscoverer creates a Discoverer
func NewDiscoverer(source *sources.Source, provider browser.Provider, cache *workcache.Cache[string, sources.AnnouncementRef], config *Config) *Discoverer {
	return &Discoverer{
		source:   source,
		provider: provider,
		cache:    cache,
		cycle:    []cycleCache{cache},
		interval: config.DiscoveryInterval,
		logger:   config.Logger,
		done:     make(chan struct{}),
	}
}

// Name identifies the discoverer in the pipeline
func (d *Discoverer) Name() string {
	return "discover:" + d.source.Name
}

// Run makes a pass immediately and then once per interval
func (d *Discoverer) Run(ctx context.Context) error {
	log := d.logger.WithFields(logrus.Fields{
		"source":   d.source.Name,
		"interval": d.interval,
	})
	log.Info("Starting discovery")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		if _, err := d.Pass(ctx); err != nil {
			log.WithError(err).Error("Discovery pass failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-d.done:
			return nil
		case <-ticker.C:
		}
	}
}

// Stop ends Run
func (d *Discoverer) Stop() {
	d.once.Do(func() {
		close(d.done)
	})
}

// follow adds the downstream caches fed by this discoverer's announcements
func (d *Discoverer) follow(caches ...cycleCache) {
	d.cycle = append(d.cycle, caches...)
}

// Pass reads every configured list page and returns how many announcements
// were new. Completed entries of every cache in the cycle are pruned once
// none of them has new work left.
func (d *Discoverer) Pass(ctx context.Context) (int, error) {
	session, err := d.provider.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer session.Close()

	added, listed := 0, 0
	for page := 1; page <= d.source.List.Pages; page++ {
		pageURL := d.source.ListURL(page)
		log := d.logger.WithFields(logrus.Fields{
			"source": d.source.Name,
			"url":    pageURL,
		})

		body, err := session.Fetch(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return 0, fmt.Errorf("failed to fetch list page %s: %w", pageURL, err)
			}
			log.WithError(err).Warn("Failed to fetch list page")
			break
		}
		refs, err := d.source.ParseList(pageURL, body)
		if err != nil {
			log.WithError(err).Warn("Failed to parse list page")
			continue
		}

		entries := make([]workcache.Entry[string, sources.AnnouncementRef], len(refs))
		for i, ref := range refs {
			entries[i] = workcache.Entry[string, sources.AnnouncementRef]{Key: d.source.Name + ":" + ref.ID, Payload: ref}
		}
		listed += len(refs)
		added += d.cache.AddMany(entries...)
	}

	pruned := d.pruneCycle()
	d.logger.WithFields(logrus.Fields{
		"source": d.source.Name,
		"listed": listed,
		"added":  added,
		"pruned": pruned,
	}).Info("Discovery pass finished")
	return added, nil
}

// pruneCycle drops completed items from every cache once the whole cycle,
// retries included, has drained
func (d *Discoverer) pruneCycle() int {
	for _, c := range d.cycle {
		if c.Counts().New > 0 {
			return 0
		}
	}
	pruned := 0
	for _, c := range d.cycle {
		pruned += c.PruneCompleted()
	}
	return pruned
}
