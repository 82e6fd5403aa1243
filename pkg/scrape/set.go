package scrape

import (
	"github.com/lisanmuaddib/lot-ingest/pkg/browser"
	"github.com/lisanmuaddib/lot-ingest/pkg/pipeline"
	"github.com/lisanmuaddib/lot-ingest/pkg/sources"
	"github.com/lisanmuaddib/lot-ingest/pkg/workcache"
)

// Set is the discoverer and the three workers of one source
type Set struct {
	Discoverer    *Discoverer
	Announcements *Worker[sources.AnnouncementRef]
	Biddings      *Worker[BiddingWork]
	Lots          *Worker[LotWork]
}

// NewSet wires the caches, handlers and workers of source
func NewSet(source *sources.Source, provider browser.Provider, st Store, enrich Enrichment, config *Config) *Set {
	cacheOpts := []workcache.Option{workcache.WithMaxAttempts(config.MaxAttempts)}
	announcements := workcache.New[string, sources.AnnouncementRef](cacheOpts...)
	biddings := workcache.New[string, BiddingWork](cacheOpts...)
	lots := workcache.New[string, LotWork](cacheOpts...)

	pages := &Pages{
		source:   source,
		store:    st,
		biddings: biddings,
		lots:     lots,
		enrich:   enrich,
		logger:   config.Logger,
	}

	discoverer := NewDiscoverer(source, provider, announcements, config)
	discoverer.follow(biddings, lots)

	return &Set{
		Discoverer:    discoverer,
		Announcements: NewWorker("announcements:"+source.Name, announcements, provider, HandlerFunc[sources.AnnouncementRef](pages.Announcement), config),
		Biddings:      NewWorker("biddings:"+source.Name, biddings, provider, HandlerFunc[BiddingWork](pages.Bidding), config),
		Lots:          NewWorker("lots:"+source.Name, lots, provider, HandlerFunc[LotWork](pages.Lot), config),
	}
}

// Tasks lists the loops of the set for the pipeline runner
func (s *Set) Tasks() []pipeline.Task {
	return []pipeline.Task{s.Discoverer, s.Announcements, s.Biddings, s.Lots}
}
