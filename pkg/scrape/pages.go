package scrape

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/lisanmuaddib/lot-ingest/pkg/browser"
	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"github.com/lisanmuaddib/lot-ingest/pkg/geo"
	"github.com/lisanmuaddib/lot-ingest/pkg/sources"
	"github.com/lisanmuaddib/lot-ingest/pkg/store"
	"github.com/lisanmuaddib/lot-ingest/pkg/workcache"
	"github.com/sirupsen/logrus"
)

// Store is the persistence the page handlers need
type Store interface {
	UpsertBidding(ctx context.Context, b *models.Bidding) error
	InsertLot(ctx context.Context, lot *models.Lot) error
}

// BiddingWork is a bidding page waiting to be scraped
type BiddingWork struct {
	sources.BiddingRef
	AnnouncementID string
}

// LotWork is a lot detail page waiting to be scraped
type LotWork struct {
	BiddingID string
	Lot       sources.LotInfo
}

// Enrichment schedules the deferred jobs of a freshly stored lot. Either
// function may be nil.
type Enrichment struct {
	Classify func(ctx context.Context, lotID string)
	Locate   func(ctx context.Context, lotID string, cadastralNumbers []string)
}

func (e Enrichment) schedule(ctx context.Context, lot *models.Lot) {
	if e.Classify != nil && lot.Description != "" {
		e.Classify(ctx, lot.ID)
	}
	if e.Locate != nil && len(lot.CadastralNumbers) > 0 {
		e.Locate(ctx, lot.ID, lot.CadastralNumbers)
	}
}

// Pages turns announcement, bidding and lot pages of one source into
// follow-up work and stored records
type Pages struct {
	source   *sources.Source
	store    Store
	biddings *workcache.Cache[string, BiddingWork]
	lots     *workcache.Cache[string, LotWork]
	enrich   Enrichment
	logger   *logrus.Logger
}

// Announcement reads the bidding an announcement points to and queues it
func (p *Pages) Announcement(ctx context.Context, session browser.Session, ref sources.AnnouncementRef) error {
	body, err := session.Fetch(ctx, ref.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch announcement %s: %w", ref.ID, err)
	}
	bidding, err := p.source.ParseAnnouncement(ref.URL, body)
	if err != nil {
		return err
	}
	p.biddings.AddMany(workcache.Entry[string, BiddingWork]{
		Key:     p.source.Name + ":" + bidding.ExternalID,
		Payload: BiddingWork{BiddingRef: bidding, AnnouncementID: ref.ID},
	})
	return nil
}

// Bidding stores a bidding and its lots. Lots with their own detail page are
// queued; the others are stored straight from the bidding page.
func (p *Pages) Bidding(ctx context.Context, session browser.Session, work BiddingWork) error {
	body, err := session.Fetch(ctx, work.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch bidding %s: %w", work.ExternalID, err)
	}
	page, err := p.source.ParseBidding(work.URL, body)
	if err != nil {
		return err
	}

	title := page.Title
	if title == "" {
		title = work.Title
	}
	bidding := &models.Bidding{
		ExternalID:     work.ExternalID,
		AnnouncementID: work.AnnouncementID,
		Platform:       p.source.Platform,
		Title:          title,
		URL:            work.URL,
		ResultsURL:     page.ResultsURL,
	}
	if err := p.store.UpsertBidding(ctx, bidding); err != nil {
		return err
	}

	var failed []error
	for _, info := range page.Lots {
		if p.source.HasLotDetail() && info.URL != "" {
			p.lots.AddMany(workcache.Entry[string, LotWork]{
				Key:     bidding.ID + ":" + info.Number,
				Payload: LotWork{BiddingID: bidding.ID, Lot: info},
			})
			continue
		}
		err := p.storeLot(ctx, bidding.ID, info)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			p.logger.WithFields(logrus.Fields{
				"bidding_id": bidding.ID,
				"lot_number": info.Number,
			}).Debug("Lot already stored")
		case err != nil:
			failed = append(failed, err)
		}
	}
	return errors.Join(failed...)
}

// Lot completes a lot from its detail page and stores it
func (p *Pages) Lot(ctx context.Context, session browser.Session, work LotWork) error {
	body, err := session.Fetch(ctx, work.Lot.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch lot %s: %w", work.Lot.Number, err)
	}
	info := work.Lot
	if err := p.source.ParseLot(body, &info); err != nil {
		return err
	}
	return p.storeLot(ctx, work.BiddingID, info)
}

func (p *Pages) storeLot(ctx context.Context, biddingID string, info sources.LotInfo) error {
	lot := &models.Lot{
		BiddingID:        biddingID,
		Number:           info.Number,
		URL:              info.URL,
		Description:      info.Description,
		StartPrice:       info.StartPrice,
		CadastralNumbers: pq.StringArray(geo.ExtractCadastralNumbers(info.Description)),
	}
	if err := p.store.InsertLot(ctx, lot); err != nil {
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"bidding_id": biddingID,
		"lot_id":     lot.ID,
		"lot_number": lot.Number,
	}).Info("Lot stored")
	p.enrich.schedule(ctx, lot)
	return nil
}
