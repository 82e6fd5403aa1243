package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"
)

// UpsertBidding inserts a bidding or refreshes the stored one with the same
// external id. The stored record, including its id, is written back into b.
func (s *Store) UpsertBidding(ctx context.Context, b *models.Bidding) error {
	now := time.Now()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = now
	b.UpdatedAt = now

	result := s.db.WithContext(ctx).
		Omit("Lots").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"announcement_id", "platform", "title", "url", "results_url", "updated_at"}),
		}).
		Create(b)
	if result.Error != nil {
		return fmt.Errorf("failed to save bidding %s: %w", b.ExternalID, result.Error)
	}

	if err := s.db.WithContext(ctx).First(b, "external_id = ?", b.ExternalID).Error; err != nil {
		return fmt.Errorf("failed to reload bidding %s: %w", b.ExternalID, notFound(err))
	}

	s.logger.WithFields(logrus.Fields{
		"bidding_id":  b.ID,
		"external_id": b.ExternalID,
		"platform":    b.Platform,
	}).Debug("Saved bidding")
	return nil
}

// GetBidding loads a bidding by id
func (s *Store) GetBidding(ctx context.Context, id string) (*models.Bidding, error) {
	var b models.Bidding
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load bidding %s: %w", id, notFound(err))
	}
	return &b, nil
}

// BiddingsAwaitingOutcome lists biddings that publish a results page and
// still have at least one lot whose trade status is not in final.
func (s *Store) BiddingsAwaitingOutcome(ctx context.Context, final []string) ([]models.Bidding, error) {
	var biddings []models.Bidding
	err := s.db.WithContext(ctx).
		Where("results_url IS NOT NULL AND results_url <> ''").
		Where(`EXISTS (
			SELECT 1 FROM lots l
			WHERE l.bidding_id = biddings.id
			AND (l.trade_status IS NULL OR l.trade_status = '' OR l.trade_status NOT IN ?)
		)`, final).
		Order("created_at").
		Find(&biddings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list biddings awaiting outcome: %w", err)
	}
	return biddings, nil
}
