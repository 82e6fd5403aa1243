package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/lisanmuaddib/lot-ingest/pkg/db/models"
	"gorm.io/gorm/clause"
)

// Classification holds the lot fields derived by the classifier
type Classification struct {
	Title             string
	Categories        []string
	MarketValueMin    *float64
	MarketValueMax    *float64
	IsSharedOwnership *bool
	Region            string
}

// TradeOutcome holds the lot fields derived from the trading platform results
type TradeOutcome struct {
	Status     string
	FinalPrice *float64
	WinnerName *string
	WinnerINN  *string
}

// InsertLot stores a new lot. A lot with the same bidding and number is left
// untouched and ErrDuplicate is returned.
func (s *Store) InsertLot(ctx context.Context, lot *models.Lot) error {
	if lot.ID == "" {
		lot.ID = uuid.NewString()
	}
	now := time.Now()
	lot.CreatedAt = now
	lot.UpdatedAt = now

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bidding_id"}, {Name: "number"}},
			DoNothing: true,
		}).
		Create(lot)
	if result.Error != nil {
		return fmt.Errorf("failed to insert lot %s of bidding %s: %w", lot.Number, lot.BiddingID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("lot %s of bidding %s: %w", lot.Number, lot.BiddingID, ErrDuplicate)
	}
	return nil
}

// GetLot loads a lot by id
func (s *Store) GetLot(ctx context.Context, id string) (*models.Lot, error) {
	var lot models.Lot
	if err := s.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load lot %s: %w", id, notFound(err))
	}
	return &lot, nil
}

// GetLots loads the lots with the given ids; unknown ids are skipped
func (s *Store) GetLots(ctx context.Context, ids []string) ([]models.Lot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var lots []models.Lot
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("failed to load lots: %w", err)
	}
	return lots, nil
}

// LotsAwaitingOutcome lists the lots of a bidding whose trade status is not in final
func (s *Store) LotsAwaitingOutcome(ctx context.Context, biddingID string, final []string) ([]models.Lot, error) {
	var lots []models.Lot
	err := s.db.WithContext(ctx).
		Where("bidding_id = ?", biddingID).
		Where("(trade_status IS NULL OR trade_status = '' OR trade_status NOT IN ?)", final).
		Order("number").
		Find(&lots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list lots of bidding %s: %w", biddingID, err)
	}
	return lots, nil
}

// UpdateClassification writes the classifier results onto a lot
func (s *Store) UpdateClassification(ctx context.Context, lotID string, c Classification) error {
	result := s.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("id = ?", lotID).
		Updates(map[string]interface{}{
			"title":               c.Title,
			"categories":          pq.StringArray(c.Categories),
			"market_value_min":    c.MarketValueMin,
			"market_value_max":    c.MarketValueMax,
			"is_shared_ownership": c.IsSharedOwnership,
			"region":              c.Region,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update classification of lot %s: %w", lotID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("lot %s: %w", lotID, ErrNotFound)
	}
	return nil
}

// UpdateCoordinates writes WGS84 coordinates onto a lot
func (s *Store) UpdateCoordinates(ctx context.Context, lotID string, lat, lon float64) error {
	result := s.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("id = ?", lotID).
		Updates(map[string]interface{}{
			"latitude":   lat,
			"longitude":  lon,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update coordinates of lot %s: %w", lotID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("lot %s: %w", lotID, ErrNotFound)
	}
	return nil
}

// UpdateTradeOutcome writes a trade outcome onto the lot identified by
// bidding and lot number. Nil price or winner fields are stored as NULL.
func (s *Store) UpdateTradeOutcome(ctx context.Context, biddingID, number string, outcome TradeOutcome) error {
	result := s.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("bidding_id = ? AND number = ?", biddingID, number).
		Updates(map[string]interface{}{
			"trade_status": outcome.Status,
			"final_price":  outcome.FinalPrice,
			"winner_name":  outcome.WinnerName,
			"winner_inn":   outcome.WinnerINN,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update trade outcome of lot %s: %w", number, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("lot %s of bidding %s: %w", number, biddingID, ErrNotFound)
	}
	return nil
}
