package models

import (
	"time"

	"github.com/lib/pq"
)

// Lot is a single item offered within a bidding. Fields below the source
// block are derived by enrichment and stay empty until it succeeds.
type Lot struct {
	ID         string    `gorm:"primaryKey;column:id;type:uuid"`
	BiddingID  string    `gorm:"column:bidding_id;type:uuid;not null;uniqueIndex:idx_lots_bidding_number"`
	Number     string    `gorm:"column:number;not null;uniqueIndex:idx_lots_bidding_number"`
	URL        string    `gorm:"column:url"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`

	// Source data
	Description      string         `gorm:"column:description;type:text"`
	StartPrice       *float64       `gorm:"column:start_price;type:numeric(18,2)"`
	CadastralNumbers pq.StringArray `gorm:"column:cadastral_numbers;type:text[]"`

	// Classification
	Title             string         `gorm:"column:title"`
	Categories        pq.StringArray `gorm:"column:categories;type:text[]"`
	MarketValueMin    *float64       `gorm:"column:market_value_min;type:numeric(18,2)"`
	MarketValueMax    *float64       `gorm:"column:market_value_max;type:numeric(18,2)"`
	IsSharedOwnership *bool          `gorm:"column:is_shared_ownership"`
	Region            string         `gorm:"column:region"`

	// Coordinates
	Latitude  *float64 `gorm:"column:latitude"`
	Longitude *float64 `gorm:"column:longitude"`

	// Trade outcome
	TradeStatus string   `gorm:"column:trade_status"`
	FinalPrice  *float64 `gorm:"column:final_price;type:numeric(18,2)"`
	WinnerName  *string  `gorm:"column:winner_name"`
	WinnerINN   *string  `gorm:"column:winner_inn"`
}

// TableName specifies the table name for the Lot model
func (Lot) TableName() string {
	return "lots"
}
