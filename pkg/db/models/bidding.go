package models

import (
	"time"
)

// Bidding is a trading procedure announced in the registry. Its lots are
// listed on the trading platform page at URL; trade results, when the
// platform publishes them, live at ResultsURL.
type Bidding struct {
	ID             string    `gorm:"primaryKey;column:id;type:uuid"`
	ExternalID     string    `gorm:"column:external_id;not null;uniqueIndex"`
	AnnouncementID string    `gorm:"column:announcement_id"`
	Platform       string    `gorm:"column:platform;not null"`
	Title          string    `gorm:"column:title"`
	URL            string    `gorm:"column:url;not null"`
	ResultsURL     string    `gorm:"column:results_url"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`

	Lots []Lot `gorm:"foreignKey:BiddingID"`
}

// TableName specifies the table name for the Bidding model
func (Bidding) TableName() string {
	return "biddings"
}
