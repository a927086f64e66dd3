package models

import (
	"time"

	"github.com/google/uuid"
)

type ABCTier string

const (
	TierA ABCTier = "A"
	TierB ABCTier = "B"
	TierC ABCTier = "C"
)

type ABCItem struct {
	ItemID               uuid.UUID `json:"item_id" db:"item_id"`
	SKU                  string    `json:"sku" db:"sku"`
	Name                 string    `json:"name" db:"name"`
	Tier                 ABCTier   `json:"tier" db:"tier"`
	AnnualUsage          float64   `json:"annual_usage" db:"annual_usage"`
	AnnualValue          float64   `json:"annual_value" db:"annual_value"`
	PercentageOfValue    float64   `json:"percentage_of_value" db:"percentage_of_value"`
	CumulativePercentage float64   `json:"cumulative_percentage" db:"cumulative_percentage"`
}

// ABCAnalysis is an immutable classification snapshot. Items are ranked by
// annual value descending with cumulative percentage non-decreasing.
type ABCAnalysis struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	LocationID *uuid.UUID `json:"location_id,omitempty" db:"location_id"`
	Category   *string    `json:"category,omitempty" db:"category"`
	Period     string     `json:"period" db:"period"`
	Items      []ABCItem  `json:"items"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
