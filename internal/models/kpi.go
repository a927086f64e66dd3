package models

import (
	"time"

	"github.com/google/uuid"
)

// KPIScope identifies the slice a metrics snapshot was rolled up for. Exactly
// one of LocationID, ItemID or Category is set; Period is a closed interval
// label such as "2026-07".
type KPIScope struct {
	LocationID *uuid.UUID `json:"location_id,omitempty" db:"location_id"`
	ItemID     *uuid.UUID `json:"item_id,omitempty" db:"item_id"`
	Category   *string    `json:"category,omitempty" db:"category"`
	Period     string     `json:"period" db:"period"`
}

func (s KPIScope) Equal(other KPIScope) bool {
	if s.Period != other.Period {
		return false
	}
	eqUUID := func(a, b *uuid.UUID) bool {
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	}
	eqStr := func(a, b *string) bool {
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	}
	return eqUUID(s.LocationID, other.LocationID) && eqUUID(s.ItemID, other.ItemID) && eqStr(s.Category, other.Category)
}

// KPIMetrics is an append-only period snapshot, one record per (scope, period).
type KPIMetrics struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Scope            KPIScope  `json:"scope"`
	FillRate         float64   `json:"fill_rate" db:"fill_rate"`
	StockoutRate     float64   `json:"stockout_rate" db:"stockout_rate"`
	StockoutSource   string    `json:"stockout_source" db:"stockout_source"`
	InventoryTurns   float64   `json:"inventory_turns" db:"inventory_turns"`
	DaysOfSupply     float64   `json:"days_of_supply" db:"days_of_supply"`
	OTIF             float64   `json:"otif" db:"otif"`
	ForecastAccuracy float64   `json:"forecast_accuracy" db:"forecast_accuracy"`
	CarryingCost     float64   `json:"carrying_cost" db:"carrying_cost"`
	StockoutCost     float64   `json:"stockout_cost" db:"stockout_cost"`
	TotalCost        float64   `json:"total_cost" db:"total_cost"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
