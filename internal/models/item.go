package models

import (
	"time"

	"github.com/google/uuid"
)

type Item struct {
	ID            uuid.UUID `json:"id" db:"id"`
	SKU           string    `json:"sku" db:"sku"`
	Name          string    `json:"name" db:"name"`
	Description   *string   `json:"description,omitempty" db:"description"`
	Category      string    `json:"category" db:"category"`
	UnitOfMeasure string    `json:"unit_of_measure" db:"unit_of_measure"`
	UnitCost      float64   `json:"unit_cost" db:"unit_cost"`
	UnitPrice     float64   `json:"unit_price" db:"unit_price"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type LocationType string

const (
	LocationSupplier           LocationType = "supplier"
	LocationDistributionCenter LocationType = "distribution_center"
	LocationWarehouse          LocationType = "warehouse"
	LocationStore              LocationType = "store"
	LocationCustomer           LocationType = "customer"
)

func (t LocationType) Valid() bool {
	switch t {
	case LocationSupplier, LocationDistributionCenter, LocationWarehouse, LocationStore, LocationCustomer:
		return true
	}
	return false
}

// EchelonTier orders location types from source to sink. A location's parent
// must sit at a strictly lower tier, which also rules out cycles.
func (t LocationType) EchelonTier() int {
	switch t {
	case LocationSupplier:
		return 0
	case LocationDistributionCenter:
		return 1
	case LocationWarehouse:
		return 2
	case LocationStore:
		return 3
	case LocationCustomer:
		return 4
	}
	return -1
}

type Location struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	Code      string       `json:"code" db:"code"`
	Name      string       `json:"name" db:"name"`
	Type      LocationType `json:"type" db:"type"`
	ParentID  *uuid.UUID   `json:"parent_id,omitempty" db:"parent_id"`
	IsActive  bool         `json:"is_active" db:"is_active"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
