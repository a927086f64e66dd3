package models

import (
	"time"

	"github.com/google/uuid"
)

type Inventory struct {
	ID                uuid.UUID `json:"id" db:"id"`
	ItemID            uuid.UUID `json:"item_id" db:"item_id"`
	LocationID        uuid.UUID `json:"location_id" db:"location_id"`
	Quantity          float64   `json:"quantity" db:"quantity"`
	ReservedQuantity  float64   `json:"reserved_quantity" db:"reserved_quantity"`
	AvailableQuantity float64   `json:"available_quantity" db:"available_quantity"`
	SafetyStock       float64   `json:"safety_stock" db:"safety_stock"`
	ReorderPoint      float64   `json:"reorder_point" db:"reorder_point"`
	MaxStock          float64   `json:"max_stock" db:"max_stock"`
	LastUpdated       time.Time `json:"last_updated" db:"last_updated"`
}

// Recompute restores the available-quantity invariant after any mutation.
func (i *Inventory) Recompute() {
	i.AvailableQuantity = i.Quantity - i.ReservedQuantity
}

// ThresholdsOrdered reports whether 0 <= safetyStock <= reorderPoint <= maxStock.
func (i *Inventory) ThresholdsOrdered() bool {
	return i.SafetyStock >= 0 && i.SafetyStock <= i.ReorderPoint && i.ReorderPoint <= i.MaxStock
}

type MovementType string

const (
	MovementReceipt     MovementType = "receipt"
	MovementShipment    MovementType = "shipment"
	MovementTransferIn  MovementType = "transfer_in"
	MovementTransferOut MovementType = "transfer_out"
	MovementAdjustment  MovementType = "adjustment"
	MovementCycleCount  MovementType = "cycle_count"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementReceipt, MovementShipment, MovementTransferIn, MovementTransferOut, MovementAdjustment, MovementCycleCount:
		return true
	}
	return false
}

type InventoryMovement struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	ItemID        uuid.UUID    `json:"item_id" db:"item_id"`
	LocationID    uuid.UUID    `json:"location_id" db:"location_id"`
	Type          MovementType `json:"type" db:"type"`
	Quantity      float64      `json:"quantity" db:"quantity"`
	Reference     string       `json:"reference" db:"reference"`
	ReferenceType string       `json:"reference_type" db:"reference_type"`
	Notes         *string      `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// MovementSearchFilter holds filter criteria for movement history queries.
type MovementSearchFilter struct {
	ItemID     *uuid.UUID    `json:"item_id,omitempty"`
	LocationID *uuid.UUID    `json:"location_id,omitempty"`
	Type       *MovementType `json:"type,omitempty"`
	From       *time.Time    `json:"from,omitempty"`
	To         *time.Time    `json:"to,omitempty"`
	Limit      int           `json:"limit,omitempty"`
	Offset     int           `json:"offset,omitempty"`
}
