package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLine is a read-only demand record fed by the order-management
// collaborator. The engine aggregates over it for service metrics but never
// executes or mutates orders.
type OrderLine struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ItemID      uuid.UUID  `json:"item_id" db:"item_id"`
	LocationID  uuid.UUID  `json:"location_id" db:"location_id"`
	OrderedQty  float64    `json:"ordered_qty" db:"ordered_qty"`
	ShippedQty  float64    `json:"shipped_qty" db:"shipped_qty"`
	DueDate     time.Time  `json:"due_date" db:"due_date"`
	ShippedDate *time.Time `json:"shipped_date,omitempty" db:"shipped_date"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// OnTimeInFull reports whether the line shipped complete by its due date.
func (l *OrderLine) OnTimeInFull() bool {
	return l.ShippedQty >= l.OrderedQty && l.ShippedDate != nil && !l.ShippedDate.After(l.DueDate)
}
