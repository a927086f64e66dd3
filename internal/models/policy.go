package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PolicyType string

const (
	PolicySS        PolicyType = "ss"
	PolicyMinMax    PolicyType = "min_max"
	PolicyEOQ       PolicyType = "eoq"
	PolicyBaseStock PolicyType = "base_stock"
	PolicyMRP       PolicyType = "mrp"
)

func (t PolicyType) Valid() bool {
	switch t {
	case PolicySS, PolicyMinMax, PolicyEOQ, PolicyBaseStock, PolicyMRP:
		return true
	}
	return false
}

type PolicyConfidence string

const (
	ConfidenceNormal PolicyConfidence = "normal"
	ConfidenceLow    PolicyConfidence = "low"
)

type SSParameters struct {
	ReorderPoint float64 `json:"s"`
	OrderUpTo    float64 `json:"S"`
}

type MinMaxParameters struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type EOQParameters struct {
	OrderQuantity float64 `json:"eoq"`
	ReorderPoint  float64 `json:"reorder_point"`
}

type BaseStockParameters struct {
	BaseStock        float64 `json:"base_stock"`
	ReviewPeriodDays int     `json:"review_period_days"`
}

type MRPParameters struct {
	ReviewPeriodDays int       `json:"review_period_days"`
	PlannedOrders    []float64 `json:"planned_orders"`
}

// PolicyParameters carries exactly one variant, matching the policy type.
// The untyped one-bag-of-optionals shape invites invalid states, so Validate
// is called before any policy version is persisted.
type PolicyParameters struct {
	SS        *SSParameters        `json:"ss,omitempty"`
	MinMax    *MinMaxParameters    `json:"min_max,omitempty"`
	EOQ       *EOQParameters       `json:"eoq,omitempty"`
	BaseStock *BaseStockParameters `json:"base_stock,omitempty"`
	MRP       *MRPParameters       `json:"mrp,omitempty"`
}

func (p *PolicyParameters) variants() int {
	n := 0
	if p.SS != nil {
		n++
	}
	if p.MinMax != nil {
		n++
	}
	if p.EOQ != nil {
		n++
	}
	if p.BaseStock != nil {
		n++
	}
	if p.MRP != nil {
		n++
	}
	return n
}

// Validate rejects a parameter set that is empty, mixes variants, or does not
// match the declared policy type.
func (p *PolicyParameters) Validate(policyType PolicyType) error {
	if p.variants() != 1 {
		return fmt.Errorf("policy parameters must carry exactly one variant, got %d", p.variants())
	}
	var ok bool
	switch policyType {
	case PolicySS:
		ok = p.SS != nil
	case PolicyMinMax:
		ok = p.MinMax != nil
	case PolicyEOQ:
		ok = p.EOQ != nil
	case PolicyBaseStock:
		ok = p.BaseStock != nil
	case PolicyMRP:
		ok = p.MRP != nil
	default:
		return fmt.Errorf("unknown policy type %q", policyType)
	}
	if !ok {
		return fmt.Errorf("parameter variant does not match policy type %q", policyType)
	}
	return nil
}

// InventoryPolicy is one version in the append-only policy history of an
// (item, location) pair. Exactly one version per pair is active at a time.
type InventoryPolicy struct {
	ID                  uuid.UUID        `json:"id" db:"id"`
	ItemID              uuid.UUID        `json:"item_id" db:"item_id"`
	LocationID          uuid.UUID        `json:"location_id" db:"location_id"`
	PolicyType          PolicyType       `json:"policy_type" db:"policy_type"`
	Parameters          PolicyParameters `json:"parameters" db:"parameters"`
	ServiceLevel        float64          `json:"service_level" db:"service_level"`
	LeadTime            float64          `json:"lead_time" db:"lead_time"`
	LeadTimeVariability float64          `json:"lead_time_variability" db:"lead_time_variability"`
	CarryingCost        float64          `json:"carrying_cost" db:"carrying_cost"`
	StockoutCost        float64          `json:"stockout_cost" db:"stockout_cost"`
	OrderingCost        float64          `json:"ordering_cost" db:"ordering_cost"`
	SafetyStock         float64          `json:"safety_stock" db:"safety_stock"`
	ReorderPoint        float64          `json:"reorder_point" db:"reorder_point"`
	MaxStock            float64          `json:"max_stock" db:"max_stock"`
	Confidence          PolicyConfidence `json:"confidence" db:"confidence"`
	Version             int              `json:"version" db:"version"`
	IsActive            bool             `json:"is_active" db:"is_active"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
}

// ThresholdsOrdered reports whether 0 <= safetyStock <= reorderPoint <= maxStock.
func (p *InventoryPolicy) ThresholdsOrdered() bool {
	return p.SafetyStock >= 0 && p.SafetyStock <= p.ReorderPoint && p.ReorderPoint <= p.MaxStock
}
