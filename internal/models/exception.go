package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ExceptionType string

const (
	ExceptionLowStock        ExceptionType = "low_stock"
	ExceptionExcessStock     ExceptionType = "excess_stock"
	ExceptionStockoutRisk    ExceptionType = "stockout_risk"
	ExceptionQualityIssue    ExceptionType = "quality_issue"
	ExceptionShrinkage       ExceptionType = "shrinkage"
	ExceptionForecastDrift   ExceptionType = "forecast_drift"
	ExceptionPolicyViolation ExceptionType = "policy_violation"
)

type ExceptionSeverity string

const (
	SeverityLow      ExceptionSeverity = "low"
	SeverityMedium   ExceptionSeverity = "medium"
	SeverityHigh     ExceptionSeverity = "high"
	SeverityCritical ExceptionSeverity = "critical"
)

type ExceptionStatus string

const (
	ExceptionOpen         ExceptionStatus = "open"
	ExceptionAcknowledged ExceptionStatus = "acknowledged"
	ExceptionInProgress   ExceptionStatus = "in_progress"
	ExceptionResolved     ExceptionStatus = "resolved"
	ExceptionClosed       ExceptionStatus = "closed"
)

// exceptionTransitions is the validated lifecycle table. Resolved and closed
// are terminal; an exception is never reopened, a fresh one is created instead.
var exceptionTransitions = map[ExceptionStatus][]ExceptionStatus{
	ExceptionOpen:         {ExceptionAcknowledged, ExceptionInProgress, ExceptionResolved, ExceptionClosed},
	ExceptionAcknowledged: {ExceptionInProgress, ExceptionResolved, ExceptionClosed},
	ExceptionInProgress:   {ExceptionResolved, ExceptionClosed},
	ExceptionResolved:     {ExceptionClosed},
	ExceptionClosed:       {},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to ExceptionStatus) bool {
	for _, next := range exceptionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Exception struct {
	ID             uuid.UUID         `json:"id" db:"id"`
	Type           ExceptionType     `json:"type" db:"type"`
	Severity       ExceptionSeverity `json:"severity" db:"severity"`
	ItemID         uuid.UUID         `json:"item_id" db:"item_id"`
	LocationID     uuid.UUID         `json:"location_id" db:"location_id"`
	Title          string            `json:"title" db:"title"`
	Description    string            `json:"description" db:"description"`
	CurrentValue   float64           `json:"current_value" db:"current_value"`
	ThresholdValue float64           `json:"threshold_value" db:"threshold_value"`
	Status         ExceptionStatus   `json:"status" db:"status"`
	AssignedTo     *uuid.UUID        `json:"assigned_to,omitempty" db:"assigned_to"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// Transition validates and applies a lifecycle step, stamping ResolvedAt on
// entry to a terminal state.
func (e *Exception) Transition(to ExceptionStatus, now time.Time) error {
	if !CanTransition(e.Status, to) {
		return fmt.Errorf("illegal exception transition %s -> %s", e.Status, to)
	}
	e.Status = to
	e.UpdatedAt = now
	if to == ExceptionResolved || to == ExceptionClosed {
		t := now
		e.ResolvedAt = &t
	}
	return nil
}
