package models

import (
	"time"

	"github.com/google/uuid"
)

type ForecastStatus string

const (
	ForecastPending   ForecastStatus = "pending"
	ForecastRunning   ForecastStatus = "running"
	ForecastCompleted ForecastStatus = "completed"
	ForecastFailed    ForecastStatus = "failed"
)

type ForecastFrequency string

const (
	FrequencyDaily   ForecastFrequency = "daily"
	FrequencyWeekly  ForecastFrequency = "weekly"
	FrequencyMonthly ForecastFrequency = "monthly"
)

// Forecast is a read-only input produced by the external forecasting
// collaborator. The engine never mutates it.
type Forecast struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	ItemID     uuid.UUID         `json:"item_id" db:"item_id"`
	LocationID uuid.UUID         `json:"location_id" db:"location_id"`
	ModelType  string            `json:"model_type" db:"model_type"`
	Horizon    int               `json:"horizon" db:"horizon"`
	Frequency  ForecastFrequency `json:"frequency" db:"frequency"`
	Status     ForecastStatus    `json:"status" db:"status"`
	StartDate  time.Time         `json:"start_date" db:"start_date"`
	EndDate    time.Time         `json:"end_date" db:"end_date"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" db:"updated_at"`
}

// ForecastDataPoint carries a point estimate plus a two-sided band whose
// coverage probability is Confidence.
type ForecastDataPoint struct {
	Date       time.Time `json:"date" db:"date"`
	Forecast   float64   `json:"forecast" db:"forecast"`
	LowerBound float64   `json:"lower_bound" db:"lower_bound"`
	UpperBound float64   `json:"upper_bound" db:"upper_bound"`
	Confidence float64   `json:"confidence" db:"confidence"`
}
