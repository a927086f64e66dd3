package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"stocksense/internal/common"
	"stocksense/internal/models"
	"stocksense/internal/repositories"
	"stocksense/internal/stats"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DetectorConfig holds the detection rule thresholds.
type DetectorConfig struct {
	// StockoutHorizonDays is the projected run-out window for stockout_risk.
	StockoutHorizonDays float64
	// DriftThreshold is the trailing MAPE above which forecast_drift opens.
	DriftThreshold float64
	// DriftWindowDays bounds the trailing accuracy window.
	DriftWindowDays int
	// SweepWorkers bounds the fan-out of a full detector sweep.
	SweepWorkers int
	// SweepPageSize is the inventory page size during a sweep.
	SweepPageSize int
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		StockoutHorizonDays: 3,
		DriftThreshold:      0.20,
		DriftWindowDays:     30,
		SweepWorkers:        8,
		SweepPageSize:       200,
	}
}

type ExceptionService interface {
	// EvaluatePair runs every detection rule for one (item, location) pair,
	// opening, refreshing, or auto-resolving exceptions as conditions demand.
	EvaluatePair(ctx context.Context, itemID, locationID uuid.UUID) error
	// Sweep evaluates every inventory pair with bounded parallelism. Per-pair
	// failures are collected, never fatal.
	Sweep(ctx context.Context) (*common.BatchResult, error)

	Get(ctx context.Context, id uuid.UUID) (*models.Exception, error)
	List(ctx context.Context, filter *repositories.ExceptionSearchFilter) ([]*models.Exception, error)
	Acknowledge(ctx context.Context, id, userID uuid.UUID) (*models.Exception, error)
	Start(ctx context.Context, id uuid.UUID) (*models.Exception, error)
	Resolve(ctx context.Context, id uuid.UUID) (*models.Exception, error)
	Close(ctx context.Context, id uuid.UUID) (*models.Exception, error)
}

type exceptionService struct {
	exceptionRepo repositories.ExceptionRepository
	inventoryRepo repositories.InventoryRepository
	forecastRepo  repositories.ForecastRepository
	config        DetectorConfig
}

func NewExceptionService(
	exceptionRepo repositories.ExceptionRepository,
	inventoryRepo repositories.InventoryRepository,
	forecastRepo repositories.ForecastRepository,
	config DetectorConfig,
) ExceptionService {
	return &exceptionService{
		exceptionRepo: exceptionRepo,
		inventoryRepo: inventoryRepo,
		forecastRepo:  forecastRepo,
		config:        config,
	}
}

// finding is one rule's verdict for a pair.
type finding struct {
	excType   models.ExceptionType
	severity  models.ExceptionSeverity
	triggered bool
	current   float64
	threshold float64
	title     string
}

func (s *exceptionService) EvaluatePair(ctx context.Context, itemID, locationID uuid.UUID) error {
	inv, err := s.inventoryRepo.GetByPair(ctx, itemID, locationID)
	if err != nil {
		return fmt.Errorf("load inventory %s/%s: %w", itemID, locationID, err)
	}

	demandRate := s.demandRate(ctx, itemID, locationID)
	findings := s.evaluate(ctx, inv, demandRate)

	for _, f := range findings {
		if err := s.reconcile(ctx, inv, f); err != nil {
			return err
		}
	}
	return nil
}

// evaluate applies the rules in priority order. Each rule yields exactly one
// finding per pair so the reconcile step can both open and auto-resolve.
func (s *exceptionService) evaluate(ctx context.Context, inv *models.Inventory, demandRate float64) []finding {
	findings := make([]finding, 0, 5)

	runOut := finding{
		excType:   models.ExceptionStockoutRisk,
		severity:  models.SeverityCritical,
		threshold: s.config.StockoutHorizonDays,
		title:     "Projected stockout within horizon",
	}
	if demandRate > 0 {
		daysLeft := inv.AvailableQuantity / demandRate
		runOut.current = daysLeft
		runOut.triggered = daysLeft <= s.config.StockoutHorizonDays
	}
	findings = append(findings, runOut)

	findings = append(findings, finding{
		excType:   models.ExceptionLowStock,
		severity:  models.SeverityHigh,
		triggered: inv.ReorderPoint > 0 && inv.AvailableQuantity < inv.ReorderPoint,
		current:   inv.AvailableQuantity,
		threshold: inv.ReorderPoint,
		title:     "Available below reorder point",
	})

	findings = append(findings, finding{
		excType:   models.ExceptionExcessStock,
		severity:  models.SeverityMedium,
		triggered: inv.MaxStock > 0 && inv.Quantity > inv.MaxStock,
		current:   inv.Quantity,
		threshold: inv.MaxStock,
		title:     "On-hand above maximum stock",
	})

	findings = append(findings, finding{
		excType:   models.ExceptionPolicyViolation,
		severity:  models.SeverityMedium,
		triggered: !inv.ThresholdsOrdered(),
		current:   inv.ReorderPoint,
		threshold: inv.SafetyStock,
		title:     "Threshold ordering broken",
	})

	drift := finding{
		excType:   models.ExceptionForecastDrift,
		severity:  models.SeverityLow,
		threshold: s.config.DriftThreshold,
		title:     "Forecast accuracy degraded",
	}
	if mape, ok := s.trailingMAPE(ctx, inv.ItemID, inv.LocationID); ok {
		drift.current = mape
		drift.triggered = mape > s.config.DriftThreshold
		if mape >= 2*s.config.DriftThreshold {
			drift.severity = models.SeverityMedium
		}
	}
	findings = append(findings, drift)

	return findings
}

// reconcile enforces the at-most-one-open invariant per (type, item,
// location): a repeat trigger refreshes the open exception in place, a
// cleared condition auto-resolves it, and severity never changes after
// creation.
func (s *exceptionService) reconcile(ctx context.Context, inv *models.Inventory, f finding) error {
	existing, err := s.exceptionRepo.GetOpenByKey(ctx, f.excType, inv.ItemID, inv.LocationID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup open %s for %s/%s: %w", f.excType, inv.ItemID, inv.LocationID, err)
	}
	open := err == nil

	switch {
	case f.triggered && open:
		return s.exceptionRepo.UpdateObservation(ctx, existing.ID, f.current)

	case f.triggered:
		exception := &models.Exception{
			ID:             uuid.New(),
			Type:           f.excType,
			Severity:       f.severity,
			ItemID:         inv.ItemID,
			LocationID:     inv.LocationID,
			Title:          f.title,
			Description:    fmt.Sprintf("%s: current %.2f against threshold %.2f", f.title, f.current, f.threshold),
			CurrentValue:   f.current,
			ThresholdValue: f.threshold,
			Status:         models.ExceptionOpen,
		}
		if err := s.exceptionRepo.Create(ctx, exception); err != nil {
			return fmt.Errorf("open %s for %s/%s: %w", f.excType, inv.ItemID, inv.LocationID, err)
		}
		log.Printf("detector: opened %s (%s) for %s/%s", f.excType, f.severity, inv.ItemID, inv.LocationID)
		return nil

	case open:
		if err := existing.Transition(models.ExceptionResolved, time.Now()); err != nil {
			return err
		}
		if err := s.exceptionRepo.UpdateStatus(ctx, existing); err != nil {
			return fmt.Errorf("auto-resolve %s for %s/%s: %w", f.excType, inv.ItemID, inv.LocationID, err)
		}
		log.Printf("detector: auto-resolved %s for %s/%s", f.excType, inv.ItemID, inv.LocationID)
		return nil
	}
	return nil
}

// demandRate is mean daily demand, forecast first, shipment history second.
func (s *exceptionService) demandRate(ctx context.Context, itemID, locationID uuid.UUID) float64 {
	forecast, err := s.forecastRepo.GetLatestByPair(ctx, itemID, locationID)
	if err == nil && forecast.Status == models.ForecastCompleted {
		if points, err := s.forecastRepo.GetDataPoints(ctx, forecast.ID); err == nil && len(points) > 0 {
			values := make([]float64, len(points))
			for i, p := range points {
				values[i] = p.Forecast
			}
			return stats.Mean(values)
		}
	}
	since := time.Now().AddDate(0, 0, -s.config.DriftWindowDays)
	history, err := s.inventoryRepo.DailyDemand(ctx, itemID, locationID, since)
	if err != nil {
		return 0
	}
	return stats.Mean(history)
}

// trailingMAPE compares matured forecast points against realized shipments.
// Returns false when either series is too thin to judge drift.
func (s *exceptionService) trailingMAPE(ctx context.Context, itemID, locationID uuid.UUID) (float64, bool) {
	forecast, err := s.forecastRepo.GetLatestByPair(ctx, itemID, locationID)
	if err != nil || forecast.Status != models.ForecastCompleted {
		return 0, false
	}
	points, err := s.forecastRepo.GetDataPoints(ctx, forecast.ID)
	if err != nil || len(points) == 0 {
		return 0, false
	}

	since := time.Now().AddDate(0, 0, -s.config.DriftWindowDays)
	actual, err := s.inventoryRepo.DailyDemand(ctx, itemID, locationID, since)
	if err != nil || len(actual) == 0 {
		return 0, false
	}

	n := len(actual)
	if len(points) < n {
		n = len(points)
	}
	forecastValues := make([]float64, n)
	for i := 0; i < n; i++ {
		forecastValues[i] = points[i].Forecast
	}
	mape, err := stats.MAPE(actual[:n], forecastValues)
	if err != nil {
		return 0, false
	}
	return mape, true
}

func (s *exceptionService) Sweep(ctx context.Context) (*common.BatchResult, error) {
	result := &common.BatchResult{}
	var mu sync.Mutex

	pairs := make(chan *models.Inventory)
	var wg sync.WaitGroup
	for i := 0; i < s.config.SweepWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inv := range pairs {
				err := s.EvaluatePair(ctx, inv.ItemID, inv.LocationID)
				mu.Lock()
				result.Processed++
				if err != nil {
					result.Fail(fmt.Sprintf("%s/%s", inv.ItemID, inv.LocationID), err)
				}
				mu.Unlock()
			}
		}()
	}

	var pageErr error
	for offset := 0; ; offset += s.config.SweepPageSize {
		page, err := s.inventoryRepo.List(ctx, s.config.SweepPageSize, offset)
		if err != nil {
			pageErr = err
			break
		}
		if len(page) == 0 {
			break
		}
		for _, inv := range page {
			if ctx.Err() != nil {
				pageErr = ctx.Err()
				break
			}
			pairs <- inv
		}
		if pageErr != nil || len(page) < s.config.SweepPageSize {
			break
		}
	}
	close(pairs)
	wg.Wait()

	if pageErr != nil {
		return result, fmt.Errorf("detector sweep aborted: %w", pageErr)
	}
	log.Printf("detector: sweep processed %d pairs, %d failures", result.Processed, len(result.Failures))
	return result, nil
}

func (s *exceptionService) Get(ctx context.Context, id uuid.UUID) (*models.Exception, error) {
	return s.exceptionRepo.GetByID(ctx, id)
}

func (s *exceptionService) List(ctx context.Context, filter *repositories.ExceptionSearchFilter) ([]*models.Exception, error) {
	return s.exceptionRepo.List(ctx, filter)
}

func (s *exceptionService) transition(ctx context.Context, id uuid.UUID, to models.ExceptionStatus) (*models.Exception, error) {
	exception, err := s.exceptionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := exception.Transition(to, time.Now()); err != nil {
		return nil, common.InvalidParameterErrorf("%v", err)
	}
	if err := s.exceptionRepo.UpdateStatus(ctx, exception); err != nil {
		return nil, err
	}
	return exception, nil
}

func (s *exceptionService) Acknowledge(ctx context.Context, id, userID uuid.UUID) (*models.Exception, error) {
	exception, err := s.exceptionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := exception.Transition(models.ExceptionAcknowledged, time.Now()); err != nil {
		return nil, common.InvalidParameterErrorf("%v", err)
	}
	exception.AssignedTo = &userID
	if err := s.exceptionRepo.UpdateStatus(ctx, exception); err != nil {
		return nil, err
	}
	return exception, nil
}

func (s *exceptionService) Start(ctx context.Context, id uuid.UUID) (*models.Exception, error) {
	return s.transition(ctx, id, models.ExceptionInProgress)
}

func (s *exceptionService) Resolve(ctx context.Context, id uuid.UUID) (*models.Exception, error) {
	return s.transition(ctx, id, models.ExceptionResolved)
}

func (s *exceptionService) Close(ctx context.Context, id uuid.UUID) (*models.Exception, error) {
	return s.transition(ctx, id, models.ExceptionClosed)
}
