package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"stocksense/internal/caching"
	"stocksense/internal/common"
	"stocksense/internal/models"
	"stocksense/internal/repositories"
	"stocksense/internal/stats"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PolicyConfig holds the calculator's tuning knobs.
type PolicyConfig struct {
	// DemandHistoryDays is the trailing shipment window used when no usable
	// forecast exists.
	DemandHistoryDays int
	// ReviewPeriodDays is the review cycle for base_stock and mrp policies.
	ReviewPeriodDays int
	// MaxDemandMultiple caps min_max's max at this many days of mean demand.
	MaxDemandMultiple float64
	// DefaultServiceLevel applies when neither an override nor an ABC tier is
	// available for the item.
	DefaultServiceLevel float64
	TierServiceLevels   map[models.ABCTier]float64
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		DemandHistoryDays:   90,
		ReviewPeriodDays:    7,
		MaxDemandMultiple:   90,
		DefaultServiceLevel: 0.95,
		TierServiceLevels: map[models.ABCTier]float64{
			models.TierA: 0.98,
			models.TierB: 0.95,
			models.TierC: 0.90,
		},
	}
}

// PolicyRequest describes one recomputation for an (item, location) pair.
// ServiceLevel zero means "resolve from the item's ABC tier".
type PolicyRequest struct {
	ItemID              uuid.UUID         `json:"item_id"`
	LocationID          uuid.UUID         `json:"location_id"`
	PolicyType          models.PolicyType `json:"policy_type"`
	ServiceLevel        float64           `json:"service_level,omitempty"`
	LeadTime            float64           `json:"lead_time"`
	LeadTimeVariability float64           `json:"lead_time_variability"`
	CarryingCost        float64           `json:"carrying_cost"`
	StockoutCost        float64           `json:"stockout_cost"`
	OrderingCost        float64           `json:"ordering_cost"`
}

type PolicyService interface {
	// Calculate computes a policy without persisting it, for previews.
	Calculate(ctx context.Context, req *PolicyRequest) (*models.InventoryPolicy, error)
	// Recompute calculates and atomically activates a new policy version,
	// then pushes its thresholds onto the pair's inventory record.
	Recompute(ctx context.Context, req *PolicyRequest) (*models.InventoryPolicy, error)
	GetActive(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryPolicy, error)
	ListVersions(ctx context.Context, itemID, locationID uuid.UUID, limit, offset int) ([]*models.InventoryPolicy, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.InventoryPolicy, error)
}

type policyService struct {
	policyRepo    repositories.PolicyRepository
	forecastRepo  repositories.ForecastRepository
	inventoryRepo repositories.InventoryRepository
	itemRepo      repositories.ItemRepository
	abcRepo       repositories.ABCRepository
	cache         caching.CacheService
	locks         *common.KeyLock
	config        PolicyConfig
}

func NewPolicyService(
	policyRepo repositories.PolicyRepository,
	forecastRepo repositories.ForecastRepository,
	inventoryRepo repositories.InventoryRepository,
	itemRepo repositories.ItemRepository,
	abcRepo repositories.ABCRepository,
	cache caching.CacheService,
	locks *common.KeyLock,
	config PolicyConfig,
) PolicyService {
	return &policyService{
		policyRepo:    policyRepo,
		forecastRepo:  forecastRepo,
		inventoryRepo: inventoryRepo,
		itemRepo:      itemRepo,
		abcRepo:       abcRepo,
		cache:         cache,
		locks:         locks,
		config:        config,
	}
}

// demandEstimate is the per-pair demand picture the formulas run on.
type demandEstimate struct {
	mean       float64
	stdDev     float64
	buckets    []float64
	confidence models.PolicyConfidence
}

// estimateDemand prefers the latest completed forecast; anything missing or
// incomplete falls back to a trailing moving average of shipment history with
// degraded confidence. The fallback never fails: a pair with no history at
// all yields a zero-demand estimate.
func (s *policyService) estimateDemand(ctx context.Context, itemID, locationID uuid.UUID) *demandEstimate {
	forecast, err := s.forecastRepo.GetLatestByPair(ctx, itemID, locationID)
	if err == nil && forecast.Status == models.ForecastCompleted {
		points, err := s.forecastRepo.GetDataPoints(ctx, forecast.ID)
		if err == nil && len(points) > 0 {
			return estimateFromForecast(points)
		}
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("policy: forecast lookup for %s/%s failed, falling back to history: %v", itemID, locationID, err)
	}

	since := time.Now().AddDate(0, 0, -s.config.DemandHistoryDays)
	history, err := s.inventoryRepo.DailyDemand(ctx, itemID, locationID, since)
	if err != nil {
		log.Printf("policy: demand history for %s/%s failed: %v", itemID, locationID, err)
		history = nil
	}
	return &demandEstimate{
		mean:       stats.Mean(history),
		stdDev:     stats.StdDev(history),
		buckets:    history,
		confidence: models.ConfidenceLow,
	}
}

func estimateFromForecast(points []models.ForecastDataPoint) *demandEstimate {
	values := make([]float64, len(points))
	var sigmaSum float64
	sigmas := 0
	for i, p := range points {
		values[i] = p.Forecast
		if sigma, err := stats.BandStdDev(p.LowerBound, p.UpperBound, p.Confidence); err == nil {
			sigmaSum += sigma
			sigmas++
		}
	}
	est := &demandEstimate{
		mean:       stats.Mean(values),
		buckets:    values,
		confidence: models.ConfidenceNormal,
	}
	if sigmas > 0 {
		est.stdDev = sigmaSum / float64(sigmas)
	} else {
		est.stdDev = stats.StdDev(values)
	}
	return est
}

// resolveServiceLevel applies the override when given, otherwise the item's
// tier in the latest network-wide classification, otherwise the default.
func (s *policyService) resolveServiceLevel(ctx context.Context, itemID uuid.UUID, override float64) float64 {
	if override > 0 {
		return override
	}
	analysis, err := s.abcRepo.GetLatest(ctx, nil, nil)
	if err == nil {
		for _, item := range analysis.Items {
			if item.ItemID == itemID {
				if level, ok := s.config.TierServiceLevels[item.Tier]; ok {
					return level
				}
			}
		}
	}
	return s.config.DefaultServiceLevel
}

func (s *policyService) Calculate(ctx context.Context, req *PolicyRequest) (*models.InventoryPolicy, error) {
	if !req.PolicyType.Valid() {
		return nil, common.InvalidParameterErrorf("unknown policy type %q", req.PolicyType)
	}
	if req.LeadTime < 0 || req.LeadTimeVariability < 0 {
		return nil, common.InvalidParameterErrorf("negative lead time inputs")
	}

	item, err := s.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("load item %s: %w", req.ItemID, err)
	}

	serviceLevel := s.resolveServiceLevel(ctx, req.ItemID, req.ServiceLevel)
	z, err := stats.SafetyFactor(serviceLevel)
	if err != nil {
		return nil, err
	}

	demand := s.estimateDemand(ctx, req.ItemID, req.LocationID)
	sigmaLTD := stats.LeadTimeDemandStdDev(demand.stdDev, req.LeadTime, req.LeadTimeVariability, demand.mean)

	safetyStock := math.Max(0, z*sigmaLTD)
	reorderPoint := demand.mean*req.LeadTime + safetyStock
	if reorderPoint < safetyStock {
		reorderPoint = safetyStock
	}

	policy := &models.InventoryPolicy{
		ID:                  uuid.New(),
		ItemID:              req.ItemID,
		LocationID:          req.LocationID,
		PolicyType:          req.PolicyType,
		ServiceLevel:        serviceLevel,
		LeadTime:            req.LeadTime,
		LeadTimeVariability: req.LeadTimeVariability,
		CarryingCost:        req.CarryingCost,
		StockoutCost:        req.StockoutCost,
		OrderingCost:        req.OrderingCost,
		SafetyStock:         safetyStock,
		ReorderPoint:        reorderPoint,
		Confidence:          demand.confidence,
	}

	switch req.PolicyType {
	case models.PolicySS:
		eoq, err := economicOrderQuantity(demand.mean, req.OrderingCost, req.CarryingCost, item.UnitCost)
		if err != nil {
			return nil, err
		}
		policy.MaxStock = reorderPoint + eoq
		policy.Parameters.SS = &models.SSParameters{ReorderPoint: reorderPoint, OrderUpTo: policy.MaxStock}

	case models.PolicyMinMax:
		eoq, err := economicOrderQuantity(demand.mean, req.OrderingCost, req.CarryingCost, item.UnitCost)
		if err != nil {
			return nil, err
		}
		max := math.Min(reorderPoint+eoq, s.config.MaxDemandMultiple*demand.mean)
		if max < reorderPoint {
			max = reorderPoint
		}
		policy.MaxStock = max
		policy.Parameters.MinMax = &models.MinMaxParameters{Min: reorderPoint, Max: max}

	case models.PolicyEOQ:
		eoq, err := economicOrderQuantity(demand.mean, req.OrderingCost, req.CarryingCost, item.UnitCost)
		if err != nil {
			return nil, err
		}
		policy.MaxStock = reorderPoint + eoq
		policy.Parameters.EOQ = &models.EOQParameters{OrderQuantity: eoq, ReorderPoint: reorderPoint}

	case models.PolicyBaseStock:
		review := float64(s.config.ReviewPeriodDays)
		base := demand.mean*(req.LeadTime+review) + safetyStock
		if base < reorderPoint {
			base = reorderPoint
		}
		policy.MaxStock = base
		policy.ReorderPoint = base
		policy.Parameters.BaseStock = &models.BaseStockParameters{
			BaseStock:        base,
			ReviewPeriodDays: s.config.ReviewPeriodDays,
		}

	case models.PolicyMRP:
		onHand := 0.0
		if inv, err := s.inventoryRepo.GetByPair(ctx, req.ItemID, req.LocationID); err == nil {
			onHand = inv.AvailableQuantity
		}
		planned := plannedOrders(demand.buckets, onHand, safetyStock)
		peak := reorderPoint
		for _, q := range planned {
			if reorderPoint+q > peak {
				peak = reorderPoint + q
			}
		}
		policy.MaxStock = peak
		policy.Parameters.MRP = &models.MRPParameters{
			ReviewPeriodDays: s.config.ReviewPeriodDays,
			PlannedOrders:    planned,
		}
	}

	if err := policy.Parameters.Validate(policy.PolicyType); err != nil {
		return nil, common.InvalidParameterErrorf("%v", err)
	}
	if !policy.ThresholdsOrdered() {
		return nil, common.DomainErrorf("computed thresholds out of order: ss=%v rop=%v max=%v",
			policy.SafetyStock, policy.ReorderPoint, policy.MaxStock)
	}
	return policy, nil
}

// economicOrderQuantity is pure: identical inputs produce identical outputs.
func economicOrderQuantity(dailyDemand, orderingCost, carryingCost, unitCost float64) (float64, error) {
	if carryingCost <= 0 {
		return 0, common.InvalidParameterErrorf("carrying cost must be positive, got %v", carryingCost)
	}
	if unitCost <= 0 {
		return 0, common.InvalidParameterErrorf("unit cost must be positive, got %v", unitCost)
	}
	if orderingCost < 0 {
		return 0, common.InvalidParameterErrorf("ordering cost must be non-negative, got %v", orderingCost)
	}
	annualDemand := dailyDemand * 365
	if annualDemand <= 0 {
		return 0, nil
	}
	return math.Sqrt(2 * annualDemand * orderingCost / (carryingCost * unitCost)), nil
}

// plannedOrders runs a time-phased net-requirements rollup over the demand
// buckets: each bucket's planned order covers the shortfall of projected
// on-hand against gross requirements plus the safety floor.
func plannedOrders(buckets []float64, onHand, safetyStock float64) []float64 {
	planned := make([]float64, len(buckets))
	projected := onHand
	for i, gross := range buckets {
		need := gross + safetyStock - projected
		if need > 0 {
			planned[i] = need
			projected += need
		}
		projected -= gross
	}
	return planned
}

func (s *policyService) Recompute(ctx context.Context, req *PolicyRequest) (*models.InventoryPolicy, error) {
	policy, err := s.Calculate(ctx, req)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(req.ItemID, req.LocationID)
	defer s.locks.Unlock(req.ItemID, req.LocationID)

	if err := s.policyRepo.ActivateNewVersion(ctx, policy); err != nil {
		return nil, fmt.Errorf("activate policy for %s/%s: %w", req.ItemID, req.LocationID, err)
	}
	s.cache.InvalidateActivePolicy(ctx, req.ItemID, req.LocationID)

	if err := s.inventoryRepo.UpdateThresholds(ctx, req.ItemID, req.LocationID,
		policy.SafetyStock, policy.ReorderPoint, policy.MaxStock); err != nil {
		log.Printf("policy: threshold push for %s/%s failed: %v", req.ItemID, req.LocationID, err)
	}

	log.Printf("policy: activated %s v%d for %s/%s (confidence=%s)",
		policy.PolicyType, policy.Version, req.ItemID, req.LocationID, policy.Confidence)
	return policy, nil
}

func (s *policyService) GetActive(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryPolicy, error) {
	if policy, ok := s.cache.GetActivePolicy(ctx, itemID, locationID); ok {
		return policy, nil
	}
	policy, err := s.policyRepo.GetActive(ctx, itemID, locationID)
	if err != nil {
		return nil, err
	}
	s.cache.SetActivePolicy(ctx, policy)
	return policy, nil
}

func (s *policyService) ListVersions(ctx context.Context, itemID, locationID uuid.UUID, limit, offset int) ([]*models.InventoryPolicy, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.policyRepo.ListVersions(ctx, itemID, locationID, limit, offset)
}

func (s *policyService) ListActive(ctx context.Context, limit, offset int) ([]*models.InventoryPolicy, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.policyRepo.ListActive(ctx, limit, offset)
}
