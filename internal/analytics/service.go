package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"stocksense/internal/common"
	"stocksense/internal/models"
	"stocksense/internal/repositories"
	"stocksense/internal/stats"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockoutSource selects the authoritative input for the stockout rate. The
// choice is recorded on every snapshot so consumers can compare like with like.
const (
	StockoutSourceDemand     = "demand"
	StockoutSourceExceptions = "exceptions"
)

type Config struct {
	StockoutSource string
	// CarryingCostRate is the annual holding cost as a fraction of value.
	CarryingCostRate float64
	// StockoutCostPerUnit prices each unfilled unit in the cost rollup.
	StockoutCostPerUnit float64
	// InventoryPageSize bounds scope scans over inventory records.
	InventoryPageSize int
}

func DefaultConfig() Config {
	return Config{
		StockoutSource:      StockoutSourceDemand,
		CarryingCostRate:    0.25,
		StockoutCostPerUnit: 0,
		InventoryPageSize:   500,
	}
}

type Service interface {
	// Rollup computes one append-only KPI snapshot for a closed period.
	// Scopes carry at most one of location, item, or category; none means the
	// whole network.
	Rollup(ctx context.Context, scope models.KPIScope) (*models.KPIMetrics, error)
	GetLatest(ctx context.Context, scope models.KPIScope) (*models.KPIMetrics, error)
	ListByPeriod(ctx context.Context, period string, limit, offset int) ([]*models.KPIMetrics, error)
	// IngestOrderLine records a demand line pushed by the order-management
	// collaborator. Lines feed fill rate and OTIF; the engine never mutates
	// them afterwards.
	IngestOrderLine(ctx context.Context, line *models.OrderLine) error
}

type service struct {
	kpiRepo       repositories.KPIRepository
	orderRepo     repositories.OrderLineRepository
	inventoryRepo repositories.InventoryRepository
	itemRepo      repositories.ItemRepository
	exceptionRepo repositories.ExceptionRepository
	forecastRepo  repositories.ForecastRepository
	config        Config
}

func NewService(
	kpiRepo repositories.KPIRepository,
	orderRepo repositories.OrderLineRepository,
	inventoryRepo repositories.InventoryRepository,
	itemRepo repositories.ItemRepository,
	exceptionRepo repositories.ExceptionRepository,
	forecastRepo repositories.ForecastRepository,
	config Config,
) Service {
	return &service{
		kpiRepo:       kpiRepo,
		orderRepo:     orderRepo,
		inventoryRepo: inventoryRepo,
		itemRepo:      itemRepo,
		exceptionRepo: exceptionRepo,
		forecastRepo:  forecastRepo,
		config:        config,
	}
}

func validateScope(scope models.KPIScope) error {
	set := 0
	if scope.LocationID != nil {
		set++
	}
	if scope.ItemID != nil {
		set++
	}
	if scope.Category != nil {
		set++
	}
	if set > 1 {
		return common.ScopeMismatchErrorf("scope carries %d dimensions, at most one allowed", set)
	}
	if _, _, err := periodRange(scope.Period); err != nil {
		return err
	}
	return nil
}

// periodRange parses a "2006-01" period label into its closed month interval.
func periodRange(period string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, common.ScopeMismatchErrorf("period %q is not a YYYY-MM label", period)
	}
	return from, from.AddDate(0, 1, 0), nil
}

func (s *service) Rollup(ctx context.Context, scope models.KPIScope) (*models.KPIMetrics, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	from, to, _ := periodRange(scope.Period)
	periodDays := to.Sub(from).Hours() / 24

	lines, err := s.orderRepo.ListForPeriod(ctx, scope.LocationID, scope.ItemID, scope.Category, from, to)
	if err != nil {
		return nil, fmt.Errorf("order lines for %s: %w", scope.Period, err)
	}

	ordered := decimal.Zero
	shipped := decimal.Zero
	onTimeInFull := 0
	for _, line := range lines {
		o := decimal.NewFromFloat(line.OrderedQty)
		sh := decimal.NewFromFloat(line.ShippedQty)
		if sh.GreaterThan(o) {
			sh = o
		}
		ordered = ordered.Add(o)
		shipped = shipped.Add(sh)
		if line.OnTimeInFull() {
			onTimeInFull++
		}
	}

	metrics := &models.KPIMetrics{
		ID:             uuid.New(),
		Scope:          scope,
		StockoutSource: s.config.StockoutSource,
	}

	if ordered.IsPositive() {
		metrics.FillRate = shipped.Div(ordered).InexactFloat64()
	}
	if len(lines) > 0 {
		metrics.OTIF = float64(onTimeInFull) / float64(len(lines))
	}

	switch s.config.StockoutSource {
	case StockoutSourceExceptions:
		count, err := s.exceptionRepo.CountResolvedInPeriod(ctx, models.ExceptionStockoutRisk, scope.LocationID, from, to)
		if err != nil {
			return nil, fmt.Errorf("stockout exceptions for %s: %w", scope.Period, err)
		}
		if len(lines) > 0 {
			metrics.StockoutRate = float64(count) / float64(len(lines))
			if metrics.StockoutRate > 1 {
				metrics.StockoutRate = 1
			}
		}
	default:
		if ordered.IsPositive() {
			metrics.StockoutRate = ordered.Sub(shipped).Div(ordered).InexactFloat64()
		}
	}

	inventories, unitCosts, err := s.scopeInventory(ctx, scope)
	if err != nil {
		return nil, err
	}

	value := decimal.Zero
	for _, inv := range inventories {
		value = value.Add(decimal.NewFromFloat(inv.Quantity).Mul(unitCosts[inv.ItemID]))
	}
	cogs := decimal.Zero
	for _, line := range lines {
		cost, ok := unitCosts[line.ItemID]
		if !ok {
			cost = s.unitCost(ctx, unitCosts, line.ItemID)
		}
		cogs = cogs.Add(decimal.NewFromFloat(line.ShippedQty).Mul(cost))
	}

	if value.IsPositive() && cogs.IsPositive() {
		annualized := cogs.Mul(decimal.NewFromFloat(365 / periodDays))
		metrics.InventoryTurns = annualized.Div(value).InexactFloat64()
		dailyCOGS := cogs.Div(decimal.NewFromFloat(periodDays))
		metrics.DaysOfSupply = value.Div(dailyCOGS).InexactFloat64()
	}

	metrics.ForecastAccuracy = s.forecastAccuracy(ctx, inventories, from)

	carrying := value.Mul(decimal.NewFromFloat(s.config.CarryingCostRate * periodDays / 365))
	unfilled := ordered.Sub(shipped)
	stockout := unfilled.Mul(decimal.NewFromFloat(s.config.StockoutCostPerUnit))
	metrics.CarryingCost = carrying.InexactFloat64()
	metrics.StockoutCost = stockout.InexactFloat64()
	metrics.TotalCost = carrying.Add(stockout).InexactFloat64()

	if err := s.kpiRepo.Create(ctx, metrics); err != nil {
		return nil, fmt.Errorf("store snapshot for %s: %w", scope.Period, err)
	}
	log.Printf("analytics: rolled up period %s (%d lines, %d inventory records)", scope.Period, len(lines), len(inventories))
	return metrics, nil
}

// scopeInventory resolves the inventory records and unit costs a scope covers.
func (s *service) scopeInventory(ctx context.Context, scope models.KPIScope) ([]*models.Inventory, map[uuid.UUID]decimal.Decimal, error) {
	var inventories []*models.Inventory
	var err error

	switch {
	case scope.ItemID != nil:
		inventories, err = s.inventoryRepo.ListByItem(ctx, *scope.ItemID)
	case scope.Category != nil:
		var items []*models.Item
		items, err = s.itemRepo.ListAllActive(ctx, scope.Category)
		if err == nil {
			for _, item := range items {
				recs, ierr := s.inventoryRepo.ListByItem(ctx, item.ID)
				if ierr != nil {
					err = ierr
					break
				}
				inventories = append(inventories, recs...)
			}
		}
	case scope.LocationID != nil:
		inventories, err = s.pageInventory(ctx, func(limit, offset int) ([]*models.Inventory, error) {
			return s.inventoryRepo.ListByLocation(ctx, *scope.LocationID, limit, offset)
		})
	default:
		inventories, err = s.pageInventory(ctx, func(limit, offset int) ([]*models.Inventory, error) {
			return s.inventoryRepo.List(ctx, limit, offset)
		})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("scope inventory: %w", err)
	}

	unitCosts := make(map[uuid.UUID]decimal.Decimal)
	for _, inv := range inventories {
		if _, ok := unitCosts[inv.ItemID]; !ok {
			unitCosts[inv.ItemID] = s.unitCost(ctx, unitCosts, inv.ItemID)
		}
	}
	return inventories, unitCosts, nil
}

func (s *service) pageInventory(ctx context.Context, list func(limit, offset int) ([]*models.Inventory, error)) ([]*models.Inventory, error) {
	var all []*models.Inventory
	for offset := 0; ; offset += s.config.InventoryPageSize {
		page, err := list(s.config.InventoryPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < s.config.InventoryPageSize {
			return all, nil
		}
	}
}

func (s *service) unitCost(ctx context.Context, memo map[uuid.UUID]decimal.Decimal, itemID uuid.UUID) decimal.Decimal {
	if cost, ok := memo[itemID]; ok {
		return cost
	}
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		log.Printf("analytics: unit cost lookup for %s failed: %v", itemID, err)
		memo[itemID] = decimal.Zero
		return decimal.Zero
	}
	cost := decimal.NewFromFloat(item.UnitCost)
	memo[itemID] = cost
	return cost
}

// forecastAccuracy averages 1 - MAPE over pairs that have a matured completed
// forecast; pairs without one are skipped rather than dragging the average.
func (s *service) forecastAccuracy(ctx context.Context, inventories []*models.Inventory, from time.Time) float64 {
	var sum float64
	n := 0
	for _, inv := range inventories {
		forecast, err := s.forecastRepo.GetLatestByPair(ctx, inv.ItemID, inv.LocationID)
		if err != nil || forecast.Status != models.ForecastCompleted {
			continue
		}
		points, err := s.forecastRepo.GetDataPoints(ctx, forecast.ID)
		if err != nil || len(points) == 0 {
			continue
		}
		actual, err := s.inventoryRepo.DailyDemand(ctx, inv.ItemID, inv.LocationID, from)
		if err != nil || len(actual) == 0 {
			continue
		}

		m := len(actual)
		if len(points) < m {
			m = len(points)
		}
		forecastValues := make([]float64, m)
		for i := 0; i < m; i++ {
			forecastValues[i] = points[i].Forecast
		}
		mape, err := stats.MAPE(actual[:m], forecastValues)
		if err != nil {
			continue
		}
		accuracy := 1 - mape
		if accuracy < 0 {
			accuracy = 0
		}
		sum += accuracy
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (s *service) GetLatest(ctx context.Context, scope models.KPIScope) (*models.KPIMetrics, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	snapshot, err := s.kpiRepo.GetLatestForScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	if !snapshot.Scope.Equal(scope) {
		return nil, common.ScopeMismatchErrorf("snapshot %s was rolled up for a different scope", snapshot.ID)
	}
	return snapshot, nil
}

func (s *service) ListByPeriod(ctx context.Context, period string, limit, offset int) ([]*models.KPIMetrics, error) {
	return s.kpiRepo.ListByPeriod(ctx, period, limit, offset)
}

func (s *service) IngestOrderLine(ctx context.Context, line *models.OrderLine) error {
	if line.ItemID == uuid.Nil || line.LocationID == uuid.Nil {
		return common.InvalidParameterErrorf("order line requires item and location")
	}
	if line.OrderedQty <= 0 {
		return common.InvalidParameterErrorf("ordered quantity must be positive, got %v", line.OrderedQty)
	}
	if line.ShippedQty < 0 {
		return common.InvalidParameterErrorf("shipped quantity must be non-negative, got %v", line.ShippedQty)
	}
	if line.DueDate.IsZero() {
		return common.InvalidParameterErrorf("order line requires a due date")
	}
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return s.orderRepo.Create(ctx, line)
}
