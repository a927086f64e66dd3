package services

import (
	"context"
	"fmt"
	"log"
	"sort"

	"stocksense/internal/caching"
	"stocksense/internal/common"
	"stocksense/internal/models"
	"stocksense/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ABCConfig holds the cumulative-value tier boundaries.
type ABCConfig struct {
	TierAThreshold float64
	TierBThreshold float64
}

func DefaultABCConfig() ABCConfig {
	return ABCConfig{TierAThreshold: 80, TierBThreshold: 95}
}

type ABCService interface {
	// Run classifies active items by annual consumption value and commits the
	// snapshot atomically. Nil filters mean the network-wide classification.
	Run(ctx context.Context, locationID *uuid.UUID, category *string, period string) (*models.ABCAnalysis, error)
	GetLatest(ctx context.Context, locationID *uuid.UUID, category *string) (*models.ABCAnalysis, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ABCAnalysis, error)
}

type abcService struct {
	abcRepo       repositories.ABCRepository
	itemRepo      repositories.ItemRepository
	inventoryRepo repositories.InventoryRepository
	cache         caching.CacheService
	config        ABCConfig
}

func NewABCService(
	abcRepo repositories.ABCRepository,
	itemRepo repositories.ItemRepository,
	inventoryRepo repositories.InventoryRepository,
	cache caching.CacheService,
	config ABCConfig,
) ABCService {
	return &abcService{
		abcRepo:       abcRepo,
		itemRepo:      itemRepo,
		inventoryRepo: inventoryRepo,
		cache:         cache,
		config:        config,
	}
}

func (s *abcService) Run(ctx context.Context, locationID *uuid.UUID, category *string, period string) (*models.ABCAnalysis, error) {
	items, err := s.itemRepo.ListAllActive(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if len(items) == 0 {
		return nil, common.DataQualityErrorf("no active items to classify")
	}

	usage, err := s.inventoryRepo.AnnualUsage(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("annual usage: %w", err)
	}

	ranked := rankByValue(items, usage)
	classify(ranked, s.config)

	analysis := &models.ABCAnalysis{
		ID:         uuid.New(),
		LocationID: locationID,
		Category:   category,
		Period:     period,
		Items:      ranked,
	}
	if err := s.abcRepo.CreateSnapshot(ctx, analysis); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	s.cache.InvalidateLatestABC(ctx, locationID, category)

	log.Printf("abc: committed snapshot %s for period %s (%d items)", analysis.ID, period, len(ranked))
	return analysis, nil
}

// rankByValue sorts items by annual consumption value descending, breaking
// ties deterministically by sku, and fills per-item percentage columns with
// decimal arithmetic so penny-scale values rank stably.
func rankByValue(items []*models.Item, usage map[uuid.UUID]float64) []models.ABCItem {
	type valued struct {
		item  *models.Item
		usage float64
		value decimal.Decimal
	}

	valuedItems := make([]valued, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		u := usage[item.ID]
		v := decimal.NewFromFloat(u).Mul(decimal.NewFromFloat(item.UnitCost))
		valuedItems = append(valuedItems, valued{item: item, usage: u, value: v})
		total = total.Add(v)
	}

	sort.Slice(valuedItems, func(i, j int) bool {
		if !valuedItems[i].value.Equal(valuedItems[j].value) {
			return valuedItems[i].value.GreaterThan(valuedItems[j].value)
		}
		return valuedItems[i].item.SKU < valuedItems[j].item.SKU
	})

	ranked := make([]models.ABCItem, len(valuedItems))
	cumulative := decimal.Zero
	hundred := decimal.NewFromInt(100)
	for i, v := range valuedItems {
		pct := decimal.Zero
		if total.IsPositive() {
			pct = v.value.Div(total).Mul(hundred)
		}
		cumulative = cumulative.Add(pct)
		cum := cumulative
		// The last ranked item closes the distribution at exactly 100%.
		if i == len(valuedItems)-1 && total.IsPositive() {
			cum = hundred
		}
		ranked[i] = models.ABCItem{
			ItemID:               v.item.ID,
			SKU:                  v.item.SKU,
			Name:                 v.item.Name,
			AnnualUsage:          v.usage,
			AnnualValue:          v.value.InexactFloat64(),
			PercentageOfValue:    pct.InexactFloat64(),
			CumulativePercentage: cum.InexactFloat64(),
		}
	}
	return ranked
}

func classify(ranked []models.ABCItem, config ABCConfig) {
	for i := range ranked {
		switch {
		case ranked[i].CumulativePercentage <= config.TierAThreshold:
			ranked[i].Tier = models.TierA
		case ranked[i].CumulativePercentage <= config.TierBThreshold:
			ranked[i].Tier = models.TierB
		default:
			ranked[i].Tier = models.TierC
		}
	}
}

func (s *abcService) GetLatest(ctx context.Context, locationID *uuid.UUID, category *string) (*models.ABCAnalysis, error) {
	if analysis, ok := s.cache.GetLatestABC(ctx, locationID, category); ok {
		return analysis, nil
	}
	analysis, err := s.abcRepo.GetLatest(ctx, locationID, category)
	if err != nil {
		return nil, err
	}
	s.cache.SetLatestABC(ctx, locationID, category, analysis)
	return analysis, nil
}

func (s *abcService) GetByID(ctx context.Context, id uuid.UUID) (*models.ABCAnalysis, error) {
	return s.abcRepo.GetByID(ctx, id)
}
