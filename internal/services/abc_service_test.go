package services

import (
	"context"
	"testing"

	"stocksense/internal/common"
	"stocksense/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ABCServiceTestSuite struct {
	suite.Suite
	abcRepo       *MockABCRepository
	itemRepo      *MockItemRepository
	inventoryRepo *MockInventoryRepository
	cache         *MockCacheService
	service       ABCService
	context       context.Context
}

func (suite *ABCServiceTestSuite) SetupTest() {
	suite.abcRepo = new(MockABCRepository)
	suite.itemRepo = new(MockItemRepository)
	suite.inventoryRepo = new(MockInventoryRepository)
	suite.cache = new(MockCacheService)
	suite.service = NewABCService(suite.abcRepo, suite.itemRepo, suite.inventoryRepo, suite.cache, DefaultABCConfig())
	suite.context = context.Background()
}

func TestABCServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ABCServiceTestSuite))
}

func item(sku string, unitCost float64) *models.Item {
	return &models.Item{ID: uuid.New(), SKU: sku, Name: sku, UnitCost: unitCost, IsActive: true}
}

func (suite *ABCServiceTestSuite) TestRun_RanksAndTiers() {
	// One dominant item, one mid, two small.
	big := item("BIG-1", 100)
	mid := item("MID-1", 50)
	smallA := item("SMALL-A", 1)
	smallB := item("SMALL-B", 1)

	suite.itemRepo.On("ListAllActive", suite.context, (*string)(nil)).
		Return([]*models.Item{smallB, big, smallA, mid}, nil)
	suite.inventoryRepo.On("AnnualUsage", suite.context, (*uuid.UUID)(nil)).
		Return(map[uuid.UUID]float64{
			big.ID:    100, // value 10000
			mid.ID:    40,  // value 2000
			smallA.ID: 100, // value 100
			smallB.ID: 100, // value 100
		}, nil)
	suite.abcRepo.On("CreateSnapshot", suite.context, mock.AnythingOfType("*models.ABCAnalysis")).Return(nil)
	suite.cache.On("InvalidateLatestABC", suite.context, (*uuid.UUID)(nil), (*string)(nil)).Return()

	analysis, err := suite.service.Run(suite.context, nil, nil, "2026-08")
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), analysis.Items, 4)

	// Ranked by annual value descending.
	assert.Equal(suite.T(), "BIG-1", analysis.Items[0].SKU)
	assert.Equal(suite.T(), "MID-1", analysis.Items[1].SKU)
	// Equal values break ties by sku ascending.
	assert.Equal(suite.T(), "SMALL-A", analysis.Items[2].SKU)
	assert.Equal(suite.T(), "SMALL-B", analysis.Items[3].SKU)

	// Total value 12200: big covers ~82%, so tiers fall B after it.
	assert.Equal(suite.T(), models.TierB, analysis.Items[0].Tier)
	assert.Equal(suite.T(), models.TierC, analysis.Items[2].Tier)

	// Cumulative percentage is non-decreasing and closes at 100.
	prev := 0.0
	for _, ranked := range analysis.Items {
		assert.GreaterOrEqual(suite.T(), ranked.CumulativePercentage, prev)
		prev = ranked.CumulativePercentage
	}
	assert.InDelta(suite.T(), 100, analysis.Items[len(analysis.Items)-1].CumulativePercentage, 1e-9)
}

func (suite *ABCServiceTestSuite) TestRun_TierBoundaries() {
	// 80/15/5 split lands exactly on the default 80 and 95 boundaries.
	first := item("A-1", 80)
	second := item("B-1", 15)
	third := item("C-1", 5)

	suite.itemRepo.On("ListAllActive", suite.context, (*string)(nil)).
		Return([]*models.Item{first, second, third}, nil)
	suite.inventoryRepo.On("AnnualUsage", suite.context, (*uuid.UUID)(nil)).
		Return(map[uuid.UUID]float64{first.ID: 1, second.ID: 1, third.ID: 1}, nil)
	suite.abcRepo.On("CreateSnapshot", suite.context, mock.Anything).Return(nil)
	suite.cache.On("InvalidateLatestABC", suite.context, (*uuid.UUID)(nil), (*string)(nil)).Return()

	analysis, err := suite.service.Run(suite.context, nil, nil, "2026-08")
	assert.NoError(suite.T(), err)

	// Boundary values are inclusive: <= 80 is A, <= 95 is B.
	assert.Equal(suite.T(), models.TierA, analysis.Items[0].Tier)
	assert.Equal(suite.T(), models.TierB, analysis.Items[1].Tier)
	assert.Equal(suite.T(), models.TierC, analysis.Items[2].Tier)
}

func (suite *ABCServiceTestSuite) TestRun_NoItems() {
	suite.itemRepo.On("ListAllActive", suite.context, (*string)(nil)).
		Return([]*models.Item{}, nil)

	_, err := suite.service.Run(suite.context, nil, nil, "2026-08")
	assert.ErrorIs(suite.T(), err, common.ErrDataQuality)
	suite.abcRepo.AssertNotCalled(suite.T(), "CreateSnapshot", mock.Anything, mock.Anything)
}

func (suite *ABCServiceTestSuite) TestRun_ZeroUsageItemsRankLast() {
	active := item("ACTIVE-1", 10)
	dormant := item("DORMANT-1", 500)

	suite.itemRepo.On("ListAllActive", suite.context, (*string)(nil)).
		Return([]*models.Item{dormant, active}, nil)
	suite.inventoryRepo.On("AnnualUsage", suite.context, (*uuid.UUID)(nil)).
		Return(map[uuid.UUID]float64{active.ID: 10}, nil)
	suite.abcRepo.On("CreateSnapshot", suite.context, mock.Anything).Return(nil)
	suite.cache.On("InvalidateLatestABC", suite.context, (*uuid.UUID)(nil), (*string)(nil)).Return()

	analysis, err := suite.service.Run(suite.context, nil, nil, "2026-08")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "ACTIVE-1", analysis.Items[0].SKU)
	assert.Equal(suite.T(), 0.0, analysis.Items[1].AnnualValue)
}

func (suite *ABCServiceTestSuite) TestGetLatest_CacheAside() {
	cached := &models.ABCAnalysis{ID: uuid.New()}
	suite.cache.On("GetLatestABC", suite.context, (*uuid.UUID)(nil), (*string)(nil)).Return(cached, true)

	analysis, err := suite.service.GetLatest(suite.context, nil, nil)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), cached.ID, analysis.ID)
	suite.abcRepo.AssertNotCalled(suite.T(), "GetLatest", mock.Anything, mock.Anything, mock.Anything)
}
