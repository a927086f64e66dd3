package services

import (
	"context"
	"math"
	"testing"

	"stocksense/internal/common"
	"stocksense/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type PolicyServiceTestSuite struct {
	suite.Suite
	policyRepo    *MockPolicyRepository
	forecastRepo  *MockForecastRepository
	inventoryRepo *MockInventoryRepository
	itemRepo      *MockItemRepository
	abcRepo       *MockABCRepository
	cache         *MockCacheService
	service       PolicyService
	itemID        uuid.UUID
	locationID    uuid.UUID
	context       context.Context
}

func (suite *PolicyServiceTestSuite) SetupTest() {
	suite.policyRepo = new(MockPolicyRepository)
	suite.forecastRepo = new(MockForecastRepository)
	suite.inventoryRepo = new(MockInventoryRepository)
	suite.itemRepo = new(MockItemRepository)
	suite.abcRepo = new(MockABCRepository)
	suite.cache = new(MockCacheService)
	suite.service = NewPolicyService(
		suite.policyRepo, suite.forecastRepo, suite.inventoryRepo,
		suite.itemRepo, suite.abcRepo, suite.cache,
		common.NewKeyLock(), DefaultPolicyConfig(),
	)
	suite.itemID = uuid.New()
	suite.locationID = uuid.New()
	suite.context = context.Background()
}

func TestPolicyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PolicyServiceTestSuite))
}

// primeSteadyDemand wires a completed forecast with flat demand of 20/day and
// a 95% band matching a standard deviation of 5.
func (suite *PolicyServiceTestSuite) primeSteadyDemand() {
	forecast := &models.Forecast{
		ID:         uuid.New(),
		ItemID:     suite.itemID,
		LocationID: suite.locationID,
		Status:     models.ForecastCompleted,
	}
	halfBand := 1.959963984540054 * 5
	points := make([]models.ForecastDataPoint, 14)
	for i := range points {
		points[i] = models.ForecastDataPoint{
			Forecast:   20,
			LowerBound: 20 - halfBand,
			UpperBound: 20 + halfBand,
			Confidence: 0.95,
		}
	}
	suite.forecastRepo.On("GetLatestByPair", suite.context, suite.itemID, suite.locationID).Return(forecast, nil)
	suite.forecastRepo.On("GetDataPoints", suite.context, forecast.ID).Return(points, nil)
}

func (suite *PolicyServiceTestSuite) primeItem(unitCost float64) {
	suite.itemRepo.On("GetByID", suite.context, suite.itemID).Return(&models.Item{
		ID:       suite.itemID,
		SKU:      "SKU-1",
		UnitCost: unitCost,
	}, nil)
}

func (suite *PolicyServiceTestSuite) steadyRequest(policyType models.PolicyType) *PolicyRequest {
	return &PolicyRequest{
		ItemID:       suite.itemID,
		LocationID:   suite.locationID,
		PolicyType:   policyType,
		ServiceLevel: 0.95,
		LeadTime:     7,
		CarryingCost: 0.2,
		OrderingCost: 50,
	}
}

func (suite *PolicyServiceTestSuite) TestCalculateSS_KnownValues() {
	suite.primeItem(10)
	suite.primeSteadyDemand()

	policy, err := suite.service.Calculate(suite.context, suite.steadyRequest(models.PolicySS))
	assert.NoError(suite.T(), err)

	// z(0.95) = 1.6449, sigma_LTD = sqrt(7 * 25) = 13.2288
	z := 1.6448536269514722
	sigmaLTD := math.Sqrt(7 * 25)
	expectedSS := z * sigmaLTD
	expectedROP := 20*7 + expectedSS
	expectedEOQ := math.Sqrt(2 * 20 * 365 * 50 / (0.2 * 10))

	assert.InDelta(suite.T(), expectedSS, policy.SafetyStock, 0.1)
	assert.InDelta(suite.T(), expectedROP, policy.ReorderPoint, 0.1)
	assert.NotNil(suite.T(), policy.Parameters.SS)
	assert.InDelta(suite.T(), expectedROP, policy.Parameters.SS.ReorderPoint, 0.1)
	assert.InDelta(suite.T(), expectedROP+expectedEOQ, policy.Parameters.SS.OrderUpTo, 0.5)
	assert.Equal(suite.T(), models.ConfidenceNormal, policy.Confidence)
	assert.True(suite.T(), policy.ThresholdsOrdered())
}

func (suite *PolicyServiceTestSuite) TestCalculateBaseStock_KnownValues() {
	suite.primeItem(10)
	suite.primeSteadyDemand()

	policy, err := suite.service.Calculate(suite.context, suite.steadyRequest(models.PolicyBaseStock))
	assert.NoError(suite.T(), err)

	// base = mean * (leadTime + review) + z * sigma_LTD over lead time,
	// with the default 7-day review period.
	z := 1.6448536269514722
	expectedSS := z * math.Sqrt(7*25)
	expectedBase := 20*(7+7) + expectedSS

	assert.NotNil(suite.T(), policy.Parameters.BaseStock)
	assert.InDelta(suite.T(), expectedBase, policy.Parameters.BaseStock.BaseStock, 0.1)
	assert.Equal(suite.T(), 7, policy.Parameters.BaseStock.ReviewPeriodDays)
	assert.InDelta(suite.T(), expectedBase, policy.MaxStock, 0.1)
	assert.Equal(suite.T(), policy.MaxStock, policy.ReorderPoint)
	assert.True(suite.T(), policy.ThresholdsOrdered())
}

func (suite *PolicyServiceTestSuite) TestCalculateEOQ_Idempotent() {
	suite.primeItem(10)
	suite.primeSteadyDemand()

	first, err := suite.service.Calculate(suite.context, suite.steadyRequest(models.PolicyEOQ))
	assert.NoError(suite.T(), err)
	second, err := suite.service.Calculate(suite.context, suite.steadyRequest(models.PolicyEOQ))
	assert.NoError(suite.T(), err)

	assert.Equal(suite.T(), first.Parameters.EOQ.OrderQuantity, second.Parameters.EOQ.OrderQuantity)
	assert.Equal(suite.T(), first.Parameters.EOQ.ReorderPoint, second.Parameters.EOQ.ReorderPoint)

	expectedEOQ := math.Sqrt(2 * 20 * 365 * 50 / (0.2 * 10))
	assert.InDelta(suite.T(), expectedEOQ, first.Parameters.EOQ.OrderQuantity, 0.5)
}

func (suite *PolicyServiceTestSuite) TestCalculate_NonPositiveCarryingCost() {
	suite.primeItem(10)
	suite.primeSteadyDemand()

	req := suite.steadyRequest(models.PolicyEOQ)
	req.CarryingCost = 0

	_, err := suite.service.Calculate(suite.context, req)
	assert.ErrorIs(suite.T(), err, common.ErrInvalidParameter)
}

func (suite *PolicyServiceTestSuite) TestCalculate_NonPositiveUnitCost() {
	suite.primeItem(0)
	suite.primeSteadyDemand()

	_, err := suite.service.Calculate(suite.context, suite.steadyRequest(models.PolicyEOQ))
	assert.ErrorIs(suite.T(), err, common.ErrInvalidParameter)
}

func (suite *PolicyServiceTestSuite) TestCalculate_UnknownPolicyType() {
	_, err := suite.service.Calculate(suite.context, &PolicyRequest{
		ItemID:     suite.itemID,
		LocationID: suite.locationID,
		PolicyType: "quantum",
	})
	assert.ErrorIs(suite.T(), err, common.ErrInvalidParameter)
}

func (suite *PolicyServiceTestSuite) TestCalculate_FallbackToHistory() {
	suite.primeItem(10)
	suite.forecastRepo.On("GetLatestByPair", suite.context, suite.itemID, suite.locationID).
		Return(nil, pgx.ErrNoRows)
	suite.inventoryRepo.On("DailyDemand", suite.context, suite.itemID, suite.locationID, mock.Anything).
		Return([]float64{18, 22, 20, 19, 21}, nil)

	policy, err := suite.service.Calculate(suite.context, suite.steadyRequest(models.PolicySS))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.ConfidenceLow, policy.Confidence)
	assert.True(suite.T(), policy.ThresholdsOrdered())
	assert.Greater(suite.T(), policy.ReorderPoint, 0.0)
}

func (suite *PolicyServiceTestSuite) TestCalculate_NoDataAtAll() {
	suite.primeItem(10)
	suite.forecastRepo.On("GetLatestByPair", suite.context, suite.itemID, suite.locationID).
		Return(nil, pgx.ErrNoRows)
	suite.inventoryRepo.On("DailyDemand", suite.context, suite.itemID, suite.locationID, mock.Anything).
		Return([]float64{}, nil)

	policy, err := suite.service.Calculate(suite.context, suite.steadyRequest(models.PolicySS))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.ConfidenceLow, policy.Confidence)
	assert.Equal(suite.T(), 0.0, policy.SafetyStock)
	assert.True(suite.T(), policy.ThresholdsOrdered())
}

func (suite *PolicyServiceTestSuite) TestCalculate_ThresholdOrderingAllTypes() {
	suite.primeItem(10)
	suite.primeSteadyDemand()
	suite.inventoryRepo.On("GetByPair", suite.context, suite.itemID, suite.locationID).
		Return(&models.Inventory{AvailableQuantity: 100}, nil)

	for _, policyType := range []models.PolicyType{
		models.PolicySS, models.PolicyMinMax, models.PolicyEOQ, models.PolicyBaseStock, models.PolicyMRP,
	} {
		policy, err := suite.service.Calculate(suite.context, suite.steadyRequest(policyType))
		assert.NoError(suite.T(), err, "policy type %s", policyType)
		assert.True(suite.T(), policy.ThresholdsOrdered(), "policy type %s", policyType)
		assert.NoError(suite.T(), policy.Parameters.Validate(policyType))
	}
}

func (suite *PolicyServiceTestSuite) TestCalculateMinMax_CappedByDemandMultiple() {
	suite.primeItem(10)
	suite.primeSteadyDemand()

	policy, err := suite.service.Calculate(suite.context, suite.steadyRequest(models.PolicyMinMax))
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), policy.Parameters.MinMax)
	assert.LessOrEqual(suite.T(), policy.Parameters.MinMax.Min, policy.Parameters.MinMax.Max)
	// Default cap is 90 days of mean demand.
	assert.LessOrEqual(suite.T(), policy.Parameters.MinMax.Max, 90*20.0+0.001)
}

func (suite *PolicyServiceTestSuite) TestCalculate_ABCTierServiceLevel() {
	suite.primeItem(10)
	suite.primeSteadyDemand()
	suite.abcRepo.On("GetLatest", suite.context, (*uuid.UUID)(nil), (*string)(nil)).
		Return(&models.ABCAnalysis{
			Items: []models.ABCItem{{ItemID: suite.itemID, Tier: models.TierA}},
		}, nil)

	req := suite.steadyRequest(models.PolicySS)
	req.ServiceLevel = 0 // resolve from tier

	policy, err := suite.service.Calculate(suite.context, req)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0.98, policy.ServiceLevel)
}

func (suite *PolicyServiceTestSuite) TestRecompute_ActivatesAtomically() {
	suite.primeItem(10)
	suite.primeSteadyDemand()

	suite.policyRepo.On("ActivateNewVersion", suite.context, mock.AnythingOfType("*models.InventoryPolicy")).
		Run(func(args mock.Arguments) {
			policy := args.Get(1).(*models.InventoryPolicy)
			policy.Version = 3
			policy.IsActive = true
		}).Return(nil)
	suite.cache.On("InvalidateActivePolicy", suite.context, suite.itemID, suite.locationID).Return()
	suite.inventoryRepo.On("UpdateThresholds", suite.context, suite.itemID, suite.locationID,
		mock.Anything, mock.Anything, mock.Anything).Return(nil)

	policy, err := suite.service.Recompute(suite.context, suite.steadyRequest(models.PolicySS))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, policy.Version)
	assert.True(suite.T(), policy.IsActive)

	suite.policyRepo.AssertExpectations(suite.T())
	suite.cache.AssertExpectations(suite.T())
	suite.inventoryRepo.AssertCalled(suite.T(), "UpdateThresholds", suite.context, suite.itemID, suite.locationID,
		mock.Anything, mock.Anything, mock.Anything)
}

func (suite *PolicyServiceTestSuite) TestGetActive_CacheAside() {
	cached := &models.InventoryPolicy{ID: uuid.New(), ItemID: suite.itemID, LocationID: suite.locationID}
	suite.cache.On("GetActivePolicy", suite.context, suite.itemID, suite.locationID).Return(cached, true)

	policy, err := suite.service.GetActive(suite.context, suite.itemID, suite.locationID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), cached.ID, policy.ID)
	suite.policyRepo.AssertNotCalled(suite.T(), "GetActive", suite.context, suite.itemID, suite.locationID)
}
