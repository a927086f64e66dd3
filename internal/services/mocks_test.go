package services

import (
	"context"
	"time"

	"stocksense/internal/models"
	"stocksense/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock repositories and collaborators

type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Create(ctx context.Context, item *models.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockItemRepository) GetBySKU(ctx context.Context, sku string) (*models.Item, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockItemRepository) List(ctx context.Context, limit, offset int) ([]*models.Item, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Item), args.Error(1)
}

func (m *MockItemRepository) ListByCategory(ctx context.Context, category string, limit, offset int) ([]*models.Item, error) {
	args := m.Called(ctx, category, limit, offset)
	return args.Get(0).([]*models.Item), args.Error(1)
}

func (m *MockItemRepository) ListAllActive(ctx context.Context, category *string) ([]*models.Item, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Item), args.Error(1)
}

type MockLocationRepository struct {
	mock.Mock
}

func (m *MockLocationRepository) Create(ctx context.Context, location *models.Location) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}

func (m *MockLocationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationRepository) GetByCode(ctx context.Context, code string) (*models.Location, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationRepository) List(ctx context.Context, limit, offset int) ([]*models.Location, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Location), args.Error(1)
}

func (m *MockLocationRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.Location, error) {
	args := m.Called(ctx, parentID)
	return args.Get(0).([]*models.Location), args.Error(1)
}

type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) Create(ctx context.Context, inventory *models.Inventory) error {
	args := m.Called(ctx, inventory)
	return args.Error(0)
}

func (m *MockInventoryRepository) GetByPair(ctx context.Context, itemID, locationID uuid.UUID) (*models.Inventory, error) {
	args := m.Called(ctx, itemID, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inventory), args.Error(1)
}

func (m *MockInventoryRepository) List(ctx context.Context, limit, offset int) ([]*models.Inventory, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Inventory), args.Error(1)
}

func (m *MockInventoryRepository) ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*models.Inventory, error) {
	args := m.Called(ctx, locationID, limit, offset)
	return args.Get(0).([]*models.Inventory), args.Error(1)
}

func (m *MockInventoryRepository) UpdateLevels(ctx context.Context, inventory *models.Inventory, expected time.Time) error {
	args := m.Called(ctx, inventory, expected)
	return args.Error(0)
}

func (m *MockInventoryRepository) UpdateThresholds(ctx context.Context, itemID, locationID uuid.UUID, safetyStock, reorderPoint, maxStock float64) error {
	args := m.Called(ctx, itemID, locationID, safetyStock, reorderPoint, maxStock)
	return args.Error(0)
}

func (m *MockInventoryRepository) ApplyMovement(ctx context.Context, movement *models.InventoryMovement, inventory *models.Inventory, expected time.Time) error {
	args := m.Called(ctx, movement, inventory, expected)
	return args.Error(0)
}

func (m *MockInventoryRepository) ListMovements(ctx context.Context, filter *models.MovementSearchFilter) ([]*models.InventoryMovement, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.InventoryMovement), args.Error(1)
}

func (m *MockInventoryRepository) DailyDemand(ctx context.Context, itemID, locationID uuid.UUID, since time.Time) ([]float64, error) {
	args := m.Called(ctx, itemID, locationID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

func (m *MockInventoryRepository) AnnualUsage(ctx context.Context, locationID *uuid.UUID) (map[uuid.UUID]float64, error) {
	args := m.Called(ctx, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]float64), args.Error(1)
}

func (m *MockInventoryRepository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*models.Inventory, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).([]*models.Inventory), args.Error(1)
}

type MockForecastRepository struct {
	mock.Mock
}

func (m *MockForecastRepository) Create(ctx context.Context, forecast *models.Forecast) error {
	args := m.Called(ctx, forecast)
	return args.Error(0)
}

func (m *MockForecastRepository) ReplaceDataPoints(ctx context.Context, forecastID uuid.UUID, points []models.ForecastDataPoint) error {
	args := m.Called(ctx, forecastID, points)
	return args.Error(0)
}

func (m *MockForecastRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Forecast, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Forecast), args.Error(1)
}

func (m *MockForecastRepository) GetLatestByPair(ctx context.Context, itemID, locationID uuid.UUID) (*models.Forecast, error) {
	args := m.Called(ctx, itemID, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Forecast), args.Error(1)
}

func (m *MockForecastRepository) GetDataPoints(ctx context.Context, forecastID uuid.UUID) ([]models.ForecastDataPoint, error) {
	args := m.Called(ctx, forecastID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ForecastDataPoint), args.Error(1)
}

type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) GetActive(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryPolicy, error) {
	args := m.Called(ctx, itemID, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryPolicy), args.Error(1)
}

func (m *MockPolicyRepository) ListVersions(ctx context.Context, itemID, locationID uuid.UUID, limit, offset int) ([]*models.InventoryPolicy, error) {
	args := m.Called(ctx, itemID, locationID, limit, offset)
	return args.Get(0).([]*models.InventoryPolicy), args.Error(1)
}

func (m *MockPolicyRepository) ListActive(ctx context.Context, limit, offset int) ([]*models.InventoryPolicy, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.InventoryPolicy), args.Error(1)
}

func (m *MockPolicyRepository) ActivateNewVersion(ctx context.Context, policy *models.InventoryPolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

type MockABCRepository struct {
	mock.Mock
}

func (m *MockABCRepository) CreateSnapshot(ctx context.Context, analysis *models.ABCAnalysis) error {
	args := m.Called(ctx, analysis)
	return args.Error(0)
}

func (m *MockABCRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ABCAnalysis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ABCAnalysis), args.Error(1)
}

func (m *MockABCRepository) GetLatest(ctx context.Context, locationID *uuid.UUID, category *string) (*models.ABCAnalysis, error) {
	args := m.Called(ctx, locationID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ABCAnalysis), args.Error(1)
}

type MockExceptionRepository struct {
	mock.Mock
}

func (m *MockExceptionRepository) Create(ctx context.Context, exception *models.Exception) error {
	args := m.Called(ctx, exception)
	return args.Error(0)
}

func (m *MockExceptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Exception, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Exception), args.Error(1)
}

func (m *MockExceptionRepository) GetOpenByKey(ctx context.Context, excType models.ExceptionType, itemID, locationID uuid.UUID) (*models.Exception, error) {
	args := m.Called(ctx, excType, itemID, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Exception), args.Error(1)
}

func (m *MockExceptionRepository) ListOpenByPair(ctx context.Context, itemID, locationID uuid.UUID) ([]*models.Exception, error) {
	args := m.Called(ctx, itemID, locationID)
	return args.Get(0).([]*models.Exception), args.Error(1)
}

func (m *MockExceptionRepository) List(ctx context.Context, filter *repositories.ExceptionSearchFilter) ([]*models.Exception, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.Exception), args.Error(1)
}

func (m *MockExceptionRepository) UpdateObservation(ctx context.Context, id uuid.UUID, currentValue float64) error {
	args := m.Called(ctx, id, currentValue)
	return args.Error(0)
}

func (m *MockExceptionRepository) UpdateStatus(ctx context.Context, exception *models.Exception) error {
	args := m.Called(ctx, exception)
	return args.Error(0)
}

func (m *MockExceptionRepository) CountResolvedInPeriod(ctx context.Context, excType models.ExceptionType, locationID *uuid.UUID, from, to time.Time) (int, error) {
	args := m.Called(ctx, excType, locationID, from, to)
	return args.Int(0), args.Error(1)
}

// MockCacheService always misses unless primed; set/invalidate calls are
// recorded for assertions.
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetActivePolicy(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryPolicy, bool) {
	args := m.Called(ctx, itemID, locationID)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.InventoryPolicy), args.Bool(1)
}

func (m *MockCacheService) SetActivePolicy(ctx context.Context, policy *models.InventoryPolicy) {
	m.Called(ctx, policy)
}

func (m *MockCacheService) InvalidateActivePolicy(ctx context.Context, itemID, locationID uuid.UUID) {
	m.Called(ctx, itemID, locationID)
}

func (m *MockCacheService) GetLatestABC(ctx context.Context, locationID *uuid.UUID, category *string) (*models.ABCAnalysis, bool) {
	args := m.Called(ctx, locationID, category)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.ABCAnalysis), args.Bool(1)
}

func (m *MockCacheService) SetLatestABC(ctx context.Context, locationID *uuid.UUID, category *string, analysis *models.ABCAnalysis) {
	m.Called(ctx, locationID, category, analysis)
}

func (m *MockCacheService) InvalidateLatestABC(ctx context.Context, locationID *uuid.UUID, category *string) {
	m.Called(ctx, locationID, category)
}
