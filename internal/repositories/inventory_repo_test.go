package repositories

import (
	"context"
	"testing"
	"time"

	"stocksense/internal/common"
	"stocksense/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type InventoryRepoTestSuite struct {
	suite.Suite
	mock       pgxmock.PgxPoolIface
	repo       InventoryRepository
	itemID     uuid.UUID
	locationID uuid.UUID
	context    context.Context
}

func (suite *InventoryRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewInventoryRepo(mock)
	suite.itemID = uuid.New()
	suite.locationID = uuid.New()
	suite.context = context.Background()
}

func (suite *InventoryRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestInventoryRepoTestSuite(t *testing.T) {
	suite.Run(t, new(InventoryRepoTestSuite))
}

func (suite *InventoryRepoTestSuite) inventory() *models.Inventory {
	inv := &models.Inventory{
		ID:               uuid.New(),
		ItemID:           suite.itemID,
		LocationID:       suite.locationID,
		Quantity:         150,
		ReservedQuantity: 30,
		SafetyStock:      12,
		ReorderPoint:     45,
		MaxStock:         200,
		LastUpdated:      time.Now(),
	}
	inv.Recompute()
	return inv
}

func (suite *InventoryRepoTestSuite) TestGetByPair_Success() {
	inv := suite.inventory()

	suite.mock.ExpectQuery(`SELECT id, item_id, location_id, quantity, reserved_quantity, available_quantity, safety_stock, reorder_point, max_stock, last_updated FROM inventory WHERE item_id = \$1 AND location_id = \$2`).
		WithArgs(suite.itemID, suite.locationID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "item_id", "location_id", "quantity", "reserved_quantity",
			"available_quantity", "safety_stock", "reorder_point", "max_stock", "last_updated",
		}).AddRow(inv.ID, inv.ItemID, inv.LocationID, inv.Quantity, inv.ReservedQuantity,
			inv.AvailableQuantity, inv.SafetyStock, inv.ReorderPoint, inv.MaxStock, inv.LastUpdated))

	result, err := suite.repo.GetByPair(suite.context, suite.itemID, suite.locationID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), inv.ID, result.ID)
	assert.Equal(suite.T(), 120.0, result.AvailableQuantity)
}

func (suite *InventoryRepoTestSuite) TestGetByPair_NotFound() {
	suite.mock.ExpectQuery(`SELECT id, item_id, location_id, quantity, reserved_quantity, available_quantity, safety_stock, reorder_point, max_stock, last_updated FROM inventory WHERE item_id = \$1 AND location_id = \$2`).
		WithArgs(suite.itemID, suite.locationID).
		WillReturnError(pgx.ErrNoRows)

	result, err := suite.repo.GetByPair(suite.context, suite.itemID, suite.locationID)
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
	assert.Nil(suite.T(), result)
}

func (suite *InventoryRepoTestSuite) TestUpdateLevels_Success() {
	inv := suite.inventory()
	expected := inv.LastUpdated

	suite.mock.ExpectExec(`
			UPDATE inventory
			SET quantity = \$1, reserved_quantity = \$2, available_quantity = \$3, last_updated = NOW\(\)
			WHERE item_id = \$4 AND location_id = \$5 AND last_updated = \$6
		`).WithArgs(inv.Quantity, inv.ReservedQuantity, inv.AvailableQuantity,
		inv.ItemID, inv.LocationID, expected).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.UpdateLevels(suite.context, inv, expected)
	assert.NoError(suite.T(), err)
}

func (suite *InventoryRepoTestSuite) TestUpdateLevels_StaleStampConflicts() {
	inv := suite.inventory()
	expected := inv.LastUpdated

	suite.mock.ExpectExec(`
			UPDATE inventory
			SET quantity = \$1, reserved_quantity = \$2, available_quantity = \$3, last_updated = NOW\(\)
			WHERE item_id = \$4 AND location_id = \$5 AND last_updated = \$6
		`).WithArgs(inv.Quantity, inv.ReservedQuantity, inv.AvailableQuantity,
		inv.ItemID, inv.LocationID, expected).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := suite.repo.UpdateLevels(suite.context, inv, expected)
	assert.ErrorIs(suite.T(), err, common.ErrConcurrencyConflict)
}

func (suite *InventoryRepoTestSuite) TestApplyMovement_CommitsLogAndLevels() {
	inv := suite.inventory()
	expected := inv.LastUpdated
	movement := &models.InventoryMovement{
		ID:            uuid.New(),
		ItemID:        suite.itemID,
		LocationID:    suite.locationID,
		Type:          models.MovementReceipt,
		Quantity:      50,
		Reference:     "PO-1001",
		ReferenceType: "purchase_order",
	}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`
			INSERT INTO inventory_movements \(id, item_id, location_id, type, quantity, reference, reference_type, notes, created_at\)
			VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, NOW\(\)\)
		`).WithArgs(movement.ID, movement.ItemID, movement.LocationID,
		movement.Type, movement.Quantity, movement.Reference, movement.ReferenceType, movement.Notes).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`
			UPDATE inventory
			SET quantity = \$1, reserved_quantity = \$2, available_quantity = \$3, last_updated = NOW\(\)
			WHERE item_id = \$4 AND location_id = \$5 AND last_updated = \$6
		`).WithArgs(inv.Quantity, inv.ReservedQuantity, inv.AvailableQuantity,
		inv.ItemID, inv.LocationID, expected).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	suite.mock.ExpectCommit()

	err := suite.repo.ApplyMovement(suite.context, movement, inv, expected)
	assert.NoError(suite.T(), err)
}

func (suite *InventoryRepoTestSuite) TestApplyMovement_StaleStampRollsBack() {
	inv := suite.inventory()
	expected := inv.LastUpdated
	movement := &models.InventoryMovement{
		ID:         uuid.New(),
		ItemID:     suite.itemID,
		LocationID: suite.locationID,
		Type:       models.MovementShipment,
		Quantity:   20,
	}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`
			INSERT INTO inventory_movements \(id, item_id, location_id, type, quantity, reference, reference_type, notes, created_at\)
			VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, NOW\(\)\)
		`).WithArgs(movement.ID, movement.ItemID, movement.LocationID,
		movement.Type, movement.Quantity, movement.Reference, movement.ReferenceType, movement.Notes).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`
			UPDATE inventory
			SET quantity = \$1, reserved_quantity = \$2, available_quantity = \$3, last_updated = NOW\(\)
			WHERE item_id = \$4 AND location_id = \$5 AND last_updated = \$6
		`).WithArgs(inv.Quantity, inv.ReservedQuantity, inv.AvailableQuantity,
		inv.ItemID, inv.LocationID, expected).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	suite.mock.ExpectRollback()

	err := suite.repo.ApplyMovement(suite.context, movement, inv, expected)
	assert.ErrorIs(suite.T(), err, common.ErrConcurrencyConflict)
}

func (suite *InventoryRepoTestSuite) TestDailyDemand_OldestFirst() {
	since := time.Now().AddDate(0, 0, -30)

	suite.mock.ExpectQuery(`
			SELECT SUM\(quantity\)
			FROM inventory_movements
			WHERE item_id = \$1 AND location_id = \$2 AND type = 'shipment' AND created_at >= \$3
			GROUP BY DATE_TRUNC\('day', created_at\)
			ORDER BY DATE_TRUNC\('day', created_at\)
		`).WithArgs(suite.itemID, suite.locationID, since).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(12.0).AddRow(8.0).AddRow(15.0))

	demand, err := suite.repo.DailyDemand(suite.context, suite.itemID, suite.locationID, since)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), []float64{12, 8, 15}, demand)
}

func (suite *InventoryRepoTestSuite) TestAnnualUsage_ScopedToLocation() {
	itemA := uuid.New()
	itemB := uuid.New()

	suite.mock.ExpectQuery(`
			SELECT item_id, SUM\(quantity\)
			FROM inventory_movements
			WHERE type = 'shipment' AND created_at >= NOW\(\) - INTERVAL '365 days'
		 AND location_id = \$1 GROUP BY item_id`).
		WithArgs(suite.locationID).
		WillReturnRows(pgxmock.NewRows([]string{"item_id", "sum"}).
			AddRow(itemA, 420.0).
			AddRow(itemB, 35.0))

	usage, err := suite.repo.AnnualUsage(suite.context, &suite.locationID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 420.0, usage[itemA])
	assert.Equal(suite.T(), 35.0, usage[itemB])
}

func (suite *InventoryRepoTestSuite) TestCreate_PairAlreadyExists() {
	inv := suite.inventory()

	suite.mock.ExpectExec(`
			INSERT INTO inventory \(id, item_id, location_id, quantity, reserved_quantity, available_quantity, safety_stock, reorder_point, max_stock, last_updated\)
			VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, NOW\(\)\)
			ON CONFLICT \(item_id, location_id\) DO NOTHING
		`).WithArgs(inv.ID, inv.ItemID, inv.LocationID, inv.Quantity, inv.ReservedQuantity,
		inv.AvailableQuantity, inv.SafetyStock, inv.ReorderPoint, inv.MaxStock).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := suite.repo.Create(suite.context, inv)
	assert.NoError(suite.T(), err)
}
