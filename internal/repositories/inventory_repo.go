package repositories

import (
	"context"
	"fmt"
	"time"

	"stocksense/internal/common"
	"stocksense/internal/models"

	"github.com/google/uuid"
)

type InventoryRepository interface {
	Create(ctx context.Context, inventory *models.Inventory) error
	GetByPair(ctx context.Context, itemID, locationID uuid.UUID) (*models.Inventory, error)
	List(ctx context.Context, limit, offset int) ([]*models.Inventory, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*models.Inventory, error)
	// UpdateLevels writes quantity/reserved/available guarded by the
	// last-updated stamp the caller read; a lost update surfaces as
	// ErrConcurrencyConflict.
	UpdateLevels(ctx context.Context, inventory *models.Inventory, expected time.Time) error
	UpdateThresholds(ctx context.Context, itemID, locationID uuid.UUID, safetyStock, reorderPoint, maxStock float64) error
	// ApplyMovement appends the movement and writes the new levels in one
	// transaction so the log never disagrees with the on-hand state.
	ApplyMovement(ctx context.Context, movement *models.InventoryMovement, inventory *models.Inventory, expected time.Time) error
	ListMovements(ctx context.Context, filter *models.MovementSearchFilter) ([]*models.InventoryMovement, error)
	// DailyDemand returns total shipped quantity per day for the pair since
	// the given time, oldest first. Days without shipments are absent.
	DailyDemand(ctx context.Context, itemID, locationID uuid.UUID, since time.Time) ([]float64, error)
	// AnnualUsage returns total shipped quantity per item over the trailing
	// 365 days, optionally scoped to one location.
	AnnualUsage(ctx context.Context, locationID *uuid.UUID) (map[uuid.UUID]float64, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*models.Inventory, error)
}

type inventoryRepo struct {
	db DB
}

func NewInventoryRepo(db DB) InventoryRepository {
	return &inventoryRepo{db: db}
}

const inventoryColumns = `id, item_id, location_id, quantity, reserved_quantity, available_quantity, safety_stock, reorder_point, max_stock, last_updated`

func (r *inventoryRepo) Create(ctx context.Context, inventory *models.Inventory) error {
	query := `
		INSERT INTO inventory (id, item_id, location_id, quantity, reserved_quantity, available_quantity, safety_stock, reorder_point, max_stock, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (item_id, location_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, inventory.ID, inventory.ItemID, inventory.LocationID,
		inventory.Quantity, inventory.ReservedQuantity, inventory.AvailableQuantity,
		inventory.SafetyStock, inventory.ReorderPoint, inventory.MaxStock)
	return err
}

func scanInventory(row interface{ Scan(dest ...any) error }) (*models.Inventory, error) {
	inv := &models.Inventory{}
	err := row.Scan(&inv.ID, &inv.ItemID, &inv.LocationID, &inv.Quantity, &inv.ReservedQuantity,
		&inv.AvailableQuantity, &inv.SafetyStock, &inv.ReorderPoint, &inv.MaxStock, &inv.LastUpdated)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *inventoryRepo) GetByPair(ctx context.Context, itemID, locationID uuid.UUID) (*models.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE item_id = $1 AND location_id = $2`
	return scanInventory(r.db.QueryRow(ctx, query, itemID, locationID))
}

func (r *inventoryRepo) List(ctx context.Context, limit, offset int) ([]*models.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory ORDER BY last_updated DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inventories []*models.Inventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		inventories = append(inventories, inv)
	}
	return inventories, rows.Err()
}

func (r *inventoryRepo) ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*models.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE location_id = $1 ORDER BY last_updated DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, locationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inventories []*models.Inventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		inventories = append(inventories, inv)
	}
	return inventories, rows.Err()
}

const updateLevelsQuery = `
		UPDATE inventory
		SET quantity = $1, reserved_quantity = $2, available_quantity = $3, last_updated = NOW()
		WHERE item_id = $4 AND location_id = $5 AND last_updated = $6
	`

func (r *inventoryRepo) UpdateLevels(ctx context.Context, inventory *models.Inventory, expected time.Time) error {
	tag, err := r.db.Exec(ctx, updateLevelsQuery,
		inventory.Quantity, inventory.ReservedQuantity, inventory.AvailableQuantity,
		inventory.ItemID, inventory.LocationID, expected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ConcurrencyConflictErrorf("inventory %s/%s changed since read", inventory.ItemID, inventory.LocationID)
	}
	return nil
}

func (r *inventoryRepo) UpdateThresholds(ctx context.Context, itemID, locationID uuid.UUID, safetyStock, reorderPoint, maxStock float64) error {
	query := `
		UPDATE inventory
		SET safety_stock = $1, reorder_point = $2, max_stock = $3, last_updated = NOW()
		WHERE item_id = $4 AND location_id = $5
	`
	_, err := r.db.Exec(ctx, query, safetyStock, reorderPoint, maxStock, itemID, locationID)
	return err
}

func (r *inventoryRepo) ApplyMovement(ctx context.Context, movement *models.InventoryMovement, inventory *models.Inventory, expected time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO inventory_movements (id, item_id, location_id, type, quantity, reference, reference_type, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	if _, err := tx.Exec(ctx, insert, movement.ID, movement.ItemID, movement.LocationID,
		movement.Type, movement.Quantity, movement.Reference, movement.ReferenceType, movement.Notes); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, updateLevelsQuery,
		inventory.Quantity, inventory.ReservedQuantity, inventory.AvailableQuantity,
		inventory.ItemID, inventory.LocationID, expected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ConcurrencyConflictErrorf("inventory %s/%s changed since read", inventory.ItemID, inventory.LocationID)
	}

	return tx.Commit(ctx)
}

func (r *inventoryRepo) ListMovements(ctx context.Context, filter *models.MovementSearchFilter) ([]*models.InventoryMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	query := `
		SELECT id, item_id, location_id, type, quantity, reference, reference_type, notes, created_at
		FROM inventory_movements
		WHERE 1=1
	`
	args := []any{}
	n := 0

	if filter.ItemID != nil {
		n++
		query += fmt.Sprintf(` AND item_id = $%d`, n)
		args = append(args, *filter.ItemID)
	}
	if filter.LocationID != nil {
		n++
		query += fmt.Sprintf(` AND location_id = $%d`, n)
		args = append(args, *filter.LocationID)
	}
	if filter.Type != nil {
		n++
		query += fmt.Sprintf(` AND type = $%d`, n)
		args = append(args, *filter.Type)
	}
	if filter.From != nil {
		n++
		query += fmt.Sprintf(` AND created_at >= $%d`, n)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		n++
		query += fmt.Sprintf(` AND created_at <= $%d`, n)
		args = append(args, *filter.To)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, n+1)
	args = append(args, filter.Limit)
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, n+2)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []*models.InventoryMovement
	for rows.Next() {
		m := &models.InventoryMovement{}
		if err := rows.Scan(&m.ID, &m.ItemID, &m.LocationID, &m.Type, &m.Quantity, &m.Reference, &m.ReferenceType, &m.Notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *inventoryRepo) DailyDemand(ctx context.Context, itemID, locationID uuid.UUID, since time.Time) ([]float64, error) {
	query := `
		SELECT SUM(quantity)
		FROM inventory_movements
		WHERE item_id = $1 AND location_id = $2 AND type = 'shipment' AND created_at >= $3
		GROUP BY DATE_TRUNC('day', created_at)
		ORDER BY DATE_TRUNC('day', created_at)
	`
	rows, err := r.db.Query(ctx, query, itemID, locationID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var demand []float64
	for rows.Next() {
		var qty float64
		if err := rows.Scan(&qty); err != nil {
			return nil, err
		}
		demand = append(demand, qty)
	}
	return demand, rows.Err()
}

func (r *inventoryRepo) AnnualUsage(ctx context.Context, locationID *uuid.UUID) (map[uuid.UUID]float64, error) {
	query := `
		SELECT item_id, SUM(quantity)
		FROM inventory_movements
		WHERE type = 'shipment' AND created_at >= NOW() - INTERVAL '365 days'
	`
	args := []any{}
	if locationID != nil {
		query += ` AND location_id = $1`
		args = append(args, *locationID)
	}
	query += ` GROUP BY item_id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := make(map[uuid.UUID]float64)
	for rows.Next() {
		var itemID uuid.UUID
		var qty float64
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, err
		}
		usage[itemID] = qty
	}
	return usage, rows.Err()
}

func (r *inventoryRepo) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*models.Inventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE item_id = $1`
	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inventories []*models.Inventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		inventories = append(inventories, inv)
	}
	return inventories, rows.Err()
}
