package repositories

import (
	"context"

	"stocksense/internal/models"

	"github.com/google/uuid"
)

type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	GetBySKU(ctx context.Context, sku string) (*models.Item, error)
	List(ctx context.Context, limit, offset int) ([]*models.Item, error)
	ListByCategory(ctx context.Context, category string, limit, offset int) ([]*models.Item, error)
	ListAllActive(ctx context.Context, category *string) ([]*models.Item, error)
}

type itemRepo struct {
	db DB
}

func NewItemRepo(db DB) ItemRepository {
	return &itemRepo{db: db}
}

const itemColumns = `id, sku, name, description, category, unit_of_measure, unit_cost, unit_price, is_active, created_at, updated_at`

func (r *itemRepo) Create(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (id, sku, name, description, category, unit_of_measure, unit_cost, unit_price, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (sku) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, item.ID, item.SKU, item.Name, item.Description, item.Category, item.UnitOfMeasure, item.UnitCost, item.UnitPrice, item.IsActive)
	return err
}

func scanItem(row interface{ Scan(dest ...any) error }) (*models.Item, error) {
	item := &models.Item{}
	err := row.Scan(&item.ID, &item.SKU, &item.Name, &item.Description, &item.Category, &item.UnitOfMeasure, &item.UnitCost, &item.UnitPrice, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *itemRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	return scanItem(r.db.QueryRow(ctx, query, id))
}

func (r *itemRepo) GetBySKU(ctx context.Context, sku string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE sku = $1`
	return scanItem(r.db.QueryRow(ctx, query, sku))
}

func (r *itemRepo) List(ctx context.Context, limit, offset int) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items ORDER BY sku LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *itemRepo) ListAllActive(ctx context.Context, category *string) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE is_active`
	args := []any{}
	if category != nil {
		query += ` AND category = $1`
		args = append(args, *category)
	}
	query += ` ORDER BY sku`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *itemRepo) ListByCategory(ctx context.Context, category string, limit, offset int) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE category = $1 ORDER BY sku LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, category, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
