package repositories

import (
	"context"
	"fmt"
	"time"

	"stocksense/internal/models"

	"github.com/google/uuid"
)

type OrderLineRepository interface {
	Create(ctx context.Context, line *models.OrderLine) error
	// ListForPeriod returns order lines due inside [from, to) matching the
	// optional scope filters.
	ListForPeriod(ctx context.Context, locationID, itemID *uuid.UUID, category *string, from, to time.Time) ([]*models.OrderLine, error)
}

type orderLineRepo struct {
	db DB
}

func NewOrderLineRepo(db DB) OrderLineRepository {
	return &orderLineRepo{db: db}
}

func (r *orderLineRepo) Create(ctx context.Context, line *models.OrderLine) error {
	query := `
		INSERT INTO order_lines (id, item_id, location_id, ordered_qty, shipped_qty, due_date, shipped_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.db.Exec(ctx, query, line.ID, line.ItemID, line.LocationID,
		line.OrderedQty, line.ShippedQty, line.DueDate, line.ShippedDate)
	return err
}

func (r *orderLineRepo) ListForPeriod(ctx context.Context, locationID, itemID *uuid.UUID, category *string, from, to time.Time) ([]*models.OrderLine, error) {
	query := `
		SELECT ol.id, ol.item_id, ol.location_id, ol.ordered_qty, ol.shipped_qty, ol.due_date, ol.shipped_date, ol.created_at
		FROM order_lines ol
	`
	args := []any{from, to}
	if category != nil {
		query += ` JOIN items i ON i.id = ol.item_id`
	}
	query += ` WHERE ol.due_date >= $1 AND ol.due_date < $2`
	n := 2

	if locationID != nil {
		n++
		query += fmt.Sprintf(` AND ol.location_id = $%d`, n)
		args = append(args, *locationID)
	}
	if itemID != nil {
		n++
		query += fmt.Sprintf(` AND ol.item_id = $%d`, n)
		args = append(args, *itemID)
	}
	if category != nil {
		n++
		query += fmt.Sprintf(` AND i.category = $%d`, n)
		args = append(args, *category)
	}
	query += ` ORDER BY ol.due_date`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*models.OrderLine
	for rows.Next() {
		l := &models.OrderLine{}
		if err := rows.Scan(&l.ID, &l.ItemID, &l.LocationID, &l.OrderedQty, &l.ShippedQty, &l.DueDate, &l.ShippedDate, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
