package repositories

import (
	"context"
	"fmt"

	"stocksense/internal/models"
)

type KPIRepository interface {
	// Create appends a period snapshot. Snapshots are never updated; a rerun
	// for the same scope and period writes a newer row.
	Create(ctx context.Context, metrics *models.KPIMetrics) error
	// GetLatestForScope returns the most recent snapshot matching the scope
	// and period exactly.
	GetLatestForScope(ctx context.Context, scope models.KPIScope) (*models.KPIMetrics, error)
	ListByPeriod(ctx context.Context, period string, limit, offset int) ([]*models.KPIMetrics, error)
}

type kpiRepo struct {
	db DB
}

func NewKPIRepo(db DB) KPIRepository {
	return &kpiRepo{db: db}
}

const kpiColumns = `id, location_id, item_id, category, period, fill_rate, stockout_rate, stockout_source, inventory_turns, days_of_supply, otif, forecast_accuracy, carrying_cost, stockout_cost, total_cost, created_at`

func (r *kpiRepo) Create(ctx context.Context, metrics *models.KPIMetrics) error {
	query := `
		INSERT INTO kpi_metrics (id, location_id, item_id, category, period, fill_rate, stockout_rate, stockout_source, inventory_turns, days_of_supply, otif, forecast_accuracy, carrying_cost, stockout_cost, total_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
	`
	_, err := r.db.Exec(ctx, query, metrics.ID,
		metrics.Scope.LocationID, metrics.Scope.ItemID, metrics.Scope.Category, metrics.Scope.Period,
		metrics.FillRate, metrics.StockoutRate, metrics.StockoutSource,
		metrics.InventoryTurns, metrics.DaysOfSupply, metrics.OTIF, metrics.ForecastAccuracy,
		metrics.CarryingCost, metrics.StockoutCost, metrics.TotalCost)
	return err
}

func scanKPI(row interface{ Scan(dest ...any) error }) (*models.KPIMetrics, error) {
	m := &models.KPIMetrics{}
	err := row.Scan(&m.ID, &m.Scope.LocationID, &m.Scope.ItemID, &m.Scope.Category, &m.Scope.Period,
		&m.FillRate, &m.StockoutRate, &m.StockoutSource,
		&m.InventoryTurns, &m.DaysOfSupply, &m.OTIF, &m.ForecastAccuracy,
		&m.CarryingCost, &m.StockoutCost, &m.TotalCost, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *kpiRepo) GetLatestForScope(ctx context.Context, scope models.KPIScope) (*models.KPIMetrics, error) {
	query := `SELECT ` + kpiColumns + ` FROM kpi_metrics WHERE period = $1`
	args := []any{scope.Period}
	n := 1

	for _, clause := range []struct {
		column string
		value  any
		set    bool
	}{
		{"location_id", scope.LocationID, scope.LocationID != nil},
		{"item_id", scope.ItemID, scope.ItemID != nil},
		{"category", scope.Category, scope.Category != nil},
	} {
		if clause.set {
			n++
			query += fmt.Sprintf(` AND %s = $%d`, clause.column, n)
			args = append(args, clause.value)
		} else {
			query += fmt.Sprintf(` AND %s IS NULL`, clause.column)
		}
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	return scanKPI(r.db.QueryRow(ctx, query, args...))
}

func (r *kpiRepo) ListByPeriod(ctx context.Context, period string, limit, offset int) ([]*models.KPIMetrics, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + kpiColumns + `
		FROM kpi_metrics
		WHERE period = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, period, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.KPIMetrics
	for rows.Next() {
		m, err := scanKPI(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, m)
	}
	return snapshots, rows.Err()
}
