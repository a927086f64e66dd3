package repositories

import (
	"context"

	"stocksense/internal/models"

	"github.com/google/uuid"
)

type ABCRepository interface {
	// CreateSnapshot writes the analysis header and every ranked item in one
	// transaction; a cancelled or failed run leaves no partial snapshot.
	CreateSnapshot(ctx context.Context, analysis *models.ABCAnalysis) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ABCAnalysis, error)
	// GetLatest returns the newest snapshot for the location/category filter,
	// nil pointers meaning the network-wide snapshot.
	GetLatest(ctx context.Context, locationID *uuid.UUID, category *string) (*models.ABCAnalysis, error)
}

type abcRepo struct {
	db DB
}

func NewABCRepo(db DB) ABCRepository {
	return &abcRepo{db: db}
}

func (r *abcRepo) CreateSnapshot(ctx context.Context, analysis *models.ABCAnalysis) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	header := `
		INSERT INTO abc_analyses (id, location_id, category, period, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	if _, err := tx.Exec(ctx, header, analysis.ID, analysis.LocationID, analysis.Category, analysis.Period); err != nil {
		return err
	}

	insert := `
		INSERT INTO abc_analysis_items (analysis_id, item_id, sku, name, tier, annual_usage, annual_value, percentage_of_value, cumulative_percentage, rank)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for i, item := range analysis.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insert, analysis.ID, item.ItemID, item.SKU, item.Name, item.Tier,
			item.AnnualUsage, item.AnnualValue, item.PercentageOfValue, item.CumulativePercentage, i+1); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *abcRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ABCAnalysis, error) {
	query := `SELECT id, location_id, category, period, created_at FROM abc_analyses WHERE id = $1`
	analysis := &models.ABCAnalysis{}
	err := r.db.QueryRow(ctx, query, id).Scan(&analysis.ID, &analysis.LocationID, &analysis.Category, &analysis.Period, &analysis.CreatedAt)
	if err != nil {
		return nil, err
	}
	if analysis.Items, err = r.loadItems(ctx, analysis.ID); err != nil {
		return nil, err
	}
	return analysis, nil
}

func (r *abcRepo) GetLatest(ctx context.Context, locationID *uuid.UUID, category *string) (*models.ABCAnalysis, error) {
	query := `
		SELECT id, location_id, category, period, created_at
		FROM abc_analyses
		WHERE location_id IS NOT DISTINCT FROM $1 AND category IS NOT DISTINCT FROM $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	analysis := &models.ABCAnalysis{}
	err := r.db.QueryRow(ctx, query, locationID, category).Scan(&analysis.ID, &analysis.LocationID, &analysis.Category, &analysis.Period, &analysis.CreatedAt)
	if err != nil {
		return nil, err
	}
	if analysis.Items, err = r.loadItems(ctx, analysis.ID); err != nil {
		return nil, err
	}
	return analysis, nil
}

func (r *abcRepo) loadItems(ctx context.Context, analysisID uuid.UUID) ([]models.ABCItem, error) {
	query := `
		SELECT item_id, sku, name, tier, annual_usage, annual_value, percentage_of_value, cumulative_percentage
		FROM abc_analysis_items
		WHERE analysis_id = $1
		ORDER BY rank
	`
	rows, err := r.db.Query(ctx, query, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.ABCItem
	for rows.Next() {
		var item models.ABCItem
		if err := rows.Scan(&item.ItemID, &item.SKU, &item.Name, &item.Tier,
			&item.AnnualUsage, &item.AnnualValue, &item.PercentageOfValue, &item.CumulativePercentage); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
