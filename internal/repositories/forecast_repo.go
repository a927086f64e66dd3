package repositories

import (
	"context"

	"stocksense/internal/models"

	"github.com/google/uuid"
)

type ForecastRepository interface {
	// Create ingests a forecast pushed by the forecasting collaborator.
	Create(ctx context.Context, forecast *models.Forecast) error
	ReplaceDataPoints(ctx context.Context, forecastID uuid.UUID, points []models.ForecastDataPoint) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Forecast, error)
	// GetLatestByPair returns the most recent forecast for the pair regardless
	// of status; callers decide how to treat incomplete ones.
	GetLatestByPair(ctx context.Context, itemID, locationID uuid.UUID) (*models.Forecast, error)
	GetDataPoints(ctx context.Context, forecastID uuid.UUID) ([]models.ForecastDataPoint, error)
}

type forecastRepo struct {
	db DB
}

func NewForecastRepo(db DB) ForecastRepository {
	return &forecastRepo{db: db}
}

const forecastColumns = `id, item_id, location_id, model_type, horizon, frequency, status, start_date, end_date, created_at, updated_at`

func (r *forecastRepo) Create(ctx context.Context, forecast *models.Forecast) error {
	query := `
		INSERT INTO forecasts (id, item_id, location_id, model_type, horizon, frequency, status, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, forecast.ID, forecast.ItemID, forecast.LocationID,
		forecast.ModelType, forecast.Horizon, forecast.Frequency, forecast.Status,
		forecast.StartDate, forecast.EndDate)
	return err
}

func (r *forecastRepo) ReplaceDataPoints(ctx context.Context, forecastID uuid.UUID, points []models.ForecastDataPoint) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM forecast_data_points WHERE forecast_id = $1`, forecastID); err != nil {
		return err
	}
	insert := `
		INSERT INTO forecast_data_points (forecast_id, date, forecast, lower_bound, upper_bound, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, p := range points {
		if _, err := tx.Exec(ctx, insert, forecastID, p.Date, p.Forecast, p.LowerBound, p.UpperBound, p.Confidence); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func scanForecast(row interface{ Scan(dest ...any) error }) (*models.Forecast, error) {
	f := &models.Forecast{}
	err := row.Scan(&f.ID, &f.ItemID, &f.LocationID, &f.ModelType, &f.Horizon, &f.Frequency,
		&f.Status, &f.StartDate, &f.EndDate, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *forecastRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Forecast, error) {
	query := `SELECT ` + forecastColumns + ` FROM forecasts WHERE id = $1`
	return scanForecast(r.db.QueryRow(ctx, query, id))
}

func (r *forecastRepo) GetLatestByPair(ctx context.Context, itemID, locationID uuid.UUID) (*models.Forecast, error) {
	query := `
		SELECT ` + forecastColumns + `
		FROM forecasts
		WHERE item_id = $1 AND location_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanForecast(r.db.QueryRow(ctx, query, itemID, locationID))
}

func (r *forecastRepo) GetDataPoints(ctx context.Context, forecastID uuid.UUID) ([]models.ForecastDataPoint, error) {
	query := `
		SELECT date, forecast, lower_bound, upper_bound, confidence
		FROM forecast_data_points
		WHERE forecast_id = $1
		ORDER BY date
	`
	rows, err := r.db.Query(ctx, query, forecastID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.ForecastDataPoint
	for rows.Next() {
		var p models.ForecastDataPoint
		if err := rows.Scan(&p.Date, &p.Forecast, &p.LowerBound, &p.UpperBound, &p.Confidence); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
