package services

import (
	"context"
	"fmt"

	"stocksense/internal/common"
	"stocksense/internal/models"
	"stocksense/internal/repositories"

	"github.com/google/uuid"
)

// ForecastService ingests forecasts pushed by the external forecasting
// collaborator. The engine treats them as read-only input afterwards.
type ForecastService interface {
	Ingest(ctx context.Context, forecast *models.Forecast, points []models.ForecastDataPoint) error
	GetLatest(ctx context.Context, itemID, locationID uuid.UUID) (*models.Forecast, []models.ForecastDataPoint, error)
}

type forecastService struct {
	forecastRepo repositories.ForecastRepository
}

func NewForecastService(forecastRepo repositories.ForecastRepository) ForecastService {
	return &forecastService{forecastRepo: forecastRepo}
}

func (s *forecastService) Ingest(ctx context.Context, forecast *models.Forecast, points []models.ForecastDataPoint) error {
	if forecast.ItemID == uuid.Nil || forecast.LocationID == uuid.Nil {
		return common.InvalidParameterErrorf("forecast requires item and location")
	}
	if forecast.Status == models.ForecastCompleted && len(points) == 0 {
		return common.DataQualityErrorf("completed forecast without data points")
	}
	for _, p := range points {
		if p.UpperBound < p.LowerBound {
			return common.DataQualityErrorf("band inverted at %s", p.Date.Format("2006-01-02"))
		}
		if p.Confidence <= 0 || p.Confidence >= 1 {
			return common.DataQualityErrorf("band confidence %v outside (0,1) at %s", p.Confidence, p.Date.Format("2006-01-02"))
		}
	}

	if forecast.ID == uuid.Nil {
		forecast.ID = uuid.New()
	}
	if err := s.forecastRepo.Create(ctx, forecast); err != nil {
		return fmt.Errorf("create forecast: %w", err)
	}
	if len(points) > 0 {
		if err := s.forecastRepo.ReplaceDataPoints(ctx, forecast.ID, points); err != nil {
			return fmt.Errorf("store data points: %w", err)
		}
	}
	return nil
}

func (s *forecastService) GetLatest(ctx context.Context, itemID, locationID uuid.UUID) (*models.Forecast, []models.ForecastDataPoint, error) {
	forecast, err := s.forecastRepo.GetLatestByPair(ctx, itemID, locationID)
	if err != nil {
		return nil, nil, err
	}
	points, err := s.forecastRepo.GetDataPoints(ctx, forecast.ID)
	if err != nil {
		return nil, nil, err
	}
	return forecast, points, nil
}
