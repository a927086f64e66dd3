package handlers

import (
	"net/http"

	"stocksense/internal/models"
	"stocksense/internal/services"

	"github.com/labstack/echo/v4"
)

// ForecastHandlers ingests forecasts pushed by the forecasting collaborator
// and serves the latest one per pair.
type ForecastHandlers struct {
	forecastService services.ForecastService
}

func NewForecastHandlers(forecastService services.ForecastService) *ForecastHandlers {
	return &ForecastHandlers{forecastService: forecastService}
}

// IngestForecastRequest is the POST /forecasts payload.
type IngestForecastRequest struct {
	Forecast models.Forecast            `json:"forecast"`
	Points   []models.ForecastDataPoint `json:"points"`
}

// IngestForecast handles POST /forecasts.
func (h *ForecastHandlers) IngestForecast(c echo.Context) error {
	var req IngestForecastRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := h.forecastService.Ingest(c.Request().Context(), &req.Forecast, req.Points); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, req.Forecast)
}

// GetLatestForecast handles GET /forecasts/:itemID/:locationID.
func (h *ForecastHandlers) GetLatestForecast(c echo.Context) error {
	itemID, err := pathUUID(c, "itemID")
	if err != nil {
		return err
	}
	locationID, err := pathUUID(c, "locationID")
	if err != nil {
		return err
	}
	forecast, points, err := h.forecastService.GetLatest(c.Request().Context(), itemID, locationID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"forecast": forecast,
		"points":   points,
	})
}
