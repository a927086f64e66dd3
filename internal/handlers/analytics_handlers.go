package handlers

import (
	"net/http"

	"stocksense/internal/analytics"
	"stocksense/internal/models"
	"stocksense/internal/services"

	"github.com/labstack/echo/v4"
)

// AnalyticsHandlers exposes KPI snapshots, ABC classifications, and CSV
// exports of both.
type AnalyticsHandlers struct {
	analyticsService analytics.Service
	abcService       services.ABCService
	exportService    services.ExportService
}

func NewAnalyticsHandlers(analyticsService analytics.Service, abcService services.ABCService, exportService services.ExportService) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		analyticsService: analyticsService,
		abcService:       abcService,
		exportService:    exportService,
	}
}

func scopeFromQuery(c echo.Context) (models.KPIScope, error) {
	scope := models.KPIScope{Period: c.QueryParam("period")}
	var err error
	if scope.LocationID, err = queryUUID(c, "location_id"); err != nil {
		return scope, err
	}
	if scope.ItemID, err = queryUUID(c, "item_id"); err != nil {
		return scope, err
	}
	scope.Category = queryString(c, "category")
	return scope, nil
}

// GetKPI handles GET /kpi?period=YYYY-MM plus an optional scope dimension.
func (h *AnalyticsHandlers) GetKPI(c echo.Context) error {
	scope, err := scopeFromQuery(c)
	if err != nil {
		return err
	}
	metrics, err := h.analyticsService.GetLatest(c.Request().Context(), scope)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, metrics)
}

// ListKPI handles GET /kpi/period/:period.
func (h *AnalyticsHandlers) ListKPI(c echo.Context) error {
	limit, offset := clampPage(atoiDefault(c.QueryParam("limit"), 50), atoiDefault(c.QueryParam("offset"), 0))
	snapshots, err := h.analyticsService.ListByPeriod(c.Request().Context(), c.Param("period"), limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"limit":     limit,
		"offset":    offset,
	})
}

// IngestOrderLine handles POST /orders/lines.
func (h *AnalyticsHandlers) IngestOrderLine(c echo.Context) error {
	var line models.OrderLine
	if err := c.Bind(&line); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := h.analyticsService.IngestOrderLine(c.Request().Context(), &line); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, line)
}

// RollupKPI handles POST /kpi/rollup.
func (h *AnalyticsHandlers) RollupKPI(c echo.Context) error {
	var scope models.KPIScope
	if err := c.Bind(&scope); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	metrics, err := h.analyticsService.Rollup(c.Request().Context(), scope)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, metrics)
}

// GetLatestABC handles GET /abc/latest.
func (h *AnalyticsHandlers) GetLatestABC(c echo.Context) error {
	locationID, err := queryUUID(c, "location_id")
	if err != nil {
		return err
	}
	analysis, err := h.abcService.GetLatest(c.Request().Context(), locationID, queryString(c, "category"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, analysis)
}

// GetABC handles GET /abc/:id.
func (h *AnalyticsHandlers) GetABC(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	analysis, err := h.abcService.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, analysis)
}

// RunABCRequest is the POST /abc/run payload.
type RunABCRequest struct {
	LocationID *string `json:"location_id,omitempty"`
	Category   *string `json:"category,omitempty"`
	Period     string  `json:"period"`
}

// RunABC handles POST /abc/run.
func (h *AnalyticsHandlers) RunABC(c echo.Context) error {
	var req RunABCRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	locationID, err := parseOptionalUUID(req.LocationID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid location_id")
	}
	analysis, err := h.abcService.Run(c.Request().Context(), locationID, req.Category, req.Period)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, analysis)
}

// ExportABC handles GET /abc/:id/export, returning a presigned CSV URL.
func (h *AnalyticsHandlers) ExportABC(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	analysis, err := h.abcService.GetByID(ctx, id)
	if err != nil {
		return httpError(err)
	}
	url, err := h.exportService.ExportABC(ctx, analysis)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

// ExportKPI handles GET /kpi/period/:period/export.
func (h *AnalyticsHandlers) ExportKPI(c echo.Context) error {
	ctx := c.Request().Context()
	period := c.Param("period")
	snapshots, err := h.analyticsService.ListByPeriod(ctx, period, 200, 0)
	if err != nil {
		return httpError(err)
	}
	url, err := h.exportService.ExportKPI(ctx, snapshots, period)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
