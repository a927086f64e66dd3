package handlers

import (
	"net/http"

	"stocksense/internal/common"
	"stocksense/internal/models"
	"stocksense/internal/repositories"
	"stocksense/internal/services"

	"github.com/labstack/echo/v4"
)

type ExceptionHandlers struct {
	exceptionService services.ExceptionService
}

func NewExceptionHandlers(exceptionService services.ExceptionService) *ExceptionHandlers {
	return &ExceptionHandlers{exceptionService: exceptionService}
}

// ListExceptions handles GET /exceptions with optional type/severity/status
// and scope filters.
func (h *ExceptionHandlers) ListExceptions(c echo.Context) error {
	filter := &repositories.ExceptionSearchFilter{}

	if raw := c.QueryParam("type"); raw != "" {
		t := models.ExceptionType(raw)
		filter.Type = &t
	}
	if raw := c.QueryParam("severity"); raw != "" {
		s := models.ExceptionSeverity(raw)
		filter.Severity = &s
	}
	if raw := c.QueryParam("status"); raw != "" {
		s := models.ExceptionStatus(raw)
		filter.Status = &s
	}
	var err error
	if filter.ItemID, err = queryUUID(c, "item_id"); err != nil {
		return err
	}
	if filter.LocationID, err = queryUUID(c, "location_id"); err != nil {
		return err
	}
	filter.Limit, filter.Offset = clampPage(atoiDefault(c.QueryParam("limit"), 50), atoiDefault(c.QueryParam("offset"), 0))

	exceptions, err := h.exceptionService.List(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"exceptions": exceptions,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})
}

// GetException handles GET /exceptions/:id.
func (h *ExceptionHandlers) GetException(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	exception, err := h.exceptionService.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, exception)
}

// AcknowledgeException handles POST /exceptions/:id/acknowledge, assigning
// the exception to the caller.
func (h *ExceptionHandlers) AcknowledgeException(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
	}
	exception, err := h.exceptionService.Acknowledge(ctx, id, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, exception)
}

// StartException handles POST /exceptions/:id/start.
func (h *ExceptionHandlers) StartException(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	exception, err := h.exceptionService.Start(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, exception)
}

// ResolveException handles POST /exceptions/:id/resolve.
func (h *ExceptionHandlers) ResolveException(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	exception, err := h.exceptionService.Resolve(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, exception)
}

// CloseException handles POST /exceptions/:id/close.
func (h *ExceptionHandlers) CloseException(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	exception, err := h.exceptionService.Close(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, exception)
}

// SweepExceptions handles POST /exceptions/sweep, a manual detector run.
func (h *ExceptionHandlers) SweepExceptions(c echo.Context) error {
	result, err := h.exceptionService.Sweep(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"processed": result.Processed,
		"failures":  len(result.Failures),
	})
}
