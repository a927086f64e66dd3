package handlers

import (
	"net/http"

	"stocksense/internal/services"

	"github.com/labstack/echo/v4"
)

// PolicyHandlers exposes the policy history read paths and the recompute
// command.
type PolicyHandlers struct {
	policyService services.PolicyService
}

func NewPolicyHandlers(policyService services.PolicyService) *PolicyHandlers {
	return &PolicyHandlers{policyService: policyService}
}

// ListActivePolicies handles GET /policies.
func (h *PolicyHandlers) ListActivePolicies(c echo.Context) error {
	limit, offset := clampPage(atoiDefault(c.QueryParam("limit"), 50), atoiDefault(c.QueryParam("offset"), 0))
	policies, err := h.policyService.ListActive(c.Request().Context(), limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"policies": policies,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetActivePolicy handles GET /policies/:itemID/:locationID.
func (h *PolicyHandlers) GetActivePolicy(c echo.Context) error {
	itemID, err := pathUUID(c, "itemID")
	if err != nil {
		return err
	}
	locationID, err := pathUUID(c, "locationID")
	if err != nil {
		return err
	}
	policy, err := h.policyService.GetActive(c.Request().Context(), itemID, locationID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, policy)
}

// ListPolicyVersions handles GET /policies/:itemID/:locationID/versions.
func (h *PolicyHandlers) ListPolicyVersions(c echo.Context) error {
	itemID, err := pathUUID(c, "itemID")
	if err != nil {
		return err
	}
	locationID, err := pathUUID(c, "locationID")
	if err != nil {
		return err
	}
	limit, offset := clampPage(atoiDefault(c.QueryParam("limit"), 50), atoiDefault(c.QueryParam("offset"), 0))
	versions, err := h.policyService.ListVersions(c.Request().Context(), itemID, locationID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"versions": versions,
		"limit":    limit,
		"offset":   offset,
	})
}

// RecomputePolicy handles POST /policies/recompute.
func (h *PolicyHandlers) RecomputePolicy(c echo.Context) error {
	var req services.PolicyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	policy, err := h.policyService.Recompute(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, policy)
}

// PreviewPolicy handles POST /policies/preview: calculation without activation.
func (h *PolicyHandlers) PreviewPolicy(c echo.Context) error {
	var req services.PolicyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	policy, err := h.policyService.Calculate(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, policy)
}
