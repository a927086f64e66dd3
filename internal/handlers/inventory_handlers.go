package handlers

import (
	"net/http"
	"time"

	"stocksense/internal/models"
	"stocksense/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type InventoryHandlers struct {
	inventoryService services.InventoryService
}

func NewInventoryHandlers(inventoryService services.InventoryService) *InventoryHandlers {
	return &InventoryHandlers{inventoryService: inventoryService}
}

// ListInventory handles GET /inventory, optionally scoped to one location.
func (h *InventoryHandlers) ListInventory(c echo.Context) error {
	limit, offset := clampPage(atoiDefault(c.QueryParam("limit"), 50), atoiDefault(c.QueryParam("offset"), 0))
	locationID, err := queryUUID(c, "location_id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var inventories []*models.Inventory
	if locationID != nil {
		inventories, err = h.inventoryService.ListByLocation(ctx, *locationID, limit, offset)
	} else {
		inventories, err = h.inventoryService.List(ctx, limit, offset)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"inventory": inventories,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetInventory handles GET /inventory/:itemID/:locationID.
func (h *InventoryHandlers) GetInventory(c echo.Context) error {
	itemID, err := pathUUID(c, "itemID")
	if err != nil {
		return err
	}
	locationID, err := pathUUID(c, "locationID")
	if err != nil {
		return err
	}
	inv, err := h.inventoryService.GetByPair(c.Request().Context(), itemID, locationID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

// CreateMovementRequest is the POST /inventory/movements payload.
type CreateMovementRequest struct {
	ItemID        uuid.UUID           `json:"item_id"`
	LocationID    uuid.UUID           `json:"location_id"`
	Type          models.MovementType `json:"type"`
	Quantity      float64             `json:"quantity"`
	Reference     string              `json:"reference"`
	ReferenceType string              `json:"reference_type"`
	Notes         *string             `json:"notes,omitempty"`
}

// CreateMovement handles POST /inventory/movements.
func (h *InventoryHandlers) CreateMovement(c echo.Context) error {
	var req CreateMovementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	movement := &models.InventoryMovement{
		ItemID:        req.ItemID,
		LocationID:    req.LocationID,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Reference:     req.Reference,
		ReferenceType: req.ReferenceType,
		Notes:         req.Notes,
	}
	inv, err := h.inventoryService.ApplyMovement(c.Request().Context(), movement)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"movement":  movement,
		"inventory": inv,
	})
}

// TransferRequest is the POST /inventory/transfers payload.
type TransferRequest struct {
	ItemID       uuid.UUID `json:"item_id"`
	FromLocation uuid.UUID `json:"from_location"`
	ToLocation   uuid.UUID `json:"to_location"`
	Quantity     float64   `json:"quantity"`
	Reference    string    `json:"reference"`
}

// CreateTransfer handles POST /inventory/transfers.
func (h *InventoryHandlers) CreateTransfer(c echo.Context) error {
	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	err := h.inventoryService.Transfer(c.Request().Context(), req.ItemID, req.FromLocation, req.ToLocation, req.Quantity, req.Reference)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "transferred"})
}

// ReservationRequest is the payload for reserve and release.
type ReservationRequest struct {
	ItemID     uuid.UUID `json:"item_id"`
	LocationID uuid.UUID `json:"location_id"`
	Quantity   float64   `json:"quantity"`
}

// ReserveInventory handles POST /inventory/reserve.
func (h *InventoryHandlers) ReserveInventory(c echo.Context) error {
	var req ReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	inv, err := h.inventoryService.Reserve(c.Request().Context(), req.ItemID, req.LocationID, req.Quantity)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

// ReleaseInventory handles POST /inventory/release.
func (h *InventoryHandlers) ReleaseInventory(c echo.Context) error {
	var req ReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	inv, err := h.inventoryService.Release(c.Request().Context(), req.ItemID, req.LocationID, req.Quantity)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

// ListMovements handles GET /inventory/movements.
func (h *InventoryHandlers) ListMovements(c echo.Context) error {
	filter := &models.MovementSearchFilter{}
	var err error
	if filter.ItemID, err = queryUUID(c, "item_id"); err != nil {
		return err
	}
	if filter.LocationID, err = queryUUID(c, "location_id"); err != nil {
		return err
	}
	if raw := c.QueryParam("type"); raw != "" {
		t := models.MovementType(raw)
		filter.Type = &t
	}
	if raw := c.QueryParam("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid from timestamp")
		}
		filter.From = &from
	}
	if raw := c.QueryParam("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid to timestamp")
		}
		filter.To = &to
	}
	filter.Limit, filter.Offset = clampPage(atoiDefault(c.QueryParam("limit"), 50), atoiDefault(c.QueryParam("offset"), 0))

	movements, err := h.inventoryService.ListMovements(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"limit":     filter.Limit,
		"offset":    filter.Offset,
	})
}

// CreateItem handles POST /items.
func (h *InventoryHandlers) CreateItem(c echo.Context) error {
	var item models.Item
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	item.IsActive = true
	if err := h.inventoryService.CreateItem(c.Request().Context(), &item); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

// CreateLocation handles POST /locations.
func (h *InventoryHandlers) CreateLocation(c echo.Context) error {
	var location models.Location
	if err := c.Bind(&location); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	location.IsActive = true
	if err := h.inventoryService.CreateLocation(c.Request().Context(), &location); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, location)
}
