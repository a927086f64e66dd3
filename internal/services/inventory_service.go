package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"stocksense/internal/common"
	"stocksense/internal/models"
	"stocksense/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type InventoryService interface {
	GetByPair(ctx context.Context, itemID, locationID uuid.UUID) (*models.Inventory, error)
	List(ctx context.Context, limit, offset int) ([]*models.Inventory, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*models.Inventory, error)
	// ApplyMovement mutates the pair's levels and appends the movement record
	// in one transaction. Serialized per pair; a lost update is retried once
	// with fresh state before ErrConcurrencyConflict surfaces.
	ApplyMovement(ctx context.Context, movement *models.InventoryMovement) (*models.Inventory, error)
	// Transfer ships quantity between two locations of the same item as a
	// transfer_out/transfer_in movement pair.
	Transfer(ctx context.Context, itemID, fromLocation, toLocation uuid.UUID, quantity float64, reference string) error
	Reserve(ctx context.Context, itemID, locationID uuid.UUID, quantity float64) (*models.Inventory, error)
	Release(ctx context.Context, itemID, locationID uuid.UUID, quantity float64) (*models.Inventory, error)
	ListMovements(ctx context.Context, filter *models.MovementSearchFilter) ([]*models.InventoryMovement, error)

	CreateItem(ctx context.Context, item *models.Item) error
	// CreateLocation enforces the echelon hierarchy: a parent must sit at a
	// strictly lower tier, which also rules out cycles.
	CreateLocation(ctx context.Context, location *models.Location) error
}

type inventoryService struct {
	inventoryRepo repositories.InventoryRepository
	itemRepo      repositories.ItemRepository
	locationRepo  repositories.LocationRepository
	locks         *common.KeyLock
}

func NewInventoryService(
	inventoryRepo repositories.InventoryRepository,
	itemRepo repositories.ItemRepository,
	locationRepo repositories.LocationRepository,
	locks *common.KeyLock,
) InventoryService {
	return &inventoryService{
		inventoryRepo: inventoryRepo,
		itemRepo:      itemRepo,
		locationRepo:  locationRepo,
		locks:         locks,
	}
}

func (s *inventoryService) GetByPair(ctx context.Context, itemID, locationID uuid.UUID) (*models.Inventory, error) {
	return s.inventoryRepo.GetByPair(ctx, itemID, locationID)
}

func (s *inventoryService) List(ctx context.Context, limit, offset int) ([]*models.Inventory, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.inventoryRepo.List(ctx, limit, offset)
}

func (s *inventoryService) ListByLocation(ctx context.Context, locationID uuid.UUID, limit, offset int) ([]*models.Inventory, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.inventoryRepo.ListByLocation(ctx, locationID, limit, offset)
}

// inbound movement types may create the pair's inventory record on first use.
func inbound(t models.MovementType) bool {
	switch t {
	case models.MovementReceipt, models.MovementTransferIn, models.MovementAdjustment, models.MovementCycleCount:
		return true
	}
	return false
}

func (s *inventoryService) ApplyMovement(ctx context.Context, movement *models.InventoryMovement) (*models.Inventory, error) {
	if !movement.Type.Valid() {
		return nil, common.InvalidParameterErrorf("unknown movement type %q", movement.Type)
	}
	if movement.Quantity < 0 && movement.Type != models.MovementAdjustment {
		return nil, common.InvalidParameterErrorf("negative quantity for %s movement", movement.Type)
	}
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}

	s.locks.Lock(movement.ItemID, movement.LocationID)
	defer s.locks.Unlock(movement.ItemID, movement.LocationID)

	inv, err := s.applyOnce(ctx, movement)
	if errors.Is(err, common.ErrConcurrencyConflict) {
		log.Printf("inventory: conflict applying %s for %s/%s, retrying", movement.Type, movement.ItemID, movement.LocationID)
		movement.ID = uuid.New()
		inv, err = s.applyOnce(ctx, movement)
	}
	return inv, err
}

func (s *inventoryService) applyOnce(ctx context.Context, movement *models.InventoryMovement) (*models.Inventory, error) {
	inv, err := s.inventoryRepo.GetByPair(ctx, movement.ItemID, movement.LocationID)
	if errors.Is(err, pgx.ErrNoRows) && inbound(movement.Type) {
		inv = &models.Inventory{
			ID:         uuid.New(),
			ItemID:     movement.ItemID,
			LocationID: movement.LocationID,
		}
		if err := s.inventoryRepo.Create(ctx, inv); err != nil {
			return nil, err
		}
		inv, err = s.inventoryRepo.GetByPair(ctx, movement.ItemID, movement.LocationID)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	expected := inv.LastUpdated
	if err := applyToLevels(inv, movement); err != nil {
		return nil, err
	}

	if err := s.inventoryRepo.ApplyMovement(ctx, movement, inv, expected); err != nil {
		return nil, err
	}
	return inv, nil
}

// applyToLevels mutates the in-memory record per movement semantics and
// re-checks the availability invariant.
func applyToLevels(inv *models.Inventory, movement *models.InventoryMovement) error {
	switch movement.Type {
	case models.MovementReceipt, models.MovementTransferIn:
		inv.Quantity += movement.Quantity
	case models.MovementShipment, models.MovementTransferOut:
		inv.Quantity -= movement.Quantity
	case models.MovementAdjustment:
		inv.Quantity += movement.Quantity
	case models.MovementCycleCount:
		inv.Quantity = movement.Quantity
	}
	inv.Recompute()

	if inv.Quantity < 0 {
		return common.InvalidParameterErrorf("%s of %.2f would drive on-hand negative", movement.Type, movement.Quantity)
	}
	if inv.AvailableQuantity < 0 {
		return common.InvalidParameterErrorf("%s of %.2f would break reservations (reserved %.2f)",
			movement.Type, movement.Quantity, inv.ReservedQuantity)
	}
	return nil
}

func (s *inventoryService) Transfer(ctx context.Context, itemID, fromLocation, toLocation uuid.UUID, quantity float64, reference string) error {
	if fromLocation == toLocation {
		return common.InvalidParameterErrorf("transfer source and destination are the same location")
	}
	if quantity <= 0 {
		return common.InvalidParameterErrorf("transfer quantity must be positive, got %v", quantity)
	}

	out := &models.InventoryMovement{
		ItemID:        itemID,
		LocationID:    fromLocation,
		Type:          models.MovementTransferOut,
		Quantity:      quantity,
		Reference:     reference,
		ReferenceType: "transfer",
	}
	if _, err := s.ApplyMovement(ctx, out); err != nil {
		return fmt.Errorf("transfer out of %s: %w", fromLocation, err)
	}

	in := &models.InventoryMovement{
		ItemID:        itemID,
		LocationID:    toLocation,
		Type:          models.MovementTransferIn,
		Quantity:      quantity,
		Reference:     reference,
		ReferenceType: "transfer",
	}
	if _, err := s.ApplyMovement(ctx, in); err != nil {
		// Put the stock back so the network total stays honest.
		compensate := &models.InventoryMovement{
			ItemID:        itemID,
			LocationID:    fromLocation,
			Type:          models.MovementTransferIn,
			Quantity:      quantity,
			Reference:     reference,
			ReferenceType: "transfer_reversal",
		}
		if _, cerr := s.ApplyMovement(ctx, compensate); cerr != nil {
			log.Printf("inventory: transfer reversal for %s/%s failed: %v", itemID, fromLocation, cerr)
		}
		return fmt.Errorf("transfer into %s: %w", toLocation, err)
	}
	return nil
}

func (s *inventoryService) Reserve(ctx context.Context, itemID, locationID uuid.UUID, quantity float64) (*models.Inventory, error) {
	if quantity <= 0 {
		return nil, common.InvalidParameterErrorf("reservation quantity must be positive, got %v", quantity)
	}
	return s.adjustReservation(ctx, itemID, locationID, quantity)
}

func (s *inventoryService) Release(ctx context.Context, itemID, locationID uuid.UUID, quantity float64) (*models.Inventory, error) {
	if quantity <= 0 {
		return nil, common.InvalidParameterErrorf("release quantity must be positive, got %v", quantity)
	}
	return s.adjustReservation(ctx, itemID, locationID, -quantity)
}

func (s *inventoryService) adjustReservation(ctx context.Context, itemID, locationID uuid.UUID, delta float64) (*models.Inventory, error) {
	s.locks.Lock(itemID, locationID)
	defer s.locks.Unlock(itemID, locationID)

	inv, err := s.reserveOnce(ctx, itemID, locationID, delta)
	if errors.Is(err, common.ErrConcurrencyConflict) {
		log.Printf("inventory: conflict adjusting reservation for %s/%s, retrying", itemID, locationID)
		inv, err = s.reserveOnce(ctx, itemID, locationID, delta)
	}
	return inv, err
}

func (s *inventoryService) reserveOnce(ctx context.Context, itemID, locationID uuid.UUID, delta float64) (*models.Inventory, error) {
	inv, err := s.inventoryRepo.GetByPair(ctx, itemID, locationID)
	if err != nil {
		return nil, err
	}
	expected := inv.LastUpdated

	inv.ReservedQuantity += delta
	if inv.ReservedQuantity < 0 {
		inv.ReservedQuantity = 0
	}
	if inv.ReservedQuantity > inv.Quantity {
		return nil, common.InvalidParameterErrorf("reservation %.2f exceeds on-hand %.2f", inv.ReservedQuantity, inv.Quantity)
	}
	inv.Recompute()

	if err := s.inventoryRepo.UpdateLevels(ctx, inv, expected); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, filter *models.MovementSearchFilter) ([]*models.InventoryMovement, error) {
	return s.inventoryRepo.ListMovements(ctx, filter)
}

func (s *inventoryService) CreateItem(ctx context.Context, item *models.Item) error {
	if item.SKU == "" || item.Name == "" {
		return common.InvalidParameterErrorf("item sku and name are required")
	}
	if item.UnitCost < 0 || item.UnitPrice < 0 {
		return common.InvalidParameterErrorf("item costs must be non-negative")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return s.itemRepo.Create(ctx, item)
}

func (s *inventoryService) CreateLocation(ctx context.Context, location *models.Location) error {
	if !location.Type.Valid() {
		return common.InvalidParameterErrorf("unknown location type %q", location.Type)
	}
	if location.Code == "" {
		return common.InvalidParameterErrorf("location code is required")
	}
	if location.ParentID != nil {
		parent, err := s.locationRepo.GetByID(ctx, *location.ParentID)
		if err != nil {
			return fmt.Errorf("load parent location: %w", err)
		}
		if parent.Type.EchelonTier() >= location.Type.EchelonTier() {
			return common.InvalidParameterErrorf("parent %s (%s) must sit above %s in the echelon",
				parent.Code, parent.Type, location.Type)
		}
	}
	if location.ID == uuid.Nil {
		location.ID = uuid.New()
	}
	return s.locationRepo.Create(ctx, location)
}
