package repositories

import (
	"context"
	"encoding/json"

	"stocksense/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PolicyRepository interface {
	GetActive(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryPolicy, error)
	ListVersions(ctx context.Context, itemID, locationID uuid.UUID, limit, offset int) ([]*models.InventoryPolicy, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.InventoryPolicy, error)
	// ActivateNewVersion deactivates the pair's current version and inserts
	// the new one as a single transaction, assigning the next version number.
	// At no point does a reader observe zero or two active versions.
	ActivateNewVersion(ctx context.Context, policy *models.InventoryPolicy) error
}

type policyRepo struct {
	db DB
}

func NewPolicyRepo(db DB) PolicyRepository {
	return &policyRepo{db: db}
}

const policyColumns = `id, item_id, location_id, policy_type, parameters, service_level, lead_time, lead_time_variability, carrying_cost, stockout_cost, ordering_cost, safety_stock, reorder_point, max_stock, confidence, version, is_active, created_at`

func scanPolicy(row interface{ Scan(dest ...any) error }) (*models.InventoryPolicy, error) {
	p := &models.InventoryPolicy{}
	var params []byte
	err := row.Scan(&p.ID, &p.ItemID, &p.LocationID, &p.PolicyType, &params,
		&p.ServiceLevel, &p.LeadTime, &p.LeadTimeVariability,
		&p.CarryingCost, &p.StockoutCost, &p.OrderingCost,
		&p.SafetyStock, &p.ReorderPoint, &p.MaxStock,
		&p.Confidence, &p.Version, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &p.Parameters); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *policyRepo) GetActive(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryPolicy, error) {
	query := `
		SELECT ` + policyColumns + `
		FROM inventory_policies
		WHERE item_id = $1 AND location_id = $2 AND is_active
	`
	return scanPolicy(r.db.QueryRow(ctx, query, itemID, locationID))
}

func (r *policyRepo) ListVersions(ctx context.Context, itemID, locationID uuid.UUID, limit, offset int) ([]*models.InventoryPolicy, error) {
	query := `
		SELECT ` + policyColumns + `
		FROM inventory_policies
		WHERE item_id = $1 AND location_id = $2
		ORDER BY version DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, itemID, locationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPolicies(rows)
}

func (r *policyRepo) ListActive(ctx context.Context, limit, offset int) ([]*models.InventoryPolicy, error) {
	query := `
		SELECT ` + policyColumns + `
		FROM inventory_policies
		WHERE is_active
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPolicies(rows)
}

func collectPolicies(rows pgx.Rows) ([]*models.InventoryPolicy, error) {
	var policies []*models.InventoryPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (r *policyRepo) ActivateNewVersion(ctx context.Context, policy *models.InventoryPolicy) error {
	params, err := json.Marshal(policy.Parameters)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	deactivate := `
		UPDATE inventory_policies
		SET is_active = false
		WHERE item_id = $1 AND location_id = $2 AND is_active
	`
	if _, err := tx.Exec(ctx, deactivate, policy.ItemID, policy.LocationID); err != nil {
		return err
	}

	next := `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM inventory_policies
		WHERE item_id = $1 AND location_id = $2
	`
	if err := tx.QueryRow(ctx, next, policy.ItemID, policy.LocationID).Scan(&policy.Version); err != nil {
		return err
	}

	insert := `
		INSERT INTO inventory_policies (id, item_id, location_id, policy_type, parameters, service_level, lead_time, lead_time_variability, carrying_cost, stockout_cost, ordering_cost, safety_stock, reorder_point, max_stock, confidence, version, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, true, NOW())
	`
	if _, err := tx.Exec(ctx, insert, policy.ID, policy.ItemID, policy.LocationID,
		policy.PolicyType, params, policy.ServiceLevel, policy.LeadTime, policy.LeadTimeVariability,
		policy.CarryingCost, policy.StockoutCost, policy.OrderingCost,
		policy.SafetyStock, policy.ReorderPoint, policy.MaxStock,
		policy.Confidence, policy.Version); err != nil {
		return err
	}

	policy.IsActive = true
	return tx.Commit(ctx)
}
