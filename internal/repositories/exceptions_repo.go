package repositories

import (
	"context"
	"fmt"
	"time"

	"stocksense/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ExceptionSearchFilter narrows exception listings.
type ExceptionSearchFilter struct {
	Type       *models.ExceptionType
	Severity   *models.ExceptionSeverity
	Status     *models.ExceptionStatus
	ItemID     *uuid.UUID
	LocationID *uuid.UUID
	Limit      int
	Offset     int
}

type ExceptionRepository interface {
	Create(ctx context.Context, exception *models.Exception) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Exception, error)
	// GetOpenByKey looks up the single open exception for (type, item,
	// location), the key of the deduplication invariant.
	GetOpenByKey(ctx context.Context, excType models.ExceptionType, itemID, locationID uuid.UUID) (*models.Exception, error)
	ListOpenByPair(ctx context.Context, itemID, locationID uuid.UUID) ([]*models.Exception, error)
	List(ctx context.Context, filter *ExceptionSearchFilter) ([]*models.Exception, error)
	// UpdateObservation refreshes the detection-time snapshot of a still-open
	// exception instead of creating a duplicate.
	UpdateObservation(ctx context.Context, id uuid.UUID, currentValue float64) error
	UpdateStatus(ctx context.Context, exception *models.Exception) error
	CountResolvedInPeriod(ctx context.Context, excType models.ExceptionType, locationID *uuid.UUID, from, to time.Time) (int, error)
}

type exceptionRepo struct {
	db DB
}

func NewExceptionRepo(db DB) ExceptionRepository {
	return &exceptionRepo{db: db}
}

const exceptionColumns = `id, type, severity, item_id, location_id, title, description, current_value, threshold_value, status, assigned_to, resolved_at, created_at, updated_at`

func (r *exceptionRepo) Create(ctx context.Context, exception *models.Exception) error {
	query := `
		INSERT INTO exceptions (id, type, severity, item_id, location_id, title, description, current_value, threshold_value, status, assigned_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, exception.ID, exception.Type, exception.Severity,
		exception.ItemID, exception.LocationID, exception.Title, exception.Description,
		exception.CurrentValue, exception.ThresholdValue, exception.Status, exception.AssignedTo)
	return err
}

func scanException(row interface{ Scan(dest ...any) error }) (*models.Exception, error) {
	e := &models.Exception{}
	err := row.Scan(&e.ID, &e.Type, &e.Severity, &e.ItemID, &e.LocationID, &e.Title, &e.Description,
		&e.CurrentValue, &e.ThresholdValue, &e.Status, &e.AssignedTo, &e.ResolvedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *exceptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Exception, error) {
	query := `SELECT ` + exceptionColumns + ` FROM exceptions WHERE id = $1`
	return scanException(r.db.QueryRow(ctx, query, id))
}

func (r *exceptionRepo) GetOpenByKey(ctx context.Context, excType models.ExceptionType, itemID, locationID uuid.UUID) (*models.Exception, error) {
	query := `
		SELECT ` + exceptionColumns + `
		FROM exceptions
		WHERE type = $1 AND item_id = $2 AND location_id = $3 AND status = 'open'
	`
	return scanException(r.db.QueryRow(ctx, query, excType, itemID, locationID))
}

func (r *exceptionRepo) ListOpenByPair(ctx context.Context, itemID, locationID uuid.UUID) ([]*models.Exception, error) {
	query := `
		SELECT ` + exceptionColumns + `
		FROM exceptions
		WHERE item_id = $1 AND location_id = $2 AND status = 'open'
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, itemID, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExceptions(rows)
}

func (r *exceptionRepo) List(ctx context.Context, filter *ExceptionSearchFilter) ([]*models.Exception, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	query := `SELECT ` + exceptionColumns + ` FROM exceptions WHERE 1=1`
	args := []any{}
	n := 0

	if filter.Type != nil {
		n++
		query += fmt.Sprintf(` AND type = $%d`, n)
		args = append(args, *filter.Type)
	}
	if filter.Severity != nil {
		n++
		query += fmt.Sprintf(` AND severity = $%d`, n)
		args = append(args, *filter.Severity)
	}
	if filter.Status != nil {
		n++
		query += fmt.Sprintf(` AND status = $%d`, n)
		args = append(args, *filter.Status)
	}
	if filter.ItemID != nil {
		n++
		query += fmt.Sprintf(` AND item_id = $%d`, n)
		args = append(args, *filter.ItemID)
	}
	if filter.LocationID != nil {
		n++
		query += fmt.Sprintf(` AND location_id = $%d`, n)
		args = append(args, *filter.LocationID)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, n+1)
	args = append(args, filter.Limit)
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, n+2)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExceptions(rows)
}

func collectExceptions(rows pgx.Rows) ([]*models.Exception, error) {
	var exceptions []*models.Exception
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, e)
	}
	return exceptions, rows.Err()
}

func (r *exceptionRepo) UpdateObservation(ctx context.Context, id uuid.UUID, currentValue float64) error {
	query := `
		UPDATE exceptions
		SET current_value = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'open'
	`
	_, err := r.db.Exec(ctx, query, currentValue, id)
	return err
}

func (r *exceptionRepo) UpdateStatus(ctx context.Context, exception *models.Exception) error {
	query := `
		UPDATE exceptions
		SET status = $1, assigned_to = $2, resolved_at = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, exception.Status, exception.AssignedTo, exception.ResolvedAt, exception.ID)
	return err
}

func (r *exceptionRepo) CountResolvedInPeriod(ctx context.Context, excType models.ExceptionType, locationID *uuid.UUID, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM exceptions
		WHERE type = $1 AND resolved_at >= $2 AND resolved_at < $3
	`
	args := []any{excType, from, to}
	if locationID != nil {
		query += ` AND location_id = $4`
		args = append(args, *locationID)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
