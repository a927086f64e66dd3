package repositories

import (
	"context"

	"stocksense/internal/models"

	"github.com/google/uuid"
)

type LocationRepository interface {
	Create(ctx context.Context, location *models.Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error)
	GetByCode(ctx context.Context, code string) (*models.Location, error)
	List(ctx context.Context, limit, offset int) ([]*models.Location, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.Location, error)
}

type locationRepo struct {
	db DB
}

func NewLocationRepo(db DB) LocationRepository {
	return &locationRepo{db: db}
}

const locationColumns = `id, code, name, type, parent_id, is_active, created_at, updated_at`

func (r *locationRepo) Create(ctx context.Context, location *models.Location) error {
	query := `
		INSERT INTO locations (id, code, name, type, parent_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (code) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, location.ID, location.Code, location.Name, location.Type, location.ParentID, location.IsActive)
	return err
}

func scanLocation(row interface{ Scan(dest ...any) error }) (*models.Location, error) {
	location := &models.Location{}
	err := row.Scan(&location.ID, &location.Code, &location.Name, &location.Type, &location.ParentID, &location.IsActive, &location.CreatedAt, &location.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return location, nil
}

func (r *locationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	return scanLocation(r.db.QueryRow(ctx, query, id))
}

func (r *locationRepo) GetByCode(ctx context.Context, code string) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE code = $1`
	return scanLocation(r.db.QueryRow(ctx, query, code))
}

func (r *locationRepo) List(ctx context.Context, limit, offset int) ([]*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations ORDER BY code LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []*models.Location
	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}

func (r *locationRepo) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE parent_id = $1 ORDER BY code`
	rows, err := r.db.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []*models.Location
	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}
