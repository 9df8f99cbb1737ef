package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pharmetric/fieldops-api/internal/models"
)

const typeColumns = "id, name, description, color, active, created_at, updated_at"

// InterventionTypeRepository manages persistence for intervention types.
type InterventionTypeRepository struct {
	db *sqlx.DB
}

// NewInterventionTypeRepository constructs an InterventionTypeRepository.
func NewInterventionTypeRepository(db *sqlx.DB) *InterventionTypeRepository {
	return &InterventionTypeRepository{db: db}
}

// List returns intervention types matching the filter, ordered by name.
func (r *InterventionTypeRepository) List(ctx context.Context, filter models.InterventionTypeFilter) ([]models.InterventionType, error) {
	base := "FROM intervention_types WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC", typeColumns, base)
	var types []models.InterventionType
	if err := r.db.SelectContext(ctx, &types, query, args...); err != nil {
		return nil, fmt.Errorf("list intervention types: %w", err)
	}
	return types, nil
}

// FindByID fetches an intervention type by ID.
func (r *InterventionTypeRepository) FindByID(ctx context.Context, id string) (*models.InterventionType, error) {
	query := fmt.Sprintf("SELECT %s FROM intervention_types WHERE id = $1", typeColumns)
	var t models.InterventionType
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		return nil, err
	}
	return &t, nil
}

// ExistsByName checks if another type uses the same name.
func (r *InterventionTypeRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM intervention_types WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check type name: %w", err)
	}
	return true, nil
}

// Create inserts a new intervention type.
func (r *InterventionTypeRepository) Create(ctx context.Context, t *models.InterventionType) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	const query = `INSERT INTO intervention_types (id, name, description, color, active, created_at, updated_at)
		VALUES (:id, :name, :description, :color, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("create intervention type: %w", err)
	}
	return nil
}

// Update modifies an existing intervention type.
func (r *InterventionTypeRepository) Update(ctx context.Context, t *models.InterventionType) error {
	t.UpdatedAt = time.Now().UTC()
	const query = `UPDATE intervention_types SET name = :name, description = :description, color = :color, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return fmt.Errorf("update intervention type: %w", err)
	}
	return nil
}

// Deactivate sets a type's active flag to false. Historical records
// keep referencing it.
func (r *InterventionTypeRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE intervention_types SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate intervention type: %w", err)
	}
	return nil
}
