package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pharmetric/fieldops-api/internal/models"
)

const interventionSelect = `SELECT i.id, i.client_id, i.type_id, i.technician_id, i.status,
	i.started_at, i.ended_at, i.comment, i.closure_comment, i.created_at, i.updated_at,
	c.name AS client_name, t.name AS type_name, t.color AS type_color, u.full_name AS technician_name
	FROM interventions i
	JOIN clients c ON c.id = i.client_id
	JOIN intervention_types t ON t.id = i.type_id
	JOIN users u ON u.id = i.technician_id`

// InterventionRepository manages persistence for interventions. The
// visibility pipeline runs in memory, so listing always resolves the
// display joins and leaves narrowing to the callers.
type InterventionRepository struct {
	db *sqlx.DB
}

// NewInterventionRepository constructs an InterventionRepository.
func NewInterventionRepository(db *sqlx.DB) *InterventionRepository {
	return &InterventionRepository{db: db}
}

// ListAll returns every intervention with resolved display names,
// newest start first.
func (r *InterventionRepository) ListAll(ctx context.Context) ([]models.Intervention, error) {
	query := interventionSelect + " ORDER BY i.started_at DESC"
	var items []models.Intervention
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list interventions: %w", err)
	}
	return items, nil
}

// FindByID fetches one intervention with resolved display names.
func (r *InterventionRepository) FindByID(ctx context.Context, id string) (*models.Intervention, error) {
	query := interventionSelect + " WHERE i.id = $1"
	var item models.Intervention
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create inserts a new intervention record.
func (r *InterventionRepository) Create(ctx context.Context, item *models.Intervention) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if item.StartedAt.IsZero() {
		item.StartedAt = now
	}

	const query = `INSERT INTO interventions (id, client_id, type_id, technician_id, status, started_at, ended_at, comment, closure_comment, created_at, updated_at)
		VALUES (:id, :client_id, :type_id, :technician_id, :status, :started_at, :ended_at, :comment, :closure_comment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create intervention: %w", err)
	}
	return nil
}

// Close transitions an open intervention to closed, stamping the end
// timestamp and closure comment. Returns sql.ErrNoRows when the record
// was not open, so callers can distinguish a double close.
func (r *InterventionRepository) Close(ctx context.Context, id string, endedAt time.Time, closureComment string) error {
	const query = `UPDATE interventions SET status = $2, ended_at = $3, closure_comment = $4, updated_at = $5
		WHERE id = $1 AND status <> $2`
	result, err := r.db.ExecContext(ctx, query, id, models.StatusClosed, endedAt, closureComment, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("close intervention: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByClient returns how many interventions reference a client.
func (r *InterventionRepository) CountByClient(ctx context.Context, clientID string) (int, error) {
	const query = `SELECT COUNT(*) FROM interventions WHERE client_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, clientID); err != nil {
		return 0, fmt.Errorf("count interventions by client: %w", err)
	}
	return total, nil
}
