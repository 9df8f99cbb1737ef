package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pharmetric/fieldops-api/internal/dto"
	"github.com/pharmetric/fieldops-api/internal/models"
	appErrors "github.com/pharmetric/fieldops-api/pkg/errors"
)

type interventionTypeRepository interface {
	List(ctx context.Context, filter models.InterventionTypeFilter) ([]models.InterventionType, error)
	FindByID(ctx context.Context, id string) (*models.InterventionType, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, t *models.InterventionType) error
	Update(ctx context.Context, t *models.InterventionType) error
	Deactivate(ctx context.Context, id string) error
}

// InterventionTypeService manages intervention categories. Inactive
// categories stay valid on historical records but cannot be attached
// to new interventions.
type InterventionTypeService struct {
	repo      interventionTypeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInterventionTypeService constructs an InterventionTypeService.
func NewInterventionTypeService(repo interventionTypeRepository, validate *validator.Validate, logger *zap.Logger) *InterventionTypeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &InterventionTypeService{repo: repo, validator: validate, logger: logger}
}

// List returns intervention types matching the filter.
func (s *InterventionTypeService) List(ctx context.Context, filter models.InterventionTypeFilter) ([]models.InterventionType, error) {
	types, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list intervention types")
	}
	return types, nil
}

// Get returns a single intervention type by ID.
func (s *InterventionTypeService) Get(ctx context.Context, id string) (*models.InterventionType, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "intervention type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch intervention type")
	}
	return t, nil
}

// Create registers a new category with a unique name.
func (s *InterventionTypeService) Create(ctx context.Context, req dto.CreateInterventionTypeRequest) (*models.InterventionType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid intervention type payload")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check name uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "intervention type name is already in use")
	}

	now := time.Now().UTC()
	t := &models.InterventionType{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create intervention type")
	}

	s.logger.Info("intervention type created", zap.String("type_id", t.ID), zap.String("name", t.Name))
	return t, nil
}

// Update applies partial changes to a category.
func (s *InterventionTypeService) Update(ctx context.Context, id string, req dto.UpdateInterventionTypeRequest) (*models.InterventionType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid intervention type payload")
	}

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != t.Name {
		exists, err := s.repo.ExistsByName(ctx, *req.Name, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check name uniqueness")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "intervention type name is already in use")
		}
		t.Name = *req.Name
	}
	if req.Description != nil {
		t.Description = req.Description
	}
	if req.Color != nil {
		t.Color = *req.Color
	}
	if req.Active != nil {
		t.Active = *req.Active
	}

	t.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update intervention type")
	}

	return t, nil
}

// Deactivate retires a category without touching its history.
func (s *InterventionTypeService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate intervention type")
	}
	s.logger.Info("intervention type deactivated", zap.String("type_id", id))
	return nil
}
