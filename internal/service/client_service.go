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

type clientRepository interface {
	List(ctx context.Context, filter models.ClientFilter) ([]models.Client, int, error)
	FindByID(ctx context.Context, id string) (*models.Client, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, client *models.Client) error
	Update(ctx context.Context, client *models.Client) error
	DeleteCascade(ctx context.Context, id string) error
}

type clientAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type clientInterventionRepository interface {
	CountByClient(ctx context.Context, clientID string) (int, error)
}

// ClientService manages pharmacy customer sites.
type ClientService struct {
	repo          clientRepository
	interventions clientInterventionRepository
	audit         clientAuditRepository
	cache         *CacheService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewClientService constructs a ClientService instance. The cache may
// be nil when caching is disabled.
func NewClientService(repo clientRepository, interventions clientInterventionRepository, audit clientAuditRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClientService{repo: repo, interventions: interventions, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns clients matching the filter with pagination metadata.
func (s *ClientService) List(ctx context.Context, filter models.ClientFilter) ([]models.Client, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	clients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clients")
	}

	return clients, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a single client by ID.
func (s *ClientService) Get(ctx context.Context, id string) (*models.Client, error) {
	client, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch client")
	}
	return client, nil
}

// Create registers a new pharmacy site. Client codes are unique.
func (s *ClientService) Create(ctx context.Context, req dto.CreateClientRequest) (*models.Client, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid client payload")
	}

	exists, err := s.repo.ExistsByCode(ctx, req.ClientCode, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check client code uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "client code is already in use")
	}

	now := time.Now().UTC()
	client := &models.Client{
		ID:         uuid.NewString(),
		Name:       req.Name,
		City:       req.City,
		Contact:    req.Contact,
		ClientCode: req.ClientCode,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, client); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create client")
	}

	s.logger.Info("client created", zap.String("client_id", client.ID), zap.String("client_code", client.ClientCode))
	return client, nil
}

// Update applies partial changes to a client record.
func (s *ClientService) Update(ctx context.Context, id string, req dto.UpdateClientRequest) (*models.Client, error) {
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ClientCode != nil && *req.ClientCode != client.ClientCode {
		exists, err := s.repo.ExistsByCode(ctx, *req.ClientCode, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check client code uniqueness")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "client code is already in use")
		}
		client.ClientCode = *req.ClientCode
	}
	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.City != nil {
		client.City = *req.City
	}
	if req.Contact != nil {
		client.Contact = *req.Contact
	}

	client.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, client); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update client")
	}

	return client, nil
}

// Delete removes a client and every intervention attached to it in one
// transaction. Admin-only at the route level; the audit trail records
// who triggered the cascade and how many records it took down.
func (s *ClientService) Delete(ctx context.Context, id string, actorID string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	count, err := s.interventions.CountByClient(ctx, id)
	if err != nil {
		s.logger.Warn("failed to count interventions before cascade", zap.Error(err))
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "client not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete client")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionClientDelete,
		Resource:   "clients",
		ResourceID: &id,
	}); err != nil {
		s.logger.Warn("failed to record client delete audit log", zap.Error(err))
	}

	// Cascading a client deletes its interventions, so cached report
	// summaries no longer match the dataset.
	if err := s.cache.Invalidate(ctx, summaryCachePattern); err != nil {
		s.logger.Warn("failed to invalidate summary cache", zap.Error(err))
	}

	s.logger.Info("client deleted with cascade",
		zap.String("client_id", id),
		zap.Int("interventions_removed", count))
	return nil
}
