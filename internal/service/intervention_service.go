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
	"github.com/pharmetric/fieldops-api/internal/pipeline"
	appErrors "github.com/pharmetric/fieldops-api/pkg/errors"
)

type interventionRepository interface {
	ListAll(ctx context.Context) ([]models.Intervention, error)
	FindByID(ctx context.Context, id string) (*models.Intervention, error)
	Create(ctx context.Context, item *models.Intervention) error
	Close(ctx context.Context, id string, endedAt time.Time, closureComment string) error
}

type interventionTypeReader interface {
	FindByID(ctx context.Context, id string) (*models.InterventionType, error)
	List(ctx context.Context, filter models.InterventionTypeFilter) ([]models.InterventionType, error)
}

type interventionUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListTechnicians(ctx context.Context) ([]models.User, error)
	ListSupervisedTechnicianIDs(ctx context.Context, supervisorID string) ([]string, error)
}

type interventionClientReader interface {
	FindByID(ctx context.Context, id string) (*models.Client, error)
}

type interventionAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type referenceClock interface {
	Now() time.Time
}

// InterventionService is the core of the dashboard: it loads the full
// joined intervention set and runs it through the scope → filter →
// sort pipeline for the acting user, with aggregate stats computed on
// the same scoped set the list shows.
type InterventionService struct {
	repo      interventionRepository
	types     interventionTypeReader
	users     interventionUserReader
	clients   interventionClientReader
	audit     interventionAuditWriter
	cache     *CacheService
	clock     referenceClock
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInterventionService constructs an InterventionService. The cache
// may be nil when caching is disabled.
func NewInterventionService(
	repo interventionRepository,
	types interventionTypeReader,
	users interventionUserReader,
	clients interventionClientReader,
	audit interventionAuditWriter,
	cache *CacheService,
	clock referenceClock,
	validate *validator.Validate,
	logger *zap.Logger,
) *InterventionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &InterventionService{
		repo:      repo,
		types:     types,
		users:     users,
		clients:   clients,
		audit:     audit,
		cache:     cache,
		clock:     clock,
		validator: validate,
		logger:    logger,
	}
}

// List returns the interventions visible to the actor, filtered and
// sorted per the supplied facets, with summary stats over the same set.
func (s *InterventionService) List(ctx context.Context, actor *models.User, filter models.InterventionFilter) (*dto.InterventionListResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if filter.Sort != "" && !filter.Sort.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown sort key")
	}

	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load interventions")
	}

	scoped, err := s.scopeFor(ctx, actor, items)
	if err != nil {
		return nil, err
	}

	filtered := pipeline.Filter(scoped, filter)
	sorted := pipeline.Sort(filtered, filter.Sort, s.clock.Now())

	summary, err := s.aggregate(ctx, sorted)
	if err != nil {
		return nil, err
	}

	return &dto.InterventionListResponse{Items: sorted, Summary: *summary}, nil
}

// Summary aggregates the actor-visible interventions after filtering,
// without returning the item list. Used by the reports endpoint.
func (s *InterventionService) Summary(ctx context.Context, actor *models.User, filter models.InterventionFilter) (*pipeline.Summary, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load interventions")
	}

	scoped, err := s.scopeFor(ctx, actor, items)
	if err != nil {
		return nil, err
	}

	return s.aggregate(ctx, pipeline.Filter(scoped, filter))
}

// Get returns a single intervention if the actor is allowed to see it.
func (s *InterventionService) Get(ctx context.Context, actor *models.User, id string) (*models.Intervention, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "intervention not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch intervention")
	}

	visible, err := s.scopeFor(ctx, actor, []models.Intervention{*item})
	if err != nil {
		return nil, err
	}
	if len(visible) == 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "intervention is outside your scope")
	}

	return item, nil
}

// Create opens a new intervention. Technicians always create for
// themselves; admins and supervisors may assign another technician.
func (s *InterventionService) Create(ctx context.Context, actor *models.User, req dto.CreateInterventionRequest) (*models.Intervention, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid intervention payload")
	}

	status := req.Status
	if status == "" {
		status = models.StatusInProgress
	}
	if status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "interventions cannot be created closed")
	}

	technicianID := req.TechnicianID
	switch {
	case actor.Role == models.RoleTechnician:
		if technicianID != "" && technicianID != actor.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "technicians create interventions for themselves")
		}
		technicianID = actor.ID
	case technicianID == "":
		technicianID = actor.ID
	}

	if _, err := s.clients.FindByID(ctx, req.ClientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "client not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch client")
	}

	interventionType, err := s.types.FindByID(ctx, req.TypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "intervention type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch intervention type")
	}
	if !interventionType.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveType, "intervention type is inactive")
	}

	assignee, err := s.users.FindByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "technician not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch technician")
	}
	if assignee.Role != models.RoleTechnician {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee is not a technician")
	}
	if !assignee.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "technician account is inactive")
	}

	now := time.Now().UTC()
	startedAt := now
	if req.StartedAt != nil {
		startedAt = req.StartedAt.UTC()
	}

	item := &models.Intervention{
		ID:           uuid.NewString(),
		ClientID:     req.ClientID,
		TypeID:       req.TypeID,
		TechnicianID: technicianID,
		Status:       status,
		StartedAt:    startedAt,
		Comment:      req.Comment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create intervention")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionInterventionCreate,
		Resource:   "interventions",
		ResourceID: &item.ID,
	}); err != nil {
		s.logger.Warn("failed to record intervention create audit log", zap.Error(err))
	}

	s.invalidateSummaries(ctx)

	s.logger.Info("intervention created",
		zap.String("intervention_id", item.ID),
		zap.String("status", string(item.Status)))
	return item, nil
}

// Close finalizes an intervention exactly once, stamping the end time
// and closure comment. Closing an already closed record is a conflict.
func (s *InterventionService) Close(ctx context.Context, actor *models.User, id string, req dto.CloseInterventionRequest) (*models.Intervention, error) {
	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if item.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyClosed, "intervention already closed")
	}

	endedAt := time.Now().UTC()
	if err := s.repo.Close(ctx, id, endedAt, req.ClosureComment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race with a concurrent close.
			return nil, appErrors.Clone(appErrors.ErrAlreadyClosed, "intervention already closed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close intervention")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionInterventionClose,
		Resource:   "interventions",
		ResourceID: &id,
	}); err != nil {
		s.logger.Warn("failed to record intervention close audit log", zap.Error(err))
	}

	item.Status = models.StatusClosed
	item.EndedAt = &endedAt
	if req.ClosureComment != "" {
		item.ClosureComment = &req.ClosureComment
	}
	item.UpdatedAt = endedAt

	s.invalidateSummaries(ctx)

	s.logger.Info("intervention closed", zap.String("intervention_id", id))
	return item, nil
}

// invalidateSummaries drops cached report summaries after a mutation so
// the next summary request recomputes from the current dataset.
func (s *InterventionService) invalidateSummaries(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, summaryCachePattern); err != nil {
		s.logger.Warn("failed to invalidate summary cache", zap.Error(err))
	}
}

func (s *InterventionService) scopeFor(ctx context.Context, actor *models.User, items []models.Intervention) ([]models.Intervention, error) {
	var supervised []string
	if actor.Role == models.RoleSupervisor {
		ids, err := s.users.ListSupervisedTechnicianIDs(ctx, actor.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve supervised technicians")
		}
		supervised = ids
	}
	return pipeline.Scope(items, actor, supervised), nil
}

func (s *InterventionService) aggregate(ctx context.Context, items []models.Intervention) (*pipeline.Summary, error) {
	types, err := s.types.List(ctx, models.InterventionTypeFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intervention types")
	}
	technicians, err := s.users.ListTechnicians(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load technicians")
	}

	summary := pipeline.Aggregate(items, types, technicians)
	return &summary, nil
}
