package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmetric/fieldops-api/internal/dto"
	"github.com/pharmetric/fieldops-api/internal/models"
	appErrors "github.com/pharmetric/fieldops-api/pkg/errors"
)

type mockInterventionRepo struct {
	items     map[string]*models.Intervention
	listOrder []string
	listErr   error
	closed    []string
	closeErr  error
}

func (m *mockInterventionRepo) ListAll(ctx context.Context) ([]models.Intervention, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Intervention, 0, len(m.listOrder))
	for _, id := range m.listOrder {
		out = append(out, *m.items[id])
	}
	return out, nil
}

func (m *mockInterventionRepo) FindByID(ctx context.Context, id string) (*models.Intervention, error) {
	if item, ok := m.items[id]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockInterventionRepo) Create(ctx context.Context, item *models.Intervention) error {
	if m.items == nil {
		m.items = make(map[string]*models.Intervention)
	}
	cp := *item
	m.items[item.ID] = &cp
	m.listOrder = append(m.listOrder, item.ID)
	return nil
}

func (m *mockInterventionRepo) Close(ctx context.Context, id string, endedAt time.Time, closureComment string) error {
	if m.closeErr != nil {
		return m.closeErr
	}
	item, ok := m.items[id]
	if !ok || item.Status.Terminal() {
		return sql.ErrNoRows
	}
	item.Status = models.StatusClosed
	item.EndedAt = &endedAt
	m.closed = append(m.closed, id)
	return nil
}

type mockTypeReader struct {
	types map[string]*models.InterventionType
}

func (m *mockTypeReader) FindByID(ctx context.Context, id string) (*models.InterventionType, error) {
	if t, ok := m.types[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTypeReader) List(ctx context.Context, filter models.InterventionTypeFilter) ([]models.InterventionType, error) {
	out := make([]models.InterventionType, 0, len(m.types))
	for _, t := range m.types {
		out = append(out, *t)
	}
	return out, nil
}

type mockUserReader struct {
	users      map[string]*models.User
	supervised map[string][]string
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserReader) ListTechnicians(ctx context.Context) ([]models.User, error) {
	out := make([]models.User, 0)
	for _, u := range m.users {
		if u.Role == models.RoleTechnician {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUserReader) ListSupervisedTechnicianIDs(ctx context.Context, supervisorID string) ([]string, error) {
	return m.supervised[supervisorID], nil
}

type mockClientReader struct {
	clients map[string]*models.Client
}

func (m *mockClientReader) FindByID(ctx context.Context, id string) (*models.Client, error) {
	if c, ok := m.clients[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockAuditWriter struct {
	logs []models.AuditLog
}

func (m *mockAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type interventionFixture struct {
	repo    *mockInterventionRepo
	types   *mockTypeReader
	users   *mockUserReader
	clients *mockClientReader
	audit   *mockAuditWriter
	now     time.Time

	clientID string
	typeID   string
	techA    string
	techB    string
	superv   string
	admin    string
}

func newInterventionFixture(t *testing.T) (*InterventionService, *interventionFixture) {
	t.Helper()

	f := &interventionFixture{
		now:      time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		clientID: uuid.NewString(),
		typeID:   uuid.NewString(),
		techA:    uuid.NewString(),
		techB:    uuid.NewString(),
		superv:   uuid.NewString(),
		admin:    uuid.NewString(),
	}

	f.clients = &mockClientReader{clients: map[string]*models.Client{
		f.clientID: {ID: f.clientID, Name: "Pharmacie du Centre", ClientCode: "PC-001"},
	}}
	f.types = &mockTypeReader{types: map[string]*models.InterventionType{
		f.typeID: {ID: f.typeID, Name: "Maintenance", Color: "#2563eb", Active: true},
	}}
	f.users = &mockUserReader{
		users: map[string]*models.User{
			f.techA:  {ID: f.techA, FullName: "Tech A", Role: models.RoleTechnician, Active: true},
			f.techB:  {ID: f.techB, FullName: "Tech B", Role: models.RoleTechnician, Active: true},
			f.superv: {ID: f.superv, FullName: "Supervisor", Role: models.RoleSupervisor, Active: true},
			f.admin:  {ID: f.admin, FullName: "Admin", Role: models.RoleAdmin, Active: true},
		},
		supervised: map[string][]string{f.superv: {f.techA}},
	}
	f.repo = &mockInterventionRepo{items: map[string]*models.Intervention{}}
	f.audit = &mockAuditWriter{}

	svc := NewInterventionService(f.repo, f.types, f.users, f.clients, f.audit, nil, fixedClock{now: f.now}, validator.New(), zap.NewNop())
	return svc, f
}

func (f *interventionFixture) serviceWithCache(cache *CacheService) *InterventionService {
	return NewInterventionService(f.repo, f.types, f.users, f.clients, f.audit, cache, fixedClock{now: f.now}, validator.New(), zap.NewNop())
}

func (f *interventionFixture) seed(id string, technicianID string, status models.InterventionStatus, startedAt time.Time) {
	item := &models.Intervention{
		ID:           id,
		ClientID:     f.clientID,
		TypeID:       f.typeID,
		TechnicianID: technicianID,
		Status:       status,
		StartedAt:    startedAt,
		ClientName:   "Pharmacie du Centre",
		TypeName:     "Maintenance",
	}
	if status == models.StatusClosed {
		ended := startedAt.Add(time.Hour)
		item.EndedAt = &ended
	}
	f.repo.items[id] = item
	f.repo.listOrder = append(f.repo.listOrder, id)
}

func TestInterventionServiceListScopesTechnician(t *testing.T) {
	svc, f := newInterventionFixture(t)
	f.seed("i1", f.techA, models.StatusInProgress, f.now.Add(-time.Hour))
	f.seed("i2", f.techB, models.StatusUrgent, f.now.Add(-2*time.Hour))

	actor := f.users.users[f.techA]
	result, err := svc.List(context.Background(), actor, models.InterventionFilter{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "i1", result.Items[0].ID)
	assert.Equal(t, 1, result.Summary.Total)
}

func TestInterventionServiceListSupervisorScope(t *testing.T) {
	svc, f := newInterventionFixture(t)
	f.seed("i1", f.techA, models.StatusInProgress, f.now.Add(-time.Hour))
	f.seed("i2", f.techB, models.StatusInProgress, f.now.Add(-2*time.Hour))

	actor := f.users.users[f.superv]
	result, err := svc.List(context.Background(), actor, models.InterventionFilter{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "i1", result.Items[0].ID)
}

func TestInterventionServiceListSortsUrgentFirst(t *testing.T) {
	svc, f := newInterventionFixture(t)
	f.seed("recent", f.techA, models.StatusInProgress, f.now.Add(-time.Hour))
	f.seed("urgent", f.techA, models.StatusUrgent, f.now.Add(-5*time.Hour))

	actor := f.users.users[f.admin]
	result, err := svc.List(context.Background(), actor, models.InterventionFilter{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "urgent", result.Items[0].ID)
}

func TestInterventionServiceListRejectsUnknownSort(t *testing.T) {
	svc, f := newInterventionFixture(t)
	actor := f.users.users[f.admin]

	_, err := svc.List(context.Background(), actor, models.InterventionFilter{Sort: "bogus"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestInterventionServiceCreateForcesTechnicianOwnership(t *testing.T) {
	svc, f := newInterventionFixture(t)
	actor := f.users.users[f.techA]

	item, err := svc.Create(context.Background(), actor, dto.CreateInterventionRequest{
		ClientID: f.clientID,
		TypeID:   f.typeID,
		Comment:  "poste bloqué",
	})
	require.NoError(t, err)
	assert.Equal(t, f.techA, item.TechnicianID)
	assert.Equal(t, models.StatusInProgress, item.Status)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionInterventionCreate, f.audit.logs[0].Action)
}

func TestInterventionServiceCreateRejectsForeignTechnician(t *testing.T) {
	svc, f := newInterventionFixture(t)
	actor := f.users.users[f.techA]

	_, err := svc.Create(context.Background(), actor, dto.CreateInterventionRequest{
		ClientID:     f.clientID,
		TypeID:       f.typeID,
		TechnicianID: f.techB,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestInterventionServiceCreateRejectsNonTechnicianAssignee(t *testing.T) {
	svc, f := newInterventionFixture(t)
	actor := f.users.users[f.admin]

	_, err := svc.Create(context.Background(), actor, dto.CreateInterventionRequest{
		ClientID:     f.clientID,
		TypeID:       f.typeID,
		TechnicianID: f.superv,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.repo.listOrder)
}

func TestInterventionServiceCreateRejectsInactiveTechnician(t *testing.T) {
	svc, f := newInterventionFixture(t)
	f.users.users[f.techB].Active = false
	actor := f.users.users[f.admin]

	_, err := svc.Create(context.Background(), actor, dto.CreateInterventionRequest{
		ClientID:     f.clientID,
		TypeID:       f.typeID,
		TechnicianID: f.techB,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.repo.listOrder)
}

func TestInterventionServiceCreateRejectsInactiveType(t *testing.T) {
	svc, f := newInterventionFixture(t)
	f.types.types[f.typeID].Active = false
	actor := f.users.users[f.techA]

	_, err := svc.Create(context.Background(), actor, dto.CreateInterventionRequest{
		ClientID: f.clientID,
		TypeID:   f.typeID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveType.Code, appErrors.FromError(err).Code)
}

func TestInterventionServiceCloseStampsEnd(t *testing.T) {
	svc, f := newInterventionFixture(t)
	f.seed("i1", f.techA, models.StatusUrgent, f.now.Add(-time.Hour))
	actor := f.users.users[f.techA]

	item, err := svc.Close(context.Background(), actor, "i1", dto.CloseInterventionRequest{ClosureComment: "résolu"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, item.Status)
	require.NotNil(t, item.EndedAt)
	require.NotNil(t, item.ClosureComment)
	assert.Equal(t, "résolu", *item.ClosureComment)
	assert.Contains(t, f.repo.closed, "i1")
}

func TestInterventionServiceCloseTwiceConflicts(t *testing.T) {
	svc, f := newInterventionFixture(t)
	f.seed("i1", f.techA, models.StatusClosed, f.now.Add(-2*time.Hour))
	actor := f.users.users[f.techA]

	_, err := svc.Close(context.Background(), actor, "i1", dto.CloseInterventionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyClosed.Code, appErrors.FromError(err).Code)
}

func TestInterventionServiceCloseLosesRaceConflicts(t *testing.T) {
	svc, f := newInterventionFixture(t)
	f.seed("i1", f.techA, models.StatusInProgress, f.now.Add(-time.Hour))
	f.repo.closeErr = sql.ErrNoRows
	actor := f.users.users[f.techA]

	_, err := svc.Close(context.Background(), actor, "i1", dto.CloseInterventionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyClosed.Code, appErrors.FromError(err).Code)
}

func TestInterventionServiceGetOutsideScopeForbidden(t *testing.T) {
	svc, f := newInterventionFixture(t)
	f.seed("i1", f.techB, models.StatusInProgress, f.now.Add(-time.Hour))
	actor := f.users.users[f.techA]

	_, err := svc.Get(context.Background(), actor, "i1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestInterventionServiceListPropagatesRepoError(t *testing.T) {
	svc, f := newInterventionFixture(t)
	f.repo.listErr = errors.New("db down")
	actor := f.users.users[f.admin]

	_, err := svc.List(context.Background(), actor, models.InterventionFilter{})
	require.Error(t, err)
}
