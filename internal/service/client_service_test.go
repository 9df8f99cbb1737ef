package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pharmetric/fieldops-api/internal/dto"
	"github.com/pharmetric/fieldops-api/internal/models"
	appErrors "github.com/pharmetric/fieldops-api/pkg/errors"
)

type mockClientRepo struct {
	clients map[string]*models.Client
	codes   map[string]bool
	deleted []string
}

func newMockClientRepo() *mockClientRepo {
	return &mockClientRepo{clients: map[string]*models.Client{}, codes: map[string]bool{}}
}

func (m *mockClientRepo) List(ctx context.Context, filter models.ClientFilter) ([]models.Client, int, error) {
	out := make([]models.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockClientRepo) FindByID(ctx context.Context, id string) (*models.Client, error) {
	if c, ok := m.clients[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClientRepo) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	return m.codes[code], nil
}

func (m *mockClientRepo) Create(ctx context.Context, client *models.Client) error {
	cp := *client
	m.clients[client.ID] = &cp
	m.codes[client.ClientCode] = true
	return nil
}

func (m *mockClientRepo) Update(ctx context.Context, client *models.Client) error {
	cp := *client
	m.clients[client.ID] = &cp
	return nil
}

func (m *mockClientRepo) DeleteCascade(ctx context.Context, id string) error {
	if _, ok := m.clients[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.clients, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockClientInterventionCounter struct {
	count int
}

func (m *mockClientInterventionCounter) CountByClient(ctx context.Context, clientID string) (int, error) {
	return m.count, nil
}

func TestClientServiceCreateRejectsDuplicateCode(t *testing.T) {
	repo := newMockClientRepo()
	repo.codes["PC-001"] = true
	svc := NewClientService(repo, &mockClientInterventionCounter{}, &mockAuditWriter{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), dto.CreateClientRequest{
		Name:       "Pharmacie du Centre",
		City:       "Lyon",
		Contact:    "contact@pc.fr",
		ClientCode: "PC-001",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestClientServiceDeleteCascadesAndInvalidatesSummaries(t *testing.T) {
	repo := newMockClientRepo()
	repo.clients["c1"] = &models.Client{ID: "c1", Name: "Pharmacie du Centre", ClientCode: "PC-001", CreatedAt: time.Now()}
	audit := &mockAuditWriter{}
	cacheRepo := newMemoryCacheRepo()
	cacheRepo.entries["reports:summary:u1:abcd"] = []byte(`{}`)
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewClientService(repo, &mockClientInterventionCounter{count: 3}, audit, cacheSvc, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "c1", "admin-1")
	require.NoError(t, err)
	assert.Contains(t, repo.deleted, "c1")
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionClientDelete, audit.logs[0].Action)
	assert.Contains(t, cacheRepo.patterns, "reports:summary:*")
	assert.Empty(t, cacheRepo.entries)
}
