package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmetric/fieldops-api/internal/dto"
	"github.com/pharmetric/fieldops-api/internal/middleware"
	"github.com/pharmetric/fieldops-api/internal/models"
	appErrors "github.com/pharmetric/fieldops-api/pkg/errors"
)

type fakeInterventionSrv struct {
	listResp  *dto.InterventionListResponse
	listErr   error
	getResp   *models.Intervention
	getErr    error
	createErr error
	closeErr  error

	lastFilter models.InterventionFilter
	lastActor  *models.User
	lastCreate dto.CreateInterventionRequest
}

func (f *fakeInterventionSrv) List(_ context.Context, actor *models.User, filter models.InterventionFilter) (*dto.InterventionListResponse, error) {
	f.lastActor = actor
	f.lastFilter = filter
	return f.listResp, f.listErr
}

func (f *fakeInterventionSrv) Get(context.Context, *models.User, string) (*models.Intervention, error) {
	return f.getResp, f.getErr
}

func (f *fakeInterventionSrv) Create(_ context.Context, _ *models.User, req dto.CreateInterventionRequest) (*models.Intervention, error) {
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Intervention{ID: "i1", ClientID: req.ClientID, TypeID: req.TypeID}, nil
}

func (f *fakeInterventionSrv) Close(context.Context, *models.User, string, dto.CloseInterventionRequest) (*models.Intervention, error) {
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	return &models.Intervention{ID: "i1", Status: models.StatusClosed}, nil
}

type fakeSuggestionSrv struct {
	resp *dto.SuggestionResponse
	err  error
}

func (f *fakeSuggestionSrv) ForIntervention(context.Context, string, string) (*dto.SuggestionResponse, error) {
	return f.resp, f.err
}

func newRequestContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func setActor(c *gin.Context, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: role, Email: "tech@pharmetric.fr"})
}

func TestInterventionHandlerListParsesFacets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeInterventionSrv{listResp: &dto.InterventionListResponse{}}
	handler := NewInterventionHandler(srv, nil)

	c, w := newRequestContext(http.MethodGet, "/interventions?q=pharmacie&status=urgent&statuses=urgent,closed&types=t1,t2&started_from=2026-01-15&sort=duration", nil)
	setActor(c, models.RoleAdmin)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pharmacie", srv.lastFilter.Query)
	require.NotNil(t, srv.lastFilter.Status)
	assert.Equal(t, models.StatusUrgent, *srv.lastFilter.Status)
	assert.Equal(t, []models.InterventionStatus{models.StatusUrgent, models.StatusClosed}, srv.lastFilter.Statuses)
	assert.Equal(t, []string{"t1", "t2"}, srv.lastFilter.TypeIDs)
	require.NotNil(t, srv.lastFilter.StartedFrom)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), srv.lastFilter.StartedFrom.UTC())
	assert.Equal(t, models.SortDuration, srv.lastFilter.Sort)
	require.NotNil(t, srv.lastActor)
	assert.Equal(t, "u1", srv.lastActor.ID)
}

func TestInterventionHandlerListRejectsBadStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInterventionHandler(&fakeInterventionSrv{}, nil)

	c, w := newRequestContext(http.MethodGet, "/interventions?status=on_hold", nil)
	setActor(c, models.RoleAdmin)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInterventionHandlerListRejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInterventionHandler(&fakeInterventionSrv{}, nil)

	c, w := newRequestContext(http.MethodGet, "/interventions?started_from=15-01-2026", nil)
	setActor(c, models.RoleAdmin)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInterventionHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeInterventionSrv{}
	handler := NewInterventionHandler(srv, nil)

	payload, _ := json.Marshal(dto.CreateInterventionRequest{
		ClientID: "0e3c9d68-4c27-4ffb-9c36-6a078a8ecf8e",
		TypeID:   "a9d0a6f7-24b4-45d3-a2bd-281f7d89a8f6d",
		Comment:  "Poste bloqué au démarrage",
	})
	c, w := newRequestContext(http.MethodPost, "/interventions", payload)
	setActor(c, models.RoleTechnician)

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Poste bloqué au démarrage", srv.lastCreate.Comment)
}

func TestInterventionHandlerCreateRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInterventionHandler(&fakeInterventionSrv{}, nil)

	c, w := newRequestContext(http.MethodPost, "/interventions", []byte("{not-json"))
	setActor(c, models.RoleTechnician)

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInterventionHandlerCloseConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInterventionHandler(&fakeInterventionSrv{closeErr: appErrors.ErrAlreadyClosed}, nil)

	payload, _ := json.Marshal(dto.CloseInterventionRequest{ClosureComment: "Résolu"})
	c, w := newRequestContext(http.MethodPost, "/interventions/i1/close", payload)
	c.Params = gin.Params{{Key: "id", Value: "i1"}}
	setActor(c, models.RoleTechnician)

	handler.Close(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInterventionHandlerSuggestions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewInterventionHandler(&fakeInterventionSrv{}, &fakeSuggestionSrv{
		resp: &dto.SuggestionResponse{ClientID: "c1", TypeID: "t1", Suggestions: []string{"Contrôler les dernières mises à jour effectuées"}},
	})

	c, w := newRequestContext(http.MethodGet, "/suggestions?client_id=c1&type_id=t1", nil)
	setActor(c, models.RoleTechnician)

	handler.Suggestions(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.SuggestionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data.Suggestions, 1)
}
