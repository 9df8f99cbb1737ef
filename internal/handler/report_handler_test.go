package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmetric/fieldops-api/internal/dto"
	"github.com/pharmetric/fieldops-api/internal/models"
	"github.com/pharmetric/fieldops-api/internal/pipeline"
	"github.com/pharmetric/fieldops-api/internal/service"
)

type fakeReportSrv struct {
	summary     *pipeline.Summary
	summaryHit  bool
	summaryErr  error
	createResp  *dto.ReportJobResponse
	createErr   error
	statusResp  *dto.ReportJobStatusResponse
	statusErr   error
	download    *service.ReportDownload
	downloadErr error

	lastCreate dto.ExportRequest
}

func (f *fakeReportSrv) Summary(context.Context, *models.User, models.InterventionFilter) (*pipeline.Summary, bool, error) {
	return f.summary, f.summaryHit, f.summaryErr
}

func (f *fakeReportSrv) CreateJob(_ context.Context, req dto.ExportRequest, _ string) (*dto.ReportJobResponse, error) {
	f.lastCreate = req
	return f.createResp, f.createErr
}

func (f *fakeReportSrv) GetStatus(context.Context, string, *models.User) (*dto.ReportJobStatusResponse, error) {
	return f.statusResp, f.statusErr
}

func (f *fakeReportSrv) ResolveDownload(context.Context, string) (*service.ReportDownload, error) {
	return f.download, f.downloadErr
}

func TestReportHandlerSummaryReportsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{
		summary:    &pipeline.Summary{Total: 7, UrgentCount: 2},
		summaryHit: true,
	})

	c, w := newRequestContext(http.MethodGet, "/reports/summary?status=urgent", nil)
	setActor(c, models.RoleSupervisor)

	handler.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data pipeline.Summary       `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 7, envelope.Data.Total)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}

func TestReportHandlerExportAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeReportSrv{
		createResp: &dto.ReportJobResponse{JobID: "job-1", Status: models.ReportStatusQueued},
	}
	handler := NewReportHandler(srv)

	payload, _ := json.Marshal(dto.ExportRequest{Format: models.ReportFormatCSV, Title: "Interventions urgentes"})
	c, w := newRequestContext(http.MethodPost, "/reports/export", payload)
	setActor(c, models.RoleAdmin)

	handler.Export(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.ReportFormatCSV, srv.lastCreate.Format)
}

func TestReportHandlerExportRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{})

	payload, _ := json.Marshal(dto.ExportRequest{Format: models.ReportFormatCSV})
	c, w := newRequestContext(http.MethodPost, "/reports/export", payload)

	handler.Export(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerJobStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{
		statusResp: &dto.ReportJobStatusResponse{
			ReportJob:   models.ReportJob{ID: "job-1", Status: models.ReportStatusFinished, Progress: 100},
			DownloadURL: "/api/v1/reports/download/tok",
		},
	})

	c, w := newRequestContext(http.MethodGet, "/reports/jobs/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	setActor(c, models.RoleAdmin)

	handler.JobStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestReportHandlerDownloadStreamsFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp("", "export*.csv")
	require.NoError(t, err)
	defer os.Remove(file.Name())
	_, _ = file.WriteString("Client,Type\n")
	_, _ = file.Seek(0, 0)

	handler := NewReportHandler(&fakeReportSrv{
		download: &service.ReportDownload{
			File:      file,
			Filename:  "interventions.csv",
			Format:    models.ReportFormatCSV,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	})

	c, w := newRequestContext(http.MethodGet, "/reports/download/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}

	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "interventions.csv")
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestReportHandlerDownloadRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{})

	c, w := newRequestContext(http.MethodGet, "/reports/download/", nil)
	c.Params = gin.Params{{Key: "token", Value: " "}}

	handler.Download(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
