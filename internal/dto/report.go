package dto

import (
	"github.com/pharmetric/fieldops-api/internal/models"
)

// ExportRequest enqueues an async report export job.
type ExportRequest struct {
	Format models.ReportFormat       `json:"format" validate:"required,oneof=csv pdf"`
	Title  string                    `json:"title"`
	Filter models.InterventionFilter `json:"filter"`
}

// ReportJobResponse is returned after enqueueing an export.
type ReportJobResponse struct {
	JobID  string              `json:"jobId"`
	Status models.ReportStatus `json:"status"`
}

// ReportJobStatusResponse describes a job, with a signed download URL
// once the artifact is ready.
type ReportJobStatusResponse struct {
	models.ReportJob
	DownloadURL string `json:"downloadUrl,omitempty"`
}
