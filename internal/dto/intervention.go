package dto

import (
	"time"

	"github.com/pharmetric/fieldops-api/internal/models"
	"github.com/pharmetric/fieldops-api/internal/pipeline"
)

// CreateInterventionRequest opens a new intervention record.
type CreateInterventionRequest struct {
	ClientID     string                    `json:"clientId" validate:"required,uuid4"`
	TypeID       string                    `json:"typeId" validate:"required,uuid4"`
	TechnicianID string                    `json:"technicianId" validate:"omitempty,uuid4"`
	Status       models.InterventionStatus `json:"status" validate:"omitempty,oneof=in_progress urgent"`
	Comment      string                    `json:"comment"`
	StartedAt    *time.Time                `json:"startedAt,omitempty"`
}

// CloseInterventionRequest finalizes an open intervention.
type CloseInterventionRequest struct {
	ClosureComment string `json:"closureComment"`
}

// InterventionListResponse bundles the scoped, filtered, sorted items
// with the aggregate stats the list screen displays alongside them.
type InterventionListResponse struct {
	Items   []models.Intervention `json:"items"`
	Summary pipeline.Summary      `json:"summary"`
}
