package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pharmetric/fieldops-api/internal/dto"
	"github.com/pharmetric/fieldops-api/internal/models"
	appErrors "github.com/pharmetric/fieldops-api/pkg/errors"
	"github.com/pharmetric/fieldops-api/pkg/response"
)

type interventionService interface {
	List(ctx context.Context, actor *models.User, filter models.InterventionFilter) (*dto.InterventionListResponse, error)
	Get(ctx context.Context, actor *models.User, id string) (*models.Intervention, error)
	Create(ctx context.Context, actor *models.User, req dto.CreateInterventionRequest) (*models.Intervention, error)
	Close(ctx context.Context, actor *models.User, id string, req dto.CloseInterventionRequest) (*models.Intervention, error)
}

type suggestionService interface {
	ForIntervention(ctx context.Context, clientID, typeID string) (*dto.SuggestionResponse, error)
}

// InterventionHandler wires the intervention pipeline to HTTP routes.
type InterventionHandler struct {
	interventions interventionService
	suggestions   suggestionService
}

// NewInterventionHandler constructs a new InterventionHandler.
func NewInterventionHandler(interventions interventionService, suggestions suggestionService) *InterventionHandler {
	return &InterventionHandler{interventions: interventions, suggestions: suggestions}
}

// List godoc
// @Summary List interventions
// @Description Role-scoped, filtered and sorted intervention list with summary stats
// @Tags Interventions
// @Produce json
// @Param q query string false "Free-text search over client, comment and type"
// @Param status query string false "Status facet (in_progress/urgent/closed)"
// @Param type query string false "Type ID facet"
// @Param client query string false "Client ID facet"
// @Param technician query string false "Technician ID facet"
// @Param started_from query string false "Inclusive start-date lower bound (RFC3339 or YYYY-MM-DD)"
// @Param started_to query string false "Inclusive start-date upper bound"
// @Param ended_from query string false "Inclusive end-date lower bound"
// @Param ended_to query string false "Inclusive end-date upper bound"
// @Param statuses query string false "Comma-separated multi-select status facet"
// @Param types query string false "Comma-separated multi-select type facet"
// @Param sort query string false "Sort key (date_desc/date_asc/client/duration)"
// @Success 200 {object} response.Envelope
// @Router /interventions [get]
func (h *InterventionHandler) List(c *gin.Context) {
	filter, err := parseInterventionFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.interventions.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get intervention detail
// @Tags Interventions
// @Produce json
// @Param id path string true "Intervention ID"
// @Success 200 {object} response.Envelope
// @Router /interventions/{id} [get]
func (h *InterventionHandler) Get(c *gin.Context) {
	item, err := h.interventions.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create intervention
// @Tags Interventions
// @Accept json
// @Produce json
// @Param payload body dto.CreateInterventionRequest true "Intervention payload"
// @Success 201 {object} response.Envelope
// @Router /interventions [post]
func (h *InterventionHandler) Create(c *gin.Context) {
	var req dto.CreateInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid intervention payload"))
		return
	}
	item, err := h.interventions.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Close godoc
// @Summary Close intervention
// @Description Stamps the end time and closure comment; closing twice is a conflict
// @Tags Interventions
// @Accept json
// @Produce json
// @Param id path string true "Intervention ID"
// @Param payload body dto.CloseInterventionRequest true "Closure payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /interventions/{id}/close [post]
func (h *InterventionHandler) Close(c *gin.Context) {
	var req dto.CloseInterventionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid closure payload"))
		return
	}
	item, err := h.interventions.Close(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Suggestions godoc
// @Summary Comment suggestions
// @Description Deterministic comment templates for a client/type pair
// @Tags Interventions
// @Produce json
// @Param client_id query string true "Client ID"
// @Param type_id query string true "Type ID"
// @Success 200 {object} response.Envelope
// @Router /suggestions [get]
func (h *InterventionHandler) Suggestions(c *gin.Context) {
	resp, err := h.suggestions.ForIntervention(c.Request.Context(), c.Query("client_id"), c.Query("type_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

func parseInterventionFilter(c *gin.Context) (models.InterventionFilter, error) {
	filter := models.InterventionFilter{
		Query:        strings.TrimSpace(c.Query("q")),
		TypeID:       c.Query("type"),
		ClientID:     c.Query("client"),
		TechnicianID: c.Query("technician"),
		Sort:         models.SortKey(c.Query("sort")),
	}

	if status := c.Query("status"); status != "" {
		val := models.InterventionStatus(status)
		if !val.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown status facet")
		}
		filter.Status = &val
	}

	for name, dest := range map[string]**time.Time{
		"started_from": &filter.StartedFrom,
		"started_to":   &filter.StartedTo,
		"ended_from":   &filter.EndedFrom,
		"ended_to":     &filter.EndedTo,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		ts, err := parseTimeParam(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" timestamp")
		}
		*dest = &ts
	}

	if raw := c.Query("statuses"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			val := models.InterventionStatus(strings.TrimSpace(part))
			if !val.Valid() {
				return filter, appErrors.Clone(appErrors.ErrValidation, "unknown status in statuses facet")
			}
			filter.Statuses = append(filter.Statuses, val)
		}
	}
	if raw := c.Query("types"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				filter.TypeIDs = append(filter.TypeIDs, trimmed)
			}
		}
	}

	return filter, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}
