package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pharmetric/fieldops-api/internal/dto"
	"github.com/pharmetric/fieldops-api/internal/models"
	"github.com/pharmetric/fieldops-api/internal/service"
	appErrors "github.com/pharmetric/fieldops-api/pkg/errors"
	"github.com/pharmetric/fieldops-api/pkg/response"
)

// InterventionTypeHandler wires category management to HTTP routes.
type InterventionTypeHandler struct {
	types *service.InterventionTypeService
}

// NewInterventionTypeHandler constructs a new InterventionTypeHandler.
func NewInterventionTypeHandler(types *service.InterventionTypeService) *InterventionTypeHandler {
	return &InterventionTypeHandler{types: types}
}

// List godoc
// @Summary List intervention types
// @Tags InterventionTypes
// @Produce json
// @Param search query string false "Search by name"
// @Param active query bool false "Filter by active status"
// @Success 200 {object} response.Envelope
// @Router /intervention-types [get]
func (h *InterventionTypeHandler) List(c *gin.Context) {
	filter := models.InterventionTypeFilter{
		Search: strings.TrimSpace(c.Query("search")),
	}
	if active := c.Query("active"); active != "" {
		switch strings.ToLower(active) {
		case "true":
			val := true
			filter.Active = &val
		case "false":
			val := false
			filter.Active = &val
		}
	}

	types, err := h.types.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Get godoc
// @Summary Get intervention type detail
// @Tags InterventionTypes
// @Produce json
// @Param id path string true "Type ID"
// @Success 200 {object} response.Envelope
// @Router /intervention-types/{id} [get]
func (h *InterventionTypeHandler) Get(c *gin.Context) {
	t, err := h.types.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, t, nil)
}

// Create godoc
// @Summary Create intervention type
// @Tags InterventionTypes
// @Accept json
// @Produce json
// @Param payload body dto.CreateInterventionTypeRequest true "Type payload"
// @Success 201 {object} response.Envelope
// @Router /intervention-types [post]
func (h *InterventionTypeHandler) Create(c *gin.Context) {
	var req dto.CreateInterventionTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid intervention type payload"))
		return
	}
	t, err := h.types.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// Update godoc
// @Summary Update intervention type
// @Tags InterventionTypes
// @Accept json
// @Produce json
// @Param id path string true "Type ID"
// @Param payload body dto.UpdateInterventionTypeRequest true "Type payload"
// @Success 200 {object} response.Envelope
// @Router /intervention-types/{id} [put]
func (h *InterventionTypeHandler) Update(c *gin.Context) {
	var req dto.UpdateInterventionTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid intervention type payload"))
		return
	}
	t, err := h.types.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, t, nil)
}

// Delete godoc
// @Summary Deactivate intervention type
// @Tags InterventionTypes
// @Produce json
// @Param id path string true "Type ID"
// @Success 204 {object} response.Envelope
// @Router /intervention-types/{id} [delete]
func (h *InterventionTypeHandler) Delete(c *gin.Context) {
	if err := h.types.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
