package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elimu-labs/elimu-api/internal/models"
	"github.com/elimu-labs/elimu-api/internal/service"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
	"github.com/elimu-labs/elimu-api/pkg/response"
)

// PerformanceHandler exposes performance record endpoints.
type PerformanceHandler struct {
	service *service.PerformanceService
	reports *service.ReportService
}

// NewPerformanceHandler creates a new handler.
func NewPerformanceHandler(svc *service.PerformanceService, reports *service.ReportService) *PerformanceHandler {
	return &PerformanceHandler{service: svc, reports: reports}
}

func (h *PerformanceHandler) invalidateReports(c *gin.Context) {
	if h.reports != nil {
		h.reports.Invalidate(c.Request.Context())
	}
}

// List godoc
// @Summary List performance records
// @Description Paged records plus score statistics over the page
// @Tags Performance
// @Produce json
// @Param student_id query int false "Student ID"
// @Param assessment_id query int false "Assessment ID"
// @Param subject_id query int false "Subject ID"
// @Param class_id query int false "Class ID"
// @Success 200 {object} response.Envelope
// @Router /performance [get]
func (h *PerformanceHandler) List(c *gin.Context) {
	filter := models.PerformanceFilter{
		StudentID:    queryInt64(c, "student_id"),
		AssessmentID: queryInt64(c, "assessment_id"),
		SubjectID:    queryInt64(c, "subject_id"),
		ClassID:      queryInt64(c, "class_id"),
		RecordedBy:   queryInt64(c, "recorded_by"),
		Page:         queryInt(c, "page"),
		PageSize:     queryInt(c, "page_size"),
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	}

	listing, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, listing, pagination(c, total))
}

// Get godoc
// @Summary Get performance record
// @Tags Performance
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /performance/{id} [get]
func (h *PerformanceHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Record performance
// @Description Record a student's result for an assessment
// @Tags Performance
// @Accept json
// @Produce json
// @Param payload body models.PerformanceCreateRequest true "Record payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /performance [post]
func (h *PerformanceHandler) Create(c *gin.Context) {
	var req models.PerformanceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid performance payload"))
		return
	}

	record, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateReports(c)
	response.Created(c, record)
}

// Update godoc
// @Summary Update performance record
// @Tags Performance
// @Accept json
// @Produce json
// @Param id path int true "Record ID"
// @Param payload body models.PerformanceUpdateRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /performance/{id} [put]
func (h *PerformanceHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.PerformanceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid performance payload"))
		return
	}

	record, err := h.service.Update(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateReports(c)
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete performance record
// @Tags Performance
// @Produce json
// @Param id path int true "Record ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /performance/{id} [delete]
func (h *PerformanceHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateReports(c)
	response.NoContent(c)
}
