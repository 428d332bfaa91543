package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elimu-labs/elimu-api/internal/models"
	"github.com/elimu-labs/elimu-api/internal/service"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
	"github.com/elimu-labs/elimu-api/pkg/response"
)

// AssignmentHandler exposes teacher-subject assignment endpoints.
type AssignmentHandler struct {
	service *service.TeacherAssignmentService
}

// NewAssignmentHandler creates a new handler.
func NewAssignmentHandler(svc *service.TeacherAssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// List godoc
// @Summary List teacher assignments
// @Tags Assignments
// @Produce json
// @Param teacher_id query int false "Teacher ID"
// @Param subject_id query int false "Subject ID"
// @Param class_id query int false "Class ID"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	filter := models.TeacherSubjectFilter{
		TeacherID: queryInt64(c, "teacher_id"),
		SubjectID: queryInt64(c, "subject_id"),
		ClassID:   queryInt64(c, "class_id"),
		Page:      queryInt(c, "page"),
		PageSize:  queryInt(c, "page_size"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	assignments, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignments, pagination(c, total))
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	assignment, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment, nil)
}

// Create godoc
// @Summary Assign teacher to subject in class
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body models.TeacherSubjectCreateRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req models.TeacherSubjectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	assignment, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assignment)
}

// BulkCreate godoc
// @Summary Bulk assign teachers
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body models.TeacherSubjectBulkCreateRequest true "Bulk payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/bulk [post]
func (h *AssignmentHandler) BulkCreate(c *gin.Context) {
	var req models.TeacherSubjectBulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk assignment payload"))
		return
	}

	assignments, err := h.service.BulkCreate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assignments)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ByTeacher godoc
// @Summary Assignments for one teacher
// @Tags Assignments
// @Produce json
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/assignments [get]
func (h *AssignmentHandler) ByTeacher(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	assignments, err := h.service.ListByTeacher(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignments, nil)
}

// ByClass godoc
// @Summary Assignments for one class
// @Tags Assignments
// @Produce json
// @Param id path int true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/assignments [get]
func (h *AssignmentHandler) ByClass(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	assignments, err := h.service.ListByClass(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignments, nil)
}
