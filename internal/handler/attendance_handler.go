package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elimu-labs/elimu-api/internal/models"
	"github.com/elimu-labs/elimu-api/internal/service"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
	"github.com/elimu-labs/elimu-api/pkg/response"
)

// AttendanceHandler exposes attendance session endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
	reports *service.ReportService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService, reports *service.ReportService) *AttendanceHandler {
	return &AttendanceHandler{service: svc, reports: reports}
}

func (h *AttendanceHandler) invalidateReports(c *gin.Context) {
	if h.reports != nil {
		h.reports.Invalidate(c.Request.Context())
	}
}

// List godoc
// @Summary List attendance sessions
// @Tags Attendance
// @Produce json
// @Param class_id query int false "Class ID"
// @Param student_id query int false "Student ID"
// @Param school_wide query bool false "School-wide sessions only"
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	from, err := queryDate(c, "date_from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := queryDate(c, "date_to")
	if err != nil {
		response.Error(c, err)
		return
	}

	filter := models.AttendanceSessionFilter{
		ClassID:    queryInt64(c, "class_id"),
		SubjectID:  queryInt64(c, "subject_id"),
		StudentID:  queryInt64(c, "student_id"),
		RecordedBy: queryInt64(c, "recorded_by"),
		SchoolWide: queryBool(c, "school_wide"),
		DateFrom:   from,
		DateTo:     to,
		Page:       queryInt(c, "page"),
		PageSize:   queryInt(c, "page_size"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}

	sessions, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, sessions, pagination(c, total))
}

// Get godoc
// @Summary Get attendance session with records
// @Tags Attendance
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	session, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, session, nil)
}

// Create godoc
// @Summary Record attendance session
// @Description Creates a session and its student records in one call
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.AttendanceSessionCreateRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Create(c *gin.Context) {
	var req models.AttendanceSessionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	session, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateReports(c)
	response.Created(c, session)
}

// Update godoc
// @Summary Update attendance session
// @Description Replaces the session's records. Only the recorder, a headteacher or an admin may modify it.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param payload body models.AttendanceSessionUpdateRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/{id} [put]
func (h *AttendanceHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.AttendanceSessionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	session, err := h.service.Update(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.invalidateReports(c)
	response.JSON(c, http.StatusOK, session, nil)
}

// Delete godoc
// @Summary Delete attendance session
// @Tags Attendance
// @Produce json
// @Param id path int true "Session ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
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

// DailySummary godoc
// @Summary Daily attendance summary
// @Description Per-class counts for one date, plus a school-wide block when present
// @Tags Attendance
// @Produce json
// @Param date query string false "Date YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/daily-summary [get]
func (h *AttendanceHandler) DailySummary(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	summary, err := h.service.DailySummary(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}
