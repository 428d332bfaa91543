package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elimu-labs/elimu-api/internal/middleware"
	"github.com/elimu-labs/elimu-api/internal/models"
	"github.com/elimu-labs/elimu-api/internal/service"
	"github.com/elimu-labs/elimu-api/pkg/response"
)

// ReportHandler exposes reporting endpoints. Output format is selected with
// the format query parameter (json, csv or pdf).
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

func (h *ReportHandler) reportQuery(c *gin.Context) (models.ReportQuery, error) {
	from, err := queryDate(c, "date_from")
	if err != nil {
		return models.ReportQuery{}, err
	}
	to, err := queryDate(c, "date_to")
	if err != nil {
		return models.ReportQuery{}, err
	}
	return models.ReportQuery{
		DateFrom:       from,
		DateTo:         to,
		ClassID:        queryInt64(c, "class_id"),
		StudentID:      queryInt64(c, "student_id"),
		SubjectID:      queryInt64(c, "subject_id"),
		AssessmentType: c.Query("assessment_type"),
		IsCBC:          queryBool(c, "is_cbc"),
		Format:         c.DefaultQuery("format", models.ReportFormatJSON),
	}, nil
}

func writeReport(c *gin.Context, out *service.ReportOutput) {
	if out.Envelope != nil {
		middleware.SetCacheHit(c, out.Cached)
		response.JSON(c, http.StatusOK, out.Envelope, nil, middleware.ExtractMeta(c))
		return
	}
	response.Attachment(c, out.FileName, out.ContentType, out.Content)
}

// AttendanceSummary godoc
// @Summary Class attendance summary report
// @Tags Reports
// @Produce json
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Param class_id query int false "Class ID"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance/summary [get]
func (h *ReportHandler) AttendanceSummary(c *gin.Context) {
	q, err := h.reportQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.service.ClassAttendanceSummary(c.Request.Context(), claimsFromContext(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeReport(c, out)
}

// AttendanceDetails godoc
// @Summary Student attendance details report
// @Tags Reports
// @Produce json
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Param class_id query int false "Class ID"
// @Param student_id query int false "Student ID"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance/details [get]
func (h *ReportHandler) AttendanceDetails(c *gin.Context) {
	q, err := h.reportQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.service.StudentAttendanceDetails(c.Request.Context(), claimsFromContext(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeReport(c, out)
}

// PerformanceSummary godoc
// @Summary Class performance summary report
// @Tags Reports
// @Produce json
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Param class_id query int false "Class ID"
// @Param subject_id query int false "Subject ID"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/performance/summary [get]
func (h *ReportHandler) PerformanceSummary(c *gin.Context) {
	q, err := h.reportQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.service.ClassPerformanceSummary(c.Request.Context(), claimsFromContext(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeReport(c, out)
}

// PerformanceDetails godoc
// @Summary Student performance details report
// @Tags Reports
// @Produce json
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Param student_id query int false "Student ID"
// @Param subject_id query int false "Subject ID"
// @Param assessment_type query string false "Assessment type"
// @Param is_cbc query bool false "CBC records only"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/performance/details [get]
func (h *ReportHandler) PerformanceDetails(c *gin.Context) {
	q, err := h.reportQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.service.StudentPerformanceDetails(c.Request.Context(), claimsFromContext(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeReport(c, out)
}

// StudentProgress godoc
// @Summary Student progress report
// @Description Combined attendance and performance view for one student
// @Tags Reports
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/students/{id}/progress [get]
func (h *ReportHandler) StudentProgress(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.service.StudentProgress(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, nil)
}
