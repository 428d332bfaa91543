package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/elimu-labs/elimu-api/internal/models"
	"github.com/elimu-labs/elimu-api/internal/policy"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
	"github.com/elimu-labs/elimu-api/pkg/export"
)

const reportsCachePrefix = "reports"

type reportRepository interface {
	ClassAttendanceSummary(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.ClassAttendanceSummaryRow, error)
	StudentAttendanceDetails(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.StudentAttendanceDetailRow, error)
	ClassPerformanceSummary(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.ClassPerformanceSummaryRow, error)
	StudentPerformanceDetails(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.StudentPerformanceDetailRow, error)
	StudentAttendanceDayCounts(ctx context.Context, studentID int64) (total, present int, err error)
	StudentSubjectAverages(ctx context.Context, studentID int64) ([]models.ProgressSubjectPerformance, error)
	StudentRecentAssessments(ctx context.Context, studentID int64, limit int) ([]models.ProgressRecentAssessment, error)
}

type reportStudentLookup interface {
	FindDetailByID(ctx context.Context, id int64) (*models.StudentDetail, error)
}

// ReportOutput carries one generated report. Envelope is set for JSON
// responses; Content, ContentType and FileName for rendered downloads.
type ReportOutput struct {
	Envelope    *models.ReportEnvelope
	FileName    string
	ContentType string
	Content     []byte
	Cached      bool
}

// ReportService builds aggregated reports in JSON, CSV or PDF form. Teachers
// only see rows for classes they lead or teach in.
type ReportService struct {
	repo     reportRepository
	students reportStudentLookup
	cache    *CacheService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportRepository, students reportStudentLookup, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:     repo,
		students: students,
		cache:    cache,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// ClassAttendanceSummary aggregates attendance per class over the date range.
func (s *ReportService) ClassAttendanceSummary(ctx context.Context, claims *models.JWTClaims, q models.ReportQuery) (*ReportOutput, error) {
	scope := policy.ReportScope(claims)

	var rows []models.ClassAttendanceSummaryRow
	key := s.cacheKey(models.ReportTypeClassAttendanceSummary, q, scope)
	hit, _ := s.cache.Get(ctx, key, &rows)
	if !hit {
		var err error
		rows, err = s.repo.ClassAttendanceSummary(ctx, q, scope)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance summary")
		}
		for i := range rows {
			rows[i].AttendanceRate = attendanceRate(rows[i].PresentCount, rows[i].TotalRecords)
		}
		_ = s.cache.Set(ctx, key, rows, s.cacheTTL)
	}

	if q.Format == models.ReportFormatJSON || q.Format == "" {
		return &ReportOutput{Envelope: envelope(models.ReportTypeClassAttendanceSummary, q, rows), Cached: hit}, nil
	}

	ds := export.Dataset{
		Headers: []string{"Class", "Stream", "Sessions", "Records", "Present", "Attendance Rate"},
	}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, map[string]string{
			"Class":           r.ClassName,
			"Stream":          strPtr(r.Stream),
			"Sessions":        strconv.Itoa(r.TotalSessions),
			"Records":         strconv.Itoa(r.TotalRecords),
			"Present":         strconv.Itoa(r.PresentCount),
			"Attendance Rate": fmt.Sprintf("%.2f%%", r.AttendanceRate),
		})
	}
	return s.render(models.ReportTypeClassAttendanceSummary, "Class Attendance Summary", q.Format, ds)
}

// StudentAttendanceDetails lists individual attendance records.
func (s *ReportService) StudentAttendanceDetails(ctx context.Context, claims *models.JWTClaims, q models.ReportQuery) (*ReportOutput, error) {
	scope := policy.ReportScope(claims)

	var rows []models.StudentAttendanceDetailRow
	key := s.cacheKey(models.ReportTypeStudentAttendanceDetails, q, scope)
	hit, _ := s.cache.Get(ctx, key, &rows)
	if !hit {
		var err error
		rows, err = s.repo.StudentAttendanceDetails(ctx, q, scope)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance details")
		}
		_ = s.cache.Set(ctx, key, rows, s.cacheTTL)
	}

	if q.Format == models.ReportFormatJSON || q.Format == "" {
		return &ReportOutput{Envelope: envelope(models.ReportTypeStudentAttendanceDetails, q, rows), Cached: hit}, nil
	}

	ds := export.Dataset{
		Headers: []string{"Admission No", "Student", "Class", "Date", "Status", "Remarks"},
	}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, map[string]string{
			"Admission No": r.AdmissionNumber,
			"Student":      r.StudentName,
			"Class":        className(r.ClassName, r.Stream),
			"Date":         r.Date.Format("2006-01-02"),
			"Status":       r.Status,
			"Remarks":      strPtr(r.Remarks),
		})
	}
	return s.render(models.ReportTypeStudentAttendanceDetails, "Student Attendance Details", q.Format, ds)
}

// ClassPerformanceSummary aggregates scores per class, subject and assessment.
func (s *ReportService) ClassPerformanceSummary(ctx context.Context, claims *models.JWTClaims, q models.ReportQuery) (*ReportOutput, error) {
	scope := policy.ReportScope(claims)

	var rows []models.ClassPerformanceSummaryRow
	key := s.cacheKey(models.ReportTypeClassPerformanceSummary, q, scope)
	hit, _ := s.cache.Get(ctx, key, &rows)
	if !hit {
		var err error
		rows, err = s.repo.ClassPerformanceSummary(ctx, q, scope)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build performance summary")
		}
		_ = s.cache.Set(ctx, key, rows, s.cacheTTL)
	}

	if q.Format == models.ReportFormatJSON || q.Format == "" {
		return &ReportOutput{Envelope: envelope(models.ReportTypeClassPerformanceSummary, q, rows), Cached: hit}, nil
	}

	ds := export.Dataset{
		Headers: []string{"Class", "Subject", "Assessment", "Type", "Date", "Max Score", "Records", "Average", "Highest", "Lowest"},
	}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, map[string]string{
			"Class":      className(r.ClassName, r.Stream),
			"Subject":    r.SubjectName,
			"Assessment": r.AssessmentName,
			"Type":       r.AssessmentType,
			"Date":       r.Date.Format("2006-01-02"),
			"Max Score":  fmt.Sprintf("%.2f", r.MaxScore),
			"Records":    strconv.Itoa(r.RecordCount),
			"Average":    floatPtr(r.AverageScore),
			"Highest":    floatPtr(r.HighestScore),
			"Lowest":     floatPtr(r.LowestScore),
		})
	}
	return s.render(models.ReportTypeClassPerformanceSummary, "Class Performance Summary", q.Format, ds)
}

// StudentPerformanceDetails lists individual assessment results.
func (s *ReportService) StudentPerformanceDetails(ctx context.Context, claims *models.JWTClaims, q models.ReportQuery) (*ReportOutput, error) {
	scope := policy.ReportScope(claims)

	var rows []models.StudentPerformanceDetailRow
	key := s.cacheKey(models.ReportTypeStudentPerformanceDetails, q, scope)
	hit, _ := s.cache.Get(ctx, key, &rows)
	if !hit {
		var err error
		rows, err = s.repo.StudentPerformanceDetails(ctx, q, scope)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build performance details")
		}
		for i := range rows {
			rows[i].Percentage = percentage(rows[i].Score, rows[i].MaxScore)
		}
		_ = s.cache.Set(ctx, key, rows, s.cacheTTL)
	}

	if q.Format == models.ReportFormatJSON || q.Format == "" {
		return &ReportOutput{Envelope: envelope(models.ReportTypeStudentPerformanceDetails, q, rows), Cached: hit}, nil
	}

	ds := export.Dataset{
		Headers: []string{"Admission No", "Student", "Class", "Subject", "Assessment", "Type", "Date", "Score", "Max Score", "Percentage", "Competency", "Comments"},
	}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, map[string]string{
			"Admission No": r.AdmissionNumber,
			"Student":      r.StudentName,
			"Class":        className(r.ClassName, r.Stream),
			"Subject":      r.SubjectName,
			"Assessment":   r.AssessmentName,
			"Type":         r.AssessmentType,
			"Date":         r.Date.Format("2006-01-02"),
			"Score":        floatPtr(r.Score),
			"Max Score":    fmt.Sprintf("%.2f", r.MaxScore),
			"Percentage":   floatPtr(r.Percentage),
			"Competency":   strPtr(r.CompetencyLevel),
			"Comments":     strPtr(r.Comments),
		})
	}
	return s.render(models.ReportTypeStudentPerformanceDetails, "Student Performance Details", q.Format, ds)
}

// StudentProgress assembles the combined attendance and performance view for
// one student.
func (s *ReportService) StudentProgress(ctx context.Context, studentID int64) (*models.StudentProgressReport, error) {
	student, err := s.students.FindDetailByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	var report models.StudentProgressReport
	key := fmt.Sprintf("%s:%s:%d", reportsCachePrefix, models.ReportTypeStudentProgress, studentID)
	if hit, _ := s.cache.Get(ctx, key, &report); hit {
		return &report, nil
	}

	total, present, err := s.repo.StudentAttendanceDayCounts(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance counts")
	}
	subjects, err := s.repo.StudentSubjectAverages(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject averages")
	}
	for i := range subjects {
		subjects[i].AveragePercentage = percentage(subjects[i].AverageScore, subjects[i].MaxScore)
	}
	recent, err := s.repo.StudentRecentAssessments(ctx, studentID, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent assessments")
	}
	for i := range recent {
		recent[i].Percentage = percentage(recent[i].Score, recent[i].MaxScore)
	}

	report = models.StudentProgressReport{
		Student: *student,
		Attendance: models.ProgressAttendance{
			TotalDays:      total,
			PresentDays:    present,
			AttendanceRate: attendanceRate(present, total),
		},
		SubjectPerformance: subjects,
		RecentAssessments:  recent,
	}
	_ = s.cache.Set(ctx, key, report, s.cacheTTL)
	return &report, nil
}

// Invalidate drops every cached report. Attendance and performance writes
// call this so reports never serve stale aggregates.
func (s *ReportService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, reportsCachePrefix+":*"); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}
}

func (s *ReportService) render(reportType, title, format string, ds export.Dataset) (*ReportOutput, error) {
	name := fmt.Sprintf("%s_%s", reportType, time.Now().Format("20060102"))
	switch format {
	case models.ReportFormatCSV:
		content, err := s.csv.Render(ds)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ReportOutput{FileName: name + ".csv", ContentType: "text/csv", Content: content}, nil
	case models.ReportFormatPDF:
		content, err := s.pdf.Render(ds, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ReportOutput{FileName: name + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format, expected json, csv or pdf")
	}
}

func (s *ReportService) cacheKey(reportType string, q models.ReportQuery, scope models.ReportScope) string {
	from, to := "", ""
	if q.DateFrom != nil {
		from = q.DateFrom.Format("2006-01-02")
	}
	if q.DateTo != nil {
		to = q.DateTo.Format("2006-01-02")
	}
	owner := int64(0)
	if scope.Restricted {
		owner = scope.UserID
	}
	return fmt.Sprintf("%s:%s:%s:%s:c%d:s%d:sub%d:t%s:cbc%s:u%d",
		reportsCachePrefix, reportType, from, to, q.ClassID, q.StudentID, q.SubjectID, q.AssessmentType, boolPtr(q.IsCBC), owner)
}

func envelope(reportType string, q models.ReportQuery, data interface{}) *models.ReportEnvelope {
	env := &models.ReportEnvelope{ReportType: reportType, Data: data}
	if q.DateFrom != nil {
		from := q.DateFrom.Format("2006-01-02")
		env.DateFrom = &from
	}
	if q.DateTo != nil {
		to := q.DateTo.Format("2006-01-02")
		env.DateTo = &to
	}
	return env
}

func className(name string, stream *string) string {
	if stream != nil && *stream != "" {
		return name + " " + *stream
	}
	return name
}

func strPtr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func floatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func boolPtr(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
