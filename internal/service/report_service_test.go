package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

type mockReportRepo struct {
	attendanceRows  []models.ClassAttendanceSummaryRow
	detailRows      []models.StudentAttendanceDetailRow
	performanceRows []models.ClassPerformanceSummaryRow
	scoreRows       []models.StudentPerformanceDetailRow
	totalDays       int
	presentDays     int
	subjects        []models.ProgressSubjectPerformance
	recent          []models.ProgressRecentAssessment
	calls           int
}

func (m *mockReportRepo) ClassAttendanceSummary(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.ClassAttendanceSummaryRow, error) {
	m.calls++
	return m.attendanceRows, nil
}

func (m *mockReportRepo) StudentAttendanceDetails(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.StudentAttendanceDetailRow, error) {
	m.calls++
	return m.detailRows, nil
}

func (m *mockReportRepo) ClassPerformanceSummary(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.ClassPerformanceSummaryRow, error) {
	m.calls++
	return m.performanceRows, nil
}

func (m *mockReportRepo) StudentPerformanceDetails(ctx context.Context, q models.ReportQuery, scope models.ReportScope) ([]models.StudentPerformanceDetailRow, error) {
	m.calls++
	return m.scoreRows, nil
}

func (m *mockReportRepo) StudentAttendanceDayCounts(ctx context.Context, studentID int64) (int, int, error) {
	return m.totalDays, m.presentDays, nil
}

func (m *mockReportRepo) StudentSubjectAverages(ctx context.Context, studentID int64) ([]models.ProgressSubjectPerformance, error) {
	return m.subjects, nil
}

func (m *mockReportRepo) StudentRecentAssessments(ctx context.Context, studentID int64, limit int) ([]models.ProgressRecentAssessment, error) {
	return m.recent, nil
}

type mockReportStudents struct {
	students map[int64]*models.StudentDetail
}

func (m *mockReportStudents) FindDetailByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

func newReportFixture(repo *mockReportRepo, cacheRepo CacheRepository) *ReportService {
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), cacheRepo != nil)
	students := &mockReportStudents{students: map[int64]*models.StudentDetail{
		1: {Student: models.Student{ID: 1, AdmissionNumber: "ADM001", FullName: "Student One"}},
	}}
	return NewReportService(repo, students, cache, time.Minute, zap.NewNop())
}

func TestReportClassAttendanceSummaryJSON(t *testing.T) {
	repo := &mockReportRepo{
		attendanceRows: []models.ClassAttendanceSummaryRow{
			{ClassID: 1, ClassName: "Grade 4", TotalSessions: 2, TotalRecords: 20, PresentCount: 18},
		},
	}
	svc := newReportFixture(repo, nil)

	out, err := svc.ClassAttendanceSummary(context.Background(), adminClaims(), models.ReportQuery{Format: models.ReportFormatJSON})
	require.NoError(t, err)
	require.NotNil(t, out.Envelope)
	assert.False(t, out.Cached)
	assert.Equal(t, models.ReportTypeClassAttendanceSummary, out.Envelope.ReportType)

	rows := out.Envelope.Data.([]models.ClassAttendanceSummaryRow)
	require.Len(t, rows, 1)
	assert.Equal(t, 90.0, rows[0].AttendanceRate)
}

func TestReportSecondCallServedFromCache(t *testing.T) {
	repo := &mockReportRepo{
		attendanceRows: []models.ClassAttendanceSummaryRow{
			{ClassID: 1, ClassName: "Grade 4", TotalRecords: 10, PresentCount: 10},
		},
	}
	svc := newReportFixture(repo, &memoryCacheRepo{})

	q := models.ReportQuery{Format: models.ReportFormatJSON}
	out, err := svc.ClassAttendanceSummary(context.Background(), adminClaims(), q)
	require.NoError(t, err)
	assert.False(t, out.Cached)
	assert.Equal(t, 1, repo.calls)

	out, err = svc.ClassAttendanceSummary(context.Background(), adminClaims(), q)
	require.NoError(t, err)
	assert.True(t, out.Cached)
	assert.Equal(t, 1, repo.calls)
}

func TestReportInvalidateDropsCache(t *testing.T) {
	repo := &mockReportRepo{}
	cacheRepo := &memoryCacheRepo{}
	svc := newReportFixture(repo, cacheRepo)

	q := models.ReportQuery{Format: models.ReportFormatJSON}
	_, err := svc.ClassAttendanceSummary(context.Background(), adminClaims(), q)
	require.NoError(t, err)
	assert.Len(t, cacheRepo.entries, 1)

	svc.Invalidate(context.Background())
	assert.Empty(t, cacheRepo.entries)

	_, err = svc.ClassAttendanceSummary(context.Background(), adminClaims(), q)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestReportCacheKeyScopedToTeacher(t *testing.T) {
	svc := newReportFixture(&mockReportRepo{}, nil)

	q := models.ReportQuery{ClassID: 1}
	adminKey := svc.cacheKey(models.ReportTypeClassAttendanceSummary, q, models.ReportScope{})
	teacherKey := svc.cacheKey(models.ReportTypeClassAttendanceSummary, q, models.ReportScope{UserID: 100, Restricted: true})
	assert.NotEqual(t, adminKey, teacherKey)

	otherTeacher := svc.cacheKey(models.ReportTypeClassAttendanceSummary, q, models.ReportScope{UserID: 101, Restricted: true})
	assert.NotEqual(t, teacherKey, otherTeacher)
}

func TestReportAttendanceSummaryCSV(t *testing.T) {
	stream := "East"
	repo := &mockReportRepo{
		attendanceRows: []models.ClassAttendanceSummaryRow{
			{ClassName: "Grade 4", Stream: &stream, TotalSessions: 2, TotalRecords: 20, PresentCount: 15},
		},
	}
	svc := newReportFixture(repo, nil)

	out, err := svc.ClassAttendanceSummary(context.Background(), adminClaims(), models.ReportQuery{Format: models.ReportFormatCSV})
	require.NoError(t, err)
	assert.Nil(t, out.Envelope)
	assert.Equal(t, "text/csv", out.ContentType)
	assert.True(t, strings.HasSuffix(out.FileName, ".csv"))

	body := string(out.Content)
	assert.Contains(t, body, "Class,Stream,Sessions,Records,Present,Attendance Rate")
	assert.Contains(t, body, "Grade 4,East,2,20,15,75.00%")
}

func TestReportPerformanceDetailsPDF(t *testing.T) {
	repo := &mockReportRepo{
		scoreRows: []models.StudentPerformanceDetailRow{
			{StudentName: "Student One", AdmissionNumber: "ADM001", ClassName: "Grade 4", SubjectName: "Mathematics",
				AssessmentName: "Midterm", AssessmentType: "exam", Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
				MaxScore: 100, Score: scorePtr(80)},
		},
	}
	svc := newReportFixture(repo, nil)

	out, err := svc.StudentPerformanceDetails(context.Background(), adminClaims(), models.ReportQuery{Format: models.ReportFormatPDF})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.True(t, strings.HasSuffix(out.FileName, ".pdf"))
	assert.NotEmpty(t, out.Content)
}

func TestReportUnsupportedFormat(t *testing.T) {
	svc := newReportFixture(&mockReportRepo{}, nil)

	_, err := svc.ClassAttendanceSummary(context.Background(), adminClaims(), models.ReportQuery{Format: "xlsx"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "unsupported report format, expected json, csv or pdf", appErr.Message)
}

func TestReportStudentProgress(t *testing.T) {
	repo := &mockReportRepo{
		totalDays:   20,
		presentDays: 18,
		subjects: []models.ProgressSubjectPerformance{
			{SubjectID: 10, SubjectName: "Mathematics", AssessmentCount: 3, AverageScore: scorePtr(60), MaxScore: 100},
		},
		recent: []models.ProgressRecentAssessment{
			{AssessmentID: 1, Name: "Midterm", Score: scorePtr(45), MaxScore: 50},
		},
	}
	svc := newReportFixture(repo, nil)

	report, err := svc.StudentProgress(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ADM001", report.Student.AdmissionNumber)
	assert.Equal(t, 90.0, report.Attendance.AttendanceRate)
	require.Len(t, report.SubjectPerformance, 1)
	require.NotNil(t, report.SubjectPerformance[0].AveragePercentage)
	assert.Equal(t, 60.0, *report.SubjectPerformance[0].AveragePercentage)
	require.Len(t, report.RecentAssessments, 1)
	require.NotNil(t, report.RecentAssessments[0].Percentage)
	assert.Equal(t, 90.0, *report.RecentAssessments[0].Percentage)
}

func TestReportStudentProgressUnknownStudent(t *testing.T) {
	svc := newReportFixture(&mockReportRepo{}, nil)

	_, err := svc.StudentProgress(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
