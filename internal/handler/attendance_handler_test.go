package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimu-labs/elimu-api/internal/middleware"
	"github.com/elimu-labs/elimu-api/internal/models"
	"github.com/elimu-labs/elimu-api/internal/service"
)

type attendanceRepoStub struct {
	daily []models.DailyAttendanceBlock
	wide  *models.DailyAttendanceBlock
}

func (m *attendanceRepoStub) List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error) {
	return nil, 0, nil
}

func (m *attendanceRepoStub) FindByID(ctx context.Context, id int64) (*models.AttendanceSession, error) {
	return nil, sql.ErrNoRows
}

func (m *attendanceRepoStub) FindDetailByID(ctx context.Context, id int64) (*models.AttendanceSessionDetail, error) {
	return nil, sql.ErrNoRows
}

func (m *attendanceRepoStub) CreateSession(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) error {
	return nil
}

func (m *attendanceRepoStub) UpdateSession(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) error {
	return nil
}

func (m *attendanceRepoStub) DeleteSession(ctx context.Context, id int64) error {
	return nil
}

func (m *attendanceRepoStub) StudentStatusCounts(ctx context.Context, studentID int64, from, to *time.Time) (models.AttendanceStatistics, error) {
	return models.AttendanceStatistics{}, nil
}

func (m *attendanceRepoStub) ListStudentRecords(ctx context.Context, studentID int64, from, to *time.Time) ([]models.AttendanceRecordDetail, error) {
	return nil, nil
}

func (m *attendanceRepoStub) DailyClassCounts(ctx context.Context, date time.Time) ([]models.DailyAttendanceBlock, error) {
	return m.daily, nil
}

func (m *attendanceRepoStub) DailySchoolWideCounts(ctx context.Context, date time.Time) (*models.DailyAttendanceBlock, error) {
	return m.wide, nil
}

type studentLookupStub struct{}

func (studentLookupStub) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	return &models.Student{ID: id, AdmissionNumber: "ADM001"}, nil
}

func dailySummaryRouter(repo *attendanceRepoStub, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewAttendanceService(repo, studentLookupStub{}, classLookupStub{}, nil, nil)
	h := NewAttendanceHandler(svc, nil)

	router := gin.New()
	router.GET("/attendance/daily-summary",
		func(c *gin.Context) { c.Set(middleware.ContextUserKey, claims) },
		middleware.RequireRoles(models.RoleAdmin, models.RoleHeadteacher),
		h.DailySummary)
	return router
}

func TestAttendanceDailySummaryManagersOnly(t *testing.T) {
	classID := int64(1)
	repo := &attendanceRepoStub{
		daily: []models.DailyAttendanceBlock{
			{ClassID: &classID, Sessions: 1, TotalRecords: 20, Present: 18},
		},
	}

	teacher := &models.JWTClaims{UserID: 7, Roles: []string{models.RoleTeacher}}
	w := httptest.NewRecorder()
	dailySummaryRouter(repo, teacher).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance/daily-summary", nil))
	require.Equal(t, http.StatusForbidden, w.Code)

	headteacher := &models.JWTClaims{UserID: 2, Roles: []string{models.RoleHeadteacher}}
	w = httptest.NewRecorder()
	dailySummaryRouter(repo, headteacher).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attendance/daily-summary", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data models.DailyAttendanceSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Classes, 1)
	assert.Equal(t, 90.0, body.Data.Classes[0].AttendanceRate)
}
