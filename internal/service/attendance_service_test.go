package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

type mockAttendanceRepo struct {
	sessions map[int64]*models.AttendanceSession
	details  map[int64]*models.AttendanceSessionDetail
	nextID   int64
	created  []models.AttendanceRecord
	updated  []models.AttendanceRecord
	deleted  []int64
	stats    models.AttendanceStatistics
	records  []models.AttendanceRecordDetail
	daily    []models.DailyAttendanceBlock
	wide     *models.DailyAttendanceBlock
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error) {
	return nil, 0, nil
}

func (m *mockAttendanceRepo) FindByID(ctx context.Context, id int64) (*models.AttendanceSession, error) {
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceRepo) FindDetailByID(ctx context.Context, id int64) (*models.AttendanceSessionDetail, error) {
	if d, ok := m.details[id]; ok {
		cp := *d
		return &cp, nil
	}
	if s, ok := m.sessions[id]; ok {
		return &models.AttendanceSessionDetail{AttendanceSession: *s}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceRepo) CreateSession(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) error {
	if m.sessions == nil {
		m.sessions = make(map[int64]*models.AttendanceSession)
	}
	m.nextID++
	session.ID = m.nextID
	cp := *session
	m.sessions[session.ID] = &cp
	m.created = records
	return nil
}

func (m *mockAttendanceRepo) UpdateSession(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) error {
	m.updated = records
	return nil
}

func (m *mockAttendanceRepo) DeleteSession(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockAttendanceRepo) StudentStatusCounts(ctx context.Context, studentID int64, from, to *time.Time) (models.AttendanceStatistics, error) {
	return m.stats, nil
}

func (m *mockAttendanceRepo) ListStudentRecords(ctx context.Context, studentID int64, from, to *time.Time) ([]models.AttendanceRecordDetail, error) {
	return m.records, nil
}

func (m *mockAttendanceRepo) DailyClassCounts(ctx context.Context, date time.Time) ([]models.DailyAttendanceBlock, error) {
	return m.daily, nil
}

func (m *mockAttendanceRepo) DailySchoolWideCounts(ctx context.Context, date time.Time) (*models.DailyAttendanceBlock, error) {
	return m.wide, nil
}

type mockStudentLookup struct {
	students map[int64]*models.Student
}

func (m *mockStudentLookup) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func classIDPtr(v int64) *int64 { return &v }

func newAttendanceFixture(repo *mockAttendanceRepo) *AttendanceService {
	students := &mockStudentLookup{students: map[int64]*models.Student{
		1: {ID: 1, AdmissionNumber: "ADM001", FullName: "Student One", ClassID: classIDPtr(1)},
		2: {ID: 2, AdmissionNumber: "ADM002", FullName: "Student Two", ClassID: classIDPtr(1)},
		3: {ID: 3, AdmissionNumber: "ADM003", FullName: "Student Three", ClassID: classIDPtr(2)},
	}}
	classes := &mockClassLookup{ids: map[int64]bool{1: true, 2: true}}
	return NewAttendanceService(repo, students, classes, validator.New(), zap.NewNop())
}

func teacherClaims(userID int64) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Roles: []string{models.RoleTeacher}}
}

func TestAttendanceCreateClassSession(t *testing.T) {
	repo := &mockAttendanceRepo{}
	svc := newAttendanceFixture(repo)

	session, err := svc.Create(context.Background(), teacherClaims(100), models.AttendanceSessionCreateRequest{
		Date:    "2026-03-02",
		ClassID: classIDPtr(1),
		Records: []models.AttendanceRecordInput{
			{StudentID: 1, Status: "present"},
			{StudentID: 2, Status: "absent"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), session.RecordedBy)
	assert.Len(t, repo.created, 2)
	assert.Equal(t, models.AttendanceStatusAbsent, repo.created[1].Status)
}

func TestAttendanceCreateSchoolWideRejectsClass(t *testing.T) {
	svc := newAttendanceFixture(&mockAttendanceRepo{})

	_, err := svc.Create(context.Background(), teacherClaims(100), models.AttendanceSessionCreateRequest{
		Date:         "2026-03-02",
		IsSchoolWide: true,
		ClassID:      classIDPtr(1),
		Records:      []models.AttendanceRecordInput{{StudentID: 1, Status: "present"}},
	})
	require.Error(t, err)
	assert.Equal(t, "school-wide session cannot carry a class", appErrors.FromError(err).Message)
}

func TestAttendanceCreateClassSessionRequiresClass(t *testing.T) {
	svc := newAttendanceFixture(&mockAttendanceRepo{})

	_, err := svc.Create(context.Background(), teacherClaims(100), models.AttendanceSessionCreateRequest{
		Date:    "2026-03-02",
		Records: []models.AttendanceRecordInput{{StudentID: 1, Status: "present"}},
	})
	require.Error(t, err)
	assert.Equal(t, "class session requires class_id", appErrors.FromError(err).Message)
}

func TestAttendanceCreateDuplicateStudent(t *testing.T) {
	svc := newAttendanceFixture(&mockAttendanceRepo{})

	_, err := svc.Create(context.Background(), teacherClaims(100), models.AttendanceSessionCreateRequest{
		Date:    "2026-03-02",
		ClassID: classIDPtr(1),
		Records: []models.AttendanceRecordInput{
			{StudentID: 1, Status: "present"},
			{StudentID: 1, Status: "late"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceCreateStudentOutsideClass(t *testing.T) {
	svc := newAttendanceFixture(&mockAttendanceRepo{})

	_, err := svc.Create(context.Background(), teacherClaims(100), models.AttendanceSessionCreateRequest{
		Date:    "2026-03-02",
		ClassID: classIDPtr(1),
		Records: []models.AttendanceRecordInput{{StudentID: 3, Status: "present"}},
	})
	require.Error(t, err)
	assert.Equal(t, "student 3 does not belong to the session class", appErrors.FromError(err).Message)
}

func TestAttendanceUpdateOwnershipEnforced(t *testing.T) {
	repo := &mockAttendanceRepo{
		sessions: map[int64]*models.AttendanceSession{
			5: {ID: 5, ClassID: classIDPtr(1), RecordedBy: 100},
		},
	}
	svc := newAttendanceFixture(repo)

	req := models.AttendanceSessionUpdateRequest{
		Records: []models.AttendanceRecordInput{{StudentID: 1, Status: "late"}},
	}

	_, err := svc.Update(context.Background(), teacherClaims(200), 5, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), teacherClaims(100), 5, req)
	require.NoError(t, err)
	assert.Len(t, repo.updated, 1)
}

func TestAttendanceUpdateHeadteacherOverridesOwnership(t *testing.T) {
	repo := &mockAttendanceRepo{
		sessions: map[int64]*models.AttendanceSession{
			5: {ID: 5, ClassID: classIDPtr(1), RecordedBy: 100},
		},
	}
	svc := newAttendanceFixture(repo)

	claims := &models.JWTClaims{UserID: 200, Roles: []string{models.RoleHeadteacher}}
	_, err := svc.Update(context.Background(), claims, 5, models.AttendanceSessionUpdateRequest{
		Records: []models.AttendanceRecordInput{{StudentID: 1, Status: "excused"}},
	})
	require.NoError(t, err)
}

func TestAttendanceDeleteOwnershipEnforced(t *testing.T) {
	repo := &mockAttendanceRepo{
		sessions: map[int64]*models.AttendanceSession{
			5: {ID: 5, RecordedBy: 100},
		},
	}
	svc := newAttendanceFixture(repo)

	err := svc.Delete(context.Background(), teacherClaims(200), 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), teacherClaims(100), 5))
	assert.Equal(t, []int64{5}, repo.deleted)
}

func TestAttendanceStudentHistory(t *testing.T) {
	repo := &mockAttendanceRepo{
		stats: models.AttendanceStatistics{TotalRecords: 10, Present: 8, Absent: 2},
		records: []models.AttendanceRecordDetail{
			{AttendanceRecord: models.AttendanceRecord{StudentID: 1, Status: models.AttendanceStatusPresent}},
		},
	}
	svc := newAttendanceFixture(repo)

	history, err := svc.StudentHistory(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Len(t, history.Records, 1)
	assert.Equal(t, 80.0, history.Statistics.Rate)
}

func TestAttendanceStudentHistoryUnknownStudent(t *testing.T) {
	svc := newAttendanceFixture(&mockAttendanceRepo{})

	_, err := svc.StudentHistory(context.Background(), 99, nil, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceDailySummary(t *testing.T) {
	repo := &mockAttendanceRepo{
		daily: []models.DailyAttendanceBlock{
			{ClassID: classIDPtr(1), Sessions: 2, TotalRecords: 30, Present: 27},
		},
		wide: &models.DailyAttendanceBlock{Sessions: 1, TotalRecords: 200, Present: 150},
	}
	svc := newAttendanceFixture(repo)

	summary, err := svc.DailySummary(context.Background(), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", summary.Date)
	require.Len(t, summary.Classes, 1)
	assert.Equal(t, 90.0, summary.Classes[0].AttendanceRate)
	require.NotNil(t, summary.SchoolWide)
	assert.Equal(t, 75.0, summary.SchoolWide.AttendanceRate)
}
