package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

type mockPerformanceRepo struct {
	items   map[int64]*models.StudentPerformance
	nextID  int64
	byAsmt  []models.StudentPerformanceDetail
	deleted []int64
}

func (m *mockPerformanceRepo) List(ctx context.Context, filter models.PerformanceFilter) ([]models.StudentPerformanceDetail, int, error) {
	return nil, 0, nil
}

func (m *mockPerformanceRepo) FindByID(ctx context.Context, id int64) (*models.StudentPerformance, error) {
	if p, ok := m.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPerformanceRepo) FindDetailByID(ctx context.Context, id int64) (*models.StudentPerformanceDetail, error) {
	if p, ok := m.items[id]; ok {
		return &models.StudentPerformanceDetail{StudentPerformance: *p, MaxScore: 100}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPerformanceRepo) ListByStudent(ctx context.Context, studentID, subjectID int64, assessmentType string, isCBC *bool) ([]models.StudentPerformanceDetail, error) {
	return m.byAsmt, nil
}

func (m *mockPerformanceRepo) ListByAssessment(ctx context.Context, assessmentID int64) ([]models.StudentPerformanceDetail, error) {
	return m.byAsmt, nil
}

func (m *mockPerformanceRepo) Create(ctx context.Context, perf *models.StudentPerformance) error {
	if m.items == nil {
		m.items = make(map[int64]*models.StudentPerformance)
	}
	m.nextID++
	perf.ID = m.nextID
	cp := *perf
	m.items[perf.ID] = &cp
	return nil
}

func (m *mockPerformanceRepo) Update(ctx context.Context, perf *models.StudentPerformance) error {
	cp := *perf
	m.items[perf.ID] = &cp
	return nil
}

func (m *mockPerformanceRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

type mockAssessmentLookup struct {
	items   map[int64]*models.Assessment
	byClass []models.AssessmentDetail
}

func (m *mockAssessmentLookup) FindByID(ctx context.Context, id int64) (*models.Assessment, error) {
	if a, ok := m.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssessmentLookup) ListByClass(ctx context.Context, classID, subjectID int64) ([]models.AssessmentDetail, error) {
	return m.byClass, nil
}

func newPerformanceFixture(repo *mockPerformanceRepo) *PerformanceService {
	assessments := &mockAssessmentLookup{items: map[int64]*models.Assessment{
		1: {ID: 1, Name: "Midterm", AssessmentType: "exam", MaxScore: 100, SubjectID: 10, ClassID: 1},
	}}
	students := &mockStudentLookup{students: map[int64]*models.Student{
		1: {ID: 1, AdmissionNumber: "ADM001", FullName: "Student One", ClassID: classIDPtr(1)},
	}}
	return NewPerformanceService(repo, assessments, students, validator.New(), zap.NewNop())
}

func TestPerformanceCreate(t *testing.T) {
	repo := &mockPerformanceRepo{}
	svc := newPerformanceFixture(repo)

	perf, err := svc.Create(context.Background(), teacherClaims(100), models.PerformanceCreateRequest{
		StudentID:    1,
		AssessmentID: 1,
		Score:        scorePtr(85),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), perf.RecordedBy)
	require.NotNil(t, perf.Percentage)
	assert.Equal(t, 85.0, *perf.Percentage)
}

func TestPerformanceCreateScoreAboveMax(t *testing.T) {
	svc := newPerformanceFixture(&mockPerformanceRepo{})

	_, err := svc.Create(context.Background(), teacherClaims(100), models.PerformanceCreateRequest{
		StudentID:    1,
		AssessmentID: 1,
		Score:        scorePtr(120),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPerformanceCreateAsSomeoneElse(t *testing.T) {
	svc := newPerformanceFixture(&mockPerformanceRepo{})

	other := int64(999)
	_, err := svc.Create(context.Background(), teacherClaims(100), models.PerformanceCreateRequest{
		StudentID:    1,
		AssessmentID: 1,
		RecordedBy:   &other,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPerformanceCreateUnknownAssessment(t *testing.T) {
	svc := newPerformanceFixture(&mockPerformanceRepo{})

	_, err := svc.Create(context.Background(), teacherClaims(100), models.PerformanceCreateRequest{
		StudentID:    1,
		AssessmentID: 42,
	})
	require.Error(t, err)
	assert.Equal(t, "assessment does not exist", appErrors.FromError(err).Message)
}

func TestPerformanceUpdateOwnership(t *testing.T) {
	repo := &mockPerformanceRepo{
		items: map[int64]*models.StudentPerformance{
			5: {ID: 5, StudentID: 1, AssessmentID: 1, Score: scorePtr(60), RecordedBy: 100},
		},
	}
	svc := newPerformanceFixture(repo)

	_, err := svc.Update(context.Background(), teacherClaims(200), 5, models.PerformanceUpdateRequest{Score: scorePtr(70)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	perf, err := svc.Update(context.Background(), teacherClaims(100), 5, models.PerformanceUpdateRequest{Score: scorePtr(70)})
	require.NoError(t, err)
	assert.Equal(t, 70.0, *perf.Score)
}

func TestPerformanceUpdateScoreAboveMax(t *testing.T) {
	repo := &mockPerformanceRepo{
		items: map[int64]*models.StudentPerformance{
			5: {ID: 5, StudentID: 1, AssessmentID: 1, RecordedBy: 100},
		},
	}
	svc := newPerformanceFixture(repo)

	_, err := svc.Update(context.Background(), teacherClaims(100), 5, models.PerformanceUpdateRequest{Score: scorePtr(150)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPerformanceDeleteAdminOverride(t *testing.T) {
	repo := &mockPerformanceRepo{
		items: map[int64]*models.StudentPerformance{
			5: {ID: 5, RecordedBy: 100},
		},
	}
	svc := newPerformanceFixture(repo)

	admin := &models.JWTClaims{UserID: 1, Roles: []string{models.RoleAdmin}}
	require.NoError(t, svc.Delete(context.Background(), admin, 5))
	assert.Equal(t, []int64{5}, repo.deleted)
}

func TestPerformanceAssessmentResults(t *testing.T) {
	repo := &mockPerformanceRepo{
		byAsmt: []models.StudentPerformanceDetail{
			{StudentPerformance: models.StudentPerformance{Score: scorePtr(80)}, MaxScore: 100},
			{StudentPerformance: models.StudentPerformance{Score: scorePtr(40)}, MaxScore: 100},
		},
	}
	svc := newPerformanceFixture(repo)

	listing, err := svc.AssessmentResults(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, listing.Records, 2)
	require.NotNil(t, listing.Statistics)
	assert.Equal(t, 60.0, listing.Statistics.Average)
	require.NotNil(t, listing.Records[0].Percentage)
	assert.Equal(t, 80.0, *listing.Records[0].Percentage)
}

func TestPerformanceAssessmentResultsUnknown(t *testing.T) {
	svc := newPerformanceFixture(&mockPerformanceRepo{})

	_, err := svc.AssessmentResults(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPerformanceClassSummary(t *testing.T) {
	repo := &mockPerformanceRepo{
		byAsmt: []models.StudentPerformanceDetail{
			{StudentPerformance: models.StudentPerformance{Score: scorePtr(50)}, MaxScore: 100},
		},
	}
	svc := newPerformanceFixture(repo)
	svc.assessments.(*mockAssessmentLookup).byClass = []models.AssessmentDetail{
		{Assessment: models.Assessment{ID: 1, Name: "Midterm", MaxScore: 100}},
	}

	summaries, err := svc.ClassSummary(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.NotNil(t, summaries[0].Statistics)
	assert.Equal(t, 50.0, summaries[0].Statistics.Average)
}
