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

type mockStudentRepo struct {
	items   map[int64]*models.Student
	nextID  int64
	bulk    []models.Student
	records map[int64]int
	deleted []int64
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindDetailByID(ctx context.Context, id int64) (*models.StudentDetail, error) {
	if s, ok := m.items[id]; ok {
		return &models.StudentDetail{Student: *s}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ListByClass(ctx context.Context, classID int64) ([]models.Student, error) {
	return nil, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.items == nil {
		m.items = make(map[int64]*models.Student)
	}
	for _, existing := range m.items {
		if existing.AdmissionNumber == student.AdmissionNumber {
			return appErrors.Clone(appErrors.ErrConflict, "admission number already exists")
		}
	}
	m.nextID++
	student.ID = m.nextID
	cp := *student
	m.items[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) BulkCreate(ctx context.Context, students []models.Student) error {
	m.bulk = students
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	cp := *student
	m.items[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockStudentRepo) CountRecords(ctx context.Context, id int64) (int, error) {
	return m.records[id], nil
}

func newStudentFixture(repo *mockStudentRepo) *StudentService {
	classes := &mockClassLookup{ids: map[int64]bool{1: true}}
	return NewStudentService(repo, classes, validator.New(), zap.NewNop())
}

func TestStudentCreate(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newStudentFixture(repo)

	dob := "2012-05-14"
	student, err := svc.Create(context.Background(), models.StudentCreateRequest{
		AdmissionNumber: "ADM001",
		FullName:        "Student One",
		DateOfBirth:     &dob,
		ClassID:         classIDPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "ADM001", student.AdmissionNumber)
	require.NotNil(t, student.DateOfBirth)
	assert.Equal(t, 2012, student.DateOfBirth.Year())
}

func TestStudentCreateDuplicateAdmission(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newStudentFixture(repo)

	req := models.StudentCreateRequest{AdmissionNumber: "ADM001", FullName: "Student One"}
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentCreateUnknownClass(t *testing.T) {
	svc := newStudentFixture(&mockStudentRepo{})

	_, err := svc.Create(context.Background(), models.StudentCreateRequest{
		AdmissionNumber: "ADM001",
		FullName:        "Student One",
		ClassID:         classIDPtr(42),
	})
	require.Error(t, err)
	assert.Equal(t, "class does not exist", appErrors.FromError(err).Message)
}

func TestStudentBulkCreateDuplicateRowAborts(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newStudentFixture(repo)

	_, err := svc.BulkCreate(context.Background(), models.StudentBulkCreateRequest{
		Students: []models.StudentCreateRequest{
			{AdmissionNumber: "ADM001", FullName: "Student One"},
			{AdmissionNumber: "ADM001", FullName: "Student Two"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.bulk)
}

func TestStudentBulkCreate(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newStudentFixture(repo)

	result, err := svc.BulkCreate(context.Background(), models.StudentBulkCreateRequest{
		Students: []models.StudentCreateRequest{
			{AdmissionNumber: "ADM001", FullName: "Student One", ClassID: classIDPtr(1)},
			{AdmissionNumber: "ADM002", FullName: "Student Two"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	assert.Len(t, repo.bulk, 2)
}

func TestStudentUpdateClassTransfer(t *testing.T) {
	repo := &mockStudentRepo{
		items: map[int64]*models.Student{
			3: {ID: 3, AdmissionNumber: "ADM003", FullName: "Student Three"},
		},
	}
	svc := newStudentFixture(repo)

	student, err := svc.Update(context.Background(), 3, models.StudentUpdateRequest{ClassID: classIDPtr(1)})
	require.NoError(t, err)
	require.NotNil(t, student.ClassID)
	assert.Equal(t, int64(1), *student.ClassID)

	_, err = svc.Update(context.Background(), 3, models.StudentUpdateRequest{ClassID: classIDPtr(42)})
	require.Error(t, err)
	assert.Equal(t, "class does not exist", appErrors.FromError(err).Message)
}

func TestStudentDeleteGuardedByRecords(t *testing.T) {
	repo := &mockStudentRepo{
		items:   map[int64]*models.Student{3: {ID: 3}},
		records: map[int64]int{3: 12},
	}
	svc := newStudentFixture(repo)

	err := svc.Delete(context.Background(), 3)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.records[3] = 0
	require.NoError(t, svc.Delete(context.Background(), 3))
	assert.Equal(t, []int64{3}, repo.deleted)
}
