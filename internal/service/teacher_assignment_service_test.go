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

type mockAssignmentRepo struct {
	items   map[int64]*models.TeacherSubjectDetail
	nextID  int64
	bulk    []models.TeacherSubject
	deleted []int64
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter models.TeacherSubjectFilter) ([]models.TeacherSubjectDetail, int, error) {
	var out []models.TeacherSubjectDetail
	for _, a := range m.items {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id int64) (*models.TeacherSubjectDetail, error) {
	if a, ok := m.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) ListByClass(ctx context.Context, classID int64) ([]models.TeacherSubjectDetail, error) {
	var out []models.TeacherSubjectDetail
	for _, a := range m.items {
		if a.ClassID == classID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]models.TeacherSubjectDetail, error) {
	var out []models.TeacherSubjectDetail
	for _, a := range m.items {
		if a.TeacherID == teacherID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.TeacherSubject) error {
	if m.items == nil {
		m.items = make(map[int64]*models.TeacherSubjectDetail)
	}
	for _, existing := range m.items {
		if existing.TeacherID == assignment.TeacherID &&
			existing.SubjectID == assignment.SubjectID &&
			existing.ClassID == assignment.ClassID {
			return appErrors.Clone(appErrors.ErrConflict, "assignment already exists")
		}
	}
	m.nextID++
	assignment.ID = m.nextID
	m.items[assignment.ID] = &models.TeacherSubjectDetail{TeacherSubject: *assignment}
	return nil
}

func (m *mockAssignmentRepo) BulkCreate(ctx context.Context, assignments []models.TeacherSubject) error {
	m.bulk = assignments
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func newAssignmentFixture(repo *mockAssignmentRepo) *TeacherAssignmentService {
	users := &mockTeacherDirectory{
		users: map[int64]*models.User{
			100: {ID: 100, FullName: "Teacher One"},
			200: {ID: 200, FullName: "Clerk"},
		},
		roles: map[int64][]string{
			100: {models.RoleTeacher},
			200: {"clerk"},
		},
	}
	subjects := &mockSubjectLookup{ids: map[int64]bool{10: true, 11: true}}
	classes := &mockClassLookup{ids: map[int64]bool{1: true}}
	return NewTeacherAssignmentService(repo, users, subjects, classes, validator.New(), zap.NewNop())
}

func TestAssignmentCreate(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentFixture(repo)

	assignment, err := svc.Create(context.Background(), models.TeacherSubjectCreateRequest{
		TeacherID: 100,
		SubjectID: 10,
		ClassID:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), assignment.TeacherID)
	assert.Equal(t, int64(10), assignment.SubjectID)
}

func TestAssignmentCreateDuplicateTriple(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentFixture(repo)

	req := models.TeacherSubjectCreateRequest{TeacherID: 100, SubjectID: 10, ClassID: 1}
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAssignmentCreateNonTeacher(t *testing.T) {
	svc := newAssignmentFixture(&mockAssignmentRepo{})

	_, err := svc.Create(context.Background(), models.TeacherSubjectCreateRequest{
		TeacherID: 200,
		SubjectID: 10,
		ClassID:   1,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "assigned user must hold the teacher role", appErr.Message)
}

func TestAssignmentCreateUnknownSubject(t *testing.T) {
	svc := newAssignmentFixture(&mockAssignmentRepo{})

	_, err := svc.Create(context.Background(), models.TeacherSubjectCreateRequest{
		TeacherID: 100,
		SubjectID: 42,
		ClassID:   1,
	})
	require.Error(t, err)
	assert.Equal(t, "subject does not exist", appErrors.FromError(err).Message)
}

func TestAssignmentBulkCreate(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentFixture(repo)

	created, err := svc.BulkCreate(context.Background(), models.TeacherSubjectBulkCreateRequest{
		Assignments: []models.TeacherSubjectCreateRequest{
			{TeacherID: 100, SubjectID: 10, ClassID: 1},
			{TeacherID: 100, SubjectID: 11, ClassID: 1},
		},
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Len(t, repo.bulk, 2)
}

func TestAssignmentBulkCreateDuplicateRow(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentFixture(repo)

	_, err := svc.BulkCreate(context.Background(), models.TeacherSubjectBulkCreateRequest{
		Assignments: []models.TeacherSubjectCreateRequest{
			{TeacherID: 100, SubjectID: 10, ClassID: 1},
			{TeacherID: 100, SubjectID: 10, ClassID: 1},
		},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "row 2: duplicate assignment", appErr.Message)
	assert.Empty(t, repo.bulk)
}

func TestAssignmentListByTeacherUnknown(t *testing.T) {
	svc := newAssignmentFixture(&mockAssignmentRepo{})

	_, err := svc.ListByTeacher(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAssignmentDelete(t *testing.T) {
	repo := &mockAssignmentRepo{
		items: map[int64]*models.TeacherSubjectDetail{
			5: {TeacherSubject: models.TeacherSubject{ID: 5, TeacherID: 100, SubjectID: 10, ClassID: 1}},
		},
	}
	svc := newAssignmentFixture(repo)

	require.NoError(t, svc.Delete(context.Background(), 5))
	assert.Equal(t, []int64{5}, repo.deleted)

	err := svc.Delete(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
