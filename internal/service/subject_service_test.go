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

type mockSubjectRepo struct {
	items       map[int64]*models.Subject
	nextID      int64
	assignments map[int64]int
	deleted     []int64
}

func (m *mockSubjectRepo) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	var out []models.Subject
	for _, s := range m.items {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if m.items == nil {
		m.items = make(map[int64]*models.Subject)
	}
	for _, existing := range m.items {
		if existing.Code == subject.Code {
			return appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
		}
	}
	m.nextID++
	subject.ID = m.nextID
	cp := *subject
	m.items[subject.ID] = &cp
	return nil
}

func (m *mockSubjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	cp := *subject
	m.items[subject.ID] = &cp
	return nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockSubjectRepo) CountAssignments(ctx context.Context, id int64) (int, error) {
	return m.assignments[id], nil
}

func TestSubjectCreate(t *testing.T) {
	repo := &mockSubjectRepo{}
	svc := NewSubjectService(repo, validator.New(), zap.NewNop())

	subject, err := svc.Create(context.Background(), models.SubjectCreateRequest{
		Name:   "Mathematics",
		Code:   "MATH",
		IsCore: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "MATH", subject.Code)
	assert.True(t, subject.IsCore)
}

func TestSubjectCreateDuplicateCode(t *testing.T) {
	repo := &mockSubjectRepo{}
	svc := NewSubjectService(repo, validator.New(), zap.NewNop())

	req := models.SubjectCreateRequest{Name: "Mathematics", Code: "MATH"}
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubjectCreateMissingCode(t *testing.T) {
	svc := NewSubjectService(&mockSubjectRepo{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.SubjectCreateRequest{Name: "Mathematics"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubjectUpdate(t *testing.T) {
	repo := &mockSubjectRepo{
		items: map[int64]*models.Subject{1: {ID: 1, Name: "Maths", Code: "MATH"}},
	}
	svc := NewSubjectService(repo, validator.New(), zap.NewNop())

	name := "Mathematics"
	core := true
	subject, err := svc.Update(context.Background(), 1, models.SubjectUpdateRequest{Name: &name, IsCore: &core})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", subject.Name)
	assert.Equal(t, "MATH", subject.Code)
	assert.True(t, subject.IsCore)
}

func TestSubjectUpdateNotFound(t *testing.T) {
	svc := NewSubjectService(&mockSubjectRepo{}, validator.New(), zap.NewNop())

	name := "Mathematics"
	_, err := svc.Update(context.Background(), 42, models.SubjectUpdateRequest{Name: &name})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectDeleteGuardedByAssignments(t *testing.T) {
	repo := &mockSubjectRepo{
		items:       map[int64]*models.Subject{1: {ID: 1, Code: "MATH"}},
		assignments: map[int64]int{1: 4},
	}
	svc := NewSubjectService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), 1)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "subject still has teacher assignments", appErr.Message)

	repo.assignments[1] = 0
	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.Equal(t, []int64{1}, repo.deleted)
}
