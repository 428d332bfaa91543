package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

type assignmentRepository interface {
	List(ctx context.Context, filter models.TeacherSubjectFilter) ([]models.TeacherSubjectDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.TeacherSubjectDetail, error)
	ListByClass(ctx context.Context, classID int64) ([]models.TeacherSubjectDetail, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.TeacherSubjectDetail, error)
	Create(ctx context.Context, assignment *models.TeacherSubject) error
	BulkCreate(ctx context.Context, assignments []models.TeacherSubject) error
	Delete(ctx context.Context, id int64) error
}

type assignmentTeacherLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	RoleNames(ctx context.Context, userID int64) ([]string, error)
}

type assignmentSubjectLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

type assignmentClassLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Class, error)
}

// TeacherAssignmentService manages which teacher teaches which subject in
// which class.
type TeacherAssignmentService struct {
	repo      assignmentRepository
	users     assignmentTeacherLookup
	subjects  assignmentSubjectLookup
	classes   assignmentClassLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherAssignmentService constructs a TeacherAssignmentService.
func NewTeacherAssignmentService(repo assignmentRepository, users assignmentTeacherLookup, subjects assignmentSubjectLookup, classes assignmentClassLookup, validate *validator.Validate, logger *zap.Logger) *TeacherAssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherAssignmentService{repo: repo, users: users, subjects: subjects, classes: classes, validator: validate, logger: logger}
}

// List returns assignments matching the filter.
func (s *TeacherAssignmentService) List(ctx context.Context, filter models.TeacherSubjectFilter) ([]models.TeacherSubjectDetail, int, error) {
	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, total, nil
}

// Get loads one assignment with display names.
func (s *TeacherAssignmentService) Get(ctx context.Context, id int64) (*models.TeacherSubjectDetail, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// ListByTeacher returns everything one teacher teaches.
func (s *TeacherAssignmentService) ListByTeacher(ctx context.Context, teacherID int64) ([]models.TeacherSubjectDetail, error) {
	if _, err := s.users.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	assignments, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher assignments")
	}
	return assignments, nil
}

// ListByClass returns the subjects taught in one class.
func (s *TeacherAssignmentService) ListByClass(ctx context.Context, classID int64) ([]models.TeacherSubjectDetail, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	assignments, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class assignments")
	}
	return assignments, nil
}

// Create assigns a teacher to a subject in a class. The triple is unique.
func (s *TeacherAssignmentService) Create(ctx context.Context, req models.TeacherSubjectCreateRequest) (*models.TeacherSubjectDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}

	assignment := &models.TeacherSubject{
		TeacherID: req.TeacherID,
		SubjectID: req.SubjectID,
		ClassID:   req.ClassID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	return s.Get(ctx, assignment.ID)
}

// BulkCreate assigns many teachers atomically. Any invalid row aborts the
// whole batch.
func (s *TeacherAssignmentService) BulkCreate(ctx context.Context, req models.TeacherSubjectBulkCreateRequest) ([]models.TeacherSubject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk assignment payload")
	}

	assignments := make([]models.TeacherSubject, 0, len(req.Assignments))
	seen := make(map[models.TeacherSubjectCreateRequest]bool, len(req.Assignments))
	for i, in := range req.Assignments {
		if seen[in] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("row %d: duplicate assignment", i+1))
		}
		seen[in] = true

		if err := s.checkReferences(ctx, in); err != nil {
			return nil, err
		}
		assignments = append(assignments, models.TeacherSubject{
			TeacherID: in.TeacherID,
			SubjectID: in.SubjectID,
			ClassID:   in.ClassID,
		})
	}

	if err := s.repo.BulkCreate(ctx, assignments); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk create assignments")
	}
	return assignments, nil
}

// Delete removes an assignment.
func (s *TeacherAssignmentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

// checkReferences verifies the teacher, subject and class all exist and that
// the user holds the teacher role.
func (s *TeacherAssignmentService) checkReferences(ctx context.Context, req models.TeacherSubjectCreateRequest) error {
	if _, err := s.users.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "teacher does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	roles, err := s.users.RoleNames(ctx, req.TeacherID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher roles")
	}
	isTeacher := false
	for _, r := range roles {
		if r == models.RoleTeacher || r == models.RoleHeadteacher {
			isTeacher = true
			break
		}
	}
	if !isTeacher {
		return appErrors.Clone(appErrors.ErrValidation, "assigned user must hold the teacher role")
	}

	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "subject does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "class does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return nil
}
