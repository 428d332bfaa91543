package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.Class, error)
	FindDetailByID(ctx context.Context, id int64) (*models.ClassDetail, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id int64) error
	CountStudents(ctx context.Context, id int64) (int, error)
	CountAssignments(ctx context.Context, id int64) (int, error)
}

type classStudentLister interface {
	ListByClass(ctx context.Context, classID int64) ([]models.Student, error)
}

type classAssignmentLister interface {
	ListByClass(ctx context.Context, classID int64) ([]models.TeacherSubjectDetail, error)
}

type classTeacherLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	RoleNames(ctx context.Context, userID int64) ([]string, error)
}

// ClassService manages classes and their composite views.
type ClassService struct {
	repo        classRepository
	students    classStudentLister
	assignments classAssignmentLister
	users       classTeacherLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, students classStudentLister, assignments classAssignmentLister, users classTeacherLookup, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, students: students, assignments: assignments, users: users, validator: validate, logger: logger}
}

// List returns classes matching the filter.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, total, nil
}

// Get returns the full class view with its students and subjects taught.
func (s *ClassService) Get(ctx context.Context, id int64) (*models.ClassFull, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	students, err := s.students.ListByClass(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class students")
	}
	subjects, err := s.assignments.ListByClass(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class subjects")
	}

	return &models.ClassFull{
		ClassDetail: *detail,
		Students:    students,
		Subjects:    subjects,
	}, nil
}

// Create stores a class. Name, stream and academic year are unique together.
func (s *ClassService) Create(ctx context.Context, req models.ClassCreateRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	if req.ClassTeacherID != nil {
		if err := s.checkClassTeacher(ctx, *req.ClassTeacherID); err != nil {
			return nil, err
		}
	}

	class := &models.Class{
		Name:           req.Name,
		Stream:         req.Stream,
		AcademicYear:   req.AcademicYear,
		ClassTeacherID: req.ClassTeacherID,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}

	detail, err := s.repo.FindDetailByID(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return detail, nil
}

// Update modifies mutable class fields.
func (s *ClassService) Update(ctx context.Context, id int64, req models.ClassUpdateRequest) (*models.ClassDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.Stream != nil {
		class.Stream = req.Stream
	}
	if req.AcademicYear != nil {
		class.AcademicYear = *req.AcademicYear
	}
	if req.ClassTeacherID != nil {
		if err := s.checkClassTeacher(ctx, *req.ClassTeacherID); err != nil {
			return nil, err
		}
		class.ClassTeacherID = req.ClassTeacherID
	}

	if err := s.repo.Update(ctx, class); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}

	detail, err := s.repo.FindDetailByID(ctx, class.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return detail, nil
}

// Delete removes a class unless students or assignments still reference it.
func (s *ClassService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	students, err := s.repo.CountStudents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count class students")
	}
	if students > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "class still has enrolled students")
	}

	assignments, err := s.repo.CountAssignments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count class assignments")
	}
	if assignments > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "class still has teacher assignments")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

// checkClassTeacher verifies the user exists and holds the teacher role.
func (s *ClassService) checkClassTeacher(ctx context.Context, teacherID int64) error {
	if _, err := s.users.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "class teacher does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class teacher")
	}
	roles, err := s.users.RoleNames(ctx, teacherID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class teacher roles")
	}
	for _, r := range roles {
		if r == models.RoleTeacher || r == models.RoleHeadteacher {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, "class teacher must hold the teacher role")
}
