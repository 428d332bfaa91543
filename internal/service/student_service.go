package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindDetailByID(ctx context.Context, id int64) (*models.StudentDetail, error)
	ListByClass(ctx context.Context, classID int64) ([]models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	BulkCreate(ctx context.Context, students []models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
	CountRecords(ctx context.Context, id int64) (int, error)
}

type studentClassLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Class, error)
}

// StudentService manages student enrolment records.
type StudentService struct {
	repo      studentRepository
	classes   studentClassLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, classes studentClassLookup, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Get loads one student with class information.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.StudentDetail, error) {
	student, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create enrols a student. Admission numbers are unique school-wide.
func (s *StudentService) Create(ctx context.Context, req models.StudentCreateRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.buildStudent(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, student); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	return s.Get(ctx, student.ID)
}

// BulkCreate enrols many students atomically. Any invalid row aborts the
// whole batch.
func (s *StudentService) BulkCreate(ctx context.Context, req models.StudentBulkCreateRequest) (*models.StudentBulkCreateResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk student payload")
	}

	students := make([]models.Student, 0, len(req.Students))
	seen := make(map[string]bool, len(req.Students))
	for i, in := range req.Students {
		if seen[in.AdmissionNumber] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("row %d: duplicate admission number %s", i+1, in.AdmissionNumber))
		}
		seen[in.AdmissionNumber] = true

		student, err := s.buildStudent(ctx, in)
		if err != nil {
			return nil, err
		}
		students = append(students, *student)
	}

	if err := s.repo.BulkCreate(ctx, students); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk create students")
	}

	return &models.StudentBulkCreateResult{Created: students}, nil
}

// Update modifies mutable student fields, including class transfer.
func (s *StudentService) Update(ctx context.Context, id int64, req models.StudentUpdateRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if req.FullName != nil {
		student.FullName = *req.FullName
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date_of_birth format, expected YYYY-MM-DD")
		}
		student.DateOfBirth = &dob
	}
	if req.Gender != nil {
		student.Gender = req.Gender
	}
	if req.ParentName != nil {
		student.ParentName = req.ParentName
	}
	if req.ParentPhone != nil {
		student.ParentPhone = req.ParentPhone
	}
	if req.Address != nil {
		student.Address = req.Address
	}
	if req.ClassID != nil {
		if err := s.checkClass(ctx, *req.ClassID); err != nil {
			return nil, err
		}
		student.ClassID = req.ClassID
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	return s.Get(ctx, student.ID)
}

// Delete removes a student unless attendance or performance rows exist.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	count, err := s.repo.CountRecords(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count student records")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "student has attendance or performance records")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

func (s *StudentService) buildStudent(ctx context.Context, req models.StudentCreateRequest) (*models.Student, error) {
	student := &models.Student{
		AdmissionNumber: req.AdmissionNumber,
		FullName:        req.FullName,
		Gender:          req.Gender,
		ParentName:      req.ParentName,
		ParentPhone:     req.ParentPhone,
		Address:         req.Address,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date_of_birth format, expected YYYY-MM-DD")
		}
		student.DateOfBirth = &dob
	}
	if req.ClassID != nil {
		if err := s.checkClass(ctx, *req.ClassID); err != nil {
			return nil, err
		}
		student.ClassID = req.ClassID
	}
	return student, nil
}

func (s *StudentService) checkClass(ctx context.Context, classID int64) error {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "class does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return nil
}
