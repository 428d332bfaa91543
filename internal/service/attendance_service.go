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
	"github.com/elimu-labs/elimu-api/internal/policy"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.AttendanceSession, error)
	FindDetailByID(ctx context.Context, id int64) (*models.AttendanceSessionDetail, error)
	CreateSession(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) error
	UpdateSession(ctx context.Context, session *models.AttendanceSession, records []models.AttendanceRecord) error
	DeleteSession(ctx context.Context, id int64) error
	StudentStatusCounts(ctx context.Context, studentID int64, from, to *time.Time) (models.AttendanceStatistics, error)
	ListStudentRecords(ctx context.Context, studentID int64, from, to *time.Time) ([]models.AttendanceRecordDetail, error)
	DailyClassCounts(ctx context.Context, date time.Time) ([]models.DailyAttendanceBlock, error)
	DailySchoolWideCounts(ctx context.Context, date time.Time) (*models.DailyAttendanceBlock, error)
}

type attendanceStudentLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type attendanceClassLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Class, error)
}

// AttendanceService manages attendance sessions and derived statistics.
type AttendanceService struct {
	repo      attendanceRepository
	students  attendanceStudentLookup
	classes   attendanceClassLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo attendanceRepository, students attendanceStudentLookup, classes attendanceClassLookup, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{repo: repo, students: students, classes: classes, validator: validate, logger: logger}
}

// List returns sessions matching the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error) {
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance sessions")
	}
	return sessions, total, nil
}

// Get loads one session with its records.
func (s *AttendanceService) Get(ctx context.Context, id int64) (*models.AttendanceSessionDetail, error) {
	session, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance session")
	}
	return session, nil
}

// Create records a session and all of its student records atomically. A
// class session requires class_id; a school-wide session forbids it.
func (s *AttendanceService) Create(ctx context.Context, claims *models.JWTClaims, req models.AttendanceSessionCreateRequest) (*models.AttendanceSessionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	if req.IsSchoolWide {
		if req.ClassID != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "school-wide session cannot carry a class")
		}
	} else {
		if req.ClassID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class session requires class_id")
		}
		if _, err := s.classes.FindByID(ctx, *req.ClassID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "class does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
	}

	records, err := s.buildRecords(ctx, req.Records, req.ClassID, req.IsSchoolWide)
	if err != nil {
		return nil, err
	}

	session := &models.AttendanceSession{
		Date:         date,
		Period:       req.Period,
		IsSchoolWide: req.IsSchoolWide,
		ClassID:      req.ClassID,
		SubjectID:    req.SubjectID,
		RecordedBy:   claims.UserID,
	}
	if err := s.repo.CreateSession(ctx, session, records); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance session")
	}

	return s.Get(ctx, session.ID)
}

// Update replaces a session's records. Only the recorder, a headteacher or
// an admin may modify a session.
func (s *AttendanceService) Update(ctx context.Context, claims *models.JWTClaims, id int64, req models.AttendanceSessionUpdateRequest) (*models.AttendanceSessionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance session")
	}

	if err := policy.CheckRecorderOwnership(claims, session.RecordedBy); err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the recorder may modify this session")
	}

	records, err := s.buildRecords(ctx, req.Records, session.ClassID, session.IsSchoolWide)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSession(ctx, session, records); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance session")
	}

	return s.Get(ctx, session.ID)
}

// Delete removes a session, subject to the same ownership rule as Update.
func (s *AttendanceService) Delete(ctx context.Context, claims *models.JWTClaims, id int64) error {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance session")
	}

	if err := policy.CheckRecorderOwnership(claims, session.RecordedBy); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "only the recorder may delete this session")
	}

	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance session")
	}
	return nil
}

// StudentHistory returns a student's records with summary statistics.
func (s *AttendanceService) StudentHistory(ctx context.Context, studentID int64, from, to *time.Time) (*models.AttendanceHistory, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	records, err := s.repo.ListStudentRecords(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	stats, err := s.repo.StudentStatusCounts(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance statistics")
	}
	stats.Rate = attendanceRate(stats.Present, stats.TotalRecords)

	return &models.AttendanceHistory{Records: records, Statistics: stats}, nil
}

// DailySummary aggregates a day's attendance per class plus the school-wide
// sessions. Restricted to headteachers and admins at the policy layer.
func (s *AttendanceService) DailySummary(ctx context.Context, date time.Time) (*models.DailyAttendanceSummary, error) {
	classes, err := s.repo.DailyClassCounts(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load daily attendance")
	}
	for i := range classes {
		classes[i].AttendanceRate = attendanceRate(classes[i].Present, classes[i].TotalRecords)
	}

	schoolWide, err := s.repo.DailySchoolWideCounts(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school-wide attendance")
	}
	if schoolWide != nil {
		schoolWide.AttendanceRate = attendanceRate(schoolWide.Present, schoolWide.TotalRecords)
	}

	return &models.DailyAttendanceSummary{
		Date:       date.Format("2006-01-02"),
		Classes:    classes,
		SchoolWide: schoolWide,
	}, nil
}

// buildRecords validates each record's student and status. Students in a
// class session must belong to that class.
func (s *AttendanceService) buildRecords(ctx context.Context, inputs []models.AttendanceRecordInput, classID *int64, schoolWide bool) ([]models.AttendanceRecord, error) {
	records := make([]models.AttendanceRecord, 0, len(inputs))
	seen := make(map[int64]bool, len(inputs))
	for _, in := range inputs {
		if seen[in.StudentID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %d listed more than once", in.StudentID))
		}
		seen[in.StudentID] = true

		status := models.AttendanceStatus(in.Status)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", in.Status))
		}

		student, err := s.students.FindByID(ctx, in.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %d does not exist", in.StudentID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		if !schoolWide && classID != nil {
			if student.ClassID == nil || *student.ClassID != *classID {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %d does not belong to the session class", in.StudentID))
			}
		}

		records = append(records, models.AttendanceRecord{
			StudentID: in.StudentID,
			Status:    status,
			Remarks:   in.Remarks,
		})
	}
	return records, nil
}
