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

type timetableRepository interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntryDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.TimetableEntry, error)
	FindDetailByID(ctx context.Context, id int64) (*models.TimetableEntryDetail, error)
	FindBySlot(ctx context.Context, day string, period int) ([]models.TimetableEntryDetail, error)
	ListByClass(ctx context.Context, classID int64) ([]models.TimetableEntryDetail, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.TimetableEntryDetail, error)
	Create(ctx context.Context, entry *models.TimetableEntry) error
	Update(ctx context.Context, entry *models.TimetableEntry) error
	Delete(ctx context.Context, id int64) error
}

type timetableClassLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Class, error)
}

type timetableSubjectLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

type timetableTeacherLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// TimetableService manages scheduled lessons and their conflict rules.
type TimetableService struct {
	repo      timetableRepository
	classes   timetableClassLookup
	subjects  timetableSubjectLookup
	users     timetableTeacherLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(repo timetableRepository, classes timetableClassLookup, subjects timetableSubjectLookup, users timetableTeacherLookup, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TimetableService{repo: repo, classes: classes, subjects: subjects, users: users, validator: validate, logger: logger}
}

// List returns timetable entries matching the filter.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntryDetail, int, error) {
	if filter.Day != "" {
		day, ok := models.NormalizeDay(filter.Day)
		if !ok {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q", filter.Day))
		}
		filter.Day = day
	}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable entries")
	}
	return entries, total, nil
}

// Get loads one entry with display names.
func (s *TimetableService) Get(ctx context.Context, id int64) (*models.TimetableEntryDetail, error) {
	entry, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}
	return entry, nil
}

// ClassTimetable arranges a class's entries into a day/period grid.
func (s *TimetableService) ClassTimetable(ctx context.Context, classID int64) (models.TimetableGrid, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	entries, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class timetable")
	}
	return models.BuildTimetableGrid(entries), nil
}

// TeacherTimetable arranges a teacher's entries into a day/period grid.
func (s *TimetableService) TeacherTimetable(ctx context.Context, teacherID int64) (models.TimetableGrid, error) {
	if _, err := s.users.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	entries, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher timetable")
	}
	return models.BuildTimetableGrid(entries), nil
}

// CheckConflicts probes a candidate slot and reports every collision: the
// teacher already teaching elsewhere, the class already occupied, and the
// room already in use. Room checks are skipped when no room is given.
func (s *TimetableService) CheckConflicts(ctx context.Context, req models.ConflictCheckRequest) (*models.ConflictCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	day, ok := models.NormalizeDay(req.Day)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q", req.Day))
	}

	existing, err := s.repo.FindBySlot(ctx, day, req.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect slot")
	}

	var conflicts []models.TimetableConflict
	for _, entry := range existing {
		if req.IgnoreID > 0 && entry.ID == req.IgnoreID {
			continue
		}
		if entry.TeacherID == req.TeacherID {
			conflicts = append(conflicts, models.TimetableConflict{
				Type:               models.ConflictTypeTeacher,
				Message:            fmt.Sprintf("teacher %s already teaches %s at this time", entry.TeacherName, entry.ClassName),
				ConflictingEntryID: entry.ID,
				ConflictingEntry:   entry,
			})
		}
		if entry.ClassID == req.ClassID {
			conflicts = append(conflicts, models.TimetableConflict{
				Type:               models.ConflictTypeClass,
				Message:            fmt.Sprintf("class %s already has %s at this time", entry.ClassName, entry.SubjectName),
				ConflictingEntryID: entry.ID,
				ConflictingEntry:   entry,
			})
		}
		if req.Room != nil && *req.Room != "" && entry.Room != nil && *entry.Room == *req.Room {
			conflicts = append(conflicts, models.TimetableConflict{
				Type:               models.ConflictTypeRoom,
				Message:            fmt.Sprintf("room %s is already occupied by %s", *entry.Room, entry.ClassName),
				ConflictingEntryID: entry.ID,
				ConflictingEntry:   entry,
			})
		}
	}

	return &models.ConflictCheckResponse{
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
	}, nil
}

// Create schedules a lesson after validating references and checking the
// slot. The database unique constraints remain the final arbiter for races.
func (s *TimetableService) Create(ctx context.Context, req models.TimetableCreateRequest) (*models.TimetableEntryDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	day, ok := models.NormalizeDay(req.Day)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q", req.Day))
	}

	if err := s.checkReferences(ctx, req.ClassID, req.SubjectID, req.TeacherID); err != nil {
		return nil, err
	}

	check, err := s.CheckConflicts(ctx, models.ConflictCheckRequest{
		Day:       day,
		Period:    req.Period,
		Room:      req.Room,
		ClassID:   req.ClassID,
		TeacherID: req.TeacherID,
	})
	if err != nil {
		return nil, err
	}
	if check.HasConflicts {
		return nil, &models.TimetableConflictError{
			Message:   "timetable conflicts detected",
			Conflicts: check.Conflicts,
		}
	}

	entry := &models.TimetableEntry{
		Day:       day,
		Period:    req.Period,
		Room:      req.Room,
		SubjectID: req.SubjectID,
		ClassID:   req.ClassID,
		TeacherID: req.TeacherID,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable entry")
	}

	return s.Get(ctx, entry.ID)
}

// Update reschedules a lesson. Unchanged fields keep their current values
// and the merged slot goes through the same conflict check as a create.
func (s *TimetableService) Update(ctx context.Context, id int64, req models.TimetableUpdateRequest) (*models.TimetableEntryDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}

	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}

	if req.Day != nil {
		day, ok := models.NormalizeDay(*req.Day)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q", *req.Day))
		}
		entry.Day = day
	}
	if req.Period != nil {
		entry.Period = *req.Period
	}
	if req.Room != nil {
		entry.Room = req.Room
	}
	if req.SubjectID != nil {
		entry.SubjectID = *req.SubjectID
	}
	if req.ClassID != nil {
		entry.ClassID = *req.ClassID
	}
	if req.TeacherID != nil {
		entry.TeacherID = *req.TeacherID
	}

	if err := s.checkReferences(ctx, entry.ClassID, entry.SubjectID, entry.TeacherID); err != nil {
		return nil, err
	}

	check, err := s.CheckConflicts(ctx, models.ConflictCheckRequest{
		Day:       entry.Day,
		Period:    entry.Period,
		Room:      entry.Room,
		ClassID:   entry.ClassID,
		TeacherID: entry.TeacherID,
		IgnoreID:  entry.ID,
	})
	if err != nil {
		return nil, err
	}
	if check.HasConflicts {
		return nil, &models.TimetableConflictError{
			Message:   "timetable conflicts detected",
			Conflicts: check.Conflicts,
		}
	}

	if err := s.repo.Update(ctx, entry); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable entry")
	}

	return s.Get(ctx, entry.ID)
}

// Delete removes an entry.
func (s *TimetableService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable entry")
	}
	return nil
}

func (s *TimetableService) checkReferences(ctx context.Context, classID, subjectID, teacherID int64) error {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "class does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "subject does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if _, err := s.users.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "teacher does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return nil
}
