package models

import (
	"strings"
	"time"
)

// Timetable period bounds.
const (
	MinPeriod = 1
	MaxPeriod = 8
)

// DaysOfWeek lists the canonical day names in week order.
var DaysOfWeek = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// NormalizeDay capitalizes a day name into its canonical form. The second
// return value reports whether the input named a real day.
func NormalizeDay(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	canonical := strings.ToUpper(trimmed[:1]) + strings.ToLower(trimmed[1:])
	for _, d := range DaysOfWeek {
		if d == canonical {
			return canonical, true
		}
	}
	return "", false
}

// TimetableEntry schedules a subject for a class at a (day, period) slot.
type TimetableEntry struct {
	ID        int64     `db:"id" json:"id"`
	Day       string    `db:"day" json:"day"`
	Period    int       `db:"period" json:"period"`
	Room      *string   `db:"room" json:"room,omitempty"`
	SubjectID int64     `db:"subject_id" json:"subject_id"`
	ClassID   int64     `db:"class_id" json:"class_id"`
	TeacherID int64     `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TimetableEntryDetail carries display names for responses.
type TimetableEntryDetail struct {
	TimetableEntry
	SubjectName string `db:"subject_name" json:"subject_name"`
	ClassName   string `db:"class_name" json:"class_name"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// TimetableFilter describes query params for listing entries.
type TimetableFilter struct {
	Day       string
	Period    int
	ClassID   int64
	TeacherID int64
	SubjectID int64
	Room      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// TimetableCreateRequest creates a timetable entry.
type TimetableCreateRequest struct {
	Day       string  `json:"day" validate:"required"`
	Period    int     `json:"period" validate:"required,min=1,max=8"`
	Room      *string `json:"room"`
	SubjectID int64   `json:"subject_id" validate:"required,gt=0"`
	ClassID   int64   `json:"class_id" validate:"required,gt=0"`
	TeacherID int64   `json:"teacher_id" validate:"required,gt=0"`
}

// TimetableUpdateRequest updates mutable entry fields.
type TimetableUpdateRequest struct {
	Day       *string `json:"day"`
	Period    *int    `json:"period" validate:"omitempty,min=1,max=8"`
	Room      *string `json:"room"`
	SubjectID *int64  `json:"subject_id" validate:"omitempty,gt=0"`
	ClassID   *int64  `json:"class_id" validate:"omitempty,gt=0"`
	TeacherID *int64  `json:"teacher_id" validate:"omitempty,gt=0"`
}

// Conflict dimensions reported by the conflict checker.
const (
	ConflictTypeTeacher = "teacher"
	ConflictTypeClass   = "class"
	ConflictTypeRoom    = "room"
)

// TimetableConflict describes one collision with an existing entry.
type TimetableConflict struct {
	Type               string               `json:"type"`
	Message            string               `json:"message"`
	ConflictingEntryID int64                `json:"conflicting_entry_id"`
	ConflictingEntry   TimetableEntryDetail `json:"conflicting_entry"`
}

// ConflictCheckRequest is a candidate slot to probe for collisions.
type ConflictCheckRequest struct {
	Day       string  `json:"day" validate:"required"`
	Period    int     `json:"period" validate:"required,min=1,max=8"`
	Room      *string `json:"room"`
	ClassID   int64   `json:"class_id" validate:"required,gt=0"`
	TeacherID int64   `json:"teacher_id" validate:"required,gt=0"`
	IgnoreID  int64   `json:"ignore_id"`
}

// ConflictCheckResponse reports every detected conflict.
type ConflictCheckResponse struct {
	HasConflicts bool                `json:"has_conflicts"`
	Conflicts    []TimetableConflict `json:"conflicts"`
}

// TimetableConflictError is returned when a write collides with existing entries.
type TimetableConflictError struct {
	Message   string              `json:"message"`
	Conflicts []TimetableConflict `json:"conflicts"`
}

// Error implements the error interface.
func (e *TimetableConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// TimetableGrid maps day name to period number to entry.
type TimetableGrid map[string]map[int]*TimetableEntryDetail

// BuildTimetableGrid arranges entries into a day/period grid covering every
// canonical day and period 1 through 8.
func BuildTimetableGrid(entries []TimetableEntryDetail) TimetableGrid {
	grid := make(TimetableGrid, len(DaysOfWeek))
	for _, day := range DaysOfWeek {
		grid[day] = make(map[int]*TimetableEntryDetail, MaxPeriod)
	}
	for i := range entries {
		e := &entries[i]
		if slots, ok := grid[e.Day]; ok {
			slots[e.Period] = e
		}
	}
	return grid
}
