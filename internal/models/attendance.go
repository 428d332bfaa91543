package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusExcused AttendanceStatus = "excused"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceSession groups the records taken in one sitting. School-wide
// sessions have no class or subject; class sessions require a class.
type AttendanceSession struct {
	ID           int64     `db:"id" json:"id"`
	Date         time.Time `db:"date" json:"date"`
	Period       *int      `db:"period" json:"period,omitempty"`
	IsSchoolWide bool      `db:"is_school_wide" json:"is_school_wide"`
	ClassID      *int64    `db:"class_id" json:"class_id,omitempty"`
	SubjectID    *int64    `db:"subject_id" json:"subject_id,omitempty"`
	RecordedBy   int64     `db:"recorded_by" json:"recorded_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord marks one student's status within a session.
type AttendanceRecord struct {
	ID        int64            `db:"id" json:"id"`
	SessionID int64            `db:"session_id" json:"session_id"`
	StudentID int64            `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Remarks   *string          `db:"remarks" json:"remarks,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceRecordDetail extends a record with student metadata.
type AttendanceRecordDetail struct {
	AttendanceRecord
	StudentName     string `db:"student_name" json:"student_name"`
	AdmissionNumber string `db:"admission_number" json:"admission_number"`
}

// AttendanceSessionDetail is the full session view with its records.
type AttendanceSessionDetail struct {
	AttendanceSession
	ClassName   *string                  `db:"class_name" json:"class_name,omitempty"`
	SubjectName *string                  `db:"subject_name" json:"subject_name,omitempty"`
	Records     []AttendanceRecordDetail `json:"records"`
}

// AttendanceSessionFilter scopes session listings.
type AttendanceSessionFilter struct {
	ClassID    int64
	SubjectID  int64
	StudentID  int64
	RecordedBy int64
	SchoolWide *bool
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// AttendanceRecordInput is one student's status in a session payload.
type AttendanceRecordInput struct {
	StudentID int64   `json:"student_id" validate:"required,gt=0"`
	Status    string  `json:"status" validate:"required,oneof=present absent late excused"`
	Remarks   *string `json:"remarks"`
}

// AttendanceSessionCreateRequest creates a session with its records.
type AttendanceSessionCreateRequest struct {
	Date         string                  `json:"date" validate:"required,datetime=2006-01-02"`
	Period       *int                    `json:"period" validate:"omitempty,min=1,max=8"`
	IsSchoolWide bool                    `json:"is_school_wide"`
	ClassID      *int64                  `json:"class_id"`
	SubjectID    *int64                  `json:"subject_id"`
	Records      []AttendanceRecordInput `json:"records" validate:"required,min=1,dive"`
}

// AttendanceSessionUpdateRequest replaces a session's records.
type AttendanceSessionUpdateRequest struct {
	Records []AttendanceRecordInput `json:"records" validate:"required,min=1,dive"`
}

// AttendanceStatistics summarises status counts over a record set.
type AttendanceStatistics struct {
	TotalRecords int     `json:"total_records"`
	Present      int     `json:"present"`
	Absent       int     `json:"absent"`
	Late         int     `json:"late"`
	Excused      int     `json:"excused"`
	Rate         float64 `json:"attendance_rate"`
}

// AttendanceHistory is a scoped record listing with statistics.
type AttendanceHistory struct {
	Records    []AttendanceRecordDetail `json:"records"`
	Statistics AttendanceStatistics     `json:"statistics"`
}

// DailyAttendanceBlock aggregates one class (or the school-wide sessions)
// for a single day.
type DailyAttendanceBlock struct {
	ClassID        *int64  `db:"class_id" json:"class_id,omitempty"`
	ClassName      *string `db:"class_name" json:"class_name,omitempty"`
	Sessions       int     `db:"sessions" json:"sessions"`
	TotalRecords   int     `db:"total_records" json:"total_records"`
	Present        int     `db:"present" json:"present"`
	Absent         int     `db:"absent" json:"absent"`
	Late           int     `db:"late" json:"late"`
	Excused        int     `db:"excused" json:"excused"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// DailyAttendanceSummary aggregates one day across the school.
type DailyAttendanceSummary struct {
	Date       string                 `json:"date"`
	Classes    []DailyAttendanceBlock `json:"classes"`
	SchoolWide *DailyAttendanceBlock  `json:"school_wide,omitempty"`
}
