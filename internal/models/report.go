package models

import "time"

// Report output formats.
const (
	ReportFormatJSON = "json"
	ReportFormatCSV  = "csv"
	ReportFormatPDF  = "pdf"
)

// Report type identifiers, used in envelopes and generated filenames.
const (
	ReportTypeClassAttendanceSummary    = "class_attendance_summary"
	ReportTypeStudentAttendanceDetails  = "student_attendance_details"
	ReportTypeClassPerformanceSummary   = "class_performance_summary"
	ReportTypeStudentPerformanceDetails = "student_performance_details"
	ReportTypeStudentProgress           = "student_progress"
)

// ReportScope carries the caller's identity for row-level filtering. Teachers
// see only classes they lead or teach in; other roles are unrestricted.
type ReportScope struct {
	UserID     int64
	Restricted bool
}

// ReportQuery holds the shared query parameters of report endpoints.
type ReportQuery struct {
	DateFrom       *time.Time
	DateTo         *time.Time
	ClassID        int64
	StudentID      int64
	SubjectID      int64
	AssessmentType string
	IsCBC          *bool
	Format         string
}

// ClassAttendanceSummaryRow aggregates attendance per class.
type ClassAttendanceSummaryRow struct {
	ClassID        int64   `db:"class_id" json:"class_id"`
	ClassName      string  `db:"class_name" json:"class_name"`
	Stream         *string `db:"stream" json:"stream"`
	TotalSessions  int     `db:"total_sessions" json:"total_sessions"`
	TotalRecords   int     `db:"total_records" json:"total_records"`
	PresentCount   int     `db:"present_count" json:"present_count"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// StudentAttendanceDetailRow is one attendance record in a student report.
type StudentAttendanceDetailRow struct {
	StudentID       int64     `db:"student_id" json:"student_id"`
	StudentName     string    `db:"student_name" json:"student_name"`
	AdmissionNumber string    `db:"admission_number" json:"admission_number"`
	ClassName       string    `db:"class_name" json:"class_name"`
	Stream          *string   `db:"stream" json:"stream"`
	Date            time.Time `db:"date" json:"date"`
	Status          string    `db:"status" json:"status"`
	Remarks         *string   `db:"remarks" json:"remarks"`
}

// ClassPerformanceSummaryRow aggregates scores per class/subject/assessment.
type ClassPerformanceSummaryRow struct {
	ClassID        int64     `db:"class_id" json:"class_id"`
	ClassName      string    `db:"class_name" json:"class_name"`
	Stream         *string   `db:"stream" json:"stream"`
	SubjectID      int64     `db:"subject_id" json:"subject_id"`
	SubjectName    string    `db:"subject_name" json:"subject_name"`
	AssessmentID   int64     `db:"assessment_id" json:"assessment_id"`
	AssessmentName string    `db:"assessment_name" json:"assessment_name"`
	AssessmentType string    `db:"assessment_type" json:"assessment_type"`
	Date           time.Time `db:"date" json:"date"`
	MaxScore       float64   `db:"max_score" json:"max_score"`
	RecordCount    int       `db:"record_count" json:"record_count"`
	AverageScore   *float64  `db:"average_score" json:"average_score"`
	HighestScore   *float64  `db:"highest_score" json:"highest_score"`
	LowestScore    *float64  `db:"lowest_score" json:"lowest_score"`
}

// StudentPerformanceDetailRow is one result in a student performance report.
type StudentPerformanceDetailRow struct {
	StudentID       int64     `db:"student_id" json:"student_id"`
	StudentName     string    `db:"student_name" json:"student_name"`
	AdmissionNumber string    `db:"admission_number" json:"admission_number"`
	ClassID         int64     `db:"class_id" json:"class_id"`
	ClassName       string    `db:"class_name" json:"class_name"`
	Stream          *string   `db:"stream" json:"stream"`
	SubjectID       int64     `db:"subject_id" json:"subject_id"`
	SubjectName     string    `db:"subject_name" json:"subject_name"`
	AssessmentID    int64     `db:"assessment_id" json:"assessment_id"`
	AssessmentName  string    `db:"assessment_name" json:"assessment_name"`
	AssessmentType  string    `db:"assessment_type" json:"assessment_type"`
	Date            time.Time `db:"date" json:"date"`
	MaxScore        float64   `db:"max_score" json:"max_score"`
	Score           *float64  `db:"score" json:"score"`
	Percentage      *float64  `json:"percentage"`
	CompetencyLevel *string   `db:"competency_level" json:"competency_level"`
	Strand          *string   `db:"strand" json:"strand"`
	SubStrand       *string   `db:"sub_strand" json:"sub_strand"`
	Comments        *string   `db:"comments" json:"comments"`
}

// ReportEnvelope wraps report rows with their type and date range.
type ReportEnvelope struct {
	ReportType string      `json:"report_type"`
	DateFrom   *string     `json:"date_from"`
	DateTo     *string     `json:"date_to"`
	Data       interface{} `json:"data"`
}

// ProgressAttendance is the attendance block of a progress report.
type ProgressAttendance struct {
	TotalDays      int     `json:"total_days"`
	PresentDays    int     `json:"present_days"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// ProgressSubjectPerformance aggregates one subject for a student.
type ProgressSubjectPerformance struct {
	SubjectID         int64    `db:"subject_id" json:"subject_id"`
	SubjectName       string   `db:"subject_name" json:"subject_name"`
	AssessmentCount   int      `db:"assessment_count" json:"assessment_count"`
	AverageScore      *float64 `db:"average_score" json:"average_score"`
	MaxScore          float64  `db:"max_score" json:"max_score"`
	AveragePercentage *float64 `json:"average_percentage"`
}

// ProgressRecentAssessment is one of the latest graded assessments.
type ProgressRecentAssessment struct {
	AssessmentID    int64     `db:"assessment_id" json:"assessment_id"`
	Name            string    `db:"name" json:"name"`
	Type            string    `db:"assessment_type" json:"type"`
	Date            time.Time `db:"date" json:"date"`
	Subject         string    `db:"subject_name" json:"subject"`
	Score           *float64  `db:"score" json:"score"`
	MaxScore        float64   `db:"max_score" json:"max_score"`
	Percentage      *float64  `json:"percentage"`
	CompetencyLevel *string   `db:"competency_level" json:"competency_level"`
	Comments        *string   `db:"comments" json:"comments"`
}

// StudentProgressReport is the full progress view for one student.
type StudentProgressReport struct {
	Student            StudentDetail                `json:"student"`
	Attendance         ProgressAttendance           `json:"attendance"`
	SubjectPerformance []ProgressSubjectPerformance `json:"subject_performance"`
	RecentAssessments  []ProgressRecentAssessment   `json:"recent_assessments"`
}
