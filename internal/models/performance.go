package models

import "time"

// StudentPerformance records a student's result for one assessment. Score is
// optional to support competency-based entries without numeric marks.
type StudentPerformance struct {
	ID              int64     `db:"id" json:"id"`
	StudentID       int64     `db:"student_id" json:"student_id"`
	AssessmentID    int64     `db:"assessment_id" json:"assessment_id"`
	Score           *float64  `db:"score" json:"score,omitempty"`
	CompetencyLevel *string   `db:"competency_level" json:"competency_level,omitempty"`
	Strand          *string   `db:"strand" json:"strand,omitempty"`
	SubStrand       *string   `db:"sub_strand" json:"sub_strand,omitempty"`
	Comments        *string   `db:"comments" json:"comments,omitempty"`
	RecordedBy      int64     `db:"recorded_by" json:"recorded_by"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StudentPerformanceDetail extends a record with display metadata and the
// derived percentage when a numeric score exists.
type StudentPerformanceDetail struct {
	StudentPerformance
	StudentName     string   `db:"student_name" json:"student_name"`
	AdmissionNumber string   `db:"admission_number" json:"admission_number"`
	AssessmentName  string   `db:"assessment_name" json:"assessment_name"`
	SubjectName     string   `db:"subject_name" json:"subject_name"`
	MaxScore        float64  `db:"max_score" json:"max_score"`
	Percentage      *float64 `json:"percentage,omitempty"`
}

// PerformanceFilter scopes performance listings.
type PerformanceFilter struct {
	StudentID    int64
	AssessmentID int64
	SubjectID    int64
	ClassID      int64
	RecordedBy   int64
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// PerformanceCreateRequest records a result. RecordedBy is optional and, when
// given, must name the caller.
type PerformanceCreateRequest struct {
	StudentID       int64    `json:"student_id" validate:"required,gt=0"`
	AssessmentID    int64    `json:"assessment_id" validate:"required,gt=0"`
	RecordedBy      *int64   `json:"recorded_by" validate:"omitempty,gt=0"`
	Score           *float64 `json:"score" validate:"omitempty,gte=0"`
	CompetencyLevel *string  `json:"competency_level"`
	Strand          *string  `json:"strand"`
	SubStrand       *string  `json:"sub_strand"`
	Comments        *string  `json:"comments"`
}

// PerformanceUpdateRequest updates a recorded result.
type PerformanceUpdateRequest struct {
	Score           *float64 `json:"score" validate:"omitempty,gte=0"`
	CompetencyLevel *string  `json:"competency_level"`
	Strand          *string  `json:"strand"`
	SubStrand       *string  `json:"sub_strand"`
	Comments        *string  `json:"comments"`
}

// ScoreStatistics summarises a set of numeric scores. Absent entirely when
// the score set is empty.
type ScoreStatistics struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Highest float64 `json:"highest"`
	Lowest  float64 `json:"lowest"`
}

// PerformanceListing pairs records with their score statistics. Statistics
// is nil when no record carries a numeric score.
type PerformanceListing struct {
	Records    []StudentPerformanceDetail `json:"records"`
	Statistics *ScoreStatistics           `json:"statistics,omitempty"`
}

// ClassAssessmentSummary is one assessment's statistics in a class summary.
type ClassAssessmentSummary struct {
	Assessment AssessmentDetail `json:"assessment"`
	Statistics *ScoreStatistics `json:"statistics,omitempty"`
}
