package models

import "time"

// Assessment represents a graded evaluation for a subject in a class.
type Assessment struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	AssessmentType string    `db:"assessment_type" json:"assessment_type"`
	Date           time.Time `db:"date" json:"date"`
	MaxScore       float64   `db:"max_score" json:"max_score"`
	IsCBC          bool      `db:"is_cbc" json:"is_cbc"`
	SubjectID      int64     `db:"subject_id" json:"subject_id"`
	ClassID        int64     `db:"class_id" json:"class_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// AssessmentDetail carries display names for responses.
type AssessmentDetail struct {
	Assessment
	SubjectName string `db:"subject_name" json:"subject_name"`
	ClassName   string `db:"class_name" json:"class_name"`
}

// AssessmentFilter scopes assessment listings.
type AssessmentFilter struct {
	SubjectID int64
	ClassID   int64
	Type      string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// AssessmentCreateRequest creates an assessment.
type AssessmentCreateRequest struct {
	Name           string  `json:"name" validate:"required,min=1,max=150"`
	AssessmentType string  `json:"assessment_type" validate:"required,min=1,max=50"`
	Date           string  `json:"date" validate:"required,datetime=2006-01-02"`
	MaxScore       float64 `json:"max_score" validate:"required,gt=0"`
	IsCBC          bool    `json:"is_cbc"`
	SubjectID      int64   `json:"subject_id" validate:"required,gt=0"`
	ClassID        int64   `json:"class_id" validate:"required,gt=0"`
}

// AssessmentUpdateRequest updates mutable assessment fields.
type AssessmentUpdateRequest struct {
	Name           *string  `json:"name" validate:"omitempty,min=1,max=150"`
	AssessmentType *string  `json:"assessment_type" validate:"omitempty,min=1,max=50"`
	Date           *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	MaxScore       *float64 `json:"max_score" validate:"omitempty,gt=0"`
	IsCBC          *bool    `json:"is_cbc"`
}
