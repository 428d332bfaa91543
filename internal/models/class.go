package models

import "time"

// Class represents an academic class, optionally split into streams.
type Class struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Stream         *string   `db:"stream" json:"stream,omitempty"`
	AcademicYear   string    `db:"academic_year" json:"academic_year"`
	ClassTeacherID *int64    `db:"class_teacher_id" json:"class_teacher_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with the class teacher's name and counts.
type ClassDetail struct {
	Class
	ClassTeacherName *string `db:"class_teacher_name" json:"class_teacher_name,omitempty"`
	StudentCount     int     `db:"student_count" json:"student_count"`
}

// ClassFull is the single-class view including students and subjects taught.
type ClassFull struct {
	ClassDetail
	Students []Student              `json:"students"`
	Subjects []TeacherSubjectDetail `json:"subjects"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	AcademicYear string
	TeacherID    int64
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// ClassCreateRequest creates a class.
type ClassCreateRequest struct {
	Name           string  `json:"name" validate:"required,min=1,max=100"`
	Stream         *string `json:"stream"`
	AcademicYear   string  `json:"academic_year" validate:"required,min=4,max=20"`
	ClassTeacherID *int64  `json:"class_teacher_id"`
}

// ClassUpdateRequest updates mutable class fields.
type ClassUpdateRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=100"`
	Stream         *string `json:"stream"`
	AcademicYear   *string `json:"academic_year" validate:"omitempty,min=4,max=20"`
	ClassTeacherID *int64  `json:"class_teacher_id"`
}
