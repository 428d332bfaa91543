package models

import "time"

// Student represents an enrolled student.
type Student struct {
	ID              int64      `db:"id" json:"id"`
	AdmissionNumber string     `db:"admission_number" json:"admission_number"`
	FullName        string     `db:"full_name" json:"full_name"`
	DateOfBirth     *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender          *string    `db:"gender" json:"gender,omitempty"`
	ParentName      *string    `db:"parent_name" json:"parent_name,omitempty"`
	ParentPhone     *string    `db:"parent_phone" json:"parent_phone,omitempty"`
	Address         *string    `db:"address" json:"address,omitempty"`
	ClassID         *int64     `db:"class_id" json:"class_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentDetail extends Student with class information for responses.
type StudentDetail struct {
	Student
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
}

// StudentFilter defines filter criteria for listing students.
type StudentFilter struct {
	ClassID   int64
	Gender    string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentCreateRequest creates a student.
type StudentCreateRequest struct {
	AdmissionNumber string  `json:"admission_number" validate:"required,min=1,max=50"`
	FullName        string  `json:"full_name" validate:"required,min=1"`
	DateOfBirth     *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender          *string `json:"gender" validate:"omitempty,oneof=male female other"`
	ParentName      *string `json:"parent_name"`
	ParentPhone     *string `json:"parent_phone"`
	Address         *string `json:"address"`
	ClassID         *int64  `json:"class_id"`
}

// StudentUpdateRequest updates mutable student fields.
type StudentUpdateRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,min=1"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      *string `json:"gender" validate:"omitempty,oneof=male female other"`
	ParentName  *string `json:"parent_name"`
	ParentPhone *string `json:"parent_phone"`
	Address     *string `json:"address"`
	ClassID     *int64  `json:"class_id"`
}

// StudentBulkCreateRequest creates many students at once.
type StudentBulkCreateRequest struct {
	Students []StudentCreateRequest `json:"students" validate:"required,min=1,dive"`
}

// StudentBulkCreateResult reports the outcome of a bulk create.
type StudentBulkCreateResult struct {
	Created []Student `json:"created"`
	Errors  []string  `json:"errors,omitempty"`
}
