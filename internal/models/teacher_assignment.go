package models

import "time"

// TeacherSubject maps a teacher to a subject taught in a class.
type TeacherSubject struct {
	ID        int64     `db:"id" json:"id"`
	TeacherID int64     `db:"teacher_id" json:"teacher_id"`
	SubjectID int64     `db:"subject_id" json:"subject_id"`
	ClassID   int64     `db:"class_id" json:"class_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeacherSubjectDetail is the assignment view with display names.
type TeacherSubjectDetail struct {
	TeacherSubject
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
	ClassName   string `db:"class_name" json:"class_name"`
}

// TeacherSubjectFilter scopes assignment listings.
type TeacherSubjectFilter struct {
	TeacherID int64
	SubjectID int64
	ClassID   int64
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// TeacherSubjectCreateRequest assigns a teacher to a subject in a class.
type TeacherSubjectCreateRequest struct {
	TeacherID int64 `json:"teacher_id" validate:"required,gt=0"`
	SubjectID int64 `json:"subject_id" validate:"required,gt=0"`
	ClassID   int64 `json:"class_id" validate:"required,gt=0"`
}

// TeacherSubjectBulkCreateRequest assigns many in one call.
type TeacherSubjectBulkCreateRequest struct {
	Assignments []TeacherSubjectCreateRequest `json:"assignments" validate:"required,min=1,dive"`
}
