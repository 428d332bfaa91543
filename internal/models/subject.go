package models

import "time"

// Subject represents a taught subject.
type Subject struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	IsCore    bool      `db:"is_core" json:"is_core"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter defines filter criteria for listing subjects.
type SubjectFilter struct {
	IsCore    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// SubjectCreateRequest creates a subject.
type SubjectCreateRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=100"`
	Code   string `json:"code" validate:"required,min=1,max=20"`
	IsCore bool   `json:"is_core"`
}

// SubjectUpdateRequest updates mutable subject fields.
type SubjectUpdateRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=100"`
	Code   *string `json:"code" validate:"omitempty,min=1,max=20"`
	IsCore *bool   `json:"is_core"`
}
