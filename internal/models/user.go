package models

import "time"

// Canonical role names. Role checks are case sensitive.
const (
	RoleAdmin       = "admin"
	RoleHeadteacher = "headteacher"
	RoleTeacher     = "teacher"
)

// Role represents a named role users can hold.
type Role struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	IsDefault   bool      `db:"is_default" json:"is_default"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// User represents an application user stored in the users table.
type User struct {
	ID            int64      `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	Username      string     `db:"username" json:"username"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	FullName      string     `db:"full_name" json:"full_name"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	Active        bool       `db:"active" json:"active"`
	EmailVerified bool       `db:"email_verified" json:"email_verified"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// UserWithRoles pairs a user with the names of the roles they hold.
type UserWithRoles struct {
	User
	Roles []string `json:"roles"`
}

// HasRole reports whether the user holds the named role.
func (u *UserWithRoles) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      string
	Active    *bool
	Approved  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// UserUpdateRequest updates mutable profile fields.
type UserUpdateRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1"`
	Phone    *string `json:"phone"`
	Active   *bool   `json:"active"`
}

// RoleCreateRequest creates a new role.
type RoleCreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=50"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default"`
}

// RoleAssignmentRequest adds or removes a role for a user.
type RoleAssignmentRequest struct {
	RoleName string `json:"role_name" validate:"required"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
