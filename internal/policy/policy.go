// Package policy centralizes role based access rules so route wiring and
// services consult one table instead of scattering role checks.
package policy

import (
	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

// Action identifies what the caller wants to do with a resource.
type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource names used in the rule table.
const (
	ResourceUsers       = "users"
	ResourceRoles       = "roles"
	ResourceStudents    = "students"
	ResourceClasses     = "classes"
	ResourceSubjects    = "subjects"
	ResourceAssignments = "assignments"
	ResourceTimetable   = "timetable"
	ResourceAssessments = "assessments"
	ResourceAttendance  = "attendance"
	ResourcePerformance = "performance"
	ResourceReports     = "reports"
)

// Rule lists the roles allowed to perform an action. RecorderOwned marks
// mutations additionally allowed for the user who recorded the row; that
// ownership check runs in the service once the row is loaded. SelfOwned
// marks actions additionally allowed when the target row is the caller's
// own user record.
type Rule struct {
	Roles         []string
	RecorderOwned bool
	SelfOwned     bool
}

var staff = []string{models.RoleAdmin, models.RoleHeadteacher, models.RoleTeacher}
var managers = []string{models.RoleAdmin, models.RoleHeadteacher}
var adminOnly = []string{models.RoleAdmin}

// rules maps resource then action to the governing rule. A missing entry
// denies everyone.
var rules = map[string]map[Action]Rule{
	ResourceUsers: {
		ActionList:   {Roles: adminOnly},
		ActionRead:   {Roles: adminOnly, SelfOwned: true},
		ActionUpdate: {Roles: adminOnly, SelfOwned: true},
		ActionDelete: {Roles: adminOnly},
	},
	ResourceRoles: {
		ActionList:   {Roles: adminOnly},
		ActionCreate: {Roles: adminOnly},
	},
	ResourceStudents: {
		ActionList:   {Roles: staff},
		ActionRead:   {Roles: staff},
		ActionCreate: {Roles: adminOnly},
		ActionUpdate: {Roles: adminOnly},
		ActionDelete: {Roles: adminOnly},
	},
	ResourceClasses: {
		ActionList:   {Roles: staff},
		ActionRead:   {Roles: staff},
		ActionCreate: {Roles: managers},
		ActionUpdate: {Roles: managers},
		ActionDelete: {Roles: adminOnly},
	},
	ResourceSubjects: {
		ActionList:   {Roles: staff},
		ActionRead:   {Roles: staff},
		ActionCreate: {Roles: managers},
		ActionUpdate: {Roles: managers},
		ActionDelete: {Roles: adminOnly},
	},
	ResourceAssignments: {
		ActionList:   {Roles: staff},
		ActionRead:   {Roles: staff},
		ActionCreate: {Roles: managers},
		ActionDelete: {Roles: managers},
	},
	ResourceTimetable: {
		ActionList:   {Roles: staff},
		ActionRead:   {Roles: staff},
		ActionCreate: {Roles: managers},
		ActionUpdate: {Roles: managers},
		ActionDelete: {Roles: managers},
	},
	ResourceAssessments: {
		ActionList:   {Roles: staff},
		ActionRead:   {Roles: staff},
		ActionCreate: {Roles: staff},
		ActionUpdate: {Roles: staff},
		ActionDelete: {Roles: managers},
	},
	ResourceAttendance: {
		ActionList:   {Roles: staff},
		ActionRead:   {Roles: staff},
		ActionCreate: {Roles: staff},
		ActionUpdate: {Roles: staff, RecorderOwned: true},
		ActionDelete: {Roles: staff, RecorderOwned: true},
	},
	ResourcePerformance: {
		ActionList:   {Roles: staff},
		ActionRead:   {Roles: staff},
		ActionCreate: {Roles: staff},
		ActionUpdate: {Roles: staff, RecorderOwned: true},
		ActionDelete: {Roles: staff, RecorderOwned: true},
	},
	ResourceReports: {
		ActionRead: {Roles: staff},
	},
}

// Lookup returns the rule for a resource/action pair.
func Lookup(resource string, action Action) (Rule, bool) {
	actions, ok := rules[resource]
	if !ok {
		return Rule{}, false
	}
	rule, ok := actions[action]
	return rule, ok
}

// Allowed reports whether the claims satisfy the role requirement for the
// resource/action pair. Recorder ownership is not evaluated here.
func Allowed(claims *models.JWTClaims, resource string, action Action) bool {
	if claims == nil {
		return false
	}
	rule, ok := Lookup(resource, action)
	if !ok {
		return false
	}
	return claims.HasAnyRole(rule.Roles...)
}

// Check converts a denied Allowed call into the canonical forbidden error.
func Check(claims *models.JWTClaims, resource string, action Action) error {
	if !Allowed(claims, resource, action) {
		return appErrors.ErrForbidden
	}
	return nil
}

// AllowedSelf is Allowed extended with the self-ownership escape: a caller
// targeting their own user record passes when the rule is SelfOwned.
func AllowedSelf(claims *models.JWTClaims, resource string, action Action, targetID int64) bool {
	if claims == nil {
		return false
	}
	rule, ok := Lookup(resource, action)
	if !ok {
		return false
	}
	if rule.SelfOwned && claims.UserID == targetID {
		return true
	}
	return claims.HasAnyRole(rule.Roles...)
}

// CheckSelf converts a denied AllowedSelf call into the canonical forbidden
// error.
func CheckSelf(claims *models.JWTClaims, resource string, action Action, targetID int64) error {
	if !AllowedSelf(claims, resource, action, targetID) {
		return appErrors.ErrForbidden
	}
	return nil
}

// CanOverrideOwnership reports whether the caller may mutate rows recorded
// by someone else. Admins and headteachers may; teachers may not.
func CanOverrideOwnership(claims *models.JWTClaims) bool {
	return claims != nil && claims.HasAnyRole(models.RoleAdmin, models.RoleHeadteacher)
}

// CheckRecorderOwnership enforces the recorder rule for a loaded row: the
// recording user, or a role that overrides ownership, may proceed.
func CheckRecorderOwnership(claims *models.JWTClaims, recordedBy int64) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	if claims.UserID == recordedBy || CanOverrideOwnership(claims) {
		return nil
	}
	return appErrors.ErrForbidden
}

// ReportScope derives the row-level scope for report queries. Teachers are
// restricted to classes they lead or teach in; the restriction narrows
// result sets rather than denying access.
func ReportScope(claims *models.JWTClaims) models.ReportScope {
	if claims == nil {
		return models.ReportScope{Restricted: true}
	}
	restricted := !claims.HasAnyRole(models.RoleAdmin, models.RoleHeadteacher)
	return models.ReportScope{UserID: claims.UserID, Restricted: restricted}
}
