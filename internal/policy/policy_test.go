package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

func claimsWith(roles ...string) *models.JWTClaims {
	return &models.JWTClaims{UserID: 7, Roles: roles}
}

func TestAllowedByRole(t *testing.T) {
	cases := []struct {
		name     string
		claims   *models.JWTClaims
		resource string
		action   Action
		want     bool
	}{
		{"admin manages users", claimsWith(models.RoleAdmin), ResourceUsers, ActionDelete, true},
		{"teacher cannot manage users", claimsWith(models.RoleTeacher), ResourceUsers, ActionList, false},
		{"teacher reads students", claimsWith(models.RoleTeacher), ResourceStudents, ActionRead, true},
		{"teacher cannot create students", claimsWith(models.RoleTeacher), ResourceStudents, ActionCreate, false},
		{"headteacher writes timetable", claimsWith(models.RoleHeadteacher), ResourceTimetable, ActionCreate, true},
		{"teacher cannot write timetable", claimsWith(models.RoleTeacher), ResourceTimetable, ActionUpdate, false},
		{"headteacher creates classes", claimsWith(models.RoleHeadteacher), ResourceClasses, ActionCreate, true},
		{"headteacher updates classes", claimsWith(models.RoleHeadteacher), ResourceClasses, ActionUpdate, true},
		{"headteacher creates subjects", claimsWith(models.RoleHeadteacher), ResourceSubjects, ActionCreate, true},
		{"headteacher updates subjects", claimsWith(models.RoleHeadteacher), ResourceSubjects, ActionUpdate, true},
		{"headteacher creates assignments", claimsWith(models.RoleHeadteacher), ResourceAssignments, ActionCreate, true},
		{"headteacher deletes assignments", claimsWith(models.RoleHeadteacher), ResourceAssignments, ActionDelete, true},
		{"teacher cannot create classes", claimsWith(models.RoleTeacher), ResourceClasses, ActionCreate, false},
		{"teacher cannot delete assignments", claimsWith(models.RoleTeacher), ResourceAssignments, ActionDelete, false},
		{"headteacher cannot delete classes", claimsWith(models.RoleHeadteacher), ResourceClasses, ActionDelete, false},
		{"teacher records attendance", claimsWith(models.RoleTeacher), ResourceAttendance, ActionCreate, true},
		{"teacher reads reports", claimsWith(models.RoleTeacher), ResourceReports, ActionRead, true},
		{"unknown resource denied", claimsWith(models.RoleAdmin), "gradebooks", ActionRead, false},
		{"nil claims denied", nil, ResourceStudents, ActionRead, false},
		{"multi role takes strongest", claimsWith(models.RoleTeacher, models.RoleAdmin), ResourceUsers, ActionList, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Allowed(tc.claims, tc.resource, tc.action))
		})
	}
}

func TestCheckReturnsForbidden(t *testing.T) {
	err := Check(claimsWith(models.RoleTeacher), ResourceUsers, ActionList)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden, err)

	assert.NoError(t, Check(claimsWith(models.RoleAdmin), ResourceUsers, ActionList))
}

func TestSelfAccessOnOwnUserRecord(t *testing.T) {
	teacher := claimsWith(models.RoleTeacher)

	assert.True(t, AllowedSelf(teacher, ResourceUsers, ActionRead, teacher.UserID))
	assert.True(t, AllowedSelf(teacher, ResourceUsers, ActionUpdate, teacher.UserID))
	assert.False(t, AllowedSelf(teacher, ResourceUsers, ActionRead, teacher.UserID+1))
	assert.False(t, AllowedSelf(teacher, ResourceUsers, ActionUpdate, teacher.UserID+1))
	assert.False(t, AllowedSelf(teacher, ResourceUsers, ActionDelete, teacher.UserID))

	admin := claimsWith(models.RoleAdmin)
	assert.True(t, AllowedSelf(admin, ResourceUsers, ActionUpdate, admin.UserID+1))
	assert.False(t, AllowedSelf(nil, ResourceUsers, ActionRead, 7))

	assert.NoError(t, CheckSelf(teacher, ResourceUsers, ActionUpdate, teacher.UserID))
	assert.Equal(t, appErrors.ErrForbidden, CheckSelf(teacher, ResourceUsers, ActionUpdate, teacher.UserID+1))
}

func TestRecorderOwnership(t *testing.T) {
	owner := claimsWith(models.RoleTeacher)

	assert.NoError(t, CheckRecorderOwnership(owner, owner.UserID))
	assert.Equal(t, appErrors.ErrForbidden, CheckRecorderOwnership(owner, owner.UserID+1))
	assert.NoError(t, CheckRecorderOwnership(claimsWith(models.RoleHeadteacher), 99))
	assert.NoError(t, CheckRecorderOwnership(claimsWith(models.RoleAdmin), 99))
	assert.Equal(t, appErrors.ErrUnauthorized, CheckRecorderOwnership(nil, 1))
}

func TestReportScope(t *testing.T) {
	teacher := ReportScope(claimsWith(models.RoleTeacher))
	assert.True(t, teacher.Restricted)
	assert.Equal(t, int64(7), teacher.UserID)

	assert.False(t, ReportScope(claimsWith(models.RoleHeadteacher)).Restricted)
	assert.False(t, ReportScope(claimsWith(models.RoleAdmin)).Restricted)
	assert.True(t, ReportScope(nil).Restricted)
}

func TestRecorderOwnedRulesMarked(t *testing.T) {
	for _, resource := range []string{ResourceAttendance, ResourcePerformance} {
		for _, action := range []Action{ActionUpdate, ActionDelete} {
			rule, ok := Lookup(resource, action)
			require.True(t, ok, "%s %s", resource, action)
			assert.True(t, rule.RecorderOwned, "%s %s", resource, action)
		}
	}
}
