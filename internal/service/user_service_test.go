package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

type mockUserRepo struct {
	users       map[int64]*models.User
	roles       map[int64][]string
	roleDefs    map[string]*models.Role
	refs        map[int64]int
	approved    []int64
	deleted     []int64
	revoked     []int64
	assigned    [][2]int64
	removed     [][2]int64
	auditLogs   []models.AuditLog
	createdRole *models.Role
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) RoleNames(ctx context.Context, userID int64) ([]string, error) {
	return m.roles[userID], nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) Approve(ctx context.Context, id int64, ts time.Time) error {
	m.approved = append(m.approved, id)
	if u, ok := m.users[id]; ok {
		u.Active = true
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) CountReferences(ctx context.Context, id int64) (int, error) {
	return m.refs[id], nil
}

func (m *mockUserRepo) ListRoles(ctx context.Context) ([]models.Role, error) {
	var out []models.Role
	for _, r := range m.roleDefs {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockUserRepo) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	if r, ok := m.roleDefs[name]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) CreateRole(ctx context.Context, role *models.Role) error {
	if _, ok := m.roleDefs[role.Name]; ok {
		return appErrors.Clone(appErrors.ErrConflict, "role name already exists")
	}
	role.ID = int64(len(m.roleDefs) + 1)
	m.createdRole = role
	return nil
}

func (m *mockUserRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	m.assigned = append(m.assigned, [2]int64{userID, roleID})
	return nil
}

func (m *mockUserRepo) RemoveRole(ctx context.Context, userID, roleID int64) error {
	m.removed = append(m.removed, [2]int64{userID, roleID})
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, *log)
	return nil
}

type mockApprovalMailer struct {
	notices []string
}

func (m *mockApprovalMailer) SendApprovalNotice(user models.User) {
	m.notices = append(m.notices, user.Email)
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: 1, Roles: []string{models.RoleAdmin}}
}

func TestUserApprove(t *testing.T) {
	repo := &mockUserRepo{
		users: map[int64]*models.User{
			7: {ID: 7, Email: "pending@school.ke", Active: false},
		},
		roles: map[int64][]string{7: {models.RoleTeacher}},
	}
	mailer := &mockApprovalMailer{}
	svc := NewUserService(repo, mailer, validator.New(), zap.NewNop())

	user, err := svc.Approve(context.Background(), adminClaims(), 7)
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.Equal(t, []int64{7}, repo.approved)
	assert.Equal(t, []string{"pending@school.ke"}, mailer.notices)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionApprove, repo.auditLogs[0].Action)
	require.NotNil(t, repo.auditLogs[0].UserID)
	assert.Equal(t, int64(1), *repo.auditLogs[0].UserID)
}

func TestUserApproveAlreadyActive(t *testing.T) {
	repo := &mockUserRepo{
		users: map[int64]*models.User{7: {ID: 7, Active: true}},
	}
	svc := NewUserService(repo, &mockApprovalMailer{}, validator.New(), zap.NewNop())

	_, err := svc.Approve(context.Background(), adminClaims(), 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.approved)
}

func TestUserUpdateDeactivationRevokesTokens(t *testing.T) {
	repo := &mockUserRepo{
		users: map[int64]*models.User{7: {ID: 7, FullName: "Old Name", Active: true}},
	}
	svc := NewUserService(repo, &mockApprovalMailer{}, validator.New(), zap.NewNop())

	active := false
	user, err := svc.Update(context.Background(), adminClaims(), 7, models.UserUpdateRequest{Active: &active})
	require.NoError(t, err)
	assert.False(t, user.Active)
	assert.Equal(t, []int64{7}, repo.revoked)
}

func TestUserUpdateSelfProfile(t *testing.T) {
	repo := &mockUserRepo{
		users: map[int64]*models.User{7: {ID: 7, FullName: "Old Name", Active: true}},
	}
	svc := NewUserService(repo, &mockApprovalMailer{}, validator.New(), zap.NewNop())

	self := &models.JWTClaims{UserID: 7, Roles: []string{models.RoleTeacher}}
	name := "New Name"
	user, err := svc.Update(context.Background(), self, 7, models.UserUpdateRequest{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.FullName)
}

func TestUserUpdateActiveFlagAdminOnly(t *testing.T) {
	repo := &mockUserRepo{
		users: map[int64]*models.User{7: {ID: 7, Active: true}},
	}
	svc := NewUserService(repo, &mockApprovalMailer{}, validator.New(), zap.NewNop())

	self := &models.JWTClaims{UserID: 7, Roles: []string{models.RoleTeacher}}
	active := false
	_, err := svc.Update(context.Background(), self, 7, models.UserUpdateRequest{Active: &active})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.True(t, repo.users[7].Active)
	assert.Empty(t, repo.revoked)
}

func TestUserDeleteGuardedByReferences(t *testing.T) {
	repo := &mockUserRepo{
		users: map[int64]*models.User{7: {ID: 7}},
		refs:  map[int64]int{7: 3},
	}
	svc := NewUserService(repo, &mockApprovalMailer{}, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)

	repo.refs[7] = 0
	require.NoError(t, svc.Delete(context.Background(), 7))
	assert.Equal(t, []int64{7}, repo.deleted)
}

func TestUserAssignRole(t *testing.T) {
	repo := &mockUserRepo{
		users:    map[int64]*models.User{7: {ID: 7}},
		roleDefs: map[string]*models.Role{models.RoleHeadteacher: {ID: 2, Name: models.RoleHeadteacher}},
	}
	svc := NewUserService(repo, &mockApprovalMailer{}, validator.New(), zap.NewNop())

	_, err := svc.AssignRole(context.Background(), 7, models.RoleAssignmentRequest{RoleName: models.RoleHeadteacher})
	require.NoError(t, err)
	assert.Equal(t, [][2]int64{{7, 2}}, repo.assigned)
}

func TestUserAssignUnknownRole(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{7: {ID: 7}}}
	svc := NewUserService(repo, &mockApprovalMailer{}, validator.New(), zap.NewNop())

	_, err := svc.AssignRole(context.Background(), 7, models.RoleAssignmentRequest{RoleName: "janitor"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "role does not exist", appErr.Message)
}

func TestUserCreateRoleDuplicate(t *testing.T) {
	repo := &mockUserRepo{
		roleDefs: map[string]*models.Role{"clerk": {ID: 3, Name: "clerk"}},
	}
	svc := NewUserService(repo, &mockApprovalMailer{}, validator.New(), zap.NewNop())

	_, err := svc.CreateRole(context.Background(), models.RoleCreateRequest{Name: "clerk"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
