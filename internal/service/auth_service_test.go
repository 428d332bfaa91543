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
	"golang.org/x/crypto/bcrypt"

	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[int64]*models.User
	emailIndex    map[string]int64
	roles         map[int64][]string
	defaultRole   *models.Role
	rolesByName   map[string]*models.Role
	assigned      map[int64][]int64
	refreshTokens map[string]*models.RefreshToken
	actionTokens  map[string]*models.ActionToken
	nextID        int64
	revokedAll    []int64
	revokedIDs    []int64
	verified      []int64
	consumed      []int64
	passwords     map[int64]string
	auditLogs     []models.AuditLog
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if id, ok := m.emailIndex[email]; ok {
		cp := *m.users[id]
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[int64]*models.User)
		m.emailIndex = make(map[string]int64)
	}
	if _, ok := m.emailIndex[user.Email]; ok {
		return appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	m.nextID++
	user.ID = m.nextID
	cp := *user
	m.users[user.ID] = &cp
	m.emailIndex[user.Email] = user.ID
	return nil
}

func (m *mockAuthRepo) RoleNames(ctx context.Context, userID int64) ([]string, error) {
	return m.roles[userID], nil
}

func (m *mockAuthRepo) FindDefaultRole(ctx context.Context) (*models.Role, error) {
	if m.defaultRole != nil {
		return m.defaultRole, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	if r, ok := m.rolesByName[name]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	if m.assigned == nil {
		m.assigned = make(map[int64][]int64)
	}
	m.assigned[userID] = append(m.assigned[userID], roleID)
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	if m.passwords == nil {
		m.passwords = make(map[int64]string)
	}
	m.passwords[id] = passwordHash
	return nil
}

func (m *mockAuthRepo) MarkEmailVerified(ctx context.Context, id int64, ts time.Time) error {
	m.verified = append(m.verified, id)
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.nextID++
	token.ID = m.nextID
	cp := *token
	m.refreshTokens[token.Token] = &cp
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id int64, revokedAt time.Time) error {
	m.revokedIDs = append(m.revokedIDs, id)
	for _, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateActionToken(ctx context.Context, token *models.ActionToken) error {
	if m.actionTokens == nil {
		m.actionTokens = make(map[string]*models.ActionToken)
	}
	m.nextID++
	token.ID = m.nextID
	cp := *token
	m.actionTokens[token.Token] = &cp
	return nil
}

func (m *mockAuthRepo) FindActionToken(ctx context.Context, token string, purpose models.ActionTokenPurpose) (*models.ActionToken, error) {
	if t, ok := m.actionTokens[token]; ok && t.Purpose == purpose {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) ConsumeActionToken(ctx context.Context, id int64, ts time.Time) error {
	m.consumed = append(m.consumed, id)
	for _, t := range m.actionTokens {
		if t.ID == id {
			t.Consumed = true
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, *log)
	return nil
}

type mockAuthMailer struct {
	verifications []string
	resets        []string
}

func (m *mockAuthMailer) SendVerification(user models.User, token string) {
	m.verifications = append(m.verifications, token)
}

func (m *mockAuthMailer) SendPasswordReset(user models.User, token string) {
	m.resets = append(m.resets, token)
}

func hashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthFixture(repo *mockAuthRepo, mailer *mockAuthMailer) *AuthService {
	return NewAuthService(repo, mailer, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "elimu-api",
	})
}

func TestAuthRegisterPendingApproval(t *testing.T) {
	repo := &mockAuthRepo{defaultRole: &models.Role{ID: 1, Name: models.RoleTeacher, IsDefault: true}}
	mailer := &mockAuthMailer{}
	svc := newAuthFixture(repo, mailer)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "new@school.ke",
		Username: "newuser",
		Password: "supersecret",
		FullName: "New User",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleTeacher}, info.Roles)
	assert.False(t, repo.users[info.ID].Active)
	assert.Len(t, mailer.verifications, 1)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionRegister, repo.auditLogs[0].Action)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	repo := &mockAuthRepo{defaultRole: &models.Role{ID: 1, Name: models.RoleTeacher}}
	svc := newAuthFixture(repo, &mockAuthMailer{})

	req := models.RegisterRequest{
		Email:    "dup@school.ke",
		Username: "first",
		Password: "supersecret",
		FullName: "First",
	}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	req.Username = "second"
	_, err = svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthLogin(t *testing.T) {
	repo := &mockAuthRepo{
		users: map[int64]*models.User{
			1: {ID: 1, Email: "t@school.ke", PasswordHash: hashPassword(t, "supersecret"), Active: true},
		},
		emailIndex: map[string]int64{"t@school.ke": 1},
		roles:      map[int64][]string{1: {models.RoleTeacher}},
	}
	svc := newAuthFixture(repo, &mockAuthMailer{})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "t@school.ke", Password: "supersecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, []string{models.RoleTeacher}, resp.User.Roles)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
	assert.True(t, claims.HasRole(models.RoleTeacher))
}

func TestAuthLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{
		users: map[int64]*models.User{
			1: {ID: 1, Email: "t@school.ke", PasswordHash: hashPassword(t, "supersecret"), Active: true},
		},
		emailIndex: map[string]int64{"t@school.ke": 1},
	}
	svc := newAuthFixture(repo, &mockAuthMailer{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "t@school.ke", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginPendingAccount(t *testing.T) {
	repo := &mockAuthRepo{
		users: map[int64]*models.User{
			1: {ID: 1, Email: "t@school.ke", PasswordHash: hashPassword(t, "supersecret"), Active: false},
		},
		emailIndex: map[string]int64{"t@school.ke": 1},
	}
	svc := newAuthFixture(repo, &mockAuthMailer{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "t@school.ke", Password: "supersecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshRotatesToken(t *testing.T) {
	repo := &mockAuthRepo{
		users: map[int64]*models.User{
			1: {ID: 1, Email: "t@school.ke", Active: true},
		},
		refreshTokens: map[string]*models.RefreshToken{
			"old-token": {ID: 9, UserID: 1, Token: "old-token", ExpiresAt: time.Now().UTC().Add(time.Hour)},
		},
		roles: map[int64][]string{1: {models.RoleTeacher}},
	}
	svc := newAuthFixture(repo, &mockAuthMailer{})

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.Contains(t, repo.revokedIDs, int64(9))

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthRefreshExpiredToken(t *testing.T) {
	repo := &mockAuthRepo{
		refreshTokens: map[string]*models.RefreshToken{
			"stale": {ID: 9, UserID: 1, Token: "stale", ExpiresAt: time.Now().UTC().Add(-time.Hour)},
		},
	}
	svc := newAuthFixture(repo, &mockAuthMailer{})

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthChangePassword(t *testing.T) {
	repo := &mockAuthRepo{
		users: map[int64]*models.User{
			1: {ID: 1, PasswordHash: hashPassword(t, "oldsecret1"), Active: true},
		},
	}
	svc := newAuthFixture(repo, &mockAuthMailer{})

	err := svc.ChangePassword(context.Background(), 1, models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newsecret1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.ChangePassword(context.Background(), 1, models.ChangePasswordRequest{
		OldPassword: "oldsecret1",
		NewPassword: "newsecret1",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revokedAll, int64(1))
	assert.NotEmpty(t, repo.passwords[1])
}

func TestAuthForgotPasswordUnknownEmailSilent(t *testing.T) {
	mailer := &mockAuthMailer{}
	svc := newAuthFixture(&mockAuthRepo{}, mailer)

	err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "ghost@school.ke"})
	require.NoError(t, err)
	assert.Empty(t, mailer.resets)
}

func TestAuthResetPasswordSingleUse(t *testing.T) {
	repo := &mockAuthRepo{
		users: map[int64]*models.User{1: {ID: 1}},
		actionTokens: map[string]*models.ActionToken{
			"reset-1": {ID: 3, UserID: 1, Token: "reset-1", Purpose: models.TokenPurposePasswordReset, ExpiresAt: time.Now().UTC().Add(time.Hour)},
		},
	}
	svc := newAuthFixture(repo, &mockAuthMailer{})

	err := svc.ResetPassword(context.Background(), "reset-1", models.ResetPasswordRequest{NewPassword: "freshsecret"})
	require.NoError(t, err)
	assert.Contains(t, repo.consumed, int64(3))
	assert.Contains(t, repo.revokedAll, int64(1))

	err = svc.ResetPassword(context.Background(), "reset-1", models.ResetPasswordRequest{NewPassword: "freshsecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthVerifyEmail(t *testing.T) {
	repo := &mockAuthRepo{
		actionTokens: map[string]*models.ActionToken{
			"verify-1": {ID: 4, UserID: 1, Token: "verify-1", Purpose: models.TokenPurposeEmailVerify, ExpiresAt: time.Now().UTC().Add(time.Hour)},
		},
	}
	svc := newAuthFixture(repo, &mockAuthMailer{})

	require.NoError(t, svc.VerifyEmail(context.Background(), "verify-1"))
	assert.Contains(t, repo.verified, int64(1))

	err := svc.VerifyEmail(context.Background(), "verify-1")
	require.Error(t, err)
}

func TestAuthValidateTokenRejectsTampered(t *testing.T) {
	svc := newAuthFixture(&mockAuthRepo{}, &mockAuthMailer{})

	_, err := svc.ValidateToken("not.a.jwt")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
