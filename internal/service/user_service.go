package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/elimu-labs/elimu-api/internal/models"
	appErrors "github.com/elimu-labs/elimu-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	RoleNames(ctx context.Context, userID int64) ([]string, error)
	Update(ctx context.Context, user *models.User) error
	Approve(ctx context.Context, id int64, ts time.Time) error
	Delete(ctx context.Context, id int64) error
	CountReferences(ctx context.Context, id int64) (int, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
	CreateRole(ctx context.Context, role *models.Role) error
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	RevokeUserRefreshTokens(ctx context.Context, userID int64) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type userMailer interface {
	SendApprovalNotice(user models.User)
}

// UserService is the admin-facing user management surface.
type UserService struct {
	repo      userRepository
	mailer    userMailer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, mailer userMailer, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, mailer: mailer, validator: validate, logger: logger}
}

// List returns users matching the filter, each with their role names.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.UserWithRoles, int, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	out := make([]models.UserWithRoles, 0, len(users))
	for _, u := range users {
		roles, err := s.repo.RoleNames(ctx, u.ID)
		if err != nil {
			return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user roles")
		}
		out = append(out, models.UserWithRoles{User: u, Roles: roles})
	}
	return out, total, nil
}

// Get loads one user with their roles.
func (s *UserService) Get(ctx context.Context, id int64) (*models.UserWithRoles, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	roles, err := s.repo.RoleNames(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user roles")
	}
	return &models.UserWithRoles{User: *user, Roles: roles}, nil
}

// Update modifies mutable profile fields. Changing the active flag is an
// admin action; deactivating a user also revokes their refresh tokens.
func (s *UserService) Update(ctx context.Context, actor *models.JWTClaims, id int64, req models.UserUpdateRequest) (*models.UserWithRoles, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	if req.Active != nil {
		if actor == nil {
			return nil, appErrors.ErrUnauthorized
		}
		if !actor.HasRole(models.RoleAdmin) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may change account status")
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	deactivated := false
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Active != nil {
		deactivated = user.Active && !*req.Active
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	if deactivated {
		if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
			s.logger.Warn("failed to revoke refresh tokens for deactivated user", zap.Int64("user_id", id), zap.Error(err))
		}
	}

	return s.Get(ctx, id)
}

// Approve activates a pending account and notifies the user by mail.
func (s *UserService) Approve(ctx context.Context, actor *models.JWTClaims, id int64) (*models.UserWithRoles, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user is already active")
	}

	if err := s.repo.Approve(ctx, id, time.Now()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve user")
	}

	if s.mailer != nil {
		s.mailer.SendApprovalNotice(*user)
	}

	resourceID := fmt.Sprintf("%d", id)
	audit := &models.AuditLog{
		Action:     models.AuditActionApprove,
		Resource:   "users",
		ResourceID: &resourceID,
	}
	if actor != nil {
		audit.UserID = &actor.UserID
	}
	if err := s.repo.CreateAuditLog(ctx, audit); err != nil {
		s.logger.Warn("failed to write approval audit log", zap.Int64("user_id", id), zap.Error(err))
	}

	return s.Get(ctx, id)
}

// Delete removes a user unless classes, sessions or records still reference
// them.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	count, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count user references")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "user has assigned classes or recorded data")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	return nil
}

// ListRoles returns every defined role.
func (s *UserService) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roles")
	}
	return roles, nil
}

// CreateRole defines a new role. Names are unique.
func (s *UserService) CreateRole(ctx context.Context, req models.RoleCreateRequest) (*models.Role, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}

	role := &models.Role{
		Name:        req.Name,
		Description: req.Description,
		IsDefault:   req.IsDefault,
	}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create role")
	}
	return role, nil
}

// AssignRole grants the named role to a user.
func (s *UserService) AssignRole(ctx context.Context, userID int64, req models.RoleAssignmentRequest) (*models.UserWithRoles, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}

	role, err := s.lookupRole(ctx, userID, req.RoleName)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AssignRole(ctx, userID, role.ID); err != nil {
		if appErr := asAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}
	return s.Get(ctx, userID)
}

// RemoveRole revokes the named role from a user.
func (s *UserService) RemoveRole(ctx context.Context, userID int64, req models.RoleAssignmentRequest) (*models.UserWithRoles, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}

	role, err := s.lookupRole(ctx, userID, req.RoleName)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RemoveRole(ctx, userID, role.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove role")
	}
	return s.Get(ctx, userID)
}

func (s *UserService) lookupRole(ctx context.Context, userID int64, roleName string) (*models.Role, error) {
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	role, err := s.repo.FindRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "role does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
	}
	return role, nil
}
