package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

// NewUserService creates the account administration service.
func NewUserService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// GetByID retrieves an account
func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// List retrieves accounts matching filters (admin directory)
func (s *userService) List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}

	users, total, err := s.repo.User().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	page := 1
	if filters.Limit > 0 {
		page = filters.Offset/filters.Limit + 1
	}

	return &UserListResponse{
		Users: users,
		Total: total,
		Page:  page,
		Size:  filters.Limit,
	}, nil
}

// Update changes mutable account fields. Only the owner or an admin may
// do so; the caller's role gate lives in the handler, self-only is
// enforced here.
func (s *userService) Update(ctx context.Context, actorID, userID string, req *UpdateUserRequest) (*models.User, error) {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if actorID != userID {
		actor, err := s.GetByID(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if actor.Role != models.RoleAdmin {
			return nil, NewPermissionError(actorID, "update", "user "+userID)
		}
	}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}

	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// ChangeRole moves an account to a different role (admin operation).
func (s *userService) ChangeRole(ctx context.Context, actorID, userID string, role models.UserRole) error {
	if !models.ValidRole(role) {
		return NewBusinessRuleError("user_role", "unknown role %q", role)
	}

	actor, err := s.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin {
		return NewPermissionError(actorID, "change role of", "user "+userID)
	}

	if err := s.repo.User().UpdateRole(ctx, nil, userID, role); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to change role: %w", err)
	}

	s.logger.InfoContext(ctx, "User role changed",
		"user_id", userID,
		"role", role,
		"changed_by", actorID)

	return nil
}

// ChangePassword replaces an account's password hash. Owners must prove
// the current password; admins reset without it.
func (s *userService) ChangePassword(ctx context.Context, actorID, userID string, req *ChangePasswordRequest) error {
	if errs := s.validator.Validate(req); errs.HasErrors() {
		return errs
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if actorID == userID {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			return ErrInvalidCredentials
		}
	} else {
		actor, err := s.GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleAdmin {
			return NewPermissionError(actorID, "change password of", "user "+userID)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	s.logger.InfoContext(ctx, "Password changed",
		"user_id", userID,
		"changed_by", actorID)

	return nil
}

// Delete removes an account. The profile companion goes in the same
// transaction; an account without a profile is not an error.
func (s *userService) Delete(ctx context.Context, actorID, userID string) error {
	if actorID != userID {
		actor, err := s.GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleAdmin {
			return NewPermissionError(actorID, "delete", "user "+userID)
		}
	}

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.User().Delete(ctx, nil, userID); err != nil {
			return err
		}

		if err := txRepo.TeacherProfile().DeleteByUserID(ctx, nil, userID); err != nil {
			if !repositories.IsNotFoundError(err) {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "User deleted",
		"user_id", userID,
		"deleted_by", actorID)

	return nil
}
