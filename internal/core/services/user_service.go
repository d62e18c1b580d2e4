package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/core/domain"
	"liblend/internal/pkg/pagination"
)

// UserService manages student and admin accounts
type UserService struct {
	userRepo repositories.UserStore
	audit    *AuditService
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserStore, audit *AuditService) *UserService {
	return &UserService{
		userRepo: userRepo,
		audit:    audit,
	}
}

// UpdateStudentInput represents admin-side account update input
type UpdateStudentInput struct {
	RegisteredNumber *string `json:"registered_number,omitempty"`
	FullName         *string `json:"full_name,omitempty"`
	Email            *string `json:"email,omitempty"`
	Role             *string `json:"role,omitempty"`
	DepartmentID     *uint   `json:"department_id,omitempty"`
	IsActive         *bool   `json:"is_active,omitempty"`
}

// UpdateProfileInput represents self-service profile update input
type UpdateProfileInput struct {
	FullName     *string `json:"full_name,omitempty"`
	DepartmentID *uint   `json:"department_id,omitempty"`
}

// UserListOutput represents an account listing page
type UserListOutput struct {
	Users []*models.UserResponse `json:"users"`
	Meta  *pagination.Meta       `json:"meta"`
}

// GetByID returns one account
func (s *UserService) GetByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List lists accounts with optional search (admin only)
func (s *UserService) List(ctx context.Context, search string, params *pagination.Params, adminID uint) (*UserListOutput, error) {
	if err := requireAdmin(ctx, s.userRepo, adminID); err != nil {
		return nil, err
	}

	users, total, err := s.userRepo.List(ctx, search, params.Offset, params.Limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, u.ToResponse())
	}
	return &UserListOutput{
		Users: responses,
		Meta:  pagination.GetMeta(params, total),
	}, nil
}

// UpdateStudent edits an account (admin only). Demoting or deactivating
// the last remaining active admin is refused so the system cannot lock
// itself out of administration.
func (s *UserService) UpdateStudent(ctx context.Context, userID uint, input *UpdateStudentInput, adminID uint) (*models.User, error) {
	if err := requireAdmin(ctx, s.userRepo, adminID); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	demoting := input.Role != nil && *input.Role != string(domain.RoleAdmin) && user.IsAdmin()
	deactivating := input.IsActive != nil && !*input.IsActive && user.IsAdmin()
	if demoting || deactivating {
		admins, err := s.userRepo.CountAdmins(ctx)
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, domain.ErrLastAdmin
		}
	}

	if input.RegisteredNumber != nil && *input.RegisteredNumber != user.RegisteredNumber {
		taken, err := s.userRepo.ExistsByRegisteredNumber(ctx, *input.RegisteredNumber, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrDuplicateRegNumber
		}
		user.RegisteredNumber = *input.RegisteredNumber
	}
	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Role != nil {
		if *input.Role != string(domain.RoleStudent) && *input.Role != string(domain.RoleAdmin) {
			return nil, domain.ErrValidation
		}
		user.Role = *input.Role
	}
	if input.DepartmentID != nil {
		user.DepartmentID = input.DepartmentID
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if auditErr := s.audit.Record(ctx, adminID, models.AuditStudentUpdate, map[string]interface{}{
		"user_id": userID,
	}); auditErr != nil {
		logDegradedAudit(models.AuditStudentUpdate, adminID, auditErr)
	}
	return user, nil
}

// UpdateProfile lets an authenticated user edit their own account.
// Role, activation and registration number stay admin-only.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input *UpdateProfileInput) (*models.User, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.DepartmentID != nil {
		user.DepartmentID = input.DepartmentID
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ListDepartments lists all departments
func (s *UserService) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	return s.userRepo.ListDepartments(ctx)
}
