package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/config"
	"liblend/internal/core/domain"
	"liblend/internal/pkg/jwt"
	"liblend/internal/pkg/password"
)

// AuthService handles registration, login and token lifecycle
type AuthService struct {
	userRepo  *repositories.UserRepository
	tokenRepo *repositories.RefreshTokenRepository
	jwtConfig *config.JWTConfig
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repositories.UserRepository, tokenRepo *repositories.RefreshTokenRepository, jwtConfig *config.JWTConfig) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		jwtConfig: jwtConfig,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	RegisteredNumber string `json:"registered_number" validate:"required"`
	FullName         string `json:"full_name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	DepartmentID     *uint  `json:"department_id,omitempty"`
}

// LoginInput represents login input
type LoginInput struct {
	RegisteredNumber string `json:"registered_number" validate:"required"`
	Password         string `json:"password" validate:"required"`
}

// AuthOutput represents a successful authentication
type AuthOutput struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

// Register creates a new student account
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	if input.RegisteredNumber == "" || input.FullName == "" || input.Email == "" {
		return nil, domain.ErrValidation
	}
	if !password.Validate(input.Password) {
		return nil, domain.ErrValidation
	}

	taken, err := s.userRepo.ExistsByRegisteredNumber(ctx, input.RegisteredNumber, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrDuplicateRegNumber
	}
	if _, err := s.userRepo.GetByEmail(ctx, input.Email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		RegisteredNumber: input.RegisteredNumber,
		FullName:         input.FullName,
		Email:            input.Email,
		Password:         hashed,
		Role:             string(domain.RoleStudent),
		DepartmentID:     input.DepartmentID,
		IsActive:         true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("✅ New account registered: %s", user.RegisteredNumber)
	return s.issueTokens(ctx, user)
}

// Login authenticates by registration number and password
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	user, err := s.userRepo.GetByRegisteredNumber(ctx, input.RegisteredNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, domain.ErrForbidden
	}
	if !password.Verify(input.Password, user.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token and returns a fresh token pair. The
// presented token is revoked whether or not rotation succeeds, so a
// replayed token is always dead.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthOutput, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.jwtConfig.Secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	tokenHash := password.HashToken(refreshToken)
	stored, err := s.tokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}
	if stored.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	if err := s.tokenRepo.RevokeByTokenHash(ctx, tokenHash); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrForbidden
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes the presented refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	tokenHash := password.HashToken(refreshToken)
	return s.tokenRepo.RevokeByTokenHash(ctx, tokenHash)
}

// LogoutAll revokes every refresh token belonging to the user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	if userID == 0 {
		return domain.ErrUnauthenticated
	}
	return s.tokenRepo.RevokeAllByUserID(ctx, userID)
}

// ChangePassword verifies the old password and sets a new one, then
// revokes all outstanding refresh tokens for the account.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	if userID == 0 {
		return domain.ErrUnauthenticated
	}
	if !password.Validate(newPassword) {
		return domain.ErrValidation
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}
	if !password.Verify(oldPassword, user.Password) {
		return domain.ErrInvalidCredentials
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	return s.tokenRepo.RevokeAllByUserID(ctx, userID)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*AuthOutput, error) {
	accessToken, err := jwt.GenerateAccessToken(user.ID, user.RegisteredNumber, user.Role, s.jwtConfig.Secret, s.jwtConfig.AccessExpiryMinutes)
	if err != nil {
		return nil, err
	}

	tokenID := uuid.New().String()
	refreshToken, err := jwt.GenerateRefreshToken(user.ID, tokenID, s.jwtConfig.Secret, s.jwtConfig.RefreshExpiryDays)
	if err != nil {
		return nil, err
	}

	if err := s.tokenRepo.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.jwtConfig.RefreshExpiryDays),
	}); err != nil {
		return nil, err
	}

	return &AuthOutput{
		User:         user.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
