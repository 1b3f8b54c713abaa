// internal/domain/user/service.go
package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// Service handles user accounts and authentication
type Service struct {
	db              *gorm.DB
	config          *config.Config
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
}

// NewService creates a new user service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:              db,
		config:          cfg,
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg),
	}
}

// CreateUserRequest represents staff account creation data
type CreateUserRequest struct {
	Email     string    `json:"email" binding:"required,email"`
	Password  string    `json:"password" binding:"required"`
	FullName  string    `json:"full_name" binding:"required"`
	Role      auth.Role `json:"role" binding:"required"`
	Phone     string    `json:"phone"`
	LicenseNo string    `json:"license_no"`
}

// UpdateUserRequest represents staff account update data
type UpdateUserRequest struct {
	FullName  *string    `json:"full_name"`
	Role      *auth.Role `json:"role"`
	Phone     *string    `json:"phone"`
	LicenseNo *string    `json:"license_no"`
	IsActive  *bool      `json:"is_active"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func validRole(r auth.Role) bool {
	switch r {
	case auth.RoleAdmin, auth.RoleManager, auth.RolePharmacist, auth.RoleStaff, auth.RoleCashier:
		return true
	}
	return false
}

// CreateUser creates a new staff account. Pharmacists must carry a license
// number.
func (s *Service) CreateUser(req *CreateUserRequest) (*User, error) {
	if !validRole(req.Role) {
		return nil, apperrors.Validation("invalid role '%s'", req.Role)
	}
	if req.Role == auth.RolePharmacist && req.LicenseNo == "" {
		return nil, apperrors.Validation("pharmacist accounts require a license number")
	}
	if err := s.passwordManager.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}

	var count int64
	if err := s.db.Model(&User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, apperrors.IntegrityViolation("email '%s' already registered", req.Email)
	}

	hashed, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Email:     req.Email,
		Password:  hashed,
		FullName:  req.FullName,
		Role:      req.Role,
		Phone:     req.Phone,
		LicenseNo: req.LicenseNo,
		IsActive:  true,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and issues tokens
func (s *Service) Login(req *LoginRequest) (*AuthResponse, error) {
	var user User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Validation("invalid email or password")
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.Validation("account is disabled")
	}
	if err := s.passwordManager.VerifyPassword(req.Password, user.Password); err != nil {
		return nil, apperrors.Validation("invalid email or password")
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	return s.issueTokens(&user)
}

// RefreshToken exchanges a valid refresh token for a new token pair
func (s *Service) RefreshToken(refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Validation("invalid refresh token")
	}

	var user User
	if err := s.db.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user %d not found", claims.UserID)
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.Validation("account is disabled")
	}

	return s.issueTokens(&user)
}

// ChangePassword verifies the current password and sets a new one
func (s *Service) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	if err := s.passwordManager.VerifyPassword(req.CurrentPassword, user.Password); err != nil {
		return apperrors.Validation("current password is incorrect")
	}
	if err := s.passwordManager.ValidatePassword(req.NewPassword); err != nil {
		return apperrors.Validation("%s", err.Error())
	}

	hashed, err := s.passwordManager.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.Model(user).Update("password", hashed).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(id uint) (*User, error) {
	var user User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &user, nil
}

// GetUsers lists all staff accounts
func (s *Service) GetUsers(includeInactive bool) ([]User, error) {
	query := s.db.Model(&User{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var users []User
	if err := query.Order("email asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}
	return users, nil
}

// UpdateUser updates a staff account
func (s *Service) UpdateUser(id uint, req *UpdateUserRequest) (*User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Role != nil {
		if !validRole(*req.Role) {
			return nil, apperrors.Validation("invalid role '%s'", *req.Role)
		}
		user.Role = *req.Role
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.LicenseNo != nil {
		user.LicenseNo = *req.LicenseNo
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if user.Role == auth.RolePharmacist && user.LicenseNo == "" {
		return nil, apperrors.Validation("pharmacist accounts require a license number")
	}

	if err := s.db.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// DeactivateUser disables a staff account
func (s *Service) DeactivateUser(id uint) error {
	user, err := s.GetUser(id)
	if err != nil {
		return err
	}
	user.IsActive = false
	if err := s.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	return nil
}

func (s *Service) issueTokens(user *User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.config.JWT.AccessTokenExpiry.Seconds()),
	}, nil
}
