package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-backend/internal/pkg/auth"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "Rx!7vKm9qZ"

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&User{}))

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessTokenExpiry = 15 * time.Minute
	cfg.JWT.RefreshTokenExpiry = 24 * time.Hour
	cfg.Security.BcryptCost = 4

	return NewService(db, cfg)
}

func TestCreateUser(t *testing.T) {
	s := newTestService(t)

	u, err := s.CreateUser(&CreateUserRequest{
		Email:    "Cashier@Pharmacy.test",
		Password: testPassword,
		FullName: "สมหญิง ใจดี",
		Role:     auth.RoleCashier,
	})
	require.NoError(t, err)
	assert.Equal(t, "cashier@pharmacy.test", u.Email)
	assert.Equal(t, auth.RoleCashier, u.Role)
	assert.NotEqual(t, testPassword, u.Password)
	assert.True(t, u.IsActive)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := newTestService(t)

	req := &CreateUserRequest{
		Email:    "staff@pharmacy.test",
		Password: testPassword,
		FullName: "Staff",
		Role:     auth.RoleStaff,
	}
	_, err := s.CreateUser(req)
	require.NoError(t, err)

	_, err = s.CreateUser(req)
	assert.Equal(t, apperrors.CodeIntegrityViolation, apperrors.CodeOf(err))
}

func TestCreateUserValidation(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateUser(&CreateUserRequest{
		Email:    "x@pharmacy.test",
		Password: testPassword,
		FullName: "X",
		Role:     auth.Role("janitor"),
	})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	// Pharmacists must carry a license number.
	_, err = s.CreateUser(&CreateUserRequest{
		Email:    "ph@pharmacy.test",
		Password: testPassword,
		FullName: "Pharmacist",
		Role:     auth.RolePharmacist,
	})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = s.CreateUser(&CreateUserRequest{
		Email:    "weak@pharmacy.test",
		Password: "short",
		FullName: "Weak",
		Role:     auth.RoleStaff,
	})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestLogin(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateUser(&CreateUserRequest{
		Email:    "manager@pharmacy.test",
		Password: testPassword,
		FullName: "Manager",
		Role:     auth.RoleManager,
	})
	require.NoError(t, err)

	resp, err := s.Login(&LoginRequest{Email: "manager@pharmacy.test", Password: testPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := auth.NewJWTManager(s.config).ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleManager, claims.Role)

	_, err = s.Login(&LoginRequest{Email: "manager@pharmacy.test", Password: "wrong"})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestLoginDisabledAccount(t *testing.T) {
	s := newTestService(t)

	u, err := s.CreateUser(&CreateUserRequest{
		Email:    "gone@pharmacy.test",
		Password: testPassword,
		FullName: "Gone",
		Role:     auth.RoleStaff,
	})
	require.NoError(t, err)
	require.NoError(t, s.DeactivateUser(u.ID))

	_, err = s.Login(&LoginRequest{Email: "gone@pharmacy.test", Password: testPassword})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestRefreshToken(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateUser(&CreateUserRequest{
		Email:    "staff@pharmacy.test",
		Password: testPassword,
		FullName: "Staff",
		Role:     auth.RoleStaff,
	})
	require.NoError(t, err)

	resp, err := s.Login(&LoginRequest{Email: "staff@pharmacy.test", Password: testPassword})
	require.NoError(t, err)

	refreshed, err := s.RefreshToken(resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = s.RefreshToken("not-a-token")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestChangePassword(t *testing.T) {
	s := newTestService(t)

	u, err := s.CreateUser(&CreateUserRequest{
		Email:    "staff@pharmacy.test",
		Password: testPassword,
		FullName: "Staff",
		Role:     auth.RoleStaff,
	})
	require.NoError(t, err)

	err = s.ChangePassword(u.ID, &ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "Nx!4wPm8rT",
	})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	err = s.ChangePassword(u.ID, &ChangePasswordRequest{
		CurrentPassword: testPassword,
		NewPassword:     "Nx!4wPm8rT",
	})
	require.NoError(t, err)

	_, err = s.Login(&LoginRequest{Email: "staff@pharmacy.test", Password: "Nx!4wPm8rT"})
	require.NoError(t, err)
}
