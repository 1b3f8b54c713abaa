// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"github.com/your-org/pharmacy-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// User represents a staff account
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password    string     `gorm:"not null;size:255" json:"-"`
	FullName    string     `gorm:"not null;size:255" json:"full_name"`
	Role        auth.Role  `gorm:"not null;size:20;default:staff" json:"role"`
	Phone       string     `gorm:"size:20" json:"phone"`
	LicenseNo   string     `gorm:"size:50" json:"license_no"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook normalizes the email before insert
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Email = strings.ToLower(u.Email)
	return nil
}

// CanAuthorize reports whether the user's role grants one of the given roles.
// Admin passes every check.
func (u *User) CanAuthorize(roles ...auth.Role) bool {
	if u.Role == auth.RoleAdmin {
		return true
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
