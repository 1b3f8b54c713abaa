// internal/domain/customer/entity.go
package customer

import "time"

// Customer represents a pharmacy customer
type Customer struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Code string `json:"code" gorm:"uniqueIndex;not null;size:50"`

	// Personal info
	Name        string     `json:"name" gorm:"not null;size:255"`
	NationalID  string     `json:"national_id" gorm:"size:20"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      string     `json:"gender" gorm:"size:10"`

	// Contact
	Email  string `json:"email" gorm:"size:255"`
	Phone  string `json:"phone" gorm:"size:20"`
	Mobile string `json:"mobile" gorm:"size:20"`

	// Address
	Address    string `json:"address" gorm:"type:text"`
	City       string `json:"city" gorm:"size:100"`
	Province   string `json:"province" gorm:"size:100"`
	PostalCode string `json:"postal_code" gorm:"size:10"`

	// Loyalty program
	LoyaltyPoints  int        `json:"loyalty_points" gorm:"default:0"`
	MemberSince    *time.Time `json:"member_since"`
	MembershipTier string     `json:"membership_tier" gorm:"size:50"`

	// Medical info kept for dispensing safety checks
	Allergies         string `json:"allergies" gorm:"type:text"`
	ChronicConditions string `json:"chronic_conditions" gorm:"type:text"`

	IsActive bool   `json:"is_active" gorm:"default:true"`
	Notes    string `json:"notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for Customer model
func (Customer) TableName() string {
	return "customers"
}
