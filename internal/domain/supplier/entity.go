// internal/domain/supplier/entity.go
package supplier

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier represents a pharmaceutical supplier or distributor
type Supplier struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Code string `json:"code" gorm:"uniqueIndex;not null;size:50"`

	// Company info
	NameTH string `json:"name_th" gorm:"not null;size:255"`
	NameEN string `json:"name_en" gorm:"size:255"`
	TaxID  string `json:"tax_id" gorm:"size:20;index"`

	// Contact
	ContactPerson string `json:"contact_person" gorm:"size:255"`
	Email         string `json:"email" gorm:"size:255"`
	Phone         string `json:"phone" gorm:"size:20"`
	Fax           string `json:"fax" gorm:"size:20"`
	Mobile        string `json:"mobile" gorm:"size:20"`

	// Address
	Address    string `json:"address" gorm:"type:text"`
	City       string `json:"city" gorm:"size:100"`
	Province   string `json:"province" gorm:"size:100"`
	PostalCode string `json:"postal_code" gorm:"size:10"`
	Country    string `json:"country" gorm:"size:100;default:Thailand"`

	// Business terms
	PaymentTerms  string          `json:"payment_terms" gorm:"size:100"`
	CreditLimit   decimal.Decimal `json:"credit_limit" gorm:"type:decimal(12,2);default:0"`
	DiscountTerms string          `json:"discount_terms" gorm:"size:100"`

	IsActive bool   `json:"is_active" gorm:"default:true"`
	Rating   string `json:"rating" gorm:"size:10"`
	Notes    string `json:"notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for Supplier model
func (Supplier) TableName() string {
	return "suppliers"
}
