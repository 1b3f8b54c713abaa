// internal/domain/product/entity.go
package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// DosageForm represents the pharmaceutical dosage form
type DosageForm string

const (
	DosageFormTablet      DosageForm = "tablet"
	DosageFormCapsule     DosageForm = "capsule"
	DosageFormSyrup       DosageForm = "syrup"
	DosageFormInjection   DosageForm = "injection"
	DosageFormCream       DosageForm = "cream"
	DosageFormOintment    DosageForm = "ointment"
	DosageFormDrops       DosageForm = "drops"
	DosageFormPowder      DosageForm = "powder"
	DosageFormSuppository DosageForm = "suppository"
)

// DrugType represents the regulatory classification of a drug
type DrugType string

const (
	DrugTypePrescription DrugType = "prescription"
	DrugTypeOTC          DrugType = "otc"
	DrugTypeControlled   DrugType = "controlled"
	DrugTypeDangerous    DrugType = "dangerous"
)

// VATCategory tags how a product is treated for Thai VAT reporting
type VATCategory string

const (
	VATCategoryStandard  VATCategory = "standard"
	VATCategoryExempt    VATCategory = "exempt"
	VATCategoryZeroRated VATCategory = "zero_rated"
)

// Category represents a product category. Categories form a tree via ParentID;
// a category can never become its own ancestor.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"uniqueIndex;not null;size:50" json:"code"`
	NameTH      string    `gorm:"not null;size:255" json:"name_th"`
	NameEN      string    `gorm:"size:255" json:"name_en"`
	Description string    `gorm:"type:text" json:"description"`
	ParentID    *uint     `gorm:"index" json:"parent_id"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Products []Product  `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

// Product represents a pharmacy product. Identity (SKU, barcode) is immutable;
// pricing, VAT configuration and stock thresholds are mutable. Products are
// deactivated via IsActive, never hard-deleted while lots or order items
// reference them.
type Product struct {
	ID      uint    `gorm:"primaryKey" json:"id"`
	SKU     string  `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Barcode *string `gorm:"uniqueIndex;size:100" json:"barcode"` // nullable, unique when set

	// Names
	NameTH      string `gorm:"not null;size:255" json:"name_th"`
	NameEN      string `gorm:"size:255" json:"name_en"`
	GenericName string `gorm:"size:255" json:"generic_name"`
	Description string `gorm:"type:text" json:"description"`

	// Category
	CategoryID *uint `gorm:"index" json:"category_id"`

	// Pharmaceutical details
	ActiveIngredient string     `gorm:"size:500" json:"active_ingredient"`
	DosageForm       DosageForm `gorm:"size:50" json:"dosage_form"`
	Strength         string     `gorm:"size:100" json:"strength"` // e.g. "500mg"
	DrugType         DrugType   `gorm:"size:50;default:'otc'" json:"drug_type"`
	FDANumber        string     `gorm:"size:100" json:"fda_number"`
	Manufacturer     string     `gorm:"size:255" json:"manufacturer"`

	// Pricing
	CostPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"cost_price"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"selling_price"`

	// VAT configuration (Thailand tax compliance)
	IsVATApplicable bool            `gorm:"default:true" json:"is_vat_applicable"`
	VATRate         decimal.Decimal `gorm:"type:decimal(5,2);default:7.00" json:"vat_rate"`
	VATCategory     VATCategory     `gorm:"size:50;default:'standard'" json:"vat_category"`

	// Stock management
	UnitOfMeasure string `gorm:"size:50;default:'unit'" json:"unit_of_measure"`
	MinimumStock  int    `gorm:"default:0" json:"minimum_stock"`
	ReorderPoint  int    `gorm:"default:0" json:"reorder_point"`

	// Flags
	IsPrescriptionRequired bool `gorm:"default:false" json:"is_prescription_required"`
	IsControlledSubstance  bool `gorm:"default:false" json:"is_controlled_substance"`
	IsActive               bool `gorm:"default:true" json:"is_active"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category,omitempty"`
}

// TableName overrides
func (Product) TableName() string  { return "products" }
func (Category) TableName() string { return "categories" }

// Business methods for Product

// EffectiveVATRate returns the product's VAT rate, or zero when VAT does not apply.
func (p *Product) EffectiveVATRate() decimal.Decimal {
	if !p.IsVATApplicable {
		return decimal.Zero
	}
	return p.VATRate
}

// IsSellable reports whether the product can appear on a new sales order.
func (p *Product) IsSellable() bool {
	return p.IsActive
}
