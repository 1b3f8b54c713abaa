// internal/domain/purchase/entity.go
package purchase

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/domain/product"
	"github.com/your-org/pharmacy-backend/internal/domain/supplier"
)

// PurchaseOrderStatus represents the procurement lifecycle state
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft             PurchaseOrderStatus = "draft"
	PurchaseOrderStatusSent              PurchaseOrderStatus = "sent"
	PurchaseOrderStatusConfirmed         PurchaseOrderStatus = "confirmed"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "cancelled"
)

// PurchaseOrder represents a procurement order against a supplier
type PurchaseOrder struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	PONumber string `json:"po_number" gorm:"uniqueIndex;not null;size:100"`

	SupplierID uint `json:"supplier_id" gorm:"not null;index"`

	// Financial
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null;default:0"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:decimal(12,2);default:0"`
	TaxAmount      decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);default:0"`
	ShippingCost   decimal.Decimal `json:"shipping_cost" gorm:"type:decimal(10,2);default:0"`
	TotalAmount    decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`

	Status PurchaseOrderStatus `json:"status" gorm:"size:30;default:draft;index"`

	// Dates
	OrderDate            time.Time  `json:"order_date" gorm:"not null"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	ActualDeliveryDate   *time.Time `json:"actual_delivery_date"`

	CreatedBy  *uint `json:"created_by"`
	ApprovedBy *uint `json:"approved_by"`

	Notes              string `json:"notes" gorm:"type:text"`
	TermsAndConditions string `json:"terms_and_conditions" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Supplier *supplier.Supplier  `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Items    []PurchaseOrderItem `json:"items,omitempty" gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for PurchaseOrder model
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// CanTransitionTo reports whether the order may move to the target status.
// Receipt statuses are reached only through ReceivePurchaseOrder.
func (o *PurchaseOrder) CanTransitionTo(target PurchaseOrderStatus) bool {
	switch target {
	case PurchaseOrderStatusSent:
		return o.Status == PurchaseOrderStatusDraft
	case PurchaseOrderStatusConfirmed:
		return o.Status == PurchaseOrderStatusSent
	case PurchaseOrderStatusPartiallyReceived, PurchaseOrderStatusReceived:
		return o.Status == PurchaseOrderStatusConfirmed || o.Status == PurchaseOrderStatusPartiallyReceived
	case PurchaseOrderStatusCancelled:
		return o.Status == PurchaseOrderStatusDraft ||
			o.Status == PurchaseOrderStatusSent ||
			o.Status == PurchaseOrderStatusConfirmed
	default:
		return false
	}
}

// PurchaseOrderItem represents one ordered line. Supplier quotes differ in
// whether the price already includes VAT, so each line carries its own VAT
// mode and frozen breakdown.
type PurchaseOrderItem struct {
	ID              uint `json:"id" gorm:"primaryKey"`
	PurchaseOrderID uint `json:"purchase_order_id" gorm:"not null;index"`
	ProductID       uint `json:"product_id" gorm:"not null;index"`

	// Quantities
	QuantityOrdered  int `json:"quantity_ordered" gorm:"not null"`
	QuantityReceived int `json:"quantity_received" gorm:"default:0"`

	// Pricing
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:decimal(10,2);default:0"`
	LineTotal      decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"`

	// VAT breakdown for purchase tax reporting
	IsVATIncluded     bool            `json:"is_vat_included" gorm:"default:true"`
	VATRate           decimal.Decimal `json:"vat_rate" gorm:"type:decimal(5,2);default:7.00"`
	VATAmount         decimal.Decimal `json:"vat_amount" gorm:"type:decimal(10,2);default:0"`
	PriceBeforeVAT    decimal.Decimal `json:"price_before_vat" gorm:"type:decimal(10,2);default:0"`
	PriceIncludingVAT decimal.Decimal `json:"price_including_vat" gorm:"type:decimal(10,2);default:0"`

	Notes string `json:"notes" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`

	// Relationships
	Product *product.Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// TableName returns the table name for PurchaseOrderItem model
func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// RemainingQuantity returns how many units are still expected.
func (i *PurchaseOrderItem) RemainingQuantity() int {
	return i.QuantityOrdered - i.QuantityReceived
}
