// internal/domain/sales/entity.go
package sales

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/domain/customer"
	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/domain/product"
)

// OrderStatus represents the sales order lifecycle state
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentMethod represents how a sale was paid
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodPromptPay    PaymentMethod = "promptpay"
	PaymentMethodCredit       PaymentMethod = "credit"
)

// PaymentStatus represents the payment state of a sales order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusPartial  PaymentStatus = "partial"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// SalesOrder represents a point-of-sale order. Stock is reserved at creation
// and consumed at completion.
type SalesOrder struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	OrderNumber string `json:"order_number" gorm:"uniqueIndex;not null;size:100"`

	CustomerID         *uint  `json:"customer_id" gorm:"index"`
	PrescriptionNumber string `json:"prescription_number" gorm:"size:100"`

	// Financial
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null;default:0"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:decimal(10,2);default:0"`
	TaxRate        decimal.Decimal `json:"tax_rate" gorm:"type:decimal(5,2);default:7.00"`
	TaxAmount      decimal.Decimal `json:"tax_amount" gorm:"type:decimal(10,2);default:0"`
	TotalAmount    decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null"`

	// Payment
	PaymentMethod PaymentMethod   `json:"payment_method" gorm:"size:20"`
	PaymentStatus PaymentStatus   `json:"payment_status" gorm:"size:20;default:pending"`
	PaidAmount    decimal.Decimal `json:"paid_amount" gorm:"type:decimal(10,2);default:0"`
	ChangeAmount  decimal.Decimal `json:"change_amount" gorm:"type:decimal(10,2);default:0"`

	Status OrderStatus `json:"status" gorm:"size:20;default:draft;index"`

	CashierID    *uint `json:"cashier_id"`
	PharmacistID *uint `json:"pharmacist_id"`

	Notes string `json:"notes" gorm:"size:500"`

	OrderDate   time.Time  `json:"order_date"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Customer *customer.Customer `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Items    []SalesOrderItem   `json:"items,omitempty" gorm:"foreignKey:SalesOrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for SalesOrder model
func (SalesOrder) TableName() string {
	return "sales_orders"
}

// CanTransitionTo reports whether the order may move to the target status.
func (o *SalesOrder) CanTransitionTo(target OrderStatus) bool {
	switch o.Status {
	case OrderStatusDraft:
		return target == OrderStatusCompleted || target == OrderStatusCancelled
	default:
		return false
	}
}

// SalesOrderItem represents one sold line. The VAT breakdown is computed at
// order creation and frozen on the row so tax reports survive later changes to
// product VAT settings.
type SalesOrderItem struct {
	ID           uint  `json:"id" gorm:"primaryKey"`
	SalesOrderID uint  `json:"sales_order_id" gorm:"not null;index"`
	ProductID    uint  `json:"product_id" gorm:"not null;index"`
	LotID        *uint `json:"lot_id" gorm:"index"`

	// Quantities and pricing
	Quantity       int             `json:"quantity" gorm:"not null"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:decimal(10,2);default:0"`
	LineTotal      decimal.Decimal `json:"line_total" gorm:"type:decimal(10,2);not null"`

	// Frozen VAT breakdown for tax reporting
	VATAmount         decimal.Decimal `json:"vat_amount" gorm:"type:decimal(10,2);default:0"`
	PriceBeforeVAT    decimal.Decimal `json:"price_before_vat" gorm:"type:decimal(10,2);default:0"`
	PriceIncludingVAT decimal.Decimal `json:"price_including_vat" gorm:"type:decimal(10,2);default:0"`

	CreatedAt time.Time `json:"created_at"`

	// Relationships
	Product *product.Product        `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Lot     *inventory.InventoryLot `json:"lot,omitempty" gorm:"foreignKey:LotID;constraint:OnDelete:SET NULL"`
}

// TableName returns the table name for SalesOrderItem model
func (SalesOrderItem) TableName() string {
	return "sales_order_items"
}
