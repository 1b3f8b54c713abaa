// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/domain/product"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
)

// QualityStatus represents the inspection state of a lot
type QualityStatus string

const (
	QualityStatusPending    QualityStatus = "pending"
	QualityStatusPassed     QualityStatus = "passed"
	QualityStatusFailed     QualityStatus = "failed"
	QualityStatusQuarantine QualityStatus = "quarantine"
)

// WarehouseType represents the kind of storage location
type WarehouseType string

const (
	WarehouseTypeMain        WarehouseType = "main"
	WarehouseTypeBranch      WarehouseType = "branch"
	WarehouseTypeColdStorage WarehouseType = "cold_storage"
	WarehouseTypeQuarantine  WarehouseType = "quarantine"
)

// MovementType represents the type of stock movement recorded against a lot
type MovementType string

const (
	MovementTypeReceive MovementType = "receive"
	MovementTypeReserve MovementType = "reserve"
	MovementTypeRelease MovementType = "release"
	MovementTypeConsume MovementType = "consume"
	MovementTypeDamage  MovementType = "damage"
)

// Warehouse represents a storage location
type Warehouse struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Code      string        `gorm:"uniqueIndex;not null;size:50" json:"code"`
	Name      string        `gorm:"not null;size:255" json:"name"`
	Type      WarehouseType `gorm:"size:50;default:'main'" json:"type"`
	Address   string        `gorm:"size:500" json:"address"`
	IsActive  bool          `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// Relationships
	Lots []InventoryLot `gorm:"foreignKey:WarehouseID" json:"lots,omitempty"`
}

// InventoryLot represents a physically distinct receipt of a product into a
// warehouse. The lot is a permanent historical record: it is never deleted
// while QuantityReceived > 0, and its UnitCost is the actual acquisition cost
// for this specific receipt, the basis of per-lot COGS.
//
// Quantity invariant, enforced after every mutation:
//
//	available + reserved + damaged <= received
type InventoryLot struct {
	ID          uint  `gorm:"primaryKey" json:"id"`
	ProductID   uint  `gorm:"not null;index" json:"product_id"`
	WarehouseID uint  `gorm:"not null;index" json:"warehouse_id"`
	SupplierID  *uint `gorm:"index" json:"supplier_id"`

	// Lot details; lot numbers are operational identifiers, not globally unique
	LotNumber string `gorm:"not null;size:100;index" json:"lot_number"`

	// Quantities
	QuantityReceived  int `gorm:"not null" json:"quantity_received"`
	QuantityAvailable int `gorm:"not null" json:"quantity_available"`
	QuantityReserved  int `gorm:"not null;default:0" json:"quantity_reserved"`
	QuantityDamaged   int `gorm:"not null;default:0" json:"quantity_damaged"`

	// Cost tracking
	UnitCost decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"unit_cost"`

	// Dates
	ManufactureDate *time.Time `json:"manufacture_date"`
	ExpiryDate      time.Time  `gorm:"not null;index" json:"expiry_date"`
	ReceivedDate    time.Time  `gorm:"not null" json:"received_date"`

	// Quality
	QualityStatus    QualityStatus `gorm:"size:50;default:'pending'" json:"quality_status"`
	QualityCheckedAt *time.Time    `json:"quality_checked_at"`
	QualityNotes     string        `gorm:"size:500" json:"quality_notes"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Product   product.Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"product,omitempty"`
	Warehouse Warehouse       `gorm:"foreignKey:WarehouseID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"warehouse,omitempty"`
}

// StockMovement records every quantity mutation against a lot for audit and
// reconciliation. Movements are append-only.
type StockMovement struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	LotID             uint         `gorm:"not null;index" json:"lot_id"`
	MovementType      MovementType `gorm:"not null;size:50" json:"movement_type"`
	Quantity          int          `gorm:"not null" json:"quantity"`
	PreviousAvailable int          `gorm:"not null" json:"previous_available"`
	NewAvailable      int          `gorm:"not null" json:"new_available"`
	ReferenceType     string       `gorm:"size:50" json:"reference_type"` // "sales_order", "purchase_order", ...
	ReferenceID       uint         `json:"reference_id"`
	Notes             string       `gorm:"size:500" json:"notes"`
	CreatedBy         uint         `gorm:"index" json:"created_by"`
	CreatedAt         time.Time    `json:"created_at"`

	// Relationships
	Lot InventoryLot `gorm:"foreignKey:LotID" json:"lot,omitempty"`
}

// TableName overrides
func (Warehouse) TableName() string     { return "warehouses" }
func (InventoryLot) TableName() string  { return "inventory_lots" }
func (StockMovement) TableName() string { return "stock_movements" }

// Business methods for InventoryLot

// CheckBalance validates the quantity-balance invariant. A violation is fatal
// for the enclosing transaction and never silently clamped.
func (l *InventoryLot) CheckBalance() error {
	if l.QuantityAvailable < 0 || l.QuantityReserved < 0 || l.QuantityDamaged < 0 {
		return apperrors.IntegrityViolation(
			"lot %d has negative quantity: available=%d reserved=%d damaged=%d",
			l.ID, l.QuantityAvailable, l.QuantityReserved, l.QuantityDamaged)
	}
	if l.QuantityAvailable+l.QuantityReserved+l.QuantityDamaged > l.QuantityReceived {
		return apperrors.IntegrityViolation(
			"lot %d quantity balance broken: available=%d + reserved=%d + damaged=%d > received=%d",
			l.ID, l.QuantityAvailable, l.QuantityReserved, l.QuantityDamaged, l.QuantityReceived)
	}
	return nil
}

// IsSelectable reports whether the lot may be auto-selected for a sale.
func (l *InventoryLot) IsSelectable() bool {
	return l.QualityStatus != QualityStatusFailed && l.QualityStatus != QualityStatusQuarantine
}

// IsExpired reports whether the lot is past its expiry date.
func (l *InventoryLot) IsExpired(now time.Time) bool {
	return l.ExpiryDate.Before(now)
}
