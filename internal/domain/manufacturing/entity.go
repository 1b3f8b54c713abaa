// internal/domain/manufacturing/entity.go
package manufacturing

import (
	"time"

	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/domain/product"
)

// ManufacturingStatus represents the production lifecycle state
type ManufacturingStatus string

const (
	ManufacturingStatusDraft      ManufacturingStatus = "draft"
	ManufacturingStatusConfirmed  ManufacturingStatus = "confirmed"
	ManufacturingStatusInProgress ManufacturingStatus = "in_progress"
	ManufacturingStatusCompleted  ManufacturingStatus = "completed"
	ManufacturingStatusCancelled  ManufacturingStatus = "cancelled"
)

// ManufacturingOrder represents an in-house production run, such as
// repackaging bulk stock into dispensing units.
type ManufacturingOrder struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	MONumber string `json:"mo_number" gorm:"uniqueIndex;not null;size:100"`

	ProductID uint `json:"product_id" gorm:"not null;index"`

	// Quantities
	QuantityToProduce int `json:"quantity_to_produce" gorm:"not null"`
	QuantityProduced  int `json:"quantity_produced" gorm:"default:0"`

	// Batch info
	BatchNumber string `json:"batch_number" gorm:"size:100;index"`
	LotNumber   string `json:"lot_number" gorm:"size:100"`

	Status ManufacturingStatus `json:"status" gorm:"size:20;default:draft;index"`

	SupervisorID *uint `json:"supervisor_id"`
	WarehouseID  uint  `json:"warehouse_id" gorm:"not null"`

	// Dates
	ScheduledStartDate *time.Time `json:"scheduled_start_date"`
	ScheduledEndDate   *time.Time `json:"scheduled_end_date"`
	ActualStartDate    *time.Time `json:"actual_start_date"`
	ActualEndDate      *time.Time `json:"actual_end_date"`

	Notes string `json:"notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Product   *product.Product     `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Warehouse *inventory.Warehouse `json:"warehouse,omitempty" gorm:"foreignKey:WarehouseID"`
	BOMItems  []BillOfMaterials    `json:"bom_items,omitempty" gorm:"foreignKey:ManufacturingOrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for ManufacturingOrder model
func (ManufacturingOrder) TableName() string {
	return "manufacturing_orders"
}

// CanTransitionTo reports whether the order may move to the target status.
func (o *ManufacturingOrder) CanTransitionTo(target ManufacturingStatus) bool {
	switch target {
	case ManufacturingStatusConfirmed:
		return o.Status == ManufacturingStatusDraft
	case ManufacturingStatusInProgress:
		return o.Status == ManufacturingStatusConfirmed
	case ManufacturingStatusCompleted:
		return o.Status == ManufacturingStatusInProgress
	case ManufacturingStatusCancelled:
		return o.Status == ManufacturingStatusDraft || o.Status == ManufacturingStatusConfirmed
	default:
		return false
	}
}

// BillOfMaterials represents one component line required by a production run
type BillOfMaterials struct {
	ID                   uint `json:"id" gorm:"primaryKey"`
	ManufacturingOrderID uint `json:"manufacturing_order_id" gorm:"not null;index"`

	ComponentProductID uint `json:"component_product_id" gorm:"not null;index"`
	QuantityRequired   int  `json:"quantity_required" gorm:"not null"`
	QuantityConsumed   int  `json:"quantity_consumed" gorm:"default:0"`

	UnitOfMeasure string `json:"unit_of_measure" gorm:"size:50"`

	CreatedAt time.Time `json:"created_at"`

	// Relationships
	ComponentProduct *product.Product `json:"component_product,omitempty" gorm:"foreignKey:ComponentProductID"`
}

// TableName returns the table name for BillOfMaterials model
func (BillOfMaterials) TableName() string {
	return "bill_of_materials"
}
