// internal/domain/inventory/service.go
package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service owns the lot ledger: every quantity mutation against inventory lots
// goes through here. Ledger operations take the caller's transaction handle so
// order workflows can reserve and consume atomically with their own writes.
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// ReceiveLotRequest represents a new lot receipt
type ReceiveLotRequest struct {
	ProductID       uint            `json:"product_id" binding:"required"`
	WarehouseID     uint            `json:"warehouse_id" binding:"required"`
	SupplierID      *uint           `json:"supplier_id"`
	LotNumber       string          `json:"lot_number" binding:"required"`
	Quantity        int             `json:"quantity" binding:"required"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	ManufactureDate *time.Time      `json:"manufacture_date"`
	ExpiryDate      time.Time       `json:"expiry_date" binding:"required"`
	ReferenceType   string          `json:"-"`
	ReferenceID     uint            `json:"-"`
}

// LotListRequest represents lot list query parameters
type LotListRequest struct {
	Page        int  `form:"page,default=1"`
	Limit       int  `form:"limit,default=20"`
	ProductID   uint `form:"product_id"`
	WarehouseID uint `form:"warehouse_id"`
}

// LotListResponse represents a paginated lot list
type LotListResponse struct {
	Items []InventoryLot `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// LEDGER OPERATIONS
//
// Each operation mutates exactly one lot row with a single conditional UPDATE
// whose WHERE clause re-checks the quantity precondition. Two concurrent
// callers can therefore never both pass a stale check: the second UPDATE
// matches zero rows and the operation fails cleanly.

// Reserve places a provisional hold on lot stock: available decreases,
// reserved increases. The stock deduction happens here, once; completion later
// converts the hold without touching available again.
func (s *Service) Reserve(tx *gorm.DB, lotID uint, qty int, actorID uint, refType string, refID uint) error {
	if qty <= 0 {
		return apperrors.Validation("reserve quantity must be positive, got %d", qty)
	}

	res := tx.Model(&InventoryLot{}).
		Where("id = ? AND quantity_available >= ?", lotID, qty).
		Updates(map[string]interface{}{
			"quantity_available": gorm.Expr("quantity_available - ?", qty),
			"quantity_reserved":  gorm.Expr("quantity_reserved + ?", qty),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to reserve lot %d: %w", lotID, res.Error)
	}
	if res.RowsAffected == 0 {
		lot, err := s.lotForUpdate(tx, lotID)
		if err != nil {
			return err
		}
		return apperrors.InsufficientStock(
			"insufficient stock in lot %s: requested %d, available %d",
			lot.LotNumber, qty, lot.QuantityAvailable)
	}

	return s.settle(tx, lotID, MovementTypeReserve, qty, actorID, refType, refID)
}

// Release undoes a reservation on order cancellation: reserved decreases,
// available increases back.
func (s *Service) Release(tx *gorm.DB, lotID uint, qty int, actorID uint, refType string, refID uint) error {
	if qty <= 0 {
		return apperrors.Validation("release quantity must be positive, got %d", qty)
	}

	res := tx.Model(&InventoryLot{}).
		Where("id = ? AND quantity_reserved >= ?", lotID, qty).
		Updates(map[string]interface{}{
			"quantity_available": gorm.Expr("quantity_available + ?", qty),
			"quantity_reserved":  gorm.Expr("quantity_reserved - ?", qty),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to release lot %d: %w", lotID, res.Error)
	}
	if res.RowsAffected == 0 {
		lot, err := s.lotForUpdate(tx, lotID)
		if err != nil {
			return err
		}
		return apperrors.InvalidState(
			"cannot release %d from lot %s: only %d reserved", qty, lot.LotNumber, lot.QuantityReserved)
	}

	return s.settle(tx, lotID, MovementTypeRelease, qty, actorID, refType, refID)
}

// Consume finalizes a reservation at sale completion: reserved decreases and
// the stock leaves the ledger. Available was already decremented at
// reservation time; consuming must not deduct it twice. The receipt quantity
// is set once at Receive and never changes, so a fully consumed lot keeps its
// history and its unit cost.
func (s *Service) Consume(tx *gorm.DB, lotID uint, qty int, actorID uint, refType string, refID uint) error {
	if qty <= 0 {
		return apperrors.Validation("consume quantity must be positive, got %d", qty)
	}

	res := tx.Model(&InventoryLot{}).
		Where("id = ? AND quantity_reserved >= ?", lotID, qty).
		Updates(map[string]interface{}{
			"quantity_reserved": gorm.Expr("quantity_reserved - ?", qty),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to consume lot %d: %w", lotID, res.Error)
	}
	if res.RowsAffected == 0 {
		lot, err := s.lotForUpdate(tx, lotID)
		if err != nil {
			return err
		}
		return apperrors.InvalidState(
			"cannot consume %d from lot %s: only %d reserved", qty, lot.LotNumber, lot.QuantityReserved)
	}

	return s.settle(tx, lotID, MovementTypeConsume, qty, actorID, refType, refID)
}

// Receive creates a new lot with available = received = qty. Called by
// purchase receipt and manufacturing completion.
func (s *Service) Receive(tx *gorm.DB, req *ReceiveLotRequest, actorID uint) (*InventoryLot, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Validation("receive quantity must be positive, got %d", req.Quantity)
	}
	if req.UnitCost.IsNegative() {
		return nil, apperrors.Validation("unit cost must not be negative")
	}
	if req.ExpiryDate.IsZero() {
		return nil, apperrors.Validation("expiry date is required")
	}
	if err := tx.First(&Warehouse{}, req.WarehouseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("warehouse %d not found", req.WarehouseID)
		}
		return nil, fmt.Errorf("failed to check warehouse: %w", err)
	}

	var productCount int64
	if err := tx.Table("products").Where("id = ?", req.ProductID).Count(&productCount).Error; err != nil {
		return nil, fmt.Errorf("failed to check product: %w", err)
	}
	if productCount == 0 {
		return nil, apperrors.NotFound("product %d not found", req.ProductID)
	}

	lot := &InventoryLot{
		ProductID:         req.ProductID,
		WarehouseID:       req.WarehouseID,
		SupplierID:        req.SupplierID,
		LotNumber:         req.LotNumber,
		QuantityReceived:  req.Quantity,
		QuantityAvailable: req.Quantity,
		UnitCost:          req.UnitCost,
		ManufactureDate:   req.ManufactureDate,
		ExpiryDate:        req.ExpiryDate,
		ReceivedDate:      time.Now().UTC(),
		QualityStatus:     QualityStatusPending,
	}

	if err := tx.Create(lot).Error; err != nil {
		return nil, fmt.Errorf("failed to create lot: %w", err)
	}

	movement := &StockMovement{
		LotID:             lot.ID,
		MovementType:      MovementTypeReceive,
		Quantity:          req.Quantity,
		PreviousAvailable: 0,
		NewAvailable:      req.Quantity,
		ReferenceType:     req.ReferenceType,
		ReferenceID:       req.ReferenceID,
		CreatedBy:         actorID,
	}
	if err := tx.Create(movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record receive movement: %w", err)
	}

	return lot, nil
}

// AdjustDamage moves quantity between available and damaged within the same
// lot. delta > 0 marks stock damaged; delta < 0 reverses a prior adjustment.
func (s *Service) AdjustDamage(lotID uint, delta int, reason string, actorID uint) (*InventoryLot, error) {
	if delta == 0 {
		return nil, apperrors.Validation("damage adjustment must not be zero")
	}

	var adjusted *InventoryLot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var res *gorm.DB
		if delta > 0 {
			res = tx.Model(&InventoryLot{}).
				Where("id = ? AND quantity_available >= ?", lotID, delta).
				Updates(map[string]interface{}{
					"quantity_available": gorm.Expr("quantity_available - ?", delta),
					"quantity_damaged":   gorm.Expr("quantity_damaged + ?", delta),
				})
		} else {
			res = tx.Model(&InventoryLot{}).
				Where("id = ? AND quantity_damaged >= ?", lotID, -delta).
				Updates(map[string]interface{}{
					"quantity_available": gorm.Expr("quantity_available + ?", -delta),
					"quantity_damaged":   gorm.Expr("quantity_damaged - ?", -delta),
				})
		}
		if res.Error != nil {
			return fmt.Errorf("failed to adjust lot %d: %w", lotID, res.Error)
		}
		if res.RowsAffected == 0 {
			lot, err := s.lotForUpdate(tx, lotID)
			if err != nil {
				return err
			}
			if delta > 0 {
				return apperrors.InsufficientStock(
					"insufficient stock in lot %s: requested %d, available %d",
					lot.LotNumber, delta, lot.QuantityAvailable)
			}
			return apperrors.InvalidState(
				"cannot restore %d from lot %s: only %d damaged", -delta, lot.LotNumber, lot.QuantityDamaged)
		}

		if err := s.settleWithNotes(tx, lotID, MovementTypeDamage, delta, actorID, "adjustment", 0, reason); err != nil {
			return err
		}

		lot, err := s.lotForUpdate(tx, lotID)
		if err != nil {
			return err
		}
		adjusted = lot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adjusted, nil
}

// LOT SELECTION POLICY

// SelectLot picks the lot a sales line will draw from. An explicit lot is
// validated against the product and its availability; otherwise the single lot
// with the earliest expiry date that can cover the full quantity is chosen
// (first-expiry-first-out). Requests are never split across lots: if no single
// lot suffices the selection fails, even when the combined stock would.
func (s *Service) SelectLot(tx *gorm.DB, productID uint, qty int, explicitLotID *uint) (*InventoryLot, error) {
	if qty <= 0 {
		return nil, apperrors.Validation("requested quantity must be positive, got %d", qty)
	}

	if explicitLotID != nil {
		var lot InventoryLot
		if err := tx.First(&lot, *explicitLotID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("lot %d not found", *explicitLotID)
			}
			return nil, fmt.Errorf("failed to retrieve lot: %w", err)
		}
		if lot.ProductID != productID {
			return nil, apperrors.Validation("lot %s does not belong to product %d", lot.LotNumber, productID)
		}
		if lot.QuantityAvailable < qty {
			return nil, apperrors.InsufficientStock(
				"insufficient stock in lot %s: requested %d, available %d",
				lot.LotNumber, qty, lot.QuantityAvailable)
		}
		return &lot, nil
	}

	var lot InventoryLot
	err := tx.
		Where("product_id = ? AND quantity_available >= ?", productID, qty).
		Where("quality_status NOT IN ?", []QualityStatus{QualityStatusFailed, QualityStatusQuarantine}).
		Order("expiry_date asc").
		First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.InsufficientStock(
				"insufficient stock for product %d: no single lot holds the requested %d units", productID, qty)
		}
		return nil, fmt.Errorf("failed to select lot: %w", err)
	}
	return &lot, nil
}

// QUERIES AND MAINTENANCE

// GetLot retrieves a single lot by ID
func (s *Service) GetLot(id uint) (*InventoryLot, error) {
	var lot InventoryLot
	if err := s.db.Preload("Product").Preload("Warehouse").First(&lot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("lot %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve lot: %w", err)
	}
	return &lot, nil
}

// GetLots retrieves lots with filtering and pagination
func (s *Service) GetLots(req *LotListRequest) (*LotListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&InventoryLot{})
	if req.ProductID > 0 {
		query = query.Where("product_id = ?", req.ProductID)
	}
	if req.WarehouseID > 0 {
		query = query.Where("warehouse_id = ?", req.WarehouseID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count lots: %w", err)
	}

	var lots []InventoryLot
	offset := (req.Page - 1) * req.Limit
	if err := query.Order("expiry_date asc").Offset(offset).Limit(req.Limit).Find(&lots).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve lots: %w", err)
	}

	return &LotListResponse{Items: lots, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

// GetExpiringLots retrieves lots with remaining stock expiring within the
// given number of days.
func (s *Service) GetExpiringLots(days int) ([]InventoryLot, error) {
	if days < 1 {
		return nil, apperrors.Validation("days must be at least 1, got %d", days)
	}

	threshold := time.Now().UTC().AddDate(0, 0, days)
	var lots []InventoryLot
	err := s.db.Preload("Product").
		Where("expiry_date <= ? AND quantity_available > 0", threshold).
		Order("expiry_date asc").
		Find(&lots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve expiring lots: %w", err)
	}
	return lots, nil
}

// InspectQuality records the quality inspection outcome for a pending lot.
func (s *Service) InspectQuality(lotID uint, status QualityStatus, notes string, actorID uint) (*InventoryLot, error) {
	switch status {
	case QualityStatusPassed, QualityStatusFailed, QualityStatusQuarantine:
	default:
		return nil, apperrors.Validation("invalid quality status '%s'", status)
	}

	lot, err := s.GetLot(lotID)
	if err != nil {
		return nil, err
	}
	if lot.QualityStatus != QualityStatusPending {
		return nil, apperrors.InvalidState(
			"lot %s already inspected: quality status is %s", lot.LotNumber, lot.QualityStatus)
	}

	now := time.Now().UTC()
	lot.QualityStatus = status
	lot.QualityCheckedAt = &now
	lot.QualityNotes = notes

	if err := s.db.Save(lot).Error; err != nil {
		return nil, fmt.Errorf("failed to update lot quality: %w", err)
	}
	return lot, nil
}

// DeleteLot removes a lot record. Lots with any received quantity are
// permanent history and cannot be deleted; historical sale items referencing a
// deleted lot keep their row with the reference cleared by the SET NULL rule.
func (s *Service) DeleteLot(id uint) error {
	lot, err := s.GetLot(id)
	if err != nil {
		return err
	}
	if lot.QuantityReceived > 0 {
		return apperrors.InvalidState(
			"cannot delete lot %s: %d units of received history remain", lot.LotNumber, lot.QuantityReceived)
	}

	if err := s.db.Delete(&InventoryLot{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete lot: %w", err)
	}
	return nil
}

// internal helpers

// lotForUpdate reloads a lot inside the caller's transaction.
func (s *Service) lotForUpdate(tx *gorm.DB, lotID uint) (*InventoryLot, error) {
	var lot InventoryLot
	if err := tx.First(&lot, lotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("lot %d not found", lotID)
		}
		return nil, fmt.Errorf("failed to retrieve lot: %w", err)
	}
	return &lot, nil
}

// settle re-validates the balance invariant after a mutation and appends the
// movement record. An invariant violation aborts the whole transaction.
func (s *Service) settle(tx *gorm.DB, lotID uint, mt MovementType, qty int, actorID uint, refType string, refID uint) error {
	return s.settleWithNotes(tx, lotID, mt, qty, actorID, refType, refID, "")
}

func (s *Service) settleWithNotes(tx *gorm.DB, lotID uint, mt MovementType, qty int, actorID uint, refType string, refID uint, notes string) error {
	lot, err := s.lotForUpdate(tx, lotID)
	if err != nil {
		return err
	}
	if err := lot.CheckBalance(); err != nil {
		return err
	}

	previous := lot.QuantityAvailable
	switch mt {
	case MovementTypeReserve:
		previous = lot.QuantityAvailable + qty
	case MovementTypeRelease:
		previous = lot.QuantityAvailable - qty
	case MovementTypeDamage:
		previous = lot.QuantityAvailable + qty
	}

	movement := &StockMovement{
		LotID:             lotID,
		MovementType:      mt,
		Quantity:          qty,
		PreviousAvailable: previous,
		NewAvailable:      lot.QuantityAvailable,
		ReferenceType:     refType,
		ReferenceID:       refID,
		Notes:             notes,
		CreatedBy:         actorID,
	}
	if err := tx.Create(movement).Error; err != nil {
		return fmt.Errorf("failed to record %s movement: %w", mt, err)
	}
	return nil
}
