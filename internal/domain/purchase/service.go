// internal/domain/purchase/service.go
package purchase

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/audit"
	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/domain/product"
	"github.com/your-org/pharmacy-backend/internal/domain/supplier"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-backend/internal/pkg/money"
	"gorm.io/gorm"
)

// Service handles the purchase order workflow
type Service struct {
	db        *gorm.DB
	config    *config.Config
	inventory *inventory.Service
	audit     *audit.Recorder
	log       *logrus.Logger
}

// NewService creates a new purchase service
func NewService(db *gorm.DB, cfg *config.Config, inv *inventory.Service, rec *audit.Recorder, log *logrus.Logger) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		inventory: inv,
		audit:     rec,
		log:       log,
	}
}

// CreatePurchaseOrderItemRequest represents one line of a new purchase order
type CreatePurchaseOrderItemRequest struct {
	ProductID      uint            `json:"product_id" binding:"required"`
	Quantity       int             `json:"quantity" binding:"required"`
	UnitPrice      decimal.Decimal `json:"unit_price" binding:"required"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	IsVATIncluded  *bool           `json:"is_vat_included"`
	Notes          string          `json:"notes"`
}

// CreatePurchaseOrderRequest represents purchase order creation data
type CreatePurchaseOrderRequest struct {
	SupplierID           uint                             `json:"supplier_id" binding:"required"`
	ExpectedDeliveryDate *time.Time                       `json:"expected_delivery_date"`
	ShippingCost         decimal.Decimal                  `json:"shipping_cost"`
	Notes                string                           `json:"notes"`
	TermsAndConditions   string                           `json:"terms_and_conditions"`
	Items                []CreatePurchaseOrderItemRequest `json:"items" binding:"required,min=1"`
}

// ReceiveItemRequest represents one received line of a delivery
type ReceiveItemRequest struct {
	ItemID          uint       `json:"item_id" binding:"required"`
	Quantity        int        `json:"quantity" binding:"required"`
	LotNumber       string     `json:"lot_number" binding:"required"`
	WarehouseID     uint       `json:"warehouse_id" binding:"required"`
	ExpiryDate      time.Time  `json:"expiry_date" binding:"required"`
	ManufactureDate *time.Time `json:"manufacture_date"`
}

// ReceivePurchaseOrderRequest represents a full or partial delivery
type ReceivePurchaseOrderRequest struct {
	Items []ReceiveItemRequest `json:"items" binding:"required,min=1"`
}

// PurchaseOrderListRequest represents purchase order list query parameters
type PurchaseOrderListRequest struct {
	Page       int                 `form:"page,default=1"`
	Limit      int                 `form:"limit,default=20"`
	Status     PurchaseOrderStatus `form:"status"`
	SupplierID uint                `form:"supplier_id"`
}

// PurchaseOrderListResponse represents a paginated purchase order list
type PurchaseOrderListResponse struct {
	Items []PurchaseOrder `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// CreatePurchaseOrder creates a draft purchase order. Supplier quotes may be
// VAT-inclusive or VAT-exclusive per line; both are normalized into the frozen
// breakdown so the purchase tax report can always read pre-VAT amounts.
func (s *Service) CreatePurchaseOrder(req *CreatePurchaseOrderRequest, actorID uint) (*PurchaseOrder, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("purchase order must have at least one item")
	}
	if req.ShippingCost.IsNegative() {
		return nil, apperrors.Validation("shipping cost must not be negative")
	}

	var sup supplier.Supplier
	if err := s.db.First(&sup, req.SupplierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("supplier %d not found", req.SupplierID)
		}
		return nil, fmt.Errorf("failed to retrieve supplier: %w", err)
	}
	if !sup.IsActive {
		return nil, apperrors.Validation("supplier '%s' is inactive", sup.Code)
	}

	var order *PurchaseOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		order = &PurchaseOrder{
			SupplierID:           req.SupplierID,
			TotalAmount:          decimal.Zero,
			ShippingCost:         req.ShippingCost,
			Status:               PurchaseOrderStatusDraft,
			OrderDate:            now,
			ExpectedDeliveryDate: req.ExpectedDeliveryDate,
			CreatedBy:            &actorID,
			Notes:                req.Notes,
			TermsAndConditions:   req.TermsAndConditions,
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create purchase order: %w", err)
		}
		order.PONumber = fmt.Sprintf("PO-%s-%05d", now.Format("20060102"), order.ID)

		subtotal := decimal.Zero
		taxAmount := decimal.Zero
		discountTotal := decimal.Zero
		items := make([]PurchaseOrderItem, 0, len(req.Items))

		for i, line := range req.Items {
			if line.Quantity <= 0 {
				return apperrors.Validation("item %d: quantity must be positive, got %d", i+1, line.Quantity)
			}
			if line.UnitPrice.IsNegative() {
				return apperrors.Validation("item %d: unit price must not be negative", i+1)
			}
			if line.DiscountAmount.IsNegative() {
				return apperrors.Validation("item %d: discount must not be negative", i+1)
			}

			var prod product.Product
			if err := tx.First(&prod, line.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NotFound("product %d not found", line.ProductID)
				}
				return fmt.Errorf("failed to retrieve product: %w", err)
			}

			lineTotal := money.LineTotal(line.UnitPrice, line.Quantity, line.DiscountAmount)
			if lineTotal.IsNegative() {
				return apperrors.Validation("item %d: discount exceeds line amount", i+1)
			}

			vatIncluded := true
			if line.IsVATIncluded != nil {
				vatIncluded = *line.IsVATIncluded
			}
			mode := money.VATInclusive
			if !vatIncluded {
				mode = money.VATExclusive
			}
			breakdown := money.CalculateVAT(lineTotal, prod.EffectiveVATRate(), prod.IsVATApplicable, mode)

			items = append(items, PurchaseOrderItem{
				PurchaseOrderID:   order.ID,
				ProductID:         prod.ID,
				QuantityOrdered:   line.Quantity,
				UnitPrice:         line.UnitPrice,
				DiscountAmount:    line.DiscountAmount,
				LineTotal:         lineTotal,
				IsVATIncluded:     vatIncluded,
				VATRate:           prod.EffectiveVATRate(),
				VATAmount:         breakdown.VATAmount,
				PriceBeforeVAT:    breakdown.PriceBeforeVAT,
				PriceIncludingVAT: breakdown.PriceIncludingVAT,
				Notes:             line.Notes,
			})

			subtotal = subtotal.Add(breakdown.PriceBeforeVAT)
			taxAmount = taxAmount.Add(breakdown.VATAmount)
			discountTotal = discountTotal.Add(line.DiscountAmount)
		}

		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create purchase order items: %w", err)
		}

		taxAmount = money.Round(taxAmount)
		order.Subtotal = money.Round(subtotal)
		order.DiscountAmount = money.Round(discountTotal)
		order.TaxAmount = taxAmount
		order.TotalAmount = money.Round(subtotal.Add(taxAmount).Add(req.ShippingCost))
		order.Items = items

		if err := tx.Model(order).Updates(map[string]interface{}{
			"po_number":       order.PONumber,
			"subtotal":        order.Subtotal,
			"discount_amount": order.DiscountAmount,
			"tax_amount":      order.TaxAmount,
			"total_amount":    order.TotalAmount,
		}).Error; err != nil {
			return fmt.Errorf("failed to finalize purchase order totals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record("purchase_order.created", "purchase_order", order.ID, actorID, order.PONumber)
	s.log.WithFields(logrus.Fields{
		"po_number": order.PONumber,
		"supplier":  sup.Code,
		"total":     order.TotalAmount.String(),
	}).Info("Purchase order created")

	return order, nil
}

// SendPurchaseOrder marks a draft order as sent to the supplier.
func (s *Service) SendPurchaseOrder(id uint, actorID uint) (*PurchaseOrder, error) {
	return s.transition(id, PurchaseOrderStatusSent, actorID, nil)
}

// ConfirmPurchaseOrder records the supplier's confirmation.
func (s *Service) ConfirmPurchaseOrder(id uint, actorID uint) (*PurchaseOrder, error) {
	return s.transition(id, PurchaseOrderStatusConfirmed, actorID, func(o *PurchaseOrder) {
		o.ApprovedBy = &actorID
	})
}

// CancelPurchaseOrder cancels an order that has not received any stock.
func (s *Service) CancelPurchaseOrder(id uint, actorID uint) (*PurchaseOrder, error) {
	return s.transition(id, PurchaseOrderStatusCancelled, actorID, nil)
}

// ReceivePurchaseOrder records a delivery against a confirmed order. Each
// received line creates a new inventory lot in pending quality status.
// Receiving more than the outstanding ordered quantity is rejected.
func (s *Service) ReceivePurchaseOrder(id uint, req *ReceivePurchaseOrderRequest, actorID uint) (*PurchaseOrder, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("delivery must have at least one item")
	}

	var order *PurchaseOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.getOrderTx(tx, id)
		if err != nil {
			return err
		}
		if order.Status != PurchaseOrderStatusConfirmed && order.Status != PurchaseOrderStatusPartiallyReceived {
			return apperrors.InvalidState(
				"cannot receive against order %s: status is %s", order.PONumber, order.Status)
		}

		itemsByID := make(map[uint]*PurchaseOrderItem, len(order.Items))
		for i := range order.Items {
			itemsByID[order.Items[i].ID] = &order.Items[i]
		}

		for _, rcv := range req.Items {
			item, ok := itemsByID[rcv.ItemID]
			if !ok {
				return apperrors.NotFound("item %d not found on order %s", rcv.ItemID, order.PONumber)
			}
			if rcv.Quantity <= 0 {
				return apperrors.Validation("received quantity must be positive, got %d", rcv.Quantity)
			}
			if rcv.Quantity > item.RemainingQuantity() {
				return apperrors.Validation(
					"cannot receive %d units of item %d: only %d outstanding",
					rcv.Quantity, item.ID, item.RemainingQuantity())
			}

			// Lot cost is the per-unit pre-VAT price so margins and COGS
			// never include input VAT.
			unitCost := item.PriceBeforeVAT.Div(decimal.NewFromInt(int64(item.QuantityOrdered)))

			_, err := s.inventory.Receive(tx, &inventory.ReceiveLotRequest{
				ProductID:       item.ProductID,
				WarehouseID:     rcv.WarehouseID,
				SupplierID:      &order.SupplierID,
				LotNumber:       rcv.LotNumber,
				Quantity:        rcv.Quantity,
				UnitCost:        unitCost,
				ManufactureDate: rcv.ManufactureDate,
				ExpiryDate:      rcv.ExpiryDate,
				ReferenceType:   "purchase_order",
				ReferenceID:     order.ID,
			}, actorID)
			if err != nil {
				return err
			}

			item.QuantityReceived += rcv.Quantity
			if err := tx.Model(item).Update("quantity_received", item.QuantityReceived).Error; err != nil {
				return fmt.Errorf("failed to update received quantity: %w", err)
			}
		}

		fullyReceived := true
		for i := range order.Items {
			if order.Items[i].RemainingQuantity() > 0 {
				fullyReceived = false
				break
			}
		}

		if fullyReceived {
			now := time.Now().UTC()
			order.Status = PurchaseOrderStatusReceived
			order.ActualDeliveryDate = &now
		} else {
			order.Status = PurchaseOrderStatusPartiallyReceived
		}
		if err := tx.Model(order).Updates(map[string]interface{}{
			"status":               order.Status,
			"actual_delivery_date": order.ActualDeliveryDate,
		}).Error; err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record("purchase_order.received", "purchase_order", order.ID, actorID, order.PONumber)
	s.log.WithFields(logrus.Fields{
		"po_number": order.PONumber,
		"status":    order.Status,
	}).Info("Purchase order delivery recorded")

	return order, nil
}

// GetPurchaseOrder retrieves a purchase order with items
func (s *Service) GetPurchaseOrder(id uint) (*PurchaseOrder, error) {
	return s.getOrderTx(s.db, id)
}

// GetPurchaseOrders retrieves purchase orders with filtering and pagination
func (s *Service) GetPurchaseOrders(req *PurchaseOrderListRequest) (*PurchaseOrderListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&PurchaseOrder{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.SupplierID > 0 {
		query = query.Where("supplier_id = ?", req.SupplierID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count purchase orders: %w", err)
	}

	var orders []PurchaseOrder
	offset := (req.Page - 1) * req.Limit
	if err := query.Preload("Items").Order("order_date desc").Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve purchase orders: %w", err)
	}

	return &PurchaseOrderListResponse{Items: orders, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *Service) transition(id uint, target PurchaseOrderStatus, actorID uint, apply func(*PurchaseOrder)) (*PurchaseOrder, error) {
	var order *PurchaseOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.getOrderTx(tx, id)
		if err != nil {
			return err
		}
		if !order.CanTransitionTo(target) {
			return apperrors.InvalidState(
				"cannot move order %s from %s to %s", order.PONumber, order.Status, target)
		}

		order.Status = target
		if apply != nil {
			apply(order)
		}
		if err := tx.Model(order).Updates(map[string]interface{}{
			"status":      order.Status,
			"approved_by": order.ApprovedBy,
		}).Error; err != nil {
			return fmt.Errorf("failed to update purchase order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(fmt.Sprintf("purchase_order.%s", target), "purchase_order", order.ID, actorID, order.PONumber)
	return order, nil
}

func (s *Service) getOrderTx(tx *gorm.DB, id uint) (*PurchaseOrder, error) {
	var order PurchaseOrder
	if err := tx.Preload("Items").Preload("Supplier").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("purchase order %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve purchase order: %w", err)
	}
	return &order, nil
}
