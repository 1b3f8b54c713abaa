// internal/domain/sales/service.go
package sales

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
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-backend/internal/pkg/money"
	"gorm.io/gorm"
)

// Service handles the sales order workflow
type Service struct {
	db        *gorm.DB
	config    *config.Config
	inventory *inventory.Service
	audit     *audit.Recorder
	log       *logrus.Logger
}

// NewService creates a new sales service
func NewService(db *gorm.DB, cfg *config.Config, inv *inventory.Service, rec *audit.Recorder, log *logrus.Logger) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		inventory: inv,
		audit:     rec,
		log:       log,
	}
}

// CreateSalesOrderItemRequest represents one line of a new sales order
type CreateSalesOrderItemRequest struct {
	ProductID      uint             `json:"product_id" binding:"required"`
	Quantity       int              `json:"quantity" binding:"required"`
	UnitPrice      *decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	LotID          *uint            `json:"lot_id"`
}

// CreateSalesOrderRequest represents sales order creation data
type CreateSalesOrderRequest struct {
	CustomerID         *uint                         `json:"customer_id"`
	PrescriptionNumber string                        `json:"prescription_number"`
	PharmacistID       *uint                         `json:"pharmacist_id"`
	Notes              string                        `json:"notes"`
	Items              []CreateSalesOrderItemRequest `json:"items" binding:"required,min=1"`
}

// CompleteSalesOrderRequest represents payment data at checkout
type CompleteSalesOrderRequest struct {
	PaymentMethod PaymentMethod   `json:"payment_method" binding:"required"`
	PaidAmount    decimal.Decimal `json:"paid_amount" binding:"required"`
}

// SalesOrderListRequest represents sales order list query parameters
type SalesOrderListRequest struct {
	Page     int         `form:"page,default=1"`
	Limit    int         `form:"limit,default=20"`
	Status   OrderStatus `form:"status"`
	DateFrom string      `form:"date_from"`
	DateTo   string      `form:"date_to"`
}

// SalesOrderListResponse represents a paginated sales order list
type SalesOrderListResponse struct {
	Items []SalesOrder `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// CreateSalesOrder creates a draft order and reserves stock for every line in
// one transaction. Each line draws from a single lot. When no lot is given the
// earliest-expiring lot that covers the quantity is selected.
func (s *Service) CreateSalesOrder(req *CreateSalesOrderRequest, actorID uint) (*SalesOrder, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("sales order must have at least one item")
	}

	var order *SalesOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		order = &SalesOrder{
			CustomerID:         req.CustomerID,
			PrescriptionNumber: req.PrescriptionNumber,
			TaxRate:            s.config.VAT.DefaultRate,
			TotalAmount:        decimal.Zero,
			PaymentStatus:      PaymentStatusPending,
			Status:             OrderStatusDraft,
			CashierID:          &actorID,
			PharmacistID:       req.PharmacistID,
			Notes:              req.Notes,
			OrderDate:          now,
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create sales order: %w", err)
		}
		order.OrderNumber = fmt.Sprintf("SO-%s-%05d", now.Format("20060102"), order.ID)

		subtotal := decimal.Zero
		taxAmount := decimal.Zero
		discountTotal := decimal.Zero
		items := make([]SalesOrderItem, 0, len(req.Items))

		for i, line := range req.Items {
			if line.Quantity <= 0 {
				return apperrors.Validation("item %d: quantity must be positive, got %d", i+1, line.Quantity)
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
			if !prod.IsSellable() {
				return apperrors.Validation("product '%s' is not sellable", prod.SKU)
			}

			unitPrice := prod.SellingPrice
			if line.UnitPrice != nil {
				if line.UnitPrice.IsNegative() {
					return apperrors.Validation("item %d: unit price must not be negative", i+1)
				}
				unitPrice = *line.UnitPrice
			}

			lineTotal := money.LineTotal(unitPrice, line.Quantity, line.DiscountAmount)
			if lineTotal.IsNegative() {
				return apperrors.Validation("item %d: discount exceeds line amount", i+1)
			}

			// Retail prices are VAT-exclusive. VAT applies to the
			// discounted line amount.
			breakdown := money.CalculateVAT(lineTotal, prod.EffectiveVATRate(), prod.IsVATApplicable, money.VATExclusive)

			lot, err := s.inventory.SelectLot(tx, prod.ID, line.Quantity, line.LotID)
			if err != nil {
				return err
			}
			if err := s.inventory.Reserve(tx, lot.ID, line.Quantity, actorID, "sales_order", order.ID); err != nil {
				return err
			}

			lotID := lot.ID
			items = append(items, SalesOrderItem{
				SalesOrderID:      order.ID,
				ProductID:         prod.ID,
				LotID:             &lotID,
				Quantity:          line.Quantity,
				UnitPrice:         unitPrice,
				DiscountAmount:    line.DiscountAmount,
				LineTotal:         lineTotal,
				VATAmount:         breakdown.VATAmount,
				PriceBeforeVAT:    breakdown.PriceBeforeVAT,
				PriceIncludingVAT: breakdown.PriceIncludingVAT,
			})

			subtotal = subtotal.Add(lineTotal)
			taxAmount = taxAmount.Add(breakdown.VATAmount)
			discountTotal = discountTotal.Add(line.DiscountAmount)
		}

		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create sales order items: %w", err)
		}

		taxAmount = money.Round(taxAmount)
		order.Subtotal = money.Round(subtotal)
		order.DiscountAmount = money.Round(discountTotal)
		order.TaxAmount = taxAmount
		order.TotalAmount = money.Round(subtotal.Add(taxAmount))
		order.Items = items

		if err := tx.Model(order).Updates(map[string]interface{}{
			"order_number":    order.OrderNumber,
			"subtotal":        order.Subtotal,
			"discount_amount": order.DiscountAmount,
			"tax_amount":      order.TaxAmount,
			"total_amount":    order.TotalAmount,
		}).Error; err != nil {
			return fmt.Errorf("failed to finalize sales order totals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record("sales_order.created", "sales_order", order.ID, actorID, order.OrderNumber)
	s.log.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.String(),
		"items":        len(order.Items),
	}).Info("Sales order created")

	return order, nil
}

// CompleteSalesOrder takes payment and finalizes the order: reservations are
// consumed and the stock permanently leaves inventory.
func (s *Service) CompleteSalesOrder(id uint, req *CompleteSalesOrderRequest, actorID uint) (*SalesOrder, error) {
	var order *SalesOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.getOrderTx(tx, id)
		if err != nil {
			return err
		}
		if !order.CanTransitionTo(OrderStatusCompleted) {
			return apperrors.InvalidState(
				"cannot complete order %s: status is %s", order.OrderNumber, order.Status)
		}
		if req.PaidAmount.LessThan(order.TotalAmount) {
			return apperrors.InsufficientPayment(
				"insufficient payment for order %s: total %s, paid %s",
				order.OrderNumber, order.TotalAmount.StringFixed(2), req.PaidAmount.StringFixed(2))
		}

		for _, item := range order.Items {
			if item.LotID == nil {
				return apperrors.IntegrityViolation(
					"order %s item %d has no lot reservation", order.OrderNumber, item.ID)
			}
			if err := s.inventory.Consume(tx, *item.LotID, item.Quantity, actorID, "sales_order", order.ID); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		order.Status = OrderStatusCompleted
		order.PaymentMethod = req.PaymentMethod
		order.PaymentStatus = PaymentStatusPaid
		order.PaidAmount = req.PaidAmount
		order.ChangeAmount = money.Round(req.PaidAmount.Sub(order.TotalAmount))
		order.CompletedAt = &now

		if err := tx.Model(order).Updates(map[string]interface{}{
			"status":         order.Status,
			"payment_method": order.PaymentMethod,
			"payment_status": order.PaymentStatus,
			"paid_amount":    order.PaidAmount,
			"change_amount":  order.ChangeAmount,
			"completed_at":   order.CompletedAt,
		}).Error; err != nil {
			return fmt.Errorf("failed to complete sales order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record("sales_order.completed", "sales_order", order.ID, actorID, order.OrderNumber)
	s.log.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"paid":         order.PaidAmount.String(),
		"change":       order.ChangeAmount.String(),
	}).Info("Sales order completed")

	return order, nil
}

// CancelSalesOrder cancels a draft order and releases its reservations.
func (s *Service) CancelSalesOrder(id uint, actorID uint) (*SalesOrder, error) {
	var order *SalesOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.getOrderTx(tx, id)
		if err != nil {
			return err
		}
		if !order.CanTransitionTo(OrderStatusCancelled) {
			return apperrors.InvalidState(
				"cannot cancel order %s: status is %s", order.OrderNumber, order.Status)
		}

		for _, item := range order.Items {
			if item.LotID == nil {
				continue
			}
			if err := s.inventory.Release(tx, *item.LotID, item.Quantity, actorID, "sales_order", order.ID); err != nil {
				return err
			}
		}

		order.Status = OrderStatusCancelled
		if err := tx.Model(order).Update("status", order.Status).Error; err != nil {
			return fmt.Errorf("failed to cancel sales order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record("sales_order.cancelled", "sales_order", order.ID, actorID, order.OrderNumber)
	return order, nil
}

// GetSalesOrder retrieves a sales order with items
func (s *Service) GetSalesOrder(id uint) (*SalesOrder, error) {
	return s.getOrderTx(s.db, id)
}

// GetSalesOrders retrieves sales orders with filtering and pagination
func (s *Service) GetSalesOrders(req *SalesOrderListRequest) (*SalesOrderListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&SalesOrder{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.DateFrom != "" {
		from, err := time.Parse("2006-01-02", req.DateFrom)
		if err != nil {
			return nil, apperrors.Validation("invalid date_from '%s': expected YYYY-MM-DD", req.DateFrom)
		}
		query = query.Where("order_date >= ?", from)
	}
	if req.DateTo != "" {
		to, err := time.Parse("2006-01-02", req.DateTo)
		if err != nil {
			return nil, apperrors.Validation("invalid date_to '%s': expected YYYY-MM-DD", req.DateTo)
		}
		query = query.Where("order_date < ?", to.AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count sales orders: %w", err)
	}

	var orders []SalesOrder
	offset := (req.Page - 1) * req.Limit
	if err := query.Preload("Items").Order("order_date desc").Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve sales orders: %w", err)
	}

	return &SalesOrderListResponse{Items: orders, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *Service) getOrderTx(tx *gorm.DB, id uint) (*SalesOrder, error) {
	var order SalesOrder
	if err := tx.Preload("Items").Preload("Customer").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("sales order %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve sales order: %w", err)
	}
	return &order, nil
}
