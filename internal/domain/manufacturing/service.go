// internal/domain/manufacturing/service.go
package manufacturing

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
	"gorm.io/gorm"
)

// Service handles the manufacturing order workflow
type Service struct {
	db        *gorm.DB
	config    *config.Config
	inventory *inventory.Service
	audit     *audit.Recorder
	log       *logrus.Logger
}

// NewService creates a new manufacturing service
func NewService(db *gorm.DB, cfg *config.Config, inv *inventory.Service, rec *audit.Recorder, log *logrus.Logger) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		inventory: inv,
		audit:     rec,
		log:       log,
	}
}

// BOMItemRequest represents one component line of a new manufacturing order
type BOMItemRequest struct {
	ComponentProductID uint `json:"component_product_id" binding:"required"`
	QuantityRequired   int  `json:"quantity_required" binding:"required"`
}

// CreateManufacturingOrderRequest represents manufacturing order creation data
type CreateManufacturingOrderRequest struct {
	ProductID          uint             `json:"product_id" binding:"required"`
	QuantityToProduce  int              `json:"quantity_to_produce" binding:"required"`
	WarehouseID        uint             `json:"warehouse_id" binding:"required"`
	BatchNumber        string           `json:"batch_number"`
	SupervisorID       *uint            `json:"supervisor_id"`
	ScheduledStartDate *time.Time       `json:"scheduled_start_date"`
	ScheduledEndDate   *time.Time       `json:"scheduled_end_date"`
	Notes              string           `json:"notes"`
	BOMItems           []BOMItemRequest `json:"bom_items" binding:"required,min=1"`
}

// CompleteManufacturingOrderRequest represents production completion data
type CompleteManufacturingOrderRequest struct {
	QuantityProduced int       `json:"quantity_produced" binding:"required"`
	LotNumber        string    `json:"lot_number" binding:"required"`
	ExpiryDate       time.Time `json:"expiry_date" binding:"required"`
}

// ManufacturingOrderListRequest represents list query parameters
type ManufacturingOrderListRequest struct {
	Page   int                 `form:"page,default=1"`
	Limit  int                 `form:"limit,default=20"`
	Status ManufacturingStatus `form:"status"`
}

// ManufacturingOrderListResponse represents a paginated manufacturing order list
type ManufacturingOrderListResponse struct {
	Items []ManufacturingOrder `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// CreateManufacturingOrder creates a draft production order with its bill of
// materials. Components are not touched until completion.
func (s *Service) CreateManufacturingOrder(req *CreateManufacturingOrderRequest, actorID uint) (*ManufacturingOrder, error) {
	if req.QuantityToProduce <= 0 {
		return nil, apperrors.Validation("quantity to produce must be positive, got %d", req.QuantityToProduce)
	}
	if len(req.BOMItems) == 0 {
		return nil, apperrors.Validation("manufacturing order must list at least one component")
	}

	var prod product.Product
	if err := s.db.First(&prod, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product %d not found", req.ProductID)
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	if _, err := s.inventory.GetWarehouse(req.WarehouseID); err != nil {
		return nil, err
	}

	var order *ManufacturingOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		order = &ManufacturingOrder{
			ProductID:          req.ProductID,
			QuantityToProduce:  req.QuantityToProduce,
			BatchNumber:        req.BatchNumber,
			Status:             ManufacturingStatusDraft,
			SupervisorID:       req.SupervisorID,
			WarehouseID:        req.WarehouseID,
			ScheduledStartDate: req.ScheduledStartDate,
			ScheduledEndDate:   req.ScheduledEndDate,
			Notes:              req.Notes,
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create manufacturing order: %w", err)
		}
		order.MONumber = fmt.Sprintf("MO-%s-%05d", now.Format("20060102"), order.ID)

		items := make([]BillOfMaterials, 0, len(req.BOMItems))
		for i, line := range req.BOMItems {
			if line.QuantityRequired <= 0 {
				return apperrors.Validation("component %d: quantity must be positive, got %d", i+1, line.QuantityRequired)
			}
			var comp product.Product
			if err := tx.First(&comp, line.ComponentProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NotFound("component product %d not found", line.ComponentProductID)
				}
				return fmt.Errorf("failed to retrieve component: %w", err)
			}
			items = append(items, BillOfMaterials{
				ManufacturingOrderID: order.ID,
				ComponentProductID:   comp.ID,
				QuantityRequired:     line.QuantityRequired,
				UnitOfMeasure:        comp.UnitOfMeasure,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create bill of materials: %w", err)
		}
		order.BOMItems = items

		if err := tx.Model(order).Update("mo_number", order.MONumber).Error; err != nil {
			return fmt.Errorf("failed to assign order number: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record("manufacturing_order.created", "manufacturing_order", order.ID, actorID, order.MONumber)
	return order, nil
}

// ConfirmManufacturingOrder approves a draft production order.
func (s *Service) ConfirmManufacturingOrder(id uint, actorID uint) (*ManufacturingOrder, error) {
	return s.transition(id, ManufacturingStatusConfirmed, actorID, nil)
}

// StartManufacturingOrder marks production as underway.
func (s *Service) StartManufacturingOrder(id uint, actorID uint) (*ManufacturingOrder, error) {
	now := time.Now().UTC()
	return s.transition(id, ManufacturingStatusInProgress, actorID, func(o *ManufacturingOrder) {
		o.ActualStartDate = &now
	})
}

// CancelManufacturingOrder cancels an order that has not started.
func (s *Service) CancelManufacturingOrder(id uint, actorID uint) (*ManufacturingOrder, error) {
	return s.transition(id, ManufacturingStatusCancelled, actorID, nil)
}

// CompleteManufacturingOrder consumes the bill of materials from stock and
// receives the finished goods as a new lot. Each component draws from its
// earliest-expiring lot. The finished lot is costed at total component cost
// divided by the quantity produced.
func (s *Service) CompleteManufacturingOrder(id uint, req *CompleteManufacturingOrderRequest, actorID uint) (*ManufacturingOrder, error) {
	if req.QuantityProduced <= 0 {
		return nil, apperrors.Validation("quantity produced must be positive, got %d", req.QuantityProduced)
	}

	var order *ManufacturingOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.getOrderTx(tx, id)
		if err != nil {
			return err
		}
		if !order.CanTransitionTo(ManufacturingStatusCompleted) {
			return apperrors.InvalidState(
				"cannot complete order %s: status is %s", order.MONumber, order.Status)
		}

		componentCost := decimal.Zero
		for i := range order.BOMItems {
			item := &order.BOMItems[i]

			lot, err := s.inventory.SelectLot(tx, item.ComponentProductID, item.QuantityRequired, nil)
			if err != nil {
				return err
			}
			if err := s.inventory.Reserve(tx, lot.ID, item.QuantityRequired, actorID, "manufacturing_order", order.ID); err != nil {
				return err
			}
			if err := s.inventory.Consume(tx, lot.ID, item.QuantityRequired, actorID, "manufacturing_order", order.ID); err != nil {
				return err
			}

			componentCost = componentCost.Add(lot.UnitCost.Mul(decimal.NewFromInt(int64(item.QuantityRequired))))

			item.QuantityConsumed = item.QuantityRequired
			if err := tx.Model(item).Update("quantity_consumed", item.QuantityConsumed).Error; err != nil {
				return fmt.Errorf("failed to update consumed quantity: %w", err)
			}
		}

		unitCost := componentCost.Div(decimal.NewFromInt(int64(req.QuantityProduced)))
		if _, err := s.inventory.Receive(tx, &inventory.ReceiveLotRequest{
			ProductID:     order.ProductID,
			WarehouseID:   order.WarehouseID,
			LotNumber:     req.LotNumber,
			Quantity:      req.QuantityProduced,
			UnitCost:      unitCost,
			ExpiryDate:    req.ExpiryDate,
			ReferenceType: "manufacturing_order",
			ReferenceID:   order.ID,
		}, actorID); err != nil {
			return err
		}

		now := time.Now().UTC()
		order.Status = ManufacturingStatusCompleted
		order.QuantityProduced = req.QuantityProduced
		order.LotNumber = req.LotNumber
		order.ActualEndDate = &now

		if err := tx.Model(order).Updates(map[string]interface{}{
			"status":            order.Status,
			"quantity_produced": order.QuantityProduced,
			"lot_number":        order.LotNumber,
			"actual_end_date":   order.ActualEndDate,
		}).Error; err != nil {
			return fmt.Errorf("failed to complete manufacturing order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record("manufacturing_order.completed", "manufacturing_order", order.ID, actorID, order.MONumber)
	s.log.WithFields(logrus.Fields{
		"mo_number": order.MONumber,
		"produced":  order.QuantityProduced,
		"lot":       order.LotNumber,
	}).Info("Manufacturing order completed")

	return order, nil
}

// GetManufacturingOrder retrieves a manufacturing order with its BOM
func (s *Service) GetManufacturingOrder(id uint) (*ManufacturingOrder, error) {
	return s.getOrderTx(s.db, id)
}

// GetManufacturingOrders retrieves manufacturing orders with filtering and pagination
func (s *Service) GetManufacturingOrders(req *ManufacturingOrderListRequest) (*ManufacturingOrderListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&ManufacturingOrder{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count manufacturing orders: %w", err)
	}

	var orders []ManufacturingOrder
	offset := (req.Page - 1) * req.Limit
	if err := query.Preload("BOMItems").Order("created_at desc").Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve manufacturing orders: %w", err)
	}

	return &ManufacturingOrderListResponse{Items: orders, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *Service) transition(id uint, target ManufacturingStatus, actorID uint, apply func(*ManufacturingOrder)) (*ManufacturingOrder, error) {
	var order *ManufacturingOrder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.getOrderTx(tx, id)
		if err != nil {
			return err
		}
		if !order.CanTransitionTo(target) {
			return apperrors.InvalidState(
				"cannot move order %s from %s to %s", order.MONumber, order.Status, target)
		}

		order.Status = target
		if apply != nil {
			apply(order)
		}
		if err := tx.Model(order).Updates(map[string]interface{}{
			"status":            order.Status,
			"actual_start_date": order.ActualStartDate,
		}).Error; err != nil {
			return fmt.Errorf("failed to update manufacturing order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(fmt.Sprintf("manufacturing_order.%s", target), "manufacturing_order", order.ID, actorID, order.MONumber)
	return order, nil
}

func (s *Service) getOrderTx(tx *gorm.DB, id uint) (*ManufacturingOrder, error) {
	var order ManufacturingOrder
	if err := tx.Preload("BOMItems").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("manufacturing order %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve manufacturing order: %w", err)
	}
	return &order, nil
}
