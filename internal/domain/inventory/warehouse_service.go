// internal/domain/inventory/warehouse_service.go
package inventory

import (
	"errors"
	"fmt"

	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// CreateWarehouseRequest represents warehouse creation data
type CreateWarehouseRequest struct {
	Code    string        `json:"code" binding:"required"`
	Name    string        `json:"name" binding:"required"`
	Type    WarehouseType `json:"type"`
	Address string        `json:"address"`
}

// UpdateWarehouseRequest represents warehouse update data
type UpdateWarehouseRequest struct {
	Name     *string        `json:"name"`
	Type     *WarehouseType `json:"type"`
	Address  *string        `json:"address"`
	IsActive *bool          `json:"is_active"`
}

// CreateWarehouse creates a new warehouse
func (s *Service) CreateWarehouse(req *CreateWarehouseRequest) (*Warehouse, error) {
	if req.Type == "" {
		req.Type = WarehouseTypeMain
	}
	switch req.Type {
	case WarehouseTypeMain, WarehouseTypeBranch, WarehouseTypeColdStorage, WarehouseTypeQuarantine:
	default:
		return nil, apperrors.Validation("invalid warehouse type '%s'", req.Type)
	}

	var count int64
	if err := s.db.Model(&Warehouse{}).Where("code = ?", req.Code).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check warehouse code: %w", err)
	}
	if count > 0 {
		return nil, apperrors.IntegrityViolation("warehouse code '%s' already exists", req.Code)
	}

	warehouse := &Warehouse{
		Code:     req.Code,
		Name:     req.Name,
		Type:     req.Type,
		Address:  req.Address,
		IsActive: true,
	}
	if err := s.db.Create(warehouse).Error; err != nil {
		return nil, fmt.Errorf("failed to create warehouse: %w", err)
	}
	return warehouse, nil
}

// GetWarehouse retrieves a warehouse by ID
func (s *Service) GetWarehouse(id uint) (*Warehouse, error) {
	var warehouse Warehouse
	if err := s.db.First(&warehouse, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("warehouse %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve warehouse: %w", err)
	}
	return &warehouse, nil
}

// GetWarehouses retrieves all active warehouses
func (s *Service) GetWarehouses(includeInactive bool) ([]Warehouse, error) {
	query := s.db.Model(&Warehouse{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var warehouses []Warehouse
	if err := query.Order("code asc").Find(&warehouses).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve warehouses: %w", err)
	}
	return warehouses, nil
}

// UpdateWarehouse updates an existing warehouse
func (s *Service) UpdateWarehouse(id uint, req *UpdateWarehouseRequest) (*Warehouse, error) {
	warehouse, err := s.GetWarehouse(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		warehouse.Name = *req.Name
	}
	if req.Type != nil {
		switch *req.Type {
		case WarehouseTypeMain, WarehouseTypeBranch, WarehouseTypeColdStorage, WarehouseTypeQuarantine:
		default:
			return nil, apperrors.Validation("invalid warehouse type '%s'", *req.Type)
		}
		warehouse.Type = *req.Type
	}
	if req.Address != nil {
		warehouse.Address = *req.Address
	}
	if req.IsActive != nil {
		warehouse.IsActive = *req.IsActive
	}

	if err := s.db.Save(warehouse).Error; err != nil {
		return nil, fmt.Errorf("failed to update warehouse: %w", err)
	}
	return warehouse, nil
}

// DeleteWarehouse removes a warehouse that holds no lots
func (s *Service) DeleteWarehouse(id uint) error {
	if _, err := s.GetWarehouse(id); err != nil {
		return err
	}

	var lotCount int64
	if err := s.db.Model(&InventoryLot{}).Where("warehouse_id = ?", id).Count(&lotCount).Error; err != nil {
		return fmt.Errorf("failed to check warehouse lots: %w", err)
	}
	if lotCount > 0 {
		return apperrors.InvalidState("cannot delete warehouse: %d lots reference it", lotCount)
	}

	if err := s.db.Delete(&Warehouse{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete warehouse: %w", err)
	}
	return nil
}
