// internal/domain/product/service.go
package product

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles product business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new product service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	SKU              string           `json:"sku" binding:"required"`
	Barcode          *string          `json:"barcode"`
	NameTH           string           `json:"name_th" binding:"required"`
	NameEN           string           `json:"name_en"`
	GenericName      string           `json:"generic_name"`
	Description      string           `json:"description"`
	CategoryID       *uint            `json:"category_id"`
	ActiveIngredient string           `json:"active_ingredient"`
	DosageForm       DosageForm       `json:"dosage_form"`
	Strength         string           `json:"strength"`
	DrugType         DrugType         `json:"drug_type"`
	FDANumber        string           `json:"fda_number"`
	Manufacturer     string           `json:"manufacturer"`
	CostPrice        decimal.Decimal  `json:"cost_price"`
	SellingPrice     decimal.Decimal  `json:"selling_price"`
	IsVATApplicable  *bool            `json:"is_vat_applicable"`
	VATRate          *decimal.Decimal `json:"vat_rate"`
	VATCategory      VATCategory      `json:"vat_category"`
	UnitOfMeasure    string           `json:"unit_of_measure"`
	MinimumStock     int              `json:"minimum_stock"`
	ReorderPoint     int              `json:"reorder_point"`
}

// UpdateProductRequest represents mutable product fields. Identity (SKU,
// barcode) is immutable and deliberately absent.
type UpdateProductRequest struct {
	NameTH          *string          `json:"name_th"`
	NameEN          *string          `json:"name_en"`
	GenericName     *string          `json:"generic_name"`
	Description     *string          `json:"description"`
	CategoryID      *uint            `json:"category_id"`
	CostPrice       *decimal.Decimal `json:"cost_price"`
	SellingPrice    *decimal.Decimal `json:"selling_price"`
	IsVATApplicable *bool            `json:"is_vat_applicable"`
	VATRate         *decimal.Decimal `json:"vat_rate"`
	VATCategory     *VATCategory     `json:"vat_category"`
	MinimumStock    *int             `json:"minimum_stock"`
	ReorderPoint    *int             `json:"reorder_point"`
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page            int    `form:"page,default=1"`
	Limit           int    `form:"limit,default=20"`
	Search          string `form:"search"`
	CategoryID      uint   `form:"category_id"`
	IncludeInactive bool   `form:"include_inactive"`
}

// ProductListResponse represents a paginated product list
type ProductListResponse struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// CreateProduct creates a new product
func (s *Service) CreateProduct(req *CreateProductRequest) (*Product, error) {
	if err := s.validatePricing(req.CostPrice, req.SellingPrice, req.VATRate); err != nil {
		return nil, err
	}
	if req.MinimumStock < 0 || req.ReorderPoint < 0 {
		return nil, apperrors.Validation("stock thresholds must not be negative")
	}

	// SKU and barcode must be unique
	var count int64
	if err := s.db.Model(&Product{}).Where("sku = ?", req.SKU).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check sku: %w", err)
	}
	if count > 0 {
		return nil, apperrors.IntegrityViolation("product with sku '%s' already exists", req.SKU)
	}
	if req.Barcode != nil && *req.Barcode != "" {
		if err := s.db.Model(&Product{}).Where("barcode = ?", *req.Barcode).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check barcode: %w", err)
		}
		if count > 0 {
			return nil, apperrors.IntegrityViolation("product with barcode '%s' already exists", *req.Barcode)
		}
	}

	if req.CategoryID != nil {
		if err := s.db.First(&Category{}, *req.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("category %d not found", *req.CategoryID)
			}
			return nil, fmt.Errorf("failed to check category: %w", err)
		}
	}

	product := &Product{
		SKU:              req.SKU,
		Barcode:          req.Barcode,
		NameTH:           req.NameTH,
		NameEN:           req.NameEN,
		GenericName:      req.GenericName,
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		ActiveIngredient: req.ActiveIngredient,
		DosageForm:       req.DosageForm,
		Strength:         req.Strength,
		DrugType:         req.DrugType,
		FDANumber:        req.FDANumber,
		Manufacturer:     req.Manufacturer,
		CostPrice:        req.CostPrice,
		SellingPrice:     req.SellingPrice,
		IsVATApplicable:  true,
		VATRate:          s.config.VAT.DefaultRate,
		VATCategory:      VATCategoryStandard,
		UnitOfMeasure:    req.UnitOfMeasure,
		MinimumStock:     req.MinimumStock,
		ReorderPoint:     req.ReorderPoint,
		IsActive:         true,
	}
	if req.IsVATApplicable != nil {
		product.IsVATApplicable = *req.IsVATApplicable
	}
	if req.VATRate != nil {
		product.VATRate = *req.VATRate
	}
	if req.VATCategory != "" {
		product.VATCategory = req.VATCategory
	}
	if product.UnitOfMeasure == "" {
		product.UnitOfMeasure = "unit"
	}
	if product.DrugType == "" {
		product.DrugType = DrugTypeOTC
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(id uint) (*Product, error) {
	var product Product
	if err := s.db.Preload("Category").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// GetProductByBarcode retrieves a single product by barcode (POS scanning)
func (s *Service) GetProductByBarcode(barcode string) (*Product, error) {
	var product Product
	if err := s.db.Where("barcode = ? AND is_active = ?", barcode, true).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product with barcode '%s' not found", barcode)
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// GetProducts retrieves products with filtering and pagination. Inactive
// products are filtered out unless explicitly requested.
func (s *Service) GetProducts(req *ProductListRequest) (*ProductListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Product{})
	if !req.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("sku LIKE ? OR name_th LIKE ? OR name_en LIKE ? OR generic_name LIKE ?", like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []Product
	offset := (req.Page - 1) * req.Limit
	if err := query.Order("name_th asc").Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return &ProductListResponse{
		Items: products,
		Total: total,
		Page:  req.Page,
		Limit: req.Limit,
	}, nil
}

// UpdateProduct updates mutable product fields
func (s *Service) UpdateProduct(id uint, req *UpdateProductRequest) (*Product, error) {
	product, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}

	if req.CostPrice != nil && req.CostPrice.IsNegative() {
		return nil, apperrors.Validation("cost price must not be negative")
	}
	if req.SellingPrice != nil && req.SellingPrice.IsNegative() {
		return nil, apperrors.Validation("selling price must not be negative")
	}
	if req.VATRate != nil && req.VATRate.IsNegative() {
		return nil, apperrors.Validation("vat rate must not be negative")
	}
	if req.MinimumStock != nil && *req.MinimumStock < 0 {
		return nil, apperrors.Validation("minimum stock must not be negative")
	}
	if req.ReorderPoint != nil && *req.ReorderPoint < 0 {
		return nil, apperrors.Validation("reorder point must not be negative")
	}
	if req.CategoryID != nil {
		if err := s.db.First(&Category{}, *req.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("category %d not found", *req.CategoryID)
			}
			return nil, fmt.Errorf("failed to check category: %w", err)
		}
		product.CategoryID = req.CategoryID
	}

	if req.NameTH != nil {
		product.NameTH = *req.NameTH
	}
	if req.NameEN != nil {
		product.NameEN = *req.NameEN
	}
	if req.GenericName != nil {
		product.GenericName = *req.GenericName
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.CostPrice != nil {
		product.CostPrice = *req.CostPrice
	}
	if req.SellingPrice != nil {
		product.SellingPrice = *req.SellingPrice
	}
	if req.IsVATApplicable != nil {
		product.IsVATApplicable = *req.IsVATApplicable
	}
	if req.VATRate != nil {
		product.VATRate = *req.VATRate
	}
	if req.VATCategory != nil {
		product.VATCategory = *req.VATCategory
	}
	if req.MinimumStock != nil {
		product.MinimumStock = *req.MinimumStock
	}
	if req.ReorderPoint != nil {
		product.ReorderPoint = *req.ReorderPoint
	}

	if err := s.db.Save(product).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// DeactivateProduct soft-deletes a product. A product referenced by inventory
// lots or order items is never hard-deleted; referential integrity is RESTRICT.
func (s *Service) DeactivateProduct(id uint) error {
	product, err := s.GetProduct(id)
	if err != nil {
		return err
	}

	product.IsActive = false
	if err := s.db.Save(product).Error; err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	return nil
}

// DeleteProduct hard-deletes a product, rejected while lots or order items
// reference it. Raw table lookups keep this package free of dependencies on
// the transactional domains.
func (s *Service) DeleteProduct(id uint) error {
	if _, err := s.GetProduct(id); err != nil {
		return err
	}

	var refs int64
	if err := s.db.Table("inventory_lots").Where("product_id = ?", id).Count(&refs).Error; err != nil {
		return fmt.Errorf("failed to check lot references: %w", err)
	}
	if refs > 0 {
		return apperrors.InvalidState("cannot delete product %d: %d inventory lots reference it", id, refs)
	}
	if err := s.db.Table("sales_order_items").Where("product_id = ?", id).Count(&refs).Error; err != nil {
		return fmt.Errorf("failed to check sales references: %w", err)
	}
	if refs > 0 {
		return apperrors.InvalidState("cannot delete product %d: %d sales order items reference it", id, refs)
	}
	if err := s.db.Table("purchase_order_items").Where("product_id = ?", id).Count(&refs).Error; err != nil {
		return fmt.Errorf("failed to check purchase references: %w", err)
	}
	if refs > 0 {
		return apperrors.InvalidState("cannot delete product %d: %d purchase order items reference it", id, refs)
	}

	if err := s.db.Delete(&Product{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *Service) validatePricing(cost, selling decimal.Decimal, vatRate *decimal.Decimal) error {
	if cost.IsNegative() {
		return apperrors.Validation("cost price must not be negative")
	}
	if selling.IsNegative() {
		return apperrors.Validation("selling price must not be negative")
	}
	if vatRate != nil && vatRate.IsNegative() {
		return apperrors.Validation("vat rate must not be negative")
	}
	return nil
}
