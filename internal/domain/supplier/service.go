// internal/domain/supplier/service.go
package supplier

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles supplier business logic
type Service struct {
	db *gorm.DB
}

// NewService creates a new supplier service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateSupplierRequest represents supplier creation data
type CreateSupplierRequest struct {
	Code          string          `json:"code" binding:"required"`
	NameTH        string          `json:"name_th" binding:"required"`
	NameEN        string          `json:"name_en"`
	TaxID         string          `json:"tax_id"`
	ContactPerson string          `json:"contact_person"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Fax           string          `json:"fax"`
	Mobile        string          `json:"mobile"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	Province      string          `json:"province"`
	PostalCode    string          `json:"postal_code"`
	Country       string          `json:"country"`
	PaymentTerms  string          `json:"payment_terms"`
	CreditLimit   decimal.Decimal `json:"credit_limit"`
	DiscountTerms string          `json:"discount_terms"`
	Rating        string          `json:"rating"`
	Notes         string          `json:"notes"`
}

// UpdateSupplierRequest represents supplier update data
type UpdateSupplierRequest struct {
	NameTH        *string          `json:"name_th"`
	NameEN        *string          `json:"name_en"`
	TaxID         *string          `json:"tax_id"`
	ContactPerson *string          `json:"contact_person"`
	Email         *string          `json:"email"`
	Phone         *string          `json:"phone"`
	Fax           *string          `json:"fax"`
	Mobile        *string          `json:"mobile"`
	Address       *string          `json:"address"`
	City          *string          `json:"city"`
	Province      *string          `json:"province"`
	PostalCode    *string          `json:"postal_code"`
	Country       *string          `json:"country"`
	PaymentTerms  *string          `json:"payment_terms"`
	CreditLimit   *decimal.Decimal `json:"credit_limit"`
	DiscountTerms *string          `json:"discount_terms"`
	IsActive      *bool            `json:"is_active"`
	Rating        *string          `json:"rating"`
	Notes         *string          `json:"notes"`
}

// SupplierListRequest represents supplier list query parameters
type SupplierListRequest struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	Search string `form:"search"`
}

// SupplierListResponse represents a paginated supplier list
type SupplierListResponse struct {
	Items []Supplier `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

// CreateSupplier creates a new supplier
func (s *Service) CreateSupplier(req *CreateSupplierRequest) (*Supplier, error) {
	if req.CreditLimit.IsNegative() {
		return nil, apperrors.Validation("credit limit must not be negative")
	}

	var count int64
	if err := s.db.Model(&Supplier{}).Where("code = ?", req.Code).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check supplier code: %w", err)
	}
	if count > 0 {
		return nil, apperrors.IntegrityViolation("supplier code '%s' already exists", req.Code)
	}

	country := req.Country
	if country == "" {
		country = "Thailand"
	}

	supplier := &Supplier{
		Code:          req.Code,
		NameTH:        req.NameTH,
		NameEN:        req.NameEN,
		TaxID:         req.TaxID,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Fax:           req.Fax,
		Mobile:        req.Mobile,
		Address:       req.Address,
		City:          req.City,
		Province:      req.Province,
		PostalCode:    req.PostalCode,
		Country:       country,
		PaymentTerms:  req.PaymentTerms,
		CreditLimit:   req.CreditLimit,
		DiscountTerms: req.DiscountTerms,
		IsActive:      true,
		Rating:        req.Rating,
		Notes:         req.Notes,
	}
	if err := s.db.Create(supplier).Error; err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return supplier, nil
}

// GetSupplier retrieves a supplier by ID
func (s *Service) GetSupplier(id uint) (*Supplier, error) {
	var supplier Supplier
	if err := s.db.First(&supplier, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("supplier %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve supplier: %w", err)
	}
	return &supplier, nil
}

// GetSuppliers retrieves suppliers with search and pagination
func (s *Service) GetSuppliers(req *SupplierListRequest) (*SupplierListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Supplier{}).Where("is_active = ?", true)
	if req.Search != "" {
		pattern := "%" + req.Search + "%"
		query = query.Where("code LIKE ? OR name_th LIKE ? OR name_en LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count suppliers: %w", err)
	}

	var suppliers []Supplier
	offset := (req.Page - 1) * req.Limit
	if err := query.Order("code asc").Offset(offset).Limit(req.Limit).Find(&suppliers).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve suppliers: %w", err)
	}

	return &SupplierListResponse{Items: suppliers, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

// UpdateSupplier updates an existing supplier
func (s *Service) UpdateSupplier(id uint, req *UpdateSupplierRequest) (*Supplier, error) {
	supplier, err := s.GetSupplier(id)
	if err != nil {
		return nil, err
	}

	if req.NameTH != nil {
		supplier.NameTH = *req.NameTH
	}
	if req.NameEN != nil {
		supplier.NameEN = *req.NameEN
	}
	if req.TaxID != nil {
		supplier.TaxID = *req.TaxID
	}
	if req.ContactPerson != nil {
		supplier.ContactPerson = *req.ContactPerson
	}
	if req.Email != nil {
		supplier.Email = *req.Email
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Fax != nil {
		supplier.Fax = *req.Fax
	}
	if req.Mobile != nil {
		supplier.Mobile = *req.Mobile
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.City != nil {
		supplier.City = *req.City
	}
	if req.Province != nil {
		supplier.Province = *req.Province
	}
	if req.PostalCode != nil {
		supplier.PostalCode = *req.PostalCode
	}
	if req.Country != nil {
		supplier.Country = *req.Country
	}
	if req.PaymentTerms != nil {
		supplier.PaymentTerms = *req.PaymentTerms
	}
	if req.CreditLimit != nil {
		if req.CreditLimit.IsNegative() {
			return nil, apperrors.Validation("credit limit must not be negative")
		}
		supplier.CreditLimit = *req.CreditLimit
	}
	if req.DiscountTerms != nil {
		supplier.DiscountTerms = *req.DiscountTerms
	}
	if req.IsActive != nil {
		supplier.IsActive = *req.IsActive
	}
	if req.Rating != nil {
		supplier.Rating = *req.Rating
	}
	if req.Notes != nil {
		supplier.Notes = *req.Notes
	}

	if err := s.db.Save(supplier).Error; err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}
	return supplier, nil
}

// DeactivateSupplier soft-deletes a supplier
func (s *Service) DeactivateSupplier(id uint) error {
	supplier, err := s.GetSupplier(id)
	if err != nil {
		return err
	}
	supplier.IsActive = false
	if err := s.db.Save(supplier).Error; err != nil {
		return fmt.Errorf("failed to deactivate supplier: %w", err)
	}
	return nil
}
