// internal/domain/customer/service.go
package customer

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles customer business logic
type Service struct {
	db *gorm.DB
}

// NewService creates a new customer service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateCustomerRequest represents customer creation data
type CreateCustomerRequest struct {
	Code              string     `json:"code" binding:"required"`
	Name              string     `json:"name" binding:"required"`
	NationalID        string     `json:"national_id"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	Gender            string     `json:"gender"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	Mobile            string     `json:"mobile"`
	Address           string     `json:"address"`
	City              string     `json:"city"`
	Province          string     `json:"province"`
	PostalCode        string     `json:"postal_code"`
	MembershipTier    string     `json:"membership_tier"`
	Allergies         string     `json:"allergies"`
	ChronicConditions string     `json:"chronic_conditions"`
	Notes             string     `json:"notes"`
}

// UpdateCustomerRequest represents customer update data
type UpdateCustomerRequest struct {
	Name              *string    `json:"name"`
	NationalID        *string    `json:"national_id"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	Gender            *string    `json:"gender"`
	Email             *string    `json:"email"`
	Phone             *string    `json:"phone"`
	Mobile            *string    `json:"mobile"`
	Address           *string    `json:"address"`
	City              *string    `json:"city"`
	Province          *string    `json:"province"`
	PostalCode        *string    `json:"postal_code"`
	LoyaltyPoints     *int       `json:"loyalty_points"`
	MembershipTier    *string    `json:"membership_tier"`
	Allergies         *string    `json:"allergies"`
	ChronicConditions *string    `json:"chronic_conditions"`
	IsActive          *bool      `json:"is_active"`
	Notes             *string    `json:"notes"`
}

// CustomerListRequest represents customer list query parameters
type CustomerListRequest struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=20"`
	Search string `form:"search"`
}

// CustomerListResponse represents a paginated customer list
type CustomerListResponse struct {
	Items []Customer `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

// CreateCustomer creates a new customer
func (s *Service) CreateCustomer(req *CreateCustomerRequest) (*Customer, error) {
	var count int64
	if err := s.db.Model(&Customer{}).Where("code = ?", req.Code).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check customer code: %w", err)
	}
	if count > 0 {
		return nil, apperrors.IntegrityViolation("customer code '%s' already exists", req.Code)
	}

	now := time.Now().UTC()
	customer := &Customer{
		Code:              req.Code,
		Name:              req.Name,
		NationalID:        req.NationalID,
		DateOfBirth:       req.DateOfBirth,
		Gender:            req.Gender,
		Email:             req.Email,
		Phone:             req.Phone,
		Mobile:            req.Mobile,
		Address:           req.Address,
		City:              req.City,
		Province:          req.Province,
		PostalCode:        req.PostalCode,
		MemberSince:       &now,
		MembershipTier:    req.MembershipTier,
		Allergies:         req.Allergies,
		ChronicConditions: req.ChronicConditions,
		IsActive:          true,
		Notes:             req.Notes,
	}
	if err := s.db.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return customer, nil
}

// GetCustomer retrieves a customer by ID
func (s *Service) GetCustomer(id uint) (*Customer, error) {
	var customer Customer
	if err := s.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("customer %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve customer: %w", err)
	}
	return &customer, nil
}

// GetCustomers retrieves customers with search and pagination
func (s *Service) GetCustomers(req *CustomerListRequest) (*CustomerListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	query := s.db.Model(&Customer{}).Where("is_active = ?", true)
	if req.Search != "" {
		pattern := "%" + req.Search + "%"
		query = query.Where("code LIKE ? OR name LIKE ? OR phone LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	var customers []Customer
	offset := (req.Page - 1) * req.Limit
	if err := query.Order("code asc").Offset(offset).Limit(req.Limit).Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve customers: %w", err)
	}

	return &CustomerListResponse{Items: customers, Total: total, Page: req.Page, Limit: req.Limit}, nil
}

// UpdateCustomer updates an existing customer
func (s *Service) UpdateCustomer(id uint, req *UpdateCustomerRequest) (*Customer, error) {
	customer, err := s.GetCustomer(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.NationalID != nil {
		customer.NationalID = *req.NationalID
	}
	if req.DateOfBirth != nil {
		customer.DateOfBirth = req.DateOfBirth
	}
	if req.Gender != nil {
		customer.Gender = *req.Gender
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}
	if req.Mobile != nil {
		customer.Mobile = *req.Mobile
	}
	if req.Address != nil {
		customer.Address = *req.Address
	}
	if req.City != nil {
		customer.City = *req.City
	}
	if req.Province != nil {
		customer.Province = *req.Province
	}
	if req.PostalCode != nil {
		customer.PostalCode = *req.PostalCode
	}
	if req.LoyaltyPoints != nil {
		if *req.LoyaltyPoints < 0 {
			return nil, apperrors.Validation("loyalty points must not be negative")
		}
		customer.LoyaltyPoints = *req.LoyaltyPoints
	}
	if req.MembershipTier != nil {
		customer.MembershipTier = *req.MembershipTier
	}
	if req.Allergies != nil {
		customer.Allergies = *req.Allergies
	}
	if req.ChronicConditions != nil {
		customer.ChronicConditions = *req.ChronicConditions
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}
	if req.Notes != nil {
		customer.Notes = *req.Notes
	}

	if err := s.db.Save(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return customer, nil
}

// DeactivateCustomer soft-deletes a customer
func (s *Service) DeactivateCustomer(id uint) error {
	customer, err := s.GetCustomer(id)
	if err != nil {
		return err
	}
	customer.IsActive = false
	if err := s.db.Save(customer).Error; err != nil {
		return fmt.Errorf("failed to deactivate customer: %w", err)
	}
	return nil
}
