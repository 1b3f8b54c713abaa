// internal/domain/product/category_service.go
package product

import (
	"errors"
	"fmt"

	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// CreateCategoryRequest represents category creation data
type CreateCategoryRequest struct {
	Code        string `json:"code" binding:"required"`
	NameTH      string `json:"name_th" binding:"required"`
	NameEN      string `json:"name_en"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
}

// UpdateCategoryRequest represents category update data
type UpdateCategoryRequest struct {
	NameTH      *string `json:"name_th"`
	NameEN      *string `json:"name_en"`
	Description *string `json:"description"`
	ParentID    *uint   `json:"parent_id"`
}

// CreateCategory creates a new category
func (s *Service) CreateCategory(req *CreateCategoryRequest) (*Category, error) {
	var count int64
	if err := s.db.Model(&Category{}).Where("code = ?", req.Code).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check category code: %w", err)
	}
	if count > 0 {
		return nil, apperrors.IntegrityViolation("category with code '%s' already exists", req.Code)
	}

	if req.ParentID != nil {
		if err := s.db.First(&Category{}, *req.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("parent category %d not found", *req.ParentID)
			}
			return nil, fmt.Errorf("failed to check parent category: %w", err)
		}
	}

	category := &Category{
		Code:        req.Code,
		NameTH:      req.NameTH,
		NameEN:      req.NameEN,
		Description: req.Description,
		ParentID:    req.ParentID,
		IsActive:    true,
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// GetCategory retrieves a single category by ID
func (s *Service) GetCategory(id uint) (*Category, error) {
	var category Category
	if err := s.db.Preload("Children").First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("category %d not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve category: %w", err)
	}
	return &category, nil
}

// GetCategories retrieves all active categories
func (s *Service) GetCategories() ([]Category, error) {
	var categories []Category
	if err := s.db.Where("is_active = ?", true).Order("code asc").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory updates a category. Re-parenting is validated against cycles:
// the new parent may not be the category itself or any of its descendants.
func (s *Service) UpdateCategory(id uint, req *UpdateCategoryRequest) (*Category, error) {
	category, err := s.GetCategory(id)
	if err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, apperrors.Validation("category cannot be its own parent")
		}
		if err := s.db.First(&Category{}, *req.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("parent category %d not found", *req.ParentID)
			}
			return nil, fmt.Errorf("failed to check parent category: %w", err)
		}
		cyclic, err := s.isDescendantOf(*req.ParentID, id)
		if err != nil {
			return nil, err
		}
		if cyclic {
			return nil, apperrors.Validation("category %d cannot become a child of its own descendant %d", id, *req.ParentID)
		}
		category.ParentID = req.ParentID
	}

	if req.NameTH != nil {
		category.NameTH = *req.NameTH
	}
	if req.NameEN != nil {
		category.NameEN = *req.NameEN
	}
	if req.Description != nil {
		category.Description = *req.Description
	}

	if err := s.db.Save(category).Error; err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

// DeleteCategory deletes a category, rejected while subcategories or products
// reference it.
func (s *Service) DeleteCategory(id uint) error {
	if _, err := s.GetCategory(id); err != nil {
		return err
	}

	var children int64
	if err := s.db.Model(&Category{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
		return fmt.Errorf("failed to check subcategories: %w", err)
	}
	if children > 0 {
		return apperrors.InvalidState("cannot delete category %d: %d subcategories exist", id, children)
	}

	var products int64
	if err := s.db.Model(&Product{}).Where("category_id = ?", id).Count(&products).Error; err != nil {
		return fmt.Errorf("failed to check category products: %w", err)
	}
	if products > 0 {
		return apperrors.InvalidState("cannot delete category %d: %d products reference it", id, products)
	}

	if err := s.db.Delete(&Category{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// isDescendantOf walks up the tree from candidate and reports whether ancestor
// appears on the path. The walk is bounded to guard against pre-existing bad
// data looping forever.
func (s *Service) isDescendantOf(candidate, ancestor uint) (bool, error) {
	current := candidate
	for depth := 0; depth < 100; depth++ {
		var cat Category
		if err := s.db.Select("id", "parent_id").First(&cat, current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("failed to walk category tree: %w", err)
		}
		if cat.ParentID == nil {
			return false, nil
		}
		if *cat.ParentID == ancestor {
			return true, nil
		}
		current = *cat.ParentID
	}
	return false, apperrors.IntegrityViolation("category tree depth exceeded walking from %d", candidate)
}
