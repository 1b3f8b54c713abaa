package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Category{}, &Product{}))

	cfg := &config.Config{}
	cfg.VAT.DefaultRate = decimal.NewFromInt(7)
	return NewService(db, cfg)
}

func createProduct(t *testing.T, s *Service, sku string) *Product {
	t.Helper()

	p, err := s.CreateProduct(&CreateProductRequest{
		SKU:          sku,
		NameTH:       "พาราเซตามอล 500 มก.",
		NameEN:       "Paracetamol 500mg",
		CostPrice:    decimal.NewFromFloat(3.50),
		SellingPrice: decimal.NewFromFloat(5.00),
	})
	require.NoError(t, err)
	return p
}

func TestCreateProductDefaults(t *testing.T) {
	s := newTestService(t)

	p := createProduct(t, s, "PARA-500")

	assert.True(t, p.IsVATApplicable)
	assert.True(t, p.VATRate.Equal(decimal.NewFromInt(7)))
	assert.Equal(t, VATCategoryStandard, p.VATCategory)
	assert.Equal(t, DrugTypeOTC, p.DrugType)
	assert.Equal(t, "unit", p.UnitOfMeasure)
	assert.True(t, p.IsActive)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	s := newTestService(t)
	createProduct(t, s, "PARA-500")

	_, err := s.CreateProduct(&CreateProductRequest{
		SKU:          "PARA-500",
		NameTH:       "ซ้ำ",
		CostPrice:    decimal.NewFromInt(1),
		SellingPrice: decimal.NewFromInt(2),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIntegrityViolation, apperrors.CodeOf(err))
}

func TestCreateProductDuplicateBarcode(t *testing.T) {
	s := newTestService(t)
	barcode := "8850001234567"

	_, err := s.CreateProduct(&CreateProductRequest{
		SKU:          "PARA-500",
		Barcode:      &barcode,
		NameTH:       "พาราเซตามอล",
		SellingPrice: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	_, err = s.CreateProduct(&CreateProductRequest{
		SKU:          "IBU-400",
		Barcode:      &barcode,
		NameTH:       "ไอบูโพรเฟน",
		SellingPrice: decimal.NewFromInt(8),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIntegrityViolation, apperrors.CodeOf(err))
}

func TestCreateProductNegativePricing(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateProduct(&CreateProductRequest{
		SKU:          "NEG-1",
		NameTH:       "ราคาติดลบ",
		CostPrice:    decimal.NewFromInt(-1),
		SellingPrice: decimal.NewFromInt(5),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	_, err = s.CreateProduct(&CreateProductRequest{
		SKU:          "NEG-2",
		NameTH:       "ราคาติดลบ",
		SellingPrice: decimal.NewFromInt(-5),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestCreateProductUnknownCategory(t *testing.T) {
	s := newTestService(t)
	missing := uint(999)

	_, err := s.CreateProduct(&CreateProductRequest{
		SKU:          "CAT-1",
		NameTH:       "สินค้า",
		CategoryID:   &missing,
		SellingPrice: decimal.NewFromInt(5),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestGetProductByBarcode(t *testing.T) {
	s := newTestService(t)
	barcode := "8850001234567"

	created, err := s.CreateProduct(&CreateProductRequest{
		SKU:          "PARA-500",
		Barcode:      &barcode,
		NameTH:       "พาราเซตามอล",
		SellingPrice: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	found, err := s.GetProductByBarcode(barcode)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = s.GetProductByBarcode("0000000000000")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestGetProductsFiltersInactive(t *testing.T) {
	s := newTestService(t)
	active := createProduct(t, s, "ACTIVE-1")
	inactive := createProduct(t, s, "INACTIVE-1")
	require.NoError(t, s.DeactivateProduct(inactive.ID))

	resp, err := s.GetProducts(&ProductListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, active.ID, resp.Items[0].ID)

	resp, err = s.GetProducts(&ProductListRequest{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
}

func TestGetProductsSearch(t *testing.T) {
	s := newTestService(t)
	createProduct(t, s, "PARA-500")

	_, err := s.CreateProduct(&CreateProductRequest{
		SKU:          "IBU-400",
		NameTH:       "ไอบูโพรเฟน 400 มก.",
		NameEN:       "Ibuprofen 400mg",
		SellingPrice: decimal.NewFromInt(8),
	})
	require.NoError(t, err)

	resp, err := s.GetProducts(&ProductListRequest{Search: "Ibuprofen"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "IBU-400", resp.Items[0].SKU)
}

func TestUpdateProductPatchesFields(t *testing.T) {
	s := newTestService(t)
	p := createProduct(t, s, "PARA-500")

	newPrice := decimal.NewFromFloat(6.50)
	nonVAT := false
	updated, err := s.UpdateProduct(p.ID, &UpdateProductRequest{
		SellingPrice:    &newPrice,
		IsVATApplicable: &nonVAT,
	})
	require.NoError(t, err)

	assert.True(t, updated.SellingPrice.Equal(newPrice))
	assert.False(t, updated.IsVATApplicable)
	// Untouched fields survive the patch
	assert.Equal(t, "Paracetamol 500mg", updated.NameEN)
}

func TestDeleteProductRejectedWhileReferenced(t *testing.T) {
	s := newTestService(t)
	p := createProduct(t, s, "PARA-500")

	require.NoError(t, s.db.Exec(
		"CREATE TABLE inventory_lots (id integer primary key, product_id integer)").Error)
	require.NoError(t, s.db.Exec(
		"CREATE TABLE sales_order_items (id integer primary key, product_id integer)").Error)
	require.NoError(t, s.db.Exec(
		"CREATE TABLE purchase_order_items (id integer primary key, product_id integer)").Error)
	require.NoError(t, s.db.Exec(
		"INSERT INTO inventory_lots (product_id) VALUES (?)", p.ID).Error)

	err := s.DeleteProduct(p.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	require.NoError(t, s.db.Exec("DELETE FROM inventory_lots").Error)
	require.NoError(t, s.DeleteProduct(p.ID))

	_, err = s.GetProduct(p.ID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestCategoryTree(t *testing.T) {
	s := newTestService(t)

	root, err := s.CreateCategory(&CreateCategoryRequest{Code: "MED", NameTH: "ยา"})
	require.NoError(t, err)

	child, err := s.CreateCategory(&CreateCategoryRequest{
		Code:     "MED-RX",
		NameTH:   "ยาตามใบสั่งแพทย์",
		ParentID: &root.ID,
	})
	require.NoError(t, err)

	grandchild, err := s.CreateCategory(&CreateCategoryRequest{
		Code:     "MED-RX-ABX",
		NameTH:   "ยาปฏิชีวนะ",
		ParentID: &child.ID,
	})
	require.NoError(t, err)

	// Re-parenting the root under its own grandchild would form a cycle
	_, err = s.UpdateCategory(root.ID, &UpdateCategoryRequest{ParentID: &grandchild.ID})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	// A category can never be its own parent
	_, err = s.UpdateCategory(child.ID, &UpdateCategoryRequest{ParentID: &child.ID})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestDeleteCategoryRejectedWhileReferenced(t *testing.T) {
	s := newTestService(t)

	root, err := s.CreateCategory(&CreateCategoryRequest{Code: "MED", NameTH: "ยา"})
	require.NoError(t, err)
	child, err := s.CreateCategory(&CreateCategoryRequest{
		Code:     "MED-RX",
		NameTH:   "ยาตามใบสั่งแพทย์",
		ParentID: &root.ID,
	})
	require.NoError(t, err)

	err = s.DeleteCategory(root.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	_, err = s.CreateProduct(&CreateProductRequest{
		SKU:          "ABX-1",
		NameTH:       "อะม็อกซีซิลลิน",
		CategoryID:   &child.ID,
		SellingPrice: decimal.NewFromInt(15),
	})
	require.NoError(t, err)

	err = s.DeleteCategory(child.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestCreateCategoryDuplicateCode(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateCategory(&CreateCategoryRequest{Code: "MED", NameTH: "ยา"})
	require.NoError(t, err)

	_, err = s.CreateCategory(&CreateCategoryRequest{Code: "MED", NameTH: "ซ้ำ"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeIntegrityViolation, apperrors.CodeOf(err))
}
