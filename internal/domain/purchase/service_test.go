package purchase

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/audit"
	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/domain/product"
	"github.com/your-org/pharmacy-backend/internal/domain/supplier"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db        *gorm.DB
	purchase  *Service
	inventory *inventory.Service
	supplier  *supplier.Supplier
	warehouse *inventory.Warehouse
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&product.Category{},
		&product.Product{},
		&supplier.Supplier{},
		&inventory.Warehouse{},
		&inventory.InventoryLot{},
		&inventory.StockMovement{},
		&audit.AuditLog{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
	))

	cfg := &config.Config{}
	cfg.VAT.DefaultRate = decimal.NewFromInt(7)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	inv := inventory.NewService(db, cfg)
	rec := audit.NewRecorder(db, log)
	svc := NewService(db, cfg, inv, rec, log)

	sup := &supplier.Supplier{Code: "SUP-001", NameTH: "บริษัทยาไทย จำกัด", IsActive: true}
	require.NoError(t, db.Create(sup).Error)

	wh, err := inv.CreateWarehouse(&inventory.CreateWarehouseRequest{
		Code: "WH-MAIN", Name: "คลังหลัก", Type: inventory.WarehouseTypeMain,
	})
	require.NoError(t, err)

	return &testEnv{db: db, purchase: svc, inventory: inv, supplier: sup, warehouse: wh}
}

func (e *testEnv) seedProduct(t *testing.T, sku string, vatApplicable bool) *product.Product {
	t.Helper()

	p := &product.Product{
		SKU:             sku,
		NameTH:          "ยาลดไข้",
		NameEN:          "Fever reducer",
		CostPrice:       decimal.NewFromFloat(10.00),
		SellingPrice:    decimal.NewFromFloat(20.00),
		IsVATApplicable: vatApplicable,
		VATRate:         decimal.NewFromInt(7),
		UnitOfMeasure:   "box",
		IsActive:        true,
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) confirmedOrder(t *testing.T, req *CreatePurchaseOrderRequest) *PurchaseOrder {
	t.Helper()

	order, err := e.purchase.CreatePurchaseOrder(req, 1)
	require.NoError(t, err)
	_, err = e.purchase.SendPurchaseOrder(order.ID, 1)
	require.NoError(t, err)
	order, err = e.purchase.ConfirmPurchaseOrder(order.ID, 1)
	require.NoError(t, err)
	return order
}

func decEq(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, actual.Equal(decimal.RequireFromString(expected)),
		"expected %s, got %s", expected, actual.String())
}

func TestCreatePurchaseOrderVATInclusive(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", true)

	order, err := e.purchase.CreatePurchaseOrder(&CreatePurchaseOrderRequest{
		SupplierID: e.supplier.ID,
		Items: []CreatePurchaseOrderItemRequest{{
			ProductID: p.ID,
			Quantity:  1,
			UnitPrice: decimal.NewFromFloat(107.00),
		}},
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, PurchaseOrderStatusDraft, order.Status)
	assert.Regexp(t, `^PO-\d{8}-\d{5}$`, order.PONumber)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.True(t, item.IsVATIncluded)
	decEq(t, "100.00", item.PriceBeforeVAT)
	decEq(t, "7.00", item.VATAmount)
	decEq(t, "107.00", item.PriceIncludingVAT)

	decEq(t, "100.00", order.Subtotal)
	decEq(t, "7.00", order.TaxAmount)
	decEq(t, "107.00", order.TotalAmount)
}

func TestCreatePurchaseOrderVATExclusive(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", true)
	vatExcluded := false

	order, err := e.purchase.CreatePurchaseOrder(&CreatePurchaseOrderRequest{
		SupplierID:   e.supplier.ID,
		ShippingCost: decimal.NewFromFloat(50.00),
		Items: []CreatePurchaseOrderItemRequest{{
			ProductID:     p.ID,
			Quantity:      10,
			UnitPrice:     decimal.NewFromFloat(15.00),
			IsVATIncluded: &vatExcluded,
		}},
	}, 1)
	require.NoError(t, err)

	item := order.Items[0]
	decEq(t, "150.00", item.PriceBeforeVAT)
	decEq(t, "10.50", item.VATAmount)
	decEq(t, "160.50", item.PriceIncludingVAT)

	// subtotal + VAT + shipping
	decEq(t, "150.00", order.Subtotal)
	decEq(t, "10.50", order.TaxAmount)
	decEq(t, "210.50", order.TotalAmount)
}

func TestCreatePurchaseOrderInactiveSupplier(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", true)

	e.supplier.IsActive = false
	require.NoError(t, e.db.Save(e.supplier).Error)

	_, err := e.purchase.CreatePurchaseOrder(&CreatePurchaseOrderRequest{
		SupplierID: e.supplier.ID,
		Items: []CreatePurchaseOrderItemRequest{{
			ProductID: p.ID, Quantity: 1, UnitPrice: decimal.NewFromFloat(10.00),
		}},
	}, 1)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestPurchaseOrderStatusFlow(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", true)

	order, err := e.purchase.CreatePurchaseOrder(&CreatePurchaseOrderRequest{
		SupplierID: e.supplier.ID,
		Items: []CreatePurchaseOrderItemRequest{{
			ProductID: p.ID, Quantity: 5, UnitPrice: decimal.NewFromFloat(10.00),
		}},
	}, 1)
	require.NoError(t, err)

	// Confirm before send is out of order.
	_, err = e.purchase.ConfirmPurchaseOrder(order.ID, 1)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	sent, err := e.purchase.SendPurchaseOrder(order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, PurchaseOrderStatusSent, sent.Status)

	confirmed, err := e.purchase.ConfirmPurchaseOrder(order.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, PurchaseOrderStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ApprovedBy)
	assert.Equal(t, uint(2), *confirmed.ApprovedBy)
}

func TestReceivePurchaseOrderFull(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", true)

	order := e.confirmedOrder(t, &CreatePurchaseOrderRequest{
		SupplierID: e.supplier.ID,
		Items: []CreatePurchaseOrderItemRequest{{
			ProductID: p.ID,
			Quantity:  100,
			UnitPrice: decimal.NewFromFloat(10.70),
		}},
	})

	received, err := e.purchase.ReceivePurchaseOrder(order.ID, &ReceivePurchaseOrderRequest{
		Items: []ReceiveItemRequest{{
			ItemID:      order.Items[0].ID,
			Quantity:    100,
			LotNumber:   "LOT-2026-001",
			WarehouseID: e.warehouse.ID,
			ExpiryDate:  time.Now().UTC().AddDate(1, 0, 0),
		}},
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, PurchaseOrderStatusReceived, received.Status)
	require.NotNil(t, received.ActualDeliveryDate)
	assert.Equal(t, 100, received.Items[0].QuantityReceived)

	var lot inventory.InventoryLot
	require.NoError(t, e.db.Where("lot_number = ?", "LOT-2026-001").First(&lot).Error)
	assert.Equal(t, 100, lot.QuantityAvailable)
	assert.Equal(t, inventory.QualityStatusPending, lot.QualityStatus)
	require.NotNil(t, lot.SupplierID)
	assert.Equal(t, e.supplier.ID, *lot.SupplierID)
	// 100 x 10.70 VAT-included = 1000.00 before VAT, 10.00 per unit.
	decEq(t, "10.00", lot.UnitCost.Round(2))
}

func TestReceivePurchaseOrderPartial(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", true)

	order := e.confirmedOrder(t, &CreatePurchaseOrderRequest{
		SupplierID: e.supplier.ID,
		Items: []CreatePurchaseOrderItemRequest{{
			ProductID: p.ID,
			Quantity:  100,
			UnitPrice: decimal.NewFromFloat(10.00),
		}},
	})

	first, err := e.purchase.ReceivePurchaseOrder(order.ID, &ReceivePurchaseOrderRequest{
		Items: []ReceiveItemRequest{{
			ItemID:      order.Items[0].ID,
			Quantity:    40,
			LotNumber:   "LOT-P1",
			WarehouseID: e.warehouse.ID,
			ExpiryDate:  time.Now().UTC().AddDate(1, 0, 0),
		}},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, PurchaseOrderStatusPartiallyReceived, first.Status)
	assert.Nil(t, first.ActualDeliveryDate)

	second, err := e.purchase.ReceivePurchaseOrder(order.ID, &ReceivePurchaseOrderRequest{
		Items: []ReceiveItemRequest{{
			ItemID:      order.Items[0].ID,
			Quantity:    60,
			LotNumber:   "LOT-P2",
			WarehouseID: e.warehouse.ID,
			ExpiryDate:  time.Now().UTC().AddDate(1, 6, 0),
		}},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, PurchaseOrderStatusReceived, second.Status)
	assert.Equal(t, 100, second.Items[0].QuantityReceived)

	var lotCount int64
	require.NoError(t, e.db.Model(&inventory.InventoryLot{}).Count(&lotCount).Error)
	assert.Equal(t, int64(2), lotCount)
}

func TestReceivePurchaseOrderRejectsOverReceipt(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", true)

	order := e.confirmedOrder(t, &CreatePurchaseOrderRequest{
		SupplierID: e.supplier.ID,
		Items: []CreatePurchaseOrderItemRequest{{
			ProductID: p.ID,
			Quantity:  50,
			UnitPrice: decimal.NewFromFloat(10.00),
		}},
	})

	_, err := e.purchase.ReceivePurchaseOrder(order.ID, &ReceivePurchaseOrderRequest{
		Items: []ReceiveItemRequest{{
			ItemID:      order.Items[0].ID,
			Quantity:    51,
			LotNumber:   "LOT-OVER",
			WarehouseID: e.warehouse.ID,
			ExpiryDate:  time.Now().UTC().AddDate(1, 0, 0),
		}},
	}, 1)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	var lotCount int64
	require.NoError(t, e.db.Model(&inventory.InventoryLot{}).Count(&lotCount).Error)
	assert.Equal(t, int64(0), lotCount)
}

func TestReceiveBeforeConfirmationFails(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", true)

	order, err := e.purchase.CreatePurchaseOrder(&CreatePurchaseOrderRequest{
		SupplierID: e.supplier.ID,
		Items: []CreatePurchaseOrderItemRequest{{
			ProductID: p.ID, Quantity: 10, UnitPrice: decimal.NewFromFloat(10.00),
		}},
	}, 1)
	require.NoError(t, err)

	_, err = e.purchase.ReceivePurchaseOrder(order.ID, &ReceivePurchaseOrderRequest{
		Items: []ReceiveItemRequest{{
			ItemID:      order.Items[0].ID,
			Quantity:    10,
			LotNumber:   "LOT-X",
			WarehouseID: e.warehouse.ID,
			ExpiryDate:  time.Now().UTC().AddDate(1, 0, 0),
		}},
	}, 1)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestCancelPurchaseOrder(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", true)

	order := e.confirmedOrder(t, &CreatePurchaseOrderRequest{
		SupplierID: e.supplier.ID,
		Items: []CreatePurchaseOrderItemRequest{{
			ProductID: p.ID, Quantity: 10, UnitPrice: decimal.NewFromFloat(10.00),
		}},
	})

	cancelled, err := e.purchase.CancelPurchaseOrder(order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, PurchaseOrderStatusCancelled, cancelled.Status)

	// Once stock has arrived the order can no longer be cancelled.
	other := e.confirmedOrder(t, &CreatePurchaseOrderRequest{
		SupplierID: e.supplier.ID,
		Items: []CreatePurchaseOrderItemRequest{{
			ProductID: p.ID, Quantity: 10, UnitPrice: decimal.NewFromFloat(10.00),
		}},
	})
	_, err = e.purchase.ReceivePurchaseOrder(other.ID, &ReceivePurchaseOrderRequest{
		Items: []ReceiveItemRequest{{
			ItemID:      other.Items[0].ID,
			Quantity:    5,
			LotNumber:   "LOT-Y",
			WarehouseID: e.warehouse.ID,
			ExpiryDate:  time.Now().UTC().AddDate(1, 0, 0),
		}},
	}, 1)
	require.NoError(t, err)

	_, err = e.purchase.CancelPurchaseOrder(other.ID, 1)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}
