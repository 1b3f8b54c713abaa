package sales

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/audit"
	"github.com/your-org/pharmacy-backend/internal/domain/customer"
	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/domain/product"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db        *gorm.DB
	sales     *Service
	inventory *inventory.Service
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
		&customer.Customer{},
		&inventory.Warehouse{},
		&inventory.InventoryLot{},
		&inventory.StockMovement{},
		&audit.AuditLog{},
		&SalesOrder{},
		&SalesOrderItem{},
	))

	cfg := &config.Config{}
	cfg.VAT.DefaultRate = decimal.NewFromInt(7)
	cfg.VAT.Currency = "THB"

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	inv := inventory.NewService(db, cfg)
	rec := audit.NewRecorder(db, log)

	return &testEnv{
		db:        db,
		sales:     NewService(db, cfg, inv, rec, log),
		inventory: inv,
	}
}

func (e *testEnv) seedProduct(t *testing.T, sku string, sellingPrice float64, vatApplicable bool) *product.Product {
	t.Helper()

	p := &product.Product{
		SKU:             sku,
		NameTH:          "ยาแก้ปวด",
		NameEN:          "Pain reliever",
		CostPrice:       decimal.NewFromFloat(sellingPrice / 2),
		SellingPrice:    decimal.NewFromFloat(sellingPrice),
		IsVATApplicable: vatApplicable,
		VATRate:         decimal.NewFromInt(7),
		UnitOfMeasure:   "box",
		IsActive:        true,
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) seedLot(t *testing.T, productID uint, lotNumber string, qty int, expiryDays int) *inventory.InventoryLot {
	t.Helper()

	var w inventory.Warehouse
	if err := e.db.First(&w).Error; err != nil {
		created, err := e.inventory.CreateWarehouse(&inventory.CreateWarehouseRequest{
			Code: "WH-MAIN", Name: "คลังหลัก", Type: inventory.WarehouseTypeMain,
		})
		require.NoError(t, err)
		w = *created
	}

	var lot *inventory.InventoryLot
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var err error
		lot, err = e.inventory.Receive(tx, &inventory.ReceiveLotRequest{
			ProductID:   productID,
			WarehouseID: w.ID,
			LotNumber:   lotNumber,
			Quantity:    qty,
			UnitCost:    decimal.NewFromFloat(10.00),
			ExpiryDate:  time.Now().UTC().AddDate(0, 0, expiryDays),
		}, 1)
		return err
	})
	require.NoError(t, err)
	return lot
}

func (e *testEnv) lot(t *testing.T, id uint) *inventory.InventoryLot {
	t.Helper()
	lot, err := e.inventory.GetLot(id)
	require.NoError(t, err)
	return lot
}

func decEq(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, actual.Equal(decimal.RequireFromString(expected)),
		"expected %s, got %s", expected, actual.String())
}

func TestCreateSalesOrderComputesVATExclusive(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", 150.00, true)
	lot := e.seedLot(t, p.ID, "LOT-A", 100, 365)

	order, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusDraft, order.Status)
	assert.Regexp(t, `^SO-\d{8}-\d{5}$`, order.OrderNumber)
	decEq(t, "150.00", order.Subtotal)
	decEq(t, "10.50", order.TaxAmount)
	decEq(t, "160.50", order.TotalAmount)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	decEq(t, "150.00", item.PriceBeforeVAT)
	decEq(t, "10.50", item.VATAmount)
	decEq(t, "160.50", item.PriceIncludingVAT)
	require.NotNil(t, item.LotID)
	assert.Equal(t, lot.ID, *item.LotID)

	got := e.lot(t, lot.ID)
	assert.Equal(t, 99, got.QuantityAvailable)
	assert.Equal(t, 1, got.QuantityReserved)
}

func TestCreateSalesOrderAppliesDiscountBeforeVAT(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", 15.00, true)
	e.seedLot(t, p.ID, "LOT-A", 100, 365)

	order, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{
			ProductID:      p.ID,
			Quantity:       10,
			DiscountAmount: decimal.NewFromFloat(20.00),
		}},
	}, 1)
	require.NoError(t, err)

	// 10 x 15.00 - 20.00 = 130.00, VAT 7% = 9.10
	decEq(t, "130.00", order.Subtotal)
	decEq(t, "9.10", order.TaxAmount)
	decEq(t, "139.10", order.TotalAmount)
}

func TestCreateSalesOrderNonVATProduct(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-EXEMPT", 100.00, false)
	e.seedLot(t, p.ID, "LOT-A", 50, 365)

	order, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{ProductID: p.ID, Quantity: 2}},
	}, 1)
	require.NoError(t, err)

	decEq(t, "200.00", order.Subtotal)
	decEq(t, "0.00", order.TaxAmount)
	decEq(t, "200.00", order.TotalAmount)
	decEq(t, "0.00", order.Items[0].VATAmount)
}

func TestCreateSalesOrderPicksEarliestExpiryLot(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", 50.00, true)
	e.seedLot(t, p.ID, "LOT-LATE", 100, 365)
	early := e.seedLot(t, p.ID, "LOT-EARLY", 100, 180)

	order, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{ProductID: p.ID, Quantity: 5}},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, early.ID, *order.Items[0].LotID)
}

func TestCreateSalesOrderHonorsExplicitLot(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", 50.00, true)
	e.seedLot(t, p.ID, "LOT-EARLY", 100, 180)
	late := e.seedLot(t, p.ID, "LOT-LATE", 100, 365)

	order, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{ProductID: p.ID, Quantity: 5, LotID: &late.ID}},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, late.ID, *order.Items[0].LotID)
}

func TestCreateSalesOrderInsufficientStockRollsBack(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", 50.00, true)
	other := e.seedProduct(t, "MED-002", 30.00, true)
	lot := e.seedLot(t, p.ID, "LOT-A", 100, 365)
	e.seedLot(t, other.ID, "LOT-B", 3, 365)

	_, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{
			{ProductID: p.ID, Quantity: 10},
			{ProductID: other.ID, Quantity: 5},
		},
	}, 1)
	assert.Equal(t, apperrors.CodeInsufficientStock, apperrors.CodeOf(err))

	// The whole transaction rolled back: no order rows, first reservation undone.
	var orderCount int64
	require.NoError(t, e.db.Model(&SalesOrder{}).Count(&orderCount).Error)
	assert.Equal(t, int64(0), orderCount)

	got := e.lot(t, lot.ID)
	assert.Equal(t, 100, got.QuantityAvailable)
	assert.Equal(t, 0, got.QuantityReserved)
}

func TestCompleteSalesOrder(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", 150.00, true)
	lot := e.seedLot(t, p.ID, "LOT-A", 100, 365)

	order, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	}, 1)
	require.NoError(t, err)

	completed, err := e.sales.CompleteSalesOrder(order.ID, &CompleteSalesOrderRequest{
		PaymentMethod: PaymentMethodCash,
		PaidAmount:    decimal.NewFromFloat(200.00),
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, OrderStatusCompleted, completed.Status)
	assert.Equal(t, PaymentStatusPaid, completed.PaymentStatus)
	decEq(t, "200.00", completed.PaidAmount)
	decEq(t, "39.50", completed.ChangeAmount)
	require.NotNil(t, completed.CompletedAt)

	// Stock was deducted once at reservation; completion converts the hold.
	// The lot's receipt quantity is permanent and survives the sale.
	got := e.lot(t, lot.ID)
	assert.Equal(t, 99, got.QuantityAvailable)
	assert.Equal(t, 0, got.QuantityReserved)
	assert.Equal(t, 100, got.QuantityReceived)
	assert.NoError(t, got.CheckBalance())
}

func TestCompleteSalesOrderInsufficientPayment(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", 150.00, true)
	e.seedLot(t, p.ID, "LOT-A", 100, 365)

	order, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	}, 1)
	require.NoError(t, err)

	_, err = e.sales.CompleteSalesOrder(order.ID, &CompleteSalesOrderRequest{
		PaymentMethod: PaymentMethodCash,
		PaidAmount:    decimal.NewFromFloat(160.00),
	}, 1)
	assert.Equal(t, apperrors.CodeInsufficientPayment, apperrors.CodeOf(err))

	// Order unchanged, still payable.
	got, err := e.sales.GetSalesOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusDraft, got.Status)
	assert.Equal(t, PaymentStatusPending, got.PaymentStatus)
}

func TestCompleteSalesOrderTwiceFails(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", 150.00, true)
	e.seedLot(t, p.ID, "LOT-A", 100, 365)

	order, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	}, 1)
	require.NoError(t, err)

	pay := &CompleteSalesOrderRequest{PaymentMethod: PaymentMethodCash, PaidAmount: decimal.NewFromFloat(200.00)}
	_, err = e.sales.CompleteSalesOrder(order.ID, pay, 1)
	require.NoError(t, err)

	_, err = e.sales.CompleteSalesOrder(order.ID, pay, 1)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestCancelSalesOrderReleasesReservations(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", 150.00, true)
	lot := e.seedLot(t, p.ID, "LOT-A", 100, 365)

	order, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{ProductID: p.ID, Quantity: 10}},
	}, 1)
	require.NoError(t, err)

	cancelled, err := e.sales.CancelSalesOrder(order.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, cancelled.Status)

	got := e.lot(t, lot.ID)
	assert.Equal(t, 100, got.QuantityAvailable)
	assert.Equal(t, 0, got.QuantityReserved)
}

func TestCancelCompletedOrderFails(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", 150.00, true)
	e.seedLot(t, p.ID, "LOT-A", 100, 365)

	order, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	}, 1)
	require.NoError(t, err)

	_, err = e.sales.CompleteSalesOrder(order.ID, &CompleteSalesOrderRequest{
		PaymentMethod: PaymentMethodCash,
		PaidAmount:    decimal.NewFromFloat(200.00),
	}, 1)
	require.NoError(t, err)

	_, err = e.sales.CancelSalesOrder(order.ID, 1)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestGetSalesOrdersFiltersByStatus(t *testing.T) {
	e := newTestEnv(t)
	p := e.seedProduct(t, "MED-001", 50.00, true)
	e.seedLot(t, p.ID, "LOT-A", 100, 365)

	first, err := e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	}, 1)
	require.NoError(t, err)
	_, err = e.sales.CreateSalesOrder(&CreateSalesOrderRequest{
		Items: []CreateSalesOrderItemRequest{{ProductID: p.ID, Quantity: 1}},
	}, 1)
	require.NoError(t, err)

	_, err = e.sales.CancelSalesOrder(first.ID, 1)
	require.NoError(t, err)

	resp, err := e.sales.GetSalesOrders(&SalesOrderListRequest{Status: OrderStatusDraft})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
}
