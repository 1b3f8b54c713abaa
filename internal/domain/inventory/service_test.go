package inventory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/product"
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
	// A single connection keeps the in-memory database alive and shared
	// across goroutines.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&product.Category{},
		&product.Product{},
		&Warehouse{},
		&InventoryLot{},
		&StockMovement{},
	))

	return NewService(db, &config.Config{})
}

func seedProduct(t *testing.T, s *Service, sku string) *product.Product {
	t.Helper()

	p := &product.Product{
		SKU:             sku,
		NameTH:          "พาราเซตามอล 500 มก.",
		NameEN:          "Paracetamol 500mg",
		CostPrice:       decimal.NewFromFloat(3.50),
		SellingPrice:    decimal.NewFromFloat(5.00),
		IsVATApplicable: true,
		VATRate:         decimal.NewFromInt(7),
		UnitOfMeasure:   "tablet",
		IsActive:        true,
	}
	require.NoError(t, s.db.Create(p).Error)
	return p
}

func seedWarehouse(t *testing.T, s *Service, code string) *Warehouse {
	t.Helper()

	w, err := s.CreateWarehouse(&CreateWarehouseRequest{
		Code: code,
		Name: "คลังหลัก",
		Type: WarehouseTypeMain,
	})
	require.NoError(t, err)
	return w
}

func receiveLot(t *testing.T, s *Service, productID, warehouseID uint, lotNumber string, qty int, expiry time.Time) *InventoryLot {
	t.Helper()

	var lot *InventoryLot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		lot, err = s.Receive(tx, &ReceiveLotRequest{
			ProductID:   productID,
			WarehouseID: warehouseID,
			LotNumber:   lotNumber,
			Quantity:    qty,
			UnitCost:    decimal.NewFromFloat(3.50),
			ExpiryDate:  expiry,
		}, 1)
		return err
	})
	require.NoError(t, err)
	return lot
}

func expiryIn(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, days)
}

func TestReceiveCreatesLotWithFullAvailability(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")

	lot := receiveLot(t, s, p.ID, w.ID, "LOT-2026-001", 100, expiryIn(365))

	assert.Equal(t, 100, lot.QuantityReceived)
	assert.Equal(t, 100, lot.QuantityAvailable)
	assert.Equal(t, 0, lot.QuantityReserved)
	assert.Equal(t, 0, lot.QuantityDamaged)
	assert.Equal(t, QualityStatusPending, lot.QualityStatus)

	var movements []StockMovement
	require.NoError(t, s.db.Where("lot_id = ?", lot.ID).Find(&movements).Error)
	require.Len(t, movements, 1)
	assert.Equal(t, MovementTypeReceive, movements[0].MovementType)
	assert.Equal(t, 0, movements[0].PreviousAvailable)
	assert.Equal(t, 100, movements[0].NewAvailable)
}

func TestReceiveRejectsInvalidInput(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")

	err := s.db.Transaction(func(tx *gorm.DB) error {
		_, err := s.Receive(tx, &ReceiveLotRequest{
			ProductID:   p.ID,
			WarehouseID: w.ID,
			LotNumber:   "LOT-BAD",
			Quantity:    0,
			ExpiryDate:  expiryIn(30),
		}, 1)
		return err
	})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	err = s.db.Transaction(func(tx *gorm.DB) error {
		_, err := s.Receive(tx, &ReceiveLotRequest{
			ProductID:   p.ID,
			WarehouseID: 999,
			LotNumber:   "LOT-BAD",
			Quantity:    10,
			ExpiryDate:  expiryIn(30),
		}, 1)
		return err
	})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestReserveMovesAvailableToReserved(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")
	lot := receiveLot(t, s, p.ID, w.ID, "LOT-A", 50, expiryIn(365))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(tx, lot.ID, 20, 1, "sales_order", 7)
	})
	require.NoError(t, err)

	got, err := s.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, got.QuantityAvailable)
	assert.Equal(t, 20, got.QuantityReserved)
	assert.Equal(t, 50, got.QuantityReceived)
	assert.NoError(t, got.CheckBalance())
}

func TestReserveFailsWhenInsufficient(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")
	lot := receiveLot(t, s, p.ID, w.ID, "LOT-A", 5, expiryIn(365))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(tx, lot.ID, 6, 1, "sales_order", 1)
	})
	assert.Equal(t, apperrors.CodeInsufficientStock, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "requested 6, available 5")

	// Failed reservation leaves the lot untouched.
	got, err := s.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.QuantityAvailable)
	assert.Equal(t, 0, got.QuantityReserved)
}

func TestConsumeFinalizesReservation(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")
	lot := receiveLot(t, s, p.ID, w.ID, "LOT-A", 50, expiryIn(365))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.Reserve(tx, lot.ID, 20, 1, "sales_order", 7); err != nil {
			return err
		}
		return s.Consume(tx, lot.ID, 20, 1, "sales_order", 7)
	})
	require.NoError(t, err)

	got, err := s.GetLot(lot.ID)
	require.NoError(t, err)
	// Consume must not deduct available a second time, and the receipt
	// quantity is permanent history.
	assert.Equal(t, 30, got.QuantityAvailable)
	assert.Equal(t, 0, got.QuantityReserved)
	assert.Equal(t, 50, got.QuantityReceived)
	assert.NoError(t, got.CheckBalance())
}

func TestFullyConsumedLotKeepsHistory(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")
	lot := receiveLot(t, s, p.ID, w.ID, "LOT-A", 50, expiryIn(365))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.Reserve(tx, lot.ID, 50, 1, "sales_order", 7); err != nil {
			return err
		}
		return s.Consume(tx, lot.ID, 50, 1, "sales_order", 7)
	})
	require.NoError(t, err)

	got, err := s.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.QuantityAvailable)
	assert.Equal(t, 0, got.QuantityReserved)
	assert.Equal(t, 50, got.QuantityReceived)

	// A sold-out lot is still permanent history and cannot be deleted.
	err = s.DeleteLot(lot.ID)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	_, err = s.GetLot(lot.ID)
	require.NoError(t, err)
}

func TestConsumeWithoutReservationFails(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")
	lot := receiveLot(t, s, p.ID, w.ID, "LOT-A", 50, expiryIn(365))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.Consume(tx, lot.ID, 10, 1, "sales_order", 1)
	})
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestReleaseRestoresAvailability(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")
	lot := receiveLot(t, s, p.ID, w.ID, "LOT-A", 50, expiryIn(365))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.Reserve(tx, lot.ID, 15, 1, "sales_order", 3)
	})
	require.NoError(t, err)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.Release(tx, lot.ID, 15, 1, "sales_order", 3)
	})
	require.NoError(t, err)

	got, err := s.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.QuantityAvailable)
	assert.Equal(t, 0, got.QuantityReserved)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return s.Release(tx, lot.ID, 1, 1, "sales_order", 3)
	})
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestAdjustDamage(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")
	lot := receiveLot(t, s, p.ID, w.ID, "LOT-A", 30, expiryIn(365))

	got, err := s.AdjustDamage(lot.ID, 8, "water damage on shelf", 1)
	require.NoError(t, err)
	assert.Equal(t, 22, got.QuantityAvailable)
	assert.Equal(t, 8, got.QuantityDamaged)
	assert.NoError(t, got.CheckBalance())

	got, err = s.AdjustDamage(lot.ID, -3, "recount after drying", 1)
	require.NoError(t, err)
	assert.Equal(t, 25, got.QuantityAvailable)
	assert.Equal(t, 5, got.QuantityDamaged)

	_, err = s.AdjustDamage(lot.ID, -6, "over-restore", 1)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	_, err = s.AdjustDamage(lot.ID, 100, "too much", 1)
	assert.Equal(t, apperrors.CodeInsufficientStock, apperrors.CodeOf(err))

	_, err = s.AdjustDamage(lot.ID, 0, "noop", 1)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestSelectLotPrefersEarliestExpiry(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")

	receiveLot(t, s, p.ID, w.ID, "LOT-LATE", 100, expiryIn(365))
	early := receiveLot(t, s, p.ID, w.ID, "LOT-EARLY", 100, expiryIn(180))

	var selected *InventoryLot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		selected, err = s.SelectLot(tx, p.ID, 10, nil)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, early.ID, selected.ID)
}

func TestSelectLotSkipsQuarantinedAndFailed(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")

	early := receiveLot(t, s, p.ID, w.ID, "LOT-EARLY", 100, expiryIn(90))
	late := receiveLot(t, s, p.ID, w.ID, "LOT-LATE", 100, expiryIn(365))

	_, err := s.InspectQuality(early.ID, QualityStatusQuarantine, "temperature excursion", 1)
	require.NoError(t, err)

	var selected *InventoryLot
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		selected, err = s.SelectLot(tx, p.ID, 10, nil)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, late.ID, selected.ID)
}

func TestSelectLotNeverSplitsAcrossLots(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")

	receiveLot(t, s, p.ID, w.ID, "LOT-A", 30, expiryIn(90))
	receiveLot(t, s, p.ID, w.ID, "LOT-B", 30, expiryIn(180))

	// Combined stock is 60 but no single lot covers 40.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		_, err := s.SelectLot(tx, p.ID, 40, nil)
		return err
	})
	assert.Equal(t, apperrors.CodeInsufficientStock, apperrors.CodeOf(err))
}

func TestSelectLotExplicit(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	other := seedProduct(t, s, "MED-002")
	w := seedWarehouse(t, s, "WH-MAIN")

	lot := receiveLot(t, s, p.ID, w.ID, "LOT-A", 20, expiryIn(180))

	var selected *InventoryLot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		selected, err = s.SelectLot(tx, p.ID, 20, &lot.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, lot.ID, selected.ID)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		_, err := s.SelectLot(tx, p.ID, 21, &lot.ID)
		return err
	})
	assert.Equal(t, apperrors.CodeInsufficientStock, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "requested 21, available 20")

	err = s.db.Transaction(func(tx *gorm.DB) error {
		_, err := s.SelectLot(tx, other.ID, 5, &lot.ID)
		return err
	})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")
	lot := receiveLot(t, s, p.ID, w.ID, "LOT-HOT", 10, expiryIn(365))

	const workers = 20
	results := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.db.Transaction(func(tx *gorm.DB) error {
				return s.Reserve(tx, lot.ID, 1, 1, "sales_order", uint(i+1))
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, apperrors.CodeInsufficientStock, apperrors.CodeOf(err))
		}
	}
	assert.Equal(t, 10, succeeded)

	got, err := s.GetLot(lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.QuantityAvailable)
	assert.Equal(t, 10, got.QuantityReserved)
	assert.NoError(t, got.CheckBalance())
}

func TestInspectQualityTransitions(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")
	lot := receiveLot(t, s, p.ID, w.ID, "LOT-A", 10, expiryIn(365))

	got, err := s.InspectQuality(lot.ID, QualityStatusPassed, "", 1)
	require.NoError(t, err)
	assert.Equal(t, QualityStatusPassed, got.QualityStatus)
	assert.NotNil(t, got.QualityCheckedAt)

	_, err = s.InspectQuality(lot.ID, QualityStatusFailed, "second look", 1)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))

	_, err = s.InspectQuality(lot.ID, QualityStatus("great"), "", 1)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestDeleteLotRequiresNoHistory(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")
	lot := receiveLot(t, s, p.ID, w.ID, "LOT-A", 10, expiryIn(365))

	err := s.DeleteLot(lot.ID)
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestGetExpiringLots(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	w := seedWarehouse(t, s, "WH-MAIN")

	soon := receiveLot(t, s, p.ID, w.ID, "LOT-SOON", 10, expiryIn(20))
	receiveLot(t, s, p.ID, w.ID, "LOT-FAR", 10, expiryIn(200))

	lots, err := s.GetExpiringLots(30)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, soon.ID, lots[0].ID)
}

func TestGetLotsFiltersAndPaginates(t *testing.T) {
	s := newTestService(t)
	p := seedProduct(t, s, "MED-001")
	other := seedProduct(t, s, "MED-002")
	w := seedWarehouse(t, s, "WH-MAIN")

	for i := 0; i < 3; i++ {
		receiveLot(t, s, p.ID, w.ID, fmt.Sprintf("LOT-%d", i), 10, expiryIn(100+i))
	}
	receiveLot(t, s, other.ID, w.ID, "LOT-OTHER", 10, expiryIn(50))

	resp, err := s.GetLots(&LotListRequest{Page: 1, Limit: 2, ProductID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	assert.Len(t, resp.Items, 2)
}
