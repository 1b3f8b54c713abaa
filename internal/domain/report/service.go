// internal/domain/report/service.go
package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-backend/internal/pkg/money"
	"gorm.io/gorm"
)

// Service produces management and tax reports. Reports read committed order
// and ledger data; they never mutate it.
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new report service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, config: cfg}
}

// DashboardSummary is the landing-page snapshot
type DashboardSummary struct {
	SalesToday            decimal.Decimal `json:"sales_today"`
	SalesThisMonth        decimal.Decimal `json:"sales_this_month"`
	OrdersToday           int64           `json:"orders_today"`
	DraftSalesOrders      int64           `json:"draft_sales_orders"`
	ActiveProducts        int64           `json:"active_products"`
	LowStockProducts      int64           `json:"low_stock_products"`
	LotsExpiring30Days    int64           `json:"lots_expiring_30_days"`
	OpenPurchaseOrders    int64           `json:"open_purchase_orders"`
	PendingQualityLots    int64           `json:"pending_quality_lots"`
	InventoryAtCost       decimal.Decimal `json:"inventory_at_cost"`
}

// SalesReportRow is one day of completed sales
type SalesReportRow struct {
	Date       string          `json:"date"`
	OrderCount int64           `json:"order_count"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	Total      decimal.Decimal `json:"total"`
}

// SalesReport summarizes completed sales over a period
type SalesReport struct {
	DateFrom   string           `json:"date_from"`
	DateTo     string           `json:"date_to"`
	Rows       []SalesReportRow `json:"rows"`
	OrderCount int64            `json:"order_count"`
	Subtotal   decimal.Decimal  `json:"subtotal"`
	TaxAmount  decimal.Decimal  `json:"tax_amount"`
	Total      decimal.Decimal  `json:"total"`
}

// VATSalesRow is one output-VAT line for the sales tax report
type VATSalesRow struct {
	OrderNumber       string          `json:"order_number"`
	OrderDate         time.Time       `json:"order_date"`
	ProductSKU        string          `json:"product_sku"`
	PriceBeforeVAT    decimal.Decimal `json:"price_before_vat"`
	VATAmount         decimal.Decimal `json:"vat_amount"`
	PriceIncludingVAT decimal.Decimal `json:"price_including_vat"`
}

// VATSalesReport is the output-VAT (ภาษีขาย) report
type VATSalesReport struct {
	DateFrom            string          `json:"date_from"`
	DateTo              string          `json:"date_to"`
	Rows                []VATSalesRow   `json:"rows"`
	TotalBeforeVAT      decimal.Decimal `json:"total_before_vat"`
	TotalVAT            decimal.Decimal `json:"total_vat"`
	TotalIncludingVAT   decimal.Decimal `json:"total_including_vat"`
}

// VATPurchasesRow is one input-VAT line for the purchase tax report
type VATPurchasesRow struct {
	PONumber          string          `json:"po_number"`
	OrderDate         time.Time       `json:"order_date"`
	SupplierName      string          `json:"supplier_name"`
	SupplierTaxID     string          `json:"supplier_tax_id"`
	IsVATIncluded     bool            `json:"is_vat_included"`
	PriceBeforeVAT    decimal.Decimal `json:"price_before_vat"`
	VATAmount         decimal.Decimal `json:"vat_amount"`
	PriceIncludingVAT decimal.Decimal `json:"price_including_vat"`
}

// VATPurchasesReport is the input-VAT (ภาษีซื้อ) report
type VATPurchasesReport struct {
	DateFrom          string            `json:"date_from"`
	DateTo            string            `json:"date_to"`
	Rows              []VATPurchasesRow `json:"rows"`
	TotalBeforeVAT    decimal.Decimal   `json:"total_before_vat"`
	TotalVAT          decimal.Decimal   `json:"total_vat"`
	TotalIncludingVAT decimal.Decimal   `json:"total_including_vat"`
}

// COGSRow is the cost of goods sold for one product over the period
type COGSRow struct {
	ProductID    uint            `json:"product_id"`
	ProductSKU   string          `json:"product_sku"`
	ProductName  string          `json:"product_name"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	GrossProfit  decimal.Decimal `json:"gross_profit"`
}

// COGSReport prices each sold unit at the cost of the lot it was drawn from
type COGSReport struct {
	DateFrom    string          `json:"date_from"`
	DateTo      string          `json:"date_to"`
	Rows        []COGSRow       `json:"rows"`
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
}

// ProfitLossReport is the simple P&L over a period
type ProfitLossReport struct {
	DateFrom          string          `json:"date_from"`
	DateTo            string          `json:"date_to"`
	Revenue           decimal.Decimal `json:"revenue"`
	CostOfGoodsSold   decimal.Decimal `json:"cost_of_goods_sold"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	GrossMarginPct    decimal.Decimal `json:"gross_margin_pct"`
	OutputVAT         decimal.Decimal `json:"output_vat"`
	CompletedOrders   int64           `json:"completed_orders"`
}

// ValuationRow is the on-hand value of one product at lot cost
type ValuationRow struct {
	ProductID   uint            `json:"product_id"`
	ProductSKU  string          `json:"product_sku"`
	ProductName string          `json:"product_name"`
	OnHand      int64           `json:"on_hand"`
	Value       decimal.Decimal `json:"value"`
}

// InventoryValuationReport values sellable stock at lot unit cost
type InventoryValuationReport struct {
	AsOf       time.Time       `json:"as_of"`
	Rows       []ValuationRow  `json:"rows"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// ExpiryRow is one lot approaching expiry
type ExpiryRow struct {
	LotID             uint      `json:"lot_id"`
	LotNumber         string    `json:"lot_number"`
	ProductSKU        string    `json:"product_sku"`
	ProductName       string    `json:"product_name"`
	QuantityAvailable int       `json:"quantity_available"`
	ExpiryDate        time.Time `json:"expiry_date"`
	DaysRemaining     int       `json:"days_remaining"`
}

// ExpiryReport lists lots with remaining stock expiring within the window
type ExpiryReport struct {
	Days int         `json:"days"`
	Rows []ExpiryRow `json:"rows"`
}

// GetDashboardSummary builds the landing-page snapshot
func (s *Service) GetDashboardSummary() (*DashboardSummary, error) {
	summary := &DashboardSummary{}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	scans := []struct {
		dest  interface{}
		query string
		args  []interface{}
	}{
		{&summary.SalesToday, "SELECT COALESCE(SUM(total_amount), 0) FROM sales_orders WHERE status = 'completed' AND completed_at >= ?", []interface{}{today}},
		{&summary.SalesThisMonth, "SELECT COALESCE(SUM(total_amount), 0) FROM sales_orders WHERE status = 'completed' AND completed_at >= ?", []interface{}{thisMonth}},
		{&summary.OrdersToday, "SELECT COUNT(*) FROM sales_orders WHERE created_at >= ?", []interface{}{today}},
		{&summary.DraftSalesOrders, "SELECT COUNT(*) FROM sales_orders WHERE status = 'draft'", nil},
		{&summary.ActiveProducts, "SELECT COUNT(*) FROM products WHERE is_active = ?", []interface{}{true}},
		{&summary.LowStockProducts, `SELECT COUNT(*) FROM products p
			WHERE p.is_active = ? AND p.reorder_point > 0
			AND (SELECT COALESCE(SUM(l.quantity_available), 0) FROM inventory_lots l WHERE l.product_id = p.id) <= p.reorder_point`,
			[]interface{}{true}},
		{&summary.LotsExpiring30Days, "SELECT COUNT(*) FROM inventory_lots WHERE quantity_available > 0 AND expiry_date <= ?", []interface{}{now.AddDate(0, 0, 30)}},
		{&summary.PendingQualityLots, "SELECT COUNT(*) FROM inventory_lots WHERE quality_status = 'pending'", nil},
		{&summary.OpenPurchaseOrders, "SELECT COUNT(*) FROM purchase_orders WHERE status IN ('sent', 'confirmed', 'partially_received')", nil},
		{&summary.InventoryAtCost, "SELECT COALESCE(SUM((quantity_available + quantity_reserved) * unit_cost), 0) FROM inventory_lots", nil},
	}
	for _, sc := range scans {
		if err := s.db.Raw(sc.query, sc.args...).Scan(sc.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to build dashboard summary: %w", err)
		}
	}
	summary.InventoryAtCost = money.Round(summary.InventoryAtCost)

	return summary, nil
}

// GetSalesReport summarizes completed sales per day over the period
func (s *Service) GetSalesReport(dateFrom, dateTo string) (*SalesReport, error) {
	from, to, err := parsePeriod(dateFrom, dateTo)
	if err != nil {
		return nil, err
	}

	type orderRow struct {
		CompletedAt time.Time
		Subtotal    decimal.Decimal
		TaxAmount   decimal.Decimal
		TotalAmount decimal.Decimal
	}
	var orders []orderRow
	err = s.db.Raw(`SELECT completed_at, subtotal, tax_amount, total_amount
		FROM sales_orders
		WHERE status = 'completed' AND completed_at >= ? AND completed_at < ?
		ORDER BY completed_at`, from, to).Scan(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}

	report := &SalesReport{
		DateFrom:  dateFrom,
		DateTo:    dateTo,
		Subtotal:  decimal.Zero,
		TaxAmount: decimal.Zero,
		Total:     decimal.Zero,
	}

	byDay := make(map[string]*SalesReportRow)
	var days []string
	for _, o := range orders {
		day := o.CompletedAt.UTC().Format("2006-01-02")
		row, ok := byDay[day]
		if !ok {
			row = &SalesReportRow{Date: day, Subtotal: decimal.Zero, TaxAmount: decimal.Zero, Total: decimal.Zero}
			byDay[day] = row
			days = append(days, day)
		}
		row.OrderCount++
		row.Subtotal = row.Subtotal.Add(o.Subtotal)
		row.TaxAmount = row.TaxAmount.Add(o.TaxAmount)
		row.Total = row.Total.Add(o.TotalAmount)

		report.OrderCount++
		report.Subtotal = report.Subtotal.Add(o.Subtotal)
		report.TaxAmount = report.TaxAmount.Add(o.TaxAmount)
		report.Total = report.Total.Add(o.TotalAmount)
	}
	for _, day := range days {
		report.Rows = append(report.Rows, *byDay[day])
	}

	return report, nil
}

// GetVATSalesReport reads the VAT breakdown frozen on each sold line. Later
// changes to product VAT settings never alter filed periods.
func (s *Service) GetVATSalesReport(dateFrom, dateTo string) (*VATSalesReport, error) {
	from, to, err := parsePeriod(dateFrom, dateTo)
	if err != nil {
		return nil, err
	}

	var rows []VATSalesRow
	err = s.db.Raw(`SELECT o.order_number, o.completed_at AS order_date, p.sku AS product_sku,
			i.price_before_vat, i.vat_amount, i.price_including_vat
		FROM sales_order_items i
		JOIN sales_orders o ON o.id = i.sales_order_id
		JOIN products p ON p.id = i.product_id
		WHERE o.status = 'completed' AND o.completed_at >= ? AND o.completed_at < ?
		ORDER BY o.completed_at, o.order_number`, from, to).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sales VAT: %w", err)
	}

	report := &VATSalesReport{
		DateFrom:          dateFrom,
		DateTo:            dateTo,
		Rows:              rows,
		TotalBeforeVAT:    decimal.Zero,
		TotalVAT:          decimal.Zero,
		TotalIncludingVAT: decimal.Zero,
	}
	for _, r := range rows {
		report.TotalBeforeVAT = report.TotalBeforeVAT.Add(r.PriceBeforeVAT)
		report.TotalVAT = report.TotalVAT.Add(r.VATAmount)
		report.TotalIncludingVAT = report.TotalIncludingVAT.Add(r.PriceIncludingVAT)
	}
	report.TotalBeforeVAT = money.Round(report.TotalBeforeVAT)
	report.TotalVAT = money.Round(report.TotalVAT)
	report.TotalIncludingVAT = money.Round(report.TotalIncludingVAT)

	return report, nil
}

// GetVATPurchasesReport recomputes input VAT from each purchase line's own
// price mode, covering orders that received stock in the period.
func (s *Service) GetVATPurchasesReport(dateFrom, dateTo string) (*VATPurchasesReport, error) {
	from, to, err := parsePeriod(dateFrom, dateTo)
	if err != nil {
		return nil, err
	}

	type itemRow struct {
		PONumber      string
		OrderDate     time.Time
		SupplierName  string
		SupplierTaxID string
		IsVATIncluded bool
		LineTotal     decimal.Decimal
		VATRate       decimal.Decimal
	}
	var items []itemRow
	err = s.db.Raw(`SELECT o.po_number, o.order_date, s.name_th AS supplier_name, s.tax_id AS supplier_tax_id,
			i.is_vat_included, i.line_total, i.vat_rate
		FROM purchase_order_items i
		JOIN purchase_orders o ON o.id = i.purchase_order_id
		JOIN suppliers s ON s.id = o.supplier_id
		WHERE o.status IN ('partially_received', 'received')
		AND o.order_date >= ? AND o.order_date < ?
		ORDER BY o.order_date, o.po_number`, from, to).Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase VAT: %w", err)
	}

	report := &VATPurchasesReport{
		DateFrom:          dateFrom,
		DateTo:            dateTo,
		TotalBeforeVAT:    decimal.Zero,
		TotalVAT:          decimal.Zero,
		TotalIncludingVAT: decimal.Zero,
	}
	for _, it := range items {
		mode := money.VATInclusive
		if !it.IsVATIncluded {
			mode = money.VATExclusive
		}
		breakdown := money.CalculateVAT(it.LineTotal, it.VATRate, it.VATRate.IsPositive(), mode)

		report.Rows = append(report.Rows, VATPurchasesRow{
			PONumber:          it.PONumber,
			OrderDate:         it.OrderDate,
			SupplierName:      it.SupplierName,
			SupplierTaxID:     it.SupplierTaxID,
			IsVATIncluded:     it.IsVATIncluded,
			PriceBeforeVAT:    breakdown.PriceBeforeVAT,
			VATAmount:         breakdown.VATAmount,
			PriceIncludingVAT: breakdown.PriceIncludingVAT,
		})
		report.TotalBeforeVAT = report.TotalBeforeVAT.Add(breakdown.PriceBeforeVAT)
		report.TotalVAT = report.TotalVAT.Add(breakdown.VATAmount)
		report.TotalIncludingVAT = report.TotalIncludingVAT.Add(breakdown.PriceIncludingVAT)
	}
	report.TotalBeforeVAT = money.Round(report.TotalBeforeVAT)
	report.TotalVAT = money.Round(report.TotalVAT)
	report.TotalIncludingVAT = money.Round(report.TotalIncludingVAT)

	return report, nil
}

// GetCOGSReport prices each sold unit at the unit cost of the lot it was
// drawn from rather than the product's current cost price.
func (s *Service) GetCOGSReport(dateFrom, dateTo string) (*COGSReport, error) {
	from, to, err := parsePeriod(dateFrom, dateTo)
	if err != nil {
		return nil, err
	}

	type itemRow struct {
		ProductID      uint
		ProductSKU     string
		ProductName    string
		Quantity       int64
		PriceBeforeVAT decimal.Decimal
		UnitCost       decimal.Decimal
	}
	var items []itemRow
	err = s.db.Raw(`SELECT i.product_id, p.sku AS product_sku, p.name_th AS product_name,
			i.quantity, i.price_before_vat, COALESCE(l.unit_cost, p.cost_price) AS unit_cost
		FROM sales_order_items i
		JOIN sales_orders o ON o.id = i.sales_order_id
		JOIN products p ON p.id = i.product_id
		LEFT JOIN inventory_lots l ON l.id = i.lot_id
		WHERE o.status = 'completed' AND o.completed_at >= ? AND o.completed_at < ?`, from, to).Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query cost of goods sold: %w", err)
	}

	report := &COGSReport{
		DateFrom:    dateFrom,
		DateTo:      dateTo,
		Revenue:     decimal.Zero,
		Cost:        decimal.Zero,
		GrossProfit: decimal.Zero,
	}

	byProduct := make(map[uint]*COGSRow)
	var order []uint
	for _, it := range items {
		row, ok := byProduct[it.ProductID]
		if !ok {
			row = &COGSRow{
				ProductID:   it.ProductID,
				ProductSKU:  it.ProductSKU,
				ProductName: it.ProductName,
				Revenue:     decimal.Zero,
				Cost:        decimal.Zero,
			}
			byProduct[it.ProductID] = row
			order = append(order, it.ProductID)
		}
		cost := it.UnitCost.Mul(decimal.NewFromInt(it.Quantity))
		row.QuantitySold += it.Quantity
		row.Revenue = row.Revenue.Add(it.PriceBeforeVAT)
		row.Cost = row.Cost.Add(cost)

		report.Revenue = report.Revenue.Add(it.PriceBeforeVAT)
		report.Cost = report.Cost.Add(cost)
	}

	for _, id := range order {
		row := byProduct[id]
		row.Revenue = money.Round(row.Revenue)
		row.Cost = money.Round(row.Cost)
		row.GrossProfit = row.Revenue.Sub(row.Cost)
		report.Rows = append(report.Rows, *row)
	}
	report.Revenue = money.Round(report.Revenue)
	report.Cost = money.Round(report.Cost)
	report.GrossProfit = report.Revenue.Sub(report.Cost)

	return report, nil
}

// GetProfitLossReport builds a simple P&L from completed sales and lot costs
func (s *Service) GetProfitLossReport(dateFrom, dateTo string) (*ProfitLossReport, error) {
	cogs, err := s.GetCOGSReport(dateFrom, dateTo)
	if err != nil {
		return nil, err
	}
	from, to, err := parsePeriod(dateFrom, dateTo)
	if err != nil {
		return nil, err
	}

	report := &ProfitLossReport{
		DateFrom:        dateFrom,
		DateTo:          dateTo,
		Revenue:         cogs.Revenue,
		CostOfGoodsSold: cogs.Cost,
		GrossProfit:     cogs.GrossProfit,
		GrossMarginPct:  decimal.Zero,
	}

	err = s.db.Raw(`SELECT COALESCE(SUM(tax_amount), 0) FROM sales_orders
		WHERE status = 'completed' AND completed_at >= ? AND completed_at < ?`, from, to).Scan(&report.OutputVAT).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query output vat: %w", err)
	}
	err = s.db.Raw(`SELECT COUNT(*) FROM sales_orders
		WHERE status = 'completed' AND completed_at >= ? AND completed_at < ?`, from, to).Scan(&report.CompletedOrders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count completed orders: %w", err)
	}

	if report.Revenue.IsPositive() {
		report.GrossMarginPct = report.GrossProfit.Div(report.Revenue).Mul(decimal.NewFromInt(100)).Round(2)
	}
	report.OutputVAT = money.Round(report.OutputVAT)

	return report, nil
}

// GetInventoryValuation values on-hand stock (available plus reserved, never
// damaged) at lot unit cost.
func (s *Service) GetInventoryValuation() (*InventoryValuationReport, error) {
	type lotRow struct {
		ProductID   uint
		ProductSKU  string
		ProductName string
		OnHand      int64
		UnitCost    decimal.Decimal
	}
	var lots []lotRow
	err := s.db.Raw(`SELECT l.product_id, p.sku AS product_sku, p.name_th AS product_name,
			(l.quantity_available + l.quantity_reserved) AS on_hand, l.unit_cost
		FROM inventory_lots l
		JOIN products p ON p.id = l.product_id
		WHERE l.quantity_available + l.quantity_reserved > 0
		ORDER BY p.sku`).Scan(&lots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory valuation: %w", err)
	}

	report := &InventoryValuationReport{
		AsOf:       time.Now().UTC(),
		TotalValue: decimal.Zero,
	}

	byProduct := make(map[uint]*ValuationRow)
	var order []uint
	for _, l := range lots {
		row, ok := byProduct[l.ProductID]
		if !ok {
			row = &ValuationRow{
				ProductID:   l.ProductID,
				ProductSKU:  l.ProductSKU,
				ProductName: l.ProductName,
				Value:       decimal.Zero,
			}
			byProduct[l.ProductID] = row
			order = append(order, l.ProductID)
		}
		value := l.UnitCost.Mul(decimal.NewFromInt(l.OnHand))
		row.OnHand += l.OnHand
		row.Value = row.Value.Add(value)
		report.TotalValue = report.TotalValue.Add(value)
	}

	for _, id := range order {
		row := byProduct[id]
		row.Value = money.Round(row.Value)
		report.Rows = append(report.Rows, *row)
	}
	report.TotalValue = money.Round(report.TotalValue)

	return report, nil
}

// GetExpiryReport lists lots with remaining stock expiring within the window
func (s *Service) GetExpiryReport(days int) (*ExpiryReport, error) {
	if days < 1 {
		return nil, apperrors.Validation("days must be at least 1, got %d", days)
	}

	now := time.Now().UTC()
	var lots []inventory.InventoryLot
	err := s.db.Preload("Product").
		Where("expiry_date <= ? AND quantity_available > 0", now.AddDate(0, 0, days)).
		Order("expiry_date asc").
		Find(&lots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring lots: %w", err)
	}

	report := &ExpiryReport{Days: days}
	for _, lot := range lots {
		row := ExpiryRow{
			LotID:             lot.ID,
			LotNumber:         lot.LotNumber,
			QuantityAvailable: lot.QuantityAvailable,
			ExpiryDate:        lot.ExpiryDate,
			DaysRemaining:     int(lot.ExpiryDate.Sub(now).Hours() / 24),
		}
		if lot.Product.ID != 0 {
			row.ProductSKU = lot.Product.SKU
			row.ProductName = lot.Product.NameTH
		}
		report.Rows = append(report.Rows, row)
	}

	return report, nil
}

func parsePeriod(dateFrom, dateTo string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", dateFrom)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Validation("invalid date_from '%s': expected YYYY-MM-DD", dateFrom)
	}
	to, err := time.Parse("2006-01-02", dateTo)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Validation("invalid date_to '%s': expected YYYY-MM-DD", dateTo)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperrors.Validation("date_to must not be before date_from")
	}
	return from, to.AddDate(0, 0, 1), nil
}
