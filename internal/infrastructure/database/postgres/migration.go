// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/pharmacy-backend/internal/domain/audit"
	"github.com/your-org/pharmacy-backend/internal/domain/customer"
	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/domain/manufacturing"
	"github.com/your-org/pharmacy-backend/internal/domain/product"
	"github.com/your-org/pharmacy-backend/internal/domain/purchase"
	"github.com/your-org/pharmacy-backend/internal/domain/sales"
	"github.com/your-org/pharmacy-backend/internal/domain/supplier"
	"github.com/your-org/pharmacy-backend/internal/domain/user"
	"github.com/your-org/pharmacy-backend/internal/pkg/auth"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// Base tables
		&user.User{},
		&product.Category{},
		&product.Product{},
		&customer.Customer{},
		&supplier.Supplier{},

		// Inventory domain
		&inventory.Warehouse{},
		&inventory.InventoryLot{},
		&inventory.StockMovement{},

		// Sales domain
		&sales.SalesOrder{},
		&sales.SalesOrderItem{},

		// Purchase domain
		&purchase.PurchaseOrder{},
		&purchase.PurchaseOrderItem{},

		// Manufacturing domain
		&manufacturing.ManufacturingOrder{},
		&manufacturing.BillOfMaterials{},

		// Audit trail
		&audit.AuditLog{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku)",
		"CREATE INDEX IF NOT EXISTS idx_products_barcode ON products(barcode)",
		"CREATE INDEX IF NOT EXISTS idx_products_drug_type ON products(drug_type)",

		// Category indexes
		"CREATE INDEX IF NOT EXISTS idx_categories_parent_active ON categories(parent_id, is_active)",

		// Inventory lot indexes
		"CREATE INDEX IF NOT EXISTS idx_inventory_lots_product_expiry ON inventory_lots(product_id, expiry_date)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_lots_warehouse ON inventory_lots(warehouse_id)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_lots_quality ON inventory_lots(quality_status)",
		"CREATE INDEX IF NOT EXISTS idx_inventory_lots_available ON inventory_lots(product_id, quantity_available)",

		// Stock movement indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_lot ON stock_movements(lot_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_reference ON stock_movements(reference_type, reference_id)",

		// Sales order indexes
		"CREATE INDEX IF NOT EXISTS idx_sales_orders_status_created ON sales_orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sales_orders_order_number ON sales_orders(order_number)",
		"CREATE INDEX IF NOT EXISTS idx_sales_orders_customer ON sales_orders(customer_id)",
		"CREATE INDEX IF NOT EXISTS idx_sales_order_items_order ON sales_order_items(sales_order_id)",
		"CREATE INDEX IF NOT EXISTS idx_sales_order_items_product ON sales_order_items(product_id)",

		// Purchase order indexes
		"CREATE INDEX IF NOT EXISTS idx_purchase_orders_status ON purchase_orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_orders_supplier ON purchase_orders(supplier_id)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_order_items_order ON purchase_order_items(purchase_order_id)",

		// Manufacturing indexes
		"CREATE INDEX IF NOT EXISTS idx_manufacturing_orders_status ON manufacturing_orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_bill_of_materials_order ON bill_of_materials(manufacturing_order_id)",

		// Audit log indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(entity_type, entity_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_actor ON audit_logs(actor_id)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := m.seedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	if err := m.seedMainWarehouse(); err != nil {
		return fmt.Errorf("failed to seed warehouse: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedAdminUser() error {
	log.Println("👤 Seeding admin user...")

	var existing user.User
	result := m.db.Where("email = ?", "admin@pharmacy.local").First(&existing)
	if result.Error == nil {
		log.Printf("⏭️ Admin user already exists with ID: %d", existing.ID)
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("ChangeMe!2024"), 10)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	adminUser := user.User{
		Email:    "admin@pharmacy.local",
		Password: string(hashedPassword),
		FullName: "System Administrator",
		Role:     auth.RoleAdmin,
		IsActive: true,
	}

	if err := m.db.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Println("✅ Created admin user: admin@pharmacy.local")
	return nil
}

// seedCategories creates the default product category tree
func (m *Migration) seedCategories() error {
	log.Println("🏷️ Seeding categories...")

	categories := []product.Category{
		{
			Code:        "MED-RX",
			NameTH:      "ยาตามใบสั่งแพทย์",
			NameEN:      "Prescription Medicines",
			Description: "Medicines dispensed against a prescription",
			IsActive:    true,
		},
		{
			Code:        "MED-OTC",
			NameTH:      "ยาสามัญประจำบ้าน",
			NameEN:      "Over-the-Counter Medicines",
			Description: "Medicines sold without a prescription",
			IsActive:    true,
		},
		{
			Code:        "SUPP",
			NameTH:      "ผลิตภัณฑ์เสริมอาหาร",
			NameEN:      "Supplements",
			Description: "Vitamins and dietary supplements",
			IsActive:    true,
		},
		{
			Code:        "MEDSUP",
			NameTH:      "เวชภัณฑ์",
			NameEN:      "Medical Supplies",
			Description: "Bandages, syringes, and other medical supplies",
			IsActive:    true,
		},
	}

	for _, category := range categories {
		var existing product.Category
		result := m.db.Where("code = ?", category.Code).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&category).Error; err != nil {
				return err
			}
			log.Printf("✅ Created category: %s", category.Code)
		} else {
			log.Printf("⏭️ Category already exists: %s", category.Code)
		}
	}

	return nil
}

// seedMainWarehouse creates the default main warehouse
func (m *Migration) seedMainWarehouse() error {
	log.Println("🏬 Seeding main warehouse...")

	var existing inventory.Warehouse
	result := m.db.Where("code = ?", "WH-MAIN").First(&existing)
	if result.Error == nil {
		log.Println("⏭️ Main warehouse already exists")
		return nil
	}

	warehouse := inventory.Warehouse{
		Code:     "WH-MAIN",
		Name:     "Main Warehouse",
		Type:     inventory.WarehouseTypeMain,
		IsActive: true,
	}

	if err := m.db.Create(&warehouse).Error; err != nil {
		return err
	}

	log.Println("✅ Created main warehouse: WH-MAIN")
	return nil
}

// GetTableInfo logs row counts for the core tables
func (m *Migration) GetTableInfo() {
	tables := []string{
		"users", "categories", "products", "customers", "suppliers",
		"warehouses", "inventory_lots", "stock_movements",
		"sales_orders", "purchase_orders", "manufacturing_orders",
	}

	log.Println("📊 Table counts:")
	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			log.Printf("  %s: error (%v)", table, err)
			continue
		}
		log.Printf("  %s: %d", table, count)
	}
}
