// internal/interfaces/http/routes/routes.go
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/interfaces/http/handlers"
	"github.com/your-org/pharmacy-backend/internal/interfaces/http/middleware"
	"github.com/your-org/pharmacy-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// newLogger builds the shared application logger from config
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)

	authGroup := rg.Group("/auth")
	{
		// Public auth endpoints
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.RefreshToken)

		// Protected auth endpoints
		protected := authGroup.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/me", authHandler.Me)
			protected.POST("/change-password", authHandler.ChangePassword)
		}
	}
}

// SetupUserRoutes sets up user administration routes
func SetupUserRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	userHandler := handlers.NewUserHandler(db, cfg)

	users := rg.Group("/users")
	users.Use(middleware.AuthMiddleware(cfg))
	users.Use(middleware.RequireRoles(auth.RoleAdmin))
	{
		users.POST("", userHandler.CreateUser)
		users.GET("", userHandler.GetUsers)
		users.GET("/:id", userHandler.GetUser)
		users.PUT("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeactivateUser)
	}
}

// SetupProductRoutes sets up product catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	productHandler := handlers.NewProductHandler(db, cfg)
	categoryHandler := handlers.NewCategoryHandler(db, cfg)

	products := rg.Group("/products")
	products.Use(middleware.AuthMiddleware(cfg))
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/barcode/:barcode", productHandler.GetProductByBarcode)

		writes := products.Group("")
		writes.Use(middleware.RequireRoles(auth.RoleAdmin, auth.RoleManager))
		{
			writes.POST("", productHandler.CreateProduct)
			writes.PUT("/:id", productHandler.UpdateProduct)
			writes.POST("/:id/deactivate", productHandler.DeactivateProduct)
			writes.DELETE("/:id", productHandler.DeleteProduct)
		}
	}

	categories := rg.Group("/categories")
	categories.Use(middleware.AuthMiddleware(cfg))
	{
		categories.GET("", categoryHandler.GetCategories)
		categories.GET("/:id", categoryHandler.GetCategory)

		writes := categories.Group("")
		writes.Use(middleware.RequireRoles(auth.RoleAdmin, auth.RoleManager))
		{
			writes.POST("", categoryHandler.CreateCategory)
			writes.PUT("/:id", categoryHandler.UpdateCategory)
			writes.DELETE("/:id", categoryHandler.DeleteCategory)
		}
	}
}

// SetupMasterDataRoutes sets up customer and supplier routes
func SetupMasterDataRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	customerHandler := handlers.NewCustomerHandler(db, cfg)
	supplierHandler := handlers.NewSupplierHandler(db, cfg)

	customers := rg.Group("/customers")
	customers.Use(middleware.AuthMiddleware(cfg))
	{
		customers.GET("", customerHandler.GetCustomers)
		customers.GET("/:id", customerHandler.GetCustomer)

		// POS staff register walk-in customers at the counter
		customers.POST("", customerHandler.CreateCustomer)
		customers.PUT("/:id", customerHandler.UpdateCustomer)

		customers.DELETE("/:id",
			middleware.RequireRoles(auth.RoleAdmin, auth.RoleManager),
			customerHandler.DeactivateCustomer)
	}

	suppliers := rg.Group("/suppliers")
	suppliers.Use(middleware.AuthMiddleware(cfg))
	{
		suppliers.GET("", supplierHandler.GetSuppliers)
		suppliers.GET("/:id", supplierHandler.GetSupplier)

		writes := suppliers.Group("")
		writes.Use(middleware.RequireRoles(auth.RoleAdmin, auth.RoleManager))
		{
			writes.POST("", supplierHandler.CreateSupplier)
			writes.PUT("/:id", supplierHandler.UpdateSupplier)
			writes.DELETE("/:id", supplierHandler.DeactivateSupplier)
		}
	}
}

// SetupInventoryRoutes sets up inventory lot and warehouse routes
func SetupInventoryRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	inventoryHandler := handlers.NewInventoryHandler(db, cfg)

	inv := rg.Group("/inventory")
	inv.Use(middleware.AuthMiddleware(cfg))
	{
		inv.GET("/lots", inventoryHandler.GetLots)
		inv.GET("/lots/expiring", inventoryHandler.GetExpiringLots)
		inv.GET("/lots/:id", inventoryHandler.GetLot)

		writes := inv.Group("")
		writes.Use(middleware.RequireRoles(auth.RoleAdmin, auth.RoleManager, auth.RolePharmacist))
		{
			writes.POST("/lots", inventoryHandler.ReceiveLot)
			writes.POST("/adjust", inventoryHandler.AdjustDamage)
			writes.POST("/lots/:id/quality", inventoryHandler.InspectQuality)
			writes.DELETE("/lots/:id",
				middleware.RequireRoles(auth.RoleAdmin),
				inventoryHandler.DeleteLot)
		}
	}

	warehouses := rg.Group("/warehouses")
	warehouses.Use(middleware.AuthMiddleware(cfg))
	{
		warehouses.GET("", inventoryHandler.GetWarehouses)
		warehouses.GET("/:id", inventoryHandler.GetWarehouse)

		writes := warehouses.Group("")
		writes.Use(middleware.RequireRoles(auth.RoleAdmin, auth.RoleManager))
		{
			writes.POST("", inventoryHandler.CreateWarehouse)
			writes.PUT("/:id", inventoryHandler.UpdateWarehouse)
			writes.DELETE("/:id", inventoryHandler.DeleteWarehouse)
		}
	}
}

// SetupSalesRoutes sets up point-of-sale routes
func SetupSalesRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config, log *logrus.Logger) {
	salesHandler := handlers.NewSalesHandler(db, cfg, log)

	salesGroup := rg.Group("/sales")
	salesGroup.Use(middleware.AuthMiddleware(cfg))
	{
		salesGroup.GET("/orders", salesHandler.GetSalesOrders)
		salesGroup.GET("/orders/:id", salesHandler.GetSalesOrder)

		pos := salesGroup.Group("")
		pos.Use(middleware.RequireRoles(auth.RoleManager, auth.RolePharmacist, auth.RoleCashier))
		{
			pos.POST("/orders", salesHandler.CreateSalesOrder)
			pos.POST("/orders/:id/complete", salesHandler.CompleteSalesOrder)
			pos.POST("/orders/:id/cancel", salesHandler.CancelSalesOrder)
		}
	}
}

// SetupPurchaseRoutes sets up purchasing routes
func SetupPurchaseRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config, log *logrus.Logger) {
	purchaseHandler := handlers.NewPurchaseHandler(db, cfg, log)

	purchaseGroup := rg.Group("/purchase")
	purchaseGroup.Use(middleware.AuthMiddleware(cfg))
	{
		purchaseGroup.GET("/orders", purchaseHandler.GetPurchaseOrders)
		purchaseGroup.GET("/orders/:id", purchaseHandler.GetPurchaseOrder)

		writes := purchaseGroup.Group("")
		writes.Use(middleware.RequireRoles(auth.RoleAdmin, auth.RoleManager))
		{
			writes.POST("/orders", purchaseHandler.CreatePurchaseOrder)
			writes.POST("/orders/:id/send", purchaseHandler.SendPurchaseOrder)
			writes.POST("/orders/:id/confirm", purchaseHandler.ConfirmPurchaseOrder)
			writes.POST("/orders/:id/cancel", purchaseHandler.CancelPurchaseOrder)
		}

		// Warehouse staff record deliveries as they arrive
		purchaseGroup.POST("/orders/:id/receive",
			middleware.RequireRoles(auth.RoleAdmin, auth.RoleManager, auth.RolePharmacist, auth.RoleStaff),
			purchaseHandler.ReceivePurchaseOrder)
	}
}

// SetupManufacturingRoutes sets up production routes
func SetupManufacturingRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config, log *logrus.Logger) {
	manufacturingHandler := handlers.NewManufacturingHandler(db, cfg, log)

	mfg := rg.Group("/manufacturing")
	mfg.Use(middleware.AuthMiddleware(cfg))
	{
		mfg.GET("/orders", manufacturingHandler.GetManufacturingOrders)
		mfg.GET("/orders/:id", manufacturingHandler.GetManufacturingOrder)

		writes := mfg.Group("")
		writes.Use(middleware.RequireRoles(auth.RoleAdmin, auth.RoleManager, auth.RolePharmacist))
		{
			writes.POST("/orders", manufacturingHandler.CreateManufacturingOrder)
			writes.POST("/orders/:id/confirm", manufacturingHandler.ConfirmManufacturingOrder)
			writes.POST("/orders/:id/start", manufacturingHandler.StartManufacturingOrder)
			writes.POST("/orders/:id/complete", manufacturingHandler.CompleteManufacturingOrder)
			writes.POST("/orders/:id/cancel", manufacturingHandler.CancelManufacturingOrder)
		}
	}
}

// SetupReportRoutes sets up reporting routes
func SetupReportRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	reportHandler := handlers.NewReportHandler(db, cfg)

	reports := rg.Group("/reports")
	reports.Use(middleware.AuthMiddleware(cfg))
	reports.Use(middleware.RequireRoles(auth.RoleManager))
	{
		reports.GET("/dashboard", reportHandler.GetDashboard)
		reports.GET("/sales", reportHandler.GetSalesReport)
		reports.GET("/vat/sales", reportHandler.GetVATSalesReport)
		reports.GET("/vat/purchases", reportHandler.GetVATPurchasesReport)
		reports.GET("/cogs", reportHandler.GetCOGSReport)
		reports.GET("/profit-loss", reportHandler.GetProfitLossReport)
		reports.GET("/inventory-valuation", reportHandler.GetInventoryValuation)
		reports.GET("/expiry", reportHandler.GetExpiryReport)
	}
}

// SetupAuditRoutes sets up audit trail routes
func SetupAuditRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config, log *logrus.Logger) {
	auditHandler := handlers.NewAuditHandler(db, cfg, log)

	auditGroup := rg.Group("/audit")
	auditGroup.Use(middleware.AuthMiddleware(cfg))
	auditGroup.Use(middleware.RequireRoles(auth.RoleManager))
	{
		auditGroup.GET("", auditHandler.GetAuditLogs)
	}
}

// SetupRoutes sets up all API routes
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	log := newLogger(cfg)

	SetupAuthRoutes(rg, db, cfg)
	SetupUserRoutes(rg, db, cfg)
	SetupProductRoutes(rg, db, cfg)
	SetupMasterDataRoutes(rg, db, cfg)
	SetupInventoryRoutes(rg, db, cfg)
	SetupSalesRoutes(rg, db, cfg, log)
	SetupPurchaseRoutes(rg, db, cfg, log)
	SetupManufacturingRoutes(rg, db, cfg, log)
	SetupReportRoutes(rg, db, cfg)
	SetupAuditRoutes(rg, db, cfg, log)
}
