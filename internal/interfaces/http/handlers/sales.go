// internal/interfaces/http/handlers/sales.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/audit"
	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/domain/sales"
	"github.com/your-org/pharmacy-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SalesHandler handles point-of-sale order endpoints
type SalesHandler struct {
	salesService *sales.Service
	config       *config.Config
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *SalesHandler {
	inv := inventory.NewService(db, cfg)
	rec := audit.NewRecorder(db, log)
	return &SalesHandler{
		salesService: sales.NewService(db, cfg, inv, rec, log),
		config:       cfg,
	}
}

// CreateSalesOrder handles POST /sales/orders
func (h *SalesHandler) CreateSalesOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	var req sales.CreateSalesOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	order, err := h.salesService.CreateSalesOrder(&req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Sales order created successfully",
		"data":    order,
	})
}

// GetSalesOrders handles GET /sales/orders
func (h *SalesHandler) GetSalesOrders(c *gin.Context) {
	var req sales.SalesOrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	resp, err := h.salesService.GetSalesOrders(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": resp,
	})
}

// GetSalesOrder handles GET /sales/orders/:id
func (h *SalesHandler) GetSalesOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.salesService.GetSalesOrder(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": order,
	})
}

// CompleteSalesOrder handles POST /sales/orders/:id/complete
func (h *SalesHandler) CompleteSalesOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req sales.CompleteSalesOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	order, err := h.salesService.CompleteSalesOrder(id, &req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sales order completed successfully",
		"data":    order,
	})
}

// CancelSalesOrder handles POST /sales/orders/:id/cancel
func (h *SalesHandler) CancelSalesOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.salesService.CancelSalesOrder(id, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sales order cancelled successfully",
		"data":    order,
	})
}
