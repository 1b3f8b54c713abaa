// internal/interfaces/http/handlers/purchase.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/audit"
	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/domain/purchase"
	"github.com/your-org/pharmacy-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// PurchaseHandler handles purchase order endpoints
type PurchaseHandler struct {
	purchaseService *purchase.Service
	config          *config.Config
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *PurchaseHandler {
	inv := inventory.NewService(db, cfg)
	rec := audit.NewRecorder(db, log)
	return &PurchaseHandler{
		purchaseService: purchase.NewService(db, cfg, inv, rec, log),
		config:          cfg,
	}
}

// CreatePurchaseOrder handles POST /purchase/orders
func (h *PurchaseHandler) CreatePurchaseOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	var req purchase.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	order, err := h.purchaseService.CreatePurchaseOrder(&req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Purchase order created successfully",
		"data":    order,
	})
}

// GetPurchaseOrders handles GET /purchase/orders
func (h *PurchaseHandler) GetPurchaseOrders(c *gin.Context) {
	var req purchase.PurchaseOrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	resp, err := h.purchaseService.GetPurchaseOrders(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": resp,
	})
}

// GetPurchaseOrder handles GET /purchase/orders/:id
func (h *PurchaseHandler) GetPurchaseOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.purchaseService.GetPurchaseOrder(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": order,
	})
}

// SendPurchaseOrder handles POST /purchase/orders/:id/send
func (h *PurchaseHandler) SendPurchaseOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.purchaseService.SendPurchaseOrder(id, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase order sent to supplier",
		"data":    order,
	})
}

// ConfirmPurchaseOrder handles POST /purchase/orders/:id/confirm
func (h *PurchaseHandler) ConfirmPurchaseOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.purchaseService.ConfirmPurchaseOrder(id, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase order confirmed",
		"data":    order,
	})
}

// ReceivePurchaseOrder handles POST /purchase/orders/:id/receive
func (h *PurchaseHandler) ReceivePurchaseOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req purchase.ReceivePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	order, err := h.purchaseService.ReceivePurchaseOrder(id, &req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase order receipt recorded",
		"data":    order,
	})
}

// CancelPurchaseOrder handles POST /purchase/orders/:id/cancel
func (h *PurchaseHandler) CancelPurchaseOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.purchaseService.CancelPurchaseOrder(id, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase order cancelled",
		"data":    order,
	})
}
