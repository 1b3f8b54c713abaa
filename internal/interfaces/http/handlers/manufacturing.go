// internal/interfaces/http/handlers/manufacturing.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/audit"
	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/domain/manufacturing"
	"github.com/your-org/pharmacy-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// ManufacturingHandler handles production order endpoints
type ManufacturingHandler struct {
	manufacturingService *manufacturing.Service
	config               *config.Config
}

// NewManufacturingHandler creates a new manufacturing handler
func NewManufacturingHandler(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *ManufacturingHandler {
	inv := inventory.NewService(db, cfg)
	rec := audit.NewRecorder(db, log)
	return &ManufacturingHandler{
		manufacturingService: manufacturing.NewService(db, cfg, inv, rec, log),
		config:               cfg,
	}
}

// CreateManufacturingOrder handles POST /manufacturing/orders
func (h *ManufacturingHandler) CreateManufacturingOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	var req manufacturing.CreateManufacturingOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	order, err := h.manufacturingService.CreateManufacturingOrder(&req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Manufacturing order created successfully",
		"data":    order,
	})
}

// GetManufacturingOrders handles GET /manufacturing/orders
func (h *ManufacturingHandler) GetManufacturingOrders(c *gin.Context) {
	var req manufacturing.ManufacturingOrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	resp, err := h.manufacturingService.GetManufacturingOrders(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": resp,
	})
}

// GetManufacturingOrder handles GET /manufacturing/orders/:id
func (h *ManufacturingHandler) GetManufacturingOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.manufacturingService.GetManufacturingOrder(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": order,
	})
}

// ConfirmManufacturingOrder handles POST /manufacturing/orders/:id/confirm
func (h *ManufacturingHandler) ConfirmManufacturingOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.manufacturingService.ConfirmManufacturingOrder(id, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Manufacturing order confirmed",
		"data":    order,
	})
}

// StartManufacturingOrder handles POST /manufacturing/orders/:id/start
func (h *ManufacturingHandler) StartManufacturingOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.manufacturingService.StartManufacturingOrder(id, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Production started",
		"data":    order,
	})
}

// CompleteManufacturingOrder handles POST /manufacturing/orders/:id/complete
func (h *ManufacturingHandler) CompleteManufacturingOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req manufacturing.CompleteManufacturingOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	order, err := h.manufacturingService.CompleteManufacturingOrder(id, &req, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Production completed",
		"data":    order,
	})
}

// CancelManufacturingOrder handles POST /manufacturing/orders/:id/cancel
func (h *ManufacturingHandler) CancelManufacturingOrder(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.manufacturingService.CancelManufacturingOrder(id, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Manufacturing order cancelled",
		"data":    order,
	})
}
