// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/inventory"
	"github.com/your-org/pharmacy-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// InventoryHandler handles inventory lot and warehouse endpoints
type InventoryHandler struct {
	db               *gorm.DB
	inventoryService *inventory.Service
	config           *config.Config
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(db *gorm.DB, cfg *config.Config) *InventoryHandler {
	return &InventoryHandler{
		db:               db,
		inventoryService: inventory.NewService(db, cfg),
		config:           cfg,
	}
}

// ReceiveLot handles POST /inventory/lots
func (h *InventoryHandler) ReceiveLot(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	var req inventory.ReceiveLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	var lot *inventory.InventoryLot
	err := h.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		lot, txErr = h.inventoryService.Receive(tx, &req, actorID)
		return txErr
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Lot received successfully",
		"data":    lot,
	})
}

// GetLots handles GET /inventory/lots
func (h *InventoryHandler) GetLots(c *gin.Context) {
	var req inventory.LotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	resp, err := h.inventoryService.GetLots(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": resp,
	})
}

// GetExpiringLots handles GET /inventory/lots/expiring
func (h *InventoryHandler) GetExpiringLots(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "90"))
	if err != nil || days < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid days parameter",
		})
		return
	}

	lots, err := h.inventoryService.GetExpiringLots(days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": lots,
	})
}

// GetLot handles GET /inventory/lots/:id
func (h *InventoryHandler) GetLot(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	lot, err := h.inventoryService.GetLot(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": lot,
	})
}

// AdjustDamage handles POST /inventory/adjust
func (h *InventoryHandler) AdjustDamage(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	var req struct {
		LotID  uint   `json:"lot_id" binding:"required"`
		Delta  int    `json:"delta" binding:"required"`
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	lot, err := h.inventoryService.AdjustDamage(req.LotID, req.Delta, req.Reason, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Damage adjustment recorded",
		"data":    lot,
	})
}

// InspectQuality handles POST /inventory/lots/:id/quality
func (h *InventoryHandler) InspectQuality(c *gin.Context) {
	actorID, _ := middleware.GetUserIDFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status inventory.QualityStatus `json:"status" binding:"required"`
		Notes  string                  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	lot, err := h.inventoryService.InspectQuality(id, req.Status, req.Notes, actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Quality inspection recorded",
		"data":    lot,
	})
}

// DeleteLot handles DELETE /inventory/lots/:id
func (h *InventoryHandler) DeleteLot(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteLot(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Lot deleted successfully",
	})
}

// CreateWarehouse handles POST /warehouses
func (h *InventoryHandler) CreateWarehouse(c *gin.Context) {
	var req inventory.CreateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	w, err := h.inventoryService.CreateWarehouse(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Warehouse created successfully",
		"data":    w,
	})
}

// GetWarehouses handles GET /warehouses
func (h *InventoryHandler) GetWarehouses(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"

	warehouses, err := h.inventoryService.GetWarehouses(includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": warehouses,
	})
}

// GetWarehouse handles GET /warehouses/:id
func (h *InventoryHandler) GetWarehouse(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	w, err := h.inventoryService.GetWarehouse(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": w,
	})
}

// UpdateWarehouse handles PUT /warehouses/:id
func (h *InventoryHandler) UpdateWarehouse(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req inventory.UpdateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	w, err := h.inventoryService.UpdateWarehouse(id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Warehouse updated successfully",
		"data":    w,
	})
}

// DeleteWarehouse handles DELETE /warehouses/:id
func (h *InventoryHandler) DeleteWarehouse(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteWarehouse(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Warehouse deleted successfully",
	})
}
