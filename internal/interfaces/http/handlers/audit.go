// internal/interfaces/http/handlers/audit.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/audit"
	"gorm.io/gorm"
)

// AuditHandler handles audit trail endpoints
type AuditHandler struct {
	recorder *audit.Recorder
	config   *config.Config
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *AuditHandler {
	return &AuditHandler{
		recorder: audit.NewRecorder(db, log),
		config:   cfg,
	}
}

// GetAuditLogs handles GET /audit
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	entityType := c.Query("entity_type")
	if entityType == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "entity_type is required",
		})
		return
	}

	entityID, err := strconv.ParseUint(c.Query("entity_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid entity_id parameter",
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	logs, err := h.recorder.List(entityType, uint(entityID), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": logs,
	})
}
