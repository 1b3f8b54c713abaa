// internal/interfaces/http/handlers/report.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/pharmacy-backend/internal/config"
	"github.com/your-org/pharmacy-backend/internal/domain/report"
	"gorm.io/gorm"
)

// ReportHandler handles reporting endpoints
type ReportHandler struct {
	reportService *report.Service
	config        *config.Config
}

// NewReportHandler creates a new report handler
func NewReportHandler(db *gorm.DB, cfg *config.Config) *ReportHandler {
	return &ReportHandler{
		reportService: report.NewService(db, cfg),
		config:        cfg,
	}
}

// GetDashboard handles GET /reports/dashboard
func (h *ReportHandler) GetDashboard(c *gin.Context) {
	summary, err := h.reportService.GetDashboardSummary()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summary,
	})
}

// GetSalesReport handles GET /reports/sales
func (h *ReportHandler) GetSalesReport(c *gin.Context) {
	rep, err := h.reportService.GetSalesReport(c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rep,
	})
}

// GetVATSalesReport handles GET /reports/vat/sales
func (h *ReportHandler) GetVATSalesReport(c *gin.Context) {
	rep, err := h.reportService.GetVATSalesReport(c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rep,
	})
}

// GetVATPurchasesReport handles GET /reports/vat/purchases
func (h *ReportHandler) GetVATPurchasesReport(c *gin.Context) {
	rep, err := h.reportService.GetVATPurchasesReport(c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rep,
	})
}

// GetCOGSReport handles GET /reports/cogs
func (h *ReportHandler) GetCOGSReport(c *gin.Context) {
	rep, err := h.reportService.GetCOGSReport(c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rep,
	})
}

// GetProfitLossReport handles GET /reports/profit-loss
func (h *ReportHandler) GetProfitLossReport(c *gin.Context) {
	rep, err := h.reportService.GetProfitLossReport(c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rep,
	})
}

// GetInventoryValuation handles GET /reports/inventory-valuation
func (h *ReportHandler) GetInventoryValuation(c *gin.Context) {
	rep, err := h.reportService.GetInventoryValuation()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rep,
	})
}

// GetExpiryReport handles GET /reports/expiry
func (h *ReportHandler) GetExpiryReport(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "90"))
	if err != nil || days < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid days parameter",
		})
		return
	}

	rep, err := h.reportService.GetExpiryReport(days)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": rep,
	})
}
