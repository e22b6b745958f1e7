package handlers

import (
	"net/http"
	"strconv"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/settings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// --- GET: /api/reports/tax-report?months= ---
func (h *Handler) GetTaxReport(c *gin.Context) {
	months := 0
	if raw := c.Query("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(c, apperr.Validation("months must be a positive number"))
			return
		}
		months = n
	}

	report, err := h.Reports.TaxReport(c.Request.Context(), months)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- GET: /api/reports/vat-position?month=YYYY-MM ---
func (h *Handler) GetVATPosition(c *gin.Context) {
	pos, err := h.Reports.VATPosition(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (h *Handler) GetFinancialSummary(c *gin.Context) {
	summary, err := h.Reports.FinancialSummary(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetComplianceReminders(c *gin.Context) {
	report, err := h.Reports.ComplianceReminders(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- GET: /api/reports/wht-suggestion?payee_type=&amount= ---
func (h *Handler) GetWHTSuggestion(c *gin.Context) {
	amount := decimal.Zero
	if raw := c.Query("amount"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			h.respondError(c, apperr.Validation("amount must be a number"))
			return
		}
		amount = d
	}

	suggestion, err := h.Reports.WHTSuggestion(c.Request.Context(), c.Query("payee_type"), amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

// --- GET: /api/reports/sales?start=&end= ---
func (h *Handler) GetSalesReport(c *gin.Context) {
	start, end, err := h.Reports.ParseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	report, err := h.Reports.Sales(c.Request.Context(), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- GET: /api/reports/valuation ---
// GetStockValuation returns the cost value of stock on hand grouped by category.
func (h *Handler) GetStockValuation(c *gin.Context) {
	valuation, err := h.Reports.StockValuation(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, valuation)
}

// --- GET: /api/reports/stock-levels?name= ---
func (h *Handler) GetStockLevels(c *gin.Context) {
	levels, err := h.Reports.CheckInventory(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, levels)
}

// --- SETTINGS ---

func (h *Handler) GetSettings(c *gin.Context) {
	cfg, err := h.Settings.Load(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings.ToView(cfg))
}

// UpdateSettings applies every well-formed field in the body and returns
// the new snapshot.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var input settings.UpdateRequest
	if !h.bindJSON(c, &input) {
		return
	}

	cfg, err := h.Settings.Update(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Logger.WithFields(logrus.Fields{
		"module":  "settings",
		"version": cfg.Version,
		"user_id": identity(c).ID,
	}).Info("tax settings updated")
	c.JSON(http.StatusOK, settings.ToView(cfg))
}

// --- DASHBOARD AND ANALYTICS ---

func (h *Handler) GetDashboard(c *gin.Context) {
	dash, err := h.Reports.Dashboard(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

func (h *Handler) GetSalesChart(c *gin.Context) {
	days, err := h.Reports.SalesChart(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

func (h *Handler) GetAttendantPerformance(c *gin.Context) {
	tallies, err := h.Reports.AttendantPerformance(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tallies)
}

func (h *Handler) GetProfitReport(c *gin.Context) {
	days, err := h.Reports.ProfitReport(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

func (h *Handler) GetProductProfitAnalytics(c *gin.Context) {
	rows, err := h.Reports.ProductProfitAnalytics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// --- GET: /api/reports/products/not-sold?days=30 ---
func (h *Handler) GetNotSoldProducts(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil {
		h.respondError(c, apperr.Validation("days must be a positive number"))
		return
	}

	products, err := h.Reports.NotSoldProducts(c.Request.Context(), days)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}
