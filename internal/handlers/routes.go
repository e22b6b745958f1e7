package handlers

import (
	"net/http"

	"go-pos-books/internal/middleware"
	"go-pos-books/internal/models"
	"go-pos-books/internal/validate"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterRoutes mounts the public and the token-protected API on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	// Binding errors name fields by their JSON keys.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(validate.JSONName)
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "online"}) })
	r.POST("/login", h.Login)

	// --- FEATURE FLAG: Registration ---
	if h.AllowRegistration {
		r.POST("/register", h.Register)
	}

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(h.Issuer))
	{
		// EVERY SIGNED-IN ROLE
		api.GET("/products", h.GetProducts)
		api.GET("/materials", h.GetMaterials)
		api.POST("/transactions", h.Checkout)
		api.GET("/transactions", h.ListTransactions)
		api.GET("/transactions/:id", h.GetTransaction)
		api.GET("/credit-sales", h.ListCreditSales)
		api.POST("/credit-sales/:id/payment", h.PayCreditSale)
		api.GET("/invoices", h.ListInvoices)
		api.GET("/invoices/:id", h.GetInvoice)
		api.GET("/reports/attendant-performance", h.GetAttendantPerformance)

		// MANAGERS AND ADMINS
		back := api.Group("/")
		back.Use(middleware.RequireRole(models.RoleAdmin, models.RoleManager))
		{
			back.POST("/products", h.AddProduct)
			back.PUT("/products/:id", h.UpdateProduct)
			back.POST("/materials", h.AddMaterial)

			back.POST("/inventory/products/:id/restock", h.RestockProduct)
			back.POST("/inventory/materials/:id/restock", h.RestockMaterial)
			back.POST("/inventory/products/:id/adjust", h.AdjustProduct)
			back.POST("/inventory/materials/:id/adjust", h.AdjustMaterial)
			back.POST("/inventory/spoilage", h.RecordSpoilage)
			back.GET("/inventory/spoilage", h.ListSpoilage)
			back.GET("/inventory/:kind/:id/ledger", h.GetLedger)
			back.PUT("/inventory/recipes/:productId", h.ReplaceRecipe)

			back.POST("/expenses", h.CreateExpense)
			back.GET("/expenses", h.ListExpenses)

			back.POST("/purchase-orders", h.CreatePurchaseOrder)
			back.GET("/purchase-orders", h.ListPurchaseOrders)
			back.GET("/purchase-orders/input-vat-summary", h.GetInputVATSummary)
			back.POST("/purchase-orders/:id/receive", h.ReceivePurchaseOrder)
			back.POST("/purchase-orders/:id/cancel", h.CancelPurchaseOrder)

			back.GET("/reports/tax-report", h.GetTaxReport)
			back.GET("/reports/vat-position", h.GetVATPosition)
			back.GET("/reports/financial-summary", h.GetFinancialSummary)
			back.GET("/reports/compliance-reminders", h.GetComplianceReminders)
			back.GET("/reports/wht-suggestion", h.GetWHTSuggestion)
			back.GET("/reports/sales", h.GetSalesReport)
			back.GET("/reports/valuation", h.GetStockValuation)
			back.GET("/reports/stock-levels", h.GetStockLevels)
			back.GET("/reports/settings", h.GetSettings)
			back.GET("/reports/dashboard", h.GetDashboard)
			back.GET("/reports/sales-chart", h.GetSalesChart)
			back.GET("/reports/profit-report", h.GetProfitReport)
			back.GET("/reports/products/profit-analytics", h.GetProductProfitAnalytics)
			back.GET("/reports/products/not-sold", h.GetNotSoldProducts)

			back.GET("/costing/product/:productId", h.GetProductCost)
			back.POST("/costing/quick-estimate", h.QuickEstimate)
		}

		// ADMIN ONLY
		admin := api.Group("/")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/reports/settings", h.UpdateSettings)
			admin.POST("/ask", h.AskAI)
		}
	}
}
