package handlers

import (
	"net/http"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/inventory"
	"go-pos-books/internal/ledger"

	"github.com/gin-gonic/gin"
)

// --- STOCK MOVEMENTS ---

func (h *Handler) RestockProduct(c *gin.Context)  { h.restock(c, ledger.Product) }
func (h *Handler) RestockMaterial(c *gin.Context) { h.restock(c, ledger.Material) }
func (h *Handler) AdjustProduct(c *gin.Context)   { h.adjust(c, ledger.Product) }
func (h *Handler) AdjustMaterial(c *gin.Context)  { h.adjust(c, ledger.Material) }

func (h *Handler) restock(c *gin.Context, entity func(uint) ledger.Entity) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input inventory.MovementRequest
	if !h.bindJSON(c, &input) {
		return
	}

	entry, err := h.Inventory.Restock(c.Request.Context(), identity(c), entity(id), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) adjust(c *gin.Context, entity func(uint) ledger.Entity) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input inventory.AdjustRequest
	if !h.bindJSON(c, &input) {
		return
	}

	entry, err := h.Inventory.Adjust(c.Request.Context(), identity(c), entity(id), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if entry == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Quantity unchanged"})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// --- POST: /api/inventory/spoilage ---
func (h *Handler) RecordSpoilage(c *gin.Context) {
	var input inventory.SpoilageRequest
	if !h.bindJSON(c, &input) {
		return
	}

	result, err := h.Inventory.Spoilage(c.Request.Context(), identity(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// --- GET: /api/inventory/:kind/:id/ledger ---
func (h *Handler) GetLedger(c *gin.Context) {
	kind, ok := ledger.ParseKind(c.Param("kind"))
	if !ok {
		h.respondError(c, apperr.Validation("kind must be products or materials"))
		return
	}
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	view, err := h.Inventory.Ledger(c.Request.Context(), ledger.Entity{Kind: kind, ID: id})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// --- PUT: /api/inventory/recipes/:productId ---
func (h *Handler) ReplaceRecipe(c *gin.Context) {
	productID, err := parseID(c, "productId")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var input inventory.RecipeRequest
	if !h.bindJSON(c, &input) {
		return
	}

	recipe, err := h.Inventory.ReplaceRecipe(c.Request.Context(), productID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "items": recipe})
}

// --- EXPENSES ---

func (h *Handler) CreateExpense(c *gin.Context) {
	var input inventory.ExpenseRequest
	if !h.bindJSON(c, &input) {
		return
	}

	result, err := h.Inventory.CreateExpense(c.Request.Context(), identity(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListExpenses takes the same inclusive ?start=&end= range as the sales report.
func (h *Handler) ListExpenses(c *gin.Context) {
	start, end, err := h.Reports.ParseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	list, err := h.Inventory.Expenses(c.Request.Context(), start, end.AddDate(0, 0, 1))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// --- PURCHASE ORDERS ---

func (h *Handler) CreatePurchaseOrder(c *gin.Context) {
	var input inventory.PORequest
	if !h.bindJSON(c, &input) {
		return
	}

	po, err := h.Inventory.CreatePurchaseOrder(c.Request.Context(), identity(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, po)
}

func (h *Handler) ListPurchaseOrders(c *gin.Context) {
	list, err := h.Inventory.PurchaseOrders(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ReceivePurchaseOrder(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	po, err := h.Inventory.ReceivePurchaseOrder(c.Request.Context(), identity(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

func (h *Handler) CancelPurchaseOrder(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	po, err := h.Inventory.CancelPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, po)
}

// --- GET: /api/purchase-orders/input-vat-summary?month=YYYY-MM ---
func (h *Handler) GetInputVATSummary(c *gin.Context) {
	summary, err := h.Inventory.InputVATSummary(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListSpoilage(c *gin.Context) {
	logs, err := h.Inventory.SpoilageLog(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// --- COSTING ---

// --- GET: /api/costing/product/:productId ---
func (h *Handler) GetProductCost(c *gin.Context) {
	productID, err := parseID(c, "productId")
	if err != nil {
		h.respondError(c, err)
		return
	}

	cost, err := h.Inventory.ProductCost(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cost)
}

// --- POST: /api/costing/quick-estimate ---
func (h *Handler) QuickEstimate(c *gin.Context) {
	var input inventory.EstimateRequest
	if !h.bindJSON(c, &input) {
		return
	}
	c.JSON(http.StatusOK, inventory.QuickEstimate(input))
}
