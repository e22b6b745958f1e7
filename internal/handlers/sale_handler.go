package handlers

import (
	"net/http"
	"strconv"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/sales"

	"github.com/gin-gonic/gin"
)

// --- POST: /api/transactions ---
func (h *Handler) Checkout(c *gin.Context) {
	var input sales.Request
	if !h.bindJSON(c, &input) {
		return
	}

	result, err := h.Sales.Checkout(c.Request.Context(), identity(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// --- GET: /api/transactions?limit= ---
func (h *Handler) ListTransactions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(c, apperr.Validation("limit must be a positive number"))
			return
		}
		limit = n
	}

	txns, err := h.Sales.List(c.Request.Context(), identity(c), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

// --- GET: /api/transactions/:id ---
func (h *Handler) GetTransaction(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	detail, err := h.Sales.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// --- GET: /api/credit-sales?status= ---
func (h *Handler) ListCreditSales(c *gin.Context) {
	list, err := h.Sales.CreditSales(c.Request.Context(), identity(c), c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// --- POST: /api/credit-sales/:id/payment ---
func (h *Handler) PayCreditSale(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var input sales.PaymentRequest
	if !h.bindJSON(c, &input) {
		return
	}

	sale, err := h.Sales.ApplyPayment(c.Request.Context(), identity(c), id, input.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// --- GET: /api/invoices ---
func (h *Handler) ListInvoices(c *gin.Context) {
	invoices, err := h.Sales.Invoices(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// --- GET: /api/invoices/:id ---
func (h *Handler) GetInvoice(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	invoice, err := h.Sales.Invoice(c.Request.Context(), identity(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}
