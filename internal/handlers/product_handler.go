package handlers

import (
	"net/http"

	"go-pos-books/internal/catalog"

	"github.com/gin-gonic/gin"
)

// branchScope is the branch a listing is limited to: attendants see their
// own branch, back office staff see every branch.
func branchScope(c *gin.Context) uint {
	id := identity(c)
	if id.IsAttendant() {
		return id.BranchID
	}
	return 0
}

// --- GET: /api/products ---
func (h *Handler) GetProducts(c *gin.Context) {
	products, err := catalog.New(h.DB.WithContext(c.Request.Context())).Products(branchScope(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// --- GET: /api/materials ---
func (h *Handler) GetMaterials(c *gin.Context) {
	materials, err := catalog.New(h.DB.WithContext(c.Request.Context())).Materials(branchScope(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, materials)
}

// --- POST: Add a new product ---
func (h *Handler) AddProduct(c *gin.Context) {
	var input catalog.ProductRequest
	if !h.bindJSON(c, &input) {
		return
	}

	product, err := catalog.New(h.DB.WithContext(c.Request.Context())).CreateProduct(branchOf(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// --- PUT: Update prices and details ---
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	var input catalog.ProductRequest
	if !h.bindJSON(c, &input) {
		return
	}

	product, err := catalog.New(h.DB.WithContext(c.Request.Context())).UpdateProduct(id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated", "product": product})
}

// --- POST: Add a raw material ---
func (h *Handler) AddMaterial(c *gin.Context) {
	var input catalog.MaterialRequest
	if !h.bindJSON(c, &input) {
		return
	}

	material, err := catalog.New(h.DB.WithContext(c.Request.Context())).CreateMaterial(branchOf(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, material)
}

func branchOf(c *gin.Context) uint {
	if id := identity(c); id.BranchID != 0 {
		return id.BranchID
	}
	return 1
}
