// Package catalog holds the master data the sale flow depends on:
// products, materials and recipes. Stock levels are never written here;
// they move only through the inventory ledger.
package catalog

import (
	"errors"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store reads the catalog through gorm. Bind it to a transaction with
// New(tx) so reads and the writes that follow share one unit of work.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ProductForUpdate loads a product and locks its row until the
// surrounding transaction ends (a no-op lock on SQLite).
func (s *Store) ProductForUpdate(id uint) (*models.Product, error) {
	var p models.Product
	err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Product %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load product", err)
	}
	return &p, nil
}

func (s *Store) MaterialForUpdate(id uint) (*models.Material, error) {
	var m models.Material
	err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Material %d not found", id)
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load material", err)
	}
	return &m, nil
}

func (s *Store) Recipe(productID uint) ([]models.RecipeEntry, error) {
	var entries []models.RecipeEntry
	if err := s.db.Where("product_id = ?", productID).Order("id asc").Find(&entries).Error; err != nil {
		return nil, apperr.Internal("Failed to load recipe", err)
	}
	return entries, nil
}

// Products lists the catalog for a branch (0 = every branch).
func (s *Store) Products(branchID uint) ([]models.Product, error) {
	q := s.db.Order("name asc")
	if branchID != 0 {
		q = q.Where("branch_id = ?", branchID)
	}
	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch products", err)
	}
	return products, nil
}

func (s *Store) Materials(branchID uint) ([]models.Material, error) {
	q := s.db.Order("name asc")
	if branchID != 0 {
		q = q.Where("branch_id = ?", branchID)
	}
	var materials []models.Material
	if err := q.Find(&materials).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch materials", err)
	}
	return materials, nil
}

// --- WRITE SIDE ---

type ProductRequest struct {
	Name             string           `json:"name" binding:"required,max=150"`
	Category         string           `json:"category" binding:"max=80"`
	CostPrice        decimal.Decimal  `json:"cost_price"`
	BaseSellingPrice decimal.Decimal  `json:"base_selling_price"`
	SafePrice        *decimal.Decimal `json:"safe_price"`
	StandardPrice    *decimal.Decimal `json:"standard_price"`
	PremiumPrice     *decimal.Decimal `json:"premium_price"`
	Quantity         int64            `json:"quantity" binding:"gte=0"` // opening balance, create only
	MinThreshold     int64            `json:"min_threshold" binding:"gte=0"`
}

func (r ProductRequest) check() error {
	prices := []*decimal.Decimal{&r.CostPrice, &r.BaseSellingPrice, r.SafePrice, r.StandardPrice, r.PremiumPrice}
	for _, p := range prices {
		if p != nil && p.IsNegative() {
			return apperr.Validation("Prices cannot be negative")
		}
	}
	return nil
}

// CreateProduct adds a product whose opening balance is req.Quantity.
func (s *Store) CreateProduct(branchID uint, req ProductRequest) (*models.Product, error) {
	if err := req.check(); err != nil {
		return nil, err
	}
	p := models.Product{
		Name:             req.Name,
		Category:         req.Category,
		CostPrice:        req.CostPrice,
		BaseSellingPrice: req.BaseSellingPrice,
		SafePrice:        req.SafePrice,
		StandardPrice:    req.StandardPrice,
		PremiumPrice:     req.PremiumPrice,
		Quantity:         req.Quantity,
		InitialQuantity:  req.Quantity,
		MinThreshold:     req.MinThreshold,
		BranchID:         branchID,
	}
	if err := s.db.Create(&p).Error; err != nil {
		return nil, apperr.Internal("Failed to create product", err)
	}
	return &p, nil
}

// UpdateProduct rewrites the descriptive and price fields. req.Quantity is
// ignored: restocks and adjustments go through the ledger.
func (s *Store) UpdateProduct(id uint, req ProductRequest) (*models.Product, error) {
	if err := req.check(); err != nil {
		return nil, err
	}
	var p models.Product
	if err := s.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Product %d not found", id)
		}
		return nil, apperr.Internal("Failed to load product", err)
	}

	// Map updates so cleared tier prices are written as NULL.
	updates := map[string]any{
		"name":               req.Name,
		"category":           req.Category,
		"cost_price":         req.CostPrice,
		"base_selling_price": req.BaseSellingPrice,
		"safe_price":         req.SafePrice,
		"standard_price":     req.StandardPrice,
		"premium_price":      req.PremiumPrice,
		"min_threshold":      req.MinThreshold,
	}
	if err := s.db.Model(&p).Updates(updates).Error; err != nil {
		return nil, apperr.Internal("Failed to update product", err)
	}
	if err := s.db.First(&p, id).Error; err != nil {
		return nil, apperr.Internal("Failed to reload product", err)
	}
	return &p, nil
}

type MaterialRequest struct {
	Name         string          `json:"name" binding:"required,max=150"`
	Unit         string          `json:"unit" binding:"required,max=20"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	MinThreshold decimal.Decimal `json:"min_threshold"`
}

func (s *Store) CreateMaterial(branchID uint, req MaterialRequest) (*models.Material, error) {
	if req.Quantity.IsNegative() || req.UnitCost.IsNegative() || req.MinThreshold.IsNegative() {
		return nil, apperr.Validation("Quantities and costs cannot be negative")
	}
	m := models.Material{
		Name:            req.Name,
		Unit:            req.Unit,
		Quantity:        req.Quantity,
		InitialQuantity: req.Quantity,
		UnitCost:        req.UnitCost,
		MinThreshold:    req.MinThreshold,
		BranchID:        branchID,
	}
	if err := s.db.Create(&m).Error; err != nil {
		return nil, apperr.Internal("Failed to create material", err)
	}
	return &m, nil
}
