// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"go-pos-books/internal/database"
	"go-pos-books/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Open("sqlite", dsn, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func DecPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// SeedProduct inserts a product whose opening balance equals qty.
func SeedProduct(t *testing.T, db *gorm.DB, name string, basePrice string, qty int64) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:             name,
		Category:         "General",
		CostPrice:        Dec(basePrice).Div(decimal.NewFromInt(2)),
		BaseSellingPrice: Dec(basePrice),
		Quantity:         qty,
		InitialQuantity:  qty,
		BranchID:         1,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func SeedMaterial(t *testing.T, db *gorm.DB, name string, qty string, unitCost string) *models.Material {
	t.Helper()
	m := &models.Material{
		Name:            name,
		Unit:            "kg",
		Quantity:        Dec(qty),
		InitialQuantity: Dec(qty),
		UnitCost:        Dec(unitCost),
		BranchID:        1,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func SeedRecipe(t *testing.T, db *gorm.DB, productID, materialID uint, perUnit string) {
	t.Helper()
	require.NoError(t, db.Create(&models.RecipeEntry{
		ProductID:        productID,
		MaterialID:       materialID,
		QuantityRequired: Dec(perUnit),
	}).Error)
}

func SeedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	u := &models.User{Username: username, FullName: username, Role: role, BranchID: 1, PasswordHash: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}
