// Package inventory moves stock outside of checkout: restocks,
// adjustments, spoilage, recipe edits and purchase orders. Every quantity
// change goes through the ledger.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/auth"
	"go-pos-books/internal/config"
	"go-pos-books/internal/database"
	"go-pos-books/internal/ledger"
	"go-pos-books/internal/models"
	"go-pos-books/internal/tax"
	"go-pos-books/internal/validate"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const SpoilageCategory = "Spoilage"

type ConfigSource interface {
	Load(ctx context.Context) (tax.Config, error)
}

type Service struct {
	db       *gorm.DB
	settings ConfigSource
	logger   *logrus.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewService(db *gorm.DB, settings ConfigSource, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		settings: settings,
		logger:   logger,
		validate: validate.New(),
		now:      time.Now,
	}
}

type MovementRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note" binding:"max=255"`
}

type AdjustRequest struct {
	Quantity *decimal.Decimal `json:"quantity" binding:"required"` // target on-hand quantity
	Note     string           `json:"note" binding:"max=255"`
}

type SpoilageRequest struct {
	Kind     string          `json:"kind" binding:"required"` // product(s) or material(s)
	ID       uint            `json:"id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason" binding:"max=200"`
}

type SpoilageResult struct {
	Entry   *models.LedgerEntry `json:"entry"`
	Expense *models.Expense     `json:"expense"`
	Log     *models.SpoilageLog `json:"log"`
}

// Restock adds a positive quantity to a product or material.
func (s *Service) Restock(ctx context.Context, actor auth.Identity, e ledger.Entity, req MovementRequest) (*models.LedgerEntry, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validate.Error(err)
	}
	if !req.Quantity.IsPositive() {
		return nil, apperr.Validation("quantity must be greater than zero")
	}

	note := req.Note
	if note == "" {
		note = "Restock"
	}
	var entry *models.LedgerEntry
	err := database.InTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		entry, err = ledger.Record(tx, e, ledger.ChangeRestock, req.Quantity, nil, note)
		return err
	})
	if err != nil {
		return nil, s.fail("Restock", e, err)
	}

	s.logger.WithFields(logrus.Fields{
		"module":   "inventory",
		"entity":   e.String(),
		"quantity": req.Quantity.String(),
		"user_id":  actor.ID,
	}).Info("restocked")
	return entry, nil
}

// Adjust sets an entity's on-hand quantity to a counted target. A target
// equal to the current quantity writes nothing and returns a nil entry.
func (s *Service) Adjust(ctx context.Context, actor auth.Identity, e ledger.Entity, req AdjustRequest) (*models.LedgerEntry, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validate.Error(err)
	}
	target := *req.Quantity
	if target.IsNegative() {
		return nil, apperr.Validation("quantity cannot be negative")
	}

	note := req.Note
	if note == "" {
		note = "Stock count adjustment"
	}
	var entry *models.LedgerEntry
	err := database.InTx(ctx, s.db, func(tx *gorm.DB) error {
		current, err := currentQuantity(tx, e)
		if err != nil {
			return err
		}
		delta := target.Sub(current)
		if delta.IsZero() {
			return nil
		}
		entry, err = ledger.Record(tx, e, ledger.ChangeAdjustment, delta, nil, note)
		return err
	})
	if err != nil {
		return nil, s.fail("Adjust", e, err)
	}

	if entry != nil {
		s.logger.WithFields(logrus.Fields{
			"module":  "inventory",
			"entity":  e.String(),
			"delta":   entry.QuantityChanged.String(),
			"user_id": actor.ID,
		}).Info("stock adjusted")
	}
	return entry, nil
}

// Spoilage writes off damaged stock and books its cost as an expense.
// Materials are recorded as spoilage; products as an adjustment.
func (s *Service) Spoilage(ctx context.Context, actor auth.Identity, req SpoilageRequest) (*SpoilageResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validate.Error(err)
	}
	kind, ok := ledger.ParseKind(req.Kind)
	if !ok {
		return nil, apperr.Validation("kind must be product or material")
	}
	if !req.Quantity.IsPositive() {
		return nil, apperr.Validation("quantity must be greater than zero")
	}
	e := ledger.Entity{Kind: kind, ID: req.ID}

	result := &SpoilageResult{}
	err := database.InTx(ctx, s.db, func(tx *gorm.DB) error {
		var (
			name       string
			unitCost   decimal.Decimal
			changeType string
		)
		switch kind {
		case ledger.KindProduct:
			var p models.Product
			if err := findEntity(tx, &p, e); err != nil {
				return err
			}
			name, unitCost, changeType = p.Name, p.CostPrice, ledger.ChangeAdjustment
		default:
			var m models.Material
			if err := findEntity(tx, &m, e); err != nil {
				return err
			}
			name, unitCost, changeType = m.Name, m.UnitCost, ledger.ChangeSpoilage
		}

		note := "Spoilage"
		if req.Reason != "" {
			note = "Spoilage: " + req.Reason
		}
		entry, err := ledger.Record(tx, e, changeType, req.Quantity.Neg(), nil, note)
		if err != nil {
			return err
		}
		result.Entry = entry

		expense := &models.Expense{
			Category:    SpoilageCategory,
			Description: fmt.Sprintf("%s x %s spoiled", name, req.Quantity.String()),
			Amount:      unitCost.Mul(req.Quantity).Round(2),
			BranchID:    actor.BranchID,
			RecordedBy:  actor.ID,
			Date:        s.now().UTC(),
		}
		if err := tx.Create(expense).Error; err != nil {
			return apperr.Internal("Failed to record spoilage expense", err)
		}
		result.Expense = expense

		record := &models.SpoilageLog{
			ItemType:      string(kind),
			ItemID:        e.ID,
			ItemName:      name,
			Quantity:      req.Quantity,
			Reason:        req.Reason,
			EstimatedLoss: expense.Amount,
			LedgerEntryID: entry.ID,
			ExpenseID:     expense.ID,
			RecordedBy:    actor.ID,
			BranchID:      actor.BranchID,
		}
		if err := tx.Create(record).Error; err != nil {
			return apperr.Internal("Failed to record spoilage", err)
		}
		result.Log = record
		return nil
	})
	if err != nil {
		return nil, s.fail("Spoilage", e, err)
	}
	return result, nil
}

const spoilageLogLimit = 200

// SpoilageLog lists write-offs newest first.
func (s *Service) SpoilageLog(ctx context.Context) ([]models.SpoilageLog, error) {
	out := []models.SpoilageLog{}
	err := s.db.WithContext(ctx).Order("created_at desc, id desc").Limit(spoilageLogLimit).Find(&out).Error
	if err != nil {
		return nil, s.fail("SpoilageLog", ledger.Entity{}, apperr.Internal("Failed to fetch spoilage log", err))
	}
	return out, nil
}

type RecipeLine struct {
	MaterialID       uint            `json:"material_id" binding:"required"`
	QuantityRequired decimal.Decimal `json:"quantity_required"`
}

type RecipeRequest struct {
	Items []RecipeLine `json:"items" binding:"dive"`
}

// ReplaceRecipe swaps a product's whole recipe in one unit of work. An
// empty list clears it.
func (s *Service) ReplaceRecipe(ctx context.Context, productID uint, req RecipeRequest) ([]models.RecipeEntry, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validate.Error(err)
	}
	seen := make(map[uint]bool, len(req.Items))
	for _, l := range req.Items {
		if !l.QuantityRequired.IsPositive() {
			return nil, apperr.Validation("quantity_required must be greater than zero")
		}
		if seen[l.MaterialID] {
			return nil, apperr.Validation("material %d listed twice", l.MaterialID)
		}
		seen[l.MaterialID] = true
	}

	var entries []models.RecipeEntry
	err := database.InTx(ctx, s.db, func(tx *gorm.DB) error {
		var p models.Product
		if err := findEntity(tx, &p, ledger.Product(productID)); err != nil {
			return err
		}
		for _, l := range req.Items {
			var m models.Material
			if err := findEntity(tx, &m, ledger.Material(l.MaterialID)); err != nil {
				return err
			}
		}

		if err := tx.Where("product_id = ?", productID).Delete(&models.RecipeEntry{}).Error; err != nil {
			return apperr.Internal("Failed to clear recipe", err)
		}
		for _, l := range req.Items {
			entries = append(entries, models.RecipeEntry{
				ProductID:        productID,
				MaterialID:       l.MaterialID,
				QuantityRequired: l.QuantityRequired,
			})
		}
		if len(entries) == 0 {
			return nil
		}
		if err := tx.Create(&entries).Error; err != nil {
			return apperr.Internal("Failed to save recipe", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("ReplaceRecipe", ledger.Product(productID), err)
	}
	return entries, nil
}

type LedgerView struct {
	Kind        ledger.Kind          `json:"kind"`
	ID          uint                 `json:"id"`
	Entries     []models.LedgerEntry `json:"entries"`
	Consistency *ledger.Consistency  `json:"consistency"`
}

// Ledger lists an entity's movements oldest first, with the replay check.
func (s *Service) Ledger(ctx context.Context, e ledger.Entity) (*LedgerView, error) {
	db := s.db.WithContext(ctx)
	check, err := ledger.Check(db, e)
	if err != nil {
		return nil, err
	}
	entries, err := ledger.Entries(db, e)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch ledger", err)
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return &LedgerView{Kind: e.Kind, ID: e.ID, Entries: entries, Consistency: check}, nil
}

func currentQuantity(tx *gorm.DB, e ledger.Entity) (decimal.Decimal, error) {
	switch e.Kind {
	case ledger.KindProduct:
		var p models.Product
		if err := findEntity(tx, &p, e); err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(p.Quantity), nil
	case ledger.KindMaterial:
		var m models.Material
		if err := findEntity(tx, &m, e); err != nil {
			return decimal.Zero, err
		}
		return m.Quantity, nil
	}
	return decimal.Zero, apperr.Validation("unknown entity kind %q", e.Kind)
}

func findEntity(tx *gorm.DB, dest any, e ledger.Entity) error {
	if err := tx.First(dest, e.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if e.Kind == ledger.KindProduct {
				return apperr.NotFound("Product %d not found", e.ID)
			}
			return apperr.NotFound("Material %d not found", e.ID)
		}
		return apperr.Internal("Failed to load "+string(e.Kind), err)
	}
	return nil
}

func (s *Service) fail(funcName string, e ledger.Entity, err error) error {
	if apperr.KindOf(err) == apperr.KindInternal {
		config.LogError(s.logger, "inventory", funcName, "inventory movement failed", e.String(), err)
	}
	return err
}
