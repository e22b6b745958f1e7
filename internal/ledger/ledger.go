// Package ledger keeps the append-only movement log for product stock and
// raw-material quantities. Every quantity change goes through Record, inside
// the same database transaction as the business write that caused it.
package ledger

import (
	"errors"
	"fmt"
	"math"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Kind string

const (
	KindProduct  Kind = "product"
	KindMaterial Kind = "material"
)

const (
	ChangeSale       = "sale"
	ChangeRestock    = "restock"
	ChangeAdjustment = "adjustment"
	ChangeSpoilage   = "spoilage"
	ChangeSaleUsage  = "sale_usage"
)

// Product stock is an int64 column.
var maxProductQuantity = decimal.NewFromInt(math.MaxInt64)

var validChanges = map[string]bool{
	ChangeSale:       true,
	ChangeRestock:    true,
	ChangeAdjustment: true,
	ChangeSpoilage:   true,
	ChangeSaleUsage:  true,
}

// Entity identifies the stock-bearing row a movement applies to.
type Entity struct {
	Kind Kind
	ID   uint
}

func Product(id uint) Entity  { return Entity{Kind: KindProduct, ID: id} }
func Material(id uint) Entity { return Entity{Kind: KindMaterial, ID: id} }

func (e Entity) String() string { return fmt.Sprintf("%s %d", e.Kind, e.ID) }

// ParseKind maps a route segment ("products", "material", ...) to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "product", "products":
		return KindProduct, true
	case "material", "materials":
		return KindMaterial, true
	}
	return "", false
}

// Record applies delta to the entity's quantity and appends the matching
// entry. The row is locked and read first, so QuantityBefore is the value
// immediately preceding this change. A change that would leave the entity
// negative is rejected with InsufficientStock or InsufficientIngredient.
// tx must be an open transaction.
func Record(tx *gorm.DB, e Entity, changeType string, delta decimal.Decimal, referenceID *uint, note string) (*models.LedgerEntry, error) {
	if !validChanges[changeType] {
		return nil, apperr.Validation("unknown change type %q", changeType)
	}

	var (
		before decimal.Decimal
		label  string
	)

	switch e.Kind {
	case KindProduct:
		if !delta.Equal(delta.Truncate(0)) {
			return nil, apperr.Validation("product quantities must be whole numbers")
		}
		var p models.Product
		if err := lockRow(tx, &p, e.ID); err != nil {
			return nil, err
		}
		before, label = decimal.NewFromInt(p.Quantity), p.Name
		after := before.Add(delta)
		if after.IsNegative() {
			return nil, apperr.InsufficientStock("Insufficient stock for %s", label)
		}
		if after.GreaterThan(maxProductQuantity) {
			return nil, apperr.Validation("Quantity for %s is too large", label)
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", e.ID).
			Update("quantity", after.IntPart()).Error; err != nil {
			return nil, apperr.Internal("Failed to update stock", err)
		}

	case KindMaterial:
		var m models.Material
		if err := lockRow(tx, &m, e.ID); err != nil {
			return nil, err
		}
		before, label = m.Quantity, m.Name
		after := before.Add(delta)
		if after.IsNegative() {
			return nil, apperr.InsufficientIngredient("Insufficient %s", label)
		}
		if err := tx.Model(&models.Material{}).Where("id = ?", e.ID).
			Update("quantity", after).Error; err != nil {
			return nil, apperr.Internal("Failed to update material", err)
		}

	default:
		return nil, apperr.Validation("unknown entity kind %q", e.Kind)
	}

	entry := &models.LedgerEntry{
		EntityKind:      string(e.Kind),
		EntityID:        e.ID,
		ChangeType:      changeType,
		QuantityBefore:  before,
		QuantityChanged: delta,
		QuantityAfter:   before.Add(delta),
		ReferenceID:     referenceID,
		Note:            note,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, apperr.Internal("Failed to write ledger entry", err)
	}
	return entry, nil
}

// Entries lists every movement for e, oldest first.
func Entries(db *gorm.DB, e Entity) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	err := db.Where("entity_kind = ? AND entity_id = ?", string(e.Kind), e.ID).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

// SumDeltas totals QuantityChanged over every entry for e. The sum is
// taken in decimal: SQLite would add the column as floating point.
func SumDeltas(db *gorm.DB, e Entity) (decimal.Decimal, error) {
	var deltas []decimal.Decimal
	err := db.Model(&models.LedgerEntry{}).
		Where("entity_kind = ? AND entity_id = ?", string(e.Kind), e.ID).
		Pluck("quantity_changed", &deltas).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, deltas...), nil
}

// Consistency compares an entity's current quantity with its opening
// balance plus the ledger's recorded deltas.
type Consistency struct {
	Initial  decimal.Decimal `json:"initial_quantity"`
	Deltas   decimal.Decimal `json:"sum_of_changes"`
	Expected decimal.Decimal `json:"expected_quantity"`
	Current  decimal.Decimal `json:"current_quantity"`
	OK       bool            `json:"consistent"`
}

func Check(db *gorm.DB, e Entity) (*Consistency, error) {
	var initial, current decimal.Decimal

	switch e.Kind {
	case KindProduct:
		var p models.Product
		if err := findRow(db, &p, e.ID); err != nil {
			return nil, err
		}
		initial, current = decimal.NewFromInt(p.InitialQuantity), decimal.NewFromInt(p.Quantity)
	case KindMaterial:
		var m models.Material
		if err := findRow(db, &m, e.ID); err != nil {
			return nil, err
		}
		initial, current = m.InitialQuantity, m.Quantity
	default:
		return nil, apperr.Validation("unknown entity kind %q", e.Kind)
	}

	deltas, err := SumDeltas(db, e)
	if err != nil {
		return nil, apperr.Internal("Failed to sum ledger", err)
	}
	expected := initial.Add(deltas)
	return &Consistency{
		Initial:  initial,
		Deltas:   deltas,
		Expected: expected,
		Current:  current,
		OK:       expected.Equal(current),
	}, nil
}

func lockRow(tx *gorm.DB, dest any, id uint) error {
	return findRow(tx.Clauses(clause.Locking{Strength: "UPDATE"}), dest, id)
}

func findRow(db *gorm.DB, dest any, id uint) error {
	if err := db.First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("%s %d not found", kindLabel(dest), id)
		}
		return apperr.Internal("Failed to load record", err)
	}
	return nil
}

func kindLabel(dest any) string {
	switch dest.(type) {
	case *models.Material:
		return "Material"
	default:
		return "Product"
	}
}
