package inventory

import (
	"context"
	"testing"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/auth"
	"go-pos-books/internal/database"
	"go-pos-books/internal/ledger"
	"go-pos-books/internal/models"
	"go-pos-books/internal/tax"
	"go-pos-books/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type staticConfig struct{ cfg tax.Config }

func (s staticConfig) Load(context.Context) (tax.Config, error) { return s.cfg, nil }

var manager = auth.Identity{ID: 1, Username: "boss", Role: models.RoleManager, BranchID: 1}

func newService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.NewDB(t)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewService(db, staticConfig{tax.DefaultConfig()}, logger), db
}

func TestRestock(t *testing.T) {
	s, db := newService(t)
	p := testutil.SeedProduct(t, db, "Bread", "800", 4)
	m := testutil.SeedMaterial(t, db, "Flour", "2", "1200")
	ctx := context.Background()

	entry, err := s.Restock(ctx, manager, ledger.Product(p.ID), MovementRequest{Quantity: decimal.NewFromInt(6)})
	require.NoError(t, err)
	assert.Equal(t, ledger.ChangeRestock, entry.ChangeType)
	assert.True(t, entry.QuantityAfter.Equal(decimal.NewFromInt(10)))

	entry, err = s.Restock(ctx, manager, ledger.Material(m.ID), MovementRequest{Quantity: testutil.Dec("0.75"), Note: "Market run"})
	require.NoError(t, err)
	assert.True(t, entry.QuantityAfter.Equal(testutil.Dec("2.75")))
	assert.Equal(t, "Market run", entry.Note)

	_, err = s.Restock(ctx, manager, ledger.Product(p.ID), MovementRequest{Quantity: decimal.Zero})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = s.Restock(ctx, manager, ledger.Product(p.ID), MovementRequest{Quantity: testutil.Dec("1.5")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = s.Restock(ctx, manager, ledger.Product(999), MovementRequest{Quantity: decimal.NewFromInt(1)})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAdjustToCountedQuantity(t *testing.T) {
	s, db := newService(t)
	p := testutil.SeedProduct(t, db, "Bread", "800", 10)
	ctx := context.Background()

	entry, err := s.Adjust(ctx, manager, ledger.Product(p.ID), AdjustRequest{Quantity: testutil.DecPtr("7")})
	require.NoError(t, err)
	assert.Equal(t, ledger.ChangeAdjustment, entry.ChangeType)
	assert.True(t, entry.QuantityChanged.Equal(decimal.NewFromInt(-3)))

	entry, err = s.Adjust(ctx, manager, ledger.Product(p.ID), AdjustRequest{Quantity: testutil.DecPtr("7")})
	require.NoError(t, err)
	assert.Nil(t, entry)

	_, err = s.Adjust(ctx, manager, ledger.Product(p.ID), AdjustRequest{Quantity: testutil.DecPtr("-1")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = s.Adjust(ctx, manager, ledger.Product(p.ID), AdjustRequest{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	view, err := s.Ledger(ctx, ledger.Product(p.ID))
	require.NoError(t, err)
	assert.Len(t, view.Entries, 1)
	assert.True(t, view.Consistency.OK)
}

func TestSpoilageBooksExpenseAtCost(t *testing.T) {
	s, db := newService(t)
	p := testutil.SeedProduct(t, db, "Bread", "800", 10) // cost 400
	m := testutil.SeedMaterial(t, db, "Milk", "5", "300")
	ctx := context.Background()

	res, err := s.Spoilage(ctx, manager, SpoilageRequest{Kind: "products", ID: p.ID, Quantity: decimal.NewFromInt(2), Reason: "stale"})
	require.NoError(t, err)
	assert.Equal(t, ledger.ChangeAdjustment, res.Entry.ChangeType)
	assert.Equal(t, "Spoilage: stale", res.Entry.Note)
	assert.Equal(t, SpoilageCategory, res.Expense.Category)
	assert.True(t, res.Expense.Amount.Equal(testutil.Dec("800")))

	res, err = s.Spoilage(ctx, manager, SpoilageRequest{Kind: "material", ID: m.ID, Quantity: testutil.Dec("1.5")})
	require.NoError(t, err)
	assert.Equal(t, ledger.ChangeSpoilage, res.Entry.ChangeType)
	assert.True(t, res.Expense.Amount.Equal(testutil.Dec("450")))

	_, err = s.Spoilage(ctx, manager, SpoilageRequest{Kind: "material", ID: m.ID, Quantity: testutil.Dec("10")})
	assert.True(t, apperr.Is(err, apperr.KindInsufficientIngredient))
	_, err = s.Spoilage(ctx, manager, SpoilageRequest{Kind: "gadget", ID: m.ID, Quantity: testutil.Dec("1")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	var expenses int64
	require.NoError(t, db.Model(&models.Expense{}).Count(&expenses).Error)
	assert.Equal(t, int64(2), expenses)
}

func TestReplaceRecipe(t *testing.T) {
	s, db := newService(t)
	p := testutil.SeedProduct(t, db, "Bread", "800", 10)
	flour := testutil.SeedMaterial(t, db, "Flour", "5", "1200")
	yeast := testutil.SeedMaterial(t, db, "Yeast", "1", "3000")
	testutil.SeedRecipe(t, db, p.ID, flour.ID, "0.5")
	ctx := context.Background()

	entries, err := s.ReplaceRecipe(ctx, p.ID, RecipeRequest{Items: []RecipeLine{
		{MaterialID: flour.ID, QuantityRequired: testutil.Dec("0.3")},
		{MaterialID: yeast.ID, QuantityRequired: testutil.Dec("0.01")},
	}})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	var stored []models.RecipeEntry
	require.NoError(t, db.Where("product_id = ?", p.ID).Order("material_id").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].QuantityRequired.Equal(testutil.Dec("0.3")))

	// an unknown material leaves the previous recipe in place
	_, err = s.ReplaceRecipe(ctx, p.ID, RecipeRequest{Items: []RecipeLine{{MaterialID: 404, QuantityRequired: testutil.Dec("1")}}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	require.NoError(t, db.Where("product_id = ?", p.ID).Find(&stored).Error)
	assert.Len(t, stored, 2)

	_, err = s.ReplaceRecipe(ctx, p.ID, RecipeRequest{Items: []RecipeLine{
		{MaterialID: flour.ID, QuantityRequired: testutil.Dec("1")},
		{MaterialID: flour.ID, QuantityRequired: testutil.Dec("2")},
	}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	entries, err = s.ReplaceRecipe(ctx, p.ID, RecipeRequest{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, db.Where("product_id = ?", p.ID).Find(&stored).Error)
	assert.Empty(t, stored)
}

func TestCreateExpenseSuggestsWHT(t *testing.T) {
	s, _ := newService(t)

	res, err := s.CreateExpense(context.Background(), manager, ExpenseRequest{
		Category:  "Consulting",
		Amount:    testutil.Dec("20000"),
		PayeeType: "company",
		WHTAmount: testutil.DecPtr("1500"),
		Date:      "2026-05-04",
	})
	require.NoError(t, err)
	assert.True(t, res.Expense.WHTAmount.Equal(testutil.Dec("1500")))
	assert.True(t, res.WHTSuggestion.Rate.Equal(decimal.NewFromInt(10)))
	assert.True(t, res.WHTSuggestion.Amount.Equal(testutil.Dec("2000")))

	_, err = s.CreateExpense(context.Background(), manager, ExpenseRequest{Category: "Rent", Amount: decimal.Zero})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = s.CreateExpense(context.Background(), manager, ExpenseRequest{Category: "Rent", Amount: testutil.Dec("10"), PayeeType: "friend"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = s.CreateExpense(context.Background(), manager, ExpenseRequest{Category: "Rent", Amount: testutil.Dec("10"), WHTAmount: testutil.DecPtr("11")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestPurchaseOrderLifecycle(t *testing.T) {
	s, db := newService(t)
	p := testutil.SeedProduct(t, db, "Soda", "300", 0)
	m := testutil.SeedMaterial(t, db, "Sugar", "0", "900")
	ctx := context.Background()

	po, err := s.CreatePurchaseOrder(ctx, manager, PORequest{
		SupplierName: "Dangote Depot",
		VATCharged:   true,
		Items: []POItemRequest{
			{ProductID: &p.ID, Quantity: decimal.NewFromInt(24), UnitCost: testutil.Dec("150")},
			{MaterialID: &m.ID, Quantity: testutil.Dec("2.5"), UnitCost: testutil.Dec("900")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.POStatusPending, po.Status)
	assert.True(t, po.TotalAmount.Equal(testutil.Dec("5850")))
	assert.True(t, po.VATRate.Equal(testutil.Dec("7.5")))
	assert.True(t, po.InputVATAmount.Equal(testutil.Dec("438.75")))
	assert.True(t, po.IsClaimableInputVAT)

	received, err := s.ReceivePurchaseOrder(ctx, manager, po.ID)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusReceived, received.Status)
	require.NotNil(t, received.ReceivedAt)

	var soda models.Product
	require.NoError(t, db.First(&soda, p.ID).Error)
	assert.Equal(t, int64(24), soda.Quantity)

	entries, err := ledger.Entries(db, ledger.Material(m.ID))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.ChangeRestock, entries[0].ChangeType)
	assert.Equal(t, po.ID, *entries[0].ReferenceID)

	_, err = s.ReceivePurchaseOrder(ctx, manager, po.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = s.CancelPurchaseOrder(ctx, po.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestPurchaseOrderValidationAndCancel(t *testing.T) {
	s, db := newService(t)
	p := testutil.SeedProduct(t, db, "Soda", "300", 0)
	ctx := context.Background()

	_, err := s.CreatePurchaseOrder(ctx, manager, PORequest{SupplierName: "X", Items: []POItemRequest{{Quantity: decimal.NewFromInt(1)}}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = s.CreatePurchaseOrder(ctx, manager, PORequest{SupplierName: "X", Items: []POItemRequest{{ProductID: &p.ID, Quantity: testutil.Dec("0.5")}}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	missing := uint(404)
	_, err = s.CreatePurchaseOrder(ctx, manager, PORequest{SupplierName: "X", Items: []POItemRequest{{ProductID: &missing, Quantity: decimal.NewFromInt(1)}}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	notClaimable := false
	po, err := s.CreatePurchaseOrder(ctx, manager, PORequest{
		SupplierName:        "Corner Shop",
		VATCharged:          true,
		VATRate:             testutil.DecPtr("5"),
		IsClaimableInputVAT: &notClaimable,
		Items:               []POItemRequest{{ProductID: &p.ID, Quantity: decimal.NewFromInt(10), UnitCost: testutil.Dec("100")}},
	})
	require.NoError(t, err)
	assert.True(t, po.InputVATAmount.Equal(testutil.Dec("50")))
	assert.False(t, po.IsClaimableInputVAT)

	cancelled, err := s.CancelPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusCancelled, cancelled.Status)

	orders, err := s.PurchaseOrders(ctx, models.POStatusCancelled)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 1)

	_, err = s.ReceivePurchaseOrder(ctx, manager, po.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	var soda models.Product
	require.NoError(t, db.First(&soda, p.ID).Error)
	assert.Zero(t, soda.Quantity)
}

func TestReceiveRollsBackOnFailure(t *testing.T) {
	s, db := newService(t)
	p := testutil.SeedProduct(t, db, "Soda", "300", 0)
	m := testutil.SeedMaterial(t, db, "Sugar", "0", "900")
	ctx := context.Background()

	po, err := s.CreatePurchaseOrder(ctx, manager, PORequest{
		SupplierName: "Depot",
		Items: []POItemRequest{
			{ProductID: &p.ID, Quantity: decimal.NewFromInt(5), UnitCost: testutil.Dec("100")},
			{MaterialID: &m.ID, Quantity: decimal.NewFromInt(1), UnitCost: testutil.Dec("100")},
		},
	})
	require.NoError(t, err)

	// Material vanishes after the order was placed.
	require.NoError(t, database.InTx(ctx, db, func(tx *gorm.DB) error {
		return tx.Delete(&models.Material{}, m.ID).Error
	}))

	_, err = s.ReceivePurchaseOrder(ctx, manager, po.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	var soda models.Product
	require.NoError(t, db.First(&soda, p.ID).Error)
	assert.Zero(t, soda.Quantity)

	var reloaded models.PurchaseOrder
	require.NoError(t, db.First(&reloaded, po.ID).Error)
	assert.Equal(t, models.POStatusPending, reloaded.Status)
}

func TestSpoilageIsLogged(t *testing.T) {
	s, db := newService(t)
	p := testutil.SeedProduct(t, db, "Bread", "800", 10)
	m := testutil.SeedMaterial(t, db, "Milk", "5", "300")
	ctx := context.Background()

	first, err := s.Spoilage(ctx, manager, SpoilageRequest{Kind: "product", ID: p.ID, Quantity: decimal.NewFromInt(1), Reason: "dropped"})
	require.NoError(t, err)
	require.NotNil(t, first.Log)
	assert.Equal(t, first.Entry.ID, first.Log.LedgerEntryID)
	assert.Equal(t, first.Expense.ID, first.Log.ExpenseID)
	assert.True(t, first.Log.EstimatedLoss.Equal(testutil.Dec("400")))

	_, err = s.Spoilage(ctx, manager, SpoilageRequest{Kind: "material", ID: m.ID, Quantity: testutil.Dec("0.5")})
	require.NoError(t, err)
	_, err = s.Spoilage(ctx, manager, SpoilageRequest{Kind: "material", ID: m.ID, Quantity: testutil.Dec("50")})
	require.Error(t, err)

	logs, err := s.SpoilageLog(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "material", logs[0].ItemType)
	assert.Equal(t, "Milk", logs[0].ItemName)
	assert.Equal(t, "product", logs[1].ItemType)
	assert.Equal(t, "dropped", logs[1].Reason)
}

func TestProductCost(t *testing.T) {
	s, db := newService(t)
	bread := testutil.SeedProduct(t, db, "Bread", "800", 10) // cost 400
	plain := testutil.SeedProduct(t, db, "Water", "200", 10) // cost 100
	flour := testutil.SeedMaterial(t, db, "Flour", "5", "1200")
	yeast := testutil.SeedMaterial(t, db, "Yeast", "1", "50")
	testutil.SeedRecipe(t, db, bread.ID, flour.ID, "0.25")
	testutil.SeedRecipe(t, db, bread.ID, yeast.ID, "2")
	require.NoError(t, db.Model(bread).Update("premium_price", testutil.Dec("900")).Error)

	cost, err := s.ProductCost(context.Background(), bread.ID)
	require.NoError(t, err)
	require.Len(t, cost.Ingredients, 2)
	assert.Equal(t, "Flour", cost.Ingredients[0].MaterialName)
	assert.Equal(t, "kg", cost.Ingredients[0].Unit)
	assert.True(t, cost.IngredientCost.Equal(testutil.Dec("400")))
	assert.True(t, cost.BaseCost.Equal(testutil.Dec("400")))
	assert.True(t, cost.Pricing.Safe.Equal(testutil.Dec("400")))
	assert.True(t, cost.Pricing.Standard.Equal(testutil.Dec("500")))
	assert.True(t, cost.Pricing.Premium.Equal(testutil.Dec("900")))
	assert.True(t, cost.ProfitPerSale.Premium.Equal(testutil.Dec("500")))

	cost, err = s.ProductCost(context.Background(), plain.ID)
	require.NoError(t, err)
	assert.Empty(t, cost.Ingredients)
	assert.True(t, cost.BaseCost.Equal(testutil.Dec("100")))
	assert.True(t, cost.Pricing.Premium.Equal(testutil.Dec("150")))

	_, err = s.ProductCost(context.Background(), 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestQuickEstimate(t *testing.T) {
	est := QuickEstimate(EstimateRequest{
		DirectCost:      testutil.Dec("1000"),
		Hours:           testutil.Dec("2"),
		HourlyRate:      testutil.Dec("500"),
		OperatingShare:  testutil.Dec("500"),
		RiskBufferPct:   testutil.Dec("10"),
		TargetMarginPct: testutil.Dec("20"),
	})
	assert.Equal(t, "product", est.ItemType)
	assert.True(t, est.Breakdown.TimeCost.Equal(testutil.Dec("1000")))
	assert.True(t, est.Breakdown.PreRiskCost.Equal(testutil.Dec("2500")))
	assert.True(t, est.Breakdown.RiskBuffer.Equal(testutil.Dec("250")))
	assert.True(t, est.Breakdown.BaseCost.Equal(testutil.Dec("2750")))
	assert.True(t, est.Pricing.Safe.Equal(testutil.Dec("3025")))
	assert.True(t, est.Pricing.Standard.Equal(testutil.Dec("3712.5")))
	assert.True(t, est.Pricing.Premium.Equal(testutil.Dec("4400")))
	assert.True(t, est.Pricing.SuggestedByTargetMargin.Equal(testutil.Dec("3437.5")))

	est = QuickEstimate(EstimateRequest{ItemType: "service", DirectCost: testutil.Dec("-5"), TargetMarginPct: testutil.Dec("120"), OperatingShare: testutil.Dec("10")})
	assert.Equal(t, "service", est.ItemType)
	assert.True(t, est.Inputs.DirectCost.IsZero())
	assert.True(t, est.Inputs.TargetMarginPct.Equal(testutil.Dec("95")))
	assert.True(t, est.Pricing.SuggestedByTargetMargin.Equal(testutil.Dec("200")))
}

func TestInputVATSummary(t *testing.T) {
	s, db := newService(t)
	s.now = func() time.Time { return time.Date(2026, time.May, 20, 12, 0, 0, 0, time.Local) }
	may := time.Date(2026, time.May, 3, 10, 0, 0, 0, time.Local).UTC()
	april := time.Date(2026, time.April, 28, 10, 0, 0, 0, time.Local).UTC()

	orders := []models.PurchaseOrder{
		{SupplierName: "A", Status: models.POStatusReceived, VATCharged: true, InputVATAmount: testutil.Dec("100"), IsClaimableInputVAT: true, CreatedAt: may},
		{SupplierName: "B", Status: models.POStatusPending, VATCharged: true, InputVATAmount: testutil.Dec("40"), CreatedAt: may},
		{SupplierName: "C", Status: models.POStatusCancelled, VATCharged: true, InputVATAmount: testutil.Dec("500"), IsClaimableInputVAT: true, CreatedAt: may},
		{SupplierName: "D", Status: models.POStatusPending, CreatedAt: may},
		{SupplierName: "E", Status: models.POStatusReceived, VATCharged: true, InputVATAmount: testutil.Dec("70"), IsClaimableInputVAT: true, CreatedAt: april},
	}
	require.NoError(t, db.Create(&orders).Error)

	sum, err := s.InputVATSummary(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2026-05", sum.Month)
	assert.Len(t, sum.Orders, 2)
	assert.True(t, sum.Total.Equal(testutil.Dec("140")))
	assert.True(t, sum.Claimable.Equal(testutil.Dec("100")))
	assert.True(t, sum.NonClaimable.Equal(testutil.Dec("40")))

	sum, err = s.InputVATSummary(context.Background(), "2026-04")
	require.NoError(t, err)
	assert.True(t, sum.Claimable.Equal(testutil.Dec("70")))

	_, err = s.InputVATSummary(context.Background(), "04/2026")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
