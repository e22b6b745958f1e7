package inventory

import (
	"context"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/ledger"
	"go-pos-books/internal/models"

	"github.com/shopspring/decimal"
)

// Fallback tier multipliers on base cost when a product has no stored tier price.
var (
	costStandardMarkup = decimal.RequireFromString("1.25")
	costPremiumMarkup  = decimal.RequireFromString("1.5")
)

// Quick-estimate multipliers on base cost.
var (
	estimateSafe     = decimal.RequireFromString("1.1")
	estimateStandard = decimal.RequireFromString("1.35")
	estimatePremium  = decimal.RequireFromString("1.6")
	maxTargetMargin  = decimal.NewFromInt(95)
)

var hundred = decimal.NewFromInt(100)

type Ingredient struct {
	MaterialID       uint            `json:"material_id"`
	MaterialName     string          `json:"material_name"`
	Unit             string          `json:"unit"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	QuantityRequired decimal.Decimal `json:"quantity_required"`
}

type TierFigures struct {
	Safe     decimal.Decimal `json:"safe"`
	Standard decimal.Decimal `json:"standard"`
	Premium  decimal.Decimal `json:"premium"`
}

type ProductCost struct {
	ProductID      uint            `json:"product_id"`
	ProductName    string          `json:"product_name"`
	BaseCost       decimal.Decimal `json:"base_cost"`
	IngredientCost decimal.Decimal `json:"ingredient_cost"`
	Ingredients    []Ingredient    `json:"ingredients"`
	Pricing        TierFigures     `json:"pricing"`
	ProfitPerSale  TierFigures     `json:"profit_per_sale"`
}

// ProductCost prices a product from its recipe. Base cost is the
// ingredient cost, or the product's cost price when it has no recipe cost.
// Tiers without a stored price fall back to base cost x 1, 1.25 and 1.5.
func (s *Service) ProductCost(ctx context.Context, productID uint) (*ProductCost, error) {
	db := s.db.WithContext(ctx)

	var p models.Product
	if err := findEntity(db, &p, ledger.Product(productID)); err != nil {
		return nil, err
	}

	ingredients := []Ingredient{}
	err := db.Table("recipe_entries").
		Select("recipe_entries.material_id AS material_id, materials.name AS material_name, materials.unit AS unit, "+
			"materials.unit_cost AS unit_cost, recipe_entries.quantity_required AS quantity_required").
		Joins("JOIN materials ON materials.id = recipe_entries.material_id").
		Where("recipe_entries.product_id = ?", productID).
		Order("recipe_entries.id asc").
		Scan(&ingredients).Error
	if err != nil {
		return nil, s.fail("ProductCost", ledger.Product(productID), apperr.Internal("Failed to load recipe", err))
	}

	ingredientCost := decimal.Zero
	for _, in := range ingredients {
		ingredientCost = ingredientCost.Add(in.QuantityRequired.Mul(in.UnitCost))
	}
	base := p.CostPrice
	if ingredientCost.IsPositive() {
		base = ingredientCost
	}

	tier := func(stored *decimal.Decimal, markup decimal.Decimal) decimal.Decimal {
		if stored != nil {
			return *stored
		}
		return base.Mul(markup)
	}
	safe := tier(p.SafePrice, decimal.NewFromInt(1))
	standard := tier(p.StandardPrice, costStandardMarkup)
	premium := tier(p.PremiumPrice, costPremiumMarkup)

	return &ProductCost{
		ProductID:      p.ID,
		ProductName:    p.Name,
		BaseCost:       base.Round(2),
		IngredientCost: ingredientCost.Round(2),
		Ingredients:    ingredients,
		Pricing:        TierFigures{Safe: safe.Round(2), Standard: standard.Round(2), Premium: premium.Round(2)},
		ProfitPerSale: TierFigures{
			Safe:     safe.Sub(base).Round(2),
			Standard: standard.Sub(base).Round(2),
			Premium:  premium.Sub(base).Round(2),
		},
	}, nil
}

// EstimateRequest describes a one-off item to price. Negative inputs count
// as zero and the target margin is clamped to [0, 95].
type EstimateRequest struct {
	ItemType        string          `json:"item_type" binding:"omitempty,oneof=product service"`
	DirectCost      decimal.Decimal `json:"direct_cost"`
	Hours           decimal.Decimal `json:"hours"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	OperatingShare  decimal.Decimal `json:"operating_share"`
	RiskBufferPct   decimal.Decimal `json:"risk_buffer_pct"`
	TargetMarginPct decimal.Decimal `json:"target_margin_pct"`
}

type EstimateBreakdown struct {
	TimeCost    decimal.Decimal `json:"time_cost"`
	PreRiskCost decimal.Decimal `json:"pre_risk_cost"`
	RiskBuffer  decimal.Decimal `json:"risk_buffer"`
	BaseCost    decimal.Decimal `json:"base_cost"`
}

type EstimatePricing struct {
	TierFigures
	SuggestedByTargetMargin decimal.Decimal `json:"suggested_by_target_margin"`
}

type Estimate struct {
	ItemType  string            `json:"item_type"`
	Inputs    EstimateRequest   `json:"inputs"`
	Breakdown EstimateBreakdown `json:"breakdown"`
	Pricing   EstimatePricing   `json:"pricing"`
}

// QuickEstimate prices an item from direct cost, labour, an operating
// share and a risk buffer. It touches no stored data.
func QuickEstimate(req EstimateRequest) Estimate {
	in := EstimateRequest{
		ItemType:        req.ItemType,
		DirectCost:      decimal.Max(decimal.Zero, req.DirectCost),
		Hours:           decimal.Max(decimal.Zero, req.Hours),
		HourlyRate:      decimal.Max(decimal.Zero, req.HourlyRate),
		OperatingShare:  decimal.Max(decimal.Zero, req.OperatingShare),
		RiskBufferPct:   decimal.Max(decimal.Zero, req.RiskBufferPct),
		TargetMarginPct: decimal.Min(maxTargetMargin, decimal.Max(decimal.Zero, req.TargetMarginPct)),
	}
	if in.ItemType != "service" {
		in.ItemType = "product"
	}

	timeCost := in.Hours.Mul(in.HourlyRate)
	preRisk := in.DirectCost.Add(timeCost).Add(in.OperatingShare)
	risk := preRisk.Mul(in.RiskBufferPct).Div(hundred)
	base := preRisk.Add(risk)
	byMargin := base.Div(decimal.NewFromInt(1).Sub(in.TargetMarginPct.Div(hundred)))

	return Estimate{
		ItemType: in.ItemType,
		Inputs:   in,
		Breakdown: EstimateBreakdown{
			TimeCost:    timeCost.Round(2),
			PreRiskCost: preRisk.Round(2),
			RiskBuffer:  risk.Round(2),
			BaseCost:    base.Round(2),
		},
		Pricing: EstimatePricing{
			TierFigures: TierFigures{
				Safe:     base.Mul(estimateSafe).Round(2),
				Standard: base.Mul(estimateStandard).Round(2),
				Premium:  base.Mul(estimatePremium).Round(2),
			},
			SuggestedByTargetMargin: byMargin.Round(2),
		},
	}
}
