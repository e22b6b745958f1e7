package sales

import (
	"strings"

	"go-pos-books/internal/models"
	"go-pos-books/internal/tax"

	"github.com/shopspring/decimal"
)

const (
	TierSafe     = "safe"
	TierStandard = "standard"
	TierPremium  = "premium"
)

// TierPrice resolves the unit price for a tier, falling back to the base
// selling price when the tier has no price of its own.
func TierPrice(p *models.Product, tier string) decimal.Decimal {
	var price *decimal.Decimal
	switch strings.ToLower(tier) {
	case TierSafe:
		price = p.SafePrice
	case TierPremium:
		price = p.PremiumPrice
	default:
		price = p.StandardPrice
	}
	if price == nil {
		return p.BaseSellingPrice
	}
	return *price
}

type PricedLine struct {
	Product   *models.Product
	PriceType string
	Quantity  int64
	UnitPrice decimal.Decimal // what the customer is charged per unit
	Subtotal  decimal.Decimal
}

type Totals struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	TaxRate          decimal.Decimal `json:"taxRate"`
	PricesIncludeVAT bool            `json:"prices_include_vat"`
}

type priceInput struct {
	product   *models.Product
	priceType string
	quantity  int64
}

// Price charges every line and totals the sale. In inclusive mode the tier
// price is grossed up by the VAT factor and the total is split back into
// net and VAT; otherwise VAT is added on top of the subtotal. TaxAmount is
// always TotalAmount - Subtotal.
func Price(lines []priceInput, rate decimal.Decimal, inclusive bool) ([]PricedLine, Totals) {
	priced := make([]PricedLine, 0, len(lines))
	gross := decimal.Zero

	for _, l := range lines {
		unit := TierPrice(l.product, l.priceType)
		if inclusive {
			unit = tax.AddVAT(unit, rate).Round(2)
		}
		lineTotal := unit.Mul(decimal.NewFromInt(l.quantity)).Round(2)

		priced = append(priced, PricedLine{
			Product:   l.product,
			PriceType: l.priceType,
			Quantity:  l.quantity,
			UnitPrice: unit,
			Subtotal:  lineTotal,
		})
		gross = gross.Add(lineTotal)
	}

	totals := Totals{TaxRate: rate, PricesIncludeVAT: inclusive}
	if inclusive {
		totals.TotalAmount = gross
		totals.Subtotal, _ = tax.SplitInclusive(gross, rate)
	} else {
		totals.Subtotal = gross
		totals.TotalAmount = tax.AddVAT(gross, rate).Round(2)
	}
	totals.TaxAmount = totals.TotalAmount.Sub(totals.Subtotal)
	return priced, totals
}
