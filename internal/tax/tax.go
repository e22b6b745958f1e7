package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PayrollCategories are the expense categories treated as payroll for PAYE.
var PayrollCategories = []string{"salary", "salaries", "wage", "wages", "payroll", "staff"}

func IsPayrollCategory(category string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, p := range PayrollCategories {
		if c == p {
			return true
		}
	}
	return false
}

// AnnualPAYE walks the bands cumulatively, taxing the slice of income in
// [previous bound, bound) at each band's rate. Income past the last bounded
// band is untaxed unless an unbounded band exists.
func AnnualPAYE(annualIncome decimal.Decimal, bands []Band) decimal.Decimal {
	remaining := decimal.Max(decimal.Zero, annualIncome)
	previousCap := decimal.Zero
	tax := decimal.Zero

	for _, band := range bands {
		if !remaining.IsPositive() {
			break
		}
		if band.UpTo == nil {
			tax = tax.Add(remaining.Mul(band.Rate).Div(hundred))
			break
		}

		width := decimal.Max(decimal.Zero, band.UpTo.Sub(previousCap))
		taxable := decimal.Min(remaining, width)
		tax = tax.Add(taxable.Mul(band.Rate).Div(hundred))
		remaining = remaining.Sub(taxable)
		if band.UpTo.GreaterThan(previousCap) {
			previousCap = *band.UpTo
		}
	}
	return tax
}

// PAYEForPeriod annualizes periodPayroll, taxes it and spreads the annual
// tax back over the period.
func PAYEForPeriod(periodPayroll decimal.Decimal, periodsPerYear int, bands []Band) decimal.Decimal {
	if !periodPayroll.IsPositive() || periodsPerYear <= 0 {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(periodsPerYear))
	return AnnualPAYE(periodPayroll.Mul(n), bands).Div(n)
}

// EffectiveRate returns part as a percentage of whole, 0 when whole is not positive.
func EffectiveRate(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// CITRate picks the flat rate for an annualized turnover estimate.
func CITRate(annualTurnover decimal.Decimal, cfg Config) decimal.Decimal {
	switch {
	case annualTurnover.LessThanOrEqual(cfg.CITSmallTurnoverMax):
		return cfg.CITSmallRate
	case annualTurnover.LessThanOrEqual(cfg.CITMediumTurnoverMax):
		return cfg.CITMediumRate
	default:
		return cfg.CITLargeRate
	}
}

// CIT applies rate to the period's profit, floored at zero.
func CIT(revenue, expenses, rate decimal.Decimal) decimal.Decimal {
	profit := decimal.Max(decimal.Zero, revenue.Sub(expenses))
	return profit.Mul(rate).Div(hundred)
}

const (
	PayeeIndividual = "individual"
	PayeeCompany    = "company"
)

// WHTRate is the suggested withholding rate for a payee type; unknown
// types get zero.
func WHTRate(payeeType string, cfg Config) decimal.Decimal {
	switch strings.ToLower(strings.TrimSpace(payeeType)) {
	case PayeeIndividual:
		return cfg.WHTIndividualRate
	case PayeeCompany:
		return cfg.WHTCompanyRate
	}
	return decimal.Zero
}

type WHTSuggestion struct {
	PayeeType string          `json:"payee_type"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
}

func SuggestWHT(amount decimal.Decimal, payeeType string, cfg Config) WHTSuggestion {
	rate := WHTRate(payeeType, cfg)
	return WHTSuggestion{
		PayeeType: payeeType,
		Rate:      rate,
		Amount:    decimal.Max(decimal.Zero, amount).Mul(rate).Div(hundred).Round(2),
	}
}

type VATPosition struct {
	OutputVAT         decimal.Decimal `json:"output_vat"`
	InputVATTotal     decimal.Decimal `json:"input_vat_total"`
	InputVATClaimable decimal.Decimal `json:"input_vat_claimable"`
	Payable           decimal.Decimal `json:"vat_payable"` // negative when input exceeds output
	Credit            decimal.Decimal `json:"vat_credit"`
}

func ComputeVATPosition(output, inputTotal, inputClaimable decimal.Decimal) VATPosition {
	net := output.Sub(inputClaimable)
	credit := decimal.Zero
	if net.IsNegative() {
		credit = net.Abs()
	}
	return VATPosition{
		OutputVAT:         output,
		InputVATTotal:     inputTotal,
		InputVATClaimable: inputClaimable,
		Payable:           net,
		Credit:            credit,
	}
}

// InputVAT is rate percent of a purchase total.
func InputVAT(total, rate decimal.Decimal) decimal.Decimal {
	return total.Mul(rate).Div(hundred).Round(2)
}

// Factor is 1 + rate/100.
func Factor(rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(rate.Div(hundred))
}

// AddVAT grosses a VAT-exclusive amount up to its inclusive value.
func AddVAT(exclusive, rate decimal.Decimal) decimal.Decimal {
	return exclusive.Mul(Factor(rate))
}

// SplitInclusive separates a VAT-inclusive amount into its net and VAT parts.
// net + vat == inclusive exactly.
func SplitInclusive(inclusive, rate decimal.Decimal) (net, vat decimal.Decimal) {
	net = inclusive.Div(Factor(rate)).Round(2)
	return net, inclusive.Sub(net)
}

// PeriodEstimate is the tax picture for one reporting period.
type PeriodEstimate struct {
	Revenue           decimal.Decimal `json:"revenue"`
	Expenses          decimal.Decimal `json:"expenses"`
	Payroll           decimal.Decimal `json:"payroll"`
	WHTAmount         decimal.Decimal `json:"wht_amount"`
	VATRate           decimal.Decimal `json:"vat_rate"`
	OutputVAT         decimal.Decimal `json:"output_vat"`
	InputVATClaimable decimal.Decimal `json:"input_vat_claimable"`
	VATPayable        decimal.Decimal `json:"vat_payable"`
	CITRate           decimal.Decimal `json:"cit_rate"`
	CITEstimate       decimal.Decimal `json:"cit_estimate"`
	PAYERate          decimal.Decimal `json:"paye_rate"` // effective
	PAYEEstimate      decimal.Decimal `json:"paye_estimate"`
	TotalTaxEstimate  decimal.Decimal `json:"total_tax_estimate"`
}

// PeriodInputs are the committed aggregates for one period.
type PeriodInputs struct {
	Revenue           decimal.Decimal
	Expenses          decimal.Decimal
	Payroll           decimal.Decimal
	WHTAmount         decimal.Decimal
	OutputVAT         decimal.Decimal
	InputVATClaimable decimal.Decimal
}

// Estimate computes the full estimate for a period. annualTurnover selects
// the CIT tier; periodsPerYear annualizes payroll for PAYE.
func Estimate(in PeriodInputs, annualTurnover decimal.Decimal, periodsPerYear int, cfg Config) PeriodEstimate {
	vatPayable := in.OutputVAT.Sub(in.InputVATClaimable)
	citRate := CITRate(annualTurnover, cfg)
	cit := CIT(in.Revenue, in.Expenses, citRate)
	paye := PAYEForPeriod(in.Payroll, periodsPerYear, cfg.PAYEBands)

	return PeriodEstimate{
		Revenue:           in.Revenue.Round(2),
		Expenses:          in.Expenses.Round(2),
		Payroll:           in.Payroll.Round(2),
		WHTAmount:         in.WHTAmount.Round(2),
		VATRate:           cfg.VATRate,
		OutputVAT:         in.OutputVAT.Round(2),
		InputVATClaimable: in.InputVATClaimable.Round(2),
		VATPayable:        vatPayable.Round(2),
		CITRate:           citRate,
		CITEstimate:       cit.Round(2),
		PAYERate:          EffectiveRate(paye, in.Payroll).Round(2),
		PAYEEstimate:      paye.Round(2),
		TotalTaxEstimate:  vatPayable.Add(cit).Add(paye).Add(in.WHTAmount).Round(2),
	}
}
