// Package tax is a single-jurisdiction estimator: VAT decomposition,
// progressive PAYE, tiered CIT and WHT suggestions. Every function is pure
// and takes the configuration snapshot explicitly.
package tax

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// DefaultVATRate is what a corrupt or out-of-range VAT rate resets to.
	DefaultVATRate = decimal.RequireFromString("7.5")
	maxVATRate     = decimal.NewFromInt(15)
)

// Band is one PAYE bracket. A nil UpTo is the unbounded top band.
type Band struct {
	UpTo *decimal.Decimal `json:"up_to"`
	Rate decimal.Decimal  `json:"rate"`
}

// Config is a versioned snapshot of the tax settings. Version increases on
// every write so callers can tell which snapshot produced a figure.
type Config struct {
	Version int64 `json:"version"`

	VATRate   decimal.Decimal `json:"vat_rate"`
	PAYERate  decimal.Decimal `json:"paye_rate"` // flat rate shown to users; estimates use the bands
	PAYEBands []Band          `json:"paye_bands"`

	WHTIndividualRate decimal.Decimal `json:"wht_individual_rate"`
	WHTCompanyRate    decimal.Decimal `json:"wht_company_rate"`

	CITSmallTurnoverMax  decimal.Decimal `json:"cit_small_turnover_max"`
	CITMediumTurnoverMax decimal.Decimal `json:"cit_medium_turnover_max"`
	CITSmallRate         decimal.Decimal `json:"cit_small_rate"`
	CITMediumRate        decimal.Decimal `json:"cit_medium_rate"`
	CITLargeRate         decimal.Decimal `json:"cit_large_rate"`

	ReminderDaysBefore int `json:"tax_reminder_days_before"`
	VATDueDay          int `json:"monthly_vat_due_day"`
	PAYEDueDay         int `json:"monthly_paye_due_day"`
	WHTDueDay          int `json:"monthly_wht_due_day"`
	AnnualReturnMonth  int `json:"annual_tax_return_month"`
	AnnualReturnDay    int `json:"annual_tax_return_day"`
	CITFYEndMonth      int `json:"cit_fy_end_month"`
	CITFYEndDay        int `json:"cit_fy_end_day"`
}

func DefaultBands() []Band {
	up := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	return []Band{
		{UpTo: up(800_000), Rate: decimal.Zero},
		{UpTo: up(3_000_000), Rate: decimal.NewFromInt(15)},
		{UpTo: up(12_000_000), Rate: decimal.NewFromInt(18)},
		{UpTo: up(25_000_000), Rate: decimal.NewFromInt(21)},
		{UpTo: up(50_000_000), Rate: decimal.NewFromInt(23)},
		{UpTo: nil, Rate: decimal.NewFromInt(25)},
	}
}

func DefaultConfig() Config {
	return Config{
		VATRate:              DefaultVATRate,
		PAYERate:             decimal.NewFromInt(10),
		PAYEBands:            DefaultBands(),
		WHTIndividualRate:    decimal.NewFromInt(5),
		WHTCompanyRate:       decimal.NewFromInt(10),
		CITSmallTurnoverMax:  decimal.NewFromInt(25_000_000),
		CITMediumTurnoverMax: decimal.NewFromInt(100_000_000),
		CITSmallRate:         decimal.Zero,
		CITMediumRate:        decimal.NewFromInt(20),
		CITLargeRate:         decimal.NewFromInt(30),
		ReminderDaysBefore:   7,
		VATDueDay:            21,
		PAYEDueDay:           10,
		WHTDueDay:            21,
		AnnualReturnMonth:    3,
		AnnualReturnDay:      31,
		CITFYEndMonth:        12,
		CITFYEndDay:          31,
	}
}

// SanitizeVATRate keeps rates in (0, 15] and resets anything else to the
// default, so an unrelated figure stored under the VAT key cannot leak
// into sales.
func SanitizeVATRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsPositive() && rate.LessThanOrEqual(maxVATRate) {
		return rate
	}
	return DefaultVATRate
}

// NormalizeBands orders bands ascending by upper bound with the unbounded
// band last, dropping negative rates. An empty result falls back to the
// default bands.
func NormalizeBands(bands []Band) []Band {
	out := make([]Band, 0, len(bands))
	for _, b := range bands {
		if b.Rate.IsNegative() {
			continue
		}
		if b.UpTo != nil && b.UpTo.IsNegative() {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return DefaultBands()
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].UpTo, out[j].UpTo
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.LessThan(*b)
		}
	})
	return out
}

// ParseBands decodes a JSON band list such as
// [{"up_to":800000,"rate":0},{"up_to":null,"rate":25}].
func ParseBands(raw string) ([]Band, error) {
	var bands []Band
	if err := json.Unmarshal([]byte(raw), &bands); err != nil {
		return nil, err
	}
	return NormalizeBands(bands), nil
}

func BandsJSON(bands []Band) string {
	b, err := json.Marshal(bands)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// ReminderLeadDays is the effective lead time; it is never below one day.
func (c Config) ReminderLeadDays() int {
	if c.ReminderDaysBefore < 1 {
		return 1
	}
	return c.ReminderDaysBefore
}
