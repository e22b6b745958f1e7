package settings

import (
	"bytes"
	"encoding/json"
	"strings"

	"go-pos-books/internal/tax"

	"github.com/shopspring/decimal"
)

// Number is a lenient JSON number: it accepts 7.5 or "7.5" and never fails
// to decode. Anything else leaves Valid false so the field is skipped.
type Number struct {
	Value decimal.Decimal
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if v, err := decimal.NewFromString(strings.TrimSpace(raw)); err == nil {
		n.Value, n.Valid = v, true
	}
	return nil
}

// Bands accepts either a JSON array of bands or a string holding one.
type Bands struct {
	Value []tax.Band
	Valid bool
}

func (bb *Bands) UnmarshalJSON(b []byte) error {
	*bb = Bands{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	var asString string
	if err := json.Unmarshal(b, &asString); err == nil {
		if strings.TrimSpace(asString) == "" {
			return nil
		}
		b = []byte(asString)
	}

	var bands []tax.Band
	if err := json.Unmarshal(b, &bands); err != nil || len(bands) == 0 {
		return nil
	}
	bb.Value, bb.Valid = tax.NormalizeBands(bands), true
	return nil
}

// UpdateRequest is the body of POST /reports/settings. Every field is optional.
type UpdateRequest struct {
	TaxRate              Number `json:"tax_rate"`
	VATRate              Number `json:"vat_rate"`
	PAYERate             Number `json:"paye_rate"`
	PAYEBrackets         Bands  `json:"paye_brackets_json"`
	WHTIndividualRate    Number `json:"wht_individual_rate"`
	WHTCompanyRate       Number `json:"wht_company_rate"`
	CITSmallTurnoverMax  Number `json:"cit_small_turnover_max"`
	CITMediumTurnoverMax Number `json:"cit_medium_turnover_max"`
	CITSmallRate         Number `json:"cit_small_rate"`
	CITMediumRate        Number `json:"cit_medium_rate"`
	CITLargeRate         Number `json:"cit_large_rate"`
	ReminderDaysBefore   Number `json:"tax_reminder_days_before"`
	VATDueDay            Number `json:"monthly_vat_due_day"`
	PAYEDueDay           Number `json:"monthly_paye_due_day"`
	WHTDueDay            Number `json:"monthly_wht_due_day"`
	AnnualReturnMonth    Number `json:"annual_tax_return_month"`
	AnnualReturnDay      Number `json:"annual_tax_return_day"`
	CITFYEndMonth        Number `json:"cit_fy_end_month"`
	CITFYEndDay          Number `json:"cit_fy_end_day"`
}

// ApplyTo returns cfg with the request's well-formed fields applied.
func (r UpdateRequest) ApplyTo(cfg tax.Config) tax.Config {
	vat := r.VATRate
	if !vat.Valid {
		vat = r.TaxRate
	}
	if vat.Valid {
		cfg.VATRate = tax.SanitizeVATRate(vat.Value)
	}

	if r.PAYEBrackets.Valid {
		cfg.PAYEBands = r.PAYEBrackets.Value
	}

	rate := func(n Number, dst *decimal.Decimal) {
		if n.Valid && !n.Value.IsNegative() && n.Value.LessThanOrEqual(decimal.NewFromInt(100)) {
			*dst = n.Value
		}
	}
	amount := func(n Number, dst *decimal.Decimal) {
		if n.Valid && !n.Value.IsNegative() {
			*dst = n.Value
		}
	}
	whole := func(n Number, lo, hi int64, dst *int) {
		if n.Valid && n.Value.IsInteger() && n.Value.IntPart() >= lo && n.Value.IntPart() <= hi {
			*dst = int(n.Value.IntPart())
		}
	}

	rate(r.PAYERate, &cfg.PAYERate)
	rate(r.WHTIndividualRate, &cfg.WHTIndividualRate)
	rate(r.WHTCompanyRate, &cfg.WHTCompanyRate)
	amount(r.CITSmallTurnoverMax, &cfg.CITSmallTurnoverMax)
	amount(r.CITMediumTurnoverMax, &cfg.CITMediumTurnoverMax)
	rate(r.CITSmallRate, &cfg.CITSmallRate)
	rate(r.CITMediumRate, &cfg.CITMediumRate)
	rate(r.CITLargeRate, &cfg.CITLargeRate)

	whole(r.ReminderDaysBefore, 0, 365, &cfg.ReminderDaysBefore)
	whole(r.VATDueDay, 1, 31, &cfg.VATDueDay)
	whole(r.PAYEDueDay, 1, 31, &cfg.PAYEDueDay)
	whole(r.WHTDueDay, 1, 31, &cfg.WHTDueDay)
	whole(r.AnnualReturnMonth, 1, 12, &cfg.AnnualReturnMonth)
	whole(r.AnnualReturnDay, 1, 31, &cfg.AnnualReturnDay)
	whole(r.CITFYEndMonth, 1, 12, &cfg.CITFYEndMonth)
	whole(r.CITFYEndDay, 1, 31, &cfg.CITFYEndDay)
	return cfg
}
