package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAnnualPAYE(t *testing.T) {
	bands := DefaultBands()

	cases := []struct {
		name   string
		income string
		want   string
	}{
		{"zero income", "0", "0"},
		{"negative income", "-5000", "0"},
		{"inside the free band", "800000", "0"},
		{"second band", "2000000", "180000"},
		{"top of second band", "3000000", "330000"},
		// 330000 + 9000000*18% = 1950000
		{"top of third band", "12000000", "1950000"},
		// 25M: 1950000 + 13M*21% = 4680000; 50M: +25M*23% = 10430000; +10M*25%
		{"unbounded band", "60000000", "12930000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AnnualPAYE(d(tc.income), bands)
			assert.True(t, got.Equal(d(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestPAYEIsMonotonic(t *testing.T) {
	bands := DefaultBands()
	prev := AnnualPAYE(decimal.Zero, bands)
	require.True(t, prev.IsZero())

	for income := int64(0); income <= 80_000_000; income += 137_500 {
		got := AnnualPAYE(decimal.NewFromInt(income), bands)
		assert.True(t, got.GreaterThanOrEqual(prev), "PAYE dropped at %d", income)
		prev = got
	}
}

func TestPAYEWithoutUnboundedBandStopsAtLastCap(t *testing.T) {
	ten := d("1000")
	bands := []Band{{UpTo: &ten, Rate: d("10")}}

	assert.True(t, AnnualPAYE(d("5000"), bands).Equal(d("100")))
}

func TestPAYEForPeriod(t *testing.T) {
	bands := DefaultBands()

	// 2,000,000 a year paid monthly.
	monthly := PAYEForPeriod(d("166666.6666666667"), 12, bands)
	assert.True(t, monthly.Round(2).Equal(d("15000")), "got %s", monthly)

	assert.True(t, PAYEForPeriod(decimal.Zero, 12, bands).IsZero())
	assert.True(t, PAYEForPeriod(d("1000"), 0, bands).IsZero())
}

func TestNormalizeBands(t *testing.T) {
	a, b := d("3000000"), d("800000")
	got := NormalizeBands([]Band{
		{UpTo: nil, Rate: d("25")},
		{UpTo: &a, Rate: d("15")},
		{UpTo: &b, Rate: d("0")},
	})

	require.Len(t, got, 3)
	assert.True(t, got[0].UpTo.Equal(b))
	assert.True(t, got[1].UpTo.Equal(a))
	assert.Nil(t, got[2].UpTo)

	assert.Equal(t, DefaultBands(), NormalizeBands(nil))
}

func TestParseBands(t *testing.T) {
	bands, err := ParseBands(`[{"up_to":null,"rate":24},{"up_to":"1000000","rate":0}]`)
	require.NoError(t, err)
	require.Len(t, bands, 2)
	assert.True(t, bands[0].UpTo.Equal(d("1000000")))
	assert.Nil(t, bands[1].UpTo)

	_, err = ParseBands(`{not json`)
	assert.Error(t, err)

	bands, err = ParseBands(`[]`)
	require.NoError(t, err)
	assert.Equal(t, DefaultBands(), bands)
}

func TestCITRate(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		turnover string
		want     string
	}{
		{"20000000", "0"},
		{"25000000", "0"},
		{"25000001", "20"},
		{"100000000", "20"},
		{"150000000", "30"},
	}
	for _, tc := range cases {
		got := CITRate(d(tc.turnover), cfg)
		assert.True(t, got.Equal(d(tc.want)), "turnover %s: got %s", tc.turnover, got)
	}
}

func TestSmallCompanyOwesNoCIT(t *testing.T) {
	cfg := DefaultConfig()
	rate := CITRate(d("20000000"), cfg)

	assert.True(t, CIT(d("20000000"), d("5000000"), rate).IsZero())
	assert.True(t, CIT(d("1000"), d("3000"), d("30")).IsZero(), "losses are floored at zero")
	assert.True(t, CIT(d("3000"), d("1000"), d("30")).Equal(d("600")))
}

func TestSanitizeVATRate(t *testing.T) {
	assert.True(t, SanitizeVATRate(d("7.5")).Equal(d("7.5")))
	assert.True(t, SanitizeVATRate(d("15")).Equal(d("15")))
	assert.True(t, SanitizeVATRate(d("0")).Equal(DefaultVATRate))
	assert.True(t, SanitizeVATRate(d("-2")).Equal(DefaultVATRate))
	assert.True(t, SanitizeVATRate(d("30")).Equal(DefaultVATRate))
}

func TestSuggestWHT(t *testing.T) {
	cfg := DefaultConfig()

	s := SuggestWHT(d("10000"), "Company", cfg)
	assert.True(t, s.Rate.Equal(d("10")))
	assert.True(t, s.Amount.Equal(d("1000")))

	s = SuggestWHT(d("10000"), "individual", cfg)
	assert.True(t, s.Amount.Equal(d("500")))

	s = SuggestWHT(d("10000"), "", cfg)
	assert.True(t, s.Amount.IsZero())
}

func TestVATPosition(t *testing.T) {
	pos := ComputeVATPosition(d("150"), d("120"), d("100"))
	assert.True(t, pos.Payable.Equal(d("50")))
	assert.True(t, pos.Credit.IsZero())

	pos = ComputeVATPosition(d("50"), d("80"), d("80"))
	assert.True(t, pos.Payable.Equal(d("-30")))
	assert.True(t, pos.Credit.Equal(d("30")))
}

func TestSplitInclusive(t *testing.T) {
	net, vat := SplitInclusive(d("2150"), d("7.5"))
	assert.True(t, net.Equal(d("2000")))
	assert.True(t, vat.Equal(d("150")))

	net, vat = SplitInclusive(d("99.99"), d("7.5"))
	assert.True(t, net.Add(vat).Equal(d("99.99")))
	assert.True(t, AddVAT(d("1000"), d("7.5")).Equal(d("1075")))
}

func TestEstimate(t *testing.T) {
	cfg := DefaultConfig()
	est := Estimate(PeriodInputs{
		Revenue:           d("3000000"),
		Expenses:          d("1000000"),
		Payroll:           d("250000"),
		WHTAmount:         d("5000"),
		OutputVAT:         d("200000"),
		InputVATClaimable: d("50000"),
	}, d("36000000"), 12, cfg)

	// 3M x 12 = 36M turnover: medium tier.
	assert.True(t, est.CITRate.Equal(d("20")))
	assert.True(t, est.CITEstimate.Equal(d("400000")))
	assert.True(t, est.VATPayable.Equal(d("150000")))
	// 250000 x 12 = 3M a year: 330000 annual PAYE, 27500 a month.
	assert.True(t, est.PAYEEstimate.Equal(d("27500")))
	assert.True(t, est.PAYERate.Equal(d("11")))
	assert.True(t, est.TotalTaxEstimate.Equal(d("582500")))
}

func TestIsPayrollCategory(t *testing.T) {
	assert.True(t, IsPayrollCategory(" Salaries "))
	assert.True(t, IsPayrollCategory("STAFF"))
	assert.False(t, IsPayrollCategory("Rent"))
}
