// Package reports turns committed sales, expenses and purchase orders into
// tax and financial figures. Every figure is computed against one tax
// configuration snapshot, whose version is echoed back.
package reports

import (
	"context"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/compliance"
	"go-pos-books/internal/config"
	"go-pos-books/internal/database"
	"go-pos-books/internal/tax"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultTaxReportMonths = 12
	maxTaxReportMonths     = 60
)

type ConfigSource interface {
	Load(ctx context.Context) (tax.Config, error)
}

type Service struct {
	db       *gorm.DB
	settings ConfigSource
	logger   *logrus.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, settings ConfigSource, logger *logrus.Logger) *Service {
	return &Service{db: db, settings: settings, logger: logger, now: time.Now}
}

// periodTotals gathers every aggregate one period needs.
type periodTotals struct {
	sales    database.SalesTotals
	expenses database.ExpenseTotals
	inputVAT database.InputVATTotals
}

func (t periodTotals) empty() bool {
	return t.sales.Orders == 0 && t.expenses.Total.IsZero() && t.expenses.WHT.IsZero() && t.inputVAT.Total.IsZero()
}

func (t periodTotals) inputs() tax.PeriodInputs {
	return tax.PeriodInputs{
		Revenue:           t.sales.Revenue,
		Expenses:          t.expenses.Total,
		Payroll:           t.expenses.Payroll,
		WHTAmount:         t.expenses.WHT,
		OutputVAT:         t.sales.OutputVAT,
		InputVATClaimable: t.inputVAT.Claimable,
	}
}

func (s *Service) totals(ctx context.Context, start, end time.Time) (periodTotals, error) {
	db := s.db.WithContext(ctx)
	var (
		out periodTotals
		err error
	)
	if out.sales, err = database.SumSales(db, start, end); err != nil {
		return out, apperr.Internal("Failed to total sales", err)
	}
	if out.expenses, err = database.SumExpenses(db, start, end, tax.PayrollCategories); err != nil {
		return out, apperr.Internal("Failed to total expenses", err)
	}
	if out.inputVAT, err = database.SumInputVAT(db, start, end); err != nil {
		return out, apperr.Internal("Failed to total input VAT", err)
	}
	return out, nil
}

// --- Tax report ---

type MonthRow struct {
	Month string `json:"month"` // YYYY-MM
	tax.PeriodEstimate
}

type TaxReport struct {
	ConfigVersion int64      `json:"config_version"`
	Months        []MonthRow `json:"months"`
}

// TaxReport estimates each of the last n months (current month included)
// that saw any activity, newest first. CIT tiers use revenue x 12 and PAYE
// annualizes over 12 periods.
func (s *Service) TaxReport(ctx context.Context, n int) (*TaxReport, error) {
	if n <= 0 {
		n = defaultTaxReportMonths
	}
	if n > maxTaxReportMonths {
		n = maxTaxReportMonths
	}
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	report := &TaxReport{ConfigVersion: cfg.Version, Months: []MonthRow{}}
	start := monthStart(s.now())
	for i := 0; i < n; i++ {
		end := start.AddDate(0, 1, 0)
		t, err := s.totals(ctx, start, end)
		if err != nil {
			return nil, s.fail("TaxReport", err)
		}
		if !t.empty() {
			annual := t.sales.Revenue.Mul(decimal.NewFromInt(12))
			report.Months = append(report.Months, MonthRow{
				Month:          start.Format("2006-01"),
				PeriodEstimate: tax.Estimate(t.inputs(), annual, 12, cfg),
			})
		}
		start = start.AddDate(0, -1, 0)
	}
	return report, nil
}

// --- VAT position ---

type VATPositionReport struct {
	Month         string `json:"month"`
	ConfigVersion int64  `json:"config_version"`
	tax.VATPosition
}

// VATPosition nets output VAT against input VAT for one month. An empty
// month means the current one.
func (s *Service) VATPosition(ctx context.Context, month string) (*VATPositionReport, error) {
	start := monthStart(s.now())
	if month != "" {
		m, err := time.ParseInLocation("2006-01", month, time.Local)
		if err != nil {
			return nil, apperr.Validation("month must be YYYY-MM")
		}
		start = m
	}
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	t, err := s.totals(ctx, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, s.fail("VATPosition", err)
	}
	pos := tax.ComputeVATPosition(t.sales.OutputVAT.Round(2), t.inputVAT.Total.Round(2), t.inputVAT.Claimable.Round(2))
	return &VATPositionReport{Month: start.Format("2006-01"), ConfigVersion: cfg.Version, VATPosition: pos}, nil
}

// --- Financial summary ---

type PeriodFigures struct {
	Revenue   decimal.Decimal `json:"revenue"`
	Expenses  decimal.Decimal `json:"expenses"`
	OutputVAT decimal.Decimal `json:"vat"`
	Payroll   decimal.Decimal `json:"payroll"`
	PAYE      decimal.Decimal `json:"paye_estimate"`
	CIT       decimal.Decimal `json:"cit_estimate"`
	WHT       decimal.Decimal `json:"wht"`
	Profit    decimal.Decimal `json:"profit"` // after every tax above
}

type FinancialSummary struct {
	ConfigVersion          int64           `json:"config_version"`
	VATRate                decimal.Decimal `json:"vat_rate"`
	CITRate                decimal.Decimal `json:"cit_rate"`
	AnnualTurnoverEstimate decimal.Decimal `json:"annual_turnover_estimate"`
	PAYEEffectiveRate      decimal.Decimal `json:"paye_rate"`
	WHTIndividualRate      decimal.Decimal `json:"wht_individual_rate"`
	WHTCompanyRate         decimal.Decimal `json:"wht_company_rate"`
	Today                  PeriodFigures   `json:"today"`
	Month                  PeriodFigures   `json:"month"`
	YTD                    PeriodFigures   `json:"ytd"`
}

// FinancialSummary reports today, month to date and year to date. The CIT
// tier comes from YTD revenue extrapolated to a full year.
func (s *Service) FinancialSummary(ctx context.Context) (*FinancialSummary, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := dayStart(now)
	tomorrow := today.AddDate(0, 0, 1)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	dayT, err := s.totals(ctx, today, tomorrow)
	if err != nil {
		return nil, s.fail("FinancialSummary", err)
	}
	monthT, err := s.totals(ctx, monthStart(now), tomorrow)
	if err != nil {
		return nil, s.fail("FinancialSummary", err)
	}
	ytdT, err := s.totals(ctx, yearStart, tomorrow)
	if err != nil {
		return nil, s.fail("FinancialSummary", err)
	}

	annual := AnnualTurnoverEstimate(ytdT.sales.Revenue, now)
	citRate := tax.CITRate(annual, cfg)
	month := figures(monthT, annual, 12, cfg)

	return &FinancialSummary{
		ConfigVersion:          cfg.Version,
		VATRate:                cfg.VATRate,
		CITRate:                citRate,
		AnnualTurnoverEstimate: annual.Round(2),
		PAYEEffectiveRate:      tax.EffectiveRate(month.PAYE, month.Payroll).Round(2),
		WHTIndividualRate:      cfg.WHTIndividualRate,
		WHTCompanyRate:         cfg.WHTCompanyRate,
		Today:                  figures(dayT, annual, 365, cfg),
		Month:                  month,
		YTD:                    figures(ytdT, annual, 1, cfg),
	}, nil
}

// AnnualTurnoverEstimate extrapolates year-to-date revenue over 365 days.
func AnnualTurnoverEstimate(ytdRevenue decimal.Decimal, now time.Time) decimal.Decimal {
	day := int64(max(1, now.YearDay()))
	return ytdRevenue.Div(decimal.NewFromInt(day)).Mul(decimal.NewFromInt(365))
}

func figures(t periodTotals, annual decimal.Decimal, periodsPerYear int, cfg tax.Config) PeriodFigures {
	est := tax.Estimate(t.inputs(), annual, periodsPerYear, cfg)
	profit := est.Revenue.Sub(est.Expenses).Sub(est.OutputVAT).Sub(est.CITEstimate).Sub(est.PAYEEstimate).Sub(est.WHTAmount)
	return PeriodFigures{
		Revenue:   est.Revenue,
		Expenses:  est.Expenses,
		OutputVAT: est.OutputVAT,
		Payroll:   est.Payroll,
		PAYE:      est.PAYEEstimate,
		CIT:       est.CITEstimate,
		WHT:       est.WHTAmount,
		Profit:    profit,
	}
}

// --- Compliance and WHT ---

type ComplianceReport struct {
	ConfigVersion int64 `json:"config_version"`
	compliance.Schedule
}

func (s *Service) ComplianceReminders(ctx context.Context) (*ComplianceReport, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &ComplianceReport{ConfigVersion: cfg.Version, Schedule: compliance.Reminders(cfg, s.now())}, nil
}

func (s *Service) WHTSuggestion(ctx context.Context, payeeType string, amount decimal.Decimal) (*tax.WHTSuggestion, error) {
	if amount.IsNegative() {
		return nil, apperr.Validation("amount cannot be negative")
	}
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	sug := tax.SuggestWHT(amount, payeeType, cfg)
	return &sug, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (s *Service) fail(funcName string, err error) error {
	if apperr.KindOf(err) == apperr.KindInternal {
		config.LogError(s.logger, "reports", funcName, "report query failed", nil, err)
	}
	return err
}
