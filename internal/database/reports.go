package database

import (
	"time"

	"go-pos-books/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesTotals aggregates transactions in [start, end).
type SalesTotals struct {
	Revenue   decimal.Decimal // VAT-inclusive totals
	Subtotal  decimal.Decimal
	OutputVAT decimal.Decimal
	Orders    int64
}

// ExpenseTotals aggregates expenses in [start, end).
type ExpenseTotals struct {
	Total   decimal.Decimal
	Payroll decimal.Decimal
	WHT     decimal.Decimal
}

// InputVATTotals aggregates VAT on non-cancelled purchase orders in [start, end).
type InputVATTotals struct {
	Total     decimal.Decimal
	Claimable decimal.Decimal
}

// sumScale matches the decimal(20,4) columns. SQLite adds them as floating
// point, so sums are rounded back to the stored scale.
const sumScale = 4

// SalesReportResult holds the data the assistant and the sales report need
type SalesReportResult struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalCount   int64           `json:"total_count"`
}

func SumSales(db *gorm.DB, start, end time.Time) (SalesTotals, error) {
	var row struct {
		Revenue   decimal.Decimal
		Subtotal  decimal.Decimal
		OutputVAT decimal.Decimal `gorm:"column:output_vat"`
		Orders    int64
	}
	// COALESCE ensures we get 0 instead of NULL if no sales exist
	err := db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(total_amount), 0) AS revenue, COALESCE(SUM(subtotal), 0) AS subtotal, "+
			"COALESCE(SUM(tax_amount), 0) AS output_vat, COUNT(*) AS orders").
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
		Scan(&row).Error
	if err != nil {
		return SalesTotals{}, err
	}
	return SalesTotals{
		Revenue:   row.Revenue.Round(sumScale),
		Subtotal:  row.Subtotal.Round(sumScale),
		OutputVAT: row.OutputVAT.Round(sumScale),
		Orders:    row.Orders,
	}, nil
}

// SumExpenses totals expenses; rows whose lower-cased category is in
// payrollCategories also count towards Payroll.
func SumExpenses(db *gorm.DB, start, end time.Time, payrollCategories []string) (ExpenseTotals, error) {
	var out ExpenseTotals
	var row struct {
		Total decimal.Decimal
		WHT   decimal.Decimal `gorm:"column:wht"`
	}
	err := db.Model(&models.Expense{}).
		Select("COALESCE(SUM(amount), 0) AS total, COALESCE(SUM(wht_amount), 0) AS wht").
		Where("date >= ? AND date < ?", start.UTC(), end.UTC()).
		Scan(&row).Error
	if err != nil {
		return out, err
	}
	out.Total, out.WHT = row.Total.Round(sumScale), row.WHT.Round(sumScale)

	if len(payrollCategories) == 0 {
		return out, nil
	}
	var payroll struct{ Total decimal.Decimal }
	err = db.Model(&models.Expense{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("date >= ? AND date < ?", start.UTC(), end.UTC()).
		Where("LOWER(category) IN ?", payrollCategories).
		Scan(&payroll).Error
	if err != nil {
		return out, err
	}
	out.Payroll = payroll.Total.Round(sumScale)
	return out, nil
}

func SumInputVAT(db *gorm.DB, start, end time.Time) (InputVATTotals, error) {
	var row struct {
		Total     decimal.Decimal
		Claimable decimal.Decimal
	}
	err := db.Model(&models.PurchaseOrder{}).
		Select("COALESCE(SUM(input_vat_amount), 0) AS total, "+
			"COALESCE(SUM(CASE WHEN is_claimable_input_vat = ? THEN input_vat_amount ELSE 0 END), 0) AS claimable", true).
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
		Where("vat_charged = ? AND status <> ?", true, models.POStatusCancelled).
		Scan(&row).Error
	if err != nil {
		return InputVATTotals{}, err
	}
	return InputVATTotals{Total: row.Total.Round(sumScale), Claimable: row.Claimable.Round(sumScale)}, nil
}
