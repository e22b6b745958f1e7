package reports

import (
	"context"
	"sort"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/auth"
	"go-pos-books/internal/models"

	"github.com/shopspring/decimal"
)

const (
	dashboardListLimit = 5
	profitReportDays   = 30
	fastMovingDays     = 30
	salesChartDays     = 7
)

type RevenueFigures struct {
	Today decimal.Decimal `json:"today"`
	Week  decimal.Decimal `json:"week"`
	Month decimal.Decimal `json:"month"`
}

type ExpenseFigures struct {
	Today decimal.Decimal `json:"today"`
	Month decimal.Decimal `json:"month"`
}

type TransactionCounts struct {
	Today int64 `json:"today"`
	Total int64 `json:"total"`
}

type InventoryHealth struct {
	Total          int64 `json:"total"`
	LowStock       int64 `json:"lowStock"`
	OutOfStock     int64 `json:"outOfStock"`
	StockHealthPct int64 `json:"stockHealthPct"`
}

type FastMover struct {
	ProductID    uint   `json:"product_id"`
	ProductName  string `json:"product_name"`
	QuantitySold int64  `json:"quantity_sold"`
}

type StockWatch struct {
	FinishingSoon      []models.Product `json:"finishingSoon"`
	OutOfStockProducts []models.Product `json:"outOfStockProducts"`
	FastMoving         []FastMover      `json:"fastMoving"`
}

// Dashboard is the back-office landing page: the financial summary plus
// sales activity and stock health.
type Dashboard struct {
	*FinancialSummary
	Revenue            RevenueFigures       `json:"revenue"`
	Expenses           ExpenseFigures       `json:"expenses"`
	Transactions       TransactionCounts    `json:"transactions"`
	Inventory          InventoryHealth      `json:"inventory"`
	Status             StockWatch           `json:"status"`
	RecentTransactions []models.Transaction `json:"recentTransactions"`
	Compliance         *ComplianceReport    `json:"compliance"`
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	summary, err := s.FinancialSummary(ctx)
	if err != nil {
		return nil, err
	}
	compliance, err := s.ComplianceReminders(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := dayStart(now)
	tomorrow := today.AddDate(0, 0, 1)
	weekT, err := s.totals(ctx, today.AddDate(0, 0, -6), tomorrow)
	if err != nil {
		return nil, s.fail("Dashboard", err)
	}

	out := &Dashboard{
		FinancialSummary: summary,
		Revenue:          RevenueFigures{Today: summary.Today.Revenue, Week: weekT.sales.Revenue, Month: summary.Month.Revenue},
		Expenses:         ExpenseFigures{Today: summary.Today.Expenses, Month: summary.Month.Expenses},
		Compliance:       compliance,
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Transaction{}).
		Where("created_at >= ? AND created_at < ?", today.UTC(), tomorrow.UTC()).
		Count(&out.Transactions.Today).Error; err != nil {
		return nil, s.fail("Dashboard", apperr.Internal("Failed to count transactions", err))
	}
	if err := db.Model(&models.Transaction{}).Count(&out.Transactions.Total).Error; err != nil {
		return nil, s.fail("Dashboard", apperr.Internal("Failed to count transactions", err))
	}

	var products []models.Product
	if err := db.Order("quantity asc, name asc").Find(&products).Error; err != nil {
		return nil, s.fail("Dashboard", apperr.Internal("Failed to fetch products", err))
	}
	out.Status = StockWatch{FinishingSoon: []models.Product{}, OutOfStockProducts: []models.Product{}}
	var healthy int64
	for _, p := range products {
		switch StockStatus(p.Quantity, p.MinThreshold) {
		case StockOut:
			out.Inventory.OutOfStock++
			if len(out.Status.OutOfStockProducts) < dashboardListLimit {
				out.Status.OutOfStockProducts = append(out.Status.OutOfStockProducts, p)
			}
		case StockLow:
			out.Inventory.LowStock++
			if len(out.Status.FinishingSoon) < dashboardListLimit {
				out.Status.FinishingSoon = append(out.Status.FinishingSoon, p)
			}
		default:
			healthy++
		}
	}
	out.Inventory.Total = int64(len(products))
	if out.Inventory.Total > 0 {
		out.Inventory.StockHealthPct = decimal.NewFromInt(healthy * 100).
			Div(decimal.NewFromInt(out.Inventory.Total)).Round(0).IntPart()
	}

	out.Status.FastMoving = []FastMover{}
	err = db.Table("transaction_items").
		Select("transaction_items.product_id AS product_id, transaction_items.product_name AS product_name, "+
			"SUM(transaction_items.quantity) AS quantity_sold").
		Joins("JOIN transactions ON transactions.id = transaction_items.transaction_id").
		Where("transactions.created_at >= ?", today.AddDate(0, 0, -fastMovingDays).UTC()).
		Group("transaction_items.product_id, transaction_items.product_name").
		Order("quantity_sold desc").
		Limit(dashboardListLimit).
		Scan(&out.Status.FastMoving).Error
	if err != nil {
		return nil, s.fail("Dashboard", apperr.Internal("Failed to fetch fast movers", err))
	}

	out.RecentTransactions = []models.Transaction{}
	if err := db.Order("created_at desc, id desc").Limit(dashboardListLimit).Find(&out.RecentTransactions).Error; err != nil {
		return nil, s.fail("Dashboard", apperr.Internal("Failed to fetch recent transactions", err))
	}
	return out, nil
}

type DayTotal struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// SalesChart returns revenue for each of the last seven days that had
// sales, oldest first.
func (s *Service) SalesChart(ctx context.Context) ([]DayTotal, error) {
	today := dayStart(s.now())
	txns, err := s.transactionsSince(ctx, today.AddDate(0, 0, -(salesChartDays - 1)))
	if err != nil {
		return nil, s.fail("SalesChart", err)
	}

	byDay := map[string]decimal.Decimal{}
	for _, t := range txns {
		day := s.localDay(t.CreatedAt)
		byDay[day] = byDay[day].Add(t.TotalAmount)
	}
	out := make([]DayTotal, 0, len(byDay))
	for day, total := range byDay {
		out = append(out, DayTotal{Date: day, Total: total.Round(2)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type AttendantTally struct {
	AttendantName string          `json:"attendant_name"`
	Transactions  int64           `json:"transactions"`
	Revenue       decimal.Decimal `json:"revenue"`
}

// AttendantPerformance tallies today's sales per attendant. Attendants
// only see their own line.
func (s *Service) AttendantPerformance(ctx context.Context, actor auth.Identity) ([]AttendantTally, error) {
	today := dayStart(s.now())
	q := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", today.UTC(), today.AddDate(0, 0, 1).UTC()).
		Order("id asc")
	if actor.IsAttendant() {
		q = q.Where("attendant_id = ?", actor.ID)
	}
	var txns []models.Transaction
	if err := q.Find(&txns).Error; err != nil {
		return nil, s.fail("AttendantPerformance", apperr.Internal("Failed to fetch transactions", err))
	}

	out := []AttendantTally{}
	index := map[string]int{}
	for _, t := range txns {
		i, ok := index[t.AttendantName]
		if !ok {
			i = len(out)
			index[t.AttendantName] = i
			out = append(out, AttendantTally{AttendantName: t.AttendantName})
		}
		out[i].Transactions++
		out[i].Revenue = out[i].Revenue.Add(t.TotalAmount)
	}
	for i := range out {
		out[i].Revenue = out[i].Revenue.Round(2)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue.GreaterThan(out[j].Revenue) })
	return out, nil
}

type ProfitDay struct {
	Day      string          `json:"day"`
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Tax      decimal.Decimal `json:"tax"`
	Profit   decimal.Decimal `json:"profit"`
}

// ProfitReport returns the 30 most recent days with sales or expenses,
// oldest first. Tax is the output VAT actually charged that day.
func (s *Service) ProfitReport(ctx context.Context) ([]ProfitDay, error) {
	db := s.db.WithContext(ctx)
	days := map[string]*ProfitDay{}
	day := func(key string) *ProfitDay {
		d, ok := days[key]
		if !ok {
			d = &ProfitDay{Day: key}
			days[key] = d
		}
		return d
	}

	var txns []models.Transaction
	if err := db.Select("total_amount", "tax_amount", "created_at").Find(&txns).Error; err != nil {
		return nil, s.fail("ProfitReport", apperr.Internal("Failed to fetch transactions", err))
	}
	for _, t := range txns {
		d := day(s.localDay(t.CreatedAt))
		d.Revenue = d.Revenue.Add(t.TotalAmount)
		d.Tax = d.Tax.Add(t.TaxAmount)
	}

	var expenses []models.Expense
	if err := db.Select("amount", "date").Find(&expenses).Error; err != nil {
		return nil, s.fail("ProfitReport", apperr.Internal("Failed to fetch expenses", err))
	}
	for _, e := range expenses {
		d := day(s.localDay(e.Date))
		d.Expenses = d.Expenses.Add(e.Amount)
	}

	out := make([]ProfitDay, 0, len(days))
	for _, d := range days {
		d.Revenue, d.Expenses, d.Tax = d.Revenue.Round(2), d.Expenses.Round(2), d.Tax.Round(2)
		d.Profit = d.Revenue.Sub(d.Expenses).Sub(d.Tax)
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	if len(out) > profitReportDays {
		out = out[len(out)-profitReportDays:]
	}
	return out, nil
}

type ProductProfit struct {
	ID             uint            `json:"id"`
	Name           string          `json:"name"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	SellingPrice   decimal.Decimal `json:"selling_price"`
	ProfitPerUnit  decimal.Decimal `json:"profit_per_unit"`
	QtySold        int64           `json:"qty_sold"`
	RealizedProfit decimal.Decimal `json:"realized_profit"`
}

// ProductProfitAnalytics ranks products by profit realized over every
// sale, measured against today's cost price.
func (s *Service) ProductProfitAnalytics(ctx context.Context) ([]ProductProfit, error) {
	db := s.db.WithContext(ctx)

	var products []models.Product
	if err := db.Order("name asc").Find(&products).Error; err != nil {
		return nil, s.fail("ProductProfitAnalytics", apperr.Internal("Failed to fetch products", err))
	}
	var items []models.TransactionItem
	if err := db.Select("product_id", "quantity", "unit_price").Find(&items).Error; err != nil {
		return nil, s.fail("ProductProfitAnalytics", apperr.Internal("Failed to fetch sale lines", err))
	}

	out := make([]ProductProfit, 0, len(products))
	index := make(map[uint]int, len(products))
	for _, p := range products {
		index[p.ID] = len(out)
		out = append(out, ProductProfit{
			ID:            p.ID,
			Name:          p.Name,
			CostPrice:     p.CostPrice,
			SellingPrice:  p.BaseSellingPrice,
			ProfitPerUnit: p.BaseSellingPrice.Sub(p.CostPrice),
		})
	}
	for _, it := range items {
		i, ok := index[it.ProductID]
		if !ok {
			continue
		}
		qty := decimal.NewFromInt(it.Quantity)
		out[i].QtySold += it.Quantity
		out[i].RealizedProfit = out[i].RealizedProfit.Add(it.UnitPrice.Sub(out[i].CostPrice).Mul(qty))
	}
	for i := range out {
		out[i].RealizedProfit = out[i].RealizedProfit.Round(2)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RealizedProfit.GreaterThan(out[j].RealizedProfit) })
	return out, nil
}

// NotSoldProducts lists products with no sale in the last days days.
func (s *Service) NotSoldProducts(ctx context.Context, days int) ([]models.Product, error) {
	if days <= 0 {
		return nil, apperr.Validation("days must be a positive number")
	}
	since := dayStart(s.now()).AddDate(0, 0, -days).UTC()
	sold := s.db.Table("transaction_items").
		Select("transaction_items.product_id").
		Joins("JOIN transactions ON transactions.id = transaction_items.transaction_id").
		Where("transactions.created_at >= ?", since)

	out := []models.Product{}
	err := s.db.WithContext(ctx).
		Where("id NOT IN (?)", sold).
		Order("name asc").
		Find(&out).Error
	if err != nil {
		return nil, s.fail("NotSoldProducts", apperr.Internal("Failed to fetch products", err))
	}
	return out, nil
}

func (s *Service) transactionsSince(ctx context.Context, since time.Time) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", since.UTC()).
		Order("created_at asc").
		Find(&txns).Error
	if err != nil {
		return nil, apperr.Internal("Failed to fetch transactions", err)
	}
	return txns, nil
}

// localDay keys a stored UTC timestamp by the calendar day of the
// reporting clock.
func (s *Service) localDay(t time.Time) string {
	return t.In(s.now().Location()).Format("2006-01-02")
}
