package reports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/auth"
	"go-pos-books/internal/models"
	"go-pos-books/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func line(productID uint, name string, qty int64, unit string) models.TransactionItem {
	u := testutil.Dec(unit)
	return models.TransactionItem{ProductID: productID, ProductName: name, Quantity: qty, UnitPrice: u, Subtotal: u.Mul(testutil.Dec(fmt.Sprint(qty)))}
}

func seedSaleBy(t *testing.T, db *gorm.DB, at time.Time, attendantID uint, attendant, total string) {
	t.Helper()
	invoiceSeq++
	require.NoError(t, db.Create(&models.Transaction{
		InvoiceNumber: fmt.Sprintf("INV-TEST-%04d", invoiceSeq),
		CustomerName:  "Walk-in Customer",
		TotalAmount:   testutil.Dec(total),
		Subtotal:      testutil.Dec(total),
		PaymentMethod: "cash",
		AttendantID:   attendantID,
		AttendantName: attendant,
		CreatedAt:     at.UTC(),
	}).Error)
}

func TestDashboard(t *testing.T) {
	s, db := newService(t)
	bread := testutil.SeedProduct(t, db, "Bread", "800", 10)
	testutil.SeedProduct(t, db, "Cola", "300", 0)
	milk := testutil.SeedProduct(t, db, "Milk", "300", 2)
	require.NoError(t, db.Model(milk).Update("min_threshold", 5).Error)
	testutil.SeedProduct(t, db, "Eggs", "100", 20)

	seedSale(t, db, fixedNow.Add(-time.Hour), "1000", "75", line(bread.ID, "Bread", 3, "333.33"))
	seedSale(t, db, time.Date(2026, time.May, 10, 9, 0, 0, 0, time.Local), "2000", "150")
	seedSale(t, db, time.Date(2026, time.May, 1, 9, 0, 0, 0, time.Local), "500", "0", line(milk.ID, "Milk", 1, "500"))
	seedExpense(t, db, fixedNow.Add(-2*time.Hour), "Rent", "200", "0")

	dash, err := s.Dashboard(context.Background())
	require.NoError(t, err)

	assert.True(t, dash.Revenue.Today.Equal(testutil.Dec("1075")))
	assert.True(t, dash.Revenue.Week.Equal(testutil.Dec("3225")))
	assert.True(t, dash.Revenue.Month.Equal(testutil.Dec("3725")))
	assert.True(t, dash.Expenses.Today.Equal(testutil.Dec("200")))
	assert.Equal(t, TransactionCounts{Today: 1, Total: 3}, dash.Transactions)
	assert.Equal(t, InventoryHealth{Total: 4, LowStock: 1, OutOfStock: 1, StockHealthPct: 50}, dash.Inventory)

	require.Len(t, dash.Status.FinishingSoon, 1)
	assert.Equal(t, "Milk", dash.Status.FinishingSoon[0].Name)
	require.Len(t, dash.Status.OutOfStockProducts, 1)
	assert.Equal(t, "Cola", dash.Status.OutOfStockProducts[0].Name)
	require.Len(t, dash.Status.FastMoving, 2)
	assert.Equal(t, FastMover{ProductID: bread.ID, ProductName: "Bread", QuantitySold: 3}, dash.Status.FastMoving[0])

	require.Len(t, dash.RecentTransactions, 3)
	assert.True(t, dash.RecentTransactions[0].TotalAmount.Equal(testutil.Dec("1075")))
	require.NotNil(t, dash.Compliance)
	assert.True(t, dash.Today.OutputVAT.Equal(testutil.Dec("75")))
}

func TestDashboardOnEmptyStore(t *testing.T) {
	s, _ := newService(t)

	dash, err := s.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, dash.Inventory.StockHealthPct)
	assert.Empty(t, dash.Status.FastMoving)
	assert.Empty(t, dash.RecentTransactions)
}

func TestSalesChartCoversTheLastWeek(t *testing.T) {
	s, db := newService(t)
	seedSale(t, db, fixedNow.Add(-time.Hour), "1000", "75")
	seedSale(t, db, fixedNow.Add(-2*time.Hour), "100", "0")
	seedSale(t, db, time.Date(2026, time.May, 10, 9, 0, 0, 0, time.Local), "2000", "150")
	seedSale(t, db, time.Date(2026, time.May, 1, 9, 0, 0, 0, time.Local), "500", "0")

	days, err := s.SalesChart(context.Background())
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-05-10", days[0].Date)
	assert.True(t, days[0].Total.Equal(testutil.Dec("2150")))
	assert.Equal(t, "2026-05-15", days[1].Date)
	assert.True(t, days[1].Total.Equal(testutil.Dec("1175")))
}

func TestAttendantPerformance(t *testing.T) {
	s, db := newService(t)
	seedSaleBy(t, db, fixedNow.Add(-time.Hour), 7, "Ada", "1000")
	seedSaleBy(t, db, fixedNow.Add(-2*time.Hour), 7, "Ada", "0.1")
	seedSaleBy(t, db, fixedNow.Add(-3*time.Hour), 8, "Bola", "2500")
	seedSaleBy(t, db, fixedNow.AddDate(0, 0, -1), 7, "Ada", "9999")

	admin := auth.Identity{ID: 1, Role: models.RoleAdmin}
	all, err := s.AttendantPerformance(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bola", all[0].AttendantName)
	assert.Equal(t, "Ada", all[1].AttendantName)
	assert.Equal(t, int64(2), all[1].Transactions)
	assert.Equal(t, "1000.1", all[1].Revenue.String())

	mine, err := s.AttendantPerformance(context.Background(), auth.Identity{ID: 8, Role: models.RoleAttendant})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Bola", mine[0].AttendantName)
}

func TestProfitReportByDay(t *testing.T) {
	s, db := newService(t)
	may14 := time.Date(2026, time.May, 14, 10, 0, 0, 0, time.Local)
	seedSale(t, db, may14, "1000", "75")
	seedExpense(t, db, may14, "Rent", "100", "0")
	seedExpense(t, db, time.Date(2026, time.May, 12, 10, 0, 0, 0, time.Local), "Fuel", "50", "0")

	days, err := s.ProfitReport(context.Background())
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.Equal(t, "2026-05-12", days[0].Day)
	assert.True(t, days[0].Revenue.IsZero())
	assert.True(t, days[0].Profit.Equal(testutil.Dec("-50")))

	assert.Equal(t, "2026-05-14", days[1].Day)
	assert.True(t, days[1].Revenue.Equal(testutil.Dec("1075")))
	assert.True(t, days[1].Tax.Equal(testutil.Dec("75")))
	assert.True(t, days[1].Profit.Equal(testutil.Dec("900")))
}

func TestProfitReportKeepsTheLatestThirtyDays(t *testing.T) {
	s, db := newService(t)
	for i := 0; i < 35; i++ {
		seedExpense(t, db, fixedNow.AddDate(0, 0, -i), "Fuel", "1", "0")
	}

	days, err := s.ProfitReport(context.Background())
	require.NoError(t, err)
	require.Len(t, days, 30)
	assert.Equal(t, "2026-05-15", days[29].Day)
	assert.Equal(t, fixedNow.AddDate(0, 0, -29).Format("2006-01-02"), days[0].Day)
}

func TestProductProfitAnalyticsAndNotSold(t *testing.T) {
	s, db := newService(t)
	bread := testutil.SeedProduct(t, db, "Bread", "800", 10) // cost 400
	milk := testutil.SeedProduct(t, db, "Milk", "300", 10)   // cost 150
	testutil.SeedProduct(t, db, "Eggs", "100", 10)

	seedSale(t, db, time.Date(2026, time.May, 10, 9, 0, 0, 0, time.Local), "1600", "0", line(bread.ID, "Bread", 2, "800"))
	seedSale(t, db, time.Date(2026, time.April, 1, 9, 0, 0, 0, time.Local), "250", "0", line(milk.ID, "Milk", 1, "250"))

	rows, err := s.ProductProfitAnalytics(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Bread", rows[0].Name)
	assert.Equal(t, int64(2), rows[0].QtySold)
	assert.True(t, rows[0].RealizedProfit.Equal(testutil.Dec("800")))
	assert.True(t, rows[0].ProfitPerUnit.Equal(testutil.Dec("400")))
	assert.Equal(t, "Milk", rows[1].Name)
	assert.True(t, rows[1].RealizedProfit.Equal(testutil.Dec("100")))
	assert.True(t, rows[2].RealizedProfit.IsZero())

	idle, err := s.NotSoldProducts(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, idle, 2)
	assert.Equal(t, "Eggs", idle[0].Name)
	assert.Equal(t, "Milk", idle[1].Name)

	_, err = s.NotSoldProducts(context.Background(), 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
