package database_test

import (
	"fmt"
	"testing"
	"time"

	"go-pos-books/internal/database"
	"go-pos-books/internal/models"
	"go-pos-books/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumsComeBackAtStoredScale(t *testing.T) {
	db := testutil.NewDB(t)
	day := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Expense{
			Category: "Salary", Amount: testutil.Dec("0.1"), WHTAmount: testutil.Dec("0.01"), Date: day,
		}).Error)
		require.NoError(t, db.Create(&models.Transaction{
			InvoiceNumber: fmt.Sprintf("INV-20260510-%d", 1000+i),
			CustomerName:  "Walk-in Customer",
			Subtotal:      testutil.Dec("0.1"),
			TaxAmount:     testutil.Dec("0.2"),
			TotalAmount:   testutil.Dec("0.3"),
			PaymentMethod: "cash",
			CreatedAt:     day,
		}).Error)
	}

	start, end := day.AddDate(0, 0, -1), day.AddDate(0, 0, 1)

	exp, err := database.SumExpenses(db, start, end, []string{"salary"})
	require.NoError(t, err)
	assert.Equal(t, "0.3", exp.Total.String())
	assert.Equal(t, "0.3", exp.Payroll.String())
	assert.Equal(t, "0.03", exp.WHT.String())

	sales, err := database.SumSales(db, start, end)
	require.NoError(t, err)
	assert.Equal(t, "0.9", sales.Revenue.String())
	assert.Equal(t, "0.3", sales.Subtotal.String())
	assert.Equal(t, "0.6", sales.OutputVAT.String())
	assert.Equal(t, int64(3), sales.Orders)
}
