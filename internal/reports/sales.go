package reports

import (
	"context"
	"sort"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/database"
	"go-pos-books/internal/models"

	"github.com/shopspring/decimal"
)

const topSellingLimit = 5

type TopSeller struct {
	ProductName string          `json:"product_name"`
	Sold        int64           `json:"sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type SalesReport struct {
	Start string `json:"start"`
	End   string `json:"end"`
	database.SalesReportResult
	Subtotal   decimal.Decimal `json:"subtotal"`
	OutputVAT  decimal.Decimal `json:"output_vat"`
	TopSelling []TopSeller     `json:"top_selling"`
}

// ParseRange reads an inclusive YYYY-MM-DD range. A missing start means
// the first of the current month and a missing end means today.
func (s *Service) ParseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	now := s.now()
	start, end := monthStart(now), dayStart(now)
	if startRaw != "" {
		d, err := time.ParseInLocation("2006-01-02", startRaw, time.Local)
		if err != nil {
			return start, end, apperr.Validation("start must be YYYY-MM-DD")
		}
		start = d
	}
	if endRaw != "" {
		d, err := time.ParseInLocation("2006-01-02", endRaw, time.Local)
		if err != nil {
			return start, end, apperr.Validation("end must be YYYY-MM-DD")
		}
		end = d
	}
	if end.Before(start) {
		return start, end, apperr.Validation("end must not be before start")
	}
	return start, end, nil
}

// Sales totals transactions from the start day through the end day.
func (s *Service) Sales(ctx context.Context, start, end time.Time) (*SalesReport, error) {
	db := s.db.WithContext(ctx)
	until := dayStart(end).AddDate(0, 0, 1)

	totals, err := database.SumSales(db, start, until)
	if err != nil {
		return nil, s.fail("Sales", apperr.Internal("Failed to calculate revenue", err))
	}

	top := []TopSeller{}
	err = db.Table("transaction_items").
		Select("transaction_items.product_name AS product_name, SUM(transaction_items.quantity) AS sold, "+
			"SUM(transaction_items.subtotal) AS revenue").
		Joins("JOIN transactions ON transaction_items.transaction_id = transactions.id").
		Where("transactions.created_at >= ? AND transactions.created_at < ?", start.UTC(), until.UTC()).
		Group("transaction_items.product_name").
		Order("sold desc").
		Limit(topSellingLimit).
		Scan(&top).Error
	if err != nil {
		return nil, s.fail("Sales", apperr.Internal("Failed to fetch top selling items", err))
	}
	for i := range top {
		top[i].Revenue = top[i].Revenue.Round(2)
	}

	return &SalesReport{
		Start: start.Format("2006-01-02"),
		End:   end.Format("2006-01-02"),
		SalesReportResult: database.SalesReportResult{
			TotalRevenue: totals.Revenue,
			TotalCount:   totals.Orders,
		},
		Subtotal:   totals.Subtotal,
		OutputVAT:  totals.OutputVAT,
		TopSelling: top,
	}, nil
}

// --- Stock ---

const (
	StockOut     = "out_of_stock"
	StockLow     = "low_stock"
	StockHealthy = "healthy"
)

type ValuationItem struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Quantity    int64           `json:"quantity"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	StockStatus string          `json:"stock_status"`
}

type CategoryGroup struct {
	CategoryName string          `json:"category_name"`
	Items        []ValuationItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type Valuation struct {
	Categories []CategoryGroup `json:"categories"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// StockValuation values on-hand products at cost, grouped by category.
func (s *Service) StockValuation(ctx context.Context) (*Valuation, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("name asc").Find(&products).Error; err != nil {
		return nil, s.fail("StockValuation", apperr.Internal("Failed to fetch inventory", err))
	}

	grouped := map[string]*CategoryGroup{}
	out := &Valuation{Categories: []CategoryGroup{}}
	for _, p := range products {
		name := p.Category
		if name == "" {
			name = "Uncategorized"
		}
		g, ok := grouped[name]
		if !ok {
			g = &CategoryGroup{CategoryName: name, Items: []ValuationItem{}}
			grouped[name] = g
		}

		total := p.CostPrice.Mul(decimal.NewFromInt(p.Quantity)).Round(2)
		g.Items = append(g.Items, ValuationItem{
			ID:          p.ID,
			Name:        p.Name,
			Quantity:    p.Quantity,
			CostPrice:   p.CostPrice,
			TotalCost:   total,
			StockStatus: StockStatus(p.Quantity, p.MinThreshold),
		})
		g.Subtotal = g.Subtotal.Add(total)
		out.GrandTotal = out.GrandTotal.Add(total)
	}

	for _, g := range grouped {
		out.Categories = append(out.Categories, *g)
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		return out.Categories[i].CategoryName < out.Categories[j].CategoryName
	})
	return out, nil
}

func StockStatus(quantity, minThreshold int64) string {
	switch {
	case quantity <= 0:
		return StockOut
	case quantity <= minThreshold:
		return StockLow
	}
	return StockHealthy
}

type StockLevel struct {
	Kind         string          `json:"kind"`
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	MinThreshold decimal.Decimal `json:"min_threshold"`
}

// CheckInventory lists products and materials matching name, or every item
// at or below its threshold when name is empty.
func (s *Service) CheckInventory(ctx context.Context, name string) ([]StockLevel, error) {
	db := s.db.WithContext(ctx)
	out := []StockLevel{}

	pq := db.Model(&models.Product{}).Order("name asc")
	mq := db.Model(&models.Material{}).Order("name asc")
	if name != "" {
		like := "%" + name + "%"
		pq = pq.Where("LOWER(name) LIKE LOWER(?)", like)
		mq = mq.Where("LOWER(name) LIKE LOWER(?)", like)
	} else {
		pq = pq.Where("quantity <= min_threshold")
		mq = mq.Where("quantity <= min_threshold")
	}

	var products []models.Product
	if err := pq.Find(&products).Error; err != nil {
		return nil, s.fail("CheckInventory", apperr.Internal("Failed to fetch products", err))
	}
	for _, p := range products {
		out = append(out, StockLevel{
			Kind:         "product",
			ID:           p.ID,
			Name:         p.Name,
			Quantity:     decimal.NewFromInt(p.Quantity),
			MinThreshold: decimal.NewFromInt(p.MinThreshold),
		})
	}

	var materials []models.Material
	if err := mq.Find(&materials).Error; err != nil {
		return nil, s.fail("CheckInventory", apperr.Internal("Failed to fetch materials", err))
	}
	for _, m := range materials {
		out = append(out, StockLevel{Kind: "material", ID: m.ID, Name: m.Name, Quantity: m.Quantity, MinThreshold: m.MinThreshold})
	}
	return out, nil
}
