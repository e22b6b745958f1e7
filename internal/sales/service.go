// Package sales runs checkout: it validates availability, prices the cart
// and commits the transaction, ledger movements, invoice and optional
// credit sale as one unit of work.
package sales

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/auth"
	"go-pos-books/internal/catalog"
	"go-pos-books/internal/config"
	"go-pos-books/internal/database"
	"go-pos-books/internal/ledger"
	"go-pos-books/internal/models"
	"go-pos-books/internal/tax"
	"go-pos-books/internal/validate"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	WalkInCustomer = "Walk-in Customer"
	PaymentCredit  = "credit"

	defaultBranchID   = 1
	invoiceAttempts   = 5
	checkoutAttempts  = 3
	defaultListLimit  = 50
	maxOverrideVATPct = 100
)

var errInvoiceCollision = errors.New("invoice number already taken")

// ConfigSource hands out the current tax configuration snapshot.
type ConfigSource interface {
	Load(ctx context.Context) (tax.Config, error)
}

// Locker serializes checkouts per branch across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type ItemRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gte=1"`
	PriceType string `json:"price_type" binding:"omitempty,oneof=safe standard premium"`
}

// Request is the checkout body. Optional fields resolve as follows: a
// missing price_type is "standard", a missing tax_rate is the configured
// VAT rate, a missing branch_id is the caller's branch, and amount_paid
// and due_date only matter for credit sales.
type Request struct {
	CustomerID       *uint            `json:"customer_id"`
	CustomerName     string           `json:"customer_name" binding:"max=150"`
	Items            []ItemRequest    `json:"items" binding:"required,min=1,dive"`
	PaymentMethod    string           `json:"payment_method" binding:"required,max=30"`
	TaxRate          *decimal.Decimal `json:"tax_rate"`
	PricesIncludeVAT bool             `json:"prices_include_vat"`
	BranchID         *uint            `json:"branch_id"`
	AmountPaid       *decimal.Decimal `json:"amount_paid"`
	DueDate          string           `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
}

type Result struct {
	Success       bool               `json:"success"`
	ID            uint               `json:"id"`
	InvoiceID     uint               `json:"invoice_id"`
	InvoiceNumber string             `json:"invoice_number"`
	Summary       Totals             `json:"summary"`
	CreditSale    *models.CreditSale `json:"credit_sale,omitempty"`
}

type Service struct {
	db       *gorm.DB
	settings ConfigSource
	locker   Locker
	logger   *logrus.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires the checkout. locker may be nil when Redis is not configured.
func NewService(db *gorm.DB, settings ConfigSource, locker Locker, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		settings: settings,
		locker:   locker,
		logger:   logger,
		validate: validate.New(),
		now:      time.Now,
	}
}

// Checkout records one sale. Nothing is written unless every product and
// ingredient is available; any failure afterwards rolls the whole sale back.
func (s *Service) Checkout(ctx context.Context, actor auth.Identity, req Request) (*Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validate.Error(err)
	}
	if req.AmountPaid != nil && req.AmountPaid.IsNegative() {
		return nil, apperr.Validation("amount_paid cannot be negative")
	}

	// Load config before opening the transaction.
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	rate := cfg.VATRate
	if req.TaxRate != nil {
		if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(decimal.NewFromInt(maxOverrideVATPct)) {
			return nil, apperr.Validation("tax_rate must be between 0 and 100")
		}
		rate = *req.TaxRate
	}

	branchID := uint(defaultBranchID)
	switch {
	case req.BranchID != nil && *req.BranchID != 0:
		branchID = *req.BranchID
	case actor.BranchID != 0:
		branchID = actor.BranchID
	}

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, fmt.Sprintf("sale:branch:%d", branchID))
		if err != nil {
			return nil, err
		}
		defer release()
	}

	var result *Result
	for attempt := 1; attempt <= checkoutAttempts; attempt++ {
		err = database.InTx(ctx, s.db, func(tx *gorm.DB) error {
			var err error
			result, err = s.commit(tx, actor, req, rate, branchID)
			return err
		})
		if !errors.Is(err, errInvoiceCollision) {
			break
		}
		s.logger.WithFields(logrus.Fields{"module": "sales", "attempt": attempt}).
			Warn("invoice number collided on insert; retrying checkout")
	}

	if err != nil {
		if errors.Is(err, errInvoiceCollision) {
			return nil, apperr.Conflict("Could not allocate a unique invoice number, please retry")
		}
		if apperr.KindOf(err) == apperr.KindInternal {
			config.LogError(s.logger, "sales", "Checkout", "checkout failed", req, err)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"module":         "sales",
		"invoice_number": result.InvoiceNumber,
		"total":          result.Summary.TotalAmount.StringFixed(2),
		"attendant_id":   actor.ID,
		"branch_id":      branchID,
	}).Info("sale recorded")
	return result, nil
}

// demand is the cart folded per product, in first-seen order.
type demand struct {
	order    []uint
	quantity map[uint]int64
}

// foldItems sums repeated lines for the same product. A total that would
// not fit in int64 is rejected rather than wrapped.
func foldItems(items []ItemRequest) (demand, error) {
	d := demand{quantity: make(map[uint]int64, len(items))}
	for _, it := range items {
		have, seen := d.quantity[it.ProductID]
		if !seen {
			d.order = append(d.order, it.ProductID)
		}
		if it.Quantity > math.MaxInt64-have {
			return demand{}, apperr.Validation("quantity for product %d is too large", it.ProductID)
		}
		d.quantity[it.ProductID] = have + it.Quantity
	}
	return d, nil
}

func (s *Service) commit(tx *gorm.DB, actor auth.Identity, req Request, rate decimal.Decimal, branchID uint) (*Result, error) {
	need, err := foldItems(req.Items)
	if err != nil {
		return nil, err
	}
	reader := catalog.New(tx)

	// --- Pass 1: check every precondition, mutate nothing ---
	products := make(map[uint]*models.Product, len(need.order))
	for _, id := range need.order {
		p, err := reader.ProductForUpdate(id)
		if err != nil {
			return nil, err
		}
		if p.Quantity < need.quantity[id] {
			return nil, apperr.InsufficientStock("Insufficient stock for %s", p.Name)
		}
		products[id] = p
	}

	var materialOrder []uint
	materialNeed := map[uint]decimal.Decimal{}
	for _, id := range need.order {
		recipe, err := reader.Recipe(id)
		if err != nil {
			return nil, err
		}
		for _, r := range recipe {
			if _, seen := materialNeed[r.MaterialID]; !seen {
				materialOrder = append(materialOrder, r.MaterialID)
			}
			draw := r.QuantityRequired.Mul(decimal.NewFromInt(need.quantity[id]))
			materialNeed[r.MaterialID] = materialNeed[r.MaterialID].Add(draw)
		}
	}
	for _, id := range materialOrder {
		m, err := reader.MaterialForUpdate(id)
		if err != nil {
			return nil, err
		}
		if m.Quantity.LessThan(materialNeed[id]) {
			return nil, apperr.InsufficientIngredient("Insufficient %s to fulfil this sale", m.Name)
		}
	}

	// --- Pass 2: write everything ---
	inputs := make([]priceInput, 0, len(req.Items))
	for _, it := range req.Items {
		tier := it.PriceType
		if tier == "" {
			tier = TierStandard
		}
		inputs = append(inputs, priceInput{product: products[it.ProductID], priceType: tier, quantity: it.Quantity})
	}
	lines, totals := Price(inputs, rate, req.PricesIncludeVAT)

	customerID, customerName, err := resolveCustomer(tx, req)
	if err != nil {
		return nil, err
	}

	invoiceNumber, err := s.allocateInvoiceNumber(tx)
	if err != nil {
		return nil, err
	}

	txn := models.Transaction{
		InvoiceNumber:    invoiceNumber,
		CustomerID:       customerID,
		CustomerName:     customerName,
		Subtotal:         totals.Subtotal,
		TaxRate:          rate,
		TaxAmount:        totals.TaxAmount,
		TotalAmount:      totals.TotalAmount,
		PricesIncludeVAT: req.PricesIncludeVAT,
		PaymentMethod:    req.PaymentMethod,
		AttendantID:      actor.ID,
		AttendantName:    actor.FullName,
		BranchID:         branchID,
	}
	for _, l := range lines {
		txn.Items = append(txn.Items, models.TransactionItem{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			PriceType:   l.PriceType,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
		})
	}
	if err := tx.Create(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errInvoiceCollision
		}
		return nil, apperr.Internal("Failed to create sale record", err)
	}

	note := "Sold via " + invoiceNumber
	for _, id := range need.order {
		delta := decimal.NewFromInt(-need.quantity[id])
		if _, err := ledger.Record(tx, ledger.Product(id), ledger.ChangeSale, delta, &txn.ID, note); err != nil {
			return nil, err
		}
	}
	for _, id := range materialOrder {
		if _, err := ledger.Record(tx, ledger.Material(id), ledger.ChangeSaleUsage, materialNeed[id].Neg(), &txn.ID, note); err != nil {
			return nil, err
		}
	}

	invoice := models.Invoice{
		TransactionID: txn.ID,
		InvoiceNumber: invoiceNumber,
		CustomerName:  customerName,
		Subtotal:      totals.Subtotal,
		TaxAmount:     totals.TaxAmount,
		TotalAmount:   totals.TotalAmount,
		Status:        "issued",
	}
	if err := tx.Create(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errInvoiceCollision
		}
		return nil, apperr.Internal("Failed to create invoice", err)
	}

	result := &Result{
		Success:       true,
		ID:            txn.ID,
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoiceNumber,
		Summary:       totals,
	}

	if strings.EqualFold(strings.TrimSpace(req.PaymentMethod), PaymentCredit) {
		paid := decimal.Zero
		if req.AmountPaid != nil {
			paid = decimal.Min(*req.AmountPaid, totals.TotalAmount)
		}
		balance, status := CreditStatus(totals.TotalAmount, paid)
		credit := models.CreditSale{
			TransactionID: txn.ID,
			InvoiceNumber: invoiceNumber,
			CustomerID:    customerID,
			CustomerName:  customerName,
			TotalAmount:   totals.TotalAmount,
			AmountPaid:    paid,
			Balance:       balance,
			Status:        status,
			DueDate:       req.DueDate,
			AttendantID:   actor.ID,
			BranchID:      branchID,
		}
		if err := tx.Create(&credit).Error; err != nil {
			return nil, apperr.Internal("Failed to open credit sale", err)
		}
		result.CreditSale = &credit
	}
	return result, nil
}

func resolveCustomer(tx *gorm.DB, req Request) (*uint, string, error) {
	name := strings.TrimSpace(req.CustomerName)

	if req.CustomerID != nil && *req.CustomerID != 0 {
		var c models.Customer
		if err := tx.First(&c, *req.CustomerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", apperr.NotFound("Customer %d not found", *req.CustomerID)
			}
			return nil, "", apperr.Internal("Failed to load customer", err)
		}
		if name == "" {
			name = c.Name
		}
		return &c.ID, name, nil
	}

	if name == "" || strings.EqualFold(name, WalkInCustomer) {
		return nil, WalkInCustomer, nil
	}

	var c models.Customer
	err := tx.Where("LOWER(name) = LOWER(?)", name).Order("id asc").First(&c).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		c = models.Customer{Name: name}
		if err := tx.Create(&c).Error; err != nil {
			return nil, "", apperr.Internal("Failed to create customer", err)
		}
	default:
		return nil, "", apperr.Internal("Failed to look up customer", err)
	}
	return &c.ID, name, nil
}

// allocateInvoiceNumber draws numbers until one is free in this
// transaction's view. The unique index still guards concurrent writers.
func (s *Service) allocateInvoiceNumber(tx *gorm.DB) (string, error) {
	for i := 0; i < invoiceAttempts; i++ {
		n := InvoiceNumber(s.now())
		var count int64
		if err := tx.Model(&models.Transaction{}).Where("invoice_number = ?", n).Count(&count).Error; err != nil {
			return "", apperr.Internal("Failed to check invoice number", err)
		}
		if count == 0 {
			return n, nil
		}
	}
	return "", errInvoiceCollision
}

// InvoiceNumber formats INV-<YYYYMMDD>-<4 random digits>.
func InvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%s-%d", now.Format("20060102"), 1000+rand.IntN(9000))
}

// CreditStatus derives the balance and status of a credit sale from what
// has been paid against its total.
func CreditStatus(total, paid decimal.Decimal) (decimal.Decimal, string) {
	balance := decimal.Max(decimal.Zero, total.Sub(paid))
	switch {
	case !balance.IsPositive():
		return balance, models.CreditPaid
	case paid.IsPositive():
		return balance, models.CreditPartial
	default:
		return balance, models.CreditUnpaid
	}
}
