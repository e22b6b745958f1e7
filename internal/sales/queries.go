package sales

import (
	"context"
	"errors"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/auth"
	"go-pos-books/internal/models"

	"gorm.io/gorm"
)

// Detail is one transaction with everything created alongside it.
type Detail struct {
	models.Transaction
	Invoice    *models.Invoice    `json:"invoice"`
	CreditSale *models.CreditSale `json:"credit_sale,omitempty"`
}

// List returns the latest transactions; attendants only see their own.
func (s *Service) List(ctx context.Context, actor auth.Identity, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	q := s.db.WithContext(ctx).Order("created_at desc, id desc").Limit(limit)
	if actor.IsAttendant() {
		q = q.Where("attendant_id = ?", actor.ID)
	}

	var out []models.Transaction
	if err := q.Find(&out).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch transactions", err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Identity, id uint) (*Detail, error) {
	db := s.db.WithContext(ctx)

	var txn models.Transaction
	if err := db.Preload("Items").First(&txn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Transaction not found")
		}
		return nil, apperr.Internal("Failed to fetch transaction", err)
	}
	if actor.IsAttendant() && txn.AttendantID != actor.ID {
		return nil, apperr.Forbidden("Forbidden")
	}

	detail := &Detail{Transaction: txn}

	var inv models.Invoice
	err := db.Where("transaction_id = ?", id).First(&inv).Error
	switch {
	case err == nil:
		detail.Invoice = &inv
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.Internal("Failed to fetch invoice", err)
	}

	var cs models.CreditSale
	err = db.Where("transaction_id = ?", id).First(&cs).Error
	switch {
	case err == nil:
		detail.CreditSale = &cs
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.Internal("Failed to fetch credit sale", err)
	}
	return detail, nil
}

const invoiceListLimit = 100

// InvoiceDetail is an invoice with the lines of the sale it was issued for.
type InvoiceDetail struct {
	models.Invoice
	Items []models.TransactionItem `json:"items"`
}

// Invoices returns the latest invoices; attendants only see those for
// their own sales.
func (s *Service) Invoices(ctx context.Context, actor auth.Identity) ([]models.Invoice, error) {
	q := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Order("invoices.created_at desc, invoices.id desc").
		Limit(invoiceListLimit)
	if actor.IsAttendant() {
		q = q.Joins("JOIN transactions ON transactions.id = invoices.transaction_id").
			Where("transactions.attendant_id = ?", actor.ID)
	}

	out := []models.Invoice{}
	if err := q.Find(&out).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch invoices", err)
	}
	return out, nil
}

func (s *Service) Invoice(ctx context.Context, actor auth.Identity, id uint) (*InvoiceDetail, error) {
	db := s.db.WithContext(ctx)

	var inv models.Invoice
	if err := db.First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Invoice not found")
		}
		return nil, apperr.Internal("Failed to fetch invoice", err)
	}

	var txn models.Transaction
	if err := db.Preload("Items").First(&txn, inv.TransactionID).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch invoice lines", err)
	}
	if actor.IsAttendant() && txn.AttendantID != actor.ID {
		return nil, apperr.Forbidden("Forbidden")
	}

	items := txn.Items
	if items == nil {
		items = []models.TransactionItem{}
	}
	return &InvoiceDetail{Invoice: inv, Items: items}, nil
}
