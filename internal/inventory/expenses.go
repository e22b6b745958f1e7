package inventory

import (
	"context"
	"strings"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/auth"
	"go-pos-books/internal/config"
	"go-pos-books/internal/models"
	"go-pos-books/internal/tax"
	"go-pos-books/internal/validate"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type ExpenseRequest struct {
	Category    string           `json:"category" binding:"required,max=60"`
	Description string           `json:"description" binding:"max=255"`
	Amount      decimal.Decimal  `json:"amount"`
	PayeeType   string           `json:"payee_type" binding:"omitempty,oneof=individual company"`
	WHTAmount   *decimal.Decimal `json:"wht_amount"`
	Date        string           `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

type ExpenseResult struct {
	Expense       *models.Expense   `json:"expense"`
	WHTSuggestion tax.WHTSuggestion `json:"wht_suggestion"`
}

// CreateExpense records an operating cost. The WHT amount is whatever the
// caller entered; the suggestion from the current rates is returned
// alongside for the UI to offer.
func (s *Service) CreateExpense(ctx context.Context, actor auth.Identity, req ExpenseRequest) (*ExpenseResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validate.Error(err)
	}
	if !req.Amount.IsPositive() {
		return nil, apperr.Validation("amount must be greater than zero")
	}
	wht := decimal.Zero
	if req.WHTAmount != nil {
		if req.WHTAmount.IsNegative() || req.WHTAmount.GreaterThan(req.Amount) {
			return nil, apperr.Validation("wht_amount must be between 0 and amount")
		}
		wht = req.WHTAmount.Round(2)
	}

	date := s.now().UTC()
	if req.Date != "" {
		d, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			return nil, apperr.Validation("date must be a YYYY-MM-DD date")
		}
		date = d.UTC()
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		Category:    strings.TrimSpace(req.Category),
		Description: req.Description,
		Amount:      req.Amount.Round(2),
		PayeeType:   strings.ToLower(req.PayeeType),
		WHTAmount:   wht,
		BranchID:    actor.BranchID,
		RecordedBy:  actor.ID,
		Date:        date,
	}
	if err := s.db.WithContext(ctx).Create(expense).Error; err != nil {
		config.LogError(s.logger, "inventory", "CreateExpense", "insert expense", req, err)
		return nil, apperr.Internal("Failed to record expense", err)
	}

	s.logger.WithFields(logrus.Fields{
		"module":   "inventory",
		"category": expense.Category,
		"amount":   expense.Amount.StringFixed(2),
		"payroll":  tax.IsPayrollCategory(expense.Category),
	}).Info("expense recorded")

	return &ExpenseResult{
		Expense:       expense,
		WHTSuggestion: tax.SuggestWHT(expense.Amount, expense.PayeeType, cfg),
	}, nil
}

// Expenses lists expenses dated in [start, end), newest first.
func (s *Service) Expenses(ctx context.Context, start, end time.Time) ([]models.Expense, error) {
	var out []models.Expense
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date < ?", start.UTC(), end.UTC()).
		Order("date desc, id desc").
		Find(&out).Error
	if err != nil {
		return nil, apperr.Internal("Failed to fetch expenses", err)
	}
	return out, nil
}
