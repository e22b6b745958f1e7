package sales

import (
	"context"
	"errors"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/auth"
	"go-pos-books/internal/database"
	"go-pos-books/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreditSales lists credit sales, newest first. Attendants see only the
// sales they rang up; status filters when non-empty.
func (s *Service) CreditSales(ctx context.Context, actor auth.Identity, status string) ([]models.CreditSale, error) {
	q := s.db.WithContext(ctx).Order("created_at desc, id desc")
	if actor.IsAttendant() {
		q = q.Where("attendant_id = ?", actor.ID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var out []models.CreditSale
	if err := q.Find(&out).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch credit sales", err)
	}
	return out, nil
}

// ApplyPayment adds amount to a credit sale, capped at its total, and
// re-derives balance and status.
func (s *Service) ApplyPayment(ctx context.Context, actor auth.Identity, creditSaleID uint, amount decimal.Decimal) (*models.CreditSale, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validation("Invalid payment amount")
	}

	var cs models.CreditSale
	err := database.InTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cs, creditSaleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Credit sale not found")
			}
			return apperr.Internal("Failed to load credit sale", err)
		}
		if actor.IsAttendant() && cs.AttendantID != actor.ID {
			return apperr.Forbidden("Forbidden")
		}
		if cs.Status == models.CreditPaid {
			return apperr.Validation("Credit sale is already fully paid")
		}

		nextPaid := decimal.Min(cs.TotalAmount, cs.AmountPaid.Add(amount))
		applied := nextPaid.Sub(cs.AmountPaid)
		cs.AmountPaid = nextPaid
		cs.Balance, cs.Status = CreditStatus(cs.TotalAmount, nextPaid)

		if err := tx.Model(&cs).Updates(map[string]any{
			"amount_paid": cs.AmountPaid,
			"balance":     cs.Balance,
			"status":      cs.Status,
		}).Error; err != nil {
			return apperr.Internal("Failed to update credit sale", err)
		}
		if err := tx.Create(&models.CreditPayment{
			CreditSaleID: cs.ID,
			Amount:       applied,
			ReceivedBy:   actor.ID,
		}).Error; err != nil {
			return apperr.Internal("Failed to record payment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"module":         "sales",
		"credit_sale_id": cs.ID,
		"status":         cs.Status,
		"balance":        cs.Balance.StringFixed(2),
	}).Info("credit payment applied")
	return &cs, nil
}
