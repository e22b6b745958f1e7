package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/auth"
	"go-pos-books/internal/config"
	"go-pos-books/internal/database"
	"go-pos-books/internal/ledger"
	"go-pos-books/internal/models"
	"go-pos-books/internal/tax"
	"go-pos-books/internal/validate"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type POItemRequest struct {
	ProductID  *uint           `json:"product_id"`
	MaterialID *uint           `json:"material_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
}

// PORequest creates a purchase order. When vat_charged is set, vat_rate
// defaults to the configured VAT rate and input_vat_amount to
// total x rate. is_claimable_input_vat defaults to true.
type PORequest struct {
	SupplierName        string           `json:"supplier_name" binding:"required,max=150"`
	Items               []POItemRequest  `json:"items" binding:"required,min=1"`
	VATCharged          bool             `json:"vat_charged"`
	VATRate             *decimal.Decimal `json:"vat_rate"`
	InputVATAmount      *decimal.Decimal `json:"input_vat_amount"`
	IsClaimableInputVAT *bool            `json:"is_claimable_input_vat"`
}

func (s *Service) CreatePurchaseOrder(ctx context.Context, actor auth.Identity, req PORequest) (*models.PurchaseOrder, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validate.Error(err)
	}

	total := decimal.Zero
	items := make([]models.PurchaseOrderItem, 0, len(req.Items))
	for i, it := range req.Items {
		if (it.ProductID == nil) == (it.MaterialID == nil) {
			return nil, apperr.Validation("item %d must name exactly one of product_id or material_id", i+1)
		}
		if !it.Quantity.IsPositive() || it.UnitCost.IsNegative() {
			return nil, apperr.Validation("item %d needs a positive quantity and a non-negative unit_cost", i+1)
		}
		if it.ProductID != nil && !it.Quantity.Equal(it.Quantity.Truncate(0)) {
			return nil, apperr.Validation("item %d: product quantities must be whole numbers", i+1)
		}
		total = total.Add(it.Quantity.Mul(it.UnitCost))
		items = append(items, models.PurchaseOrderItem{
			ProductID:  it.ProductID,
			MaterialID: it.MaterialID,
			Quantity:   it.Quantity,
			UnitCost:   it.UnitCost,
		})
	}
	total = total.Round(2)

	po := &models.PurchaseOrder{
		SupplierName: req.SupplierName,
		Status:       models.POStatusPending,
		TotalAmount:  total,
		VATCharged:   req.VATCharged,
		VATRate:      decimal.Zero,
		BranchID:     actor.BranchID,
		CreatedBy:    actor.ID,
		Items:        items,
	}
	if req.VATCharged {
		var rate decimal.Decimal
		if req.VATRate != nil {
			rate = *req.VATRate
		} else {
			cfg, err := s.settings.Load(ctx)
			if err != nil {
				return nil, err
			}
			rate = cfg.VATRate
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, apperr.Validation("vat_rate must be between 0 and 100")
		}
		po.VATRate = rate
		po.InputVATAmount = tax.InputVAT(total, rate)
		if req.InputVATAmount != nil {
			if req.InputVATAmount.IsNegative() {
				return nil, apperr.Validation("input_vat_amount cannot be negative")
			}
			po.InputVATAmount = req.InputVATAmount.Round(2)
		}
		po.IsClaimableInputVAT = req.IsClaimableInputVAT == nil || *req.IsClaimableInputVAT
	}

	err := database.InTx(ctx, s.db, func(tx *gorm.DB) error {
		for _, it := range items {
			var err error
			if it.ProductID != nil {
				err = findEntity(tx, &models.Product{}, ledger.Product(*it.ProductID))
			} else {
				err = findEntity(tx, &models.Material{}, ledger.Material(*it.MaterialID))
			}
			if err != nil {
				return err
			}
		}
		if err := tx.Create(po).Error; err != nil {
			return apperr.Internal("Failed to create purchase order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// ReceivePurchaseOrder restocks every line of a pending order through the
// ledger and marks it received.
func (s *Service) ReceivePurchaseOrder(ctx context.Context, actor auth.Identity, id uint) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := database.InTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := lockPendingPO(tx, &po, id); err != nil {
			return err
		}

		note := fmt.Sprintf("Received via PO #%d", po.ID)
		for _, it := range po.Items {
			var e ledger.Entity
			switch {
			case it.ProductID != nil:
				e = ledger.Product(*it.ProductID)
			case it.MaterialID != nil:
				e = ledger.Material(*it.MaterialID)
			default:
				return apperr.Validation("purchase order line %d has no product or material", it.ID)
			}
			if _, err := ledger.Record(tx, e, ledger.ChangeRestock, it.Quantity, &po.ID, note); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		po.Status = models.POStatusReceived
		po.ReceivedAt = &now
		if err := tx.Model(&po).Updates(map[string]any{
			"status":      po.Status,
			"received_at": now,
		}).Error; err != nil {
			return apperr.Internal("Failed to update purchase order", err)
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			config.LogError(s.logger, "inventory", "ReceivePurchaseOrder", "receive failed", id, err)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"module":  "inventory",
		"po_id":   po.ID,
		"lines":   len(po.Items),
		"user_id": actor.ID,
	}).Info("purchase order received")
	return &po, nil
}

// CancelPurchaseOrder drops a pending order; cancelled orders no longer
// count towards input VAT.
func (s *Service) CancelPurchaseOrder(ctx context.Context, id uint) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := database.InTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := lockPendingPO(tx, &po, id); err != nil {
			return err
		}
		po.Status = models.POStatusCancelled
		if err := tx.Model(&po).Update("status", po.Status).Error; err != nil {
			return apperr.Internal("Failed to cancel purchase order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (s *Service) PurchaseOrders(ctx context.Context, status string) ([]models.PurchaseOrder, error) {
	q := s.db.WithContext(ctx).Preload("Items").Order("created_at desc, id desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.PurchaseOrder
	if err := q.Find(&out).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch purchase orders", err)
	}
	return out, nil
}

func lockPendingPO(tx *gorm.DB, po *models.PurchaseOrder, id uint) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Items").First(po, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Purchase order %d not found", id)
		}
		return apperr.Internal("Failed to load purchase order", err)
	}
	if po.Status != models.POStatusPending {
		return apperr.Conflict("Purchase order is already %s", po.Status)
	}
	return nil
}

type InputVATSummary struct {
	Month        string                 `json:"month"`
	Total        decimal.Decimal        `json:"total_input_vat"`
	Claimable    decimal.Decimal        `json:"claimable_input_vat"`
	NonClaimable decimal.Decimal        `json:"non_claimable_input_vat"`
	Orders       []models.PurchaseOrder `json:"orders"`
}

// InputVATSummary lists one month's VAT-charged, non-cancelled orders and
// splits their input VAT by claimability. An empty month means the current one.
func (s *Service) InputVATSummary(ctx context.Context, month string) (*InputVATSummary, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if month != "" {
		m, err := time.ParseInLocation("2006-01", month, time.Local)
		if err != nil {
			return nil, apperr.Validation("month must be YYYY-MM")
		}
		start = m
	}
	end := start.AddDate(0, 1, 0)

	out := &InputVATSummary{Month: start.Format("2006-01"), Orders: []models.PurchaseOrder{}}
	err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
		Where("vat_charged = ? AND status <> ?", true, models.POStatusCancelled).
		Order("created_at desc, id desc").
		Find(&out.Orders).Error
	if err != nil {
		return nil, s.fail("InputVATSummary", ledger.Entity{}, apperr.Internal("Failed to fetch purchase orders", err))
	}

	for _, po := range out.Orders {
		out.Total = out.Total.Add(po.InputVATAmount)
		if po.IsClaimableInputVAT {
			out.Claimable = out.Claimable.Add(po.InputVATAmount)
		} else {
			out.NonClaimable = out.NonClaimable.Add(po.InputVATAmount)
		}
	}
	return out, nil
}
