package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleAttendant = "attendant"
)

// User - The person operating a till (or the back office)
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"` // Never return this in JSON
	FullName     string    `gorm:"size:120" json:"full_name"`
	Role         string    `gorm:"size:20" json:"role"` // 'admin', 'manager', 'attendant'
	BranchID     uint      `json:"branch_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Product - Sellable stock. Tier prices fall back to BaseSellingPrice when unset.
type Product struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	Name             string           `gorm:"size:150" json:"name"`
	Category         string           `gorm:"size:80" json:"category"`
	CostPrice        decimal.Decimal  `gorm:"type:decimal(20,4)" json:"cost_price"`
	BaseSellingPrice decimal.Decimal  `gorm:"type:decimal(20,4)" json:"base_selling_price"`
	SafePrice        *decimal.Decimal `gorm:"type:decimal(20,4)" json:"safe_price"`
	StandardPrice    *decimal.Decimal `gorm:"type:decimal(20,4)" json:"standard_price"`
	PremiumPrice     *decimal.Decimal `gorm:"type:decimal(20,4)" json:"premium_price"`
	Quantity         int64            `json:"quantity"`
	InitialQuantity  int64            `json:"initial_quantity"` // opening balance the ledger replays from
	MinThreshold     int64            `json:"min_threshold"`
	BranchID         uint             `gorm:"index" json:"branch_id"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Material - Raw ingredient consumed through recipes
type Material struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:150" json:"name"`
	Unit            string          `gorm:"size:20" json:"unit"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantity"`
	InitialQuantity decimal.Decimal `gorm:"type:decimal(20,4)" json:"initial_quantity"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_cost"`
	MinThreshold    decimal.Decimal `gorm:"type:decimal(20,4)" json:"min_threshold"`
	BranchID        uint            `gorm:"index" json:"branch_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// RecipeEntry - How much of a material one unit of a product draws down
type RecipeEntry struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ProductID        uint            `gorm:"uniqueIndex:idx_recipe_product_material" json:"product_id"`
	MaterialID       uint            `gorm:"uniqueIndex:idx_recipe_product_material" json:"material_id"`
	QuantityRequired decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantity_required"`
}

// LedgerEntry - Immutable movement record for a product or material.
// QuantityAfter is always QuantityBefore + QuantityChanged.
type LedgerEntry struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	EntityKind      string          `gorm:"size:10;index:idx_ledger_entity" json:"entity_kind"` // 'product', 'material'
	EntityID        uint            `gorm:"index:idx_ledger_entity" json:"entity_id"`
	ChangeType      string          `gorm:"size:20" json:"change_type"`
	QuantityBefore  decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantity_before"`
	QuantityChanged decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantity_changed"`
	QuantityAfter   decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantity_after"`
	ReferenceID     *uint           `json:"reference_id"`
	Note            string          `gorm:"size:255" json:"note"`
	CreatedAt       time.Time       `json:"created_at"`
}

type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;index" json:"name"`
	Phone     string    `gorm:"size:40" json:"phone"`
	Email     string    `gorm:"size:120" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction - The sale header. Never updated after creation.
type Transaction struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	InvoiceNumber    string            `gorm:"uniqueIndex;size:32" json:"invoice_number"`
	CustomerID       *uint             `json:"customer_id"`
	CustomerName     string            `gorm:"size:150" json:"customer_name"`
	Subtotal         decimal.Decimal   `gorm:"type:decimal(20,4)" json:"subtotal"`
	TaxRate          decimal.Decimal   `gorm:"type:decimal(20,4)" json:"tax_rate"`
	TaxAmount        decimal.Decimal   `gorm:"type:decimal(20,4)" json:"tax_amount"`
	TotalAmount      decimal.Decimal   `gorm:"type:decimal(20,4)" json:"total_amount"`
	PricesIncludeVAT bool              `gorm:"column:prices_include_vat" json:"prices_include_vat"`
	PaymentMethod    string            `gorm:"size:30" json:"payment_method"`
	AttendantID      uint              `gorm:"index" json:"attendant_id"`
	AttendantName    string            `gorm:"size:120" json:"attendant_name"`
	BranchID         uint              `gorm:"index" json:"branch_id"`
	CreatedAt        time.Time         `gorm:"index" json:"created_at"`
	Items            []TransactionItem `gorm:"foreignKey:TransactionID" json:"items,omitempty"`
}

// TransactionItem - Price snapshot at the time of sale
type TransactionItem struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TransactionID uint            `gorm:"index" json:"transaction_id"`
	ProductID     uint            `json:"product_id"`
	ProductName   string          `gorm:"size:150" json:"product_name"`
	PriceType     string          `gorm:"size:20" json:"price_type"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_price"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4)" json:"subtotal"`
}

type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TransactionID uint            `gorm:"uniqueIndex" json:"transaction_id"`
	InvoiceNumber string          `gorm:"uniqueIndex;size:32" json:"invoice_number"`
	CustomerName  string          `gorm:"size:150" json:"customer_name"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4)" json:"subtotal"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(20,4)" json:"tax_amount"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4)" json:"total_amount"`
	Status        string          `gorm:"size:20" json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

const (
	CreditUnpaid  = "unpaid"
	CreditPartial = "partial"
	CreditPaid    = "paid"
)

// CreditSale - Outstanding balance on a transaction paid on credit.
// Balance and Status are always derived from TotalAmount and AmountPaid.
type CreditSale struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TransactionID uint            `gorm:"uniqueIndex" json:"transaction_id"`
	InvoiceNumber string          `gorm:"size:32" json:"invoice_number"`
	CustomerID    *uint           `json:"customer_id"`
	CustomerName  string          `gorm:"size:150" json:"customer_name"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4)" json:"total_amount"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(20,4)" json:"amount_paid"`
	Balance       decimal.Decimal `gorm:"type:decimal(20,4)" json:"balance"`
	Status        string          `gorm:"size:10;index" json:"status"`
	DueDate       string          `gorm:"size:10" json:"due_date"` // YYYY-MM-DD
	AttendantID   uint            `gorm:"index" json:"attendant_id"`
	BranchID      uint            `json:"branch_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type CreditPayment struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CreditSaleID uint            `gorm:"index" json:"credit_sale_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4)" json:"amount"`
	ReceivedBy   uint            `json:"received_by"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Expense - Operating cost. Payroll categories feed PAYE, WHTAmount feeds WHT.
type Expense struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Category    string          `gorm:"size:60;index" json:"category"`
	Description string          `gorm:"size:255" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4)" json:"amount"`
	PayeeType   string          `gorm:"size:20" json:"payee_type"` // 'individual', 'company' or empty
	WHTAmount   decimal.Decimal `gorm:"column:wht_amount;type:decimal(20,4)" json:"wht_amount"`
	BranchID    uint            `json:"branch_id"`
	RecordedBy  uint            `json:"recorded_by"`
	Date        time.Time       `gorm:"index" json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

const (
	POStatusPending   = "pending"
	POStatusReceived  = "received"
	POStatusCancelled = "cancelled"
)

type PurchaseOrder struct {
	ID                  uint                `gorm:"primaryKey" json:"id"`
	SupplierName        string              `gorm:"size:150" json:"supplier_name"`
	Status              string              `gorm:"size:20;index" json:"status"`
	TotalAmount         decimal.Decimal     `gorm:"type:decimal(20,4)" json:"total_amount"`
	VATCharged          bool                `gorm:"column:vat_charged" json:"vat_charged"`
	VATRate             decimal.Decimal     `gorm:"column:vat_rate;type:decimal(20,4)" json:"vat_rate"`
	InputVATAmount      decimal.Decimal     `gorm:"column:input_vat_amount;type:decimal(20,4)" json:"input_vat_amount"`
	IsClaimableInputVAT bool                `gorm:"column:is_claimable_input_vat" json:"is_claimable_input_vat"`
	BranchID            uint                `json:"branch_id"`
	CreatedBy           uint                `json:"created_by"`
	ReceivedAt          *time.Time          `json:"received_at"`
	CreatedAt           time.Time           `gorm:"index" json:"created_at"`
	Items               []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items,omitempty"`
}

// PurchaseOrderItem - Exactly one of ProductID or MaterialID is set.
type PurchaseOrderItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	PurchaseOrderID uint            `gorm:"index" json:"purchase_order_id"`
	ProductID       *uint           `json:"product_id"`
	MaterialID      *uint           `json:"material_id"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,4)" json:"unit_cost"`
}

// SpoilageLog - One write-off, linked to its ledger movement and expense
type SpoilageLog struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ItemType      string          `gorm:"size:10" json:"item_type"` // 'product', 'material'
	ItemID        uint            `json:"item_id"`
	ItemName      string          `gorm:"size:150" json:"item_name"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4)" json:"quantity"`
	Reason        string          `gorm:"size:200" json:"reason"`
	EstimatedLoss decimal.Decimal `gorm:"type:decimal(20,4)" json:"estimated_loss"`
	LedgerEntryID uint            `json:"ledger_entry_id"`
	ExpenseID     uint            `json:"expense_id"`
	RecordedBy    uint            `json:"recorded_by"`
	BranchID      uint            `json:"branch_id"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

// Setting - Key/value row backing the tax configuration snapshot
type Setting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All lists every table for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Material{},
		&RecipeEntry{},
		&LedgerEntry{},
		&Customer{},
		&Transaction{},
		&TransactionItem{},
		&Invoice{},
		&CreditSale{},
		&CreditPayment{},
		&Expense{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&SpoilageLog{},
		&Setting{},
	}
}
