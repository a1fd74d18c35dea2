package pos

import (
	"time"

	"steelpos/internal/session"
)

type User = session.User

const (
	RoleSuperAdmin = "super_admin"
	RoleAccountant = "accountant"
)

type Product struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CategoryID *int64    `json:"category_id,omitempty"`
	Unit       string    `json:"unit"`
	Notes      string    `json:"notes"`
	IsActive   bool      `json:"is_active"`
	Variants   []Variant `json:"variants,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Variant struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Stock     int     `json:"stock"`
	Sold      int     `json:"sold"`
	Price     float64 `json:"price"`
	Unit      string  `json:"unit"`
	IsActive  bool    `json:"is_active"`
}

// VariantHit is a variant flattened with the fields of its product, the row
// shape of the sales-screen search.
type VariantHit struct {
	Variant
	ProductName  string  `json:"product_name"`
	ProductUnit  string  `json:"product_unit"`
	ProductNotes string  `json:"product_notes"`
	UnitPrice    float64 `json:"unit_price"`
}

// Flatten expands products into one hit per variant.
func Flatten(products []Product) []VariantHit {
	var hits []VariantHit
	for _, p := range products {
		for _, v := range p.Variants {
			v.ProductID = p.ID
			hits = append(hits, VariantHit{
				Variant:      v,
				ProductName:  p.Name,
				ProductUnit:  p.Unit,
				ProductNotes: p.Notes,
				UnitPrice:    v.Price,
			})
		}
	}
	return hits
}

type Customer struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CustomerAnalytics struct {
	TotalInvoices int     `json:"total_invoices"`
	TotalSpent    float64 `json:"total_spent"`
}

const (
	ImportStatusPending   = "pending"
	ImportStatusApproved  = "approved"
	ImportStatusRejected  = "rejected"
	ImportStatusCompleted = "completed"
)

type ImportOrder struct {
	ID             int64             `json:"id"`
	ImportCode     string            `json:"import_code"`
	SupplierName   string            `json:"supplier_name"`
	ImportDate     time.Time         `json:"import_date"`
	TotalAmount    float64           `json:"total_amount"`
	Status         string            `json:"status"`
	Notes          string            `json:"notes"`
	ImportImages   []string          `json:"import_images"`
	ApprovedBy     *int64            `json:"approved_by,omitempty"`
	ApprovedByName string            `json:"approved_by_name,omitempty"`
	ApprovedAt     *time.Time        `json:"approved_at,omitempty"`
	ApprovalNote   string            `json:"approval_note"`
	CreatedByName  string            `json:"created_by_name,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Items          []ImportOrderItem `json:"items,omitempty"`
}

type ImportOrderItem struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	VariantID   int64   `json:"variant_id"`
	ProductName string  `json:"product_name"`
	VariantName string  `json:"variant_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	Unit        string  `json:"unit"`
	Notes       string  `json:"notes"`
}

const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCreditCard   = "credit_card"
	PaymentMethodDebitCard    = "debit_card"
	PaymentMethodOther        = "other"

	PaymentStatusPending  = "pending"
	PaymentStatusPartial  = "partial"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"

	InvoiceStatusDraft     = "draft"
	InvoiceStatusConfirmed = "confirmed"
	InvoiceStatusCancelled = "cancelled"
)

var PaymentMethods = []string{
	PaymentMethodCash,
	PaymentMethodBankTransfer,
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodOther,
}

type Invoice struct {
	ID                 int64         `json:"id"`
	InvoiceCode        string        `json:"invoice_code"`
	CustomerID         *int64        `json:"customer_id,omitempty"`
	CustomerPhone      string        `json:"customer_phone"`
	CustomerName       string        `json:"customer_name"`
	CustomerAddress    string        `json:"customer_address,omitempty"`
	Subtotal           float64       `json:"subtotal"`
	DiscountAmount     float64       `json:"discount_amount"`
	DiscountPercentage float64       `json:"discount_percentage"`
	TaxAmount          float64       `json:"tax_amount"`
	TaxPercentage      float64       `json:"tax_percentage"`
	TotalAmount        float64       `json:"total_amount"`
	PaidAmount         float64       `json:"paid_amount"`
	PaymentStatus      string        `json:"payment_status"`
	Status             string        `json:"status"`
	Notes              string        `json:"notes,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	Items              []InvoiceItem `json:"items,omitempty"`
	Payments           []Payment     `json:"payments,omitempty"`
}

func (i Invoice) Outstanding() float64 {
	if rest := i.TotalAmount - i.PaidAmount; rest > 0 {
		return rest
	}
	return 0
}

type InvoiceItem struct {
	ID           int64   `json:"id"`
	ProductID    *int64  `json:"product_id,omitempty"`
	VariantID    *int64  `json:"variant_id,omitempty"`
	ProductName  string  `json:"product_name"`
	VariantName  string  `json:"variant_name"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	TotalPrice   float64 `json:"total_price"`
	ProductNotes string  `json:"product_notes,omitempty"`
}

type Payment struct {
	ID                   int64     `json:"id"`
	InvoiceID            int64     `json:"invoice_id"`
	Amount               float64   `json:"amount"`
	PaymentMethod        string    `json:"payment_method"`
	PaymentDate          time.Time `json:"payment_date"`
	TransactionReference string    `json:"transaction_reference,omitempty"`
	Notes                string    `json:"notes,omitempty"`
	Status               string    `json:"status"`
}

type InvoiceSummary struct {
	TotalInvoices int     `json:"total_invoices"`
	TotalAmount   float64 `json:"total_amount"`
	PaidAmount    float64 `json:"paid_amount"`
	PendingAmount float64 `json:"pending_amount"`
	TodayInvoices int     `json:"today_invoices"`
	TodayAmount   float64 `json:"today_amount"`
}

type AuditLog struct {
	ID             int64          `json:"id"`
	EntityType     string         `json:"entity_type"`
	EntityID       int64          `json:"entity_id"`
	Action         string         `json:"action"`
	UserID         *int64         `json:"user_id,omitempty"`
	UserName       string         `json:"user_name,omitempty"`
	OldData        map[string]any `json:"old_data,omitempty"`
	NewData        map[string]any `json:"new_data,omitempty"`
	ChangesSummary string         `json:"changes_summary,omitempty"`
	IPAddress      string         `json:"ip_address,omitempty"`
	UserAgent      string         `json:"user_agent,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
