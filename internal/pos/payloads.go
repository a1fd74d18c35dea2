package pos

import "time"

// Write bodies. A nil ID on an item means the row is new; IsDeleted asks the
// backend to drop an existing row.

type CustomerInput struct {
	Phone    string  `json:"phone"`
	Name     string  `json:"name"`
	Address  *string `json:"address"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type ProductInput struct {
	Name       string         `json:"name"`
	CategoryID *int64         `json:"category_id,omitempty"`
	Unit       string         `json:"unit"`
	Notes      string         `json:"notes"`
	IsActive   *bool          `json:"is_active,omitempty"`
	Variants   []VariantInput `json:"variants"`
}

type VariantInput struct {
	ID        *int64  `json:"id,omitempty"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Stock     int     `json:"stock"`
	Price     float64 `json:"price"`
	Unit      string  `json:"unit"`
	IsActive  *bool   `json:"is_active,omitempty"`
	IsDeleted bool    `json:"is_deleted,omitempty"`
}

type ImportOrderInput struct {
	ImportCode   string                 `json:"import_code,omitempty"`
	SupplierName string                 `json:"supplier_name"`
	ImportDate   time.Time              `json:"import_date"`
	Notes        string                 `json:"notes"`
	ImportImages []string               `json:"import_images"`
	Status       string                 `json:"status,omitempty"`
	Items        []ImportOrderItemInput `json:"items"`
}

type ImportOrderItemInput struct {
	ID          *int64  `json:"id,omitempty"`
	ProductID   int64   `json:"product_id"`
	VariantID   int64   `json:"variant_id"`
	ProductName string  `json:"product_name"`
	VariantName string  `json:"variant_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Unit        string  `json:"unit"`
	Notes       string  `json:"notes"`
}

type ApprovalInput struct {
	ApprovalNote string `json:"approval_note"`
}

type InvoiceInput struct {
	CustomerID         *int64             `json:"customer_id,omitempty"`
	CustomerPhone      string             `json:"customer_phone"`
	CustomerName       string             `json:"customer_name"`
	CustomerAddress    *string            `json:"customer_address"`
	Items              []InvoiceItemInput `json:"items"`
	DiscountAmount     float64            `json:"discount_amount"`
	DiscountPercentage float64            `json:"discount_percentage"`
	TaxAmount          float64            `json:"tax_amount"`
	TaxPercentage      float64            `json:"tax_percentage"`
	PaymentMethod      *string            `json:"payment_method"`
	PaidAmount         float64            `json:"paid_amount"`
	Status             string             `json:"status,omitempty"`
	Notes              *string            `json:"notes"`
}

type InvoiceItemInput struct {
	ID           *int64  `json:"id,omitempty"`
	ProductID    *int64  `json:"product_id"`
	VariantID    *int64  `json:"variant_id"`
	ProductName  string  `json:"product_name"`
	VariantName  string  `json:"variant_name"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	ProductNotes *string `json:"product_notes"`
	IsDeleted    bool    `json:"is_deleted,omitempty"`
}

type PaymentInput struct {
	Amount               float64   `json:"amount"`
	PaymentMethod        string    `json:"payment_method"`
	PaymentDate          time.Time `json:"payment_date"`
	TransactionReference *string   `json:"transaction_reference"`
	Notes                *string   `json:"notes"`
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResult struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
