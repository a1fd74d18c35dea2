package forms

import (
	"errors"
	"slices"
	"strings"
	"time"

	"steelpos/internal/pos"
)

var (
	ErrOutOfStock    = errors.New("variant is out of stock")
	ErrDuplicateItem = errors.New("variant is already on the invoice")
)

type InvoiceDraft struct {
	ID              int64
	CustomerID      *int64
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Lines           Lines
	Discount        float64
	PaymentMethod   string
	PaidAmount      float64
	Notes           string
	Status          string
}

func NewInvoiceDraft() *InvoiceDraft {
	return &InvoiceDraft{PaymentMethod: pos.PaymentMethodCash}
}

func InvoiceDraftFrom(inv pos.Invoice) *InvoiceDraft {
	d := &InvoiceDraft{
		ID:              inv.ID,
		CustomerID:      inv.CustomerID,
		CustomerName:    inv.CustomerName,
		CustomerPhone:   inv.CustomerPhone,
		CustomerAddress: inv.CustomerAddress,
		Discount:        inv.DiscountAmount,
		PaidAmount:      inv.PaidAmount,
		Notes:           inv.Notes,
		Status:          inv.Status,
	}
	for _, it := range inv.Items {
		line := ExistingLineItem(it.ID)
		line.ProductID = it.ProductID
		line.VariantID = it.VariantID
		line.ProductName = it.ProductName
		line.VariantName = it.VariantName
		line.Unit = it.Unit
		line.Notes = it.ProductNotes
		line.Quantity = it.Quantity
		line.UnitPrice = it.UnitPrice
		d.Lines.Add(line)
	}
	if len(inv.Payments) > 0 {
		d.PaymentMethod = inv.Payments[0].PaymentMethod
	}
	return d
}

func (d *InvoiceDraft) SelectCustomer(c pos.Customer) {
	id := c.ID
	d.CustomerID = &id
	d.CustomerName = c.Name
	d.CustomerPhone = c.Phone
	d.CustomerAddress = c.Address
}

// AddVariant appends a picked variant with quantity one. Variants without
// stock and variants already on the invoice are refused.
func (d *InvoiceDraft) AddVariant(hit pos.VariantHit) (LineItem, error) {
	if hit.Stock <= 0 {
		return LineItem{}, ErrOutOfStock
	}
	for _, l := range d.Lines.Visible() {
		if l.VariantID != nil && *l.VariantID == hit.ID {
			return LineItem{}, ErrDuplicateItem
		}
	}

	productID, variantID := hit.ProductID, hit.ID
	line := NewLineItem()
	line.ProductID = &productID
	line.VariantID = &variantID
	line.ProductName = hit.ProductName
	line.VariantName = hit.Name
	line.Unit = hit.Unit
	if line.Unit == "" {
		line.Unit = hit.ProductUnit
	}
	line.Notes = hit.ProductNotes
	line.Quantity = 1
	line.UnitPrice = hit.UnitPrice
	line.Stock = hit.Stock
	return d.Lines.Add(line), nil
}

// RemoveItem differs from Lines.Remove in that an invoice may end up empty
// while it is edited; Validate rejects the empty invoice.
func (d *InvoiceDraft) RemoveItem(key string) error {
	err := d.Lines.Remove(key)
	if !errors.Is(err, ErrLastItem) {
		return err
	}
	i := d.Lines.index(key)
	if d.Lines.items[i].State == StateNew {
		d.Lines.items = slices.Delete(d.Lines.items, i, i+1)
	} else {
		d.Lines.items[i].State = StateMarkedForDeletion
	}
	return nil
}

func (d *InvoiceDraft) Subtotal() float64 {
	return d.Lines.Total()
}

func (d *InvoiceDraft) Total() float64 {
	return max(d.Subtotal()-d.Discount, 0)
}

func (d *InvoiceDraft) Outstanding() float64 {
	return max(d.Total()-d.PaidAmount, 0)
}

func (d *InvoiceDraft) Validate() Violations {
	out := Violations{}
	if len(d.Lines.Visible()) == 0 {
		out.Add("items", "Vui lòng thêm ít nhất một sản phẩm")
	}
	if strings.TrimSpace(d.CustomerName) == "" || strings.TrimSpace(d.CustomerPhone) == "" {
		out.Add("customer", "Vui lòng nhập đầy đủ tên và số điện thoại khách hàng")
	} else if !phonePattern.MatchString(strings.TrimSpace(d.CustomerPhone)) {
		out.Add("customer_phone", "Số điện thoại không hợp lệ")
	}
	for _, l := range d.Lines.Visible() {
		if l.Quantity <= 0 {
			out.Add("items["+l.Key+"].quantity", "Số lượng phải lớn hơn 0")
		}
		if l.UnitPrice < 0 {
			out.Add("items["+l.Key+"].unit_price", "Đơn giá không được âm")
		}
	}
	if d.Discount < 0 {
		out.Add("discount", "Giảm giá không được âm")
	} else if d.Discount > d.Subtotal() && d.Subtotal() > 0 {
		out.Add("discount", "Giảm giá vượt quá tổng tiền hàng")
	}
	if d.PaymentMethod != "" && !slices.Contains(pos.PaymentMethods, d.PaymentMethod) {
		out.Add("payment_method", "Phương thức thanh toán không hợp lệ")
	}
	if d.PaidAmount < 0 {
		out.Add("paid_amount", "Số tiền đã trả không được âm")
	}
	return out
}

// CreatePayload sends the visible rows without ids.
func (d *InvoiceDraft) CreatePayload() pos.InvoiceInput {
	in := d.header()
	for _, l := range d.Lines.Visible() {
		item := invoiceItem(l)
		item.ID = nil
		in.Items = append(in.Items, item)
	}
	return in
}

// UpdatePayload sends every row: new rows without an id, saved rows with
// theirs, and removed saved rows with is_deleted.
func (d *InvoiceDraft) UpdatePayload() pos.InvoiceInput {
	in := d.header()
	for _, l := range d.Lines.All() {
		item := invoiceItem(l)
		item.IsDeleted = l.State == StateMarkedForDeletion
		in.Items = append(in.Items, item)
	}
	return in
}

func (d *InvoiceDraft) header() pos.InvoiceInput {
	in := pos.InvoiceInput{
		CustomerID:      d.CustomerID,
		CustomerPhone:   strings.TrimSpace(d.CustomerPhone),
		CustomerName:    strings.TrimSpace(d.CustomerName),
		CustomerAddress: optional(strings.TrimSpace(d.CustomerAddress)),
		Items:           []pos.InvoiceItemInput{},
		DiscountAmount:  d.Discount,
		PaidAmount:      d.PaidAmount,
		Status:          d.Status,
		Notes:           optional(strings.TrimSpace(d.Notes)),
	}
	if d.PaymentMethod != "" {
		method := d.PaymentMethod
		in.PaymentMethod = &method
	}
	return in
}

func invoiceItem(l LineItem) pos.InvoiceItemInput {
	return pos.InvoiceItemInput{
		ID:           l.idPtr(),
		ProductID:    l.ProductID,
		VariantID:    l.VariantID,
		ProductName:  l.ProductName,
		VariantName:  l.VariantName,
		Unit:         l.Unit,
		Quantity:     l.Quantity,
		UnitPrice:    l.UnitPrice,
		ProductNotes: optional(strings.TrimSpace(l.Notes)),
	}
}

type PaymentDraft struct {
	Amount    float64   `form:"amount" validate:"gt=0"`
	Method    string    `form:"payment_method" validate:"required,oneof=cash bank_transfer credit_card debit_card other"`
	Date      time.Time `form:"payment_date"`
	Reference string    `form:"transaction_reference"`
	Notes     string    `form:"notes"`
	// Outstanding caps Amount when set.
	Outstanding float64 `form:"-"`
}

func NewPaymentDraft(inv pos.Invoice, now time.Time) PaymentDraft {
	return PaymentDraft{
		Amount:      inv.Outstanding(),
		Method:      pos.PaymentMethodCash,
		Date:        now,
		Outstanding: inv.Outstanding(),
	}
}

func (d PaymentDraft) Validate() Violations {
	out := check(d, map[string]string{
		"amount.gt":               "Số tiền thanh toán phải lớn hơn 0",
		"payment_method.required": "Vui lòng chọn phương thức thanh toán",
		"payment_method.oneof":    "Phương thức thanh toán không hợp lệ",
	})
	if d.Outstanding > 0 && d.Amount > d.Outstanding {
		out.Add("amount", "Số tiền thanh toán vượt quá số tiền còn nợ")
	}
	return out
}

// Payload fills in now when no payment date was chosen.
func (d PaymentDraft) Payload(now time.Time) pos.PaymentInput {
	date := d.Date
	if date.IsZero() {
		date = now
	}
	return pos.PaymentInput{
		Amount:               d.Amount,
		PaymentMethod:        d.Method,
		PaymentDate:          date,
		TransactionReference: optional(strings.TrimSpace(d.Reference)),
		Notes:                optional(strings.TrimSpace(d.Notes)),
	}
}
