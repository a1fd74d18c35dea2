package forms

import (
	"strings"

	"steelpos/internal/pos"
)

type LoginDraft struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

func (d LoginDraft) Validate() Violations {
	d.Username = strings.TrimSpace(d.Username)
	return check(d, map[string]string{
		"username.required": "Vui lòng nhập đầy đủ thông tin",
		"password.required": "Vui lòng nhập đầy đủ thông tin",
	})
}

var customerMessages = map[string]string{
	"phone.required": "Số điện thoại là bắt buộc",
	"phone.phone":    "Số điện thoại không hợp lệ",
	"name.required":  "Tên khách hàng là bắt buộc",
}

type CustomerDraft struct {
	Phone   string `form:"phone" validate:"required,phone"`
	Name    string `form:"name" validate:"required"`
	Address string `form:"address"`
}

func CustomerDraftFrom(c pos.Customer) CustomerDraft {
	return CustomerDraft{Phone: c.Phone, Name: c.Name, Address: c.Address}
}

func (d CustomerDraft) trimmed() CustomerDraft {
	d.Phone = strings.TrimSpace(d.Phone)
	d.Name = strings.TrimSpace(d.Name)
	d.Address = strings.TrimSpace(d.Address)
	return d
}

func (d CustomerDraft) Validate() Violations {
	return check(d.trimmed(), customerMessages)
}

func (d CustomerDraft) Payload() pos.CustomerInput {
	d = d.trimmed()
	return pos.CustomerInput{Phone: d.Phone, Name: d.Name, Address: optional(d.Address)}
}

var productMessages = map[string]string{
	"name.required":            "Tên sản phẩm là bắt buộc",
	"unit.required":            "Đơn vị là bắt buộc",
	"variants[].name.required": "Tên variant là bắt buộc",
	"variants[].sku.required":  "SKU là bắt buộc",
	"variants[].stock.gte":     "Số lượng tồn kho không được âm",
	"variants[].price.gt":      "Giá phải lớn hơn 0",
	"variants[].unit.required": "Đơn vị variant là bắt buộc",
}

type ProductDraft struct {
	Name       string         `form:"name" validate:"required"`
	Unit       string         `form:"unit" validate:"required"`
	Notes      string         `form:"notes"`
	CategoryID *int64         `form:"category_id"`
	Variants   []VariantDraft `form:"variants" validate:"dive"`
}

type VariantDraft struct {
	ID    int64     `form:"-"`
	State ItemState `form:"-"`
	Name  string    `form:"name" validate:"required"`
	SKU   string    `form:"sku" validate:"required"`
	Stock int       `form:"stock" validate:"gte=0"`
	Price float64   `form:"price" validate:"gt=0"`
	Unit  string    `form:"unit" validate:"required"`
}

func ProductDraftFrom(p pos.Product) ProductDraft {
	d := ProductDraft{Name: p.Name, Unit: p.Unit, Notes: p.Notes, CategoryID: p.CategoryID}
	for _, v := range p.Variants {
		d.Variants = append(d.Variants, VariantDraft{
			ID:    v.ID,
			State: StateExisting,
			Name:  v.Name,
			SKU:   v.SKU,
			Stock: v.Stock,
			Price: v.Price,
			Unit:  v.Unit,
		})
	}
	return d
}

// RemoveVariant drops a new variant and marks a saved one for deletion.
func (d *ProductDraft) RemoveVariant(i int) error {
	if i < 0 || i >= len(d.Variants) || d.Variants[i].State == StateMarkedForDeletion {
		return ErrUnknownItem
	}
	if d.Variants[i].State == StateNew {
		d.Variants = append(d.Variants[:i], d.Variants[i+1:]...)
		return nil
	}
	d.Variants[i].State = StateMarkedForDeletion
	return nil
}

// Validate checks the visible variants. Indexes in the field paths match
// d.Variants.
func (d ProductDraft) Validate() Violations {
	form := d
	form.Name = strings.TrimSpace(d.Name)
	form.Unit = strings.TrimSpace(d.Unit)
	form.Variants = make([]VariantDraft, len(d.Variants))
	for i, v := range d.Variants {
		v.Name = strings.TrimSpace(v.Name)
		v.SKU = strings.TrimSpace(v.SKU)
		v.Unit = strings.TrimSpace(v.Unit)
		if v.State == StateMarkedForDeletion {
			// Rows marked for deletion are not checked.
			v = VariantDraft{Name: "-", SKU: "-", Price: 1, Unit: "-"}
		}
		form.Variants[i] = v
	}
	return check(form, productMessages)
}

func (d ProductDraft) Payload() pos.ProductInput {
	in := pos.ProductInput{
		Name:       strings.TrimSpace(d.Name),
		Unit:       strings.TrimSpace(d.Unit),
		Notes:      strings.TrimSpace(d.Notes),
		CategoryID: d.CategoryID,
		Variants:   []pos.VariantInput{},
	}
	for _, v := range d.Variants {
		vi := pos.VariantInput{
			Name:  strings.TrimSpace(v.Name),
			SKU:   strings.TrimSpace(v.SKU),
			Stock: v.Stock,
			Price: v.Price,
			Unit:  strings.TrimSpace(v.Unit),
		}
		if v.State != StateNew {
			id := v.ID
			vi.ID = &id
		}
		vi.IsDeleted = v.State == StateMarkedForDeletion
		in.Variants = append(in.Variants, vi)
	}
	return in
}

type ApprovalDraft struct {
	Note string `form:"approval_note" validate:"required"`
}

func (d ApprovalDraft) Validate() Violations {
	d.Note = strings.TrimSpace(d.Note)
	return check(d, map[string]string{
		"approval_note.required": "Vui lòng nhập ghi chú phê duyệt",
	})
}

func (d ApprovalDraft) Payload() pos.ApprovalInput {
	return pos.ApprovalInput{ApprovalNote: strings.TrimSpace(d.Note)}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
