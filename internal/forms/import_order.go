package forms

import (
	"fmt"
	"math"
	"strings"
	"time"

	"steelpos/internal/pos"
)

// ImportCode builds the client-side order code: IMP, the date, and the last
// four digits of the millisecond clock.
func ImportCode(now time.Time) string {
	return fmt.Sprintf("IMP%s%04d", now.Format("20060102"), now.UnixMilli()%10000)
}

type ImportOrderDraft struct {
	Code     string    `form:"import_code"`
	Supplier string    `form:"supplier" validate:"required"`
	Date     time.Time `form:"import_date" validate:"required"`
	Notes    string    `form:"notes"`
	Images   []string  `form:"-"`
	Lines    Lines     `form:"-"`
}

// NewImportOrderDraft starts an empty order dated today with one blank row.
func NewImportOrderDraft(now time.Time) *ImportOrderDraft {
	d := &ImportOrderDraft{
		Code: ImportCode(now),
		Date: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
	}
	d.Lines.Add(NewLineItem())
	return d
}

func ImportOrderDraftFrom(o pos.ImportOrder) *ImportOrderDraft {
	d := &ImportOrderDraft{
		Code:     o.ImportCode,
		Supplier: o.SupplierName,
		Date:     o.ImportDate,
		Notes:    o.Notes,
		Images:   append([]string(nil), o.ImportImages...),
	}
	for _, it := range o.Items {
		line := ExistingLineItem(it.ID)
		line.ProductID = nonZero(it.ProductID)
		line.VariantID = nonZero(it.VariantID)
		line.ProductName = it.ProductName
		line.VariantName = it.VariantName
		line.Unit = it.Unit
		line.Notes = it.Notes
		line.Quantity = float64(it.Quantity)
		line.UnitPrice = it.UnitPrice
		d.Lines.Add(line)
	}
	if len(d.Lines.Visible()) == 0 {
		d.Lines.Add(NewLineItem())
	}
	return d
}

// SelectProduct fills a row from a picked product and its first variant.
func (d *ImportOrderDraft) SelectProduct(key string, p pos.Product) error {
	return d.Lines.Update(key, func(l *LineItem) {
		id := p.ID
		l.ProductID = &id
		l.ProductName = p.Name
		l.Unit = p.Unit
		l.VariantID = nil
		l.VariantName = ""
		if len(p.Variants) > 0 {
			vid := p.Variants[0].ID
			l.VariantID = &vid
			l.VariantName = p.Variants[0].Name
		}
	})
}

func (d *ImportOrderDraft) SelectVariant(key string, v pos.Variant) error {
	return d.Lines.Update(key, func(l *LineItem) {
		id := v.ID
		l.VariantID = &id
		l.VariantName = v.Name
	})
}

func (d *ImportOrderDraft) Validate() Violations {
	form := *d
	form.Supplier = strings.TrimSpace(d.Supplier)
	out := check(form, map[string]string{
		"supplier.required":    "Không được bỏ trống nhà cung cấp",
		"import_date.required": "Không được bỏ trống ngày nhập kho",
	})

	hasProduct := false
	for _, l := range d.Lines.Visible() {
		if strings.TrimSpace(l.ProductName) != "" && l.Quantity > 0 {
			hasProduct = true
			break
		}
	}
	if !hasProduct {
		out.Add("products", "Không được bỏ trống sản phẩm")
	}
	return out
}

func (d *ImportOrderDraft) Total() float64 {
	return d.Lines.Total()
}

// Payload drops rows marked for deletion and leaves the id off new rows.
func (d *ImportOrderDraft) Payload() pos.ImportOrderInput {
	in := pos.ImportOrderInput{
		ImportCode:   d.Code,
		SupplierName: strings.TrimSpace(d.Supplier),
		ImportDate:   d.Date,
		Notes:        strings.TrimSpace(d.Notes),
		ImportImages: append([]string{}, d.Images...),
		Items:        []pos.ImportOrderItemInput{},
	}
	for _, l := range d.Lines.Visible() {
		in.Items = append(in.Items, pos.ImportOrderItemInput{
			ID:          l.idPtr(),
			ProductID:   valueOr(l.ProductID, 1),
			VariantID:   valueOr(l.VariantID, 1),
			ProductName: l.ProductName,
			VariantName: l.VariantName,
			Quantity:    int(math.Round(l.Quantity)),
			UnitPrice:   l.UnitPrice,
			Unit:        l.Unit,
			Notes:       l.Notes,
		})
	}
	return in
}

func nonZero(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func valueOr(p *int64, fallback int64) int64 {
	if p == nil {
		return fallback
	}
	return *p
}
