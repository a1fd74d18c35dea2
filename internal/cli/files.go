package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"steelpos/internal/forms"
)

// Draft files are JSON. Every field is optional so an edit file only names
// what changes; rows are addressed by id, and rows without one are new.

type lineFile struct {
	ID          int64    `json:"id,omitempty"`
	Remove      bool     `json:"remove,omitempty"`
	ProductID   *int64   `json:"product_id,omitempty"`
	VariantID   *int64   `json:"variant_id,omitempty"`
	ProductName *string  `json:"product_name,omitempty"`
	VariantName *string  `json:"variant_name,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
}

func (f lineFile) key() string {
	return strconv.FormatInt(f.ID, 10)
}

func (f lineFile) patch(l *forms.LineItem) {
	if f.ProductID != nil {
		l.ProductID = f.ProductID
	}
	if f.VariantID != nil {
		l.VariantID = f.VariantID
	}
	setString(&l.ProductName, f.ProductName)
	setString(&l.VariantName, f.VariantName)
	setString(&l.Unit, f.Unit)
	setString(&l.Notes, f.Notes)
	if f.Quantity != nil {
		l.SetQuantity(*f.Quantity)
	}
	if f.UnitPrice != nil {
		l.SetUnitPrice(*f.UnitPrice)
	}
}

// applyLines replays the file rows on a draft's lines. add creates the row
// for an entry without id; remove drops or marks a saved row. Removals run
// after every addition and update so a file can replace the only saved row.
func applyLines(lines *forms.Lines, rows []lineFile, add func(lineFile) (forms.LineItem, error), remove func(key string) error) error {
	var removals []int
	for i, row := range rows {
		if row.ID == 0 {
			if row.Remove {
				return fmt.Errorf("items[%d]: remove needs an id", i)
			}
			line, err := add(row)
			if err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}
			if err := lines.Update(line.Key, row.patch); err != nil {
				return fmt.Errorf("items[%d]: %w", i, err)
			}
			continue
		}
		if row.Remove {
			removals = append(removals, i)
			continue
		}
		if err := lines.Update(row.key(), row.patch); err != nil {
			return fmt.Errorf("items[%d] (id %d): %w", i, row.ID, err)
		}
	}

	for _, i := range removals {
		if err := remove(rows[i].key()); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}
	return nil
}

type invoiceFile struct {
	CustomerID      *int64     `json:"customer_id,omitempty"`
	CustomerPhone   *string    `json:"customer_phone,omitempty"`
	CustomerName    *string    `json:"customer_name,omitempty"`
	CustomerAddress *string    `json:"customer_address,omitempty"`
	DiscountAmount  *float64   `json:"discount_amount,omitempty"`
	PaymentMethod   *string    `json:"payment_method,omitempty"`
	PaidAmount      *float64   `json:"paid_amount,omitempty"`
	Status          *string    `json:"status,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	Items           []lineFile `json:"items,omitempty"`
}

func (f invoiceFile) applyHeader(d *forms.InvoiceDraft) {
	if f.CustomerID != nil {
		d.CustomerID = f.CustomerID
	}
	setString(&d.CustomerPhone, f.CustomerPhone)
	setString(&d.CustomerName, f.CustomerName)
	setString(&d.CustomerAddress, f.CustomerAddress)
	setString(&d.PaymentMethod, f.PaymentMethod)
	setString(&d.Status, f.Status)
	setString(&d.Notes, f.Notes)
	if f.DiscountAmount != nil {
		d.Discount = *f.DiscountAmount
	}
	if f.PaidAmount != nil {
		d.PaidAmount = *f.PaidAmount
	}
}

type importOrderFile struct {
	ImportCode *string    `json:"import_code,omitempty"`
	Supplier   *string    `json:"supplier_name,omitempty"`
	ImportDate *string    `json:"import_date,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	Images     []string   `json:"import_images,omitempty"`
	Items      []lineFile `json:"items,omitempty"`
}

func (f importOrderFile) applyHeader(d *forms.ImportOrderDraft, loc *time.Location) error {
	setString(&d.Code, f.ImportCode)
	setString(&d.Supplier, f.Supplier)
	setString(&d.Notes, f.Notes)
	if f.ImportDate != nil {
		date, err := parseDate(*f.ImportDate, loc)
		if err != nil {
			return fmt.Errorf("import_date: %w", err)
		}
		d.Date = date
	}
	if f.Images != nil {
		d.Images = f.Images
	}
	return nil
}

// applyLines fills the blank starter row of a new order with the first
// added row instead of leaving it behind.
func (f importOrderFile) applyLines(d *forms.ImportOrderDraft) error {
	var blank string
	if visible := d.Lines.Visible(); len(visible) == 1 && visible[0].State == forms.StateNew && strings.TrimSpace(visible[0].ProductName) == "" {
		blank = visible[0].Key
	}
	return applyLines(&d.Lines, f.Items,
		func(lineFile) (forms.LineItem, error) {
			if blank != "" {
				line, _ := d.Lines.Get(blank)
				blank = ""
				return line, nil
			}
			return d.Lines.Add(forms.NewLineItem()), nil
		},
		d.Lines.Remove,
	)
}

type variantFile struct {
	ID     int64    `json:"id,omitempty"`
	Remove bool     `json:"remove,omitempty"`
	Name   *string  `json:"name,omitempty"`
	SKU    *string  `json:"sku,omitempty"`
	Stock  *int     `json:"stock,omitempty"`
	Price  *float64 `json:"price,omitempty"`
	Unit   *string  `json:"unit,omitempty"`
}

type productFile struct {
	Name       *string       `json:"name,omitempty"`
	Unit       *string       `json:"unit,omitempty"`
	Notes      *string       `json:"notes,omitempty"`
	CategoryID *int64        `json:"category_id,omitempty"`
	Variants   []variantFile `json:"variants,omitempty"`
}

var errUnknownVariant = errors.New("no such variant on the product")

func (f productFile) apply(d *forms.ProductDraft) error {
	setString(&d.Name, f.Name)
	setString(&d.Unit, f.Unit)
	setString(&d.Notes, f.Notes)
	if f.CategoryID != nil {
		d.CategoryID = f.CategoryID
	}

	for i, vf := range f.Variants {
		if vf.ID == 0 {
			if vf.Remove {
				return fmt.Errorf("variants[%d]: remove needs an id", i)
			}
			v := forms.VariantDraft{State: forms.StateNew, Unit: d.Unit}
			vf.patch(&v)
			d.Variants = append(d.Variants, v)
			continue
		}

		idx := -1
		for j, v := range d.Variants {
			if v.ID == vf.ID && v.State != forms.StateNew {
				idx = j
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("variants[%d] (id %d): %w", i, vf.ID, errUnknownVariant)
		}
		if vf.Remove {
			if err := d.RemoveVariant(idx); err != nil {
				return fmt.Errorf("variants[%d]: %w", i, err)
			}
			continue
		}
		vf.patch(&d.Variants[idx])
	}
	return nil
}

func (f variantFile) patch(v *forms.VariantDraft) {
	setString(&v.Name, f.Name)
	setString(&v.SKU, f.SKU)
	setString(&v.Unit, f.Unit)
	if f.Stock != nil {
		v.Stock = *f.Stock
	}
	if f.Price != nil {
		v.Price = *f.Price
	}
}

type customerFile struct {
	Phone   *string `json:"phone,omitempty"`
	Name    *string `json:"name,omitempty"`
	Address *string `json:"address,omitempty"`
}

func (f customerFile) apply(d *forms.CustomerDraft) {
	setString(&d.Phone, f.Phone)
	setString(&d.Name, f.Name)
	setString(&d.Address, f.Address)
}

func readFile[T any](path string) (T, error) {
	var out T
	if strings.TrimSpace(path) == "" {
		return out, ErrFileRequired
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
