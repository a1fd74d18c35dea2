package cli

import (
	"context"
	"fmt"
	"io"

	"steelpos/internal/forms"
	"steelpos/internal/pos"
	"steelpos/internal/resource"
	"steelpos/internal/routes"

	"github.com/gosuri/uitable"
)

func productsPage(ctx context.Context, r *Runner, opts *Options, _ routes.Match) error {
	p, _, err := r.listParams(opts)
	if err != nil {
		return err
	}
	page, err := r.pos.ListProducts(ctx, p)
	if err != nil {
		return loadFailed("danh sách sản phẩm", err)
	}
	return r.emit(opts, page, func(w io.Writer) {
		t := newTable("ID", "Tên sản phẩm", "ĐVT", "Số loại", "Tồn kho", "Giá từ")
		for _, prod := range page.Items {
			stock, low := 0, 0.0
			for i, v := range prod.Variants {
				stock += v.Stock
				if i == 0 || v.Price < low {
					low = v.Price
				}
			}
			t.AddRow(prod.ID, prod.Name, prod.Unit, len(prod.Variants), stock, formatMoney(low))
		}
		fmt.Fprintln(w, t)
		writePageFooter(w, page)
	})
}

func productCreatePage(ctx context.Context, r *Runner, opts *Options, _ routes.Match) error {
	file, err := readFile[productFile](opts.File)
	if err != nil {
		return err
	}
	var d forms.ProductDraft
	if err := file.apply(&d); err != nil {
		return err
	}
	if err := d.Validate().Err(); err != nil {
		return err
	}

	m := r.pos.CreateProduct()
	defer m.Close()
	product, err := m.Mutate(ctx, d.Payload())
	if err != nil {
		return err
	}
	r.toast("Tạo sản phẩm %s thành công", product.Name)
	return r.emit(opts, product, func(w io.Writer) {
		writeProduct(w, product)
	})
}

func productEditPage(ctx context.Context, r *Runner, opts *Options, m routes.Match) error {
	id, err := idParam(m)
	if err != nil {
		return err
	}
	file, err := readFile[productFile](opts.File)
	if err != nil {
		return err
	}
	current, err := r.pos.Product(ctx, id)
	if err != nil {
		return loadFailed("sản phẩm", err)
	}

	d := forms.ProductDraftFrom(current)
	if err := file.apply(&d); err != nil {
		return err
	}
	if err := d.Validate().Err(); err != nil {
		return err
	}

	mut := r.pos.UpdateProduct()
	defer mut.Close()
	product, err := mut.Mutate(ctx, resource.EditInput[pos.ProductInput]{ID: id, Data: d.Payload()})
	if err != nil {
		return err
	}
	r.toast("Cập nhật sản phẩm %s thành công", orDash(product.Name))
	return r.emit(opts, product, func(io.Writer) {})
}

func productDetailPage(ctx context.Context, r *Runner, opts *Options, m routes.Match) error {
	id, err := idParam(m)
	if err != nil {
		return err
	}
	if opts.Delete {
		mut := r.pos.DeleteProduct()
		defer mut.Close()
		if _, err := mut.Mutate(ctx, id); err != nil {
			return err
		}
		r.toast("Đã xoá sản phẩm")
		return nil
	}

	product, err := r.pos.Product(ctx, id)
	if err != nil {
		return loadFailed("sản phẩm", err)
	}
	if len(product.Variants) == 0 {
		if product.Variants, err = r.pos.ProductVariants(ctx, id); err != nil {
			return loadFailed("các loại sản phẩm", err)
		}
	}
	return r.emit(opts, product, func(w io.Writer) {
		writeProduct(w, product)
	})
}

func writeProduct(w io.Writer, p pos.Product) {
	t := newFields()
	t.AddRow("Tên sản phẩm:", p.Name)
	t.AddRow("Đơn vị:", p.Unit)
	t.AddRow("Ghi chú:", orDash(p.Notes))
	fmt.Fprintln(w, t)

	variants := newTable("ID", "Tên loại", "SKU", "Tồn kho", "Đã bán", "Giá", "ĐVT")
	for _, v := range p.Variants {
		variants.AddRow(v.ID, v.Name, v.SKU, v.Stock, v.Sold, formatMoney(v.Price), v.Unit)
	}
	writeTable(w, "Các loại", variants)
}

func customersPage(ctx context.Context, r *Runner, opts *Options, _ routes.Match) error {
	p, _, err := r.listParams(opts)
	if err != nil {
		return err
	}
	page, err := r.pos.ListCustomers(ctx, p)
	if err != nil {
		return loadFailed("danh sách khách hàng", err)
	}
	return r.emit(opts, page, func(w io.Writer) {
		fmt.Fprintln(w, customersTable(page.Items))
		writePageFooter(w, page)
	})
}

func customersTable(customers []pos.Customer) *uitable.Table {
	t := newTable("ID", "Tên khách hàng", "SĐT", "Địa chỉ", "Ngày tạo")
	for _, c := range customers {
		t.AddRow(c.ID, c.Name, c.Phone, orDash(c.Address), formatDate(c.CreatedAt))
	}
	return t
}

func customerCreatePage(ctx context.Context, r *Runner, opts *Options, _ routes.Match) error {
	file, err := readFile[customerFile](opts.File)
	if err != nil {
		return err
	}
	var d forms.CustomerDraft
	file.apply(&d)
	if err := d.Validate().Err(); err != nil {
		return err
	}

	m := r.pos.CreateCustomer()
	defer m.Close()
	customer, err := m.Mutate(ctx, d.Payload())
	if err != nil {
		return err
	}
	r.toast("Tạo khách hàng %s thành công", customer.Name)
	return r.emit(opts, customer, func(w io.Writer) {
		fmt.Fprintf(w, "Xem: %s\n", routes.CustomerDetail.Path(fmt.Sprint(customer.ID)))
	})
}

func customerEditPage(ctx context.Context, r *Runner, opts *Options, m routes.Match) error {
	id, err := idParam(m)
	if err != nil {
		return err
	}
	file, err := readFile[customerFile](opts.File)
	if err != nil {
		return err
	}
	current, err := r.pos.Customer(ctx, id)
	if err != nil {
		return loadFailed("khách hàng", err)
	}

	d := forms.CustomerDraftFrom(current)
	file.apply(&d)
	if err := d.Validate().Err(); err != nil {
		return err
	}

	mut := r.pos.UpdateCustomer()
	defer mut.Close()
	customer, err := mut.Mutate(ctx, resource.EditInput[pos.CustomerInput]{ID: id, Data: d.Payload()})
	if err != nil {
		return err
	}
	r.toast("Cập nhật khách hàng %s thành công", orDash(customer.Name))
	return r.emit(opts, customer, func(io.Writer) {})
}

func customerDetailPage(ctx context.Context, r *Runner, opts *Options, m routes.Match) error {
	id, err := idParam(m)
	if err != nil {
		return err
	}
	customer, err := r.pos.Customer(ctx, id)
	if err != nil {
		return loadFailed("khách hàng", err)
	}
	stats, err := r.pos.CustomerAnalytics(ctx, id)
	if err != nil {
		return loadFailed("thống kê khách hàng", err)
	}
	invoices, total, err := r.pos.CustomerInvoices(ctx, id)
	if err != nil {
		return loadFailed("hoá đơn của khách hàng", err)
	}

	data := struct {
		pos.Customer
		Analytics pos.CustomerAnalytics `json:"analytics"`
		Invoices  []pos.Invoice         `json:"invoices"`
		Total     int                   `json:"total_invoices"`
	}{customer, stats, invoices, total}
	return r.emit(opts, data, func(w io.Writer) {
		t := newFields()
		t.AddRow("Tên khách hàng:", customer.Name)
		t.AddRow("SĐT:", customer.Phone)
		t.AddRow("Địa chỉ:", orDash(customer.Address))
		t.AddRow("Số hoá đơn:", stats.TotalInvoices)
		t.AddRow("Tổng chi tiêu:", formatMoney(stats.TotalSpent))
		fmt.Fprintln(w, t)
		writeTable(w, fmt.Sprintf("Hoá đơn (%d)", total), invoicesTable(invoices))
	})
}
