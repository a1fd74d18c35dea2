package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"steelpos/internal/api"
	"steelpos/internal/forms"
	"steelpos/internal/pos"
	"steelpos/internal/resource"
	"steelpos/internal/routes"

	"github.com/gosuri/uitable"
	"go.uber.org/zap"
)

func salesPage(ctx context.Context, r *Runner, opts *Options, _ routes.Match) error {
	p, period, err := r.listParams(opts)
	if err != nil {
		return err
	}
	page, err := r.pos.ListInvoices(ctx, p)
	if err != nil {
		return loadFailed("danh sách hoá đơn", err)
	}
	return r.emit(opts, page, func(w io.Writer) {
		if !period.IsZero() {
			fmt.Fprintf(w, "Kỳ: %s\n", periodLabel(opts, period))
		}
		fmt.Fprintln(w, invoicesTable(page.Items))
		writePageFooter(w, page)
	})
}

func invoicesTable(invoices []pos.Invoice) *uitable.Table {
	t := newTable("Mã HĐ", "Ngày", "Khách hàng", "SĐT", "Tổng tiền", "Đã trả", "Thanh toán", "Trạng thái")
	t.RightAlign(4)
	t.RightAlign(5)
	for _, inv := range invoices {
		t.AddRow(
			inv.InvoiceCode,
			formatDate(inv.CreatedAt.Local()),
			inv.CustomerName,
			inv.CustomerPhone,
			formatMoney(inv.TotalAmount),
			formatMoney(inv.PaidAmount),
			pos.PaymentStatusLabel(inv.PaymentStatus),
			pos.InvoiceStatusLabel(inv.Status),
		)
	}
	return t
}

func salesCreatePage(ctx context.Context, r *Runner, opts *Options, _ routes.Match) error {
	if strings.TrimSpace(opts.Find) != "" {
		return r.findVariants(ctx, opts)
	}
	file, err := readFile[invoiceFile](opts.File)
	if err != nil {
		return err
	}

	d := forms.NewInvoiceDraft()
	file.applyHeader(d)
	if err := r.resolveCustomer(ctx, d); err != nil {
		return err
	}
	if err := applyLines(&d.Lines, file.Items, r.variantAdder(ctx, d), d.RemoveItem); err != nil {
		return err
	}
	if err := d.Validate().Err(); err != nil {
		return err
	}

	m := r.pos.CreateInvoice()
	defer m.Close()
	inv, err := m.Mutate(ctx, d.CreatePayload())
	if err != nil {
		return err
	}
	r.toast("Tạo hoá đơn %s thành công · %s", inv.InvoiceCode, formatMoney(inv.TotalAmount))
	return r.emit(opts, inv, func(w io.Writer) {
		fmt.Fprintf(w, "Xem: %s\n", routes.SalesDetail.Path(fmt.Sprint(inv.ID)))
	})
}

func salesEditPage(ctx context.Context, r *Runner, opts *Options, m routes.Match) error {
	id, err := idParam(m)
	if err != nil {
		return err
	}
	file, err := readFile[invoiceFile](opts.File)
	if err != nil {
		return err
	}
	current, err := r.pos.Invoice(ctx, id)
	if err != nil {
		return loadFailed("hoá đơn", err)
	}

	d := forms.InvoiceDraftFrom(current)
	file.applyHeader(d)
	if err := applyLines(&d.Lines, file.Items, r.variantAdder(ctx, d), d.RemoveItem); err != nil {
		return err
	}
	if err := d.Validate().Err(); err != nil {
		return err
	}

	mut := r.pos.UpdateInvoice()
	defer mut.Close()
	inv, err := mut.Mutate(ctx, resource.EditInput[pos.InvoiceInput]{ID: id, Data: d.UpdatePayload()})
	if err != nil {
		return err
	}
	r.toast("Cập nhật hoá đơn %s thành công", orDash(inv.InvoiceCode))
	return r.emit(opts, inv, func(io.Writer) {})
}

func salesDetailPage(ctx context.Context, r *Runner, opts *Options, m routes.Match) error {
	id, err := idParam(m)
	if err != nil {
		return err
	}

	switch {
	case opts.Delete:
		mut := r.pos.DeleteInvoice()
		defer mut.Close()
		if _, err := mut.Mutate(ctx, id); err != nil {
			return err
		}
		r.toast("Đã xoá hoá đơn")
		return nil
	case opts.PDFURL:
		link, err := r.pos.InvoicePDFURL(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, link)
		return nil
	case opts.PDF != "":
		return r.downloadPDF(ctx, id, opts.PDF)
	}

	inv, err := r.pos.Invoice(ctx, id)
	if err != nil {
		return loadFailed("hoá đơn", err)
	}
	if opts.Pay != 0 {
		if inv, err = r.recordPayment(ctx, opts, inv); err != nil {
			return err
		}
	}

	var logs []pos.AuditLog
	if opts.Audit {
		if logs, err = r.pos.InvoiceAuditLogs(ctx, id); err != nil {
			return loadFailed("lịch sử thay đổi", err)
		}
	}

	data := struct {
		pos.Invoice
		AuditLogs []pos.AuditLog `json:"audit_logs,omitempty"`
	}{inv, logs}
	return r.emit(opts, data, func(w io.Writer) {
		writeInvoice(w, inv)
		if opts.Audit {
			writeTable(w, "Lịch sử thay đổi", auditTable(logs))
		}
	})
}

func writeInvoice(w io.Writer, inv pos.Invoice) {
	t := newFields()
	t.AddRow("Mã hoá đơn:", inv.InvoiceCode)
	t.AddRow("Ngày:", formatDateTime(inv.CreatedAt))
	t.AddRow("Khách hàng:", fmt.Sprintf("%s · %s", inv.CustomerName, inv.CustomerPhone))
	t.AddRow("Địa chỉ:", orDash(inv.CustomerAddress))
	t.AddRow("Trạng thái:", pos.InvoiceStatusLabel(inv.Status))
	t.AddRow("Thanh toán:", pos.PaymentStatusLabel(inv.PaymentStatus))
	t.AddRow("Ghi chú:", orDash(inv.Notes))
	fmt.Fprintln(w, t)

	items := newTable("#", "Sản phẩm", "Loại", "ĐVT", "SL", "Đơn giá", "Thành tiền")
	for i, it := range inv.Items {
		items.AddRow(i+1, it.ProductName, orDash(it.VariantName), it.Unit,
			formatNumber(it.Quantity), formatMoney(it.UnitPrice), formatMoney(it.TotalPrice))
	}
	writeTable(w, "Sản phẩm", items)

	totals := newFields()
	totals.AddRow("Tạm tính:", formatMoney(inv.Subtotal))
	totals.AddRow("Giảm giá:", formatMoney(inv.DiscountAmount))
	if inv.TaxAmount != 0 {
		totals.AddRow("Thuế:", formatMoney(inv.TaxAmount))
	}
	totals.AddRow("Tổng cộng:", formatMoney(inv.TotalAmount))
	totals.AddRow("Đã trả:", formatMoney(inv.PaidAmount))
	totals.AddRow("Còn nợ:", formatMoney(inv.Outstanding()))
	fmt.Fprintln(w, totals)

	if len(inv.Payments) > 0 {
		payments := newTable("Ngày", "Số tiền", "Phương thức", "Tham chiếu", "Ghi chú")
		for _, p := range inv.Payments {
			payments.AddRow(formatDate(p.PaymentDate), formatMoney(p.Amount), pos.PaymentMethodLabel(p.PaymentMethod),
				orDash(p.TransactionReference), orDash(p.Notes))
		}
		writeTable(w, "Thanh toán", payments)
	}
}

func auditTable(logs []pos.AuditLog) *uitable.Table {
	t := newTable("Thời gian", "Người thực hiện", "Thao tác", "Nội dung")
	for _, l := range logs {
		t.AddRow(formatDateTime(l.CreatedAt), orDash(l.UserName), l.Action, orDash(l.ChangesSummary))
	}
	if len(logs) == 0 {
		t.AddRow("(chưa có thay đổi)")
	}
	return t
}

// recordPayment adds a payment for the outstanding amount or the amount
// given with --pay, then reloads the invoice.
func (r *Runner) recordPayment(ctx context.Context, opts *Options, inv pos.Invoice) (pos.Invoice, error) {
	d := forms.NewPaymentDraft(inv, r.clock.Now())
	if opts.Pay > 0 {
		d.Amount = opts.Pay
	}
	if opts.Method != "" {
		d.Method = opts.Method
	}
	if err := d.Validate().Err(); err != nil {
		return inv, err
	}

	m := r.pos.CreatePayment()
	defer m.Close()
	if _, err := m.Mutate(ctx, pos.PaymentInputFor{InvoiceID: inv.ID, Data: d.Payload(r.clock.Now())}); err != nil {
		return inv, err
	}
	r.toast("Đã ghi nhận thanh toán %s", formatMoney(d.Amount))
	return r.pos.Invoice(ctx, inv.ID)
}

func (r *Runner) downloadPDF(ctx context.Context, id int64, path string) error {
	pdf, err := r.pos.InvoicePDF(ctx, id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	r.toast("Đã tải hoá đơn PDF (%s) vào %s", formatSize(len(pdf)), path)
	return nil
}

// resolveCustomer links the draft to a saved customer by id or phone. An
// unknown phone is a new customer and is left for the backend to create.
func (r *Runner) resolveCustomer(ctx context.Context, d *forms.InvoiceDraft) error {
	if d.CustomerID != nil {
		c, err := r.pos.Customer(ctx, *d.CustomerID)
		if err != nil {
			return loadFailed("khách hàng", err)
		}
		d.SelectCustomer(c)
		return nil
	}
	phone := strings.TrimSpace(d.CustomerPhone)
	if phone == "" {
		return nil
	}
	c, err := r.pos.CustomerByPhone(ctx, phone)
	switch {
	case err == nil:
		d.SelectCustomer(c)
		r.notice("Khách hàng: %s", c.Name)
		return nil
	case api.IsNotFound(err):
		r.notice("Khách hàng mới: %s", phone)
		return nil
	default:
		return err
	}
}

// variantAdder resolves a new invoice row against the product so stock and
// duplicate checks run on the current variant.
func (r *Runner) variantAdder(ctx context.Context, d *forms.InvoiceDraft) func(lineFile) (forms.LineItem, error) {
	return func(row lineFile) (forms.LineItem, error) {
		if row.ProductID == nil || row.VariantID == nil {
			return forms.LineItem{}, errors.New("product_id and variant_id are required")
		}
		product, err := r.pos.Product(ctx, *row.ProductID)
		if err != nil {
			return forms.LineItem{}, err
		}
		for _, hit := range pos.Flatten([]pos.Product{product}) {
			if hit.ID == *row.VariantID {
				return d.AddVariant(hit)
			}
		}
		return forms.LineItem{}, fmt.Errorf("variant %d: %w", *row.VariantID, errUnknownVariant)
	}
}

func (r *Runner) findVariants(ctx context.Context, opts *Options) error {
	limit := pos.VariantSearchLimit
	if opts.Limit > 0 && opts.Limit < limit {
		limit = opts.Limit
	}
	offset := 0
	if opts.Page > 1 {
		offset = (opts.Page - 1) * limit
	}
	page, err := r.pos.SearchVariants(ctx, opts.Find, limit, offset)
	if err != nil {
		return err
	}
	r.logger.Debug("variant search", zap.String("term", opts.Find), zap.Int("hits", len(page.Items)))
	return r.emit(opts, page.Items, func(w io.Writer) {
		fmt.Fprintln(w, variantHitsTable(page.Items))
	})
}

func variantHitsTable(hits []pos.VariantHit) *uitable.Table {
	t := newTable("product_id", "variant_id", "Sản phẩm", "Loại", "SKU", "Tồn", "Giá")
	for _, h := range hits {
		stock := fmt.Sprint(h.Stock)
		if h.Stock <= 0 {
			stock = "hết hàng"
		}
		t.AddRow(h.ProductID, h.ID, h.ProductName, h.Name, h.SKU, stock, formatMoney(h.UnitPrice))
	}
	if len(hits) == 0 {
		t.AddRow("(không tìm thấy)")
	}
	return t
}
