package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"steelpos/internal/forms"
	"steelpos/internal/pos"
	"steelpos/internal/resource"
	"steelpos/internal/routes"

	"github.com/gosuri/uitable"
)

func inventoryPage(ctx context.Context, r *Runner, opts *Options, _ routes.Match) error {
	p, _, err := r.listParams(opts)
	if err != nil {
		return err
	}
	page, err := r.pos.ListImportOrders(ctx, p)
	if err != nil {
		return loadFailed("danh sách phiếu nhập", err)
	}
	return r.emit(opts, page, func(w io.Writer) {
		fmt.Fprintln(w, importOrdersTable(page.Items))
		writePageFooter(w, page)
	})
}

func importOrdersTable(orders []pos.ImportOrder) *uitable.Table {
	t := newTable("ID", "Mã phiếu", "Ngày nhập", "Nhà cung cấp", "Tổng tiền", "Trạng thái", "Người tạo")
	t.RightAlign(4)
	for _, o := range orders {
		t.AddRow(o.ID, o.ImportCode, formatDate(o.ImportDate), o.SupplierName,
			formatMoney(o.TotalAmount), pos.ImportStatusLabel(o.Status), orDash(o.CreatedByName))
	}
	return t
}

func inventoryCreatePage(ctx context.Context, r *Runner, opts *Options, _ routes.Match) error {
	file, err := readFile[importOrderFile](opts.File)
	if err != nil {
		return err
	}
	now := r.clock.Now()
	d := forms.NewImportOrderDraft(now)
	if err := file.applyHeader(d, now.Location()); err != nil {
		return err
	}
	if err := file.applyLines(d); err != nil {
		return err
	}
	if err := d.Validate().Err(); err != nil {
		return err
	}

	m := r.pos.CreateImportOrder()
	defer m.Close()
	order, err := m.Mutate(ctx, d.Payload())
	if err != nil {
		return err
	}
	r.toast("Tạo phiếu nhập %s thành công · %s", orDash(order.ImportCode), formatMoney(d.Total()))
	return r.emit(opts, order, func(w io.Writer) {
		if order.ID > 0 {
			fmt.Fprintf(w, "Xem: %s\n", routes.InventoryDetail.Path(fmt.Sprint(order.ID)))
		}
	})
}

func inventoryEditPage(ctx context.Context, r *Runner, opts *Options, m routes.Match) error {
	id, err := idParam(m)
	if err != nil {
		return err
	}
	file, err := readFile[importOrderFile](opts.File)
	if err != nil {
		return err
	}
	current, err := r.pos.ImportOrder(ctx, id)
	if err != nil {
		return loadFailed("phiếu nhập", err)
	}
	if current.Status != pos.ImportStatusPending {
		r.notice("Phiếu nhập đang ở trạng thái %s", pos.ImportStatusLabel(current.Status))
	}

	d := forms.ImportOrderDraftFrom(current)
	if err := file.applyHeader(d, r.clock.Now().Location()); err != nil {
		return err
	}
	if err := file.applyLines(d); err != nil {
		return err
	}
	if err := d.Validate().Err(); err != nil {
		return err
	}

	mut := r.pos.UpdateImportOrder()
	defer mut.Close()
	order, err := mut.Mutate(ctx, resource.EditInput[pos.ImportOrderInput]{ID: id, Data: d.Payload()})
	if err != nil {
		return err
	}
	r.toast("Cập nhật phiếu nhập %s thành công", orDash(d.Code))
	return r.emit(opts, order, func(io.Writer) {})
}

func inventoryDetailPage(ctx context.Context, r *Runner, opts *Options, m routes.Match) error {
	id, err := idParam(m)
	if err != nil {
		return err
	}

	if opts.Delete {
		mut := r.pos.DeleteImportOrder()
		defer mut.Close()
		if _, err := mut.Mutate(ctx, id); err != nil {
			return err
		}
		r.toast("Đã xoá phiếu nhập")
		return nil
	}

	if opts.Approve != "" {
		draft := forms.ApprovalDraft{Note: opts.Approve}
		if err := draft.Validate().Err(); err != nil {
			return err
		}
		if err := r.pos.ApproveImportOrder(ctx, id, draft.Payload().ApprovalNote); err != nil {
			return err
		}
		r.toast("Đã phê duyệt phiếu nhập")
	}

	order, err := r.pos.ImportOrder(ctx, id)
	if err != nil {
		return loadFailed("phiếu nhập", err)
	}
	return r.emit(opts, order, func(w io.Writer) {
		writeImportOrder(w, order)
	})
}

func writeImportOrder(w io.Writer, o pos.ImportOrder) {
	t := newFields()
	t.AddRow("Mã phiếu:", o.ImportCode)
	t.AddRow("Nhà cung cấp:", o.SupplierName)
	t.AddRow("Ngày nhập:", formatDate(o.ImportDate))
	t.AddRow("Trạng thái:", pos.ImportStatusLabel(o.Status))
	t.AddRow("Người tạo:", orDash(o.CreatedByName))
	if o.ApprovedAt != nil {
		t.AddRow("Phê duyệt:", fmt.Sprintf("%s · %s", orDash(o.ApprovedByName), formatDateTime(*o.ApprovedAt)))
		t.AddRow("Ghi chú duyệt:", orDash(o.ApprovalNote))
	}
	t.AddRow("Ghi chú:", orDash(o.Notes))
	if len(o.ImportImages) > 0 {
		t.AddRow("Hình ảnh:", strings.Join(o.ImportImages, "\n"))
	}
	fmt.Fprintln(w, t)

	items := newTable("#", "Sản phẩm", "Loại", "ĐVT", "SL", "Đơn giá", "Thành tiền", "Ghi chú")
	for i, it := range o.Items {
		total := it.TotalPrice
		if total == 0 {
			total = float64(it.Quantity) * it.UnitPrice
		}
		items.AddRow(i+1, it.ProductName, orDash(it.VariantName), it.Unit, it.Quantity,
			formatMoney(it.UnitPrice), formatMoney(total), orDash(it.Notes))
	}
	writeTable(w, "Sản phẩm", items)
	fmt.Fprintf(w, "Tổng cộng: %s\n", formatMoney(o.TotalAmount))
}
