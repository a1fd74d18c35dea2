package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"steelpos/internal/pos"
	"steelpos/internal/resource"
	"steelpos/internal/routes"

	"github.com/gosuri/uitable"
)

type pageFunc func(ctx context.Context, r *Runner, opts *Options, m routes.Match) error

func pageFor(route routes.Route) (pageFunc, bool) {
	switch route {
	case routes.Dashboard:
		return dashboardPage, true
	case routes.Sales:
		return salesPage, true
	case routes.SalesCreate:
		return salesCreatePage, true
	case routes.SalesDetail:
		return salesDetailPage, true
	case routes.SalesEdit:
		return salesEditPage, true
	case routes.Inventory:
		return inventoryPage, true
	case routes.InventoryCreate:
		return inventoryCreatePage, true
	case routes.InventoryDetail:
		return inventoryDetailPage, true
	case routes.InventoryEdit:
		return inventoryEditPage, true
	case routes.Products:
		return productsPage, true
	case routes.ProductCreate:
		return productCreatePage, true
	case routes.ProductDetail:
		return productDetailPage, true
	case routes.ProductEdit:
		return productEditPage, true
	case routes.Customers:
		return customersPage, true
	case routes.CustomerCreate:
		return customerCreatePage, true
	case routes.CustomerDetail:
		return customerDetailPage, true
	case routes.CustomerEdit:
		return customerEditPage, true
	case routes.Reports:
		return reportsPage, true
	case routes.Analytics:
		return analyticsPage, true
	default:
		return nil, false
	}
}

func idParam(m routes.Match) (int64, error) {
	id, err := strconv.ParseInt(m.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q in %s", m.Param("id"), m.Path)
	}
	return id, nil
}

// listParams builds the list filters shared by the listing pages.
func (r *Runner) listParams(opts *Options) (resource.ListParams, periodRange, error) {
	period, err := resolvePeriod(opts, r.clock.Now())
	if err != nil {
		return resource.ListParams{}, periodRange{}, err
	}
	p := resource.ListParams{
		Search:        strings.TrimSpace(opts.Search),
		Page:          opts.Page,
		Limit:         opts.Limit,
		Status:        strings.TrimSpace(opts.Status),
		PaymentStatus: strings.TrimSpace(opts.PaymentStatus),
		SupplierName:  strings.TrimSpace(opts.Supplier),
		DateFrom:      period.DateFrom(),
		DateTo:        period.DateTo(),
	}
	return p, period, nil
}

func dashboardPage(ctx context.Context, r *Runner, opts *Options, _ routes.Match) error {
	summary, err := r.pos.InvoiceSummary(ctx)
	if err != nil {
		return loadFailed("tổng quan", err)
	}
	recent, err := r.pos.ListInvoices(ctx, resource.ListParams{Page: 1, Limit: 5})
	if err != nil {
		return loadFailed("hoá đơn gần đây", err)
	}

	data := struct {
		Summary pos.InvoiceSummary `json:"summary"`
		Recent  []pos.Invoice      `json:"recent_invoices"`
	}{summary, recent.Items}
	return r.emit(opts, data, func(w io.Writer) {
		writeSummary(w, summary)
		writeTable(w, "Hoá đơn gần đây", invoicesTable(recent.Items))
	})
}

func writeSummary(w io.Writer, s pos.InvoiceSummary) {
	t := newFields()
	t.AddRow("Hôm nay:", fmt.Sprintf("%d hoá đơn · %s", s.TodayInvoices, formatMoney(s.TodayAmount)))
	t.AddRow("Tổng hoá đơn:", strconv.Itoa(s.TotalInvoices))
	t.AddRow("Doanh thu:", formatMoney(s.TotalAmount))
	t.AddRow("Đã thu:", formatMoney(s.PaidAmount))
	t.AddRow("Còn nợ:", formatMoney(s.PendingAmount))
	writeTable(w, "Tổng quan", t)
}

type analyticsRow struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Invoices int     `json:"invoices"`
	Amount   float64 `json:"amount"`
	Paid     float64 `json:"paid"`
}

// analyticsPage breaks the period's invoices down by payment status and by
// day. Only the fetched page is counted; the footer says when it is partial.
func analyticsPage(ctx context.Context, r *Runner, opts *Options, _ routes.Match) error {
	if opts.Period == "" && opts.From == "" && opts.To == "" {
		opts.Period = PeriodThisMonth
	}
	p, period, err := r.listParams(opts)
	if err != nil {
		return err
	}
	p.Page, p.Limit = 1, resource.MaxPageSize

	summary, err := r.pos.InvoiceSummary(ctx)
	if err != nil {
		return loadFailed("tổng quan", err)
	}
	page, err := r.pos.ListInvoices(ctx, p)
	if err != nil {
		return loadFailed("hoá đơn", err)
	}

	byStatus := aggregate(page.Items, func(inv pos.Invoice) (string, string) {
		return inv.PaymentStatus, pos.PaymentStatusLabel(inv.PaymentStatus)
	})
	byDay := aggregate(page.Items, func(inv pos.Invoice) (string, string) {
		day := inv.CreatedAt.Local().Format(dateLayout)
		return day, formatDate(inv.CreatedAt.Local())
	})

	data := struct {
		Summary  pos.InvoiceSummary `json:"summary"`
		DateFrom string             `json:"date_from,omitempty"`
		DateTo   string             `json:"date_to,omitempty"`
		Counted  int                `json:"counted"`
		Total    int                `json:"total"`
		ByStatus []analyticsRow     `json:"by_payment_status"`
		ByDay    []analyticsRow     `json:"by_day"`
	}{summary, period.DateFrom(), period.DateTo(), len(page.Items), page.Total, byStatus, byDay}

	return r.emit(opts, data, func(w io.Writer) {
		writeSummary(w, summary)
		fmt.Fprintf(w, "\nKỳ: %s\n", periodLabel(opts, period))
		writeTable(w, "Theo trạng thái thanh toán", analyticsTable(byStatus))
		writeTable(w, "Theo ngày", analyticsTable(byDay))
		if page.Total > len(page.Items) {
			fmt.Fprintf(w, "Đã tính %d/%d hoá đơn; thu hẹp khoảng thời gian để xem đủ.\n", len(page.Items), page.Total)
		}
	})
}

func aggregate(invoices []pos.Invoice, group func(pos.Invoice) (key, label string)) []analyticsRow {
	rows := map[string]*analyticsRow{}
	for _, inv := range invoices {
		key, label := group(inv)
		row, ok := rows[key]
		if !ok {
			row = &analyticsRow{Key: key, Label: label}
			rows[key] = row
		}
		row.Invoices++
		row.Amount += inv.TotalAmount
		row.Paid += inv.PaidAmount
	}
	out := make([]analyticsRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func analyticsTable(rows []analyticsRow) *uitable.Table {
	t := newTable("", "Số HĐ", "Doanh thu", "Đã thu")
	for _, row := range rows {
		t.AddRow(row.Label, row.Invoices, formatMoney(row.Amount), formatMoney(row.Paid))
	}
	if len(rows) == 0 {
		t.AddRow("(không có dữ liệu)")
	}
	return t
}
