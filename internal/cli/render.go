package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"steelpos/internal/resource"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var vi = message.NewPrinter(language.Vietnamese)

// formatMoney renders whole dong with Vietnamese grouping: 1.234.567 ₫.
func formatMoney(v float64) string {
	return vi.Sprintf("%d ₫", int64(math.Round(v)))
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return vi.Sprintf("%d", int64(v))
	}
	return vi.Sprintf("%.2f", v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("02/01/2006 15:04")
}

func formatSize(n int) string {
	return humanize.Bytes(uint64(n))
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func newTable(header ...any) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 40
	table.Wrap = true
	if len(header) > 0 {
		table.AddRow(header...)
	}
	return table
}

// newFields is a two-column label: value listing for detail screens.
func newFields() *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true
	table.Separator = "  "
	return table
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, title string, table *uitable.Table) {
	if title != "" {
		fmt.Fprintf(w, "\n%s\n", title)
	}
	fmt.Fprintln(w, table)
}

func writePageFooter[T any](w io.Writer, p resource.Page[T]) {
	if len(p.Items) == 0 {
		fmt.Fprintln(w, "(không có dữ liệu)")
		return
	}
	pages := max(p.TotalPages, 1)
	fmt.Fprintf(w, "Trang %d/%d · %d bản ghi\n", p.Page, pages, p.Total)
	if p.HasNext() {
		fmt.Fprintf(w, "Xem tiếp: --page %d\n", p.Page+1)
	}
}

// toast prints the short success line shown after a write.
func (r *Runner) toast(format string, args ...any) {
	fmt.Fprintf(r.out, "✓ "+format+"\n", args...)
}

func (r *Runner) notice(format string, args ...any) {
	fmt.Fprintf(r.errOut, "• "+format+"\n", args...)
}

// emit writes data as JSON under --json and through human otherwise.
func (r *Runner) emit(opts *Options, data any, human func(w io.Writer)) error {
	if opts.JSON {
		return writeJSON(r.out, data)
	}
	human(r.out)
	return nil
}
