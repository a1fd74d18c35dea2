package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"steelpos/internal/api"
	"steelpos/internal/config"
	"steelpos/internal/forms"
	"steelpos/internal/llm"
	"steelpos/internal/pos"
	"steelpos/internal/query"
	"steelpos/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/juju/clock/testclock"
	openrouter "github.com/revrost/go-openrouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	runner *Runner
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(data any) map[string]any {
	return map[string]any{"success": true, "message": "ok", "data": data}
}

func fail(message string) map[string]any {
	return map[string]any{"success": false, "message": message}
}

// backend is a fake API that already knows the signed-in user.
func backend() chi.Router {
	r := chi.NewRouter()
	r.Get("/api/auth/whoami", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{"id": 1, "username": "admin", "full_name": "Quản trị", "role": "super_admin"}))
	})
	return r
}

func newFixture(t *testing.T, r chi.Router, signedIn bool) fixture {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIBaseURL = srv.URL + "/api"
	store := session.NewMemoryStore()
	if signedIn {
		require.NoError(t, store.Save(context.Background(), session.Session{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			User:         &pos.User{ID: 1, Username: "admin"},
		}))
	}
	clk := testclock.NewClock(now)
	cache := query.NewCache(clk, nil, zap.NewNop())
	caller := api.NewClient(cfg, store, nil, zap.NewNop())
	posClient := pos.NewClient(cfg, caller, cache, store, clk, zap.NewNop())
	llmClient, err := llm.NewClient(cfg, zap.NewNop())
	require.NoError(t, err)

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	runner := NewRunner(cfg, zap.NewNop(), posClient, llmClient).
		WithIO(strings.NewReader(""), out, errOut).
		WithClock(clk)
	return fixture{runner: runner, out: out, errOut: errOut}
}

func writeDraft(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "draft.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1.234.567 ₫", formatMoney(1234567))
	assert.Equal(t, "0 ₫", formatMoney(0))
	assert.Equal(t, "1.000 ₫", formatMoney(999.6))
	assert.Equal(t, "12", formatNumber(12))
}

func TestPresetRange(t *testing.T) {
	wednesday := time.Date(2024, 3, 13, 15, 30, 0, 0, time.UTC)
	day := func(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

	cases := []struct {
		preset   string
		from, to time.Time
	}{
		{PeriodToday, day(3, 13), day(3, 13)},
		{PeriodYesterday, day(3, 12), day(3, 12)},
		{PeriodThisWeek, day(3, 11), day(3, 17)},
		{PeriodLastWeek, day(3, 4), day(3, 10)},
		{PeriodThisMonth, day(3, 1), day(3, 31)},
		{PeriodLastMonth, day(2, 1), day(2, 29)},
		{PeriodThisYear, day(1, 1), day(12, 31)},
		{PeriodLastYear, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.preset, func(t *testing.T) {
			p, err := presetRange(tc.preset, wednesday)
			require.NoError(t, err)
			assert.Equal(t, tc.from, p.From)
			assert.Equal(t, tc.to, p.To)
		})
	}

	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	p, err := presetRange(PeriodLastMonth, jan)
	require.NoError(t, err)
	assert.Equal(t, "2023-12-01", p.DateFrom())
	assert.Equal(t, "2023-12-31", p.DateTo())

	_, err = presetRange("fortnight", wednesday)
	assert.ErrorContains(t, err, `unknown --period "fortnight"`)
}

func TestResolvePeriodFlags(t *testing.T) {
	p, err := resolvePeriod(&Options{Period: PeriodToday, From: "2024-02-01"}, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", p.DateFrom())
	assert.Equal(t, "2024-03-01", p.DateTo())

	_, err = resolvePeriod(&Options{From: "2024-03-05", To: "2024-03-01"}, now)
	assert.ErrorContains(t, err, "--to must not be before --from")

	_, err = resolvePeriod(&Options{From: "05/03/2024"}, now)
	assert.ErrorContains(t, err, "invalid --from date")

	p, err = resolvePeriod(&Options{}, now)
	require.NoError(t, err)
	assert.True(t, p.IsZero())
}

func TestParseArgs(t *testing.T) {
	f := newFixture(t, backend(), false)

	var opts Options
	require.NoError(t, f.runner.parseArgs(&opts, []string{"--json", "/sales", "--period", "today", "--limit", "5"}))
	assert.Equal(t, "/sales", opts.Target)
	assert.True(t, opts.JSON)
	assert.Equal(t, PeriodToday, opts.Period)
	assert.Equal(t, 5, opts.Limit)

	opts = Options{}
	require.NoError(t, f.runner.parseArgs(&opts, []string{"/reports", "doanh", "thu", "-i"}))
	assert.Equal(t, "doanh thu", opts.Query)
	assert.True(t, opts.Interactive)

	opts = Options{}
	require.NoError(t, f.runner.parseArgs(&opts, nil))
	assert.Equal(t, "/dashboard", opts.Target)

	opts = Options{}
	assert.ErrorContains(t, f.runner.parseArgs(&opts, []string{"/sales", "extra"}), "only the /reports page")
}

func TestFriendlyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"out of stock", forms.ErrOutOfStock, "Sản phẩm này đã hết hàng"},
		{"duplicate", forms.ErrDuplicateItem, "Sản phẩm này đã có trong hoá đơn"},
		{"transport", &api.Error{Kind: api.KindTransport}, "Không thể kết nối tới máy chủ"},
		{"auth", &api.Error{Kind: api.KindAuth, Status: 401}, "Phiên đăng nhập đã hết hạn"},
		{"backend message", &api.Error{Kind: api.KindHTTP, Status: 400, Message: "Mã hoá đơn đã tồn tại"}, "Mã hoá đơn đã tồn tại"},
		{"not found", &api.Error{Kind: api.KindHTTP, Status: 404}, "Không tìm thấy dữ liệu."},
		{"violations", forms.Violations{"phone": "Số điện thoại là bắt buộc"}, "phone: Số điện thoại là bắt buộc"},
		{"sign in", ErrSignInRequired, "Vui lòng đăng nhập"},
		{"load", loadFailed("hoá đơn", &api.Error{Kind: api.KindHTTP, Status: 500}), "┃ Lỗi: không thể tải hoá đơn."},
		{"llm", llm.ErrNotConfigured, "LLM_API_KEY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, FriendlyError(tc.err), tc.want)
		})
	}
	assert.Empty(t, FriendlyError(nil))
}

func TestRunWithoutSessionNeedsSignIn(t *testing.T) {
	f := newFixture(t, backend(), false)
	err := f.runner.Run(context.Background(), []string{"/sales"})
	assert.ErrorIs(t, err, ErrSignInRequired)
}

func TestRunUnknownPathLandsOnDashboard(t *testing.T) {
	r := backend()
	r.Get("/api/invoices/summary", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{"total_invoices": 3, "total_amount": 2500000, "today_invoices": 1, "today_amount": 1200000}))
	})
	r.Get("/api/invoices", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{"invoices": []any{}, "total": 0}))
	})
	f := newFixture(t, r, true)

	require.NoError(t, f.runner.Run(context.Background(), []string{"/warehouse"}))
	assert.Contains(t, f.errOut.String(), "Chuyển tới /dashboard")
	assert.Contains(t, f.out.String(), "1 hoá đơn · 1.200.000 ₫")
	assert.Contains(t, f.out.String(), "2.500.000 ₫")
}

func TestRunSalesListAppliesPeriod(t *testing.T) {
	r := backend()
	r.Get("/api/invoices", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2024-03-01", q.Get("date_from"))
		assert.Equal(t, "2024-03-01", q.Get("date_to"))
		assert.Equal(t, "paid", q.Get("payment_status"))
		respond(w, http.StatusOK, ok(map[string]any{
			"invoices": []map[string]any{{
				"id": 12, "invoice_code": "HD001", "customer_name": "Anh Tuấn", "customer_phone": "0901234567",
				"total_amount": 1234567, "paid_amount": 1234567, "payment_status": "paid", "status": "confirmed",
				"created_at": "2024-03-01T03:00:00Z",
			}},
			"total": 1,
		}))
	})
	f := newFixture(t, r, true)

	require.NoError(t, f.runner.Run(context.Background(), []string{"/sales", "--period", "today", "--payment-status", "paid"}))
	out := f.out.String()
	assert.Contains(t, out, "Kỳ: Hôm nay")
	assert.Contains(t, out, "HD001")
	assert.Contains(t, out, "1.234.567 ₫")
	assert.Contains(t, out, "Đã thanh toán")
	assert.Contains(t, out, "Trang 1/1 · 1 bản ghi")
}

func TestRunInvoiceCreateRefusesOutOfStock(t *testing.T) {
	var posted atomic.Int32
	r := backend()
	r.Get("/api/customers/phone/{phone}", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusNotFound, fail("Customer not found"))
	})
	r.Get("/api/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{
			"id": 3, "name": "Thép hộp", "unit": "cây",
			"variants": []map[string]any{{"id": 9, "name": "40x80", "stock": 0, "price": 250000}},
		}))
	})
	r.Post("/api/invoices", func(w http.ResponseWriter, _ *http.Request) {
		posted.Add(1)
		respond(w, http.StatusCreated, ok(map[string]any{"id": 1}))
	})
	f := newFixture(t, r, true)

	path := writeDraft(t, `{"customer_phone":"0901234567","customer_name":"Anh Tuấn","items":[{"product_id":3,"variant_id":9,"quantity":2}]}`)
	err := f.runner.Run(context.Background(), []string{"/sales/create", "--file", path})
	require.ErrorIs(t, err, forms.ErrOutOfStock)
	assert.Zero(t, posted.Load())
	assert.Contains(t, f.errOut.String(), "Khách hàng mới: 0901234567")
}

func TestRunInvoiceCreate(t *testing.T) {
	r := backend()
	r.Get("/api/customers/phone/{phone}", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{"id": 5, "name": "Anh Tuấn", "phone": "0901234567"}))
	})
	r.Get("/api/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{
			"id": 3, "name": "Thép hộp", "unit": "cây",
			"variants": []map[string]any{{"id": 9, "name": "40x80", "stock": 12, "price": 250000}},
		}))
	})
	r.Post("/api/invoices", func(w http.ResponseWriter, r *http.Request) {
		var in pos.InvoiceInput
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&in)) || !assert.Len(t, in.Items, 1) || !assert.NotNil(t, in.CustomerID) {
			respond(w, http.StatusBadRequest, fail("bad request"))
			return
		}
		assert.Equal(t, int64(5), *in.CustomerID)
		assert.Nil(t, in.Items[0].ID)
		assert.Equal(t, 2.0, in.Items[0].Quantity)
		assert.Equal(t, 250000.0, in.Items[0].UnitPrice)
		respond(w, http.StatusCreated, ok(map[string]any{"id": 41, "invoice_code": "HD041", "total_amount": 500000}))
	})
	f := newFixture(t, r, true)

	path := writeDraft(t, `{"customer_phone":"0901234567","items":[{"product_id":3,"variant_id":9,"quantity":2}]}`)
	require.NoError(t, f.runner.Run(context.Background(), []string{"/sales/create", "--file", path}))
	assert.Contains(t, f.out.String(), "✓ Tạo hoá đơn HD041 thành công · 500.000 ₫")
	assert.Contains(t, f.out.String(), "/sales/41")
}

func TestRunInvoiceEditMarksRemovedRows(t *testing.T) {
	r := backend()
	r.Get("/api/invoices/{id}", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{
			"id": 12, "invoice_code": "HD012", "customer_name": "Anh Tuấn", "customer_phone": "0901234567",
			"items": []map[string]any{
				{"id": 100, "product_name": "Thép hộp", "quantity": 2, "unit_price": 250000},
				{"id": 101, "product_name": "Thép tấm", "quantity": 1, "unit_price": 900000},
			},
		}))
	})
	r.Put("/api/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		var in pos.InvoiceInput
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&in)) || !assert.Len(t, in.Items, 2) ||
			!assert.NotNil(t, in.Items[0].ID) || !assert.NotNil(t, in.Items[1].ID) {
			respond(w, http.StatusBadRequest, fail("bad request"))
			return
		}
		assert.Equal(t, int64(100), *in.Items[0].ID)
		assert.Equal(t, 5.0, in.Items[0].Quantity)
		assert.False(t, in.Items[0].IsDeleted)
		assert.Equal(t, int64(101), *in.Items[1].ID)
		assert.True(t, in.Items[1].IsDeleted)
		respond(w, http.StatusOK, ok(map[string]any{"id": 12, "invoice_code": "HD012"}))
	})
	f := newFixture(t, r, true)

	path := writeDraft(t, `{"items":[{"id":100,"quantity":5},{"id":101,"remove":true}]}`)
	require.NoError(t, f.runner.Run(context.Background(), []string{"/sales/12/edit", "--file", path}))
	assert.Contains(t, f.out.String(), "Cập nhật hoá đơn HD012 thành công")
}

func TestRunImportOrderEditReplacesOnlyRow(t *testing.T) {
	r := backend()
	r.Get("/api/import-orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{
			"import_order": map[string]any{"id": 7, "import_code": "IMP202403010001", "supplier_name": "Hòa Phát", "status": "pending", "import_date": "2024-03-01T00:00:00Z"},
			"items":        []map[string]any{{"id": 1, "product_id": 3, "variant_id": 9, "product_name": "Thép hộp", "quantity": 10, "unit_price": 500000}},
		}))
	})
	var updated atomic.Int32
	r.Put("/api/import-orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		updated.Add(1)
		var in pos.ImportOrderInput
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&in)) || !assert.Len(t, in.Items, 1) {
			respond(w, http.StatusBadRequest, fail("bad request"))
			return
		}
		assert.Nil(t, in.Items[0].ID)
		assert.Equal(t, "Thép tấm", in.Items[0].ProductName)
		assert.Equal(t, 4, in.Items[0].Quantity)
		respond(w, http.StatusOK, ok(map[string]any{"id": 7, "import_code": "IMP202403010001"}))
	})
	f := newFixture(t, r, true)

	path := writeDraft(t, `{"items":[{"id":1,"remove":true},{"product_id":4,"variant_id":11,"product_name":"Thép tấm","quantity":4,"unit_price":900000}]}`)
	require.NoError(t, f.runner.Run(context.Background(), []string{"/inventory/7/edit", "--file", path}))
	assert.EqualValues(t, 1, updated.Load())
	assert.Contains(t, f.out.String(), "Cập nhật phiếu nhập IMP202403010001 thành công")
}

func TestRunCustomerCreateValidatesLocally(t *testing.T) {
	var posted atomic.Int32
	r := backend()
	r.Post("/api/customers", func(w http.ResponseWriter, _ *http.Request) {
		posted.Add(1)
	})
	f := newFixture(t, r, true)

	path := writeDraft(t, `{"phone":"abc","name":" "}`)
	err := f.runner.Run(context.Background(), []string{"/customers/create", "--file", path})
	v, isViolations := forms.AsViolations(err)
	require.True(t, isViolations)
	assert.Equal(t, "Số điện thoại không hợp lệ", v["phone"])
	assert.Equal(t, "Tên khách hàng là bắt buộc", v["name"])
	assert.Zero(t, posted.Load())
}

func TestRunApproveImportOrder(t *testing.T) {
	var approved atomic.Int32
	r := backend()
	r.Post("/api/import-orders/{id}/approve", func(w http.ResponseWriter, r *http.Request) {
		approved.Add(1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, map[string]any{"approval_note": "Đủ hàng"}, body)
		respond(w, http.StatusOK, ok(map[string]any{"message": "Import order approved successfully"}))
	})
	r.Get("/api/import-orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{
			"import_order": map[string]any{"id": 7, "import_code": "IMP202403010001", "supplier_name": "Hòa Phát", "status": "approved", "total_amount": 5000000},
			"items":        []map[string]any{{"id": 1, "product_name": "Thép hộp", "quantity": 10, "unit_price": 500000}},
		}))
	})
	f := newFixture(t, r, true)

	require.NoError(t, f.runner.Run(context.Background(), []string{"/inventory/7", "--approve", " Đủ hàng "}))
	assert.EqualValues(t, 1, approved.Load())
	out := f.out.String()
	assert.Contains(t, out, "✓ Đã phê duyệt phiếu nhập")
	assert.Contains(t, out, "Hòa Phát")
	assert.Contains(t, out, "Đã duyệt")
	assert.Contains(t, out, "5.000.000 ₫")

	err := f.runner.Run(context.Background(), []string{"/inventory/7", "--approve", "  "})
	_, isViolations := forms.AsViolations(err)
	assert.True(t, isViolations)
	assert.EqualValues(t, 1, approved.Load())
}

func TestRunCustomerDetailJSON(t *testing.T) {
	r := backend()
	r.Get("/api/customers/{id}", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{"id": 5, "name": "Anh Tuấn", "phone": "0901234567"}))
	})
	r.Get("/api/customers/{id}/analytics", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{"total_invoices": 4, "total_spent": 8200000}))
	})
	r.Get("/api/customers/{id}/invoices", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{"invoices": []map[string]any{{"id": 12, "invoice_code": "HD012"}}, "total": 4}))
	})
	f := newFixture(t, r, true)

	require.NoError(t, f.runner.Run(context.Background(), []string{"/customers/5", "--json"}))
	var got struct {
		Name      string                `json:"name"`
		Analytics pos.CustomerAnalytics `json:"analytics"`
		Invoices  []pos.Invoice         `json:"invoices"`
		Total     int                   `json:"total_invoices"`
	}
	require.NoError(t, json.Unmarshal(f.out.Bytes(), &got))
	assert.Equal(t, "Anh Tuấn", got.Name)
	assert.Equal(t, 8200000.0, got.Analytics.TotalSpent)
	assert.Equal(t, 4, got.Total)
	require.Len(t, got.Invoices, 1)
}

func TestRunReportsWithoutAssistant(t *testing.T) {
	f := newFixture(t, backend(), true)
	err := f.runner.Run(context.Background(), []string{"/reports", "doanh thu hôm nay"})
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestDispatchToolCallRejectsBadArgs(t *testing.T) {
	f := newFixture(t, backend(), true)

	result, record, err := f.runner.dispatchToolCall(context.Background(), llm.ToolListInvoices, map[string]any{"date_from": "01/03/2024"})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.False(t, record.OK)
	assert.Contains(t, record.Err, "want YYYY-MM-DD")

	_, record, err = f.runner.dispatchToolCall(context.Background(), llm.ToolSearchCustomers, map[string]any{"query": "a"})
	require.NoError(t, err)
	assert.False(t, record.OK)

	_, record, err = f.runner.dispatchToolCall(context.Background(), "DropTables", nil)
	require.NoError(t, err)
	assert.Contains(t, record.Err, "unknown tool")
}

func TestDispatchToolCallSummary(t *testing.T) {
	r := backend()
	r.Get("/api/invoices/summary", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, ok(map[string]any{"total_invoices": 3, "pending_amount": 700000}))
	})
	f := newFixture(t, r, true)

	msgs, records, err := f.runner.executeToolCalls(context.Background(), []llm.ToolCall{
		{ID: "call-1", Type: openrouter.ToolTypeFunction, Function: openrouter.FunctionCall{Name: llm.ToolGetSalesSummary, Arguments: "{}"}},
		{ID: "call-2", Type: openrouter.ToolTypeFunction, Function: openrouter.FunctionCall{Name: llm.ToolGetInvoice, Arguments: "{not json"}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Len(t, records, 2)
	assert.True(t, records[0].OK)
	assert.Contains(t, msgs[0].Content.Text, `"pending_amount":700000`)
	assert.False(t, records[1].OK)
	assert.Contains(t, msgs[1].Content.Text, "invalid tool args")
}

func TestSessionHistoryKeepsToolTurnsTogether(t *testing.T) {
	h := NewSessionHistory(3, 1000, zap.NewNop())
	h.Append(openrouter.SystemMessage("system"))
	h.Append(openrouter.UserMessage("doanh thu hôm nay?"))
	h.AppendTurn(
		openrouter.ChatCompletionMessage{Role: openrouter.ChatMessageRoleAssistant, ToolCalls: []openrouter.ToolCall{{ID: "c1", Function: openrouter.FunctionCall{Name: llm.ToolGetSalesSummary}}}},
		[]openrouter.ChatCompletionMessage{openrouter.ToolMessage("c1", `{"today_amount":1}`)},
	)
	h.Append(openrouter.UserMessage("còn tuần này?"))

	messages := h.GetMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, openrouter.ChatMessageRoleSystem, messages[0].Role)
	assert.Equal(t, "còn tuần này?", messages[1].Content.Text)
	for _, m := range messages {
		assert.NotEqual(t, openrouter.ChatMessageRoleTool, m.Role)
	}

	h.Clear()
	assert.Empty(t, h.GetMessages())
	assert.Zero(t, h.TokenCount())
}
