package resource

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"steelpos/internal/api"
	"steelpos/internal/config"
	"steelpos/internal/query"
	"steelpos/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type customer struct {
	ID    int64  `json:"id"`
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

var customers = Descriptor[customer]{
	Name:       "customers",
	DetailName: "customer",
	Path:       "/customers",
	SearchPath: "/customers/search",
	ListField:  "customers",
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(data any) map[string]any {
	return map[string]any{"success": true, "message": "ok", "data": data}
}

func newCaller(t *testing.T, router http.Handler) api.Caller {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIBaseURL = srv.URL + "/api"
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), session.Session{AccessToken: "a", RefreshToken: "r"}))
	return api.NewClient(cfg, store, nil, zap.NewNop())
}

func newCache() *query.Cache {
	return query.NewCache(testclock.NewClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)), nil, zap.NewNop())
}

func TestNormalizeClampsPaging(t *testing.T) {
	tests := []struct {
		in         ListParams
		page, size int
	}{
		{ListParams{}, 1, 20},
		{ListParams{Page: -3, Limit: 500}, 1, 100},
		{ListParams{Page: 4, Limit: 10}, 4, 10},
	}
	for _, tt := range tests {
		got := tt.in.Normalize()
		assert.Equal(t, tt.page, got.Page)
		assert.Equal(t, tt.size, got.Limit)
	}
	assert.Equal(t, 30, ListParams{Page: 4, Limit: 10}.Offset())
}

func TestNewPageComputesTotalPages(t *testing.T) {
	p := NewPage([]int{1, 2}, 2, 20, 41)
	require.Equal(t, 3, p.TotalPages)
	require.True(t, p.HasNext())

	empty := NewPage[int](nil, 0, 0, 0)
	require.Equal(t, 1, empty.Page)
	require.Equal(t, 20, empty.Limit)
	require.Zero(t, empty.TotalPages)
	require.False(t, empty.HasNext())
}

func TestKeys(t *testing.T) {
	require.Equal(t, query.Key{"customers"}, customers.AllKey())
	require.Equal(t, query.Key{"customer", int64(7)}, customers.DetailKey(int64(7)))

	list := customers.ListKey(ListParams{Search: "an", Page: 2})
	require.True(t, list.HasPrefix(customers.AllKey()))
	require.Equal(t, `["customers","search",{"search":"an","page":2,"limit":20}]`, list.String())
}

func TestListRoutesSearchTerm(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/customers", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "1", req.URL.Query().Get("page"))
		assert.Equal(t, "active", req.URL.Query().Get("status"))
		writeJSON(w, http.StatusOK, ok(map[string]any{
			"customers": []customer{{ID: 1, Name: "Anh Tuấn"}},
			"total":     1, "page": 1, "limit": 20,
		}))
	})
	r.Get("/api/customers/search", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "0912", req.URL.Query().Get("q"))
		assert.Equal(t, "2", req.URL.Query().Get("page"))
		assert.Equal(t, "10", req.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, ok(map[string]any{
			"customers": []customer{{ID: 2, Phone: "0912000111"}},
			"total":     11,
		}))
	})
	c := newCaller(t, r)
	ctx := context.Background()

	page, err := customers.List(ctx, c, ListParams{Status: "active"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, 1, page.TotalPages)

	page, err = customers.List(ctx, c, ListParams{Search: "0912", Page: 2, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Items[0].ID)
	require.Equal(t, 11, page.Total)
	require.Equal(t, 2, page.TotalPages)
	require.False(t, page.HasNext())
}

func TestListWithoutTotalCountsItems(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/customers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, ok(map[string]any{"customers": []customer{{ID: 1}, {ID: 2}}}))
	})
	page, err := customers.List(context.Background(), newCaller(t, r), ListParams{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
}

func TestListRejectsWrongShape(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/customers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, ok(map[string]any{"customers": "nope"}))
	})
	_, err := customers.List(context.Background(), newCaller(t, r), ListParams{})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, api.KindHTTP, apiErr.Kind)
}

func TestBindLoadsIntoQuery(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/customers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, ok(map[string]any{"customers": []customer{{ID: 9}}, "total": 1}))
	})
	r.Get("/api/customers/9", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, ok(customer{ID: 9, Name: "Chị Lan"}))
	})
	c := newCaller(t, r)
	cache := newCache()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	list := query.New[Page[customer]](cache, query.DefaultOptions())
	defer list.Close()
	customers.Bind(list, c, ListParams{})
	page, err := list.Get(ctx)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	detail := query.New[customer](cache, query.DefaultOptions())
	defer detail.Close()
	customers.BindDetail(detail, c, int64(9))
	got, err := detail.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Chị Lan", got.Name)

	idle := query.New[customer](cache, query.DefaultOptions())
	defer idle.Close()
	customers.BindDetail(idle, c, nil)
	require.False(t, idle.State().IsLoading)
	require.False(t, idle.State().HasData)
}

func TestEditInvalidatesListAndDetail(t *testing.T) {
	var body atomic.Value
	r := chi.NewRouter()
	r.Put("/api/customers/{id}", func(w http.ResponseWriter, req *http.Request) {
		raw, _ := io.ReadAll(req.Body)
		body.Store(string(raw))
		writeJSON(w, http.StatusOK, ok(customer{ID: 5, Name: "Mới"}))
	})
	c := newCaller(t, r)
	cache := newCache()
	ctx := context.Background()

	load := func(context.Context) (any, error) { return "cached", nil }
	for _, k := range []query.Key{
		customers.ListKey(ListParams{}),
		customers.DetailKey(int64(5)),
		customers.DetailKey(int64(6)),
	} {
		_, _, err := cache.Fetch(ctx, k, time.Hour, load)
		require.NoError(t, err)
	}

	var saved customer
	m := Edit(cache, c, customers, query.MutationOptions[EditInput[map[string]string], customer]{
		OnSuccess: func(out customer) { saved = out },
	})
	out, err := m.Mutate(ctx, EditInput[map[string]string]{ID: int64(5), Data: map[string]string{"name": "Mới"}})
	require.NoError(t, err)
	require.Equal(t, "Mới", out.Name)
	require.Equal(t, out, saved)
	require.JSONEq(t, `{"name":"Mới"}`, body.Load().(string))

	require.True(t, cache.IsStale(customers.ListKey(ListParams{}), time.Hour))
	require.True(t, cache.IsStale(customers.DetailKey(int64(5)), time.Hour))
	require.False(t, cache.IsStale(customers.DetailKey(int64(6)), time.Hour))
}

func TestActionUsesOverridePath(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/customers/5/deactivate", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, ok(customer{ID: 5}))
	})
	m := Action(newCache(), newCaller(t, r), customers, query.MutationOptions[EditInput[struct{}], customer]{})
	out, err := m.Mutate(context.Background(), EditInput[struct{}]{ID: int64(5), Path: "/customers/5/deactivate"})
	require.NoError(t, err)
	require.Equal(t, int64(5), out.ID)
}

func TestFailedCreateLeavesCacheFresh(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/customers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "Số điện thoại đã tồn tại"})
	})
	cache := newCache()
	ctx := context.Background()
	_, _, err := cache.Fetch(ctx, customers.ListKey(ListParams{}), time.Hour, func(context.Context) (any, error) { return 1, nil })
	require.NoError(t, err)

	var failed error
	m := Create(cache, newCaller(t, r), customers, query.MutationOptions[customer, customer]{
		OnError: func(err error) { failed = err },
	})
	_, err = m.Mutate(ctx, customer{Phone: "0912"})
	require.Error(t, err)
	require.Equal(t, err, failed)
	require.Contains(t, err.Error(), "Số điện thoại đã tồn tại")
	require.False(t, cache.IsStale(customers.ListKey(ListParams{}), time.Hour))
}

func TestDeleteDropsDetail(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/api/customers/3", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, ok(nil))
	})
	cache := newCache()
	ctx := context.Background()
	_, _, err := cache.Fetch(ctx, customers.DetailKey(3), time.Hour, func(context.Context) (any, error) { return 1, nil })
	require.NoError(t, err)

	_, err = Delete(cache, newCaller(t, r), customers, query.MutationOptions[any, struct{}]{}).Mutate(ctx, 3)
	require.NoError(t, err)
	_, _, found := cache.Peek(customers.DetailKey(3))
	require.False(t, found)
}

func TestUploadSendsMultipart(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/import-orders/upload", func(w http.ResponseWriter, req *http.Request) {
		if !assert.NoError(t, req.ParseMultipartForm(1<<20)) {
			return
		}
		files := req.MultipartForm.File["images"]
		if !assert.Len(t, files, 1) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false})
			return
		}
		assert.Equal(t, "phieu.jpg", files[0].Filename)
		writeJSON(w, http.StatusOK, ok(customer{ID: 1}))
	})
	m := Upload(newCache(), newCaller(t, r), customers, query.MutationOptions[UploadInput, customer]{})
	_, err := m.Mutate(context.Background(), UploadInput{
		Path:  "/import-orders/upload",
		Files: []api.File{{Param: "images", Name: "phieu.jpg", Content: []byte("jpeg")}},
	})
	require.NoError(t, err)

	_, err = m.Mutate(context.Background(), UploadInput{Path: "/missing"})
	require.True(t, api.IsNotFound(err))
}

func TestListRenamesSearchParam(t *testing.T) {
	orders := Descriptor[customer]{
		Name: "import-orders", DetailName: "import-order",
		Path: "/import-orders", SearchParam: "search", ListField: "import_orders",
	}
	r := chi.NewRouter()
	r.Get("/api/import-orders", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "IMP2024", req.URL.Query().Get("search"))
		assert.False(t, req.URL.Query().Has("q"))
		assert.Equal(t, "pending", req.URL.Query().Get("status"))
		writeJSON(w, http.StatusOK, ok(map[string]any{"import_orders": []customer{}, "total": 0}))
	})
	page, err := orders.List(context.Background(), newCaller(t, r), ListParams{Search: "IMP2024", Status: "pending"})
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.Zero(t, page.TotalPages)
}
