// Package routes holds the page table of the admin client and the guard that
// decides where a requested path actually lands.
package routes

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

type Route string

const (
	Login     Route = "/login"
	Dashboard Route = "/dashboard"

	Sales       Route = "/sales"
	SalesCreate Route = "/sales/create"
	SalesDetail Route = "/sales/{id}"
	SalesEdit   Route = "/sales/{id}/edit"

	Inventory       Route = "/inventory"
	InventoryCreate Route = "/inventory/create"
	InventoryDetail Route = "/inventory/{id}"
	InventoryEdit   Route = "/inventory/{id}/edit"

	Products      Route = "/products"
	ProductCreate Route = "/products/create"
	ProductDetail Route = "/products/{id}"
	ProductEdit   Route = "/products/{id}/edit"

	Customers      Route = "/customers"
	CustomerCreate Route = "/customers/create"
	CustomerDetail Route = "/customers/{id}"
	CustomerEdit   Route = "/customers/{id}/edit"

	Reports   Route = "/reports"
	Analytics Route = "/analytics"
)

// All lists the pages in menu order.
var All = []Route{
	Dashboard,
	Sales, SalesCreate, SalesDetail, SalesEdit,
	Inventory, InventoryCreate, InventoryDetail, InventoryEdit,
	Products, ProductCreate, ProductDetail, ProductEdit,
	Customers, CustomerCreate, CustomerDetail, CustomerEdit,
	Reports, Analytics,
}

// Path fills the {name} placeholders of r in order.
func (r Route) Path(params ...string) string {
	out := string(r)
	for _, p := range params {
		start := strings.Index(out, "{")
		end := strings.Index(out, "}")
		if start < 0 || end < start {
			break
		}
		out = out[:start] + url.PathEscape(p) + out[end+1:]
	}
	return out
}

type Match struct {
	Route Route
	// Path is the concrete path that was served.
	Path   string
	Params map[string]string
	// Redirected is set when Path differs from the requested one.
	Redirected bool
}

func (m Match) Param(name string) string {
	return m.Params[name]
}

var table = newTable()

func newTable() *chi.Mux {
	mux := chi.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	mux.Get(string(Login), noop)
	for _, r := range All {
		mux.Get(string(r), noop)
	}
	return mux
}

// Resolve maps a requested path to the page that is shown. Without a session
// every page lands on /login; with one, /login, / and unknown paths land on
// /dashboard.
func Resolve(path string, authenticated bool) Match {
	requested := clean(path)

	if !authenticated {
		return Match{Route: Login, Path: string(Login), Redirected: requested != string(Login)}
	}

	route, params, ok := lookup(requested)
	if !ok || route == Login {
		return Match{Route: Dashboard, Path: string(Dashboard), Redirected: requested != string(Dashboard)}
	}
	return Match{Route: route, Path: requested, Params: params}
}

func lookup(path string) (Route, map[string]string, bool) {
	rctx := chi.NewRouteContext()
	if !table.Match(rctx, http.MethodGet, path) {
		return "", nil, false
	}
	var params map[string]string
	for i, key := range rctx.URLParams.Keys {
		if params == nil {
			params = make(map[string]string, len(rctx.URLParams.Keys))
		}
		value, err := url.PathUnescape(rctx.URLParams.Values[i])
		if err != nil {
			value = rctx.URLParams.Values[i]
		}
		params[key] = value
	}
	return Route(rctx.RoutePattern()), params, true
}

func clean(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		path = "/"
	}
	return path
}
