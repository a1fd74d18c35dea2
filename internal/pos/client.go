// Package pos is the typed surface of the steel-trading backend: auth,
// products, customers, import orders and invoices, each read through the
// shared query cache and written through invalidating mutations.
package pos

import (
	"errors"
	"strings"

	"steelpos/internal/api"
	"steelpos/internal/config"
	"steelpos/internal/query"
	"steelpos/internal/resource"
	"steelpos/internal/session"

	"github.com/juju/clock"
	"go.uber.org/zap"
)

var (
	ErrEmptyQuery     = errors.New("search query is empty")
	ErrNoRefreshToken = errors.New("no refresh token stored")
	ErrMissingTokens  = errors.New("login response carries no tokens")
)

var (
	Products = resource.Descriptor[Product]{
		Name:       "products",
		DetailName: "product",
		Path:       "/products",
		SearchPath: "/products/search",
		ListField:  "products",
	}
	Customers = resource.Descriptor[Customer]{
		Name:       "customers",
		DetailName: "customer",
		Path:       "/customers",
		SearchPath: "/customers/search",
		ListField:  "customers",
	}
	ImportOrders = resource.Descriptor[ImportOrder]{
		Name:        "import-orders",
		DetailName:  "import-order",
		Path:        "/import-orders",
		SearchParam: "search",
		ListField:   "import_orders",
	}
	Invoices = resource.Descriptor[Invoice]{
		Name:        "invoices",
		DetailName:  "invoice",
		Path:        "/invoices",
		SearchParam: "search",
		ListField:   "invoices",
	}
	AuditLogs = resource.Descriptor[AuditLog]{
		Name:       "audit-logs",
		DetailName: "audit-log-detail",
		Path:       "/audit-logs",
		ListField:  "audit_logs",
	}
)

type Client struct {
	api     api.Caller
	cache   *query.Cache
	store   session.Store
	clock   clock.Clock
	logger  *zap.Logger
	baseURL string
	cfg     config.Config
}

func NewClient(cfg config.Config, caller api.Caller, cache *query.Cache, store session.Store, clk clock.Clock, logger *zap.Logger) *Client {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Client{
		api:     caller,
		cache:   cache,
		store:   store,
		clock:   clk,
		logger:  logger.Named("pos"),
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		cfg:     cfg,
	}
}

func (c *Client) Cache() *query.Cache {
	return c.cache
}

func (c *Client) Caller() api.Caller {
	return c.api
}

// PageSize is the configured default list page size.
func (c *Client) PageSize() int {
	if c.cfg.PageSize > 0 {
		return c.cfg.PageSize
	}
	return resource.DefaultPageSize
}

func (c *Client) params(p resource.ListParams) resource.ListParams {
	if p.Limit <= 0 {
		p.Limit = c.PageSize()
	}
	return p.Normalize()
}

func (c *Client) queryOptions() query.Options {
	opts := query.DefaultOptions()
	if c.cfg.StaleTime > 0 {
		opts.StaleTime = c.cfg.StaleTime
	}
	return opts
}
