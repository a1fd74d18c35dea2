package pos

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"steelpos/internal/api"
	"steelpos/internal/query"
	"steelpos/internal/resource"
	"steelpos/internal/search"

	"github.com/juju/clock"
)

const (
	CustomerSearchLimit     = 10
	CustomerSearchMinLength = 2
	CustomerSearchStaleTime = 2 * time.Minute
)

var customerSearchKey = query.Key{"customers", "search", "picker"}

type customerPage struct {
	Customers []Customer `json:"customers"`
	Total     int        `json:"total"`
}

type invoicePage struct {
	Invoices []Invoice `json:"invoices"`
	Total    int       `json:"total"`
}

func (c *Client) ListCustomers(ctx context.Context, p resource.ListParams) (resource.Page[Customer], error) {
	p = c.params(p)
	data, _, err := c.cache.Fetch(ctx, Customers.ListKey(p), c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return Customers.List(ctx, c.api, p)
	})
	if err != nil {
		return resource.Page[Customer]{}, err
	}
	return data.(resource.Page[Customer]), nil
}

func (c *Client) Customer(ctx context.Context, id int64) (Customer, error) {
	data, _, err := c.cache.Fetch(ctx, Customers.DetailKey(id), c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return Customers.Get(ctx, c.api, id)
	})
	if err != nil {
		return Customer{}, err
	}
	return data.(Customer), nil
}

// CustomerByPhone looks a customer up by exact phone number. A 404 comes
// back as an *api.Error that api.IsNotFound accepts.
func (c *Client) CustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return Customer{}, ErrEmptyQuery
	}
	return api.Do[Customer](ctx, c.api, api.Request{
		Method: http.MethodGet,
		Path:   "/customers/phone/" + url.PathEscape(phone),
	})
}

func (c *Client) CustomerAnalytics(ctx context.Context, id int64) (CustomerAnalytics, error) {
	key := query.Key{"customer", id, "analytics"}
	data, _, err := c.cache.Fetch(ctx, key, c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return api.Do[CustomerAnalytics](ctx, c.api, api.Request{
			Method: http.MethodGet,
			Path:   fmt.Sprintf("/customers/%d/analytics", id),
		})
	})
	if err != nil {
		return CustomerAnalytics{}, err
	}
	return data.(CustomerAnalytics), nil
}

// CustomerInvoices returns the customer's recent invoices and their total.
func (c *Client) CustomerInvoices(ctx context.Context, id int64) ([]Invoice, int, error) {
	key := query.Key{"customer", id, "invoices"}
	data, _, err := c.cache.Fetch(ctx, key, c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return api.Do[invoicePage](ctx, c.api, api.Request{
			Method: http.MethodGet,
			Path:   fmt.Sprintf("/customers/%d/invoices", id),
		})
	})
	if err != nil {
		return nil, 0, err
	}
	page := data.(invoicePage)
	return page.Invoices, page.Total, nil
}

// SearchCustomers reads one page of customers matching term. The endpoint
// pages by number, so offset is converted.
func (c *Client) SearchCustomers(ctx context.Context, term string, limit, offset int) (search.Page[Customer], error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return search.Page[Customer]{}, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = CustomerSearchLimit
	}
	page, err := api.Do[customerPage](ctx, c.api, api.Request{
		Method: http.MethodGet,
		Path:   "/customers/search",
		Query: map[string]string{
			"q":     term,
			"limit": fmt.Sprint(limit),
			"page":  fmt.Sprint(offset/limit + 1),
		},
	})
	if err != nil {
		return search.Page[Customer]{}, err
	}
	return search.Page[Customer]{Items: page.Customers, Total: page.Total}, nil
}

// NewCustomerSearch builds the invoice-form customer picker. Terms shorter
// than two characters never reach the backend.
func (c *Client) NewCustomerSearch(clk clock.Clock, onChange func(search.Snapshot[Customer])) *search.Search[Customer] {
	if clk == nil {
		clk = c.clock
	}
	return search.New(c.cache, search.Config[Customer]{
		Key:       customerSearchKey,
		Limit:     CustomerSearchLimit,
		MinLength: CustomerSearchMinLength,
		Delay:     c.cfg.SearchDebounce,
		StaleTime: CustomerSearchStaleTime,
		Clock:     clk,
		Load:      c.SearchCustomers,
		OnChange:  onChange,
	})
}

func (c *Client) CreateCustomer() *query.Mutation[CustomerInput, Customer] {
	return resource.Create(c.cache, c.api, Customers, query.MutationOptions[CustomerInput, Customer]{})
}

func (c *Client) UpdateCustomer() *query.Mutation[resource.EditInput[CustomerInput], Customer] {
	return resource.Edit(c.cache, c.api, Customers, query.MutationOptions[resource.EditInput[CustomerInput], Customer]{})
}
