package pos

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"steelpos/internal/api"
	"steelpos/internal/query"
	"steelpos/internal/resource"
	"steelpos/internal/search"

	"github.com/juju/clock"
)

const (
	VariantSearchLimit     = 20
	VariantSearchStaleTime = 2 * time.Minute
)

var variantSearchKey = query.Key{"products", "variants", "search"}

type productSearchPage struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

func (c *Client) ListProducts(ctx context.Context, p resource.ListParams) (resource.Page[Product], error) {
	p = c.params(p)
	data, _, err := c.cache.Fetch(ctx, Products.ListKey(p), c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return Products.List(ctx, c.api, p)
	})
	if err != nil {
		return resource.Page[Product]{}, err
	}
	return data.(resource.Page[Product]), nil
}

func (c *Client) Product(ctx context.Context, id int64) (Product, error) {
	data, _, err := c.cache.Fetch(ctx, Products.DetailKey(id), c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return Products.Get(ctx, c.api, id)
	})
	if err != nil {
		return Product{}, err
	}
	return data.(Product), nil
}

func (c *Client) ProductVariants(ctx context.Context, productID int64) ([]Variant, error) {
	key := query.Key{"product", productID, "variants"}
	data, _, err := c.cache.Fetch(ctx, key, c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return api.Do[[]Variant](ctx, c.api, api.Request{
			Method: http.MethodGet,
			Path:   fmt.Sprintf("/products/%d/variants", productID),
		})
	})
	if err != nil {
		return nil, err
	}
	return data.([]Variant), nil
}

// SearchVariants reads one page of the flattened variant search.
func (c *Client) SearchVariants(ctx context.Context, term string, limit, offset int) (search.Page[VariantHit], error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return search.Page[VariantHit]{}, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = VariantSearchLimit
	}
	q := map[string]string{"q": term, "limit": fmt.Sprint(limit)}
	if offset > 0 {
		q["offset"] = fmt.Sprint(offset)
	}
	page, err := api.Do[productSearchPage](ctx, c.api, api.Request{
		Method: http.MethodGet,
		Path:   "/products/search/variants",
		Query:  q,
	})
	if err != nil {
		return search.Page[VariantHit]{}, err
	}
	return search.Page[VariantHit]{Items: Flatten(page.Products), Total: page.Total}, nil
}

// SearchImportProducts looks up products for an import-order line.
func (c *Client) SearchImportProducts(ctx context.Context, term string) ([]Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptyQuery
	}
	key := query.Key{"products", "search", "import-order", term}
	data, _, err := c.cache.Fetch(ctx, key, VariantSearchStaleTime, func(ctx context.Context) (any, error) {
		page, err := api.Do[productSearchPage](ctx, c.api, api.Request{
			Method: http.MethodGet,
			Path:   "/products/search/import-order",
			Query:  map[string]string{"q": term},
		})
		return page.Products, err
	})
	if err != nil {
		return nil, err
	}
	return data.([]Product), nil
}

// NewVariantSearch builds the sales-screen variant picker.
func (c *Client) NewVariantSearch(clk clock.Clock, onChange func(search.Snapshot[VariantHit])) *search.Search[VariantHit] {
	if clk == nil {
		clk = c.clock
	}
	return search.New(c.cache, search.Config[VariantHit]{
		Key:       variantSearchKey,
		Limit:     VariantSearchLimit,
		MinLength: 1,
		Delay:     c.cfg.SearchDebounce,
		StaleTime: VariantSearchStaleTime,
		Clock:     clk,
		Load:      c.SearchVariants,
		OnChange:  onChange,
	})
}

func (c *Client) CreateProduct() *query.Mutation[ProductInput, Product] {
	return resource.Create(c.cache, c.api, Products, query.MutationOptions[ProductInput, Product]{})
}

func (c *Client) UpdateProduct() *query.Mutation[resource.EditInput[ProductInput], Product] {
	return resource.Edit(c.cache, c.api, Products, query.MutationOptions[resource.EditInput[ProductInput], Product]{})
}

func (c *Client) DeleteProduct() *query.Mutation[any, struct{}] {
	return resource.Delete(c.cache, c.api, Products, query.MutationOptions[any, struct{}]{})
}
