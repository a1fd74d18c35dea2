package resource

import "math"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListParams are the filter and paging inputs shared by every list page.
// The url tags define the wire names; the json tags define the cache key.
type ListParams struct {
	Search        string `url:"q,omitempty" json:"search,omitempty"`
	Page          int    `url:"page,omitempty" json:"page"`
	Limit         int    `url:"limit,omitempty" json:"limit"`
	Status        string `url:"status,omitempty" json:"status,omitempty"`
	PaymentStatus string `url:"payment_status,omitempty" json:"payment_status,omitempty"`
	Category      string `url:"category,omitempty" json:"category,omitempty"`
	SupplierName  string `url:"supplier_name,omitempty" json:"supplier_name,omitempty"`
	DateFrom      string `url:"date_from,omitempty" json:"date_from,omitempty"`
	DateTo        string `url:"date_to,omitempty" json:"date_to,omitempty"`
	Sort          string `url:"sort,omitempty" json:"sort,omitempty"`
	Order         string `url:"order,omitempty" json:"order,omitempty"`
}

// Normalize clamps paging to the supported range.
func (p ListParams) Normalize() ListParams {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p ListParams) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

type Page[T any] struct {
	Items      []T
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

func NewPage[T any](items []T, page, limit, total int) Page[T] {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return Page[T]{Items: items, Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages
}
