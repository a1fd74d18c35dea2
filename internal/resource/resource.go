// Package resource describes a backend collection once and derives its
// cache keys, list reads and write mutations from that description.
package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"steelpos/internal/api"
	"steelpos/internal/query"

	qs "github.com/google/go-querystring/query"
)

type Descriptor[T any] struct {
	// Name prefixes list keys and is the collection invalidated by writes,
	// e.g. "customers".
	Name string
	// DetailName prefixes single-record keys, e.g. "customer".
	DetailName string
	Path       string
	// SearchPath serves list reads that carry a search term. Empty means the
	// list endpoint filters by itself.
	SearchPath string
	// SearchParam names the term parameter on Path when SearchPath is empty.
	// The default is "q".
	SearchParam string
	// ListField names the array inside the list payload.
	ListField string
}

func (d Descriptor[T]) AllKey() query.Key {
	return query.Key{d.Name}
}

func (d Descriptor[T]) ListKey(p ListParams) query.Key {
	return query.Key{d.Name, "search", p.Normalize()}
}

func (d Descriptor[T]) DetailKey(id any) query.Key {
	return query.Key{d.DetailName, id}
}

func (d Descriptor[T]) ItemPath(id any) string {
	return fmt.Sprintf("%s/%v", strings.TrimRight(d.Path, "/"), id)
}

// List reads one page. A search term goes to SearchPath when the collection
// has one.
func (d Descriptor[T]) List(ctx context.Context, c api.Caller, p ListParams) (Page[T], error) {
	p = p.Normalize()
	path := d.Path
	if strings.TrimSpace(p.Search) != "" && d.SearchPath != "" {
		path = d.SearchPath
	}

	params, err := qs.Values(p)
	if err != nil {
		return Page[T]{}, &api.Error{Kind: api.KindTransport, Message: "invalid list parameters", Err: err}
	}
	if name := d.SearchParam; name != "" && name != "q" && path == d.Path && params.Has("q") {
		params.Set(name, params.Get("q"))
		params.Del("q")
	}

	resp, err := c.Call(ctx, api.Request{Method: http.MethodGet, Path: path, Query: params})
	if err != nil {
		return Page[T]{}, err
	}
	items, total, err := d.decodeList(resp)
	if err != nil {
		return Page[T]{}, err
	}
	return NewPage(items, p.Page, p.Limit, total), nil
}

func (d Descriptor[T]) Get(ctx context.Context, c api.Caller, id any) (T, error) {
	return api.Do[T](ctx, c, api.Request{Method: http.MethodGet, Path: d.ItemPath(id)})
}

// Bind points q at the list for p.
func (d Descriptor[T]) Bind(q *query.Query[Page[T]], c api.Caller, p ListParams) {
	p = p.Normalize()
	q.SetKey(d.ListKey(p), func(ctx context.Context) (Page[T], error) {
		return d.List(ctx, c, p)
	})
}

// BindDetail points q at one record. A nil id leaves q without a fetcher.
func (d Descriptor[T]) BindDetail(q *query.Query[T], c api.Caller, id any) {
	if id == nil {
		q.SetKey(d.DetailKey(nil), nil)
		return
	}
	q.SetKey(d.DetailKey(id), func(ctx context.Context) (T, error) {
		return d.Get(ctx, c, id)
	})
}

type listPayload map[string]json.RawMessage

func (d Descriptor[T]) decodeList(resp *api.Response) ([]T, int, error) {
	var payload listPayload
	if len(resp.Data) > 0 && string(resp.Data) != "null" {
		if err := json.Unmarshal(resp.Data, &payload); err != nil {
			return nil, 0, &api.Error{Kind: api.KindHTTP, Status: resp.Status, Message: "unexpected list shape", Err: err}
		}
	}

	var items []T
	if raw, ok := payload[d.ListField]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, 0, &api.Error{Kind: api.KindHTTP, Status: resp.Status, Message: "unexpected " + d.ListField + " shape", Err: err}
		}
	}

	total := len(items)
	if raw, ok := payload["total"]; ok {
		if err := json.Unmarshal(raw, &total); err != nil {
			return nil, 0, &api.Error{Kind: api.KindHTTP, Status: resp.Status, Message: "unexpected total", Err: err}
		}
	}
	return items, total, nil
}
