package resource

import (
	"context"
	"net/http"

	"steelpos/internal/api"
	"steelpos/internal/query"
)

type EditInput[In any] struct {
	ID   any
	Data In
	// Path overrides the record path, e.g. "/import-orders/7/approve".
	Path string
}

type UploadInput struct {
	Path   string
	Files  []api.File
	Fields map[string]string
}

// Create posts to the collection and marks every list of it stale.
func Create[In, T any](cache *query.Cache, c api.Caller, d Descriptor[T], opts query.MutationOptions[In, T]) *query.Mutation[In, T] {
	opts.Invalidate = append([]query.Key{d.AllKey()}, opts.Invalidate...)
	return query.NewMutation(cache, func(ctx context.Context, in In) (T, error) {
		return api.Do[T](ctx, c, api.Request{Method: http.MethodPost, Path: d.Path, Body: in})
	}, opts)
}

// Edit puts to a record and marks the lists and that record stale.
func Edit[In, T any](cache *query.Cache, c api.Caller, d Descriptor[T], opts query.MutationOptions[EditInput[In], T]) *query.Mutation[EditInput[In], T] {
	return update(cache, c, d, http.MethodPut, opts)
}

// Action posts to a record sub-path such as approve or cancel.
func Action[In, T any](cache *query.Cache, c api.Caller, d Descriptor[T], opts query.MutationOptions[EditInput[In], T]) *query.Mutation[EditInput[In], T] {
	return update(cache, c, d, http.MethodPost, opts)
}

func update[In, T any](cache *query.Cache, c api.Caller, d Descriptor[T], method string, opts query.MutationOptions[EditInput[In], T]) *query.Mutation[EditInput[In], T] {
	opts.Invalidate = append([]query.Key{d.AllKey()}, opts.Invalidate...)
	extra := opts.InvalidateFor
	opts.InvalidateFor = func(in EditInput[In]) []query.Key {
		keys := []query.Key{d.DetailKey(in.ID)}
		if extra != nil {
			keys = append(keys, extra(in)...)
		}
		return keys
	}
	return query.NewMutation(cache, func(ctx context.Context, in EditInput[In]) (T, error) {
		path := in.Path
		if path == "" {
			path = d.ItemPath(in.ID)
		}
		return api.Do[T](ctx, c, api.Request{Method: method, Path: path, Body: in.Data})
	}, opts)
}

// Delete removes a record by id. The detail entry is dropped, not refetched.
func Delete[T any](cache *query.Cache, c api.Caller, d Descriptor[T], opts query.MutationOptions[any, struct{}]) *query.Mutation[any, struct{}] {
	opts.Invalidate = append([]query.Key{d.AllKey()}, opts.Invalidate...)
	return query.NewMutation(cache, func(ctx context.Context, id any) (struct{}, error) {
		if _, err := c.Call(ctx, api.Request{Method: http.MethodDelete, Path: d.ItemPath(id)}); err != nil {
			return struct{}{}, err
		}
		cache.Remove(d.DetailKey(id))
		return struct{}{}, nil
	}, opts)
}

// Upload sends multipart files to in.Path and invalidates the collection.
func Upload[T any](cache *query.Cache, c api.Caller, d Descriptor[T], opts query.MutationOptions[UploadInput, T]) *query.Mutation[UploadInput, T] {
	opts.Invalidate = append([]query.Key{d.AllKey()}, opts.Invalidate...)
	return query.NewMutation(cache, func(ctx context.Context, in UploadInput) (T, error) {
		path := in.Path
		if path == "" {
			path = d.Path
		}
		return api.Do[T](ctx, c, api.Request{
			Method:  http.MethodPost,
			Path:    path,
			Files:   in.Files,
			Fields:  in.Fields,
			Timeout: api.TimeoutLong,
		})
	}, opts)
}
