package api

import (
	"context"
	"encoding/json"
)

// Decode turns the envelope data into the endpoint's typed schema.
func Decode[T any](resp *Response) (T, error) {
	var out T
	if resp == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return out, &Error{Kind: KindHTTP, Status: resp.Status, Message: "unexpected response shape", Err: err}
	}
	return out, nil
}

// Do is Call followed by Decode.
func Do[T any](ctx context.Context, c Caller, req Request) (T, error) {
	resp, err := c.Call(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](resp)
}
