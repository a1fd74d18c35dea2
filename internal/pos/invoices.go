package pos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"steelpos/internal/api"
	"steelpos/internal/query"
	"steelpos/internal/resource"
)

var invoiceSummaryKey = query.Key{"invoices", "summary"}

// PaymentInputFor addresses a payment write. InvoiceID is used for
// invalidation; ID is the payment itself when editing.
type PaymentInputFor struct {
	InvoiceID int64
	ID        int64
	Data      PaymentInput
}

func (c *Client) ListInvoices(ctx context.Context, p resource.ListParams) (resource.Page[Invoice], error) {
	p = c.params(p)
	data, _, err := c.cache.Fetch(ctx, Invoices.ListKey(p), c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return Invoices.List(ctx, c.api, p)
	})
	if err != nil {
		return resource.Page[Invoice]{}, err
	}
	return data.(resource.Page[Invoice]), nil
}

func (c *Client) Invoice(ctx context.Context, id int64) (Invoice, error) {
	data, _, err := c.cache.Fetch(ctx, Invoices.DetailKey(id), c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return Invoices.Get(ctx, c.api, id)
	})
	if err != nil {
		return Invoice{}, err
	}
	return data.(Invoice), nil
}

func (c *Client) InvoiceByCode(ctx context.Context, code string) (Invoice, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Invoice{}, ErrEmptyQuery
	}
	return api.Do[Invoice](ctx, c.api, api.Request{
		Method: http.MethodGet,
		Path:   "/invoices/code/" + url.PathEscape(code),
	})
}

func (c *Client) InvoiceSummary(ctx context.Context) (InvoiceSummary, error) {
	data, _, err := c.cache.Fetch(ctx, invoiceSummaryKey, c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return api.Do[InvoiceSummary](ctx, c.api, api.Request{Method: http.MethodGet, Path: "/invoices/summary"})
	})
	if err != nil {
		return InvoiceSummary{}, err
	}
	return data.(InvoiceSummary), nil
}

func (c *Client) CreateInvoice() *query.Mutation[InvoiceInput, Invoice] {
	return resource.Create(c.cache, c.api, Invoices, query.MutationOptions[InvoiceInput, Invoice]{
		Invalidate: []query.Key{{"customer"}},
	})
}

// UpdateInvoice puts the full invoice; items carry is_deleted for rows the
// operator removed.
func (c *Client) UpdateInvoice() *query.Mutation[resource.EditInput[InvoiceInput], Invoice] {
	return resource.Edit(c.cache, c.api, Invoices, query.MutationOptions[resource.EditInput[InvoiceInput], Invoice]{
		InvalidateFor: func(in resource.EditInput[InvoiceInput]) []query.Key {
			return []query.Key{{"audit-log", in.ID}}
		},
	})
}

func (c *Client) DeleteInvoice() *query.Mutation[any, struct{}] {
	return resource.Delete(c.cache, c.api, Invoices, query.MutationOptions[any, struct{}]{})
}

func (c *Client) CreatePayment() *query.Mutation[PaymentInputFor, Payment] {
	return c.paymentMutation(http.MethodPost, func(in PaymentInputFor) string {
		return fmt.Sprintf("/invoice-payments/%d", in.InvoiceID)
	})
}

func (c *Client) UpdatePayment() *query.Mutation[PaymentInputFor, Payment] {
	return c.paymentMutation(http.MethodPut, func(in PaymentInputFor) string {
		return fmt.Sprintf("/invoice-payments/%d", in.ID)
	})
}

func (c *Client) DeletePayment() *query.Mutation[PaymentInputFor, Payment] {
	return c.paymentMutation(http.MethodDelete, func(in PaymentInputFor) string {
		return fmt.Sprintf("/invoice-payments/%d", in.ID)
	})
}

// Payments change the paid amount and payment status of their invoice, so
// every payment write refreshes the invoice, its lists and its audit trail.
func (c *Client) paymentMutation(method string, path func(PaymentInputFor) string) *query.Mutation[PaymentInputFor, Payment] {
	return query.NewMutation(c.cache, func(ctx context.Context, in PaymentInputFor) (Payment, error) {
		req := api.Request{Method: method, Path: path(in)}
		if method != http.MethodDelete {
			req.Body = in.Data
		}
		return api.Do[Payment](ctx, c.api, req)
	}, query.MutationOptions[PaymentInputFor, Payment]{
		Invalidate: []query.Key{Invoices.AllKey()},
		InvalidateFor: func(in PaymentInputFor) []query.Key {
			return []query.Key{Invoices.DetailKey(in.InvoiceID), {"audit-log", in.InvoiceID}}
		},
	})
}

// InvoiceAuditLogs returns the change history of one invoice, newest first
// as the backend orders it.
func (c *Client) InvoiceAuditLogs(ctx context.Context, invoiceID int64) ([]AuditLog, error) {
	key := query.Key{"audit-log", invoiceID}
	data, _, err := c.cache.Fetch(ctx, key, c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		resp, err := c.api.Call(ctx, api.Request{
			Method: http.MethodGet,
			Path:   fmt.Sprintf("/invoices/%d/audit-logs", invoiceID),
		})
		if err != nil {
			return nil, err
		}
		return decodeAuditLogs(resp)
	})
	if err != nil {
		return nil, err
	}
	return data.([]AuditLog), nil
}

func (c *Client) AuditLog(ctx context.Context, id int64) (AuditLog, error) {
	data, _, err := c.cache.Fetch(ctx, AuditLogs.DetailKey(id), c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return api.Do[AuditLog](ctx, c.api, api.Request{
			Method: http.MethodGet,
			Path:   fmt.Sprintf("/audit-logs/id/%d", id),
		})
	})
	if err != nil {
		return AuditLog{}, err
	}
	return data.(AuditLog), nil
}

// decodeAuditLogs accepts a bare array or an {audit_logs: [...]} object.
func decodeAuditLogs(resp *api.Response) ([]AuditLog, error) {
	var logs []AuditLog
	if err := json.Unmarshal(resp.Data, &logs); err == nil {
		return logs, nil
	}
	var wrapped struct {
		AuditLogs []AuditLog `json:"audit_logs"`
	}
	if err := json.Unmarshal(resp.Data, &wrapped); err != nil {
		return nil, &api.Error{Kind: api.KindHTTP, Status: resp.Status, Message: "unexpected audit log shape", Err: err}
	}
	return wrapped.AuditLogs, nil
}

// InvoicePDF downloads the rendered invoice with the bearer token.
func (c *Client) InvoicePDF(ctx context.Context, id int64) ([]byte, error) {
	resp, err := c.api.Call(ctx, api.Request{
		Method:  http.MethodGet,
		Path:    fmt.Sprintf("/invoices/%d/pdf", id),
		Raw:     true,
		Timeout: api.TimeoutLong,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// InvoicePDFURL is the link a browser can open directly. The access token
// travels in the query string because the viewer cannot set headers.
func (c *Client) InvoicePDFURL(ctx context.Context, id int64) (string, error) {
	s, err := c.store.Load(ctx)
	if err != nil {
		return "", err
	}
	v := url.Values{}
	v.Set("token", s.AccessToken)
	return fmt.Sprintf("%s/invoices/%d/pdf?%s", c.baseURL, id, v.Encode()), nil
}
