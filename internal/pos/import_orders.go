package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"steelpos/internal/api"
	"steelpos/internal/query"
	"steelpos/internal/resource"

	"go.uber.org/zap"
)

var ErrApprovalNoteRequired = errors.New("approval note is required")

type importOrderDetail struct {
	ImportOrder *ImportOrder      `json:"import_order"`
	Items       []ImportOrderItem `json:"items"`
}

func (c *Client) ListImportOrders(ctx context.Context, p resource.ListParams) (resource.Page[ImportOrder], error) {
	p = c.params(p)
	data, _, err := c.cache.Fetch(ctx, ImportOrders.ListKey(p), c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		return ImportOrders.List(ctx, c.api, p)
	})
	if err != nil {
		return resource.Page[ImportOrder]{}, err
	}
	return data.(resource.Page[ImportOrder]), nil
}

func (c *Client) ImportOrder(ctx context.Context, id int64) (ImportOrder, error) {
	data, _, err := c.cache.Fetch(ctx, ImportOrders.DetailKey(id), c.queryOptions().StaleTime, func(ctx context.Context) (any, error) {
		resp, err := c.api.Call(ctx, api.Request{Method: http.MethodGet, Path: ImportOrders.ItemPath(id)})
		if err != nil {
			return nil, err
		}
		return decodeImportOrder(resp)
	})
	if err != nil {
		return ImportOrder{}, err
	}
	return data.(ImportOrder), nil
}

// decodeImportOrder accepts both the flat record and the
// {import_order, items} detail envelope.
func decodeImportOrder(resp *api.Response) (ImportOrder, error) {
	var detail importOrderDetail
	if err := json.Unmarshal(resp.Data, &detail); err == nil && detail.ImportOrder != nil {
		order := *detail.ImportOrder
		if len(detail.Items) > 0 {
			order.Items = detail.Items
		}
		return order, nil
	}
	return api.Decode[ImportOrder](resp)
}

func (c *Client) CreateImportOrder() *query.Mutation[ImportOrderInput, ImportOrder] {
	return resource.Create(c.cache, c.api, ImportOrders, query.MutationOptions[ImportOrderInput, ImportOrder]{})
}

func (c *Client) UpdateImportOrder() *query.Mutation[resource.EditInput[ImportOrderInput], ImportOrder] {
	return resource.Edit(c.cache, c.api, ImportOrders, query.MutationOptions[resource.EditInput[ImportOrderInput], ImportOrder]{})
}

func (c *Client) DeleteImportOrder() *query.Mutation[any, struct{}] {
	return resource.Delete(c.cache, c.api, ImportOrders, query.MutationOptions[any, struct{}]{})
}

// ApproveImportOrder approves a pending order. The backend answers with a
// message only, so the returned order is empty and the detail is refetched
// through invalidation.
func (c *Client) ApproveImportOrder(ctx context.Context, id int64, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return ErrApprovalNoteRequired
	}
	m := resource.Action(c.cache, c.api, ImportOrders, query.MutationOptions[resource.EditInput[ApprovalInput], ImportOrder]{})
	defer m.Close()

	_, err := m.Mutate(ctx, resource.EditInput[ApprovalInput]{
		ID:   id,
		Data: ApprovalInput{ApprovalNote: note},
		Path: fmt.Sprintf("%s/approve", ImportOrders.ItemPath(id)),
	})
	if err != nil {
		return err
	}
	c.logger.Info("import order approved", zap.Int64("id", id))
	return nil
}
