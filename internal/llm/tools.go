package llm

import openrouter "github.com/revrost/go-openrouter"

// Tool names dispatched by the reporting assistant.
const (
	ToolSearchVariants   = "SearchVariants"
	ToolSearchCustomers  = "SearchCustomers"
	ToolListInvoices     = "ListInvoices"
	ToolGetInvoice       = "GetInvoice"
	ToolGetSalesSummary  = "GetSalesSummary"
	ToolListImportOrders = "ListImportOrders"
)

func ToolSchemas() []openrouter.Tool {
	return []openrouter.Tool{
		searchVariantsTool(),
		searchCustomersTool(),
		listInvoicesTool(),
		getInvoiceTool(),
		getSalesSummaryTool(),
		listImportOrdersTool(),
	}
}

func tool(name, description string, properties map[string]any, required ...string) openrouter.Tool {
	params := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		params["required"] = required
	}
	return openrouter.Tool{
		Type: openrouter.ToolTypeFunction,
		Function: &openrouter.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func searchVariantsTool() openrouter.Tool {
	return tool(ToolSearchVariants,
		"Search product variants (steel items) by name or SKU. Returns one row per variant with product_name, name, sku, stock, sold, unit and unit_price. Use for stock and price questions.",
		map[string]any{
			"query": stringProp("Search text, e.g. 'thép hộp 40x80' or a SKU."),
			"limit": intProp("Maximum rows, default 20."),
		},
		"query",
	)
}

func searchCustomersTool() openrouter.Tool {
	return tool(ToolSearchCustomers,
		"Search customers by name or phone. The query needs at least 2 characters. Returns id, name, phone and address.",
		map[string]any{
			"query": stringProp("Name or phone fragment."),
			"limit": intProp("Maximum rows, default 10."),
		},
		"query",
	)
}

func listInvoicesTool() openrouter.Tool {
	return tool(ToolListInvoices,
		"List sales invoices, newest first, with totals and payment status. Use date_from/date_to for period questions and sum total_amount yourself only over the returned page; check total to know whether more pages exist.",
		map[string]any{
			"date_from":      stringProp("Start date YYYY-MM-DD (inclusive)."),
			"date_to":        stringProp("End date YYYY-MM-DD (inclusive)."),
			"search":         stringProp("Invoice code, customer name or phone."),
			"status":         map[string]any{"type": "string", "enum": []string{"draft", "confirmed", "cancelled"}},
			"payment_status": map[string]any{"type": "string", "enum": []string{"pending", "partial", "paid", "refunded"}},
			"page":           intProp("Page number starting at 1."),
			"limit":          intProp("Page size, default 20, max 100."),
		},
	)
}

func getInvoiceTool() openrouter.Tool {
	return tool(ToolGetInvoice,
		"Get one invoice with its items and payments, by numeric id or by invoice_code.",
		map[string]any{
			"id":           intProp("Invoice id."),
			"invoice_code": stringProp("Invoice code, used when id is not known."),
		},
	)
}

func getSalesSummaryTool() openrouter.Tool {
	return tool(ToolGetSalesSummary,
		"Get overall sales figures: total invoices, total, paid and pending amounts, and today's invoice count and amount.",
		map[string]any{},
	)
}

func listImportOrdersTool() openrouter.Tool {
	return tool(ToolListImportOrders,
		"List stock import orders with supplier, date, total_amount and approval status.",
		map[string]any{
			"status":        map[string]any{"type": "string", "enum": []string{"pending", "approved", "rejected", "completed"}},
			"supplier_name": stringProp("Supplier name filter."),
			"search":        stringProp("Import code or supplier fragment."),
			"page":          intProp("Page number starting at 1."),
			"limit":         intProp("Page size, default 20, max 100."),
		},
	)
}
