package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"steelpos/internal/llm"
	"steelpos/internal/pos"
	"steelpos/internal/resource"
	"steelpos/internal/routes"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

const defaultOutputLimit = 10

var errMissingQuestion = errors.New("a question is required, or -i for a session")

type response struct {
	Query      string           `json:"query"`
	AnswerText string           `json:"answer_text"`
	ToolCalls  []toolCallRecord `json:"tool_calls,omitempty"`
	NextStep   string           `json:"next_step,omitempty"`
}

type toolCallRecord struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
	MS   int64          `json:"ms"`
	OK   bool           `json:"ok"`
	Err  string         `json:"err,omitempty"`
}

func reportsPage(ctx context.Context, r *Runner, opts *Options, _ routes.Match) error {
	if !r.llmClient.Enabled() {
		return llm.ErrNotConfigured
	}
	if opts.Interactive {
		return r.runREPL(ctx, opts)
	}
	if opts.Query == "" {
		return errMissingQuestion
	}
	return r.handleQuery(ctx, opts, opts.Query, false, nil)
}

func (r *Runner) runREPL(ctx context.Context, opts *Options) error {
	reader := bufio.NewScanner(r.in)
	history := NewSessionHistory(defaultHistoryMaxMessages, defaultHistoryMaxTokens, r.logger)
	history.Append(openrouter.SystemMessage(llm.SystemPrompt(r.clock.Now(), true)))
	fmt.Fprintln(r.out, "Trợ lý báo cáo (gõ 'exit' để thoát, /clear, /history)")

	if opts.Query != "" {
		if err := r.handleQuery(ctx, opts, opts.Query, true, history); err != nil {
			return err
		}
	}

	for {
		fmt.Fprint(r.out, "> ")
		if !reader.Scan() {
			return reader.Err()
		}

		line := strings.TrimSpace(reader.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "/clear":
			history.Clear()
			history.Append(openrouter.SystemMessage(llm.SystemPrompt(r.clock.Now(), true)))
			fmt.Fprintln(r.out, "Đã xoá lịch sử.")
			continue
		case "/history":
			printHistory(r.out, history)
			continue
		case "exit", "quit":
			return nil
		}

		if err := r.handleQuery(ctx, opts, line, true, history); err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintln(r.errOut, "✗ "+FriendlyError(err))
		}
	}
}

func printHistory(w io.Writer, history *SessionHistory) {
	messages := history.GetMessages()
	if len(messages) == 0 {
		fmt.Fprintln(w, "Lịch sử trống.")
		return
	}
	fmt.Fprintf(w, "Lịch sử (%d tin nhắn, ~%d token):\n", len(messages), history.TokenCount())
	for i, msg := range messages {
		preview := messagePreview(msg)
		if preview == "" {
			preview = "(trống)"
		}
		fmt.Fprintf(w, "%d) %s: %s\n", i+1, msg.Role, preview)
	}
}

func messagePreview(msg openrouter.ChatCompletionMessage) string {
	text := strings.TrimSpace(msg.Content.Text)
	if text == "" && len(msg.ToolCalls) > 0 {
		names := make([]string, 0, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			names = append(names, call.Function.Name)
		}
		text = "→ " + strings.Join(names, ", ")
	}
	const maxLen = 120
	if runes := []rune(text); len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return text
}

func (r *Runner) handleQuery(ctx context.Context, opts *Options, query string, interactive bool, history *SessionHistory) error {
	r.logger.Info("query received",
		zap.String("query", query),
		zap.Bool("interactive", interactive),
		zap.Bool("json", opts.JSON),
	)

	resp, err := r.runLLMAgent(ctx, query, interactive, history)
	if err != nil {
		return err
	}
	logResponse(r.logger, resp)
	return r.emit(opts, resp, func(w io.Writer) {
		writeHumanResponse(w, resp)
	})
}

func writeHumanResponse(w io.Writer, resp response) {
	answer := strings.TrimSpace(resp.AnswerText)
	if answer == "" {
		answer = "(không có câu trả lời)"
	}
	fmt.Fprintln(w, answer)
	if next := strings.TrimSpace(resp.NextStep); next != "" {
		fmt.Fprintf(w, "\nGợi ý: %s\n", next)
	}
}

func logResponse(logger *zap.Logger, resp response) {
	logger.Info("response",
		zap.String("query", strings.TrimSpace(resp.Query)),
		zap.String("answer", strings.TrimSpace(resp.AnswerText)),
		zap.Int("tool_calls", len(resp.ToolCalls)),
		zap.String("next_step", strings.TrimSpace(resp.NextStep)),
	)
}

func (r *Runner) runLLMAgent(ctx context.Context, query string, interactive bool, history *SessionHistory) (response, error) {
	if !r.llmClient.Enabled() {
		return response{}, llm.ErrNotConfigured
	}

	var transcript llm.Transcript
	if history != nil {
		if len(history.GetMessages()) == 0 {
			history.Append(openrouter.SystemMessage(llm.SystemPrompt(r.clock.Now(), interactive)))
		}
		history.Append(openrouter.UserMessage(query))
		transcript = history
	} else {
		transcript = llm.NewTranscript(
			openrouter.SystemMessage(llm.SystemPrompt(r.clock.Now(), interactive)),
			openrouter.UserMessage(query),
		)
	}

	var toolCalls []toolCallRecord
	turn, err := r.llmClient.Answer(ctx, transcript, func(ctx context.Context, calls []llm.ToolCall) ([]llm.Message, error) {
		toolMsgs, records, err := r.executeToolCalls(ctx, calls)
		toolCalls = append(toolCalls, records...)
		return toolMsgs, err
	})
	if err != nil {
		return response{}, err
	}

	resp := response{Query: query, AnswerText: turn.Answer, ToolCalls: toolCalls}
	switch {
	case turn.ToolErr != nil:
		resp.AnswerText = FriendlyError(turn.ToolErr)
	case turn.Exhausted:
		resp.AnswerText = "Không thể hoàn tất yêu cầu: vượt quá số bước cho phép."
		resp.NextStep = "Hãy hỏi cụ thể hơn hoặc thu hẹp khoảng thời gian."
	}
	return resp, nil
}

// executeToolCalls answers every call of one assistant turn. Bad arguments
// and unknown tools are reported back to the model; a failing backend call
// ends the turn.
func (r *Runner) executeToolCalls(ctx context.Context, calls []llm.ToolCall) ([]openrouter.ChatCompletionMessage, []toolCallRecord, error) {
	toolMessages := make([]openrouter.ChatCompletionMessage, 0, len(calls))
	records := make([]toolCallRecord, 0, len(calls))

	for i, call := range calls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				record := toolCallRecord{
					Name: call.Function.Name,
					Err:  fmt.Sprintf("invalid tool args: %v", err),
				}
				records = append(records, record)
				logToolRecord(r.logger, record)
				toolMessages = append(toolMessages, openrouter.ToolMessage(call.ID, toolErrorPayload(record.Err)))
				continue
			}
		}

		result, record, err := r.dispatchToolCall(ctx, call.Function.Name, args)
		if err == nil && !record.OK {
			records = append(records, record)
			toolMessages = append(toolMessages, openrouter.ToolMessage(call.ID, toolErrorPayload(record.Err)))
			continue
		}
		if err == nil {
			var payload []byte
			if payload, err = json.Marshal(result); err == nil {
				records = append(records, record)
				toolMessages = append(toolMessages, openrouter.ToolMessage(call.ID, string(payload)))
				continue
			}
			record.OK = false
			record.Err = err.Error()
		}

		records = append(records, record)
		toolMessages = append(toolMessages, openrouter.ToolMessage(call.ID, toolErrorPayload(err.Error())))
		// Every call of the turn needs an answer before the next request.
		for _, rest := range calls[i+1:] {
			toolMessages = append(toolMessages, openrouter.ToolMessage(rest.ID, toolErrorPayload("skipped")))
		}
		return toolMessages, records, err
	}

	return toolMessages, records, nil
}

// toolArgError is a malformed argument the model can correct.
type toolArgError struct {
	msg string
}

func (e toolArgError) Error() string {
	return e.msg
}

func (r *Runner) dispatchToolCall(ctx context.Context, name string, args map[string]any) (any, toolCallRecord, error) {
	switch name {
	case llm.ToolSearchVariants:
		query, _ := getStringArg(args, "query")
		limit := clampLimit(getIntArg(args, "limit", pos.VariantSearchLimit), pos.VariantSearchLimit)
		return trackCall(r.logger, name, args, func() ([]pos.VariantHit, error) {
			if query == "" {
				return nil, toolArgError{"query is required"}
			}
			page, err := r.pos.SearchVariants(ctx, query, limit, 0)
			return page.Items, err
		})
	case llm.ToolSearchCustomers:
		query, _ := getStringArg(args, "query")
		limit := clampLimit(getIntArg(args, "limit", pos.CustomerSearchLimit), pos.CustomerSearchLimit)
		return trackCall(r.logger, name, args, func() ([]pos.Customer, error) {
			if len([]rune(query)) < pos.CustomerSearchMinLength {
				return nil, toolArgError{fmt.Sprintf("query needs at least %d characters", pos.CustomerSearchMinLength)}
			}
			page, err := r.pos.SearchCustomers(ctx, query, limit, 0)
			return page.Items, err
		})
	case llm.ToolListInvoices:
		p, err := listArgs(args)
		if err != nil {
			return nil, rejectArgs(r.logger, name, args, err), nil
		}
		p.PaymentStatus, _ = getStringArg(args, "payment_status")
		return trackCall(r.logger, name, args, func() (resource.Page[invoiceBrief], error) {
			page, err := r.pos.ListInvoices(ctx, p)
			return briefInvoices(page), err
		})
	case llm.ToolGetInvoice:
		id := int64(getIntArg(args, "id", 0))
		code, _ := getStringArg(args, "invoice_code")
		return trackCall(r.logger, name, args, func() (pos.Invoice, error) {
			switch {
			case id > 0:
				return r.pos.Invoice(ctx, id)
			case code != "":
				return r.pos.InvoiceByCode(ctx, code)
			default:
				return pos.Invoice{}, toolArgError{"id or invoice_code is required"}
			}
		})
	case llm.ToolGetSalesSummary:
		return trackCall(r.logger, name, args, func() (pos.InvoiceSummary, error) {
			return r.pos.InvoiceSummary(ctx)
		})
	case llm.ToolListImportOrders:
		p, err := listArgs(args)
		if err != nil {
			return nil, rejectArgs(r.logger, name, args, err), nil
		}
		p.SupplierName, _ = getStringArg(args, "supplier_name")
		return trackCall(r.logger, name, args, func() (resource.Page[pos.ImportOrder], error) {
			return r.pos.ListImportOrders(ctx, p)
		})
	default:
		return nil, rejectArgs(r.logger, name, args, fmt.Errorf("unknown tool: %s", name)), nil
	}
}

func rejectArgs(logger *zap.Logger, name string, args map[string]any, err error) toolCallRecord {
	record := toolCallRecord{Name: name, Args: args, Err: err.Error()}
	logToolRecord(logger, record)
	return record
}

// invoiceBrief keeps list results small enough for the model context.
type invoiceBrief struct {
	ID            int64     `json:"id"`
	InvoiceCode   string    `json:"invoice_code"`
	CustomerName  string    `json:"customer_name"`
	TotalAmount   float64   `json:"total_amount"`
	PaidAmount    float64   `json:"paid_amount"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func briefInvoices(page resource.Page[pos.Invoice]) resource.Page[invoiceBrief] {
	items := make([]invoiceBrief, 0, len(page.Items))
	for _, inv := range page.Items {
		items = append(items, invoiceBrief{
			ID:            inv.ID,
			InvoiceCode:   inv.InvoiceCode,
			CustomerName:  inv.CustomerName,
			TotalAmount:   inv.TotalAmount,
			PaidAmount:    inv.PaidAmount,
			PaymentStatus: inv.PaymentStatus,
			Status:        inv.Status,
			CreatedAt:     inv.CreatedAt,
		})
	}
	return resource.NewPage(items, page.Page, page.Limit, page.Total)
}

func listArgs(args map[string]any) (resource.ListParams, error) {
	p := resource.ListParams{
		Page:  getIntArg(args, "page", 1),
		Limit: getIntArg(args, "limit", resource.DefaultPageSize),
	}
	p.Search, _ = getStringArg(args, "search")
	p.Status, _ = getStringArg(args, "status")
	for key, dst := range map[string]*string{"date_from": &p.DateFrom, "date_to": &p.DateTo} {
		value, ok := getStringArg(args, key)
		if !ok || value == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, value); err != nil {
			return resource.ListParams{}, fmt.Errorf("invalid %s %q: want YYYY-MM-DD", key, value)
		}
		*dst = value
	}
	return p.Normalize(), nil
}

func trackCall[T any](logger *zap.Logger, name string, args map[string]any, fn func() (T, error)) (T, toolCallRecord, error) {
	start := time.Now()
	result, err := fn()
	record := toolCallRecord{
		Name: name,
		Args: args,
		MS:   time.Since(start).Milliseconds(),
		OK:   err == nil,
	}
	if err != nil {
		record.Err = err.Error()
	}
	logToolRecord(logger, record)
	var argErr toolArgError
	if errors.As(err, &argErr) {
		return result, record, nil
	}
	return result, record, err
}

func getStringArg(args map[string]any, key string) (string, bool) {
	value, ok := args[key]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

func getIntArg(args map[string]any, key string, fallback int) int {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return int(parsed)
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func clampLimit(limit, ceiling int) int {
	if limit <= 0 {
		return defaultOutputLimit
	}
	return min(limit, ceiling)
}

func toolErrorPayload(message string) string {
	encoded, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, message)
	}
	return string(encoded)
}

func logToolRecord(logger *zap.Logger, record toolCallRecord) {
	logger.Info("tool call",
		zap.String("name", record.Name),
		zap.Any("args", record.Args),
		zap.Int64("ms", record.MS),
		zap.Bool("ok", record.OK),
		zap.String("err", record.Err),
	)
}
