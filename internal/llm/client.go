// Package llm wraps the OpenRouter chat API used by the reporting assistant.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"steelpos/internal/config"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

// MaxToolRounds caps the requests of one question.
const MaxToolRounds = 4

var (
	ErrNotConfigured = errors.New("llm is not configured")
	ErrEmptyResponse = errors.New("llm returned empty response")
)

type (
	ToolCall = openrouter.ToolCall
	Message  = openrouter.ChatCompletionMessage
)

// Transcript is the message list a question runs against. SessionHistory
// keeps one across the questions of a session.
type Transcript interface {
	GetMessages() []Message
	Append(msg Message)
	AppendTurn(assistant Message, tools []Message)
}

// ToolRunner answers every call of one assistant turn with a tool message
// per call. An error ends the question after the answers are recorded.
type ToolRunner func(ctx context.Context, calls []ToolCall) ([]Message, error)

// Usage sums the token counts and cost of the requests of one question.
type Usage struct {
	Requests         int     `json:"requests"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
}

func (u *Usage) add(resp openrouter.ChatCompletionResponse) {
	u.Requests++
	if resp.Usage == nil {
		return
	}
	u.PromptTokens += resp.Usage.PromptTokens
	u.CompletionTokens += resp.Usage.CompletionTokens
	u.TotalTokens += resp.Usage.TotalTokens
	u.Cost += resp.Usage.Cost
}

// Turn is the outcome of one question.
type Turn struct {
	Answer string
	Rounds int
	Usage  Usage
	// ToolErr is the tool failure that ended the question early.
	ToolErr error
	// Exhausted is set when the model still asked for tools after
	// MaxToolRounds requests.
	Exhausted bool
}

type Client struct {
	client  *openrouter.Client
	model   string
	logger  *zap.Logger
	enabled bool
}

// NewClient never fails on missing settings: the assistant is simply off and
// every call returns ErrNotConfigured.
func NewClient(cfg config.Config, logger *zap.Logger) (*Client, error) {
	logger = logger.Named("llm")
	model := strings.TrimSpace(cfg.LLMModel)
	apiKey := strings.TrimSpace(cfg.LLMAPIKey)

	if model == "" || apiKey == "" {
		logger.Debug("llm config is incomplete; the reporting assistant is disabled",
			zap.Bool("has_model", model != ""),
			zap.Bool("has_api_key", apiKey != ""),
		)
		return &Client{
			model:  model,
			logger: logger,
		}, nil
	}

	orCfg := openrouter.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.LLMBaseURL); baseURL != "" {
		orCfg.BaseURL = baseURL
	}
	orCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client:  openrouter.NewClientWithConfig(*orCfg),
		model:   model,
		logger:  logger,
		enabled: true,
	}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Answer runs the question already appended to t. Every assistant turn that
// asks for tools is answered through run and recorded on t together with
// the tool messages; the final answer is appended on its own.
func (c *Client) Answer(ctx context.Context, t Transcript, run ToolRunner) (Turn, error) {
	if !c.Enabled() {
		return Turn{}, ErrNotConfigured
	}

	var turn Turn
	defer func() { c.logTurn(turn) }()

	for turn.Rounds < MaxToolRounds {
		resp, err := c.complete(ctx, t.GetMessages(), turn.Rounds)
		turn.Rounds++
		if err != nil {
			return turn, err
		}
		turn.Usage.add(resp)
		if len(resp.Choices) == 0 {
			return turn, ErrEmptyResponse
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			t.Append(msg)
			turn.Answer = strings.TrimSpace(msg.Content.Text)
			return turn, nil
		}

		toolMsgs, err := run(ctx, msg.ToolCalls)
		t.AppendTurn(msg, toolMsgs)
		if err != nil {
			turn.ToolErr = err
			return turn, nil
		}
	}

	turn.Exhausted = true
	return turn, nil
}

func (c *Client) complete(ctx context.Context, messages []Message, round int) (openrouter.ChatCompletionResponse, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    ToolSchemas(),
	})
	if err != nil {
		c.logger.Warn("chat completion failed", zap.Int("round", round), zap.Error(err))
		return resp, err
	}

	fields := []zap.Field{
		zap.Int("round", round),
		zap.Int("messages", len(messages)),
	}
	if len(resp.Choices) > 0 {
		msg := resp.Choices[0].Message
		fields = append(fields,
			zap.String("content", msg.Content.Text),
			zap.Int("tool_calls", len(msg.ToolCalls)),
		)
	}
	if resp.Usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)
	}
	c.logger.Debug("chat completion", fields...)
	return resp, nil
}

func (c *Client) logTurn(turn Turn) {
	c.logger.Info("llm usage",
		zap.String("model", c.model),
		zap.Int("requests", turn.Usage.Requests),
		zap.Int("prompt_tokens", turn.Usage.PromptTokens),
		zap.Int("completion_tokens", turn.Usage.CompletionTokens),
		zap.Int("total_tokens", turn.Usage.TotalTokens),
		zap.Float64("cost", turn.Usage.Cost),
		zap.Bool("exhausted", turn.Exhausted),
	)
}

// oneShot is the transcript of a question asked outside a session.
type oneShot struct {
	messages []Message
}

// NewTranscript starts a transcript holding messages.
func NewTranscript(messages ...Message) Transcript {
	return &oneShot{messages: append([]Message(nil), messages...)}
}

func (o *oneShot) GetMessages() []Message {
	return append([]Message(nil), o.messages...)
}

func (o *oneShot) Append(msg Message) {
	o.messages = append(o.messages, msg)
}

func (o *oneShot) AppendTurn(assistant Message, tools []Message) {
	o.messages = append(o.messages, assistant)
	o.messages = append(o.messages, tools...)
}
