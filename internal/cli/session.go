package cli

import (
	"unicode/utf8"

	openrouter "github.com/revrost/go-openrouter"
	"go.uber.org/zap"
)

const (
	defaultHistoryMaxMessages = 30
	defaultHistoryMaxTokens   = 6000
)

// SessionHistory is the conversation of one assistant session. It is trimmed
// oldest first, a whole turn at a time, and keeps the system prompt.
type SessionHistory struct {
	messages    []openrouter.ChatCompletionMessage
	maxMessages int
	maxTokens   int
	logger      *zap.Logger
}

func NewSessionHistory(maxMessages, maxTokens int, logger *zap.Logger) *SessionHistory {
	if maxMessages <= 0 {
		maxMessages = defaultHistoryMaxMessages
	}
	if maxTokens <= 0 {
		maxTokens = defaultHistoryMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHistory{
		maxMessages: maxMessages,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

func (h *SessionHistory) Append(message openrouter.ChatCompletionMessage) {
	h.messages = append(h.messages, message)
	h.enforceLimits()
}

// AppendTurn adds an assistant tool-call message with its tool answers in
// one step, so trimming never separates them.
func (h *SessionHistory) AppendTurn(assistant openrouter.ChatCompletionMessage, tools []openrouter.ChatCompletionMessage) {
	h.messages = append(h.messages, assistant)
	h.messages = append(h.messages, tools...)
	h.enforceLimits()
}

func (h *SessionHistory) GetMessages() []openrouter.ChatCompletionMessage {
	if len(h.messages) == 0 {
		return nil
	}
	out := make([]openrouter.ChatCompletionMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *SessionHistory) Clear() {
	h.messages = nil
}

func (h *SessionHistory) TokenCount() int {
	return estimateTokens(h.messages)
}

func (h *SessionHistory) enforceLimits() {
	trimmed := false
	for h.overLimit() {
		next, ok := dropOldestTurn(h.messages)
		if !ok {
			break
		}
		h.messages = next
		trimmed = true
	}

	if trimmed {
		h.logger.Info("session history trimmed",
			zap.Int("messages", len(h.messages)),
			zap.Int("tokens", estimateTokens(h.messages)),
		)
	}
}

func (h *SessionHistory) overLimit() bool {
	return len(h.messages) > h.maxMessages || estimateTokens(h.messages) > h.maxTokens
}

// dropOldestTurn removes the first non-system message and the tool answers
// that belong to it. The newest user message is never dropped.
func dropOldestTurn(messages []openrouter.ChatCompletionMessage) ([]openrouter.ChatCompletionMessage, bool) {
	start := 0
	if len(messages) > 0 && messages[0].Role == openrouter.ChatMessageRoleSystem {
		start = 1
	}
	if len(messages)-start <= 1 {
		return messages, false
	}

	end := start + 1
	for end < len(messages) && messages[end].Role == openrouter.ChatMessageRoleTool {
		end++
	}
	if end >= len(messages) {
		return messages, false
	}

	out := make([]openrouter.ChatCompletionMessage, 0, len(messages)-(end-start))
	out = append(out, messages[:start]...)
	out = append(out, messages[end:]...)
	return out, true
}

func estimateTokens(messages []openrouter.ChatCompletionMessage) int {
	total := 0
	for _, msg := range messages {
		total += estimateTokensForMessage(msg)
	}
	return total
}

// estimateTokensForMessage counts roughly four characters per token,
// tool-call arguments included.
func estimateTokensForMessage(message openrouter.ChatCompletionMessage) int {
	chars := utf8.RuneCountInString(message.Content.Text)
	if message.Content.Text == "" {
		for _, part := range message.Content.Multi {
			chars += utf8.RuneCountInString(part.Text)
		}
	}
	for _, call := range message.ToolCalls {
		chars += len(call.Function.Name) + len(call.Function.Arguments)
	}
	return (chars + 3) / 4
}
