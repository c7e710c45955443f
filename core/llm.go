package core

type LLMMessageRole string

const (
	LLMMessageRoleUser      LLMMessageRole = "user"
	LLMMessageRoleAssistant LLMMessageRole = "assistant"
	LLMMessageRoleSystem    LLMMessageRole = "system"
)

// LLMMessage is one entry of the prompt transcript sent to the language model.
type LLMMessage struct {
	Role    LLMMessageRole `json:"role"`
	Content string         `json:"content"`
}

// CompletionOptions tune a single completion call.
type CompletionOptions struct {
	MaxTokens int      // 0 means the service default
	Stop      []string // stop sequences
}

// FinishReason reports how the model ended a completion.
type FinishReason string

const (
	FinishStop   FinishReason = "stop"   // model stopped cleanly
	FinishLength FinishReason = "length" // token budget exhausted mid-thought
	FinishOther  FinishReason = "other"
)
