package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
)

// Config holds the configuration for the OpenAI completion service
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAILLMService generates chat completions through the OpenAI API.
// Completions are not streamed: the turn loop needs the full utterance before
// post-processing and audio synthesis can start.
type OpenAILLMService struct {
	client      *openai.Client
	apiKey      string
	model       string
	maxTokens   int
	temperature float32

	isInitialized bool
	mu            sync.RWMutex
}

// NewOpenAILLMService creates a new instance of OpenAILLMService
func NewOpenAILLMService(config Config) *OpenAILLMService {
	if config.Model == "" {
		config.Model = openai.GPT4o
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 400
	}
	return &OpenAILLMService{
		apiKey:      config.APIKey,
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
	}
}

// Init initializes the OpenAI service
func (s *OpenAILLMService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isInitialized {
		return nil
	}
	if s.apiKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	s.client = openai.NewClient(s.apiKey)
	s.isInitialized = true
	return nil
}

// Cleanup performs cleanup operations
func (s *OpenAILLMService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.client = nil
	s.isInitialized = false
	return nil
}

// Complete runs one chat completion and returns the generated text and how the
// model finished.
func (s *OpenAILLMService) Complete(ctx context.Context, messages []core.LLMMessage, opts core.CompletionOptions) (string, core.FinishReason, error) {
	s.mu.RLock()
	client := s.client
	initialized := s.isInitialized
	s.mu.RUnlock()

	if !initialized {
		return "", core.FinishOther, fmt.Errorf("OpenAI service not initialized")
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = s.maxTokens
	}
	stop := opts.Stop
	if len(stop) > 4 {
		stop = stop[:4] // OpenAI accepts at most 4 stop sequences
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    convertMessages(messages),
		MaxTokens:   maxTokens,
		Temperature: s.temperature,
		Stop:        stop,
	})
	if err != nil {
		return "", core.FinishOther, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", core.FinishOther, fmt.Errorf("chat completion: empty choices")
	}

	choice := resp.Choices[0]
	return choice.Message.Content, convertFinishReason(choice.FinishReason), nil
}

// convertMessages converts core messages to OpenAI messages
func convertMessages(messages []core.LLMMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case core.LLMMessageRoleSystem:
			role = openai.ChatMessageRoleSystem
		case core.LLMMessageRoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}
	return out
}

func convertFinishReason(reason openai.FinishReason) core.FinishReason {
	switch reason {
	case openai.FinishReasonStop:
		return core.FinishStop
	case openai.FinishReasonLength:
		return core.FinishLength
	default:
		return core.FinishOther
	}
}
