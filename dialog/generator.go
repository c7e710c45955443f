// Package dialog builds prompt transcripts for meeting characters, runs the
// language model and applies deterministic post-processing to keep each
// utterance attributable to exactly one speaker.
package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
	textutil "github.com/Nonhuman-Nonsense/council-of-foods-sub001/utils/text"
)

// CompletionService is the language-model collaborator.
type CompletionService interface {
	Complete(ctx context.Context, messages []core.LLMMessage, opts core.CompletionOptions) (string, core.FinishReason, error)
}

// Config tunes the generator.
type Config struct {
	MaxTokens           int // budget for a normal turn
	InvitationMaxTokens int // shorter budget for chair invitations
	SummaryMaxTokens    int // larger budget for the closing summary
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:           400,
		InvitationMaxTokens: 120,
		SummaryMaxTokens:    700,
	}
}

// Generator produces character utterances from conversation history.
type Generator struct {
	service CompletionService
	config  Config
	logger  *core.Logger
}

// NewGenerator creates a generator backed by the given completion service.
func NewGenerator(service CompletionService, config Config, logger *core.Logger) *Generator {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Generator{service: service, config: config, logger: logger}
}

// Result is one post-processed utterance.
type Result struct {
	Text      string
	Sentences []string
	Trimmed   bool // true when the raw output was cut back to a boundary
}

// Turn generates a normal rotation turn for the character.
func (g *Generator) Turn(ctx context.Context, history []core.ConversationMessage, characters []core.Character, speaker core.Character, opts core.MeetingOptions) (*Result, error) {
	messages := g.buildTranscript(history, characters, speaker, opts, "")
	return g.generate(ctx, messages, characters, speaker, opts, core.CompletionOptions{
		MaxTokens: g.config.MaxTokens,
	})
}

// Invitation generates the chair's short utterance inviting a human to speak.
// It reuses the turn pipeline with a tighter token budget and a newline stop
// so the invitation stays a single spoken line.
func (g *Generator) Invitation(ctx context.Context, history []core.ConversationMessage, characters []core.Character, chair core.Character, humanName string, opts core.MeetingOptions) (*Result, error) {
	instruction := fmt.Sprintf(
		"A guest named %s has raised their hand. Briefly and warmly invite them to speak. One or two short sentences.",
		humanName)
	messages := g.buildTranscript(history, characters, chair, opts, instruction)
	return g.generate(ctx, messages, characters, chair, opts, core.CompletionOptions{
		MaxTokens: g.config.InvitationMaxTokens,
		Stop:      []string{"\n"},
	})
}

// Summary generates the chair's closing summary over the full history.
func (g *Generator) Summary(ctx context.Context, history []core.ConversationMessage, characters []core.Character, chair core.Character, date string, opts core.MeetingOptions) (*Result, error) {
	instruction := fmt.Sprintf(
		"The meeting of %s is closing. As the chair, summarize the discussion so far: the positions taken, points of agreement and disagreement, and any decisions reached.",
		date)
	messages := g.buildTranscript(history, characters, chair, opts, instruction)
	return g.generate(ctx, messages, characters, chair, opts, core.CompletionOptions{
		MaxTokens: g.config.SummaryMaxTokens,
	})
}

// generate runs one completion and post-processes the output. An empty result
// with nil error means the model produced nothing usable; the caller owns the
// retry budget.
func (g *Generator) generate(ctx context.Context, messages []core.LLMMessage, characters []core.Character, speaker core.Character, opts core.MeetingOptions, completion core.CompletionOptions) (*Result, error) {
	raw, finish, err := g.service.Complete(ctx, messages, completion)
	if err != nil {
		return nil, err
	}

	text, trimmed := PostProcess(raw, finish, characters, speaker, opts.TrimParagraph)
	if text == "" {
		g.logger.With(map[string]interface{}{"speaker": speaker.Name}).Warn("model produced empty output after post-processing")
		return &Result{}, nil
	}

	return &Result{
		Text:      text,
		Sentences: textutil.SplitSentences(text),
		Trimmed:   trimmed,
	}, nil
}

// buildTranscript builds the message list: one system message of topic and
// character prompt, one role-tagged entry per prior non-skipped message (the
// speaker's own past turns are assistant, everyone else's user), then a
// trailing "{name}: " partial-completion prompt to bias the model toward
// staying in character.
func (g *Generator) buildTranscript(history []core.ConversationMessage, characters []core.Character, speaker core.Character, opts core.MeetingOptions, instruction string) []core.LLMMessage {
	var system strings.Builder
	system.WriteString(opts.Topic)
	system.WriteString("\n\n")
	system.WriteString(speaker.Prompt)
	if opts.Language != "" {
		fmt.Fprintf(&system, "\n\nRespond in language: %s.", opts.Language)
	}

	messages := make([]core.LLMMessage, 0, len(history)+3)
	messages = append(messages, core.LLMMessage{
		Role:    core.LLMMessageRoleSystem,
		Content: system.String(),
	})

	for _, msg := range history {
		if msg.Type == core.MessageSkipped || msg.Type.Awaiting() {
			continue
		}
		role := core.LLMMessageRoleUser
		if msg.Speaker == speaker.ID {
			role = core.LLMMessageRoleAssistant
		}
		messages = append(messages, core.LLMMessage{
			Role:    role,
			Content: fmt.Sprintf("%s: %s", speakerName(msg, characters), msg.Text),
		})
	}

	if instruction != "" {
		messages = append(messages, core.LLMMessage{
			Role:    core.LLMMessageRoleUser,
			Content: instruction,
		})
	}

	// Partial completion: prime the model with its own name label.
	messages = append(messages, core.LLMMessage{
		Role:    core.LLMMessageRoleAssistant,
		Content: speaker.Name + ": ",
	})
	return messages
}

// speakerName resolves a message's speaker to a display name; ad hoc humans
// keep the name they were recorded with.
func speakerName(msg core.ConversationMessage, characters []core.Character) string {
	for _, c := range characters {
		if c.ID == msg.Speaker {
			return c.Name
		}
	}
	return msg.Speaker
}
