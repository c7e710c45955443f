package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
)

type scriptedLLM struct {
	reply    string
	finish   core.FinishReason
	err      error
	requests [][]core.LLMMessage
	opts     []core.CompletionOptions
}

func (s *scriptedLLM) Complete(_ context.Context, messages []core.LLMMessage, opts core.CompletionOptions) (string, core.FinishReason, error) {
	s.requests = append(s.requests, messages)
	s.opts = append(s.opts, opts)
	if s.err != nil {
		return "", core.FinishOther, s.err
	}
	return s.reply, s.finish, nil
}

func testOptions() core.MeetingOptions {
	return core.MeetingOptions{Topic: "The council convenes on the future of soil."}
}

func TestTurnBuildsTranscript(t *testing.T) {
	llm := &scriptedLLM{reply: "Tomato: The vine teaches patience.", finish: core.FinishStop}
	g := NewGenerator(llm, DefaultConfig(), core.GetLogger())

	history := []core.ConversationMessage{
		{ID: "m1", Speaker: "water", Text: "Order, order.", Type: core.MessageDefault},
		{ID: "m2", Speaker: "tomato", Text: "I am here.", Type: core.MessageDefault},
		{ID: "m3", Speaker: "potato", Text: "So am I.", Type: core.MessageSkipped},
		{ID: "m4", Speaker: "Ada", Text: "What about worms?", Type: core.MessageHuman},
	}

	res, err := g.Turn(context.Background(), history, testCharacters, speaker("tomato"), testOptions())
	if err != nil {
		t.Fatalf("Turn() error: %v", err)
	}
	if res.Text != "The vine teaches patience." {
		t.Errorf("Text = %q", res.Text)
	}
	if len(res.Sentences) != 1 {
		t.Errorf("Sentences = %q, want one", res.Sentences)
	}

	msgs := llm.requests[0]
	// System + 3 non-skipped history entries + trailing prefill.
	if len(msgs) != 5 {
		t.Fatalf("transcript length = %d, want 5: %+v", len(msgs), msgs)
	}
	if msgs[0].Role != core.LLMMessageRoleSystem || !strings.Contains(msgs[0].Content, "future of soil") {
		t.Errorf("system message = %+v", msgs[0])
	}
	if msgs[1].Role != core.LLMMessageRoleUser || msgs[1].Content != "Water: Order, order." {
		t.Errorf("history entry = %+v, want Water's line as user", msgs[1])
	}
	if msgs[2].Role != core.LLMMessageRoleAssistant {
		t.Errorf("speaker's own turn tagged %q, want assistant", msgs[2].Role)
	}
	if msgs[3].Content != "Ada: What about worms?" {
		t.Errorf("human entry = %+v, want the recorded name kept", msgs[3])
	}
	last := msgs[len(msgs)-1]
	if last.Role != core.LLMMessageRoleAssistant || last.Content != "Tomato: " {
		t.Errorf("prefill = %+v, want the speaker's name label", last)
	}
}

func TestTurnEmptyOutputIsNotAnError(t *testing.T) {
	llm := &scriptedLLM{reply: "   ", finish: core.FinishStop}
	g := NewGenerator(llm, DefaultConfig(), core.GetLogger())

	res, err := g.Turn(context.Background(), nil, testCharacters, speaker("tomato"), testOptions())
	if err != nil {
		t.Fatalf("Turn() error: %v", err)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want empty", res.Text)
	}
}

func TestTurnPropagatesServiceError(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("rate limited")}
	g := NewGenerator(llm, DefaultConfig(), core.GetLogger())

	if _, err := g.Turn(context.Background(), nil, testCharacters, speaker("tomato"), testOptions()); err == nil {
		t.Fatal("Turn() swallowed the service error")
	}
}

func TestInvitationUsesNewlineStop(t *testing.T) {
	llm := &scriptedLLM{reply: "Water: Ada, please share your thoughts.", finish: core.FinishStop}
	g := NewGenerator(llm, DefaultConfig(), core.GetLogger())

	res, err := g.Invitation(context.Background(), nil, testCharacters, speaker("water"), "Ada", testOptions())
	if err != nil {
		t.Fatalf("Invitation() error: %v", err)
	}
	if !strings.Contains(res.Text, "Ada") {
		t.Errorf("Text = %q", res.Text)
	}

	opts := llm.opts[0]
	if opts.MaxTokens != DefaultConfig().InvitationMaxTokens {
		t.Errorf("MaxTokens = %d, want the invitation budget", opts.MaxTokens)
	}
	if len(opts.Stop) != 1 || opts.Stop[0] != "\n" {
		t.Errorf("Stop = %q, want a newline stop", opts.Stop)
	}

	// The instruction rides as the final user message before the prefill.
	msgs := llm.requests[0]
	instruction := msgs[len(msgs)-2]
	if instruction.Role != core.LLMMessageRoleUser || !strings.Contains(instruction.Content, "raised their hand") {
		t.Errorf("instruction = %+v", instruction)
	}
}

func TestSummaryUsesSummaryBudget(t *testing.T) {
	llm := &scriptedLLM{reply: "Water: We resolved to compost.", finish: core.FinishStop}
	g := NewGenerator(llm, DefaultConfig(), core.GetLogger())

	if _, err := g.Summary(context.Background(), nil, testCharacters, speaker("water"), "1 June 2026", testOptions()); err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if got := llm.opts[0].MaxTokens; got != DefaultConfig().SummaryMaxTokens {
		t.Errorf("MaxTokens = %d, want the summary budget", got)
	}
	if !strings.Contains(llm.requests[0][1].Content, "1 June 2026") {
		t.Errorf("summary instruction missing the date: %+v", llm.requests[0])
	}
}

func TestTranscriptCarriesLanguage(t *testing.T) {
	llm := &scriptedLLM{reply: "Tomato: Hej.", finish: core.FinishStop}
	g := NewGenerator(llm, DefaultConfig(), core.GetLogger())

	opts := testOptions()
	opts.Language = "Swedish"
	if _, err := g.Turn(context.Background(), nil, testCharacters, speaker("tomato"), opts); err != nil {
		t.Fatalf("Turn() error: %v", err)
	}
	if !strings.Contains(llm.requests[0][0].Content, "Swedish") {
		t.Errorf("system message missing language: %q", llm.requests[0][0].Content)
	}
}
