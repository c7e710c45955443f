package audio

import (
	"strings"
	"testing"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
)

// wordsFor fabricates a transcript with uniform half-second words.
func wordsFor(text string) []core.Word {
	fields := strings.Fields(text)
	words := make([]core.Word, len(fields))
	for i, f := range fields {
		words[i] = core.Word{
			Word:  f,
			Start: float64(i) * 0.5,
			End:   float64(i)*0.5 + 0.5,
		}
	}
	return words
}

func TestAlignSentencesExactTranscript(t *testing.T) {
	sentences := []string{
		"The soil is alive.",
		"We must protect it.",
	}
	words := wordsFor("The soil is alive We must protect it")

	spans := AlignSentences(sentences, words)
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	if spans[0].Start != 0 || spans[0].End != 2.0 {
		t.Errorf("first span = [%v, %v], want [0, 2]", spans[0].Start, spans[0].End)
	}
	if spans[1].Start != 2.0 || spans[1].End != 4.0 {
		t.Errorf("second span = [%v, %v], want [2, 4]", spans[1].Start, spans[1].End)
	}
}

func TestAlignSentencesTranscriptionDrift(t *testing.T) {
	sentences := []string{
		"Hello dear council.",
		"Today we discuss tomatoes.",
	}
	// The transcription mangled one word; anchors should still land on the
	// surviving tokens.
	words := wordsFor("Hello dear counsel Today we discuss tomatoes")

	spans := AlignSentences(sentences, words)
	if spans[0].Start != words[0].Start {
		t.Errorf("first span starts at %v, want %v", spans[0].Start, words[0].Start)
	}
	if spans[1].Start < spans[0].End {
		t.Errorf("second span starts at %v, before first ends at %v", spans[1].Start, spans[0].End)
	}
	if spans[1].End != words[len(words)-1].End {
		t.Errorf("second span ends at %v, want %v", spans[1].End, words[len(words)-1].End)
	}
}

func TestAlignSentencesPunctuationOnly(t *testing.T) {
	sentences := []string{
		"Welcome everyone.",
		"...",
		"Let us begin.",
	}
	words := wordsFor("Welcome everyone Let us begin")

	spans := AlignSentences(sentences, words)
	if len(spans) != 3 {
		t.Fatalf("spans = %d, want 3", len(spans))
	}
	// Zero-duration span pinned to the previous sentence's end.
	if spans[1].Start != spans[0].End || spans[1].End != spans[0].End {
		t.Errorf("punctuation span = [%v, %v], want pinned at %v", spans[1].Start, spans[1].End, spans[0].End)
	}
}

func TestAlignSentencesMonotonic(t *testing.T) {
	cases := []struct {
		name       string
		sentences  []string
		transcript string
	}{
		{
			name:       "clean",
			sentences:  []string{"One two three.", "Four five.", "Six."},
			transcript: "one two three four five six",
		},
		{
			name:       "repeated filler words",
			sentences:  []string{"Well well well.", "Well indeed.", "Indeed well."},
			transcript: "well well well well indeed indeed well",
		},
		{
			name:       "transcript shorter than text",
			sentences:  []string{"Alpha beta gamma delta.", "Epsilon zeta eta."},
			transcript: "alpha beta",
		},
		{
			name:       "nothing matches",
			sentences:  []string{"Completely different words.", "Nothing aligns here."},
			transcript: "unrelated audio transcription output tokens",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spans := AlignSentences(tc.sentences, wordsFor(tc.transcript))
			if len(spans) != len(tc.sentences) {
				t.Fatalf("spans = %d, want %d", len(spans), len(tc.sentences))
			}
			prevEnd := 0.0
			for i, span := range spans {
				if span.End < span.Start {
					t.Errorf("span %d: end %v < start %v", i, span.End, span.Start)
				}
				if span.Start < prevEnd {
					t.Errorf("span %d: start %v before previous end %v", i, span.Start, prevEnd)
				}
				prevEnd = span.End
			}
		})
	}
}

func TestAlignSentencesEmptyInputs(t *testing.T) {
	if spans := AlignSentences(nil, wordsFor("some words")); len(spans) != 0 {
		t.Errorf("nil sentences produced %d spans", len(spans))
	}
	spans := AlignSentences([]string{"Hello there."}, nil)
	if len(spans) != 1 || spans[0].Start != 0 || spans[0].End != 0 {
		t.Errorf("no-transcript span = %+v, want zero-duration at 0", spans)
	}
}
