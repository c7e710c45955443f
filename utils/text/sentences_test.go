package text

import (
	"reflect"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple sentences",
			text: "The soil is alive. We must protect it.",
			want: []string{"The soil is alive.", "We must protect it."},
		},
		{
			name: "exclamations and questions",
			text: "Really?! Yes! Are you sure?",
			want: []string{"Really?!", "Yes!", "Are you sure?"},
		},
		{
			name: "closing quote stays with the sentence",
			text: `She said "enough." Then she left.`,
			want: []string{`She said "enough."`, "Then she left."},
		},
		{
			name: "abbreviation does not split",
			text: "Dr. Beet spoke first. Mr. Leek agreed.",
			want: []string{"Dr. Beet spoke first.", "Mr. Leek agreed."},
		},
		{
			name: "paragraph break terminates a sentence",
			text: "A thought without punctuation\nAnother line here.",
			want: []string{"A thought without punctuation", "Another line here."},
		},
		{
			name: "no terminator at all",
			text: "just trailing words",
			want: []string{"just trailing words"},
		},
		{
			name: "ellipsis is one terminator run",
			text: "Well... maybe. Fine.",
			want: []string{"Well...", "maybe.", "Fine."},
		},
		{
			name: "empty input",
			text: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello,", "hello"},
		{`"Soil!"`, "soil"},
		{"it's", "its"},
		{"...", ""},
		{"Número", "número"},
		{"42nd", "42nd"},
	}
	for _, tt := range tests {
		if got := NormalizeToken(tt.in); got != tt.want {
			t.Errorf("NormalizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Well... the Soil, it's ALIVE!")
	want := []string{"well", "the", "soil", "its", "alive"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %q, want %q", got, want)
	}
}
