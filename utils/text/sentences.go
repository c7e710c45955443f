package text

import (
	"regexp"
	"strings"
)

var (
	// Sentence boundary: run of terminators, optionally followed by closing
	// quotes or brackets, then whitespace or end of input.
	sentenceEndRegex = regexp.MustCompile(`[.!?]+[!?]*["')\]]*(\s+|$)`)

	// Abbreviations that end with a period but do not end a sentence.
	abbreviationRegex = regexp.MustCompile(`(?i)\b(mr|mrs|ms|dr|prof|sr|jr|st|vs|etc|no|approx|i\.?e|e\.?g)\.$`)
)

// SplitSentences splits text into sentences, keeping terminal punctuation with
// each sentence. Paragraph breaks always terminate a sentence. Text without
// any terminator comes back as a single sentence.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	for _, paragraph := range strings.Split(text, "\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		start := 0
		for _, loc := range sentenceEndRegex.FindAllStringIndex(paragraph, -1) {
			candidate := strings.TrimSpace(paragraph[start:loc[1]])
			if candidate == "" {
				continue
			}
			if abbreviationRegex.MatchString(strings.TrimRight(candidate, `"')]`)) {
				continue // period belongs to an abbreviation, keep scanning
			}
			sentences = append(sentences, candidate)
			start = loc[1]
		}
		if rest := strings.TrimSpace(paragraph[start:]); rest != "" {
			sentences = append(sentences, rest)
		}
	}
	return sentences
}
