package audio

import (
	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
	textutil "github.com/Nonhuman-Nonsense/council-of-foods-sub001/utils/text"
)

const (
	// startSearchWindow is how many tokens past the cursor the start anchor of
	// a sentence may sit (transcription sometimes inserts or drops a token).
	startSearchWindow = 8

	// endSearchSlack widens the end-anchor window past the sentence's expected
	// token count.
	endSearchSlack = 5

	// anchorTokens is the longest token sequence tried when anchoring.
	anchorTokens = 3
)

// AlignSentences maps each sentence to a time range within the transcribed
// word list. The cursor into words only ever advances, so successive spans are
// monotonic. The heuristic degrades gracefully: any failed anchor falls back
// to the cursor position or the estimated sentence length, and the function
// never fails outright.
func AlignSentences(sentences []string, words []core.Word) []core.SentenceSpan {
	spans := make([]core.SentenceSpan, 0, len(sentences))
	cursor := 0
	prevEnd := 0.0

	for _, sentence := range sentences {
		tokens := textutil.Tokenize(sentence)

		// Punctuation- or emoji-only sentences get a zero-duration span at the
		// previous sentence's end, no lookup.
		if len(tokens) == 0 || cursor >= len(words) {
			spans = append(spans, core.SentenceSpan{Text: sentence, Start: prevEnd, End: prevEnd})
			continue
		}

		start := findStartAnchor(words, tokens, cursor)
		if start < 0 {
			start = cursor
		}

		end := findEndAnchor(words, tokens, start)
		if end < start {
			end = start
		}

		spans = append(spans, core.SentenceSpan{
			Text:  sentence,
			Start: words[start].Start,
			End:   words[end].End,
		})
		prevEnd = words[end].End
		cursor = end + 1
	}
	return spans
}

// findStartAnchor locates the sentence's first tokens in a small window past
// the cursor, trying the longest anchor first. Returns -1 when nothing in the
// window matches.
func findStartAnchor(words []core.Word, tokens []string, cursor int) int {
	limit := cursor + startSearchWindow
	if limit > len(words) {
		limit = len(words)
	}
	for n := min(anchorTokens, len(tokens)); n >= 1; n-- {
		for i := cursor; i+n <= limit; i++ {
			if matchesAt(words, tokens[:n], i) {
				return i
			}
		}
	}
	return -1
}

// findEndAnchor locates the sentence's last tokens in a window sized to the
// sentence's expected token count, preferring a match that is not suspiciously
// close to the start (a repeated filler word early in the sentence would
// otherwise swallow it). Falls back to the estimated sentence length.
func findEndAnchor(words []core.Word, tokens []string, start int) int {
	expected := start + len(tokens) - 1
	limit := expected + endSearchSlack
	if limit > len(words)-1 {
		limit = len(words) - 1
	}

	midpoint := start + len(tokens)/2
	for n := min(anchorTokens, len(tokens)); n >= 1; n-- {
		tail := tokens[len(tokens)-n:]
		fallback := -1
		for i := limit; i-n+1 >= start; i-- {
			if matchesAt(words, tail, i-n+1) {
				if i >= midpoint {
					return i
				}
				if fallback < 0 {
					fallback = i
				}
			}
		}
		if fallback >= 0 {
			return fallback
		}
	}

	if expected > len(words)-1 {
		return len(words) - 1
	}
	return expected
}

// matchesAt reports whether the normalized words starting at index i equal the
// token sequence.
func matchesAt(words []core.Word, tokens []string, i int) bool {
	for k, tok := range tokens {
		if textutil.NormalizeToken(words[i+k].Word) != tok {
			return false
		}
	}
	return true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
