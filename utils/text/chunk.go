package text

import "strings"

// SplitText splits text into chunks of at most limit bytes, cutting at the
// latest natural boundary at or before the limit: a paragraph break first,
// then a single newline, then a sentence-ending ". ", else a hard cut.
// Chunks come back trimmed and in order.
func SplitText(text string, limit int) []string {
	if limit <= 0 {
		return []string{strings.TrimSpace(text)}
	}

	var chunks []string
	rest := strings.TrimSpace(text)
	for len(rest) > limit {
		cut := findSplitPoint(rest, limit)
		chunk := strings.TrimSpace(rest[:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		rest = strings.TrimSpace(rest[cut:])
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// findSplitPoint returns the cut index within (0, limit] for the next chunk.
func findSplitPoint(s string, limit int) int {
	window := s[:limit]

	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		return i
	}
	if i := strings.LastIndex(window, "\n"); i > 0 {
		return i
	}
	if i := strings.LastIndex(window, ". "); i > 0 {
		return i + 1 // keep the period with the chunk
	}
	// Hard cut, backed off to a rune boundary.
	cut := limit
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	if cut == 0 {
		cut = limit
	}
	return cut
}
