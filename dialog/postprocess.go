package dialog

import (
	"regexp"
	"strings"

	"github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"
)

// crossTalkWindow is how far into the remaining text a foreign name label is
// still treated as cross-talk. Deeper occurrences are assumed to be genuine
// mentions, not the model speaking for someone else.
const crossTalkWindow = 20

var (
	enumeratedItemRegex   = regexp.MustCompile(`^\s*\d+[.)]\s`)
	enumeratedMarkerRegex = regexp.MustCompile(`^\s*\d+[.)]?\s*$`)
)

// PostProcess cleans one raw model output: strips the speaker's own name-label
// echo, trims unfinished output back to a sentence or paragraph boundary,
// truncates cross-talk, and for the chair repairs dangling enumerated lists.
// Returns the cleaned text and whether any trailing content was cut.
func PostProcess(raw string, finish core.FinishReason, characters []core.Character, speaker core.Character, trimParagraph bool) (string, bool) {
	text := strings.TrimSpace(raw)
	text = StripNamePrefix(text, speaker.Name)

	trimmed := false
	if finish != core.FinishStop {
		// Model hit a length or stop limit mid-thought; cut back to the last
		// complete boundary.
		if cut := trimToBoundary(text, trimParagraph); cut != text {
			text = cut
			trimmed = true
		}
	}

	if cut := truncateCrossTalk(text, characters, speaker); cut != text {
		text = cut
		trimmed = true
	}

	if speaker.Role == core.RoleChair {
		text = repairEnumeratedList(text, trimmed)
	}

	return strings.TrimSpace(text), trimmed
}

// StripNamePrefix removes a leading "Name:" or "**Name**:" echo.
func StripNamePrefix(text, name string) string {
	for _, prefix := range []string{name + ":", "**" + name + "**:"} {
		if strings.HasPrefix(text, prefix) {
			return strings.TrimSpace(text[len(prefix):])
		}
	}
	return text
}

// trimToBoundary cuts text back to the last full sentence, or the last full
// paragraph when paragraph trimming is configured.
func trimToBoundary(text string, trimParagraph bool) string {
	if trimParagraph {
		if i := strings.LastIndex(text, "\n\n"); i > 0 {
			return strings.TrimSpace(text[:i])
		}
	}
	if i := strings.LastIndexAny(text, ".!?"); i >= 0 {
		return strings.TrimSpace(text[:i+1])
	}
	return text
}

// truncateCrossTalk cuts text at the first point another character's name
// appears as a label. A label is only honored when it starts a line, or when
// it shows up within the first crossTalkWindow bytes of the text that would
// remain after the cut.
func truncateCrossTalk(text string, characters []core.Character, speaker core.Character) string {
	cut := len(text)
	for _, c := range characters {
		if c.ID == speaker.ID {
			continue
		}
		label := c.Name + ":"
		if i := strings.Index(text, "\n"+label); i >= 0 && i < cut {
			cut = i
		}
		if i := strings.Index(text, label); i >= 0 && i < crossTalkWindow && i < cut {
			cut = i
		}
	}
	if cut == len(text) {
		return text
	}
	return strings.TrimSpace(text[:cut])
}

// repairEnumeratedList handles the chair's habit of introducing a numbered
// list that got cut off: a dangling "...:" intro with no items after it, or a
// final item left without sentence-ending punctuation, is dropped.
func repairEnumeratedList(text string, wasTrimmed bool) string {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return text
	}

	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return text
	}

	// Sentence trimming can leave a bare item marker ("3.") as the last line.
	if enumeratedMarkerRegex.MatchString(last) {
		return strings.TrimSpace(strings.Join(lines[:len(lines)-1], "\n"))
	}

	// Intro line ending in ":" with nothing after it.
	if strings.HasSuffix(last, ":") && len(lines) >= 1 {
		hasItems := false
		for _, line := range lines[:len(lines)-1] {
			if enumeratedItemRegex.MatchString(line) {
				hasItems = true
				break
			}
		}
		if !hasItems || wasTrimmed {
			return strings.TrimSpace(strings.Join(lines[:len(lines)-1], "\n"))
		}
	}

	// Trimming left a final list item hanging without terminal punctuation.
	if wasTrimmed && enumeratedItemRegex.MatchString(last) && !strings.ContainsAny(last[len(last)-1:], ".!?") {
		return strings.TrimSpace(strings.Join(lines[:len(lines)-1], "\n"))
	}

	return text
}
