package meeting

import "github.com/Nonhuman-Nonsense/council-of-foods-sub001/core"

// NextSpeaker decides who speaks next given an arbitrarily interrupted
// history. Pure and deterministic: it scans the history backward and returns
// an index into characters.
//
// A human message with a direct address overrides rotation and hands the turn
// to the addressed character. An out-of-rotation answer to such a question is
// then erased from rotation bookkeeping, unless the answerer happened to be
// the natural next speaker anyway, in which case their turn counts as the new
// baseline. Invitations and plain human remarks never count as turns.
func NextSpeaker(history []core.ConversationMessage, characters []core.Character) int {
	n := len(characters)
	if n == 0 {
		return 0
	}

	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		switch {
		case msg.Type == core.MessageHuman && msg.AskParticular != "":
			// Already answered by the following message: the exchange is
			// complete, skip both.
			if i+1 < len(history) && history[i+1].Type == core.MessageResponse {
				continue
			}
			if idx := characterIndex(characters, msg.AskParticular); idx >= 0 {
				return idx
			}
			continue

		case msg.Type == core.MessageHuman:
			continue

		case msg.Type == core.MessageInvitation:
			continue

		case msg.Type == core.MessageResponse:
			respIdx := characterIndex(characters, msg.Speaker)
			if respIdx < 0 {
				continue
			}
			// Who would naturally have spoken had the interruption not
			// happened: the next after the speaker two positions back (the
			// message before the human question). With stacked interruptions
			// this two-step lookback is a heuristic, not a proven rule.
			if i < 2 {
				continue
			}
			anchor := characterIndex(characters, history[i-2].Speaker)
			if anchor < 0 {
				continue
			}
			if respIdx != (anchor+1)%n {
				continue // off-turn answer: rotation resumes as if it never happened
			}
			return (respIdx + 1) % n // on-turn answer becomes the new baseline

		default:
			idx := characterIndex(characters, msg.Speaker)
			if idx < 0 {
				continue
			}
			return (idx + 1) % n
		}
	}
	return 0
}

// characterIndex resolves a character by id or display name.
func characterIndex(characters []core.Character, idOrName string) int {
	for i, c := range characters {
		if c.ID == idOrName || c.Name == idOrName {
			return i
		}
	}
	return -1
}
