package codec

import (
	"encoding/json"

	"github.com/stemsi/exstem-assess/internal/model"
)

// matchingPrompt is the student-facing shape of a matching question.
type matchingPrompt struct {
	Left  []string `json:"left"`
	Right []string `json:"right"`
}

// OptionCount is the number of options a permutation for def must cover.
// Only multiple choice, matching and ranking options are permuted.
func OptionCount(def Definition) int {
	switch d := def.(type) {
	case ChoiceDefinition:
		return len(d.Options)
	case MatchingDefinition:
		return len(d.Pairs)
	case RankingDefinition:
		return len(d.Items)
	default:
		return 0
	}
}

// PublicOptions renders the options a student sees, with the answer key
// removed. perm, when non-nil, reorders the options: displayed position i
// shows option perm[i]. Without perm, matching rights and ranking items are
// listed alphabetically so the stored order does not leak the key.
func PublicOptions(def Definition, perm []int) json.RawMessage {
	switch d := def.(type) {
	case ChoiceDefinition:
		if d.Options == nil {
			return nil
		}
		return mustMarshal(permute(d.Options, perm))
	case MatchingDefinition:
		lefts := make([]string, len(d.Pairs))
		rights := make([]string, len(d.Pairs))
		for i, p := range d.Pairs {
			lefts[i] = p.Left
			rights[i] = p.Right
		}
		if perm == nil {
			rights = d.sortedRights()
		} else {
			rights = permute(rights, perm)
		}
		return mustMarshal(matchingPrompt{Left: lefts, Right: rights})
	case RankingDefinition:
		if perm == nil {
			return mustMarshal(sortedCopy(d.Items))
		}
		return mustMarshal(permute(d.Items, perm))
	case DragDropDefinition:
		return mustMarshal(dropOptions{Zones: d.Zones, Items: d.Items})
	default:
		return nil
	}
}

// RemapChoice translates letters picked on a permuted multiple choice list
// back to canonical option letters.
func RemapChoice(in model.AnswerInput, perm []int) (model.AnswerInput, error) {
	if perm == nil {
		return in, nil
	}
	resp, err := decodeChoiceAnswer(in)
	if err != nil {
		return in, err
	}
	mapped := make([]string, len(resp.Selected))
	for i, l := range resp.Selected {
		idx := LetterIndex(l)
		if idx < 0 || idx >= len(perm) {
			return in, malformed(model.QuestionTypeMultipleChoice, "selected_option", "option "+l+" out of range", nil)
		}
		mapped[i] = Letter(perm[idx])
	}
	canonical, _ := canonicalLetters(mapped)
	resp.Selected = canonical
	return resp.encode(), nil
}

func permute(items []string, perm []int) []string {
	if perm == nil || len(perm) != len(items) {
		return items
	}
	out := make([]string, len(items))
	for i, p := range perm {
		out[i] = items[p]
	}
	return out
}
