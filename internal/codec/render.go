package codec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stemsi/exstem-assess/internal/model"
)

const noAnswer = "(no answer)"

// Render formats a response for a human reviewer, using def for labels.
// A nil response renders as "(no answer)".
func Render(def Definition, resp Response) string {
	switch r := resp.(type) {
	case ChoiceAnswer:
		return renderChoice(def, r)
	case BlankAnswer:
		return renderBlanks(def, r)
	case MatchingAnswer:
		return renderMatching(def, r)
	case RankingAnswer:
		return renderList(r.Order)
	case DragDropAnswer:
		return renderDragDrop(def, r)
	case FreeTextAnswer:
		if strings.TrimSpace(r.Text) == "" {
			return noAnswer
		}
		return r.Text
	default:
		return noAnswer
	}
}

// RenderStored decodes and renders a stored answer. Decode failures are
// returned rather than scored, so reviewers see exactly what is wrong.
func RenderStored(t model.QuestionType, def StoredDefinition, in model.AnswerInput) (string, error) {
	d, err := DecodeDefinition(t, def)
	if err != nil {
		return "", err
	}
	r, err := DecodeResponse(t, in)
	if err != nil {
		return "", err
	}
	return Render(d, r), nil
}

func renderChoice(def Definition, a ChoiceAnswer) string {
	if len(a.Selected) == 0 {
		return noAnswer
	}
	var options []string
	if d, ok := def.(ChoiceDefinition); ok {
		options = d.Options
	}
	parts := make([]string, len(a.Selected))
	for i, l := range a.Selected {
		idx := LetterIndex(l)
		if idx >= 0 && idx < len(options) {
			parts[i] = fmt.Sprintf("%s. %s", l, options[idx])
		} else {
			parts[i] = l
		}
	}
	return strings.Join(parts, "; ")
}

func renderBlanks(def Definition, a BlankAnswer) string {
	blanks := a.Blanks
	if d, ok := def.(BlankDefinition); ok {
		blanks = a.Padded(len(d.Correct))
	}
	if len(blanks) == 0 {
		return noAnswer
	}
	parts := make([]string, len(blanks))
	for i, b := range blanks {
		if b == "" {
			b = "_"
		}
		parts[i] = fmt.Sprintf("[%d] %s", i+1, b)
	}
	return strings.Join(parts, ", ")
}

func renderMatching(def Definition, a MatchingAnswer) string {
	d, ok := def.(MatchingDefinition)
	if !ok {
		if len(a.Choices) == 0 {
			return noAnswer
		}
		keys := make([]int, 0, len(a.Choices))
		for k := range a.Choices {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = fmt.Sprintf("%d -> %s", k, a.Choices[k])
		}
		return strings.Join(lines, "\n")
	}
	lines := make([]string, len(d.Pairs))
	for i, p := range d.Pairs {
		choice, ok := a.Choices[i]
		if !ok || choice == "" {
			choice = "_"
		}
		lines[i] = fmt.Sprintf("%s -> %s", p.Left, choice)
	}
	return strings.Join(lines, "\n")
}

func renderList(items []string) string {
	if len(items) == 0 {
		return noAnswer
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, it)
	}
	return strings.Join(lines, "\n")
}

func renderDragDrop(def Definition, a DragDropAnswer) string {
	if len(a.Placements) == 0 {
		return noAnswer
	}
	var zones []string
	seen := map[string]struct{}{}
	if d, ok := def.(DragDropDefinition); ok {
		for _, z := range d.Zones {
			if _, placed := a.Placements[z]; placed {
				zones = append(zones, z)
				seen[z] = struct{}{}
			}
		}
	}
	var extra []string
	for z := range a.Placements {
		if _, ok := seen[z]; !ok {
			extra = append(extra, z)
		}
	}
	sort.Strings(extra)
	zones = append(zones, extra...)

	lines := make([]string, len(zones))
	for i, z := range zones {
		lines[i] = fmt.Sprintf("%s: %s", z, strings.Join(a.Placements[z], ", "))
	}
	return strings.Join(lines, "\n")
}
