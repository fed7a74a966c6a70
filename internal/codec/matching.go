package codec

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/stemsi/exstem-assess/internal/model"
)

// Pair is one left/right match. Right is the key for its Left.
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// MatchingDefinition is the ordered list of correct pairs.
type MatchingDefinition struct {
	Pairs []Pair
}

func (MatchingDefinition) Type() model.QuestionType { return model.QuestionTypeMatching }
func (MatchingDefinition) definition()              {}

// MatchingAnswer maps a left index to the right value the student chose.
// Choices is nil when nothing was matched.
type MatchingAnswer struct {
	Choices map[int]string
}

func (MatchingAnswer) Type() model.QuestionType { return model.QuestionTypeMatching }
func (MatchingAnswer) response()                {}

func decodeMatchingDefinition(s StoredDefinition) (MatchingDefinition, error) {
	const t = model.QuestionTypeMatching
	var pairs []Pair
	if isNull(s.Options) {
		return MatchingDefinition{}, malformed(t, "options", "no pairs defined", nil)
	}
	if err := decodeJSON(schemaPairs, s.Options, &pairs); err != nil {
		return MatchingDefinition{}, malformed(t, "options", "expected a list of {left, right} pairs", err)
	}

	if s.CorrectAnswer != "" {
		var key []Pair
		if err := decodeJSON(schemaPairs, []byte(s.CorrectAnswer), &key); err != nil {
			return MatchingDefinition{}, malformed(t, "correct_answer", "expected a list of {left, right} pairs", err)
		}
		if len(key) != len(pairs) {
			return MatchingDefinition{}, malformed(t, "correct_answer", "pair count differs from options", nil)
		}
		pairs = key
	}
	return MatchingDefinition{Pairs: pairs}, nil
}

func (d MatchingDefinition) encode() StoredDefinition {
	raw := mustMarshal(d.Pairs)
	return StoredDefinition{Options: raw, CorrectAnswer: string(raw)}
}

func decodeMatchingAnswer(in model.AnswerInput) (MatchingAnswer, error) {
	const t = model.QuestionTypeMatching
	if in.AnswerText == "" {
		return MatchingAnswer{}, nil
	}
	var raw map[string]string
	if err := decodeJSON(schemaMatchAnswer, []byte(in.AnswerText), &raw); err != nil {
		return MatchingAnswer{}, malformed(t, "answer_text", "expected an object of left index to right value", err)
	}
	if len(raw) == 0 {
		return MatchingAnswer{}, nil
	}
	choices := make(map[int]string, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return MatchingAnswer{}, malformed(t, "answer_text", "left index is not a number", err)
		}
		choices[idx] = v
	}
	return MatchingAnswer{Choices: choices}, nil
}

func (a MatchingAnswer) encode() model.AnswerInput {
	if len(a.Choices) == 0 {
		return model.AnswerInput{}
	}
	raw := make(map[string]string, len(a.Choices))
	for k, v := range a.Choices {
		raw[strconv.Itoa(k)] = v
	}
	b, _ := json.Marshal(raw)
	return model.AnswerInput{AnswerText: string(b)}
}

// sortedRights returns the right-hand values in lexical order, used when the
// student-facing list must not reveal the key order.
func (d MatchingDefinition) sortedRights() []string {
	rights := make([]string, len(d.Pairs))
	for i, p := range d.Pairs {
		rights[i] = p.Right
	}
	sort.Strings(rights)
	return rights
}
