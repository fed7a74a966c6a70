package codec

import (
	"sort"

	"github.com/stemsi/exstem-assess/internal/model"
)

// RankingDefinition lists the items in their target order.
type RankingDefinition struct {
	Items []string
}

func (RankingDefinition) Type() model.QuestionType { return model.QuestionTypeRanking }
func (RankingDefinition) definition()              {}

// RankingAnswer is the order the student arranged the items in. Order is nil
// when nothing was ordered.
type RankingAnswer struct {
	Order []string
}

func (RankingAnswer) Type() model.QuestionType { return model.QuestionTypeRanking }
func (RankingAnswer) response()                {}

func decodeRankingDefinition(s StoredDefinition) (RankingDefinition, error) {
	const t = model.QuestionTypeRanking
	var items []string
	if !isNull(s.Options) {
		if err := decodeJSON(schemaStringList, s.Options, &items); err != nil {
			return RankingDefinition{}, malformed(t, "options", "expected a list of items", err)
		}
	}

	if s.CorrectAnswer != "" {
		var order []string
		if err := decodeJSON(schemaStringList, []byte(s.CorrectAnswer), &order); err != nil {
			return RankingDefinition{}, malformed(t, "correct_answer", "expected a list of items", err)
		}
		if items != nil && !sameItems(items, order) {
			return RankingDefinition{}, malformed(t, "correct_answer", "target order is not a permutation of the options", nil)
		}
		items = order
	}

	if len(items) == 0 {
		return RankingDefinition{}, malformed(t, "options", "no items defined", nil)
	}
	return RankingDefinition{Items: items}, nil
}

func (d RankingDefinition) encode() StoredDefinition {
	raw := mustMarshal(d.Items)
	return StoredDefinition{Options: raw, CorrectAnswer: string(raw)}
}

func decodeRankingAnswer(in model.AnswerInput) (RankingAnswer, error) {
	if in.AnswerText == "" {
		return RankingAnswer{}, nil
	}
	var order []string
	if err := decodeJSON(schemaStringList, []byte(in.AnswerText), &order); err != nil {
		return RankingAnswer{}, malformed(model.QuestionTypeRanking, "answer_text", "expected a list of items", err)
	}
	if len(order) == 0 {
		return RankingAnswer{}, nil
	}
	return RankingAnswer{Order: order}, nil
}

func (a RankingAnswer) encode() model.AnswerInput {
	if len(a.Order) == 0 {
		return model.AnswerInput{}
	}
	return model.AnswerInput{AnswerText: string(mustMarshal(a.Order))}
}

// sameItems reports whether a and b hold the same multiset of strings.
func sameItems(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
