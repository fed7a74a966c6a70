package grading

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assess/internal/codec"
	"github.com/stemsi/exstem-assess/internal/model"
)

func item(def codec.Definition, max float64) Item {
	return Item{
		QuestionID: uuid.New(),
		Type:       def.Type(),
		Definition: codec.EncodeDefinition(def),
		MaxScore:   max,
	}
}

func text(s string) model.AnswerInput { return model.AnswerInput{AnswerText: s} }

func TestEngine_HasStrategyForEveryType(t *testing.T) {
	e := NewEngine()
	for _, qt := range model.QuestionTypes {
		if !e.Supports(qt) {
			t.Errorf("no strategy for %s", qt)
		}
	}
}

func TestGrade_MultipleChoice(t *testing.T) {
	single := item(codec.ChoiceDefinition{Options: []string{"a", "b", "c", "d"}, Correct: []string{"B"}}, 4)
	multi := item(codec.ChoiceDefinition{Options: []string{"a", "b", "c", "d"}, Correct: []string{"A", "C"}, Multiple: true}, 4)
	ptr := func(s string) *string { return &s }

	tests := []struct {
		reason string
		item   Item
		in     model.AnswerInput
		want   float64
	}{
		{"correct", single, model.AnswerInput{SelectedOption: ptr("B")}, 4},
		{"correct_lowercase", single, model.AnswerInput{SelectedOption: ptr("b")}, 4},
		{"wrong", single, model.AnswerInput{SelectedOption: ptr("C")}, 0},
		{"unanswered", single, model.AnswerInput{}, 0},
		{"extra_selection", single, model.AnswerInput{SelectedOptions: []string{"B", "C"}}, 0},
		{"multi_exact", multi, model.AnswerInput{SelectedOptions: []string{"C", "A"}}, 4},
		{"multi_subset_is_not_partial", multi, model.AnswerInput{SelectedOptions: []string{"A"}}, 0},
		{"multi_superset", multi, model.AnswerInput{SelectedOptions: []string{"A", "B", "C"}}, 0},
		{"malformed_payload", single, model.AnswerInput{SelectedOption: ptr("??")}, 0},
	}

	e := NewEngine()
	for _, tc := range tests {
		res := e.Grade(tc.item, tc.in)
		if res.Score == nil {
			t.Errorf("%s: score is nil", tc.reason)
			continue
		}
		if *res.Score != tc.want {
			t.Errorf("%s: score = %v, want %v", tc.reason, *res.Score, tc.want)
		}
		if res.RequiresManualReview {
			t.Errorf("%s: unexpected manual review", tc.reason)
		}
	}
}

func TestGrade_PartialCredit(t *testing.T) {
	blanks := item(codec.BlankDefinition{Correct: []string{"Paris", "1889"}}, 10)
	ranking := item(codec.RankingDefinition{Items: []string{"X", "Y", "Z"}}, 3)
	ranking10 := item(codec.RankingDefinition{Items: []string{"X", "Y", "Z"}}, 10)
	matching := item(codec.MatchingDefinition{Pairs: []codec.Pair{
		{Left: "France", Right: "Paris"},
		{Left: "Italy", Right: "Rome"},
		{Left: "Spain", Right: "Madrid"},
		{Left: "Japan", Right: "Tokyo"},
	}}, 8)
	dragDrop := item(codec.DragDropDefinition{
		Zones:      []string{"Fruit", "Vegetable", "Grain"},
		Items:      []string{"apple", "carrot", "pear", "rice"},
		Placements: map[string][]string{"Fruit": {"apple", "pear"}, "Vegetable": {"carrot"}, "Grain": {"rice"}},
	}, 6)

	tests := []struct {
		reason string
		item   Item
		in     model.AnswerInput
		want   float64
	}{
		{"blank_case_insensitive_half", blanks, text("paris|1890"), 5},
		{"blank_trimmed_full", blanks, text("  PARIS | 1889 "), 10},
		{"blank_missing_is_empty", blanks, text("Paris"), 5},
		{"blank_extra_ignored", blanks, text("Paris|1889|extra"), 10},
		{"blank_unanswered", blanks, text(""), 0},
		{"ranking_one_of_three", ranking, text(`["X","Z","Y"]`), 1},
		{"ranking_rounded", ranking10, text(`["X","Z","Y"]`), 3.33},
		{"ranking_two_of_three", ranking10, text(`["X","Y"]`), 6.67},
		{"ranking_exact", ranking, text(`["X","Y","Z"]`), 3},
		{"matching_half", matching, text(`{"0":"Paris","1":"Madrid","3":"Tokyo"}`), 4},
		{"matching_none", matching, text(`{}`), 0},
		{"drag_drop_two_zones", dragDrop, text(`{"Fruit":["pear","apple"],"Vegetable":["carrot","rice"],"Grain":["rice"]}`), 4},
		{"drag_drop_all", dragDrop, text(`{"Fruit":["apple","pear"],"Vegetable":["carrot"],"Grain":["rice"]}`), 6},
		{"drag_drop_malformed", dragDrop, text(`not json`), 0},
	}

	e := NewEngine()
	for _, tc := range tests {
		res := e.Grade(tc.item, tc.in)
		if res.Score == nil {
			t.Errorf("%s: score is nil", tc.reason)
			continue
		}
		if *res.Score != tc.want {
			t.Errorf("%s: score = %v, want %v", tc.reason, *res.Score, tc.want)
		}
		if *res.Score < 0 || *res.Score > res.MaxScore {
			t.Errorf("%s: score %v outside [0, %v]", tc.reason, *res.Score, res.MaxScore)
		}
	}
}

func TestGrade_MalformedScoresZeroWithError(t *testing.T) {
	e := NewEngine()
	res := e.Grade(item(codec.RankingDefinition{Items: []string{"a", "b"}}, 5), text("a,b"))

	if res.Score == nil || *res.Score != 0 {
		t.Fatalf("score = %v, want 0", res.Score)
	}
	if !errors.Is(res.Err, codec.ErrMalformedAnswer) {
		t.Errorf("err = %v, want ErrMalformedAnswer", res.Err)
	}
}

func TestGrade_FreeTextNeedsManualReview(t *testing.T) {
	e := NewEngine()
	for _, qt := range []model.QuestionType{model.QuestionTypeShortAnswer, model.QuestionTypeEssay, model.QuestionTypeStem} {
		res := e.Grade(item(codec.FreeTextDefinition{Kind: qt, Reference: "chlorophyll"}, 5), text("chlorophyll"))
		if !res.RequiresManualReview {
			t.Errorf("%s: expected manual review", qt)
		}
		if res.Score != nil {
			t.Errorf("%s: score = %v, want nil", qt, *res.Score)
		}
		if res.MaxScore != 5 {
			t.Errorf("%s: max score = %v, want 5", qt, res.MaxScore)
		}
	}
}

func TestGrade_Deterministic(t *testing.T) {
	e := NewEngine()
	it := item(codec.BlankDefinition{Correct: []string{"a", "b", "c"}}, 7)

	first := e.Grade(it, text("a|x|c"))
	for i := 0; i < 10; i++ {
		again := e.Grade(it, text("a|x|c"))
		if *again.Score != *first.Score {
			t.Fatalf("grade changed between calls: %v vs %v", *again.Score, *first.Score)
		}
	}
	if *first.Score != 4.67 {
		t.Errorf("score = %v, want 4.67", *first.Score)
	}
}

func TestWithPrecision(t *testing.T) {
	e := NewEngine(WithPrecision(0))
	res := e.Grade(item(codec.RankingDefinition{Items: []string{"X", "Y", "Z"}}, 10), text(`["X","Z","Y"]`))
	if *res.Score != 3 {
		t.Errorf("score = %v, want 3", *res.Score)
	}
}
